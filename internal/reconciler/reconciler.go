package reconciler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shenikar/safety_alert_system/internal/changefeed"
	"github.com/shenikar/safety_alert_system/internal/models"
	"github.com/shenikar/safety_alert_system/internal/notifications"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=reconciler.go -destination=mocks/mock_reconciler.go -package=mocks

// IncidentTable - имя таблицы, на изменения которой подписан реконсилятор
const IncidentTable = "incidents"

// SnapshotStore определяет контракт для чтения полного снапшота активных инцидентов
type SnapshotStore interface {
	ListActive(ctx context.Context) ([]*models.Incident, error)
}

// Snapshot - согласованный срез активных инцидентов с номером версии
type Snapshot struct {
	Incidents []*models.Incident
	Version   uint64
}

// Reconciler владеет локальным множеством активных инцидентов и сводит его
// к истине хранилища. Любое событие фида трактуется как "перечитай снапшот":
// частичный мердж отвергнут намеренно, фид не гарантирует ни полноту
// payload, ни порядок доставки.
type Reconciler struct {
	store       SnapshotStore
	feed        changefeed.Feed
	queue       *notifications.Queue
	logger      *logrus.Logger
	recentLimit int

	mu        sync.RWMutex
	active    map[uuid.UUID]*models.Incident
	ordered   []*models.Incident // активные инциденты по created_at по убыванию
	version   uint64
	sub       changefeed.Subscription
	listeners []chan Snapshot
}

// New создает реконсилятор с пустым локальным множеством
func New(store SnapshotStore, feed changefeed.Feed, queue *notifications.Queue, logger *logrus.Logger, recentLimit int) *Reconciler {
	if recentLimit < 1 {
		recentLimit = 20
	}
	return &Reconciler{
		store:       store,
		feed:        feed,
		queue:       queue,
		logger:      logger,
		recentLimit: recentLimit,
		active:      make(map[uuid.UUID]*models.Incident),
	}
}

// Resync перечитывает полный снапшот и целиком замещает локальное множество.
// При ошибке чтения прежнее множество остается нетронутым.
func (r *Reconciler) Resync(ctx context.Context) error {
	log := r.logger.WithFields(logrus.Fields{
		"service": "reconciler",
		"method":  "Resync",
	})

	incidents, err := r.store.ListActive(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load incident snapshot")
		r.queue.Push("Failed to refresh incidents")
		return fmt.Errorf("reconciler: could not load snapshot: %w", err)
	}

	active := make(map[uuid.UUID]*models.Incident, len(incidents))
	ordered := make([]*models.Incident, 0, len(incidents))
	for _, incident := range incidents {
		if incident.Status != models.IncidentActive {
			continue
		}
		if _, ok := active[incident.ID]; ok {
			continue
		}
		active[incident.ID] = incident
		ordered = append(ordered, incident)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	r.mu.Lock()
	r.active = active
	r.ordered = ordered
	r.version++
	snapshot := Snapshot{Incidents: ordered, Version: r.version}
	listeners := r.listeners
	r.mu.Unlock()

	log.WithFields(logrus.Fields{
		"count":   len(ordered),
		"version": snapshot.Version,
	}).Debug("Incident snapshot applied")

	for _, ch := range listeners {
		// Слушателю нужен только последний снапшот: вытесняем устаревший
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
	return nil
}

// Active возвращает активные инциденты по created_at по убыванию
func (r *Reconciler) Active() []*models.Incident {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Incident, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// RecentAlerts возвращает не более recentLimit последних активных инцидентов
func (r *Reconciler) RecentAlerts() []*models.Incident {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.ordered)
	if n > r.recentLimit {
		n = r.recentLimit
	}
	out := make([]*models.Incident, n)
	copy(out, r.ordered[:n])
	return out
}

// Version возвращает номер версии последнего примененного снапшота
func (r *Reconciler) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Subscribe регистрирует слушателя снапшотов. Канал буферизован на один
// элемент и всегда содержит самый свежий снапшот (latest-wins).
func (r *Reconciler) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	r.mu.Lock()
	r.listeners = append(r.listeners, ch)
	r.mu.Unlock()
	return ch
}

// Run подписывается на фид изменений и держит локальное множество в
// согласованном состоянии до отмены контекста. Повторный запуск сначала
// освобождает предыдущую подписку: активна всегда ровно одна.
func (r *Reconciler) Run(ctx context.Context) error {
	log := r.logger.WithFields(logrus.Fields{
		"service": "reconciler",
		"method":  "Run",
	})

	sub, err := r.feed.Subscribe(ctx, IncidentTable)
	if err != nil {
		r.queue.Push("Failed to subscribe to incident updates")
		return fmt.Errorf("reconciler: could not subscribe to change feed: %w", err)
	}

	r.mu.Lock()
	prev := r.sub
	r.sub = sub
	r.mu.Unlock()
	if prev != nil {
		if err := prev.Close(); err != nil {
			log.WithError(err).Warn("Failed to close previous change feed subscription")
		}
	}

	// Начальный снапшот; при ошибке прежнее состояние сохранено,
	// следующая попытка произойдет на ближайшем событии фида
	if err := r.Resync(ctx); err != nil {
		log.WithError(err).Warn("Initial snapshot failed, waiting for change events")
	}

	log.Info("Reconciler started")

	go func() {
		defer func() {
			if err := sub.Close(); err != nil {
				log.WithError(err).Warn("Failed to close change feed subscription")
			}
		}()

		for {
			select {
			case <-ctx.Done():
				log.Info("Reconciler stopped")
				return
			case event, ok := <-sub.Events():
				if !ok {
					log.Warn("Change feed closed")
					return
				}
				// Независимо от вида события перечитываем снапшот целиком
				log.WithFields(logrus.Fields{
					"kind": event.Kind,
					"id":   event.ID,
				}).Debug("Change event received")
				if err := r.Resync(ctx); err != nil && ctx.Err() == nil {
					log.WithError(err).Error("Resync after change event failed")
				}
			}
		}
	}()

	return nil
}

// Close освобождает текущую подписку на фид изменений
func (r *Reconciler) Close() error {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}
