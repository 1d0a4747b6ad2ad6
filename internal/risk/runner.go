package risk

import (
	"context"
	"sync"

	"github.com/shenikar/safety_alert_system/internal/models"
	"github.com/shenikar/safety_alert_system/internal/reconciler"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks

// Analyzer определяет контракт анализатора опасных зон. Вычисление может
// быть долгим; при отмене контекста результат все равно будет отброшен.
type Analyzer interface {
	Analyze(ctx context.Context, incidents []*models.Incident) ([]models.RiskZone, error)
}

// Runner запускает анализатор на каждом новом снапшоте инцидентов.
// Каждый запуск помечен версией снапшота: результат применяется только
// если его версия все еще последняя, устаревшие запуски отменяются.
type Runner struct {
	analyzer Analyzer
	logger   *logrus.Logger

	mu      sync.Mutex
	zones   []models.RiskZone
	latest  uint64
	applied uint64
	cancel  context.CancelFunc
}

// NewRunner создает Runner без результатов
func NewRunner(analyzer Analyzer, logger *logrus.Logger) *Runner {
	return &Runner{
		analyzer: analyzer,
		logger:   logger,
	}
}

// Submit запускает анализ снапшота. Запуск с устаревшей версией игнорируется;
// новый запуск отменяет незавершенный предыдущий.
func (r *Runner) Submit(ctx context.Context, snapshot reconciler.Snapshot) {
	log := r.logger.WithFields(logrus.Fields{
		"service": "risk",
		"method":  "Submit",
		"version": snapshot.Version,
	})

	r.mu.Lock()
	if snapshot.Version <= r.latest && r.latest != 0 {
		r.mu.Unlock()
		log.Debug("Stale snapshot version, analysis skipped")
		return
	}
	r.latest = snapshot.Version
	if r.cancel != nil {
		r.cancel()
	}

	// Пустой снапшот дает пустой результат немедленно, без устаревших зон
	if len(snapshot.Incidents) == 0 {
		r.zones = nil
		r.applied = snapshot.Version
		r.cancel = nil
		r.mu.Unlock()
		log.Debug("Empty snapshot, zones cleared")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		defer cancel()

		zones, err := r.analyzer.Analyze(runCtx, snapshot.Incidents)
		if err != nil {
			if runCtx.Err() == nil {
				log.WithError(err).Error("Risk analysis failed")
			}
			return
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		// Пока анализ выполнялся, мог прийти более свежий снапшот
		if snapshot.Version != r.latest {
			log.Debug("Analysis superseded, result discarded")
			return
		}
		r.zones = zones
		r.applied = snapshot.Version
		log.WithField("zones", len(zones)).Debug("Risk zones applied")
	}()
}

// Zones возвращает зоны риска, производные от последнего примененного снапшота
func (r *Runner) Zones() []models.RiskZone {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.RiskZone, len(r.zones))
	copy(out, r.zones)
	return out
}

// Run потребляет снапшоты реконсилятора до отмены контекста
func (r *Runner) Run(ctx context.Context, snapshots <-chan reconciler.Snapshot) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snapshot, ok := <-snapshots:
				if !ok {
					return
				}
				r.Submit(ctx, snapshot)
			}
		}
	}()
}
