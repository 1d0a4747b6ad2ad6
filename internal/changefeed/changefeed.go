package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=changefeed.go -destination=mocks/mock_changefeed.go -package=mocks

// EventKind - вид изменения в таблице
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
	// EventResync - сигнал "что-то изменилось, перечитай снапшот":
	// переподключение или нераспознанный payload
	EventResync EventKind = "resync"
)

// ChangeEvent - грубое уведомление об изменении строки таблицы.
// Канал доставки негарантированный, payload не содержит состояния строки:
// потребитель обязан перечитывать снапшот, а не патчить локальное состояние.
type ChangeEvent struct {
	Table string    `json:"table"`
	Kind  EventKind `json:"kind"`
	ID    uuid.UUID `json:"id,omitempty"`
	At    time.Time `json:"at"`
}

// Publisher - интерфейс для публикации событий изменения
type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// RedisPublisher - реализация Publisher через Redis Pub/Sub
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher создает новый RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

func channelName(table string) string {
	return fmt.Sprintf("changefeed:%s", table)
}

// Publish публикует событие изменения в канал Redis
func (p *RedisPublisher) Publish(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := p.redisClient.Publish(ctx, channelName(event.Table), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event to Redis: %w", err)
	}
	return nil
}

// Feed - интерфейс подписки на поток изменений таблицы
type Feed interface {
	Subscribe(ctx context.Context, table string) (Subscription, error)
}

// Subscription - отменяемая подписка на поток изменений.
// Close обязателен: без него утекают горутина и соединение Pub/Sub.
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

// RedisFeed - реализация Feed поверх Redis Pub/Sub
type RedisFeed struct {
	redisClient *redis.Client
	logger      *logrus.Logger
}

// NewRedisFeed создает новый RedisFeed
func NewRedisFeed(client *redis.Client, logger *logrus.Logger) *RedisFeed {
	return &RedisFeed{
		redisClient: client,
		logger:      logger,
	}
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	events    chan ChangeEvent
	closeOnce sync.Once
	done      chan struct{}
}

// Subscribe подписывается на канал изменений таблицы
func (f *RedisFeed) Subscribe(ctx context.Context, table string) (Subscription, error) {
	pubsub := f.redisClient.Subscribe(ctx, channelName(table))

	// Дожидаемся подтверждения подписки, чтобы не терять ранние события
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to change feed for %s: %w", table, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan ChangeEvent, 16),
		done:   make(chan struct{}),
	}

	go sub.run(table, f.logger, pubsub.ChannelWithSubscriptions())
	return sub, nil
}

func (s *redisSubscription) run(table string, log *logrus.Logger, incoming <-chan interface{}) {
	defer close(s.events)

	for raw := range incoming {
		var event ChangeEvent
		switch msg := raw.(type) {
		case *redis.Message:
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				// Нечитаемый payload все равно означает "что-то изменилось"
				log.WithError(err).Warn("Failed to unmarshal change event, emitting resync")
				event = ChangeEvent{Table: table, Kind: EventResync, At: time.Now()}
			}
		case *redis.Subscription:
			if msg.Kind != "subscribe" {
				continue
			}
			// Первичное подтверждение подписки вычитывает Receive в Subscribe,
			// сюда confirmation приходит только после переподключения. Все
			// опубликованное за время разрыва потеряно - нужна перечитка
			log.WithField("channel", msg.Channel).Warn("Change feed reconnected, emitting resync")
			event = ChangeEvent{Table: table, Kind: EventResync, At: time.Now()}
		default:
			continue
		}

		select {
		case s.events <- event:
		case <-s.done:
			return
		default:
			// Потребитель отстал: событие можно отбросить, уже лежащее
			// в буфере событие вызовет ту же перечитку снапшота
			log.Debug("Change event channel full, event coalesced")
		}
	}
}

// Events возвращает канал событий подписки
func (s *redisSubscription) Events() <-chan ChangeEvent {
	return s.events
}

// Close освобождает подписку. Повторный вызов безопасен.
func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
