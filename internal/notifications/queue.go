package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification - короткоживущее сообщение для UI
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Queue - FIFO очередь уведомлений с автоматическим истечением по TTL.
// Мутации сериализуются мьютексом: Push может вызываться из реконсилятора,
// SOS-автомата и хэндлеров одновременно.
type Queue struct {
	mu      sync.Mutex
	entries []Notification
	ttl     time.Duration
	now     func() time.Time
}

// NewQueue создает очередь уведомлений с заданным TTL
func NewQueue(ttl time.Duration) *Queue {
	return &Queue{
		ttl: ttl,
		now: time.Now,
	}
}

// Push добавляет сообщение в хвост очереди и возвращает его ID.
// Повторные одинаковые сообщения не дедуплицируются, каждое живет свой TTL.
func (q *Queue) Push(message string) uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := Notification{
		ID:        uuid.New(),
		Message:   message,
		CreatedAt: q.now(),
	}
	q.entries = append(q.entries, entry)
	return entry.ID
}

// Entries возвращает все непросроченные уведомления в порядке добавления
func (q *Queue) Entries() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.prune()

	out := make([]Notification, len(q.entries))
	copy(out, q.entries)
	return out
}

// Len возвращает количество непросроченных уведомлений
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.prune()
	return len(q.entries)
}

// prune удаляет просроченные записи. Записи добавляются в хвост с
// монотонным CreatedAt, поэтому просроченные всегда образуют префикс.
func (q *Queue) prune() {
	deadline := q.now().Add(-q.ttl)
	i := 0
	for i < len(q.entries) && !q.entries[i].CreatedAt.After(deadline) {
		i++
	}
	if i > 0 {
		q.entries = append(q.entries[:0], q.entries[i:]...)
	}
}
