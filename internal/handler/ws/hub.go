package ws

import (
	"context"
	"encoding/json"

	"github.com/shenikar/safety_alert_system/internal/reconciler"
	"github.com/sirupsen/logrus"
)

// snapshotMessage - сообщение, рассылаемое клиентам при каждом обновлении
// реконсилированного множества
type snapshotMessage struct {
	Type      string      `json:"type"`
	Version   uint64      `json:"version"`
	Incidents interface{} `json:"incidents"`
}

// Hub управляет websocket-соединениями и рассылкой снапшотов
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *logrus.Logger
}

// NewHub создает новый Hub без клиентов
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run запускает основной цикл хаба и потребление снапшотов реконсилятора
func (h *Hub) Run(ctx context.Context, snapshots <-chan reconciler.Snapshot) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snapshot, ok := <-snapshots:
				if !ok {
					return
				}
				h.BroadcastSnapshot(snapshot)
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				// done разблокирует register/unregister, у которых больше
				// нет получателя
				close(h.done)
				for client := range h.clients {
					close(client.send)
				}
				return

			case client := <-h.register:
				h.clients[client] = true
				h.logger.WithField("clients", len(h.clients)).Debug("WS client connected")

			case client := <-h.unregister:
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					close(client.send)
				}
				h.logger.WithField("clients", len(h.clients)).Debug("WS client disconnected")

			case message := <-h.broadcast:
				for client := range h.clients {
					select {
					case client.send <- message:
					default:
						// Медленный клиент отключается, чтобы не блокировать рассылку
						delete(h.clients, client)
						close(client.send)
					}
				}
			}
		}
	}()
}

// drop снимает клиента с учета. Безопасен после остановки хаба:
// не блокируется, когда цикл Run уже завершился
func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastSnapshot рассылает снапшот всем подключенным клиентам
func (h *Hub) BroadcastSnapshot(snapshot reconciler.Snapshot) {
	message, err := json.Marshal(snapshotMessage{
		Type:      "snapshot",
		Version:   snapshot.Version,
		Incidents: snapshot.Incidents,
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal snapshot message")
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("WS broadcast channel full, snapshot dropped")
	}
}
