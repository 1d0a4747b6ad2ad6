package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_alert_system/internal/models"
	"github.com/shenikar/safety_alert_system/internal/reconciler"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, context.CancelFunc) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	hub.Run(ctx, make(chan reconciler.Snapshot))
	return hub, cancel
}

func TestHub_BroadcastSnapshotReachesClient(t *testing.T) {
	// Подготовка
	hub, cancel := newTestHub(t)
	defer cancel()

	client := &Client{hub: hub, send: make(chan []byte, 16)}
	hub.register <- client

	snapshot := reconciler.Snapshot{
		Version: 7,
		Incidents: []*models.Incident{
			{ID: uuid.New(), Type: "theft", Status: models.IncidentActive},
		},
	}

	// Действие
	hub.BroadcastSnapshot(snapshot)

	// Проверки
	select {
	case raw := <-client.send:
		var msg snapshotMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "snapshot", msg.Type)
		assert.Equal(t, uint64(7), msg.Version)
	case <-time.After(time.Second):
		t.Fatal("client did not receive the snapshot")
	}
}

func TestHub_DropAfterShutdownDoesNotBlock(t *testing.T) {
	// Подготовка
	hub, cancel := newTestHub(t)

	client := &Client{hub: hub, send: make(chan []byte, 16)}
	hub.register <- client

	// Действие: останавливаем хаб
	cancel()

	// Канал клиента закрывается при остановке цикла
	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client send channel was not closed on shutdown")
	}

	// Проверки: снятие клиента с учета после остановки не блокируется
	finished := make(chan struct{})
	go func() {
		hub.drop(client)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("drop blocked after hub shutdown")
	}
}

func TestHub_SlowClientEvicted(t *testing.T) {
	// Подготовка: буфер клиента на одно сообщение
	hub, cancel := newTestHub(t)
	defer cancel()

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- client

	snapshot := reconciler.Snapshot{Version: 1}

	// Действие: второй снапшот не влезает в буфер, клиент вытесняется
	hub.BroadcastSnapshot(snapshot)
	hub.BroadcastSnapshot(reconciler.Snapshot{Version: 2})

	// Проверки: канал закрыт после вытеснения, первое сообщение доставлено
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-client.send:
			return !ok // закрытие канала означает вытеснение
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
