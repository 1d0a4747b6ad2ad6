package sos

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_alert_system/internal/models"
	"github.com/shenikar/safety_alert_system/internal/notifications"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=machine.go -destination=mocks/mock_machine.go -package=mocks

// State - состояние автомата отправки SOS
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateCooldown   State = "cooldown"
)

// Фиксированное описание для SOS-инцидентов
const sosDescription = "Emergency SOS triggered"

var (
	// ErrPreconditions - отсутствует идентичность пользователя или геопозиция
	ErrPreconditions = errors.New("sos: user identity and location are required")
	// ErrSubmissionActive - повторный триггер во время Submitting/Cooldown
	ErrSubmissionActive = errors.New("sos: submission already in progress")
	// ErrBadCoordinates - координаты вне допустимого диапазона
	ErrBadCoordinates = errors.New("sos: coordinates out of range")
)

// Location - текущая геопозиция вызывающего
type Location struct {
	Latitude  float64
	Longitude float64
}

// IncidentCreator определяет контракт для создания инцидента в хранилище
type IncidentCreator interface {
	CreateIncident(ctx context.Context, incident *models.Incident) error
}

// Machine - автомат отправки SOS: Idle -> Submitting -> Cooldown -> Idle.
// Гарантирует не более одной вставки за окно кулдауна независимо от
// количества повторных триггеров.
type Machine struct {
	mu       sync.Mutex
	state    State
	creator  IncidentCreator
	queue    *notifications.Queue
	logger   *logrus.Logger
	cooldown time.Duration
}

// NewMachine создает SOS-автомат в состоянии Idle
func NewMachine(creator IncidentCreator, queue *notifications.Queue, logger *logrus.Logger, cooldown time.Duration) *Machine {
	return &Machine{
		state:    StateIdle,
		creator:  creator,
		queue:    queue,
		logger:   logger,
		cooldown: cooldown,
	}
}

// State возвращает текущее состояние автомата
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Trigger отправляет ровно один SOS-инцидент. Повторный вызов в состояниях
// Submitting/Cooldown подавляется без обращения к хранилищу. При ошибке
// вставки автомат возвращается в Idle, чтобы пользователь мог повторить сразу.
func (m *Machine) Trigger(ctx context.Context, userID *uuid.UUID, loc *Location) error {
	log := m.logger.WithFields(logrus.Fields{
		"service": "sos",
		"method":  "Trigger",
	})

	if userID == nil || loc == nil {
		log.Warn("SOS rejected: missing user identity or location")
		m.queue.Push("Login and location required")
		return ErrPreconditions
	}

	if !validCoordinates(loc.Latitude, loc.Longitude) {
		log.WithFields(logrus.Fields{
			"latitude":  loc.Latitude,
			"longitude": loc.Longitude,
		}).Warn("SOS rejected: malformed coordinates")
		return ErrBadCoordinates
	}

	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		log.Debug("SOS trigger suppressed: submission already active")
		return ErrSubmissionActive
	}
	m.state = StateSubmitting
	m.mu.Unlock()

	incident := &models.Incident{
		Type:        models.IncidentTypeSOS,
		Description: sosDescription,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		Status:      models.IncidentActive,
		UserID:      userID,
	}

	if err := m.creator.CreateIncident(ctx, incident); err != nil {
		// Выход из Submitting гарантирован: при ошибке сразу возвращаемся в Idle
		m.mu.Lock()
		m.state = StateIdle
		m.mu.Unlock()

		log.WithError(err).Error("Failed to create SOS incident")
		m.queue.Push(fmt.Sprintf("SOS failed: %v", err))
		return fmt.Errorf("sos: could not create incident: %w", err)
	}

	m.mu.Lock()
	m.state = StateCooldown
	m.mu.Unlock()

	log.WithField("incident_id", incident.ID).Info("SOS incident created")
	m.queue.Push("SOS sent. Help is on the way.")

	// Таймер кулдауна безусловный и не отменяется дальнейшими действиями
	time.AfterFunc(m.cooldown, func() {
		m.mu.Lock()
		if m.state == StateCooldown {
			m.state = StateIdle
		}
		m.mu.Unlock()
	})

	return nil
}

// validCoordinates проверяет, что координаты конечны и в допустимом диапазоне
func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
