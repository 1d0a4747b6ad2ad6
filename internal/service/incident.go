package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_alert_system/internal/changefeed"
	"github.com/shenikar/safety_alert_system/internal/models"
	"github.com/shenikar/safety_alert_system/internal/reconciler"
	"github.com/shenikar/safety_alert_system/internal/webhook"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=incident.go -destination=mocks/mock_incident.go -package=mocks

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListActive(ctx context.Context) ([]*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.IncidentStatus) error
}

// ActiveView определяет контракт локального представления активных инцидентов
type ActiveView interface {
	Active() []*models.Incident
	RecentAlerts() []*models.Incident
	Version() uint64
}

// IncidentService определяет контракт бизнес-логики управления инцидентами
type IncidentService interface {
	CreateIncident(ctx context.Context, incident *models.Incident) error
	ResolveIncident(ctx context.Context, id uuid.UUID) error
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	ActiveIncidents() []*models.Incident
	RecentAlerts() []*models.Incident
}

type incidentService struct {
	repo   IncidentRepository
	view   ActiveView
	feed   changefeed.Publisher
	alerts webhook.AlertPublisher
	logger *logrus.Logger
}

func NewIncidentService(repo IncidentRepository, view ActiveView, feed changefeed.Publisher, alerts webhook.AlertPublisher, logger *logrus.Logger) IncidentService {
	return &incidentService{
		repo:   repo,
		view:   view,
		feed:   feed,
		alerts: alerts,
		logger: logger,
	}
}

// CreateIncident создает инцидент и публикует событие изменения в фид.
// Публикация best-effort: локальное представление догонит хранилище на
// следующем снапшоте, неудача фида не отменяет запись.
func (s *incidentService) CreateIncident(ctx context.Context, incident *models.Incident) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "CreateIncident",
		"type":    incident.Type,
	})
	log.Info("Attempting to create a new incident")

	incident.Status = models.IncidentActive
	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return fmt.Errorf("service: could not create incident: %w", err)
	}

	s.publishChange(ctx, changefeed.EventInsert, incident.ID)

	if incident.Type == models.IncidentTypeSOS {
		event := webhook.AlertEvent{
			IncidentID:  incident.ID,
			Type:        incident.Type,
			Latitude:    incident.Latitude,
			Longitude:   incident.Longitude,
			Description: incident.Description,
			Timestamp:   incident.CreatedAt,
		}
		if err := s.alerts.Publish(ctx, event); err != nil {
			log.WithError(err).Error("Failed to enqueue alert webhook")
		}
	}

	log.WithField("incident_id", incident.ID).Info("Incident created successfully")
	return nil
}

// ResolveIncident переводит инцидент в статус resolved
func (s *incidentService) ResolveIncident(ctx context.Context, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "ResolveIncident",
		"incident_id": id,
	})
	log.Info("Attempting to resolve incident")

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		log.WithError(err).Warn("Attempted to resolve a non-existent incident")
		return fmt.Errorf("service: incident with id %s not found for resolve: %w", id, err)
	}

	if err := s.repo.UpdateStatus(ctx, id, models.IncidentResolved); err != nil {
		log.WithError(err).Error("Failed to resolve incident in repository")
		return fmt.Errorf("service: could not resolve incident: %w", err)
	}

	s.publishChange(ctx, changefeed.EventUpdate, id)

	log.Info("Incident resolved successfully")
	return nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (s *incidentService) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})
	log.Info("Listing incidents")

	incidents, err := s.repo.ListIncidents(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// ActiveIncidents возвращает активные инциденты из локального представления
func (s *incidentService) ActiveIncidents() []*models.Incident {
	return s.view.Active()
}

// RecentAlerts возвращает последние активные инциденты из локального представления
func (s *incidentService) RecentAlerts() []*models.Incident {
	return s.view.RecentAlerts()
}

func (s *incidentService) publishChange(ctx context.Context, kind changefeed.EventKind, id uuid.UUID) {
	event := changefeed.ChangeEvent{
		Table: reconciler.IncidentTable,
		Kind:  kind,
		ID:    id,
		At:    time.Now(),
	}
	if err := s.feed.Publish(ctx, event); err != nil {
		s.logger.WithError(err).Error("Failed to publish change event")
	}
}
