package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/safety_alert_system/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=contact.go -destination=mocks/mock_contact.go -package=mocks

var (
	// ErrNotOwner - попытка удалить чужой или публичный контакт
	ErrNotOwner = errors.New("service: contact does not belong to the user")
)

// ContactRepository определяет контракт для работы с бд экстренных контактов
type ContactRepository interface {
	Create(ctx context.Context, contact *models.EmergencyContact) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmergencyContact, error)
	ListVisible(ctx context.Context, userID *uuid.UUID) ([]*models.EmergencyContact, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ContactService определяет контракт бизнес-логики экстренных контактов
type ContactService interface {
	VisibleContacts(ctx context.Context, userID *uuid.UUID) ([]*models.EmergencyContact, error)
	AddContact(ctx context.Context, userID uuid.UUID, name, phone string) (*models.EmergencyContact, error)
	DeleteContact(ctx context.Context, userID uuid.UUID, id uuid.UUID) error
}

type contactService struct {
	repo   ContactRepository
	logger *logrus.Logger
}

func NewContactService(repo ContactRepository, logger *logrus.Logger) ContactService {
	return &contactService{
		repo:   repo,
		logger: logger,
	}
}

// VisibleContacts возвращает контакты, видимые сессии: публичные для всех
// плюс личные контакты аутентифицированного пользователя
func (s *contactService) VisibleContacts(ctx context.Context, userID *uuid.UUID) ([]*models.EmergencyContact, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "contact",
		"method":  "VisibleContacts",
	})
	log.Info("Listing visible contacts")

	contacts, err := s.repo.ListVisible(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to list contacts from repository")
		return nil, fmt.Errorf("service: could not list contacts: %w", err)
	}

	log.WithField("count", len(contacts)).Info("Contacts listed successfully")
	return contacts, nil
}

// AddContact создает личный контакт пользователя
func (s *contactService) AddContact(ctx context.Context, userID uuid.UUID, name, phone string) (*models.EmergencyContact, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "contact",
		"method":  "AddContact",
		"user_id": userID,
	})
	log.Info("Attempting to add a contact")

	contact := &models.EmergencyContact{
		Name:   name,
		Phone:  phone,
		UserID: &userID,
	}
	if err := s.repo.Create(ctx, contact); err != nil {
		log.WithError(err).Error("Failed to create contact in repository")
		return nil, fmt.Errorf("service: could not create contact: %w", err)
	}

	log.WithField("contact_id", contact.ID).Info("Contact created successfully")
	return contact, nil
}

// DeleteContact удаляет контакт. Разрешено только владельцу: публичные
// контакты (user_id == null) не удаляются никем через этот сервис.
func (s *contactService) DeleteContact(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":    "contact",
		"method":     "DeleteContact",
		"user_id":    userID,
		"contact_id": id,
	})
	log.Info("Attempting to delete a contact")

	contact, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to delete a non-existent contact")
		return fmt.Errorf("service: contact with id %s not found for delete: %w", id, err)
	}

	if contact.UserID == nil || *contact.UserID != userID {
		log.Warn("Attempted to delete a contact owned by another user")
		return ErrNotOwner
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		log.WithError(err).Error("Failed to delete contact in repository")
		return fmt.Errorf("service: could not delete contact: %w", err)
	}

	log.Info("Contact deleted successfully")
	return nil
}
