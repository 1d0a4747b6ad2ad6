package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/safety_alert_system/internal/models"
	"github.com/shenikar/safety_alert_system/internal/service"
)

type ContactRepository struct {
	db *pgxpool.Pool
}

func NewContactRepository(db *pgxpool.Pool) service.ContactRepository {
	return &ContactRepository{
		db: db,
	}
}

// Create создает новый экстренный контакт в бд
func (r *ContactRepository) Create(ctx context.Context, contact *models.EmergencyContact) error {
	query := `
		INSERT INTO emergency_contacts (name, phone, user_id)
		VALUES ($1, $2, $3) RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		contact.Name,
		contact.Phone,
		contact.UserID,
	).Scan(&contact.ID, &contact.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// GetByID возвращает контакт по его UUID
func (r *ContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmergencyContact, error) {
	contact := &models.EmergencyContact{}
	query := `
		SELECT id, name, phone, user_id, created_at
		FROM emergency_contacts
		WHERE id = $1;
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&contact.ID,
		&contact.Name,
		&contact.Phone,
		&contact.UserID,
		&contact.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("contact with id %s not found", id)
		}
		return nil, fmt.Errorf("failed to get contact by id: %w", err)
	}
	return contact, nil
}

// ListVisible возвращает контакты, видимые сессии: публичные (user_id IS NULL)
// и личные контакты переданного пользователя. Для анонимной сессии
// (userID == nil) возвращаются только публичные.
func (r *ContactRepository) ListVisible(ctx context.Context, userID *uuid.UUID) ([]*models.EmergencyContact, error) {
	query := `
		SELECT id, name, phone, user_id, created_at
		FROM emergency_contacts
		WHERE user_id IS NULL OR user_id = $1
		ORDER BY created_at DESC;
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]*models.EmergencyContact, 0)
	for rows.Next() {
		contact := &models.EmergencyContact{}
		err := rows.Scan(
			&contact.ID,
			&contact.Name,
			&contact.Phone,
			&contact.UserID,
			&contact.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact row: %w", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return contacts, nil
}

// Delete удаляет контакт по UUID
func (r *ContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM emergency_contacts
		WHERE id = $1;
	`
	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("contact with id %s not found for delete", id)
	}
	return nil
}
