package models

import (
	"time"

	"github.com/google/uuid"
)

// EmergencyContact представляет запись в справочнике экстренных контактов.
// UserID == nil означает публичный контакт, видимый всем сессиям.
type EmergencyContact struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
