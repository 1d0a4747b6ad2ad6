package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentStatus - статус инцидента
type IncidentStatus string

const (
	IncidentActive   IncidentStatus = "active"
	IncidentResolved IncidentStatus = "resolved"
)

// IncidentTypeSOS - зарезервированный тип инцидента для экстренного сигнала
const IncidentTypeSOS = "SOS"

type Incident struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Status      IncidentStatus `json:"status"`
	UserID      *uuid.UUID     `json:"user_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
