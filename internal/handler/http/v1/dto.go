package v1

import (
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_alert_system/internal/models"
)

// ReportIncidentRequest DTO для создания инцидента. Координаты - указатели:
// required на float64 отверг бы нулевое значение, а широта/долгота 0 валидны
// @Description DTO для создания инцидента
type ReportIncidentRequest struct {
	Type        string   `json:"type" validate:"required,min=2,max=64"`
	Description string   `json:"description,omitempty"`
	Latitude    *float64 `json:"latitude" validate:"required,latitude"`
	Longitude   *float64 `json:"longitude" validate:"required,longitude"`
}

// SOSRequest DTO для экстренного сигнала. Координаты опциональны:
// их отсутствие означает "геопозиция неизвестна" и отклоняется
// предусловием, а не валидацией.
// @Description DTO для экстренного сигнала
type SOSRequest struct {
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// AddContactRequest DTO для добавления экстренного контакта
// @Description DTO для добавления экстренного контакта
type AddContactRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=255"`
	Phone string `json:"phone" validate:"required,min=3,max=32"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Description string     `json:"description,omitempty"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Status      string     `json:"status"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ContactResponse DTO для ответа с информацией о контакте
// @Description DTO для ответа с информацией о контакте
type ContactResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Public    bool       `json:"public"`
	CreatedAt time.Time  `json:"created_at"`
}

// NotificationResponse DTO для ответа с уведомлением
// @Description DTO для ответа с уведомлением
type NotificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// RiskZoneResponse DTO для ответа с зоной риска
// @Description DTO для ответа с зоной риска
type RiskZoneResponse struct {
	Area          string           `json:"area"`
	RiskLevel     models.RiskLevel `json:"risk_level"`
	Reason        string           `json:"reason"`
	Latitude      float64          `json:"latitude"`
	Longitude     float64          `json:"longitude"`
	IncidentCount int              `json:"incident_count"`
}

// SOSStateResponse DTO для ответа с состоянием SOS-автомата
// @Description DTO для ответа с состоянием SOS-автомата
type SOSStateResponse struct {
	State string `json:"state"`
}
