package v1

import (
	"github.com/shenikar/safety_alert_system/internal/models"
	"github.com/shenikar/safety_alert_system/internal/notifications"
)

// ReportToIncidentModel преобразует DTO создания в доменную модель.
// Вызывается после валидации: координаты гарантированно не nil
func ReportToIncidentModel(dto ReportIncidentRequest) *models.Incident {
	return &models.Incident{
		Type:        dto.Type,
		Description: dto.Description,
		Latitude:    *dto.Latitude,
		Longitude:   *dto.Longitude,
	}
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:          model.ID,
		Type:        model.Type,
		Description: model.Description,
		Latitude:    model.Latitude,
		Longitude:   model.Longitude,
		Status:      string(model.Status),
		UserID:      model.UserID,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// ModelToContactResponse преобразует модель контакта в DTO для ответа
func ModelToContactResponse(model *models.EmergencyContact) *ContactResponse {
	return &ContactResponse{
		ID:        model.ID,
		Name:      model.Name,
		Phone:     model.Phone,
		UserID:    model.UserID,
		Public:    model.UserID == nil,
		CreatedAt: model.CreatedAt,
	}
}

// ModelsToContactResponses преобразует слайс моделей контактов в слайс DTO
func ModelsToContactResponses(models []*models.EmergencyContact) []*ContactResponse {
	responses := make([]*ContactResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToContactResponse(model)
	}
	return responses
}

// NotificationsToResponses преобразует уведомления в слайс DTO
func NotificationsToResponses(entries []notifications.Notification) []*NotificationResponse {
	responses := make([]*NotificationResponse, len(entries))
	for i, entry := range entries {
		responses[i] = &NotificationResponse{
			ID:        entry.ID,
			Message:   entry.Message,
			CreatedAt: entry.CreatedAt,
		}
	}
	return responses
}

// ZonesToResponses преобразует зоны риска в слайс DTO
func ZonesToResponses(zones []models.RiskZone) []*RiskZoneResponse {
	responses := make([]*RiskZoneResponse, len(zones))
	for i, zone := range zones {
		responses[i] = &RiskZoneResponse{
			Area:          zone.Area,
			RiskLevel:     zone.RiskLevel,
			Reason:        zone.Reason,
			Latitude:      zone.Latitude,
			Longitude:     zone.Longitude,
			IncidentCount: zone.IncidentCount,
		}
	}
	return responses
}
