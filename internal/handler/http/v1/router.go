package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.Use(IdentityMiddleware(h.logger))

	// Представления реконсилированного состояния (доступны без аутентификации)
	api.GET("/incidents/active", h.activeIncidents)
	api.GET("/alerts", h.recentAlerts)
	api.GET("/risk/zones", h.riskZones)
	api.GET("/notifications", h.listNotifications)

	// SOS
	api.POST("/sos", h.triggerSOS)
	api.GET("/sos/state", h.sosState)

	// Инциденты и контакты
	api.POST("/incidents", h.reportIncident)
	contacts := api.Group("/contacts")
	{
		contacts.GET("", h.listContacts)
		contacts.POST("", h.addContact)
		contacts.DELETE("/:id", h.deleteContact)
	}

	// Административные маршруты за API-ключом
	admin := api.Group("")
	admin.Use(APIKeyAuthMiddleware(h.cfg, h.logger))
	{
		admin.GET("/incidents", h.listIncidents)
		admin.PUT("/incidents/:id/resolve", h.resolveIncident)
	}

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
