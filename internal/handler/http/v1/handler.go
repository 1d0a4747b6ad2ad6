package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/safety_alert_system/internal/config"
	"github.com/shenikar/safety_alert_system/internal/notifications"
	"github.com/shenikar/safety_alert_system/internal/risk"
	"github.com/shenikar/safety_alert_system/internal/service"
	"github.com/shenikar/safety_alert_system/internal/sos"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService service.IncidentService
	contactService  service.ContactService
	sosMachine      *sos.Machine
	queue           *notifications.Queue
	riskRunner      *risk.Runner
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(
	incidentService service.IncidentService,
	contactService service.ContactService,
	sosMachine *sos.Machine,
	queue *notifications.Queue,
	riskRunner *risk.Runner,
	logger *logrus.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		incidentService: incidentService,
		contactService:  contactService,
		sosMachine:      sosMachine,
		queue:           queue,
		riskRunner:      riskRunner,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// @Summary Report a new incident
// @Description Report a new incident at the given coordinates. Requires user identity.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param X-User-ID header string true "User ID"
// @Param incident body ReportIncidentRequest true "Incident report request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) reportIncident(c *gin.Context) {
	log := h.logger.WithField("method", "reportIncident")

	userID := currentUser(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}

	var input ReportIncidentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := ReportToIncidentModel(input)
	model.UserID = userID
	if err := h.incidentService.CreateIncident(c.Request.Context(), model); err != nil {
		log.WithError(err).Error("Failed to create incident in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(model))
}

// @Summary Get active incidents
// @Description Get the reconciled set of currently active incidents for the map view.
// @Tags Incidents
// @Produce json
// @Success 200 {array} IncidentResponse
// @Router /incidents/active [get]
func (h *Handler) activeIncidents(c *gin.Context) {
	c.JSON(http.StatusOK, ModelsToIncidentResponses(h.incidentService.ActiveIncidents()))
}

// @Summary Get recent alerts
// @Description Get the most recent active incidents ordered by creation time descending.
// @Tags Incidents
// @Produce json
// @Success 200 {array} IncidentResponse
// @Router /alerts [get]
func (h *Handler) recentAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, ModelsToIncidentResponses(h.incidentService.RecentAlerts()))
}

// @Summary Get a list of incidents
// @Description Get a paginated list of all incidents, including resolved ones. Requires API key.
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} IncidentResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Resolve an incident
// @Description Mark an incident as resolved. It disappears from the active view. Requires API key.
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/resolve [put]
func (h *Handler) resolveIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "resolveIncident").WithField("id", id)

	if err := h.incidentService.ResolveIncident(c.Request.Context(), id); err != nil {
		log.WithError(err).Error("Failed to resolve incident in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve incident"})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Trigger an SOS signal
// @Description Create exactly one SOS incident at the caller's location. Repeated triggers during the cooldown window are suppressed.
// @Tags SOS
// @Accept json
// @Produce json
// @Param X-User-ID header string true "User ID"
// @Param sos body SOSRequest true "SOS request with current coordinates"
// @Success 202 {object} SOSStateResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 412 {object} map[string]string "Missing identity or location"
// @Failure 429 {object} map[string]string "Submission already in progress"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /sos [post]
func (h *Handler) triggerSOS(c *gin.Context) {
	log := h.logger.WithField("method", "triggerSOS")

	var input SOSRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var loc *sos.Location
	if input.Latitude != nil && input.Longitude != nil {
		loc = &sos.Location{
			Latitude:  *input.Latitude,
			Longitude: *input.Longitude,
		}
	}

	err := h.sosMachine.Trigger(c.Request.Context(), currentUser(c), loc)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, SOSStateResponse{State: string(h.sosMachine.State())})
	case errors.Is(err, sos.ErrPreconditions):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": "login and location required"})
	case errors.Is(err, sos.ErrSubmissionActive):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "SOS already sent, please wait"})
	case errors.Is(err, sos.ErrBadCoordinates):
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
	default:
		log.WithError(err).Error("Failed to trigger SOS")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Get SOS state
// @Description Get the current state of the SOS submission state machine.
// @Tags SOS
// @Produce json
// @Success 200 {object} SOSStateResponse
// @Router /sos/state [get]
func (h *Handler) sosState(c *gin.Context) {
	c.JSON(http.StatusOK, SOSStateResponse{State: string(h.sosMachine.State())})
}

// @Summary Get visible emergency contacts
// @Description Get public contacts plus the private contacts of the current user.
// @Tags Contacts
// @Produce json
// @Param X-User-ID header string false "User ID"
// @Success 200 {array} ContactResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /contacts [get]
func (h *Handler) listContacts(c *gin.Context) {
	log := h.logger.WithField("method", "listContacts")

	contacts, err := h.contactService.VisibleContacts(c.Request.Context(), currentUser(c))
	if err != nil {
		log.WithError(err).Error("Failed to list contacts from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToContactResponses(contacts))
}

// @Summary Add an emergency contact
// @Description Add a private emergency contact for the current user. Requires user identity.
// @Tags Contacts
// @Accept json
// @Produce json
// @Param X-User-ID header string true "User ID"
// @Param contact body AddContactRequest true "Contact creation request"
// @Success 201 {object} ContactResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /contacts [post]
func (h *Handler) addContact(c *gin.Context) {
	log := h.logger.WithField("method", "addContact")

	userID := currentUser(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}

	var input AddContactRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.contactService.AddContact(c.Request.Context(), *userID, input.Name, input.Phone)
	if err != nil {
		log.WithError(err).Error("Failed to add contact in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, ModelToContactResponse(contact))
}

// @Summary Delete an emergency contact
// @Description Delete a private contact of the current user. Public contacts cannot be deleted.
// @Tags Contacts
// @Produce json
// @Param X-User-ID header string true "User ID"
// @Param id path string true "Contact ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid contact ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Not the contact owner"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /contacts/{id} [delete]
func (h *Handler) deleteContact(c *gin.Context) {
	userID := currentUser(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact ID"})
		return
	}
	log := h.logger.WithField("method", "deleteContact").WithField("id", id)

	if err := h.contactService.DeleteContact(c.Request.Context(), *userID, id); err != nil {
		if errors.Is(err, service.ErrNotOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner may delete a contact"})
			return
		}
		log.WithError(err).Error("Failed to delete contact in service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete contact"})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Get current notifications
// @Description Get unexpired notifications in arrival order.
// @Tags Notifications
// @Produce json
// @Success 200 {array} NotificationResponse
// @Router /notifications [get]
func (h *Handler) listNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, NotificationsToResponses(h.queue.Entries()))
}

// @Summary Get risk zones
// @Description Get risk annotations derived from the latest incident snapshot.
// @Tags Risk
// @Produce json
// @Success 200 {array} RiskZoneResponse
// @Router /risk/zones [get]
func (h *Handler) riskZones(c *gin.Context) {
	c.JSON(http.StatusOK, ZonesToResponses(h.riskRunner.Zones()))
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
