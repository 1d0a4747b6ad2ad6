package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/safety_alert_system/internal/config"
	"github.com/shenikar/safety_alert_system/internal/models"
	"github.com/shenikar/safety_alert_system/internal/notifications"
	"github.com/shenikar/safety_alert_system/internal/risk"
	risk_mocks "github.com/shenikar/safety_alert_system/internal/risk/mocks"
	"github.com/shenikar/safety_alert_system/internal/service"
	"github.com/shenikar/safety_alert_system/internal/service/mocks"
	"github.com/shenikar/safety_alert_system/internal/sos"
	sos_mocks "github.com/shenikar/safety_alert_system/internal/sos/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestHandler создает новый экземпляр Handler с мокированными сервисами
func newTestHandler(t *testing.T) (*mocks.MockIncidentService, *mocks.MockContactService, *sos_mocks.MockIncidentCreator, *gin.Engine) {
	ctrl := gomock.NewController(t)
	incidentMock := mocks.NewMockIncidentService(ctrl)
	contactMock := mocks.NewMockContactService(ctrl)
	creatorMock := sos_mocks.NewMockIncidentCreator(ctrl)
	analyzerMock := risk_mocks.NewMockAnalyzer(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		APIKeys: []string{"test-api-key"},
	}

	queue := notifications.NewQueue(time.Minute)
	machine := sos.NewMachine(creatorMock, queue, logger, time.Minute)
	runner := risk.NewRunner(analyzerMock, logger)

	handler := NewHandler(incidentMock, contactMock, machine, queue, runner, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return incidentMock, contactMock, creatorMock, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func identityHeader(userID uuid.UUID) map[string]string {
	return map[string]string{"X-User-ID": userID.String()}
}

func f64(v float64) *float64 {
	return &v
}

func TestReportIncident_Success(t *testing.T) {
	// Подготовка
	incidentMock, _, _, router := newTestHandler(t)
	userID := uuid.New()
	reqBody := ReportIncidentRequest{
		Type:      "theft",
		Latitude:  f64(42.44),
		Longitude: f64(19.26),
	}

	// Ожидания
	incidentMock.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, incident *models.Incident) error {
			assert.Equal(t, "theft", incident.Type)
			require.NotNil(t, incident.UserID)
			assert.Equal(t, userID, *incident.UserID)
			incident.ID = uuid.New()
			incident.Status = models.IncidentActive
			return nil
		}).
		Times(1)

	// Действие
	body, _ := json.Marshal(reqBody)
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents", bytes.NewBuffer(body), identityHeader(userID))

	// Проверки
	require.Equal(t, http.StatusCreated, w.Code)
	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "theft", resp.Type)
	assert.Equal(t, string(models.IncidentActive), resp.Status)
}

func TestReportIncident_NoIdentity(t *testing.T) {
	// Подготовка
	_, _, _, router := newTestHandler(t)
	body, _ := json.Marshal(ReportIncidentRequest{Type: "theft", Latitude: f64(42.44), Longitude: f64(19.26)})

	// Действие: без заголовка X-User-ID
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents", bytes.NewBuffer(body))

	// Проверки
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportIncident_InvalidIdentity(t *testing.T) {
	// Подготовка
	_, _, _, router := newTestHandler(t)
	body, _ := json.Marshal(ReportIncidentRequest{Type: "theft", Latitude: f64(42.44), Longitude: f64(19.26)})

	// Действие: заголовок не является UUID
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents", bytes.NewBuffer(body),
		map[string]string{"X-User-ID": "not-a-uuid"})

	// Проверки
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportIncident_ZeroCoordinateAccepted(t *testing.T) {
	// Подготовка: долгота 0 (нулевой меридиан) - валидная координата
	incidentMock, _, _, router := newTestHandler(t)
	reqBody := ReportIncidentRequest{
		Type:      "theft",
		Latitude:  f64(51.48),
		Longitude: f64(0),
	}

	// Ожидания
	incidentMock.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, incident *models.Incident) error {
			assert.Equal(t, 51.48, incident.Latitude)
			assert.Equal(t, 0.0, incident.Longitude)
			incident.ID = uuid.New()
			incident.Status = models.IncidentActive
			return nil
		}).
		Times(1)

	// Действие
	body, _ := json.Marshal(reqBody)
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents", bytes.NewBuffer(body), identityHeader(uuid.New()))

	// Проверки
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestReportIncident_MissingCoordinatesRejected(t *testing.T) {
	// Подготовка: координаты не переданы вовсе
	_, _, _, router := newTestHandler(t)
	body, _ := json.Marshal(map[string]string{"type": "theft"})

	// Действие
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents", bytes.NewBuffer(body), identityHeader(uuid.New()))

	// Проверки
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportIncident_ValidationError(t *testing.T) {
	// Подготовка
	_, _, _, router := newTestHandler(t)
	body, _ := json.Marshal(ReportIncidentRequest{Type: "x", Latitude: f64(200), Longitude: f64(19.26)})

	// Действие
	w := makeRequest(router, http.MethodPost, "/api/v1/incidents", bytes.NewBuffer(body), identityHeader(uuid.New()))

	// Проверки
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActiveIncidents_PublicRead(t *testing.T) {
	// Подготовка
	incidentMock, _, _, router := newTestHandler(t)
	incidentMock.EXPECT().
		ActiveIncidents().
		Return([]*models.Incident{
			{ID: uuid.New(), Type: "theft", Status: models.IncidentActive},
		}).
		Times(1)

	// Действие: без аутентификации
	w := makeRequest(router, http.MethodGet, "/api/v1/incidents/active", nil)

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}

func TestRecentAlerts_PublicRead(t *testing.T) {
	// Подготовка
	incidentMock, _, _, router := newTestHandler(t)
	incidentMock.EXPECT().
		RecentAlerts().
		Return([]*models.Incident{}).
		Times(1)

	// Действие
	w := makeRequest(router, http.MethodGet, "/api/v1/alerts", nil)

	// Проверки
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTriggerSOS_Accepted(t *testing.T) {
	// Подготовка
	_, _, creatorMock, router := newTestHandler(t)
	creatorMock.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any()).
		Return(nil).
		Times(1)

	lat, lng := 42.44, 19.26
	body, _ := json.Marshal(SOSRequest{Latitude: &lat, Longitude: &lng})

	// Действие
	w := makeRequest(router, http.MethodPost, "/api/v1/sos", bytes.NewBuffer(body), identityHeader(uuid.New()))

	// Проверки: возвращается состояние cooldown
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp SOSStateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(sos.StateCooldown), resp.State)
}

func TestTriggerSOS_MissingPreconditions(t *testing.T) {
	// Подготовка
	_, _, _, router := newTestHandler(t)
	body, _ := json.Marshal(SOSRequest{}) // без координат

	// Действие: есть личность, нет геопозиции
	w := makeRequest(router, http.MethodPost, "/api/v1/sos", bytes.NewBuffer(body), identityHeader(uuid.New()))

	// Проверки
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestTriggerSOS_SuppressedDuringCooldown(t *testing.T) {
	// Подготовка
	_, _, creatorMock, router := newTestHandler(t)
	creatorMock.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any()).
		Return(nil).
		Times(1) // ровно один инцидент

	lat, lng := 42.44, 19.26
	body, _ := json.Marshal(SOSRequest{Latitude: &lat, Longitude: &lng})
	userID := uuid.New()

	// Действие
	first := makeRequest(router, http.MethodPost, "/api/v1/sos", bytes.NewBuffer(body), identityHeader(userID))
	body, _ = json.Marshal(SOSRequest{Latitude: &lat, Longitude: &lng})
	second := makeRequest(router, http.MethodPost, "/api/v1/sos", bytes.NewBuffer(body), identityHeader(userID))

	// Проверки
	assert.Equal(t, http.StatusAccepted, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestSOSState_PublicRead(t *testing.T) {
	// Подготовка
	_, _, _, router := newTestHandler(t)

	// Действие
	w := makeRequest(router, http.MethodGet, "/api/v1/sos/state", nil)

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp SOSStateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(sos.StateIdle), resp.State)
}

func TestListContacts_MarksPublicContacts(t *testing.T) {
	// Подготовка
	_, contactMock, _, router := newTestHandler(t)
	userID := uuid.New()
	contactMock.EXPECT().
		VisibleContacts(gomock.Any(), gomock.Any()).
		Return([]*models.EmergencyContact{
			{ID: uuid.New(), Name: "Police", Phone: "122"},
			{ID: uuid.New(), Name: "Mom", Phone: "+38269111222", UserID: &userID},
		}, nil).
		Times(1)

	// Действие
	w := makeRequest(router, http.MethodGet, "/api/v1/contacts", nil, identityHeader(userID))

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp []ContactResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.True(t, resp[0].Public)
	assert.False(t, resp[1].Public)
}

func TestAddContact_NoIdentity(t *testing.T) {
	// Подготовка
	_, _, _, router := newTestHandler(t)
	body, _ := json.Marshal(AddContactRequest{Name: "Mom", Phone: "+38269111222"})

	// Действие
	w := makeRequest(router, http.MethodPost, "/api/v1/contacts", bytes.NewBuffer(body))

	// Проверки
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteContact_NotOwner(t *testing.T) {
	// Подготовка
	_, contactMock, _, router := newTestHandler(t)
	contactID := uuid.New()
	contactMock.EXPECT().
		DeleteContact(gomock.Any(), gomock.Any(), contactID).
		Return(service.ErrNotOwner).
		Times(1)

	// Действие
	w := makeRequest(router, http.MethodDelete, fmt.Sprintf("/api/v1/contacts/%s", contactID), nil, identityHeader(uuid.New()))

	// Проверки
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteContact_Success(t *testing.T) {
	// Подготовка
	_, contactMock, _, router := newTestHandler(t)
	userID := uuid.New()
	contactID := uuid.New()
	contactMock.EXPECT().
		DeleteContact(gomock.Any(), userID, contactID).
		Return(nil).
		Times(1)

	// Действие
	w := makeRequest(router, http.MethodDelete, fmt.Sprintf("/api/v1/contacts/%s", contactID), nil, identityHeader(userID))

	// Проверки
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestListIncidents_Unauthorized(t *testing.T) {
	// Подготовка
	_, _, _, router := newTestHandler(t)

	// Действие: административный маршрут без API-ключа
	w := makeRequest(router, http.MethodGet, "/api/v1/incidents", nil)

	// Проверки
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListIncidents_Success(t *testing.T) {
	// Подготовка
	incidentMock, _, _, router := newTestHandler(t)
	incidentMock.EXPECT().
		ListIncidents(gomock.Any(), 1, 20).
		Return([]*models.Incident{
			{ID: uuid.New(), Type: "theft", Status: models.IncidentResolved},
		}, nil).
		Times(1)

	// Действие
	w := makeRequest(router, http.MethodGet, "/api/v1/incidents", nil,
		map[string]string{"X-API-Key": "test-api-key"})

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}

func TestResolveIncident_Success(t *testing.T) {
	// Подготовка
	incidentMock, _, _, router := newTestHandler(t)
	incidentID := uuid.New()
	incidentMock.EXPECT().
		ResolveIncident(gomock.Any(), incidentID).
		Return(nil).
		Times(1)

	// Действие
	w := makeRequest(router, http.MethodPut, fmt.Sprintf("/api/v1/incidents/%s/resolve", incidentID), nil,
		map[string]string{"Authorization": "Bearer test-api-key"})

	// Проверки
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestResolveIncident_InvalidID(t *testing.T) {
	// Подготовка
	_, _, _, router := newTestHandler(t)

	// Действие
	w := makeRequest(router, http.MethodPut, "/api/v1/incidents/not-a-uuid/resolve", nil,
		map[string]string{"X-API-Key": "test-api-key"})

	// Проверки
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListNotifications_ReturnsQueuedEntries(t *testing.T) {
	// Подготовка: SOS без геопозиции оставляет уведомление в очереди
	_, _, _, router := newTestHandler(t)
	body, _ := json.Marshal(SOSRequest{})
	makeRequest(router, http.MethodPost, "/api/v1/sos", bytes.NewBuffer(body), identityHeader(uuid.New()))

	// Действие
	w := makeRequest(router, http.MethodGet, "/api/v1/notifications", nil)

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp []NotificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Login and location required", resp[0].Message)
}

func TestRiskZones_EmptyWithoutAnalysis(t *testing.T) {
	// Подготовка
	_, _, _, router := newTestHandler(t)

	// Действие
	w := makeRequest(router, http.MethodGet, "/api/v1/risk/zones", nil)

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp []RiskZoneResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp)
}

func TestHealthCheck(t *testing.T) {
	_, _, _, router := newTestHandler(t)

	w := makeRequest(router, http.MethodGet, "/api/v1/system/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
