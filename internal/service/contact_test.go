package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shenikar/safety_alert_system/internal/models"
	"github.com/shenikar/safety_alert_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestContactService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestContactService(t *testing.T) (*contactService, *mocks.MockContactRepository) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockContactRepository(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	service := NewContactService(repoMock, logger)
	return service.(*contactService), repoMock
}

func TestVisibleContacts_Success(t *testing.T) {
	// Подготовка
	service, repoMock := newTestContactService(t)
	ctx := context.Background()
	userID := uuid.New()
	want := []*models.EmergencyContact{
		{ID: uuid.New(), Name: "Police", Phone: "122"},
		{ID: uuid.New(), Name: "Mom", Phone: "+38269111222", UserID: &userID},
	}

	// Ожидания
	repoMock.EXPECT().ListVisible(ctx, &userID).Return(want, nil).Times(1)

	// Действие
	contacts, err := service.VisibleContacts(ctx, &userID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, want, contacts)
}

func TestVisibleContacts_AnonymousSession(t *testing.T) {
	// Подготовка
	service, repoMock := newTestContactService(t)
	ctx := context.Background()
	want := []*models.EmergencyContact{
		{ID: uuid.New(), Name: "Police", Phone: "122"},
	}

	// Ожидания: для анонима userID == nil, репозиторий вернет только публичные
	repoMock.EXPECT().ListVisible(ctx, gomock.Nil()).Return(want, nil).Times(1)

	// Действие
	contacts, err := service.VisibleContacts(ctx, nil)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, want, contacts)
}

func TestAddContact_Success(t *testing.T) {
	// Подготовка
	service, repoMock := newTestContactService(t)
	ctx := context.Background()
	userID := uuid.New()

	// Ожидания
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, contact *models.EmergencyContact) error {
			assert.Equal(t, "Mom", contact.Name)
			assert.Equal(t, "+38269111222", contact.Phone)
			require.NotNil(t, contact.UserID)
			assert.Equal(t, userID, *contact.UserID)
			contact.ID = uuid.New()
			return nil
		}).
		Times(1)

	// Действие
	contact, err := service.AddContact(ctx, userID, "Mom", "+38269111222")

	// Проверки
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.NotEqual(t, uuid.Nil, contact.ID)
}

func TestAddContact_RepoError(t *testing.T) {
	// Подготовка
	service, repoMock := newTestContactService(t)
	ctx := context.Background()
	expectedErr := fmt.Errorf("db is down")

	// Ожидания
	repoMock.EXPECT().Create(ctx, gomock.Any()).Return(expectedErr).Times(1)

	// Действие
	contact, err := service.AddContact(ctx, uuid.New(), "Mom", "+38269111222")

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Nil(t, contact)
}

func TestDeleteContact_Success(t *testing.T) {
	// Подготовка
	service, repoMock := newTestContactService(t)
	ctx := context.Background()
	userID := uuid.New()
	contactID := uuid.New()

	// Ожидания
	repoMock.EXPECT().
		GetByID(ctx, contactID).
		Return(&models.EmergencyContact{ID: contactID, UserID: &userID}, nil).
		Times(1)
	repoMock.EXPECT().Delete(ctx, contactID).Return(nil).Times(1)

	// Действие
	err := service.DeleteContact(ctx, userID, contactID)

	// Проверки
	require.NoError(t, err)
}

func TestDeleteContact_OtherUsersContact(t *testing.T) {
	// Подготовка
	service, repoMock := newTestContactService(t)
	ctx := context.Background()
	owner := uuid.New()
	contactID := uuid.New()

	// Ожидания: Delete не вызывается
	repoMock.EXPECT().
		GetByID(ctx, contactID).
		Return(&models.EmergencyContact{ID: contactID, UserID: &owner}, nil).
		Times(1)

	// Действие: удаляет не владелец
	err := service.DeleteContact(ctx, uuid.New(), contactID)

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestDeleteContact_PublicContact(t *testing.T) {
	// Подготовка
	service, repoMock := newTestContactService(t)
	ctx := context.Background()
	contactID := uuid.New()

	// Ожидания: публичный контакт (user_id == null), Delete не вызывается
	repoMock.EXPECT().
		GetByID(ctx, contactID).
		Return(&models.EmergencyContact{ID: contactID}, nil).
		Times(1)

	// Действие
	err := service.DeleteContact(ctx, uuid.New(), contactID)

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestDeleteContact_NotFound(t *testing.T) {
	// Подготовка
	service, repoMock := newTestContactService(t)
	ctx := context.Background()
	contactID := uuid.New()
	expectedErr := fmt.Errorf("contact not found")

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, contactID).Return(nil, expectedErr).Times(1)

	// Действие
	err := service.DeleteContact(ctx, uuid.New(), contactID)

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
}
