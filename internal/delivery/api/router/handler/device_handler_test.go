package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"herald/internal/delivery/api/middleware"
	"herald/internal/delivery/api/validator"
	"herald/internal/domain/entity"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/errors"
	mockUsecase "herald/internal/mocks/usecase"
	"herald/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type deviceHandlerFixtures struct {
	echo      *echo.Echo
	handler   *DeviceHandler
	uc        *mockUsecase.MockDeviceUsecase
	accountID uuid.UUID
}

func createTestDeviceHandler(t *testing.T) deviceHandlerFixtures {
	uc := mockUsecase.NewMockDeviceUsecase(t)
	e := echo.New()
	e.Validator = validator.New()

	return deviceHandlerFixtures{
		echo: e,
		handler: NewDeviceHandler(DeviceHandlerParams{
			DeviceUC: uc,
			Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		}),
		uc:        uc,
		accountID: uuid.New(),
	}
}

func (fx deviceHandlerFixtures) context(req *http.Request, rec *httptest.ResponseRecorder) echo.Context {
	c := fx.echo.NewContext(req, rec)
	middleware.SetIdentity(c, &entity.Identity{ID: fx.accountID})

	return c
}

func TestDeviceHandler_RegisterDevice(t *testing.T) {
	fx := createTestDeviceHandler(t)
	fx.uc.EXPECT().
		RegisterDevice(mock.Anything, fx.accountID, &usecase.DeviceInfo{FCMToken: "fcm", DeviceID: "phone-1", Platform: "ios"}).
		Return(&entity.Device{ID: uuid.New(), AccountID: fx.accountID, DeviceID: "phone-1", IsActive: true}, nil)

	rec := httptest.NewRecorder()
	body := `{"fcm_token":"fcm","device_id":"phone-1","platform":"ios"}`
	c := fx.context(jsonRequest(http.MethodPost, "/api/v1/devices", body), rec)

	require.NoError(t, fx.handler.RegisterDevice(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"device_id":"phone-1"`)
}

func TestDeviceHandler_RegisterDevice_UnknownPlatform(t *testing.T) {
	fx := createTestDeviceHandler(t)

	rec := httptest.NewRecorder()
	body := `{"fcm_token":"fcm","device_id":"phone-1","platform":"symbian"}`
	c := fx.context(jsonRequest(http.MethodPost, "/api/v1/devices", body), rec)

	err := fx.handler.RegisterDevice(c)

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "platform", verrs[0].Field)
}

func TestDeviceHandler_RegisterDevice_Unauthenticated(t *testing.T) {
	fx := createTestDeviceHandler(t)

	rec := httptest.NewRecorder()
	c := fx.echo.NewContext(jsonRequest(http.MethodPost, "/api/v1/devices", `{}`), rec)

	require.NoError(t, fx.handler.RegisterDevice(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeviceHandler_GetAccountDevices(t *testing.T) {
	fx := createTestDeviceHandler(t)
	fx.uc.EXPECT().GetAccountDevices(mock.Anything, fx.accountID).
		Return([]*entity.Device{{ID: uuid.New()}, {ID: uuid.New()}}, nil)

	rec := httptest.NewRecorder()
	c := fx.context(httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil), rec)

	require.NoError(t, fx.handler.GetAccountDevices(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeviceHandler_DeactivateDevice(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "ok", wantCode: http.StatusOK},
		{name: "not found", err: errors.WithStack(domainerrors.ErrDeviceNotFound), wantCode: http.StatusNotFound},
		{name: "someone else's device", err: errors.WithStack(domainerrors.ErrDeviceOwnershipViolation), wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := createTestDeviceHandler(t)
			deviceID := uuid.New()
			fx.uc.EXPECT().DeactivateDevice(mock.Anything, fx.accountID, deviceID).Return(tt.err)

			rec := httptest.NewRecorder()
			c := fx.context(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
			c.SetParamNames("id")
			c.SetParamValues(deviceID.String())

			require.NoError(t, fx.handler.DeactivateDevice(c))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestDeviceHandler_UpdateFCMToken_BadID(t *testing.T) {
	fx := createTestDeviceHandler(t)

	rec := httptest.NewRecorder()
	c := fx.context(jsonRequest(http.MethodPut, "/", `{"fcm_token":"x"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	require.NoError(t, fx.handler.UpdateFCMToken(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
