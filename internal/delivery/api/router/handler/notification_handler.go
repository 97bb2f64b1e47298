package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"herald/internal/delivery/api/middleware"
	"herald/internal/delivery/api/response"
	domainerrors "herald/internal/domain/errors"
	"herald/internal/errors"
	"herald/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// NotificationHandlerParams holds dependencies for NotificationHandler, injected by Fx.
type NotificationHandlerParams struct {
	fx.In

	NotificationUC usecase.NotificationUsecase
	Logger         *slog.Logger
}

// NotificationHandler serves the authoritative pull path and the read-state writes.
type NotificationHandler struct {
	notificationUC usecase.NotificationUsecase
	logger         *slog.Logger
}

// NewNotificationHandler is the constructor for NotificationHandler.
func NewNotificationHandler(params NotificationHandlerParams) *NotificationHandler {
	return &NotificationHandler{
		notificationUC: params.NotificationUC,
		logger:         params.Logger,
	}
}

// UnreadCountResponse is the body of GET /notifications/unread-count.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// List returns one page of the caller's notifications.
func (h *NotificationHandler) List(c echo.Context) error {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrTokenMissing)
	}

	limit, err := queryInt(c, "limit", usecase.DefaultPageLimit)
	if err != nil {
		return response.BadRequest(c, "INVALID_LIMIT", "limit must be an integer")
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return response.BadRequest(c, "INVALID_OFFSET", "offset must be an integer")
	}

	page, err := h.notificationUC.List(c.Request().Context(), accountID, limit, offset)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, page)
}

// UnreadCount returns the caller's unread total.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrTokenMissing)
	}

	count, err := h.notificationUC.UnreadCount(c.Request().Context(), accountID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, UnreadCountResponse{Count: count})
}

// MarkRead marks one notification read. Repeating it is harmless.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrTokenMissing)
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid notification ID")
	}

	notification, err := h.notificationUC.MarkRead(c.Request().Context(), accountID, notificationID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, notification)
}

// MarkAllRead marks every unread notification of the caller read.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrTokenMissing)
	}

	out, err := h.notificationUC.MarkAllRead(c.Request().Context(), accountID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, out)
}

// Create stores a notification sent by the caller.
func (h *NotificationHandler) Create(c echo.Context) error {
	senderID, ok := middleware.GetAccountID(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrTokenMissing)
	}

	var input usecase.CreateNotificationInput
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid notification input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	notification, err := h.notificationUC.Create(c.Request().Context(), senderID, &input)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, notification)
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return v, nil
}
