package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"collector/internal/model"
	"collector/internal/service"
)

const defaultHistoryLimit = 50

type NotificationHandler struct {
	service service.NotificationService
	stream  http.Handler
}

type testNotificationRequest struct {
	Channel string `json:"channel"`
}

type notificationResponse struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt string            `json:"createdAt"`
}

// NewNotificationHandler serves preferences and history. stream upgrades
// dashboard websocket connections and may be nil.
func NewNotificationHandler(service service.NotificationService, stream http.Handler) *NotificationHandler {
	return &NotificationHandler{service: service, stream: stream}
}

func (h *NotificationHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/admin/notifications/preferences", h.GetPreferences)
	g.PUT("/admin/notifications/preferences", h.UpdatePreferences)
	g.GET("/admin/notifications/history", h.History)
	g.POST("/admin/notifications/test", h.Test)
	if h.stream != nil {
		g.GET("/admin/notifications/ws", echo.WrapHandler(h.stream))
	}
}

func (h *NotificationHandler) GetPreferences(c echo.Context) error {
	prefs, err := h.service.Preferences(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, prefs)
}

func (h *NotificationHandler) UpdatePreferences(c echo.Context) error {
	var req model.NotificationPreferences
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	prefs, err := h.service.UpdatePreferences(c.Request().Context(), req)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, prefs)
}

func (h *NotificationHandler) History(c echo.Context) error {
	limit, err := intQuery(c, "limit", defaultHistoryLimit)
	if err != nil {
		return invalidRequest(c)
	}
	history, err := h.service.History(c.Request().Context(), limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	response := make([]notificationResponse, 0, len(history))
	for _, n := range history {
		response = append(response, notificationResponse{
			ID:        itoa(n.ID),
			Kind:      string(n.Kind),
			Title:     n.Title,
			Body:      n.Body,
			Payload:   n.Payload,
			CreatedAt: formatTime(n.CreatedAt),
		})
	}
	return c.JSON(http.StatusOK, response)
}

func (h *NotificationHandler) Test(c echo.Context) error {
	var req testNotificationRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	if err := h.service.Test(c.Request().Context(), req.Channel); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
