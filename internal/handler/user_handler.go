package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"collector/internal/model"
	"collector/internal/service"
)

type UserHandler struct {
	service service.UserService
}

type roleRequest struct {
	Role string `json:"role"`
}

type statusRequest struct {
	Active bool `json:"active"`
}

type securityEventResponse struct {
	ID        string  `json:"id"`
	UserID    *string `json:"userId"`
	Event     string  `json:"event"`
	Details   string  `json:"details,omitempty"`
	IPAddress string  `json:"ipAddress,omitempty"`
	UserAgent string  `json:"userAgent,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/admin/users", h.List)
	g.GET("/admin/users/active", h.ListActive)
	g.PUT("/admin/users/:id/role", h.SetRole)
	g.PUT("/admin/users/:id/status", h.SetActive)
	g.DELETE("/admin/users/:id", h.Delete)
	g.GET("/admin/security-log", h.SecurityLog)
}

func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.List(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponses(users))
}

func (h *UserHandler) ListActive(c echo.Context) error {
	users, err := h.service.ListActive(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponses(users))
}

func (h *UserHandler) SetRole(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return invalidRequest(c)
	}
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	user, err := h.service.SetRole(c.Request().Context(), CurrentSession(c), id, req.Role)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(*user))
}

func (h *UserHandler) SetActive(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return invalidRequest(c)
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	user, err := h.service.SetActive(c.Request().Context(), CurrentSession(c), id, req.Active)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(*user))
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return invalidRequest(c)
	}
	if err := h.service.Delete(c.Request().Context(), CurrentSession(c), id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) SecurityLog(c echo.Context) error {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		return invalidRequest(c)
	}
	events, err := h.service.SecurityLog(c.Request().Context(), limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	response := make([]securityEventResponse, 0, len(events))
	for _, e := range events {
		response = append(response, securityEventResponse{
			ID:        itoa(e.ID),
			UserID:    idPtrToString(e.UserID),
			Event:     e.Event,
			Details:   e.Details,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			CreatedAt: formatTime(e.CreatedAt),
		})
	}
	return c.JSON(http.StatusOK, response)
}

func toUserResponses(users []model.User) []userResponse {
	response := make([]userResponse, 0, len(users))
	for _, u := range users {
		response = append(response, toUserResponse(u))
	}
	return response
}
