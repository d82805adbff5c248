package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"collector/internal/model"
	"collector/internal/service"
)

type OutboxHandler struct {
	service service.MailService
}

type outboxEmailResponse struct {
	ID        string  `json:"id"`
	MessageID string  `json:"messageId"`
	To        string  `json:"to"`
	Subject   string  `json:"subject"`
	Kind      string  `json:"kind"`
	RuleID    *string `json:"ruleId,omitempty"`
	Status    string  `json:"status"`
	Attempts  int     `json:"attempts"`
	LastError string  `json:"lastError,omitempty"`
	CreatedAt string  `json:"createdAt"`
	SentAt    *string `json:"sentAt,omitempty"`
}

func NewOutboxHandler(service service.MailService) *OutboxHandler {
	return &OutboxHandler{service: service}
}

func (h *OutboxHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/admin/outbox", h.List)
	g.GET("/admin/outbox/counts", h.Counts)
}

// List shows queued mail, optionally narrowed by status.
func (h *OutboxHandler) List(c echo.Context) error {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		return invalidRequest(c)
	}
	emails, err := h.service.Outbox(c.Request().Context(), model.EmailStatus(c.QueryParam("status")), limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	response := make([]outboxEmailResponse, 0, len(emails))
	for _, e := range emails {
		response = append(response, outboxEmailResponse{
			ID:        itoa(e.ID),
			MessageID: e.MessageID,
			To:        e.To,
			Subject:   e.Subject,
			Kind:      string(e.Kind),
			RuleID:    idPtrToString(e.RuleID),
			Status:    string(e.Status),
			Attempts:  e.Attempts,
			LastError: e.LastError,
			CreatedAt: formatTime(e.CreatedAt),
			SentAt:    formatTimePtr(e.SentAt),
		})
	}
	return c.JSON(http.StatusOK, response)
}

func (h *OutboxHandler) Counts(c echo.Context) error {
	counts, err := h.service.Counts(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	response := map[string]int{
		string(model.EmailPending): 0,
		string(model.EmailSent):    0,
		string(model.EmailFailed):  0,
	}
	for status, n := range counts {
		response[string(status)] = n
	}
	return c.JSON(http.StatusOK, response)
}
