package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"collector/internal/autoresponder"
	"collector/internal/service"
)

const defaultResponseLimit = 50

type RuleHandler struct {
	service service.AutoResponderService
}

type conditionPayload struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

type ruleRequest struct {
	Name       string           `json:"name"`
	TemplateID string           `json:"templateId"`
	Condition  conditionPayload `json:"condition"`
	Priority   int              `json:"priority"`
	Enabled    *bool            `json:"enabled"`
}

type ruleResponse struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	TemplateID string           `json:"templateId"`
	Condition  conditionPayload `json:"condition"`
	Priority   int              `json:"priority"`
	Enabled    bool             `json:"enabled"`
	CreatedAt  string           `json:"createdAt"`
	UpdatedAt  string           `json:"updatedAt"`
}

type autoResponseLogResponse struct {
	ID     string `json:"id"`
	RuleID string `json:"ruleId"`
	Email  string `json:"email"`
	SentAt string `json:"sentAt"`
}

func NewRuleHandler(service service.AutoResponderService) *RuleHandler {
	return &RuleHandler{service: service}
}

func (h *RuleHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/admin/rules", h.List)
	g.POST("/admin/rules", h.Create)
	g.GET("/admin/rules/responses", h.Responses)
	g.PUT("/admin/rules/:id", h.Update)
	g.DELETE("/admin/rules/:id", h.Delete)
}

func (h *RuleHandler) List(c echo.Context) error {
	rules, err := h.service.ListRules(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	response := make([]ruleResponse, 0, len(rules))
	for _, r := range rules {
		response = append(response, toRuleResponse(r))
	}
	return c.JSON(http.StatusOK, response)
}

func (h *RuleHandler) Create(c echo.Context) error {
	input, err := bindRule(c)
	if err != nil {
		return invalidRequest(c)
	}
	rule, err := h.service.CreateRule(c.Request().Context(), input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toRuleResponse(*rule))
}

func (h *RuleHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return invalidRequest(c)
	}
	input, err := bindRule(c)
	if err != nil {
		return invalidRequest(c)
	}
	rule, err := h.service.UpdateRule(c.Request().Context(), id, input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toRuleResponse(*rule))
}

func (h *RuleHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return invalidRequest(c)
	}
	if err := h.service.DeleteRule(c.Request().Context(), id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RuleHandler) Responses(c echo.Context) error {
	limit, err := intQuery(c, "limit", defaultResponseLimit)
	if err != nil {
		return invalidRequest(c)
	}
	logs, err := h.service.Responses(c.Request().Context(), limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	response := make([]autoResponseLogResponse, 0, len(logs))
	for _, l := range logs {
		response = append(response, autoResponseLogResponse{
			ID:     itoa(l.ID),
			RuleID: itoa(l.RuleID),
			Email:  l.Email,
			SentAt: formatTime(l.SentAt),
		})
	}
	return c.JSON(http.StatusOK, response)
}

// bindRule decodes the request and its tagged condition. Rules are enabled
// unless the request says otherwise.
func bindRule(c echo.Context) (service.RuleInput, error) {
	var req ruleRequest
	if err := c.Bind(&req); err != nil {
		return service.RuleInput{}, err
	}
	condition, err := autoresponder.Decode(req.Condition.Kind, string(req.Condition.Params))
	if err != nil {
		return service.RuleInput{}, err
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return service.RuleInput{
		Name:       req.Name,
		TemplateID: req.TemplateID,
		Condition:  condition,
		Priority:   req.Priority,
		Enabled:    enabled,
	}, nil
}

func toRuleResponse(r autoresponder.Rule) ruleResponse {
	condition := conditionPayload{}
	if kind, params, err := autoresponder.Encode(r.Condition); err == nil {
		condition = conditionPayload{Kind: kind, Params: json.RawMessage(params)}
	}
	return ruleResponse{
		ID:         itoa(r.ID),
		Name:       r.Name,
		TemplateID: r.TemplateID,
		Condition:  condition,
		Priority:   r.Priority,
		Enabled:    r.Enabled,
		CreatedAt:  formatTime(r.CreatedAt),
		UpdatedAt:  formatTime(r.UpdatedAt),
	}
}
