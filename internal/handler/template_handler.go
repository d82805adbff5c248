package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"collector/internal/model"
	"collector/internal/service"
)

type TemplateHandler struct {
	service service.TemplateService
}

type templateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

type previewRequest struct {
	Sample map[string]string `json:"sample"`
}

type templateResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Subject   string   `json:"subject"`
	Content   string   `json:"content"`
	Variables []string `json:"variables"`
	Builtin   bool     `json:"builtin"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

type renderedResponse struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

type templateValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func NewTemplateHandler(service service.TemplateService) *TemplateHandler {
	return &TemplateHandler{service: service}
}

func (h *TemplateHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/admin/templates", h.List)
	g.POST("/admin/templates", h.Create)
	g.POST("/admin/templates/validate", h.Validate)
	g.GET("/admin/templates/:id", h.Get)
	g.PUT("/admin/templates/:id", h.Update)
	g.DELETE("/admin/templates/:id", h.Delete)
	g.POST("/admin/templates/:id/preview", h.Preview)
}

func (h *TemplateHandler) List(c echo.Context) error {
	templates, err := h.service.List(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	response := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		response = append(response, toTemplateResponse(t))
	}
	return c.JSON(http.StatusOK, response)
}

func (h *TemplateHandler) Get(c echo.Context) error {
	t, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toTemplateResponse(*t))
}

func (h *TemplateHandler) Create(c echo.Context) error {
	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	t, err := h.service.Create(c.Request().Context(), req.input())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toTemplateResponse(*t))
}

func (h *TemplateHandler) Update(c echo.Context) error {
	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	t, err := h.service.Update(c.Request().Context(), c.Param("id"), req.input())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toTemplateResponse(*t))
}

func (h *TemplateHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TemplateHandler) Validate(c echo.Context) error {
	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	problems := h.service.Validate(req.input())
	if problems == nil {
		problems = []string{}
	}
	return c.JSON(http.StatusOK, templateValidationResponse{Valid: len(problems) == 0, Errors: problems})
}

func (h *TemplateHandler) Preview(c echo.Context) error {
	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}
	rendered, err := h.service.Preview(c.Request().Context(), c.Param("id"), req.Sample)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, renderedResponse{Subject: rendered.Subject, Content: rendered.Content})
}

func (r templateRequest) input() service.TemplateInput {
	return service.TemplateInput{Name: r.Name, Subject: r.Subject, Content: r.Content}
}

func toTemplateResponse(t model.Template) templateResponse {
	vars := t.Variables
	if vars == nil {
		vars = []string{}
	}
	return templateResponse{
		ID:        t.ID,
		Name:      t.Name,
		Subject:   t.Subject,
		Content:   t.Content,
		Variables: vars,
		Builtin:   t.Builtin,
		CreatedAt: formatTime(t.CreatedAt),
		UpdatedAt: formatTime(t.UpdatedAt),
	}
}
