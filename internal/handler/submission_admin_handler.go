package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"collector/internal/model"
	"collector/internal/service"
)

type SubmissionAdminHandler struct {
	service service.SubmissionAdminService
}

type submissionPageResponse struct {
	Items      []submissionDetailResponse `json:"items"`
	Total      int                        `json:"total"`
	Page       int                        `json:"page"`
	PageSize   int                        `json:"pageSize"`
	TotalPages int                        `json:"totalPages"`
}

type submissionDetailResponse struct {
	submissionResponse
	UserAgent string `json:"userAgent"`
	IPAddress string `json:"ipAddress"`
}

func NewSubmissionAdminHandler(service service.SubmissionAdminService) *SubmissionAdminHandler {
	return &SubmissionAdminHandler{service: service}
}

func (h *SubmissionAdminHandler) RegisterReadRoutes(g *echo.Group) {
	g.GET("/admin/submissions", h.List)
	g.GET("/admin/submissions/export", h.Export)
	g.GET("/admin/submissions/:id", h.Get)
}

func (h *SubmissionAdminHandler) RegisterDeleteRoutes(g *echo.Group) {
	g.DELETE("/admin/submissions/:id", h.Delete)
}

func (h *SubmissionAdminHandler) query(c echo.Context) (service.SubmissionQuery, error) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		return service.SubmissionQuery{}, err
	}
	pageSize, err := intQuery(c, "pageSize", service.DefaultPageSize)
	if err != nil {
		return service.SubmissionQuery{}, err
	}
	return service.SubmissionQuery{
		Range:    model.SubmissionRange(c.QueryParam("range")),
		Search:   c.QueryParam("search"),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (h *SubmissionAdminHandler) List(c echo.Context) error {
	query, err := h.query(c)
	if err != nil {
		return invalidRequest(c)
	}
	page, err := h.service.List(c.Request().Context(), query)
	if err != nil {
		return writeServiceError(c, err)
	}
	items := make([]submissionDetailResponse, 0, len(page.Items))
	for _, s := range page.Items {
		items = append(items, submissionDetailResponse{
			submissionResponse: toSubmissionResponse(s),
			UserAgent:          s.UserAgent,
			IPAddress:          s.IPAddress,
		})
	}
	return c.JSON(http.StatusOK, submissionPageResponse{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

func (h *SubmissionAdminHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return invalidRequest(c)
	}
	s, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, submissionDetailResponse{
		submissionResponse: toSubmissionResponse(*s),
		UserAgent:          s.UserAgent,
		IPAddress:          s.IPAddress,
	})
}

func (h *SubmissionAdminHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return invalidRequest(c)
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Export downloads the filtered submissions; format is csv (default) or json.
func (h *SubmissionAdminHandler) Export(c echo.Context) error {
	query, err := h.query(c)
	if err != nil {
		return invalidRequest(c)
	}
	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}
	file, err := h.service.Export(c.Request().Context(), query, format)
	if err != nil {
		return writeServiceError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+file.Filename+`"`)
	return c.Blob(http.StatusOK, file.ContentType, file.Data)
}
