package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"collector/internal/handler"
	"collector/internal/model"
	"collector/internal/service"
	"collector/internal/service/mock"
)

func TestSubmissionAdminHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock.NewMockSubmissionAdminService(ctrl)
	h := handler.NewSubmissionAdminHandler(mockService)

	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodGet, "/api/admin/submissions?range=week&search=example&page=2&pageSize=5", nil))

	mockService.EXPECT().
		List(gomock.Any(), service.SubmissionQuery{Range: model.RangeWeek, Search: "example", Page: 2, PageSize: 5}).
		Return(&service.SubmissionPage{
			Items: []model.Submission{{
				ID:        11,
				Email:     "bob@example.com",
				Message:   "Interested in the beta",
				UserAgent: "curl/8",
				IPAddress: "198.51.100.4",
				CreatedAt: time.Date(2026, 3, 16, 8, 30, 0, 0, time.UTC),
			}},
			Total:      6,
			Page:       2,
			PageSize:   5,
			TotalPages: 2,
		}, nil)

	require.NoError(t, h.List(c))

	var resp handler.SubmissionPageResponse
	assertJSONResponse(t, rec, http.StatusOK, &resp)
	require.Equal(t, 6, resp.Total)
	require.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "11", resp.Items[0].ID)
	require.Equal(t, "bob@example.com", resp.Items[0].Email)
	require.Equal(t, "198.51.100.4", resp.Items[0].IPAddress)
}

func TestSubmissionAdminHandler_List_Defaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock.NewMockSubmissionAdminService(ctrl)
	h := handler.NewSubmissionAdminHandler(mockService)

	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodGet, "/api/admin/submissions", nil))

	mockService.EXPECT().
		List(gomock.Any(), service.SubmissionQuery{Page: 1, PageSize: service.DefaultPageSize}).
		Return(&service.SubmissionPage{Page: 1, PageSize: service.DefaultPageSize}, nil)

	require.NoError(t, h.List(c))

	var resp handler.SubmissionPageResponse
	assertJSONResponse(t, rec, http.StatusOK, &resp)
	require.NotNil(t, resp.Items)
	require.Empty(t, resp.Items)
}

func TestSubmissionAdminHandler_List_BadPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := handler.NewSubmissionAdminHandler(mock.NewMockSubmissionAdminService(ctrl))

	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodGet, "/api/admin/submissions?page=two", nil))

	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmissionAdminHandler_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock.NewMockSubmissionAdminService(ctrl)
	h := handler.NewSubmissionAdminHandler(mockService)
	e := newTestEcho()

	c, rec := newTestContext(e, newJSONRequest(http.MethodGet, "/api/admin/submissions/11", nil))
	setPathParams(c, map[string]string{"id": "11"})
	mockService.EXPECT().Get(gomock.Any(), int64(11)).Return(&model.Submission{ID: 11, Email: "bob@example.com"}, nil)
	require.NoError(t, h.Get(c))
	var resp handler.SubmissionDetailResponse
	assertJSONResponse(t, rec, http.StatusOK, &resp)
	require.Equal(t, "11", resp.ID)

	c, rec = newTestContext(e, newJSONRequest(http.MethodGet, "/api/admin/submissions/12", nil))
	setPathParams(c, map[string]string{"id": "12"})
	mockService.EXPECT().Get(gomock.Any(), int64(12)).Return(nil, service.ErrNotFound)
	require.NoError(t, h.Get(c))
	require.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newTestContext(e, newJSONRequest(http.MethodGet, "/api/admin/submissions/abc", nil))
	setPathParams(c, map[string]string{"id": "abc"})
	require.NoError(t, h.Get(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmissionAdminHandler_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock.NewMockSubmissionAdminService(ctrl)
	h := handler.NewSubmissionAdminHandler(mockService)

	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodDelete, "/api/admin/submissions/11", nil))
	setPathParams(c, map[string]string{"id": "11"})

	mockService.EXPECT().Delete(gomock.Any(), int64(11)).Return(nil)

	require.NoError(t, h.Delete(c))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSubmissionAdminHandler_Export(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock.NewMockSubmissionAdminService(ctrl)
	h := handler.NewSubmissionAdminHandler(mockService)

	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodGet, "/api/admin/submissions/export?range=today", nil))

	mockService.EXPECT().
		Export(gomock.Any(), service.SubmissionQuery{Range: model.RangeToday, Page: 1, PageSize: service.DefaultPageSize}, "csv").
		Return(&service.ExportFile{
			Filename:    "submissions-2026-03-18.csv",
			ContentType: "text/csv; charset=utf-8",
			Data:        []byte("\"Email\",\"Message\"\n"),
		}, nil)

	require.NoError(t, h.Export(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `attachment; filename="submissions-2026-03-18.csv"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "\"Email\",\"Message\"\n", rec.Body.String())
}

func TestSubmissionAdminHandler_Export_UnknownFormat(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock.NewMockSubmissionAdminService(ctrl)
	h := handler.NewSubmissionAdminHandler(mockService)

	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodGet, "/api/admin/submissions/export?format=xml", nil))

	mockService.EXPECT().Export(gomock.Any(), gomock.Any(), "xml").Return(nil, service.ErrInvalid)

	require.NoError(t, h.Export(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
