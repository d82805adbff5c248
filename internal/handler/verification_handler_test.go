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

func TestVerificationHandler_Issue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock.NewMockVerificationService(ctrl)
	h := handler.NewVerificationHandler(mockService, testBundle(t))

	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodPost, "/api/verifications", map[string]string{"email": "alice@example.com"}))

	mockService.EXPECT().
		Issue(gomock.Any(), "alice@example.com").
		Return(&model.Verification{Email: "alice@example.com", ExpiresAt: time.Date(2026, 3, 19, 10, 0, 0, 0, time.UTC)}, nil)

	require.NoError(t, h.Issue(c))

	var resp handler.VerificationResponse
	assertJSONResponse(t, rec, http.StatusAccepted, &resp)
	require.Equal(t, "alice@example.com", resp.Email)
	require.False(t, resp.Verified)
	require.Equal(t, "2026-03-19T10:00:00Z", resp.ExpiresAt)
	require.Equal(t, "A verification link has been sent to alice@example.com", resp.Message)
}

func TestVerificationHandler_Issue_InvalidEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock.NewMockVerificationService(ctrl)
	h := handler.NewVerificationHandler(mockService, testBundle(t))

	e := newTestEcho()
	req := newJSONRequest(http.MethodPost, "/api/verifications", map[string]string{"email": "bad"})
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9")
	c, rec := newTestContext(e, req)

	mockService.EXPECT().Issue(gomock.Any(), "bad").Return(nil, service.ErrInvalid)

	require.NoError(t, h.Issue(c))

	var resp handler.ErrorResponse
	assertJSONResponse(t, rec, http.StatusBadRequest, &resp)
	require.Equal(t, "Por favor ingresa una dirección de email válida", resp.Error)
}

func TestVerificationHandler_Verify(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock.NewMockVerificationService(ctrl)
	h := handler.NewVerificationHandler(mockService, testBundle(t))

	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodGet, "/api/verifications/tok?lang=de", nil))
	setPathParams(c, map[string]string{"token": "tok"})

	verifiedAt := time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)
	mockService.EXPECT().
		Verify(gomock.Any(), "tok").
		Return(&model.Verification{Email: "alice@example.com", Verified: true, VerifiedAt: &verifiedAt}, nil)

	require.NoError(t, h.Verify(c))

	var resp handler.VerificationResponse
	assertJSONResponse(t, rec, http.StatusOK, &resp)
	require.True(t, resp.Verified)
	require.NotNil(t, resp.VerifiedAt)
	require.Equal(t, "2026-03-18T12:00:00Z", *resp.VerifiedAt)
	require.Equal(t, "E-Mail erfolgreich verifiziert", resp.Message)
}

func TestVerificationHandler_Verify_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "invalid", err: service.ErrInvalidToken, status: http.StatusBadRequest, message: "This verification link is invalid or has already been used"},
		{name: "expired", err: service.ErrTokenExpired, status: http.StatusBadRequest, message: "This verification link has expired"},
		{name: "not_found", err: service.ErrNotFound, status: http.StatusNotFound, message: "resource not found"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := mock.NewMockVerificationService(ctrl)
			h := handler.NewVerificationHandler(mockService, testBundle(t))

			e := newTestEcho()
			c, rec := newTestContext(e, newJSONRequest(http.MethodGet, "/api/verifications/tok", nil))
			setPathParams(c, map[string]string{"token": "tok"})

			mockService.EXPECT().Verify(gomock.Any(), "tok").Return(nil, tc.err)

			require.NoError(t, h.Verify(c))

			var resp handler.ErrorResponse
			assertJSONResponse(t, rec, tc.status, &resp)
			require.Equal(t, tc.message, resp.Error)
		})
	}
}
