package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"collector/internal/handler"
)

type stubPinger struct {
	err error
}

func (p stubPinger) PingContext(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		db       handler.Pinger
		status   int
		database string
	}{
		{name: "no_db", db: nil, status: http.StatusOK, database: "unknown"},
		{name: "healthy", db: stubPinger{}, status: http.StatusOK, database: "ok"},
		{name: "degraded", db: stubPinger{err: errors.New("closed")}, status: http.StatusServiceUnavailable, database: "unreachable"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := handler.NewHealthHandler(tc.db)
			e := newTestEcho()
			c, rec := newTestContext(e, newJSONRequest(http.MethodGet, "/healthz", nil))

			require.NoError(t, h.Health(c))

			var resp map[string]string
			assertJSONResponse(t, rec, tc.status, &resp)
			require.Equal(t, tc.database, resp["database"])
		})
	}
}
