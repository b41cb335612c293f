package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phicli/internal/operations"
	"phicli/internal/shared/testutil"
)

type fixedProgress struct {
	snap operations.Snapshot
}

func (f fixedProgress) Progress() operations.Snapshot { return f.snap }

func TestStatusRoutes(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	source := fixedProgress{snap: operations.Snapshot{Total: 10, Done: 4, Percentage: 40, CurrentSet: 17}}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "phi_channel_sets_processed_total 4\n")
	})

	tests := []struct {
		name       string
		handler    *StatusHandler
		path       string
		wantStatus int
		check      func(t *testing.T, body []byte)
	}{
		{
			name:       "health",
			handler:    NewStatusHandler(source, RunInfo{}, nil, logger),
			path:       "/healthz",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp map[string]interface{}
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "ok", resp["status"])
			},
		},
		{
			name:       "status",
			handler:    NewStatusHandler(source, RunInfo{Method: "direct", DataFile: "rec.npz"}, nil, logger),
			path:       "/status",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp StatusResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "direct", resp.Method)
				assert.Equal(t, "rec.npz", resp.DataFile)
				assert.Equal(t, 4, resp.Progress.Done)
				assert.Equal(t, 17, resp.Progress.CurrentSet)
			},
		},
		{
			name:       "status without a run",
			handler:    NewStatusHandler(nil, RunInfo{}, nil, logger),
			path:       "/status",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "metrics",
			handler:    NewStatusHandler(source, RunInfo{}, metrics, logger),
			path:       "/metrics",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "phi_channel_sets_processed_total")
			},
		},
		{
			name:       "metrics disabled",
			handler:    NewStatusHandler(source, RunInfo{}, nil, logger),
			path:       "/metrics",
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "METRICS_DISABLED")
			},
		},
		{
			name:       "unknown route",
			handler:    NewStatusHandler(source, RunInfo{}, nil, logger),
			path:       "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.check != nil {
				tt.check(t, rec.Body.Bytes())
			}
		})
	}
}

func TestServer(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewStatusHandler(fixedProgress{}, RunInfo{}, nil, logger)

	srv, err := Start("127.0.0.1:0", h.Routes(), logger)
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Shutdown(context.Background()))
}
