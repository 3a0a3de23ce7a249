package elevation

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiowatch/coverage-map/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Lookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/lookup", r.URL.Path)
		assert.Equal(t, "47.620500,-122.349300", r.URL.Query().Get("locations"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"latitude":47.6205,"longitude":-122.3493,"elevation":120.4}]}`)) //nolint:errcheck
	}))
	defer server.Close()

	c := NewClient(server.URL, 5*time.Second, observability.NewMetricsForTesting(), discardLogger())

	elev, err := c.Lookup(context.Background(), 47.6205, -122.3493)
	require.NoError(t, err)
	assert.Equal(t, 120.4, elev)
}

func TestClient_Lookup_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"results":`)) //nolint:errcheck
			},
		},
		{
			name: "empty results",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"results":[]}`)) //nolint:errcheck
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			c := NewClient(server.URL, 5*time.Second, observability.NewMetricsForTesting(), discardLogger())

			_, err := c.Lookup(context.Background(), 47.6205, -122.3493)
			require.Error(t, err)
		})
	}
}

func TestClient_Lookup_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewClient(server.URL, 20*time.Millisecond, observability.NewMetricsForTesting(), discardLogger())

	_, err := c.Lookup(context.Background(), 47.6205, -122.3493)
	require.Error(t, err)
}
