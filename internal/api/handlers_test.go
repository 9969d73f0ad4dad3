package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tigerzhang/clean-dns/internal/stats"
)

func setupTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerRoutes(r, h)
	return r
}

func TestHealthz(t *testing.T) {
	h := NewHandler(stats.New())
	r := setupTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
}

func TestStatsEndpointReflectsAggregator(t *testing.T) {
	agg := stats.New()
	agg.RecordRequest("example.com.")
	agg.RecordResolution("example.com.", []string{"203.0.113.1"})

	h := NewHandler(agg)
	r := setupTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Domains, "example.com.")
	require.Equal(t, uint64(1), resp.Domains["example.com."].Count)
	require.Contains(t, resp.Domains["example.com."].IPs, "203.0.113.1")
}
