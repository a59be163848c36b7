package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/frostdev-ops/kpi-backend-go/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, path string, handler gin.HandlerFunc) ErrorResponse {
	t.Helper()
	router := gin.New()
	router.GET("/api/v1/kpis/:id", handler)
	router.NoRoute(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, body.Code, rec.Code)
	return body
}

func TestSendAppError_UsesKind(t *testing.T) {
	body := serve(t, "/api/v1/kpis/k1?x=1", func(c *gin.Context) {
		SendAppError(c, fmt.Errorf("recompute: %w", apperrors.UpstreamData(nil, "analytics unavailable")))
	})

	assert.False(t, body.Success)
	assert.Equal(t, http.StatusBadGateway, body.Code)
	assert.Equal(t, "upstream_data", body.Kind)
	assert.Contains(t, body.Error, "analytics unavailable")
	assert.Equal(t, "/api/v1/kpis/k1", body.Request.Path)
	assert.Equal(t, "x=1", body.Request.Query)
}

func TestSendAppError_PlainErrorIsInternal(t *testing.T) {
	body := serve(t, "/api/v1/kpis/k1", func(c *gin.Context) {
		SendAppError(c, fmt.Errorf("boom"))
	})

	assert.Equal(t, http.StatusInternalServerError, body.Code)
	assert.Equal(t, "internal", body.Kind)
}

func TestSendError_NotFoundSuggestions(t *testing.T) {
	body := serve(t, "/api/v1/alert", func(c *gin.Context) {
		SendError(c, http.StatusNotFound, "Route not found")
	})

	details, ok := body.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"/api/v1/alerts"}, details["suggestions"])
}
