package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/frostdev-ops/kpi-backend-go/pkg/errors"
	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
	Meta      interface{} `json:"meta,omitempty"`
}

// ErrorResponse represents an error response with request context
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Code      int         `json:"code"`
	Kind      string      `json:"kind,omitempty"`
	Timestamp string      `json:"timestamp"`
	Request   RequestInfo `json:"request"`
	Details   interface{} `json:"details,omitempty"`
}

// RequestInfo provides context about the failed request
type RequestInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query,omitempty"`
}

// SendSuccess sends a successful response
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendCreated sends a 201 response
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendSuccessWithMeta sends a successful response with metadata
func SendSuccessWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendError sends an error response with request context
func SendError(c *gin.Context, statusCode int, message string) {
	errorResponse := newErrorResponse(c, statusCode, message)

	if statusCode == http.StatusNotFound && c.FullPath() == "" {
		if suggestions := generateNotFoundSuggestions(c.Request.URL.Path); len(suggestions) > 0 {
			errorResponse.Details = map[string]interface{}{
				"suggestions": suggestions,
				"message":     "The requested endpoint does not exist. Check the suggestions below for similar endpoints.",
			}
		}
	}

	c.JSON(statusCode, errorResponse)
}

// SendAppError translates an error into a response using its AppError kind
func SendAppError(c *gin.Context, err error) {
	statusCode := apperrors.GetStatusCode(err)
	errorResponse := newErrorResponse(c, statusCode, err.Error())
	errorResponse.Kind = string(apperrors.KindOf(err))

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Details != "" {
		errorResponse.Details = appErr.Details
	}

	c.JSON(statusCode, errorResponse)
}

func newErrorResponse(c *gin.Context, statusCode int, message string) ErrorResponse {
	return ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      statusCode,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Request: RequestInfo{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Query:  c.Request.URL.RawQuery,
		},
	}
}

// generateNotFoundSuggestions provides helpful endpoint suggestions for 404 errors
func generateNotFoundSuggestions(path string) []string {
	commonEndpoints := []string{
		"/health",
		"/metrics",
		"/api/v1/kpis",
		"/api/v1/kpis/recompute",
		"/api/v1/alerts",
	}

	var suggestions []string
	pathLower := strings.ToLower(path)

	for _, endpoint := range commonEndpoints {
		endpointLower := strings.ToLower(endpoint)

		if strings.Contains(pathLower, "kpi") {
			if strings.Contains(endpointLower, "kpis") {
				suggestions = append(suggestions, endpoint)
			}
		} else if strings.Contains(pathLower, "alert") {
			if strings.Contains(endpointLower, "alerts") {
				suggestions = append(suggestions, endpoint)
			}
		} else if strings.Contains(pathLower, "health") || strings.Contains(pathLower, "status") {
			if strings.Contains(endpointLower, "health") {
				suggestions = append(suggestions, endpoint)
			}
		}
	}

	return suggestions
}
