package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(apiKey string) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/secure", APIKeyAuth(apiKey), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		header     string
		wantCode   int
	}{
		{name: "valid key", configured: "k3y", header: "k3y", wantCode: http.StatusOK},
		{name: "missing key", configured: "k3y", header: "", wantCode: http.StatusUnauthorized},
		{name: "wrong key", configured: "k3y", header: "nope", wantCode: http.StatusUnauthorized},
		{name: "not configured", configured: "", header: "anything", wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/secure", nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()

			setupRouter(tt.configured).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := setupRouter("k3y")

	req, _ := http.NewRequest("GET", "/secure", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req, _ = http.NewRequest("GET", "/secure", nil)
	req.Header.Set("X-Request-ID", "trace-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "trace-1", w.Header().Get("X-Request-ID"))
}
