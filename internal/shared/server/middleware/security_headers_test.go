package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSecurityHeadersOnEveryResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityHeaders())
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "okay"})
	})

	for _, path := range []string{"/api/health", "/missing"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))

		h := resp.Header()
		if got := h.Get("X-Content-Type-Options"); got != "nosniff" {
			t.Fatalf("%s: expected nosniff, got %q", path, got)
		}
		if got := h.Get("X-Frame-Options"); got != "SAMEORIGIN" {
			t.Fatalf("%s: expected SAMEORIGIN, got %q", path, got)
		}
		if got := h.Get("Referrer-Policy"); got != "no-referrer" {
			t.Fatalf("%s: expected no-referrer, got %q", path, got)
		}
		if got := h.Get("Cross-Origin-Resource-Policy"); got != "cross-origin" {
			t.Fatalf("%s: expected cross-origin resources, got %q", path, got)
		}
		if h.Get("Content-Security-Policy") != "" || h.Get("Cross-Origin-Embedder-Policy") != "" {
			t.Fatalf("%s: CSP and COEP must stay unset", path)
		}
	}
}
