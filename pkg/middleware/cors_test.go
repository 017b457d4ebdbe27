package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRecorder(cfg CORSConfig, method, origin string, preflight bool) (*httptest.ResponseRecorder, bool) {
	reached := false
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/api/reviews/product/p-1", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, reached
}

func TestCORS_Wildcard(t *testing.T) {
	rec, reached := corsRecorder(DefaultCORSConfig(), http.MethodGet, "https://shop.example.vn", false)

	assert.True(t, reached)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Correlation-ID, Retry-After", rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Empty(t, rec.Header().Get("Vary"))
}

func TestCORS_Origins(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://myshop.vn/", "https://*.myshop.vn"}}

	tests := []struct {
		origin string
		want   string
	}{
		{"https://myshop.vn", "https://myshop.vn"},
		{"https://m.myshop.vn", "https://m.myshop.vn"},
		{"https://.myshop.vn", ""},
		{"http://m.myshop.vn", ""},
		{"https://evil.vn", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			rec, reached := corsRecorder(cfg, http.MethodGet, tt.origin, false)
			assert.True(t, reached)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "Origin", rec.Header().Get("Vary"))
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://myshop.vn"}, AllowCredentials: true}

	rec, reached := corsRecorder(cfg, http.MethodOptions, "https://myshop.vn", true)
	assert.False(t, reached)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Correlation-ID")
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec, _ = corsRecorder(cfg, http.MethodOptions, "https://evil.vn", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_PlainOptionsReachesHandler(t *testing.T) {
	_, reached := corsRecorder(DefaultCORSConfig(), http.MethodOptions, "https://myshop.vn", false)
	assert.True(t, reached)
}

func TestCORS_CredentialsEchoOriginUnderWildcard(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowCredentials = true

	rec, _ := corsRecorder(cfg, http.MethodGet, "https://myshop.vn", false)
	assert.Equal(t, "https://myshop.vn", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}
