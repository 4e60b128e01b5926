package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
)

type stubVerifier map[string]uint64

func (s stubVerifier) Verify(token string) (uint64, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return 0, errors.New("bad token")
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireHospital(stubVerifier{"good": 7}), func(c *gin.Context) {
		c.String(http.StatusOK, strconv.FormatUint(HospitalID(c), 10))
	})
	return r
}

func TestRequireHospital(t *testing.T) {
	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, `{"detail":"Not authenticated"}`},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, `{"detail":"Invalid authorization format"}`},
		{"bad token", "Bearer nope", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`},
		{"ok", "Bearer good", http.StatusOK, "7"},
	}
	r := newRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.code || w.Body.String() != tt.body {
				t.Errorf("expected %d %s, got %d %s", tt.code, tt.body, w.Code, w.Body.String())
			}
		})
	}
}
