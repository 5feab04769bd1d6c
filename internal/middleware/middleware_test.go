package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "middleware-test-secret"

func signed(t *testing.T, method jwt.SigningMethod, claims JWTClaims) string {
	t.Helper()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{JWTAuth(testSecret)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		c.String(http.StatusOK, Actor(c))
	})
	r.GET("/x", chain...)
	return r
}

func get(r *gin.Engine, url, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newRouter()
	good := signed(t, jwt.SigningMethodHS256, JWTClaims{UserID: "u1", Name: "Alice"})

	tests := []struct {
		name   string
		url    string
		token  string
		status int
		body   string
	}{
		{"header", "/x", good, http.StatusOK, "Alice"},
		{"query token", "/x?token=" + good, "", http.StatusOK, "Alice"},
		{"missing", "/x", "", http.StatusUnauthorized, ""},
		{"wrong alg", "/x", signed(t, jwt.SigningMethodHS512, JWTClaims{UserID: "u1"}), http.StatusUnauthorized, ""},
		{"no uid", "/x", signed(t, jwt.SigningMethodHS256, JWTClaims{Name: "Alice"}), http.StatusUnauthorized, ""},
		{"actor falls back to uid", "/x", signed(t, jwt.SigningMethodHS256, JWTClaims{UserID: "u2"}), http.StatusOK, "u2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.url, tt.token)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Fatalf("expected actor %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := newRouter(RequireRole("manager", "qc"))

	tests := []struct {
		name   string
		roles  []string
		status int
	}{
		{"listed role", []string{"qc"}, http.StatusOK},
		{"admin bypass", []string{AdminRole}, http.StatusOK},
		{"other role", []string{"operator"}, http.StatusForbidden},
		{"no roles", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signed(t, jwt.SigningMethodHS256, JWTClaims{UserID: "u1", Roles: tt.roles})
			if w := get(r, "/x", token); w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
		})
	}
}
