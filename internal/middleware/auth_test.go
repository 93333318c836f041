package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoslavarun/QuoteBuilder/pkg/response"
)

type fakeRevocations map[string]bool

func (f fakeRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	return f[jti], nil
}

var testSecret = []byte("test-secret")

func newTestRouter(auth *Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", auth.RequireRole("admin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(CtxUserID), "role": c.GetString(CtxUserRole)})
	})
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireRole(t *testing.T) {
	revoked := fakeRevocations{}
	auth := NewAuthenticator(testSecret, revoked, false, zap.NewNop())
	r := newTestRouter(auth)
	issuer := NewTokenIssuer(testSecret, time.Hour)

	admin, err := issuer.Issue("user-1", "admin", 0)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	analyst, _ := issuer.Issue("user-2", "analyst", 0)
	foreign, _ := NewTokenIssuer([]byte("other"), time.Hour).Issue("user-1", "admin", 0)

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", foreign.Value, http.StatusUnauthorized},
		{"wrong role", analyst.Value, http.StatusForbidden},
		{"admin", admin.Value, http.StatusOK},
	}
	for _, tc := range cases {
		if w := do(r, tc.token); w.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d (%s)", tc.name, w.Code, tc.want, w.Body.String())
		}
	}

	revoked[admin.ID] = true
	w := do(r, admin.Value)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: status = %d", w.Code)
	}
	var body response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "error" || body.Error != ErrRevokedToken.Error() {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestRequireRole_ReadsCookie(t *testing.T) {
	auth := NewAuthenticator(testSecret, nil, false, zap.NewNop())
	r := newTestRouter(auth)
	token, _ := NewTokenIssuer(testSecret, time.Hour).Issue("user-1", "admin", 0)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: accessCookie, Value: token.Value})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestParseToken_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := issuer.Issue("user-1", "admin", 0)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := ParseToken(token.Value, testSecret); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestTokenIssuer_CustomTTL(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	token, err := issuer.Issue("ops", "admin", 10*time.Minute)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	claims, err := ParseToken(token.Value, testSecret)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if claims.Subject != "ops" || claims.Role != "admin" || claims.ID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if remaining := time.Until(claims.ExpiresAt.Time); remaining > 11*time.Minute || remaining < 9*time.Minute {
		t.Fatalf("unexpected expiry in %s", remaining)
	}
}
