package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoslavarun/QuoteBuilder/pkg/response"
)

// Context keys set by RequireRole.
const (
	CtxUserID      = "userID"
	CtxUserRole    = "userRole"
	CtxTokenID     = "tokenID"
	CtxTokenExpiry = "tokenExpiry"
)

const accessCookie = "access_token"

var ErrRevokedToken = errors.New("token has been revoked")

// RevocationChecker reports whether a token id was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Authenticator validates access tokens from the access_token cookie or an
// Authorization: Bearer header.
type Authenticator struct {
	secret       []byte
	revocations  RevocationChecker
	secureCookie bool
	log          *zap.Logger
}

func NewAuthenticator(secret []byte, revocations RevocationChecker, secureCookie bool, log *zap.Logger) *Authenticator {
	return &Authenticator{secret: secret, revocations: revocations, secureCookie: secureCookie, log: log}
}

// Verify parses tokenString and rejects revoked tokens.
func (a *Authenticator) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := ParseToken(tokenString, a.secret)
	if err != nil {
		return nil, err
	}
	if a.revocations != nil {
		revoked, err := a.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}
	return claims, nil
}

// RequestClaims verifies the token carried by the request without aborting it.
// A request without a token yields ErrInvalidToken.
func (a *Authenticator) RequestClaims(c *gin.Context) (*Claims, error) {
	tokenString, ok := bearerToken(c)
	if !ok {
		return nil, ErrInvalidToken
	}
	return a.Verify(c.Request.Context(), tokenString)
}

// RequireRole Middleware validates the JWT token and checks if the user's role exists in the allowedRoles list
func (a *Authenticator) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		claims, err := a.Verify(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrRevokedToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
				return
			}
			a.log.Error("token verification failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify token"))
			return
		}

		if !slices.Contains(allowedRoles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxUserRole, claims.Role)
		c.Set(CtxTokenID, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(CtxTokenExpiry, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

// SetTokenCookie stores the access token as an HttpOnly cookie that expires
// with the token.
func (a *Authenticator) SetTokenCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(a.sameSite())
	c.SetCookie(accessCookie, token, maxAge, "/", "", a.secureCookie, true)
}

// ClearTokenCookie removes the access token cookie.
func (a *Authenticator) ClearTokenCookie(c *gin.Context) {
	c.SetSameSite(a.sameSite())
	c.SetCookie(accessCookie, "", -1, "/", "", a.secureCookie, true)
}

// Production (cross-origin): SameSiteNoneMode + Secure
// Development (same-site):   SameSiteLaxMode
func (a *Authenticator) sameSite() http.SameSite {
	if a.secureCookie {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func bearerToken(c *gin.Context) (string, bool) {
	if token, err := c.Cookie(accessCookie); err == nil && token != "" {
		return token, true
	}
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
