package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoslavarun/QuoteBuilder/internal/middleware"
	"github.com/khoslavarun/QuoteBuilder/internal/model"
	"github.com/khoslavarun/QuoteBuilder/internal/service"
	"github.com/khoslavarun/QuoteBuilder/pkg/response"
)

type AuthHandler struct {
	authService service.AuthService
	auth        *middleware.Authenticator
	log         *zap.Logger
}

func NewAuthHandler(authService service.AuthService, auth *middleware.Authenticator, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, auth: auth, log: log}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)
	router.GET("/api/me", h.auth.RequireRole(model.RoleAdmin, model.RoleAnalyst), h.GetMe)
}

// Login handles POST /login to authenticate and return a JWT token
// @Summary      Login user
// @Description  Authenticates a user by email and password, returning a JWT token and setting it as an HttpOnly cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest   true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.auth.SetTokenCookie(c, res.Token, res.ExpiresAt)

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Logout revokes the caller's token and clears the cookie
// @Summary      Logout
// @Description  Revokes the presented token until it expires. Always clears the cookie.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims, err := h.auth.RequestClaims(c); err == nil && claims.ExpiresAt != nil {
		if err := h.authService.Logout(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			writeError(c, h.log, err)
			return
		}
	}

	h.auth.ClearTokenCookie(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out successfully"))
}

// GetMe handles GET /api/me to return current authenticated user based on JWT
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      401      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context(), c.GetString(middleware.CtxUserID))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
