package handlers

import (
	"net/http"

	"cinesocial/internal/logging"
	"cinesocial/internal/middleware"
	"cinesocial/internal/models"
	"cinesocial/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	accounts *services.AccountService
	tokens   *middleware.JWTManager
}

func NewAuthHandler(accounts *services.AccountService, tokens *middleware.JWTManager) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}
	user, err := h.accounts.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	logging.Info().Str("user_id", user.ID.String()).Msg("user registered")
	h.signIn(c, http.StatusCreated, "registered", user)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}
	user, err := h.accounts.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.signIn(c, http.StatusOK, "logged in", user)
}

// signIn 写入 session 并签发访问令牌
func (h *AuthHandler) signIn(c *gin.Context, status int, message string, user *models.User) {
	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID.String())
	if err := session.Save(); err != nil {
		logging.Warn().Err(err).Msg("failed to save session")
	}

	token, expires, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, status, message, gin.H{
		"user":       user,
		"token":      token,
		"expires_at": expires,
	})
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	respondOK(c, http.StatusOK, "logged out", nil)
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	respondOK(c, http.StatusOK, "current user", middleware.CurrentUser(c))
}
