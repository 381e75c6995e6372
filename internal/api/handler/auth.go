package handler

import (
	"net/http"
	"time"

	"drainwatch/backend/internal/models"
	"drainwatch/backend/internal/session"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type actorResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func newActorResponse(u *models.User) actorResponse {
	return actorResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func (h *Handler) startSession(c *gin.Context, tok session.Token) {
	maxAge := int(time.Until(tok.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	h.setSessionCookie(c, tok.Value, maxAge)
}

// Register creates a citizen account and logs it in.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badBody())
		return
	}

	user, tok, err := h.Identity.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.startSession(c, tok)
	c.JSON(http.StatusCreated, newActorResponse(user))
}

// Login exchanges credentials for a session cookie.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badBody())
		return
	}

	user, tok, err := h.Identity.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.startSession(c, tok)
	c.JSON(http.StatusOK, newActorResponse(user))
}

// Logout always succeeds and clears the cookie.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.Identity.Logout(c.Request.Context(), tokenFrom(c)); err != nil {
		h.Log.Error().Err(err).Msg("failed to revoke session")
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// Me returns the authenticated actor.
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, newActorResponse(actorFrom(c)))
}
