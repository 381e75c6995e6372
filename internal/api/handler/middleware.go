package handler

import (
	"net/http"
	"strings"

	"drainwatch/backend/internal/apperror"
	"drainwatch/backend/internal/config"
	"drainwatch/backend/internal/models"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// tokenFrom reads the session token from the cookie, falling back to an
// Authorization: Bearer header.
func tokenFrom(c *gin.Context) string {
	if v, err := c.Cookie(config.SessionCookieName); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

// RequireActor authenticates the request and stores the actor in the context.
func (h *Handler) RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := h.Identity.Authenticate(c.Request.Context(), tokenFrom(c))
		if err != nil {
			if apperror.KindOf(err) == apperror.KindUnauthenticated {
				h.clearSessionCookie(c)
			}
			h.respondError(c, err)
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// actorFrom returns the actor set by RequireActor.
func actorFrom(c *gin.Context) *models.User {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*models.User)
	return actor
}

func (h *Handler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(config.SessionCookieName, value, maxAge, "/", "", h.SecureCookies, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
}
