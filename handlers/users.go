package handlers

import (
	"errors"
	"net/http"

	"github.com/cineverse/cineverse/backend/go-services/internal/users"
	"github.com/cineverse/cineverse/backend/go-services/pkg/logger"
	"github.com/cineverse/cineverse/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// UsersHandler exposes the read side of the user store to the frontend. The
// webhook synchronizer owns all writes; this never mutates anything.
type UsersHandler struct {
	svc *users.Service
}

func NewUsersHandler(svc *users.Service) *UsersHandler {
	return &UsersHandler{svc: svc}
}

// Register routes under /api/v1, guarded by session-token verification
func (h *UsersHandler) Register(rg *gin.RouterGroup, ver middleware.Verifier) {
	api := rg.Group("/api/v1")
	api.GET("/me", middleware.AuthMiddleware(ver), h.Me)
}

// Me returns the local user record for the authenticated subject.
func (h *UsersHandler) Me(c *gin.Context) {
	claims, _ := c.Get("claims")
	cm, ok := claims.(map[string]interface{})
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}
	sub, _ := cm["sub"].(string)
	if sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
		return
	}

	u, err := h.svc.GetBySubject(c.Request.Context(), sub)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			// a valid session for a subject we never saw a created event for
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Errorf("users: lookup failed for subject %s: %v", sub, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
