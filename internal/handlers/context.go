package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/lifeadmin/internal/middleware"
	apperrors "github.com/charlesng35/lifeadmin/pkg/errors"
	"github.com/charlesng35/lifeadmin/pkg/response"
)

// requestContext returns the request context, or Background when the handler runs without one.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// currentUser returns the authenticated user id set by the auth middleware. When it is
// missing a 401 has already been written and ok is false.
func currentUser(c *gin.Context) (userID string, ok bool) {
	userID = c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}
