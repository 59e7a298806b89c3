package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/charlesng35/lifeadmin/internal/auth"
	"github.com/charlesng35/lifeadmin/internal/monitoring"
	"github.com/charlesng35/lifeadmin/pkg/errors"
	"github.com/charlesng35/lifeadmin/pkg/logger"
	"github.com/charlesng35/lifeadmin/pkg/response"
)

// Context keys set by Auth for downstream handlers.
const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
	CtxAdminKey  = "isAdmin"
)

const bearerScheme = "Bearer"

// Auth requires a valid access token in the Authorization header. Every rejection is a
// 401 with a WWW-Authenticate challenge; the reason only reaches the debug log.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	log := logger.WithModule("auth")

	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			rejectUnauthenticated(c, log, "missing bearer token")
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			rejectUnauthenticated(c, log, err.Error())
			return
		}

		monitoring.RecordAuthAttempt("success")
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxAdminKey, claims.Admin)
		c.Next()
	}
}

// bearerToken extracts the credentials of a "Bearer <token>" header. The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func rejectUnauthenticated(c *gin.Context, log *zap.Logger, reason string) {
	monitoring.RecordAuthAttempt("failure")
	log.Debug("request rejected",
		zap.String("path", c.Request.URL.Path),
		zap.String("reason", reason),
	)
	c.Header("WWW-Authenticate", bearerScheme)
	response.Error(c, errors.ErrUnauthorized)
	c.Abort()
}

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(CtxAdminKey) {
			c.Next()
			return
		}
		response.Error(c, errors.ErrForbidden)
		c.Abort()
	}
}
