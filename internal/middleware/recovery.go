package middleware

import (
	"errors"
	"net"
	"os"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/charlesng35/lifeadmin/pkg/errors"
	"github.com/charlesng35/lifeadmin/pkg/logger"
	"github.com/charlesng35/lifeadmin/pkg/response"
)

// Recovery turns a handler panic into a 500 envelope. A panic caused by the client hanging up
// is logged at warn and answered with nothing, since the connection is already gone.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			log := logger.WithModule("http").With(
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
			)
			if userID := c.GetString(CtxUserIDKey); userID != "" {
				log = log.With(zap.String("user_id", userID))
			}

			if err, ok := recovered.(error); ok && isBrokenPipe(err) {
				log.Warn("client connection closed", zap.Error(err))
				c.Abort()
				return
			}

			log.Error("panic recovered", zap.Any("panic", recovered), zap.Stack("stack"))
			response.Error(c, apperrors.ErrInternalServer)
			c.Abort()
		}()
		c.Next()
	}
}

func isBrokenPipe(err error) bool {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if errors.As(opErr, &sysErr) {
		return errors.Is(sysErr.Err, syscall.EPIPE) || errors.Is(sysErr.Err, syscall.ECONNRESET)
	}
	return false
}

// NotFoundHandler answers unknown routes with the JSON error envelope.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, apperrors.NewNotFound("route"))
}
