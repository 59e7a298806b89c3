package app

import (
	"strings"

	"github.com/charlesng35/lifeadmin/pkg/logger"
)

// ConfigureLogging installs the global logger from server.log_level and server.log_format.
// Empty values mean info and json.
func ConfigureLogging(level, format string) error {
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	return logger.Init(level, format)
}
