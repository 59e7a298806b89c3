package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/lifeadmin/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database pings db and then looks for the tables backing models. A reachable database
// with missing tables is degraded: the API still answers while the sweeps would fail.
func Database(db *gorm.DB, timeout time.Duration, models ...any) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultDatabaseTimeout))
		defer cancel()

		if err := ping(probeCtx, db); err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		if missing := missingTables(db.WithContext(probeCtx), models); len(missing) > 0 {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "missing tables: " + strings.Join(missing, ", "),
				Duration: time.Since(start),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func missingTables(db *gorm.DB, models []any) []string {
	var missing []string
	migrator := db.Migrator()
	for _, model := range models {
		if migrator.HasTable(model) {
			continue
		}
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			missing = append(missing, fmt.Sprintf("%T", model))
			continue
		}
		missing = append(missing, stmt.Schema.Table)
	}
	return missing
}

func chooseTimeout(provided, fallback time.Duration) time.Duration {
	if provided > 0 {
		return provided
	}
	return fallback
}
