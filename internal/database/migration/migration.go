package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// Amounts are double precision so a NaN coming from an empty form field can be stored.
// The date stays text: it is displayed raw when it cannot be formatted.
var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_bills",
		SQL: `CREATE TABLE IF NOT EXISTS bills (
  id          UUID             PRIMARY KEY DEFAULT uuid_generate_v4(),
  email       TEXT             NOT NULL,
  type        TEXT             NOT NULL DEFAULT '',
  name        TEXT             NOT NULL DEFAULT '',
  date        TEXT             NOT NULL DEFAULT '',
  amount      DOUBLE PRECISION NOT NULL DEFAULT 'NaN',
  vat         DOUBLE PRECISION NOT NULL DEFAULT 'NaN',
  pct         DOUBLE PRECISION NOT NULL DEFAULT 'NaN',
  commentary  TEXT             NOT NULL DEFAULT '',
  file_url    TEXT             NOT NULL DEFAULT '',
  file_name   TEXT             NOT NULL DEFAULT '',
  status      TEXT             NOT NULL DEFAULT 'pending'
              CHECK (status IN ('pending', 'accepted', 'refused')),
  created_at  TIMESTAMPTZ      NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ      NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_bills_email",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_bills_email ON bills (email);`,
	},
	{
		Name: "create_index_bills_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_bills_date ON bills (date DESC);`,
	},
	{
		Name: "create_index_bills_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_bills_status ON bills (status);`,
	},
}

// EnsureMigrated checks if the 'bills' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With("component", "database", "db_host", dbHost)

	log.Info("db_migration_check", "status", "starting")

	var exists bool
	query := "SELECT to_regclass('public.bills') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			"status", "success",
			"detail", "schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info("db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
