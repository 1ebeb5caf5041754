package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created by the first step; its presence means the schema exists.
const sentinelTable = "public.students"

var steps = []migrationStep{
	{
		Name: "create_table_students",
		SQL: `CREATE TABLE IF NOT EXISTS students (
  id          BIGSERIAL   PRIMARY KEY,
  pid         UUID        NOT NULL UNIQUE,
  first_name  TEXT        NOT NULL,
  middle_name TEXT        NOT NULL DEFAULT '',
  last_name   TEXT        NOT NULL,
  email       TEXT        NOT NULL,
  is_active   BOOLEAN     NOT NULL DEFAULT TRUE,
  photo_path  TEXT        NOT NULL DEFAULT '',
  version     INTEGER     NOT NULL DEFAULT 1,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_students_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_students_created_at ON students (created_at DESC, id DESC);`,
	},
	{
		Name: "create_table_student_details",
		SQL: `CREATE TABLE IF NOT EXISTS student_details (
  id         BIGSERIAL   PRIMARY KEY,
  student_id BIGINT      NOT NULL REFERENCES students (id) ON DELETE CASCADE,
  kind       TEXT        NOT NULL,
  payload    JSONB       NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (student_id, kind)
);`,
	},
	{
		Name: "create_table_student_collection_items",
		SQL: `CREATE TABLE IF NOT EXISTS student_collection_items (
  id         BIGSERIAL   PRIMARY KEY,
  student_id BIGINT      NOT NULL REFERENCES students (id) ON DELETE CASCADE,
  collection TEXT        NOT NULL,
  position   INTEGER     NOT NULL DEFAULT 0,
  payload    JSONB       NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_student_collection_items_owner",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_student_collection_items_owner ON student_collection_items (student_id, collection, position);`,
	},
	{
		Name: "create_table_academic_histories",
		SQL: `CREATE TABLE IF NOT EXISTS academic_histories (
  id             BIGSERIAL        PRIMARY KEY,
  student_id     BIGINT           NOT NULL REFERENCES students (id) ON DELETE CASCADE,
  qualification  TEXT             NOT NULL,
  institution    TEXT             NOT NULL,
  board          TEXT             NOT NULL DEFAULT '',
  passed_year    INTEGER          NOT NULL DEFAULT 0,
  gpa            DOUBLE PRECISION NOT NULL DEFAULT 0,
  marksheet_path TEXT             NOT NULL DEFAULT '',
  created_at     TIMESTAMPTZ      NOT NULL DEFAULT now(),
  updated_at     TIMESTAMPTZ      NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_academic_histories_student",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_academic_histories_student ON academic_histories (student_id, id);`,
	},
	{
		Name: "create_table_student_documents",
		SQL: `CREATE TABLE IF NOT EXISTS student_documents (
  id            BIGSERIAL   PRIMARY KEY,
  student_id    BIGINT      NOT NULL REFERENCES students (id) ON DELETE CASCADE,
  document_type TEXT        NOT NULL CHECK (document_type IN ('Signature', 'Citizenship', 'CharacterCertificate', 'Other')),
  file_path     TEXT        NOT NULL DEFAULT '',
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_student_documents_fixed_type",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_student_documents_fixed_type
  ON student_documents (student_id, document_type)
  WHERE document_type <> 'Other';`,
	},
}

// EnsureMigrated checks if the students table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	query := "SELECT to_regclass('" + sentinelTable + "') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("reason", "schema already exists"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"), zap.Int("steps", len(steps)))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Debug("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
