package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaDDL bootstraps the two tables on first boot. CREATE TABLE IF NOT
// EXISTS keeps restarts idempotent; altering existing columns is out of
// scope here.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS jobs (
	id               uuid PRIMARY KEY,
	name             varchar(500) NOT NULL,
	payload          jsonb,
	schedule_type    text NOT NULL CHECK (schedule_type IN ('one_time', 'interval')),
	run_at           timestamptz,
	interval_seconds integer,
	max_retries      integer NOT NULL DEFAULT 3 CHECK (max_retries >= 0),
	status           text NOT NULL DEFAULT 'SCHEDULED'
	                 CHECK (status IN ('SCHEDULED', 'RUNNING', 'PAUSED', 'COMPLETED', 'FAILED', 'CANCELLED')),
	retry_count      integer NOT NULL DEFAULT 0 CHECK (retry_count >= 0),
	created_at       timestamptz NOT NULL DEFAULT NOW(),
	updated_at       timestamptz NOT NULL DEFAULT NOW(),
	version          integer NOT NULL DEFAULT 1,
	CONSTRAINT ck_jobs_one_time_shape CHECK (
		schedule_type <> 'one_time' OR (run_at IS NOT NULL AND interval_seconds IS NULL)),
	CONSTRAINT ck_jobs_interval_shape CHECK (
		schedule_type <> 'interval' OR (interval_seconds IS NOT NULL AND interval_seconds > 0))
);

CREATE INDEX IF NOT EXISTS ix_jobs_name   ON jobs (name);
CREATE INDEX IF NOT EXISTS ix_jobs_status ON jobs (status);

CREATE TABLE IF NOT EXISTS job_executions (
	id             uuid PRIMARY KEY,
	job_id         uuid NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	attempt_number integer NOT NULL CHECK (attempt_number >= 1),
	status         text NOT NULL CHECK (status IN ('SUCCESS', 'FAILED')),
	started_at     timestamptz NOT NULL DEFAULT NOW(),
	finished_at    timestamptz,
	error_message  text,
	result         text
);

CREATE INDEX IF NOT EXISTS ix_job_executions_job_id ON job_executions (job_id);
`

func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return classify("init schema", err)
	}
	return nil
}
