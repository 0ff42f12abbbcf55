package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema bootstraps the analytics-owned tables. The events table is
// owned by the events service and is only read here, so it is not part
// of this DDL.
const schema = `
CREATE TABLE IF NOT EXISTS activity_logs (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL,
	type TEXT NOT NULL,
	data JSONB,
	session_id TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	is_processed BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_activity_logs_event_created
	ON activity_logs (event_id, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_activity_logs_created
	ON activity_logs (created_at DESC);

CREATE INDEX IF NOT EXISTS idx_activity_logs_unprocessed
	ON activity_logs (created_at)
	WHERE NOT is_processed;

CREATE TABLE IF NOT EXISTS event_metrics (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL,
	period_type TEXT NOT NULL,
	period_start TIMESTAMPTZ,
	period_end TIMESTAMPTZ,
	total_photos_uploaded INTEGER NOT NULL DEFAULT 0,
	total_guest_app_opens INTEGER NOT NULL DEFAULT 0,
	total_qr_scans INTEGER NOT NULL DEFAULT 0,
	total_slideshow_views INTEGER NOT NULL DEFAULT 0,
	total_gallery_views INTEGER NOT NULL DEFAULT 0,
	live_guest_count INTEGER NOT NULL DEFAULT 0,
	feature_usage JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (event_id, period_type)
);
`

// InitSchema creates the analytics tables and indexes if they do not
// already exist.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize analytics schema: %w", err)
	}
	return nil
}
