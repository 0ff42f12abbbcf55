package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq" // also registers the PostgreSQL driver

	"github.com/guestflow/guestflow/pkg/analytics"
)

// Store implements analytics.Store on PostgreSQL. Metrics writes rely
// on the UNIQUE (event_id, period_type) constraint: upserts and counter
// increments are single INSERT ... ON CONFLICT statements, so the
// database serializes writers per natural key and concurrent callers
// never observe a missing record mid-upsert.
type Store struct {
	db *sql.DB
}

// Config holds PostgreSQL connection settings.
type Config struct {
	URL         string
	MaxConns    int
	MinConns    int
	ConnTimeout time.Duration
	InitSchema  bool
}

// DefaultConfig returns connection settings suitable for local use.
func DefaultConfig() Config {
	return Config{
		URL:         "postgres://localhost/guestflow?sslmode=disable",
		MaxConns:    25,
		MinConns:    5,
		ConnTimeout: 10 * time.Second,
		InitSchema:  true,
	}
}

// NewStore opens a connection pool and optionally bootstraps the schema.
func NewStore(cfg Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if cfg.InitSchema {
		if err := InitSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing database handle. Used by tests and
// callers that manage the pool themselves.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// storeErr classifies a driver failure as a store-unavailable error
// while keeping the cause in the chain.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, analytics.ErrUnavailable, err)
}

// AddActivity appends one activity log entry.
func (s *Store) AddActivity(ctx context.Context, activity *analytics.ActivityLog) error {
	data, err := marshalDocument(activity.Data)
	if err != nil {
		return fmt.Errorf("failed to encode activity data: %w", err)
	}

	query := `
		INSERT INTO activity_logs (id, event_id, type, data, session_id, created_at, is_processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		activity.ID, activity.EventID, string(activity.Type), data,
		nullString(activity.SessionID), activity.CreatedAt, activity.IsProcessed,
	)
	if err != nil {
		return storeErr("insert activity", err)
	}
	return nil
}

// GetActivities returns all entries for an event, newest first.
func (s *Store) GetActivities(ctx context.Context, eventID uuid.UUID) ([]*analytics.ActivityLog, error) {
	query := `
		SELECT id, event_id, type, data, session_id, created_at, is_processed
		FROM activity_logs
		WHERE event_id = $1
		ORDER BY created_at DESC
	`
	return s.queryActivities(ctx, query, eventID)
}

// GetActivitiesByType returns an event's entries of one type, newest first.
func (s *Store) GetActivitiesByType(ctx context.Context, eventID uuid.UUID, activityType analytics.ActivityType) ([]*analytics.ActivityLog, error) {
	query := `
		SELECT id, event_id, type, data, session_id, created_at, is_processed
		FROM activity_logs
		WHERE event_id = $1 AND type = $2
		ORDER BY created_at DESC
	`
	return s.queryActivities(ctx, query, eventID, string(activityType))
}

// GetRecentActivities returns the newest entries across all events.
func (s *Store) GetRecentActivities(ctx context.Context, limit int) ([]*analytics.ActivityLog, error) {
	query := `
		SELECT id, event_id, type, data, session_id, created_at, is_processed
		FROM activity_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	return s.queryActivities(ctx, query, limit)
}

// GetRecentActivitiesForEvents returns the newest entries for a set of
// events.
func (s *Store) GetRecentActivitiesForEvents(ctx context.Context, eventIDs []uuid.UUID, limit int) ([]*analytics.ActivityLog, error) {
	if len(eventIDs) == 0 {
		return []*analytics.ActivityLog{}, nil
	}

	query := `
		SELECT id, event_id, type, data, session_id, created_at, is_processed
		FROM activity_logs
		WHERE event_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	return s.queryActivities(ctx, query, pq.Array(uuidStrings(eventIDs)), limit)
}

// GetUnprocessedActivities returns unprocessed entries, oldest first.
func (s *Store) GetUnprocessedActivities(ctx context.Context, batchSize int) ([]*analytics.ActivityLog, error) {
	query := `
		SELECT id, event_id, type, data, session_id, created_at, is_processed
		FROM activity_logs
		WHERE NOT is_processed
		ORDER BY created_at ASC
		LIMIT $1
	`
	return s.queryActivities(ctx, query, batchSize)
}

// GetActivityCountByType counts an event's entries of one type.
func (s *Store) GetActivityCountByType(ctx context.Context, eventID uuid.UUID, activityType analytics.ActivityType) (int, error) {
	query := `SELECT COUNT(*) FROM activity_logs WHERE event_id = $1 AND type = $2`

	var count int
	if err := s.db.QueryRowContext(ctx, query, eventID, string(activityType)).Scan(&count); err != nil {
		return 0, storeErr("count activities", err)
	}
	return count, nil
}

// CountActivitiesByType counts an event's entries grouped by type.
func (s *Store) CountActivitiesByType(ctx context.Context, eventID uuid.UUID) (map[analytics.ActivityType]int, error) {
	query := `SELECT type, COUNT(*) FROM activity_logs WHERE event_id = $1 GROUP BY type`

	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, storeErr("count activities by type", err)
	}
	defer rows.Close()

	counts := make(map[analytics.ActivityType]int)
	for rows.Next() {
		var activityType string
		var count int
		if err := rows.Scan(&activityType, &count); err != nil {
			return nil, storeErr("scan activity count", err)
		}
		counts[analytics.ActivityType(activityType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate activity counts", err)
	}
	return counts, nil
}

// GetLastActivityTime returns the newest entry timestamp for an event,
// or nil when the event has no entries.
func (s *Store) GetLastActivityTime(ctx context.Context, eventID uuid.UUID) (*time.Time, error) {
	query := `SELECT MAX(created_at) FROM activity_logs WHERE event_id = $1`

	var last sql.NullTime
	if err := s.db.QueryRowContext(ctx, query, eventID).Scan(&last); err != nil {
		return nil, storeErr("query last activity time", err)
	}
	if !last.Valid {
		return nil, nil
	}
	t := last.Time
	return &t, nil
}

// MarkActivitiesAsProcessed flags the named entries as processed.
// Unknown and already-processed ids are no-ops, so the call is
// idempotent.
func (s *Store) MarkActivitiesAsProcessed(ctx context.Context, activityIDs []uuid.UUID) error {
	if len(activityIDs) == 0 {
		return nil
	}

	query := `UPDATE activity_logs SET is_processed = TRUE WHERE id = ANY($1)`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(uuidStrings(activityIDs))); err != nil {
		return storeErr("mark activities processed", err)
	}
	return nil
}

// HasActivityData reports whether an event has any log entries.
func (s *Store) HasActivityData(ctx context.Context, eventID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM activity_logs WHERE event_id = $1)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, eventID).Scan(&exists); err != nil {
		return false, storeErr("check activity data", err)
	}
	return exists, nil
}

// GetMetrics returns the record for a natural key, or
// analytics.ErrNotFound.
func (s *Store) GetMetrics(ctx context.Context, eventID uuid.UUID, periodType analytics.PeriodType) (*analytics.EventMetrics, error) {
	query := metricsSelect + ` WHERE event_id = $1 AND period_type = $2`

	row := s.db.QueryRowContext(ctx, query, eventID, string(periodType))
	metrics, err := scanMetricsRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("metrics for event %s period %s: %w", eventID, periodType, analytics.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("query metrics", err)
	}
	return metrics, nil
}

// GetMetricsForEvents returns the records matching the id set for one
// period. Events without a record are omitted.
func (s *Store) GetMetricsForEvents(ctx context.Context, eventIDs []uuid.UUID, periodType analytics.PeriodType) ([]*analytics.EventMetrics, error) {
	if len(eventIDs) == 0 {
		return []*analytics.EventMetrics{}, nil
	}

	query := metricsSelect + ` WHERE event_id = ANY($1) AND period_type = $2`
	return s.queryMetrics(ctx, query, pq.Array(uuidStrings(eventIDs)), string(periodType))
}

// GetMetricsByPeriod returns every record for one period type, most
// recently updated first.
func (s *Store) GetMetricsByPeriod(ctx context.Context, periodType analytics.PeriodType) ([]*analytics.EventMetrics, error) {
	query := metricsSelect + ` WHERE period_type = $1 ORDER BY updated_at DESC`
	return s.queryMetrics(ctx, query, string(periodType))
}

// GetMetricsForDateRange returns an event's bounded-period records
// inside [start, end], ordered by period start.
func (s *Store) GetMetricsForDateRange(ctx context.Context, eventID uuid.UUID, start, end time.Time) ([]*analytics.EventMetrics, error) {
	query := metricsSelect + `
		WHERE event_id = $1 AND period_start >= $2 AND period_end <= $3
		ORDER BY period_start ASC`
	return s.queryMetrics(ctx, query, eventID, start, end)
}

// UpsertMetrics inserts or replaces the record for the incoming natural
// key in one atomic statement. On conflict the stored identity and
// creation time win; the six counters, feature usage, and updated
// timestamp come from the incoming value.
func (s *Store) UpsertMetrics(ctx context.Context, metrics *analytics.EventMetrics) error {
	usage, err := marshalDocument(metrics.FeatureUsage)
	if err != nil {
		return fmt.Errorf("failed to encode feature usage: %w", err)
	}

	query := `
		INSERT INTO event_metrics (
			id, event_id, period_type, period_start, period_end,
			total_photos_uploaded, total_guest_app_opens, total_qr_scans,
			total_slideshow_views, total_gallery_views, live_guest_count,
			feature_usage, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, GREATEST(0, $11), $12, $13, $14)
		ON CONFLICT (event_id, period_type) DO UPDATE SET
			total_photos_uploaded = EXCLUDED.total_photos_uploaded,
			total_guest_app_opens = EXCLUDED.total_guest_app_opens,
			total_qr_scans = EXCLUDED.total_qr_scans,
			total_slideshow_views = EXCLUDED.total_slideshow_views,
			total_gallery_views = EXCLUDED.total_gallery_views,
			live_guest_count = EXCLUDED.live_guest_count,
			feature_usage = EXCLUDED.feature_usage,
			updated_at = NOW()
	`
	_, err = s.db.ExecContext(ctx, query,
		metrics.ID, metrics.EventID, string(metrics.PeriodType),
		metrics.PeriodStart, metrics.PeriodEnd,
		metrics.TotalPhotosUploaded, metrics.TotalGuestAppOpens, metrics.TotalQrScans,
		metrics.TotalSlideshowViews, metrics.TotalGalleryViews, metrics.LiveGuestCount,
		usage, metrics.CreatedAt, metrics.UpdatedAt,
	)
	if err != nil {
		return storeErr("upsert metrics", err)
	}
	return nil
}

// counterColumns whitelists the incrementable columns. Counter values
// come from code, not users, but the column name is interpolated into
// SQL and must never pass through unchecked.
var counterColumns = map[analytics.Counter]string{
	analytics.CounterPhotosUploaded: "total_photos_uploaded",
	analytics.CounterGuestAppOpens:  "total_guest_app_opens",
	analytics.CounterQrScans:        "total_qr_scans",
	analytics.CounterSlideshowViews: "total_slideshow_views",
	analytics.CounterGalleryViews:   "total_gallery_views",
}

// IncrementCounter atomically adds delta to one cumulative counter,
// creating the record if the key is new. The addition happens inside
// the upsert, so concurrent increments on the same key never lose
// updates.
func (s *Store) IncrementCounter(ctx context.Context, eventID uuid.UUID, periodType analytics.PeriodType, counter analytics.Counter, delta int) error {
	column, ok := counterColumns[counter]
	if !ok {
		return fmt.Errorf("%w: unknown counter %q", analytics.ErrInvalidArgument, counter)
	}

	query := fmt.Sprintf(`
		INSERT INTO event_metrics (id, event_id, period_type, %s, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (event_id, period_type) DO UPDATE SET
			%s = event_metrics.%s + EXCLUDED.%s,
			updated_at = NOW()
	`, column, column, column, column)

	if _, err := s.db.ExecContext(ctx, query, uuid.New(), eventID, string(periodType), delta); err != nil {
		return storeErr("increment counter", err)
	}
	return nil
}

// SetLiveGuestCount sets the live guest gauge, clamped to zero,
// creating the record if the key is new.
func (s *Store) SetLiveGuestCount(ctx context.Context, eventID uuid.UUID, periodType analytics.PeriodType, count int) error {
	query := `
		INSERT INTO event_metrics (id, event_id, period_type, live_guest_count, created_at, updated_at)
		VALUES ($1, $2, $3, GREATEST(0, $4), NOW(), NOW())
		ON CONFLICT (event_id, period_type) DO UPDATE SET
			live_guest_count = GREATEST(0, EXCLUDED.live_guest_count),
			updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.New(), eventID, string(periodType), count); err != nil {
		return storeErr("set live guest count", err)
	}
	return nil
}

// DeleteMetrics removes a record by identity. Unknown ids are no-ops.
func (s *Store) DeleteMetrics(ctx context.Context, metricsID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM event_metrics WHERE id = $1`, metricsID); err != nil {
		return storeErr("delete metrics", err)
	}
	return nil
}

// HasMetricsData reports whether an event has any metrics record.
func (s *Store) HasMetricsData(ctx context.Context, eventID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM event_metrics WHERE event_id = $1)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, eventID).Scan(&exists); err != nil {
		return false, storeErr("check metrics data", err)
	}
	return exists, nil
}

const metricsSelect = `
	SELECT id, event_id, period_type, period_start, period_end,
		total_photos_uploaded, total_guest_app_opens, total_qr_scans,
		total_slideshow_views, total_gallery_views, live_guest_count,
		feature_usage, created_at, updated_at
	FROM event_metrics`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMetricsRow(row rowScanner) (*analytics.EventMetrics, error) {
	var m analytics.EventMetrics
	var periodType string
	var periodStart, periodEnd sql.NullTime
	var usage []byte

	err := row.Scan(
		&m.ID, &m.EventID, &periodType, &periodStart, &periodEnd,
		&m.TotalPhotosUploaded, &m.TotalGuestAppOpens, &m.TotalQrScans,
		&m.TotalSlideshowViews, &m.TotalGalleryViews, &m.LiveGuestCount,
		&usage, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.PeriodType = analytics.PeriodType(periodType)
	if periodStart.Valid {
		m.PeriodStart = &periodStart.Time
	}
	if periodEnd.Valid {
		m.PeriodEnd = &periodEnd.Time
	}
	if doc, err := unmarshalDocument(usage); err == nil {
		m.FeatureUsage = doc
	}
	return &m, nil
}

func (s *Store) queryMetrics(ctx context.Context, query string, args ...interface{}) ([]*analytics.EventMetrics, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query metrics", err)
	}
	defer rows.Close()

	var results []*analytics.EventMetrics
	for rows.Next() {
		m, err := scanMetricsRow(rows)
		if err != nil {
			return nil, storeErr("scan metrics", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate metrics", err)
	}
	return results, nil
}

func (s *Store) queryActivities(ctx context.Context, query string, args ...interface{}) ([]*analytics.ActivityLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query activities", err)
	}
	defer rows.Close()

	var results []*analytics.ActivityLog
	for rows.Next() {
		var a analytics.ActivityLog
		var activityType string
		var data []byte
		var sessionID sql.NullString

		err := rows.Scan(&a.ID, &a.EventID, &activityType, &data, &sessionID, &a.CreatedAt, &a.IsProcessed)
		if err != nil {
			return nil, storeErr("scan activity", err)
		}

		a.Type = analytics.ActivityType(activityType)
		a.SessionID = sessionID.String
		if doc, err := unmarshalDocument(data); err == nil {
			a.Data = doc
		}
		results = append(results, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate activities", err)
	}
	return results, nil
}

func marshalDocument(doc analytics.Document) (interface{}, error) {
	if doc == nil {
		return nil, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func unmarshalDocument(data []byte) (analytics.Document, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var doc analytics.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return strs
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
