package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActivityType identifies a kind of guest engagement event.
type ActivityType string

const (
	// Photo activities
	ActivityPhotoUploaded   ActivityType = "photo_uploaded"
	ActivityPhotoViewed     ActivityType = "photo_viewed"
	ActivityPhotoDownloaded ActivityType = "photo_downloaded"
	ActivityPhotoLiked      ActivityType = "photo_liked"
	ActivityPhotoShared     ActivityType = "photo_shared"

	// App activities
	ActivityGuestAppOpened  ActivityType = "guest_app_opened"
	ActivityGalleryViewed   ActivityType = "gallery_viewed"
	ActivitySlideshowViewed ActivityType = "slideshow_viewed"

	// Event activities
	ActivityQrCodeScanned ActivityType = "qr_code_scanned"
	ActivityEventJoined   ActivityType = "event_joined"
	ActivityEventLeft     ActivityType = "event_left"

	// Guestbook activities
	ActivityGuestbookEntryAdded ActivityType = "guestbook_entry_added"
	ActivityGuestbookViewed     ActivityType = "guestbook_viewed"

	// General activities
	ActivityPageViewed     ActivityType = "page_viewed"
	ActivitySessionStarted ActivityType = "session_started"
	ActivitySessionEnded   ActivityType = "session_ended"
)

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityPhotoUploaded, ActivityPhotoViewed, ActivityPhotoDownloaded,
		ActivityPhotoLiked, ActivityPhotoShared,
		ActivityGuestAppOpened, ActivityGalleryViewed, ActivitySlideshowViewed,
		ActivityQrCodeScanned, ActivityEventJoined, ActivityEventLeft,
		ActivityGuestbookEntryAdded, ActivityGuestbookViewed,
		ActivityPageViewed, ActivitySessionStarted, ActivitySessionEnded:
		return true
	}
	return false
}

// Document is a semi-structured payload attached to activities and
// metrics records. It is opaque to the core except for named-key
// lookups; lookups that miss or mismatch return the zero value.
type Document map[string]interface{}

// GetString returns the string value stored under key, or "" and false
// if the key is absent or holds a non-string value.
func (d Document) GetString(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	v, ok := d[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt returns the integer value stored under key. JSON round-trips
// store numbers as float64, so both representations are accepted.
func (d Document) GetInt(key string) (int, bool) {
	if d == nil {
		return 0, false
	}
	switch v := d[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
	}
	return 0, false
}

// Has reports whether key is present in the document.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// ActivityLog is one immutable entry in the engagement activity log.
// Entries are never mutated after creation except for the processed
// flag, which is set through Store.MarkActivitiesAsProcessed.
type ActivityLog struct {
	ID          uuid.UUID    `json:"id"`
	EventID     uuid.UUID    `json:"event_id"`
	Type        ActivityType `json:"type"`
	Data        Document     `json:"data,omitempty"`
	SessionID   string       `json:"session_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	IsProcessed bool         `json:"is_processed"`
}

// NewActivityLog creates an activity log entry with a fresh identity
// and the current UTC timestamp.
func NewActivityLog(eventID uuid.UUID, activityType ActivityType, data Document, sessionID string) (*ActivityLog, error) {
	if eventID == uuid.Nil {
		return nil, fmt.Errorf("%w: event id is required", ErrInvalidArgument)
	}

	return &ActivityLog{
		ID:        uuid.New(),
		EventID:   eventID,
		Type:      activityType,
		Data:      data,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Description returns the human-readable summary shown in the dashboard
// activity feed.
func (a *ActivityLog) Description() string {
	switch a.Type {
	case ActivityGuestAppOpened:
		return "Guest opened the app"
	case ActivityPhotoUploaded:
		if filename, ok := a.Data.GetString("filename"); ok {
			return "Photo uploaded: " + filename
		}
		return "Photo was uploaded"
	case ActivityPhotoViewed:
		return "Photo was viewed"
	case ActivityQrCodeScanned:
		return "QR code was scanned"
	default:
		return fmt.Sprintf("Activity: %s", a.Type)
	}
}

// IsPhotoActivity reports whether the entry concerns a photo.
func (a *ActivityLog) IsPhotoActivity() bool {
	return a.Type == ActivityPhotoUploaded ||
		a.Type == ActivityPhotoViewed ||
		a.Type == ActivityPhotoDownloaded
}

// IsAppActivity reports whether the entry concerns guest app usage.
func (a *ActivityLog) IsAppActivity() bool {
	return a.Type == ActivityGuestAppOpened ||
		a.Type == ActivityGalleryViewed ||
		a.Type == ActivitySlideshowViewed
}

// IsEngagementActivity reports whether the entry concerns event
// participation.
func (a *ActivityLog) IsEngagementActivity() bool {
	return a.Type == ActivityQrCodeScanned ||
		a.Type == ActivityEventJoined ||
		a.Type == ActivityEventLeft
}

// PeriodType is the time granularity a metrics record summarizes.
type PeriodType string

const (
	PeriodTotal   PeriodType = "total"
	PeriodHourly  PeriodType = "hourly"
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// Valid reports whether p is a known period type.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodTotal, PeriodHourly, PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// EventMetrics holds the engagement counters for one event over one
// period. At most one record exists per (event id, period type); the
// store's upsert path enforces this.
//
// The five Total* fields are cumulative counters and never go negative.
// LiveGuestCount is a gauge: it is overwritten, not accumulated, and is
// clamped to zero on every update.
type EventMetrics struct {
	ID          uuid.UUID  `json:"id"`
	EventID     uuid.UUID  `json:"event_id"`
	PeriodType  PeriodType `json:"period_type"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`

	TotalPhotosUploaded int `json:"total_photos_uploaded"`
	TotalGuestAppOpens  int `json:"total_guest_app_opens"`
	TotalQrScans        int `json:"total_qr_scans"`
	TotalSlideshowViews int `json:"total_slideshow_views"`
	TotalGalleryViews   int `json:"total_gallery_views"`
	LiveGuestCount      int `json:"live_guest_count"`

	FeatureUsage Document `json:"feature_usage,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEventMetrics creates a zeroed metrics record for the given natural
// key. periodStart/periodEnd bound non-total periods and may be nil.
func NewEventMetrics(eventID uuid.UUID, periodType PeriodType, periodStart, periodEnd *time.Time) (*EventMetrics, error) {
	if eventID == uuid.Nil {
		return nil, fmt.Errorf("%w: event id is required", ErrInvalidArgument)
	}

	now := time.Now().UTC()
	return &EventMetrics{
		ID:          uuid.New(),
		EventID:     eventID,
		PeriodType:  periodType,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IncrementPhotoUploads adds count photo uploads.
func (m *EventMetrics) IncrementPhotoUploads(count int) {
	m.TotalPhotosUploaded += count
	m.touch()
}

// IncrementGuestAppOpens adds count guest app opens.
func (m *EventMetrics) IncrementGuestAppOpens(count int) {
	m.TotalGuestAppOpens += count
	m.touch()
}

// IncrementQrScans adds count QR code scans.
func (m *EventMetrics) IncrementQrScans(count int) {
	m.TotalQrScans += count
	m.touch()
}

// IncrementSlideshowViews adds count slideshow views.
func (m *EventMetrics) IncrementSlideshowViews(count int) {
	m.TotalSlideshowViews += count
	m.touch()
}

// IncrementGalleryViews adds count gallery views.
func (m *EventMetrics) IncrementGalleryViews(count int) {
	m.TotalGalleryViews += count
	m.touch()
}

// UpdateLiveGuestCount sets the live guest gauge, clamped to zero.
func (m *EventMetrics) UpdateLiveGuestCount(count int) {
	if count < 0 {
		count = 0
	}
	m.LiveGuestCount = count
	m.touch()
}

// UpdateFeatureUsage replaces the ad-hoc feature counters document.
func (m *EventMetrics) UpdateFeatureUsage(usage Document) {
	m.FeatureUsage = usage
	m.touch()
}

// ResetMetrics zeroes all counters and clears feature usage in one step.
func (m *EventMetrics) ResetMetrics() {
	m.TotalPhotosUploaded = 0
	m.TotalGuestAppOpens = 0
	m.TotalQrScans = 0
	m.TotalSlideshowViews = 0
	m.TotalGalleryViews = 0
	m.LiveGuestCount = 0
	m.FeatureUsage = nil
	m.touch()
}

// HasActivity reports whether any cumulative counter is non-zero.
func (m *EventMetrics) HasActivity() bool {
	return m.TotalPhotosUploaded > 0 ||
		m.TotalGuestAppOpens > 0 ||
		m.TotalQrScans > 0 ||
		m.TotalSlideshowViews > 0 ||
		m.TotalGalleryViews > 0
}

// TotalEngagement sums the five cumulative counters. The live guest
// gauge is excluded.
func (m *EventMetrics) TotalEngagement() int {
	return m.TotalPhotosUploaded +
		m.TotalGuestAppOpens +
		m.TotalQrScans +
		m.TotalSlideshowViews +
		m.TotalGalleryViews
}

// IsTotal reports whether this is the all-time record.
func (m *EventMetrics) IsTotal() bool { return m.PeriodType == PeriodTotal }

// IsTimePeriod reports whether this record covers a bounded period.
func (m *EventMetrics) IsTimePeriod() bool { return m.PeriodType != PeriodTotal }

func (m *EventMetrics) touch() {
	m.UpdatedAt = time.Now().UTC()
}
