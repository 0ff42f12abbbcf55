package analytics

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewActivityLog(t *testing.T) {
	eventID := uuid.New()
	activity, err := NewActivityLog(eventID, ActivityPhotoUploaded, Document{"filename": "a.jpg"}, "session-1")
	if err != nil {
		t.Fatalf("NewActivityLog failed: %v", err)
	}

	if activity.ID == uuid.Nil {
		t.Error("Expected a generated id")
	}
	if activity.EventID != eventID {
		t.Errorf("Expected event id %s, got %s", eventID, activity.EventID)
	}
	if activity.IsProcessed {
		t.Error("New activity must start unprocessed")
	}
	if activity.CreatedAt.IsZero() {
		t.Error("Expected a creation timestamp")
	}
	if loc := activity.CreatedAt.Location(); loc != nil && loc.String() != "UTC" {
		t.Errorf("Expected UTC timestamp, got %s", loc)
	}
}

func TestNewActivityLogRequiresEventID(t *testing.T) {
	_, err := NewActivityLog(uuid.Nil, ActivityPhotoUploaded, nil, "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestActivityDescription(t *testing.T) {
	tests := []struct {
		name string
		typ  ActivityType
		data Document
		want string
	}{
		{
			name: "guest app opened",
			typ:  ActivityGuestAppOpened,
			want: "Guest opened the app",
		},
		{
			name: "photo uploaded with filename",
			typ:  ActivityPhotoUploaded,
			data: Document{"filename": "a.jpg"},
			want: "Photo uploaded: a.jpg",
		},
		{
			name: "photo uploaded without filename",
			typ:  ActivityPhotoUploaded,
			want: "Photo was uploaded",
		},
		{
			name: "photo uploaded with non-string filename",
			typ:  ActivityPhotoUploaded,
			data: Document{"filename": 42},
			want: "Photo was uploaded",
		},
		{
			name: "photo viewed",
			typ:  ActivityPhotoViewed,
			want: "Photo was viewed",
		},
		{
			name: "qr code scanned",
			typ:  ActivityQrCodeScanned,
			want: "QR code was scanned",
		},
		{
			name: "fallback",
			typ:  ActivityGuestbookEntryAdded,
			want: "Activity: guestbook_entry_added",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &ActivityLog{Type: tt.typ, Data: tt.data}
			if got := a.Description(); got != tt.want {
				t.Errorf("Description() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActivityTypeValid(t *testing.T) {
	if !ActivityPhotoUploaded.Valid() {
		t.Error("photo_uploaded should be valid")
	}
	if ActivityType("bogus").Valid() {
		t.Error("unknown type should be invalid")
	}
}

func TestActivityClassification(t *testing.T) {
	photo := &ActivityLog{Type: ActivityPhotoDownloaded}
	if !photo.IsPhotoActivity() || photo.IsAppActivity() || photo.IsEngagementActivity() {
		t.Error("photo_downloaded should classify as photo activity only")
	}

	app := &ActivityLog{Type: ActivitySlideshowViewed}
	if !app.IsAppActivity() || app.IsPhotoActivity() {
		t.Error("slideshow_viewed should classify as app activity only")
	}

	engagement := &ActivityLog{Type: ActivityEventJoined}
	if !engagement.IsEngagementActivity() || engagement.IsAppActivity() {
		t.Error("event_joined should classify as engagement activity only")
	}
}

func TestDocumentLookups(t *testing.T) {
	doc := Document{
		"filename": "a.jpg",
		"count":    float64(3), // JSON round-trips numbers as float64
		"flag":     true,
	}

	if s, ok := doc.GetString("filename"); !ok || s != "a.jpg" {
		t.Errorf("GetString(filename) = %q, %v", s, ok)
	}
	if _, ok := doc.GetString("count"); ok {
		t.Error("GetString on a number should miss")
	}
	if _, ok := doc.GetString("missing"); ok {
		t.Error("GetString on a missing key should miss")
	}

	if n, ok := doc.GetInt("count"); !ok || n != 3 {
		t.Errorf("GetInt(count) = %d, %v", n, ok)
	}
	if _, ok := doc.GetInt("flag"); ok {
		t.Error("GetInt on a bool should miss")
	}

	if !doc.Has("flag") || doc.Has("missing") {
		t.Error("Has misreported key presence")
	}

	var nilDoc Document
	if _, ok := nilDoc.GetString("x"); ok {
		t.Error("nil document lookups should miss")
	}
	if _, ok := nilDoc.GetInt("x"); ok {
		t.Error("nil document lookups should miss")
	}
}

func TestNewEventMetricsRequiresEventID(t *testing.T) {
	_, err := NewEventMetrics(uuid.Nil, PeriodTotal, nil, nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestEventMetricsCounters(t *testing.T) {
	m, err := NewEventMetrics(uuid.New(), PeriodTotal, nil, nil)
	if err != nil {
		t.Fatalf("NewEventMetrics failed: %v", err)
	}

	before := m.UpdatedAt
	m.IncrementPhotoUploads(3)
	m.IncrementPhotoUploads(2)
	m.IncrementGuestAppOpens(4)
	m.IncrementQrScans(1)
	m.IncrementSlideshowViews(2)
	m.IncrementGalleryViews(5)

	if m.TotalPhotosUploaded != 5 {
		t.Errorf("TotalPhotosUploaded = %d, want 5", m.TotalPhotosUploaded)
	}
	if got := m.TotalEngagement(); got != 17 {
		t.Errorf("TotalEngagement() = %d, want 17", got)
	}
	if m.UpdatedAt.Before(before) {
		t.Error("Mutations must advance UpdatedAt")
	}
	if !m.HasActivity() {
		t.Error("Expected HasActivity after increments")
	}
}

func TestUpdateLiveGuestCountClamps(t *testing.T) {
	m, _ := NewEventMetrics(uuid.New(), PeriodTotal, nil, nil)

	m.UpdateLiveGuestCount(7)
	if m.LiveGuestCount != 7 {
		t.Errorf("LiveGuestCount = %d, want 7", m.LiveGuestCount)
	}

	m.UpdateLiveGuestCount(-5)
	if m.LiveGuestCount != 0 {
		t.Errorf("LiveGuestCount = %d, want 0 after negative update", m.LiveGuestCount)
	}
}

func TestTotalEngagementExcludesLiveGauge(t *testing.T) {
	m, _ := NewEventMetrics(uuid.New(), PeriodTotal, nil, nil)
	m.IncrementPhotoUploads(2)
	m.UpdateLiveGuestCount(100)

	if got := m.TotalEngagement(); got != 2 {
		t.Errorf("TotalEngagement() = %d, want 2", got)
	}
}

func TestResetMetrics(t *testing.T) {
	m, _ := NewEventMetrics(uuid.New(), PeriodTotal, nil, nil)
	m.IncrementPhotoUploads(3)
	m.UpdateLiveGuestCount(2)
	m.UpdateFeatureUsage(Document{"slideshow": 1})

	m.ResetMetrics()

	if m.HasActivity() || m.LiveGuestCount != 0 || m.FeatureUsage != nil {
		t.Error("ResetMetrics must zero all counters and clear feature usage")
	}
}

func TestPeriodTypeValid(t *testing.T) {
	for _, p := range []PeriodType{PeriodTotal, PeriodHourly, PeriodDaily, PeriodWeekly, PeriodMonthly} {
		if !p.Valid() {
			t.Errorf("%s should be valid", p)
		}
	}
	if PeriodType("yearly").Valid() {
		t.Error("yearly should be invalid")
	}

	m, _ := NewEventMetrics(uuid.New(), PeriodDaily, nil, nil)
	if m.IsTotal() || !m.IsTimePeriod() {
		t.Error("daily record should be a time period")
	}
}
