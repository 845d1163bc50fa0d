package dep

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"crm/config"
	"crm/entity"
)

func feedConfig(eventsURL, summaryLogURL string) config.Provider {
	return config.Provider{
		APIKey:         "test-key",
		EventsURL:      eventsURL,
		SummaryLogURL:  summaryLogURL,
		TimeoutSeconds: 5,
		MaxRetries:     0,
	}
}

func TestEventFeed_EventsApi(t *testing.T) {
	ctx := context.Background()

	events := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("api-key"); got != "test-key" {
			t.Errorf("api-key header = %q, want test-key", got)
		}
		if got := r.URL.Query().Get("days"); got != "7" {
			t.Errorf("days param = %q, want 7", got)
		}
		w.Write([]byte(`{"events": [
			{"to": "ana@example.com", "event_type": "unique_opened", "date": "2026-08-20 10:00:00"},
			{"recipient": "bob@example.com", "event": "clicks", "date": "2026-08-21T09:30:00Z"},
			{"email": "carl@example.com", "event_type": "deferred"},
			{"event_type": "opened"}
		]}`))
	}))
	defer events.Close()

	summary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("summary log queried although events api succeeded")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer summary.Close()

	feed, err := NewEventFeed(ctx, feedConfig(events.URL, summary.URL))
	if err != nil {
		t.Fatalf("NewEventFeed() err = %v", err)
	}

	records, err := feed.FetchRecent(ctx, 7)
	if err != nil {
		t.Fatalf("FetchRecent() err = %v", err)
	}

	// the record with no recipient at all is dropped
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}

	if records[0].Email != "ana@example.com" || records[0].EventType != entity.TrackingEventTypeOpen {
		t.Errorf("record 0 = %+v, want ana open", records[0])
	}
	if records[0].EventTime == 0 {
		t.Error("record 0 event time not parsed")
	}
	if records[1].Email != "bob@example.com" || records[1].EventType != entity.TrackingEventTypeClick {
		t.Errorf("record 1 = %+v, want bob click", records[1])
	}
	// unmapped vocabulary comes through as ignored, not dropped
	if records[2].EventType != entity.TrackingEventTypeIgnored {
		t.Errorf("record 2 event type = %d, want ignored", records[2].EventType)
	}
}

func TestEventFeed_FallsBackToSummaryLog(t *testing.T) {
	ctx := context.Background()

	events := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer events.Close()

	summary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": true, "emails": [
			{"to": "ana@example.com", "status": "sent", "date": "2026-08-20"},
			{"to": "bob@example.com", "status": "hardBounces", "date": "2026-08-20"}
		]}`))
	}))
	defer summary.Close()

	feed, err := NewEventFeed(ctx, feedConfig(events.URL, summary.URL))
	if err != nil {
		t.Fatalf("NewEventFeed() err = %v", err)
	}

	records, err := feed.FetchRecent(ctx, 7)
	if err != nil {
		t.Fatalf("FetchRecent() err = %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].EventType != entity.TrackingEventTypeDelivered {
		t.Errorf("record 0 event type = %d, want delivered", records[0].EventType)
	}
	if records[1].EventType != entity.TrackingEventTypeBounce {
		t.Errorf("record 1 event type = %d, want bounce", records[1].EventType)
	}
}

func TestEventFeed_SummaryLogFailureEnvelope(t *testing.T) {
	ctx := context.Background()

	events := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer events.Close()

	summary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": false}`))
	}))
	defer summary.Close()

	feed, err := NewEventFeed(ctx, feedConfig(events.URL, summary.URL))
	if err != nil {
		t.Fatalf("NewEventFeed() err = %v", err)
	}

	if _, err := feed.FetchRecent(ctx, 7); err == nil {
		t.Fatal("FetchRecent() expected error when both protocols fail")
	}
}

func TestGetWithRetry_RetriesServerErrors(t *testing.T) {
	ctx := context.Background()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := feedConfig(srv.URL, srv.URL)
	cfg.MaxRetries = 2

	b, err := getWithRetry(ctx, srv.Client(), cfg, srv.URL)
	if err != nil {
		t.Fatalf("getWithRetry() err = %v", err)
	}
	if string(b) != `{}` {
		t.Errorf("body = %q, want {}", b)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestGetWithRetry_DoesNotRetryClientErrors(t *testing.T) {
	ctx := context.Background()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := feedConfig(srv.URL, srv.URL)
	cfg.MaxRetries = 3

	if _, err := getWithRetry(ctx, srv.Client(), cfg, srv.URL); err == nil {
		t.Fatal("getWithRetry() expected error on 401")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestParseEventTime(t *testing.T) {
	tests := []struct {
		in       string
		wantZero bool
	}{
		{"2026-08-20T10:00:00Z", false},
		{"2026-08-20 10:00:00", false},
		{"2026-08-20", false},
		{"not-a-date", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseEventTime(tt.in)
			if (got == 0) != tt.wantZero {
				t.Errorf("parseEventTime(%q) = %d, wantZero %v", tt.in, got, tt.wantZero)
			}
		})
	}
}
