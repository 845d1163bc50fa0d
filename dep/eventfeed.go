package dep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"crm/config"
	"crm/entity"
)

// EngagementRecord is one provider-reported event, already mapped to
// the canonical taxonomy. Records with EventType Ignored carry
// vocabulary the mapping tables do not recognize.
type EngagementRecord struct {
	Email     string
	EventType entity.TrackingEventType
	EventTime uint64
}

type EventFeed interface {
	// FetchRecent returns provider events over the trailing window.
	// Protocols are tried in order; the first one that responds wins
	// for the pass, they are never combined.
	FetchRecent(ctx context.Context, windowDays int) ([]*EngagementRecord, error)
	Close(ctx context.Context) error
}

type feedStrategy interface {
	name() string
	fetch(ctx context.Context, windowDays int) ([]*EngagementRecord, error)
}

type eventFeed struct {
	strategies []feedStrategy
}

func NewEventFeed(_ context.Context, cfg config.Provider) (EventFeed, error) {
	client := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	return &eventFeed{
		strategies: []feedStrategy{
			&eventsApiStrategy{cfg: cfg, client: client},
			&summaryLogStrategy{cfg: cfg, client: client},
		},
	}, nil
}

func (f *eventFeed) FetchRecent(ctx context.Context, windowDays int) ([]*EngagementRecord, error) {
	var lastErr error
	for _, s := range f.strategies {
		records, err := s.fetch(ctx, windowDays)
		if err != nil {
			log.Ctx(ctx).Warn().Msgf("event feed strategy failed, strategy: %s, err: %v", s.name(), err)
			lastErr = err
			continue
		}
		return records, nil
	}
	return nil, lastErr
}

func (f *eventFeed) Close(_ context.Context) error {
	return nil
}

// eventsApiStrategy reads the provider's newer events endpoint: a
// flat list of event records with a free-form event-type string.
type eventsApiStrategy struct {
	cfg    config.Provider
	client *http.Client
}

type feedEvent struct {
	To        string `json:"to"`
	Recipient string `json:"recipient"`
	Email     string `json:"email"`
	EventType string `json:"event_type"`
	Event     string `json:"event"`
	Date      string `json:"date"`
}

type feedEventsResp struct {
	Events []*feedEvent `json:"events"`
}

func (s *eventsApiStrategy) name() string {
	return "events_api"
}

func (s *eventsApiStrategy) fetch(ctx context.Context, windowDays int) ([]*EngagementRecord, error) {
	params := url.Values{}
	params.Set("days", strconv.Itoa(windowDays))
	params.Set("limit", "5000")

	b, err := getWithRetry(ctx, s.client, s.cfg, s.cfg.EventsURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	resp := new(feedEventsResp)
	if err := json.Unmarshal(b, resp); err != nil {
		return nil, err
	}

	records := make([]*EngagementRecord, 0, len(resp.Events))
	for _, ev := range resp.Events {
		email := firstNonEmpty(ev.To, ev.Recipient, ev.Email)
		if email == "" {
			continue
		}

		records = append(records, &EngagementRecord{
			Email:     email,
			EventType: entity.MapFeedEventType(firstNonEmpty(ev.EventType, ev.Event)),
			EventTime: parseEventTime(ev.Date),
		})
	}

	return records, nil
}

// summaryLogStrategy reads the legacy delivery log: one terminal
// status per message, wrapped in a success envelope.
type summaryLogStrategy struct {
	cfg    config.Provider
	client *http.Client
}

type summaryLogEntry struct {
	To     string `json:"to"`
	Status string `json:"status"`
	Date   string `json:"date"`
}

type summaryLogResp struct {
	Success *bool              `json:"success"`
	Emails  []*summaryLogEntry `json:"emails"`
	Logs    []*summaryLogEntry `json:"logs"`
}

func (s *summaryLogStrategy) name() string {
	return "summary_log"
}

func (s *summaryLogStrategy) fetch(ctx context.Context, windowDays int) ([]*EngagementRecord, error) {
	params := url.Values{}
	params.Set("days", strconv.Itoa(windowDays))
	params.Set("limit", "5000")

	b, err := getWithRetry(ctx, s.client, s.cfg, s.cfg.SummaryLogURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	resp := new(summaryLogResp)
	if err := json.Unmarshal(b, resp); err != nil {
		return nil, err
	}

	if resp.Success != nil && !*resp.Success {
		return nil, errors.New("summary log request not successful")
	}

	entries := resp.Emails
	if len(entries) == 0 {
		entries = resp.Logs
	}

	records := make([]*EngagementRecord, 0, len(entries))
	for _, e := range entries {
		if e.To == "" {
			continue
		}

		records = append(records, &EngagementRecord{
			Email:     e.To,
			EventType: entity.MapSummaryStatus(e.Status),
			EventTime: parseEventTime(e.Date),
		})
	}

	return records, nil
}

func getWithRetry(ctx context.Context, client *http.Client, cfg config.Provider, reqUrl string) ([]byte, error) {
	var body []byte

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("api-key", cfg.APIKey)

		res, err := client.Do(req)
		if err != nil {
			return err
		}

		defer func() {
			_ = res.Body.Close()
		}()

		b, err := io.ReadAll(res.Body)
		if err != nil {
			return err
		}

		if res.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("provider error, status: %d", res.StatusCode)
		}
		if res.StatusCode >= http.StatusBadRequest {
			return backoff.Permanent(fmt.Errorf("provider rejected request, status: %d", res.StatusCode))
		}

		body = b
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.MaxRetries),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}

	return body, nil
}

func parseEventTime(s string) uint64 {
	if s == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return uint64(t.Unix())
		}
	}
	return 0
}
