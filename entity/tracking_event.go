package entity

import (
	"strings"
	"time"

	"crm/pkg/goutil"
)

type TrackingEventType uint32

const (
	TrackingEventTypeUnknown TrackingEventType = iota
	TrackingEventTypeSent
	TrackingEventTypeDelivered
	TrackingEventTypeOpen
	TrackingEventTypeClick
	TrackingEventTypeBounce
	TrackingEventTypeUnsubscribe

	// TrackingEventTypeIgnored marks provider vocabulary with no
	// canonical equivalent. Never persisted to the ledger.
	TrackingEventTypeIgnored
)

var TrackingEventTypes = map[TrackingEventType]string{
	TrackingEventTypeSent:        "sent",
	TrackingEventTypeDelivered:   "delivered",
	TrackingEventTypeOpen:        "open",
	TrackingEventTypeClick:       "click",
	TrackingEventTypeBounce:      "bounce",
	TrackingEventTypeUnsubscribe: "unsubscribe",
}

type eventRule struct {
	match     string
	exact     bool
	eventType TrackingEventType
}

// feedEventRules maps provider event-feed vocabulary to the canonical
// taxonomy by case-insensitive substring match, checked in order.
// Spam complaints and blocked sends are deliberately absent so they
// fall through to Ignored and never reach the ledger.
var feedEventRules = []eventRule{
	{match: "delivery", eventType: TrackingEventTypeDelivered},
	{match: "delivered", eventType: TrackingEventTypeDelivered},
	{match: "unique_opened", eventType: TrackingEventTypeOpen},
	{match: "open", eventType: TrackingEventTypeOpen},
	{match: "click", eventType: TrackingEventTypeClick},
	{match: "bounce", eventType: TrackingEventTypeBounce},
	{match: "error", eventType: TrackingEventTypeBounce},
	{match: "unsubscribe", eventType: TrackingEventTypeUnsubscribe},
}

// summaryStatusRules maps legacy summary-log statuses. The legacy
// protocol reports a single terminal status per message. "sent" must
// match the whole status, not a fragment of a richer one.
var summaryStatusRules = []eventRule{
	{match: "delivered", eventType: TrackingEventTypeDelivered},
	{match: "sent", exact: true, eventType: TrackingEventTypeDelivered},
	{match: "opened", eventType: TrackingEventTypeOpen},
	{match: "open", eventType: TrackingEventTypeOpen},
	{match: "clicked", eventType: TrackingEventTypeClick},
	{match: "click", eventType: TrackingEventTypeClick},
	{match: "bounce", eventType: TrackingEventTypeBounce},
	{match: "error", eventType: TrackingEventTypeBounce},
	{match: "unsubscribed", eventType: TrackingEventTypeUnsubscribe},
}

func MapFeedEventType(s string) TrackingEventType {
	return mapByRules(s, feedEventRules)
}

func MapSummaryStatus(s string) TrackingEventType {
	return mapByRules(s, summaryStatusRules)
}

func mapByRules(s string, rules []eventRule) TrackingEventType {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TrackingEventTypeIgnored
	}
	for _, r := range rules {
		if r.exact {
			if s == r.match {
				return r.eventType
			}
			continue
		}
		if strings.Contains(s, r.match) {
			return r.eventType
		}
	}
	return TrackingEventTypeIgnored
}

type TrackingEvent struct {
	ID         *uint64 `json:"id,omitempty"`
	TenantID   *uint64 `json:"tenant_id,omitempty"`
	CampaignID *uint64 `json:"campaign_id,omitempty"`
	LeadID     *uint64 `json:"lead_id,omitempty"`
	EventType  *uint32 `json:"event_type,omitempty"`
	EventTime  *uint64 `json:"event_time,omitempty"`
	CreateTime *uint64 `json:"create_time,omitempty"`
}

func NewTrackingEvent(tenantID, campaignID, leadID uint64, eventType TrackingEventType, eventTime uint64) *TrackingEvent {
	now := uint64(time.Now().Unix())
	if eventTime == 0 {
		eventTime = now
	}

	return &TrackingEvent{
		TenantID:   goutil.Uint64(tenantID),
		CampaignID: goutil.Uint64(campaignID),
		LeadID:     goutil.Uint64(leadID),
		EventType:  goutil.Uint32(uint32(eventType)),
		EventTime:  goutil.Uint64(eventTime),
		CreateTime: goutil.Uint64(now),
	}
}

func (e *TrackingEvent) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *TrackingEvent) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

func (e *TrackingEvent) GetCampaignID() uint64 {
	if e != nil && e.CampaignID != nil {
		return *e.CampaignID
	}
	return 0
}

func (e *TrackingEvent) GetLeadID() uint64 {
	if e != nil && e.LeadID != nil {
		return *e.LeadID
	}
	return 0
}

func (e *TrackingEvent) GetEventType() TrackingEventType {
	if e != nil && e.EventType != nil {
		return TrackingEventType(*e.EventType)
	}
	return TrackingEventTypeUnknown
}

func (e *TrackingEvent) GetEventTime() uint64 {
	if e != nil && e.EventTime != nil {
		return *e.EventTime
	}
	return 0
}
