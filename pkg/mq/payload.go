package mq

type Payload uint32

const (
	PayloadUnknown Payload = iota
	PayloadEngagementEvent
)

var Payloads = map[Payload]string{
	PayloadEngagementEvent: "engagement_event",
}

// EngagementEvent is published whenever the reconciler ingests a ledger row
// it has not seen before.
type EngagementEvent struct {
	TenantID   *uint64 `json:"tenant_id,omitempty"`
	CampaignID *uint64 `json:"campaign_id,omitempty"`
	LeadID     *uint64 `json:"lead_id,omitempty"`
	EventType  *uint32 `json:"event_type,omitempty"`
}

func (m *EngagementEvent) GetTenantID() uint64 {
	if m != nil && m.TenantID != nil {
		return *m.TenantID
	}
	return 0
}

func (m *EngagementEvent) GetCampaignID() uint64 {
	if m != nil && m.CampaignID != nil {
		return *m.CampaignID
	}
	return 0
}

func (m *EngagementEvent) GetLeadID() uint64 {
	if m != nil && m.LeadID != nil {
		return *m.LeadID
	}
	return 0
}

func (m *EngagementEvent) GetEventType() uint32 {
	if m != nil && m.EventType != nil {
		return *m.EventType
	}
	return 0
}
