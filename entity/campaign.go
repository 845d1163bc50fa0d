package entity

import (
	"time"

	"crm/pkg/goutil"
)

type CampaignStatus uint32

const (
	CampaignStatusUnknown CampaignStatus = iota
	CampaignStatusDraft
	CampaignStatusActive
	CampaignStatusPaused
	CampaignStatusStopped
	CampaignStatusFollowUp   // relances_en_cours
	CampaignStatusWatch      // surveillance
	CampaignStatusCompleted
	CampaignStatusArchived
)

var CampaignStatuses = map[string]CampaignStatus{
	"draft":             CampaignStatusDraft,
	"active":            CampaignStatusActive,
	"paused":            CampaignStatusPaused,
	"stopped":           CampaignStatusStopped,
	"relances_en_cours": CampaignStatusFollowUp,
	"surveillance":      CampaignStatusWatch,
	"completed":         CampaignStatusCompleted,
	"archived":          CampaignStatusArchived,
}

// ReconcilableStatuses are the campaign states still expected to
// produce provider events.
var ReconcilableStatuses = []CampaignStatus{
	CampaignStatusActive,
	CampaignStatusPaused,
	CampaignStatusFollowUp,
	CampaignStatusWatch,
	CampaignStatusCompleted,
}

type CampaignType uint32

const (
	CampaignTypeUnknown CampaignType = iota
	CampaignTypeEmail
	CampaignTypePhone
)

const (
	MinEmailsPerCycle = 1
	MaxEmailsPerCycle = 1000

	// ReconcileWindowDays bounds the all-campaigns reconciliation to
	// campaigns created within the last 30 days.
	ReconcileWindowDays = 30

	// WatchCloseDays is how long a campaign sits in surveillance after
	// its last follow-up wave before it is completed.
	WatchCloseDays = 15
)

type Schedule struct {
	SendDays        []uint32 `json:"send_days,omitempty"`
	SendTimeStart   *string  `json:"send_time_start,omitempty"`
	SendTimeEnd     *string  `json:"send_time_end,omitempty"`
	EmailsPerCycle  *uint64  `json:"emails_per_cycle,omitempty"`
	IntervalMinutes *uint64  `json:"interval_minutes,omitempty"`
}

func (s *Schedule) GetEmailsPerCycle() uint64 {
	if s != nil && s.EmailsPerCycle != nil {
		return *s.EmailsPerCycle
	}
	return MaxEmailsPerCycle
}

type Campaign struct {
	ID             *uint64        `json:"id,omitempty"`
	TenantID       *uint64        `json:"tenant_id,omitempty"`
	Name           *string        `json:"name,omitempty"`
	Type           CampaignType   `json:"type,omitempty"`
	Status         CampaignStatus `json:"status,omitempty"`
	TemplateID     *uint64        `json:"template_id,omitempty"`
	Schedule       *Schedule      `json:"schedule,omitempty"`
	SentCount      *uint64        `json:"sent_count,omitempty"`
	DeliveredCount *uint64        `json:"delivered_count,omitempty"`
	OpenedCount    *uint64        `json:"opened_count,omitempty"`
	ClickedCount   *uint64        `json:"clicked_count,omitempty"`
	BouncedCount   *uint64        `json:"bounced_count,omitempty"`
	CreateTime     *uint64        `json:"create_time,omitempty"`
	UpdateTime     *uint64        `json:"update_time,omitempty"`
}

func (e *Campaign) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Campaign) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

func (e *Campaign) GetName() string {
	if e != nil && e.Name != nil {
		return *e.Name
	}
	return ""
}

func (e *Campaign) GetType() CampaignType {
	if e != nil {
		return e.Type
	}
	return CampaignTypeUnknown
}

func (e *Campaign) GetStatus() CampaignStatus {
	if e != nil {
		return e.Status
	}
	return CampaignStatusUnknown
}

func (e *Campaign) GetTemplateID() uint64 {
	if e != nil && e.TemplateID != nil {
		return *e.TemplateID
	}
	return 0
}

func (e *Campaign) GetSchedule() *Schedule {
	if e != nil {
		return e.Schedule
	}
	return nil
}

func (e *Campaign) GetSentCount() uint64 {
	if e != nil && e.SentCount != nil {
		return *e.SentCount
	}
	return 0
}

func (e *Campaign) GetCreateTime() uint64 {
	if e != nil && e.CreateTime != nil {
		return *e.CreateTime
	}
	return 0
}

func (e *Campaign) IsReconcilable() bool {
	if e.GetType() != CampaignTypeEmail {
		return false
	}

	if !goutil.ContainsUint32(campaignStatusesToUint32(ReconcilableStatuses), uint32(e.GetStatus())) {
		return false
	}

	cutoff := time.Now().AddDate(0, 0, -ReconcileWindowDays).Unix()
	return e.GetCreateTime() >= uint64(cutoff)
}

func campaignStatusesToUint32(statuses []CampaignStatus) []uint32 {
	res := make([]uint32, 0, len(statuses))
	for _, s := range statuses {
		res = append(res, uint32(s))
	}
	return res
}
