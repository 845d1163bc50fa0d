package entity

import (
	"time"

	"crm/pkg/goutil"
)

type RecipientStatus uint32

const (
	RecipientStatusUnknown RecipientStatus = iota
	RecipientStatusPending
	RecipientStatusSent
	RecipientStatusFailed
)

type CampaignRecipient struct {
	ID         *uint64         `json:"id,omitempty"`
	TenantID   *uint64         `json:"tenant_id,omitempty"`
	CampaignID *uint64         `json:"campaign_id,omitempty"`
	LeadID     *uint64         `json:"lead_id,omitempty"`
	Status     RecipientStatus `json:"status,omitempty"`
	SentAt     *uint64         `json:"sent_at,omitempty"`
	CreateTime *uint64         `json:"create_time,omitempty"`
	UpdateTime *uint64         `json:"update_time,omitempty"`
}

func (e *CampaignRecipient) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *CampaignRecipient) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

func (e *CampaignRecipient) GetCampaignID() uint64 {
	if e != nil && e.CampaignID != nil {
		return *e.CampaignID
	}
	return 0
}

func (e *CampaignRecipient) GetLeadID() uint64 {
	if e != nil && e.LeadID != nil {
		return *e.LeadID
	}
	return 0
}

func (e *CampaignRecipient) GetStatus() RecipientStatus {
	if e != nil {
		return e.Status
	}
	return RecipientStatusUnknown
}

func (e *CampaignRecipient) GetSentAt() uint64 {
	if e != nil && e.SentAt != nil {
		return *e.SentAt
	}
	return 0
}

func (e *CampaignRecipient) MarkSent() {
	now := uint64(time.Now().Unix())
	e.Status = RecipientStatusSent
	e.SentAt = goutil.Uint64(now)
	e.UpdateTime = goutil.Uint64(now)
}

func (e *CampaignRecipient) MarkFailed() {
	e.Status = RecipientStatusFailed
	e.UpdateTime = goutil.Uint64(uint64(time.Now().Unix()))
}
