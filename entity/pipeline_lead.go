package entity

import (
	"time"

	"crm/pkg/goutil"
)

// StagePostClick is the funnel stage a lead lands on after clicking
// through a campaign email.
const StagePostClick = "leads_click"

type PipelineLead struct {
	ID         *uint64 `json:"id,omitempty"`
	TenantID   *uint64 `json:"tenant_id,omitempty"`
	LeadID     *uint64 `json:"lead_id,omitempty"`
	CampaignID *uint64 `json:"campaign_id,omitempty"`
	Stage      *string `json:"stage,omitempty"`
	CreateTime *uint64 `json:"create_time,omitempty"`
	UpdateTime *uint64 `json:"update_time,omitempty"`
}

func NewPipelineLead(tenantID, leadID, campaignID uint64, stage string) *PipelineLead {
	now := uint64(time.Now().Unix())

	return &PipelineLead{
		TenantID:   goutil.Uint64(tenantID),
		LeadID:     goutil.Uint64(leadID),
		CampaignID: goutil.Uint64(campaignID),
		Stage:      goutil.String(stage),
		CreateTime: goutil.Uint64(now),
		UpdateTime: goutil.Uint64(now),
	}
}

func (e *PipelineLead) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *PipelineLead) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

func (e *PipelineLead) GetLeadID() uint64 {
	if e != nil && e.LeadID != nil {
		return *e.LeadID
	}
	return 0
}

func (e *PipelineLead) GetCampaignID() uint64 {
	if e != nil && e.CampaignID != nil {
		return *e.CampaignID
	}
	return 0
}

func (e *PipelineLead) GetStage() string {
	if e != nil && e.Stage != nil {
		return *e.Stage
	}
	return ""
}
