package entity

type FollowUpMode uint32

const (
	FollowUpModeUnknown FollowUpMode = iota
	// FollowUpModeOpenedNotClicked targets leads who opened a prior
	// wave but never clicked.
	FollowUpModeOpenedNotClicked
	// FollowUpModeNotOpened targets leads who never opened.
	FollowUpModeNotOpened
)

const (
	MinFollowUpCount = 1
	MaxFollowUpCount = 2
)

type CampaignFollowUp struct {
	ID          *uint64      `json:"id,omitempty"`
	TenantID    *uint64      `json:"tenant_id,omitempty"`
	CampaignID  *uint64      `json:"campaign_id,omitempty"`
	Mode        FollowUpMode `json:"mode,omitempty"`
	Enabled     *bool        `json:"enabled,omitempty"`
	DelayDays   *uint32      `json:"delay_days,omitempty"`
	TemplateID  *uint64      `json:"template_id,omitempty"`
	WavesSent   *uint32      `json:"waves_sent,omitempty"`
	LastWaveAt  *uint64      `json:"last_wave_at,omitempty"`
	CreateTime  *uint64      `json:"create_time,omitempty"`
	UpdateTime  *uint64      `json:"update_time,omitempty"`
}

func (e *CampaignFollowUp) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *CampaignFollowUp) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

func (e *CampaignFollowUp) GetCampaignID() uint64 {
	if e != nil && e.CampaignID != nil {
		return *e.CampaignID
	}
	return 0
}

func (e *CampaignFollowUp) GetMode() FollowUpMode {
	if e != nil {
		return e.Mode
	}
	return FollowUpModeUnknown
}

func (e *CampaignFollowUp) GetEnabled() bool {
	if e != nil && e.Enabled != nil {
		return *e.Enabled
	}
	return false
}

func (e *CampaignFollowUp) GetDelayDays() uint32 {
	if e != nil && e.DelayDays != nil {
		return *e.DelayDays
	}
	return 0
}

func (e *CampaignFollowUp) GetTemplateID() uint64 {
	if e != nil && e.TemplateID != nil {
		return *e.TemplateID
	}
	return 0
}

func (e *CampaignFollowUp) GetWavesSent() uint32 {
	if e != nil && e.WavesSent != nil {
		return *e.WavesSent
	}
	return 0
}

func (e *CampaignFollowUp) GetLastWaveAt() uint64 {
	if e != nil && e.LastWaveAt != nil {
		return *e.LastWaveAt
	}
	return 0
}
