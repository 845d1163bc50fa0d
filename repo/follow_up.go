package repo

import (
	"context"

	"crm/entity"
	"crm/pkg/goutil"
)

type CampaignFollowUp struct {
	ID         *uint64
	TenantID   *uint64
	CampaignID *uint64
	Mode       *uint32
	Enabled    *bool
	DelayDays  *uint32
	TemplateID *uint64
	WavesSent  *uint32
	LastWaveAt *uint64
	CreateTime *uint64
	UpdateTime *uint64
}

func (m *CampaignFollowUp) TableName() string {
	return "campaign_follow_up_tab"
}

func (m *CampaignFollowUp) GetMode() uint32 {
	if m != nil && m.Mode != nil {
		return *m.Mode
	}
	return 0
}

type FollowUpRepo interface {
	// GetEnabled lists the campaign's enabled follow-up modes.
	GetEnabled(ctx context.Context, tenantID, campaignID uint64) ([]*entity.CampaignFollowUp, error)
	Update(ctx context.Context, followUp *entity.CampaignFollowUp) error
}

type followUpRepo struct {
	baseRepo BaseRepo
}

func NewFollowUpRepo(_ context.Context, baseRepo BaseRepo) FollowUpRepo {
	return &followUpRepo{baseRepo: baseRepo}
}

func (r *followUpRepo) GetEnabled(ctx context.Context, tenantID, campaignID uint64) ([]*entity.CampaignFollowUp, error) {
	res, _, err := r.baseRepo.GetMany(ctx, new(CampaignFollowUp), &Filter{
		Conditions: []*Condition{
			{
				Field:         "tenant_id",
				Value:         tenantID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field:         "campaign_id",
				Value:         campaignID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "enabled",
				Value: true,
				Op:    OpEq,
			},
		},
		Pagination: &entity.Pagination{Limit: goutil.Uint32(0)},
	})
	if err != nil {
		return nil, err
	}

	followUps := make([]*entity.CampaignFollowUp, 0, len(res))
	for _, m := range res {
		followUps = append(followUps, ToCampaignFollowUp(m.(*CampaignFollowUp)))
	}
	return followUps, nil
}

func (r *followUpRepo) Update(ctx context.Context, followUp *entity.CampaignFollowUp) error {
	return r.baseRepo.Update(ctx, ToCampaignFollowUpModel(followUp))
}

func ToCampaignFollowUp(m *CampaignFollowUp) *entity.CampaignFollowUp {
	return &entity.CampaignFollowUp{
		ID:         m.ID,
		TenantID:   m.TenantID,
		CampaignID: m.CampaignID,
		Mode:       entity.FollowUpMode(m.GetMode()),
		Enabled:    m.Enabled,
		DelayDays:  m.DelayDays,
		TemplateID: m.TemplateID,
		WavesSent:  m.WavesSent,
		LastWaveAt: m.LastWaveAt,
		CreateTime: m.CreateTime,
		UpdateTime: m.UpdateTime,
	}
}

func ToCampaignFollowUpModel(e *entity.CampaignFollowUp) *CampaignFollowUp {
	return &CampaignFollowUp{
		ID:         e.ID,
		TenantID:   e.TenantID,
		CampaignID: e.CampaignID,
		Mode:       goutil.Uint32(uint32(e.GetMode())),
		Enabled:    e.Enabled,
		DelayDays:  e.DelayDays,
		TemplateID: e.TemplateID,
		WavesSent:  e.WavesSent,
		LastWaveAt: e.LastWaveAt,
		CreateTime: e.CreateTime,
		UpdateTime: e.UpdateTime,
	}
}
