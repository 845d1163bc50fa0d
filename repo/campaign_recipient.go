package repo

import (
	"context"
	"time"

	"crm/entity"
	"crm/pkg/goutil"
)

type CampaignRecipient struct {
	ID         *uint64
	TenantID   *uint64
	CampaignID *uint64
	LeadID     *uint64
	Status     *uint32
	SentAt     *uint64
	CreateTime *uint64
	UpdateTime *uint64
}

func (m *CampaignRecipient) TableName() string {
	return "campaign_recipient_tab"
}

func (m *CampaignRecipient) GetStatus() uint32 {
	if m != nil && m.Status != nil {
		return *m.Status
	}
	return 0
}

type maxSentAt struct {
	MaxSentAt uint64
}

type CampaignRecipientRepo interface {
	GetPending(ctx context.Context, tenantID, campaignID uint64, limit uint32) ([]*entity.CampaignRecipient, error)
	GetSent(ctx context.Context, tenantID, campaignID uint64) ([]*entity.CampaignRecipient, error)
	Update(ctx context.Context, recipient *entity.CampaignRecipient) error
	// SetPendingByLeadIDs re-queues prior recipients for a follow-up
	// wave.
	SetPendingByLeadIDs(ctx context.Context, tenantID, campaignID uint64, leadIDs []uint64) error
	// MaxSentAt returns the most recent send time across the
	// campaign's recipients, or zero when nothing was sent yet.
	MaxSentAt(ctx context.Context, tenantID, campaignID uint64) (uint64, error)
}

type campaignRecipientRepo struct {
	baseRepo BaseRepo
}

func NewCampaignRecipientRepo(_ context.Context, baseRepo BaseRepo) CampaignRecipientRepo {
	return &campaignRecipientRepo{baseRepo: baseRepo}
}

func (r *campaignRecipientRepo) GetPending(ctx context.Context, tenantID, campaignID uint64, limit uint32) ([]*entity.CampaignRecipient, error) {
	return r.getMany(ctx, &Filter{
		Conditions: r.baseRepo.BuildConditions(r.scopeConditions(tenantID, campaignID), []*Condition{
			{
				Field: "status",
				Value: uint32(entity.RecipientStatusPending),
				Op:    OpEq,
			},
		}),
		Pagination: &entity.Pagination{Limit: goutil.Uint32(limit)},
	})
}

func (r *campaignRecipientRepo) GetSent(ctx context.Context, tenantID, campaignID uint64) ([]*entity.CampaignRecipient, error) {
	return r.getMany(ctx, &Filter{
		Conditions: r.baseRepo.BuildConditions(r.scopeConditions(tenantID, campaignID), []*Condition{
			{
				Field: "status",
				Value: uint32(entity.RecipientStatusSent),
				Op:    OpEq,
			},
		}),
		Pagination: &entity.Pagination{Limit: goutil.Uint32(0)},
	})
}

func (r *campaignRecipientRepo) getMany(ctx context.Context, f *Filter) ([]*entity.CampaignRecipient, error) {
	res, _, err := r.baseRepo.GetMany(ctx, new(CampaignRecipient), f)
	if err != nil {
		return nil, err
	}

	recipients := make([]*entity.CampaignRecipient, 0, len(res))
	for _, m := range res {
		recipients = append(recipients, ToCampaignRecipient(m.(*CampaignRecipient)))
	}
	return recipients, nil
}

func (r *campaignRecipientRepo) Update(ctx context.Context, recipient *entity.CampaignRecipient) error {
	return r.baseRepo.Update(ctx, ToCampaignRecipientModel(recipient))
}

func (r *campaignRecipientRepo) SetPendingByLeadIDs(ctx context.Context, tenantID, campaignID uint64, leadIDs []uint64) error {
	if len(leadIDs) == 0 {
		return nil
	}

	now := uint64(time.Now().Unix())

	return r.baseRepo.UpdateWhere(ctx, new(CampaignRecipient), map[string]interface{}{
		"status":      uint32(entity.RecipientStatusPending),
		"update_time": now,
	}, &Filter{
		Conditions: r.baseRepo.BuildConditions(r.scopeConditions(tenantID, campaignID), []*Condition{
			{
				Field: "lead_id",
				Value: leadIDs,
				Op:    OpIn,
			},
		}),
	})
}

func (r *campaignRecipientRepo) MaxSentAt(ctx context.Context, tenantID, campaignID uint64) (uint64, error) {
	res, err := r.baseRepo.GroupBy(
		ctx,
		new(CampaignRecipient),
		new(maxSentAt),
		[]string{"campaign_id"},
		map[string]string{
			"max_sent_at": "COALESCE(MAX(sent_at), 0)",
		},
		&Filter{
			Conditions: r.scopeConditions(tenantID, campaignID),
		},
	)
	if err != nil {
		return 0, err
	}

	if len(res) == 0 {
		return 0, nil
	}
	return res[0].(*maxSentAt).MaxSentAt, nil
}

func (r *campaignRecipientRepo) scopeConditions(tenantID, campaignID uint64) []*Condition {
	return []*Condition{
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
	}
}

func ToCampaignRecipient(m *CampaignRecipient) *entity.CampaignRecipient {
	return &entity.CampaignRecipient{
		ID:         m.ID,
		TenantID:   m.TenantID,
		CampaignID: m.CampaignID,
		LeadID:     m.LeadID,
		Status:     entity.RecipientStatus(m.GetStatus()),
		SentAt:     m.SentAt,
		CreateTime: m.CreateTime,
		UpdateTime: m.UpdateTime,
	}
}

func ToCampaignRecipientModel(e *entity.CampaignRecipient) *CampaignRecipient {
	return &CampaignRecipient{
		ID:         e.ID,
		TenantID:   e.TenantID,
		CampaignID: e.CampaignID,
		LeadID:     e.LeadID,
		Status:     goutil.Uint32(uint32(e.GetStatus())),
		SentAt:     e.SentAt,
		CreateTime: e.CreateTime,
		UpdateTime: e.UpdateTime,
	}
}
