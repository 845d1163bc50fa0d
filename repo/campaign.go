package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"crm/entity"
	"crm/pkg/errutil"
	"crm/pkg/goutil"
)

var (
	ErrCampaignNotFound = errutil.NotFoundError(errors.New("campaign not found"))
)

type Campaign struct {
	ID             *uint64
	TenantID       *uint64
	Name           *string
	Type           *uint32
	Status         *uint32
	TemplateID     *uint64
	Schedule       *string
	SentCount      *uint64
	DeliveredCount *uint64
	OpenedCount    *uint64
	ClickedCount   *uint64
	BouncedCount   *uint64
	CreateTime     *uint64
	UpdateTime     *uint64
}

func (m *Campaign) TableName() string {
	return "campaign_tab"
}

func (m *Campaign) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

func (m *Campaign) GetType() uint32 {
	if m != nil && m.Type != nil {
		return *m.Type
	}
	return 0
}

func (m *Campaign) GetStatus() uint32 {
	if m != nil && m.Status != nil {
		return *m.Status
	}
	return 0
}

func (m *Campaign) GetSchedule() string {
	if m != nil && m.Schedule != nil {
		return *m.Schedule
	}
	return ""
}

type CampaignRepo interface {
	Get(ctx context.Context, tenantID, campaignID uint64) (*entity.Campaign, error)
	// GetReconcilable lists email campaigns in an active-like status
	// created within the recent reconciliation window.
	GetReconcilable(ctx context.Context, tenantID uint64) ([]*entity.Campaign, error)
	Update(ctx context.Context, campaign *entity.Campaign) error
	// SetCounters overwrites the denormalized engagement counters.
	SetCounters(ctx context.Context, campaign *entity.Campaign, counts map[entity.TrackingEventType]uint64) error
}

type campaignRepo struct {
	baseRepo BaseRepo
}

func NewCampaignRepo(_ context.Context, baseRepo BaseRepo) CampaignRepo {
	return &campaignRepo{baseRepo: baseRepo}
}

func (r *campaignRepo) Get(ctx context.Context, tenantID, campaignID uint64) (*entity.Campaign, error) {
	campaign := new(Campaign)

	if err := r.baseRepo.Get(ctx, campaign, &Filter{
		Conditions: []*Condition{
			{
				Field:         "id",
				Value:         campaignID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "tenant_id",
				Value: tenantID,
				Op:    OpEq,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	return ToCampaign(campaign)
}

func (r *campaignRepo) GetReconcilable(ctx context.Context, tenantID uint64) ([]*entity.Campaign, error) {
	statuses := make([]uint32, 0, len(entity.ReconcilableStatuses))
	for _, s := range entity.ReconcilableStatuses {
		statuses = append(statuses, uint32(s))
	}

	cutoff := uint64(time.Now().AddDate(0, 0, -entity.ReconcileWindowDays).Unix())

	conditions := []*Condition{
		{
			Field:         "type",
			Value:         uint32(entity.CampaignTypeEmail),
			Op:            OpEq,
			NextLogicalOp: LogicalOpAnd,
		},
		{
			Field:         "status",
			Value:         statuses,
			Op:            OpIn,
			NextLogicalOp: LogicalOpAnd,
		},
		{
			Field: "create_time",
			Value: cutoff,
			Op:    OpGte,
		},
	}
	if tenantID > 0 {
		conditions = append([]*Condition{
			{
				Field:         "tenant_id",
				Value:         tenantID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
		}, conditions...)
	}

	res, _, err := r.baseRepo.GetMany(ctx, new(Campaign), &Filter{
		Conditions: conditions,
		Pagination: &entity.Pagination{Limit: goutil.Uint32(0)},
	})
	if err != nil {
		return nil, err
	}

	campaigns := make([]*entity.Campaign, 0, len(res))
	for _, m := range res {
		campaign, err := ToCampaign(m.(*Campaign))
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}

	return campaigns, nil
}

func (r *campaignRepo) Update(ctx context.Context, campaign *entity.Campaign) error {
	campaignModel, err := ToCampaignModel(campaign)
	if err != nil {
		return err
	}
	return r.baseRepo.Update(ctx, campaignModel)
}

func (r *campaignRepo) SetCounters(ctx context.Context, campaign *entity.Campaign, counts map[entity.TrackingEventType]uint64) error {
	now := uint64(time.Now().Unix())

	return r.baseRepo.Update(ctx, &Campaign{
		ID:             campaign.ID,
		SentCount:      goutil.Uint64(counts[entity.TrackingEventTypeSent]),
		DeliveredCount: goutil.Uint64(counts[entity.TrackingEventTypeDelivered]),
		OpenedCount:    goutil.Uint64(counts[entity.TrackingEventTypeOpen]),
		ClickedCount:   goutil.Uint64(counts[entity.TrackingEventTypeClick]),
		BouncedCount:   goutil.Uint64(counts[entity.TrackingEventTypeBounce]),
		UpdateTime:     goutil.Uint64(now),
	})
}

func ToCampaign(campaign *Campaign) (*entity.Campaign, error) {
	var schedule *entity.Schedule
	if campaign.GetSchedule() != "" {
		schedule = new(entity.Schedule)
		if err := json.Unmarshal([]byte(campaign.GetSchedule()), schedule); err != nil {
			return nil, err
		}
	}

	return &entity.Campaign{
		ID:             campaign.ID,
		TenantID:       campaign.TenantID,
		Name:           campaign.Name,
		Type:           entity.CampaignType(campaign.GetType()),
		Status:         entity.CampaignStatus(campaign.GetStatus()),
		TemplateID:     campaign.TemplateID,
		Schedule:       schedule,
		SentCount:      campaign.SentCount,
		DeliveredCount: campaign.DeliveredCount,
		OpenedCount:    campaign.OpenedCount,
		ClickedCount:   campaign.ClickedCount,
		BouncedCount:   campaign.BouncedCount,
		CreateTime:     campaign.CreateTime,
		UpdateTime:     campaign.UpdateTime,
	}, nil
}

func ToCampaignModel(campaign *entity.Campaign) (*Campaign, error) {
	var schedule *string
	if campaign.GetSchedule() != nil {
		b, err := json.Marshal(campaign.GetSchedule())
		if err != nil {
			return nil, err
		}
		schedule = goutil.String(string(b))
	}

	return &Campaign{
		ID:             campaign.ID,
		TenantID:       campaign.TenantID,
		Name:           campaign.Name,
		Type:           goutil.Uint32(uint32(campaign.GetType())),
		Status:         goutil.Uint32(uint32(campaign.GetStatus())),
		TemplateID:     campaign.TemplateID,
		Schedule:       schedule,
		SentCount:      campaign.SentCount,
		DeliveredCount: campaign.DeliveredCount,
		OpenedCount:    campaign.OpenedCount,
		ClickedCount:   campaign.ClickedCount,
		BouncedCount:   campaign.BouncedCount,
		CreateTime:     campaign.CreateTime,
		UpdateTime:     campaign.UpdateTime,
	}, nil
}
