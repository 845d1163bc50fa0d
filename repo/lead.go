package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"crm/entity"
	"crm/pkg/errutil"
	"crm/pkg/goutil"
)

var (
	ErrLeadNotFound = errutil.NotFoundError(errors.New("lead not found"))
)

type Lead struct {
	ID           *uint64
	TenantID     *uint64
	Email        *string
	FirstName    *string
	LastName     *string
	Company      *string
	Unsubscribed *bool
	CreateTime   *uint64
	UpdateTime   *uint64
}

func (m *Lead) TableName() string {
	return "lead_tab"
}

type LeadRepo interface {
	GetByID(ctx context.Context, tenantID, leadID uint64) (*entity.Lead, error)
	GetByIDs(ctx context.Context, tenantID uint64, leadIDs []uint64) ([]*entity.Lead, error)
}

type leadRepo struct {
	baseRepo BaseRepo
}

func NewLeadRepo(_ context.Context, baseRepo BaseRepo) LeadRepo {
	return &leadRepo{baseRepo: baseRepo}
}

func (r *leadRepo) GetByID(ctx context.Context, tenantID, leadID uint64) (*entity.Lead, error) {
	lead := new(Lead)

	if err := r.baseRepo.Get(ctx, lead, &Filter{
		Conditions: []*Condition{
			{
				Field:         "id",
				Value:         leadID,
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
			return nil, ErrLeadNotFound
		}
		return nil, err
	}

	return ToLead(lead), nil
}

func (r *leadRepo) GetByIDs(ctx context.Context, tenantID uint64, leadIDs []uint64) ([]*entity.Lead, error) {
	if len(leadIDs) == 0 {
		return nil, nil
	}

	res, _, err := r.baseRepo.GetMany(ctx, new(Lead), &Filter{
		Conditions: []*Condition{
			{
				Field:         "tenant_id",
				Value:         tenantID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "id",
				Value: leadIDs,
				Op:    OpIn,
			},
		},
		Pagination: &entity.Pagination{Limit: goutil.Uint32(0)},
	})
	if err != nil {
		return nil, err
	}

	leads := make([]*entity.Lead, 0, len(res))
	for _, m := range res {
		leads = append(leads, ToLead(m.(*Lead)))
	}
	return leads, nil
}

func ToLead(m *Lead) *entity.Lead {
	return &entity.Lead{
		ID:           m.ID,
		TenantID:     m.TenantID,
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Company:      m.Company,
		Unsubscribed: m.Unsubscribed,
		CreateTime:   m.CreateTime,
		UpdateTime:   m.UpdateTime,
	}
}
