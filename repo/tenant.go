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
	ErrTenantNotFound = errutil.NotFoundError(errors.New("tenant not found"))
)

const cachePrefixTenant = "tenant"

type Tenant struct {
	ID         *uint64
	Name       *string
	Status     *uint32
	SuperAdmin *bool
	CreateTime *uint64
	UpdateTime *uint64
}

func (m *Tenant) TableName() string {
	return "tenant_tab"
}

func (m *Tenant) GetStatus() uint32 {
	if m != nil && m.Status != nil {
		return *m.Status
	}
	return 0
}

type TenantRepo interface {
	GetByID(ctx context.Context, tenantID uint64) (*entity.Tenant, error)
}

type tenantRepo struct {
	baseRepo  BaseRepo
	baseCache BaseCache
}

func NewTenantRepo(_ context.Context, baseRepo BaseRepo, baseCache BaseCache) TenantRepo {
	return &tenantRepo{
		baseRepo:  baseRepo,
		baseCache: baseCache,
	}
}

func (r *tenantRepo) GetByID(ctx context.Context, tenantID uint64) (*entity.Tenant, error) {
	if v, ok := r.baseCache.Get(ctx, cachePrefixTenant, tenantID, "self"); ok {
		return v.(*entity.Tenant), nil
	}

	tenant := new(Tenant)

	if err := r.baseRepo.Get(ctx, tenant, &Filter{
		Conditions: []*Condition{
			{
				Field:         "id",
				Value:         tenantID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "status",
				Value: uint32(entity.TenantStatusDeleted),
				Op:    OpNotEq,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	res := ToTenant(tenant)
	r.baseCache.Set(ctx, cachePrefixTenant, tenantID, "self", res)

	return res, nil
}

func ToTenant(tenant *Tenant) *entity.Tenant {
	return &entity.Tenant{
		ID:         tenant.ID,
		Name:       tenant.Name,
		Status:     entity.TenantStatus(tenant.GetStatus()),
		SuperAdmin: tenant.SuperAdmin,
		CreateTime: tenant.CreateTime,
		UpdateTime: tenant.UpdateTime,
	}
}

func ToTenantModel(tenant *entity.Tenant) *Tenant {
	return &Tenant{
		ID:         tenant.ID,
		Name:       tenant.Name,
		Status:     goutil.Uint32(uint32(tenant.GetStatus())),
		SuperAdmin: tenant.SuperAdmin,
		CreateTime: tenant.CreateTime,
		UpdateTime: tenant.UpdateTime,
	}
}
