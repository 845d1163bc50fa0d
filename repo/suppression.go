package repo

import (
	"context"
	"time"

	"crm/entity"
	"crm/pkg/goutil"
)

const cachePrefixSuppression = "suppression"

type SuppressionEntry struct {
	ID         *uint64
	TenantID   *uint64
	Email      *string
	CreateTime *uint64
}

func (m *SuppressionEntry) TableName() string {
	return "suppression_tab"
}

type SuppressionRepo interface {
	// GetSet returns the tenant's suppressed addresses keyed by
	// normalized email.
	GetSet(ctx context.Context, tenantID uint64) (map[string]bool, error)
	Add(ctx context.Context, tenantID uint64, email string) error
}

type suppressionRepo struct {
	baseRepo  BaseRepo
	baseCache BaseCache
}

func NewSuppressionRepo(_ context.Context, baseRepo BaseRepo, baseCache BaseCache) SuppressionRepo {
	return &suppressionRepo{
		baseRepo:  baseRepo,
		baseCache: baseCache,
	}
}

func (r *suppressionRepo) GetSet(ctx context.Context, tenantID uint64) (map[string]bool, error) {
	if v, ok := r.baseCache.Get(ctx, cachePrefixSuppression, tenantID, "set"); ok {
		return v.(map[string]bool), nil
	}

	res, _, err := r.baseRepo.GetMany(ctx, new(SuppressionEntry), &Filter{
		Conditions: []*Condition{
			{
				Field: "tenant_id",
				Value: tenantID,
				Op:    OpEq,
			},
		},
		Pagination: &entity.Pagination{Limit: goutil.Uint32(0)},
	})
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(res))
	for _, m := range res {
		entry := m.(*SuppressionEntry)
		if entry.Email == nil {
			continue
		}
		set[entity.NormalizeEmail(*entry.Email)] = true
	}

	r.baseCache.Set(ctx, cachePrefixSuppression, tenantID, "set", set)

	return set, nil
}

func (r *suppressionRepo) Add(ctx context.Context, tenantID uint64, email string) error {
	if err := r.baseRepo.Create(ctx, &SuppressionEntry{
		TenantID:   goutil.Uint64(tenantID),
		Email:      goutil.String(entity.NormalizeEmail(email)),
		CreateTime: goutil.Uint64(uint64(time.Now().Unix())),
	}); err != nil {
		return err
	}

	r.baseCache.Del(ctx, cachePrefixSuppression, tenantID, "set")

	return nil
}
