package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"crm/entity"
	"crm/pkg/errutil"
	"crm/pkg/goutil"
)

var (
	ErrQuotaExceeded = errutil.ForbiddenError(errors.New("email quota exceeded"))
)

type QuotaRecord struct {
	ID         *uint64
	TenantID   *uint64
	Resource   *string
	MonthKey   *string
	Limit      *int64 `gorm:"column:quota_limit"`
	Used       *int64
	CreateTime *uint64
	UpdateTime *uint64
}

func (m *QuotaRecord) TableName() string {
	return "quota_tab"
}

type QuotaRepo interface {
	// CheckQuota reports whether the tenant may send at least one
	// more unit of the resource this month.
	CheckQuota(ctx context.Context, tenantID uint64, resource string) (*entity.QuotaCheck, error)
	// IncrementQuota adds n to the tenant's usage for the current
	// month.
	IncrementQuota(ctx context.Context, tenantID uint64, resource string, n int64) error
}

type quotaRepo struct {
	baseRepo BaseRepo
}

func NewQuotaRepo(_ context.Context, baseRepo BaseRepo) QuotaRepo {
	return &quotaRepo{baseRepo: baseRepo}
}

func (r *quotaRepo) CheckQuota(ctx context.Context, tenantID uint64, resource string) (*entity.QuotaCheck, error) {
	record, err := r.get(ctx, tenantID, resource, monthKey(time.Now()))
	if err != nil {
		return nil, err
	}
	if record == nil {
		// no record for the month yet means nothing consumed, but
		// also no limit provisioned: treat as denied so provisioning
		// failures surface instead of allowing unmetered sends
		return &entity.QuotaCheck{Allowed: false}, nil
	}

	if record.IsUnlimited() {
		return &entity.QuotaCheck{
			Allowed:   true,
			Unlimited: true,
			Remaining: entity.QuotaUnlimited,
		}, nil
	}

	remaining := record.Remaining()
	return &entity.QuotaCheck{
		Allowed:   remaining > 0,
		Remaining: remaining,
	}, nil
}

func (r *quotaRepo) IncrementQuota(ctx context.Context, tenantID uint64, resource string, n int64) error {
	return r.baseRepo.RunTx(ctx, func(ctx context.Context) error {
		now := time.Now()

		record, err := r.get(ctx, tenantID, resource, monthKey(now))
		if err != nil {
			return err
		}
		if record == nil || record.IsUnlimited() {
			return nil
		}

		return r.baseRepo.Update(ctx, &QuotaRecord{
			ID:         record.ID,
			Used:       goutil.Int64(record.GetUsed() + n),
			UpdateTime: goutil.Uint64(uint64(now.Unix())),
		})
	})
}

func (r *quotaRepo) get(ctx context.Context, tenantID uint64, resource, month string) (*entity.QuotaRecord, error) {
	record := new(QuotaRecord)

	if err := r.baseRepo.Get(ctx, record, &Filter{
		Conditions: []*Condition{
			{
				Field:         "tenant_id",
				Value:         tenantID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field:         "resource",
				Value:         resource,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "month_key",
				Value: month,
				Op:    OpEq,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return ToQuotaRecord(record), nil
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

func ToQuotaRecord(m *QuotaRecord) *entity.QuotaRecord {
	return &entity.QuotaRecord{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Resource:   m.Resource,
		MonthKey:   m.MonthKey,
		Limit:      m.Limit,
		Used:       m.Used,
		CreateTime: m.CreateTime,
		UpdateTime: m.UpdateTime,
	}
}
