package entity

const (
	QuotaResourceEmail = "email"

	// QuotaUnlimited as a limit disables enforcement for the tenant.
	QuotaUnlimited = int64(-1)
)

type QuotaRecord struct {
	ID         *uint64 `json:"id,omitempty"`
	TenantID   *uint64 `json:"tenant_id,omitempty"`
	Resource   *string `json:"resource,omitempty"`
	MonthKey   *string `json:"month_key,omitempty"`
	Limit      *int64  `json:"limit,omitempty"`
	Used       *int64  `json:"used,omitempty"`
	CreateTime *uint64 `json:"create_time,omitempty"`
	UpdateTime *uint64 `json:"update_time,omitempty"`
}

func (e *QuotaRecord) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

func (e *QuotaRecord) GetLimit() int64 {
	if e != nil && e.Limit != nil {
		return *e.Limit
	}
	return 0
}

func (e *QuotaRecord) GetUsed() int64 {
	if e != nil && e.Used != nil {
		return *e.Used
	}
	return 0
}

func (e *QuotaRecord) IsUnlimited() bool {
	return e.GetLimit() == QuotaUnlimited
}

func (e *QuotaRecord) Remaining() int64 {
	if e.IsUnlimited() {
		return QuotaUnlimited
	}
	r := e.GetLimit() - e.GetUsed()
	if r < 0 {
		return 0
	}
	return r
}

// QuotaCheck is the result of a pre-dispatch quota probe.
type QuotaCheck struct {
	Allowed   bool  `json:"allowed"`
	Unlimited bool  `json:"unlimited"`
	Remaining int64 `json:"remaining"`
}
