package entity

type SuppressionEntry struct {
	ID         *uint64 `json:"id,omitempty"`
	TenantID   *uint64 `json:"tenant_id,omitempty"`
	Email      *string `json:"email,omitempty"`
	CreateTime *uint64 `json:"create_time,omitempty"`
}

func (e *SuppressionEntry) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

// GetEmail returns the suppressed address in normalized form.
// Rows are stored normalized, but older rows may predate that rule.
func (e *SuppressionEntry) GetEmail() string {
	if e != nil && e.Email != nil {
		return NormalizeEmail(*e.Email)
	}
	return ""
}
