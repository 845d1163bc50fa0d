package entity

type Lead struct {
	ID           *uint64 `json:"id,omitempty"`
	TenantID     *uint64 `json:"tenant_id,omitempty"`
	Email        *string `json:"email,omitempty"`
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	Company      *string `json:"company,omitempty"`
	Unsubscribed *bool   `json:"unsubscribed,omitempty"`
	CreateTime   *uint64 `json:"create_time,omitempty"`
	UpdateTime   *uint64 `json:"update_time,omitempty"`
}

func (e *Lead) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Lead) GetTenantID() uint64 {
	if e != nil && e.TenantID != nil {
		return *e.TenantID
	}
	return 0
}

func (e *Lead) GetEmail() string {
	if e != nil && e.Email != nil {
		return *e.Email
	}
	return ""
}

func (e *Lead) GetFirstName() string {
	if e != nil && e.FirstName != nil {
		return *e.FirstName
	}
	return ""
}

func (e *Lead) GetLastName() string {
	if e != nil && e.LastName != nil {
		return *e.LastName
	}
	return ""
}

func (e *Lead) GetCompany() string {
	if e != nil && e.Company != nil {
		return *e.Company
	}
	return ""
}

func (e *Lead) GetUnsubscribed() bool {
	if e != nil && e.Unsubscribed != nil {
		return *e.Unsubscribed
	}
	return false
}

// NormalizedEmail is the matching key against provider-reported
// recipients.
func (e *Lead) NormalizedEmail() string {
	return NormalizeEmail(e.GetEmail())
}
