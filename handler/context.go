package handler

import (
	"crm/entity"
	"crm/pkg/validator"
)

type ContextInfo struct {
	TenantID *uint64 `json:"tenant_id,omitempty" schema:"tenant_id"`

	Tenant *entity.Tenant `json:"-" schema:"-"`
}

func (c *ContextInfo) SetTenant(t *entity.Tenant) {
	c.Tenant = t
}

func (c *ContextInfo) GetTenantID() uint64 {
	if c != nil && c.TenantID != nil {
		return *c.TenantID
	}
	return 0
}

func (c *ContextInfo) IsSuperAdmin() bool {
	return c.Tenant.IsSuperAdmin()
}

var ContextInfoValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id": &validator.UInt64{},
})
