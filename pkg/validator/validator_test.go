package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testForm struct {
	TenantID   *uint64 `json:"tenant_id,omitempty"`
	CampaignID *uint64 `json:"campaign_id,omitempty"`
	Name       *string `json:"name,omitempty"`
}

func uint64Ptr(ui uint64) *uint64 {
	return &ui
}

func strPtr(s string) *string {
	return &s
}

func TestForm_Validate(t *testing.T) {
	form := MustForm(map[string]Validator{
		"tenant_id":   &UInt64{Min: uint64Ptr(1)},
		"campaign_id": &UInt64{Optional: true},
		"name":        &String{Optional: true, MaxLen: 10},
	})

	tests := []struct {
		name   string
		req    *testForm
		hasErr bool
	}{
		{
			"valid",
			&testForm{TenantID: uint64Ptr(1)},
			false,
		},
		{
			"all fields set",
			&testForm{TenantID: uint64Ptr(1), CampaignID: uint64Ptr(2), Name: strPtr("wave 1")},
			false,
		},
		{
			"missing required field",
			&testForm{CampaignID: uint64Ptr(2)},
			true,
		},
		{
			"below minimum",
			&testForm{TenantID: uint64Ptr(0)},
			true,
		},
		{
			"string too long",
			&testForm{TenantID: uint64Ptr(1), Name: strPtr("this name is too long")},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := form.Validate(tt.req)
			if tt.hasErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestForm_Validate_NilRequest(t *testing.T) {
	form := MustForm(map[string]Validator{
		"tenant_id": &UInt64{},
	})

	var req *testForm
	assert.Error(t, form.Validate(req))
}

type EmbeddedPart struct {
	TenantID *uint64 `json:"tenant_id,omitempty"`
}

type outerForm struct {
	EmbeddedPart

	CampaignID *uint64 `json:"campaign_id,omitempty"`
}

func TestForm_Validate_EmbeddedStruct(t *testing.T) {
	form := MustForm(map[string]Validator{
		"EmbeddedPart": MustForm(map[string]Validator{
			"tenant_id": &UInt64{},
		}),
		"campaign_id": &UInt64{},
	})

	assert.NoError(t, form.Validate(&outerForm{
		EmbeddedPart: EmbeddedPart{TenantID: uint64Ptr(1)},
		CampaignID:   uint64Ptr(2),
	}))

	assert.Error(t, form.Validate(&outerForm{
		CampaignID: uint64Ptr(2),
	}))
}

func TestMustForm_PanicsOnNilValidator(t *testing.T) {
	assert.Panics(t, func() {
		MustForm(map[string]Validator{"tenant_id": nil})
	})
}

func TestSlice_Validate(t *testing.T) {
	v := &Slice{MinLen: 1, MaxLen: 2, Validator: &UInt64{Min: uint64Ptr(1)}}

	assert.NoError(t, v.Validate([]*uint64{uint64Ptr(1)}))
	assert.Error(t, v.Validate([]*uint64{}))
	assert.Error(t, v.Validate([]*uint64{uint64Ptr(1), uint64Ptr(2), uint64Ptr(3)}))
	assert.Error(t, v.Validate([]*uint64{uint64Ptr(0)}))
}
