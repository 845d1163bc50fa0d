package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"crm/entity"
	"crm/pkg/errutil"
)

var (
	ErrTemplateNotFound = errutil.NotFoundError(errors.New("email template not found"))
)

type EmailTemplate struct {
	ID         *uint64
	TenantID   *uint64
	Name       *string
	Subject    *string
	HtmlBody   *string
	Status     *uint32
	CreateTime *uint64
	UpdateTime *uint64
}

func (m *EmailTemplate) TableName() string {
	return "email_template_tab"
}

func (m *EmailTemplate) GetStatus() uint32 {
	if m != nil && m.Status != nil {
		return *m.Status
	}
	return 0
}

type TemplateRepo interface {
	GetByID(ctx context.Context, tenantID, templateID uint64) (*entity.EmailTemplate, error)
}

type templateRepo struct {
	baseRepo BaseRepo
}

func NewTemplateRepo(_ context.Context, baseRepo BaseRepo) TemplateRepo {
	return &templateRepo{baseRepo: baseRepo}
}

func (r *templateRepo) GetByID(ctx context.Context, tenantID, templateID uint64) (*entity.EmailTemplate, error) {
	template := new(EmailTemplate)

	if err := r.baseRepo.Get(ctx, template, &Filter{
		Conditions: []*Condition{
			{
				Field:         "id",
				Value:         templateID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field:         "tenant_id",
				Value:         tenantID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "status",
				Value: uint32(entity.TemplateStatusDeleted),
				Op:    OpNotEq,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	return &entity.EmailTemplate{
		ID:         template.ID,
		TenantID:   template.TenantID,
		Name:       template.Name,
		Subject:    template.Subject,
		HtmlBody:   template.HtmlBody,
		Status:     entity.TemplateStatus(template.GetStatus()),
		CreateTime: template.CreateTime,
		UpdateTime: template.UpdateTime,
	}, nil
}
