package repo

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"crm/entity"
	"crm/pkg/goutil"
)

type PipelineLead struct {
	ID         *uint64
	TenantID   *uint64
	LeadID     *uint64
	CampaignID *uint64
	Stage      *string
	CreateTime *uint64
	UpdateTime *uint64
}

func (m *PipelineLead) TableName() string {
	return "pipeline_lead_tab"
}

// The table's unique key migrated from (lead_id, campaign_id) to
// (tenant_id, lead_id, campaign_id). Deployments may still run the
// legacy shape, so the upsert tries the current key first and falls
// back when Postgres reports no matching constraint.
var (
	pipelineConflictCols       = []string{"tenant_id", "lead_id", "campaign_id"}
	pipelineLegacyConflictCols = []string{"lead_id", "campaign_id"}

	pipelineUpdateCols = []string{"stage", "update_time"}
)

type PipelineLeadRepo interface {
	// UpsertStage inserts the lead at the given stage or, if a row
	// already exists for the tuple, overwrites its stage.
	UpsertStage(ctx context.Context, pipelineLead *entity.PipelineLead) error
	// GetLeadIDs lists leads that already have a pipeline row for the
	// campaign.
	GetLeadIDs(ctx context.Context, tenantID, campaignID uint64) ([]uint64, error)
}

type pipelineLeadRepo struct {
	baseRepo BaseRepo
}

func NewPipelineLeadRepo(_ context.Context, baseRepo BaseRepo) PipelineLeadRepo {
	return &pipelineLeadRepo{baseRepo: baseRepo}
}

func (r *pipelineLeadRepo) UpsertStage(ctx context.Context, pipelineLead *entity.PipelineLead) error {
	model := ToPipelineLeadModel(pipelineLead)
	model.UpdateTime = goutil.Uint64(uint64(time.Now().Unix()))

	err := r.baseRepo.Upsert(ctx, model, pipelineConflictCols, pipelineUpdateCols)
	if err == nil {
		return nil
	}

	if !isMissingConstraintErr(err) {
		return err
	}

	log.Ctx(ctx).Debug().Msgf("pipeline upsert falling back to legacy constraint, err: %v", err)

	model.ID = nil
	return r.baseRepo.Upsert(ctx, model, pipelineLegacyConflictCols, pipelineUpdateCols)
}

func (r *pipelineLeadRepo) GetLeadIDs(ctx context.Context, tenantID, campaignID uint64) ([]uint64, error) {
	return r.baseRepo.PluckUint64(ctx, new(PipelineLead), "lead_id", true, &Filter{
		Conditions: []*Condition{
			{
				Field:         "tenant_id",
				Value:         tenantID,
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "campaign_id",
				Value: campaignID,
				Op:    OpEq,
			},
		},
	})
}

// SQLSTATE 42P10: no unique or exclusion constraint matches the
// ON CONFLICT specification.
func isMissingConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "42P10") ||
		strings.Contains(s, "no unique or exclusion constraint")
}

func ToPipelineLeadModel(pipelineLead *entity.PipelineLead) *PipelineLead {
	return &PipelineLead{
		ID:         pipelineLead.ID,
		TenantID:   pipelineLead.TenantID,
		LeadID:     pipelineLead.LeadID,
		CampaignID: pipelineLead.CampaignID,
		Stage:      pipelineLead.Stage,
		CreateTime: pipelineLead.CreateTime,
		UpdateTime: pipelineLead.UpdateTime,
	}
}
