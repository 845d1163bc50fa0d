package handler

import (
	"context"

	"github.com/rs/zerolog/log"

	"crm/entity"
	"crm/pkg/errutil"
	"crm/pkg/goutil"
	"crm/pkg/validator"
	"crm/repo"
)

type PipelineHandler interface {
	RecordClick(ctx context.Context, req *RecordClickRequest, res *RecordClickResponse) error
	SweepCampaignPipeline(ctx context.Context, req *SweepCampaignPipelineRequest, res *SweepCampaignPipelineResponse) error

	// UpsertPostClick places the lead at the post-click funnel stage.
	// Called on every observed click, fresh or not, so a re-observed
	// click still keeps the pipeline row current.
	UpsertPostClick(ctx context.Context, tenantID, leadID, campaignID uint64) error
}

type pipelineHandler struct {
	trackingEventRepo repo.TrackingEventRepo
	pipelineLeadRepo  repo.PipelineLeadRepo
}

func NewPipelineHandler(trackingEventRepo repo.TrackingEventRepo, pipelineLeadRepo repo.PipelineLeadRepo) PipelineHandler {
	return &pipelineHandler{
		trackingEventRepo: trackingEventRepo,
		pipelineLeadRepo:  pipelineLeadRepo,
	}
}

func (h *pipelineHandler) UpsertPostClick(ctx context.Context, tenantID, leadID, campaignID uint64) error {
	return h.pipelineLeadRepo.UpsertStage(ctx, entity.NewPipelineLead(
		tenantID,
		leadID,
		campaignID,
		entity.StagePostClick,
	))
}

type RecordClickRequest struct {
	ContextInfo

	CampaignID *uint64 `json:"campaign_id,omitempty"`
	LeadID     *uint64 `json:"lead_id,omitempty"`
}

func (r *RecordClickRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

func (r *RecordClickRequest) GetLeadID() uint64 {
	if r != nil && r.LeadID != nil {
		return *r.LeadID
	}
	return 0
}

type RecordClickResponse struct {
	NewEvent *bool `json:"new_event,omitempty"`
}

var RecordClickValidator = validator.MustForm(map[string]validator.Validator{
	"ContextInfo": ContextInfoValidator,
	"campaign_id": IDValidator(false),
	"lead_id":     IDValidator(false),
})

func (h *pipelineHandler) RecordClick(ctx context.Context, req *RecordClickRequest, res *RecordClickResponse) error {
	if err := RecordClickValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	fresh, err := h.trackingEventRepo.CreateIfAbsent(ctx, entity.NewTrackingEvent(
		req.GetTenantID(),
		req.GetCampaignID(),
		req.GetLeadID(),
		entity.TrackingEventTypeClick,
		0,
	))
	if err != nil {
		return err
	}

	if err := h.UpsertPostClick(ctx, req.GetTenantID(), req.GetLeadID(), req.GetCampaignID()); err != nil {
		return err
	}

	res.NewEvent = goutil.Bool(fresh)

	return nil
}

type SweepCampaignPipelineRequest struct {
	ContextInfo

	CampaignID *uint64 `json:"campaign_id,omitempty"`
}

func (r *SweepCampaignPipelineRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

type SweepCampaignPipelineResponse struct {
	Inserted *uint64 `json:"inserted,omitempty"`
}

var SweepCampaignPipelineValidator = validator.MustForm(map[string]validator.Validator{
	"ContextInfo": ContextInfoValidator,
	"campaign_id": IDValidator(false),
})

// SweepCampaignPipeline repairs clicks that never produced a pipeline
// row, e.g. rows written before click propagation existed.
func (h *pipelineHandler) SweepCampaignPipeline(ctx context.Context, req *SweepCampaignPipelineRequest, res *SweepCampaignPipelineResponse) error {
	if err := SweepCampaignPipelineValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	clickLeadIDs, err := h.trackingEventRepo.GetLeadIDsWithEvent(
		ctx, req.GetTenantID(), req.GetCampaignID(), entity.TrackingEventTypeClick)
	if err != nil {
		return err
	}

	pipelineLeadIDs, err := h.pipelineLeadRepo.GetLeadIDs(ctx, req.GetTenantID(), req.GetCampaignID())
	if err != nil {
		return err
	}

	existing := make(map[uint64]bool, len(pipelineLeadIDs))
	for _, id := range pipelineLeadIDs {
		existing[id] = true
	}

	var inserted uint64
	for _, leadID := range clickLeadIDs {
		if existing[leadID] {
			continue
		}

		if err := h.UpsertPostClick(ctx, req.GetTenantID(), leadID, req.GetCampaignID()); err != nil {
			log.Ctx(ctx).Error().Msgf("sweep pipeline upsert failed, campaign_id: %d, lead_id: %d, err: %v",
				req.GetCampaignID(), leadID, err)
			continue
		}
		inserted++
	}

	res.Inserted = goutil.Uint64(inserted)

	return nil
}
