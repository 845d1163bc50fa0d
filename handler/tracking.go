package handler

import (
	"context"

	"crm/entity"
	"crm/pkg/errutil"
	"crm/pkg/goutil"
	"crm/pkg/validator"
	"crm/repo"
)

type TrackingHandler interface {
	RefreshCampaignCounters(ctx context.Context, req *RefreshCampaignCountersRequest, res *RefreshCampaignCountersResponse) error
}

type trackingHandler struct {
	campaignRepo      repo.CampaignRepo
	trackingEventRepo repo.TrackingEventRepo
}

func NewTrackingHandler(campaignRepo repo.CampaignRepo, trackingEventRepo repo.TrackingEventRepo) TrackingHandler {
	return &trackingHandler{
		campaignRepo:      campaignRepo,
		trackingEventRepo: trackingEventRepo,
	}
}

type RefreshCampaignCountersRequest struct {
	ContextInfo

	CampaignID *uint64 `json:"campaign_id,omitempty"`
}

func (r *RefreshCampaignCountersRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

type RefreshCampaignCountersResponse struct {
	Sent      *uint64 `json:"sent,omitempty"`
	Delivered *uint64 `json:"delivered,omitempty"`
	Opened    *uint64 `json:"opened,omitempty"`
	Clicked   *uint64 `json:"clicked,omitempty"`
	Bounced   *uint64 `json:"bounced,omitempty"`
}

var RefreshCampaignCountersValidator = validator.MustForm(map[string]validator.Validator{
	"ContextInfo": ContextInfoValidator,
	"campaign_id": IDValidator(false),
})

// RefreshCampaignCounters overwrites the campaign's denormalized
// counters with distinct-lead counts projected from the ledger. The
// projection is pure, so running it again with no new events is a
// no-op.
func (h *trackingHandler) RefreshCampaignCounters(ctx context.Context, req *RefreshCampaignCountersRequest, res *RefreshCampaignCountersResponse) error {
	if err := RefreshCampaignCountersValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	campaign, err := h.campaignRepo.Get(ctx, req.GetTenantID(), req.GetCampaignID())
	if err != nil {
		return err
	}

	counts, err := h.trackingEventRepo.DistinctLeadCounts(ctx, req.GetTenantID(), campaign.GetID())
	if err != nil {
		return err
	}

	if err := h.campaignRepo.SetCounters(ctx, campaign, counts); err != nil {
		return err
	}

	res.Sent = goutil.Uint64(counts[entity.TrackingEventTypeSent])
	res.Delivered = goutil.Uint64(counts[entity.TrackingEventTypeDelivered])
	res.Opened = goutil.Uint64(counts[entity.TrackingEventTypeOpen])
	res.Clicked = goutil.Uint64(counts[entity.TrackingEventTypeClick])
	res.Bounced = goutil.Uint64(counts[entity.TrackingEventTypeBounce])

	return nil
}
