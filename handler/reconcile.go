package handler

import (
	"context"

	"github.com/rs/zerolog/log"

	"crm/dep"
	"crm/entity"
	"crm/pkg/errutil"
	"crm/pkg/goutil"
	"crm/pkg/mq"
	"crm/pkg/validator"
	"crm/repo"
)

// EventFeedWindowDays is the trailing window queried from the
// provider on each reconciliation pass.
const EventFeedWindowDays = 7

type ReconcileHandler interface {
	ReconcileCampaign(ctx context.Context, req *ReconcileCampaignRequest, res *ReconcileCampaignResponse) error
}

type reconcileHandler struct {
	campaignRepo      repo.CampaignRepo
	recipientRepo     repo.CampaignRecipientRepo
	leadRepo          repo.LeadRepo
	trackingEventRepo repo.TrackingEventRepo
	pipelineHandler   PipelineHandler
	eventFeed         dep.EventFeed
	producer          *mq.Producer
}

func NewReconcileHandler(
	campaignRepo repo.CampaignRepo,
	recipientRepo repo.CampaignRecipientRepo,
	leadRepo repo.LeadRepo,
	trackingEventRepo repo.TrackingEventRepo,
	pipelineHandler PipelineHandler,
	eventFeed dep.EventFeed,
	producer *mq.Producer,
) ReconcileHandler {
	return &reconcileHandler{
		campaignRepo:      campaignRepo,
		recipientRepo:     recipientRepo,
		leadRepo:          leadRepo,
		trackingEventRepo: trackingEventRepo,
		pipelineHandler:   pipelineHandler,
		eventFeed:         eventFeed,
		producer:          producer,
	}
}

type ReconcileCampaignRequest struct {
	ContextInfo

	CampaignID *uint64 `json:"campaign_id,omitempty"`
}

func (r *ReconcileCampaignRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

type ReconcileCampaignResponse struct {
	NewEvents *uint64 `json:"new_events,omitempty"`
	Clicks    *uint64 `json:"clicks,omitempty"`
}

var ReconcileCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"ContextInfo": ContextInfoValidator,
	"campaign_id": IDValidator(false),
})

func (h *reconcileHandler) ReconcileCampaign(ctx context.Context, req *ReconcileCampaignRequest, res *ReconcileCampaignResponse) error {
	if err := ReconcileCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	campaign, err := h.campaignRepo.Get(ctx, req.GetTenantID(), req.GetCampaignID())
	if err != nil {
		return err
	}

	if campaign.GetType() != entity.CampaignTypeEmail {
		return ErrNotEmailCampaign
	}

	leadsByEmail, err := h.buildRecipientIndex(ctx, req.GetTenantID(), campaign)
	if err != nil {
		return err
	}
	if len(leadsByEmail) == 0 {
		res.NewEvents = goutil.Uint64(0)
		res.Clicks = goutil.Uint64(0)
		return nil
	}

	records, err := h.eventFeed.FetchRecent(ctx, EventFeedWindowDays)
	if err != nil {
		return err
	}

	var newEvents, clicks uint64
	for _, record := range records {
		if record.EventType == entity.TrackingEventTypeIgnored ||
			record.EventType == entity.TrackingEventTypeUnknown {
			continue
		}

		lead, ok := leadsByEmail[entity.NormalizeEmail(record.Email)]
		if !ok {
			continue
		}

		fresh, err := h.trackingEventRepo.CreateIfAbsent(ctx, entity.NewTrackingEvent(
			req.GetTenantID(),
			campaign.GetID(),
			lead.GetID(),
			record.EventType,
			record.EventTime,
		))
		if err != nil {
			log.Ctx(ctx).Error().Msgf("ingest event failed, campaign_id: %d, lead_id: %d, event_type: %d, err: %v",
				campaign.GetID(), lead.GetID(), record.EventType, err)
			continue
		}

		// clicks refresh the pipeline row even when the ledger
		// already had the event
		if record.EventType == entity.TrackingEventTypeClick {
			clicks++
			if err := h.pipelineHandler.UpsertPostClick(ctx, req.GetTenantID(), lead.GetID(), campaign.GetID()); err != nil {
				log.Ctx(ctx).Error().Msgf("pipeline upsert failed, campaign_id: %d, lead_id: %d, err: %v",
					campaign.GetID(), lead.GetID(), err)
			}
		}

		if fresh {
			newEvents++
			h.publishEvent(ctx, req.GetTenantID(), campaign.GetID(), lead.GetID(), record.EventType)
		}
	}

	res.NewEvents = goutil.Uint64(newEvents)
	res.Clicks = goutil.Uint64(clicks)

	return nil
}

// buildRecipientIndex loads the campaign's sent recipients, makes
// sure each has a sent ledger row, and keys their leads by
// normalized email for matching against provider records.
func (h *reconcileHandler) buildRecipientIndex(ctx context.Context, tenantID uint64, campaign *entity.Campaign) (map[string]*entity.Lead, error) {
	recipients, err := h.recipientRepo.GetSent(ctx, tenantID, campaign.GetID())
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	leadIDs := make([]uint64, 0, len(recipients))
	sentAtByLead := make(map[uint64]uint64, len(recipients))
	for _, r := range recipients {
		leadIDs = append(leadIDs, r.GetLeadID())
		sentAtByLead[r.GetLeadID()] = r.GetSentAt()
	}

	leads, err := h.leadRepo.GetByIDs(ctx, tenantID, leadIDs)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*entity.Lead, len(leads))
	for _, lead := range leads {
		if _, err := h.trackingEventRepo.CreateIfAbsent(ctx, entity.NewTrackingEvent(
			tenantID,
			campaign.GetID(),
			lead.GetID(),
			entity.TrackingEventTypeSent,
			sentAtByLead[lead.GetID()],
		)); err != nil {
			log.Ctx(ctx).Error().Msgf("backfill sent event failed, campaign_id: %d, lead_id: %d, err: %v",
				campaign.GetID(), lead.GetID(), err)
		}

		if email := lead.NormalizedEmail(); email != "" {
			index[email] = lead
		}
	}

	return index, nil
}

func (h *reconcileHandler) publishEvent(ctx context.Context, tenantID, campaignID, leadID uint64, eventType entity.TrackingEventType) {
	if h.producer == nil {
		return
	}

	if err := h.producer.SendMessage(&mq.Message{
		Payload: mq.PayloadEngagementEvent,
		Key:     goutil.Uint64Str(campaignID),
		Body: &mq.EngagementEvent{
			TenantID:   goutil.Uint64(tenantID),
			CampaignID: goutil.Uint64(campaignID),
			LeadID:     goutil.Uint64(leadID),
			EventType:  goutil.Uint32(uint32(eventType)),
		},
	}); err != nil {
		log.Ctx(ctx).Error().Msgf("publish engagement event failed, campaign_id: %d, err: %v", campaignID, err)
	}
}
