package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"crm/entity"
	"crm/pkg/errutil"
	"crm/pkg/goutil"
	"crm/pkg/validator"
	"crm/repo"
)

type FollowUpHandler interface {
	RunCampaignFollowUps(ctx context.Context, req *RunCampaignFollowUpsRequest, res *RunCampaignFollowUpsResponse) error
}

type followUpHandler struct {
	campaignRepo      repo.CampaignRepo
	recipientRepo     repo.CampaignRecipientRepo
	trackingEventRepo repo.TrackingEventRepo
	followUpRepo      repo.FollowUpRepo
	campaignHandler   CampaignHandler
}

func NewFollowUpHandler(
	campaignRepo repo.CampaignRepo,
	recipientRepo repo.CampaignRecipientRepo,
	trackingEventRepo repo.TrackingEventRepo,
	followUpRepo repo.FollowUpRepo,
	campaignHandler CampaignHandler,
) FollowUpHandler {
	return &followUpHandler{
		campaignRepo:      campaignRepo,
		recipientRepo:     recipientRepo,
		trackingEventRepo: trackingEventRepo,
		followUpRepo:      followUpRepo,
		campaignHandler:   campaignHandler,
	}
}

type RunCampaignFollowUpsRequest struct {
	ContextInfo

	CampaignID *uint64 `json:"campaign_id,omitempty"`
}

func (r *RunCampaignFollowUpsRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

type RunCampaignFollowUpsResponse struct {
	WavesTriggered *uint32 `json:"waves_triggered,omitempty"`
	AudienceSize   *uint64 `json:"audience_size,omitempty"`
}

var RunCampaignFollowUpsValidator = validator.MustForm(map[string]validator.Validator{
	"ContextInfo": ContextInfoValidator,
	"campaign_id": IDValidator(false),
})

// RunCampaignFollowUps triggers due follow-up waves for one campaign.
// Audiences are segmented from the ledger: leads who opened but never
// clicked, and leads who never opened. Delay is measured from the
// campaign's most recent send.
func (h *followUpHandler) RunCampaignFollowUps(ctx context.Context, req *RunCampaignFollowUpsRequest, res *RunCampaignFollowUpsResponse) error {
	if err := RunCampaignFollowUpsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	campaign, err := h.campaignRepo.Get(ctx, req.GetTenantID(), req.GetCampaignID())
	if err != nil {
		return err
	}

	now := uint64(time.Now().Unix())

	if campaign.GetStatus() == entity.CampaignStatusCompleted ||
		campaign.GetStatus() == entity.CampaignStatusArchived {
		res.WavesTriggered = goutil.Uint32(0)
		res.AudienceSize = goutil.Uint64(0)
		return nil
	}

	maxSentAt, err := h.recipientRepo.MaxSentAt(ctx, req.GetTenantID(), campaign.GetID())
	if err != nil {
		return err
	}

	// campaigns in surveillance close out after a quiet period
	if campaign.GetStatus() == entity.CampaignStatusWatch {
		if maxSentAt > 0 && now >= maxSentAt+entity.WatchCloseDays*86400 {
			campaign.Status = entity.CampaignStatusCompleted
			campaign.UpdateTime = goutil.Uint64(now)
			if err := h.campaignRepo.Update(ctx, campaign); err != nil {
				return err
			}
		}

		res.WavesTriggered = goutil.Uint32(0)
		res.AudienceSize = goutil.Uint64(0)
		return nil
	}

	followUps, err := h.followUpRepo.GetEnabled(ctx, req.GetTenantID(), campaign.GetID())
	if err != nil {
		return err
	}
	if len(followUps) == 0 || maxSentAt == 0 {
		res.WavesTriggered = goutil.Uint32(0)
		res.AudienceSize = goutil.Uint64(0)
		return nil
	}

	var (
		wavesTriggered uint32
		audienceSize   uint64
		allExhausted   = true
	)
	for _, fu := range followUps {
		if fu.GetWavesSent() >= entity.MaxFollowUpCount {
			continue
		}
		allExhausted = false

		due := now >= maxSentAt+uint64(fu.GetDelayDays())*86400
		// one wave per send cycle: skip until new sends happened
		// since the last wave
		if !due || fu.GetLastWaveAt() >= maxSentAt {
			continue
		}

		audience, err := h.segmentAudience(ctx, req.GetTenantID(), campaign.GetID(), fu.GetMode())
		if err != nil {
			return err
		}
		if len(audience) == 0 {
			continue
		}

		if err := h.recipientRepo.SetPendingByLeadIDs(ctx, req.GetTenantID(), campaign.GetID(), audience); err != nil {
			return err
		}

		sendRes := new(SendCampaignEmailsResponse)
		if err := h.campaignHandler.SendCampaignEmails(ctx, &SendCampaignEmailsRequest{
			ContextInfo: req.ContextInfo,
			CampaignID:  campaign.ID,
			TemplateID:  fu.TemplateID,
		}, sendRes); err != nil {
			log.Ctx(ctx).Error().Msgf("follow-up wave dispatch failed, campaign_id: %d, mode: %d, err: %v",
				campaign.GetID(), fu.GetMode(), err)
			continue
		}

		fu.WavesSent = goutil.Uint32(fu.GetWavesSent() + 1)
		fu.LastWaveAt = goutil.Uint64(now)
		fu.UpdateTime = goutil.Uint64(now)
		if err := h.followUpRepo.Update(ctx, fu); err != nil {
			log.Ctx(ctx).Error().Msgf("update follow-up failed, campaign_id: %d, mode: %d, err: %v",
				campaign.GetID(), fu.GetMode(), err)
		}

		wavesTriggered++
		audienceSize += uint64(len(audience))
	}

	status := campaign.GetStatus()
	switch {
	case allExhausted:
		status = entity.CampaignStatusWatch
	case wavesTriggered > 0:
		status = entity.CampaignStatusFollowUp
	}
	if status != campaign.GetStatus() {
		campaign.Status = status
		campaign.UpdateTime = goutil.Uint64(now)
		if err := h.campaignRepo.Update(ctx, campaign); err != nil {
			return err
		}
	}

	res.WavesTriggered = goutil.Uint32(wavesTriggered)
	res.AudienceSize = goutil.Uint64(audienceSize)

	return nil
}

func (h *followUpHandler) segmentAudience(ctx context.Context, tenantID, campaignID uint64, mode entity.FollowUpMode) ([]uint64, error) {
	switch mode {
	case entity.FollowUpModeOpenedNotClicked:
		opened, err := h.trackingEventRepo.GetLeadIDsWithEvent(ctx, tenantID, campaignID, entity.TrackingEventTypeOpen)
		if err != nil {
			return nil, err
		}
		clicked, err := h.trackingEventRepo.GetLeadIDsWithEvent(ctx, tenantID, campaignID, entity.TrackingEventTypeClick)
		if err != nil {
			return nil, err
		}
		return subtract(opened, clicked), nil
	case entity.FollowUpModeNotOpened:
		sent, err := h.trackingEventRepo.GetLeadIDsWithEvent(ctx, tenantID, campaignID, entity.TrackingEventTypeSent)
		if err != nil {
			return nil, err
		}
		opened, err := h.trackingEventRepo.GetLeadIDsWithEvent(ctx, tenantID, campaignID, entity.TrackingEventTypeOpen)
		if err != nil {
			return nil, err
		}
		// a click implies the email was seen even when the provider
		// never reported an open
		clicked, err := h.trackingEventRepo.GetLeadIDsWithEvent(ctx, tenantID, campaignID, entity.TrackingEventTypeClick)
		if err != nil {
			return nil, err
		}
		return subtract(subtract(sent, opened), clicked), nil
	}
	return nil, nil
}

func subtract(from, exclude []uint64) []uint64 {
	excluded := make(map[uint64]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	res := make([]uint64, 0, len(from))
	for _, id := range from {
		if !excluded[id] {
			res = append(res, id)
		}
	}
	return res
}
