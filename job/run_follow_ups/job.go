package run_follow_ups

import (
	"context"

	"github.com/rs/zerolog/log"

	"crm/handler"
	"crm/pkg/service"
	"crm/repo"
)

type RunFollowUps struct {
	campaignRepo    repo.CampaignRepo
	followUpHandler handler.FollowUpHandler
}

func New(campaignRepo repo.CampaignRepo, followUpHandler handler.FollowUpHandler) service.Job {
	return &RunFollowUps{
		campaignRepo:    campaignRepo,
		followUpHandler: followUpHandler,
	}
}

func (h *RunFollowUps) Init(_ context.Context) error {
	return nil
}

// Run triggers due follow-up waves across eligible campaigns.
func (h *RunFollowUps) Run(ctx context.Context) error {
	campaigns, err := h.campaignRepo.GetReconcilable(ctx, 0)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaigns failed: %v", err)
		return err
	}

	var waves uint32
	for _, campaign := range campaigns {
		res := new(handler.RunCampaignFollowUpsResponse)
		if err := h.followUpHandler.RunCampaignFollowUps(ctx, &handler.RunCampaignFollowUpsRequest{
			ContextInfo: handler.ContextInfo{
				TenantID: campaign.TenantID,
			},
			CampaignID: campaign.ID,
		}, res); err != nil {
			log.Ctx(ctx).Error().Msgf("[campaign ID %d] run follow-ups failed: %v", campaign.GetID(), err)
			continue
		}

		if res.WavesTriggered != nil {
			waves += *res.WavesTriggered
		}
	}

	log.Ctx(ctx).Info().Msgf("follow-up pass done, campaigns: %d, waves triggered: %d", len(campaigns), waves)

	return nil
}

func (h *RunFollowUps) CleanUp(_ context.Context) error {
	return nil
}
