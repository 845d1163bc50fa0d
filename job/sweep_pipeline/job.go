package sweep_pipeline

import (
	"context"

	"github.com/rs/zerolog/log"

	"crm/handler"
	"crm/pkg/service"
	"crm/repo"
)

type SweepPipeline struct {
	campaignRepo    repo.CampaignRepo
	pipelineHandler handler.PipelineHandler
}

func New(campaignRepo repo.CampaignRepo, pipelineHandler handler.PipelineHandler) service.Job {
	return &SweepPipeline{
		campaignRepo:    campaignRepo,
		pipelineHandler: pipelineHandler,
	}
}

func (h *SweepPipeline) Init(_ context.Context) error {
	return nil
}

// Run repairs pipeline rows for clicks that never produced one.
func (h *SweepPipeline) Run(ctx context.Context) error {
	campaigns, err := h.campaignRepo.GetReconcilable(ctx, 0)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaigns failed: %v", err)
		return err
	}

	var inserted uint64
	for _, campaign := range campaigns {
		res := new(handler.SweepCampaignPipelineResponse)
		if err := h.pipelineHandler.SweepCampaignPipeline(ctx, &handler.SweepCampaignPipelineRequest{
			ContextInfo: handler.ContextInfo{
				TenantID: campaign.TenantID,
			},
			CampaignID: campaign.ID,
		}, res); err != nil {
			log.Ctx(ctx).Error().Msgf("[campaign ID %d] sweep pipeline failed: %v", campaign.GetID(), err)
			continue
		}

		if res.Inserted != nil {
			inserted += *res.Inserted
		}
	}

	log.Ctx(ctx).Info().Msgf("pipeline sweep done, campaigns: %d, rows inserted: %d", len(campaigns), inserted)

	return nil
}

func (h *SweepPipeline) CleanUp(_ context.Context) error {
	return nil
}
