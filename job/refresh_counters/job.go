package refresh_counters

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"crm/handler"
	"crm/pkg/service"
	"crm/repo"
)

type RefreshCounters struct {
	campaignRepo    repo.CampaignRepo
	trackingHandler handler.TrackingHandler
}

func New(campaignRepo repo.CampaignRepo, trackingHandler handler.TrackingHandler) service.Job {
	return &RefreshCounters{
		campaignRepo:    campaignRepo,
		trackingHandler: trackingHandler,
	}
}

func (h *RefreshCounters) Init(_ context.Context) error {
	return nil
}

// Run recomputes denormalized counters for all eligible campaigns.
// The projection only reads the local ledger, so campaigns can be
// refreshed concurrently.
func (h *RefreshCounters) Run(ctx context.Context) error {
	campaigns, err := h.campaignRepo.GetReconcilable(ctx, 0)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaigns failed: %v", err)
		return err
	}

	log.Ctx(ctx).Info().Msgf("number of campaigns to refresh: %d", len(campaigns))

	var (
		taskG = new(errgroup.Group)
		c     = 10
		ch    = make(chan struct{}, c)
	)
	for _, campaign := range campaigns {
		ch <- struct{}{}

		campaign := campaign
		taskG.Go(func() error {
			defer func() {
				<-ch
			}()

			res := new(handler.RefreshCampaignCountersResponse)
			if err := h.trackingHandler.RefreshCampaignCounters(ctx, &handler.RefreshCampaignCountersRequest{
				ContextInfo: handler.ContextInfo{
					TenantID: campaign.TenantID,
				},
				CampaignID: campaign.ID,
			}, res); err != nil {
				log.Ctx(ctx).Error().Msgf("[campaign ID %d] refresh counters failed: %v", campaign.GetID(), err)
			}

			return nil
		})
	}

	return taskG.Wait()
}

func (h *RefreshCounters) CleanUp(_ context.Context) error {
	return nil
}
