package reconcile_campaigns

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"crm/entity"
	"crm/handler"
	"crm/pkg/service"
	"crm/repo"
)

// interCampaignPause throttles provider calls between campaigns so
// the batch stays under the provider's rate limits.
const interCampaignPause = 3 * time.Second

type ReconcileCampaigns struct {
	campaignRepo     repo.CampaignRepo
	reconcileHandler handler.ReconcileHandler
}

func New(campaignRepo repo.CampaignRepo, reconcileHandler handler.ReconcileHandler) service.Job {
	return &ReconcileCampaigns{
		campaignRepo:     campaignRepo,
		reconcileHandler: reconcileHandler,
	}
}

func (h *ReconcileCampaigns) Init(_ context.Context) error {
	return nil
}

// Run reconciles all eligible campaigns sequentially. A failing
// campaign contributes zero events for the pass and never halts the
// others.
func (h *ReconcileCampaigns) Run(ctx context.Context) error {
	campaigns, err := h.campaignRepo.GetReconcilable(ctx, 0)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get reconcilable campaigns failed: %v", err)
		return err
	}

	log.Ctx(ctx).Info().Msgf("number of campaigns to reconcile: %d", len(campaigns))

	type campaignResult struct {
		campaign  *entity.Campaign
		newEvents uint64
		err       error
	}

	var (
		statusG    = new(errgroup.Group)
		resultChan = make(chan campaignResult, len(campaigns))

		totalNewEvents uint64
		failedCount    int
	)
	statusG.Go(func() error {
		for r := range resultChan {
			if r.err != nil {
				failedCount++
				log.Ctx(ctx).Error().Msgf("[campaign ID %d] reconcile failed: %v", r.campaign.GetID(), r.err)
				continue
			}
			totalNewEvents += r.newEvents
			log.Ctx(ctx).Info().Msgf("[campaign ID %d] reconciled, new events: %d", r.campaign.GetID(), r.newEvents)
		}
		return nil
	})

	for i, campaign := range campaigns {
		if i > 0 {
			time.Sleep(interCampaignPause)
		}

		res := new(handler.ReconcileCampaignResponse)
		err := h.reconcileHandler.ReconcileCampaign(ctx, &handler.ReconcileCampaignRequest{
			ContextInfo: handler.ContextInfo{
				TenantID: campaign.TenantID,
			},
			CampaignID: campaign.ID,
		}, res)

		var newEvents uint64
		if res.NewEvents != nil {
			newEvents = *res.NewEvents
		}
		resultChan <- campaignResult{campaign: campaign, newEvents: newEvents, err: err}
	}

	close(resultChan)
	if err := statusG.Wait(); err != nil {
		return err
	}

	log.Ctx(ctx).Info().Msgf("reconciliation pass done, campaigns: %d, failed: %d, new events: %d",
		len(campaigns), failedCount, totalNewEvents)

	return nil
}

func (h *ReconcileCampaigns) CleanUp(_ context.Context) error {
	return nil
}
