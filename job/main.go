package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"crm/config"
	"crm/dep"
	"crm/handler"
	"crm/job/reconcile_campaigns"
	"crm/job/refresh_counters"
	"crm/job/run_follow_ups"
	"crm/job/sweep_pipeline"
	"crm/pkg/logutil"
	"crm/pkg/mq"
	"crm/pkg/service"
	"crm/repo"
)

func main() {
	var (
		opt = config.NewOptions()
		ctx = logutil.InitZeroLog(context.Background(), "DEBUG")
	)

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		opt.ConfigPath = configPath
	}

	cfg := config.NewConfig()
	if err := cfg.Load(ctx, opt.ConfigPath); err != nil {
		log.Ctx(ctx).Error().Msgf("load config failed: %v", err)
		os.Exit(1)
	}

	// base repo
	baseRepo, err := repo.NewBaseRepo(ctx, cfg.MetadataDB)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("init base repo failed, err: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := baseRepo.Close(ctx); err != nil {
			log.Ctx(ctx).Error().Msgf("close base repo failed, err: %v", err)
		}
	}()

	// base cache
	baseCache := repo.NewBaseCache(ctx)
	defer func() {
		if err := baseCache.Close(ctx); err != nil {
			log.Ctx(ctx).Error().Msgf("close base cache failed, err: %v", err)
		}
	}()

	// email service
	emailService, err := dep.NewEmailService(ctx, cfg.Provider)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("init email service failed, err: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := emailService.Close(ctx); err != nil {
			log.Ctx(ctx).Error().Msgf("close email service failed, err: %v", err)
		}
	}()

	// event feed
	eventFeed, err := dep.NewEventFeed(ctx, cfg.Provider)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("init event feed failed, err: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := eventFeed.Close(ctx); err != nil {
			log.Ctx(ctx).Error().Msgf("close event feed failed, err: %v", err)
		}
	}()

	// producer
	producer, err := mq.NewProducer(ctx, cfg.EventProducer)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("init producer failed, err: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			log.Ctx(ctx).Error().Msgf("close producer failed, err: %v", err)
		}
	}()

	// repos
	var (
		campaignRepo      = repo.NewCampaignRepo(ctx, baseRepo)
		recipientRepo     = repo.NewCampaignRecipientRepo(ctx, baseRepo)
		leadRepo          = repo.NewLeadRepo(ctx, baseRepo)
		suppressionRepo   = repo.NewSuppressionRepo(ctx, baseRepo, baseCache)
		quotaRepo         = repo.NewQuotaRepo(ctx, baseRepo)
		tenantRepo        = repo.NewTenantRepo(ctx, baseRepo, baseCache)
		templateRepo      = repo.NewTemplateRepo(ctx, baseRepo)
		trackingEventRepo = repo.NewTrackingEventRepo(ctx, baseRepo)
		pipelineLeadRepo  = repo.NewPipelineLeadRepo(ctx, baseRepo)
		followUpRepo      = repo.NewFollowUpRepo(ctx, baseRepo)
	)

	// handlers
	var (
		campaignHandler = handler.NewCampaignHandler(cfg, campaignRepo, recipientRepo, leadRepo,
			suppressionRepo, quotaRepo, tenantRepo, templateRepo, trackingEventRepo, emailService)
		pipelineHandler  = handler.NewPipelineHandler(trackingEventRepo, pipelineLeadRepo)
		trackingHandler  = handler.NewTrackingHandler(campaignRepo, trackingEventRepo)
		reconcileHandler = handler.NewReconcileHandler(campaignRepo, recipientRepo, leadRepo,
			trackingEventRepo, pipelineHandler, eventFeed, producer)
		followUpHandler = handler.NewFollowUpHandler(campaignRepo, recipientRepo, trackingEventRepo,
			followUpRepo, campaignHandler)
	)

	jobs := map[string]service.Job{
		"reconcile-campaigns": reconcile_campaigns.New(campaignRepo, reconcileHandler),
		"refresh-counters":    refresh_counters.New(campaignRepo, trackingHandler),
		"sweep-pipeline":      sweep_pipeline.New(campaignRepo, pipelineHandler),
		"run-follow-ups":      run_follow_ups.New(campaignRepo, followUpHandler),
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go <job_name>")
		os.Exit(1)
	}

	jobName := os.Args[1]
	job, exists := jobs[jobName]
	if !exists {
		log.Ctx(ctx).Error().Msgf("job %s not found", jobName)
		os.Exit(1)
	}

	if err := job.Init(ctx); err != nil {
		log.Ctx(ctx).Error().Msgf("init job err: %v", err)
		os.Exit(1)
	}

	if err := job.Run(ctx); err != nil {
		log.Ctx(ctx).Error().Msgf("run job err: %v", err)
		os.Exit(1)
	}

	if err := job.CleanUp(ctx); err != nil {
		log.Ctx(ctx).Error().Msgf("cleanup job err: %v", err)
		os.Exit(1)
	}

	log.Ctx(ctx).Info().Msg("job executed successfully")
	os.Exit(0)
}
