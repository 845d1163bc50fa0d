package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"crm/config"
	"crm/dep"
	"crm/handler"
	"crm/middleware"
	"crm/pkg/logutil"
	"crm/pkg/mq"
	"crm/pkg/router"
	"crm/pkg/service"
	"crm/repo"
)

type server struct {
	ctx context.Context
	opt *config.Option
	cfg *config.Config

	baseRepo  repo.BaseRepo
	baseCache repo.BaseCache

	emailService dep.EmailService
	eventFeed    dep.EventFeed
	producer     *mq.Producer
	consumer     *mq.Consumer

	// api handlers
	campaignHandler  handler.CampaignHandler
	reconcileHandler handler.ReconcileHandler
	pipelineHandler  handler.PipelineHandler
	trackingHandler  handler.TrackingHandler
	followUpHandler  handler.FollowUpHandler
}

func main() {
	rand.Seed(time.Now().UTC().UnixNano())

	s := new(server)
	if err := service.Run(s); err != nil {
		log.Fatal().Msg(err.Error())
	}
}

func (s *server) Init() error {
	opt := config.NewOptions()

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		opt.LogLevel = logLevel
	}

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		opt.ConfigPath = configPath
	}

	if serverPort := os.Getenv("PORT"); serverPort != "" {
		if port, err := strconv.Atoi(serverPort); err == nil {
			opt.Port = port
		}
	}

	s.opt = opt

	return nil
}

func (s *server) Start() error {
	var err error

	// ====== init logger ===== //

	s.ctx = logutil.InitZeroLog(context.Background(), s.opt.LogLevel)

	// ===== init config ===== //

	s.cfg = config.NewConfig()
	if err = s.cfg.Load(s.ctx, s.opt.ConfigPath); err != nil {
		log.Ctx(s.ctx).Error().Msgf("load config failed, err: %v", err)
		return err
	}

	// ===== init storage ===== //

	s.baseRepo, err = repo.NewBaseRepo(s.ctx, s.cfg.MetadataDB)
	if err != nil {
		log.Ctx(s.ctx).Error().Msgf("init base repo failed, err: %v", err)
		return err
	}
	defer func() {
		if err != nil && s.baseRepo != nil {
			if err := s.baseRepo.Close(s.ctx); err != nil {
				log.Ctx(s.ctx).Error().Msgf("close base repo failed, err: %v", err)
				return
			}
		}
	}()

	s.baseCache = repo.NewBaseCache(s.ctx)

	// ===== init deps ===== //

	s.emailService, err = dep.NewEmailService(s.ctx, s.cfg.Provider)
	if err != nil {
		log.Ctx(s.ctx).Error().Msgf("init email service failed, err: %v", err)
		return err
	}

	s.eventFeed, err = dep.NewEventFeed(s.ctx, s.cfg.Provider)
	if err != nil {
		log.Ctx(s.ctx).Error().Msgf("init event feed failed, err: %v", err)
		return err
	}

	s.producer, err = mq.NewProducer(s.ctx, s.cfg.EventProducer)
	if err != nil {
		log.Ctx(s.ctx).Error().Msgf("init producer failed, err: %v", err)
		return err
	}
	defer func() {
		if err != nil && s.producer != nil {
			if err := s.producer.Close(); err != nil {
				log.Ctx(s.ctx).Error().Msgf("close producer failed, err: %v", err)
				return
			}
		}
	}()

	// ===== init repos ===== //

	var (
		campaignRepo      = repo.NewCampaignRepo(s.ctx, s.baseRepo)
		recipientRepo     = repo.NewCampaignRecipientRepo(s.ctx, s.baseRepo)
		leadRepo          = repo.NewLeadRepo(s.ctx, s.baseRepo)
		suppressionRepo   = repo.NewSuppressionRepo(s.ctx, s.baseRepo, s.baseCache)
		quotaRepo         = repo.NewQuotaRepo(s.ctx, s.baseRepo)
		tenantRepo        = repo.NewTenantRepo(s.ctx, s.baseRepo, s.baseCache)
		templateRepo      = repo.NewTemplateRepo(s.ctx, s.baseRepo)
		trackingEventRepo = repo.NewTrackingEventRepo(s.ctx, s.baseRepo)
		pipelineLeadRepo  = repo.NewPipelineLeadRepo(s.ctx, s.baseRepo)
		followUpRepo      = repo.NewFollowUpRepo(s.ctx, s.baseRepo)
	)

	// ===== init handlers ===== //

	s.campaignHandler = handler.NewCampaignHandler(s.cfg, campaignRepo, recipientRepo, leadRepo,
		suppressionRepo, quotaRepo, tenantRepo, templateRepo, trackingEventRepo, s.emailService)
	s.pipelineHandler = handler.NewPipelineHandler(trackingEventRepo, pipelineLeadRepo)
	s.trackingHandler = handler.NewTrackingHandler(campaignRepo, trackingEventRepo)
	s.reconcileHandler = handler.NewReconcileHandler(campaignRepo, recipientRepo, leadRepo,
		trackingEventRepo, s.pipelineHandler, s.eventFeed, s.producer)
	s.followUpHandler = handler.NewFollowUpHandler(campaignRepo, recipientRepo, trackingEventRepo,
		followUpRepo, s.campaignHandler)

	// ===== init consumer ===== //

	// counters refresh as engagement events land, instead of waiting
	// for the next scheduled projection
	mq.RegisterHandler(mq.PayloadEngagementEvent, func(ctx context.Context, msg *mq.Message) error {
		event := new(mq.EngagementEvent)
		if err := msg.ParseBody(event); err != nil {
			return err
		}

		return s.trackingHandler.RefreshCampaignCounters(ctx, &handler.RefreshCampaignCountersRequest{
			ContextInfo: handler.ContextInfo{
				TenantID: event.TenantID,
			},
			CampaignID: event.CampaignID,
		}, new(handler.RefreshCampaignCountersResponse))
	})

	s.consumer, err = mq.NewConsumer(s.ctx, s.cfg.EventConsumer)
	if err != nil {
		log.Ctx(s.ctx).Error().Msgf("init consumer failed, err: %v", err)
		return err
	}

	// ===== start server ===== //

	go func() {
		addr := fmt.Sprintf(":%d", s.opt.Port)

		log.Info().Msgf("starting HTTP server at %s", addr)

		httpServer := &http.Server{
			BaseContext: func(_ net.Listener) context.Context {
				return s.ctx
			},
			Addr:    addr,
			Handler: middleware.Log(middleware.Cors(s.registerRoutes())),
		}
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fail to start HTTP server, err: %v", err)
		}
	}()

	return nil
}

func (s *server) Stop() error {
	if s.consumer != nil {
		if err := s.consumer.Close(); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close consumer failed, err: %v", err)
			return err
		}
	}

	if s.producer != nil {
		if err := s.producer.Close(); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close producer failed, err: %v", err)
			return err
		}
	}

	if s.eventFeed != nil {
		if err := s.eventFeed.Close(s.ctx); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close event feed failed, err: %v", err)
			return err
		}
	}

	if s.emailService != nil {
		if err := s.emailService.Close(s.ctx); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close email service failed, err: %v", err)
			return err
		}
	}

	if s.baseCache != nil {
		if err := s.baseCache.Close(s.ctx); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close base cache failed, err: %v", err)
			return err
		}
	}

	if s.baseRepo != nil {
		if err := s.baseRepo.Close(s.ctx); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close base repo failed, err: %v", err)
			return err
		}
	}

	return nil
}

type HealthCheckRequest struct{}

type HealthCheckResponse struct{}

func (s *server) registerRoutes() http.Handler {
	r := &router.HttpRouter{
		Router: mux.NewRouter(),
	}

	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathHealthCheck,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(HealthCheckRequest),
			Res: new(HealthCheckResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return nil
			},
		},
	})

	// send_campaign_emails
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathSendCampaignEmails,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.SendCampaignEmailsRequest),
			Res: new(handler.SendCampaignEmailsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.SendCampaignEmails(ctx, req.(*handler.SendCampaignEmailsRequest), res.(*handler.SendCampaignEmailsResponse))
			},
		},
	})

	// get_campaign_stats
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetCampaignStats,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.GetCampaignStatsRequest),
			Res: new(handler.GetCampaignStatsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.GetCampaignStats(ctx, req.(*handler.GetCampaignStatsRequest), res.(*handler.GetCampaignStatsResponse))
			},
		},
	})

	// reconcile_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathReconcileCampaign,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.ReconcileCampaignRequest),
			Res: new(handler.ReconcileCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.reconcileHandler.ReconcileCampaign(ctx, req.(*handler.ReconcileCampaignRequest), res.(*handler.ReconcileCampaignResponse))
			},
		},
	})

	// record_click
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathRecordClick,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.RecordClickRequest),
			Res: new(handler.RecordClickResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.pipelineHandler.RecordClick(ctx, req.(*handler.RecordClickRequest), res.(*handler.RecordClickResponse))
			},
		},
	})

	// refresh_campaign_counters
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathRefreshCampaignCounters,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.RefreshCampaignCountersRequest),
			Res: new(handler.RefreshCampaignCountersResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.trackingHandler.RefreshCampaignCounters(ctx, req.(*handler.RefreshCampaignCountersRequest), res.(*handler.RefreshCampaignCountersResponse))
			},
		},
	})

	// sweep_campaign_pipeline
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathSweepCampaignPipeline,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.SweepCampaignPipelineRequest),
			Res: new(handler.SweepCampaignPipelineResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.pipelineHandler.SweepCampaignPipeline(ctx, req.(*handler.SweepCampaignPipelineRequest), res.(*handler.SweepCampaignPipelineResponse))
			},
		},
	})

	// run_campaign_follow_ups
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathRunCampaignFollowUps,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.RunCampaignFollowUpsRequest),
			Res: new(handler.RunCampaignFollowUpsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.followUpHandler.RunCampaignFollowUps(ctx, req.(*handler.RunCampaignFollowUpsRequest), res.(*handler.RunCampaignFollowUpsResponse))
			},
		},
	})

	return r
}
