package config

const (
	PathHealthCheck             = "/"
	PathSendCampaignEmails      = "/send_campaign_emails"
	PathGetCampaignStats        = "/get_campaign_stats"
	PathReconcileCampaign       = "/reconcile_campaign"
	PathRecordClick             = "/record_click"
	PathRefreshCampaignCounters = "/refresh_campaign_counters"
	PathSweepCampaignPipeline   = "/sweep_campaign_pipeline"
	PathRunCampaignFollowUps    = "/run_campaign_follow_ups"
)

const (
	DefaultPort   = 9090
	LogLevelDebug = "DEBUG"
)

var (
	EmptyJson = []byte("{}")
)
