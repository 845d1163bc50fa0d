package handler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"crm/config"
	"crm/dep"
	"crm/entity"
	"crm/pkg/errutil"
	"crm/pkg/goutil"
	"crm/pkg/validator"
	"crm/repo"
)

var (
	ErrNotEmailCampaign = errutil.BadRequestError(errors.New("campaign is not an email campaign"))
	ErrNoTemplate       = errutil.BadRequestError(errors.New("campaign has no email template"))
)

type CampaignHandler interface {
	SendCampaignEmails(ctx context.Context, req *SendCampaignEmailsRequest, res *SendCampaignEmailsResponse) error
	GetCampaignStats(ctx context.Context, req *GetCampaignStatsRequest, res *GetCampaignStatsResponse) error
}

type campaignHandler struct {
	cfg               *config.Config
	campaignRepo      repo.CampaignRepo
	recipientRepo     repo.CampaignRecipientRepo
	leadRepo          repo.LeadRepo
	suppressionRepo   repo.SuppressionRepo
	quotaRepo         repo.QuotaRepo
	tenantRepo        repo.TenantRepo
	templateRepo      repo.TemplateRepo
	trackingEventRepo repo.TrackingEventRepo
	emailService      dep.EmailService
}

func NewCampaignHandler(
	cfg *config.Config,
	campaignRepo repo.CampaignRepo,
	recipientRepo repo.CampaignRecipientRepo,
	leadRepo repo.LeadRepo,
	suppressionRepo repo.SuppressionRepo,
	quotaRepo repo.QuotaRepo,
	tenantRepo repo.TenantRepo,
	templateRepo repo.TemplateRepo,
	trackingEventRepo repo.TrackingEventRepo,
	emailService dep.EmailService,
) CampaignHandler {
	return &campaignHandler{
		cfg:               cfg,
		campaignRepo:      campaignRepo,
		recipientRepo:     recipientRepo,
		leadRepo:          leadRepo,
		suppressionRepo:   suppressionRepo,
		quotaRepo:         quotaRepo,
		tenantRepo:        tenantRepo,
		templateRepo:      templateRepo,
		trackingEventRepo: trackingEventRepo,
		emailService:      emailService,
	}
}

type SendCampaignEmailsRequest struct {
	ContextInfo

	CampaignID *uint64 `json:"campaign_id,omitempty"`
	// TemplateID overrides the campaign's template, used by follow-up
	// waves.
	TemplateID *uint64 `json:"template_id,omitempty"`
}

func (r *SendCampaignEmailsRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

func (r *SendCampaignEmailsRequest) GetTemplateID() uint64 {
	if r != nil && r.TemplateID != nil {
		return *r.TemplateID
	}
	return 0
}

type SendCampaignEmailsResponse struct {
	Sent   *uint64 `json:"sent,omitempty"`
	Failed *uint64 `json:"failed,omitempty"`
	Total  *uint64 `json:"total,omitempty"`
}

var SendCampaignEmailsValidator = validator.MustForm(map[string]validator.Validator{
	"ContextInfo": ContextInfoValidator,
	"campaign_id": IDValidator(false),
	"template_id": IDValidator(true),
})

func (h *campaignHandler) SendCampaignEmails(ctx context.Context, req *SendCampaignEmailsRequest, res *SendCampaignEmailsResponse) error {
	if err := SendCampaignEmailsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	tenant, err := h.tenantRepo.GetByID(ctx, req.GetTenantID())
	if err != nil {
		return err
	}
	req.SetTenant(tenant)

	campaign, err := h.campaignRepo.Get(ctx, req.GetTenantID(), req.GetCampaignID())
	if err != nil {
		return err
	}

	if campaign.GetType() != entity.CampaignTypeEmail {
		return ErrNotEmailCampaign
	}

	templateID := req.GetTemplateID()
	if templateID == 0 {
		templateID = campaign.GetTemplateID()
	}
	if templateID == 0 {
		return ErrNoTemplate
	}

	template, err := h.templateRepo.GetByID(ctx, req.GetTenantID(), templateID)
	if err != nil {
		return err
	}

	recipients, err := h.getEligibleRecipients(ctx, req.GetTenantID(), campaign)
	if err != nil {
		return err
	}

	// quota is checked once, before anything is sent, so that a
	// denied batch sends nothing at all
	if !req.IsSuperAdmin() {
		check, err := h.quotaRepo.CheckQuota(ctx, req.GetTenantID(), entity.QuotaResourceEmail)
		if err != nil {
			return err
		}
		if !check.Allowed && !check.Unlimited {
			return repo.ErrQuotaExceeded
		}
	}

	var sent, failed uint64
	for _, er := range recipients {
		result, err := h.emailService.SendEmail(ctx, &dep.SendEmail{
			FromName:   h.cfg.SenderName,
			FromEmail:  h.cfg.SenderEmail,
			ToEmail:    er.lead.GetEmail(),
			ReplyTo:    h.cfg.ReplyToEmail,
			Subject:    entity.Personalize(template.GetSubject(), er.lead),
			HtmlBody:   entity.Personalize(template.GetHtmlBody(), er.lead),
			LeadID:     er.lead.GetID(),
			CampaignID: campaign.GetID(),
		})
		if err != nil || !result.Success {
			if err != nil {
				log.Ctx(ctx).Error().Msgf("send email failed, campaign_id: %d, lead_id: %d, err: %v",
					campaign.GetID(), er.lead.GetID(), err)
			} else {
				log.Ctx(ctx).Warn().Msgf("send email rejected, campaign_id: %d, lead_id: %d, reason: %s",
					campaign.GetID(), er.lead.GetID(), result.Err)
			}

			er.recipient.MarkFailed()
			if err := h.recipientRepo.Update(ctx, er.recipient); err != nil {
				log.Ctx(ctx).Error().Msgf("mark recipient failed failed, recipient_id: %d, err: %v",
					er.recipient.GetID(), err)
			}
			failed++
			continue
		}

		er.recipient.MarkSent()
		if err := h.recipientRepo.Update(ctx, er.recipient); err != nil {
			log.Ctx(ctx).Error().Msgf("mark recipient sent failed, recipient_id: %d, err: %v",
				er.recipient.GetID(), err)
		}

		if _, err := h.trackingEventRepo.CreateIfAbsent(ctx, entity.NewTrackingEvent(
			req.GetTenantID(),
			campaign.GetID(),
			er.lead.GetID(),
			entity.TrackingEventTypeSent,
			er.recipient.GetSentAt(),
		)); err != nil {
			log.Ctx(ctx).Error().Msgf("record sent event failed, campaign_id: %d, lead_id: %d, err: %v",
				campaign.GetID(), er.lead.GetID(), err)
		}

		if !req.IsSuperAdmin() {
			if err := h.quotaRepo.IncrementQuota(ctx, req.GetTenantID(), entity.QuotaResourceEmail, 1); err != nil {
				log.Ctx(ctx).Error().Msgf("increment quota failed, tenant_id: %d, err: %v", req.GetTenantID(), err)
			}
		}

		sent++
	}

	campaign.Status = entity.CampaignStatusActive
	campaign.SentCount = goutil.Uint64(campaign.GetSentCount() + sent)
	campaign.UpdateTime = goutil.Uint64(uint64(time.Now().Unix()))
	if err := h.campaignRepo.Update(ctx, campaign); err != nil {
		log.Ctx(ctx).Error().Msgf("update campaign after dispatch failed, campaign_id: %d, err: %v",
			campaign.GetID(), err)
	}

	res.Sent = goutil.Uint64(sent)
	res.Failed = goutil.Uint64(failed)
	res.Total = goutil.Uint64(sent + failed)

	return nil
}

type eligibleRecipient struct {
	recipient *entity.CampaignRecipient
	lead      *entity.Lead
}

// getEligibleRecipients selects pending recipients that pass the
// compliance gate: the lead has not unsubscribed and its normalized
// email is not on the tenant suppression list.
func (h *campaignHandler) getEligibleRecipients(ctx context.Context, tenantID uint64, campaign *entity.Campaign) ([]*eligibleRecipient, error) {
	limit := campaign.GetSchedule().GetEmailsPerCycle()
	if limit > entity.MaxEmailsPerCycle {
		limit = entity.MaxEmailsPerCycle
	}

	recipients, err := h.recipientRepo.GetPending(ctx, tenantID, campaign.GetID(), uint32(limit))
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	leadIDs := make([]uint64, 0, len(recipients))
	for _, r := range recipients {
		leadIDs = append(leadIDs, r.GetLeadID())
	}

	leads, err := h.leadRepo.GetByIDs(ctx, tenantID, leadIDs)
	if err != nil {
		return nil, err
	}

	leadByID := make(map[uint64]*entity.Lead, len(leads))
	for _, l := range leads {
		leadByID[l.GetID()] = l
	}

	suppressed, err := h.suppressionRepo.GetSet(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// on staging, test_emails restricts delivery to the allowlisted
	// addresses; everything else stays pending
	var allowlist map[string]bool
	if len(h.cfg.TestEmails) > 0 {
		allowlist = make(map[string]bool, len(h.cfg.TestEmails))
		for _, email := range h.cfg.TestEmails {
			allowlist[entity.NormalizeEmail(email)] = true
		}
	}

	eligible := make([]*eligibleRecipient, 0, len(recipients))
	for _, r := range recipients {
		lead, ok := leadByID[r.GetLeadID()]
		if !ok || lead.GetUnsubscribed() || suppressed[lead.NormalizedEmail()] {
			continue
		}
		if allowlist != nil && !allowlist[lead.NormalizedEmail()] {
			continue
		}
		eligible = append(eligible, &eligibleRecipient{recipient: r, lead: lead})
	}

	return eligible, nil
}

type GetCampaignStatsRequest struct {
	ContextInfo

	CampaignID *uint64 `json:"campaign_id,omitempty" schema:"campaign_id"`
}

func (r *GetCampaignStatsRequest) GetCampaignID() uint64 {
	if r != nil && r.CampaignID != nil {
		return *r.CampaignID
	}
	return 0
}

type GetCampaignStatsResponse struct {
	Campaign  *entity.Campaign `json:"campaign,omitempty"`
	Sent      *uint64          `json:"sent,omitempty"`
	Delivered *uint64          `json:"delivered,omitempty"`
	Opened    *uint64          `json:"opened,omitempty"`
	Clicked   *uint64          `json:"clicked,omitempty"`
	Bounced   *uint64          `json:"bounced,omitempty"`
}

var GetCampaignStatsValidator = validator.MustForm(map[string]validator.Validator{
	"ContextInfo": ContextInfoValidator,
	"campaign_id": IDValidator(false),
})

func (h *campaignHandler) GetCampaignStats(ctx context.Context, req *GetCampaignStatsRequest, res *GetCampaignStatsResponse) error {
	if err := GetCampaignStatsValidator.Validate(req); err != nil {
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

	res.Campaign = campaign
	res.Sent = goutil.Uint64(counts[entity.TrackingEventTypeSent])
	res.Delivered = goutil.Uint64(counts[entity.TrackingEventTypeDelivered])
	res.Opened = goutil.Uint64(counts[entity.TrackingEventTypeOpen])
	res.Clicked = goutil.Uint64(counts[entity.TrackingEventTypeClick])
	res.Bounced = goutil.Uint64(counts[entity.TrackingEventTypeBounce])

	return nil
}
