package handler

import (
	"context"
	"fmt"

	"crm/dep"
	"crm/entity"
	"crm/pkg/goutil"
	"crm/repo"
)

// In-memory fakes for the repo and dep interfaces, enough for the
// handler flows under test.

type fakeCampaignRepo struct {
	campaigns map[uint64]*entity.Campaign
	updated   []*entity.Campaign
	counters  map[uint64]map[entity.TrackingEventType]uint64
}

func newFakeCampaignRepo(campaigns ...*entity.Campaign) *fakeCampaignRepo {
	m := make(map[uint64]*entity.Campaign)
	for _, c := range campaigns {
		m[c.GetID()] = c
	}
	return &fakeCampaignRepo{
		campaigns: m,
		counters:  make(map[uint64]map[entity.TrackingEventType]uint64),
	}
}

func (r *fakeCampaignRepo) Get(_ context.Context, _, campaignID uint64) (*entity.Campaign, error) {
	c, ok := r.campaigns[campaignID]
	if !ok {
		return nil, repo.ErrCampaignNotFound
	}
	return c, nil
}

func (r *fakeCampaignRepo) GetReconcilable(_ context.Context, _ uint64) ([]*entity.Campaign, error) {
	res := make([]*entity.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		if c.IsReconcilable() {
			res = append(res, c)
		}
	}
	return res, nil
}

func (r *fakeCampaignRepo) Update(_ context.Context, campaign *entity.Campaign) error {
	r.updated = append(r.updated, campaign)
	return nil
}

func (r *fakeCampaignRepo) SetCounters(_ context.Context, campaign *entity.Campaign, counts map[entity.TrackingEventType]uint64) error {
	r.counters[campaign.GetID()] = counts
	return nil
}

type fakeRecipientRepo struct {
	pending       []*entity.CampaignRecipient
	sent          []*entity.CampaignRecipient
	updated       []*entity.CampaignRecipient
	requeuedLeads []uint64
	maxSentAt     uint64
}

func (r *fakeRecipientRepo) GetPending(_ context.Context, _, _ uint64, limit uint32) ([]*entity.CampaignRecipient, error) {
	if uint32(len(r.pending)) > limit {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func (r *fakeRecipientRepo) GetSent(_ context.Context, _, _ uint64) ([]*entity.CampaignRecipient, error) {
	return r.sent, nil
}

func (r *fakeRecipientRepo) Update(_ context.Context, recipient *entity.CampaignRecipient) error {
	r.updated = append(r.updated, recipient)
	return nil
}

func (r *fakeRecipientRepo) SetPendingByLeadIDs(_ context.Context, _, _ uint64, leadIDs []uint64) error {
	r.requeuedLeads = append(r.requeuedLeads, leadIDs...)
	return nil
}

func (r *fakeRecipientRepo) MaxSentAt(_ context.Context, _, _ uint64) (uint64, error) {
	return r.maxSentAt, nil
}

type fakeLeadRepo struct {
	leads map[uint64]*entity.Lead
}

func newFakeLeadRepo(leads ...*entity.Lead) *fakeLeadRepo {
	m := make(map[uint64]*entity.Lead)
	for _, l := range leads {
		m[l.GetID()] = l
	}
	return &fakeLeadRepo{leads: m}
}

func (r *fakeLeadRepo) GetByID(_ context.Context, _, leadID uint64) (*entity.Lead, error) {
	l, ok := r.leads[leadID]
	if !ok {
		return nil, repo.ErrLeadNotFound
	}
	return l, nil
}

func (r *fakeLeadRepo) GetByIDs(_ context.Context, _ uint64, leadIDs []uint64) ([]*entity.Lead, error) {
	res := make([]*entity.Lead, 0, len(leadIDs))
	for _, id := range leadIDs {
		if l, ok := r.leads[id]; ok {
			res = append(res, l)
		}
	}
	return res, nil
}

type fakeSuppressionRepo struct {
	set map[string]bool
}

func (r *fakeSuppressionRepo) GetSet(_ context.Context, _ uint64) (map[string]bool, error) {
	if r.set == nil {
		return map[string]bool{}, nil
	}
	return r.set, nil
}

func (r *fakeSuppressionRepo) Add(_ context.Context, _ uint64, email string) error {
	if r.set == nil {
		r.set = make(map[string]bool)
	}
	r.set[entity.NormalizeEmail(email)] = true
	return nil
}

type fakeQuotaRepo struct {
	check      *entity.QuotaCheck
	increments int64
}

func (r *fakeQuotaRepo) CheckQuota(_ context.Context, _ uint64, _ string) (*entity.QuotaCheck, error) {
	if r.check != nil {
		return r.check, nil
	}
	return &entity.QuotaCheck{Allowed: true, Unlimited: true}, nil
}

func (r *fakeQuotaRepo) IncrementQuota(_ context.Context, _ uint64, _ string, n int64) error {
	r.increments += n
	return nil
}

type fakeTenantRepo struct {
	tenant *entity.Tenant
}

func (r *fakeTenantRepo) GetByID(_ context.Context, tenantID uint64) (*entity.Tenant, error) {
	if r.tenant != nil {
		return r.tenant, nil
	}
	return &entity.Tenant{
		ID:     goutil.Uint64(tenantID),
		Status: entity.TenantStatusNormal,
	}, nil
}

type fakeTemplateRepo struct {
	template *entity.EmailTemplate
}

func (r *fakeTemplateRepo) GetByID(_ context.Context, _, _ uint64) (*entity.EmailTemplate, error) {
	if r.template == nil {
		return nil, repo.ErrTemplateNotFound
	}
	return r.template, nil
}

type fakeTrackingEventRepo struct {
	seen        map[string]bool
	created     []*entity.TrackingEvent
	counts      map[entity.TrackingEventType]uint64
	leadsByType map[entity.TrackingEventType][]uint64
}

func newFakeTrackingEventRepo() *fakeTrackingEventRepo {
	return &fakeTrackingEventRepo{seen: make(map[string]bool)}
}

func (r *fakeTrackingEventRepo) CreateIfAbsent(_ context.Context, event *entity.TrackingEvent) (bool, error) {
	key := fmt.Sprintf("%d:%d:%d:%d",
		event.GetTenantID(), event.GetCampaignID(), event.GetLeadID(), event.GetEventType())
	if r.seen[key] {
		return false, nil
	}
	r.seen[key] = true
	r.created = append(r.created, event)
	return true, nil
}

func (r *fakeTrackingEventRepo) DistinctLeadCounts(_ context.Context, _, _ uint64) (map[entity.TrackingEventType]uint64, error) {
	if r.counts == nil {
		return map[entity.TrackingEventType]uint64{}, nil
	}
	return r.counts, nil
}

func (r *fakeTrackingEventRepo) GetLeadIDsWithEvent(_ context.Context, _, _ uint64, eventType entity.TrackingEventType) ([]uint64, error) {
	return r.leadsByType[eventType], nil
}

type fakePipelineLeadRepo struct {
	stages  map[uint64]string
	upserts int
}

func newFakePipelineLeadRepo() *fakePipelineLeadRepo {
	return &fakePipelineLeadRepo{stages: make(map[uint64]string)}
}

func (r *fakePipelineLeadRepo) UpsertStage(_ context.Context, pipelineLead *entity.PipelineLead) error {
	r.stages[pipelineLead.GetLeadID()] = pipelineLead.GetStage()
	r.upserts++
	return nil
}

func (r *fakePipelineLeadRepo) GetLeadIDs(_ context.Context, _, _ uint64) ([]uint64, error) {
	res := make([]uint64, 0, len(r.stages))
	for id := range r.stages {
		res = append(res, id)
	}
	return res, nil
}

type fakeFollowUpRepo struct {
	followUps []*entity.CampaignFollowUp
	updated   []*entity.CampaignFollowUp
}

func (r *fakeFollowUpRepo) GetEnabled(_ context.Context, _, _ uint64) ([]*entity.CampaignFollowUp, error) {
	return r.followUps, nil
}

func (r *fakeFollowUpRepo) Update(_ context.Context, followUp *entity.CampaignFollowUp) error {
	r.updated = append(r.updated, followUp)
	return nil
}

type fakeEmailService struct {
	sent    []*dep.SendEmail
	failing map[string]bool
	reject  map[string]bool
}

func (s *fakeEmailService) SendEmail(_ context.Context, sendEmail *dep.SendEmail) (*dep.SendResult, error) {
	if s.failing[sendEmail.ToEmail] {
		return nil, fmt.Errorf("provider unreachable")
	}
	if s.reject[sendEmail.ToEmail] {
		return &dep.SendResult{Success: false, Err: "invalid recipient"}, nil
	}
	s.sent = append(s.sent, sendEmail)
	return &dep.SendResult{Success: true, MessageID: "msg-1"}, nil
}

func (s *fakeEmailService) Close(_ context.Context) error { return nil }

type fakeEventFeed struct {
	records []*dep.EngagementRecord
	err     error
}

func (f *fakeEventFeed) FetchRecent(_ context.Context, _ int) ([]*dep.EngagementRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeEventFeed) Close(_ context.Context) error { return nil }
