package handler

import (
	"context"
	"testing"
	"time"

	"crm/entity"
	"crm/pkg/goutil"
)

type fakeCampaignSender struct {
	reqs []*SendCampaignEmailsRequest
}

func (s *fakeCampaignSender) SendCampaignEmails(_ context.Context, req *SendCampaignEmailsRequest, res *SendCampaignEmailsResponse) error {
	s.reqs = append(s.reqs, req)
	res.Sent = goutil.Uint64(1)
	res.Failed = goutil.Uint64(0)
	res.Total = goutil.Uint64(1)
	return nil
}

func (s *fakeCampaignSender) GetCampaignStats(_ context.Context, _ *GetCampaignStatsRequest, _ *GetCampaignStatsResponse) error {
	return nil
}

func daysAgo(n int) uint64 {
	return uint64(time.Now().AddDate(0, 0, -n).Unix())
}

func testFollowUp(mode entity.FollowUpMode, delayDays, wavesSent uint32, lastWaveAt uint64) *entity.CampaignFollowUp {
	fu := &entity.CampaignFollowUp{
		ID:         goutil.Uint64(uint64(mode)),
		TenantID:   goutil.Uint64(1),
		CampaignID: goutil.Uint64(100),
		Mode:       mode,
		Enabled:    goutil.Bool(true),
		DelayDays:  goutil.Uint32(delayDays),
		TemplateID: goutil.Uint64(20),
		WavesSent:  goutil.Uint32(wavesSent),
	}
	if lastWaveAt > 0 {
		fu.LastWaveAt = goutil.Uint64(lastWaveAt)
	}
	return fu
}

func followUpReq() *RunCampaignFollowUpsRequest {
	return &RunCampaignFollowUpsRequest{
		ContextInfo: ContextInfo{TenantID: goutil.Uint64(1)},
		CampaignID:  goutil.Uint64(100),
	}
}

func TestRunCampaignFollowUps_TriggersDueWave(t *testing.T) {
	ctx := context.Background()

	campaignRepo := newFakeCampaignRepo(testCampaign(100, 1))
	recipientRepo := &fakeRecipientRepo{maxSentAt: daysAgo(4)}
	trackingEventRepo := newFakeTrackingEventRepo()
	trackingEventRepo.leadsByType = map[entity.TrackingEventType][]uint64{
		entity.TrackingEventTypeOpen:  {11, 12},
		entity.TrackingEventTypeClick: {12},
	}
	followUpRepo := &fakeFollowUpRepo{
		followUps: []*entity.CampaignFollowUp{
			testFollowUp(entity.FollowUpModeOpenedNotClicked, 3, 0, 0),
		},
	}
	sender := &fakeCampaignSender{}

	h := NewFollowUpHandler(campaignRepo, recipientRepo, trackingEventRepo, followUpRepo, sender)

	res := new(RunCampaignFollowUpsResponse)
	if err := h.RunCampaignFollowUps(ctx, followUpReq(), res); err != nil {
		t.Fatalf("RunCampaignFollowUps() err = %v", err)
	}

	if got := *res.WavesTriggered; got != 1 {
		t.Errorf("waves triggered = %d, want 1", got)
	}
	if got := goutil.GetUint64(res.AudienceSize); got != 1 {
		t.Errorf("audience size = %d, want 1", got)
	}

	// lead 12 clicked, only lead 11 is re-queued
	if len(recipientRepo.requeuedLeads) != 1 || recipientRepo.requeuedLeads[0] != 11 {
		t.Errorf("requeued leads = %v, want [11]", recipientRepo.requeuedLeads)
	}

	if len(sender.reqs) != 1 {
		t.Fatalf("dispatches = %d, want 1", len(sender.reqs))
	}
	if got := sender.reqs[0].GetTemplateID(); got != 20 {
		t.Errorf("wave template = %d, want the follow-up's template 20", got)
	}

	if len(followUpRepo.updated) != 1 {
		t.Fatalf("follow-up updates = %d, want 1", len(followUpRepo.updated))
	}
	if got := followUpRepo.updated[0].GetWavesSent(); got != 1 {
		t.Errorf("waves sent = %d, want 1", got)
	}

	if len(campaignRepo.updated) == 0 {
		t.Fatal("campaign status not updated")
	}
	if got := campaignRepo.updated[0].GetStatus(); got != entity.CampaignStatusFollowUp {
		t.Errorf("campaign status = %d, want %d", got, entity.CampaignStatusFollowUp)
	}
}

func TestRunCampaignFollowUps_NotOpenedExcludesClickers(t *testing.T) {
	ctx := context.Background()

	campaignRepo := newFakeCampaignRepo(testCampaign(100, 1))
	recipientRepo := &fakeRecipientRepo{maxSentAt: daysAgo(4)}
	// lead 22 clicked without a recorded open; it still saw the email
	trackingEventRepo := newFakeTrackingEventRepo()
	trackingEventRepo.leadsByType = map[entity.TrackingEventType][]uint64{
		entity.TrackingEventTypeSent:  {21, 22},
		entity.TrackingEventTypeClick: {22},
	}
	followUpRepo := &fakeFollowUpRepo{
		followUps: []*entity.CampaignFollowUp{
			testFollowUp(entity.FollowUpModeNotOpened, 3, 0, 0),
		},
	}
	sender := &fakeCampaignSender{}

	h := NewFollowUpHandler(campaignRepo, recipientRepo, trackingEventRepo, followUpRepo, sender)

	res := new(RunCampaignFollowUpsResponse)
	if err := h.RunCampaignFollowUps(ctx, followUpReq(), res); err != nil {
		t.Fatalf("RunCampaignFollowUps() err = %v", err)
	}

	if got := goutil.GetUint64(res.AudienceSize); got != 1 {
		t.Errorf("audience size = %d, want 1", got)
	}
	if len(recipientRepo.requeuedLeads) != 1 || recipientRepo.requeuedLeads[0] != 21 {
		t.Errorf("requeued leads = %v, want [21]", recipientRepo.requeuedLeads)
	}
}

func TestRunCampaignFollowUps_NotDueYet(t *testing.T) {
	ctx := context.Background()

	recipientRepo := &fakeRecipientRepo{maxSentAt: daysAgo(1)}
	followUpRepo := &fakeFollowUpRepo{
		followUps: []*entity.CampaignFollowUp{
			testFollowUp(entity.FollowUpModeNotOpened, 3, 0, 0),
		},
	}
	sender := &fakeCampaignSender{}

	h := NewFollowUpHandler(
		newFakeCampaignRepo(testCampaign(100, 1)),
		recipientRepo, newFakeTrackingEventRepo(), followUpRepo, sender,
	)

	res := new(RunCampaignFollowUpsResponse)
	if err := h.RunCampaignFollowUps(ctx, followUpReq(), res); err != nil {
		t.Fatalf("RunCampaignFollowUps() err = %v", err)
	}
	if got := *res.WavesTriggered; got != 0 {
		t.Errorf("waves triggered = %d, want 0", got)
	}
	if len(sender.reqs) != 0 {
		t.Errorf("dispatches = %d, want 0", len(sender.reqs))
	}
}

func TestRunCampaignFollowUps_OneWavePerSendCycle(t *testing.T) {
	ctx := context.Background()

	maxSentAt := daysAgo(5)
	recipientRepo := &fakeRecipientRepo{maxSentAt: maxSentAt}
	// the wave for this send cycle already went out
	followUpRepo := &fakeFollowUpRepo{
		followUps: []*entity.CampaignFollowUp{
			testFollowUp(entity.FollowUpModeNotOpened, 3, 1, maxSentAt+3600),
		},
	}
	sender := &fakeCampaignSender{}

	trackingEventRepo := newFakeTrackingEventRepo()
	trackingEventRepo.leadsByType = map[entity.TrackingEventType][]uint64{
		entity.TrackingEventTypeSent: {11, 12},
	}

	h := NewFollowUpHandler(
		newFakeCampaignRepo(testCampaign(100, 1)),
		recipientRepo, trackingEventRepo, followUpRepo, sender,
	)

	res := new(RunCampaignFollowUpsResponse)
	if err := h.RunCampaignFollowUps(ctx, followUpReq(), res); err != nil {
		t.Fatalf("RunCampaignFollowUps() err = %v", err)
	}
	if got := *res.WavesTriggered; got != 0 {
		t.Errorf("waves triggered = %d, want 0", got)
	}
	if len(sender.reqs) != 0 {
		t.Errorf("dispatches = %d, want 0", len(sender.reqs))
	}
}

func TestRunCampaignFollowUps_ExhaustedMovesToWatch(t *testing.T) {
	ctx := context.Background()

	campaign := testCampaign(100, 1)
	campaign.Status = entity.CampaignStatusFollowUp
	campaignRepo := newFakeCampaignRepo(campaign)

	followUpRepo := &fakeFollowUpRepo{
		followUps: []*entity.CampaignFollowUp{
			testFollowUp(entity.FollowUpModeNotOpened, 3, entity.MaxFollowUpCount, daysAgo(3)),
		},
	}

	h := NewFollowUpHandler(
		campaignRepo,
		&fakeRecipientRepo{maxSentAt: daysAgo(5)},
		newFakeTrackingEventRepo(),
		followUpRepo,
		&fakeCampaignSender{},
	)

	res := new(RunCampaignFollowUpsResponse)
	if err := h.RunCampaignFollowUps(ctx, followUpReq(), res); err != nil {
		t.Fatalf("RunCampaignFollowUps() err = %v", err)
	}

	if len(campaignRepo.updated) == 0 {
		t.Fatal("campaign status not updated")
	}
	if got := campaignRepo.updated[0].GetStatus(); got != entity.CampaignStatusWatch {
		t.Errorf("campaign status = %d, want %d", got, entity.CampaignStatusWatch)
	}
}

func TestRunCampaignFollowUps_WatchClosesAfterQuietPeriod(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		lastSentDays  int
		wantCompleted bool
	}{
		{"still in quiet period", 5, false},
		{"quiet period elapsed", entity.WatchCloseDays + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			campaign := testCampaign(100, 1)
			campaign.Status = entity.CampaignStatusWatch
			campaignRepo := newFakeCampaignRepo(campaign)

			h := NewFollowUpHandler(
				campaignRepo,
				&fakeRecipientRepo{maxSentAt: daysAgo(tt.lastSentDays)},
				newFakeTrackingEventRepo(),
				&fakeFollowUpRepo{},
				&fakeCampaignSender{},
			)

			res := new(RunCampaignFollowUpsResponse)
			if err := h.RunCampaignFollowUps(ctx, followUpReq(), res); err != nil {
				t.Fatalf("RunCampaignFollowUps() err = %v", err)
			}
			if got := *res.WavesTriggered; got != 0 {
				t.Errorf("waves triggered = %d, want 0", got)
			}

			if tt.wantCompleted {
				if len(campaignRepo.updated) == 0 {
					t.Fatal("campaign not closed")
				}
				if got := campaignRepo.updated[0].GetStatus(); got != entity.CampaignStatusCompleted {
					t.Errorf("campaign status = %d, want %d", got, entity.CampaignStatusCompleted)
				}
			} else if len(campaignRepo.updated) != 0 {
				t.Error("campaign updated during quiet period")
			}
		})
	}
}
