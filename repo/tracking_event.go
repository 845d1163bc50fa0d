package repo

import (
	"context"

	"crm/entity"
	"crm/pkg/goutil"
)

type TrackingEvent struct {
	ID         *uint64
	TenantID   *uint64
	CampaignID *uint64
	LeadID     *uint64
	EventType  *uint32
	EventTime  *uint64
	CreateTime *uint64
}

func (m *TrackingEvent) TableName() string {
	return "tracking_event_tab"
}

func (m *TrackingEvent) GetEventType() uint32 {
	if m != nil && m.EventType != nil {
		return *m.EventType
	}
	return 0
}

// eventConflictCols is the ledger's uniqueness key. Idempotency is
// enforced by the database, not by a read-then-write check, so
// concurrent reconcilers for the same campaign stay safe.
var eventConflictCols = []string{"tenant_id", "campaign_id", "lead_id", "event_type"}

type eventTypeCount struct {
	EventType uint32
	Cnt       uint64
}

type TrackingEventRepo interface {
	// CreateIfAbsent appends an event to the ledger. Returns true
	// when the row is new, false when the same logical event was
	// already recorded.
	CreateIfAbsent(ctx context.Context, event *entity.TrackingEvent) (bool, error)
	// DistinctLeadCounts counts distinct leads per event type for a
	// campaign.
	DistinctLeadCounts(ctx context.Context, tenantID, campaignID uint64) (map[entity.TrackingEventType]uint64, error)
	// GetLeadIDsWithEvent lists distinct leads with at least one
	// ledger row of the given type for the campaign.
	GetLeadIDsWithEvent(ctx context.Context, tenantID, campaignID uint64, eventType entity.TrackingEventType) ([]uint64, error)
}

type trackingEventRepo struct {
	baseRepo BaseRepo
}

func NewTrackingEventRepo(_ context.Context, baseRepo BaseRepo) TrackingEventRepo {
	return &trackingEventRepo{baseRepo: baseRepo}
}

func (r *trackingEventRepo) CreateIfAbsent(ctx context.Context, event *entity.TrackingEvent) (bool, error) {
	inserted, err := r.baseRepo.CreateIgnoreConflicts(ctx, ToTrackingEventModel(event), eventConflictCols)
	if err != nil {
		return false, err
	}
	return inserted > 0, nil
}

func (r *trackingEventRepo) DistinctLeadCounts(ctx context.Context, tenantID, campaignID uint64) (map[entity.TrackingEventType]uint64, error) {
	res, err := r.baseRepo.GroupBy(
		ctx,
		new(TrackingEvent),
		new(eventTypeCount),
		[]string{"event_type"},
		map[string]string{
			"event_type": "event_type",
			"cnt":        "COUNT(DISTINCT lead_id)",
		},
		&Filter{
			Conditions: r.scopeConditions(tenantID, campaignID, nil),
		},
	)
	if err != nil {
		return nil, err
	}

	counts := make(map[entity.TrackingEventType]uint64, len(res))
	for _, row := range res {
		c := row.(*eventTypeCount)
		counts[entity.TrackingEventType(c.EventType)] = c.Cnt
	}

	return counts, nil
}

func (r *trackingEventRepo) GetLeadIDsWithEvent(ctx context.Context, tenantID, campaignID uint64, eventType entity.TrackingEventType) ([]uint64, error) {
	return r.baseRepo.PluckUint64(ctx, new(TrackingEvent), "lead_id", true, &Filter{
		Conditions: r.scopeConditions(tenantID, campaignID, goutil.Uint32(uint32(eventType))),
	})
}

func (r *trackingEventRepo) scopeConditions(tenantID, campaignID uint64, eventType *uint32) []*Condition {
	conditions := []*Condition{
		{
			Field:         "tenant_id",
			Value:         tenantID,
			Op:            OpEq,
			NextLogicalOp: LogicalOpAnd,
		},
		{
			Field:         "campaign_id",
			Value:         campaignID,
			Op:            OpEq,
			NextLogicalOp: LogicalOpAnd,
		},
	}
	if eventType != nil {
		conditions = append(conditions, &Condition{
			Field: "event_type",
			Value: *eventType,
			Op:    OpEq,
		})
	}
	return conditions
}

func ToTrackingEventModel(event *entity.TrackingEvent) *TrackingEvent {
	return &TrackingEvent{
		ID:         event.ID,
		TenantID:   event.TenantID,
		CampaignID: event.CampaignID,
		LeadID:     event.LeadID,
		EventType:  event.EventType,
		EventTime:  event.EventTime,
		CreateTime: event.CreateTime,
	}
}
