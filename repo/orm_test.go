package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"crm/entity"
)

func newMockBaseRepo(t *testing.T) (BaseRepo, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() err = %v", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open() err = %v", err)
	}

	return &baseRepo{db: gdb}, mock
}

func testTrackingEvent() *entity.TrackingEvent {
	return entity.NewTrackingEvent(1, 100, 11, entity.TrackingEventTypeOpen, 1756120000)
}

func TestTrackingEventRepo_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh event inserts a row", func(t *testing.T) {
		baseRepo, mock := newMockBaseRepo(t)
		r := NewTrackingEventRepo(ctx, baseRepo)

		mock.ExpectQuery(`INSERT INTO "tracking_event_tab" .*ON CONFLICT \("tenant_id","campaign_id","lead_id","event_type"\) DO NOTHING`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		fresh, err := r.CreateIfAbsent(ctx, testTrackingEvent())
		if err != nil {
			t.Fatalf("CreateIfAbsent() err = %v", err)
		}
		if !fresh {
			t.Error("inserted event should be fresh")
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("duplicate event is skipped", func(t *testing.T) {
		baseRepo, mock := newMockBaseRepo(t)
		r := NewTrackingEventRepo(ctx, baseRepo)

		// the conflict target swallows the row, nothing comes back
		mock.ExpectQuery(`INSERT INTO "tracking_event_tab" .*DO NOTHING`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		fresh, err := r.CreateIfAbsent(ctx, testTrackingEvent())
		if err != nil {
			t.Fatalf("CreateIfAbsent() err = %v", err)
		}
		if fresh {
			t.Error("duplicate event should not be fresh")
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestTrackingEventRepo_DistinctLeadCounts(t *testing.T) {
	ctx := context.Background()

	baseRepo, mock := newMockBaseRepo(t)
	r := NewTrackingEventRepo(ctx, baseRepo)

	mock.ExpectQuery(`SELECT .* FROM "tracking_event_tab" WHERE .* GROUP BY .*event_type`).
		WillReturnRows(sqlmock.NewRows([]string{"event_type", "cnt"}).
			AddRow(uint32(entity.TrackingEventTypeSent), 50).
			AddRow(uint32(entity.TrackingEventTypeOpen), 20).
			AddRow(uint32(entity.TrackingEventTypeClick), 5))

	counts, err := r.DistinctLeadCounts(ctx, 1, 100)
	if err != nil {
		t.Fatalf("DistinctLeadCounts() err = %v", err)
	}

	want := map[entity.TrackingEventType]uint64{
		entity.TrackingEventTypeSent:  50,
		entity.TrackingEventTypeOpen:  20,
		entity.TrackingEventTypeClick: 5,
	}
	if len(counts) != len(want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
	for eventType, cnt := range want {
		if counts[eventType] != cnt {
			t.Errorf("counts[%d] = %d, want %d", eventType, counts[eventType], cnt)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPipelineLeadRepo_UpsertStage_LegacyConstraintFallback(t *testing.T) {
	ctx := context.Background()

	baseRepo, mock := newMockBaseRepo(t)
	r := NewPipelineLeadRepo(ctx, baseRepo)

	mock.ExpectQuery(`INSERT INTO "pipeline_lead_tab" .*ON CONFLICT \("tenant_id","lead_id","campaign_id"\) DO UPDATE`).
		WillReturnError(errors.New(`ERROR: there is no unique or exclusion constraint matching the ON CONFLICT specification (SQLSTATE 42P10)`))

	mock.ExpectQuery(`INSERT INTO "pipeline_lead_tab" .*ON CONFLICT \("lead_id","campaign_id"\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	err := r.UpsertStage(ctx, entity.NewPipelineLead(1, 11, 100, entity.StagePostClick))
	if err != nil {
		t.Fatalf("UpsertStage() err = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestIsMissingConstraintErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sqlstate code", errors.New("ERROR: bad target (SQLSTATE 42P10)"), true},
		{"message text", errors.New("there is no unique or exclusion constraint matching the ON CONFLICT specification"), true},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isMissingConstraintErr(tt.err); got != tt.want {
				t.Errorf("isMissingConstraintErr() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToSqlWithArgs(t *testing.T) {
	f := &Filter{
		Conditions: []*Condition{
			{
				Field:         "tenant_id",
				Value:         uint64(1),
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "status",
				Value: []uint32{1, 2},
				Op:    OpIn,
			},
		},
	}

	sqlQuery, args := ToSqlWithArgs(f)
	if sqlQuery != "tenant_id = ? AND status IN ?" {
		t.Errorf("sql = %q", sqlQuery)
	}
	if len(args) != 2 {
		t.Fatalf("args = %d, want 2", len(args))
	}
}

func TestToSqlWithArgs_SkipsNilValues(t *testing.T) {
	var nilPtr *uint64
	f := &Filter{
		Conditions: []*Condition{
			{
				Field:         "tenant_id",
				Value:         uint64(1),
				Op:            OpEq,
				NextLogicalOp: LogicalOpAnd,
			},
			{
				Field: "campaign_id",
				Value: nilPtr,
				Op:    OpEq,
			},
		},
	}

	sqlQuery, args := ToSqlWithArgs(f)
	if sqlQuery != "tenant_id = ?" {
		t.Errorf("sql = %q", sqlQuery)
	}
	if len(args) != 1 {
		t.Fatalf("args = %d, want 1", len(args))
	}
}
