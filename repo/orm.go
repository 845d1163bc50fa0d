// Package repo ignore_security_alert_file SQL_INJECTION
package repo

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crm/config"
	"crm/entity"
	"crm/pkg/goutil"
)

type txKey struct{}

type TxService interface {
	RunTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type BaseRepo interface {
	TxService

	Create(ctx context.Context, model interface{}) error
	CreateMany(ctx context.Context, model interface{}, data interface{}) error
	// CreateIgnoreConflicts inserts and skips rows that would violate
	// the unique constraint on conflictCols. Returns the number of
	// rows actually inserted.
	CreateIgnoreConflicts(ctx context.Context, model interface{}, conflictCols []string) (int64, error)
	// Upsert inserts or, on conflict against conflictCols, updates
	// updateCols from the new row.
	Upsert(ctx context.Context, model interface{}, conflictCols, updateCols []string) error
	Get(ctx context.Context, model interface{}, f *Filter) error
	GetMany(ctx context.Context, model interface{}, f *Filter) ([]interface{}, *entity.Pagination, error)
	Count(ctx context.Context, model interface{}, f *Filter) (uint64, error)
	PluckUint64(ctx context.Context, model interface{}, field string, distinct bool, f *Filter) ([]uint64, error)
	GroupBy(ctx context.Context, model, dest interface{}, groupByFields []string, aggregateFields map[string]string, f *Filter) ([]interface{}, error)
	Update(ctx context.Context, model interface{}) error
	UpdateWhere(ctx context.Context, model interface{}, values map[string]interface{}, f *Filter) error
	BuildConditions(base, extra []*Condition) []*Condition
	Close(ctx context.Context) error
}

type baseRepo struct {
	db *gorm.DB
}

func NewBaseRepo(_ context.Context, pgCfg config.Postgres) (BaseRepo, error) {
	db, err := gorm.Open(postgres.Open(pgCfg.ToDSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return &baseRepo{
		db: db,
	}, nil
}

func (r *baseRepo) Create(ctx context.Context, data interface{}) error {
	return r.getDb(ctx).Create(data).Error
}

func (r *baseRepo) CreateMany(ctx context.Context, model interface{}, data interface{}) error {
	return r.getDb(ctx).Model(model).Create(data).Error
}

func (r *baseRepo) CreateIgnoreConflicts(ctx context.Context, model interface{}, conflictCols []string) (int64, error) {
	res := r.getDb(ctx).Clauses(clause.OnConflict{
		Columns:   toClauseColumns(conflictCols),
		DoNothing: true,
	}).Create(model)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *baseRepo) Upsert(ctx context.Context, model interface{}, conflictCols, updateCols []string) error {
	return r.getDb(ctx).Clauses(clause.OnConflict{
		Columns:   toClauseColumns(conflictCols),
		DoUpdates: clause.AssignmentColumns(updateCols),
	}).Create(model).Error
}

func (r *baseRepo) Count(ctx context.Context, model interface{}, f *Filter) (uint64, error) {
	sqlQuery, args := ToSqlWithArgs(f)

	var count int64
	if err := r.getDb(ctx).Model(model).Where(sqlQuery, args...).Count(&count).Error; err != nil {
		return 0, err
	}
	return uint64(count), nil
}

func (r *baseRepo) PluckUint64(ctx context.Context, model interface{}, field string, distinct bool, f *Filter) ([]uint64, error) {
	sqlQuery, args := ToSqlWithArgs(f)

	query := r.getDb(ctx).Model(model).Where(sqlQuery, args...)
	if distinct {
		query = query.Distinct(field)
	}

	res := make([]uint64, 0)
	if err := query.Pluck(field, &res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

func (r *baseRepo) GroupBy(ctx context.Context, model, dest interface{}, groupByFields []string, aggregateFields map[string]string, f *Filter) ([]interface{}, error) {
	var (
		selectFields string
		fieldCount   int
	)
	for alias, expr := range aggregateFields {
		selectFields += fmt.Sprintf("%s AS %s", expr, alias)
		fieldCount++

		if fieldCount < len(aggregateFields) {
			selectFields += ", "
		}
	}

	var (
		db = r.getDb(ctx)

		sqlQuery, args = ToSqlWithArgs(f)
	)

	rows, err := db.
		Model(model).
		Where(sqlQuery, args...).
		Select(selectFields).
		Group(strings.Join(groupByFields, ", ")).
		Rows()
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = rows.Close()
	}()

	var (
		res      = make([]interface{}, 0)
		destType = reflect.TypeOf(dest).Elem()
	)
	for rows.Next() {
		row := reflect.New(destType).Interface()
		if err := db.ScanRows(rows, row); err != nil {
			return nil, err
		}
		res = append(res, row)
	}

	return res, nil
}

func (r *baseRepo) Get(ctx context.Context, model interface{}, f *Filter) error {
	sqlQuery, args := ToSqlWithArgs(f)

	return r.getDb(ctx).Model(model).Where(sqlQuery, args...).First(model).Error
}

func (r *baseRepo) GetMany(ctx context.Context, model interface{}, f *Filter) ([]interface{}, *entity.Pagination, error) {
	var (
		db             = r.getDb(ctx)
		sqlQuery, args = ToSqlWithArgs(f)
		query          = db.Model(model).Where(sqlQuery, args...)
	)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, nil, err
	}

	pagination := f.Pagination
	if pagination == nil {
		pagination = new(entity.Pagination)
	}

	var (
		limit = pagination.GetLimit()
		page  = pagination.GetPage()
	)
	if page == 0 {
		page = 1
	}

	query = query.Offset(int((page - 1) * limit)).Order("id DESC")
	if limit > 0 {
		query = query.Limit(int(limit + 1))
	}

	var (
		modelElem = reflect.TypeOf(model).Elem()
		queryRes  = reflect.New(reflect.SliceOf(modelElem)).Interface()
	)
	if err := query.Find(queryRes).Error; err != nil {
		return nil, nil, err
	}

	var (
		resElem = reflect.ValueOf(queryRes).Elem()
		res     = make([]interface{}, resElem.Len())
	)
	for i := 0; i < resElem.Len(); i++ {
		res[i] = resElem.Index(i).Addr().Interface() // return addr
	}

	var hasNext bool
	if limit > 0 && len(res) > int(limit) {
		hasNext = true
		res = res[:limit]
	}

	return res, &entity.Pagination{
		Page:    goutil.Uint32(page),
		Limit:   pagination.Limit,
		HasNext: goutil.Bool(hasNext),
		Total:   goutil.Uint32(uint32(count)),
	}, nil
}

func (r *baseRepo) Update(ctx context.Context, model interface{}) error {
	return r.getDb(ctx).Updates(model).Error
}

func (r *baseRepo) UpdateWhere(ctx context.Context, model interface{}, values map[string]interface{}, f *Filter) error {
	sqlQuery, args := ToSqlWithArgs(f)
	return r.getDb(ctx).Model(model).Where(sqlQuery, args...).Updates(values).Error
}

func (r *baseRepo) BuildConditions(base, extra []*Condition) []*Condition {
	conditions := make([]*Condition, 0, len(base)+len(extra))
	conditions = append(conditions, base...)
	conditions = append(conditions, extra...)
	return conditions
}

func (r *baseRepo) RunTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.hasTx(ctx) {
		return fn(ctx)
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		ctxWithTx := context.WithValue(ctx, txKey{}, tx)
		if err := fn(ctxWithTx); err != nil {
			return err
		}
		return nil
	})
}

func (r *baseRepo) Close(_ context.Context) error {
	if r.db != nil {
		sqlDB, err := r.db.DB()
		if err != nil {
			return err
		}

		err = sqlDB.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *baseRepo) getDb(ctx context.Context) *gorm.DB {
	db, ok := ctx.Value(txKey{}).(*gorm.DB)
	if !ok {
		db = r.db
	}
	return db
}

func (r *baseRepo) hasTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

func toClauseColumns(cols []string) []clause.Column {
	res := make([]clause.Column, 0, len(cols))
	for _, c := range cols {
		res = append(res, clause.Column{Name: c})
	}
	return res
}
