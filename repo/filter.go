package repo

import (
	"fmt"

	"crm/entity"
	"crm/pkg/goutil"
)

type LogicalOp string

const (
	LogicalOpAnd LogicalOp = "AND"
	LogicalOpOr  LogicalOp = "OR"
)

type Op string

const (
	OpEq    Op = "="
	OpNotEq Op = "!="
	OpGt    Op = ">"
	OpGte   Op = ">="
	OpLt    Op = "<"
	OpLte   Op = "<="
	OpLike  Op = "LIKE"
	OpIn    Op = "IN"
)

type Condition struct {
	Field         string
	Op            Op
	Value         interface{}
	NextLogicalOp LogicalOp
}

type Filter struct {
	Conditions []*Condition
	Pagination *entity.Pagination
}

func ToSqlWithArgs(f *Filter) (sql string, args []interface{}) {
	if f == nil {
		return
	}

	conditions := make([]*Condition, 0, len(f.Conditions))
	for _, condition := range f.Conditions {
		if goutil.IsNil(condition.Value) {
			continue
		}
		conditions = append(conditions, condition)
	}

	for i, condition := range conditions {
		switch condition.Op {
		case OpEq, OpNotEq, OpGt, OpGte, OpLt, OpLte, OpLike:
			sql += fmt.Sprintf("%s %s ?", condition.Field, condition.Op)
			args = append(args, condition.Value)
		case OpIn:
			sql += fmt.Sprintf("%s IN ?", condition.Field)
			args = append(args, condition.Value)
		}

		if i != len(conditions)-1 {
			logicalOp := condition.NextLogicalOp
			if logicalOp == "" {
				logicalOp = LogicalOpAnd
			}
			sql += fmt.Sprintf(" %s ", logicalOp)
		}
	}

	return
}
