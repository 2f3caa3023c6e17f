package common

import (
	"context"
	"fmt"

	g "github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ThalesMilho/projeto-web/common/logger"
)

var (
	dialect = g.Dialect("mysql")
)

// QueryArg 列表查询参数，模型层组装后交给 SelectAllCtx
type QueryArg struct {
	Db      *sqlx.DB                // db connection
	Table   string                  // table
	Fields  []interface{}           // query fields
	Ex      []exp.Expression        // where conditions
	Order   []exp.OrderedExpression // order conditions
	GroupBy []interface{}           // group by fields
	Offset  uint                    // offset
	Limit   uint                    // limit
}

// SelectAllCtx 查询多条记录
func SelectAllCtx(ctx context.Context, data interface{}, args QueryArg) error {
	if args.Db == nil {
		return fmt.Errorf("invalid db")
	}
	if args.Table == "" {
		return fmt.Errorf("invalid table")
	}
	if len(args.Fields) == 0 {
		return fmt.Errorf("invalid fields")
	}

	ds := dialect.Select(args.Fields...).From(args.Table)
	if len(args.Ex) > 0 {
		ds = ds.Where(args.Ex...)
	}
	if len(args.GroupBy) > 0 {
		ds = ds.GroupBy(args.GroupBy...)
	}
	if len(args.Order) > 0 {
		ds = ds.Order(args.Order...)
	}
	if args.Offset > 0 {
		ds = ds.Offset(args.Offset)
	}
	if args.Limit > 0 {
		ds = ds.Limit(args.Limit)
	}

	query, qargs, err := ds.ToSQL()
	if err != nil {
		return err
	}
	return args.Db.SelectContext(ctx, data, query, qargs...)
}

func Count(db *sqlx.DB, table string, ex ...exp.Expression) (int, error) {

	var count int
	query, _, _ := dialect.Select(g.COUNT("*")).From(table).Where(ex...).ToSQL()
	err := db.Get(&count, query)
	if err != nil {
		logger.Error("count failed", zap.String("table", table), zap.Error(err))
	}

	return count, err
}

// SumCents 金额汇总，分单位，绝不走浮点
func SumCents(db *sqlx.DB, table, name string, ex ...exp.Expression) (int64, error) {

	var sum int64
	query, _, _ := dialect.Select(g.COALESCE(g.SUM(name), 0)).From(table).Where(ex...).ToSQL()
	err := db.Get(&sum, query)
	if err != nil {
		logger.Error("sum failed", zap.String("table", table), zap.Error(err))
	}

	return sum, err
}
