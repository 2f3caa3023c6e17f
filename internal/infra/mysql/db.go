package mysql

import (
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"
)

// 连接池在 common.InitDB 建好后注入，这里只持有句柄。
// sqlx 包装懒加载一次，model 层统一走 SQLX()
var (
	db     *sql.DB
	once   sync.Once
	sqlxDB *sqlx.DB

	readDB     *sql.DB
	readOnce   sync.Once
	readSqlxDB *sqlx.DB
)

// UseDB 注入进程级 *sql.DB，启动时调用一次
func UseDB(d *sql.DB) {
	if d == nil {
		return
	}
	db = d
}

// UseReadDB 注入只读库句柄（可选），未注入时读查询回落主库
func UseReadDB(d *sql.DB) {
	if d == nil {
		return
	}
	readDB = d
}

// DB 原生句柄
func DB() *sql.DB { return db }

// SQLX 包装句柄，未注入时返回 nil
func SQLX() *sqlx.DB {
	once.Do(func() {
		if db != nil {
			sqlxDB = sqlx.NewDb(db, "mysql")
		}
	})
	return sqlxDB
}

// ReadSQLX 只读查询句柄；没配从库时就是主库
func ReadSQLX() *sqlx.DB {
	readOnce.Do(func() {
		if readDB != nil {
			readSqlxDB = sqlx.NewDb(readDB, "mysql")
		}
	})
	if readSqlxDB == nil {
		return SQLX()
	}
	return readSqlxDB
}
