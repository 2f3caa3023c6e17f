package common

import (
	"time"

	"github.com/ThalesMilho/projeto-web/common/logger"

	"go.uber.org/zap"

	"github.com/jmoiron/sqlx"
)

// 初始化master db
// 钱包/结算全部走 master，锁等待时长压短避免结算批次互相拖死
func InitDB(dsn string, maxIdleConn, maxOpenConn int) *sqlx.DB {

	db, err := sqlx.Connect("mysql", dsn+"&parseTime=true&loc=Local")
	if err != nil {
		logger.Fatalf("InitDB sqlx.Connect", zap.Error(err))
	}

	// 连接池参数
	db.SetMaxOpenConns(maxOpenConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// 会话级超时，降低锁等待时长
	if _, err := db.Exec("SET SESSION innodb_lock_wait_timeout = ?", 5); err != nil {
		logger.Warn("SET innodb_lock_wait_timeout failed", zap.Error(err))
	}

	err = db.Ping()
	if err != nil {
		logger.Fatalf("InitDB failed:", zap.Error(err))
	}

	return db
}

// 初始化slave db，只读查询（流水列表、投注历史）走这里
func InitSlaveDB(dsn string, maxIdleConn, maxOpenConn int) *sqlx.DB {
	db, err := sqlx.Connect("mysql", dsn+"&parseTime=true&loc=Local")
	if err != nil {
		logger.Fatalf("InitSlaveDB  sqlx.Connect failed:", zap.Error(err))
	}

	// 连接池参数
	db.SetMaxOpenConns(maxOpenConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// 从库不做事务写，但保持一致；失败仅记录告警
	if _, err := db.Exec("SET SESSION innodb_lock_wait_timeout = ?", 5); err != nil {
		logger.Warn("SET innodb_lock_wait_timeout (slave) failed", zap.Error(err))
	}

	err = db.Ping()
	if err != nil {
		logger.Fatalf("InitSlaveDB failed:", zap.Error(err))
	}

	return db
}
