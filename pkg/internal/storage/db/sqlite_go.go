//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/clipvault/pkg/configs"
)

// createSQLiteDialector 创建SQLite dialector (纯 Go 版本，modernc.org/sqlite).
func createSQLiteDialector(dsn string) gorm.Dialector {
	return sqlite.Open(withParams(dsn,
		"_pragma=journal_mode(WAL)",
		"_pragma=busy_timeout(5000)",
		"_txlock=immediate",
	))
}

// 注册SQLite dialector工厂函数 (纯 Go 版本).
func init() {
	RegisterDialectorFactory(configs.SQLite, createSQLiteDialector)
}
