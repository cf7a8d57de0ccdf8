//go:build !no_sqlite && cgo

package db

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/clipvault/pkg/configs"
)

// createSQLiteDialector 创建SQLite dialector (CGo版本，mattn/go-sqlite3).
// WAL 模式下读事务不阻塞唯一的写事务，busy_timeout 对每个连接生效.
func createSQLiteDialector(dsn string) gorm.Dialector {
	return sqlite.Open(withParams(dsn, "_journal_mode=WAL", "_busy_timeout=5000", "_txlock=immediate"))
}

// 注册SQLite dialector工厂函数 (CGo版本).
func init() {
	RegisterDialectorFactory(configs.SQLite, createSQLiteDialector)
}
