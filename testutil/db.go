package testutil

import (
	"path/filepath"
	"testing"

	"crm-agent-backend/config"
	"crm-agent-backend/dao"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB 为每个测试创建独立的 SQLite 数据库并完成迁移
// 单连接串行化访问，避免 SQLite 在并发测试中返回 database is locked
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := dao.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, dao.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
