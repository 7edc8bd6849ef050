// Package storagetest opens throwaway in-memory databases for tests.
package storagetest

import (
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MimoJanra/AuditPulse/internal/config"
	"github.com/MimoJanra/AuditPulse/internal/storage"
)

func Open(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := storage.Open(config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"}, zap.NewNop())
	if err != nil {
		tb.Fatalf("open test database: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close(db) })
	return db
}
