// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/mrxserver/config"
	"github.com/wfunc/mrxserver/models"
)

// Database 对局记录存储接口
type Database interface {
	SaveGameRecord(ctx context.Context, record *models.GameRecord) error
	RecentGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error)
	PlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error)
	Close() error
}

var ErrUnknownDriver = fmt.Errorf("unknown database driver")

// Open 按配置选择实现: memory / gorm / postgres
func Open(cfg config.DatabaseConfig) (Database, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "gorm":
		return NewGormPostgreSQL(cfg.Postgres.DSN())
	case "postgres":
		return NewPostgreSQL(cfg.Postgres.DSN())
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}
