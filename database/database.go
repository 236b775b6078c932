package database

import (
	"fmt"
	"log/slog"
	"time"

	"donation-platform/internal/domain/billing"
	"donation-platform/internal/domain/plans"
	"donation-platform/internal/domain/subscriptions"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Log receives gorm's warnings and slow queries. Nil discards them.
	Log *slog.Logger
}

// OpenPostgres opens the connection pool owned by process startup.
func OpenPostgres(dsn string, opts Options) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database: DB_URL not set")
	}
	return Open(postgres.Open(dsn), opts)
}

func Open(dialector gorm.Dialector, opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger(opts.Log),
	})
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return db, nil
}

// gormLogger writes gorm output through slog at warn level. Lookups that find
// nothing are a normal outcome here and are not logged.
func gormLogger(log *slog.Logger) logger.Interface {
	if log == nil {
		return logger.Discard
	}
	return logger.New(slog.NewLogLogger(log.Handler(), slog.LevelWarn), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Migrate creates the schema. The partial unique index keeps at most one
// trial/active subscription per user; AutoMigrate cannot express it.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&plans.Plan{},
		&billing.Transaction{},
		&billing.WebhookEvent{},
		&subscriptions.Subscription{},
	); err != nil {
		return fmt.Errorf("database: automigrate: %w", err)
	}

	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_live_user
		ON subscriptions (user_id) WHERE status IN ('trial', 'active')`).Error; err != nil {
		return fmt.Errorf("database: live subscription index: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
