package store

import (
	"context"
	"fmt"

	"github.com/meetbot/core/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresConnector hands out a *gorm.DB bound to the request/tick context,
// mirroring the teacher's connectors.PostgresConnector contract
// (internal_callcontext.Store takes one in its constructor and calls
// .DB(ctx) on every operation).
type PostgresConnector interface {
	DB(ctx context.Context) *gorm.DB
	Close() error
}

type postgresConnector struct {
	db *gorm.DB
}

// NewPostgresConnector opens the event store's database connection pool.
func NewPostgresConnector(cfg config.PostgresConfig) (PostgresConnector, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, orDefault(cfg.SSLMode, "disable"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(orDefaultInt(cfg.MaxOpenConnections, 10))
	sqlDB.SetMaxIdleConns(orDefaultInt(cfg.MaxIdleConnections, 10))

	return &postgresConnector{db: db}, nil
}

func (p *postgresConnector) DB(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx)
}

func (p *postgresConnector) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// AutoMigrate creates/updates the tables for every model. Schema versioning
// for production deploys is handled separately by internal/store/migrate
// (golang-migrate); AutoMigrate is the fast path used by tests and local
// development, matching the teacher's reliance on gorm's own migration
// helpers rather than a bespoke DDL layer for iteration speed.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Bot{},
		&BotEvent{},
		&Recording{},
		&Utterance{},
		&Participant{},
		&ParticipantEvent{},
		&ChatMessage{},
		&MediaRequest{},
		&WebhookSubscription{},
		&WebhookDeliveryAttempt{},
		&CreditTransaction{},
	)
}
