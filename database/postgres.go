package database

import (
	"fmt"

	"lise-messenger/config"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresConnect opens the Postgres pool and brings the schema up to date.
func PostgresConnect(cfg config.Settings, log zerolog.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDB,
		cfg.PostgresSSLMode,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info().Str("host", cfg.PostgresHost).Str("db", cfg.PostgresDB).Msg("postgres.connected")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info().Msg("postgres.migrated")
	return db, nil
}

// Ping checks that the pool can reach the server.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
