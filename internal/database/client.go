// Package database opens TimescaleDB connections and defines the tables the
// simulator reads from and writes to.
package database

import (
	"fmt"
	"time"

	"github.com/chrissnell/snowtiles/internal/log"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CreateConnection opens a gorm connection with SQL logging routed through zap
func CreateConnection(connectionString string) (*gorm.DB, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warn("warning: unable to create a TimescaleDB connection:", err)
		return nil, fmt.Errorf("connecting to TimescaleDB: %w", err)
	}
	log.Info("TimescaleDB connection successful")

	return db, nil
}
