package mysql

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config sizes the MySQL connection pool. Zero values leave the database/sql
// defaults in place.
type Config struct {
	DSN         string
	MaxOpen     int
	MaxIdle     int
	ConnMaxLife time.Duration
}

// Open connects to MySQL and applies the pool limits. GORM's own query
// logging is silenced; access logging happens at the HTTP layer.
func Open(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pool, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpen > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxIdle > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.ConnMaxLife > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLife)
	}
	return db, nil
}
