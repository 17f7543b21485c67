package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
)

// Open establishes a MySQL connection pool described by cfg. A nil log
// silences GORM.
func Open(cfg *mysql.Config, log logger.Interface) (*gorm.DB, error) {
	if log == nil {
		log = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(
		gormmysql.New(gormmysql.Config{DSN: cfg.FormatDSN()}),
		&gorm.Config{
			Logger:                 log,
			SkipDefaultTransaction: true,
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// OpenRaw opens a plain database/sql handle, used for schema migrations.
func OpenRaw(cfg *mysql.Config) (*sql.DB, error) {
	migrationCfg := cfg.Clone()
	migrationCfg.MultiStatements = true

	connector, err := mysql.NewConnector(migrationCfg)
	if err != nil {
		return nil, fmt.Errorf("build connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}
