package config

import (
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DatabaseEngine is the only supported database backend.
const DatabaseEngine = "mysql"

// DatabaseSettings holds the MySQL connection parameters read from
// DATABASE_NAME, DATABASE_USER, DATABASE_PASSWORD, DATABASE_HOST and DATABASE_PORT.
type DatabaseSettings struct {
	Name     string
	User     string
	Password string
	Host     string
	Port     string
}

func loadDatabaseSettings(env *environment, errs *[]error) DatabaseSettings {
	db := DatabaseSettings{
		Name:     env.require("DATABASE_NAME", errs),
		User:     env.require("DATABASE_USER", errs),
		Password: env.require("DATABASE_PASSWORD", errs),
		Host:     env.require("DATABASE_HOST", errs),
		Port:     env.require("DATABASE_PORT", errs),
	}
	return db
}

func validateDatabaseSettings(db DatabaseSettings) []error {
	var errs []error
	if db.Name == "" {
		errs = append(errs, &InvalidSettingError{Name: "DATABASE_NAME", Reason: "must not be empty"})
	}
	if db.Host == "" {
		errs = append(errs, &InvalidSettingError{Name: "DATABASE_HOST", Reason: "must not be empty"})
	}
	port, err := strconv.ParseUint(db.Port, 10, 16)
	if err != nil || port == 0 {
		errs = append(errs, &InvalidSettingError{Name: "DATABASE_PORT", Reason: "must be a TCP port between 1 and 65535"})
	}
	return errs
}

// Addr returns host:port.
func (d DatabaseSettings) Addr() string {
	return net.JoinHostPort(d.Host, d.Port)
}

// DriverConfig builds the go-sql-driver configuration. Times are parsed and
// stored in UTC, and UPDATE reports matched rather than changed rows.
func (d DatabaseSettings) DriverConfig() *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = d.Addr()
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	return cfg
}

// DSN returns the data source name used to open the connection pool.
func (d DatabaseSettings) DSN() string {
	return d.DriverConfig().FormatDSN()
}

// Redacted returns a printable form with the password hidden.
func (d DatabaseSettings) Redacted() string {
	cfg := d.DriverConfig()
	if cfg.Passwd != "" {
		cfg.Passwd = "********"
	}
	return cfg.FormatDSN()
}
