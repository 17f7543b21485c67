package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/alx-travel/alx-travel-app/internal/auth"
	"github.com/alx-travel/alx-travel-app/internal/config"
	"github.com/alx-travel/alx-travel-app/internal/storage"
)

type cli struct {
	app *kingpin.Application

	configFile     *string
	envFile        *string
	port           *string
	storageBackend *string
	rateLimitRPS   *float64
	rateLimitBurst *int

	serve *kingpin.CmdClause

	check       *kingpin.CmdClause
	checkDeploy *bool

	migrateUp      *kingpin.CmdClause
	migrateDown    *kingpin.CmdClause
	migrateSteps   *int
	migrateVersion *kingpin.CmdClause

	token        *kingpin.CmdClause
	tokenSubject *string
	tokenTTL     *time.Duration
}

func newCLI() *cli {
	c := &cli{}
	c.app = kingpin.New("alx-travel-app", "ALX travel listings API")

	c.configFile = c.app.Flag("config", "Path to YAML configuration file").String()
	c.envFile = c.app.Flag("env-file", "Path to the .env file read for missing environment variables (default: .env at the project root)").String()
	c.port = c.app.Flag("port", "HTTP port exposed by the service").String()
	c.storageBackend = c.app.Flag("storage", "Storage backend (mysql or memory)").Enum(config.StorageMySQL, config.StorageMemory)
	c.rateLimitRPS = c.app.Flag("rate-limit-rps", "Requests per second allowed per client (set 0 to disable)").Default("-1").Float64()
	c.rateLimitBurst = c.app.Flag("rate-limit-burst", "Burst capacity for rate limiter").Default("-1").Int()

	c.serve = c.app.Command("serve", "Run the HTTP server").Default()

	c.check = c.app.Command("check", "Validate configuration")
	c.checkDeploy = c.check.Flag("deploy", "Also report settings unsafe for production").Bool()

	migrate := c.app.Command("migrate", "Manage the database schema")
	c.migrateUp = migrate.Command("up", "Apply all pending migrations")
	c.migrateDown = migrate.Command("down", "Roll back migrations")
	c.migrateSteps = c.migrateDown.Arg("steps", "Number of migrations to roll back").Default("1").Int()
	c.migrateVersion = migrate.Command("version", "Print the applied schema version")

	c.token = c.app.Command("token", "Issue a bearer token for API clients")
	c.tokenSubject = c.token.Arg("subject", "Token subject, e.g. a user email").Required().String()
	c.tokenTTL = c.token.Flag("ttl", "Token lifetime").Default("24h").Duration()

	return c
}

func (c *cli) overrides() *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		ConfigFile: *c.configFile,
	}

	if *c.envFile != "" {
		overrides.EnvFile = c.envFile
	}

	if *c.port != "" {
		overrides.Port = c.port
	}

	if *c.storageBackend != "" {
		overrides.StorageBackend = c.storageBackend
	}

	if *c.rateLimitRPS >= 0 {
		overrides.RateLimitRPS = c.rateLimitRPS
	}

	if *c.rateLimitBurst >= 0 {
		overrides.RateLimitBurst = c.rateLimitBurst
	}

	return overrides
}

func runCheck(out io.Writer, cfg config.Config, deploy bool) int {
	var warnings []config.Warning
	if deploy {
		warnings = config.DeployWarnings(cfg)
	}

	if len(warnings) == 0 {
		fmt.Fprintln(out, "System check identified no issues.")
		return 0
	}

	fmt.Fprintln(out, "System check identified some issues:")
	for _, w := range warnings {
		fmt.Fprintf(out, "  ?: (%s) %s\n", w.ID, w.Message)
	}
	fmt.Fprintf(out, "System check identified %d issue(s).\n", len(warnings))
	return len(warnings)
}

type migrateAction int

const (
	migrateUp migrateAction = iota
	migrateDown
	migrateVersion
)

func runMigrate(out io.Writer, cfg config.Config, action migrateAction, steps int) (err error) {
	db, err := storage.OpenRaw(cfg.Database.DriverConfig())
	if err != nil {
		return err
	}

	m, err := storage.NewMigrator(db)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		err = errors.Join(err, m.Close())
	}()

	switch action {
	case migrateUp:
		if err := m.Up(); err != nil {
			return err
		}
	case migrateDown:
		if err := m.Down(steps); err != nil {
			return err
		}
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema version %d (dirty: %t) on %s\n", version, dirty, cfg.Database.Redacted())
	return nil
}

func runToken(out io.Writer, cfg config.Config, subject string, ttl time.Duration) error {
	tokens, err := auth.NewTokenIssuer(cfg.SecretKey)
	if err != nil {
		return err
	}
	token, err := tokens.Issue(subject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
