package commands

import (
	"time"

	"github.com/werelate/dqa/am"
	"github.com/werelate/dqa/db"
	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/logger"
	"github.com/werelate/dqa/store"
)

// loadConfig loads and validates the configuration cascade.
func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithHint(
			errors.Wrap(err, "invalid configuration"),
			"check the active settings with: dqa am show")
	}
	return cfg, nil
}

// openStore opens and migrates the configured database and wraps it in a
// Store. The returned func closes the connection.
func openStore(cfg *am.Config) (*store.Store, func(), error) {
	source := cfg.Database.Path
	if cfg.Database.Driver == am.DriverPostgres {
		source = cfg.Database.DSN
	}

	conn, err := db.OpenWithMigrations(cfg.Database.Driver, source, logger.Logger)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open %s database", cfg.Database.Driver)
	}

	s, err := store.New(conn, cfg.Database.Driver, store.Options{
		FamilyCacheTTL: time.Duration(cfg.Database.FamilyCacheTTLSeconds) * time.Second,
		Logger:         logger.Logger.Named("store"),
	})
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	logger.Infow("Store ready",
		logger.FieldDriver, cfg.Database.Driver,
		"family_cache_ttl_seconds", cfg.Database.FamilyCacheTTLSeconds)
	return s, func() { conn.Close() }, nil
}
