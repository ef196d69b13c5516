package cli

import (
	"github.com/reflexhq/reflex/internal/config"
	"github.com/reflexhq/reflex/internal/store"
)

// loadConfig resolves the effective configuration: the --config file when
// given, defaults otherwise. An explicit --db flag on a command overrides
// the configured database path.
func loadConfig(opts *RootOptions, dbOverride string) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if dbOverride != "" {
		cfg.Database = dbOverride
	}
	return cfg, nil
}

// openStore opens the configured database, tenant-scoped.
func openStore(cfg config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.Database, store.WithTenant(cfg.Tenant))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
