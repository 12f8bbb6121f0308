package cli

import (
	"context"
	"log/slog"

	// database/sql drivers selectable from the configuration
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-iform/internal/config"
	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/bridge/memory"
	"github.com/goliatone/go-iform/pkg/bridge/sqlbridge"
)

// driverNames maps configuration drivers onto registered database/sql names.
var driverNames = map[string]string{
	"sqlite":   "sqlite",
	"postgres": "postgres",
}

// openBridge returns the configured data bridge and a function releasing it.
func openBridge(ctx context.Context, cfg config.Config, logger *slog.Logger) (bridge.DataBridge, func() error, error) {
	allow, err := cfg.AllowList()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "bridge tables", err)
	}
	name, ok := driverNames[cfg.Bridge.Driver]
	if !ok {
		logger.Warn("using the in-memory bridge; saved records are not persisted")
		return memory.New(allow), func() error { return nil }, nil
	}
	b, err := sqlbridge.Open(ctx, name, cfg.Bridge.DSN, allow, sqlbridge.WithLogger(logger))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open bridge", err)
	}
	logger.Debug("bridge connected", "driver", name, "tables", allow.Tables())
	return b, b.Close, nil
}
