package engine

import (
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/jnarowski/agentcmd"
	"github.com/jnarowski/agentcmd/internal/config"
	"github.com/jnarowski/agentcmd/internal/history"
	"github.com/jnarowski/agentcmd/internal/logger"
)

// Option configures an Engine at construction time.
type Option func(*Engine) error

// WithDriver registers or replaces a driver. Custom drivers must implement
// LineParser or DocumentParser alongside the core interface.
func WithDriver(d agentcmd.Driver) Option {
	return func(e *Engine) error {
		e.drivers[d.Name()] = d
		return nil
	}
}

// WithBinaryOverride pins the executable for a provider, bypassing PATH
// lookup and the driver's candidate list.
func WithBinaryOverride(p agentcmd.Provider, path string) Option {
	return func(e *Engine) error {
		e.binaries[p] = path
		return nil
	}
}

// WithDefaultTimeout sets the timeout applied to requests that carry none.
func WithDefaultTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		e.defaults.timeout = d
		return nil
	}
}

// WithDefaultModel sets the model applied to requests that carry none.
func WithDefaultModel(model string) Option {
	return func(e *Engine) error {
		e.defaults.model = model
		return nil
	}
}

// WithDefaultPermissionMode sets the permission mode applied to requests
// that carry none.
func WithDefaultPermissionMode(mode agentcmd.PermissionMode) Option {
	return func(e *Engine) error {
		e.defaults.permissionMode = mode
		return nil
	}
}

// WithSpawnLimit throttles subprocess creation to perSecond spawns with the
// given burst. Concurrent Execute calls block in rate order.
func WithSpawnLimit(perSecond float64, burst int) Option {
	return func(e *Engine) error {
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// WithHistory records finished executions to a SQLite database under
// dataDir.
func WithHistory(dataDir string) Option {
	return func(e *Engine) error {
		store, err := history.NewStore(dataDir)
		if err != nil {
			return err
		}
		e.history = store
		return nil
	}
}

// WithLogger installs the library logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) error {
		logger.Set(l)
		return nil
	}
}

// WithConfigFile applies an agentcmd.jsonc configuration file. Explicit
// options given after this one win over the file's values.
func WithConfigFile(path string) Option {
	return func(e *Engine) error {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		for name, bin := range cfg.Binaries {
			e.binaries[agentcmd.Provider(name)] = bin
		}
		if cfg.Defaults.PermissionMode != "" {
			e.defaults.permissionMode = agentcmd.PermissionMode(cfg.Defaults.PermissionMode)
		}
		if cfg.Defaults.Model != "" {
			e.defaults.model = cfg.Defaults.Model
		}
		if cfg.Defaults.TimeoutSeconds > 0 {
			e.defaults.timeout = time.Duration(cfg.Defaults.TimeoutSeconds) * time.Second
		}
		if cfg.DataDir != "" {
			store, err := history.NewStore(cfg.DataDir)
			if err != nil {
				return err
			}
			e.history = store
		}

		logger.Init(os.Stderr, cfg.Log.JSON, parseLevel(cfg.Log.Level))
		return nil
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
