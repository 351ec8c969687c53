package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/pmguide/internal/adapters/file"
	"github.com/aretw0/pmguide/internal/adapters/sqlite"
	"github.com/aretw0/pmguide/internal/config"
	"github.com/aretw0/pmguide/pkg/adapters/memory"
	"github.com/aretw0/pmguide/pkg/adapters/redis"
	"github.com/aretw0/pmguide/pkg/persistence/middleware"
	"github.com/aretw0/pmguide/pkg/ports"
)

// Backend bundles the stores selected by configuration.
type Backend struct {
	Driver   string
	Contexts ports.ContextStore
	Progress ports.ProgressStore
	// Locker is nil unless the driver shares sessions across processes.
	Locker ports.DistributedLocker

	closers []io.Closer
}

// Close releases every connection held by the backend.
func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenBackend builds the context and progress stores for cfg.StoreDriver and
// applies the at-rest privacy middleware to the context store.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{Driver: cfg.StoreDriver}

	switch cfg.StoreDriver {
	case config.DriverMemory, "":
		store := memory.NewStore()
		b.Driver = config.DriverMemory
		b.Contexts, b.Progress = store, store

	case config.DriverFile:
		store := file.New(cfg.SessionDir)
		b.Contexts, b.Progress = store, store

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("sqlite health check failed: %w", err)
		}
		b.Contexts, b.Progress = store, store
		b.closers = append(b.closers, store)

	case config.DriverRedis:
		opts := []redis.Option{redis.WithPrefix(cfg.Redis.Prefix)}
		if cfg.SessionTTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.SessionTTL))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Client().Ping(pingCtx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		b.Contexts, b.Progress = store, store
		b.Locker = redis.NewLocker(store.Client(), cfg.Redis.Prefix+"lock:")
		b.closers = append(b.closers, store)

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	contexts, err := wrapPrivacy(b.Contexts, cfg.Privacy)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Contexts = contexts

	logger.Debug("store backend ready",
		"driver", b.Driver,
		"mask_pii", cfg.Privacy.MaskPII,
		"encrypted", len(cfg.Privacy.EncryptionKey) > 0,
		"distributed_lock", b.Locker != nil,
	)
	return b, nil
}

// wrapPrivacy masks before it encrypts so the sealed envelope never holds raw PII.
func wrapPrivacy(store ports.ContextStore, p config.PrivacyConfig) (ports.ContextStore, error) {
	var mws []middleware.Middleware
	if p.MaskPII {
		mw, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if len(p.EncryptionKey) > 0 {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    p.EncryptionKey,
			FallbackKeys: p.FallbackKeys,
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), nil
}
