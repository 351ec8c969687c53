package cli

import (
	"log/slog"

	"github.com/aretw0/pmguide"
	"github.com/aretw0/pmguide/internal/config"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/observability"
)

// NewEngine initializes a dialogue engine over the backend stores.
// Every hook set is chained after the logging hooks.
func NewEngine(cfg *config.Config, b *Backend, logger *slog.Logger, hooks ...domain.LifecycleHooks) *pmguide.Engine {
	sets := append([]domain.LifecycleHooks{observability.LogHooks(logger)}, hooks...)

	opts := []pmguide.Option{
		pmguide.WithLogger(logger),
		pmguide.WithKnowledgeFile(cfg.KnowledgePath),
		pmguide.WithStore(b.Contexts),
		pmguide.WithLifecycleHooks(observability.Chain(sets...)),
	}
	if b.Locker != nil {
		opts = append(opts, pmguide.WithLocker(b.Locker))
	}
	return pmguide.New(opts...)
}
