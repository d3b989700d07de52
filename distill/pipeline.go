package distill

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/distillery/ai"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage"
	"golang.org/x/sync/errgroup"
)

// Pipeline wires one Selector, one Distiller and one Refiner together.
// The selector feeds the distiller through a bounded channel and the
// distiller feeds the refiner through an unbounded queue.
type Pipeline struct {
	selector  *Selector
	distiller *Distiller
	refiner   *Refiner
	working   *WorkingSet
	work      chan core.ThreadCandidate
	refine    *Queue[RefineRequest]
	config    *Config
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(p *Pipeline) error {
		if config == nil {
			return ErrInvalidConfig
		}
		if err := config.Validate(); err != nil {
			return err
		}
		p.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a distillation pipeline.
func NewPipeline(
	threads storage.ThreadStore,
	knowledge storage.KnowledgeStore,
	profiles storage.ProfileStore,
	heartbeats storage.HeartbeatStore,
	completer ai.Completer,
	opts ...Option,
) (*Pipeline, error) {
	if threads == nil {
		return nil, ErrThreadStoreRequired
	}
	if knowledge == nil {
		return nil, ErrKnowledgeStoreRequired
	}
	if profiles == nil {
		return nil, ErrProfileStoreRequired
	}
	if heartbeats == nil {
		return nil, ErrHeartbeatStoreRequired
	}
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	p := &Pipeline{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	p.working = NewWorkingSet()
	p.work = make(chan core.ThreadCandidate, p.config.QueueCapacity)
	p.refine = NewQueue[RefineRequest]()
	p.selector = newSelector(threads, heartbeats, p.working, p.work, p.config, p.logger)
	p.distiller = newDistiller(threads, knowledge, completer, p.working, p.refine, p.config, p.logger)
	p.refiner = newRefiner(profiles, completer, p.logger)
	return p, nil
}

// Selector returns the pipeline's selector.
func (p *Pipeline) Selector() *Selector { return p.selector }

// Distiller returns the pipeline's distiller.
func (p *Pipeline) Distiller() *Distiller { return p.distiller }

// Refiner returns the pipeline's refiner.
func (p *Pipeline) Refiner() *Refiner { return p.refiner }

// WorkingSet returns the set of threads currently in flight.
func (p *Pipeline) WorkingSet() *WorkingSet { return p.working }

// Run starts the three loops and blocks until ctx ends or a loop fails.
// Cancellation is a clean shutdown and returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("starting distillation pipeline",
		"scanInterval", p.config.ScanInterval,
		"queueCapacity", p.config.QueueCapacity)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.selector.Run(ctx) })
	g.Go(func() error { return p.distiller.Run(ctx, p.work) })
	g.Go(func() error { return p.refiner.Run(ctx, p.refine) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		p.logger.Info("distillation pipeline stopped")
		return nil
	}
	return err
}
