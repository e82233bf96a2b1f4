// Package modelsource builds models on first use and serves them from a
// cache afterwards.
package modelsource

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/modelcache"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// Cached models are weighed the same; the cache size limit is in these units.
const (
	EntrySize     int64 = 100
	EntryPriority       = modelcache.PriorityHigh
)

var (
	// ErrNilDependencies is returned when GetModel has nothing to build with
	ErrNilDependencies = errors.New("model creation dependencies are required")
	// ErrNilContext is returned when GetModel is called without a context
	ErrNilContext = errors.New("context is required")
)

// ModelSource hands out one model per cache key. The first request for a
// key builds the model; concurrent first requests wait for that build
// instead of building their own.
type ModelSource struct {
	mu          sync.Mutex
	cache       modelcache.Cache
	keys        modelcache.KeyFactory
	customizers []Customizer
	metrics     *sourceMetrics
	log         *zap.Logger
}

// Option configures a ModelSource
type Option func(*options)

type options struct {
	customizers []Customizer
	registerer  prometheus.Registerer
	log         *zap.Logger
}

// WithCustomizers adds customizers that run after OnModelCreating, in order
func WithCustomizers(customizers ...Customizer) Option {
	return func(o *options) {
		o.customizers = append(o.customizers, customizers...)
	}
}

// WithRegisterer exports build and cache metrics
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithZap sets the logger used to trace builds
func WithZap(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// New creates a model source over cache. keys defaults to
// modelcache.DefaultKeyFactory when nil.
func New(cache modelcache.Cache, keys modelcache.KeyFactory, opts ...Option) (*ModelSource, error) {
	if cache == nil {
		return nil, errors.New("model source: cache is required")
	}
	if keys == nil {
		keys = modelcache.DefaultKeyFactory{}
	}

	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	s := &ModelSource{
		cache:       cache,
		keys:        keys,
		customizers: append([]Customizer{ModelCreatorCustomizer{}}, o.customizers...),
		log:         o.log,
	}
	if o.registerer != nil {
		m, err := newSourceMetrics(o.registerer)
		if err != nil {
			return nil, fmt.Errorf("register model source metrics: %w", err)
		}
		s.metrics = m
	}
	return s, nil
}

// Cache returns the cache the source stores models in
func (s *ModelSource) Cache() modelcache.Cache {
	return s.cache
}

// GetModel returns the model for ctx, building it on a cache miss. Cached
// models are shared by every caller. Build and validation errors are
// returned and nothing is cached, so the next call builds again.
func (s *ModelSource) GetModel(ctx any, deps *ModelCreationDependencies, designTime bool) (schema.ReadOnlyModel, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if deps == nil || deps.RuntimeInitializer == nil {
		return nil, ErrNilDependencies
	}

	key := s.keys.Create(ctx, designTime)
	if model, ok := s.cache.Get(key); ok {
		return s.hit(ctx, deps, designTime, model)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if model, ok := s.cache.Get(key); ok {
		return s.hit(ctx, deps, designTime, model)
	}
	s.metrics.recordMiss()

	start := time.Now()
	model, err := s.createModel(ctx, deps, designTime)
	if err != nil {
		s.metrics.recordFailure()
		s.log.Debug("model build failed",
			zap.Stringer("context", modelcache.ContextType(ctx)),
			zap.Bool("design_time", designTime),
			zap.Error(err))
		return nil, err
	}
	elapsed := time.Since(start)
	s.metrics.recordBuild(elapsed.Seconds())

	if err := deps.ValidationLogger.Log(diagnostics.ModelBuilt,
		modelcache.ContextType(ctx), len(model.EntityTypes()), elapsed.Round(time.Microsecond)); err != nil {
		return nil, err
	}

	if err := s.cache.Set(key, model, modelcache.EntryOptions{Size: EntrySize, Priority: EntryPriority}); err != nil {
		s.log.Warn("model could not be cached",
			zap.Stringer("context", modelcache.ContextType(ctx)),
			zap.Error(err))
	}
	return model, nil
}

func (s *ModelSource) hit(ctx any, deps *ModelCreationDependencies, designTime bool, model schema.ReadOnlyModel) (schema.ReadOnlyModel, error) {
	s.metrics.recordHit()
	if err := deps.ValidationLogger.Log(diagnostics.ModelCacheHit, modelcache.ContextType(ctx), designTime); err != nil {
		return nil, err
	}
	return model, nil
}

// createModel runs conventions and customizers, then hands the model to
// the runtime initializer. Panics raised by OnModelCreating propagate.
func (s *ModelSource) createModel(ctx any, deps *ModelCreationDependencies, designTime bool) (schema.ReadOnlyModel, error) {
	if err := deps.ValidationLogger.Log(diagnostics.ModelBuilding, modelcache.ContextType(ctx), designTime); err != nil {
		return nil, err
	}

	var conventions schema.ConventionDispatcher
	if deps.ConventionSetBuilder != nil {
		conventions = deps.ConventionSetBuilder.CreateConventionSet()
	}
	b := schema.NewModelBuilder(conventions)

	for _, c := range s.customizers {
		if err := c.Customize(b, ctx); err != nil {
			return nil, fmt.Errorf("customize model for %s: %w", modelcache.ContextType(ctx), err)
		}
	}

	model, err := b.FinalizeModel()
	if err != nil {
		return nil, fmt.Errorf("build model for %s: %w", modelcache.ContextType(ctx), err)
	}

	return deps.RuntimeInitializer.Initialize(model, designTime, deps.ValidationLogger)
}
