package modelsource

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/modelcache"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
	"github.com/conduit-lang/metamodel/internal/orm/validation"
)

type Product struct {
	ID    int
	Name  string
	Price float64
}

type Order struct {
	ID        int
	ProductID int
	Product   *Product
}

// shopContext configures a product catalog and counts its builds
type shopContext struct {
	builds *atomic.Int32
}

func (c *shopContext) OnModelCreating(b *schema.ModelBuilder) {
	c.builds.Add(1)
	b.Entity(Product{})
	b.Entity(Order{}).HasOne(Product{}, "Product").WithMany("")
}

// brokenContext declares an entity type without a key
type brokenContext struct {
	builds *atomic.Int32
}

func (c *brokenContext) OnModelCreating(b *schema.ModelBuilder) {
	c.builds.Add(1)
	b.SharedEntity("Orphan")
}

type panickingContext struct{}

func (panickingContext) OnModelCreating(b *schema.ModelBuilder) {
	panic("configuration bug")
}

func newSource(t *testing.T, opts ...Option) *ModelSource {
	t.Helper()
	cache, err := modelcache.NewLRUCache()
	require.NoError(t, err)
	s, err := New(cache, nil, opts...)
	require.NoError(t, err)
	return s
}

func TestGetModel_CachesPerContextType(t *testing.T) {
	s := newSource(t)
	deps := NewModelCreationDependencies(diagnostics.NewLogger())
	var builds atomic.Int32

	first, err := s.GetModel(&shopContext{builds: &builds}, deps, false)
	require.NoError(t, err)
	second, err := s.GetModel(&shopContext{builds: &builds}, deps, false)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), builds.Load())
	assert.IsType(t, &schema.RuntimeModel{}, first)
	assert.NotNil(t, first.FindEntityType("Order"))
}

func TestGetModel_DesignTimeIsSeparate(t *testing.T) {
	s := newSource(t)
	deps := NewModelCreationDependencies(diagnostics.NewLogger())
	var builds atomic.Int32

	runtime, err := s.GetModel(&shopContext{builds: &builds}, deps, false)
	require.NoError(t, err)
	design, err := s.GetModel(&shopContext{builds: &builds}, deps, true)
	require.NoError(t, err)

	assert.IsType(t, &schema.RuntimeModel{}, runtime)
	assert.IsType(t, &schema.Model{}, design)
	assert.Equal(t, int32(2), builds.Load())
	assert.Equal(t, 2, s.Cache().Len())
}

func TestGetModel_FailuresAreNotCached(t *testing.T) {
	s := newSource(t)
	deps := NewModelCreationDependencies(diagnostics.NewLogger())
	var builds atomic.Int32

	for i := 0; i < 3; i++ {
		_, err := s.GetModel(&brokenContext{builds: &builds}, deps, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, validation.ErrEntityRequiresKey)
	}
	assert.Equal(t, int32(3), builds.Load())
	assert.Zero(t, s.Cache().Len())
}

func TestGetModel_CustomizersRunInOrder(t *testing.T) {
	var order []string
	record := func(name string) Customizer {
		return CustomizerFunc(func(b *schema.ModelBuilder, ctx any) error {
			order = append(order, name)
			return nil
		})
	}
	s := newSource(t, WithCustomizers(record("first"), record("second")))
	var builds atomic.Int32

	_, err := s.GetModel(&shopContext{builds: &builds}, NewModelCreationDependencies(nil), false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), builds.Load(), "OnModelCreating runs before the added customizers")
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestGetModel_CustomizerError(t *testing.T) {
	boom := errors.New("boom")
	s := newSource(t, WithCustomizers(CustomizerFunc(func(*schema.ModelBuilder, any) error { return boom })))
	var builds atomic.Int32

	_, err := s.GetModel(&shopContext{builds: &builds}, NewModelCreationDependencies(nil), false)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, s.Cache().Len())
}

func TestGetModel_PanicReleasesLock(t *testing.T) {
	s := newSource(t)
	deps := NewModelCreationDependencies(nil)

	assert.Panics(t, func() {
		_, _ = s.GetModel(panickingContext{}, deps, false)
	})

	var builds atomic.Int32
	_, err := s.GetModel(&shopContext{builds: &builds}, deps, false)
	assert.NoError(t, err)
}

func TestGetModel_RequiresArguments(t *testing.T) {
	s := newSource(t)
	var builds atomic.Int32

	_, err := s.GetModel(nil, NewModelCreationDependencies(nil), false)
	assert.ErrorIs(t, err, ErrNilContext)
	_, err = s.GetModel(&shopContext{builds: &builds}, nil, false)
	assert.ErrorIs(t, err, ErrNilDependencies)
	_, err = s.GetModel(&shopContext{builds: &builds}, &ModelCreationDependencies{}, false)
	assert.ErrorIs(t, err, ErrNilDependencies)

	deps := NewModelCreationDependencies(nil)
	deps.RuntimeInitializer = nil
	_, err = s.GetModel(&shopContext{builds: &builds}, deps, false)
	assert.ErrorIs(t, err, ErrNilDependencies)
	assert.Zero(t, builds.Load(), "OnModelCreating must not run without an initializer")
}

func TestGetModel_UncacheableModelIsStillReturned(t *testing.T) {
	cache, err := modelcache.NewLRUCache(modelcache.WithSizeLimit(EntrySize - 1))
	require.NoError(t, err)
	s, err := New(cache, nil)
	require.NoError(t, err)
	var builds atomic.Int32

	for i := 0; i < 2; i++ {
		model, err := s.GetModel(&shopContext{builds: &builds}, NewModelCreationDependencies(nil), false)
		require.NoError(t, err)
		assert.NotNil(t, model)
	}
	assert.Equal(t, int32(2), builds.Load())
}

func TestGetModel_PerInstanceKeyFactory(t *testing.T) {
	cache, err := modelcache.NewLRUCache()
	require.NoError(t, err)
	byCounter := modelcache.KeyFactoryFunc(func(ctx any, designTime bool) any {
		return struct {
			modelcache.Key
			Counter *atomic.Int32
		}{modelcache.Key{ContextType: modelcache.ContextType(ctx), DesignTime: designTime}, ctx.(*shopContext).builds}
	})
	s, err := New(cache, byCounter)
	require.NoError(t, err)
	deps := NewModelCreationDependencies(nil)

	var a, b atomic.Int32
	ma, err := s.GetModel(&shopContext{builds: &a}, deps, false)
	require.NoError(t, err)
	mb, err := s.GetModel(&shopContext{builds: &b}, deps, false)
	require.NoError(t, err)

	assert.NotSame(t, ma, mb)
	assert.Equal(t, int32(1), a.Load())
	assert.Equal(t, int32(1), b.Load())
}

func TestGetModel_LogsEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := diagnostics.NewLogger(diagnostics.WithZap(zap.New(core)))
	s := newSource(t)
	deps := NewModelCreationDependencies(logger)
	var builds atomic.Int32

	for i := 0; i < 2; i++ {
		_, err := s.GetModel(&shopContext{builds: &builds}, deps, false)
		require.NoError(t, err)
	}

	count := func(def diagnostics.EventDefinition) int {
		n := 0
		for _, entry := range logs.All() {
			if id, ok := entry.ContextMap()["event_id"]; ok && id == int64(def.ID) {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, count(diagnostics.ModelBuilding))
	assert.Equal(t, 1, count(diagnostics.ModelBuilt))
	assert.Equal(t, 1, count(diagnostics.ModelCacheHit))
}

func TestGetModel_EventConfiguredAsError(t *testing.T) {
	logger := diagnostics.NewLogger(diagnostics.WithBehavior(diagnostics.ModelBuilding.EventID, diagnostics.BehaviorError))
	s := newSource(t)
	var builds atomic.Int32

	_, err := s.GetModel(&shopContext{builds: &builds}, NewModelCreationDependencies(logger), false)
	assert.ErrorIs(t, err, diagnostics.ErrWarningAsError)
	assert.Zero(t, builds.Load())
}

func TestGetModel_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newSource(t, WithRegisterer(reg))
	deps := NewModelCreationDependencies(nil)
	var good, bad atomic.Int32

	for i := 0; i < 3; i++ {
		_, err := s.GetModel(&shopContext{builds: &good}, deps, false)
		require.NoError(t, err)
	}
	_, err := s.GetModel(&brokenContext{builds: &bad}, NewModelCreationDependencies(diagnostics.NewLogger()), false)
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.hits))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.misses))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.builds))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.failures))
	assert.Equal(t, 1, testutil.CollectAndCount(s.metrics.buildDuration))
}

func TestGetModel_ConcurrentFirstUse(t *testing.T) {
	s := newSource(t)
	deps := NewModelCreationDependencies(diagnostics.NewLogger())
	var builds atomic.Int32

	results := make([]schema.ReadOnlyModel, 100)
	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() error {
			model, err := s.GetModel(&shopContext{builds: &builds}, deps, i%2 == 0)
			results[i] = model
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(2), builds.Load(), "one build per design-time flag")
	for i, model := range results {
		assert.Same(t, results[i%2], model)
	}
}
