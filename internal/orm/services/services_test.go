package services

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/initializer"
	"github.com/conduit-lang/metamodel/internal/orm/modelcache"
	"github.com/conduit-lang/metamodel/internal/orm/modelsource"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
	"github.com/conduit-lang/metamodel/internal/orm/validation"
)

type Product struct {
	ID   int
	Name string
}

type catalogContext struct{}

func (catalogContext) OnModelCreating(b *schema.ModelBuilder) {
	b.Entity(Product{})
}

type sqlGenerator struct {
	dialect string
}

func coreProvider(t *testing.T) *Provider {
	t.Helper()
	b := NewBuilder(nil)
	require.NoError(t, b.TryAddCoreServices())
	return b.Build()
}

func TestLifetime_String(t *testing.T) {
	assert.Equal(t, "singleton", Singleton.String())
	assert.Equal(t, "scoped", Scoped.String())
	assert.Equal(t, "transient", Transient.String())
	assert.Equal(t, "unknown", Lifetime(9).String())
}

func TestBuilder_TryAdd(t *testing.T) {
	t.Run("unknown service", func(t *testing.T) {
		err := NewBuilder(nil).TryAdd(reflect.TypeFor[*sqlGenerator](), Singleton, func(Resolver) (any, error) {
			return &sqlGenerator{}, nil
		})
		assert.ErrorIs(t, err, ErrUnknownService)
	})

	t.Run("provider service", func(t *testing.T) {
		b := NewBuilder(map[reflect.Type]Characteristics{
			reflect.TypeFor[*sqlGenerator](): {Lifetime: Scoped},
		})
		require.NoError(t, Add(b, Scoped, func(Resolver) (*sqlGenerator, error) { return &sqlGenerator{}, nil }))
		assert.True(t, b.IsRegistered(reflect.TypeFor[*sqlGenerator]()))
	})

	t.Run("lifetime mismatch", func(t *testing.T) {
		err := Add(NewBuilder(nil), Transient, func(Resolver) (modelcache.Cache, error) {
			return modelcache.NewLRUCache()
		})
		assert.ErrorIs(t, err, ErrLifetimeMismatch)
	})

	t.Run("nil factory", func(t *testing.T) {
		err := NewBuilder(nil).TryAdd(reflect.TypeFor[modelcache.Cache](), Singleton, nil)
		assert.Error(t, err)
	})
}

func TestBuilder_FirstRegistrationWins(t *testing.T) {
	b := NewBuilder(nil)
	custom := modelcache.KeyFactoryFunc(func(ctx any, designTime bool) any { return "custom" })
	require.NoError(t, b.TryAddInstance(reflect.TypeFor[modelcache.KeyFactory](), modelcache.KeyFactory(custom)))
	require.NoError(t, b.TryAddCoreServices())

	keys, err := Resolve[modelcache.KeyFactory](b.Build())
	require.NoError(t, err)
	assert.Equal(t, "custom", keys.Create(catalogContext{}, false))
}

func TestBuilder_MultipleServicesAccumulate(t *testing.T) {
	b := NewBuilder(nil)
	var order []string
	for _, name := range []string{"first", "second"} {
		name := name
		require.NoError(t, Add(b, Singleton, func(Resolver) (modelsource.Customizer, error) {
			return modelsource.CustomizerFunc(func(*schema.ModelBuilder, any) error {
				order = append(order, name)
				return nil
			}), nil
		}))
	}
	require.NoError(t, b.TryAddCoreServices())
	scope := b.Build().CreateScope()

	customizers, err := ResolveAll[modelsource.Customizer](scope)
	require.NoError(t, err)
	assert.Len(t, customizers, 2)

	_, err = GetModel(scope, catalogContext{}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestProvider_Lifetimes(t *testing.T) {
	p := coreProvider(t)

	t.Run("singletons are shared", func(t *testing.T) {
		a, err := Resolve[*modelsource.ModelSource](p.CreateScope())
		require.NoError(t, err)
		b, err := Resolve[*modelsource.ModelSource](p.CreateScope())
		require.NoError(t, err)
		assert.Same(t, a, b)
	})

	t.Run("scoped instances are per scope", func(t *testing.T) {
		scope := p.CreateScope()
		a, err := Resolve[*diagnostics.Logger](scope)
		require.NoError(t, err)
		again, err := Resolve[*diagnostics.Logger](scope)
		require.NoError(t, err)
		other, err := Resolve[*diagnostics.Logger](p.CreateScope())
		require.NoError(t, err)

		assert.Same(t, a, again)
		assert.NotSame(t, a, other)
	})

	t.Run("scoped needs a scope", func(t *testing.T) {
		_, err := Resolve[*diagnostics.Logger](p)
		assert.ErrorIs(t, err, ErrScopeRequired)
	})

	t.Run("transients are new every time", func(t *testing.T) {
		b := NewBuilder(map[reflect.Type]Characteristics{
			reflect.TypeFor[*sqlGenerator](): {Lifetime: Transient},
		})
		created := 0
		require.NoError(t, Add(b, Transient, func(Resolver) (*sqlGenerator, error) {
			created++
			return &sqlGenerator{dialect: "sqlite"}, nil
		}))
		p := b.Build()
		a, err := Resolve[*sqlGenerator](p)
		require.NoError(t, err)
		c, err := Resolve[*sqlGenerator](p)
		require.NoError(t, err)
		assert.NotSame(t, a, c)
		assert.Equal(t, 2, created)
	})
}

func TestProvider_NotRegistered(t *testing.T) {
	_, err := Resolve[*validation.ModelValidator](NewBuilder(nil).Build())
	assert.ErrorIs(t, err, ErrNotRegistered)

	all, err := ResolveAll[modelsource.Customizer](NewBuilder(nil).Build())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProvider_FailedFactoryIsRetried(t *testing.T) {
	var calls atomic.Int32
	b := NewBuilder(nil)
	require.NoError(t, Add(b, Singleton, func(Resolver) (*validation.ModelValidator, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("not yet")
		}
		return validation.NewModelValidator(), nil
	}))
	p := b.Build()

	_, err := Resolve[*validation.ModelValidator](p)
	require.Error(t, err)
	v, err := Resolve[*validation.ModelValidator](p)
	require.NoError(t, err)
	again, err := Resolve[*validation.ModelValidator](p)
	require.NoError(t, err)
	assert.Same(t, v, again)
	assert.Equal(t, int32(2), calls.Load())
}

func TestProvider_CoreServicesWireTogether(t *testing.T) {
	p := coreProvider(t)
	scope := p.CreateScope()

	deps, err := Resolve[*modelsource.ModelCreationDependencies](scope)
	require.NoError(t, err)
	ri, err := Resolve[*initializer.RuntimeInitializer](scope)
	require.NoError(t, err)
	logger, err := Resolve[*diagnostics.Logger](scope)
	require.NoError(t, err)

	assert.Same(t, ri, deps.RuntimeInitializer)
	assert.Same(t, logger, deps.ValidationLogger)
	assert.NotNil(t, deps.ConventionSetBuilder)
}

func TestGetModel_SharedAcrossScopes(t *testing.T) {
	p := coreProvider(t)

	models := make([]schema.ReadOnlyModel, 32)
	var g errgroup.Group
	for i := range models {
		i := i
		g.Go(func() error {
			m, err := GetModel(p.CreateScope(), catalogContext{}, false)
			models[i] = m
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, m := range models {
		assert.Same(t, models[0], m)
	}
	assert.NotNil(t, models[0].FindEntityType("Product"))
}

func TestCoreServices_Table(t *testing.T) {
	assert.Equal(t, Characteristics{Lifetime: Singleton}, CoreServices[reflect.TypeFor[*modelsource.ModelSource]()])
	assert.Equal(t, Characteristics{Lifetime: Singleton, Multiple: true}, CoreServices[reflect.TypeFor[modelsource.Customizer]()])
	assert.Equal(t, Scoped, CoreServices[reflect.TypeFor[*modelsource.ModelCreationDependencies]()].Lifetime)
}
