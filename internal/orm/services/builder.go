package services

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/initializer"
	"github.com/conduit-lang/metamodel/internal/orm/modelcache"
	"github.com/conduit-lang/metamodel/internal/orm/modelsource"
	"github.com/conduit-lang/metamodel/internal/orm/validation"
)

var (
	// ErrUnknownService is returned when registering a type missing from the table
	ErrUnknownService = errors.New("service is not in the service table")
	// ErrLifetimeMismatch is returned when a registration uses another lifetime than the table
	ErrLifetimeMismatch = errors.New("service registered with the wrong lifetime")
)

// Factory creates a service instance. Singletons are created with the root
// scope; scoped and transient services with the resolving scope.
type Factory func(r Resolver) (any, error)

// Descriptor is one registration
type Descriptor struct {
	ServiceType reflect.Type
	Lifetime    Lifetime
	Factory     Factory
}

// Builder collects registrations checked against a service table
type Builder struct {
	table       map[reflect.Type]Characteristics
	descriptors []*Descriptor
}

// NewBuilder creates a builder accepting CoreServices plus the extra
// entries, which is how providers add their own services
func NewBuilder(extra map[reflect.Type]Characteristics) *Builder {
	table := make(map[reflect.Type]Characteristics, len(CoreServices)+len(extra))
	for t, c := range CoreServices {
		table[t] = c
	}
	for t, c := range extra {
		table[t] = c
	}
	return &Builder{table: table}
}

// TryAdd registers factory for serviceType. Single services keep their
// first registration and later ones are ignored; multiple services
// accumulate every registration.
func (b *Builder) TryAdd(serviceType reflect.Type, lifetime Lifetime, factory Factory) error {
	c, ok := b.table[serviceType]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownService, serviceType)
	}
	if c.Lifetime != lifetime {
		return fmt.Errorf("%w: %v is %s, not %s", ErrLifetimeMismatch, serviceType, c.Lifetime, lifetime)
	}
	if factory == nil {
		return fmt.Errorf("register %v: nil factory", serviceType)
	}
	if !c.Multiple && b.IsRegistered(serviceType) {
		return nil
	}
	b.descriptors = append(b.descriptors, &Descriptor{ServiceType: serviceType, Lifetime: lifetime, Factory: factory})
	return nil
}

// TryAddInstance registers an existing singleton instance
func (b *Builder) TryAddInstance(serviceType reflect.Type, instance any) error {
	return b.TryAdd(serviceType, Singleton, func(Resolver) (any, error) { return instance, nil })
}

// Add is the typed form of TryAdd
func Add[T any](b *Builder, lifetime Lifetime, factory func(r Resolver) (T, error)) error {
	return b.TryAdd(reflect.TypeFor[T](), lifetime, func(r Resolver) (any, error) {
		return factory(r)
	})
}

// IsRegistered reports whether serviceType has at least one registration
func (b *Builder) IsRegistered(serviceType reflect.Type) bool {
	for _, d := range b.descriptors {
		if d.ServiceType == serviceType {
			return true
		}
	}
	return false
}

// TryAddCoreServices registers the default implementation of every core
// service not registered yet. Register overrides before calling it.
func (b *Builder) TryAddCoreServices() error {
	steps := []error{
		Add(b, Scoped, func(Resolver) (*diagnostics.Logger, error) {
			return diagnostics.NewLogger(), nil
		}),
		Add(b, Singleton, func(Resolver) (modelcache.KeyFactory, error) {
			return modelcache.DefaultKeyFactory{}, nil
		}),
		Add(b, Singleton, func(Resolver) (modelcache.Cache, error) {
			return modelcache.NewLRUCache()
		}),
		Add(b, Singleton, func(Resolver) (*validation.ModelValidator, error) {
			return validation.NewModelValidator(), nil
		}),
		Add(b, Singleton, func(r Resolver) (*initializer.RuntimeInitializer, error) {
			v, err := Resolve[*validation.ModelValidator](r)
			if err != nil {
				return nil, err
			}
			return initializer.New(initializer.WithValidator(v)), nil
		}),
		Add(b, Scoped, func(r Resolver) (modelsource.ConventionSetBuilder, error) {
			logger, err := Resolve[*diagnostics.Logger](r)
			if err != nil {
				return nil, err
			}
			return modelsource.DefaultConventionSetBuilder(logger.Zap()), nil
		}),
		Add(b, Singleton, func(r Resolver) (*modelsource.ModelSource, error) {
			cache, err := Resolve[modelcache.Cache](r)
			if err != nil {
				return nil, err
			}
			keys, err := Resolve[modelcache.KeyFactory](r)
			if err != nil {
				return nil, err
			}
			customizers, err := ResolveAll[modelsource.Customizer](r)
			if err != nil {
				return nil, err
			}
			return modelsource.New(cache, keys, modelsource.WithCustomizers(customizers...))
		}),
		Add(b, Scoped, func(r Resolver) (*modelsource.ModelCreationDependencies, error) {
			conventions, err := Resolve[modelsource.ConventionSetBuilder](r)
			if err != nil {
				return nil, err
			}
			ri, err := Resolve[*initializer.RuntimeInitializer](r)
			if err != nil {
				return nil, err
			}
			logger, err := Resolve[*diagnostics.Logger](r)
			if err != nil {
				return nil, err
			}
			return &modelsource.ModelCreationDependencies{
				ConventionSetBuilder: conventions,
				RuntimeInitializer:   ri,
				ValidationLogger:     logger,
			}, nil
		}),
	}
	return errors.Join(steps...)
}

// Build creates a provider over the registrations made so far
func (b *Builder) Build() *Provider {
	return newProvider(b.descriptors)
}
