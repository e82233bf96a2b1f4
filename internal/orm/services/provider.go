package services

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrNotRegistered is returned when resolving a service with no registration
	ErrNotRegistered = errors.New("service is not registered")
	// ErrScopeRequired is returned when a scoped service is resolved from the provider itself
	ErrScopeRequired = errors.New("scoped service resolved outside a scope")
)

// Resolver hands out service instances
type Resolver interface {
	Resolve(serviceType reflect.Type) (any, error)
	ResolveAll(serviceType reflect.Type) ([]any, error)
}

// instance memoizes one created service. A failed creation is retried on
// the next resolution.
type instance struct {
	mu    sync.Mutex
	done  bool
	value any
}

func (i *instance) get(create func() (any, error)) (any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.done {
		return i.value, nil
	}
	v, err := create()
	if err != nil {
		return nil, err
	}
	i.value, i.done = v, true
	return v, nil
}

// instances maps descriptors to their memoized instance
type instances struct {
	mu    sync.Mutex
	byKey map[*Descriptor]*instance
}

func (s *instances) slot(d *Descriptor) *instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byKey == nil {
		s.byKey = make(map[*Descriptor]*instance)
	}
	slot, ok := s.byKey[d]
	if !ok {
		slot = &instance{}
		s.byKey[d] = slot
	}
	return slot
}

// Provider resolves the services of a Builder. Factories must not depend
// on each other in a cycle.
type Provider struct {
	descriptors map[reflect.Type][]*Descriptor
	singletons  instances
	root        *Scope
}

func newProvider(descriptors []*Descriptor) *Provider {
	p := &Provider{descriptors: make(map[reflect.Type][]*Descriptor)}
	for _, d := range descriptors {
		p.descriptors[d.ServiceType] = append(p.descriptors[d.ServiceType], d)
	}
	p.root = &Scope{provider: p, root: true}
	return p
}

// CreateScope starts a scope for scoped services
func (p *Provider) CreateScope() *Scope {
	return &Scope{provider: p}
}

// Resolve resolves a singleton or transient service
func (p *Provider) Resolve(serviceType reflect.Type) (any, error) {
	return p.root.Resolve(serviceType)
}

// ResolveAll resolves every registration of a singleton or transient service
func (p *Provider) ResolveAll(serviceType reflect.Type) ([]any, error) {
	return p.root.ResolveAll(serviceType)
}

// Scope owns the scoped instances resolved through it
type Scope struct {
	provider *Provider
	root     bool
	scoped   instances
}

var (
	_ Resolver = (*Provider)(nil)
	_ Resolver = (*Scope)(nil)
)

// Resolve returns the instance of the last registration of serviceType
func (s *Scope) Resolve(serviceType reflect.Type) (any, error) {
	descriptors := s.provider.descriptors[serviceType]
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNotRegistered, serviceType)
	}
	return s.create(descriptors[len(descriptors)-1])
}

// ResolveAll returns one instance per registration of serviceType, in
// registration order. No registration yields an empty slice.
func (s *Scope) ResolveAll(serviceType reflect.Type) ([]any, error) {
	descriptors := s.provider.descriptors[serviceType]
	result := make([]any, 0, len(descriptors))
	for _, d := range descriptors {
		v, err := s.create(d)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

func (s *Scope) create(d *Descriptor) (any, error) {
	var (
		v   any
		err error
	)
	switch d.Lifetime {
	case Singleton:
		v, err = s.provider.singletons.slot(d).get(func() (any, error) {
			return d.Factory(s.provider.root)
		})
	case Scoped:
		if s.root {
			return nil, fmt.Errorf("%w: %v", ErrScopeRequired, d.ServiceType)
		}
		v, err = s.scoped.slot(d).get(func() (any, error) {
			return d.Factory(s)
		})
	default:
		v, err = d.Factory(s)
	}
	if err != nil {
		return nil, fmt.Errorf("create %v: %w", d.ServiceType, err)
	}
	return v, nil
}

// Resolve is the typed form of Resolver.Resolve
func Resolve[T any](r Resolver) (T, error) {
	var zero T
	v, err := r.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("service %v resolved to %T", reflect.TypeFor[T](), v)
	}
	return typed, nil
}

// ResolveAll is the typed form of Resolver.ResolveAll
func ResolveAll[T any](r Resolver) ([]T, error) {
	values, err := r.ResolveAll(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	result := make([]T, 0, len(values))
	for _, v := range values {
		typed, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("service %v resolved to %T", reflect.TypeFor[T](), v)
		}
		result = append(result, typed)
	}
	return result, nil
}
