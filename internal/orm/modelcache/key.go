// Package modelcache holds the identity under which built models are cached
// and the bounded cache that stores them.
package modelcache

import (
	"fmt"
	"reflect"
)

// Key identifies a cached model. Keys are comparable so they can be used
// directly as map and cache keys; equal keys hash equally.
type Key struct {
	ContextType reflect.Type
	DesignTime  bool
}

// String returns a readable form of the key for logs
func (k Key) String() string {
	if k.ContextType == nil {
		return fmt.Sprintf("<nil> (design time: %t)", k.DesignTime)
	}
	return fmt.Sprintf("%s (design time: %t)", k.ContextType, k.DesignTime)
}

// KeyFactory computes the cache key for the model of a context.
//
// Two contexts that produce equal keys are assumed to produce identical
// models, and the second one is handed the model built for the first. A
// factory whose contexts build different models from per-instance state
// (a tenant, a loaded document, a feature flag) MUST fold that state into
// the key it returns. Otherwise the cache silently serves the wrong model.
// Returned keys must be comparable.
type KeyFactory interface {
	Create(ctx any, designTime bool) any
}

// KeyFactoryFunc adapts a function to KeyFactory
type KeyFactoryFunc func(ctx any, designTime bool) any

// Create calls f
func (f KeyFactoryFunc) Create(ctx any, designTime bool) any {
	return f(ctx, designTime)
}

// DefaultKeyFactory keys models by the dynamic type of the context and the
// design-time flag only. Instance data is ignored, see KeyFactory.
type DefaultKeyFactory struct{}

var _ KeyFactory = DefaultKeyFactory{}

// Create returns a Key for ctx
func (DefaultKeyFactory) Create(ctx any, designTime bool) any {
	return Key{ContextType: ContextType(ctx), DesignTime: designTime}
}

// ContextType returns the type a context is identified by. Pointers are
// dereferenced so *T and T share models.
func ContextType(ctx any) reflect.Type {
	t := reflect.TypeOf(ctx)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
