// Package services describes the services a model pipeline is assembled
// from and resolves them with the right lifetime.
package services

import (
	"reflect"

	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/initializer"
	"github.com/conduit-lang/metamodel/internal/orm/modelcache"
	"github.com/conduit-lang/metamodel/internal/orm/modelsource"
	"github.com/conduit-lang/metamodel/internal/orm/validation"
)

// Lifetime controls how long a resolved instance is reused
type Lifetime int

const (
	// Singleton instances are created once per Provider
	Singleton Lifetime = iota
	// Scoped instances are created once per Scope
	Scoped
	// Transient instances are created on every resolution
	Transient
)

// String returns the string representation of the lifetime
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// Characteristics describe how a service may be registered
type Characteristics struct {
	Lifetime Lifetime
	// Multiple services accept any number of registrations and are
	// resolved with ResolveAll
	Multiple bool
}

// CoreServices lists the provider-independent services
var CoreServices = map[reflect.Type]Characteristics{
	reflect.TypeFor[*modelsource.ModelSource]():               {Lifetime: Singleton},
	reflect.TypeFor[modelcache.KeyFactory]():                  {Lifetime: Singleton},
	reflect.TypeFor[modelcache.Cache]():                       {Lifetime: Singleton},
	reflect.TypeFor[*initializer.RuntimeInitializer]():        {Lifetime: Singleton},
	reflect.TypeFor[*validation.ModelValidator]():             {Lifetime: Singleton},
	reflect.TypeFor[modelsource.Customizer]():                 {Lifetime: Singleton, Multiple: true},
	reflect.TypeFor[modelsource.ConventionSetBuilder]():       {Lifetime: Scoped},
	reflect.TypeFor[*modelsource.ModelCreationDependencies](): {Lifetime: Scoped},
	reflect.TypeFor[*diagnostics.Logger]():                    {Lifetime: Scoped},
}
