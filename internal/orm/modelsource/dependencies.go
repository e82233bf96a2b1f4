package modelsource

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/orm/conventions"
	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/initializer"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// ConventionSetBuilder creates the conventions applied to each new model.
// A fresh set is requested per build.
type ConventionSetBuilder interface {
	CreateConventionSet() schema.ConventionDispatcher
}

// ConventionSetBuilderFunc adapts a function to ConventionSetBuilder
type ConventionSetBuilderFunc func() schema.ConventionDispatcher

// CreateConventionSet calls f
func (f ConventionSetBuilderFunc) CreateConventionSet() schema.ConventionDispatcher {
	return f()
}

// DefaultConventionSetBuilder returns a builder for conventions.NewDefaultSet
func DefaultConventionSetBuilder(log *zap.Logger) ConventionSetBuilder {
	return ConventionSetBuilderFunc(func() schema.ConventionDispatcher {
		return conventions.NewDefaultSet(log)
	})
}

// ModelCreationDependencies are the services needed to build a model on a cache miss
type ModelCreationDependencies struct {
	ConventionSetBuilder ConventionSetBuilder
	RuntimeInitializer   *initializer.RuntimeInitializer
	// ValidationLogger receives model events. Models are validated only
	// when it is set.
	ValidationLogger *diagnostics.Logger
}

// NewModelCreationDependencies wires the default conventions and initializer
func NewModelCreationDependencies(logger *diagnostics.Logger) *ModelCreationDependencies {
	return &ModelCreationDependencies{
		ConventionSetBuilder: DefaultConventionSetBuilder(logger.Zap()),
		RuntimeInitializer:   initializer.New(initializer.WithZap(logger.Zap())),
		ValidationLogger:     logger,
	}
}
