package modelsource

import (
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// Customizer configures a model after conventions have been set up and
// before it is finalized
type Customizer interface {
	Customize(b *schema.ModelBuilder, ctx any) error
}

// CustomizerFunc adapts a function to Customizer
type CustomizerFunc func(b *schema.ModelBuilder, ctx any) error

// Customize calls f
func (f CustomizerFunc) Customize(b *schema.ModelBuilder, ctx any) error {
	return f(b, ctx)
}

// ModelCreatorCustomizer calls OnModelCreating on contexts implementing
// schema.ModelCreator. It is always the first customizer of a ModelSource.
type ModelCreatorCustomizer struct{}

// Customize implements Customizer
func (ModelCreatorCustomizer) Customize(b *schema.ModelBuilder, ctx any) error {
	if creator, ok := ctx.(schema.ModelCreator); ok {
		creator.OnModelCreating(b)
	}
	return nil
}
