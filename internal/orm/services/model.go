package services

import (
	"github.com/conduit-lang/metamodel/internal/orm/modelsource"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// GetModel resolves the model source and the creation dependencies of
// scope and returns the model for ctx
func GetModel(scope *Scope, ctx any, designTime bool) (schema.ReadOnlyModel, error) {
	source, err := Resolve[*modelsource.ModelSource](scope)
	if err != nil {
		return nil, err
	}
	deps, err := Resolve[*modelsource.ModelCreationDependencies](scope)
	if err != nil {
		return nil, err
	}
	return source.GetModel(ctx, deps, designTime)
}
