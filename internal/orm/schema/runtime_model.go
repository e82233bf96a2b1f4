package schema

import (
	"reflect"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
)

// ReadOnlyModelAnnotation is the runtime annotation under which a finalized
// model memoizes its RuntimeModel.
const ReadOnlyModelAnnotation = "ReadOnlyModel"

// ReadOnlyModel is the view handed to consumers once a model is initialized.
// Both *Model and *RuntimeModel implement it.
type ReadOnlyModel interface {
	EntityTypes() []*EntityType
	FindEntityType(name string) *EntityType
	FindEntityTypeByGoType(t reflect.Type) *EntityType
	FindAnnotation(name string) *annotations.Annotation
	FindRuntimeAnnotation(name string) *annotations.Annotation
	IsReadOnly() bool
}

var (
	_ ReadOnlyModel = (*Model)(nil)
	_ ReadOnlyModel = (*RuntimeModel)(nil)
)

// RuntimeModel is the compiled form of a finalized model. Its lookup tables
// are built once and never change, so it needs no locking.
type RuntimeModel struct {
	model       *Model
	entityTypes []*EntityType
	byName      map[string]*EntityType
	byGoType    map[reflect.Type]*EntityType
}

func compileRuntimeModel(m *Model) *RuntimeModel {
	entityTypes := m.EntityTypes()
	r := &RuntimeModel{
		model:       m,
		entityTypes: entityTypes,
		byName:      make(map[string]*EntityType, len(entityTypes)),
		byGoType:    make(map[reflect.Type]*EntityType, len(entityTypes)),
	}
	for _, et := range entityTypes {
		r.byName[et.name] = et
		if !et.shared && et.goType != nil {
			r.byGoType[et.goType] = et
		}
	}
	return r
}

// Model returns the finalized model this view was compiled from
func (r *RuntimeModel) Model() *Model {
	return r.model
}

// EntityTypes returns every entity type ordered by name
func (r *RuntimeModel) EntityTypes() []*EntityType {
	result := make([]*EntityType, len(r.entityTypes))
	copy(result, r.entityTypes)
	return result
}

// FindEntityType returns the entity type with the given name, or nil
func (r *RuntimeModel) FindEntityType(name string) *EntityType {
	return r.byName[name]
}

// FindEntityTypeByGoType returns the non-shared entity type backed by t, or nil
func (r *RuntimeModel) FindEntityTypeByGoType(t reflect.Type) *EntityType {
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return r.byGoType[t]
}

// FindAnnotation returns a build-time annotation of the underlying model
func (r *RuntimeModel) FindAnnotation(name string) *annotations.Annotation {
	return r.model.FindAnnotation(name)
}

// FindRuntimeAnnotation returns a runtime annotation of the underlying model
func (r *RuntimeModel) FindRuntimeAnnotation(name string) *annotations.Annotation {
	return r.model.FindRuntimeAnnotation(name)
}

// IsReadOnly is always true
func (r *RuntimeModel) IsReadOnly() bool {
	return true
}
