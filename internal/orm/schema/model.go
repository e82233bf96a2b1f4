package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
)

var (
	// ErrModelFinalized is returned when FinalizeModel is called twice
	ErrModelFinalized = errors.New("model is already finalized")
	// ErrDuplicateEntityType is returned when an entity type name is reused
	ErrDuplicateEntityType = errors.New("entity type already exists")
	// ErrEntityTypeNotFound is returned when a named entity type is missing
	ErrEntityTypeNotFound = errors.New("entity type not found")
	// ErrEntityTypeInUse is returned when removing a referenced entity type
	ErrEntityTypeInUse = errors.New("entity type is still referenced")
	// ErrInvalidGoType is returned when a Go type cannot back an entity type
	ErrInvalidGoType = errors.New("invalid Go type")
)

type modelState int32

const (
	stateMutable modelState = iota
	stateFinalizing
	stateFinalized
)

// ModelDependencies are the services a finalized model was initialized
// with. They are attached once, after the model passed validation.
type ModelDependencies struct {
	Logger *diagnostics.Logger
}

// Model is the root of the metadata graph
type Model struct {
	annotations.Annotatable

	state        atomic.Int32
	dependencies atomic.Pointer[ModelDependencies]

	mu          sync.RWMutex
	entityTypes map[string]*EntityType
	byGoType    map[reflect.Type]*EntityType
}

// NewModel creates an empty mutable model
func NewModel() *Model {
	m := &Model{
		entityTypes: make(map[string]*EntityType),
		byGoType:    make(map[reflect.Type]*EntityType),
	}
	m.SetOwner(m)
	return m
}

// IsReadOnly reports whether the model has been finalized
func (m *Model) IsReadOnly() bool {
	return modelState(m.state.Load()) == stateFinalized
}

// IsFinalizing reports whether FinalizeModel is in progress
func (m *Model) IsFinalizing() bool {
	return modelState(m.state.Load()) == stateFinalizing
}

func (m *Model) ensureMutable() error {
	if modelState(m.state.Load()) != stateMutable {
		return annotations.ErrReadOnly
	}
	return nil
}

// FinalizeModel moves the model from mutable to read-only. The transition
// happens at most once; later calls return ErrModelFinalized.
func (m *Model) FinalizeModel() (*Model, error) {
	if !m.state.CompareAndSwap(int32(stateMutable), int32(stateFinalizing)) {
		return nil, ErrModelFinalized
	}

	m.state.Store(int32(stateFinalized))
	return m, nil
}

// ModelDependencies returns the attached dependencies, or nil
func (m *Model) ModelDependencies() *ModelDependencies {
	return m.dependencies.Load()
}

// SetModelDependencies attaches deps if none are attached yet and reports
// whether this call attached them.
func (m *Model) SetModelDependencies(deps *ModelDependencies) bool {
	if deps == nil {
		return false
	}
	return m.dependencies.CompareAndSwap(nil, deps)
}

// AddEntityType adds an entity type backed by the named Go struct type t
func (m *Model) AddEntityType(t reflect.Type, source ConfigurationSource) (*EntityType, error) {
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct || t.Name() == "" {
		return nil, fmt.Errorf("%w: %v is not a named struct type", ErrInvalidGoType, t)
	}
	return m.addEntityType(t.Name(), t, false, source)
}

// AddSharedEntityType adds an entity type identified by name. A nil Go type
// means the property bag type.
func (m *Model) AddSharedEntityType(name string, t reflect.Type, source ConfigurationSource) (*EntityType, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: shared entity type requires a name", ErrInvalidGoType)
	}
	if t == nil {
		t = propertyBag
	}
	return m.addEntityType(name, t, true, source)
}

// AddShadowEntityType adds an entity type with no Go type. Such a model
// does not pass validation; it exists so definitions can reference types
// that were never registered.
func (m *Model) AddShadowEntityType(name string, source ConfigurationSource) (*EntityType, error) {
	return m.addEntityType(name, nil, false, source)
}

func (m *Model) addEntityType(name string, t reflect.Type, shared bool, source ConfigurationSource) (*EntityType, error) {
	if err := m.ensureMutable(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entityTypes[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntityType, name)
	}

	et := newEntityType(m, name, t, shared, source)
	m.entityTypes[name] = et
	if !shared && t != nil {
		m.byGoType[t] = et
	}
	return et, nil
}

// RemoveEntityType removes an entity type that nothing derives from or references
func (m *Model) RemoveEntityType(et *EntityType) error {
	if err := m.ensureMutable(); err != nil {
		return err
	}
	if len(et.directlyDerived) > 0 {
		return fmt.Errorf("%w: %s has derived types", ErrEntityTypeInUse, et.name)
	}
	if refs := et.ReferencingForeignKeys(); len(refs) > 0 {
		return fmt.Errorf("%w: %s is referenced by %s", ErrEntityTypeInUse, et.name, refs[0].DisplayName())
	}
	for _, other := range m.EntityTypes() {
		for _, skip := range other.skipNavigations {
			if skip.target == et && other != et {
				return fmt.Errorf("%w: %s is the target of %s.%s", ErrEntityTypeInUse, et.name, other.name, skip.name)
			}
		}
	}

	for _, fk := range et.foreignKeys {
		fk.detach()
	}
	if et.baseType != nil {
		et.baseType.removeDerived(et)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entityTypes, et.name)
	if m.byGoType[et.goType] == et {
		delete(m.byGoType, et.goType)
	}
	return nil
}

// FindEntityType returns the entity type with the given name, or nil
func (m *Model) FindEntityType(name string) *EntityType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entityTypes[name]
}

// FindEntityTypeByGoType returns the non-shared entity type backed by t, or nil
func (m *Model) FindEntityTypeByGoType(t reflect.Type) *EntityType {
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byGoType[t]
}

// FindMappedAncestor follows the chain of first anonymous struct fields of
// t and returns the first non-shared entity type found on it, or nil.
func (m *Model) FindMappedAncestor(t reflect.Type) *EntityType {
	seen := map[reflect.Type]bool{t: true}
	for ancestor := embeddedStruct(t); ancestor != nil && !seen[ancestor]; ancestor = embeddedStruct(ancestor) {
		if et := m.FindEntityTypeByGoType(ancestor); et != nil && !et.IsShared() {
			return et
		}
		seen[ancestor] = true
	}
	return nil
}

func embeddedStruct(t reflect.Type) reflect.Type {
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			return ft
		}
	}
	return nil
}

// EntityTypes returns every entity type ordered by name
func (m *Model) EntityTypes() []*EntityType {
	m.mu.RLock()
	result := make([]*EntityType, 0, len(m.entityTypes))
	for _, et := range m.entityTypes {
		result = append(result, et)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].name < result[j].name })
	return result
}

// RootEntityTypes returns the entity types without a base type, ordered by name
func (m *Model) RootEntityTypes() []*EntityType {
	var roots []*EntityType
	for _, et := range m.EntityTypes() {
		if et.baseType == nil {
			roots = append(roots, et)
		}
	}
	return roots
}

// RuntimeModel returns the compiled read-only view of a finalized model.
// It is built once and memoized in the model's runtime annotations.
func (m *Model) RuntimeModel() (*RuntimeModel, error) {
	return annotations.GetOrAddRuntimeValue(&m.Annotatable, ReadOnlyModelAnnotation, func() *RuntimeModel {
		return compileRuntimeModel(m)
	})
}
