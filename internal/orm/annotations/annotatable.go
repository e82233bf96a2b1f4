package annotations

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrDuplicateAnnotation is returned when adding an annotation whose name is already present
	ErrDuplicateAnnotation = errors.New("duplicate annotation")
	// ErrReadOnly is returned when a build-time annotation is written after the owner became read-only
	ErrReadOnly = errors.New("model element is read-only")
	// ErrNotReadOnly is returned when a runtime annotation is written before the owner became read-only
	ErrNotReadOnly = errors.New("runtime annotations require a read-only model element")
)

// Annotation is a named metadata value. Stored annotations are never
// modified; raising the configuration source of an equal value stores a
// new annotation.
type Annotation struct {
	Name   string
	Value  interface{}
	Source ConfigurationSource
}

// Equaler lets annotation values define their own equality
type Equaler interface {
	Equal(other interface{}) bool
}

// ValuesEqual reports whether two annotation values are equal. Values that
// implement Equaler decide for themselves; everything else uses deep equality.
func ValuesEqual(a, b interface{}) bool {
	if e, ok := a.(Equaler); ok {
		return e.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}

// ReadOnlyOwner reports the read-only state of the element that owns an
// Annotatable. Model elements use the model as their owner.
type ReadOnlyOwner interface {
	IsReadOnly() bool
}

// Annotatable stores build-time and runtime annotations in two disjoint
// slots. The build-time slot is writable only while the owner is mutable;
// the runtime slot only after it became read-only.
//
// The zero value is ready to use as a standalone mutable annotatable.
type Annotatable struct {
	mu          sync.RWMutex
	annotations map[string]*Annotation

	runtime sync.Map // string -> *Annotation

	owner  ReadOnlyOwner
	frozen atomic.Bool
}

// SetOwner ties the read-only state to owner
func (a *Annotatable) SetOwner(owner ReadOnlyOwner) {
	a.owner = owner
}

// Freeze marks a standalone annotatable as read-only. It has no effect on
// the read-only state reported through an owner.
func (a *Annotatable) Freeze() {
	a.frozen.Store(true)
}

// IsReadOnly reports whether build-time annotations are frozen
func (a *Annotatable) IsReadOnly() bool {
	if a.owner != nil {
		return a.owner.IsReadOnly()
	}
	return a.frozen.Load()
}

// EnsureMutable returns ErrReadOnly when build-time writes are no longer allowed
func (a *Annotatable) EnsureMutable() error {
	if a.IsReadOnly() {
		return ErrReadOnly
	}
	return nil
}

// EnsureReadOnly returns ErrNotReadOnly when runtime writes are not yet allowed
func (a *Annotatable) EnsureReadOnly() error {
	if !a.IsReadOnly() {
		return ErrNotReadOnly
	}
	return nil
}

// AddAnnotation adds a new annotation. It never overwrites an existing one.
func (a *Annotatable) AddAnnotation(name string, value interface{}) (*Annotation, error) {
	return a.addAnnotation(name, value, SourceExplicit)
}

// AddConventionAnnotation adds a new annotation tagged with source
func (a *Annotatable) AddConventionAnnotation(name string, value interface{}, source ConfigurationSource) (*Annotation, error) {
	return a.addAnnotation(name, value, source)
}

func (a *Annotatable) addAnnotation(name string, value interface{}, source ConfigurationSource) (*Annotation, error) {
	if err := a.EnsureMutable(); err != nil {
		return nil, fmt.Errorf("add annotation %q: %w", name, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.annotations[name]; exists {
		return nil, fmt.Errorf("annotation %q: %w", name, ErrDuplicateAnnotation)
	}
	if a.annotations == nil {
		a.annotations = make(map[string]*Annotation)
	}

	annotation := &Annotation{Name: name, Value: value, Source: source}
	a.annotations[name] = annotation
	return annotation, nil
}

// SetAnnotation creates or replaces an annotation. Setting a value equal to
// the current one returns the existing annotation unchanged.
func (a *Annotatable) SetAnnotation(name string, value interface{}) (*Annotation, error) {
	annotation, _, err := a.setAnnotation(name, value, SourceExplicit, true)
	return annotation, err
}

// SetConventionAnnotation sets an annotation on behalf of source. A source
// never replaces an annotation set from a higher-precedence source, and
// replaces one from the same source only when overrideSameSource is true.
// An equal value only raises the stored source. The boolean result reports
// whether the annotation now reflects the request.
func (a *Annotatable) SetConventionAnnotation(
	name string,
	value interface{},
	source ConfigurationSource,
	overrideSameSource bool,
) (*Annotation, bool, error) {
	return a.setAnnotation(name, value, source, overrideSameSource)
}

func (a *Annotatable) setAnnotation(
	name string,
	value interface{},
	source ConfigurationSource,
	overrideSameSource bool,
) (*Annotation, bool, error) {
	if err := a.EnsureMutable(); err != nil {
		return nil, false, fmt.Errorf("set annotation %q: %w", name, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	existing, exists := a.annotations[name]
	if exists {
		if ValuesEqual(existing.Value, value) {
			raised := Max(existing.Source, source)
			if raised == existing.Source {
				return existing, true, nil
			}
			annotation := &Annotation{Name: name, Value: existing.Value, Source: raised}
			a.annotations[name] = annotation
			return annotation, true, nil
		}
		if !canOverride(source, existing.Source, overrideSameSource) {
			return existing, false, nil
		}
	}
	if a.annotations == nil {
		a.annotations = make(map[string]*Annotation)
	}

	annotation := &Annotation{Name: name, Value: value, Source: source}
	if exists {
		annotation.Source = Max(existing.Source, source)
	}
	a.annotations[name] = annotation
	return annotation, true, nil
}

// CanSetAnnotation reports whether SetConventionAnnotation would apply value
func (a *Annotatable) CanSetAnnotation(name string, value interface{}, source ConfigurationSource, overrideSameSource bool) bool {
	existing := a.FindAnnotation(name)
	if existing == nil || ValuesEqual(existing.Value, value) {
		return true
	}
	return canOverride(source, existing.Source, overrideSameSource)
}

func canOverride(source, existing ConfigurationSource, overrideSameSource bool) bool {
	if source == existing {
		return overrideSameSource
	}
	return source.OverridesStrictly(existing)
}

// RemoveAnnotation removes and returns the annotation, or nil when absent
func (a *Annotatable) RemoveAnnotation(name string) (*Annotation, error) {
	if err := a.EnsureMutable(); err != nil {
		return nil, fmt.Errorf("remove annotation %q: %w", name, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	existing, exists := a.annotations[name]
	if !exists {
		return nil, nil
	}
	delete(a.annotations, name)
	return existing, nil
}

// FindAnnotation returns the annotation with the given name, or nil
func (a *Annotatable) FindAnnotation(name string) *Annotation {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.annotations[name]
}

// GetAnnotations returns all build-time annotations ordered by name
func (a *Annotatable) GetAnnotations() []*Annotation {
	a.mu.RLock()
	result := make([]*Annotation, 0, len(a.annotations))
	for _, annotation := range a.annotations {
		result = append(result, annotation)
	}
	a.mu.RUnlock()

	sortByName(result)
	return result
}

// Get returns the annotation value, or nil when absent
func (a *Annotatable) Get(name string) interface{} {
	if annotation := a.FindAnnotation(name); annotation != nil {
		return annotation.Value
	}
	return nil
}

// Set removes the annotation when value is nil and sets it otherwise
func (a *Annotatable) Set(name string, value interface{}) error {
	if value == nil {
		_, err := a.RemoveAnnotation(name)
		return err
	}
	_, err := a.SetAnnotation(name, value)
	return err
}

// AddRuntimeAnnotation adds a runtime annotation; it fails when the name is taken
func (a *Annotatable) AddRuntimeAnnotation(name string, value interface{}) (*Annotation, error) {
	if err := a.EnsureReadOnly(); err != nil {
		return nil, fmt.Errorf("add runtime annotation %q: %w", name, err)
	}

	annotation := &Annotation{Name: name, Value: value, Source: SourceExplicit}
	if _, loaded := a.runtime.LoadOrStore(name, annotation); loaded {
		return nil, fmt.Errorf("runtime annotation %q: %w", name, ErrDuplicateAnnotation)
	}
	return annotation, nil
}

// SetRuntimeAnnotation creates or replaces a runtime annotation
func (a *Annotatable) SetRuntimeAnnotation(name string, value interface{}) (*Annotation, error) {
	if err := a.EnsureReadOnly(); err != nil {
		return nil, fmt.Errorf("set runtime annotation %q: %w", name, err)
	}

	annotation := &Annotation{Name: name, Value: value, Source: SourceExplicit}
	for {
		current, loaded := a.runtime.LoadOrStore(name, annotation)
		if !loaded {
			return annotation, nil
		}
		existing := current.(*Annotation)
		if ValuesEqual(existing.Value, value) {
			return existing, nil
		}
		if a.runtime.CompareAndSwap(name, existing, annotation) {
			return annotation, nil
		}
	}
}

// FindRuntimeAnnotation returns the runtime annotation with the given name, or nil
func (a *Annotatable) FindRuntimeAnnotation(name string) *Annotation {
	value, ok := a.runtime.Load(name)
	if !ok {
		return nil
	}
	return value.(*Annotation)
}

// RemoveRuntimeAnnotation removes and returns the runtime annotation, or nil when absent
func (a *Annotatable) RemoveRuntimeAnnotation(name string) (*Annotation, error) {
	if err := a.EnsureReadOnly(); err != nil {
		return nil, fmt.Errorf("remove runtime annotation %q: %w", name, err)
	}
	value, loaded := a.runtime.LoadAndDelete(name)
	if !loaded {
		return nil, nil
	}
	return value.(*Annotation), nil
}

// GetRuntimeAnnotations returns all runtime annotations ordered by name
func (a *Annotatable) GetRuntimeAnnotations() []*Annotation {
	var result []*Annotation
	a.runtime.Range(func(_, value interface{}) bool {
		result = append(result, value.(*Annotation))
		return true
	})
	sortByName(result)
	return result
}

// GetOrAddRuntimeAnnotationValue returns the value stored under name,
// computing and storing it when absent. Concurrent callers may each run
// factory, but all of them observe the single value that was stored first.
func (a *Annotatable) GetOrAddRuntimeAnnotationValue(name string, factory func() interface{}) (interface{}, error) {
	if existing := a.FindRuntimeAnnotation(name); existing != nil {
		return existing.Value, nil
	}
	if err := a.EnsureReadOnly(); err != nil {
		return nil, fmt.Errorf("runtime annotation %q: %w", name, err)
	}

	candidate := &Annotation{Name: name, Value: factory(), Source: SourceExplicit}
	stored, _ := a.runtime.LoadOrStore(name, candidate)
	return stored.(*Annotation).Value, nil
}

// GetOrAddRuntimeValue is the typed form of GetOrAddRuntimeAnnotationValue
func GetOrAddRuntimeValue[T any](a *Annotatable, name string, factory func() T) (T, error) {
	value, err := a.GetOrAddRuntimeAnnotationValue(name, func() interface{} { return factory() })
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("runtime annotation %q holds %T", name, value)
	}
	return typed, nil
}

func sortByName(list []*Annotation) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
}
