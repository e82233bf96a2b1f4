package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
)

var (
	// ErrDuplicateMember is returned when a member name is already used in the hierarchy
	ErrDuplicateMember = errors.New("member name already in use")
	// ErrMemberNotFound is returned when a named member is missing
	ErrMemberNotFound = errors.New("member not found")
	// ErrInvalidBaseType is returned when a base type assignment is not allowed
	ErrInvalidBaseType = errors.New("invalid base type")
	// ErrDuplicateKey is returned when a key over the same properties exists
	ErrDuplicateKey = errors.New("key already exists")
	// ErrInvalidKey is returned when key properties do not belong to the entity type
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidDiscriminator is returned when the discriminator is configured on a derived type
	ErrInvalidDiscriminator = errors.New("invalid discriminator")
)

// Runtime annotation names used to memoize derived data on finalized models
const (
	DerivedTypesAnnotation    = "DerivedTypes"
	PropertyIndexesAnnotation = "PropertyIndexes"
)

// StructuralType is implemented by entity types and complex types
type StructuralType interface {
	Name() string
	GoType() reflect.Type
	Model() *Model
	FindProperty(name string) *Property
	Properties() []*Property
	ComplexProperties() []*ComplexProperty
}

// EntityType describes one mapped type of the model
type EntityType struct {
	annotations.Annotatable

	model  *Model
	name   string
	goType reflect.Type
	shared bool
	source ConfigurationSource

	baseType        *EntityType
	baseTypeSource  *ConfigurationSource
	directlyDerived []*EntityType
	abstract        bool
	keyless         bool

	properties        []*Property
	keys              []*Key
	primaryKey        *Key
	primaryKeySource  *ConfigurationSource
	foreignKeys       []*ForeignKey
	navigations       []*Navigation
	skipNavigations   []*SkipNavigation
	complexProperties []*ComplexProperty

	discriminatorProperty    *Property
	discriminatorPropertySrc *ConfigurationSource
	discriminatorValue       interface{}
	discriminatorValueSet    bool
	discriminatorValueSource ConfigurationSource
	queryFilter              string
	changeTrackingStrategy   ChangeTrackingStrategy
	constructorBinding       []string
	seedData                 []interface{}
	ignored                  map[string]ConfigurationSource
}

func newEntityType(m *Model, name string, t reflect.Type, shared bool, source ConfigurationSource) *EntityType {
	et := &EntityType{
		model:  m,
		name:   name,
		goType: t,
		shared: shared,
		source: source,
	}
	et.SetOwner(m)
	return et
}

// Name returns the entity type name
func (et *EntityType) Name() string { return et.name }

// String returns the entity type name
func (et *EntityType) String() string { return et.name }

// GoType returns the backing Go type; nil for shadow entity types
func (et *EntityType) GoType() reflect.Type { return et.goType }

// Model returns the owning model
func (et *EntityType) Model() *Model { return et.model }

// IsShared reports whether the entity type is identified by name rather than Go type
func (et *EntityType) IsShared() bool { return et.shared }

// IsPropertyBag reports whether values are stored in a map keyed by property name
func (et *EntityType) IsPropertyBag() bool { return et.goType == propertyBag }

// IsShadow reports whether the entity type has no Go type at all
func (et *EntityType) IsShadow() bool { return et.goType == nil && !et.shared }

// ConfigurationSource returns how the entity type was added
func (et *EntityType) ConfigurationSource() ConfigurationSource { return et.source }

// IsAbstract reports whether the entity type cannot be instantiated
func (et *EntityType) IsAbstract() bool { return et.abstract }

// SetAbstract marks the entity type as abstract
func (et *EntityType) SetAbstract(abstract bool) error {
	if err := et.model.ensureMutable(); err != nil {
		return err
	}
	et.abstract = abstract
	return nil
}

// IsKeyless reports whether the entity type was configured without a key
func (et *EntityType) IsKeyless() bool { return et.keyless }

// SetKeyless marks the entity type as having no key
func (et *EntityType) SetKeyless(keyless bool) error {
	if err := et.model.ensureMutable(); err != nil {
		return err
	}
	et.keyless = keyless
	return nil
}

func canSet(existing *ConfigurationSource, source ConfigurationSource) bool {
	return existing == nil || source.Overrides(*existing)
}

// BaseType returns the direct base type, or nil
func (et *EntityType) BaseType() *EntityType { return et.baseType }

// BaseTypeConfigurationSource returns how the base type was set, or nil if it never was
func (et *EntityType) BaseTypeConfigurationSource() *ConfigurationSource { return et.baseTypeSource }

// SetBaseType sets or clears (nil) the base type. A lower-precedence source
// than the one that set the current base type leaves it unchanged and
// returns nil.
func (et *EntityType) SetBaseType(base *EntityType, source ConfigurationSource) error {
	if err := et.model.ensureMutable(); err != nil {
		return err
	}
	if !canSet(et.baseTypeSource, source) {
		return nil
	}
	if base == et.baseType {
		src := source
		if et.baseTypeSource != nil {
			src = annotations.Max(*et.baseTypeSource, source)
		}
		et.baseTypeSource = &src
		return nil
	}

	if base != nil {
		if base.model != et.model {
			return fmt.Errorf("%w: %s belongs to a different model", ErrInvalidBaseType, base.name)
		}
		if base == et || et.IsAssignableFrom(base) {
			return fmt.Errorf("%w: setting %s as base of %s would create a cycle", ErrInvalidBaseType, base.name, et.name)
		}
	}

	if et.baseType != nil {
		et.baseType.removeDerived(et)
	}
	et.baseType = base
	if base != nil {
		base.directlyDerived = append(base.directlyDerived, et)
	}
	src := source
	et.baseTypeSource = &src
	return nil
}

func (et *EntityType) removeDerived(derived *EntityType) {
	for i, d := range et.directlyDerived {
		if d == derived {
			et.directlyDerived = append(et.directlyDerived[:i], et.directlyDerived[i+1:]...)
			return
		}
	}
}

// RootType returns the top of the inheritance chain
func (et *EntityType) RootType() *EntityType {
	root := et
	for root.baseType != nil {
		root = root.baseType
	}
	return root
}

// IsAssignableFrom reports whether other is et or derives from it
func (et *EntityType) IsAssignableFrom(other *EntityType) bool {
	for t := other; t != nil; t = t.baseType {
		if t == et {
			return true
		}
	}
	return false
}

// InheritsFrom reports whether et derives (directly or not) from other
func (et *EntityType) InheritsFrom(other *EntityType) bool {
	return et != other && other.IsAssignableFrom(et)
}

// DirectlyDerivedTypes returns the direct subtypes ordered by name
func (et *EntityType) DirectlyDerivedTypes() []*EntityType {
	result := make([]*EntityType, len(et.directlyDerived))
	copy(result, et.directlyDerived)
	sort.Slice(result, func(i, j int) bool { return result[i].name < result[j].name })
	return result
}

// DerivedTypes returns all subtypes breadth first. On a finalized model the
// result is computed once and kept as a runtime annotation.
func (et *EntityType) DerivedTypes() []*EntityType {
	if et.model.IsReadOnly() {
		derived, err := annotations.GetOrAddRuntimeValue(&et.Annotatable, DerivedTypesAnnotation, et.collectDerivedTypes)
		if err == nil {
			return derived
		}
	}
	return et.collectDerivedTypes()
}

func (et *EntityType) collectDerivedTypes() []*EntityType {
	var result []*EntityType
	queue := et.DirectlyDerivedTypes()
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		result = append(result, next)
		queue = append(queue, next.DirectlyDerivedTypes()...)
	}
	return result
}

// DerivedTypesInclusive returns et followed by DerivedTypes
func (et *EntityType) DerivedTypesInclusive() []*EntityType {
	return append([]*EntityType{et}, et.DerivedTypes()...)
}

// ConcreteDerivedTypesInclusive returns the non-abstract members of DerivedTypesInclusive
func (et *EntityType) ConcreteDerivedTypesInclusive() []*EntityType {
	var result []*EntityType
	for _, t := range et.DerivedTypesInclusive() {
		if !t.abstract {
			result = append(result, t)
		}
	}
	return result
}

// findDeclaredMember returns the kind of member named name declared on et itself
func (et *EntityType) findDeclaredMember(name string) string {
	switch {
	case et.FindDeclaredProperty(name) != nil:
		return "property"
	case et.FindDeclaredNavigation(name) != nil:
		return "navigation"
	case et.FindDeclaredSkipNavigation(name) != nil:
		return "skip navigation"
	case et.FindDeclaredComplexProperty(name) != nil:
		return "complex property"
	}
	return ""
}

// FindMemberInHierarchy returns the entity type in et's base chain that
// declares a member named name and the member kind.
func (et *EntityType) FindMemberInHierarchy(name string) (*EntityType, string) {
	for t := et; t != nil; t = t.baseType {
		if kind := t.findDeclaredMember(name); kind != "" {
			return t, kind
		}
	}
	return nil, ""
}

func (et *EntityType) ensureMemberNameFree(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty member name on %s", ErrInvalidKey, et.name)
	}
	if owner, kind := et.FindMemberInHierarchy(name); owner != nil {
		return fmt.Errorf("%w: %s.%s is already a %s", ErrDuplicateMember, owner.name, name, kind)
	}
	return nil
}

// AddProperty adds a property. On struct-backed entity types a field with
// the same name and a compatible type backs the property; accessor methods
// are used when no field exists. Otherwise the property lives in shadow
// state and t is required.
func (et *EntityType) AddProperty(name string, t reflect.Type, source ConfigurationSource) (*Property, error) {
	if err := et.model.ensureMutable(); err != nil {
		return nil, err
	}
	if err := et.ensureMemberNameFree(name); err != nil {
		return nil, err
	}

	p, err := newProperty(et, name, t, source)
	if err != nil {
		return nil, err
	}
	et.properties = append(et.properties, p)
	return p, nil
}

// RemoveProperty removes a declared property that is not part of a key or foreign key
func (et *EntityType) RemoveProperty(p *Property) error {
	if err := et.model.ensureMutable(); err != nil {
		return err
	}
	if len(p.keys) > 0 || len(p.foreignKeys) > 0 {
		return fmt.Errorf("%w: %s.%s is used by a key", ErrEntityTypeInUse, et.name, p.name)
	}
	for i, existing := range et.properties {
		if existing == p {
			et.properties = append(et.properties[:i], et.properties[i+1:]...)
			if et.discriminatorProperty == p {
				et.discriminatorProperty = nil
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s.%s", ErrMemberNotFound, et.name, p.name)
}

// FindDeclaredProperty returns a property declared on et itself
func (et *EntityType) FindDeclaredProperty(name string) *Property {
	for _, p := range et.properties {
		if p.name == name {
			return p
		}
	}
	return nil
}

// FindProperty returns a property declared on et or one of its base types
func (et *EntityType) FindProperty(name string) *Property {
	for t := et; t != nil; t = t.baseType {
		if p := t.FindDeclaredProperty(name); p != nil {
			return p
		}
	}
	return nil
}

// DeclaredProperties returns the properties declared on et in insertion order
func (et *EntityType) DeclaredProperties() []*Property {
	result := make([]*Property, len(et.properties))
	copy(result, et.properties)
	return result
}

// Properties returns inherited properties first, then declared ones
func (et *EntityType) Properties() []*Property {
	var result []*Property
	if et.baseType != nil {
		result = et.baseType.Properties()
	}
	return append(result, et.properties...)
}

// PropertyIndexes maps each property name to its position in Properties.
// On a finalized model the map is computed once.
func (et *EntityType) PropertyIndexes() map[string]int {
	build := func() map[string]int {
		indexes := make(map[string]int)
		for i, p := range et.Properties() {
			indexes[p.name] = i
		}
		return indexes
	}
	if et.model.IsReadOnly() {
		if indexes, err := annotations.GetOrAddRuntimeValue(&et.Annotatable, PropertyIndexesAnnotation, build); err == nil {
			return indexes
		}
	}
	return build()
}

func (et *EntityType) propertiesByName(names []string) ([]*Property, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no properties given for %s", ErrInvalidKey, et.name)
	}
	props := make([]*Property, 0, len(names))
	for _, name := range names {
		p := et.FindProperty(name)
		if p == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrMemberNotFound, et.name, name)
		}
		props = append(props, p)
	}
	return props, nil
}

// PropertiesByName resolves names against et's hierarchy
func (et *EntityType) PropertiesByName(names ...string) ([]*Property, error) {
	return et.propertiesByName(names)
}

func (et *EntityType) checkKeyProperties(props []*Property) error {
	if len(props) == 0 {
		return fmt.Errorf("%w: a key needs at least one property", ErrInvalidKey)
	}
	for _, p := range props {
		if p == nil || et.FindProperty(p.name) != p {
			return fmt.Errorf("%w: property does not belong to %s", ErrInvalidKey, et.name)
		}
	}
	return nil
}

// SetPrimaryKey makes props the primary key. An empty props clears it. The
// previous primary key is dropped unless foreign keys reference it.
func (et *EntityType) SetPrimaryKey(props []*Property, source ConfigurationSource) (*Key, error) {
	if err := et.model.ensureMutable(); err != nil {
		return nil, err
	}
	if !canSet(et.primaryKeySource, source) {
		return et.primaryKey, nil
	}

	old := et.primaryKey
	if len(props) == 0 {
		et.primaryKey = nil
		et.primaryKeySource = nil
		et.dropUnreferencedKey(old)
		return nil, nil
	}
	if err := et.checkKeyProperties(props); err != nil {
		return nil, err
	}

	key := et.FindDeclaredKey(props)
	if key == nil {
		key = newKey(et, props, source)
		et.keys = append(et.keys, key)
	} else {
		key.source = annotations.Max(key.source, source)
	}
	et.primaryKey = key
	src := source
	et.primaryKeySource = &src
	if old != key {
		et.dropUnreferencedKey(old)
	}
	return key, nil
}

func (et *EntityType) dropUnreferencedKey(key *Key) {
	if key == nil || len(key.referencingForeignKeys) > 0 || key.source == annotations.SourceExplicit {
		return
	}
	et.removeKey(key)
}

func (et *EntityType) removeKey(key *Key) {
	for i, k := range et.keys {
		if k == key {
			et.keys = append(et.keys[:i], et.keys[i+1:]...)
			break
		}
	}
	for _, p := range key.properties {
		p.removeKey(key)
	}
}

// AddKey adds an alternate key
func (et *EntityType) AddKey(props []*Property, source ConfigurationSource) (*Key, error) {
	if err := et.model.ensureMutable(); err != nil {
		return nil, err
	}
	if err := et.checkKeyProperties(props); err != nil {
		return nil, err
	}
	if existing := et.FindKey(props); existing != nil {
		return nil, fmt.Errorf("%w: %s%s", ErrDuplicateKey, et.name, existing)
	}
	key := newKey(et, props, source)
	et.keys = append(et.keys, key)
	return key, nil
}

// FindDeclaredKey returns the key declared on et over exactly props
func (et *EntityType) FindDeclaredKey(props []*Property) *Key {
	for _, k := range et.keys {
		if samePropertyList(k.properties, props) {
			return k
		}
	}
	return nil
}

// FindKey returns the key over exactly props in et's hierarchy
func (et *EntityType) FindKey(props []*Property) *Key {
	for t := et; t != nil; t = t.baseType {
		if k := t.FindDeclaredKey(props); k != nil {
			return k
		}
	}
	return nil
}

// FindDeclaredPrimaryKey returns the primary key declared on et itself
func (et *EntityType) FindDeclaredPrimaryKey() *Key { return et.primaryKey }

// FindPrimaryKey returns the nearest primary key in et's base chain
func (et *EntityType) FindPrimaryKey() *Key {
	for t := et; t != nil; t = t.baseType {
		if t.primaryKey != nil {
			return t.primaryKey
		}
	}
	return nil
}

// DeclaredKeys returns the keys declared on et
func (et *EntityType) DeclaredKeys() []*Key {
	result := make([]*Key, len(et.keys))
	copy(result, et.keys)
	return result
}

// Keys returns inherited keys first, then declared ones
func (et *EntityType) Keys() []*Key {
	var result []*Key
	if et.baseType != nil {
		result = et.baseType.Keys()
	}
	return append(result, et.keys...)
}

// AddForeignKey adds a foreign key on et (the dependent) referencing
// principalKey on principal.
func (et *EntityType) AddForeignKey(props []*Property, principalKey *Key, principal *EntityType, source ConfigurationSource) (*ForeignKey, error) {
	if err := et.model.ensureMutable(); err != nil {
		return nil, err
	}
	if err := et.checkKeyProperties(props); err != nil {
		return nil, err
	}
	if principal == nil || principalKey == nil {
		return nil, fmt.Errorf("%w: foreign key on %s needs a principal key", ErrInvalidKey, et.name)
	}
	if principal.model != et.model {
		return nil, fmt.Errorf("%w: %s belongs to a different model", ErrInvalidKey, principal.name)
	}

	fk := newForeignKey(et, props, principalKey, principal, source)
	et.foreignKeys = append(et.foreignKeys, fk)
	return fk, nil
}

// RemoveForeignKey removes a declared foreign key and its navigations
func (et *EntityType) RemoveForeignKey(fk *ForeignKey) error {
	if err := et.model.ensureMutable(); err != nil {
		return err
	}
	for i, existing := range et.foreignKeys {
		if existing == fk {
			et.foreignKeys = append(et.foreignKeys[:i], et.foreignKeys[i+1:]...)
			fk.detach()
			return nil
		}
	}
	return fmt.Errorf("%w: foreign key %s", ErrMemberNotFound, fk.DisplayName())
}

// DeclaredForeignKeys returns the foreign keys declared on et
func (et *EntityType) DeclaredForeignKeys() []*ForeignKey {
	result := make([]*ForeignKey, len(et.foreignKeys))
	copy(result, et.foreignKeys)
	return result
}

// ForeignKeys returns inherited foreign keys first, then declared ones
func (et *EntityType) ForeignKeys() []*ForeignKey {
	var result []*ForeignKey
	if et.baseType != nil {
		result = et.baseType.ForeignKeys()
	}
	return append(result, et.foreignKeys...)
}

// ReferencingForeignKeys returns the foreign keys whose principal is et
func (et *EntityType) ReferencingForeignKeys() []*ForeignKey {
	var result []*ForeignKey
	for _, other := range et.model.EntityTypes() {
		for _, fk := range other.foreignKeys {
			if fk.principalEntityType == et {
				result = append(result, fk)
			}
		}
	}
	return result
}

// FindOwnership returns the ownership foreign key, or nil
func (et *EntityType) FindOwnership() *ForeignKey {
	for _, fk := range et.ForeignKeys() {
		if fk.ownership {
			return fk
		}
	}
	return nil
}

// IsOwned reports whether et is the dependent of an ownership
func (et *EntityType) IsOwned() bool {
	return et.FindOwnership() != nil
}

func (et *EntityType) addNavigation(nav *Navigation) error {
	if err := et.ensureMemberNameFree(nav.name); err != nil {
		return err
	}
	et.navigations = append(et.navigations, nav)
	return nil
}

func (et *EntityType) removeNavigation(nav *Navigation) {
	for i, n := range et.navigations {
		if n == nav {
			et.navigations = append(et.navigations[:i], et.navigations[i+1:]...)
			return
		}
	}
}

// FindDeclaredNavigation returns a navigation declared on et itself
func (et *EntityType) FindDeclaredNavigation(name string) *Navigation {
	for _, n := range et.navigations {
		if n.name == name {
			return n
		}
	}
	return nil
}

// FindNavigation returns a navigation declared on et or a base type
func (et *EntityType) FindNavigation(name string) *Navigation {
	for t := et; t != nil; t = t.baseType {
		if n := t.FindDeclaredNavigation(name); n != nil {
			return n
		}
	}
	return nil
}

// DeclaredNavigations returns the navigations declared on et
func (et *EntityType) DeclaredNavigations() []*Navigation {
	result := make([]*Navigation, len(et.navigations))
	copy(result, et.navigations)
	return result
}

// Navigations returns inherited navigations first, then declared ones
func (et *EntityType) Navigations() []*Navigation {
	var result []*Navigation
	if et.baseType != nil {
		result = et.baseType.Navigations()
	}
	return append(result, et.navigations...)
}

// AddSkipNavigation adds a many-to-many navigation to target
func (et *EntityType) AddSkipNavigation(name string, target *EntityType, collection bool, source ConfigurationSource) (*SkipNavigation, error) {
	if err := et.model.ensureMutable(); err != nil {
		return nil, err
	}
	if err := et.ensureMemberNameFree(name); err != nil {
		return nil, err
	}
	if target == nil || target.model != et.model {
		return nil, fmt.Errorf("%w: skip navigation %s.%s needs a target in the same model", ErrInvalidKey, et.name, name)
	}
	skip := newSkipNavigation(et, name, target, collection, source)
	et.skipNavigations = append(et.skipNavigations, skip)
	return skip, nil
}

// FindDeclaredSkipNavigation returns a skip navigation declared on et itself
func (et *EntityType) FindDeclaredSkipNavigation(name string) *SkipNavigation {
	for _, s := range et.skipNavigations {
		if s.name == name {
			return s
		}
	}
	return nil
}

// FindSkipNavigation returns a skip navigation declared on et or a base type
func (et *EntityType) FindSkipNavigation(name string) *SkipNavigation {
	for t := et; t != nil; t = t.baseType {
		if s := t.FindDeclaredSkipNavigation(name); s != nil {
			return s
		}
	}
	return nil
}

// DeclaredSkipNavigations returns the skip navigations declared on et
func (et *EntityType) DeclaredSkipNavigations() []*SkipNavigation {
	result := make([]*SkipNavigation, len(et.skipNavigations))
	copy(result, et.skipNavigations)
	return result
}

// SkipNavigations returns inherited skip navigations first, then declared ones
func (et *EntityType) SkipNavigations() []*SkipNavigation {
	var result []*SkipNavigation
	if et.baseType != nil {
		result = et.baseType.SkipNavigations()
	}
	return append(result, et.skipNavigations...)
}

// AddComplexProperty adds a property whose value is a nested structure. A
// nil t is resolved from the struct field named name.
func (et *EntityType) AddComplexProperty(name string, t reflect.Type, source ConfigurationSource) (*ComplexProperty, error) {
	if err := et.model.ensureMutable(); err != nil {
		return nil, err
	}
	if err := et.ensureMemberNameFree(name); err != nil {
		return nil, err
	}
	cp, err := newComplexProperty(et, name, t, source)
	if err != nil {
		return nil, err
	}
	et.complexProperties = append(et.complexProperties, cp)
	return cp, nil
}

// FindDeclaredComplexProperty returns a complex property declared on et itself
func (et *EntityType) FindDeclaredComplexProperty(name string) *ComplexProperty {
	for _, cp := range et.complexProperties {
		if cp.name == name {
			return cp
		}
	}
	return nil
}

// FindComplexProperty returns a complex property declared on et or a base type
func (et *EntityType) FindComplexProperty(name string) *ComplexProperty {
	for t := et; t != nil; t = t.baseType {
		if cp := t.FindDeclaredComplexProperty(name); cp != nil {
			return cp
		}
	}
	return nil
}

// DeclaredComplexProperties returns the complex properties declared on et
func (et *EntityType) DeclaredComplexProperties() []*ComplexProperty {
	result := make([]*ComplexProperty, len(et.complexProperties))
	copy(result, et.complexProperties)
	return result
}

// ComplexProperties returns inherited complex properties first, then declared ones
func (et *EntityType) ComplexProperties() []*ComplexProperty {
	var result []*ComplexProperty
	if et.baseType != nil {
		result = et.baseType.ComplexProperties()
	}
	return append(result, et.complexProperties...)
}

// SetDiscriminatorProperty configures the discriminator of the hierarchy
// rooted at et. Passing nil removes it.
func (et *EntityType) SetDiscriminatorProperty(p *Property, source ConfigurationSource) error {
	if err := et.model.ensureMutable(); err != nil {
		return err
	}
	if et.baseType != nil {
		return fmt.Errorf("%w: the discriminator must be configured on the root type %s, not %s",
			ErrInvalidDiscriminator, et.RootType().name, et.name)
	}
	if !canSet(et.discriminatorPropertySrc, source) {
		return nil
	}
	if p != nil && et.FindProperty(p.name) != p {
		return fmt.Errorf("%w: %s does not declare %s", ErrInvalidDiscriminator, et.name, p.name)
	}
	et.discriminatorProperty = p
	src := source
	et.discriminatorPropertySrc = &src
	return nil
}

// DiscriminatorProperty returns the discriminator configured on the root type
func (et *EntityType) DiscriminatorProperty() *Property {
	return et.RootType().discriminatorProperty
}

// SetDiscriminatorValue sets the discriminator value of et. A lower
// precedence source than the current one is ignored.
func (et *EntityType) SetDiscriminatorValue(value interface{}, source ConfigurationSource) error {
	if err := et.model.ensureMutable(); err != nil {
		return err
	}
	if et.discriminatorValueSet && source < et.discriminatorValueSource {
		return nil
	}
	et.discriminatorValue = value
	et.discriminatorValueSet = true
	et.discriminatorValueSource = source
	return nil
}

// DiscriminatorValue returns the configured discriminator value
func (et *EntityType) DiscriminatorValue() (interface{}, bool) {
	return et.discriminatorValue, et.discriminatorValueSet
}

// DiscriminatorValueConfigurationSource returns how the discriminator value was set
func (et *EntityType) DiscriminatorValueConfigurationSource() ConfigurationSource {
	return et.discriminatorValueSource
}

// SetQueryFilter sets the query filter expression; empty removes it
func (et *EntityType) SetQueryFilter(expr string) error {
	if err := et.model.ensureMutable(); err != nil {
		return err
	}
	et.queryFilter = expr
	return nil
}

// QueryFilter returns the query filter expression, or ""
func (et *EntityType) QueryFilter() string { return et.queryFilter }

// SetChangeTrackingStrategy sets the change tracking strategy
func (et *EntityType) SetChangeTrackingStrategy(s ChangeTrackingStrategy) error {
	if err := et.model.ensureMutable(); err != nil {
		return err
	}
	et.changeTrackingStrategy = s
	return nil
}

// ChangeTrackingStrategy returns the change tracking strategy
func (et *EntityType) ChangeTrackingStrategy() ChangeTrackingStrategy {
	return et.changeTrackingStrategy
}

// SetConstructorBinding names the properties passed, in order, to the
// constructor used when materializing instances.
func (et *EntityType) SetConstructorBinding(params []string) error {
	if err := et.model.ensureMutable(); err != nil {
		return err
	}
	et.constructorBinding = append([]string(nil), params...)
	return nil
}

// ConstructorBinding returns the constructor parameter names, or nil
func (et *EntityType) ConstructorBinding() []string {
	return append([]string(nil), et.constructorBinding...)
}

// AddData appends seed rows. A row is a map keyed by member name or a
// value (or pointer) of the entity's Go type.
func (et *EntityType) AddData(rows ...interface{}) error {
	if err := et.model.ensureMutable(); err != nil {
		return err
	}
	et.seedData = append(et.seedData, rows...)
	return nil
}

// SeedData returns the raw seed rows
func (et *EntityType) SeedData() []interface{} {
	return append([]interface{}(nil), et.seedData...)
}

// Ignore excludes the member named name from convention discovery
func (et *EntityType) Ignore(name string, source ConfigurationSource) error {
	if err := et.model.ensureMutable(); err != nil {
		return err
	}
	if et.ignored == nil {
		et.ignored = make(map[string]ConfigurationSource)
	}
	if existing, ok := et.ignored[name]; ok {
		source = annotations.Max(existing, source)
	}
	et.ignored[name] = source
	return nil
}

// IsIgnored reports whether name was ignored on et or one of its base types
func (et *EntityType) IsIgnored(name string) bool {
	for t := et; t != nil; t = t.baseType {
		if _, ok := t.ignored[name]; ok {
			return true
		}
	}
	return false
}

// IgnoredMembers returns the names ignored on et itself, sorted
func (et *EntityType) IgnoredMembers() []string {
	names := make([]string, 0, len(et.ignored))
	for name := range et.ignored {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
