package schema

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
)

// ConventionDispatcher receives model building events. Conventions add
// what explicit configuration left out (base types, properties, keys,
// discriminators) using annotations.SourceConvention.
type ConventionDispatcher interface {
	// OnEntityTypeAdded runs as soon as an entity type joins the model
	OnEntityTypeAdded(et *EntityType) error
	// OnModelBuilding runs before relationships are materialized
	OnModelBuilding(m *Model) error
	// OnModelFinalizing runs after relationships are materialized
	OnModelFinalizing(m *Model) error
}

// ModelCreator is implemented by contexts that configure their own model
type ModelCreator interface {
	OnModelCreating(b *ModelBuilder)
}

// ModelBuilder populates a Model through a fluent API. Configuration
// errors are collected and reported by FinalizeModel, so calls can be
// chained without checking each step.
type ModelBuilder struct {
	model         *Model
	conventions   ConventionDispatcher
	entities      map[*EntityType]*EntityTypeBuilder
	relationships []*RelationshipBuilder
	errors        []error
}

// NewModelBuilder creates a builder over an empty model. conventions may be nil.
func NewModelBuilder(conventions ConventionDispatcher) *ModelBuilder {
	return &ModelBuilder{
		model:       NewModel(),
		conventions: conventions,
		entities:    make(map[*EntityType]*EntityTypeBuilder),
	}
}

// Model returns the model being built
func (b *ModelBuilder) Model() *Model {
	return b.model
}

// Errors returns the configuration errors collected so far
func (b *ModelBuilder) Errors() []error {
	return append([]error(nil), b.errors...)
}

func (b *ModelBuilder) addError(err error) {
	if err != nil {
		b.errors = append(b.errors, err)
	}
}

// HasAnnotation sets a model annotation
func (b *ModelBuilder) HasAnnotation(name string, value interface{}) *ModelBuilder {
	_, err := b.model.SetAnnotation(name, value)
	b.addError(err)
	return b
}

func goTypeOf(v interface{}) reflect.Type {
	var t reflect.Type
	switch v := v.(type) {
	case reflect.Type:
		t = v
	default:
		t = reflect.TypeOf(v)
	}
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Entity returns the builder for the entity type backed by v's Go type,
// adding it when needed. v is a struct value, a pointer to one, or a
// reflect.Type. A string names an existing entity type.
func (b *ModelBuilder) Entity(v interface{}) *EntityTypeBuilder {
	if name, ok := v.(string); ok {
		et := b.model.FindEntityType(name)
		if et == nil {
			b.addError(fmt.Errorf("%w: %s", ErrEntityTypeNotFound, name))
			return &EntityTypeBuilder{b: b}
		}
		return b.builderFor(et)
	}

	t := goTypeOf(v)
	if et := b.model.FindEntityTypeByGoType(t); et != nil {
		return b.builderFor(et)
	}
	et, err := b.model.AddEntityType(t, annotations.SourceExplicit)
	if err != nil {
		b.addError(err)
		return &EntityTypeBuilder{b: b}
	}
	b.entityAdded(et)
	return b.builderFor(et)
}

// SharedEntity returns the builder for the shared entity type called name,
// adding a property bag entity type when needed.
func (b *ModelBuilder) SharedEntity(name string) *EntityTypeBuilder {
	if et := b.model.FindEntityType(name); et != nil {
		if !et.shared {
			b.addError(fmt.Errorf("%w: %s is not a shared entity type", ErrDuplicateEntityType, name))
		}
		return b.builderFor(et)
	}
	et, err := b.model.AddSharedEntityType(name, nil, annotations.SourceExplicit)
	if err != nil {
		b.addError(err)
		return &EntityTypeBuilder{b: b}
	}
	b.entityAdded(et)
	return b.builderFor(et)
}

func (b *ModelBuilder) entityAdded(et *EntityType) {
	if b.conventions != nil {
		b.addError(b.conventions.OnEntityTypeAdded(et))
	}
}

func (b *ModelBuilder) builderFor(et *EntityType) *EntityTypeBuilder {
	eb, ok := b.entities[et]
	if !ok {
		eb = &EntityTypeBuilder{b: b, et: et}
		b.entities[et] = eb
	}
	return eb
}

func (b *ModelBuilder) resolveTarget(v interface{}) *EntityType {
	return b.Entity(v).et
}

// FinalizeModel runs the conventions, materializes relationships and makes
// the model read-only. The collected configuration errors are returned
// joined; the model is not finalized in that case.
func (b *ModelBuilder) FinalizeModel() (*Model, error) {
	if b.conventions != nil {
		b.addError(b.conventions.OnModelBuilding(b.model))
	}
	for _, r := range b.relationships {
		b.addError(r.materialize())
	}
	if b.conventions != nil {
		b.addError(b.conventions.OnModelFinalizing(b.model))
	}
	if len(b.errors) > 0 {
		return nil, errors.Join(b.errors...)
	}
	return b.model.FinalizeModel()
}

// EntityTypeBuilder configures one entity type. After a failed lookup it
// holds no entity type and every call is a no-op.
type EntityTypeBuilder struct {
	b  *ModelBuilder
	et *EntityType
}

// Metadata returns the entity type being configured
func (eb *EntityTypeBuilder) Metadata() *EntityType {
	return eb.et
}

func (eb *EntityTypeBuilder) ensureProperty(name string, t reflect.Type) *Property {
	if p := eb.et.FindProperty(name); p != nil {
		return p
	}
	p, err := eb.et.AddProperty(name, t, annotations.SourceExplicit)
	eb.b.addError(err)
	return p
}

func (eb *EntityTypeBuilder) ensureProperties(names []string) []*Property {
	props := make([]*Property, 0, len(names))
	for _, name := range names {
		p := eb.ensureProperty(name, nil)
		if p == nil {
			return nil
		}
		props = append(props, p)
	}
	return props
}

// Property configures the property name, backed by the struct field or
// accessor methods of the same name.
func (eb *EntityTypeBuilder) Property(name string) *PropertyBuilder {
	if eb.et == nil {
		return &PropertyBuilder{b: eb.b}
	}
	return &PropertyBuilder{b: eb.b, p: eb.ensureProperty(name, nil)}
}

// PropertyOfType configures the property name with Go type t. A property
// without a matching member is created in shadow state.
func (eb *EntityTypeBuilder) PropertyOfType(name string, t reflect.Type) *PropertyBuilder {
	if eb.et == nil {
		return &PropertyBuilder{b: eb.b}
	}
	return &PropertyBuilder{b: eb.b, p: eb.ensureProperty(name, t)}
}

// Ignore excludes a member from convention discovery
func (eb *EntityTypeBuilder) Ignore(name string) *EntityTypeBuilder {
	if eb.et != nil {
		eb.b.addError(eb.et.Ignore(name, annotations.SourceExplicit))
	}
	return eb
}

// HasKey sets the primary key
func (eb *EntityTypeBuilder) HasKey(names ...string) *EntityTypeBuilder {
	if eb.et == nil {
		return eb
	}
	if props := eb.ensureProperties(names); props != nil {
		eb.b.addError(eb.et.SetKeyless(false))
		_, err := eb.et.SetPrimaryKey(props, annotations.SourceExplicit)
		eb.b.addError(err)
	}
	return eb
}

// HasNoKey marks the entity type as keyless
func (eb *EntityTypeBuilder) HasNoKey() *EntityTypeBuilder {
	if eb.et == nil {
		return eb
	}
	_, err := eb.et.SetPrimaryKey(nil, annotations.SourceExplicit)
	eb.b.addError(err)
	eb.b.addError(eb.et.SetKeyless(true))
	return eb
}

// HasAlternateKey adds an alternate key
func (eb *EntityTypeBuilder) HasAlternateKey(names ...string) *EntityTypeBuilder {
	if eb.et == nil {
		return eb
	}
	if props := eb.ensureProperties(names); props != nil {
		_, err := eb.et.AddKey(props, annotations.SourceExplicit)
		eb.b.addError(err)
	}
	return eb
}

// HasBaseType sets the base type; nil removes it
func (eb *EntityTypeBuilder) HasBaseType(v interface{}) *EntityTypeBuilder {
	if eb.et == nil {
		return eb
	}
	var base *EntityType
	if v != nil {
		if base = eb.b.resolveTarget(v); base == nil {
			return eb
		}
	}
	eb.b.addError(eb.et.SetBaseType(base, annotations.SourceExplicit))
	return eb
}

// Abstract marks the entity type as abstract
func (eb *EntityTypeBuilder) Abstract() *EntityTypeBuilder {
	if eb.et != nil {
		eb.b.addError(eb.et.SetAbstract(true))
	}
	return eb
}

// HasDiscriminator configures the discriminator property of the hierarchy
func (eb *EntityTypeBuilder) HasDiscriminator(name string, t reflect.Type) *EntityTypeBuilder {
	if eb.et == nil {
		return eb
	}
	if p := eb.ensureProperty(name, t); p != nil {
		eb.b.addError(eb.et.SetDiscriminatorProperty(p, annotations.SourceExplicit))
	}
	return eb
}

// HasDiscriminatorValue sets the discriminator value of this entity type
func (eb *EntityTypeBuilder) HasDiscriminatorValue(value interface{}) *EntityTypeBuilder {
	if eb.et != nil {
		eb.b.addError(eb.et.SetDiscriminatorValue(value, annotations.SourceExplicit))
	}
	return eb
}

// HasQueryFilter sets the query filter expression
func (eb *EntityTypeBuilder) HasQueryFilter(expr string) *EntityTypeBuilder {
	if eb.et != nil {
		eb.b.addError(eb.et.SetQueryFilter(expr))
	}
	return eb
}

// HasChangeTrackingStrategy sets the change tracking strategy
func (eb *EntityTypeBuilder) HasChangeTrackingStrategy(s ChangeTrackingStrategy) *EntityTypeBuilder {
	if eb.et != nil {
		eb.b.addError(eb.et.SetChangeTrackingStrategy(s))
	}
	return eb
}

// HasConstructor binds materialization to a constructor taking the named properties
func (eb *EntityTypeBuilder) HasConstructor(params ...string) *EntityTypeBuilder {
	if eb.et != nil {
		eb.b.addError(eb.et.SetConstructorBinding(params))
	}
	return eb
}

// HasData adds seed rows
func (eb *EntityTypeBuilder) HasData(rows ...interface{}) *EntityTypeBuilder {
	if eb.et != nil {
		eb.b.addError(eb.et.AddData(rows...))
	}
	return eb
}

// HasAnnotation sets an annotation on the entity type
func (eb *EntityTypeBuilder) HasAnnotation(name string, value interface{}) *EntityTypeBuilder {
	if eb.et != nil {
		_, err := eb.et.SetAnnotation(name, value)
		eb.b.addError(err)
	}
	return eb
}

// HasOne starts a relationship where this entity type references a single
// target through navigation (which may be empty).
func (eb *EntityTypeBuilder) HasOne(target interface{}, navigation string) *ReferenceNavigationBuilder {
	return &ReferenceNavigationBuilder{source: eb, target: eb.b.resolveTarget(target), navigation: navigation}
}

// HasMany starts a relationship where this entity type holds a collection
// of target through navigation.
func (eb *EntityTypeBuilder) HasMany(target interface{}, navigation string) *CollectionNavigationBuilder {
	return &CollectionNavigationBuilder{source: eb, target: eb.b.resolveTarget(target), navigation: navigation}
}

// OwnsOne configures target as a dependent owned by this entity type and
// returns the builder of the owned type.
func (eb *EntityTypeBuilder) OwnsOne(target interface{}, navigation string) *EntityTypeBuilder {
	owned := eb.b.resolveTarget(target)
	if eb.et == nil || owned == nil {
		return &EntityTypeBuilder{b: eb.b}
	}
	required := true
	eb.b.relationships = append(eb.b.relationships, &RelationshipBuilder{
		b:                 eb.b,
		principal:         eb.et,
		dependent:         owned,
		principalNav:      navigation,
		unique:            true,
		principalEndKnown: true,
		ownership:         true,
		required:          &required,
	})
	return eb.b.builderFor(owned)
}

// HasSkipNavigation adds a bare many-to-many navigation without join
// entity or inverse. WithMany on HasMany configures a complete one.
func (eb *EntityTypeBuilder) HasSkipNavigation(name string, target interface{}) *EntityTypeBuilder {
	t := eb.b.resolveTarget(target)
	if eb.et == nil || t == nil {
		return eb
	}
	_, err := eb.et.AddSkipNavigation(name, t, true, annotations.SourceExplicit)
	eb.b.addError(err)
	return eb
}

// ComplexProperty configures a nested structure member
func (eb *EntityTypeBuilder) ComplexProperty(name string) *ComplexPropertyBuilder {
	if eb.et == nil {
		return &ComplexPropertyBuilder{b: eb.b}
	}
	cp := eb.et.FindComplexProperty(name)
	if cp == nil {
		var err error
		cp, err = eb.et.AddComplexProperty(name, nil, annotations.SourceExplicit)
		eb.b.addError(err)
	}
	return &ComplexPropertyBuilder{b: eb.b, cp: cp}
}

// PropertyBuilder configures one property. A nil property makes every call a no-op.
type PropertyBuilder struct {
	b *ModelBuilder
	p *Property
}

// Metadata returns the property being configured
func (pb *PropertyBuilder) Metadata() *Property {
	return pb.p
}

func (pb *PropertyBuilder) apply(fn func(p *Property) error) *PropertyBuilder {
	if pb.p != nil {
		pb.b.addError(fn(pb.p))
	}
	return pb
}

// IsRequired configures whether the property may hold nil
func (pb *PropertyBuilder) IsRequired(required bool) *PropertyBuilder {
	return pb.apply(func(p *Property) error { return p.SetNullable(!required) })
}

// HasField sets the backing field
func (pb *PropertyBuilder) HasField(name string) *PropertyBuilder {
	return pb.apply(func(p *Property) error { return p.SetField(name) })
}

// UsePropertyAccessMode sets how values are read and written
func (pb *PropertyBuilder) UsePropertyAccessMode(mode PropertyAccessMode) *PropertyBuilder {
	return pb.apply(func(p *Property) error { return p.SetAccessMode(mode) })
}

// ValueGeneratedNever disables store generated values
func (pb *PropertyBuilder) ValueGeneratedNever() *PropertyBuilder {
	return pb.valueGenerated(ValueGeneratedNever)
}

// ValueGeneratedOnAdd marks values as generated on insert
func (pb *PropertyBuilder) ValueGeneratedOnAdd() *PropertyBuilder {
	return pb.valueGenerated(ValueGeneratedOnAdd)
}

// ValueGeneratedOnUpdate marks values as generated on update
func (pb *PropertyBuilder) ValueGeneratedOnUpdate() *PropertyBuilder {
	return pb.valueGenerated(ValueGeneratedOnUpdate)
}

// ValueGeneratedOnAddOrUpdate marks values as generated on insert and update
func (pb *PropertyBuilder) ValueGeneratedOnAddOrUpdate() *PropertyBuilder {
	return pb.valueGenerated(ValueGeneratedOnAddOrUpdate)
}

func (pb *PropertyBuilder) valueGenerated(v ValueGenerated) *PropertyBuilder {
	return pb.apply(func(p *Property) error { return p.SetValueGenerated(v, annotations.SourceExplicit) })
}

// HasValueComparer sets the value comparer
func (pb *PropertyBuilder) HasValueComparer(c ValueComparer) *PropertyBuilder {
	return pb.apply(func(p *Property) error { return p.SetComparer(c) })
}

// HasConversion sets the value converter
func (pb *PropertyBuilder) HasConversion(c ValueConverter) *PropertyBuilder {
	return pb.apply(func(p *Property) error { return p.SetConverter(c) })
}

// HasAnnotation sets an annotation on the property
func (pb *PropertyBuilder) HasAnnotation(name string, value interface{}) *PropertyBuilder {
	return pb.apply(func(p *Property) error {
		_, err := p.SetAnnotation(name, value)
		return err
	})
}

// ComplexPropertyBuilder configures a complex property and its nested type
type ComplexPropertyBuilder struct {
	b  *ModelBuilder
	cp *ComplexProperty
}

// Metadata returns the complex property being configured
func (cb *ComplexPropertyBuilder) Metadata() *ComplexProperty {
	return cb.cp
}

func (cb *ComplexPropertyBuilder) ensureProperty(name string, t reflect.Type) *Property {
	ct := cb.cp.complexType
	if p := ct.FindProperty(name); p != nil {
		return p
	}
	p, err := ct.AddProperty(name, t, annotations.SourceExplicit)
	cb.b.addError(err)
	return p
}

// Property configures a scalar property of the nested type
func (cb *ComplexPropertyBuilder) Property(name string) *PropertyBuilder {
	if cb.cp == nil {
		return &PropertyBuilder{b: cb.b}
	}
	return &PropertyBuilder{b: cb.b, p: cb.ensureProperty(name, nil)}
}

// ComplexProperty configures a nested complex property
func (cb *ComplexPropertyBuilder) ComplexProperty(name string) *ComplexPropertyBuilder {
	if cb.cp == nil {
		return cb
	}
	ct := cb.cp.complexType
	nested := ct.FindComplexProperty(name)
	if nested == nil {
		var err error
		nested, err = ct.AddComplexProperty(name, nil, annotations.SourceExplicit)
		cb.b.addError(err)
	}
	return &ComplexPropertyBuilder{b: cb.b, cp: nested}
}

// HasDiscriminator configures the discriminator property of the nested type
func (cb *ComplexPropertyBuilder) HasDiscriminator(name string, t reflect.Type) *ComplexPropertyBuilder {
	if cb.cp == nil {
		return cb
	}
	if p := cb.ensureProperty(name, t); p != nil {
		cb.b.addError(cb.cp.complexType.SetDiscriminatorProperty(p))
	}
	return cb
}

// HasDiscriminatorValue sets the discriminator value of the nested type
func (cb *ComplexPropertyBuilder) HasDiscriminatorValue(value interface{}) *ComplexPropertyBuilder {
	if cb.cp != nil {
		cb.b.addError(cb.cp.complexType.SetDiscriminatorValue(value))
	}
	return cb
}
