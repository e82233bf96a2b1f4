package schema

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
)

// ErrNotNullable is returned when a property of a non-nullable Go type is made optional
var ErrNotNullable = errors.New("property type cannot hold nil")

// Property is a scalar member of an entity type or complex type
type Property struct {
	annotations.Annotatable

	name          string
	declaringType StructuralType
	goType        reflect.Type
	source        ConfigurationSource

	shadow    bool
	indexer   bool
	fieldName string

	nullable             *bool
	accessMode           PropertyAccessMode
	valueGenerated       ValueGenerated
	valueGeneratedSource *ConfigurationSource
	comparer             ValueComparer
	converter            ValueConverter

	keys        []*Key
	foreignKeys []*ForeignKey
}

func newProperty(declaring StructuralType, name string, t reflect.Type, source ConfigurationSource) (*Property, error) {
	p := &Property{
		name:          name,
		declaringType: declaring,
		source:        source,
	}
	p.SetOwner(declaring.Model())

	host := declaring.GoType()
	switch {
	case host == nil:
		p.shadow = true
	case host == propertyBag:
		p.indexer = true
	default:
		if field, ok := host.FieldByName(name); ok {
			if t == nil || t == field.Type {
				t = field.Type
				p.fieldName = name
			} else {
				p.shadow = true
			}
		} else if getter := findGetter(host, name); getter != nil {
			if t == nil {
				t = getter.Type.Out(0)
			}
		} else {
			p.shadow = true
		}
	}

	if t == nil {
		return nil, fmt.Errorf("%w: property %s.%s has no Go type", ErrInvalidGoType, declaring.Name(), name)
	}
	p.goType = t
	return p, nil
}

// Name returns the property name
func (p *Property) Name() string { return p.name }

// String returns "Type.Name"
func (p *Property) String() string { return p.declaringType.Name() + "." + p.name }

// GoType returns the Go type of the property values
func (p *Property) GoType() reflect.Type { return p.goType }

// DeclaringType returns the entity or complex type declaring p
func (p *Property) DeclaringType() StructuralType { return p.declaringType }

// DeclaringEntityType returns the declaring entity type, or nil for complex type properties
func (p *Property) DeclaringEntityType() *EntityType {
	et, _ := p.declaringType.(*EntityType)
	return et
}

// ConfigurationSource returns how the property was added
func (p *Property) ConfigurationSource() ConfigurationSource { return p.source }

// IsShadow reports whether the property has no backing field or accessor
func (p *Property) IsShadow() bool { return p.shadow }

// IsIndexer reports whether the property is stored in a property bag
func (p *Property) IsIndexer() bool { return p.indexer }

// FieldName returns the backing field name, or ""
func (p *Property) FieldName() string { return p.fieldName }

// SetField sets the backing field name. The field must exist on the declaring Go type.
func (p *Property) SetField(name string) error {
	if err := p.declaringType.Model().ensureMutable(); err != nil {
		return err
	}
	host := p.declaringType.GoType()
	if name != "" {
		if host == nil || host == propertyBag {
			return fmt.Errorf("%w: %s has no fields", ErrMemberNotFound, p.declaringType.Name())
		}
		if _, ok := host.FieldByName(name); !ok {
			return fmt.Errorf("%w: field %s on %s", ErrMemberNotFound, name, host)
		}
		p.shadow = false
	}
	p.fieldName = name
	return nil
}

// AccessMode returns how values are read and written
func (p *Property) AccessMode() PropertyAccessMode { return p.accessMode }

// SetAccessMode sets how values are read and written
func (p *Property) SetAccessMode(mode PropertyAccessMode) error {
	if err := p.declaringType.Model().ensureMutable(); err != nil {
		return err
	}
	p.accessMode = mode
	return nil
}

// IsNullable reports whether the property may hold nil. Key properties never are.
func (p *Property) IsNullable() bool {
	if len(p.keys) > 0 {
		return false
	}
	if p.nullable != nil {
		return *p.nullable
	}
	return IsNullableType(p.goType)
}

// SetNullable configures whether the property may hold nil
func (p *Property) SetNullable(nullable bool) error {
	if err := p.declaringType.Model().ensureMutable(); err != nil {
		return err
	}
	if nullable && !IsNullableType(p.goType) {
		return fmt.Errorf("%w: %s is %s", ErrNotNullable, p, p.goType)
	}
	p.nullable = &nullable
	return nil
}

// ValueGenerated returns when the store generates values
func (p *Property) ValueGenerated() ValueGenerated { return p.valueGenerated }

// ValueGeneratedConfigurationSource returns how value generation was set, or nil
func (p *Property) ValueGeneratedConfigurationSource() *ConfigurationSource { return p.valueGeneratedSource }

// SetValueGenerated configures value generation. A lower precedence source is ignored.
func (p *Property) SetValueGenerated(v ValueGenerated, source ConfigurationSource) error {
	if err := p.declaringType.Model().ensureMutable(); err != nil {
		return err
	}
	if !canSet(p.valueGeneratedSource, source) {
		return nil
	}
	p.valueGenerated = v
	src := source
	p.valueGeneratedSource = &src
	return nil
}

// ExplicitComparer returns the configured comparer, or nil
func (p *Property) ExplicitComparer() ValueComparer { return p.comparer }

// Comparer returns the comparer used for values: the configured one, one
// comparing converted values when a converter is set, or DefaultComparer.
func (p *Property) Comparer() ValueComparer {
	switch {
	case p.comparer != nil:
		return p.comparer
	case p.converter != nil:
		return convertingComparer{p.converter}
	default:
		return DefaultComparer
	}
}

// SetComparer configures the value comparer; nil restores the default
func (p *Property) SetComparer(c ValueComparer) error {
	if err := p.declaringType.Model().ensureMutable(); err != nil {
		return err
	}
	p.comparer = c
	return nil
}

// Converter returns the value converter, or nil
func (p *Property) Converter() ValueConverter { return p.converter }

// SetConverter configures the value converter; nil removes it
func (p *Property) SetConverter(c ValueConverter) error {
	if err := p.declaringType.Model().ensureMutable(); err != nil {
		return err
	}
	if c != nil && c.ModelType() != nil && c.ModelType() != UnwrapNullable(p.goType) && c.ModelType() != p.goType {
		return fmt.Errorf("%w: converter for %s expects %s, property is %s", ErrInvalidGoType, p, c.ModelType(), p.goType)
	}
	p.converter = c
	return nil
}

// ProviderType returns the type values have once converted for the store
func (p *Property) ProviderType() reflect.Type {
	if p.converter != nil && p.converter.ProviderType() != nil {
		return p.converter.ProviderType()
	}
	return p.goType
}

// Keys returns the keys containing p
func (p *Property) Keys() []*Key { return append([]*Key(nil), p.keys...) }

// IsKey reports whether p is part of any key
func (p *Property) IsKey() bool { return len(p.keys) > 0 }

// IsPrimaryKey reports whether p is part of its entity type's primary key
func (p *Property) IsPrimaryKey() bool {
	et := p.DeclaringEntityType()
	if et == nil {
		return false
	}
	for _, k := range p.keys {
		if k.IsPrimaryKey() {
			return true
		}
	}
	return false
}

// ForeignKeys returns the foreign keys containing p
func (p *Property) ForeignKeys() []*ForeignKey { return append([]*ForeignKey(nil), p.foreignKeys...) }

// IsForeignKey reports whether p is part of any foreign key
func (p *Property) IsForeignKey() bool { return len(p.foreignKeys) > 0 }

func (p *Property) removeKey(key *Key) {
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			return
		}
	}
}

func (p *Property) removeForeignKey(fk *ForeignKey) {
	for i, f := range p.foreignKeys {
		if f == fk {
			p.foreignKeys = append(p.foreignKeys[:i], p.foreignKeys[i+1:]...)
			return
		}
	}
}

func samePropertyList(a, b []*Property) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func propertyNames(props []*Property) []string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.name
	}
	return names
}
