package schema

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
)

// ComplexProperty is a member whose value is a nested structure without
// identity of its own.
type ComplexProperty struct {
	annotations.Annotatable

	name          string
	declaringType StructuralType
	complexType   *ComplexType
	nullable      bool
	collection    bool
	fieldName     string
	accessMode    PropertyAccessMode
	source        ConfigurationSource
}

func newComplexProperty(declaring StructuralType, name string, t reflect.Type, source ConfigurationSource) (*ComplexProperty, error) {
	cp := &ComplexProperty{
		name:          name,
		declaringType: declaring,
		source:        source,
	}
	cp.SetOwner(declaring.Model())

	if host := declaring.GoType(); host != nil && host != propertyBag {
		if field, ok := host.FieldByName(name); ok {
			cp.fieldName = name
			if t == nil {
				t = field.Type
			}
		}
	}
	if t == nil {
		return nil, fmt.Errorf("%w: complex property %s.%s has no Go type", ErrInvalidGoType, declaring.Name(), name)
	}

	elem := t
	switch elem.Kind() {
	case reflect.Ptr:
		cp.nullable = true
		elem = elem.Elem()
	case reflect.Slice:
		cp.collection = true
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: complex property %s.%s must be a struct, got %s", ErrInvalidGoType, declaring.Name(), name, t)
	}

	cp.complexType = &ComplexType{
		name:          declaring.Name() + "." + name,
		goType:        elem,
		model:         declaring.Model(),
		complexParent: cp,
	}
	cp.complexType.SetOwner(declaring.Model())
	return cp, nil
}

// Name returns the complex property name
func (cp *ComplexProperty) Name() string { return cp.name }

// String returns "Type.Name"
func (cp *ComplexProperty) String() string { return cp.declaringType.Name() + "." + cp.name }

// DeclaringType returns the entity or complex type declaring cp
func (cp *ComplexProperty) DeclaringType() StructuralType { return cp.declaringType }

// ComplexType returns the nested structure
func (cp *ComplexProperty) ComplexType() *ComplexType { return cp.complexType }

// IsNullable reports whether the value may be nil
func (cp *ComplexProperty) IsNullable() bool { return cp.nullable }

// IsCollection reports whether the value is a slice of structures
func (cp *ComplexProperty) IsCollection() bool { return cp.collection }

// FieldName returns the backing field name, or ""
func (cp *ComplexProperty) FieldName() string { return cp.fieldName }

// AccessMode returns how the value is read and written
func (cp *ComplexProperty) AccessMode() PropertyAccessMode { return cp.accessMode }

// IsShadow reports whether there is no backing field
func (cp *ComplexProperty) IsShadow() bool {
	host := cp.declaringType.GoType()
	return host == nil
}

// IsIndexer reports whether the value is stored in a property bag
func (cp *ComplexProperty) IsIndexer() bool { return cp.declaringType.GoType() == propertyBag }

// ConfigurationSource returns how the complex property was added
func (cp *ComplexProperty) ConfigurationSource() ConfigurationSource { return cp.source }

// ComplexType is the structural type of a complex property
type ComplexType struct {
	annotations.Annotatable

	name          string
	goType        reflect.Type
	model         *Model
	complexParent *ComplexProperty

	properties        []*Property
	complexProperties []*ComplexProperty

	discriminatorProperty *Property
	discriminatorValue    interface{}
	discriminatorValueSet bool
}

// Name returns the dotted path of the complex type, e.g. "Order.ShippingAddress"
func (ct *ComplexType) Name() string { return ct.name }

// String returns Name
func (ct *ComplexType) String() string { return ct.name }

// GoType returns the struct type
func (ct *ComplexType) GoType() reflect.Type { return ct.goType }

// Model returns the owning model
func (ct *ComplexType) Model() *Model { return ct.model }

// ComplexProperty returns the property this type belongs to
func (ct *ComplexType) ComplexProperty() *ComplexProperty { return ct.complexParent }

// AddProperty adds a scalar property backed by the struct field of the same name
func (ct *ComplexType) AddProperty(name string, t reflect.Type, source ConfigurationSource) (*Property, error) {
	if err := ct.model.ensureMutable(); err != nil {
		return nil, err
	}
	if ct.FindProperty(name) != nil || ct.FindComplexProperty(name) != nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateMember, ct.name, name)
	}
	p, err := newProperty(ct, name, t, source)
	if err != nil {
		return nil, err
	}
	ct.properties = append(ct.properties, p)
	return p, nil
}

// AddComplexProperty adds a nested complex property
func (ct *ComplexType) AddComplexProperty(name string, t reflect.Type, source ConfigurationSource) (*ComplexProperty, error) {
	if err := ct.model.ensureMutable(); err != nil {
		return nil, err
	}
	if ct.FindProperty(name) != nil || ct.FindComplexProperty(name) != nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateMember, ct.name, name)
	}
	cp, err := newComplexProperty(ct, name, t, source)
	if err != nil {
		return nil, err
	}
	ct.complexProperties = append(ct.complexProperties, cp)
	return cp, nil
}

// FindProperty returns the property named name, or nil
func (ct *ComplexType) FindProperty(name string) *Property {
	for _, p := range ct.properties {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Properties returns the scalar properties in insertion order
func (ct *ComplexType) Properties() []*Property {
	return append([]*Property(nil), ct.properties...)
}

// FindComplexProperty returns the nested complex property named name, or nil
func (ct *ComplexType) FindComplexProperty(name string) *ComplexProperty {
	for _, cp := range ct.complexProperties {
		if cp.name == name {
			return cp
		}
	}
	return nil
}

// ComplexProperties returns the nested complex properties in insertion order
func (ct *ComplexType) ComplexProperties() []*ComplexProperty {
	return append([]*ComplexProperty(nil), ct.complexProperties...)
}

// SetDiscriminatorProperty configures the discriminator; nil removes it
func (ct *ComplexType) SetDiscriminatorProperty(p *Property) error {
	if err := ct.model.ensureMutable(); err != nil {
		return err
	}
	if p != nil && ct.FindProperty(p.name) != p {
		return fmt.Errorf("%w: %s does not declare %s", ErrInvalidDiscriminator, ct.name, p.name)
	}
	ct.discriminatorProperty = p
	return nil
}

// DiscriminatorProperty returns the discriminator property, or nil
func (ct *ComplexType) DiscriminatorProperty() *Property { return ct.discriminatorProperty }

// SetDiscriminatorValue sets the discriminator value
func (ct *ComplexType) SetDiscriminatorValue(value interface{}) error {
	if err := ct.model.ensureMutable(); err != nil {
		return err
	}
	ct.discriminatorValue = value
	ct.discriminatorValueSet = true
	return nil
}

// DiscriminatorValue returns the configured discriminator value
func (ct *ComplexType) DiscriminatorValue() (interface{}, bool) {
	return ct.discriminatorValue, ct.discriminatorValueSet
}
