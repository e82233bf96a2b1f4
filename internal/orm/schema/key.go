package schema

import (
	"strings"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
)

// Key is a primary or alternate key
type Key struct {
	annotations.Annotatable

	declaringEntityType    *EntityType
	properties             []*Property
	source                 ConfigurationSource
	referencingForeignKeys []*ForeignKey
}

func newKey(et *EntityType, props []*Property, source ConfigurationSource) *Key {
	k := &Key{
		declaringEntityType: et,
		properties:          append([]*Property(nil), props...),
		source:              source,
	}
	k.SetOwner(et.model)
	for _, p := range props {
		p.keys = append(p.keys, k)
	}
	return k
}

// DeclaringEntityType returns the entity type declaring the key
func (k *Key) DeclaringEntityType() *EntityType { return k.declaringEntityType }

// Properties returns the key properties in order
func (k *Key) Properties() []*Property { return append([]*Property(nil), k.properties...) }

// PropertyNames returns the key property names in order
func (k *Key) PropertyNames() []string { return propertyNames(k.properties) }

// ConfigurationSource returns how the key was added
func (k *Key) ConfigurationSource() ConfigurationSource { return k.source }

// IsPrimaryKey reports whether k is the primary key of its entity type
func (k *Key) IsPrimaryKey() bool { return k.declaringEntityType.primaryKey == k }

// ReferencingForeignKeys returns the foreign keys whose principal key is k
func (k *Key) ReferencingForeignKeys() []*ForeignKey {
	return append([]*ForeignKey(nil), k.referencingForeignKeys...)
}

// String renders the key as "{A, B}"
func (k *Key) String() string {
	return "{" + strings.Join(k.PropertyNames(), ", ") + "}"
}
