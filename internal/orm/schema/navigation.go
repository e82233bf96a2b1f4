package schema

import (
	"fmt"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
)

// Navigation is a reference or collection member backed by a foreign key
type Navigation struct {
	annotations.Annotatable

	name                string
	declaringEntityType *EntityType
	foreignKey          *ForeignKey
	onDependent         bool
	fieldName           string
	accessMode          PropertyAccessMode
	source              ConfigurationSource
}

func newNavigation(declaring *EntityType, name string, fk *ForeignKey, onDependent bool, source ConfigurationSource) *Navigation {
	n := &Navigation{
		name:                name,
		declaringEntityType: declaring,
		foreignKey:          fk,
		onDependent:         onDependent,
		source:              source,
	}
	n.SetOwner(declaring.model)
	if t := declaring.goType; t != nil && t != propertyBag {
		if _, ok := t.FieldByName(name); ok {
			n.fieldName = name
		}
	}
	return n
}

// Name returns the navigation name
func (n *Navigation) Name() string { return n.name }

// String returns "Type.Name"
func (n *Navigation) String() string { return n.declaringEntityType.name + "." + n.name }

// DeclaringEntityType returns the entity type declaring the navigation
func (n *Navigation) DeclaringEntityType() *EntityType { return n.declaringEntityType }

// DeclaringType returns the declaring entity type as a StructuralType
func (n *Navigation) DeclaringType() StructuralType { return n.declaringEntityType }

// ForeignKey returns the foreign key the navigation traverses
func (n *Navigation) ForeignKey() *ForeignKey { return n.foreignKey }

// IsOnDependent reports whether the navigation points from dependent to principal
func (n *Navigation) IsOnDependent() bool { return n.onDependent }

// IsCollection reports whether the navigation holds many entities
func (n *Navigation) IsCollection() bool { return !n.onDependent && !n.foreignKey.unique }

// TargetEntityType returns the entity type at the other end
func (n *Navigation) TargetEntityType() *EntityType {
	if n.onDependent {
		return n.foreignKey.principalEntityType
	}
	return n.foreignKey.declaringEntityType
}

// Inverse returns the navigation in the opposite direction, or nil
func (n *Navigation) Inverse() *Navigation {
	if n.onDependent {
		return n.foreignKey.principalToDependent
	}
	return n.foreignKey.dependentToPrincipal
}

// ConfigurationSource returns how the navigation was added
func (n *Navigation) ConfigurationSource() ConfigurationSource { return n.source }

// FieldName returns the backing field name, or ""
func (n *Navigation) FieldName() string { return n.fieldName }

// AccessMode returns how the navigation value is read and written
func (n *Navigation) AccessMode() PropertyAccessMode { return n.accessMode }

// SetAccessMode sets how the navigation value is read and written
func (n *Navigation) SetAccessMode(mode PropertyAccessMode) error {
	if err := n.declaringEntityType.model.ensureMutable(); err != nil {
		return err
	}
	n.accessMode = mode
	return nil
}

// IsShadow is always false; navigations need a member unless declared on a property bag
func (n *Navigation) IsShadow() bool { return false }

// IsIndexer reports whether the navigation is stored in a property bag
func (n *Navigation) IsIndexer() bool { return n.declaringEntityType.IsPropertyBag() }

// SkipNavigation is a many-to-many navigation that skips over a join entity
type SkipNavigation struct {
	annotations.Annotatable

	name                string
	declaringEntityType *EntityType
	target              *EntityType
	collection          bool
	foreignKey          *ForeignKey
	inverse             *SkipNavigation
	fieldName           string
	accessMode          PropertyAccessMode
	source              ConfigurationSource
}

func newSkipNavigation(declaring *EntityType, name string, target *EntityType, collection bool, source ConfigurationSource) *SkipNavigation {
	s := &SkipNavigation{
		name:                name,
		declaringEntityType: declaring,
		target:              target,
		collection:          collection,
		source:              source,
	}
	s.SetOwner(declaring.model)
	if t := declaring.goType; t != nil && t != propertyBag {
		if _, ok := t.FieldByName(name); ok {
			s.fieldName = name
		}
	}
	return s
}

// Name returns the skip navigation name
func (s *SkipNavigation) Name() string { return s.name }

// String returns "Type.Name"
func (s *SkipNavigation) String() string { return s.declaringEntityType.name + "." + s.name }

// DeclaringEntityType returns the entity type declaring the skip navigation
func (s *SkipNavigation) DeclaringEntityType() *EntityType { return s.declaringEntityType }

// DeclaringType returns the declaring entity type as a StructuralType
func (s *SkipNavigation) DeclaringType() StructuralType { return s.declaringEntityType }

// TargetEntityType returns the entity type reached through the join entity
func (s *SkipNavigation) TargetEntityType() *EntityType { return s.target }

// IsCollection reports whether the skip navigation holds many entities
func (s *SkipNavigation) IsCollection() bool { return s.collection }

// ForeignKey returns the foreign key from the join entity to the declaring type, or nil
func (s *SkipNavigation) ForeignKey() *ForeignKey { return s.foreignKey }

// JoinEntityType returns the join entity, or nil while no foreign key is set
func (s *SkipNavigation) JoinEntityType() *EntityType {
	if s.foreignKey == nil {
		return nil
	}
	return s.foreignKey.declaringEntityType
}

// SetForeignKey sets the foreign key from the join entity to the declaring type
func (s *SkipNavigation) SetForeignKey(fk *ForeignKey) error {
	if err := s.declaringEntityType.model.ensureMutable(); err != nil {
		return err
	}
	if fk != nil && !fk.principalEntityType.IsAssignableFrom(s.declaringEntityType) {
		return fmt.Errorf("%w: foreign key %s does not reference %s", ErrInvalidKey, fk.DisplayName(), s.declaringEntityType.name)
	}
	s.foreignKey = fk
	return nil
}

// Inverse returns the skip navigation in the opposite direction, or nil
func (s *SkipNavigation) Inverse() *SkipNavigation { return s.inverse }

// SetInverse links s and inverse in both directions
func (s *SkipNavigation) SetInverse(inverse *SkipNavigation) error {
	if err := s.declaringEntityType.model.ensureMutable(); err != nil {
		return err
	}
	if inverse != nil && (inverse.declaringEntityType != s.target || inverse.target != s.declaringEntityType) {
		return fmt.Errorf("%w: %s is not the inverse of %s", ErrInvalidKey, inverse, s)
	}
	s.inverse = inverse
	if inverse != nil {
		inverse.inverse = s
	}
	return nil
}

// ConfigurationSource returns how the skip navigation was added
func (s *SkipNavigation) ConfigurationSource() ConfigurationSource { return s.source }

// FieldName returns the backing field name, or ""
func (s *SkipNavigation) FieldName() string { return s.fieldName }

// AccessMode returns how the value is read and written
func (s *SkipNavigation) AccessMode() PropertyAccessMode { return s.accessMode }

// IsShadow is always false
func (s *SkipNavigation) IsShadow() bool { return false }

// IsIndexer reports whether the skip navigation is stored in a property bag
func (s *SkipNavigation) IsIndexer() bool { return s.declaringEntityType.IsPropertyBag() }
