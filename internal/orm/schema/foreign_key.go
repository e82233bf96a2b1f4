package schema

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
)

// ForeignKey links dependent properties to a principal key
type ForeignKey struct {
	annotations.Annotatable

	declaringEntityType *EntityType
	principalEntityType *EntityType
	properties          []*Property
	principalKey        *Key
	source              ConfigurationSource

	unique             bool
	required           bool
	ownership          bool
	deleteBehavior     DeleteBehavior
	principalEndSource *ConfigurationSource
	propertiesSource   ConfigurationSource

	dependentToPrincipal *Navigation
	principalToDependent *Navigation
}

func newForeignKey(dependent *EntityType, props []*Property, principalKey *Key, principal *EntityType, source ConfigurationSource) *ForeignKey {
	fk := &ForeignKey{
		declaringEntityType: dependent,
		principalEntityType: principal,
		properties:          append([]*Property(nil), props...),
		principalKey:        principalKey,
		source:              source,
		propertiesSource:    source,
		required:            true,
	}
	fk.SetOwner(dependent.model)
	for _, p := range props {
		p.foreignKeys = append(p.foreignKeys, fk)
		if p.IsNullable() {
			fk.required = false
		}
	}
	if fk.required {
		fk.deleteBehavior = DeleteCascade
	}
	principalKey.referencingForeignKeys = append(principalKey.referencingForeignKeys, fk)
	return fk
}

func (fk *ForeignKey) detach() {
	for _, p := range fk.properties {
		p.removeForeignKey(fk)
	}
	refs := fk.principalKey.referencingForeignKeys
	for i, other := range refs {
		if other == fk {
			fk.principalKey.referencingForeignKeys = append(refs[:i], refs[i+1:]...)
			break
		}
	}
	if fk.dependentToPrincipal != nil {
		fk.declaringEntityType.removeNavigation(fk.dependentToPrincipal)
	}
	if fk.principalToDependent != nil {
		fk.principalEntityType.removeNavigation(fk.principalToDependent)
	}
}

// DeclaringEntityType returns the dependent entity type
func (fk *ForeignKey) DeclaringEntityType() *EntityType { return fk.declaringEntityType }

// PrincipalEntityType returns the principal entity type
func (fk *ForeignKey) PrincipalEntityType() *EntityType { return fk.principalEntityType }

// Properties returns the dependent properties in order
func (fk *ForeignKey) Properties() []*Property { return append([]*Property(nil), fk.properties...) }

// PrincipalKey returns the referenced key
func (fk *ForeignKey) PrincipalKey() *Key { return fk.principalKey }

// ConfigurationSource returns how the foreign key was added
func (fk *ForeignKey) ConfigurationSource() ConfigurationSource { return fk.source }

// IsUnique reports whether at most one dependent exists per principal
func (fk *ForeignKey) IsUnique() bool { return fk.unique }

// SetUnique configures uniqueness
func (fk *ForeignKey) SetUnique(unique bool) error {
	if err := fk.declaringEntityType.model.ensureMutable(); err != nil {
		return err
	}
	fk.unique = unique
	return nil
}

// IsRequired reports whether every dependent must have a principal
func (fk *ForeignKey) IsRequired() bool { return fk.required }

// SetRequired configures whether the principal is required
func (fk *ForeignKey) SetRequired(required bool) error {
	if err := fk.declaringEntityType.model.ensureMutable(); err != nil {
		return err
	}
	fk.required = required
	return nil
}

// IsOwnership reports whether the dependent is owned by the principal
func (fk *ForeignKey) IsOwnership() bool { return fk.ownership }

// SetIsOwnership configures the ownership flag
func (fk *ForeignKey) SetIsOwnership(ownership bool) error {
	if err := fk.declaringEntityType.model.ensureMutable(); err != nil {
		return err
	}
	fk.ownership = ownership
	return nil
}

// DeleteBehavior returns the action applied to dependents on principal deletion
func (fk *ForeignKey) DeleteBehavior() DeleteBehavior { return fk.deleteBehavior }

// SetDeleteBehavior configures the delete behavior
func (fk *ForeignKey) SetDeleteBehavior(b DeleteBehavior) error {
	if err := fk.declaringEntityType.model.ensureMutable(); err != nil {
		return err
	}
	fk.deleteBehavior = b
	return nil
}

// PrincipalEndConfigurationSource returns how the principal end was chosen,
// or nil when it was inferred.
func (fk *ForeignKey) PrincipalEndConfigurationSource() *ConfigurationSource {
	return fk.principalEndSource
}

// SetPrincipalEndConfigurationSource records how the principal end was chosen
func (fk *ForeignKey) SetPrincipalEndConfigurationSource(source *ConfigurationSource) error {
	if err := fk.declaringEntityType.model.ensureMutable(); err != nil {
		return err
	}
	fk.principalEndSource = source
	return nil
}

// PropertiesConfigurationSource returns how the foreign key properties were chosen
func (fk *ForeignKey) PropertiesConfigurationSource() ConfigurationSource { return fk.propertiesSource }

// SetPropertiesConfigurationSource records how the foreign key properties were chosen
func (fk *ForeignKey) SetPropertiesConfigurationSource(source ConfigurationSource) error {
	if err := fk.declaringEntityType.model.ensureMutable(); err != nil {
		return err
	}
	fk.propertiesSource = source
	return nil
}

// DependentToPrincipal returns the navigation on the dependent, or nil
func (fk *ForeignKey) DependentToPrincipal() *Navigation { return fk.dependentToPrincipal }

// PrincipalToDependent returns the navigation on the principal, or nil
func (fk *ForeignKey) PrincipalToDependent() *Navigation { return fk.principalToDependent }

// SetDependentToPrincipal adds a navigation named name on the dependent
// pointing at the principal. An empty name removes it.
func (fk *ForeignKey) SetDependentToPrincipal(name string, source ConfigurationSource) (*Navigation, error) {
	return fk.setNavigation(name, true, source)
}

// SetPrincipalToDependent adds a navigation named name on the principal
// pointing at the dependent(s). An empty name removes it.
func (fk *ForeignKey) SetPrincipalToDependent(name string, source ConfigurationSource) (*Navigation, error) {
	return fk.setNavigation(name, false, source)
}

func (fk *ForeignKey) setNavigation(name string, onDependent bool, source ConfigurationSource) (*Navigation, error) {
	if err := fk.declaringEntityType.model.ensureMutable(); err != nil {
		return nil, err
	}

	declaring, slot := fk.principalEntityType, &fk.principalToDependent
	if onDependent {
		declaring, slot = fk.declaringEntityType, &fk.dependentToPrincipal
	}

	if *slot != nil {
		declaring.removeNavigation(*slot)
		*slot = nil
	}
	if name == "" {
		return nil, nil
	}

	nav := newNavigation(declaring, name, fk, onDependent, source)
	if err := declaring.addNavigation(nav); err != nil {
		return nil, err
	}
	*slot = nav
	return nav, nil
}

// IsSelfReferencing reports whether the dependent and principal types are the same
func (fk *ForeignKey) IsSelfReferencing() bool {
	return fk.declaringEntityType == fk.principalEntityType
}

// IsBaseLinking reports whether the foreign key links a derived type's
// primary key to its own base type's primary key.
func (fk *ForeignKey) IsBaseLinking() bool {
	pk := fk.declaringEntityType.FindPrimaryKey()
	return pk != nil &&
		fk.principalEntityType.IsAssignableFrom(fk.declaringEntityType) &&
		samePropertyList(fk.properties, pk.properties)
}

// IsIdentifying reports whether the foreign key properties are the
// dependent's primary key and reference the principal's primary key, so
// a dependent row cannot exist without its principal.
func (fk *ForeignKey) IsIdentifying() bool {
	pk := fk.declaringEntityType.FindPrimaryKey()
	return fk.unique &&
		fk.principalKey.IsPrimaryKey() &&
		pk != nil &&
		samePropertyList(fk.properties, pk.properties) &&
		!fk.IsBaseLinking()
}

// DisplayName renders the foreign key as "Post {BlogID} -> Blog {ID}"
func (fk *ForeignKey) DisplayName() string {
	return fmt.Sprintf("%s {%s} -> %s {%s}",
		fk.declaringEntityType.name, strings.Join(propertyNames(fk.properties), ", "),
		fk.principalEntityType.name, strings.Join(fk.principalKey.PropertyNames(), ", "))
}

// String returns DisplayName
func (fk *ForeignKey) String() string { return fk.DisplayName() }
