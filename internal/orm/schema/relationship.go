package schema

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
)

// ReferenceNavigationBuilder is returned by HasOne
type ReferenceNavigationBuilder struct {
	source     *EntityTypeBuilder
	target     *EntityType
	navigation string
}

// WithMany makes the relationship one-to-many with the source as dependent
func (rb *ReferenceNavigationBuilder) WithMany(inverse string) *RelationshipBuilder {
	return rb.source.b.addRelationship(&RelationshipBuilder{
		principal:         rb.target,
		dependent:         rb.source.et,
		principalNav:      inverse,
		dependentNav:      rb.navigation,
		principalEndKnown: true,
	})
}

// WithOne makes the relationship one-to-one. The dependent end is chosen
// by HasForeignKeyOn or, failing that, by foreign key discovery.
func (rb *ReferenceNavigationBuilder) WithOne(inverse string) *RelationshipBuilder {
	return rb.source.b.addRelationship(&RelationshipBuilder{
		principal:    rb.target,
		dependent:    rb.source.et,
		principalNav: inverse,
		dependentNav: rb.navigation,
		unique:       true,
	})
}

// CollectionNavigationBuilder is returned by HasMany
type CollectionNavigationBuilder struct {
	source     *EntityTypeBuilder
	target     *EntityType
	navigation string
}

// WithOne makes the relationship one-to-many with the target as dependent
func (cb *CollectionNavigationBuilder) WithOne(inverse string) *RelationshipBuilder {
	return cb.source.b.addRelationship(&RelationshipBuilder{
		principal:         cb.source.et,
		dependent:         cb.target,
		principalNav:      cb.navigation,
		dependentNav:      inverse,
		principalEndKnown: true,
	})
}

// WithMany makes the relationship many-to-many through a shared join
// entity named after both ends. An empty inverse leaves the target side
// without a skip navigation.
func (cb *CollectionNavigationBuilder) WithMany(inverse string) *RelationshipBuilder {
	return cb.source.b.addRelationship(&RelationshipBuilder{
		principal:    cb.source.et,
		dependent:    cb.target,
		principalNav: cb.navigation,
		dependentNav: inverse,
		manyToMany:   true,
	})
}

func (b *ModelBuilder) addRelationship(r *RelationshipBuilder) *RelationshipBuilder {
	r.b = b
	if r.principal != nil && r.dependent != nil {
		b.relationships = append(b.relationships, r)
	}
	return r
}

// RelationshipBuilder configures a relationship. It is materialized into a
// ForeignKey when the model is finalized, after conventions discovered keys.
type RelationshipBuilder struct {
	b *ModelBuilder

	principal, dependent       *EntityType
	principalNav, dependentNav string
	unique                     bool
	principalEndKnown          bool
	manyToMany                 bool
	ownership                  bool
	required                   *bool
	deleteBehavior             *DeleteBehavior

	fkOwner *EntityType
	fkNames []string
	pkNames []string

	foreignKey *ForeignKey
}

// ForeignKey returns the materialized foreign key, or nil before FinalizeModel
func (r *RelationshipBuilder) ForeignKey() *ForeignKey {
	return r.foreignKey
}

// HasForeignKey names the dependent's foreign key properties
func (r *RelationshipBuilder) HasForeignKey(names ...string) *RelationshipBuilder {
	r.fkNames = names
	return r
}

// HasForeignKeyOn picks the dependent end of a one-to-one relationship and
// names its foreign key properties.
func (r *RelationshipBuilder) HasForeignKeyOn(dependent interface{}, names ...string) *RelationshipBuilder {
	r.fkOwner = r.b.resolveTarget(dependent)
	r.fkNames = names
	return r
}

// HasPrincipalKey names the principal properties referenced by the foreign key
func (r *RelationshipBuilder) HasPrincipalKey(names ...string) *RelationshipBuilder {
	r.pkNames = names
	return r
}

// IsRequired configures whether dependents must have a principal
func (r *RelationshipBuilder) IsRequired(required bool) *RelationshipBuilder {
	r.required = &required
	return r
}

// IsOwnership marks the dependent as owned by the principal
func (r *RelationshipBuilder) IsOwnership() *RelationshipBuilder {
	r.ownership = true
	return r
}

// OnDelete sets the delete behavior
func (r *RelationshipBuilder) OnDelete(behavior DeleteBehavior) *RelationshipBuilder {
	r.deleteBehavior = &behavior
	return r
}

func (r *RelationshipBuilder) isRequired() bool {
	return r.required != nil && *r.required
}

func (r *RelationshipBuilder) swapEnds() {
	r.principal, r.dependent = r.dependent, r.principal
	r.principalNav, r.dependentNav = r.dependentNav, r.principalNav
}

func (r *RelationshipBuilder) materialize() error {
	if r.manyToMany {
		return r.materializeManyToMany()
	}

	var principalEnd *ConfigurationSource
	if r.principalEndKnown {
		s := annotations.SourceExplicit
		principalEnd = &s
	}
	if r.fkOwner != nil {
		if r.fkOwner == r.principal && r.fkOwner != r.dependent {
			r.swapEnds()
		}
		s := annotations.SourceExplicit
		principalEnd = &s
	}

	principalKey, err := r.resolvePrincipalKey()
	if err != nil {
		return err
	}

	var props []*Property
	propsSource := annotations.SourceExplicit
	if len(r.fkNames) > 0 {
		if props, err = r.explicitForeignKeyProperties(principalKey); err != nil {
			return err
		}
	} else {
		propsSource = annotations.SourceConvention
		props = discoverForeignKey(r.dependent, r.principal, r.dependentNav, principalKey)
		if props == nil && principalEnd == nil {
			if otherKey := r.dependent.FindPrimaryKey(); otherKey != nil && len(r.pkNames) == 0 {
				if swapped := discoverForeignKey(r.principal, r.dependent, r.principalNav, otherKey); swapped != nil {
					r.swapEnds()
					principalKey, props = otherKey, swapped
				}
			}
		}
		if props != nil && principalEnd == nil {
			s := annotations.SourceConvention
			principalEnd = &s
		}
		if props == nil {
			if props, err = r.createShadowForeignKey(principalKey); err != nil {
				return err
			}
		}
	}

	fk, err := r.dependent.AddForeignKey(props, principalKey, r.principal, annotations.SourceExplicit)
	if err != nil {
		return err
	}
	r.foreignKey = fk

	steps := []error{
		fk.SetPropertiesConfigurationSource(propsSource),
		fk.SetUnique(r.unique),
		fk.SetPrincipalEndConfigurationSource(principalEnd),
	}
	if r.ownership {
		steps = append(steps, fk.SetIsOwnership(true))
	}
	if r.required != nil {
		steps = append(steps, fk.SetRequired(*r.required))
		if *r.required {
			for _, p := range props {
				if IsNullableType(p.goType) {
					steps = append(steps, p.SetNullable(false))
				}
			}
			steps = append(steps, fk.SetDeleteBehavior(DeleteCascade))
		}
	}
	if r.deleteBehavior != nil {
		steps = append(steps, fk.SetDeleteBehavior(*r.deleteBehavior))
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}

	if r.dependentNav != "" {
		if _, err := fk.SetDependentToPrincipal(r.dependentNav, annotations.SourceExplicit); err != nil {
			return err
		}
	}
	if r.principalNav != "" {
		if _, err := fk.SetPrincipalToDependent(r.principalNav, annotations.SourceExplicit); err != nil {
			return err
		}
	}

	if r.ownership && r.dependent.FindPrimaryKey() == nil && !r.dependent.keyless {
		if _, err := r.dependent.SetPrimaryKey(props, annotations.SourceConvention); err != nil {
			return err
		}
	}
	return nil
}

func (r *RelationshipBuilder) resolvePrincipalKey() (*Key, error) {
	if len(r.pkNames) == 0 {
		key := r.principal.FindPrimaryKey()
		if key == nil {
			return nil, fmt.Errorf("%w: principal %s of the relationship with %s has no primary key",
				ErrInvalidKey, r.principal.name, r.dependent.name)
		}
		return key, nil
	}

	props := r.b.builderFor(r.principal).ensureProperties(r.pkNames)
	if props == nil {
		return nil, fmt.Errorf("%w: principal key %v not found on %s", ErrMemberNotFound, r.pkNames, r.principal.name)
	}
	if key := r.principal.FindKey(props); key != nil {
		return key, nil
	}
	return r.principal.AddKey(props, annotations.SourceExplicit)
}

func (r *RelationshipBuilder) foreignKeyType(pk *Property) reflect.Type {
	t := pk.goType
	if !r.isRequired() && !r.ownership && !IsNullableType(t) {
		t = reflect.PointerTo(t)
	}
	return t
}

func (r *RelationshipBuilder) explicitForeignKeyProperties(principalKey *Key) ([]*Property, error) {
	props := make([]*Property, 0, len(r.fkNames))
	for i, name := range r.fkNames {
		if p := r.dependent.FindProperty(name); p != nil {
			props = append(props, p)
			continue
		}
		var t reflect.Type
		if host := r.dependent.goType; host == nil || host == propertyBag || !hasField(host, name) {
			if i < len(principalKey.properties) {
				t = r.foreignKeyType(principalKey.properties[i])
			}
		}
		p, err := r.dependent.AddProperty(name, t, annotations.SourceExplicit)
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, nil
}

func (r *RelationshipBuilder) createShadowForeignKey(principalKey *Key) ([]*Property, error) {
	prefix := r.dependentNav
	if prefix == "" {
		prefix = r.principal.name
	}
	props := make([]*Property, 0, len(principalKey.properties))
	for _, pk := range principalKey.properties {
		p, err := r.dependent.AddProperty(prefix+pk.name, r.foreignKeyType(pk), annotations.SourceConvention)
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, nil
}

func hasField(t reflect.Type, name string) bool {
	_, ok := t.FieldByName(name)
	return ok
}

// discoverForeignKey looks on dependent for properties or exported fields
// named <navigation><Key>, <Principal><Key> or <Key> when the key name
// already starts with the principal name.
func discoverForeignKey(dependent, principal *EntityType, navigation string, principalKey *Key) []*Property {
	props := make([]*Property, 0, len(principalKey.properties))
	for _, pk := range principalKey.properties {
		var candidates []string
		if navigation != "" {
			candidates = append(candidates, navigation+pk.name)
		}
		candidates = append(candidates, principal.name+pk.name)
		if len(pk.name) > len(principal.name) && pk.name[:len(principal.name)] == principal.name {
			candidates = append(candidates, pk.name)
		}

		var found *Property
		for _, name := range candidates {
			if found = matchForeignKeyCandidate(dependent, name); found != nil {
				break
			}
		}
		if found == nil {
			return nil
		}
		props = append(props, found)
	}
	return props
}

func matchForeignKeyCandidate(dependent *EntityType, name string) *Property {
	if dependent.IsIgnored(name) {
		return nil
	}
	if p := dependent.FindProperty(name); p != nil {
		return p
	}
	host := dependent.goType
	if host == nil || host == propertyBag {
		return nil
	}
	field, ok := host.FieldByName(name)
	if !ok || !field.IsExported() || !IsScalarType(field.Type) {
		return nil
	}
	if _, kind := dependent.FindMemberInHierarchy(name); kind != "" {
		return nil
	}
	p, err := dependent.AddProperty(name, nil, annotations.SourceConvention)
	if err != nil {
		return nil
	}
	return p
}

func (r *RelationshipBuilder) materializeManyToMany() error {
	left, right := r.principal, r.dependent
	leftKey, rightKey := left.FindPrimaryKey(), right.FindPrimaryKey()
	if leftKey == nil || rightKey == nil {
		return fmt.Errorf("%w: many-to-many between %s and %s needs primary keys on both ends",
			ErrInvalidKey, left.name, right.name)
	}

	joinName := left.name + right.name
	join := r.b.model.FindEntityType(joinName)
	if join == nil {
		var err error
		if join, err = r.b.model.AddSharedEntityType(joinName, nil, annotations.SourceConvention); err != nil {
			return err
		}
	}

	leftPrefix, rightPrefix := left.name, right.name
	if left == right {
		leftPrefix, rightPrefix = r.principalNav, r.dependentNav
		if rightPrefix == "" {
			rightPrefix = "Inverse" + r.principalNav
		}
	}

	joinProps := func(prefix string, key *Key) ([]*Property, error) {
		props := make([]*Property, 0, len(key.properties))
		for _, pk := range key.properties {
			p := join.FindProperty(prefix + pk.name)
			if p == nil {
				var err error
				if p, err = join.AddProperty(prefix+pk.name, pk.goType, annotations.SourceConvention); err != nil {
					return nil, err
				}
			}
			props = append(props, p)
		}
		return props, nil
	}

	leftProps, err := joinProps(leftPrefix, leftKey)
	if err != nil {
		return err
	}
	rightProps, err := joinProps(rightPrefix, rightKey)
	if err != nil {
		return err
	}

	leftFK, err := join.AddForeignKey(leftProps, leftKey, left, annotations.SourceConvention)
	if err != nil {
		return err
	}
	rightFK, err := join.AddForeignKey(rightProps, rightKey, right, annotations.SourceConvention)
	if err != nil {
		return err
	}
	if join.FindPrimaryKey() == nil {
		if _, err := join.SetPrimaryKey(append(append([]*Property(nil), leftProps...), rightProps...), annotations.SourceConvention); err != nil {
			return err
		}
	}

	leftSkip, err := left.AddSkipNavigation(r.principalNav, right, true, annotations.SourceExplicit)
	if err != nil {
		return err
	}
	if err := leftSkip.SetForeignKey(leftFK); err != nil {
		return err
	}
	if r.dependentNav == "" {
		return nil
	}
	rightSkip, err := right.AddSkipNavigation(r.dependentNav, left, true, annotations.SourceExplicit)
	if err != nil {
		return err
	}
	if err := rightSkip.SetForeignKey(rightFK); err != nil {
		return err
	}
	return leftSkip.SetInverse(rightSkip)
}
