package validation

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

func validateQueryFilters(m *schema.Model, logger *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		if et.QueryFilter() != "" && et.BaseType() != nil {
			return &ModelError{
				Kind:       ErrFilterOnDerivedType,
				EntityType: et.Name(),
				Message:    "query filters can only be declared on the root of a hierarchy",
				Hint:       fmt.Sprintf("move the filter to %s", et.RootType().Name()),
			}
		}
	}

	for _, et := range m.EntityTypes() {
		for _, fk := range et.DeclaredForeignKeys() {
			if !fk.IsRequired() || fk.IsOwnership() {
				continue
			}
			principal := fk.PrincipalEntityType()
			if principal.RootType().QueryFilter() == "" || et.RootType().QueryFilter() != "" {
				continue
			}
			err := logger.Log(diagnostics.PossibleIncorrectRequiredNavigationWithQueryFilterInteraction,
				principal.Name(), et.Name(), et.Name(), et.Name())
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// assignable reports whether value can be stored in a member of type t.
// Pointer members accept values of their element type.
func assignable(value interface{}, t reflect.Type) bool {
	if t == nil {
		return true
	}
	if value == nil {
		return schema.IsNullableType(t)
	}
	vt := reflect.TypeOf(value)
	if vt.AssignableTo(t) {
		return true
	}
	return t.Kind() == reflect.Ptr && vt.AssignableTo(t.Elem())
}

type discriminatorOwner struct {
	value interface{}
	name  string
}

// validateDiscriminatorValues requires a value on every concrete type and
// unique values among them. Abstract types may reuse a concrete value.
func validateDiscriminatorValues(m *schema.Model, _ *diagnostics.Logger) error {
	for _, root := range m.RootEntityTypes() {
		if err := checkHierarchyDiscriminator(root); err != nil {
			return err
		}
	}
	for _, et := range m.EntityTypes() {
		for _, cp := range et.DeclaredComplexProperties() {
			if err := checkComplexDiscriminator(et, cp.ComplexType()); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkHierarchyDiscriminator(root *schema.EntityType) error {
	disc := root.DiscriminatorProperty()
	if disc == nil {
		if concrete := root.ConcreteDerivedTypesInclusive(); len(concrete) > 1 {
			return &ModelError{
				Kind:       ErrNoDiscriminatorProperty,
				EntityType: root.Name(),
				Message:    fmt.Sprintf("the hierarchy has %d concrete types but no discriminator property", len(concrete)),
				Hint:       "call HasDiscriminator on the root type",
			}
		}
		return nil
	}

	types := root.DerivedTypesInclusive()
	if len(types) == 1 {
		return nil
	}

	comparer := disc.Comparer()
	var seen []discriminatorOwner
	for _, et := range types {
		value, ok := et.DiscriminatorValue()
		if !ok {
			if et.IsAbstract() {
				continue
			}
			return &ModelError{
				Kind:       ErrNoDiscriminatorValue,
				EntityType: et.Name(),
				Message:    "the entity type has no discriminator value",
				Hint:       "call HasDiscriminatorValue",
			}
		}
		if !assignable(value, disc.GoType()) {
			return &ModelError{
				Kind:       ErrDiscriminatorValueIncompatible,
				EntityType: et.Name(),
				Message: fmt.Sprintf("the discriminator value %v (%T) is not assignable to %s.%s of type %s",
					value, value, root.Name(), disc.Name(), disc.GoType()),
			}
		}
		if et.IsAbstract() {
			continue
		}
		for _, prior := range seen {
			if comparer.Equals(prior.value, value) {
				return &ModelError{
					Kind:       ErrDuplicateDiscriminatorValue,
					EntityType: et.Name(),
					Message:    fmt.Sprintf("the discriminator value %v is also used by %s", value, prior.name),
					Hint:       "every concrete type of a hierarchy needs its own discriminator value",
				}
			}
		}
		seen = append(seen, discriminatorOwner{value: value, name: et.Name()})
	}
	return nil
}

func checkComplexDiscriminator(et *schema.EntityType, ct *schema.ComplexType) error {
	if disc := ct.DiscriminatorProperty(); disc != nil {
		value, ok := ct.DiscriminatorValue()
		if !ok {
			return &ModelError{
				Kind:       ErrNoDiscriminatorValue,
				EntityType: et.Name(),
				Member:     ct.Name(),
				Message:    "the complex type has a discriminator property but no value",
			}
		}
		if !assignable(value, disc.GoType()) {
			return &ModelError{
				Kind:       ErrDiscriminatorValueIncompatible,
				EntityType: et.Name(),
				Member:     ct.Name(),
				Message: fmt.Sprintf("the discriminator value %v (%T) is not assignable to %s of type %s",
					value, value, disc.Name(), disc.GoType()),
			}
		}
	}
	for _, cp := range ct.ComplexProperties() {
		if err := checkComplexDiscriminator(et, cp.ComplexType()); err != nil {
			return err
		}
	}
	return nil
}

var (
	changedNotifierType  = reflect.TypeOf((*schema.PropertyChangedNotifier)(nil)).Elem()
	changingNotifierType = reflect.TypeOf((*schema.PropertyChangingNotifier)(nil)).Elem()
)

func validateChangeTracking(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		strategy := et.ChangeTrackingStrategy()
		if strategy == schema.ChangeTrackingSnapshot || et.GoType() == nil {
			continue
		}

		ptr := reflect.PointerTo(et.GoType())
		missing := ""
		switch {
		case !ptr.Implements(changedNotifierType):
			missing = "PropertyChangedNotifier"
		case strategy != schema.ChangedNotifications && !ptr.Implements(changingNotifierType):
			missing = "PropertyChangingNotifier"
		}
		if missing == "" {
			continue
		}
		return &ModelError{
			Kind:       ErrChangeTrackingNotSupported,
			EntityType: et.Name(),
			Message:    fmt.Sprintf("the %s strategy requires %s to implement schema.%s", strategy, ptr, missing),
			Hint:       "implement the notifier interfaces or use the snapshot strategy",
		}
	}
	return nil
}
