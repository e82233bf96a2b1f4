package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

func validateNoShadowEntities(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		if et.IsShadow() {
			return &ModelError{
				Kind:       ErrShadowEntity,
				EntityType: et.Name(),
				Message:    "entity type has no Go type",
				Hint:       "map a struct type, or declare it with SharedEntity to use a property bag",
			}
		}
	}
	return nil
}

type member struct {
	name string
	kind string
}

func declaredMembers(et *schema.EntityType) []member {
	var result []member
	for _, p := range et.DeclaredProperties() {
		result = append(result, member{p.Name(), "property"})
	}
	for _, n := range et.DeclaredNavigations() {
		result = append(result, member{n.Name(), "navigation"})
	}
	for _, s := range et.DeclaredSkipNavigations() {
		result = append(result, member{s.Name(), "skip navigation"})
	}
	for _, c := range et.DeclaredComplexProperties() {
		result = append(result, member{c.Name(), "complex property"})
	}
	return result
}

// hierarchy returns et and its base types, root first
func hierarchy(et *schema.EntityType) []*schema.EntityType {
	var chain []*schema.EntityType
	for t := et; t != nil; t = t.BaseType() {
		chain = append([]*schema.EntityType{t}, chain...)
	}
	return chain
}

func validateMemberNames(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		owners := make(map[string]string)
		for _, t := range hierarchy(et) {
			for _, mem := range declaredMembers(t) {
				if owner, ok := owners[mem.name]; ok {
					return &ModelError{
						Kind:       ErrConflictingMemberName,
						EntityType: t.Name(),
						Member:     mem.name,
						Message:    fmt.Sprintf("the %s has the same name as the %s", mem.kind, owner),
					}
				}
				owners[mem.name] = fmt.Sprintf("%s declared on %s", mem.kind, t.Name())
			}
		}

		for _, mem := range declaredMembers(et) {
			if et.IsIgnored(mem.name) {
				return &ModelError{
					Kind:       ErrConflictingMemberName,
					EntityType: et.Name(),
					Member:     mem.name,
					Message:    fmt.Sprintf("the %s is mapped but the name is also ignored", mem.kind),
					Hint:       "remove the Ignore call or the member configuration",
				}
			}
		}
	}
	return nil
}

func validateNonNullPrimaryKeys(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.RootEntityTypes() {
		if et.IsKeyless() || et.FindPrimaryKey() != nil {
			continue
		}
		return &ModelError{
			Kind:       ErrEntityRequiresKey,
			EntityType: et.Name(),
			Message:    "entity type requires a primary key",
			Hint:       "add an ID field, tag key fields with `orm:\"key\"`, call HasKey, or call HasNoKey",
		}
	}
	return nil
}

func validateNoMutableKeys(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		for _, key := range et.DeclaredKeys() {
			for _, p := range key.Properties() {
				if !p.ValueGenerated().OnUpdate() {
					continue
				}
				return &ModelError{
					Kind:       ErrMutableKeyProperty,
					EntityType: et.Name(),
					Member:     p.Name(),
					Message:    fmt.Sprintf("the property is part of key %s but is generated on update (%s)", key, p.ValueGenerated()),
					Hint:       "key values cannot change once an entity is tracked",
				}
			}
		}
	}
	return nil
}

func validateComparableKeys(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		for _, key := range et.DeclaredKeys() {
			for _, p := range key.Properties() {
				if p.ExplicitComparer() != nil {
					continue
				}
				if t := p.ProviderType(); t != nil && t.Comparable() {
					continue
				}
				return &ModelError{
					Kind:       ErrKeyPropertyNotComparable,
					EntityType: et.Name(),
					Member:     p.Name(),
					Message:    fmt.Sprintf("the property is part of key %s but values of type %s are not comparable", key, p.ProviderType()),
					Hint:       "configure a value comparer, or a converter to a comparable provider type",
				}
			}
		}
	}
	return nil
}

func validateNoShadowKeys(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		for _, key := range et.DeclaredKeys() {
			if key.IsPrimaryKey() || key.ConfigurationSource() == annotations.SourceExplicit {
				continue
			}
			fks := key.ReferencingForeignKeys()
			if len(fks) == 0 || !allConventionShadow(key.Properties()) {
				continue
			}
			return &ModelError{
				Kind:       ErrReferencedShadowKey,
				EntityType: et.Name(),
				Message: fmt.Sprintf("the key %s is referenced by %s but consists only of shadow properties created by convention",
					key, fks[0].DisplayName()),
				Hint: "configure the principal key explicitly with HasAlternateKey or HasPrincipalKey",
			}
		}
	}
	return nil
}

func allConventionShadow(props []*schema.Property) bool {
	for _, p := range props {
		if !p.IsShadow() || p.ConfigurationSource() != annotations.SourceConvention {
			return false
		}
	}
	return true
}

func structBacked(et *schema.EntityType) bool {
	t := et.GoType()
	return t != nil && !et.IsPropertyBag() && t.Kind() == reflect.Struct
}

func validateGoInheritance(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		if structBacked(et) && !et.IsShared() {
			expected := m.FindMappedAncestor(et.GoType())
			if base := et.BaseType(); base != expected && !(base != nil && base.IsShared()) {
				return inheritanceMismatch(et, expected)
			}
		}

		if et.IsAbstract() && len(et.ConcreteDerivedTypesInclusive()) == 0 {
			return &ModelError{
				Kind:       ErrAbstractLeafType,
				EntityType: et.Name(),
				Message:    "the entity type is abstract but has no concrete derived type",
				Hint:       "map a struct that embeds it, or remove the Abstract call",
			}
		}
	}
	return nil
}

func inheritanceMismatch(et, expected *schema.EntityType) *ModelError {
	base := et.BaseType()
	var msg string
	switch {
	case expected == nil:
		msg = fmt.Sprintf("the base type is %s but %s does not embed it", base.Name(), et.GoType())
	case base == nil:
		msg = fmt.Sprintf("the Go type embeds mapped type %s but the entity type has no base type", expected.Name())
	default:
		msg = fmt.Sprintf("the nearest mapped type embedded by the Go type is %s but the base type is %s", expected.Name(), base.Name())
	}
	return &ModelError{
		Kind:       ErrInconsistentInheritance,
		EntityType: et.Name(),
		Message:    msg,
		Hint:       "the base type must be the closest mapped struct in the embedding chain",
	}
}

func validateInheritanceMapping(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		if et.BaseType() == nil {
			continue
		}
		root := et.RootType()
		if keys := et.DeclaredKeys(); len(keys) > 0 {
			return &ModelError{
				Kind:       ErrDerivedTypeDefinesKey,
				EntityType: et.Name(),
				Message:    fmt.Sprintf("the key {%s} is declared on a derived type", strings.Join(keys[0].PropertyNames(), ", ")),
				Hint:       fmt.Sprintf("keys can only be configured on the root type %s", root.Name()),
			}
		}
		if et.IsKeyless() != root.IsKeyless() {
			return &ModelError{
				Kind:       ErrKeylessMismatch,
				EntityType: et.Name(),
				Message: fmt.Sprintf("the entity type is keyless=%t but its root type %s is keyless=%t",
					et.IsKeyless(), root.Name(), root.IsKeyless()),
				Hint: "configure HasNoKey on the root type only",
			}
		}
	}
	return nil
}
