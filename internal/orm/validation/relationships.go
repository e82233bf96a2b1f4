package validation

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/graph"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

func foreignKeyMismatch(fk *schema.ForeignKey, format string, args ...interface{}) *ModelError {
	return &ModelError{
		Kind:       ErrForeignKeyMismatch,
		EntityType: fk.DeclaringEntityType().Name(),
		Message:    fmt.Sprintf("foreign key %s: ", fk.DisplayName()) + fmt.Sprintf(format, args...),
	}
}

func validateRelationships(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		for _, fk := range et.DeclaredForeignKeys() {
			principal := fk.PrincipalEntityType()
			key := fk.PrincipalKey()

			if principal.IsKeyless() {
				return foreignKeyMismatch(fk, "the principal %s is keyless", principal.Name())
			}
			if !key.DeclaringEntityType().IsAssignableFrom(principal) {
				return foreignKeyMismatch(fk, "the principal key is declared on %s, not on %s or one of its base types",
					key.DeclaringEntityType().Name(), principal.Name())
			}

			props, keyProps := fk.Properties(), key.Properties()
			if len(props) != len(keyProps) {
				return foreignKeyMismatch(fk, "%d foreign key properties reference %d principal key properties",
					len(props), len(keyProps))
			}
			for i, p := range props {
				got := schema.UnwrapNullable(p.ProviderType())
				want := schema.UnwrapNullable(keyProps[i].ProviderType())
				if got != want {
					return foreignKeyMismatch(fk, "property %s is %s but principal key property %s is %s",
						p.Name(), got, keyProps[i].Name(), want)
				}
			}

			if fk.IsUnique() && !fk.IsOwnership() && fk.PrincipalEndConfigurationSource() == nil {
				return &ModelError{
					Kind:       ErrAmbiguousOneToOne,
					EntityType: et.Name(),
					Message: fmt.Sprintf("the dependent side of the one-to-one relationship between %s and %s could not be determined",
						principal.Name(), et.Name()),
					Hint: "call HasForeignKeyOn to pick the dependent type",
				}
			}
		}
	}
	return nil
}

func validateNoIdentifyingCycles(m *schema.Model, _ *diagnostics.Logger) error {
	g := graph.New[*schema.EntityType, *schema.ForeignKey]()
	entityTypes := m.EntityTypes()
	g.AddVertices(entityTypes...)

	for _, et := range entityTypes {
		for _, fk := range et.DeclaredForeignKeys() {
			if fk.IsIdentifying() {
				_ = g.AddEdge(fk.PrincipalEntityType(), et, fk)
			}
		}
	}

	_, err := g.TopologicalSort(nil)
	if err == nil {
		return nil
	}
	path := err.Error()
	var cycle *graph.CycleError[*schema.EntityType, *schema.ForeignKey]
	if errors.As(err, &cycle) {
		path = cycle.Message
	}
	return &ModelError{
		Kind:    ErrIdentifyingRelationshipCycle,
		Message: fmt.Sprintf("identifying foreign keys form a cycle: %s", path),
		Hint:    "one of the foreign keys in the cycle must not use the dependent's primary key",
	}
}

// inOwnershipPath reports whether owner is reached by following the
// ownerships of et upwards
func inOwnershipPath(et, owner *schema.EntityType) bool {
	seen := make(map[*schema.EntityType]bool)
	for t := et; t != nil && !seen[t]; {
		seen[t] = true
		ownership := t.FindOwnership()
		if ownership == nil {
			return false
		}
		t = ownership.PrincipalEntityType()
		if t == owner {
			return true
		}
	}
	return false
}

func validateOwnership(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		var ownerships []*schema.ForeignKey
		for _, fk := range et.ForeignKeys() {
			if fk.IsOwnership() {
				ownerships = append(ownerships, fk)
			}
		}

		if len(ownerships) > 1 {
			return &ModelError{
				Kind:       ErrMultipleOwnerships,
				EntityType: et.Name(),
				Message: fmt.Sprintf("the entity type is owned by both %s and %s",
					ownerships[0].PrincipalEntityType().Name(), ownerships[1].PrincipalEntityType().Name()),
				Hint: "map a separate shared entity type for each owner",
			}
		}

		if len(ownerships) == 1 {
			ownership := ownerships[0]
			if et.BaseType() != nil || len(et.DirectlyDerivedTypes()) > 0 {
				return &ModelError{
					Kind:       ErrOwnedTypeInheritance,
					EntityType: et.Name(),
					Message:    "owned entity types cannot be part of an inheritance hierarchy",
				}
			}
			if ownership.PrincipalToDependent() == nil {
				return &ModelError{
					Kind:       ErrNavigationlessOwnership,
					EntityType: et.Name(),
					Message: fmt.Sprintf("the ownership by %s has no navigation from the owner",
						ownership.PrincipalEntityType().Name()),
					Hint: "owned types are reached through a navigation on the owner; pass its name to OwnsOne",
				}
			}
		}

		for _, fk := range et.DeclaredForeignKeys() {
			principal := fk.PrincipalEntityType()
			if fk.IsOwnership() || !principal.IsOwned() || inOwnershipPath(et, principal) {
				continue
			}
			return &ModelError{
				Kind:       ErrPrincipalOwnedType,
				EntityType: et.Name(),
				Message: fmt.Sprintf("foreign key %s references owned type %s from outside its ownership tree",
					fk.DisplayName(), principal.Name()),
				Hint: "reference the owner instead, or map the principal as a regular entity type",
			}
		}
	}
	return nil
}

func validateSkipNavigations(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		for _, s := range et.DeclaredSkipNavigations() {
			if s.ForeignKey() == nil {
				return &ModelError{
					Kind:       ErrSkipNavigationNoForeignKey,
					EntityType: et.Name(),
					Member:     s.Name(),
					Message:    "the skip navigation has no foreign key to a join entity type",
				}
			}
			inverse := s.Inverse()
			if inverse == nil {
				continue
			}
			if inverse.Inverse() != s || inverse.JoinEntityType() != s.JoinEntityType() {
				return &ModelError{
					Kind:       ErrSkipNavigationNoInverse,
					EntityType: et.Name(),
					Member:     s.Name(),
					Message: fmt.Sprintf("the inverse %s.%s does not point back through the same join entity type",
						inverse.DeclaringEntityType().Name(), inverse.Name()),
				}
			}
		}
	}
	return nil
}
