package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// accessPurposes are the three ways a member value is reached: while an
// instance is materialized, when it is set afterwards, and when it is read
var accessPurposes = []struct {
	name               string
	forMaterialization bool
	forSet             bool
}{
	{"materialize", true, false},
	{"set", false, true},
	{"read", false, false},
}

func checkMemberAccess(owner string, member schema.PropertyBase) error {
	for _, purpose := range accessPurposes {
		if _, err := schema.ResolveMember(member, purpose.forMaterialization, purpose.forSet); err != nil {
			return &ModelError{
				Kind:       err,
				EntityType: owner,
				Member:     member.Name(),
				Message:    fmt.Sprintf("cannot %s the value: %v", purpose.name, err),
				Hint:       "export the backing field, add accessor methods, or change the access mode",
			}
		}
	}
	return nil
}

func checkComplexTypeAccess(owner string, ct *schema.ComplexType) error {
	for _, p := range ct.Properties() {
		if err := checkMemberAccess(owner, p); err != nil {
			return err
		}
	}
	for _, cp := range ct.ComplexProperties() {
		if err := checkMemberAccess(owner, cp); err != nil {
			return err
		}
		if err := checkComplexTypeAccess(owner, cp.ComplexType()); err != nil {
			return err
		}
	}
	return nil
}

func validateFieldMapping(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		var members []schema.PropertyBase
		for _, p := range et.DeclaredProperties() {
			members = append(members, p)
		}
		for _, n := range et.DeclaredNavigations() {
			members = append(members, n)
		}
		for _, s := range et.DeclaredSkipNavigations() {
			members = append(members, s)
		}
		for _, cp := range et.DeclaredComplexProperties() {
			members = append(members, cp)
		}

		for _, member := range members {
			if err := checkMemberAccess(et.Name(), member); err != nil {
				return err
			}
		}
		for _, cp := range et.DeclaredComplexProperties() {
			if err := checkComplexTypeAccess(et.Name(), cp.ComplexType()); err != nil {
				return err
			}
		}

		if err := checkConstructorBinding(et); err != nil {
			return err
		}
	}
	return nil
}

func checkConstructorBinding(et *schema.EntityType) error {
	for _, param := range et.ConstructorBinding() {
		if hasMember(et, param) {
			continue
		}
		return &ModelError{
			Kind:       ErrConstructorParameter,
			EntityType: et.Name(),
			Member:     param,
			Message:    "the constructor parameter does not match any mapped member",
			Hint:       "constructor parameters bind to properties, navigations or complex properties by name",
		}
	}
	return nil
}

func hasMember(et *schema.EntityType, name string) bool {
	for _, p := range et.Properties() {
		if strings.EqualFold(p.Name(), name) {
			return true
		}
	}
	for _, n := range et.Navigations() {
		if strings.EqualFold(n.Name(), name) {
			return true
		}
	}
	for _, cp := range et.ComplexProperties() {
		if strings.EqualFold(cp.Name(), name) {
			return true
		}
	}
	return false
}

// holdsEntity reports whether a value of type t can hold an instance of target
func holdsEntity(t, target reflect.Type) bool {
	return t == target || reflect.PointerTo(target).AssignableTo(t)
}

func navigationTypeError(et *schema.EntityType, name string, got reflect.Type, want string) *ModelError {
	return &ModelError{
		Kind:       ErrNavigationWrongType,
		EntityType: et.Name(),
		Member:     name,
		Message:    fmt.Sprintf("the navigation is %s but must be %s", got, want),
	}
}

func checkNavigationType(et *schema.EntityType, member schema.PropertyBase, target *schema.EntityType, collection bool) error {
	info, err := schema.ResolveMember(member, false, false)
	if err != nil || info.Kind == schema.MemberNone || target.GoType() == nil {
		return nil
	}

	t, goTarget := info.Type, target.GoType()
	if collection {
		if (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && holdsEntity(t.Elem(), goTarget) {
			return nil
		}
		return navigationTypeError(et, member.Name(), t, fmt.Sprintf("a slice of %s or *%s", goTarget, goTarget))
	}
	if holdsEntity(t, goTarget) {
		return nil
	}
	return navigationTypeError(et, member.Name(), t, fmt.Sprintf("*%s", goTarget))
}

func validateNavigationTypes(m *schema.Model, _ *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		for _, n := range et.DeclaredNavigations() {
			if err := checkNavigationType(et, n, n.TargetEntityType(), n.IsCollection()); err != nil {
				return err
			}
		}
		for _, s := range et.DeclaredSkipNavigations() {
			if err := checkNavigationType(et, s, s.TargetEntityType(), s.IsCollection()); err != nil {
				return err
			}
		}
	}
	return nil
}

// validatePropertyMapping raises the property mapping warnings. Any of them
// configured as an error stops validation.
func validatePropertyMapping(m *schema.Model, logger *diagnostics.Logger) error {
	for _, et := range m.EntityTypes() {
		for _, p := range et.DeclaredProperties() {
			if err := logPropertyWarnings(et, p, logger); err != nil {
				var warning *diagnostics.WarningError
				if errors.As(err, &warning) {
					return &ModelError{
						Kind:       err,
						EntityType: et.Name(),
						Member:     p.Name(),
						Message:    warning.Message,
					}
				}
				return err
			}
		}
	}
	return nil
}

func logPropertyWarnings(et *schema.EntityType, p *schema.Property, logger *diagnostics.Logger) error {
	if p.IsShadow() && structBacked(et) {
		if field, ok := et.GoType().FieldByName(p.Name()); ok {
			if err := logger.Log(diagnostics.ShadowPropertyConflictsWithField, et.Name(), p.Name(), field.Type); err != nil {
				return err
			}
		} else if p.ConfigurationSource() == annotations.SourceConvention {
			var err error
			if fks := p.ForeignKeys(); len(fks) > 0 {
				err = logger.Log(diagnostics.ShadowForeignKeyPropertyCreated, et.Name(), p.Name(), fks[0].PrincipalEntityType().Name())
			} else {
				err = logger.Log(diagnostics.ShadowPropertyCreated, et.Name(), p.Name())
			}
			if err != nil {
				return err
			}
		}
	}

	if schema.IsCollectionType(p.GoType()) && p.ExplicitComparer() == nil && p.Converter() == nil {
		return logger.Log(diagnostics.CollectionWithoutComparer, et.Name(), p.Name(), p.GoType())
	}
	return nil
}
