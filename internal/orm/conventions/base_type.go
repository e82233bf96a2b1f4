package conventions

import (
	"reflect"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

func structBacked(et *schema.EntityType) bool {
	t := et.GoType()
	return t != nil && t != schema.PropertyBagType() && t.Kind() == reflect.Struct
}

// discoverBaseType links et to the nearest mapped type it embeds and
// re-parents entity types that embed et more closely than their current
// convention base.
func discoverBaseType(et *schema.EntityType) error {
	if !structBacked(et) || et.IsShared() {
		return nil
	}
	m := et.Model()
	if base := m.FindMappedAncestor(et.GoType()); base != nil {
		if err := setBaseType(et, base); err != nil {
			return err
		}
	}

	for _, other := range m.EntityTypes() {
		if other == et || !structBacked(other) || other.IsShared() {
			continue
		}
		if m.FindMappedAncestor(other.GoType()) != et {
			continue
		}
		if err := setBaseType(other, et); err != nil {
			return err
		}
	}
	return nil
}

func discoverBaseTypes(m *schema.Model) error {
	for _, et := range m.EntityTypes() {
		if !structBacked(et) || et.IsShared() {
			continue
		}
		base := m.FindMappedAncestor(et.GoType())
		if base == nil || et.BaseType() == base {
			continue
		}
		if err := setBaseType(et, base); err != nil {
			return err
		}
	}
	return nil
}

// setBaseType sets a convention base type unless explicit configuration
// already made base derive from et
func setBaseType(et, base *schema.EntityType) error {
	if et.IsAssignableFrom(base) {
		return nil
	}
	return et.SetBaseType(base, annotations.SourceConvention)
}
