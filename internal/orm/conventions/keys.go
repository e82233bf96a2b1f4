package conventions

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// discoverKeys gives every root entity type without a primary key one:
// fields tagged `orm:"key"` in declaration order, else a property named
// ID, else one named <Type>ID. Keyless types are skipped.
func discoverKeys(m *schema.Model) error {
	for _, et := range m.EntityTypes() {
		if et.BaseType() != nil || et.IsKeyless() || et.FindPrimaryKey() != nil {
			continue
		}

		if tagged := taggedKeyProperties(et); len(tagged) > 0 {
			if _, err := et.SetPrimaryKey(tagged, annotations.SourceDataAnnotation); err != nil {
				return err
			}
			continue
		}

		for _, name := range []string{"ID", et.Name() + "ID"} {
			if p := et.FindDeclaredProperty(name); p != nil {
				if _, err := et.SetPrimaryKey([]*schema.Property{p}, annotations.SourceConvention); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

func taggedKeyProperties(et *schema.EntityType) []*schema.Property {
	if !structBacked(et) {
		return nil
	}
	var props []*schema.Property
	for _, p := range et.DeclaredProperties() {
		if p.FieldName() == "" {
			continue
		}
		f, ok := et.GoType().FieldByName(p.FieldName())
		if ok && parseTag(f).key {
			props = append(props, p)
		}
	}
	return props
}

var uuidType = reflect.TypeOf(uuid.UUID{})

// generatesValues reports whether the store generates keys of type t on insert
func generatesValues(t reflect.Type) bool {
	t = schema.UnwrapNullable(t)
	if t == uuidType {
		return true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// applyKeyValueGeneration marks single-property integer and uuid primary
// keys as generated on add. Keys that are also foreign keys take their
// value from the principal and keep ValueGeneratedNever.
func applyKeyValueGeneration(m *schema.Model) error {
	for _, et := range m.EntityTypes() {
		if et.BaseType() != nil {
			continue
		}
		pk := et.FindDeclaredPrimaryKey()
		if pk == nil || len(pk.Properties()) != 1 {
			continue
		}
		p := pk.Properties()[0]
		if p.IsForeignKey() || p.ValueGeneratedConfigurationSource() != nil || !generatesValues(p.GoType()) {
			continue
		}
		if err := p.SetValueGenerated(schema.ValueGeneratedOnAdd, annotations.SourceConvention); err != nil {
			return err
		}
	}
	return nil
}
