package conventions

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// TagName is the struct tag read by the conventions
const TagName = "orm"

// fieldTag is a parsed `orm:"..."` struct tag, for example
// `orm:"key,generated"` or `orm:"required,access=field"`.
type fieldTag struct {
	skip       bool
	key        bool
	required   bool
	generated  bool
	accessMode string
}

func parseTag(f reflect.StructField) fieldTag {
	var tag fieldTag
	raw, ok := f.Tag.Lookup(TagName)
	if !ok {
		return tag
	}
	if raw == "-" {
		tag.skip = true
		return tag
	}
	for _, opt := range strings.Split(raw, ",") {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "key":
			tag.key = true
		case opt == "required":
			tag.required = true
		case opt == "generated":
			tag.generated = true
		case strings.HasPrefix(opt, "access="):
			tag.accessMode = strings.TrimPrefix(opt, "access=")
		}
	}
	return tag
}

// exportedFields calls fn for the exported fields of t in declaration
// order, descending into embedded structs that are not entity types.
// Fields promoted from skip are not visited.
func exportedFields(m *schema.Model, t, skip reflect.Type, fn func(f reflect.StructField) error) error {
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() != reflect.Struct || ft == skip {
				continue
			}
			if et := m.FindEntityTypeByGoType(ft); et != nil && !et.IsShared() {
				continue
			}
			if err := exportedFields(m, ft, skip, fn); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// isEntityReference reports whether t is a mapped entity type or a pointer
// or slice of one
func isEntityReference(m *schema.Model, t reflect.Type) bool {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	et := m.FindEntityTypeByGoType(t)
	return et != nil && !et.IsShared()
}

// complexCandidate reports whether t can back a complex property: a
// struct, a pointer to one, or a slice of struct values
func complexCandidate(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice:
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func applyTag(p *schema.Property, tag fieldTag) error {
	if tag.required && schema.IsNullableType(p.GoType()) {
		if err := p.SetNullable(false); err != nil {
			return err
		}
	}
	if tag.generated {
		if err := p.SetValueGenerated(schema.ValueGeneratedOnAdd, annotations.SourceDataAnnotation); err != nil {
			return err
		}
	}
	if tag.accessMode != "" {
		mode, err := schema.ParsePropertyAccessMode(tag.accessMode)
		if err != nil {
			return fmt.Errorf("field %s: %w", p, err)
		}
		if err := p.SetAccessMode(mode); err != nil {
			return err
		}
	}
	return nil
}

// discoverProperties maps the exported scalar fields of every struct-backed
// entity type to properties and nested structs to complex properties.
// Members configured explicitly, ignored members and navigation fields are
// left alone.
func discoverProperties(m *schema.Model) error {
	for _, et := range m.EntityTypes() {
		if !structBacked(et) {
			continue
		}
		if err := discoverEntityProperties(m, et); err != nil {
			return err
		}
	}
	return nil
}

func discoverEntityProperties(m *schema.Model, et *schema.EntityType) error {
	var skip reflect.Type
	if base := et.BaseType(); base != nil {
		skip = base.GoType()
	}

	return exportedFields(m, et.GoType(), skip, func(f reflect.StructField) error {
		tag := parseTag(f)
		if tag.skip {
			return et.Ignore(f.Name, annotations.SourceDataAnnotation)
		}
		if et.IsIgnored(f.Name) {
			return nil
		}
		if _, kind := et.FindMemberInHierarchy(f.Name); kind != "" {
			return nil
		}

		switch {
		case schema.IsScalarType(f.Type):
			p, err := et.AddProperty(f.Name, nil, annotations.SourceConvention)
			if err != nil {
				return err
			}
			return applyTag(p, tag)
		case isEntityReference(m, f.Type):
			return nil
		case complexCandidate(f.Type):
			cp, err := et.AddComplexProperty(f.Name, nil, annotations.SourceConvention)
			if err != nil {
				return err
			}
			return discoverComplexProperties(m, cp.ComplexType(), map[reflect.Type]bool{cp.ComplexType().GoType(): true})
		}
		return nil
	})
}

func discoverComplexProperties(m *schema.Model, ct *schema.ComplexType, visiting map[reflect.Type]bool) error {
	return exportedFields(m, ct.GoType(), nil, func(f reflect.StructField) error {
		tag := parseTag(f)
		if tag.skip || ct.FindProperty(f.Name) != nil || ct.FindComplexProperty(f.Name) != nil {
			return nil
		}

		switch {
		case schema.IsScalarType(f.Type):
			p, err := ct.AddProperty(f.Name, nil, annotations.SourceConvention)
			if err != nil {
				return err
			}
			return applyTag(p, tag)
		case isEntityReference(m, f.Type):
			return nil
		case complexCandidate(f.Type):
			nested, err := ct.AddComplexProperty(f.Name, nil, annotations.SourceConvention)
			if err != nil {
				return err
			}
			nt := nested.ComplexType().GoType()
			if visiting[nt] {
				return nil
			}
			visiting[nt] = true
			defer delete(visiting, nt)
			return discoverComplexProperties(m, nested.ComplexType(), visiting)
		}
		return nil
	})
}
