package validation

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// seedRow is one seed datum flattened to member values. Struct rows report
// every mapped field as present; map rows only the keys they carry.
type seedRow struct {
	index  int
	values map[string]interface{}
}

func seedError(kind error, et *schema.EntityType, member, format string, args ...interface{}) *ModelError {
	return &ModelError{Kind: kind, EntityType: et.Name(), Member: member, Message: fmt.Sprintf(format, args...)}
}

func validateSeedData(m *schema.Model, logger *diagnostics.Logger) error {
	identities := make(map[*schema.EntityType]map[string]string)

	for _, et := range m.EntityTypes() {
		for i, raw := range et.SeedData() {
			row, err := flattenSeedRow(et, i+1, raw)
			if err != nil {
				return err
			}
			if err := checkSeedValues(et, row); err != nil {
				return err
			}

			pk := et.FindPrimaryKey()
			if pk == nil {
				continue
			}
			root := et.RootType()
			if identities[root] == nil {
				identities[root] = make(map[string]string)
			}
			identity := keyIdentity(pk, row)
			if prior, ok := identities[root][identity]; ok {
				return duplicateSeedError(et, prior, pk, row, logger)
			}
			identities[root][identity] = et.Name()
		}
	}
	return nil
}

func flattenSeedRow(et *schema.EntityType, index int, raw interface{}) (seedRow, error) {
	row := seedRow{index: index, values: make(map[string]interface{})}

	if values, ok := raw.(map[string]interface{}); ok {
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			value := values[name]
			switch {
			case et.FindProperty(name) != nil:
				row.values[name] = value
			case et.FindNavigation(name) != nil || et.FindSkipNavigation(name) != nil:
				return row, seedError(ErrSeedDatumNavigation, et, name,
					"seed row %d sets navigation %s; seed the related type and set the foreign key instead", index, name)
			case et.FindComplexProperty(name) != nil:
				return row, seedError(ErrSeedDatumComplexProperty, et, name,
					"seed row %d sets complex property %s, which seed data does not support", index, name)
			default:
				return row, seedError(ErrSeedDatumIncompatibleValue, et, name,
					"seed row %d sets %s, which is not a mapped member", index, name)
			}
		}
		return row, nil
	}

	v := reflect.ValueOf(raw)
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		v = v.Elem()
	}
	if !v.IsValid() || v.Type() != et.GoType() {
		return row, seedError(ErrSeedDatumIncompatibleValue, et, "",
			"seed row %d is %T; rows must be a %s or a map[string]interface{}", index, raw, et.GoType())
	}

	for _, n := range et.Navigations() {
		if value, ok, _ := schema.MemberValue(n, v); ok && !isZero(value) {
			return row, seedError(ErrSeedDatumNavigation, et, n.Name(),
				"seed row %d sets navigation %s; seed the related type and set the foreign key instead", index, n.Name())
		}
	}
	for _, cp := range et.ComplexProperties() {
		if value, ok, _ := schema.MemberValue(cp, v); ok && !isZero(value) {
			return row, seedError(ErrSeedDatumComplexProperty, et, cp.Name(),
				"seed row %d sets complex property %s, which seed data does not support", index, cp.Name())
		}
	}
	for _, p := range et.Properties() {
		value, ok, err := schema.MemberValue(p, v)
		if err != nil {
			return row, seedError(ErrSeedDatumIncompatibleValue, et, p.Name(), "seed row %d: %v", index, err)
		}
		if ok {
			row.values[p.Name()] = value
		}
	}
	return row, nil
}

func isZero(value interface{}) bool {
	return value == nil || reflect.ValueOf(value).IsZero()
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func checkSeedValues(et *schema.EntityType, row seedRow) error {
	disc := et.RootType().DiscriminatorProperty()

	for _, p := range et.Properties() {
		if p == disc {
			continue
		}
		value, present := row.values[p.Name()]
		generatedKey := p.IsPrimaryKey() && p.ValueGenerated().OnAdd()

		if present && !isNil(value) && !assignable(value, p.GoType()) {
			return seedError(ErrSeedDatumIncompatibleValue, et, p.Name(),
				"seed row %d has a %T value but the property is %s", row.index, value, p.GoType())
		}

		if generatedKey && isZero(value) {
			if schema.IsSignedInteger(p.GoType()) {
				return seedError(ErrSeedDatumSignedNumericValue, et, p.Name(),
					"seed row %d leaves the generated key at zero; use a non-zero value, negative values avoid clashes with generated ones", row.index)
			}
			return seedError(ErrSeedDatumDefaultValue, et, p.Name(),
				"seed row %d leaves the generated key at its default value; seed rows need explicit key values", row.index)
		}

		if isNil(value) && !p.IsNullable() && !p.ValueGenerated().OnAdd() {
			return seedError(ErrSeedDatumMissingValue, et, p.Name(),
				"seed row %d has no value for the required property", row.index)
		}
	}
	return nil
}

// keyValue dereferences pointers so *int(1) and 1 identify the same row
func keyValue(value interface{}) interface{} {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr && !v.IsNil() {
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() == reflect.Ptr {
		return nil
	}
	return v.Interface()
}

func keyIdentity(pk *schema.Key, row seedRow) string {
	parts := make([]interface{}, len(pk.Properties()))
	for i, p := range pk.Properties() {
		parts[i] = keyValue(row.values[p.Name()])
	}
	return fmt.Sprintf("%#v", parts)
}

func duplicateSeedError(et *schema.EntityType, prior string, pk *schema.Key, row seedRow, logger *diagnostics.Logger) *ModelError {
	err := &ModelError{Kind: ErrSeedDatumDuplicate, EntityType: et.Name()}
	if !logger.SensitiveDataLoggingEnabled() {
		err.Message = fmt.Sprintf("seed row %d has the same key {%s} as a row seeded for %s",
			row.index, strings.Join(pk.PropertyNames(), ", "), prior)
		err.Hint = "enable sensitive data logging to see the key values"
		return err
	}

	parts := make([]string, len(pk.Properties()))
	for i, p := range pk.Properties() {
		parts[i] = fmt.Sprintf("%s: %v", p.Name(), keyValue(row.values[p.Name()]))
	}
	err.Message = fmt.Sprintf("seed row %d has the same key {%s} as a row seeded for %s",
		row.index, strings.Join(parts, ", "), prior)
	return err
}
