package schema

import (
	"errors"
	"fmt"
	"reflect"
)

// Member access errors. Each is returned wrapped with the member and type names.
var (
	ErrNoFieldOrGetter = errors.New("no field or getter")
	ErrNoFieldOrSetter = errors.New("no field or setter")
	ErrNoBackingField  = errors.New("no backing field")
	ErrNoGetter        = errors.New("no getter")
	ErrNoSetter        = errors.New("no setter")
)

// PropertyBase is implemented by every member that maps to a Go value:
// properties, navigations, skip navigations and complex properties.
type PropertyBase interface {
	Name() string
	DeclaringType() StructuralType
	FieldName() string
	AccessMode() PropertyAccessMode
	IsShadow() bool
	IsIndexer() bool
}

var (
	_ PropertyBase = (*Property)(nil)
	_ PropertyBase = (*Navigation)(nil)
	_ PropertyBase = (*SkipNavigation)(nil)
	_ PropertyBase = (*ComplexProperty)(nil)
)

// MemberKind tells how a member is reached on a Go value
type MemberKind int

const (
	// MemberNone means the member has no Go representation (shadow or indexer)
	MemberNone MemberKind = iota
	// MemberField is a struct field
	MemberField
	// MemberMethod is an accessor method on the pointer type
	MemberMethod
)

// MemberInfo identifies the field or method used to access a member
type MemberInfo struct {
	Kind  MemberKind
	Name  string
	Type  reflect.Type
	Index []int
}

type memberCandidates struct {
	field       *reflect.StructField
	fieldName   string
	hasField    bool
	getter      *reflect.Method
	setter      *reflect.Method
	memberLabel string
}

// ResolveMember picks the field or accessor method used to read or write
// member p. forMaterialization selects the write used while constructing
// instances; forSet selects a write after construction; neither selects a
// read. Shadow and indexer members resolve to MemberNone.
func ResolveMember(p PropertyBase, forMaterialization, forSet bool) (MemberInfo, error) {
	host := p.DeclaringType().GoType()
	if p.IsShadow() || p.IsIndexer() || host == nil || host == propertyBag {
		return MemberInfo{}, nil
	}

	c := findCandidates(host, p)
	mode := p.AccessMode()

	switch {
	case forMaterialization:
		return c.resolveMaterialization(mode)
	case forSet:
		return c.resolveSet(mode)
	default:
		return c.resolveGet(mode)
	}
}

func findCandidates(host reflect.Type, p PropertyBase) memberCandidates {
	c := memberCandidates{
		fieldName:   p.FieldName(),
		memberLabel: fmt.Sprintf("'%s.%s'", p.DeclaringType().Name(), p.Name()),
	}
	if c.fieldName == "" {
		c.fieldName = p.Name()
	}
	if field, ok := host.FieldByName(c.fieldName); ok {
		c.hasField = true
		if field.IsExported() {
			c.field = &field
		}
	}
	c.getter = findGetter(host, p.Name())
	c.setter = findSetter(host, p.Name())
	return c
}

// findGetter looks for Name() or GetName() with no arguments and one result
func findGetter(host reflect.Type, name string) *reflect.Method {
	ptr := reflect.PointerTo(host)
	for _, candidate := range []string{name, "Get" + name} {
		if m, ok := ptr.MethodByName(candidate); ok && m.Type.NumIn() == 1 && m.Type.NumOut() == 1 {
			return &m
		}
	}
	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// findSetter looks for SetName(v) returning nothing or an error
func findSetter(host reflect.Type, name string) *reflect.Method {
	m, ok := reflect.PointerTo(host).MethodByName("Set" + name)
	if !ok || m.Type.NumIn() != 2 {
		return nil
	}
	switch m.Type.NumOut() {
	case 0:
		return &m
	case 1:
		if m.Type.Out(0) == errorType {
			return &m
		}
	}
	return nil
}

func (c memberCandidates) fieldInfo() MemberInfo {
	return MemberInfo{Kind: MemberField, Name: c.field.Name, Type: c.field.Type, Index: c.field.Index}
}

func methodInfo(m *reflect.Method, valueType reflect.Type) MemberInfo {
	return MemberInfo{Kind: MemberMethod, Name: m.Name, Type: valueType, Index: []int{m.Index}}
}

func (c memberCandidates) getterInfo() MemberInfo { return methodInfo(c.getter, c.getter.Type.Out(0)) }

func (c memberCandidates) setterInfo() MemberInfo { return methodInfo(c.setter, c.setter.Type.In(1)) }

func (c memberCandidates) noBackingField() error {
	if c.hasField {
		return fmt.Errorf("%w: field '%s' backing %s is not exported", ErrNoBackingField, c.fieldName, c.memberLabel)
	}
	return fmt.Errorf("%w: no field '%s' found for %s", ErrNoBackingField, c.fieldName, c.memberLabel)
}

func (c memberCandidates) resolveMaterialization(mode PropertyAccessMode) (MemberInfo, error) {
	switch mode {
	case AccessField, AccessFieldDuringConstruction:
		if c.field != nil {
			return c.fieldInfo(), nil
		}
		return MemberInfo{}, c.noBackingField()
	case AccessProperty:
		if c.setter != nil {
			return c.setterInfo(), nil
		}
		return MemberInfo{}, fmt.Errorf("%w: %s has no Set method and access mode is property", ErrNoSetter, c.memberLabel)
	default:
		if c.field != nil {
			return c.fieldInfo(), nil
		}
		if c.setter != nil {
			return c.setterInfo(), nil
		}
		return MemberInfo{}, fmt.Errorf("%w: %s has neither an exported field nor a Set method", ErrNoFieldOrSetter, c.memberLabel)
	}
}

func (c memberCandidates) resolveSet(mode PropertyAccessMode) (MemberInfo, error) {
	switch mode {
	case AccessField:
		if c.field != nil {
			return c.fieldInfo(), nil
		}
		return MemberInfo{}, c.noBackingField()
	case AccessProperty:
		if c.setter != nil {
			return c.setterInfo(), nil
		}
		return MemberInfo{}, fmt.Errorf("%w: %s has no Set method and access mode is property", ErrNoSetter, c.memberLabel)
	case AccessFieldDuringConstruction:
		if c.setter != nil {
			return c.setterInfo(), nil
		}
		if c.field != nil {
			return c.fieldInfo(), nil
		}
		return MemberInfo{}, fmt.Errorf("%w: %s has neither a Set method nor an exported field", ErrNoFieldOrSetter, c.memberLabel)
	default:
		if c.field != nil {
			return c.fieldInfo(), nil
		}
		if c.setter != nil {
			return c.setterInfo(), nil
		}
		return MemberInfo{}, fmt.Errorf("%w: %s has neither an exported field nor a Set method", ErrNoFieldOrSetter, c.memberLabel)
	}
}

func (c memberCandidates) resolveGet(mode PropertyAccessMode) (MemberInfo, error) {
	switch mode {
	case AccessField:
		if c.field != nil {
			return c.fieldInfo(), nil
		}
		return MemberInfo{}, c.noBackingField()
	case AccessProperty:
		if c.getter != nil {
			return c.getterInfo(), nil
		}
		return MemberInfo{}, fmt.Errorf("%w: %s has no getter method and access mode is property", ErrNoGetter, c.memberLabel)
	case AccessFieldDuringConstruction:
		if c.getter != nil {
			return c.getterInfo(), nil
		}
		if c.field != nil {
			return c.fieldInfo(), nil
		}
		return MemberInfo{}, fmt.Errorf("%w: %s has neither a getter method nor an exported field", ErrNoFieldOrGetter, c.memberLabel)
	default:
		if c.field != nil {
			return c.fieldInfo(), nil
		}
		if c.getter != nil {
			return c.getterInfo(), nil
		}
		return MemberInfo{}, fmt.Errorf("%w: %s has neither an exported field nor a getter method", ErrNoFieldOrGetter, c.memberLabel)
	}
}

// MemberValue reads member p from v, a value or pointer of the declaring Go
// type. ok is false when the member has no Go representation.
func MemberValue(p PropertyBase, v reflect.Value) (value interface{}, ok bool, err error) {
	info, err := ResolveMember(p, false, false)
	if err != nil || info.Kind == MemberNone {
		return nil, false, err
	}

	switch info.Kind {
	case MemberField:
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return nil, false, nil
			}
			v = v.Elem()
		}
		// values of derived types reach inherited fields through embedding
		field, ok := v.Type().FieldByName(info.Name)
		if !ok {
			return nil, false, nil
		}
		f, err := v.FieldByIndexErr(field.Index)
		if err != nil {
			return nil, false, nil
		}
		return f.Interface(), true, nil
	default:
		if v.Kind() != reflect.Ptr {
			ptr := reflect.New(v.Type())
			ptr.Elem().Set(v)
			v = ptr
		}
		out := v.MethodByName(info.Name).Call(nil)
		return out[0].Interface(), true, nil
	}
}
