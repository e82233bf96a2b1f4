// Package schema holds the mutable model metadata graph: the model, its
// entity types, properties, keys, foreign keys, navigations and complex
// properties, the fluent ModelBuilder used to populate it, and the compiled
// RuntimeModel produced once the model is finalized.
//
// A single representation is used for every phase. Mutating methods check
// the owning model's state and return annotations.ErrReadOnly once the model
// has been finalized.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
)

// ConfigurationSource is re-exported for callers that only import schema
type ConfigurationSource = annotations.ConfigurationSource

// ScalarKind names the scalar types a property may hold
type ScalarKind int

const (
	// Text types
	KindString ScalarKind = iota
	KindText

	// Numeric types
	KindInt
	KindBigInt
	KindFloat
	KindDecimal

	// Boolean
	KindBool

	// Time types
	KindTimestamp
	KindDate

	// Unique identifiers
	KindUUID

	// Structured and binary
	KindJSON
	KindBytes
)

// String returns the string representation of the scalar kind
func (k ScalarKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindBigInt:
		return "bigint"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	case KindDate:
		return "date"
	case KindUUID:
		return "uuid"
	case KindJSON:
		return "json"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// ParseScalarKind converts a string to a ScalarKind
func ParseScalarKind(s string) (ScalarKind, error) {
	switch strings.ToLower(s) {
	case "string":
		return KindString, nil
	case "text":
		return KindText, nil
	case "int":
		return KindInt, nil
	case "bigint":
		return KindBigInt, nil
	case "float":
		return KindFloat, nil
	case "decimal":
		return KindDecimal, nil
	case "bool":
		return KindBool, nil
	case "timestamp":
		return KindTimestamp, nil
	case "date":
		return KindDate, nil
	case "uuid":
		return KindUUID, nil
	case "json":
		return KindJSON, nil
	case "bytes":
		return KindBytes, nil
	default:
		return 0, fmt.Errorf("unknown scalar kind: %s", s)
	}
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	uuidType     = reflect.TypeOf(uuid.UUID{})
	bytesType    = reflect.TypeOf([]byte(nil))
	rawJSONType  = reflect.TypeOf(json.RawMessage(nil))
	stringType   = reflect.TypeOf("")
	propertyBag  = reflect.TypeOf(map[string]interface{}(nil))
	emptyIfcType = reflect.TypeOf((*interface{})(nil)).Elem()
)

// PropertyBagType is the Go type of shared-type entities
func PropertyBagType() reflect.Type {
	return propertyBag
}

// GoType returns the Go type used for values of the kind. Decimal values
// are carried as strings to avoid float rounding.
func (k ScalarKind) GoType() reflect.Type {
	switch k {
	case KindString, KindText, KindDecimal:
		return stringType
	case KindInt:
		return reflect.TypeOf(int32(0))
	case KindBigInt:
		return reflect.TypeOf(int64(0))
	case KindFloat:
		return reflect.TypeOf(float64(0))
	case KindBool:
		return reflect.TypeOf(false)
	case KindTimestamp, KindDate:
		return timeType
	case KindUUID:
		return uuidType
	case KindJSON:
		return rawJSONType
	case KindBytes:
		return bytesType
	default:
		return emptyIfcType
	}
}

// IsScalarType reports whether t can be mapped to a property. Pointers to
// scalars, slices of scalars and string-keyed maps are accepted.
func IsScalarType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t {
	case timeType, uuidType, bytesType, rawJSONType:
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Ptr:
		return IsScalarType(t.Elem())
	case reflect.Slice, reflect.Array:
		return IsScalarType(t.Elem())
	case reflect.Map:
		return t.Key().Kind() == reflect.String
	}
	return false
}

// IsCollectionType reports whether t is a slice, array or map other than
// the byte-oriented scalar types.
func IsCollectionType(t reflect.Type) bool {
	if t == nil || t == bytesType || t == rawJSONType {
		return false
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

// IsSignedInteger reports whether t (or its pointee) is a signed integer type
func IsSignedInteger(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

// IsNullableType reports whether t can hold nil
func IsNullableType(t reflect.Type) bool {
	if t == nil {
		return true
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	}
	return false
}

// UnwrapNullable strips one level of pointer
func UnwrapNullable(t reflect.Type) reflect.Type {
	if t != nil && t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// DeleteBehavior is the action applied to dependents when a principal is deleted
type DeleteBehavior int

const (
	DeleteClientSetNull DeleteBehavior = iota
	DeleteRestrict
	DeleteCascade
	DeleteSetNull
	DeleteNoAction
)

// String returns the string representation of the delete behavior
func (d DeleteBehavior) String() string {
	switch d {
	case DeleteClientSetNull:
		return "client_set_null"
	case DeleteRestrict:
		return "restrict"
	case DeleteCascade:
		return "cascade"
	case DeleteSetNull:
		return "set_null"
	case DeleteNoAction:
		return "no_action"
	default:
		return "unknown"
	}
}

// ParseDeleteBehavior converts a string to a DeleteBehavior
func ParseDeleteBehavior(s string) (DeleteBehavior, error) {
	switch s {
	case "client_set_null":
		return DeleteClientSetNull, nil
	case "restrict":
		return DeleteRestrict, nil
	case "cascade":
		return DeleteCascade, nil
	case "set_null":
		return DeleteSetNull, nil
	case "no_action":
		return DeleteNoAction, nil
	default:
		return 0, fmt.Errorf("unknown delete behavior: %s", s)
	}
}

// ValueGenerated describes when the store generates a property value
type ValueGenerated int

const (
	ValueGeneratedNever ValueGenerated = iota
	ValueGeneratedOnAdd
	ValueGeneratedOnUpdate
	ValueGeneratedOnAddOrUpdate
)

// String returns the string representation of the value generation mode
func (v ValueGenerated) String() string {
	switch v {
	case ValueGeneratedNever:
		return "never"
	case ValueGeneratedOnAdd:
		return "on_add"
	case ValueGeneratedOnUpdate:
		return "on_update"
	case ValueGeneratedOnAddOrUpdate:
		return "on_add_or_update"
	default:
		return "unknown"
	}
}

// OnAdd reports whether values are generated when a row is inserted
func (v ValueGenerated) OnAdd() bool {
	return v == ValueGeneratedOnAdd || v == ValueGeneratedOnAddOrUpdate
}

// OnUpdate reports whether values are generated when a row is updated
func (v ValueGenerated) OnUpdate() bool {
	return v == ValueGeneratedOnUpdate || v == ValueGeneratedOnAddOrUpdate
}

// PropertyAccessMode selects how values are read from and written to Go
// values: through the struct field, through accessor methods, or a mix.
type PropertyAccessMode int

const (
	// AccessPreferField uses the field when one exists, accessor methods otherwise
	AccessPreferField PropertyAccessMode = iota
	// AccessField always uses the field
	AccessField
	// AccessFieldDuringConstruction uses the field while materializing and accessors afterwards
	AccessFieldDuringConstruction
	// AccessProperty always uses accessor methods
	AccessProperty
)

// String returns the string representation of the access mode
func (m PropertyAccessMode) String() string {
	switch m {
	case AccessPreferField:
		return "prefer_field"
	case AccessField:
		return "field"
	case AccessFieldDuringConstruction:
		return "field_during_construction"
	case AccessProperty:
		return "property"
	default:
		return "unknown"
	}
}

// ParsePropertyAccessMode converts a string to a PropertyAccessMode
func ParsePropertyAccessMode(s string) (PropertyAccessMode, error) {
	switch s {
	case "prefer_field", "":
		return AccessPreferField, nil
	case "field":
		return AccessField, nil
	case "field_during_construction":
		return AccessFieldDuringConstruction, nil
	case "property":
		return AccessProperty, nil
	default:
		return 0, fmt.Errorf("unknown property access mode: %s", s)
	}
}

// ChangeTrackingStrategy selects how the change tracker detects modifications
type ChangeTrackingStrategy int

const (
	ChangeTrackingSnapshot ChangeTrackingStrategy = iota
	ChangedNotifications
	ChangingAndChangedNotifications
	ChangingAndChangedNotificationsWithOriginalValues
)

// String returns the string representation of the strategy
func (s ChangeTrackingStrategy) String() string {
	switch s {
	case ChangeTrackingSnapshot:
		return "snapshot"
	case ChangedNotifications:
		return "changed_notifications"
	case ChangingAndChangedNotifications:
		return "changing_and_changed_notifications"
	case ChangingAndChangedNotificationsWithOriginalValues:
		return "changing_and_changed_notifications_with_original_values"
	default:
		return "unknown"
	}
}

// ParseChangeTrackingStrategy converts a string to a ChangeTrackingStrategy
func ParseChangeTrackingStrategy(s string) (ChangeTrackingStrategy, error) {
	switch s {
	case "snapshot", "":
		return ChangeTrackingSnapshot, nil
	case "changed_notifications":
		return ChangedNotifications, nil
	case "changing_and_changed_notifications":
		return ChangingAndChangedNotifications, nil
	case "changing_and_changed_notifications_with_original_values":
		return ChangingAndChangedNotificationsWithOriginalValues, nil
	default:
		return 0, fmt.Errorf("unknown change tracking strategy: %s", s)
	}
}

// Notification interfaces an entity Go type must implement for the
// notification-based change tracking strategies.
type (
	// PropertyChangedNotifier raises an event after a property changed
	PropertyChangedNotifier interface {
		OnPropertyChanged(handler func(name string))
	}
	// PropertyChangingNotifier raises an event before a property changes
	PropertyChangingNotifier interface {
		OnPropertyChanging(handler func(name string))
	}
)
