package definition

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	rawJSONType = reflect.TypeOf(json.RawMessage(nil))
)

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// coerce converts a decoded YAML value to t
func coerce(value interface{}, t reflect.Type) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if t.Kind() == reflect.Ptr {
		v, err := coerce(value, t.Elem())
		if err != nil {
			return nil, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(reflect.ValueOf(v))
		return ptr.Interface(), nil
	}

	v := reflect.ValueOf(value)
	if v.Type() == t {
		return value, nil
	}

	switch t {
	case uuidType:
		if s, ok := value.(string); ok {
			return uuid.Parse(s)
		}
	case timeType:
		switch s := value.(type) {
		case time.Time:
			return s, nil
		case string:
			for _, layout := range timeLayouts {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts, nil
				}
			}
			return nil, fmt.Errorf("%q is not a timestamp", s)
		}
	case rawJSONType:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(data), nil
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.CanInt() {
			if reflect.Zero(t).OverflowInt(v.Int()) {
				return nil, fmt.Errorf("%v overflows %s", value, t)
			}
			return v.Convert(t).Interface(), nil
		}
	case reflect.Float32, reflect.Float64:
		if v.CanInt() || v.CanFloat() {
			return v.Convert(t).Interface(), nil
		}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			if s, ok := value.(string); ok {
				return []byte(s), nil
			}
		}
	}
	return nil, fmt.Errorf("cannot use %T as %s", value, t)
}
