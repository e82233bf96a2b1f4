package schema

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/metamodel/internal/orm/annotations"
)

// ValueComparer decides whether two property values are equal
type ValueComparer interface {
	Equals(a, b interface{}) bool
}

// ComparerFunc adapts a function to ValueComparer
type ComparerFunc func(a, b interface{}) bool

// Equals calls f(a, b)
func (f ComparerFunc) Equals(a, b interface{}) bool { return f(a, b) }

// DefaultComparer compares values with annotations.ValuesEqual
var DefaultComparer ValueComparer = ComparerFunc(annotations.ValuesEqual)

// ValueConverter converts between the model type of a property and the
// type stored by the provider.
type ValueConverter interface {
	ConvertToProvider(v interface{}) (interface{}, error)
	ConvertFromProvider(v interface{}) (interface{}, error)
	ModelType() reflect.Type
	ProviderType() reflect.Type
}

type funcConverter[M, P any] struct {
	to   func(M) (P, error)
	from func(P) (M, error)
}

// NewValueConverter builds a ValueConverter from a pair of typed functions
func NewValueConverter[M, P any](to func(M) (P, error), from func(P) (M, error)) ValueConverter {
	return funcConverter[M, P]{to: to, from: from}
}

func (c funcConverter[M, P]) ConvertToProvider(v interface{}) (interface{}, error) {
	m, ok := v.(M)
	if !ok {
		return nil, fmt.Errorf("cannot convert %T to provider value: expected %s", v, c.ModelType())
	}
	return c.to(m)
}

func (c funcConverter[M, P]) ConvertFromProvider(v interface{}) (interface{}, error) {
	p, ok := v.(P)
	if !ok {
		return nil, fmt.Errorf("cannot convert %T from provider value: expected %s", v, c.ProviderType())
	}
	return c.from(p)
}

func (c funcConverter[M, P]) ModelType() reflect.Type {
	return reflect.TypeOf((*M)(nil)).Elem()
}

func (c funcConverter[M, P]) ProviderType() reflect.Type {
	return reflect.TypeOf((*P)(nil)).Elem()
}

// convertingComparer compares provider representations so that values the
// converter maps to the same stored value are equal.
type convertingComparer struct {
	converter ValueConverter
}

func (c convertingComparer) Equals(a, b interface{}) bool {
	pa, errA := c.converter.ConvertToProvider(a)
	pb, errB := c.converter.ConvertToProvider(b)
	if errA != nil || errB != nil {
		return annotations.ValuesEqual(a, b)
	}
	return annotations.ValuesEqual(pa, pb)
}
