package domain

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// FromGo lifts a native Go value into the port value type system using its
// implied cty type. Plain Go numbers, strings, bools, slices, and maps all
// have implied types; values with no cty equivalent (channels, functions,
// nil interfaces) are rejected with ErrUnrepresentableValue.
func FromGo(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, fmt.Errorf("%w: nil interface", ErrUnrepresentableValue)
	}
	if cv, ok := v.(cty.Value); ok {
		return cv, nil
	}

	typ, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%w: %v", ErrUnrepresentableValue, err)
	}
	val, err := gocty.ToCtyValue(v, typ)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%w: %v", ErrUnrepresentableValue, err)
	}
	return val, nil
}

// MustFromGo is a FromGo variant that panics on unrepresentable values.
// It is intended for literals in examples and tests, where the value is
// known representable at the call site.
func MustFromGo(v any) cty.Value {
	val, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return val
}
