package helper

import (
	"fmt"
)

// ErrUnexpectedType is wrapped by every failed type assertion in this package.
var ErrUnexpectedType = fmt.Errorf("unexpected type")

// GetTypedValueOf runs getFn and asserts its result to T.
// A nil result with no error yields the zero value of T.
func GetTypedValueOf[T any](getFn func() (any, error)) (T, error) {
	var zero T

	res, err := getFn()
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}

	val, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%w: want %T, got %T", ErrUnexpectedType, zero, res)
	}

	return val, nil
}

// LookupTyped reads key from bindings. found is false when the key is absent;
// a present key holding another type is an error.
func LookupTyped[T any](bindings map[string]any, key string) (val T, found bool, err error) {
	raw, found := bindings[key]
	if !found {
		return val, false, nil
	}
	val, ok := raw.(T)
	if !ok {
		return val, true, fmt.Errorf("%w: %s: want %T, got %T", ErrUnexpectedType, key, val, raw)
	}
	return val, true, nil
}

// MustGetTypedValue is the panic-on-failure variant of GetTypedValueOf.
func MustGetTypedValue[T any](getFn func() (any, error)) T {
	res, err := GetTypedValueOf[T](getFn)
	if err != nil {
		panic(err)
	}
	return res
}
