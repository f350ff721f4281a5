package dispatch

import (
	"context"

	"github.com/on-the-ground/dispatch_ive_go/shared/helper"
)

// CallAs performs Call and asserts the result to T.
// Returns a zero value and error if dispatch fails or the type is mismatched.
func CallAs[T any](ctx context.Context, e *Engine, generic string, args ...any) (T, error) {
	return helper.GetTypedValueOf[T](func() (any, error) {
		return e.Call(ctx, generic, args...)
	})
}

// MustCallAs is the panic-on-failure variant of CallAs.
// Use when the method is known to exist, e.g. for generics with an ANY fallback.
func MustCallAs[T any](ctx context.Context, e *Engine, generic string, args ...any) T {
	return helper.MustGetTypedValue[T](func() (any, error) {
		return e.Call(ctx, generic, args...)
	})
}
