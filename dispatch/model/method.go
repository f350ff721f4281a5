package model

import (
	"context"
	"strings"
)

// Impl is the callable body of a method.
// Arguments beyond the generic's arity are passed through without dispatch.
type Impl func(ctx context.Context, args ...any) (any, error)

// Signature is the ordered tuple of class names a method is registered against.
type Signature []string

// Key renders the signature as a stable string, e.g. "(Dog, ANY)".
func (s Signature) Key() string {
	return "(" + strings.Join(s, ", ") + ")"
}

func (s Signature) String() string { return s.Key() }

// Generic is a named operation dispatched on its first Arity arguments.
type Generic struct {
	Name  string
	Arity int
}

func (g Generic) String() string { return g.Name }

// Method binds an implementation to a signature of one generic.
type Method struct {
	ID        string
	Generic   string
	Signature Signature
	Impl      Impl
}

func (m *Method) String() string {
	return m.Generic + m.Signature.Key()
}

// Invoke calls the implementation with the original arguments.
func (m *Method) Invoke(ctx context.Context, args ...any) (any, error) {
	return m.Impl(ctx, args...)
}
