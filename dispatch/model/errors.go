package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateClass     = errors.New("class already defined")
	ErrCyclicParent       = errors.New("cyclic parent relationship")
	ErrUnknownClass       = errors.New("unknown class")
	ErrInvalidClassName   = errors.New("invalid class name")
	ErrAbstractClass      = errors.New("cannot instantiate abstract class")
	ErrUnknownProperty    = errors.New("unknown property")
	ErrPropertyType       = errors.New("property value has the wrong class")
	ErrUnknownGeneric     = errors.New("unknown generic")
	ErrArityMismatch      = errors.New("arity mismatch")
	ErrNoApplicableMethod = errors.New("no applicable method")
	ErrAmbiguousDispatch  = errors.New("ambiguous dispatch")
	ErrInvalidSuper       = errors.New("invalid super class")
)

type DuplicateClassError struct {
	Class string
}

func (e *DuplicateClassError) Error() string {
	return fmt.Sprintf("%v: %q", ErrDuplicateClass, e.Class)
}

func (e *DuplicateClassError) Is(target error) bool { return target == ErrDuplicateClass }

// CyclicParentError names the class being defined and the path that closes the cycle.
type CyclicParentError struct {
	Class string
	Path  []string
}

func (e *CyclicParentError) Error() string {
	return fmt.Sprintf("%v: %q via %s", ErrCyclicParent, e.Class, strings.Join(e.Path, " -> "))
}

func (e *CyclicParentError) Is(target error) bool { return target == ErrCyclicParent }

type UnknownClassError struct {
	Class string
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownClass, e.Class)
}

func (e *UnknownClassError) Is(target error) bool { return target == ErrUnknownClass }

type InvalidClassNameError struct {
	Class string
}

func (e *InvalidClassNameError) Error() string {
	return fmt.Sprintf("%v: %q is reserved", ErrInvalidClassName, e.Class)
}

func (e *InvalidClassNameError) Is(target error) bool { return target == ErrInvalidClassName }

type AbstractClassError struct {
	Class string
}

func (e *AbstractClassError) Error() string {
	return fmt.Sprintf("%v: %q", ErrAbstractClass, e.Class)
}

func (e *AbstractClassError) Is(target error) bool { return target == ErrAbstractClass }

type UnknownPropertyError struct {
	Class    string
	Property string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("%v: %q has no property %q", ErrUnknownProperty, e.Class, e.Property)
}

func (e *UnknownPropertyError) Is(target error) bool { return target == ErrUnknownProperty }

type PropertyTypeError struct {
	Class    string
	Property string
	Want     string
	Got      string
}

func (e *PropertyTypeError) Error() string {
	return fmt.Sprintf("%v: %s@%s must be %q, got %q", ErrPropertyType, e.Class, e.Property, e.Want, e.Got)
}

func (e *PropertyTypeError) Is(target error) bool { return target == ErrPropertyType }

type UnknownGenericError struct {
	Generic string
}

func (e *UnknownGenericError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownGeneric, e.Generic)
}

func (e *UnknownGenericError) Is(target error) bool { return target == ErrUnknownGeneric }

// ArityMismatchError is returned when a signature length, or a redefinition,
// disagrees with the generic's arity.
type ArityMismatchError struct {
	Generic string
	Want    int
	Got     int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("%v: %q dispatches on %d argument(s), got %d", ErrArityMismatch, e.Generic, e.Want, e.Got)
}

func (e *ArityMismatchError) Is(target error) bool { return target == ErrArityMismatch }

type NoApplicableMethodError struct {
	Generic string
	Classes []string
}

func (e *NoApplicableMethodError) Error() string {
	return fmt.Sprintf("%v: %s%s", ErrNoApplicableMethod, e.Generic, Signature(e.Classes).Key())
}

func (e *NoApplicableMethodError) Is(target error) bool { return target == ErrNoApplicableMethod }

// AmbiguousDispatchError lists the maximally specific signatures that tie.
type AmbiguousDispatchError struct {
	Generic    string
	Classes    []string
	Candidates []Signature
}

func (e *AmbiguousDispatchError) Error() string {
	keys := make([]string, len(e.Candidates))
	for i, sig := range e.Candidates {
		keys[i] = sig.Key()
	}
	return fmt.Sprintf("%v: %s%s matches %s",
		ErrAmbiguousDispatch, e.Generic, Signature(e.Classes).Key(), strings.Join(keys, ", "))
}

func (e *AmbiguousDispatchError) Is(target error) bool { return target == ErrAmbiguousDispatch }

type InvalidSuperError struct {
	Class string
	To    string
}

func (e *InvalidSuperError) Error() string {
	return fmt.Sprintf("%v: %q is not an ancestor of %q", ErrInvalidSuper, e.To, e.Class)
}

func (e *InvalidSuperError) Is(target error) bool { return target == ErrInvalidSuper }
