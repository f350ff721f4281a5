package dispatch

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/on-the-ground/dispatch_ive_go/dispatch/model"
)

var _ model.Classed = (*Object)(nil)

// Object is an instance of a class. Its class never changes.
//
// Property storage is not synchronized: concurrent SetProp calls on the same
// object must be serialized by the caller.
type Object struct {
	class *model.Class
	props map[string]any
}

func (o *Object) Class() *model.Class { return o.class }

func (o *Object) ClassName() string { return o.class.Name() }

// Prop returns the value of a property.
func (o *Object) Prop(name string) (any, bool) {
	v, ok := o.props[name]
	return v, ok
}

// Props returns a copy of all property values.
func (o *Object) Props() map[string]any {
	return maps.Clone(o.props)
}

func (o *Object) String() string {
	return fmt.Sprintf("<%s %v>", o.class.Name(), o.props)
}

// super wraps a value so that it dispatches as one of its ancestors.
type super struct {
	value any
	to    string
}

// Super makes value dispatch as the ancestor class to.
// Methods still receive the unwrapped value.
func Super(value any, to string) any {
	return super{value: value, to: to}
}

func unwrap(arg any) any {
	if s, ok := arg.(super); ok {
		return s.value
	}
	return arg
}

// classOf returns the dispatch class of a value. Nil pointers are NULL.
// known is false for Go types that map to no base class; they dispatch by their
// Go type name, which a host may register as a class of its own.
func classOf(value any) (name string, known bool) {
	if value == nil {
		return model.ClassNull, true
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return model.ClassNull, true
	}

	if c, ok := value.(model.Classed); ok {
		return c.ClassName(), true
	}

	switch reflect.TypeOf(value).Kind() {
	case reflect.Bool:
		return model.ClassLogical, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return model.ClassInteger, true
	case reflect.Float32, reflect.Float64:
		return model.ClassDouble, true
	case reflect.String:
		return model.ClassCharacter, true
	case reflect.Func:
		return model.ClassFunction, true
	case reflect.Slice, reflect.Array, reflect.Map:
		return model.ClassList, true
	default:
		return fmt.Sprintf("%T", value), false
	}
}
