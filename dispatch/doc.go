// Package dispatch provides a class model and a multiple-dispatch engine for Go hosts.
//
// An Engine holds three things: a class registry, a table of generic functions
// with their methods, and a cache of dispatch decisions. Hosts create one Engine
// and keep it; nothing in this package is global.
//
// # Classes
//
// Classes have a unique name, an ordered list of parents and a set of
// properties. The ancestor chain of a class is the class itself, then its
// parents depth-first from left to right, each class appearing once at its
// first position. Go values that are not objects dispatch on base classes
// (NULL, logical, integer, double, character, function, list).
//
// # Dispatch
//
// A generic dispatches on its first Arity arguments. A method applies when each
// of its signature classes is in the chain of the matching argument, ANY
// matching everything and MISSING matching an absent argument. The most
// specific applicable method wins; calls where no method, or more than one
// equally specific method, applies fail with NoApplicableMethodError or
// AmbiguousDispatchError from the model package.
//
// # Caching
//
// Decisions are cached per generic and argument classes. Any class definition
// or method registration invalidates the whole cache.
//
// Example:
//
//	engine, _ := dispatch.NewEngine(dispatch.NewConfig(1, 0))
//	engine.Class(model.ClassSpec{Name: "Animal"})
//	engine.Class(model.ClassSpec{Name: "Dog", Parents: []string{"Animal"}})
//	engine.DefineGeneric("speak", 1)
//	engine.Register("speak", model.Signature{"Dog"}, func(ctx context.Context, args ...any) (any, error) {
//	    return "woof", nil
//	})
//	dog, _ := engine.NewObject("Dog", nil)
//	sound, _ := engine.Call(ctx, "speak", dog)
package dispatch
