package dispatch

import (
	"context"
	"slices"

	"github.com/on-the-ground/dispatch_ive_go/dispatch/internal/cache"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/internal/methods"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/internal/registry"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/internal/resolver"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/internal/store"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/model"
	"go.uber.org/zap"
)

// Call dispatches generic on the classes of args and invokes the selected method.
// Missing trailing dispatch arguments dispatch as MISSING; arguments wrapped by
// Super are unwrapped before the method sees them.
func (e *Engine) Call(ctx context.Context, generic string, args ...any) (any, error) {
	method, err := e.Resolve(generic, args...)
	if err != nil {
		return nil, err
	}
	unwrapped := make([]any, len(args))
	for i, arg := range args {
		unwrapped[i] = unwrap(arg)
	}
	return method.Invoke(ctx, unwrapped...)
}

// Resolve returns the method Call would invoke, without invoking it.
func (e *Engine) Resolve(generic string, args ...any) (*model.Method, error) {
	generation := e.cache.Generation()
	sn := e.store.Snapshot()

	g, err := methods.GenericOf(sn, generic)
	if err != nil {
		return nil, err
	}

	leaves := make([]string, g.Arity)
	for i := range leaves {
		if i >= len(args) {
			leaves[i] = model.Missing
			continue
		}
		if leaves[i], err = leafOf(sn, args[i]); err != nil {
			return nil, err
		}
	}
	return e.resolve(sn, generation, g, leaves)
}

// ResolveClasses resolves from class names rather than values.
// MISSING may be given for an absent argument.
func (e *Engine) ResolveClasses(generic string, classes ...string) (*model.Method, error) {
	generation := e.cache.Generation()
	sn := e.store.Snapshot()

	g, err := methods.GenericOf(sn, generic)
	if err != nil {
		return nil, err
	}
	if len(classes) != g.Arity {
		return nil, &model.ArityMismatchError{Generic: generic, Want: g.Arity, Got: len(classes)}
	}
	for _, class := range classes {
		if class == model.Missing {
			continue
		}
		if _, err := registry.Lookup(sn, class); err != nil {
			return nil, err
		}
	}
	return e.resolve(sn, generation, g, slices.Clone(classes))
}

// leafOf returns the class an argument dispatches as.
// A Super target must be a proper ancestor of the wrapped value's class.
func leafOf(sn store.Snapshot, arg any) (string, error) {
	s, ok := arg.(super)
	if !ok {
		name, _ := classOf(arg)
		return name, nil
	}

	actual, err := leafOf(sn, s.value)
	if err != nil {
		return "", err
	}
	if s.to == actual || model.IsWildcard(s.to) || !slices.Contains(chainOf(sn, actual), s.to) {
		return "", &model.InvalidSuperError{Class: actual, To: s.to}
	}
	return s.to, nil
}

// chainOf returns the matching chain of a leaf class.
// Classes the registry does not know, such as unmapped Go types, only have themselves and ANY.
func chainOf(sn store.Snapshot, leaf string) []string {
	if leaf == model.Missing {
		return resolver.MissingChain()
	}
	linearization, err := registry.Linearize(sn, leaf)
	if err != nil {
		return resolver.Chain([]string{leaf})
	}
	return resolver.Chain(linearization)
}

func (e *Engine) resolve(
	sn store.Snapshot,
	generation uint64,
	g model.Generic,
	leaves []string,
) (*model.Method, error) {
	key := cache.Key{Generic: g.Name, Classes: leaves}
	if !e.config.DisableCache {
		if cached, ok := e.cache.Get(key); ok {
			return cached.method, cached.err
		}
	}

	chains := make([][]string, len(leaves))
	for i, leaf := range leaves {
		chains[i] = chainOf(sn, leaf)
	}
	method, err := resolver.Select(g.Name, leaves, chains, sn.Methods(g.Name))

	if !e.config.DisableCache {
		e.cache.Put(key, resolution{method: method, err: err}, generation)
	}
	if err != nil {
		e.logger.Debug("dispatch failed",
			zap.String("generic", g.Name),
			zap.Strings("classes", leaves),
			zap.Error(err),
		)
		return nil, err
	}
	e.logger.Debug("dispatch resolved",
		zap.String("generic", g.Name),
		zap.Strings("classes", leaves),
		zap.Stringer("method", method),
	)
	return method, nil
}
