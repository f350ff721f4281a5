// Package registry holds class definitions and answers ancestor queries.
package registry

import (
	"fmt"
	"iter"
	"slices"

	"github.com/on-the-ground/dispatch_ive_go/dispatch/internal/store"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/model"
	"go.uber.org/zap"
)

// Invalidator is notified after every committed class definition.
type Invalidator interface {
	InvalidateAll()
}

type Registry struct {
	store       *store.Store
	invalidator Invalidator
	logger      *zap.Logger
}

func New(st *store.Store, invalidator Invalidator, logger *zap.Logger) *Registry {
	return &Registry{
		store:       st,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Bootstrap defines the base classes used for non-object values.
// Classes that already exist are left alone.
func (r *Registry) Bootstrap() error {
	return r.store.Update(func(w store.Writer) error {
		for _, name := range model.BaseClasses {
			if _, ok := w.Class(name); ok {
				continue
			}
			if err := w.PutClass(model.NewClass(model.ClassSpec{Name: name}, nil)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Define creates a class, or replaces it when spec.Replace is set.
// On failure the registry is left unchanged.
func (r *Registry) Define(spec model.ClassSpec) (*model.Class, error) {
	class, _, err := r.commit(spec, false)
	return class, err
}

// Ensure is Define except that an existing class with exactly spec's definition
// is returned as is. created is false in that case and nothing is invalidated.
// The check and the write share one transaction.
func (r *Registry) Ensure(spec model.ClassSpec) (class *model.Class, created bool, err error) {
	return r.commit(spec, true)
}

func (r *Registry) commit(spec model.ClassSpec, reuse bool) (*model.Class, bool, error) {
	var class *model.Class
	created := true
	err := r.store.Update(func(w store.Writer) error {
		if existing, ok := w.Class(spec.Name); ok && reuse && existing.SameDefinition(spec) {
			class, created = existing, false
			return nil
		}
		var err error
		class, err = define(w, spec)
		if err != nil {
			return err
		}
		return w.PutClass(class)
	})
	if err != nil {
		r.logger.Warn("class definition rejected",
			zap.String("class", spec.Name),
			zap.Strings("parents", spec.Parents),
			zap.Error(err),
		)
		return nil, false, err
	}
	if !created {
		return class, false, nil
	}

	r.invalidator.InvalidateAll()
	r.logger.Debug("class defined",
		zap.String("class", class.Name()),
		zap.Strings("parents", class.Parents()),
		zap.Bool("replace", spec.Replace),
	)
	return class, true, nil
}

func define(w store.Writer, spec model.ClassSpec) (*model.Class, error) {
	if spec.Name == "" || model.IsWildcard(spec.Name) {
		return nil, &model.InvalidClassNameError{Class: spec.Name}
	}
	if _, exists := w.Class(spec.Name); exists && !spec.Replace {
		return nil, &model.DuplicateClassError{Class: spec.Name}
	}

	var inherited []model.Property
	for _, parent := range spec.Parents {
		if parent == spec.Name {
			return nil, &model.CyclicParentError{Class: spec.Name, Path: []string{spec.Name, spec.Name}}
		}
		if model.IsWildcard(parent) {
			return nil, &model.InvalidClassNameError{Class: parent}
		}
		pc, ok := w.Class(parent)
		if !ok {
			return nil, &model.UnknownClassError{Class: parent}
		}
		if path := pathTo(w.Snapshot, pc, spec.Name); path != nil {
			return nil, &model.CyclicParentError{
				Class: spec.Name,
				Path:  append([]string{spec.Name}, path...),
			}
		}
		inherited = append(inherited, pc.Properties()...)
	}

	for _, p := range spec.Properties {
		if p.Class == "" || p.Class == model.Any {
			continue
		}
		if p.Class == spec.Name {
			continue
		}
		if _, ok := w.Class(p.Class); !ok {
			return nil, &model.UnknownClassError{Class: p.Class}
		}
	}

	return model.NewClass(spec, inherited), nil
}

// pathTo returns the parent path from c up to the class named target, or nil.
func pathTo(sn store.Snapshot, c *model.Class, target string) []string {
	if c.Name() == target {
		return []string{target}
	}
	for _, parent := range c.Parents() {
		pc, ok := sn.Class(parent)
		if !ok {
			continue
		}
		if rest := pathTo(sn, pc, target); rest != nil {
			return append([]string{c.Name()}, rest...)
		}
	}
	return nil
}

// Lookup returns the class named name.
func (r *Registry) Lookup(name string) (*model.Class, error) {
	return Lookup(r.store.Snapshot(), name)
}

func Lookup(sn store.Snapshot, name string) (*model.Class, error) {
	class, ok := sn.Class(name)
	if !ok {
		return nil, &model.UnknownClassError{Class: name}
	}
	return class, nil
}

// Classes returns all defined classes ordered by name.
func (r *Registry) Classes() []*model.Class {
	return r.store.Snapshot().Classes()
}

// Ancestors returns the method-resolution order of the named class as a lazy sequence.
// The sequence reads the registry as it was when Ancestors was called and may be ranged over repeatedly.
func (r *Registry) Ancestors(name string) (iter.Seq[*model.Class], error) {
	sn := r.store.Snapshot()
	class, err := Lookup(sn, name)
	if err != nil {
		return nil, err
	}
	return AncestorsOf(sn, class), nil
}

// Linearize returns the names in the ancestor chain of the named class.
func (r *Registry) Linearize(name string) ([]string, error) {
	return Linearize(r.store.Snapshot(), name)
}

// Inherits reports whether ancestor appears in the chain of child.
func (r *Registry) Inherits(child, ancestor string) (bool, error) {
	chain, err := r.Linearize(child)
	if err != nil {
		return false, err
	}
	return slices.Contains(chain, ancestor), nil
}

func Linearize(sn store.Snapshot, name string) ([]string, error) {
	class, err := Lookup(sn, name)
	if err != nil {
		return nil, err
	}
	var chain []string
	for c := range AncestorsOf(sn, class) {
		chain = append(chain, c.Name())
	}
	return chain, nil
}

// AncestorsOf walks the class, then its parents depth-first from left to right,
// yielding each class the first time it is reached.
func AncestorsOf(sn store.Snapshot, class *model.Class) iter.Seq[*model.Class] {
	return func(yield func(*model.Class) bool) {
		seen := make(map[string]struct{})
		var visit func(c *model.Class) bool
		visit = func(c *model.Class) bool {
			if _, ok := seen[c.Name()]; ok {
				return true
			}
			seen[c.Name()] = struct{}{}
			if !yield(c) {
				return false
			}
			for _, parent := range c.Parents() {
				pc, ok := sn.Class(parent)
				if !ok {
					panic(fmt.Errorf("registry: %q refers to missing parent %q", c.Name(), parent))
				}
				if !visit(pc) {
					return false
				}
			}
			return true
		}
		visit(class)
	}
}
