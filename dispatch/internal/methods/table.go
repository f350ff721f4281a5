// Package methods stores generic functions and their methods keyed by signature.
package methods

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/internal/store"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/model"
	"go.uber.org/zap"
)

// Invalidator is notified after every committed registration.
type Invalidator interface {
	InvalidateAll()
}

type Table struct {
	store       *store.Store
	invalidator Invalidator
	logger      *zap.Logger
}

func New(st *store.Store, invalidator Invalidator, logger *zap.Logger) *Table {
	return &Table{
		store:       st,
		invalidator: invalidator,
		logger:      logger,
	}
}

// DefineGeneric creates the generic, or returns the existing one when the arity agrees.
// created is false when the generic already existed.
func (t *Table) DefineGeneric(name string, arity int) (generic model.Generic, created bool, err error) {
	if name == "" {
		return model.Generic{}, false, fmt.Errorf("%w: empty generic name", model.ErrUnknownGeneric)
	}
	if arity < 1 {
		return model.Generic{}, false, &model.ArityMismatchError{Generic: name, Want: 1, Got: arity}
	}

	generic = model.Generic{Name: name, Arity: arity}
	err = t.store.Update(func(w store.Writer) error {
		if existing, ok := w.Generic(name); ok {
			if existing.Arity != arity {
				return &model.ArityMismatchError{Generic: name, Want: existing.Arity, Got: arity}
			}
			return nil
		}
		created = true
		return w.PutGeneric(generic)
	})
	if err != nil {
		return model.Generic{}, false, err
	}
	if created {
		t.logger.Debug("generic defined", zap.String("generic", name), zap.Int("arity", arity))
	}
	return generic, created, nil
}

// Generic returns the named generic.
func (t *Table) Generic(name string) (model.Generic, error) {
	return GenericOf(t.store.Snapshot(), name)
}

func GenericOf(sn store.Snapshot, name string) (model.Generic, error) {
	generic, ok := sn.Generic(name)
	if !ok {
		return model.Generic{}, &model.UnknownGenericError{Generic: name}
	}
	return generic, nil
}

// Generics returns all generics ordered by name.
func (t *Table) Generics() []model.Generic {
	return t.store.Snapshot().Generics()
}

// Register adds impl under signature, overwriting an identical signature.
// Every successful registration invalidates the dispatch cache.
func (t *Table) Register(generic string, signature model.Signature, impl model.Impl) (*model.Method, error) {
	if impl == nil {
		return nil, fmt.Errorf("method %s%s has no implementation", generic, signature.Key())
	}

	method := &model.Method{
		ID:        uuid.New().String(),
		Generic:   generic,
		Signature: slices.Clone(signature),
		Impl:      impl,
	}
	replaced := false
	err := t.store.Update(func(w store.Writer) error {
		g, err := GenericOf(w.Snapshot, generic)
		if err != nil {
			return err
		}
		if len(signature) != g.Arity {
			return &model.ArityMismatchError{Generic: generic, Want: g.Arity, Got: len(signature)}
		}
		for _, class := range signature {
			if model.IsWildcard(class) {
				continue
			}
			if _, ok := w.Class(class); !ok {
				return &model.UnknownClassError{Class: class}
			}
		}
		_, replaced = w.Method(generic, signature)
		return w.PutMethod(method)
	})
	if err != nil {
		t.logger.Warn("method registration rejected",
			zap.String("generic", generic),
			zap.Strings("signature", signature),
			zap.Error(err),
		)
		return nil, err
	}

	t.invalidator.InvalidateAll()
	t.logger.Debug("method registered",
		zap.String("generic", generic),
		zap.Stringer("signature", method.Signature),
		zap.String("methodId", method.ID),
		zap.Bool("replaced", replaced),
	)
	return method, nil
}

// Candidates returns every method registered for generic, in no particular order.
func (t *Table) Candidates(generic string) ([]*model.Method, error) {
	return CandidatesOf(t.store.Snapshot(), generic)
}

func CandidatesOf(sn store.Snapshot, generic string) ([]*model.Method, error) {
	if _, err := GenericOf(sn, generic); err != nil {
		return nil, err
	}
	return sn.Methods(generic), nil
}

// Lookup finds the method registered under exactly signature.
func (t *Table) Lookup(generic string, signature model.Signature) (*model.Method, error) {
	sn := t.store.Snapshot()
	g, err := GenericOf(sn, generic)
	if err != nil {
		return nil, err
	}
	if len(signature) != g.Arity {
		return nil, &model.ArityMismatchError{Generic: generic, Want: g.Arity, Got: len(signature)}
	}
	method, ok := sn.Method(generic, signature)
	if !ok {
		return nil, &model.NoApplicableMethodError{Generic: generic, Classes: slices.Clone(signature)}
	}
	return method, nil
}
