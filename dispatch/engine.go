package dispatch

import (
	"fmt"
	"iter"
	"maps"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/internal/cache"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/internal/methods"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/internal/registry"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/internal/store"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/model"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// CacheStats reports dispatch cache traffic.
type CacheStats = cache.Stats

// resolution is what the dispatch cache remembers for one call shape.
type resolution struct {
	method *model.Method
	err    error
}

// Engine owns one class registry, one method table and their dispatch cache.
// All methods are safe for concurrent use.
type Engine struct {
	// writeMu orders definitions so that history follows commit order.
	writeMu sync.Mutex

	id      string
	config  Config
	logger  *zap.Logger
	store   *store.Store
	classes *registry.Registry
	methods *methods.Table
	cache   *cache.Cache[resolution]
	history *history
}

// NewEngine creates an engine whose registry already holds the base classes.
func NewEngine(config Config) (*Engine, error) {
	config = config.normalized()

	st, err := store.New()
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	logger := config.Logger.With(zap.String("engineId", id))
	c := cache.New[resolution](config.CacheShards)

	e := &Engine{
		id:      id,
		config:  config,
		logger:  logger,
		store:   st,
		classes: registry.New(st, c, logger),
		methods: methods.New(st, c, logger),
		cache:   c,
		history: newHistory(config.HistorySize),
	}
	if err := e.classes.Bootstrap(); err != nil {
		return nil, fmt.Errorf("failed to bootstrap base classes: %w", err)
	}
	logger.Debug("created dispatch engine",
		zap.Int("cacheShards", config.CacheShards),
		zap.Bool("cacheDisabled", config.DisableCache),
	)
	return e, nil
}

func (e *Engine) ID() string { return e.id }

// Class looks up or creates a class.
// An existing class with an identical definition is returned as is; any other
// existing class is replaced only when spec.Replace is set.
func (e *Engine) Class(spec model.ClassSpec) (*model.Class, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	start := time.Now()
	class, created, err := e.classes.Ensure(spec)
	if err != nil {
		return nil, err
	}
	if created {
		e.record(RevisionClass, class.Name(), start)
	}
	return class, nil
}

// LookupClass returns the named class.
func (e *Engine) LookupClass(name string) (*model.Class, error) {
	return e.classes.Lookup(name)
}

// Classes returns every class, base classes included, ordered by name.
func (e *Engine) Classes() []*model.Class {
	return e.classes.Classes()
}

// Ancestors returns the named class followed by its ancestors in method-resolution order.
func (e *Engine) Ancestors(name string) (iter.Seq[*model.Class], error) {
	return e.classes.Ancestors(name)
}

// Inherits reports whether value is an instance of class or of one of its descendants.
func (e *Engine) Inherits(value any, class string) (bool, error) {
	name, known := classOf(unwrap(value))
	if !known {
		if _, err := e.classes.Lookup(name); err != nil {
			return class == name, nil
		}
	}
	return e.classes.Inherits(name, class)
}

// NewObject constructs an instance of class.
// Properties not given take their declared defaults.
func (e *Engine) NewObject(class string, props map[string]any) (*Object, error) {
	c, err := e.classes.Lookup(class)
	if err != nil {
		return nil, err
	}
	if c.Abstract() {
		return nil, &model.AbstractClassError{Class: class}
	}

	var errs error
	for name, value := range props {
		errs = multierr.Append(errs, e.checkProp(c, name, value))
	}
	if errs != nil {
		return nil, errs
	}

	values := make(map[string]any, len(c.Properties()))
	for _, p := range c.Properties() {
		values[p.Name] = cloneDefault(p.Default)
	}
	maps.Copy(values, props)
	return &Object{class: c, props: values}, nil
}

// SetProp validates and stores one property value.
func (e *Engine) SetProp(obj *Object, name string, value any) error {
	if err := e.checkProp(obj.class, name, value); err != nil {
		return err
	}
	obj.props[name] = value
	return nil
}

func (e *Engine) checkProp(c *model.Class, name string, value any) error {
	p, ok := c.Property(name)
	if !ok {
		return &model.UnknownPropertyError{Class: c.Name(), Property: name}
	}
	if p.Class == "" || p.Class == model.Any {
		return nil
	}
	if class, _ := classOf(value); class == model.ClassNull {
		return nil
	}
	ok, err := e.Inherits(value, p.Class)
	if err != nil {
		return err
	}
	if !ok {
		got, _ := classOf(value)
		return &model.PropertyTypeError{Class: c.Name(), Property: name, Want: p.Class, Got: got}
	}
	return nil
}

// DefineGeneric creates a generic dispatching on its first arity arguments.
func (e *Engine) DefineGeneric(name string, arity int) (model.Generic, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	start := time.Now()
	generic, created, err := e.methods.DefineGeneric(name, arity)
	if err != nil {
		return model.Generic{}, err
	}
	if created {
		e.record(RevisionGeneric, name, start)
	}
	return generic, nil
}

// Generics returns every generic ordered by name.
func (e *Engine) Generics() []model.Generic {
	return e.methods.Generics()
}

// Register adds a method for generic under signature.
func (e *Engine) Register(generic string, signature model.Signature, impl model.Impl) (*model.Method, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	start := time.Now()
	method, err := e.methods.Register(generic, signature, impl)
	if err != nil {
		return nil, err
	}
	e.record(RevisionMethod, method.String(), start)
	return method, nil
}

// Method returns the method registered under exactly signature, without dispatch.
func (e *Engine) Method(generic string, signature ...string) (*model.Method, error) {
	return e.methods.Lookup(generic, signature)
}

// Methods returns every method of generic ordered by signature.
func (e *Engine) Methods(generic string) ([]*model.Method, error) {
	candidates, err := e.methods.Candidates(generic)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(candidates, func(a, b *model.Method) int {
		return slices.Compare(a.Signature, b.Signature)
	})
	return candidates, nil
}

// History returns recent revisions, oldest first.
func (e *Engine) History() []Revision {
	return e.history.snapshot()
}

func (e *Engine) CacheStats() CacheStats {
	return e.cache.Stats()
}

// record must be called with writeMu held.
func (e *Engine) record(kind RevisionKind, name string, start time.Time) {
	e.history.record(Revision{
		Generation: e.cache.Generation(),
		Kind:       kind,
		Name:       name,
		Span:       spanSince(start),
	})
}

// cloneDefault gives each object its own copy of a slice or map default.
// The copy is shallow.
func cloneDefault(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		c := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(c, rv)
		return c.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		c := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			c.SetMapIndex(iter.Key(), iter.Value())
		}
		return c.Interface()
	default:
		return v
	}
}
