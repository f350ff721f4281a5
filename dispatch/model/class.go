package model

import (
	"reflect"
	"slices"
)

// Wildcard class names accepted in method signatures.
const (
	// Any matches every class, including a missing argument.
	Any = "ANY"
	// Missing matches only an argument the caller did not supply.
	Missing = "MISSING"
)

// Base classes used for values that are not objects.
const (
	ClassNull      = "NULL"
	ClassLogical   = "logical"
	ClassInteger   = "integer"
	ClassDouble    = "double"
	ClassCharacter = "character"
	ClassFunction  = "function"
	ClassList      = "list"
)

// BaseClasses lists the classes every registry starts with.
var BaseClasses = []string{
	ClassNull,
	ClassLogical,
	ClassInteger,
	ClassDouble,
	ClassCharacter,
	ClassFunction,
	ClassList,
}

// IsWildcard reports whether name is ANY or MISSING.
func IsWildcard(name string) bool {
	return name == Any || name == Missing
}

// Classed is implemented by any value that carries its own dispatch class.
type Classed interface {
	ClassName() string
}

// Property declares a named slot on a class.
// Class, when set, constrains values that are themselves Classed.
// Slice and map defaults are copied shallowly into each new object.
type Property struct {
	Name    string
	Class   string
	Default any
}

// ClassSpec describes a class to be defined.
type ClassSpec struct {
	Name       string
	Parents    []string
	Properties []Property
	Abstract   bool
	// Replace allows redefinition of an existing class with the same name.
	Replace bool
}

// Class is an immutable class definition.
type Class struct {
	name       string
	parents    []string
	declared   []Property
	properties []Property
	abstract   bool
}

// NewClass builds a class from its spec.
// inherited holds the effective properties collected from the parents, in order.
func NewClass(spec ClassSpec, inherited []Property) *Class {
	return &Class{
		name:       spec.Name,
		parents:    slices.Clone(spec.Parents),
		declared:   slices.Clone(spec.Properties),
		properties: mergeProperties(inherited, spec.Properties),
		abstract:   spec.Abstract,
	}
}

func (c *Class) Name() string      { return c.name }
func (c *Class) Parents() []string { return slices.Clone(c.parents) }
func (c *Class) Abstract() bool    { return c.abstract }

// Properties returns the effective properties, inherited ones first.
func (c *Class) Properties() []Property {
	return slices.Clone(c.properties)
}

// Property looks up an effective property by name.
func (c *Class) Property(name string) (Property, bool) {
	for _, p := range c.properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// SameDefinition reports whether spec would define exactly this class.
func (c *Class) SameDefinition(spec ClassSpec) bool {
	if c.name != spec.Name || c.abstract != spec.Abstract {
		return false
	}
	if !slices.Equal(c.parents, spec.Parents) {
		return false
	}
	return slices.EqualFunc(c.declared, spec.Properties, func(a, b Property) bool {
		return a.Name == b.Name && a.Class == b.Class && reflect.DeepEqual(a.Default, b.Default)
	})
}

func (c *Class) String() string { return c.name }

// mergeProperties keeps the first occurrence of each inherited name,
// then lets own declarations override in place or append.
func mergeProperties(inherited, own []Property) []Property {
	merged := make([]Property, 0, len(inherited)+len(own))
	index := make(map[string]int, len(inherited)+len(own))
	for _, p := range inherited {
		if _, ok := index[p.Name]; ok {
			continue
		}
		index[p.Name] = len(merged)
		merged = append(merged, p)
	}
	for _, p := range own {
		if i, ok := index[p.Name]; ok {
			merged[i] = p
			continue
		}
		index[p.Name] = len(merged)
		merged = append(merged, p)
	}
	return merged
}
