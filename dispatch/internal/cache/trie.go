package cache

import (
	"sync"
	"sync/atomic"
)

// trie maps a key path to a value through nested sync.Maps.
// All paths stored in one trie must have the same length.
type trie[O any] struct {
	root atomic.Pointer[sync.Map]
}

func newTrie[O any]() *trie[O] {
	t := &trie[O]{}
	t.root.Store(&sync.Map{})
	return t
}

func (t *trie[O]) Load(keys []string) (O, bool) {
	var zero O
	m, k := t.find(keys)
	if m == nil {
		return zero, false
	}
	v, ok := m.Load(k)
	if !ok {
		return zero, false
	}
	return v.(O), true
}

func (t *trie[O]) Store(keys []string, value O) {
	m, k := t.traverse(keys)
	m.Store(k, value)
}

// Reset drops every stored path.
func (t *trie[O]) Reset() {
	t.root.Store(&sync.Map{})
}

// find walks existing nodes only and returns nil when the path is absent.
func (t *trie[O]) find(keys []string) (*sync.Map, string) {
	length := len(keys)
	if length == 0 {
		panic("find: empty keys")
	}

	m := t.root.Load()
	for _, k := range keys[:length-1] {
		v, ok := m.Load(k)
		if !ok {
			return nil, ""
		}
		m = v.(*sync.Map)
	}
	return m, keys[length-1]
}

// traverse walks the path, creating missing nodes.
func (t *trie[O]) traverse(keys []string) (*sync.Map, string) {
	length := len(keys)
	if length == 0 {
		panic("traverse: empty keys")
	}

	m := t.root.Load()
	for _, k := range keys[:length-1] {
		v, _ := m.LoadOrStore(k, &sync.Map{})
		m = v.(*sync.Map)
	}
	return m, keys[length-1]
}
