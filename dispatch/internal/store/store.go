// Package store keeps classes, generics and methods in a single in-memory
// MVCC database, so a dispatch always reads one consistent snapshot.
package store

import (
	"fmt"
	"strings"

	memdb "github.com/hashicorp/go-memdb"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/model"
)

const (
	tableClass   = "class"
	tableGeneric = "generic"
	tableMethod  = "method"

	indexID      = "id"
	indexGeneric = "generic"
)

type classRow struct {
	Name  string
	Class *model.Class
}

type genericRow struct {
	Name    string
	Generic model.Generic
}

type methodRow struct {
	Key     string
	Generic string
	Method  *model.Method
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableClass: {
				Name: tableClass,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
			tableGeneric: {
				Name: tableGeneric,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
			tableMethod: {
				Name: tableMethod,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
					indexGeneric: {
						Name:    indexGeneric,
						Indexer: &memdb.StringFieldIndex{Field: "Generic"},
					},
				},
			},
		},
	}
}

// MethodKey is the unique row key of a method within the store.
func MethodKey(generic string, sig model.Signature) string {
	return generic + "\x00" + strings.Join(sig, "\x00")
}

// Store wraps the database. Writes are serialized by memdb itself.
type Store struct {
	db *memdb.MemDB
}

func New() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return &Store{db: db}, nil
}

// Snapshot returns a read-only view frozen at the time of the call.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{txn: s.db.Txn(false)}
}

// Update runs fn inside a write transaction.
// The transaction commits only if fn returns nil; otherwise nothing fn wrote is kept.
func (s *Store) Update(fn func(w Writer) error) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := fn(Writer{Snapshot: Snapshot{txn: txn}}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Snapshot reads from one transaction.
type Snapshot struct {
	txn *memdb.Txn
}

func (sn Snapshot) Class(name string) (*model.Class, bool) {
	raw := sn.first(tableClass, name)
	if raw == nil {
		return nil, false
	}
	return raw.(*classRow).Class, true
}

// Classes returns every class, ordered by name.
func (sn Snapshot) Classes() []*model.Class {
	var classes []*model.Class
	for raw := range sn.all(tableClass, indexID) {
		classes = append(classes, raw.(*classRow).Class)
	}
	return classes
}

func (sn Snapshot) Generic(name string) (model.Generic, bool) {
	raw := sn.first(tableGeneric, name)
	if raw == nil {
		return model.Generic{}, false
	}
	return raw.(*genericRow).Generic, true
}

// Generics returns every generic, ordered by name.
func (sn Snapshot) Generics() []model.Generic {
	var generics []model.Generic
	for raw := range sn.all(tableGeneric, indexID) {
		generics = append(generics, raw.(*genericRow).Generic)
	}
	return generics
}

func (sn Snapshot) Method(generic string, sig model.Signature) (*model.Method, bool) {
	raw := sn.first(tableMethod, MethodKey(generic, sig))
	if raw == nil {
		return nil, false
	}
	return raw.(*methodRow).Method, true
}

// Methods returns all methods registered for generic.
func (sn Snapshot) Methods(generic string) []*model.Method {
	var methods []*model.Method
	for raw := range sn.all(tableMethod, indexGeneric, generic) {
		methods = append(methods, raw.(*methodRow).Method)
	}
	return methods
}

func (sn Snapshot) first(table, id string) any {
	raw, err := sn.txn.First(table, indexID, id)
	if err != nil {
		// Only a schema mismatch gets here, which is a bug.
		panic(fmt.Errorf("store: lookup in %s failed: %w", table, err))
	}
	return raw
}

func (sn Snapshot) all(table, index string, args ...any) func(yield func(any) bool) {
	return func(yield func(any) bool) {
		it, err := sn.txn.Get(table, index, args...)
		if err != nil {
			panic(fmt.Errorf("store: scan of %s failed: %w", table, err))
		}
		for raw := it.Next(); raw != nil; raw = it.Next() {
			if !yield(raw) {
				return
			}
		}
	}
}

// Writer is a snapshot that can also write. Reads observe earlier writes of the same transaction.
type Writer struct {
	Snapshot
}

func (w Writer) PutClass(c *model.Class) error {
	if err := w.txn.Insert(tableClass, &classRow{Name: c.Name(), Class: c}); err != nil {
		return fmt.Errorf("failed to store class %q: %w", c.Name(), err)
	}
	return nil
}

func (w Writer) PutGeneric(g model.Generic) error {
	if err := w.txn.Insert(tableGeneric, &genericRow{Name: g.Name, Generic: g}); err != nil {
		return fmt.Errorf("failed to store generic %q: %w", g.Name, err)
	}
	return nil
}

// PutMethod inserts m, replacing any method with the same generic and signature.
func (w Writer) PutMethod(m *model.Method) error {
	row := &methodRow{
		Key:     MethodKey(m.Generic, m.Signature),
		Generic: m.Generic,
		Method:  m,
	}
	if err := w.txn.Insert(tableMethod, row); err != nil {
		return fmt.Errorf("failed to store method %s: %w", m, err)
	}
	return nil
}
