// Package memory is an in-process ledger store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/campus-ledger/internal/store"
)

// Operation names a store call that can be made to fail.
type Operation string

const (
	OpCreate Operation = "create"
	OpGet    Operation = "get"
	OpQuery  Operation = "query"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpCommit Operation = "commit"
)

var _ store.Store = (*Store)(nil)

// Store keeps collections in maps guarded by a single mutex.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]store.Document

	faults       map[Operation]error
	beforeCommit func()
}

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]store.Document),
		faults:      make(map[Operation]error),
	}
}

// Fail makes every subsequent call of op return err. A nil err clears the fault.
func (s *Store) Fail(op Operation, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// BeforeCommit registers fn to run once, right before the next batch commit
// is applied. Tests use it to interleave a competing write.
func (s *Store) BeforeCommit(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeCommit = fn
}

// Count returns the number of documents in a collection.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *Store) fault(op Operation) error {
	return s.faults[op]
}

func (s *Store) collection(name string) map[string]store.Document {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]store.Document)
		s.collections[name] = c
	}
	return c
}

func (s *Store) Create(_ context.Context, collection, id string, doc store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpCreate); err != nil {
		return err
	}
	c := s.collection(collection)
	if _, exists := c[id]; exists {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrAlreadyExists)
	}
	c[id] = doc.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, collection, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault(OpGet); err != nil {
		return nil, err
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return doc.Clone(), nil
}

func (s *Store) Query(_ context.Context, collection string, q store.Query) ([]store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault(OpQuery); err != nil {
		return nil, err
	}
	out := make([]store.Snapshot, 0)
	for id, doc := range s.collections[collection] {
		if store.Matches(doc, q.Filters) {
			out = append(out, store.Snapshot{ID: id, Data: doc.Clone()})
		}
	}
	sortSnapshots(out, q.OrderBy)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) Update(_ context.Context, collection, id string, fields store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpUpdate); err != nil {
		return err
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpDelete); err != nil {
		return err
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *Store) Batch() store.Batch {
	return &batch{store: s}
}

type batch struct {
	store.Writes
	store *Store
}

type docKey struct {
	collection string
	id         string
}

// Commit stages every write against a private view and only swaps it into
// the store when the whole batch applied cleanly.
func (b *batch) Commit(_ context.Context) error {
	s := b.store

	s.mu.Lock()
	hook := s.beforeCommit
	s.beforeCommit = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpCommit); err != nil {
		return err
	}

	staged := make(map[docKey]store.Document)
	deleted := make(map[docKey]bool)
	lookup := func(k docKey) (store.Document, bool) {
		if deleted[k] {
			return nil, false
		}
		if doc, ok := staged[k]; ok {
			return doc, true
		}
		doc, ok := s.collections[k.collection][k.id]
		if !ok {
			return nil, false
		}
		return doc.Clone(), true
	}

	for _, op := range b.Ops {
		k := docKey{collection: op.Collection, id: op.ID}
		switch op.Kind {
		case store.KindSet:
			current, exists := lookup(k)
			if op.Merge && exists {
				for field, v := range op.Doc {
					current[field] = v
				}
				staged[k] = current
			} else {
				staged[k] = op.Doc.Clone()
			}
			delete(deleted, k)
		case store.KindUpdate:
			current, exists := lookup(k)
			if !exists {
				if len(op.Preconditions) > 0 {
					return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, store.ErrPreconditionFailed)
				}
				return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, store.ErrNotFound)
			}
			if !store.Matches(current, op.Preconditions) {
				return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, store.ErrPreconditionFailed)
			}
			for field, v := range op.Doc {
				current[field] = v
			}
			staged[k] = current
		case store.KindDelete:
			delete(staged, k)
			deleted[k] = true
		}
	}

	for k, doc := range staged {
		s.collection(k.collection)[k.id] = doc
	}
	for k := range deleted {
		delete(s.collections[k.collection], k.id)
	}
	return nil
}

func sortSnapshots(items []store.Snapshot, orders []store.Order) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, o := range orders {
			c, ok := store.Compare(items[i].Data[o.Field], items[j].Data[o.Field])
			if !ok || c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return items[i].ID < items[j].ID
	})
}
