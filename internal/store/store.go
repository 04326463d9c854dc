// Package store defines the document store contract the ledgers persist through.
//
// Documents are flat maps of JSON-compatible scalars keyed by caller supplied
// identifiers. Backends must apply a Batch atomically: either every queued
// operation is visible after Commit or none is.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Collections used by the ledgers.
const (
	CollectionFees       = "fees"
	CollectionPayments   = "payments"
	CollectionAttendance = "attendance"
)

var (
	ErrNotFound           = errors.New("store: document not found")
	ErrAlreadyExists      = errors.New("store: document already exists")
	ErrPreconditionFailed = errors.New("store: precondition failed")
)

// Document is a single stored record.
type Document map[string]interface{}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// String returns the string value stored under key.
func (d Document) String(key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

// StringPtr returns the string value stored under key or nil when absent.
func (d Document) StringPtr(key string) *string {
	v, ok := d[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// Snapshot pairs a document with its identifier.
type Snapshot struct {
	ID   string
	Data Document
}

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "=="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpIn  Op = "in"
)

// Filter restricts a query or guards a batched update.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Where builds a filter.
func Where(field string, op Op, value interface{}) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Order sorts query results by a field.
type Order struct {
	Field string
	Desc  bool
}

// Query describes a filtered, ordered read over one collection.
type Query struct {
	Filters []Filter
	OrderBy []Order
	Limit   int
}

// Store is the ledger store contract.
type Store interface {
	Create(ctx context.Context, collection, id string, doc Document) error
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	Update(ctx context.Context, collection, id string, fields Document) error
	Delete(ctx context.Context, collection, id string) error
	Batch() Batch
}

// Batch queues writes that are committed as one atomic unit.
type Batch interface {
	// Set writes doc under id. With merge the fields are merged into an
	// existing document, otherwise the document is replaced.
	Set(collection, id string, doc Document, merge bool)
	// Update patches an existing document. Every precondition must match the
	// stored document at commit time or the whole batch fails with
	// ErrPreconditionFailed.
	Update(collection, id string, fields Document, preconditions ...Filter)
	Delete(collection, id string)
	Len() int
	Commit(ctx context.Context) error
}

// OpKind identifies a queued batch operation.
type OpKind int

const (
	KindSet OpKind = iota
	KindUpdate
	KindDelete
)

// Write is one queued batch operation. Backends share it to build batches.
type Write struct {
	Kind          OpKind
	Collection    string
	ID            string
	Doc           Document
	Merge         bool
	Preconditions []Filter
}

// Writes is an embeddable queue implementing the non-commit half of Batch.
type Writes struct {
	Ops []Write
}

func (w *Writes) Set(collection, id string, doc Document, merge bool) {
	w.Ops = append(w.Ops, Write{Kind: KindSet, Collection: collection, ID: id, Doc: doc.Clone(), Merge: merge})
}

func (w *Writes) Update(collection, id string, fields Document, preconditions ...Filter) {
	w.Ops = append(w.Ops, Write{Kind: KindUpdate, Collection: collection, ID: id, Doc: fields.Clone(), Preconditions: preconditions})
}

func (w *Writes) Delete(collection, id string) {
	w.Ops = append(w.Ops, Write{Kind: KindDelete, Collection: collection, ID: id})
}

func (w *Writes) Len() int { return len(w.Ops) }

// Matches reports whether doc satisfies every filter.
func Matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !matchOne(doc[f.Field], f) {
			return false
		}
	}
	return true
}

func matchOne(actual interface{}, f Filter) bool {
	if f.Op == OpIn {
		for _, candidate := range toSlice(f.Value) {
			if c, ok := Compare(actual, candidate); ok && c == 0 {
				return true
			}
		}
		return false
	}
	c, ok := Compare(actual, f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case OpEq:
		return c == 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	default:
		return false
	}
}

func toSlice(v interface{}) []interface{} {
	switch vals := v.(type) {
	case []interface{}:
		return vals
	case []string:
		out := make([]interface{}, len(vals))
		for i, s := range vals {
			out[i] = s
		}
		return out
	default:
		return []interface{}{v}
	}
}

// Compare orders two scalar values of the same kind. ok is false when the
// values are not comparable (different kinds or a missing value).
func Compare(a, b interface{}) (int, bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if x == y {
			return 0, true
		}
		if !x {
			return -1, true
		}
		return 1, true
	}
	x, ok := toFloat(a)
	if !ok {
		return 0, false
	}
	y, ok := toFloat(b)
	if !ok {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// ValidateField rejects field names that are unsafe to embed in backend queries.
func ValidateField(field string) error {
	if field == "" {
		return fmt.Errorf("store: empty field name")
	}
	for _, r := range field {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("store: invalid field name %q", field)
		}
	}
	return nil
}
