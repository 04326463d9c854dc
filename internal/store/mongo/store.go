// Package mongo stores each ledger collection in a MongoDB collection keyed by _id.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/noah-isme/campus-ledger/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store using the official MongoDB driver.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New creates a store over the named database.
func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// Migrate creates the indexes the ledger queries rely on.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ledger/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		store.CollectionFees: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "dueDate", Value: 1}}},
			{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "dueDate", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		store.CollectionPayments: {
			{Keys: bson.D{{Key: "feeId", Value: 1}}},
		},
		store.CollectionAttendance: {
			{Keys: bson.D{{Key: "classId", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "date", Value: -1}}},
		},
	}
}

func (s *Store) Create(ctx context.Context, collection, id string, doc store.Document) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, toBSON(id, doc))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s/%s: %w", collection, id, store.ErrAlreadyExists)
		}
		return fmt.Errorf("ledger/mongo: create %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var m bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("ledger/mongo: get %s/%s: %w", collection, id, err)
	}
	_, doc := fromBSON(m)
	return doc, nil
}

func (s *Store) Query(ctx context.Context, collection string, q store.Query) ([]store.Snapshot, error) {
	filter, err := buildFilter(q.Filters)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(buildSort(q.OrderBy))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ledger/mongo: query %s: %w", collection, err)
	}
	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("ledger/mongo: decode %s: %w", collection, err)
	}

	out := make([]store.Snapshot, 0, len(results))
	for _, m := range results {
		id, doc := fromBSON(m)
		out = append(out, store.Snapshot{ID: id, Data: doc})
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields store.Document) error {
	return s.update(ctx, store.Write{Kind: store.KindUpdate, Collection: collection, ID: id, Doc: fields})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("ledger/mongo: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Batch() store.Batch {
	return &batch{store: s}
}

func (s *Store) set(ctx context.Context, op store.Write) error {
	coll := s.db.Collection(op.Collection)
	var err error
	if op.Merge {
		_, err = coll.UpdateOne(ctx, bson.M{"_id": op.ID}, bson.M{"$set": bson.M(op.Doc)}, options.UpdateOne().SetUpsert(true))
	} else {
		_, err = coll.ReplaceOne(ctx, bson.M{"_id": op.ID}, toBSON(op.ID, op.Doc), options.Replace().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("ledger/mongo: set %s/%s: %w", op.Collection, op.ID, err)
	}
	return nil
}

func (s *Store) update(ctx context.Context, op store.Write) error {
	filter, err := buildFilter(op.Preconditions)
	if err != nil {
		return err
	}
	filter["_id"] = op.ID
	res, err := s.db.Collection(op.Collection).UpdateOne(ctx, filter, bson.M{"$set": bson.M(op.Doc)})
	if err != nil {
		return fmt.Errorf("ledger/mongo: update %s/%s: %w", op.Collection, op.ID, err)
	}
	if res.MatchedCount == 0 {
		if len(op.Preconditions) > 0 {
			return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, store.ErrPreconditionFailed)
		}
		return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, store.ErrNotFound)
	}
	return nil
}

type batch struct {
	store.Writes
	store *Store
}

// Commit runs the queued writes in a multi-document transaction. This
// requires a replica set or sharded cluster.
func (b *batch) Commit(ctx context.Context) error {
	if b.Len() == 0 {
		return nil
	}
	session, err := b.store.client.StartSession()
	if err != nil {
		return fmt.Errorf("ledger/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		for _, op := range b.Ops {
			var opErr error
			switch op.Kind {
			case store.KindSet:
				opErr = b.store.set(ctx, op)
			case store.KindUpdate:
				opErr = b.store.update(ctx, op)
			case store.KindDelete:
				_, opErr = b.store.db.Collection(op.Collection).DeleteOne(ctx, bson.M{"_id": op.ID})
			}
			if opErr != nil {
				return nil, opErr
			}
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) || errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("ledger/mongo: commit batch: %w", err)
	}
	return nil
}

// buildFilter translates store filters into a bson filter document.
func buildFilter(filters []store.Filter) (bson.M, error) {
	filter := bson.M{}
	for _, f := range filters {
		if err := store.ValidateField(f.Field); err != nil {
			return nil, err
		}
		var cond interface{}
		switch f.Op {
		case store.OpEq:
			cond = f.Value
		case store.OpLt:
			cond = bson.M{"$lt": f.Value}
		case store.OpLte:
			cond = bson.M{"$lte": f.Value}
		case store.OpGt:
			cond = bson.M{"$gt": f.Value}
		case store.OpGte:
			cond = bson.M{"$gte": f.Value}
		case store.OpIn:
			cond = bson.M{"$in": f.Value}
		default:
			return nil, fmt.Errorf("ledger/mongo: unsupported operator %q", f.Op)
		}
		existing, ok := filter[f.Field]
		if !ok {
			filter[f.Field] = cond
			continue
		}
		merged, err := mergeConditions(f.Field, existing, cond)
		if err != nil {
			return nil, err
		}
		filter[f.Field] = merged
	}
	return filter, nil
}

// mergeConditions combines two range conditions on the same field, e.g. a
// date lower and upper bound.
func mergeConditions(field string, a, b interface{}) (bson.M, error) {
	am, aok := a.(bson.M)
	bm, bok := b.(bson.M)
	if !aok || !bok {
		return nil, fmt.Errorf("ledger/mongo: conflicting equality filters on %s", field)
	}
	out := bson.M{}
	for k, v := range am {
		out[k] = v
	}
	for k, v := range bm {
		out[k] = v
	}
	return out, nil
}

func buildSort(orders []store.Order) bson.D {
	sort := make(bson.D, 0, len(orders)+1)
	for _, o := range orders {
		dir := 1
		if o.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: o.Field, Value: dir})
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}

func toBSON(id string, doc store.Document) bson.M {
	m := make(bson.M, len(doc)+1)
	for k, v := range doc {
		m[k] = v
	}
	m["_id"] = id
	return m
}

func fromBSON(m bson.M) (string, store.Document) {
	id, _ := m["_id"].(string)
	doc := make(store.Document, len(m))
	for k, v := range m {
		if k == "_id" {
			continue
		}
		doc[k] = v
	}
	return id, doc
}
