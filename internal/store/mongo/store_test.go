package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/noah-isme/campus-ledger/internal/store"
)

func TestBuildFilter(t *testing.T) {
	filter, err := buildFilter([]store.Filter{
		store.Where("studentId", store.OpEq, "S1"),
		store.Where("date", store.OpGte, "2025-09-01"),
		store.Where("date", store.OpLte, "2025-09-30"),
		store.Where("status", store.OpIn, []string{"pending", "overdue"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "S1", filter["studentId"])
	assert.Equal(t, bson.M{"$gte": "2025-09-01", "$lte": "2025-09-30"}, filter["date"])
	assert.Equal(t, bson.M{"$in": []string{"pending", "overdue"}}, filter["status"])
}

func TestBuildFilterRejectsConflictingEquality(t *testing.T) {
	_, err := buildFilter([]store.Filter{
		store.Where("status", store.OpEq, "pending"),
		store.Where("status", store.OpEq, "paid"),
	})
	require.Error(t, err)
}

func TestBuildSortAppendsIDTiebreak(t *testing.T) {
	sort := buildSort([]store.Order{{Field: "date", Desc: true}})
	assert.Equal(t, bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}}, sort)
}

func TestBSONRoundTripStripsID(t *testing.T) {
	m := toBSON("fee_1", store.Document{"status": "pending"})
	assert.Equal(t, "fee_1", m["_id"])

	id, doc := fromBSON(m)
	assert.Equal(t, "fee_1", id)
	assert.Equal(t, store.Document{"status": "pending"}, doc)
}
