package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-ledger/internal/store"
)

func TestCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Create(ctx, "fees", "f1", store.Document{"status": "pending"}))
	err := s.Create(ctx, "fees", "f1", store.Document{})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	doc, err := s.Get(ctx, "fees", "f1")
	require.NoError(t, err)
	assert.Equal(t, "pending", doc["status"])

	doc["status"] = "mutated"
	again, _ := s.Get(ctx, "fees", "f1")
	assert.Equal(t, "pending", again["status"], "returned documents are copies")

	require.NoError(t, s.Delete(ctx, "fees", "f1"))
	require.NoError(t, s.Delete(ctx, "fees", "missing"))
	_, err = s.Get(ctx, "fees", "f1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestQueryFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, "fees", "a", store.Document{"status": "pending", "dueDate": "2025-03-01"}))
	require.NoError(t, s.Create(ctx, "fees", "b", store.Document{"status": "pending", "dueDate": "2025-01-01"}))
	require.NoError(t, s.Create(ctx, "fees", "c", store.Document{"status": "paid", "dueDate": "2025-02-01"}))

	rows, err := s.Query(ctx, "fees", store.Query{
		Filters: []store.Filter{store.Where("status", store.OpEq, "pending")},
		OrderBy: []store.Order{{Field: "dueDate"}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].ID)
	assert.Equal(t, "a", rows[1].ID)

	rows, err = s.Query(ctx, "fees", store.Query{
		Filters: []store.Filter{store.Where("status", store.OpIn, []string{"paid", "overdue"})},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c", rows[0].ID)

	rows, err = s.Query(ctx, "fees", store.Query{
		OrderBy: []store.Order{{Field: "dueDate", Desc: true}},
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].ID)
}

func TestBatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, "fees", "f1", store.Document{"status": "paid"}))

	b := s.Batch()
	b.Set("payments", "p1", store.Document{"feeId": "f1"}, false)
	b.Update("fees", "f1", store.Document{"status": "paid"}, store.Where("status", store.OpIn, []string{"pending", "overdue"}))
	err := b.Commit(ctx)

	assert.ErrorIs(t, err, store.ErrPreconditionFailed)
	assert.Equal(t, 0, s.Count("payments"))
}

func TestBatchMergeSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, "attendance", "s1_2025-09-01", store.Document{"status": "present", "markedBy": "F1"}))

	b := s.Batch()
	b.Set("attendance", "s1_2025-09-01", store.Document{"status": "absent"}, true)
	b.Set("attendance", "s2_2025-09-01", store.Document{"status": "late"}, true)
	require.Equal(t, 2, b.Len())
	require.NoError(t, b.Commit(ctx))

	doc, err := s.Get(ctx, "attendance", "s1_2025-09-01")
	require.NoError(t, err)
	assert.Equal(t, "absent", doc["status"])
	assert.Equal(t, "F1", doc["markedBy"])
	assert.Equal(t, 2, s.Count("attendance"))
}

func TestFaultInjection(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("unavailable")
	s.Fail(OpCommit, boom)

	b := s.Batch()
	b.Set("fees", "f1", store.Document{}, false)
	assert.ErrorIs(t, b.Commit(ctx), boom)
	assert.Equal(t, 0, s.Count("fees"))

	s.Fail(OpCommit, nil)
	require.NoError(t, b.Commit(ctx))
	assert.Equal(t, 1, s.Count("fees"))
}

func TestBeforeCommitRunsOnce(t *testing.T) {
	ctx := context.Background()
	s := New()
	calls := 0
	s.BeforeCommit(func() { calls++ })

	require.NoError(t, s.Batch().Commit(ctx))
	require.NoError(t, s.Batch().Commit(ctx))
	assert.Equal(t, 1, calls)
}
