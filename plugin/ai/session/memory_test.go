package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSessionService runs the SessionService contract against a store.
func testSessionService(t *testing.T, svc SessionService) {
	ctx := context.Background()

	t.Run("Save_And_Load", func(t *testing.T) {
		s := New("contract-001")
		s.AppendTurn("删除和张三的会议", "找到多个匹配的事件")
		s.SetPending(&PendingSelection{
			Operation: "delete",
			Lang:      "zh",
			Candidates: []Candidate{
				{UID: "u1", Title: "和张三的会议", Start: time.Date(2025, 10, 4, 15, 0, 0, 0, time.UTC)},
				{UID: "u2", Title: "和张三的会议", Start: time.Date(2025, 10, 5, 9, 0, 0, 0, time.UTC)},
			},
		}, time.Now())
		require.NoError(t, svc.Save(ctx, s))

		loaded, err := svc.Load(ctx, "contract-001")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "contract-001", loaded.ID)
		assert.Len(t, loaded.Messages, 2)
		require.NotNil(t, loaded.Pending)
		assert.Equal(t, "delete", loaded.Pending.Operation)
		require.Len(t, loaded.Pending.Candidates, 2)
		assert.Equal(t, "u2", loaded.Pending.Candidates[1].UID)
		assert.True(t, loaded.Pending.Candidates[0].Start.Equal(s.Pending.Candidates[0].Start))
	})

	t.Run("Load_Nonexistent", func(t *testing.T) {
		loaded, err := svc.Load(ctx, "nonexistent")
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("Save_Overwrites", func(t *testing.T) {
		s := New("contract-002")
		require.NoError(t, svc.Save(ctx, s))
		s.Calendar = "Work"
		require.NoError(t, svc.Save(ctx, s))

		loaded, err := svc.Load(ctx, "contract-002")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "Work", loaded.Calendar)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, svc.Save(ctx, New("contract-003")))
		require.NoError(t, svc.Delete(ctx, "contract-003"))

		loaded, err := svc.Load(ctx, "contract-003")
		require.NoError(t, err)
		assert.Nil(t, loaded)

		assert.NoError(t, svc.Delete(ctx, "contract-003"))
	})

	t.Run("Sessions_Are_Isolated", func(t *testing.T) {
		a, b := New("iso-a"), New("iso-b")
		a.SetPending(&PendingSelection{Operation: "delete"}, time.Now())
		require.NoError(t, svc.Save(ctx, a))
		require.NoError(t, svc.Save(ctx, b))

		loaded, err := svc.Load(ctx, "iso-b")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Nil(t, loaded.Pending)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	testSessionService(t, NewMemoryStore(0))
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0)
	require.NoError(t, m.Save(ctx, New("copy")))

	loaded, err := m.Load(ctx, "copy")
	require.NoError(t, err)
	loaded.Calendar = "mutated"

	again, err := m.Load(ctx, "copy")
	require.NoError(t, err)
	assert.Empty(t, again.Calendar)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 3, 10, 0, 0, 0, time.UTC)
	m := NewMemoryStore(time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Save(ctx, New("old")))
	now = now.Add(45 * time.Second)
	require.NoError(t, m.Save(ctx, New("recent")))
	now = now.Add(30 * time.Second)

	loaded, err := m.Load(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, loaded, "expired session must not load")

	deleted, err := m.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, m.Len())

	loaded, err = m.Load(ctx, "recent")
	require.NoError(t, err)
	assert.NotNil(t, loaded)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s-%d", i%5)
			s, err := m.Load(ctx, id)
			assert.NoError(t, err)
			if s == nil {
				s = New(id)
			}
			s.AppendTurn("q", "a")
			assert.NoError(t, m.Save(ctx, s))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, m.Len())
}
