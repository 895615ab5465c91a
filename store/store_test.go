package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zwrong/Calendar-Agent/plugin/ai/metrics"
	"github.com/zwrong/Calendar-Agent/store"
	"github.com/zwrong/Calendar-Agent/store/db/memory"
)

var (
	cst     = time.FixedZone("CST", 8*3600)
	testRef = time.Date(2025, 10, 3, 10, 0, 0, 0, cst)
)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 10, day, hour, minute, 0, 0, cst)
}

func dayRange(day int) store.TimeRange {
	return store.TimeRange{Start: at(day, 0, 0), End: at(day+1, 0, 0)}
}

func newTestStore(t *testing.T, opts ...store.Option) (*store.Store, *memory.Driver) {
	t.Helper()
	driver := memory.New(
		store.Calendar{Name: "Work", Path: "/cal/work/"},
		store.Calendar{Name: "Home", Path: "/cal/home/"},
	)
	opts = append([]store.Option{store.WithClock(func() time.Time { return testRef })}, opts...)
	return store.New(driver, opts...), driver
}

func mustCreate(t *testing.T, s *store.Store, title string, start time.Time, d time.Duration) *store.Event {
	t.Helper()
	ev, err := s.Create(context.Background(), store.EventFields{Title: title, Start: start, End: start.Add(d)})
	require.NoError(t, err)
	return ev
}

func TestStore_CreateAndRead(t *testing.T) {
	ctx := context.Background()
	s, driver := newTestStore(t)

	created, err := s.Create(ctx, store.EventFields{
		Title:    "  和张三的会议 ",
		Location: "A301",
		Start:    at(4, 15, 0),
		End:      at(4, 16, 0),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, "和张三的会议", created.Title)
	assert.Equal(t, "/cal/work/", created.Calendar)
	assert.Equal(t, "Work", created.CalendarName)
	assert.Equal(t, "/cal/work/"+created.UID+".ics", created.Path)
	assert.Equal(t, 1, driver.Len())

	events, err := s.Read(ctx, dayRange(4), "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, created.UID, events[0].UID)
	assert.Equal(t, "和张三的会议", events[0].Title)
	assert.True(t, events[0].Start.Equal(at(4, 15, 0)))
	assert.True(t, events[0].End.Equal(at(4, 16, 0)))
}

func TestStore_CreateInvalidRange(t *testing.T) {
	s, driver := newTestStore(t)

	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"EndBeforeStart", at(4, 16, 0), at(4, 15, 0)},
		{"EndEqualsStart", at(4, 15, 0), at(4, 15, 0)},
		{"ZeroTimes", time.Time{}, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), store.EventFields{Title: "x", Start: tt.start, End: tt.end})
			assert.True(t, store.IsCode(err, store.CodeInvalidRange), "got %v", err)
		})
	}
	assert.Equal(t, 0, driver.Len())
}

func TestStore_ReadOrdering(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	mustCreate(t, s, "late", at(3, 16, 0), time.Hour)
	mustCreate(t, s, "b-early", at(3, 9, 0), time.Hour)
	mustCreate(t, s, "a-early", at(3, 9, 0), 30*time.Minute)
	mustCreate(t, s, "tomorrow", at(4, 9, 0), time.Hour)
	mustCreate(t, s, "overnight", at(2, 23, 0), 2*time.Hour)

	events, err := s.Read(ctx, dayRange(3), "")
	require.NoError(t, err)

	var titles []string
	for _, ev := range events {
		titles = append(titles, ev.Title)
	}
	assert.Equal(t, []string{"overnight", "a-early", "b-early", "late"}, titles)
}

func TestStore_ReadEmptyIsNotError(t *testing.T) {
	s, _ := newTestStore(t)
	events, err := s.Read(context.Background(), dayRange(3), "")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStore_ReadHalfOpen(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreate(t, s, "ends at midnight", at(3, 23, 0), time.Hour)
	mustCreate(t, s, "starts at midnight", at(4, 0, 0), time.Hour)

	events, err := s.Read(context.Background(), dayRange(4), "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "starts at midnight", events[0].Title)
}

func TestStore_CalendarResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultIsFirstCalendar", func(t *testing.T) {
		s, _ := newTestStore(t)
		ev := mustCreate(t, s, "x", at(4, 9, 0), time.Hour)
		assert.Equal(t, "Work", ev.CalendarName)
	})

	t.Run("ConfiguredDefault", func(t *testing.T) {
		s, _ := newTestStore(t, store.WithDefaultCalendar("home"))
		ev := mustCreate(t, s, "x", at(4, 9, 0), time.Hour)
		assert.Equal(t, "Home", ev.CalendarName)

		cals, err := s.ListCalendars(ctx)
		require.NoError(t, err)
		require.Len(t, cals, 2)
		assert.False(t, cals[0].Default)
		assert.True(t, cals[1].Default)
	})

	t.Run("ByNameAndPath", func(t *testing.T) {
		s, _ := newTestStore(t)
		for _, ref := range []store.CalendarRef{"HOME", "/cal/home/"} {
			ev, err := s.Create(ctx, store.EventFields{Title: "x", Start: at(4, 9, 0), End: at(4, 10, 0), Calendar: ref})
			require.NoError(t, err)
			assert.Equal(t, "/cal/home/", ev.Calendar)
		}

		events, err := s.Read(ctx, dayRange(4), "Work")
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("UnknownCalendar", func(t *testing.T) {
		s, _ := newTestStore(t)
		_, err := s.Read(ctx, dayRange(4), "Holidays")
		assert.True(t, store.IsCode(err, store.CodeNotFound))
		assert.ErrorIs(t, err, store.ErrCalendarNotFound)
	})
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	s, driver := newTestStore(t)

	mustCreate(t, s, "Design Review", at(6, 14, 0), time.Hour)
	mustCreate(t, s, "lunch", at(5, 12, 0), time.Hour)
	driver.Seed(&store.Event{UID: "seeded", Title: "standup", Description: "daily DESIGN sync", Start: at(4, 9, 0), End: at(4, 9, 15)})
	driver.Seed(&store.Event{UID: "old", Title: "design kickoff", Start: testRef.AddDate(0, -4, 0), End: testRef.AddDate(0, -4, 0).Add(time.Hour)})

	first, err := s.Search(ctx, "design", "")
	require.NoError(t, err)
	require.Len(t, first, 2, "the event outside the horizon is skipped")
	assert.Equal(t, "standup", first[0].Title)
	assert.Equal(t, "Design Review", first[1].Title)

	second, err := s.Search(ctx, "DESIGN", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	none, err := s.Search(ctx, "dentist", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_UpdateAmbiguous(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := mustCreate(t, s, "和张三的会议", at(4, 15, 0), time.Hour)
	b := mustCreate(t, s, "和张三的会议", at(5, 10, 0), time.Hour)
	mustCreate(t, s, "和李四的会议", at(4, 11, 0), time.Hour)

	newTitle := "renamed"
	_, err := s.Update(ctx, store.Selector{Title: "张三"}, store.EventPatch{Title: &newTitle})
	require.Error(t, err)

	se, ok := store.AsError(err)
	require.True(t, ok)
	assert.Equal(t, store.CodeAmbiguousTarget, se.Code)
	require.Len(t, se.Candidates, 2)
	assert.Equal(t, a.UID, se.Candidates[0].UID)
	assert.Equal(t, b.UID, se.Candidates[1].UID)

	events, err := s.Search(ctx, "renamed", "")
	require.NoError(t, err)
	assert.Empty(t, events, "nothing is changed on ambiguity")
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("MoveStartKeepsDuration", func(t *testing.T) {
		s, _ := newTestStore(t)
		ev := mustCreate(t, s, "review", at(4, 15, 0), 90*time.Minute)

		newStart := at(5, 16, 0)
		updated, err := s.Update(ctx, store.Selector{Title: "REVIEW"}, store.EventPatch{Start: &newStart})
		require.NoError(t, err)
		assert.Equal(t, ev.UID, updated.UID)
		assert.True(t, updated.End.Equal(at(5, 17, 30)))

		events, err := s.Read(ctx, dayRange(5), "")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, ev.UID, events[0].UID)
	})

	t.Run("WindowNarrowsTarget", func(t *testing.T) {
		s, _ := newTestStore(t)
		mustCreate(t, s, "sync", at(4, 9, 0), time.Hour)
		second := mustCreate(t, s, "sync", at(5, 9, 0), time.Hour)

		loc := "Room 2"
		window := dayRange(5)
		updated, err := s.Update(ctx, store.Selector{Title: "sync", Window: &window}, store.EventPatch{Location: &loc})
		require.NoError(t, err)
		assert.Equal(t, second.UID, updated.UID)
		assert.Equal(t, "Room 2", updated.Location)
	})

	t.Run("NotFound", func(t *testing.T) {
		s, _ := newTestStore(t)
		title := "x"
		_, err := s.Update(ctx, store.Selector{Title: "missing"}, store.EventPatch{Title: &title})
		assert.True(t, store.IsCode(err, store.CodeNotFound))
	})

	t.Run("InvalidRange", func(t *testing.T) {
		s, _ := newTestStore(t)
		mustCreate(t, s, "review", at(4, 15, 0), time.Hour)
		end := at(4, 14, 0)
		_, err := s.Update(ctx, store.Selector{Title: "review"}, store.EventPatch{End: &end})
		assert.True(t, store.IsCode(err, store.CodeInvalidRange))
	})

	t.Run("AllDay", func(t *testing.T) {
		s, _ := newTestStore(t)
		mustCreate(t, s, "offsite", at(4, 9, 0), time.Hour)
		start, end, allDay := at(6, 0, 0), at(7, 0, 0), true
		updated, err := s.Update(ctx, store.Selector{Title: "offsite"}, store.EventPatch{Start: &start, End: &end, AllDay: &allDay})
		require.NoError(t, err)
		assert.True(t, updated.AllDay)
	})
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, driver := newTestStore(t)

	ev := mustCreate(t, s, "dentist", at(4, 9, 0), time.Hour)
	deleted, err := s.Delete(ctx, store.Selector{Title: "dentist"})
	require.NoError(t, err)
	assert.Equal(t, ev.UID, deleted.UID)
	assert.Equal(t, 0, driver.Len())

	_, err = s.Delete(ctx, store.Selector{Title: "dentist"})
	assert.True(t, store.IsCode(err, store.CodeNotFound))
}

func TestStore_DeletedUIDNeverReused(t *testing.T) {
	ctx := context.Background()
	uids := []string{"UID-1", "UID-1", "UID-2"}
	var mu sync.Mutex
	next := func() string {
		mu.Lock()
		defer mu.Unlock()
		uid := uids[0]
		uids = uids[1:]
		return uid
	}
	s, driver := newTestStore(t, store.WithUIDGenerator(next))

	first := mustCreate(t, s, "one", at(4, 9, 0), time.Hour)
	require.Equal(t, "UID-1", first.UID)
	_, err := s.Delete(ctx, store.Selector{UID: "UID-1"})
	require.NoError(t, err)

	second := mustCreate(t, s, "two", at(4, 11, 0), time.Hour)
	assert.Equal(t, "UID-2", second.UID, "a deleted UID is skipped")

	// An object reappearing under a deleted UID is never resolved.
	driver.Seed(&store.Event{UID: "UID-1", Title: "ghost", Start: at(4, 13, 0), End: at(4, 14, 0)})
	_, err = s.Delete(ctx, store.Selector{UID: "UID-1"})
	assert.True(t, store.IsCode(err, store.CodeNotFound))

	events, err := s.Read(ctx, dayRange(4), "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "UID-2", events[0].UID)
}

func TestStore_DeleteAll(t *testing.T) {
	ctx := context.Background()
	s, driver := newTestStore(t)

	mustCreate(t, s, "会议 A", at(4, 9, 0), time.Hour)
	mustCreate(t, s, "会议 B", at(4, 14, 0), time.Hour)
	mustCreate(t, s, "会议 C", at(5, 9, 0), time.Hour)

	window := dayRange(4)
	deleted, err := s.DeleteAll(ctx, store.Selector{Title: "会议", Window: &window})
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
	assert.Equal(t, 1, driver.Len())

	_, err = s.DeleteAll(ctx, store.Selector{Title: "会议", Window: &window})
	assert.True(t, store.IsCode(err, store.CodeNotFound))
}

func TestStore_Transport(t *testing.T) {
	ctx := context.Background()

	t.Run("DriverFailure", func(t *testing.T) {
		s, driver := newTestStore(t)
		driver.Fail(errors.New("401 Unauthorized"))

		_, err := s.Read(ctx, dayRange(4), "")
		assert.True(t, store.IsCode(err, store.CodeTransport))
		_, err = s.Create(ctx, store.EventFields{Title: "x", Start: at(4, 9, 0), End: at(4, 10, 0)})
		assert.True(t, store.IsCode(err, store.CodeTransport))
		assert.ErrorContains(t, err, "401 Unauthorized")
	})

	t.Run("Timeout", func(t *testing.T) {
		s, driver := newTestStore(t, store.WithTimeout(20*time.Millisecond))
		driver.SetDelay(time.Second)

		start := time.Now()
		_, err := s.Search(ctx, "x", "")
		assert.True(t, store.IsCode(err, store.CodeTransport))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})
}

func TestStore_RecordsCalls(t *testing.T) {
	svc := metrics.NewService(prometheus.NewRegistry())
	s, _ := newTestStore(t, store.WithMetrics(svc))

	mustCreate(t, s, "x", at(4, 9, 0), time.Hour)

	stats := svc.GetStats(context.Background(), time.Time{})
	require.Contains(t, stats.DependencyStats, metrics.DependencyCalendar)
	// list_calendars + create
	assert.Equal(t, int64(2), stats.DependencyStats[metrics.DependencyCalendar].Calls)
}

func TestStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s, driver := newTestStore(t, store.WithConcurrency(2))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := at(4, 0, 0).Add(time.Duration(i) * time.Hour)
			_, err := s.Create(ctx, store.EventFields{Title: fmt.Sprintf("event %d", i), Start: start, End: start.Add(time.Hour)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, driver.Len())
}

func TestStore_UpdateMovesDayKeepingTime(t *testing.T) {
	s, _ := newTestStore(t)
	ev := mustCreate(t, s, "和张三的会议", at(4, 15, 0), 90*time.Minute)

	day := at(6, 0, 0)
	updated, err := s.Update(context.Background(), store.Selector{UID: ev.UID}, store.EventPatch{Day: &day})
	require.NoError(t, err)
	assert.True(t, updated.Start.Equal(at(6, 15, 0)))
	assert.True(t, updated.End.Equal(at(6, 16, 30)))
}
