package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaltra000/mihrab-sala/internal/config"
	"github.com/zaltra000/mihrab-sala/internal/model"
	"github.com/zaltra000/mihrab-sala/internal/prayertime"
)

type fakeCalc struct {
	err   error
	calls int
}

func (f *fakeCalc) Times(_ model.Coordinates, date time.Time, _ prayertime.Params) (prayertime.Times, error) {
	f.calls++
	if f.err != nil {
		return prayertime.Times{}, f.err
	}
	y, m, d := date.Date()
	at := func(h int) time.Time { return time.Date(y, m, d, h, 0, 0, 0, date.Location()) }
	return prayertime.Times{
		Date:    model.DateKey(date),
		Fajr:    at(5),
		Sunrise: at(6),
		Dhuhr:   at(12),
		Asr:     at(15),
		Maghrib: at(18),
		Isha:    at(20),
	}, nil
}

type fakeDispatcher struct {
	mu        sync.Mutex
	denied    bool
	pending   map[int]model.Notification
	permitted int
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{pending: map[int]model.Notification{}}
}

func (f *fakeDispatcher) Permitted(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permitted++
	return !f.denied, nil
}

func (f *fakeDispatcher) Schedule(_ context.Context, items []model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range items {
		f.pending[n.ID] = n
	}
	return nil
}

func (f *fakeDispatcher) Pending(context.Context) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.pending))
	for id := range f.pending {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (f *fakeDispatcher) Cancel(_ context.Context, ids []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.pending, id)
	}
	return nil
}

func (f *fakeDispatcher) snapshot() map[int]model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int]model.Notification, len(f.pending))
	for k, v := range f.pending {
		out[k] = v
	}
	return out
}

type settingsStub struct {
	mu sync.Mutex
	s  model.Settings
}

func (st *settingsStub) GetSettings() model.Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

func (st *settingsStub) set(fn func(s *model.Settings)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
}

var now = time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)

func newTestScheduler(t *testing.T) (*Scheduler, *settingsStub, *fakeDispatcher, *fakeCalc) {
	t.Helper()
	settings := &settingsStub{s: model.DefaultSettings()}
	settings.s.Coordinates = &model.Coordinates{Latitude: 21.4225, Longitude: 39.8262}

	calc := &fakeCalc{}
	disp := newFakeDispatcher()
	s := New(settings, calc, disp, config.SchedulerConfig{HorizonDays: 7, Debounce: 20 * time.Millisecond, TestDelay: 3 * time.Second}, time.UTC)
	s.SetClock(func() time.Time { return now })
	return s, settings, disp, calc
}

func TestSyncSchedulesOnlyFutureInstants(t *testing.T) {
	s, _, disp, calc := newTestScheduler(t)

	require.NoError(t, s.Sync(context.Background()))
	pending := disp.snapshot()

	require.Len(t, pending, 32, "Fajr, Dhuhr and Asr of today are already past")
	assert.Equal(t, 7, calc.calls)
	for id := 1; id <= 32; id++ {
		n, ok := pending[id]
		require.True(t, ok, "id %d", id)
		assert.True(t, n.FireAt.After(now))
		assert.Equal(t, model.DefaultSound, n.Sound)
		assert.Equal(t, model.DefaultChannel, n.Channel)
	}
	assert.Equal(t, time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC), pending[1].FireAt)
	assert.Contains(t, pending[1].Title, "المغرب")
	assert.Equal(t, time.Date(2024, 5, 16, 20, 0, 0, 0, time.UTC), pending[32].FireAt)
}

func TestSyncIsIdempotent(t *testing.T) {
	s, _, disp, _ := newTestScheduler(t)

	require.NoError(t, s.Sync(context.Background()))
	first := disp.snapshot()
	require.NoError(t, s.Sync(context.Background()))

	assert.Equal(t, first, disp.snapshot())
}

func TestDisableClearsPending(t *testing.T) {
	s, settings, disp, _ := newTestScheduler(t)
	require.NoError(t, s.Sync(context.Background()))
	require.NotEmpty(t, disp.snapshot())

	settings.set(func(st *model.Settings) { st.NotificationsEnabled = false })
	require.NoError(t, s.Sync(context.Background()))

	assert.Empty(t, disp.snapshot())
}

func TestSyncReplacesStaleEntries(t *testing.T) {
	s, _, disp, _ := newTestScheduler(t)
	require.NoError(t, disp.Schedule(context.Background(), []model.Notification{{ID: 500, FireAt: now.Add(time.Hour)}}))

	require.NoError(t, s.Sync(context.Background()))
	_, stale := disp.snapshot()[500]
	assert.False(t, stale)
}

func TestSyncWithoutCoordinatesDoesNothing(t *testing.T) {
	s, settings, disp, calc := newTestScheduler(t)
	settings.set(func(st *model.Settings) { st.Coordinates = nil })

	require.NoError(t, s.Sync(context.Background()))
	assert.Empty(t, disp.snapshot())
	assert.Zero(t, calc.calls)
}

func TestPermissionDeniedKeepsPriorState(t *testing.T) {
	s, _, disp, _ := newTestScheduler(t)
	require.NoError(t, s.Sync(context.Background()))
	before := disp.snapshot()

	disp.denied = true
	err := s.Sync(context.Background())
	assert.True(t, errors.Is(err, ErrPermissionDenied))
	assert.Equal(t, before, disp.snapshot())
}

func TestCalculatorErrorLeavesPendingUntouched(t *testing.T) {
	s, _, disp, calc := newTestScheduler(t)
	require.NoError(t, s.Sync(context.Background()))
	before := disp.snapshot()

	calc.err = prayertime.ErrUndefined
	err := s.Sync(context.Background())
	assert.ErrorIs(t, err, prayertime.ErrUndefined)
	assert.Equal(t, before, disp.snapshot())
}

func TestTestNotification(t *testing.T) {
	s, _, disp, _ := newTestScheduler(t)

	n, err := s.Test(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TestNotificationID, n.ID)
	assert.Equal(t, now.Add(3*time.Second), n.FireAt)
	assert.Len(t, disp.snapshot(), 1)

	disp.denied = true
	_, err = s.Test(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSyncDropsPendingTestNotification(t *testing.T) {
	s, _, disp, _ := newTestScheduler(t)
	_, err := s.Test(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Sync(context.Background()))
	pending := disp.snapshot()
	_, kept := pending[TestNotificationID]
	assert.False(t, kept, "a resync is a full replace")
	assert.Len(t, pending, 32)
}

func TestRunCollapsesTriggers(t *testing.T) {
	s, settings, disp, _ := newTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)
	require.Eventually(t, func() bool { return len(disp.snapshot()) == 32 }, time.Second, 5*time.Millisecond)

	disp.mu.Lock()
	disp.permitted = 0
	disp.mu.Unlock()

	settings.set(func(st *model.Settings) { st.NotificationsEnabled = false })
	for i := 0; i < 5; i++ {
		s.Trigger()
	}
	require.Eventually(t, func() bool { return len(disp.snapshot()) == 0 }, time.Second, 5*time.Millisecond)

	settings.set(func(st *model.Settings) { st.NotificationsEnabled = true })
	for i := 0; i < 5; i++ {
		s.Trigger()
	}
	require.Eventually(t, func() bool { return len(disp.snapshot()) == 32 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	disp.mu.Lock()
	defer disp.mu.Unlock()
	assert.Equal(t, 1, disp.permitted, "a burst of triggers runs one sync")
}
