package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zaltra000/mihrab-sala/internal/model"
)

type memoryBackend struct {
	data    []byte
	saves   int
	failing bool
}

func (m *memoryBackend) Load(context.Context) ([]byte, error) { return m.data, nil }

func (m *memoryBackend) Save(_ context.Context, data []byte) error {
	if m.failing {
		return errors.New("disk full")
	}
	m.saves++
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memoryBackend) Close() error { return nil }

func newTestStore(t *testing.T) (*Store, *memoryBackend) {
	t.Helper()
	backend := &memoryBackend{}
	store := NewStore(backend)
	require.NoError(t, store.Load(context.Background()))
	return store, backend
}

func TestRecordDefaultsToAllFalse(t *testing.T) {
	store, _ := newTestStore(t)

	rec := store.Record("2030-01-01")
	require.Len(t, rec, 5)
	for _, p := range model.Prayers {
		assert.False(t, rec[p], "prayer %s", p)
	}
	assert.Equal(t, 0, rec.Completed())
}

func TestToggleTwiceRestoresValue(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Toggle(ctx, "2024-01-03", model.Asr)
	require.NoError(t, err)
	assert.True(t, rec[model.Asr])
	assert.Len(t, rec, 5)

	rec, err = store.Toggle(ctx, "2024-01-03", model.Asr)
	require.NoError(t, err)
	assert.False(t, rec[model.Asr])
	assert.Equal(t, 2, backend.saves, "every toggle is persisted")
	assert.True(t, store.Logs().Has("2024-01-03"), "record stays after returning to all false")
}

func TestToggleNormalisesPrayerName(t *testing.T) {
	store, _ := newTestStore(t)

	rec, err := store.Toggle(context.Background(), "2024-01-03", model.PrayerName("fajr"))
	require.NoError(t, err)
	assert.True(t, rec[model.Fajr])
	assert.Equal(t, 1, rec.Completed())

	stored := store.Logs()["2024-01-03"]
	assert.Len(t, stored, 5)
	assert.True(t, stored[model.Fajr])
}

func TestToggleRejectsUnknownPrayer(t *testing.T) {
	store, backend := newTestStore(t)

	_, err := store.Toggle(context.Background(), "2024-01-03", model.PrayerName("Witr"))
	assert.ErrorIs(t, err, ErrUnknownPrayer)
	assert.Zero(t, backend.saves)
}

func TestFailedSaveRollsBack(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()

	_, err := store.Toggle(ctx, "2024-01-01", model.Fajr)
	require.NoError(t, err)

	backend.failing = true
	_, err = store.Toggle(ctx, "2024-01-01", model.Dhuhr)
	require.Error(t, err)

	rec := store.Record("2024-01-01")
	assert.True(t, rec[model.Fajr])
	assert.False(t, rec[model.Dhuhr], "unsaved change must not be visible")
}

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "prayer-storage.json")

	store := NewStore(NewFileBackend(path))
	require.NoError(t, store.Load(ctx))

	_, err := store.Toggle(ctx, "2024-05-01", model.Maghrib)
	require.NoError(t, err)
	_, _, err = store.AddTasbih(ctx, "2024-05-01", 33)
	require.NoError(t, err)
	_, err = store.UpdateSettings(ctx, func(s *model.Settings) {
		s.Coordinates = &model.Coordinates{Latitude: 30.0444, Longitude: 31.2357}
		s.Method = model.Egyptian
		s.MethodOverridden = true
		s.NotificationsEnabled = false
	})
	require.NoError(t, err)

	reopened := NewStore(NewFileBackend(path))
	require.NoError(t, reopened.Load(ctx))

	assert.True(t, reopened.Record("2024-05-01")[model.Maghrib])
	total, today := reopened.Tasbih("2024-05-01")
	assert.Equal(t, 33, total)
	assert.Equal(t, 33, today)

	settings := reopened.GetSettings()
	require.NotNil(t, settings.Coordinates)
	assert.InDelta(t, 30.0444, settings.Coordinates.Latitude, 1e-9)
	assert.Equal(t, model.Egyptian, settings.Method)
	assert.True(t, settings.MethodOverridden)
	assert.False(t, settings.NotificationsEnabled)
	assert.Equal(t, model.Shafi, settings.Madhab)
}

func TestFreshStoreUsesDefaults(t *testing.T) {
	store := NewStore(NewFileBackend(filepath.Join(t.TempDir(), "none.json")))
	require.NoError(t, store.Load(context.Background()))

	settings := store.GetSettings()
	assert.Nil(t, settings.Coordinates)
	assert.Equal(t, model.MuslimWorldLeague, settings.Method)
	assert.True(t, settings.NotificationsEnabled)
}

func TestGormBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	gdb, err := gorm.Open(sqlite.Open("file:gorm_backend_roundtrip?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	backend, err := NewGormBackend(gdb, "prayer-storage")
	require.NoError(t, err)
	defer backend.Close()

	data, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	store := NewStore(backend)
	require.NoError(t, store.Load(ctx))
	_, err = store.Toggle(ctx, "2024-02-02", model.Isha)
	require.NoError(t, err)
	_, err = store.Toggle(ctx, "2024-02-02", model.Fajr)
	require.NoError(t, err)

	reopened := NewStore(backend)
	require.NoError(t, reopened.Load(ctx))
	assert.Equal(t, 2, reopened.Record("2024-02-02").Completed())

	var count int64
	require.NoError(t, gdb.Model(&Snapshot{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "upsert keeps a single row per namespace")
}

func TestNotificationsUpsertCancelAndPrune(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertNotifications(ctx, []model.Notification{
		{ID: 2, Title: "b", FireAt: base.Add(time.Hour)},
		{ID: 1, Title: "a", FireAt: base},
	}))
	require.NoError(t, store.UpsertNotifications(ctx, []model.Notification{
		{ID: 1, Title: "a2", FireAt: base.Add(2 * time.Hour)},
	}))

	pending := store.GetPending()
	require.Len(t, pending, 2)
	assert.Equal(t, 2, pending[0].ID, "sorted by fire time")
	assert.Equal(t, "a2", pending[1].Title, "same id replaces the entry")
	assert.Equal(t, model.StatusPending, pending[1].Status)

	require.NoError(t, store.CancelNotifications(ctx, []int{2, 42}))
	pending = store.GetPending()
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].ID)

	require.NoError(t, store.UpdateNotification(ctx, 1, func(n *model.Notification) {
		n.Status = model.StatusDone
	}))
	assert.Empty(t, store.GetPending())
	assert.Len(t, store.GetAllNotifications(), 1)

	err := store.UpdateNotification(ctx, 99, func(*model.Notification) {})
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	require.NoError(t, store.PruneNotifications(ctx, base.Add(24*time.Hour)))
	assert.Empty(t, store.GetAllNotifications())
}

func TestAddTasbihRejectsNonPositive(t *testing.T) {
	store, _ := newTestStore(t)
	_, _, err := store.AddTasbih(context.Background(), "2024-01-01", 0)
	assert.Error(t, err)
}
