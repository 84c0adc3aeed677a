package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zaltra000/mihrab-sala/internal/model"
)

var (
	ErrUnknownPrayer        = errors.New("unknown prayer")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Store is the single source of truth for the daily log, settings, tasbih
// counters and the dispatcher queue. The whole document is written to the
// backend on every mutation; a failed write rolls the in-memory state back
// to the last persisted snapshot.
type Store struct {
	mu        sync.RWMutex
	backend   Backend
	data      *model.AppSchema
	persisted []byte
}

func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		data:    emptySchema(),
	}
}

func emptySchema() *model.AppSchema {
	return &model.AppSchema{
		Settings:      model.DefaultSettings(),
		Logs:          model.LogBook{},
		Tasbih:        model.Tasbih{Daily: map[string]int{}},
		Notifications: []*model.Notification{},
	}
}

func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}

	schema, err := decodeSchema(data)
	if err != nil {
		return err
	}
	s.data = schema
	s.persisted = data
	return nil
}

func decodeSchema(data []byte) (*model.AppSchema, error) {
	schema := emptySchema()
	if len(data) == 0 {
		return schema, nil
	}
	if err := json.Unmarshal(data, schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data: %w", err)
	}

	// Set defaults
	if schema.Settings.Method == "" {
		schema.Settings.Method = model.MuslimWorldLeague
	}
	if schema.Settings.Madhab == "" {
		schema.Settings.Madhab = model.Shafi
	}
	if schema.Logs == nil {
		schema.Logs = model.LogBook{}
	}
	if schema.Tasbih.Daily == nil {
		schema.Tasbih.Daily = map[string]int{}
	}
	if schema.Notifications == nil {
		schema.Notifications = []*model.Notification{}
	}
	return schema, nil
}

// update applies fn and persists the result while holding the write lock.
func (s *Store) update(ctx context.Context, fn func(d *model.AppSchema) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.data); err != nil {
		s.restoreLocked()
		return err
	}

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		s.restoreLocked()
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		s.restoreLocked()
		return fmt.Errorf("failed to save store: %w", err)
	}
	s.persisted = data
	return nil
}

func (s *Store) restoreLocked() {
	schema, err := decodeSchema(s.persisted)
	if err != nil {
		schema = emptySchema()
	}
	s.data = schema
}

// Toggle flips one prayer on one date, creating the record if needed, and
// returns the resulting record.
func (s *Store) Toggle(ctx context.Context, date string, prayer model.PrayerName) (model.DailyRecord, error) {
	canon, ok := model.ParsePrayer(string(prayer))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrayer, prayer)
	}

	var out model.DailyRecord
	err := s.update(ctx, func(d *model.AppSchema) error {
		rec := d.Logs.Record(date)
		rec[canon] = !rec[canon]
		d.Logs[date] = rec
		out = rec.Materialize()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Record returns the materialized record for date; never nil.
func (s *Store) Record(date string) model.DailyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Logs.Record(date)
}

// Logs returns a consistent copy of the whole daily log.
func (s *Store) Logs() model.LogBook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Logs.Clone()
}

func (s *Store) GetSettings() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings := s.data.Settings
	if settings.Coordinates != nil {
		c := *settings.Coordinates
		settings.Coordinates = &c
	}
	return settings
}

func (s *Store) UpdateSettings(ctx context.Context, fn func(settings *model.Settings)) (model.Settings, error) {
	err := s.update(ctx, func(d *model.AppSchema) error {
		fn(&d.Settings)
		return nil
	})
	if err != nil {
		return model.Settings{}, err
	}
	return s.GetSettings(), nil
}

// AddTasbih adds count repetitions for date and returns the all-time and
// per-date totals.
func (s *Store) AddTasbih(ctx context.Context, date string, count int) (total, today int, err error) {
	if count <= 0 {
		return 0, 0, fmt.Errorf("tasbih count must be positive, got %d", count)
	}
	err = s.update(ctx, func(d *model.AppSchema) error {
		d.Tasbih.Total += count
		d.Tasbih.Daily[date] += count
		total = d.Tasbih.Total
		today = d.Tasbih.Daily[date]
		return nil
	})
	return total, today, err
}

func (s *Store) Tasbih(date string) (total, today int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Tasbih.Total, s.data.Tasbih.Daily[date]
}

// UpsertNotifications inserts entries, replacing any existing entry that
// shares an ID.
func (s *Store) UpsertNotifications(ctx context.Context, items []model.Notification) error {
	return s.update(ctx, func(d *model.AppSchema) error {
		index := make(map[int]int, len(d.Notifications))
		for i, n := range d.Notifications {
			index[n.ID] = i
		}
		for _, item := range items {
			n := item
			if n.Status == "" {
				n.Status = model.StatusPending
			}
			if i, ok := index[n.ID]; ok {
				d.Notifications[i] = &n
				continue
			}
			index[n.ID] = len(d.Notifications)
			d.Notifications = append(d.Notifications, &n)
		}
		sortNotifications(d.Notifications)
		return nil
	})
}

// CancelNotifications drops pending entries with the given IDs. Unknown IDs
// are ignored.
func (s *Store) CancelNotifications(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	return s.update(ctx, func(d *model.AppSchema) error {
		kept := d.Notifications[:0]
		for _, n := range d.Notifications {
			if n.Status == model.StatusPending && drop[n.ID] {
				continue
			}
			kept = append(kept, n)
		}
		d.Notifications = kept
		return nil
	})
}

// UpdateNotification mutates a single entry in place.
func (s *Store) UpdateNotification(ctx context.Context, id int, fn func(n *model.Notification)) error {
	return s.update(ctx, func(d *model.AppSchema) error {
		for _, n := range d.Notifications {
			if n.ID == id {
				fn(n)
				return nil
			}
		}
		return fmt.Errorf("%w: %d", ErrNotificationNotFound, id)
	})
}

func (s *Store) GetAllNotifications() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Notification, 0, len(s.data.Notifications))
	for _, n := range s.data.Notifications {
		result = append(result, *n)
	}
	return result
}

func (s *Store) GetPending() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []model.Notification
	for _, n := range s.data.Notifications {
		if n.Status == model.StatusPending {
			pending = append(pending, *n)
		}
	}
	return pending
}

// PruneNotifications removes delivered or failed entries older than cutoff.
func (s *Store) PruneNotifications(ctx context.Context, cutoff time.Time) error {
	s.mu.RLock()
	stale := false
	for _, n := range s.data.Notifications {
		if n.Status != model.StatusPending && n.FireAt.Before(cutoff) {
			stale = true
			break
		}
	}
	s.mu.RUnlock()
	if !stale {
		return nil
	}

	return s.update(ctx, func(d *model.AppSchema) error {
		kept := d.Notifications[:0]
		for _, n := range d.Notifications {
			if n.Status != model.StatusPending && n.FireAt.Before(cutoff) {
				continue
			}
			kept = append(kept, n)
		}
		d.Notifications = kept
		return nil
	})
}

func sortNotifications(items []*model.Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].FireAt.Equal(items[j].FireAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].FireAt.Before(items[j].FireAt)
	})
}

func (s *Store) Close() error {
	return s.backend.Close()
}
