// Package scheduler keeps the dispatcher's pending notifications equal to the
// prayer instants of the coming days.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zaltra000/mihrab-sala/internal/config"
	"github.com/zaltra000/mihrab-sala/internal/model"
	"github.com/zaltra000/mihrab-sala/internal/prayertime"
)

var ErrPermissionDenied = errors.New("notification permission denied")

const (
	TestNotificationID = 9999

	titleTemplate = "حان الآن موعد صلاة %s"
	prayerBody    = "يا باغي الخير أقبل.. حان وقت اللقاء بربك، قم إلى صلاتك 🕌"
	testTitle     = "تجربة إشعار مِحْرَاب 🕌"
	testBody      = "هكذا ستبدو وتُسمع إشعارات الصلاة القادمة. نسأل الله القبول!"
)

// Dispatcher is the delivery side. Scheduling an existing ID replaces it and
// cancelling an unknown ID is a no-op.
type Dispatcher interface {
	Permitted(ctx context.Context) (bool, error)
	Schedule(ctx context.Context, items []model.Notification) error
	Pending(ctx context.Context) ([]int, error)
	Cancel(ctx context.Context, ids []int) error
}

type SettingsSource interface {
	GetSettings() model.Settings
}

type Scheduler struct {
	settings   SettingsSource
	calc       prayertime.Calculator
	dispatcher Dispatcher
	loc        *time.Location
	horizon    int
	debounce   time.Duration
	testDelay  time.Duration
	now        func() time.Time

	mu      sync.Mutex
	trigger chan struct{}
}

func New(settings SettingsSource, calc prayertime.Calculator, dispatcher Dispatcher, cfg config.SchedulerConfig, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = 7
	}
	return &Scheduler{
		settings:   settings,
		calc:       calc,
		dispatcher: dispatcher,
		loc:        loc,
		horizon:    horizon,
		debounce:   cfg.Debounce,
		testDelay:  cfg.TestDelay,
		now:        time.Now,
		trigger:    make(chan struct{}, 1),
	}
}

// SetClock replaces the time source.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// BuildDesired lists every prayer instant of the next horizon days that lies
// strictly after now. IDs run from 1 in chronological order.
func BuildDesired(calc prayertime.Calculator, coords model.Coordinates, params prayertime.Params, now time.Time, horizon int) ([]model.Notification, error) {
	var out []model.Notification
	for day := 0; day < horizon; day++ {
		date := now.AddDate(0, 0, day)
		times, err := calc.Times(coords, date, params)
		if err != nil {
			return nil, fmt.Errorf("prayer times for %s: %w", model.DateKey(date), err)
		}
		for _, p := range model.Prayers {
			at := times.For(p)
			if !at.After(now) {
				continue
			}
			out = append(out, model.Notification{
				ID:      len(out) + 1,
				Title:   fmt.Sprintf(titleTemplate, p.Arabic()),
				Body:    prayerBody,
				FireAt:  at,
				Sound:   model.DefaultSound,
				Channel: model.DefaultChannel,
				Status:  model.StatusPending,
			})
		}
	}
	return out, nil
}

// Sync replaces the dispatcher's pending set with the desired one. Disabled
// notifications clear the set; missing coordinates or a denied permission
// leave it untouched.
func (s *Scheduler) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.settings.GetSettings()
	if !settings.NotificationsEnabled {
		return s.cancelAll(ctx)
	}
	if settings.Coordinates == nil {
		slog.Info("No location yet, skipping notification sync")
		return nil
	}

	ok, err := s.dispatcher.Permitted(ctx)
	if err != nil {
		return fmt.Errorf("check permission: %w", err)
	}
	if !ok {
		return ErrPermissionDenied
	}

	params, err := prayertime.ParamsFor(settings.Method, settings.Madhab)
	if err != nil {
		return err
	}
	desired, err := BuildDesired(s.calc, *settings.Coordinates, params, s.now().In(s.loc), s.horizon)
	if err != nil {
		return err
	}

	// Full replace: a not-yet-fired test notification is cancelled too.
	if err := s.cancelAll(ctx); err != nil {
		return err
	}
	if len(desired) == 0 {
		return nil
	}
	if err := s.dispatcher.Schedule(ctx, desired); err != nil {
		return fmt.Errorf("schedule notifications: %w", err)
	}

	slog.Info("Prayer notifications scheduled", "count", len(desired), "method", settings.Method, "first", desired[0].FireAt.Format(time.RFC3339))
	return nil
}

func (s *Scheduler) cancelAll(ctx context.Context) error {
	ids, err := s.dispatcher.Pending(ctx)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.dispatcher.Cancel(ctx, ids); err != nil {
		return fmt.Errorf("cancel pending: %w", err)
	}
	slog.Info("Pending notifications cancelled", "count", len(ids))
	return nil
}

// Trigger requests a sync. Bursts of triggers within the debounce window
// collapse into a single sync.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run performs an initial sync and then serves triggers until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("Scheduler started", "horizon_days", s.horizon, "debounce", s.debounce)

	timer := time.NewTimer(0)
	fire := timer.C
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return
		case <-s.trigger:
			timer.Reset(s.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			if err := s.Sync(ctx); err != nil {
				if errors.Is(err, ErrPermissionDenied) {
					slog.Info("Notification permission not granted, nothing scheduled")
					continue
				}
				slog.Error("Notification sync failed", "error", err)
			}
		}
	}
}

// Test schedules a single notification a few seconds from now.
func (s *Scheduler) Test(ctx context.Context) (model.Notification, error) {
	ok, err := s.dispatcher.Permitted(ctx)
	if err != nil {
		return model.Notification{}, fmt.Errorf("check permission: %w", err)
	}
	if !ok {
		return model.Notification{}, ErrPermissionDenied
	}

	n := model.Notification{
		ID:      TestNotificationID,
		Title:   testTitle,
		Body:    testBody,
		FireAt:  s.now().In(s.loc).Add(s.testDelay),
		Sound:   model.DefaultSound,
		Channel: model.DefaultChannel,
		Status:  model.StatusPending,
	}
	if err := s.dispatcher.Schedule(ctx, []model.Notification{n}); err != nil {
		return model.Notification{}, fmt.Errorf("schedule test notification: %w", err)
	}
	slog.Info("Test notification scheduled", "fire_at", n.FireAt.Format(time.RFC3339))
	return n, nil
}
