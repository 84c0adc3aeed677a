package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zaltra000/mihrab-sala/internal/config"
	"github.com/zaltra000/mihrab-sala/internal/model"
	"github.com/zaltra000/mihrab-sala/internal/storage"
)

// Delivered and failed entries are kept this long for the API listing.
const keepHistory = 48 * time.Hour

// Sender delivers one notification. Ready reports whether the sender can
// deliver with the current settings.
type Sender interface {
	Name() string
	Ready(settings model.Settings) bool
	Send(ctx context.Context, settings model.Settings, n model.Notification) error
}

// Worker is the local dispatcher. Its queue lives in the Store so pending
// notifications survive restarts.
type Worker struct {
	store         *storage.Store
	senders       []Sender
	retryInterval time.Duration
	maxAttempts   int
	staleAfter    time.Duration
	now           func() time.Time
	updateChan    chan struct{}
	onUpdate      func() // Callback when notifications are updated
}

func NewWorker(store *storage.Store, cfg config.DispatcherConfig, senders ...Sender) *Worker {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	retry := cfg.RetryInterval
	if retry <= 0 {
		retry = time.Minute
	}
	return &Worker{
		store:         store,
		senders:       senders,
		retryInterval: retry,
		maxAttempts:   maxAttempts,
		staleAfter:    cfg.StaleAfter,
		now:           time.Now,
		updateChan:    make(chan struct{}, 1),
	}
}

// SetOnUpdate sets a callback function that will be called when notifications are updated
func (w *Worker) SetOnUpdate(fn func()) {
	w.onUpdate = fn
}

// SetClock replaces the time source.
func (w *Worker) SetClock(now func() time.Time) {
	w.now = now
}

// Refresh signals the worker to re-evaluate the schedule immediately
func (w *Worker) Refresh() {
	select {
	case w.updateChan <- struct{}{}:
	default:
		// Channel already has a pending signal, no need to block
	}
}

// Permitted is true when at least one sender can deliver.
func (w *Worker) Permitted(_ context.Context) (bool, error) {
	return len(w.readySenders(w.store.GetSettings())) > 0, nil
}

func (w *Worker) Schedule(ctx context.Context, items []model.Notification) error {
	if err := w.store.UpsertNotifications(ctx, items); err != nil {
		return err
	}
	w.Refresh()
	return nil
}

func (w *Worker) Pending(_ context.Context) ([]int, error) {
	pending := w.store.GetPending()
	ids := make([]int, 0, len(pending))
	for _, n := range pending {
		ids = append(ids, n.ID)
	}
	return ids, nil
}

func (w *Worker) Cancel(ctx context.Context, ids []int) error {
	if err := w.store.CancelNotifications(ctx, ids); err != nil {
		return err
	}
	w.Refresh()
	return nil
}

func (w *Worker) Start(ctx context.Context) {
	slog.Info("Worker started (Event-Driven)", "senders", len(w.senders), "max_attempts", w.maxAttempts)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		// 1. Process due items and calculate next run time
		nextRun := w.checkAndProcess(ctx)

		// 2. Set timer
		if nextRun.IsZero() {
			timer.Stop()
			slog.Debug("No pending notifications. Worker idle.")
		} else {
			duration := nextRun.Sub(w.now())
			if duration < 0 {
				duration = 0 // Run immediately
			}
			timer.Reset(duration)
			slog.Debug("Next check scheduled", "in", duration, "at", nextRun.Format("15:04:05"))
		}

		// 3. Wait for event
		select {
		case <-ctx.Done():
			slog.Info("Worker stopped")
			return
		case <-w.updateChan:
			slog.Debug("Worker received update signal. Refreshing...")
		case <-timer.C:
		}
	}
}

// checkAndProcess sends due notifications and returns the time of the NEXT scheduled event
func (w *Worker) checkAndProcess(ctx context.Context) time.Time {
	settings := w.store.GetSettings()

	// Without a usable sender nothing can be delivered; idle until refreshed.
	ready := w.readySenders(settings)
	if len(ready) == 0 {
		return time.Time{}
	}

	now := w.now()
	changed := false
	var earliestNext time.Time
	track := func(t time.Time) {
		if earliestNext.IsZero() || t.Before(earliestNext) {
			earliestNext = t
		}
	}

	for _, n := range w.store.GetPending() {
		due := n.FireAt
		if n.Attempts > 0 {
			due = n.LastAttempt.Add(w.retryInterval)
		}
		if now.Before(due) {
			track(due)
			continue
		}

		if n.Attempts == 0 && w.staleAfter > 0 && now.Sub(n.FireAt) > w.staleAfter {
			slog.Warn("Dropping stale notification", "id", n.ID, "fire_at", n.FireAt.Format(time.RFC3339))
			changed = w.mark(ctx, n, func(m *model.Notification) { m.Status = model.StatusFailed }) || changed
			continue
		}

		slog.Info("Sending notification", "id", n.ID, "title", n.Title, "attempt", n.Attempts+1, "max", w.maxAttempts, "delay", now.Sub(n.FireAt))
		sendErr := w.deliver(ctx, settings, ready, n)

		attempts := n.Attempts + 1
		status := model.StatusPending
		switch {
		case sendErr == nil:
			status = model.StatusDone
		case attempts >= w.maxAttempts:
			status = model.StatusFailed
			slog.Error("Notification failed", "id", n.ID, "attempts", attempts, "error", sendErr)
		default:
			slog.Warn("Send failed, will retry", "id", n.ID, "in", w.retryInterval, "error", sendErr)
			track(now.Add(w.retryInterval))
		}

		changed = w.mark(ctx, n, func(m *model.Notification) {
			m.Attempts = attempts
			m.LastAttempt = now
			m.Status = status
		}) || changed
	}

	if err := w.store.PruneNotifications(ctx, now.Add(-keepHistory)); err != nil {
		slog.Error("Failed to prune notifications", "error", err)
	}

	if changed && w.onUpdate != nil {
		w.onUpdate()
	}
	return earliestNext
}

// deliver succeeds when at least one sender accepted the notification.
func (w *Worker) deliver(ctx context.Context, settings model.Settings, senders []Sender, n model.Notification) error {
	var errs []error
	delivered := false
	for _, s := range senders {
		if err := s.Send(ctx, settings, n); err != nil {
			errs = append(errs, err)
			slog.Warn("Sender failed", "sender", s.Name(), "id", n.ID, "error", err)
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	return errors.Join(errs...)
}

// mark applies fn to the stored entry unless it was cancelled or replaced by
// a resync while it was being sent.
func (w *Worker) mark(ctx context.Context, sent model.Notification, fn func(n *model.Notification)) bool {
	replaced := false
	err := w.store.UpdateNotification(ctx, sent.ID, func(n *model.Notification) {
		if !n.FireAt.Equal(sent.FireAt) || n.Status != model.StatusPending {
			replaced = true
			return
		}
		fn(n)
	})
	if err != nil {
		if !errors.Is(err, storage.ErrNotificationNotFound) {
			slog.Error("Failed to save store", "error", err)
		}
		return false
	}
	return !replaced
}

func (w *Worker) readySenders(settings model.Settings) []Sender {
	var ready []Sender
	for _, s := range w.senders {
		if s.Ready(settings) {
			ready = append(ready, s)
		}
	}
	return ready
}
