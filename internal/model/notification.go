package model

import "time"

type SendStatus string

const (
	StatusPending SendStatus = "Pending"
	StatusDone    SendStatus = "Done"
	StatusFailed  SendStatus = "Failed"
)

const (
	DefaultSound   = "notifications.wav"
	DefaultChannel = "prayers_channel"
)

// Notification is one entry of the dispatcher queue. IDs are assigned by the
// caller; scheduling an ID that already exists replaces the entry.
type Notification struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	FireAt      time.Time  `json:"fire_at"`
	Sound       string     `json:"sound,omitempty"`
	Channel     string     `json:"channel,omitempty"`
	Status      SendStatus `json:"status"`
	Attempts    int        `json:"attempts"`
	LastAttempt time.Time  `json:"last_attempt"`
}

type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

type Settings struct {
	Coordinates          *Coordinates      `json:"coordinates"`
	LocationLabel        string            `json:"location_label"`
	Method               CalculationMethod `json:"calculation_method"`
	MethodOverridden     bool              `json:"method_overridden"`
	Madhab               Madhab            `json:"madhab"`
	NotificationsEnabled bool              `json:"notifications_enabled"`
	PushoverToken        string            `json:"pushover_token"`
	PushoverUser         string            `json:"pushover_user"`
	PasswordHash         string            `json:"password_hash"`
}

// Tasbih holds the ritual-repetition counters: an all-time total and one
// running total per date key.
type Tasbih struct {
	Total int            `json:"total"`
	Daily map[string]int `json:"daily"`
}

type AppSchema struct {
	Settings      Settings        `json:"settings"`
	Logs          LogBook         `json:"logs"`
	Tasbih        Tasbih          `json:"tasbih"`
	Notifications []*Notification `json:"notifications"`
}

// DefaultSettings mirrors a fresh install: no location yet, reminders on.
func DefaultSettings() Settings {
	return Settings{
		Method:               MuslimWorldLeague,
		Madhab:               Shafi,
		NotificationsEnabled: true,
	}
}
