package prayertime

import (
	"fmt"
	"time"

	"github.com/zaltra000/mihrab-sala/internal/model"
)

type Upcoming struct {
	Prayer    model.PrayerName `json:"prayer"`
	At        time.Time        `json:"at"`
	Remaining time.Duration    `json:"remaining"`
}

// Next returns the first prayer strictly after now, rolling over to the next
// day's Fajr once Isha has passed.
func Next(calc Calculator, coords model.Coordinates, params Params, now time.Time) (Upcoming, error) {
	today, err := calc.Times(coords, now, params)
	if err != nil {
		return Upcoming{}, fmt.Errorf("times for %s: %w", model.DateKey(now), err)
	}
	for _, p := range model.Prayers {
		if at := today.For(p); at.After(now) {
			return Upcoming{Prayer: p, At: at, Remaining: at.Sub(now)}, nil
		}
	}

	tomorrow, err := calc.Times(coords, now.AddDate(0, 0, 1), params)
	if err != nil {
		return Upcoming{}, fmt.Errorf("times for tomorrow: %w", err)
	}
	return Upcoming{Prayer: model.Fajr, At: tomorrow.Fajr, Remaining: tomorrow.Fajr.Sub(now)}, nil
}

// FormatRemaining renders a duration as HH:MM:SS.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s%3600/60, s%60)
}
