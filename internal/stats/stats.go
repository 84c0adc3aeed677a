// Package stats derives adherence statistics from the daily log. Everything
// here is a pure function of the log and the reference day.
package stats

import (
	"math"
	"time"

	"github.com/zaltra000/mihrab-sala/internal/model"
)

// NoPrayer is reported as the most missed prayer when nothing was missed.
const NoPrayer model.PrayerName = "none"

const weekDays = 7

type DayTotal struct {
	Date      string `json:"date"`
	Label     string `json:"label"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

type Stats struct {
	Week             []DayTotal               `json:"week"`
	WeeklyTotal      int                      `json:"weekly_total"`
	WeeklyPercentage int                      `json:"weekly_percentage"`
	CurrentStreak    int                      `json:"current_streak"`
	BestStreak       int                      `json:"best_streak"`
	TotalCompleted   int                      `json:"total_completed"`
	DaysLogged       int                      `json:"days_logged"`
	MissedCounts     map[model.PrayerName]int `json:"missed_counts"`
	MostMissed       model.PrayerName         `json:"most_missed"`
	MostMissedCount  int                      `json:"most_missed_count"`
}

// Compute builds the weekly series, streaks and miss counts as of today.
func Compute(logs model.LogBook, today time.Time) Stats {
	today = model.StartOfDay(today)

	st := Stats{
		Week:         make([]DayTotal, 0, weekDays),
		MissedCounts: make(map[model.PrayerName]int, len(model.Prayers)),
		MostMissed:   NoPrayer,
	}
	for _, p := range model.Prayers {
		st.MissedCounts[p] = 0
	}

	for i := weekDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		completed := logs.Record(model.DateKey(day)).Completed()
		st.WeeklyTotal += completed
		st.Week = append(st.Week, DayTotal{
			Date:      model.DateKey(day),
			Label:     day.Weekday().String(),
			Completed: completed,
			Total:     len(model.Prayers),
		})
	}
	if st.WeeklyTotal > 0 {
		possible := float64(weekDays * len(model.Prayers))
		st.WeeklyPercentage = int(math.Round(float64(st.WeeklyTotal) / possible * 100))
	}

	oldest, ok := oldestDate(logs, today.Location())
	if !ok {
		return st
	}

	run := 0
	span := model.DaysBetween(today, oldest)
	for i := 0; i <= span; i++ {
		key := model.DateKey(today.AddDate(0, 0, -i))
		rec := logs.Record(key)

		if logs.Has(key) {
			st.DaysLogged++
			st.TotalCompleted += rec.Completed()
		}
		for _, p := range model.Prayers {
			if !rec[p] {
				st.MissedCounts[p]++
			}
		}

		if rec.Complete() {
			run++
			if run > st.BestStreak {
				st.BestStreak = run
			}
		} else {
			run = 0
		}
	}

	st.CurrentStreak = CurrentStreak(logs, today)

	for _, p := range model.Prayers {
		if st.MissedCounts[p] > st.MostMissedCount {
			st.MostMissedCount = st.MissedCounts[p]
			st.MostMissed = p
		}
	}
	return st
}

// CurrentStreak counts consecutive complete days ending today. An unfinished
// today does not break the chain: when today is incomplete but yesterday is
// complete, counting starts from yesterday. Two incomplete days in a row
// (today and yesterday) give 0.
func CurrentStreak(logs model.LogBook, today time.Time) int {
	today = model.StartOfDay(today)

	start := 0
	if !logs.Record(model.DateKey(today)).Complete() {
		if !logs.Record(model.DateKey(today.AddDate(0, 0, -1))).Complete() {
			return 0
		}
		start = 1
	}

	streak := 0
	for i := start; ; i++ {
		if !logs.Record(model.DateKey(today.AddDate(0, 0, -i))).Complete() {
			return streak
		}
		streak++
	}
}

// oldestDate returns the earliest parseable date key in the log.
func oldestDate(logs model.LogBook, loc *time.Location) (time.Time, bool) {
	var oldest time.Time
	found := false
	for key := range logs {
		d, err := model.ParseDate(key, loc)
		if err != nil {
			continue
		}
		if !found || d.Before(oldest) {
			oldest = d
			found = true
		}
	}
	return oldest, found
}
