// Package recommend picks the daily content item from recent behaviour.
// Classification runs an ordered rule list (first match wins); selection
// inside the category is a deterministic function of the day of year.
package recommend

import (
	"time"

	"github.com/zaltra000/mihrab-sala/internal/content"
	"github.com/zaltra000/mihrab-sala/internal/model"
)

const window = 7

// Features summarises the last seven days plus tasbih counters and the
// calendar.
type Features struct {
	FajrMissed7            int  `json:"fajr_missed_7"`
	IshaMissed7            int  `json:"isha_missed_7"`
	TotalCompleted7        int  `json:"total_completed_7"`
	PerfectStreakFromToday int  `json:"perfect_streak_from_today"`
	MissedAllYesterday     bool `json:"missed_all_yesterday"`
	PerfectYesterday       bool `json:"perfect_yesterday"`
	IsFriday               bool `json:"is_friday"`
	RecordedDates          int  `json:"recorded_dates"`
	TasbihTotal            int  `json:"tasbih_total"`
	TasbihToday            int  `json:"tasbih_today"`
}

// Extract computes Features from the log as of today.
func Extract(logs model.LogBook, today time.Time, tasbihTotal, tasbihToday int) Features {
	f := Features{
		IsFriday:      today.Weekday() == time.Friday,
		RecordedDates: len(logs),
		TasbihTotal:   tasbihTotal,
		TasbihToday:   tasbihToday,
	}

	chain := true
	for i := 0; i < window; i++ {
		rec := logs.Record(model.DateKey(today.AddDate(0, 0, -i)))
		completed := rec.Completed()

		f.TotalCompleted7 += completed
		if !rec[model.Fajr] {
			f.FajrMissed7++
		}
		if !rec[model.Isha] {
			f.IshaMissed7++
		}

		if chain && completed == len(model.Prayers) {
			f.PerfectStreakFromToday++
		} else {
			chain = false
		}

		if i == 1 {
			f.MissedAllYesterday = completed == 0
			f.PerfectYesterday = completed == len(model.Prayers)
		}
	}
	return f
}

// Rule maps a predicate over Features to a category.
type Rule struct {
	Category content.Category
	Match    func(f Features) bool
}

// Rules are evaluated in order; the first match wins. GeneralMotivation is
// the fallback when none match.
var Rules = []Rule{
	{content.Friday, func(f Features) bool { return f.IsFriday }},
	{content.FajrStruggle, func(f Features) bool { return f.FajrMissed7 >= 4 }},
	{content.IshaStruggle, func(f Features) bool { return f.IshaMissed7 >= 4 }},
	{content.PrayerAbandonment, func(f Features) bool { return f.TotalCompleted7 == 0 && f.RecordedDates >= 2 }},
	{content.Repentance, func(f Features) bool { return f.MissedAllYesterday && f.TotalCompleted7 > 0 }},
	{content.PrayerExcellence, func(f Features) bool { return f.PerfectStreakFromToday >= 3 }},
	{content.TasbihExcellence, func(f Features) bool { return f.TasbihTotal > 500 && f.TasbihToday > 50 }},
	{content.TasbihNeglect, func(f Features) bool { return f.TotalCompleted7 >= 25 && f.TasbihToday == 0 }},
	{content.Consistency, func(f Features) bool { return f.PerfectStreakFromToday > 0 }},
}

func Classify(f Features) content.Category {
	for _, r := range Rules {
		if r.Match(f) {
			return r.Category
		}
	}
	return content.GeneralMotivation
}

// CategorySeed is the sum of the character codes of the first and last
// characters of the category name.
func CategorySeed(cat content.Category) int {
	name := []rune(string(cat))
	if len(name) == 0 {
		return 0
	}
	return int(name[0]) + int(name[len(name)-1])
}

// SelectIndex returns (dayOfYear + seed) mod n, or -1 for an empty category.
func SelectIndex(dayOfYear int, cat content.Category, n int) int {
	if n <= 0 {
		return -1
	}
	return (dayOfYear + CategorySeed(cat)) % n
}

type Recommendation struct {
	Category content.Category `json:"category"`
	Message  string           `json:"message"`
	Item     content.Item     `json:"item"`
	Features Features         `json:"features"`
}

type Engine struct {
	catalog *content.Catalog
}

func NewEngine(catalog *content.Catalog) *Engine {
	if catalog == nil {
		catalog = content.Default()
	}
	return &Engine{catalog: catalog}
}

// Select picks the item of cat for the given day. The same category and day
// always yield the same item.
func (e *Engine) Select(cat content.Category, day time.Time) content.Item {
	items := e.catalog.InCategory(cat)
	idx := SelectIndex(day.YearDay(), cat, len(items))
	if idx < 0 {
		return e.catalog.First()
	}
	return items[idx]
}

func (e *Engine) Recommend(logs model.LogBook, today time.Time, tasbihTotal, tasbihToday int) Recommendation {
	f := Extract(logs, today, tasbihTotal, tasbihToday)
	cat := Classify(f)
	return Recommendation{
		Category: cat,
		Message:  content.Message(cat),
		Item:     e.Select(cat, today),
		Features: f,
	}
}
