package model

import (
	"strings"
	"time"
)

type PrayerName string

const (
	Fajr    PrayerName = "Fajr"
	Dhuhr   PrayerName = "Dhuhr"
	Asr     PrayerName = "Asr"
	Maghrib PrayerName = "Maghrib"
	Isha    PrayerName = "Isha"
)

// Prayers lists the five daily prayers in their fixed order.
var Prayers = []PrayerName{Fajr, Dhuhr, Asr, Maghrib, Isha}

var arabicNames = map[PrayerName]string{
	Fajr:    "الفجر",
	Dhuhr:   "الظهر",
	Asr:     "العصر",
	Maghrib: "المغرب",
	Isha:    "العشاء",
}

// Arabic returns the display name used in notifications.
func (p PrayerName) Arabic() string {
	if name, ok := arabicNames[p]; ok {
		return name
	}
	return string(p)
}

// ParsePrayer matches a prayer name case-insensitively.
func ParsePrayer(s string) (PrayerName, bool) {
	for _, p := range Prayers {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, true
		}
	}
	return "", false
}

type CalculationMethod string

const (
	MuslimWorldLeague     CalculationMethod = "MuslimWorldLeague"
	Egyptian              CalculationMethod = "Egyptian"
	Karachi               CalculationMethod = "Karachi"
	UmmAlQura             CalculationMethod = "UmmAlQura"
	Dubai                 CalculationMethod = "Dubai"
	MoonsightingCommittee CalculationMethod = "MoonsightingCommittee"
	NorthAmerica          CalculationMethod = "NorthAmerica"
	Kuwait                CalculationMethod = "Kuwait"
	Qatar                 CalculationMethod = "Qatar"
	Singapore             CalculationMethod = "Singapore"
	Tehran                CalculationMethod = "Tehran"
	Turkey                CalculationMethod = "Turkey"
)

type Madhab string

const (
	Shafi  Madhab = "Shafi"
	Hanafi Madhab = "Hanafi"
)

// DailyRecord maps each prayer to its completion flag. Absent entries read
// as false.
type DailyRecord map[PrayerName]bool

func NewDailyRecord() DailyRecord {
	r := make(DailyRecord, len(Prayers))
	for _, p := range Prayers {
		r[p] = false
	}
	return r
}

func (r DailyRecord) Done(p PrayerName) bool {
	return r[p]
}

// Completed counts the prayers marked done, 0 to 5.
func (r DailyRecord) Completed() int {
	n := 0
	for _, p := range Prayers {
		if r[p] {
			n++
		}
	}
	return n
}

func (r DailyRecord) Complete() bool {
	return r.Completed() == len(Prayers)
}

// Materialize returns a copy holding exactly the five prayers.
func (r DailyRecord) Materialize() DailyRecord {
	out := NewDailyRecord()
	for _, p := range Prayers {
		out[p] = r[p]
	}
	return out
}

// LogBook is the daily log keyed by date key (YYYY-MM-DD).
type LogBook map[string]DailyRecord

// Record returns the materialized record for a date; unknown dates are all
// false.
func (b LogBook) Record(date string) DailyRecord {
	return b[date].Materialize()
}

func (b LogBook) Has(date string) bool {
	_, ok := b[date]
	return ok
}

// Oldest returns the smallest date key present.
func (b LogBook) Oldest() (string, bool) {
	oldest := ""
	for k := range b {
		if oldest == "" || k < oldest {
			oldest = k
		}
	}
	return oldest, oldest != ""
}

func (b LogBook) Clone() LogBook {
	out := make(LogBook, len(b))
	for k, v := range b {
		out[k] = v.Materialize()
	}
	return out
}

const DateLayout = "2006-01-02"

func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

func ParseDate(key string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, key, loc)
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from earlier to later, ignoring
// wall-clock time and DST shifts.
func DaysBetween(later, earlier time.Time) int {
	a := time.Date(later.Year(), later.Month(), later.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(earlier.Year(), earlier.Month(), earlier.Day(), 0, 0, 0, 0, time.UTC)
	return int((a.Unix() - b.Unix()) / 86400)
}
