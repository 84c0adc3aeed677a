// Package prayertime computes the daily prayer times for a location.
//
// The astronomical formulas follow the widely used sun-angle approach: solar
// declination and equation of time from the Julian date, hour angles for the
// twilight angles, and the shadow-length rule for Asr. Latitudes where a
// twilight angle is never reached fall back to a night-fraction estimate.
package prayertime

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zaltra000/mihrab-sala/internal/model"
)

var ErrUndefined = errors.New("prayer times undefined for this date and latitude")

// DefaultCoordinates is used when no location fix is available (Mecca).
var DefaultCoordinates = model.Coordinates{Latitude: 21.4225, Longitude: 39.8262}

const riseSetAngle = 0.833

type Times struct {
	Date    string    `json:"date"`
	Fajr    time.Time `json:"fajr"`
	Sunrise time.Time `json:"sunrise"`
	Dhuhr   time.Time `json:"dhuhr"`
	Asr     time.Time `json:"asr"`
	Maghrib time.Time `json:"maghrib"`
	Isha    time.Time `json:"isha"`
}

// For returns the time of one of the five prayers.
func (t Times) For(p model.PrayerName) time.Time {
	switch p {
	case model.Fajr:
		return t.Fajr
	case model.Dhuhr:
		return t.Dhuhr
	case model.Asr:
		return t.Asr
	case model.Maghrib:
		return t.Maghrib
	case model.Isha:
		return t.Isha
	}
	return time.Time{}
}

// Calculator produces the times for the civil date of date, expressed in
// date's location.
type Calculator interface {
	Times(coords model.Coordinates, date time.Time, params Params) (Times, error)
}

type Astronomical struct{}

var _ Calculator = Astronomical{}

func (Astronomical) Times(coords model.Coordinates, date time.Time, params Params) (Times, error) {
	if math.Abs(coords.Latitude) > 90 || math.Abs(coords.Longitude) > 180 {
		return Times{}, fmt.Errorf("invalid coordinates %.4f,%.4f", coords.Latitude, coords.Longitude)
	}
	if params.AsrFactor <= 0 {
		params.AsrFactor = 1
	}

	y, m, d := date.Date()
	s := solar{
		jd:  julianDate(y, int(m), d) - coords.Longitude/(15*24),
		lat: coords.Latitude,
	}

	// Hours of local mean solar time, seeded with rough guesses.
	fajr := s.angleTime(params.FajrAngle, 5, true)
	sunrise := s.angleTime(riseSetAngle, 6, true)
	dhuhr := s.midDay(12)
	asr := s.asrTime(params.AsrFactor, 13)
	sunset := s.angleTime(riseSetAngle, 18, false)
	if math.IsNaN(sunrise) || math.IsNaN(sunset) {
		return Times{}, ErrUndefined
	}

	maghrib := sunset
	if params.MaghribAngle > 0 {
		maghrib = s.angleTime(params.MaghribAngle, 18, false)
	}
	isha := math.NaN()
	if params.IshaInterval == 0 {
		isha = s.angleTime(params.IshaAngle, 18, false)
	}

	night := timeDiff(sunset, sunrise)
	fajr = adjustHighLat(fajr, sunrise, params.FajrAngle, night, true)
	if params.MaghribAngle > 0 {
		maghrib = adjustHighLat(maghrib, sunset, params.MaghribAngle, night, false)
	}
	if params.IshaInterval > 0 {
		isha = maghrib + float64(params.IshaInterval)/60
	} else {
		isha = adjustHighLat(isha, sunset, params.IshaAngle, night, false)
	}
	if math.IsNaN(asr) {
		return Times{}, ErrUndefined
	}

	base := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	loc := date.Location()
	at := func(hours float64, adjust int) time.Time {
		utc := hours - coords.Longitude/15 + float64(adjust)/60
		return base.Add(time.Duration(utc * float64(time.Hour))).Round(time.Minute).In(loc)
	}

	adj := params.Adjustments
	return Times{
		Date:    model.DateKey(date),
		Fajr:    at(fajr, adj.Fajr),
		Sunrise: at(sunrise, adj.Sunrise),
		Dhuhr:   at(dhuhr, adj.Dhuhr),
		Asr:     at(asr, adj.Asr),
		Maghrib: at(maghrib, adj.Maghrib),
		Isha:    at(isha, adj.Isha),
	}, nil
}

type solar struct {
	jd  float64
	lat float64
}

// position returns the sun's declination and the equation of time for a
// fraction of the day.
func (s solar) position(hours float64) (decl, eqt float64) {
	d := s.jd + hours/24 - 2451545.0
	g := fixAngle(357.529 + 0.98560028*d)
	q := fixAngle(280.459 + 0.98564736*d)
	l := fixAngle(q + 1.915*dsin(g) + 0.020*dsin(2*g))
	e := 23.439 - 0.00000036*d

	ra := darctan2(dcos(e)*dsin(l), dcos(l)) / 15
	eqt = q/15 - fixHour(ra)
	decl = darcsin(dsin(e) * dsin(l))
	return decl, eqt
}

func (s solar) midDay(hours float64) float64 {
	_, eqt := s.position(hours)
	return fixHour(12 - eqt)
}

// angleTime is the time the sun reaches angle degrees below the horizon,
// before noon when ccw is set. NaN when it never does.
func (s solar) angleTime(angle, hours float64, ccw bool) float64 {
	decl, _ := s.position(hours)
	noon := s.midDay(hours)
	cos := (-dsin(angle) - dsin(decl)*dsin(s.lat)) / (dcos(decl) * dcos(s.lat))
	if cos < -1 || cos > 1 {
		return math.NaN()
	}
	t := darccos(cos) / 15
	if ccw {
		return noon - t
	}
	return noon + t
}

// asrTime uses the shadow factor: 1 for the standard ruling, 2 for Hanafi.
func (s solar) asrTime(factor, hours float64) float64 {
	decl, _ := s.position(hours)
	angle := -darccot(factor + dtan(math.Abs(s.lat-decl)))
	return s.angleTime(angle, hours, false)
}

// adjustHighLat bounds a twilight time to a fraction of the night
// proportional to its angle.
func adjustHighLat(t, base, angle, night float64, ccw bool) float64 {
	portion := angle / 60 * night
	if ccw {
		if math.IsNaN(t) || timeDiff(t, base) > portion {
			return base - portion
		}
		return t
	}
	if math.IsNaN(t) || timeDiff(base, t) > portion {
		return base + portion
	}
	return t
}

func julianDate(year, month, day int) float64 {
	if month <= 2 {
		year--
		month += 12
	}
	a := math.Floor(float64(year) / 100)
	b := 2 - a + math.Floor(a/4)
	return math.Floor(365.25*float64(year+4716)) + math.Floor(30.6001*float64(month+1)) + float64(day) + b - 1524.5
}

func timeDiff(t1, t2 float64) float64 { return fixHour(t2 - t1) }

func dtr(d float64) float64 { return d * math.Pi / 180 }
func rtd(r float64) float64 { return r * 180 / math.Pi }

func dsin(d float64) float64 { return math.Sin(dtr(d)) }
func dcos(d float64) float64 { return math.Cos(dtr(d)) }
func dtan(d float64) float64 { return math.Tan(dtr(d)) }

func darcsin(x float64) float64     { return rtd(math.Asin(x)) }
func darccos(x float64) float64     { return rtd(math.Acos(x)) }
func darctan2(y, x float64) float64 { return rtd(math.Atan2(y, x)) }
func darccot(x float64) float64     { return rtd(math.Atan(1 / x)) }

func fixAngle(a float64) float64 { return fix(a, 360) }
func fixHour(a float64) float64  { return fix(a, 24) }

func fix(a, b float64) float64 {
	a = a - b*math.Floor(a/b)
	if a < 0 {
		return a + b
	}
	return a
}
