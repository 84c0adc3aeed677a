package prayertime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zaltra000/mihrab-sala/internal/model"
)

var ErrUnknownMethod = errors.New("unknown calculation method")

// Adjustments are minute offsets applied after the astronomical times.
type Adjustments struct {
	Fajr    int
	Sunrise int
	Dhuhr   int
	Asr     int
	Maghrib int
	Isha    int
}

// Params feed the calculator. IshaInterval, when non-zero, places Isha that
// many minutes after Maghrib instead of using IshaAngle. MaghribAngle, when
// non-zero, replaces sunset for Maghrib.
type Params struct {
	Method       model.CalculationMethod
	FajrAngle    float64
	IshaAngle    float64
	IshaInterval int
	MaghribAngle float64
	AsrFactor    float64
	Adjustments  Adjustments
}

var presets = map[model.CalculationMethod]Params{
	model.MuslimWorldLeague:     {FajrAngle: 18, IshaAngle: 17, Adjustments: Adjustments{Dhuhr: 1}},
	model.Egyptian:              {FajrAngle: 19.5, IshaAngle: 17.5, Adjustments: Adjustments{Dhuhr: 1}},
	model.Karachi:               {FajrAngle: 18, IshaAngle: 18, Adjustments: Adjustments{Dhuhr: 1}},
	model.UmmAlQura:             {FajrAngle: 18.5, IshaInterval: 90},
	model.Dubai:                 {FajrAngle: 18.2, IshaAngle: 18.2, Adjustments: Adjustments{Sunrise: -3, Dhuhr: 3, Asr: 3, Maghrib: 3}},
	model.MoonsightingCommittee: {FajrAngle: 18, IshaAngle: 18, Adjustments: Adjustments{Dhuhr: 5, Maghrib: 3}},
	model.NorthAmerica:          {FajrAngle: 15, IshaAngle: 15, Adjustments: Adjustments{Dhuhr: 1}},
	model.Kuwait:                {FajrAngle: 18, IshaAngle: 17.5},
	model.Qatar:                 {FajrAngle: 18, IshaInterval: 90},
	model.Singapore:             {FajrAngle: 20, IshaAngle: 18, Adjustments: Adjustments{Dhuhr: 1}},
	model.Tehran:                {FajrAngle: 17.7, IshaAngle: 14, MaghribAngle: 4.5},
	model.Turkey:                {FajrAngle: 18, IshaAngle: 17, Adjustments: Adjustments{Sunrise: -7, Dhuhr: 5, Asr: 4, Maghrib: 7}},
}

// Methods lists the supported presets in display order.
var Methods = []model.CalculationMethod{
	model.MuslimWorldLeague, model.Egyptian, model.Karachi, model.UmmAlQura,
	model.Dubai, model.MoonsightingCommittee, model.NorthAmerica, model.Kuwait,
	model.Qatar, model.Singapore, model.Tehran, model.Turkey,
}

var MethodLabels = map[model.CalculationMethod]string{
	model.MuslimWorldLeague:     "رابطة العالم الإسلامي",
	model.Egyptian:              "الهيئة المصرية العامة للمساحة",
	model.Karachi:               "جامعة العلوم الإسلامية بكراتشي",
	model.UmmAlQura:             "جامعة أم القرى، مكة المكرمة",
	model.Dubai:                 "دبي",
	model.MoonsightingCommittee: "لجنة رؤية الهلال",
	model.NorthAmerica:          "الجمعية الإسلامية لأمريكا الشمالية (ISNA)",
	model.Kuwait:                "الكويت",
	model.Qatar:                 "قطر",
	model.Singapore:             "سنغافورة",
	model.Tehran:                "معهد الجيوفيزياء بجامعة طهران",
	model.Turkey:                "رئاسة الشؤون الدينية التركية",
}

// ParseMethod matches a preset name case-insensitively.
func ParseMethod(s string) (model.CalculationMethod, error) {
	for _, m := range Methods {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

func ParseMadhab(s string) (model.Madhab, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shafi":
		return model.Shafi, nil
	case "hanafi":
		return model.Hanafi, nil
	}
	return "", fmt.Errorf("unknown madhab %q", s)
}

// ParamsFor resolves a preset plus madhab into calculator parameters.
func ParamsFor(method model.CalculationMethod, madhab model.Madhab) (Params, error) {
	p, ok := presets[method]
	if !ok {
		return Params{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	p.Method = method
	p.AsrFactor = 1
	if madhab == model.Hanafi {
		p.AsrFactor = 2
	}
	return p, nil
}

// MethodForCountry picks the customary preset for an ISO 3166 alpha-2 code.
func MethodForCountry(code string) model.CalculationMethod {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "SA":
		return model.UmmAlQura
	case "EG", "SD", "LY":
		return model.Egyptian
	case "PK", "IN", "BD", "AF", "LK":
		return model.Karachi
	case "US", "CA":
		return model.NorthAmerica
	case "AE":
		return model.Dubai
	case "KW":
		return model.Kuwait
	case "QA":
		return model.Qatar
	case "SG", "MY", "ID":
		return model.Singapore
	case "TR":
		return model.Turkey
	case "IR":
		return model.Tehran
	default:
		return model.MuslimWorldLeague
	}
}
