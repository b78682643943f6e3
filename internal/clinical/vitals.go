package clinical

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Vitals are normalized measurements: temperature in °F, weight in kg,
// height in m, blood pressure as "systolic/diastolic" mmHg.
type Vitals struct {
	BloodPressure    string   `json:"bloodPressure,omitempty"`
	HeartRate        *float64 `json:"heartRate,omitempty"`
	RespiratoryRate  *float64 `json:"respiratoryRate,omitempty"`
	OxygenSaturation *float64 `json:"oxygenSaturation,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	Weight           *float64 `json:"weight,omitempty"`
	Height           *float64 `json:"height,omitempty"`
	BMI              *float64 `json:"bmi,omitempty"`
}

// IsEmpty reports whether no measurement is present.
func (v Vitals) IsEmpty() bool {
	return v.BloodPressure == "" && v.HeartRate == nil && v.RespiratoryRate == nil &&
		v.OxygenSaturation == nil && v.Temperature == nil && v.Weight == nil &&
		v.Height == nil && v.BMI == nil
}

// FillBMI computes BMI when weight and height are present and BMI is not.
func FillBMI(v *Vitals) {
	if v.BMI != nil || v.Weight == nil || v.Height == nil || *v.Height <= 0 {
		return
	}
	v.BMI = Float(BMI(*v.Weight, *v.Height))
}

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

var (
	poundsPattern      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:lbs?|pounds?)\b`)
	kilogramsPattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:kgs?|kilograms?)\b`)
	feetInchesPattern  = regexp.MustCompile(`(?i)\b(\d)\s*(?:'|′|ft\.?|feet|foot)\s*(?:(\d{1,2}(?:\.\d+)?)\s*(?:"|″|''|in\b|inch(?:es)?\b)?)?`)
	centimetersPattern = regexp.MustCompile(`(?i)(\d{2,3}(?:\.\d+)?)\s*(?:cm|centimeters?)\b`)
	metersPattern      = regexp.MustCompile(`(?i)\b([12]\.\d{1,2})\s*(?:m|meters?|metres?)\b`)
	temperaturePattern = regexp.MustCompile(`(?i)(\d{2,3}(?:\.\d+)?)\s*°?\s*([CF])\b`)
	bpScanPattern      = regexp.MustCompile(`(?i)\b(?:bp|blood pressure)\b[:\s]*(\d{2,3})\s*(?:/|over)\s*(\d{2,3})`)
	heartRatePattern   = regexp.MustCompile(`(?i)(?:\b(?:hr|heart rate|pulse)\b[:\s]*(\d{2,3})|(\d{2,3})\s*bpm\b)`)
	respRatePattern    = regexp.MustCompile(`(?i)\b(?:rr|resp(?:iratory)? rate)\b[:\s]*(\d{1,2})`)
	spo2Pattern        = regexp.MustCompile(`(?i)\b(?:spo2|o2 sat(?:uration)?|oxygen saturation|sats?)\b[:\s]*(\d{2,3})\s*%?`)
)

// ScanVitals extracts vitals from raw note text with fixed patterns, applying
// the same unit conversions the model is instructed to use.
func ScanVitals(text string) Vitals {
	var v Vitals

	if m := poundsPattern.FindStringSubmatch(text); m != nil {
		v.Weight = Float(Kilograms(parse(m[1])))
	} else if m := kilogramsPattern.FindStringSubmatch(text); m != nil {
		v.Weight = Float(round(parse(m[1]), 0))
	}

	if m := feetInchesPattern.FindStringSubmatch(text); m != nil {
		v.Height = Float(MetersFromFeetInches(parse(m[1]), parse(m[2])))
	} else if m := centimetersPattern.FindStringSubmatch(text); m != nil {
		v.Height = Float(MetersFromCentimeters(parse(m[1])))
	} else if m := metersPattern.FindStringSubmatch(text); m != nil {
		v.Height = Float(round(parse(m[1]), 2))
	}

	for _, m := range temperaturePattern.FindAllStringSubmatch(text, -1) {
		value := parse(m[1])
		if strings.EqualFold(m[2], "C") && value >= 30 && value <= 45 {
			v.Temperature = Float(Fahrenheit(value))
			break
		}
		if strings.EqualFold(m[2], "F") && value >= 86 && value <= 113 {
			v.Temperature = Float(round(value, 1))
			break
		}
	}

	if m := bpScanPattern.FindStringSubmatch(text); m != nil {
		if bp, ok := NormalizeBloodPressure(m[1] + "/" + m[2]); ok {
			v.BloodPressure = bp
		}
	}

	if m := heartRatePattern.FindStringSubmatch(text); m != nil {
		if m[1] != "" {
			v.HeartRate = Float(parse(m[1]))
		} else {
			v.HeartRate = Float(parse(m[2]))
		}
	}
	if m := respRatePattern.FindStringSubmatch(text); m != nil {
		v.RespiratoryRate = Float(parse(m[1]))
	}
	if m := spo2Pattern.FindStringSubmatch(text); m != nil {
		if value := parse(m[1]); value <= 100 {
			v.OxygenSaturation = Float(value)
		}
	}

	FillBMI(&v)
	return v
}

func parse(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// Correction records a vital that was filled or overridden by SpotCheck.
type Correction struct {
	Field    string   `json:"field"`
	Reported *float64 `json:"reported,omitempty"`
	Value    *float64 `json:"value,omitempty"`
	Text     string   `json:"text,omitempty"`
	Action   string   `json:"action"`
}

const (
	ActionFilled     = "filled"
	ActionOverridden = "overridden"
)

type numericField struct {
	name      string
	tolerance float64
	get       func(*Vitals) **float64
}

var numericFields = []numericField{
	{"temperature", 0.2, func(v *Vitals) **float64 { return &v.Temperature }},
	{"weight", 1, func(v *Vitals) **float64 { return &v.Weight }},
	{"height", 0.02, func(v *Vitals) **float64 { return &v.Height }},
	{"heartRate", 1, func(v *Vitals) **float64 { return &v.HeartRate }},
	{"respiratoryRate", 1, func(v *Vitals) **float64 { return &v.RespiratoryRate }},
	{"oxygenSaturation", 1, func(v *Vitals) **float64 { return &v.OxygenSaturation }},
}

// SpotCheck reconciles model-reported vitals with a deterministic scan of the
// source text. Values the scan found are filled in when missing and replace
// model values that disagree beyond a per-field tolerance. BMI is recomputed
// when weight or height changed. The returned corrections list each change.
func SpotCheck(reported *Vitals, scanned Vitals) []Correction {
	var corrections []Correction
	bodyChanged := false

	for _, f := range numericFields {
		want := *f.get(&scanned)
		if want == nil {
			continue
		}
		have := f.get(reported)
		switch {
		case *have == nil:
			corrections = append(corrections, Correction{Field: f.name, Value: Float(*want), Action: ActionFilled})
		case math.Abs(**have-*want) > f.tolerance:
			corrections = append(corrections, Correction{Field: f.name, Reported: Float(**have), Value: Float(*want), Action: ActionOverridden})
		default:
			continue
		}
		*have = Float(*want)
		if f.name == "weight" || f.name == "height" {
			bodyChanged = true
		}
	}

	// Weights are reported in whole kilograms.
	if reported.Weight != nil {
		reported.Weight = Float(round(*reported.Weight, 0))
	}

	if scanned.BloodPressure != "" {
		current, _ := NormalizeBloodPressure(reported.BloodPressure)
		switch {
		case reported.BloodPressure == "":
			corrections = append(corrections, Correction{Field: "bloodPressure", Text: scanned.BloodPressure, Action: ActionFilled})
			reported.BloodPressure = scanned.BloodPressure
		case current != scanned.BloodPressure:
			corrections = append(corrections, Correction{Field: "bloodPressure", Text: scanned.BloodPressure, Action: ActionOverridden})
			reported.BloodPressure = scanned.BloodPressure
		default:
			reported.BloodPressure = current
		}
	} else if bp, ok := NormalizeBloodPressure(reported.BloodPressure); ok {
		reported.BloodPressure = bp
	}

	if bodyChanged && reported.Weight != nil && reported.Height != nil {
		computed := BMI(*reported.Weight, *reported.Height)
		if reported.BMI == nil || math.Abs(*reported.BMI-computed) > 0.1 {
			corrections = append(corrections, Correction{Field: "bmi", Reported: reported.BMI, Value: Float(computed), Action: bmiAction(reported.BMI)})
			reported.BMI = Float(computed)
		}
	}
	FillBMI(reported)

	return corrections
}

func bmiAction(reported *float64) string {
	if reported == nil {
		return ActionFilled
	}
	return ActionOverridden
}
