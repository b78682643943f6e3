// Package clinical holds the deterministic normalization rules applied to
// structured medical data: unit conversions, blood pressure formatting, body
// part vocabulary and note timestamping.
package clinical

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	poundsPerKilogram = 2.20462
	metersPerInch     = 0.0254
)

// Fahrenheit converts Celsius to Fahrenheit, rounded to one decimal.
func Fahrenheit(celsius float64) float64 {
	return round(celsius*9/5+32, 1)
}

// Kilograms converts pounds to kilograms, rounded to whole kilograms.
func Kilograms(pounds float64) float64 {
	return round(pounds/poundsPerKilogram, 0)
}

// MetersFromFeetInches converts a feet/inches height to meters, rounded to
// two decimals.
func MetersFromFeetInches(feet, inches float64) float64 {
	return round((feet*12+inches)*metersPerInch, 2)
}

func MetersFromCentimeters(cm float64) float64 {
	return round(cm/100, 2)
}

// BMI is weight over height squared, rounded to one decimal. It returns 0
// when height is not positive.
func BMI(weightKg, heightM float64) float64 {
	if heightM <= 0 {
		return 0
	}
	return round(weightKg/(heightM*heightM), 1)
}

// BloodPressure formats a reading as "systolic/diastolic".
func BloodPressure(systolic, diastolic int) string {
	return fmt.Sprintf("%d/%d", systolic, diastolic)
}

var bloodPressurePattern = regexp.MustCompile(`(?i)^\s*(\d{2,3})\s*(?:/|over)\s*(\d{2,3})\s*(?:mm\s*hg)?\s*$`)

// NormalizeBloodPressure accepts "120/80", "120 / 80 mmHg" or "120 over 80"
// and returns the canonical "120/80" form.
func NormalizeBloodPressure(s string) (string, bool) {
	m := bloodPressurePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	sys, _ := strconv.Atoi(m[1])
	dia, _ := strconv.Atoi(m[2])
	if sys <= dia {
		return "", false
	}
	return BloodPressure(sys, dia), true
}

// StampNote prefixes text with the capture time in RFC 3339 UTC. Blank text
// yields the bare timestamp.
func StampNote(now time.Time, text string) string {
	stamp := "[" + now.UTC().Format(time.RFC3339) + "]"
	text = strings.TrimSpace(text)
	if text == "" {
		return stamp
	}
	return stamp + " " + text
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
