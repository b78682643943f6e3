package clinical

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanVitals_NormalizationScenario(t *testing.T) {
	v := ScanVitals(`Patient is 176 lbs, 5'9", temp 38C`)

	require.NotNil(t, v.Weight)
	require.NotNil(t, v.Height)
	require.NotNil(t, v.Temperature)
	require.NotNil(t, v.BMI)

	assert.Equal(t, 80.0, *v.Weight)
	assert.Equal(t, 1.75, *v.Height)
	assert.Equal(t, 100.4, *v.Temperature)
	assert.InDelta(t, 26.1, *v.BMI, 0.05)
}

func TestScanVitals_MetricAndVitalSigns(t *testing.T) {
	v := ScanVitals("Wt 70 kg, height 175 cm. BP 130/85, HR 72, RR 16, SpO2 97% on room air, T 98.9 F")

	want := Vitals{
		BloodPressure:    "130/85",
		HeartRate:        Float(72),
		RespiratoryRate:  Float(16),
		OxygenSaturation: Float(97),
		Temperature:      Float(98.9),
		Weight:           Float(70),
		Height:           Float(1.75),
		BMI:              Float(22.9),
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("ScanVitals mismatch (-want +got):\n%s", diff)
	}
}

func TestScanVitals_NothingFound(t *testing.T) {
	v := ScanVitals("Patient reports feeling better today.")
	assert.True(t, v.IsEmpty())
}

func TestFillBMI(t *testing.T) {
	v := Vitals{Weight: Float(70), Height: Float(1.75)}
	FillBMI(&v)
	require.NotNil(t, v.BMI)
	assert.Equal(t, 22.9, *v.BMI)

	stated := Vitals{Weight: Float(70), Height: Float(1.75), BMI: Float(23.5)}
	FillBMI(&stated)
	assert.Equal(t, 23.5, *stated.BMI)

	partial := Vitals{Weight: Float(70)}
	FillBMI(&partial)
	assert.Nil(t, partial.BMI)
}

func TestSpotCheck_FillsAndOverrides(t *testing.T) {
	reported := Vitals{
		Weight:      Float(176),
		Temperature: Float(100.4),
	}
	scanned := ScanVitals(`Patient is 176 lbs, 5'9", temp 38C`)

	corrections := SpotCheck(&reported, scanned)

	assert.Equal(t, 80.0, *reported.Weight)
	assert.Equal(t, 1.75, *reported.Height)
	assert.Equal(t, 100.4, *reported.Temperature)
	require.NotNil(t, reported.BMI)
	assert.Equal(t, 26.1, *reported.BMI)

	byField := map[string]string{}
	for _, c := range corrections {
		byField[c.Field] = c.Action
	}
	assert.Equal(t, map[string]string{
		"weight": ActionOverridden,
		"height": ActionFilled,
		"bmi":    ActionFilled,
	}, byField)
}

func TestSpotCheck_AgreeingValuesUntouched(t *testing.T) {
	reported := Vitals{Temperature: Float(100.3), BloodPressure: "120 over 80"}
	scanned := ScanVitals("temp 38C, BP 120/80")

	corrections := SpotCheck(&reported, scanned)

	assert.Empty(t, corrections)
	assert.Equal(t, 100.3, *reported.Temperature)
	assert.Equal(t, "120/80", reported.BloodPressure)
}

func TestSpotCheck_WeightInWholeKilograms(t *testing.T) {
	reported := Vitals{Weight: Float(79.6)}
	scanned := ScanVitals("Patient is 176 lbs")

	corrections := SpotCheck(&reported, scanned)

	assert.Empty(t, corrections)
	assert.Equal(t, 80.0, *reported.Weight)

	unscanned := Vitals{Weight: Float(69.9)}
	SpotCheck(&unscanned, Vitals{})
	assert.Equal(t, 70.0, *unscanned.Weight)
}
