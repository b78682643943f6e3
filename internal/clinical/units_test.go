package clinical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFahrenheit(t *testing.T) {
	assert.Equal(t, 98.6, Fahrenheit(37))
	assert.Equal(t, 100.4, Fahrenheit(38))
	assert.Equal(t, 32.0, Fahrenheit(0))
}

func TestKilograms(t *testing.T) {
	tests := []struct {
		pounds float64
		want   float64
	}{
		{154, 70},
		{176, 80},
		{220.462, 100},
		{100, 45},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Kilograms(tt.pounds), "Kilograms(%v)", tt.pounds)
	}
}

func TestMetersFromFeetInches(t *testing.T) {
	assert.Equal(t, 1.75, MetersFromFeetInches(5, 9))
	assert.Equal(t, 1.83, MetersFromFeetInches(6, 0))
}

func TestMetersFromCentimeters(t *testing.T) {
	assert.Equal(t, 1.75, MetersFromCentimeters(175))
	assert.Equal(t, 1.8, MetersFromCentimeters(180.2))
}

func TestBMI(t *testing.T) {
	assert.Equal(t, 22.9, BMI(70, 1.75))
	assert.Equal(t, 26.1, BMI(80, 1.75))
	assert.Equal(t, 0.0, BMI(70, 0))
}

func TestNormalizeBloodPressure(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"120/80", "120/80", true},
		{"120 / 80 mmHg", "120/80", true},
		{"120 over 80", "120/80", true},
		{" 135/85mmhg ", "135/85", true},
		{"80/120", "", false},
		{"high", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeBloodPressure(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStampNote(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "[2026-03-04T09:30:00Z] hypertension, well controlled", StampNote(now, " hypertension, well controlled "))
	assert.Equal(t, "[2026-03-04T09:30:00Z]", StampNote(now, "   "))
	assert.Equal(t, "[2026-03-04T09:30:00Z]", StampNote(now, ""))
}
