// Package vitals owns the physiological bands and the degrade/recover/clamp
// transitions for a room's readings.
package vitals

import "wardline/internal/domain/model"

// Band limits and baselines. Every reading stays inside its band at all
// times; out-of-band deltas are clamped, never rejected.
const (
	HeartRateMin = 40
	HeartRateMax = 180
	SpO2Min      = 70
	SpO2Max      = 100
	TempMin      = 34.0
	TempMax      = 41.0
	BPMin        = 70
	BPMax        = 190

	BaselineHeartRate = 80
	BaselineSpO2      = 97
	BaselineTemp      = 37.0
	BaselineBP        = 120
)

// Baseline returns the default readings used when a room has no vitals yet.
func Baseline() model.Vitals {
	return model.Vitals{
		HeartRate:     BaselineHeartRate,
		SpO2:          BaselineSpO2,
		Temp:          BaselineTemp,
		BloodPressure: BaselineBP,
	}
}

// Apply adds the delta field-wise and clamps each reading to its band
// independently.
func Apply(v model.Vitals, d model.VitalsDelta) model.Vitals {
	return model.Vitals{
		HeartRate:     clampInt(v.HeartRate+d.HeartRate, HeartRateMin, HeartRateMax),
		SpO2:          clampInt(v.SpO2+d.SpO2, SpO2Min, SpO2Max),
		Temp:          clampFloat(v.Temp+d.Temp, TempMin, TempMax),
		BloodPressure: clampInt(v.BloodPressure+d.BloodPressure, BPMin, BPMax),
	}
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func clampFloat(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
