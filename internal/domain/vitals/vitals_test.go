package vitals_test

import (
	"math/rand"
	"testing"

	model "wardline/internal/domain/model"
	"wardline/internal/domain/vitals"

	. "github.com/smartystreets/goconvey/convey"
)

func inBand(v model.Vitals) bool {
	return v.HeartRate >= vitals.HeartRateMin && v.HeartRate <= vitals.HeartRateMax &&
		v.SpO2 >= vitals.SpO2Min && v.SpO2 <= vitals.SpO2Max &&
		v.Temp >= vitals.TempMin && v.Temp <= vitals.TempMax &&
		v.BloodPressure >= vitals.BPMin && v.BloodPressure <= vitals.BPMax
}

func TestBaseline(t *testing.T) {
	Convey("Given the baseline vitals", t, func() {
		v := vitals.Baseline()

		Convey("They sit inside every band", func() {
			So(inBand(v), ShouldBeTrue)
			So(v.HeartRate, ShouldEqual, 80)
			So(v.SpO2, ShouldEqual, 97)
			So(v.Temp, ShouldEqual, 37.0)
			So(v.BloodPressure, ShouldEqual, 120)
		})
	})
}

func TestApplyClamps(t *testing.T) {
	Convey("Given readings at a band edge", t, func() {
		v := model.Vitals{HeartRate: vitals.HeartRateMax, SpO2: vitals.SpO2Min, Temp: vitals.TempMax, BloodPressure: vitals.BPMin}

		Convey("When a delta pushes further out of band", func() {
			got := vitals.Apply(v, model.VitalsDelta{HeartRate: 50, SpO2: -10, Temp: 3.0, BloodPressure: -40})

			Convey("Then every field is clamped, not rejected", func() {
				So(got.HeartRate, ShouldEqual, vitals.HeartRateMax)
				So(got.SpO2, ShouldEqual, vitals.SpO2Min)
				So(got.Temp, ShouldEqual, vitals.TempMax)
				So(got.BloodPressure, ShouldEqual, vitals.BPMin)
			})
		})

		Convey("When a delta pulls back into band", func() {
			got := vitals.Apply(v, model.VitalsDelta{HeartRate: -10, SpO2: 5, Temp: -1.0, BloodPressure: 15})

			Convey("Then the fields move normally", func() {
				So(got.HeartRate, ShouldEqual, vitals.HeartRateMax-10)
				So(got.SpO2, ShouldEqual, vitals.SpO2Min+5)
				So(got.Temp, ShouldAlmostEqual, vitals.TempMax-1.0, 1e-9)
				So(got.BloodPressure, ShouldEqual, vitals.BPMin+15)
			})
		})
	})
}

func TestApplyStaysInBandUnderRandomSequences(t *testing.T) {
	Convey("Given long random degrade/recover sequences", t, func() {
		rng := rand.New(rand.NewSource(42))
		v := vitals.Baseline()

		Convey("The readings never leave their bands", func() {
			for i := 0; i < 10000; i++ {
				d := model.VitalsDelta{
					HeartRate:     rng.Intn(41) - 20,
					SpO2:          rng.Intn(11) - 5,
					Temp:          (rng.Float64() - 0.5) * 2,
					BloodPressure: rng.Intn(41) - 20,
				}
				v = vitals.Apply(v, d)
				if !inBand(v) {
					So(inBand(v), ShouldBeTrue)
				}
			}
			So(inBand(v), ShouldBeTrue)
		})
	})
}
