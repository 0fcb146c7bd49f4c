// Package catalog defines the closed sets of symptoms, remedial actions and
// urgency tiers that the generator and the scorer draw from. The sets are
// fixed at build time; selection is weighted-random.
package catalog

import (
	"math/rand"
	"time"

	"wardline/internal/domain/model"
)

// Remedial actions.
const (
	ActionGiveOxygen           = "give_oxygen"
	ActionGiveBetaBlocker      = "give_beta_blocker"
	ActionGiveAtropine         = "give_atropine"
	ActionGiveIVFluids         = "give_iv_fluids"
	ActionGiveAntipyretic      = "give_antipyretic"
	ActionGiveAntihypertensive = "give_antihypertensive"
	ActionGivePainkiller       = "give_painkiller"
	ActionGiveAntiemetic       = "give_antiemetic"
	ActionReassurePatient      = "reassure_patient"
	ActionGiveSedative         = "give_sedative"
)

// Urgency tier names.
const (
	TierRoutine  = "routine"
	TierUrgent   = "urgent"
	TierCritical = "critical"
)

// Symptom describes one kind of patient complaint. Triggered symptoms carry a
// vitals precondition and a positive priority; fallback complaints have
// priority 0, a nil trigger and are always eligible.
type Symptom struct {
	Name     string
	Label    string
	Priority int
	Action   string                  // the single correct remedial action
	Trigger  func(model.Vitals) bool // nil for fallback complaints
	Degrade  model.VitalsDelta       // applied on spawn and again on expiry
	Recover  model.VitalsDelta       // applied on correct resolution
}

// Tier controls a task's time-to-live and score magnitudes.
type Tier struct {
	Name         string
	Weight       int // selection weight out of the total across tiers
	TTL          time.Duration
	ScoreCorrect int
	ScoreWrong   int
	TeamPenalty  int
}

// GenericRecover is the small recovery applied when a symptom has no vector
// of its own.
var GenericRecover = model.VitalsDelta{HeartRate: -2, SpO2: 1, Temp: -0.1, BloodPressure: -2}

// Punitive is the small vitals hit applied on a wrong answer.
var Punitive = model.VitalsDelta{HeartRate: 3, SpO2: -1, Temp: 0.2, BloodPressure: 3}

// fallbackDegrade is shared by all generic complaints.
var fallbackDegrade = model.VitalsDelta{HeartRate: 2, Temp: 0.1, BloodPressure: 2}

var triggered = []Symptom{
	{
		Name:     "hypoxia",
		Label:    "Patient is short of breath, oxygen saturation dropping",
		Priority: 4,
		Action:   ActionGiveOxygen,
		Trigger:  func(v model.Vitals) bool { return v.SpO2 < 90 },
		Degrade:  model.VitalsDelta{HeartRate: 6, SpO2: -4},
		Recover:  model.VitalsDelta{HeartRate: -4, SpO2: 6},
	},
	{
		Name:     "tachycardia",
		Label:    "Heart is racing",
		Priority: 3,
		Action:   ActionGiveBetaBlocker,
		Trigger:  func(v model.Vitals) bool { return v.HeartRate > 120 },
		Degrade:  model.VitalsDelta{HeartRate: 10, BloodPressure: 4},
		Recover:  model.VitalsDelta{HeartRate: -12, BloodPressure: -4},
	},
	{
		Name:     "bradycardia",
		Label:    "Heart rate dangerously low",
		Priority: 3,
		Action:   ActionGiveAtropine,
		Trigger:  func(v model.Vitals) bool { return v.HeartRate < 55 },
		Degrade:  model.VitalsDelta{HeartRate: -8, SpO2: -1},
		Recover:  model.VitalsDelta{HeartRate: 10, SpO2: 1},
	},
	{
		Name:     "hypotension",
		Label:    "Blood pressure is crashing",
		Priority: 3,
		Action:   ActionGiveIVFluids,
		Trigger:  func(v model.Vitals) bool { return v.BloodPressure < 85 },
		Degrade:  model.VitalsDelta{HeartRate: 4, BloodPressure: -8},
		Recover:  model.VitalsDelta{HeartRate: -2, BloodPressure: 10},
	},
	{
		Name:     "high_fever",
		Label:    "Patient is burning up",
		Priority: 2,
		Action:   ActionGiveAntipyretic,
		Trigger:  func(v model.Vitals) bool { return v.Temp > 38.5 },
		Degrade:  model.VitalsDelta{HeartRate: 4, Temp: 0.6},
		Recover:  model.VitalsDelta{HeartRate: -2, Temp: -0.8},
	},
	{
		Name:     "hypertension",
		Label:    "Blood pressure through the roof",
		Priority: 2,
		Action:   ActionGiveAntihypertensive,
		Trigger:  func(v model.Vitals) bool { return v.BloodPressure > 160 },
		Degrade:  model.VitalsDelta{HeartRate: 2, BloodPressure: 10},
		Recover:  model.VitalsDelta{HeartRate: -2, BloodPressure: -12},
	},
}

var fallbacks = []Symptom{
	{Name: "headache", Label: "Patient complains of a pounding headache", Action: ActionGivePainkiller, Degrade: fallbackDegrade, Recover: GenericRecover},
	{Name: "nausea", Label: "Patient feels nauseous", Action: ActionGiveAntiemetic, Degrade: fallbackDegrade, Recover: GenericRecover},
	{Name: "anxiety", Label: "Patient is anxious and restless", Action: ActionReassurePatient, Degrade: fallbackDegrade, Recover: GenericRecover},
	{Name: "insomnia", Label: "Patient cannot sleep", Action: ActionGiveSedative, Degrade: fallbackDegrade, Recover: GenericRecover},
}

var tiers = []Tier{
	{Name: TierRoutine, Weight: 60, TTL: 20 * time.Second, ScoreCorrect: 10, ScoreWrong: 5, TeamPenalty: 5},
	{Name: TierUrgent, Weight: 30, TTL: 12 * time.Second, ScoreCorrect: 15, ScoreWrong: 8, TeamPenalty: 10},
	{Name: TierCritical, Weight: 10, TTL: 8 * time.Second, ScoreCorrect: 25, ScoreWrong: 12, TeamPenalty: 15},
}

// Triggered returns the vitals-driven symptom definitions.
func Triggered() []Symptom {
	out := make([]Symptom, len(triggered))
	copy(out, triggered)
	return out
}

// Fallbacks returns the generic complaints unrelated to vitals.
func Fallbacks() []Symptom {
	out := make([]Symptom, len(fallbacks))
	copy(out, fallbacks)
	return out
}

// Tiers returns all urgency tiers.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// SymptomByName looks a symptom up across both sets.
func SymptomByName(name string) (Symptom, bool) {
	for _, s := range triggered {
		if s.Name == name {
			return s, true
		}
	}
	for _, s := range fallbacks {
		if s.Name == name {
			return s, true
		}
	}
	return Symptom{}, false
}

// TierByName looks an urgency tier up by name.
func TierByName(name string) (Tier, bool) {
	for _, t := range tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}

// Actions returns every remedial action a client may submit.
func Actions() []string {
	return []string{
		ActionGiveOxygen, ActionGiveBetaBlocker, ActionGiveAtropine,
		ActionGiveIVFluids, ActionGiveAntipyretic, ActionGiveAntihypertensive,
		ActionGivePainkiller, ActionGiveAntiemetic, ActionReassurePatient,
		ActionGiveSedative,
	}
}

// PickSymptom selects a symptom for the given vitals. Triggered symptoms
// whose precondition holds are weighted by priority+1; when none trigger the
// fallback set is used with uniform weights.
func PickSymptom(v model.Vitals, rng *rand.Rand) Symptom {
	var matches []Symptom
	var weights []int
	for _, s := range triggered {
		if s.Trigger != nil && s.Trigger(v) {
			matches = append(matches, s)
			weights = append(weights, s.Priority+1)
		}
	}
	if len(matches) == 0 {
		for _, s := range fallbacks {
			matches = append(matches, s)
			weights = append(weights, s.Priority+1)
		}
	}
	return matches[weightedIndex(weights, rng)]
}

// PickTier rolls an urgency tier with the configured weights.
func PickTier(rng *rand.Rand) Tier {
	weights := make([]int, len(tiers))
	for i, t := range tiers {
		weights[i] = t.Weight
	}
	return tiers[weightedIndex(weights, rng)]
}

func weightedIndex(weights []int, rng *rand.Rand) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	roll := rng.Intn(total)
	for i, w := range weights {
		roll -= w
		if roll < 0 {
			return i
		}
	}
	return len(weights) - 1
}
