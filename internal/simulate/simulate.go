// Package simulate samples synthetic lifestyle attributes for a patient
// record from conditional probabilities over its clinical fields.
package simulate

import (
	"math"
	"math/rand/v2"

	"github.com/gyeh/diabwh/internal/category"
	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
)

// weightTolerance bounds how far a normalized weight vector may drift from 1.
const weightTolerance = 1e-9

// Simulator produces RiskFactorProfiles. It holds no mutable state and is
// safe for concurrent use; all randomness comes from the caller's *rand.Rand.
type Simulator struct {
	p Params
}

// New validates p and returns a Simulator.
func New(p Params) (*Simulator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{p: p}, nil
}

// NewRand returns a PRNG for one record seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Simulate samples a profile for rec. The draw order is fixed (sedentary,
// smoking, diet, family history, activity) so a given rng state always
// yields the same profile.
func (s *Simulator) Simulate(rec *model.PatientRecord, rng *rand.Rand) (model.RiskFactorProfile, error) {
	if err := checkRecord(rec); err != nil {
		return model.RiskFactorProfile{}, err
	}

	var prof model.RiskFactorProfile

	sp, err := s.SedentaryP(rec.Age, rec.BMI)
	if err != nil {
		return prof, err
	}
	prof.SedentaryP = sp
	prof.Sedentary = bernoulli(rng, sp)

	sw, err := s.SmokingWeights(rec.Age)
	if err != nil {
		return prof, err
	}
	prof.SmokingWeights = sw
	prof.SmokingStatus = categorical(rng, sw[:])
	if prof.SmokingLabel, err = category.SmokingLabel(prof.SmokingStatus); err != nil {
		return prof, err
	}

	dw, err := s.DietWeights(rec.BMI, rec.Diabetic)
	if err != nil {
		return prof, err
	}
	prof.DietWeights = dw
	prof.DietScore = categorical(rng, dw[:])
	if prof.DietLabel, err = category.DietLabel(prof.DietScore); err != nil {
		return prof, err
	}

	prof.FamilyHistoryP = s.p.FamilyHistoryP
	prof.FamilyHistory = bernoulli(rng, s.p.FamilyHistoryP)

	prof.ActiveP = s.p.ActiveP
	active := bernoulli(rng, s.p.ActiveP)
	prof.ActivityLabel = category.ActivityLabel(prof.Sedentary, active)

	return prof, nil
}

// SedentaryP is base_p plus the obesity and age bonuses, clamped to [0,1].
func (s *Simulator) SedentaryP(age, bmi float64) (float64, error) {
	c := s.p.Sedentary
	p := c.BaseP
	if bmi > c.ObesityThreshold {
		p += c.BMIBonus
	}
	if age > c.AgeThreshold {
		p += c.AgeBonus
	}
	p = clamp(p, 0, 1)
	if err := checkProbability("sedentary_p", p); err != nil {
		return 0, err
	}
	return p, nil
}

// SmokingWeights returns normalized {never, former, current} weights for
// the age band age falls into.
func (s *Simulator) SmokingWeights(age float64) ([3]float64, error) {
	c := s.p.Smoking
	raw := c.Middle
	switch {
	case age <= c.YoungMaxAge:
		raw = c.Young
	case age >= c.OlderMinAge:
		raw = c.Older
	}
	var w [3]float64
	copy(w[:], raw)
	if err := normalizeWeights("smoking_weights", w[:]); err != nil {
		return w, err
	}
	return w, nil
}

// DietWeights exponentially tilts the base diet weights by the patient's
// risk: w_k ∝ base_k · exp(−s·k). s grows with diabetes and with BMI above
// the reference, so the expected diet score never improves as either rises.
func (s *Simulator) DietWeights(bmi float64, diabetic bool) ([4]float64, error) {
	c := s.p.Diet
	tilt := c.BMIShift * clamp((bmi-c.BMIReference)/c.BMISpan, 0, 1)
	if diabetic {
		tilt += c.DiabetesShift
	}
	var w [4]float64
	for k := range w {
		w[k] = c.BaseWeights[k] * math.Exp(-tilt*float64(k))
	}
	if err := normalizeWeights("diet_weights", w[:]); err != nil {
		return w, err
	}
	return w, nil
}

// ExpectedDietScore is the mean diet score under w.
func ExpectedDietScore(w [4]float64) float64 {
	var e float64
	for k, v := range w {
		e += float64(k) * v
	}
	return e
}

func checkRecord(rec *model.PatientRecord) error {
	if math.IsNaN(rec.Age) || rec.Age < 0 {
		return &dwerr.InputError{Row: rec.SourceRow, Field: "age", Reason: "must be a non-negative number"}
	}
	if math.IsNaN(rec.BMI) || rec.BMI <= 0 {
		return &dwerr.InputError{Row: rec.SourceRow, Field: "bmi", Reason: "must be a positive number"}
	}
	return nil
}

func checkProbability(what string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return &dwerr.RangeError{What: what, Value: p}
	}
	return nil
}

func normalizeWeights(what string, w []float64) error {
	var sum float64
	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &dwerr.RangeError{What: what, Value: w}
		}
		sum += v
	}
	if !(sum > 0) {
		return &dwerr.RangeError{What: what, Value: w}
	}
	var total float64
	for i := range w {
		w[i] /= sum
		if err := checkProbability(what, w[i]); err != nil {
			return err
		}
		total += w[i]
	}
	if math.Abs(total-1) > weightTolerance {
		return &dwerr.RangeError{What: what + " sum", Value: total}
	}
	return nil
}

func bernoulli(rng *rand.Rand, p float64) bool {
	return rng.Float64() < p
}

// categorical draws an index from normalized weights. Rounding can leave
// the cumulative sum a hair under 1, so the last positive weight absorbs
// the remainder.
func categorical(rng *rand.Rand, w []float64) int {
	u := rng.Float64()
	var cum float64
	last := 0
	for i, v := range w {
		if v <= 0 {
			continue
		}
		last = i
		cum += v
		if u < cum {
			return i
		}
	}
	return last
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
