package simulate

import (
	"errors"
	"math"
	"testing"

	"github.com/gyeh/diabwh/internal/dwerr"
	"github.com/gyeh/diabwh/internal/model"
)

const sampleSize = 10000

func newSimulator(t *testing.T) *Simulator {
	t.Helper()
	s, err := New(DefaultParams())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func record(age, bmi float64, diabetic bool) *model.PatientRecord {
	return &model.PatientRecord{
		SourceRow:      1,
		PatientKey:     "p1",
		Age:            age,
		BMI:            bmi,
		FastingGlucose: 100,
		HbA1c:          5.5,
		Diabetic:       diabetic,
	}
}

func TestSedentaryP_ScenarioBothBonuses(t *testing.T) {
	s := newSimulator(t)
	d := DefaultParams().Sedentary

	p, err := s.SedentaryP(62, 33)
	if err != nil {
		t.Fatalf("SedentaryP: %v", err)
	}
	want := d.BaseP + d.BMIBonus + d.AgeBonus
	if p < want-1e-12 {
		t.Errorf("SedentaryP(62, 33) = %v, want >= %v", p, want)
	}

	t.Run("thresholds_are_strict", func(t *testing.T) {
		p, _ := s.SedentaryP(50, 30)
		if p != d.BaseP {
			t.Errorf("SedentaryP(50, 30) = %v, want base %v", p, d.BaseP)
		}
	})

	t.Run("clamped", func(t *testing.T) {
		params := DefaultParams()
		params.Sedentary.BaseP = 0.9
		params.Sedentary.BMIBonus = 0.5
		params.Sedentary.AgeBonus = 0.5
		s2, err := New(params)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		p, _ := s2.SedentaryP(70, 40)
		if p != 1 {
			t.Errorf("expected clamp to 1, got %v", p)
		}
	})
}

func TestProbabilityBounds(t *testing.T) {
	s := newSimulator(t)
	for age := 0.0; age <= 110; age += 2.5 {
		for bmi := 12.0; bmi <= 70; bmi += 1.5 {
			p, err := s.SedentaryP(age, bmi)
			if err != nil {
				t.Fatalf("SedentaryP(%v, %v): %v", age, bmi, err)
			}
			if p < 0 || p > 1 {
				t.Fatalf("SedentaryP(%v, %v) = %v outside [0,1]", age, bmi, p)
			}

			sw, err := s.SmokingWeights(age)
			if err != nil {
				t.Fatalf("SmokingWeights(%v): %v", age, err)
			}
			assertDistribution(t, "smoking", sw[:])

			for _, diabetic := range []bool{false, true} {
				dw, err := s.DietWeights(bmi, diabetic)
				if err != nil {
					t.Fatalf("DietWeights(%v, %v): %v", bmi, diabetic, err)
				}
				assertDistribution(t, "diet", dw[:])
			}
		}
	}
}

func assertDistribution(t *testing.T, name string, w []float64) {
	t.Helper()
	var sum float64
	for _, v := range w {
		if v < 0 || v > 1 {
			t.Fatalf("%s weight %v outside [0,1]", name, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("%s weights sum to %v", name, sum)
	}
}

func TestSmokingWeights_AgeBands(t *testing.T) {
	s := newSimulator(t)
	young, _ := s.SmokingWeights(22)
	older, _ := s.SmokingWeights(70)

	if young[0] <= young[1] || young[2] <= young[1] {
		t.Errorf("young weights should favour never/current over former: %v", young)
	}
	if older[1] <= young[1] {
		t.Errorf("older patients should skew former: young=%v older=%v", young, older)
	}
}

func TestDietWeights_MonotonicInBMIAndDiabetes(t *testing.T) {
	s := newSimulator(t)
	for _, diabetic := range []bool{false, true} {
		prev := math.Inf(1)
		for bmi := 15.0; bmi <= 60; bmi += 0.25 {
			w, _ := s.DietWeights(bmi, diabetic)
			e := ExpectedDietScore(w)
			if e > prev+1e-12 {
				t.Fatalf("diabetic=%v: expected score rose from %v to %v at bmi %v", diabetic, prev, e, bmi)
			}
			prev = e
		}
	}
	for bmi := 15.0; bmi <= 60; bmi += 2.5 {
		healthy, _ := s.DietWeights(bmi, false)
		diabetic, _ := s.DietWeights(bmi, true)
		if ExpectedDietScore(diabetic) >= ExpectedDietScore(healthy) {
			t.Errorf("bmi %v: diabetic expected score %v not below healthy %v",
				bmi, ExpectedDietScore(diabetic), ExpectedDietScore(healthy))
		}
	}
}

func TestDietBias_Sampled(t *testing.T) {
	s := newSimulator(t)
	healthyRec := record(45, 28, false)
	diabeticRec := record(45, 28, true)

	sample := func(rec *model.PatientRecord, seed uint64) (mean float64, freq [4]float64, w [4]float64) {
		rng := NewRand(seed)
		var total int
		for range sampleSize {
			prof, err := s.Simulate(rec, rng)
			if err != nil {
				t.Fatalf("Simulate: %v", err)
			}
			total += prof.DietScore
			freq[prof.DietScore]++
			w = prof.DietWeights
		}
		for k := range freq {
			freq[k] /= sampleSize
		}
		return float64(total) / sampleSize, freq, w
	}

	healthyMean, healthyFreq, healthyW := sample(healthyRec, 42)
	diabeticMean, diabeticFreq, diabeticW := sample(diabeticRec, 43)

	if diabeticMean >= healthyMean {
		t.Errorf("diabetic mean diet score %v not below healthy %v", diabeticMean, healthyMean)
	}

	t.Run("frequencies_match_weights", func(t *testing.T) {
		for k := range 4 {
			if math.Abs(healthyFreq[k]-healthyW[k]) > 0.02 {
				t.Errorf("healthy category %d: freq %v, weight %v", k, healthyFreq[k], healthyW[k])
			}
			if math.Abs(diabeticFreq[k]-diabeticW[k]) > 0.02 {
				t.Errorf("diabetic category %d: freq %v, weight %v", k, diabeticFreq[k], diabeticW[k])
			}
		}
		if math.Abs(healthyMean-ExpectedDietScore(healthyW)) > 0.05 {
			t.Errorf("healthy mean %v far from expected %v", healthyMean, ExpectedDietScore(healthyW))
		}
		if math.Abs(diabeticMean-ExpectedDietScore(diabeticW)) > 0.05 {
			t.Errorf("diabetic mean %v far from expected %v", diabeticMean, ExpectedDietScore(diabeticW))
		}
	})
}

func TestBernoulliFrequencies(t *testing.T) {
	s := newSimulator(t)
	rec := record(62, 33, true)
	rng := NewRand(7)

	var smoking [3]int
	var sedCount, famCount int
	var sp, fp float64
	var sw [3]float64
	for range sampleSize {
		prof, err := s.Simulate(rec, rng)
		if err != nil {
			t.Fatalf("Simulate: %v", err)
		}
		if prof.Sedentary {
			sedCount++
		}
		if prof.FamilyHistory {
			famCount++
		}
		smoking[prof.SmokingStatus]++
		sp, fp, sw = prof.SedentaryP, prof.FamilyHistoryP, prof.SmokingWeights
	}

	if got := float64(sedCount) / sampleSize; math.Abs(got-sp) > 0.02 {
		t.Errorf("sedentary frequency %v, p %v", got, sp)
	}
	if got := float64(famCount) / sampleSize; math.Abs(got-fp) > 0.02 {
		t.Errorf("family history frequency %v, p %v", got, fp)
	}
	for k := range 3 {
		if got := float64(smoking[k]) / sampleSize; math.Abs(got-sw[k]) > 0.02 {
			t.Errorf("smoking %d frequency %v, weight %v", k, got, sw[k])
		}
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	s := newSimulator(t)
	rec := record(62, 33, true)
	for seed := uint64(0); seed < 50; seed++ {
		a, err := s.Simulate(rec, NewRand(seed))
		if err != nil {
			t.Fatalf("Simulate: %v", err)
		}
		b, _ := s.Simulate(rec, NewRand(seed))
		if a != b {
			t.Fatalf("seed %d: profiles differ:\n%+v\n%+v", seed, a, b)
		}
	}
}

func TestSimulate_LabelsConsistent(t *testing.T) {
	s := newSimulator(t)
	rng := NewRand(99)
	for i := range 500 {
		rec := record(float64(18+i%70), 16+float64(i%40), i%3 == 0)
		prof, err := s.Simulate(rec, rng)
		if err != nil {
			t.Fatalf("Simulate: %v", err)
		}
		if prof.Sedentary != (prof.ActivityLabel == "Sedentary") {
			t.Fatalf("activity %q inconsistent with sedentary=%v", prof.ActivityLabel, prof.Sedentary)
		}
		if prof.SmokingStatus < 0 || prof.SmokingStatus > 2 {
			t.Fatalf("smoking status %d", prof.SmokingStatus)
		}
	}
}

func TestSimulate_RejectsBadRecords(t *testing.T) {
	s := newSimulator(t)
	tests := []struct {
		name string
		rec  *model.PatientRecord
	}{
		{"nan_age", record(math.NaN(), 25, false)},
		{"negative_age", record(-1, 25, false)},
		{"nan_bmi", record(40, math.NaN(), false)},
		{"negative_bmi", record(40, -3, false)},
		{"zero_bmi", record(40, 0, false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Simulate(tt.rec, NewRand(1))
			var ie *dwerr.InputError
			if !errors.As(err, &ie) {
				t.Fatalf("expected InputError, got %v", err)
			}
		})
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"base_p_above_one", func(p *Params) { p.Sedentary.BaseP = 1.2 }},
		{"negative_bonus", func(p *Params) { p.Sedentary.AgeBonus = -0.1 }},
		{"family_history_nan", func(p *Params) { p.FamilyHistoryP = math.NaN() }},
		{"zero_obesity_threshold", func(p *Params) { p.Sedentary.ObesityThreshold = 0 }},
		{"age_bands_inverted", func(p *Params) { p.Smoking.YoungMaxAge = 60 }},
		{"smoking_wrong_len", func(p *Params) { p.Smoking.Older = []float64{1, 1} }},
		{"smoking_negative", func(p *Params) { p.Smoking.Young = []float64{0.5, -0.1, 0.6} }},
		{"diet_zero_sum", func(p *Params) { p.Diet.BaseWeights = []float64{0, 0, 0, 0} }},
		{"diet_negative_shift", func(p *Params) { p.Diet.BMIShift = -1 }},
		{"diet_zero_span", func(p *Params) { p.Diet.BMISpan = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			_, err := New(p)
			var ce *dwerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}

	t.Run("defaults_valid", func(t *testing.T) {
		p := DefaultParams()
		if err := p.Validate(); err != nil {
			t.Fatalf("defaults should validate: %v", err)
		}
	})
}
