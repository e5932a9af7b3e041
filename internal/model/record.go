package model

import "time"

// PatientRecord is a validated clinical row. It is the source of truth for
// enrichment and is never mutated once built.
type PatientRecord struct {
	SourceRow      int64
	PatientKey     string // natural key
	Age            float64
	HeightCm       *float64
	WeightKg       *float64
	BMI            float64
	FastingGlucose float64
	HbA1c          float64
	Diabetic       bool
}

// RiskFactorProfile is the simulated lifestyle of one measurement event,
// together with the parameters it was sampled from.
type RiskFactorProfile struct {
	Sedentary     bool
	FamilyHistory bool
	SmokingStatus int
	SmokingLabel  string
	DietScore     int
	DietLabel     string
	ActivityLabel string

	SedentaryP     float64
	FamilyHistoryP float64
	ActiveP        float64
	SmokingWeights [3]float64
	DietWeights    [4]float64
}

// DateAssignment is the synthetic calendar position of a measurement event.
type DateAssignment struct {
	Date    time.Time
	Year    int
	Quarter int
	Month   int
}

// EnrichedRecord is one record after the row-wise enrichment stage.
type EnrichedRecord struct {
	Record      PatientRecord
	Profile     RiskFactorProfile
	Date        DateAssignment
	AgeGroup    string
	BMICategory string
}
