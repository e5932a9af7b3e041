package model

import "time"

// RejectedRow records why a source row was left out of the warehouse.
type RejectedRow struct {
	Row    int64
	Reason string
}

// LoadSummary captures metrics from a single warehouse build.
type LoadSummary struct {
	RunID      string
	FilePath   string
	FileSHA256 string
	Seed       int64
	Sink       string

	RowsRead     int64
	RowsAccepted int64
	RowsRejected int64
	Rejected     []RejectedRow

	Patients    int64
	RiskFactors int64
	Dates       int64
	Facts       int64
	Digest      string

	DurationRead     time.Duration
	DurationEnrich   time.Duration
	DurationBuild    time.Duration
	DurationValidate time.Duration
	DurationCommit   time.Duration
	DurationTotal    time.Duration
}
