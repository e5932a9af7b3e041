// Package category maps continuous clinical values and sampled ordinals to
// the discrete labels used for grouping. Every function here is pure and
// total over its valid domain; the warehouse build and any report that
// needs a label must go through this package.
package category

import (
	"math"

	"github.com/gyeh/diabwh/internal/dwerr"
)

// BMI category labels.
const (
	Underweight = "Underweight"
	Normal      = "Normal"
	Overweight  = "Overweight"
	Obese       = "Obese"
)

// BMIBreakpoint is a lower bound (inclusive) and its label.
type BMIBreakpoint struct {
	Min   float64
	Label string
}

// BMIBreakpoints are the WHO adult cut-offs, ascending. A value belongs to
// the last breakpoint whose Min it reaches, so 30.0 is Obese.
var BMIBreakpoints = []BMIBreakpoint{
	{Min: math.Inf(-1), Label: Underweight},
	{Min: 18.5, Label: Normal},
	{Min: 25, Label: Overweight},
	{Min: 30, Label: Obese},
}

// BMICategory returns the label for bmi. NaN is not a BMI and yields a
// RangeError; normalization rejects it long before this point.
func BMICategory(bmi float64) (string, error) {
	if math.IsNaN(bmi) {
		return "", &dwerr.RangeError{What: "bmi", Value: bmi}
	}
	label := BMIBreakpoints[0].Label
	for _, bp := range BMIBreakpoints[1:] {
		if bmi < bp.Min {
			break
		}
		label = bp.Label
	}
	return label, nil
}

// AgeGroupEdge closes a bucket: ages up to and including Max (or strictly
// below it when Exclusive) fall into Label.
type AgeGroupEdge struct {
	Max       float64
	Exclusive bool
	Label     string
}

// AgeGroupEdges are the reporting buckets in ascending order. The last
// bucket is open-ended.
var AgeGroupEdges = []AgeGroupEdge{
	{Max: 25, Exclusive: true, Label: "<25"},
	{Max: 35, Label: "25-35"},
	{Max: 45, Label: "36-45"},
	{Max: 55, Label: "46-55"},
	{Max: 65, Exclusive: true, Label: "56-65"},
	{Max: math.Inf(1), Label: "65+"},
}

// AgeGroups lists the age group labels in bucket order.
func AgeGroups() []string {
	out := make([]string, len(AgeGroupEdges))
	for i, e := range AgeGroupEdges {
		out[i] = e.Label
	}
	return out
}

// AgeGroup returns the bucket label for age.
func AgeGroup(age float64) (string, error) {
	if math.IsNaN(age) {
		return "", &dwerr.RangeError{What: "age", Value: age}
	}
	for _, e := range AgeGroupEdges {
		if age < e.Max || (!e.Exclusive && age == e.Max) {
			return e.Label, nil
		}
	}
	return AgeGroupEdges[len(AgeGroupEdges)-1].Label, nil
}

// Smoking ordinals.
const (
	SmokingNever = iota
	SmokingFormer
	SmokingCurrent
)

var smokingLabels = [...]string{"Never", "Former", "Current"}

// SmokingLabel looks up the label for a smoking ordinal (0-2).
func SmokingLabel(status int) (string, error) {
	if status < 0 || status >= len(smokingLabels) {
		return "", &dwerr.RangeError{What: "smoking_status", Value: status}
	}
	return smokingLabels[status], nil
}

// DietLabels are ordered by increasing diet quality; the index is the score.
var DietLabels = [...]string{"Poor", "Fair", "Good", "Excellent"}

// DietLabel looks up the label for a diet score (0-3).
func DietLabel(score int) (string, error) {
	if score < 0 || score >= len(DietLabels) {
		return "", &dwerr.RangeError{What: "diet_score", Value: score}
	}
	return DietLabels[score], nil
}

// Activity labels.
const (
	ActivitySedentary = "Sedentary"
	ActivityModerate  = "Moderate"
	ActivityActive    = "Active"
)

// ActivityLabel is Sedentary for sedentary patients; otherwise it depends
// on the sampled active flag.
func ActivityLabel(sedentary, active bool) string {
	switch {
	case sedentary:
		return ActivitySedentary
	case active:
		return ActivityActive
	default:
		return ActivityModerate
	}
}
