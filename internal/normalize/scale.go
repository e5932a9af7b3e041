package normalize

import "math"

// ScaleBMI converts a stored BMI to kg/m². The product is rounded to six
// decimals so that scaled values land exactly on category breakpoints
// (0.003 kg/cm² must become 30, not 29.999999999999996).
func ScaleBMI(v, scale float64) float64 {
	if scale == 0 {
		scale = 1
	}
	return roundMicro(v * scale)
}

func roundMicro(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
