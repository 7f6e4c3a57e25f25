package learning

import "ComputeOracle/pkg/util"

// PruneThreshold is the weight below which an edge is removed.
const PruneThreshold = 0.05

// SmallStrengthenFactor scales alpha when a factor was right but the overall
// call missed.
const SmallStrengthenFactor = 0.3

// ExponentialWeightUpdate moves w toward 1 when correct and toward 0
// otherwise, by a fraction alpha of the remaining distance.
func ExponentialWeightUpdate(w float64, correct bool, alpha float64) float64 {
	var next float64
	if correct {
		next = w + alpha*(1-w)
	} else {
		next = w * (1 - alpha)
	}
	return util.Clamp01(next)
}

// AdaptiveAlpha is the step learning-rate schedule by cycle number.
func AdaptiveAlpha(cycle int64) float64 {
	switch {
	case cycle < 10:
		return 0.20
	case cycle < 30:
		return 0.15
	case cycle < 60:
		return 0.10
	default:
		return 0.05
	}
}
