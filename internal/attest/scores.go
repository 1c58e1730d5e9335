package attest

// ScoreEpsilon is the tolerance for comparing aggregated scores.
const ScoreEpsilon = 1e-9

// ComponentScores are the five assessment dimensions, each on a 0 to 100
// scale.
type ComponentScores struct {
	Alignment       float64 `json:"alignment"`
	Robustness      float64 `json:"robustness"`
	DataGovernance  float64 `json:"data_governance"`
	Explainability  float64 `json:"explainability"`
	OperationalRisk float64 `json:"operational_risk"`
}

// Clamped returns a copy with every component bounded to [0, 100]. Stores
// apply this at write time so persisted rows never carry out-of-range values.
func (c ComponentScores) Clamped() ComponentScores {
	return ComponentScores{
		Alignment:       clamp(c.Alignment),
		Robustness:      clamp(c.Robustness),
		DataGovernance:  clamp(c.DataGovernance),
		Explainability:  clamp(c.Explainability),
		OperationalRisk: clamp(c.OperationalRisk),
	}
}

// Overall is the equal-weight arithmetic mean of the five components. The
// summation order is fixed so repeated calls over the same scores agree to
// within ScoreEpsilon.
func (c ComponentScores) Overall() float64 {
	sum := c.Alignment
	sum += c.Robustness
	sum += c.DataGovernance
	sum += c.Explainability
	sum += c.OperationalRisk
	return sum / 5
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
