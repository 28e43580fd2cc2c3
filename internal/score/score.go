// Package score blends a deterministic rule score with AI sub-scores into
// the four published 0-100 scores of a signal record.
package score

import (
	"math"

	"github.com/altiore-conseil/veille-cli/internal/model"
)

// ruleWeights are the per-signal-type contributions to the rule score.
// Unknown types contribute nothing.
var ruleWeights = map[model.SignalType]float64{
	model.SignalInvestment:    25,
	model.SignalExpansion:     20,
	model.SignalERPProject:    30,
	model.SignalGrowth:        15,
	model.SignalAcquisition:   20,
	model.SignalInternational: 15,
	model.SignalITHiring:      25,
}

// growthBonus is added to the rule score when registry data shows revenue
// growth above growthBonusThreshold percent.
const (
	growthBonus          = 10.0
	growthBonusThreshold = 30.0
)

// Weights holds the blend constants. The values are inherited from the
// original scoring calibration and are not independently derivable; change
// them only deliberately.
type Weights struct {
	RuleBlend        float64 // rule-score share of the need score
	AIBlend          float64 // AI share of the need score
	GlobalNeed       float64 // need share of the global score
	GlobalUrgency    float64 // urgency share of the global score
	GlobalComplexity float64 // complexity share of the global score
	SigmoidK         float64 // steepness of the normalization S-curve
	RuleMax          float64 // raw rule score mapped to the top of the curve
}

// DefaultWeights returns the inherited calibration.
func DefaultWeights() Weights {
	return Weights{
		RuleBlend:        0.4,
		AIBlend:          0.6,
		GlobalNeed:       0.5,
		GlobalUrgency:    0.25,
		GlobalComplexity: 0.25,
		SigmoidK:         3.0,
		RuleMax:          100,
	}
}

// Calculator computes the published scores.
type Calculator struct {
	W Weights
}

// NewCalculator creates a Calculator with the given weights; zero-value
// weights fall back to the defaults.
func NewCalculator(w Weights) Calculator {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return Calculator{W: w}
}

// RuleScore sums the per-type weights over the evidence, plus the growth
// bonus from firmographics.
func RuleScore(evidence []model.SignalEvidence, firmo *model.FirmographicData) float64 {
	var total float64
	for _, ev := range evidence {
		total += ruleWeights[ev.Type]
	}
	if firmo != nil && firmo.GrowthPct > growthBonusThreshold {
		total += growthBonus
	}
	return total
}

// Normalize maps raw/max through a logistic S-curve onto [0,100]. The curve
// compresses extremes and steepens the mid-range so sparse evidence does not
// saturate the scale. The sigmoid is re-scaled by its values at x=0 and x=1
// so the output spans the full range.
func (c Calculator) Normalize(raw, max float64) float64 {
	if max <= 0 {
		return 0
	}
	x := raw / max
	if x < 0 {
		x = 0
	}
	if x > 1 {
		x = 1
	}

	k := c.W.SigmoidK
	s := sigmoid(k * (x - 0.5) * 4)
	s0 := sigmoid(k * -2)
	s1 := sigmoid(k * 2)
	return (s - s0) / (s1 - s0) * 100
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

// Compute blends the rule score with the AI sub-scores and returns the four
// published scores, all integers clamped to [0,100].
func (c Calculator) Compute(evidence []model.SignalEvidence, firmo *model.FirmographicData, aiNeed, aiUrgency, aiComplexity int) (need, urgency, complexity, global int) {
	rule := c.Normalize(RuleScore(evidence, firmo), c.W.RuleMax)

	need = clamp(int(math.Round(c.W.RuleBlend*rule + c.W.AIBlend*float64(aiNeed))))
	urgency = clamp(aiUrgency)
	complexity = clamp(aiComplexity)
	global = clamp(int(math.Round(
		c.W.GlobalNeed*float64(need) +
			c.W.GlobalUrgency*float64(urgency) +
			c.W.GlobalComplexity*float64(complexity),
	)))
	return need, urgency, complexity, global
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
