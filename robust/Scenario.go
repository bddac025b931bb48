package robust

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// stateDim is the reference plant's state dimension: [x, theta1, theta2,
// xdot, theta1dot, theta2dot]. Scenario initial states always target this
// layout; cart position is always zero at k=0 per spec.md §4.9.
const stateDim = 6

// stratumVelocityRange is the hardcoded, non-configurable velocity
// perturbation range for a stratum, per spec.md §4.9: nominal draws zero
// velocity perturbation, moderate ±0.2, large ±0.5.
func stratumVelocityRange(stratumIndex int) r1.Interval {
	switch stratumIndex {
	case 0: // nominal
		return r1.Interval{Min: 0, Max: 0}
	case 1: // moderate
		return r1.Interval{Min: -0.2, Max: 0.2}
	default: // large
		return r1.Interval{Min: -0.5, Max: 0.5}
	}
}

// stratumCounts splits n scenarios across the three strata using the
// configured fractions. Per spec.md §9's rounding convention, the large
// stratum absorbs whatever remainder rounding leaves over, so the three
// counts always sum to exactly n.
func stratumCounts(n int, d Distribution) (nominal, moderate, large int) {
	nominal = int(float64(n)*d.NominalFraction + 0.5)
	moderate = int(float64(n)*d.ModerateFraction + 0.5)
	large = n - nominal - moderate
	if large < 0 {
		// Pathological fractions (e.g. summing well over 1): clamp rather
		// than return a negative stratum size.
		large = 0
		if nominal+moderate > n {
			moderate = n - nominal
			if moderate < 0 {
				moderate = 0
				nominal = n
			}
		}
	}
	return nominal, moderate, large
}

// buildScenarios draws cfg.NScenarios stratified initial states from a
// single rand.Source seeded by cfg.Seed, so two Evaluators built with the
// same Config produce bit-identical scenario lists (spec.md §8 property
// 10, S5).
func buildScenarios(cfg Config) []*mat.VecDense {
	nominal, moderate, large := stratumCounts(cfg.NScenarios, cfg.Distribution)
	source := rand.NewSource(cfg.Seed)

	type stratum struct {
		count      int
		angleRange r1.Interval
		velRange   r1.Interval
	}
	strata := []stratum{
		{nominal, cfg.NominalRange, stratumVelocityRange(0)},
		{moderate, cfg.ModerateRange, stratumVelocityRange(1)},
		{large, cfg.LargeRange, stratumVelocityRange(2)},
	}

	scenarios := make([]*mat.VecDense, 0, cfg.NScenarios)
	for _, s := range strata {
		if s.count == 0 {
			continue
		}
		angles := distmv.NewUniform([]r1.Interval{s.angleRange, s.angleRange}, source)
		vels := distmv.NewUniform([]r1.Interval{s.velRange, s.velRange, s.velRange}, source)
		for i := 0; i < s.count; i++ {
			a := angles.Rand(nil)
			v := vels.Rand(nil)
			scenarios = append(scenarios, mat.NewVecDense(stateDim, []float64{
				0, a[0], a[1], v[0], v[1], v[2],
			}))
		}
	}
	return scenarios
}
