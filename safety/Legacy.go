package safety

import "gonum.org/v1/gonum/mat"

// GuardNoNaN is the free-function form of NoNaN, kept for callers porting
// code that checked a single state inline rather than building a Manager.
func GuardNoNaN(step int, x mat.Vector) error {
	if v := (NoNaN{}).Check(step, 0, x); v != nil {
		return v
	}
	return nil
}

// GuardEnergy is the free-function form of EnergyCap.
func GuardEnergy(step int, x mat.Vector, energy EnergyFunc, max float64) error {
	g := EnergyCap{Energy: energy, Max: max}
	if v := g.Check(step, 0, x); v != nil {
		return v
	}
	return nil
}
