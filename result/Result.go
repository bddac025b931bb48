// Package result implements the standard and batch result containers (C7).
// Accessors always return owned copies so a caller can never observe a
// container mutate underneath it after the orchestrator that produced it
// has moved on to another rollout.
package result

import "gonum.org/v1/gonum/mat"

// Metadata is a small, orchestrator-populated bag of diagnostics attached
// to a rollout: truncation reason, safety-violation details, real-time
// timing stats, and similar free-form annotations.
type Metadata map[string]any

// Container holds a single rollout's trajectory. times has length H+1;
// states is H+1 rows of D columns; controls and sigmas have H rows.
type Container struct {
	times    []float64
	states   []mat.Vector
	controls []mat.Vector
	sigmas   []float64
	meta     Metadata
}

// NewContainer builds a Container that owns copies of every argument.
func NewContainer(times []float64, states, controls []mat.Vector, sigmas []float64, meta Metadata) *Container {
	c := &Container{
		times:    append([]float64(nil), times...),
		states:   copyVectors(states),
		controls: copyVectors(controls),
		sigmas:   append([]float64(nil), sigmas...),
		meta:     copyMeta(meta),
	}
	return c
}

// Times returns a copy of the rollout's time vector.
func (c *Container) Times() []float64 {
	return append([]float64(nil), c.times...)
}

// States returns copies of the rollout's state vectors, one per time step.
func (c *Container) States() []mat.Vector {
	return copyVectors(c.states)
}

// Controls returns copies of the rollout's control vectors.
func (c *Container) Controls() []mat.Vector {
	return copyVectors(c.controls)
}

// Sigmas returns a copy of the rollout's sliding-surface samples, if any
// were recorded.
func (c *Container) Sigmas() []float64 {
	return append([]float64(nil), c.sigmas...)
}

// Metadata returns a copy of the rollout's metadata map.
func (c *Container) Metadata() Metadata {
	return copyMeta(c.meta)
}

// Len reports the number of recorded state samples (H+1, or fewer on
// truncation).
func (c *Container) Len() int { return len(c.states) }

func copyVectors(vs []mat.Vector) []mat.Vector {
	out := make([]mat.Vector, len(vs))
	for i, v := range vs {
		if v == nil {
			continue
		}
		cp := mat.NewVecDense(v.Len(), nil)
		cp.CopyVec(v)
		out[i] = cp
	}
	return out
}

func copyMeta(m Metadata) Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
