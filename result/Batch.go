package result

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Batch is an ordered mapping from batch_index to a per-row Container. A
// global read stacks rows in ascending index order regardless of the order
// rows were inserted (e.g. the parallel orchestrator may complete workers
// out of order).
type Batch struct {
	rows map[int]*Container
}

// NewBatch builds an empty Batch.
func NewBatch() *Batch {
	return &Batch{rows: make(map[int]*Container)}
}

// Set installs (or replaces) the Container for batch_index i. A nil c
// records a failed row (e.g. from the parallel orchestrator) without
// panicking on later reads.
func (b *Batch) Set(i int, c *Container) {
	b.rows[i] = c
}

// Row returns the Container at batch_index i, or nil if the row is absent
// or failed.
func (b *Batch) Row(i int) *Container {
	return b.rows[i]
}

// Len reports the number of rows, including failed (nil) ones.
func (b *Batch) Len() int { return len(b.rows) }

// indices returns the batch's row indices sorted ascending.
func (b *Batch) indices() []int {
	idx := make([]int, 0, len(b.rows))
	for i := range b.rows {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Times returns the shared time vector of the first non-nil (non-failed)
// row in ascending index order. All rows are expected to share the same time axis; callers
// needing a per-row time vector should use Row(i).Times() instead.
func (b *Batch) Times() []float64 {
	for _, i := range b.indices() {
		if row := b.rows[i]; row != nil {
			return row.Times()
		}
	}
	return nil
}

// States stacks every row's state trajectory in ascending index order.
// Failed rows contribute a nil entry, preserving batch shape uniformity of
// the returned slice's length.
func (b *Batch) States() [][]mat.Vector {
	idx := b.indices()
	out := make([][]mat.Vector, len(idx))
	for pos, i := range idx {
		if row := b.rows[i]; row != nil {
			out[pos] = row.States()
		}
	}
	return out
}

// Controls stacks every row's control trajectory in ascending index order.
func (b *Batch) Controls() [][]mat.Vector {
	idx := b.indices()
	out := make([][]mat.Vector, len(idx))
	for pos, i := range idx {
		if row := b.rows[i]; row != nil {
			out[pos] = row.Controls()
		}
	}
	return out
}

// Metadata stacks every row's metadata in ascending index order.
func (b *Batch) Metadata() []Metadata {
	idx := b.indices()
	out := make([]Metadata, len(idx))
	for pos, i := range idx {
		if row := b.rows[i]; row != nil {
			out[pos] = row.Metadata()
		}
	}
	return out
}

// uniformLen returns the longest state-trajectory length across all rows,
// the shape every row is back-filled to by UniformStates.
func (b *Batch) uniformLen() int {
	max := 0
	for _, row := range b.rows {
		if row != nil && row.Len() > max {
			max = row.Len()
		}
	}
	return max
}

// UniformStates stacks every row's state trajectory in ascending index
// order, back-filling rows that truncated early with their last valid
// state so every row presents the same length. This is the batch-shape
// invariant a caller expecting a dense (B, H+1, D) tensor relies on; Row(i)
// still exposes the row's true, untouched truncation length.
func (b *Batch) UniformStates() [][]mat.Vector {
	target := b.uniformLen()
	idx := b.indices()
	out := make([][]mat.Vector, len(idx))
	for pos, i := range idx {
		row := b.rows[i]
		if row == nil {
			out[pos] = nil
			continue
		}
		states := row.States()
		out[pos] = backfill(states, target)
	}
	return out
}

func backfill(states []mat.Vector, target int) []mat.Vector {
	if len(states) >= target || len(states) == 0 {
		return states
	}
	last := states[len(states)-1]
	padded := make([]mat.Vector, target)
	copy(padded, states)
	for i := len(states); i < target; i++ {
		padded[i] = last
	}
	return padded
}
