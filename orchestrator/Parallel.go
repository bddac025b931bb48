package orchestrator

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/dynamics"
	"github.com/controlsim/dipkernel/integrate"
	"github.com/controlsim/dipkernel/result"
)

// Parallel partitions a batch across a worker pool and delegates each row
// to a Sequential orchestrator built with a fresh context, so no mutable
// state is shared between workers: a dynamics.Model is assumed pure and
// may be shared directly, but an Integrator may carry per-call state (an
// adaptive integrator's PI memory, a SafetyWrapper's failure counter), so
// every worker gets its own via NewIntegrator.
type Parallel struct {
	Model         dynamics.Model
	NewIntegrator func() integrate.Integrator

	// Workers is the pool size; zero defaults to the host CPU count.
	Workers int
}

// NewParallel constructs a Parallel orchestrator.
func NewParallel(model dynamics.Model, newIntegrator func() integrate.Integrator, workers int) *Parallel {
	return &Parallel{Model: model, NewIntegrator: newIntegrator, Workers: workers}
}

// rowJob is one row's worth of work submitted to the pool.
type rowJob struct {
	index int
	x0    mat.Vector
	opts  Options
}

// Execute runs one rollout per entry in x0Rows, distributing rows across
// Workers goroutines and gathering results into a result.Batch indexed by
// submission order. A row whose Sequential.Execute call returns an error
// yields a nil entry for that index rather than aborting the rest of the
// batch.
func (p *Parallel) Execute(x0Rows []mat.Vector, dt float64, horizon int, perRowOpts []Options) *result.Batch {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(x0Rows) {
		workers = len(x0Rows)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan rowJob, len(x0Rows))
	for i, x0 := range x0Rows {
		opts := Options{}
		if i < len(perRowOpts) {
			opts = perRowOpts[i]
		}
		jobs <- rowJob{index: i, x0: x0, opts: opts}
	}
	close(jobs)

	batch := result.NewBatch()
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each worker owns a private Sequential orchestrator: the
			// dynamics model is pure and shared, but the integrator is
			// freshly constructed so no per-call state crosses goroutines.
			seq := NewSequential(NewBase(p.Model, p.NewIntegrator()))

			for job := range jobs {
				container, err := seq.Execute(job.x0, dt, horizon, job.opts)
				mu.Lock()
				if err != nil {
					batch.Set(job.index, nil)
				} else {
					batch.Set(job.index, container)
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return batch
}
