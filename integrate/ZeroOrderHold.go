package integrate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/dynamics"
	"github.com/controlsim/dipkernel/simerr"
)

// LinearModel is an optional capability a dynamics.Model may implement to
// expose its state-space matrices for exact zero-order-hold discretization.
// A model that does not implement this is assumed nonlinear and is
// integrated with an RK4 fallback instead.
type LinearModel interface {
	StateSpace() (a, b *mat.Dense)
}

// ZeroOrderHold discretizes a LinearModel exactly via the matrix
// exponential of the augmented [[A, B], [0, 0]] block, caching the
// resulting (Ad, Bd) pair by dt since most callers reuse a fixed step.
// A model that does not implement LinearModel is stepped with RK4.
type ZeroOrderHold struct {
	cache map[string]zohPair
}

type zohPair struct {
	ad, bd *mat.Dense
}

// NewZeroOrderHold constructs an empty-cache ZOH integrator.
func NewZeroOrderHold() *ZeroOrderHold {
	return &ZeroOrderHold{cache: make(map[string]zohPair)}
}

func (z *ZeroOrderHold) Order() int     { return 1 } // exact for the linear case; nominal for the RK4 fallback
func (z *ZeroOrderHold) Adaptive() bool { return false }
func (z *ZeroOrderHold) Stats() Stats   { return Stats{} }

func (z *ZeroOrderHold) Step(model dynamics.Model, t float64, x, u mat.Vector, dt float64) (mat.Vector, error) {
	lm, ok := model.(LinearModel)
	if !ok {
		return (RK4{}).Step(model, t, x, u, dt)
	}

	key := fmt.Sprintf("%.12g", dt)
	pair, cached := z.cache[key]
	if !cached {
		a, b := lm.StateSpace()
		ad, bd, err := discretize(a, b, dt)
		if err != nil {
			return nil, simerr.NewNumericFailure("ZeroOrderHold.Step", 0, "%v", err)
		}
		pair = zohPair{ad: ad, bd: bd}
		z.cache[key] = pair
	}

	n, _ := pair.ad.Dims()
	next := mat.NewVecDense(n, nil)
	next.MulVec(pair.ad, x)

	if pair.bd != nil {
		bu := mat.NewVecDense(n, nil)
		bu.MulVec(pair.bd, u)
		next.AddVec(next, bu)
	}
	return next, nil
}

// discretize computes the exact zero-order-hold pair (Ad, Bd) from the
// continuous pair (A, B) at step dt using the block matrix exponential
// trick: exp([[A*dt, B*dt], [0, 0]]) = [[Ad, Bd], [0, I]].
func discretize(a, b *mat.Dense, dt float64) (*mat.Dense, *mat.Dense, error) {
	n, _ := a.Dims()
	m := 0
	if b != nil {
		_, m = b.Dims()
	}

	total := n + m
	aug := mat.NewDense(total, total, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aug.Set(i, j, a.At(i, j)*dt)
		}
		if b != nil {
			for j := 0; j < m; j++ {
				aug.Set(i, n+j, b.At(i, j)*dt)
			}
		}
	}

	var expAug mat.Dense
	expAug.Exp(aug)

	ad := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			ad.Set(i, j, expAug.At(i, j))
		}
	}

	var bd *mat.Dense
	if m > 0 {
		bd = mat.NewDense(n, m, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < m; j++ {
				bd.Set(i, j, expAug.At(i, n+j))
			}
		}
	}

	return ad, bd, nil
}
