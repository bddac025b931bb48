package integrate

import "github.com/controlsim/dipkernel/simerr"

// Config parameterizes an integrator built by Factory. Fields beyond Name
// are only consulted by the integrator(s) that use them; zero values fall
// back to each integrator's own defaults.
type Config struct {
	Name string

	RelTol, AbsTol float64
	MinDt, MaxDt   float64

	BackwardTol     float64
	BackwardMaxIter int
}

type builder func(cfg Config) Integrator

// registry maps every accepted alias to a builder, mirroring the
// alias-to-implementation tables this codebase uses for pluggable
// strategies elsewhere (e.g. the result package's exporter registries).
var registry = map[string]builder{
	"euler":         func(Config) Integrator { return ForwardEuler{} },
	"forward_euler": func(Config) Integrator { return ForwardEuler{} },
	"backward_euler": func(cfg Config) Integrator {
		return BackwardEuler{Tol: cfg.BackwardTol, MaxIter: cfg.BackwardMaxIter}
	},
	"rk2":      func(Config) Integrator { return RK2{} },
	"midpoint": func(Config) Integrator { return RK2{} },
	"rk4":          func(Config) Integrator { return RK4{} },
	"runge_kutta_4": func(Config) Integrator { return RK4{} },
	"rk38":     func(Config) Integrator { return RK38{} },
	"rk4_38":   func(Config) Integrator { return RK38{} },
	"rk45":           func(cfg Config) Integrator { return NewDormandPrince45(cfg.RelTol, cfg.AbsTol, cfg.MinDt, cfg.MaxDt) },
	"dp45":           func(cfg Config) Integrator { return NewDormandPrince45(cfg.RelTol, cfg.AbsTol, cfg.MinDt, cfg.MaxDt) },
	"dormand_prince": func(cfg Config) Integrator { return NewDormandPrince45(cfg.RelTol, cfg.AbsTol, cfg.MinDt, cfg.MaxDt) },
	"zoh":             func(Config) Integrator { return NewZeroOrderHold() },
	"zero_order_hold": func(Config) Integrator { return NewZeroOrderHold() },
}

// NewIntegrator builds the integrator named by cfg.Name. Unknown names
// raise an InvalidInput error rather than silently defaulting.
func NewIntegrator(cfg Config) (Integrator, error) {
	b, ok := registry[cfg.Name]
	if !ok {
		return nil, simerr.NewInvalidInput("NewIntegrator", "unknown integrator %q, available: %v", cfg.Name, ListAvailable())
	}
	return b(cfg), nil
}

// DefaultIntegrator returns this codebase's default choice: the adaptive
// Dormand-Prince 4(5) integrator with conservative tolerances.
func DefaultIntegrator() Integrator {
	return NewDormandPrince45(1e-6, 1e-9, 1e-6, 0.1)
}

// ListAvailable returns every registered integrator alias.
func ListAvailable() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Register adds or overrides an alias in the factory registry. Intended
// for callers supplying a custom integrator implementation.
func Register(name string, build func(cfg Config) Integrator) {
	registry[name] = build
}
