package ode

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-ladder/dsp/core"
)

// Scalar is the floating-point type a system is integrated in. A single
// Integrator never mixes precisions.
type Scalar interface {
	core.Float
}

var (
	// ErrDimensionMismatch reports a state vector whose length differs from
	// the integrator dimension.
	ErrDimensionMismatch = errors.New("ode: state length does not match dimension")
	// ErrInvalidStep reports a non-positive or non-finite step size.
	ErrInvalidStep = errors.New("ode: step size must be finite and > 0")
	// ErrNilSystem reports a missing right-hand side.
	ErrNilSystem = errors.New("ode: system is nil")
)

// System is the right-hand side of dx/dt = f(t, x).
//
// Derivatives writes f(t, x) into dxdt. len(x) == len(dxdt) == the integrator
// dimension. Implementations must be a pure function of t and x for the
// duration of a step: the solver evaluates it several times per step and
// relies on identical inputs producing identical outputs.
type System[S Scalar] interface {
	Derivatives(t S, x []S, dxdt []S)
}

// Func adapts an ordinary function to System.
type Func[S Scalar] func(t S, x []S, dxdt []S)

// Derivatives calls fn(t, x, dxdt).
func (fn Func[S]) Derivatives(t S, x []S, dxdt []S) { fn(t, x, dxdt) }

// Method selects the explicit integration scheme.
type Method int

const (
	// MethodRK4 is the classical fourth-order Runge-Kutta method.
	MethodRK4 Method = iota
	// MethodRK2 is the explicit midpoint method.
	MethodRK2
	// MethodEuler is the forward Euler method.
	MethodEuler
)

func (m Method) String() string {
	switch m {
	case MethodRK4:
		return "rk4"
	case MethodRK2:
		return "rk2"
	case MethodEuler:
		return "euler"
	default:
		return "unknown"
	}
}

// Order returns the global order of accuracy, or 0 for an unknown method.
func (m Method) Order() int {
	switch m {
	case MethodRK4:
		return 4
	case MethodRK2:
		return 2
	case MethodEuler:
		return 1
	default:
		return 0
	}
}

// Valid reports whether m names a known method.
func (m Method) Valid() bool {
	return m >= MethodRK4 && m <= MethodEuler
}

// ParseMethod maps "euler", "rk2" or "rk4" to a Method.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "rk4":
		return MethodRK4, nil
	case "rk2", "midpoint":
		return MethodRK2, nil
	case "euler":
		return MethodEuler, nil
	default:
		return 0, fmt.Errorf("ode: unknown method %q", name)
	}
}

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	method Method
}

// WithMethod selects the method used by Step and Integrate.
func WithMethod(method Method) Option {
	return func(cfg *config) error {
		if !method.Valid() {
			return fmt.Errorf("ode: invalid method: %d", method)
		}

		cfg.method = method

		return nil
	}
}

// Integrator advances state vectors of a fixed dimension.
//
// All Step variants may be called on any Integrator regardless of the
// configured method; the method only selects what Step dispatches to.
// An Integrator is not safe for concurrent use.
type Integrator[S Scalar] struct {
	method Method
	n      int

	k1    []S
	k2    []S
	k3    []S
	k4    []S
	trial []S
}

// New returns an Integrator for state vectors of length n.
func New[S Scalar](n int, opts ...Option) (*Integrator[S], error) {
	if n <= 0 {
		return nil, fmt.Errorf("ode: dimension must be > 0: %d", n)
	}

	cfg := config{method: MethodRK4}
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	scratch := make([]S, 5*n)

	return &Integrator[S]{
		method: cfg.method,
		n:      n,
		k1:     scratch[0*n : 1*n : 1*n],
		k2:     scratch[1*n : 2*n : 2*n],
		k3:     scratch[2*n : 3*n : 3*n],
		k4:     scratch[3*n : 4*n : 4*n],
		trial:  scratch[4*n : 5*n : 5*n],
	}, nil
}

// Dim returns the state dimension.
func (in *Integrator[S]) Dim() int { return in.n }

// Method returns the method used by Step.
func (in *Integrator[S]) Method() Method { return in.method }

// SetMethod changes the method used by Step.
func (in *Integrator[S]) SetMethod(method Method) error {
	if !method.Valid() {
		return fmt.Errorf("ode: invalid method: %d", method)
	}

	in.method = method

	return nil
}

// Validate checks the step preconditions for a state of dimension n.
func Validate[S Scalar](dt S, x []S, n int) error {
	if len(x) != n {
		return fmt.Errorf("%w: len(x)=%d, dim=%d", ErrDimensionMismatch, len(x), n)
	}

	if !core.IsFinite(dt) || dt <= 0 {
		return fmt.Errorf("%w: dt=%v", ErrInvalidStep, dt)
	}

	return nil
}

func (in *Integrator[S]) check(dt S, x []S, f System[S]) {
	if f == nil {
		panic(ErrNilSystem)
	}

	if err := Validate(dt, x, in.n); err != nil {
		panic(err)
	}
}
