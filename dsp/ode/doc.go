// Package ode provides fixed-step explicit integrators for first-order ODE
// systems dx/dt = f(t, x).
//
// Three methods are available, all with the same calling contract:
//   - MethodEuler: forward Euler, first order, one RHS evaluation.
//   - MethodRK2: explicit midpoint, second order, two evaluations.
//   - MethodRK4: classical Runge-Kutta, fourth order, four evaluations.
//
// An Integrator is created once for a fixed state dimension and owns every
// scratch buffer a step needs, so stepping never allocates. The state vector
// itself stays with the caller and is advanced in place by exactly one dt per
// call. There is no adaptive step-size control.
//
// Passing a state of the wrong length, a nil system or a non-positive or
// non-finite dt is a programming error and panics with an error wrapping
// ErrDimensionMismatch, ErrNilSystem or ErrInvalidStep. Use Validate to check
// the same preconditions without panicking.
package ode
