package ode

// Step advances x by one dt with the configured method.
func (in *Integrator[S]) Step(t, dt S, x []S, f System[S]) {
	switch in.method {
	case MethodEuler:
		in.StepEuler(t, dt, x, f)
	case MethodRK2:
		in.StepRK2(t, dt, x, f)
	default:
		in.StepRK4(t, dt, x, f)
	}
}

// StepEuler advances x by one forward Euler step:
//
//	x += dt * f(t, x)
func (in *Integrator[S]) StepEuler(t, dt S, x []S, f System[S]) {
	in.check(dt, x, f)

	k := in.k1
	f.Derivatives(t, x, k)

	for i := range x {
		x[i] += dt * k[i]
	}
}

// StepRK2 advances x by one explicit midpoint step:
//
//	k1 = f(t, x)
//	k2 = f(t + dt/2, x + k1*dt/2)
//	x += dt * k2
func (in *Integrator[S]) StepRK2(t, dt S, x []S, f System[S]) {
	in.check(dt, x, f)

	k1, k2, mid := in.k1, in.k2, in.trial
	half := dt / 2

	f.Derivatives(t, x, k1)
	for i := range x {
		mid[i] = x[i] + k1[i]*half
	}

	f.Derivatives(t+half, mid, k2)
	for i := range x {
		x[i] += dt * k2[i]
	}
}

// StepRK4 advances x by one classical Runge-Kutta step:
//
//	k1 = f(t, x)
//	k2 = f(t + dt/2, x + k1*dt/2)
//	k3 = f(t + dt/2, x + k2*dt/2)
//	k4 = f(t + dt, x + k3*dt)
//	x += dt * (k1 + 2*k2 + 2*k3 + k4) / 6
//
// The stages only read x; it is written once, after k4.
func (in *Integrator[S]) StepRK4(t, dt S, x []S, f System[S]) {
	in.check(dt, x, f)

	k1, k2, k3, k4, trial := in.k1, in.k2, in.k3, in.k4, in.trial
	half := dt / 2

	f.Derivatives(t, x, k1)
	for i := range x {
		trial[i] = x[i] + k1[i]*half
	}

	f.Derivatives(t+half, trial, k2)
	for i := range x {
		trial[i] = x[i] + k2[i]*half
	}

	f.Derivatives(t+half, trial, k3)
	for i := range x {
		trial[i] = x[i] + k3[i]*dt
	}

	f.Derivatives(t+dt, trial, k4)
	for i := range x {
		x[i] += dt * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i]) / 6
	}
}

// Integrate applies steps fixed steps of size dt starting at t0 and returns
// the final time t0 + steps*dt (accumulated step by step).
func (in *Integrator[S]) Integrate(t0, dt S, steps int, x []S, f System[S]) S {
	t := t0
	for range steps {
		in.Step(t, dt, x, f)
		t += dt
	}

	return t
}
