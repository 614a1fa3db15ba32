// Package ladder provides a 4-pole saturating low-pass ladder filter with
// feedback resonance, simulated by integrating its continuous-time ODE one
// audio sample at a time.
//
// The filter state is four cascaded one-pole stages x[0..3]. Per sample the
// right-hand side
//
//	in  = clip(input - resonance*x[3])
//	x0' = omega0 * (in          - clip(x[0]))
//	x1' = omega0 * (clip(x[0]) - clip(x[1]))
//	x2' = omega0 * (clip(x[1]) - clip(x[2]))
//	x3' = omega0 * (clip(x[2]) - clip(x[3]))
//
// is advanced by one dt with a fixed-step explicit integrator from package
// ode (classical RK4 by default). The low-pass tap is x[3]; the high-pass tap
// is an approximate fourth difference of the stages.
//
// Explicit fixed-step integration has a stability boundary: cutoff and
// resonance large relative to the sample rate make the state diverge. With
// parameter clamping enabled (the default), resonance is limited to
// [0, MaxResonance] and the cutoff used at process time to
// [MinCutoffHz, NyquistFraction*sampleRate]. Above resonance 4 the ladder
// self-oscillates; the saturation keeps that oscillation bounded.
//
// A Filter is not safe for concurrent use. Independent filters share nothing
// and may run on different goroutines; Bank does exactly that.
package ladder
