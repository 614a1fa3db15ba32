// Package response measures ladder filters offline: impulse and step
// responses, FFT magnitude responses and the resonance at which the step
// response stops settling.
//
// # Usage
//
//	f, _ := ladder.New[float64](ladder.WithCutoffHz(1000))
//	ir := response.Impulse(response.Ladder(f, 48000, response.TapLowpass), 8192, 1e-3)
//	sp, err := response.Magnitude(ir, 48000)
//	hz, ok := sp.CutoffHz(3)
//
// Impulses are scaled down before they enter the filter so the saturation
// stays in its linear region, then scaled back up; the measured response is
// the small-signal response.
package response
