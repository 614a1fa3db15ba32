package ladder

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-ladder/dsp/ode"
	"github.com/cwbudde/algo-ladder/internal/testutil"
)

func TestZeroInputSteadyState(t *testing.T) {
	f := mustNew[float32](t, WithCutoffHz(1000), WithResonance(0))
	f.Reset()

	for i := range 1000 {
		out := f.Process(0, 1.0/48000)
		if out.Lowpass != 0 {
			t.Fatalf("sample %d: lowpass = %v, want exactly 0", i, out.Lowpass)
		}

		if out.Highpass != 0 {
			t.Fatalf("sample %d: highpass = %v, want exactly 0", i, out.Highpass)
		}
	}

	if f.State() != (State[float32]{}) {
		t.Fatalf("state drifted: %+v", f.State())
	}
}

func TestStepResponseConverges(t *testing.T) {
	tests := []struct {
		name      string
		resonance float64
		dcGain    float64
	}{
		// At DC every stage settles at y with tanh(1 - r*y) = tanh(y).
		{name: "no resonance", resonance: 0, dcGain: 1},
		{name: "resonance 1", resonance: 1, dcGain: 0.5},
		{name: "resonance 3", resonance: 3, dcGain: 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustNew[float64](t, WithCutoffHz(1000), WithResonance(tt.resonance))

			lp := make([]float64, 10000)
			for i := range lp {
				lp[i] = f.Process(1, 1.0/48000).Lowpass
				if math.Abs(lp[i]) >= 2 {
					t.Fatalf("sample %d: |lowpass| = %v exceeds twice the input", i, lp[i])
				}
			}

			testutil.RequireFinite(t, lp)

			if d := math.Abs(lp[4999] - tt.dcGain); d > 1e-3 {
				t.Fatalf("lowpass after 5000 samples = %v, want %v ± 1e-3", lp[4999], tt.dcGain)
			}

			if d := math.Abs(lp[len(lp)-1] - tt.dcGain); d > 1e-6 {
				t.Fatalf("final lowpass = %v, want %v", lp[len(lp)-1], tt.dcGain)
			}
		})
	}
}

func TestStepResponseFloat32(t *testing.T) {
	f := mustNew[float32](t, WithCutoffHz(1000))

	var out Output[float32]
	for range 5000 {
		out = f.ProcessSample(1, 48000)
	}

	if d := math.Abs(float64(out.Lowpass) - 1); d > 1e-3 {
		t.Fatalf("float32 lowpass = %v, want 1 ± 1e-3", out.Lowpass)
	}
}

func TestSelfOscillationAboveThreshold(t *testing.T) {
	f := mustNew[float64](t, WithCutoffHz(1000), WithResonance(8))

	lp := make([]float64, 10000)
	for i := range lp {
		lp[i] = f.Process(1, 1.0/48000).Lowpass
	}

	testutil.RequireFinite(t, lp)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range lp[8000:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if hi-lo < 0.1 {
		t.Fatalf("peak-to-peak %v in the tail, expected sustained oscillation", hi-lo)
	}
}

func TestHighpassTapAtZeroResonance(t *testing.T) {
	f := mustNew[float64](t, WithCutoffHz(1000))

	first := f.Process(1, 1.0/48000)
	// Right after the step the stages are near zero: the tap follows the input.
	if first.Highpass < 0.5 {
		t.Fatalf("initial highpass = %v, want close to clip(1)", first.Highpass)
	}

	var out Output[float64]
	for range 5000 {
		out = f.Process(1, 1.0/48000)
	}

	if math.Abs(out.Highpass) > 1e-3 {
		t.Fatalf("highpass at DC = %v, want ~0", out.Highpass)
	}
}

func TestProcessMatchesDirectRK4(t *testing.T) {
	const (
		cutoff    = 1500.0
		resonance = 2.0
		dt        = 1.0 / 44100
	)

	f := mustNew[float64](t, WithCutoffHz(cutoff), WithResonance(resonance))

	in, err := ode.New[float64](4)
	if err != nil {
		t.Fatalf("ode.New() error = %v", err)
	}

	hz := cutoff
	omega0 := 2 * math.Pi * hz
	x := make([]float64, 4)
	input := testutil.DeterministicSaw(110, 44100, 0.8, 512)

	for i, u := range input {
		rhs := ode.Func[float64](func(_ float64, x, dxdt []float64) {
			inputc := math.Tanh(u - resonance*x[3])
			dxdt[0] = omega0 * (inputc - math.Tanh(x[0]))
			dxdt[1] = omega0 * (math.Tanh(x[0]) - math.Tanh(x[1]))
			dxdt[2] = omega0 * (math.Tanh(x[1]) - math.Tanh(x[2]))
			dxdt[3] = omega0 * (math.Tanh(x[2]) - math.Tanh(x[3]))
		})
		in.StepRK4(0, dt, x, rhs)

		out := f.Process(u, dt)
		if math.Abs(out.Lowpass-x[3]) > 1e-12 {
			t.Fatalf("sample %d: lowpass = %v, want %v", i, out.Lowpass, x[3])
		}

		hp := math.Tanh((u - resonance*x[3]) - 4*x[0] + 6*x[1] - 4*x[2] + x[3])
		if math.Abs(out.Highpass-hp) > 1e-12 {
			t.Fatalf("sample %d: highpass = %v, want %v", i, out.Highpass, hp)
		}
	}
}

func TestDeterministicAcrossInstances(t *testing.T) {
	in := testutil.DeterministicNoise(7, 0.9, 2048)

	for _, m := range []ode.Method{ode.MethodEuler, ode.MethodRK2, ode.MethodRK4} {
		t.Run(m.String(), func(t *testing.T) {
			a := mustNew[float64](t, WithMethod(m), WithCutoffHz(3000), WithResonance(3.5))
			b := mustNew[float64](t, WithMethod(m), WithCutoffHz(3000), WithResonance(3.5))

			for i, x := range in {
				ya := a.ProcessSample(x, testRate)
				yb := b.ProcessSample(x, testRate)
				if math.Float64bits(ya.Lowpass) != math.Float64bits(yb.Lowpass) ||
					math.Float64bits(ya.Highpass) != math.Float64bits(yb.Highpass) {
					t.Fatalf("sample %d differs: %+v vs %+v", i, ya, yb)
				}
			}
		})
	}
}

func TestMethodsAgreeAtLowCutoff(t *testing.T) {
	in := testutil.DeterministicSine(100, testRate, 0.5, 4096)

	ref := mustNew[float64](t, WithCutoffHz(200))
	euler := mustNew[float64](t, WithCutoffHz(200), WithMethod(ode.MethodEuler))
	rk2 := mustNew[float64](t, WithCutoffHz(200), WithMethod(ode.MethodRK2))

	var errEuler, errRK2 float64
	for _, x := range in {
		r := ref.ProcessSample(x, testRate).Lowpass
		errEuler = math.Max(errEuler, math.Abs(euler.ProcessSample(x, testRate).Lowpass-r))
		errRK2 = math.Max(errRK2, math.Abs(rk2.ProcessSample(x, testRate).Lowpass-r))
	}

	if errEuler > 1e-2 || errRK2 > 1e-4 {
		t.Fatalf("max deviation from rk4: euler=%g rk2=%g", errEuler, errRK2)
	}

	if errRK2 >= errEuler {
		t.Fatalf("rk2 (%g) should track rk4 closer than euler (%g)", errRK2, errEuler)
	}
}

func TestProcessSampleMatchesProcess(t *testing.T) {
	a := mustNew[float64](t, WithResonance(1))
	b := mustNew[float64](t, WithResonance(1))

	for i := range 256 {
		x := math.Sin(float64(i) * 0.05)
		if a.ProcessSample(x, 96000) != b.Process(x, 1.0/96000) {
			t.Fatalf("sample %d: ProcessSample differs from Process", i)
		}
	}
}

func TestSampleRateChangeWithoutReset(t *testing.T) {
	f := mustNew[float64](t, WithCutoffHz(5000), WithResonance(2))

	rates := []float64{44100, 96000, 22050, 48000}
	for _, sr := range rates {
		for range 2000 {
			out := f.ProcessSample(1, sr)
			if !f.Stable() || math.IsNaN(out.Lowpass) {
				t.Fatalf("unstable after switching to %v Hz", sr)
			}
		}
	}

	if d := math.Abs(f.Lowpass() - 1.0/3); d > 1e-3 {
		t.Fatalf("lowpass = %v, want DC gain 1/3", f.Lowpass())
	}
}

func TestNyquistClamp(t *testing.T) {
	// A linear ladder at 1 MHz and 48 kHz has omega0*dt ≈ 131, far outside
	// the RK4 stability region.
	unclamped := mustNew[float64](t,
		WithCutoffHz(1e6),
		WithSaturation(SaturationNone),
		WithClampParameters(false),
	)

	clamped := mustNew[float64](t,
		WithCutoffHz(1e6),
		WithSaturation(SaturationNone),
	)

	for range 200 {
		unclamped.ProcessSample(1, testRate)
		clamped.ProcessSample(1, testRate)
	}

	if unclamped.Stable() {
		t.Fatalf("unclamped filter stayed finite: %+v", unclamped.State())
	}

	if !clamped.Stable() {
		t.Fatalf("clamped filter diverged: %+v", clamped.State())
	}

	if d := math.Abs(clamped.Lowpass() - 1); d > 1e-6 {
		t.Fatalf("clamped lowpass = %v, want 1", clamped.Lowpass())
	}

	if clamped.CutoffHz() != 1e6 {
		t.Fatalf("clamping must not rewrite the requested cutoff: %v", clamped.CutoffHz())
	}
}

func TestNonFiniteInputIsSilence(t *testing.T) {
	a := mustNew[float64](t, WithResonance(2))
	b := mustNew[float64](t, WithResonance(2))

	for i := range 64 {
		a.ProcessSample(0.5, testRate)
		b.ProcessSample(0.5, testRate)

		x := math.NaN()
		if i%2 == 0 {
			x = math.Inf(1)
		}

		if a.ProcessSample(x, testRate) != b.ProcessSample(0, testRate) {
			t.Fatalf("sample %d: non-finite input not treated as 0", i)
		}
	}
}

func TestInvalidStepPanics(t *testing.T) {
	f := mustNew[float64](t)

	testutil.RequirePanicsWith(t, ode.ErrInvalidStep, func() {
		f.Process(1, 0)
	})

	testutil.RequirePanicsWith(t, ode.ErrInvalidStep, func() {
		f.ProcessSample(1, -48000)
	})

	testutil.RequirePanicsWith(t, ode.ErrInvalidStep, func() {
		f.Process(1, float64(math.NaN()))
	})
}

func TestOversampling(t *testing.T) {
	for _, factor := range []int{1, 2, 4, 8} {
		f := mustNew[float64](t, WithCutoffHz(1000), WithOversampling(factor))

		var out Output[float64]
		for range 5000 {
			out = f.ProcessSample(1, testRate)
		}

		if d := math.Abs(out.Lowpass - 1); d > 1e-3 {
			t.Fatalf("os=%d: lowpass = %v, want 1", factor, out.Lowpass)
		}
	}

	// At a high cutoff the sub-steps change the result.
	in := testutil.DeterministicSaw(330, testRate, 0.7, 512)
	plain := mustNew[float64](t, WithCutoffHz(9000), WithResonance(3))
	over := mustNew[float64](t, WithCutoffHz(9000), WithResonance(3), WithOversampling(4))

	diff := 0.0
	for _, x := range in {
		diff = math.Max(diff, math.Abs(plain.ProcessSample(x, testRate).Lowpass-over.ProcessSample(x, testRate).Lowpass))
	}

	if diff == 0 {
		t.Fatal("oversampling had no effect")
	}

	if !over.Stable() {
		t.Fatal("oversampled filter diverged")
	}
}

func TestProcessBlockMatchesSample(t *testing.T) {
	in := testutil.DeterministicSaw(220, testRate, 0.6, 384)

	f1 := mustNew[float64](t, WithCutoffHz(2400), WithResonance(2.5), WithOversampling(2))
	f2 := mustNew[float64](t, WithCutoffHz(2400), WithResonance(2.5), WithOversampling(2))
	f3 := mustNew[float64](t, WithCutoffHz(2400), WithResonance(2.5), WithOversampling(2))

	want := make([]Output[float64], len(in))
	for i, x := range in {
		want[i] = f1.ProcessSample(x, testRate)
	}

	got := make([]Output[float64], len(in))
	f2.ProcessBlock(got, in, testRate)

	lp := append([]float64(nil), in...)
	f3.ProcessLowpassInPlace(lp, testRate)

	for i := range in {
		if got[i] != want[i] {
			t.Fatalf("block sample %d: %+v, want %+v", i, got[i], want[i])
		}

		if lp[i] != want[i].Lowpass {
			t.Fatalf("in-place sample %d: %v, want %v", i, lp[i], want[i].Lowpass)
		}
	}

	f2.ProcessBlock(nil, nil, testRate)
}

func TestDenormalFlush(t *testing.T) {
	f := mustNew[float64](t, WithDenormalFlush(true))

	if err := f.SetState(State[float64]{Stage: [4]float64{1e-32, -1e-31, 0, 1e-35}}); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	f.ProcessSample(0, testRate)

	if f.State().Stage != [4]float64{} {
		t.Fatalf("stages not flushed: %+v", f.State().Stage)
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	f := mustNew[float32](t, WithResonance(2), WithOversampling(2), WithBootstrapNoise(-60, 3))

	allocs := testing.AllocsPerRun(200, func() {
		f.ProcessSample(0.3, 48000)
	})

	if allocs != 0 {
		t.Fatalf("allocs per sample = %v, want 0", allocs)
	}
}

func TestDriveScalesInput(t *testing.T) {
	f := mustNew[float64](t, WithSaturation(SaturationNone), WithDrive(1))

	var out Output[float64]
	for range 5000 {
		out = f.Process(0.01, 1/testRate)
	}

	if math.Abs(out.Lowpass-0.32) > 1e-6 {
		t.Fatalf("lowpass = %v, want 0.32", out.Lowpass)
	}
}

func TestBootstrapNoiseStartsOscillation(t *testing.T) {
	quiet := mustNew[float64](t, WithResonance(8))
	noisy := mustNew[float64](t, WithResonance(8), WithBootstrapNoise(-60, 1))

	quietOut := make([]float64, 48000)
	noisyOut := make([]float64, 48000)
	for i := range quietOut {
		quietOut[i] = quiet.Process(0, 1/testRate).Lowpass
		noisyOut[i] = noisy.Process(0, 1/testRate).Lowpass
	}

	for i, v := range quietOut {
		if v != 0 {
			t.Fatalf("silent filter without noise: sample %d = %v", i, v)
		}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range noisyOut[36000:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if hi-lo < 0.1 {
		t.Fatalf("peak-to-peak %v with bootstrap noise, expected self-oscillation", hi-lo)
	}

	// Below the threshold the noise stays at its own tiny level.
	calm := mustNew[float64](t, WithResonance(3), WithBootstrapNoise(-60, 1))
	for i := range 48000 {
		if v := calm.Process(0, 1/testRate).Lowpass; math.Abs(v) > 1e-4 {
			t.Fatalf("sample %d = %v, noise grew below the threshold", i, v)
		}
	}
}

func TestBootstrapNoiseRestartsOnReset(t *testing.T) {
	f := mustNew[float32](t, WithResonance(2), WithBootstrapNoise(-40, 7))

	first := make([]float32, 64)
	for i := range first {
		first[i] = f.Process(0, 1/48000.0).Lowpass
	}

	f.Reset()

	for i := range first {
		if got := f.Process(0, 1/48000.0).Lowpass; got != first[i] {
			t.Fatalf("sample %d after Reset = %v, want %v", i, got, first[i])
		}
	}

	g := mustNew[float32](t, WithResonance(2), WithBootstrapNoise(-40, 8))
	differ := false
	for i := range first {
		differ = differ || g.Process(0, 1/48000.0).Lowpass != first[i]
	}

	if !differ {
		t.Fatal("different seeds produced identical output")
	}
}
