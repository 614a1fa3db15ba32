package ladder

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-ladder/dsp/core"
	"github.com/cwbudde/algo-ladder/dsp/ode"
)

const (
	defaultCutoffHz     = 1000.0
	defaultResonance    = 0.0
	defaultOversampling = 1

	// MaxDrive is the largest drive amount. The input gain is (1+drive)^5,
	// so drive 1 is +30 dB.
	MaxDrive = 1.0

	// MinCutoffHz is the lowest cutoff used at process time when clamping.
	MinCutoffHz = 1.0
	// MaxResonance is the largest resonance accepted when clamping. The
	// ladder self-oscillates above 4.
	MaxResonance = 10.0
	// NyquistFraction bounds the cutoff used at process time to this
	// fraction of the sample rate when clamping. It keeps omega0*dt near 2.2,
	// inside the real-axis stability interval of explicit RK4.
	NyquistFraction = 0.35

	stages = 4

	noiseStream = 0x9e3779b97f4a7c15
)

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	cutoffHz      float64
	resonance     float64
	saturation    Saturation
	method        ode.Method
	overSampling  int
	clampParams   bool
	flushDenormal bool
	drive         float64
	noiseLevelDB  float64 // -Inf: no bootstrap noise
	noiseSeed     uint64
}

func defaultConfig() config {
	return config{
		cutoffHz:     defaultCutoffHz,
		resonance:    defaultResonance,
		saturation:   SaturationTanh,
		method:       ode.MethodRK4,
		overSampling: defaultOversampling,
		clampParams:  true,
		noiseLevelDB: math.Inf(-1),
	}
}

// WithCutoffHz sets the cutoff in Hz. Must be finite and > 0.
func WithCutoffHz(cutoffHz float64) Option {
	return func(cfg *config) error {
		if err := validateCutoff(cutoffHz); err != nil {
			return err
		}

		cfg.cutoffHz = cutoffHz

		return nil
	}
}

// WithResonance sets feedback resonance in [0, MaxResonance].
func WithResonance(resonance float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(resonance, 0, MaxResonance, "resonance"); err != nil {
			return err
		}

		cfg.resonance = resonance

		return nil
	}
}

// WithSaturation selects the soft-clipping curve.
func WithSaturation(saturation Saturation) Option {
	return func(cfg *config) error {
		if !validSaturation(saturation) {
			return fmt.Errorf("ladder: invalid saturation: %d", saturation)
		}

		cfg.saturation = saturation

		return nil
	}
}

// WithMethod selects the integration method. The default is ode.MethodRK4;
// Euler and RK2 are cheaper but less accurate near high resonance.
func WithMethod(method ode.Method) Option {
	return func(cfg *config) error {
		if !method.Valid() {
			return fmt.Errorf("ladder: invalid integration method: %d", method)
		}

		cfg.method = method

		return nil
	}
}

// WithOversampling sets the number of integration sub-steps per sample.
// Allowed values: 1, 2, 4, 8.
func WithOversampling(factor int) Option {
	return func(cfg *config) error {
		if !validOversampling(factor) {
			return fmt.Errorf("ladder: oversampling factor must be one of {1,2,4,8}: %d", factor)
		}

		cfg.overSampling = factor

		return nil
	}
}

// WithClampParameters enables or disables resonance and Nyquist-relative
// cutoff clamping. Disabling it reproduces the unvalidated behaviour: any
// finite resonance is accepted and the cutoff is used as is, even where the
// integrator diverges.
func WithClampParameters(enabled bool) Option {
	return func(cfg *config) error {
		cfg.clampParams = enabled
		return nil
	}
}

// WithDrive sets the input drive in [0, MaxDrive]. The input is multiplied by
// (1+drive)^5 before it enters the ladder, pushing the stages further into
// saturation.
func WithDrive(drive float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(drive, 0, MaxDrive, "drive"); err != nil {
			return err
		}

		cfg.drive = drive

		return nil
	}
}

// WithBootstrapNoise adds uniform noise of the given peak level in dBFS to
// the driven input, so a filter above the self-oscillation threshold starts
// ringing from silence. -60 dB is a typical level. The sequence is
// deterministic for a seed and restarts on Reset.
func WithBootstrapNoise(levelDB float64, seed uint64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(levelDB, -200, 0, "noise level"); err != nil {
			return err
		}

		cfg.noiseLevelDB = levelDB
		cfg.noiseSeed = seed

		return nil
	}
}

// WithDenormalFlush flushes tiny stage values to zero after every sample.
func WithDenormalFlush(enabled bool) Option {
	return func(cfg *config) error {
		cfg.flushDenormal = enabled
		return nil
	}
}

// State contains the ladder runtime state for save/restore workflows.
type State[S ode.Scalar] struct {
	Stage     [stages]S
	PrevInput S
}

// Output holds the two filter taps of one sample.
type Output[S ode.Scalar] struct {
	Lowpass  S
	Highpass S
}

// Filter is a saturating 4-pole ladder low-pass simulated with an explicit
// ODE integrator.
type Filter[S ode.Scalar] struct {
	cutoffHz      S
	omega0        S
	resonance     S
	saturation    Saturation
	overSampling  int
	clampParams   bool
	flushDenormal bool

	drive      S
	inputGain  S
	noiseLevel S
	noiseSeed  uint64
	noise      *rand.PCG

	clip       func(S) S
	integrator *ode.Integrator[S]
	rhs        system[S]

	stage     [stages]S
	prevInput S
	lowpass   S
	highpass  S
}

// New returns a filter with zeroed state.
func New[S ode.Scalar](opts ...Option) (*Filter[S], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	integrator, err := ode.New[S](stages, ode.WithMethod(cfg.method))
	if err != nil {
		return nil, fmt.Errorf("ladder: %w", err)
	}

	f := &Filter[S]{
		saturation:    cfg.saturation,
		overSampling:  cfg.overSampling,
		clampParams:   cfg.clampParams,
		flushDenormal: cfg.flushDenormal,
		clip:          clipFunc[S](cfg.saturation),
		integrator:    integrator,
	}

	f.setCutoff(S(cfg.cutoffHz))
	f.resonance = S(cfg.resonance)
	f.setDrive(S(cfg.drive))

	if !math.IsInf(cfg.noiseLevelDB, -1) {
		f.noiseLevel = S(core.DBToLinear(cfg.noiseLevelDB))
		f.noiseSeed = cfg.noiseSeed
		f.noise = rand.NewPCG(cfg.noiseSeed, noiseStream)
	}

	return f, nil
}

// CutoffHz returns the requested cutoff in Hz.
func (f *Filter[S]) CutoffHz() S { return f.cutoffHz }

// Omega0 returns the angular cutoff 2*pi*cutoffHz in rad/s.
func (f *Filter[S]) Omega0() S { return f.omega0 }

// Resonance returns the feedback gain.
func (f *Filter[S]) Resonance() S { return f.resonance }

// Drive returns the input drive amount.
func (f *Filter[S]) Drive() S { return f.drive }

// InputGain returns the linear gain derived from the drive, (1+drive)^5.
func (f *Filter[S]) InputGain() S { return f.inputGain }

// Saturation returns the soft-clipping curve.
func (f *Filter[S]) Saturation() Saturation { return f.saturation }

// Method returns the integration method.
func (f *Filter[S]) Method() ode.Method { return f.integrator.Method() }

// Oversampling returns the number of integration sub-steps per sample.
func (f *Filter[S]) Oversampling() int { return f.overSampling }

// ClampParameters reports whether parameter clamping is enabled.
func (f *Filter[S]) ClampParameters() bool { return f.clampParams }

// Lowpass returns the most recent low-pass output.
func (f *Filter[S]) Lowpass() S { return f.lowpass }

// Highpass returns the most recent high-pass output.
func (f *Filter[S]) Highpass() S { return f.highpass }

// SetCutoffHz sets omega0 = 2*pi*cutoffHz. The value must be finite and
// > 0, as for WithCutoffHz. With clamping enabled the value actually integrated is
// limited per sample to [MinCutoffHz, NyquistFraction*sampleRate]; the stored
// request is kept so it takes full effect if the sample rate rises.
func (f *Filter[S]) SetCutoffHz(cutoffHz S) error {
	if err := validateCutoff(float64(cutoffHz)); err != nil {
		return err
	}

	f.setCutoff(cutoffHz)

	return nil
}

func (f *Filter[S]) setCutoff(cutoffHz S) {
	f.cutoffHz = cutoffHz
	f.omega0 = 2 * math.Pi * cutoffHz
}

// SetDrive sets the input drive in [0, MaxDrive].
func (f *Filter[S]) SetDrive(drive S) error {
	if err := validateFiniteRange(float64(drive), 0, MaxDrive, "drive"); err != nil {
		return err
	}

	f.setDrive(drive)

	return nil
}

func (f *Filter[S]) setDrive(drive S) {
	g := 1 + drive
	f.drive = drive
	f.inputGain = g * g * g * g * g
}

// SetResonance sets the feedback gain. Non-finite values are rejected. With
// clamping enabled the value is limited to [0, MaxResonance].
func (f *Filter[S]) SetResonance(resonance S) error {
	if !core.IsFinite(resonance) {
		return fmt.Errorf("ladder: resonance must be finite: %v", resonance)
	}

	if f.clampParams {
		resonance = core.Clamp(resonance, 0, MaxResonance)
	}

	f.resonance = resonance

	return nil
}

// SetMethod switches the integration method without touching the state.
func (f *Filter[S]) SetMethod(method ode.Method) error {
	if err := f.integrator.SetMethod(method); err != nil {
		return fmt.Errorf("ladder: %w", err)
	}

	return nil
}

// SetSaturation switches the soft-clipping curve.
func (f *Filter[S]) SetSaturation(saturation Saturation) error {
	if !validSaturation(saturation) {
		return fmt.Errorf("ladder: invalid saturation: %d", saturation)
	}

	f.saturation = saturation
	f.clip = clipFunc[S](saturation)

	return nil
}

// Reset zeroes the four stages, the oversampling history and the outputs and
// restarts the bootstrap noise sequence. Parameters are kept.
func (f *Filter[S]) Reset() {
	core.Zero(f.stage[:])
	f.prevInput = 0
	f.lowpass = 0
	f.highpass = 0

	if f.noise != nil {
		f.noise.Seed(f.noiseSeed, noiseStream)
	}
}

// State returns a copy of the current processor state.
func (f *Filter[S]) State() State[S] {
	return State[S]{Stage: f.stage, PrevInput: f.prevInput}
}

// SetState restores an externally saved processor state.
func (f *Filter[S]) SetState(state State[S]) error {
	if !core.AllFinite(state.Stage[:]) || !core.IsFinite(state.PrevInput) {
		return fmt.Errorf("ladder: state contains NaN or Inf")
	}

	f.stage = state.Stage
	f.prevInput = state.PrevInput

	return nil
}

// Stable reports whether every stage is finite. A false result means the
// integrator has diverged; only Reset or SetState recover from it.
func (f *Filter[S]) Stable() bool {
	return core.AllFinite(f.stage[:])
}

// MaxCutoffHz returns the largest cutoff used at process time for
// sampleRate when clamping is enabled.
func MaxCutoffHz(sampleRate float64) float64 {
	return NyquistFraction * sampleRate
}

func validateCutoff(cutoffHz float64) error {
	if err := validateFiniteRange(cutoffHz, 0, math.Inf(1), "cutoff"); err != nil {
		return err
	}

	if cutoffHz == 0 {
		return fmt.Errorf("ladder: cutoff must be > 0")
	}

	return nil
}

func validOversampling(factor int) bool {
	return factor == 1 || factor == 2 || factor == 4 || factor == 8
}

func validateFiniteRange(value, lo, hi float64, name string) error {
	if !core.IsFinite(value) {
		return fmt.Errorf("ladder: %s must be finite: %v", name, value)
	}

	if value < lo || value > hi {
		return fmt.Errorf("ladder: %s must be in [%g, %g]: %f", name, lo, hi, value)
	}

	return nil
}
