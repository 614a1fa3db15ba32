package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/cwbudde/algo-ladder/dsp/core"
	"github.com/cwbudde/algo-ladder/dsp/filter/ladder"
	"github.com/cwbudde/algo-ladder/dsp/ode"
)

type renderConfig struct {
	CutoffHz     float64
	PitchVolts   float64 // NaN: use CutoffHz
	Resonance    float64
	Signal       string
	SignalHz     float64
	Amplitude    float64
	Seed         uint64
	Duration     float64
	SampleRate   int
	BlockSize    int
	Tap          string
	Method       string
	Saturation   string
	Oversampling int
	Drive        float64
	NoiseDB      float64 // NaN: no bootstrap noise
}

func (c renderConfig) effectiveCutoff() float64 {
	if math.IsNaN(c.PitchVolts) {
		return c.CutoffHz
	}

	return float64(ladder.PitchToCutoffHz(float32(c.PitchVolts)))
}

// render returns the selected filter tap, clipped to [-1, 1].
func render(cfg renderConfig) ([]float32, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %d", cfg.SampleRate)
	}

	if !(cfg.Duration > 0) {
		return nil, fmt.Errorf("duration must be > 0: %v", cfg.Duration)
	}

	pc := core.ApplyProcessorOptions(
		core.WithSampleRate(float64(cfg.SampleRate)),
		core.WithBlockSize(cfg.BlockSize),
	)

	method, err := ode.ParseMethod(cfg.Method)
	if err != nil {
		return nil, err
	}

	saturation, err := ladder.ParseSaturation(cfg.Saturation)
	if err != nil {
		return nil, err
	}

	highpass := false

	switch strings.ToLower(strings.TrimSpace(cfg.Tap)) {
	case "lowpass", "lp", "":
	case "highpass", "hp":
		highpass = true
	default:
		return nil, fmt.Errorf("unknown tap %q", cfg.Tap)
	}

	oversampling := cfg.Oversampling
	if oversampling == 0 {
		oversampling = 1
	}

	opts := []ladder.Option{
		ladder.WithCutoffHz(cfg.effectiveCutoff()),
		ladder.WithResonance(cfg.Resonance),
		ladder.WithDrive(cfg.Drive),
		ladder.WithMethod(method),
		ladder.WithSaturation(saturation),
		ladder.WithOversampling(oversampling),
		ladder.WithDenormalFlush(true),
	}
	if !math.IsNaN(cfg.NoiseDB) {
		opts = append(opts, ladder.WithBootstrapNoise(cfg.NoiseDB, cfg.Seed))
	}

	f, err := ladder.New[float64](opts...)
	if err != nil {
		return nil, err
	}

	frames := int(cfg.Duration * pc.SampleRate)

	in, err := generate(cfg, frames)
	if err != nil {
		return nil, err
	}

	out := make([]float32, frames)
	var taps []ladder.Output[float64]

	for b := range pc.Blocks(frames) {
		start := b * pc.BlockSize
		end := min(start+pc.BlockSize, frames)
		taps = core.EnsureLen(taps, end-start)
		f.ProcessBlock(taps, in[start:end], pc.SampleRate)

		for i, o := range taps {
			v := o.Lowpass
			if highpass {
				v = o.Highpass
			}

			out[start+i] = float32(core.Clamp(v, -1, 1))
		}
	}

	if !f.Stable() {
		return nil, fmt.Errorf("filter diverged (cutoff %.1f Hz, resonance %.2f)", cfg.effectiveCutoff(), cfg.Resonance)
	}

	return out, nil
}

func generate(cfg renderConfig, frames int) ([]float64, error) {
	sr := float64(cfg.SampleRate)
	out := make([]float64, frames)

	switch strings.ToLower(strings.TrimSpace(cfg.Signal)) {
	case "saw":
		phase := 0.0
		inc := cfg.SignalHz / sr

		for i := range out {
			out[i] = cfg.Amplitude * (2*phase - 1)

			phase += inc
			phase -= math.Floor(phase)
		}
	case "sine":
		for i := range out {
			out[i] = cfg.Amplitude * math.Sin(2*math.Pi*cfg.SignalHz*float64(i)/sr)
		}
	case "step":
		for i := range out {
			out[i] = cfg.Amplitude
		}
	case "noise":
		rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
		for i := range out {
			out[i] = cfg.Amplitude * (2*rng.Float64() - 1)
		}
	default:
		return nil, fmt.Errorf("unknown signal %q", cfg.Signal)
	}

	return out, nil
}
