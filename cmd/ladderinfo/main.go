// Command ladderinfo prints the small-signal response of the ladder filter
// over a resonance sweep.
//
// Usage:
//
//	ladderinfo [flags]
//
// Examples:
//
//	ladderinfo
//	ladderinfo -cutoff 2000 -steps 10 -max-resonance 5
//	ladderinfo -method euler -threshold
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-ladder/dsp/filter/ladder"
	"github.com/cwbudde/algo-ladder/dsp/ode"
	"github.com/cwbudde/algo-ladder/measure/response"
)

type sweepConfig struct {
	CutoffHz     float64
	SampleRate   float64
	Steps        int
	MaxResonance float64
	Length       int
	Method       ode.Method
	Saturation   ladder.Saturation
}

type row struct {
	Resonance float64
	DCGain    float64
	CutoffHz  float64 // 0 when no -3 dB crossing exists
	PeakHz    float64
	PeakDB    float64
	Settles   bool
}

func main() {
	cutoff := flag.Float64("cutoff", 1000, "cutoff frequency in Hz")
	sampleRate := flag.Float64("sample-rate", 48000, "sample rate in Hz")
	steps := flag.Int("steps", 8, "number of resonance steps")
	maxRes := flag.Float64("max-resonance", 4, "largest resonance in the sweep")
	length := flag.Int("length", 8192, "impulse response length in samples")
	method := flag.String("method", "rk4", "integration method: euler, rk2 or rk4")
	saturation := flag.String("saturation", "tanh", "saturation curve: tanh, pade or none")
	threshold := flag.Bool("threshold", false, "also bisect for the self-oscillation threshold")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ladderinfo [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Prints DC gain, -3 dB cutoff, resonant peak and settling per resonance.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	m, err := ode.ParseMethod(*method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	sat, err := ladder.ParseSaturation(*saturation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := sweepConfig{
		CutoffHz:     *cutoff,
		SampleRate:   *sampleRate,
		Steps:        *steps,
		MaxResonance: *maxRes,
		Length:       *length,
		Method:       m,
		Saturation:   sat,
	}

	rows, err := sweep(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := printTable(os.Stdout, cfg, rows); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to write output: %v\n", err)
		os.Exit(1)
	}

	if *threshold {
		r, err := response.StabilityThreshold(cfg.newFilter, 0, ladder.MaxResonance, response.ThresholdConfig{
			SampleRate: cfg.SampleRate,
			Iterations: 16,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nself-oscillation threshold: resonance %.3f\n", r)
	}
}

func (c sweepConfig) newFilter(resonance float64) (*ladder.Filter[float64], error) {
	return ladder.New[float64](
		ladder.WithCutoffHz(c.CutoffHz),
		ladder.WithResonance(resonance),
		ladder.WithMethod(c.Method),
		ladder.WithSaturation(c.Saturation),
	)
}

func sweep(cfg sweepConfig) ([]row, error) {
	if cfg.Steps < 1 {
		return nil, fmt.Errorf("steps must be >= 1: %d", cfg.Steps)
	}

	rows := make([]row, 0, cfg.Steps+1)

	for i := 0; i <= cfg.Steps; i++ {
		r := cfg.MaxResonance * float64(i) / float64(cfg.Steps)

		f, err := cfg.newFilter(r)
		if err != nil {
			return nil, err
		}

		ir := response.Impulse(response.LowpassOf(f, cfg.SampleRate), cfg.Length, 1e-3)

		sp, err := response.Magnitude(ir, cfg.SampleRate)
		if err != nil {
			return nil, err
		}

		settles, err := response.Settles(cfg.newFilter, r, response.ThresholdConfig{SampleRate: cfg.SampleRate})
		if err != nil {
			return nil, err
		}

		hz, _ := sp.CutoffHz(3)
		peakHz, _ := sp.Peak()

		rows = append(rows, row{
			Resonance: r,
			DCGain:    sp.DCGain(),
			CutoffHz:  hz,
			PeakHz:    peakHz,
			PeakDB:    sp.Normalized().DB(peakHz),
			Settles:   settles,
		})
	}

	return rows, nil
}

func printTable(w io.Writer, cfg sweepConfig, rows []row) error {
	if _, err := fmt.Fprintf(w, "cutoff %.1f Hz, sample rate %.0f Hz, method %s\n\n", cfg.CutoffHz, cfg.SampleRate, cfg.Method); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "Resonance\tDC Gain\t-3 dB [Hz]\tPeak [Hz]\tPeak [dB]\tSettles\n"); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(tw, "---------\t-------\t----------\t---------\t---------\t-------\n"); err != nil {
		return err
	}

	for _, r := range rows {
		cutoff := "-"
		if r.CutoffHz > 0 {
			cutoff = fmt.Sprintf("%.1f", r.CutoffHz)
		}

		if _, err := fmt.Fprintf(tw, "%.2f\t%.4f\t%s\t%.1f\t%.2f\t%t\n",
			r.Resonance,
			r.DCGain,
			cutoff,
			r.PeakHz,
			r.PeakDB,
			r.Settles,
		); err != nil {
			return err
		}
	}

	return tw.Flush()
}
