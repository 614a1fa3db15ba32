package ladder

import (
	"context"
	"fmt"
	"sync"

	"github.com/cwbudde/algo-ladder/dsp/ode"
)

// Stereo runs one ladder state per channel.
type Stereo[S ode.Scalar] struct {
	left  *Filter[S]
	right *Filter[S]
}

// NewStereo constructs a stereo helper with independent left/right state.
func NewStereo[S ode.Scalar](opts ...Option) (*Stereo[S], error) {
	left, err := New[S](opts...)
	if err != nil {
		return nil, err
	}

	right, err := New[S](opts...)
	if err != nil {
		return nil, err
	}

	return &Stereo[S]{left: left, right: right}, nil
}

// Left returns the left-channel filter.
func (s *Stereo[S]) Left() *Filter[S] { return s.left }

// Right returns the right-channel filter.
func (s *Stereo[S]) Right() *Filter[S] { return s.right }

// Reset clears both channel states.
func (s *Stereo[S]) Reset() {
	s.left.Reset()
	s.right.Reset()
}

// ProcessSample processes one stereo frame.
func (s *Stereo[S]) ProcessSample(leftIn, rightIn, sampleRateHz S) (leftOut, rightOut Output[S]) {
	return s.left.ProcessSample(leftIn, sampleRateHz), s.right.ProcessSample(rightIn, sampleRateHz)
}

// Bank holds independent filters, one per voice. Voices never share state,
// so a block of each voice can be processed on its own goroutine; samples
// within a voice stay strictly sequential.
type Bank[S ode.Scalar] struct {
	voices []*Filter[S]
}

// NewBank constructs voices filters with identical options.
func NewBank[S ode.Scalar](voices int, opts ...Option) (*Bank[S], error) {
	if voices <= 0 {
		return nil, fmt.Errorf("ladder: voice count must be > 0: %d", voices)
	}

	b := &Bank[S]{voices: make([]*Filter[S], voices)}
	for i := range b.voices {
		f, err := New[S](opts...)
		if err != nil {
			return nil, err
		}

		b.voices[i] = f
	}

	return b, nil
}

// Len returns the number of voices.
func (b *Bank[S]) Len() int { return len(b.voices) }

// Voice returns voice i.
func (b *Bank[S]) Voice(i int) *Filter[S] { return b.voices[i] }

// Reset clears every voice.
func (b *Bank[S]) Reset() {
	for _, v := range b.voices {
		v.Reset()
	}
}

// SetCutoffHz sets the cutoff of every voice.
func (b *Bank[S]) SetCutoffHz(cutoffHz S) error {
	for _, v := range b.voices {
		if err := v.SetCutoffHz(cutoffHz); err != nil {
			return err
		}
	}

	return nil
}

// SetResonance sets the resonance of every voice.
func (b *Bank[S]) SetResonance(resonance S) error {
	for _, v := range b.voices {
		if err := v.SetResonance(resonance); err != nil {
			return err
		}
	}

	return nil
}

// ProcessBlock processes one block per voice sequentially. inputs[i] feeds
// voice i and outputs[i] receives its taps; both must hold Len() slices of
// matching lengths.
func (b *Bank[S]) ProcessBlock(inputs [][]S, outputs [][]Output[S], sampleRateHz S) error {
	if err := b.checkBlock(inputs, outputs); err != nil {
		return err
	}

	for i, v := range b.voices {
		v.ProcessBlock(outputs[i], inputs[i], sampleRateHz)
	}

	return nil
}

// ProcessParallel is ProcessBlock with one goroutine per voice. It returns
// ctx.Err() without processing anything if ctx is already done.
func (b *Bank[S]) ProcessParallel(ctx context.Context, inputs [][]S, outputs [][]Output[S], sampleRateHz S) error {
	if err := b.checkBlock(inputs, outputs); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var wg sync.WaitGroup
	for i, v := range b.voices {
		wg.Add(1)

		go func() {
			defer wg.Done()
			v.ProcessBlock(outputs[i], inputs[i], sampleRateHz)
		}()
	}

	wg.Wait()

	return nil
}

func (b *Bank[S]) checkBlock(inputs [][]S, outputs [][]Output[S]) error {
	if len(inputs) != len(b.voices) || len(outputs) != len(b.voices) {
		return fmt.Errorf("ladder: need %d input and output blocks, got %d and %d",
			len(b.voices), len(inputs), len(outputs))
	}

	for i := range inputs {
		if len(outputs[i]) != len(inputs[i]) {
			return fmt.Errorf("ladder: voice %d: output length %d != input length %d",
				i, len(outputs[i]), len(inputs[i]))
		}
	}

	return nil
}
