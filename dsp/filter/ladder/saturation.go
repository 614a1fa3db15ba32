package ladder

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-ladder/dsp/ode"
)

// Saturation selects the soft-clipping curve applied to the feedback sum and
// to every stage output.
type Saturation int

const (
	// SaturationTanh uses the exact hyperbolic tangent.
	SaturationTanh Saturation = iota
	// SaturationPade uses the rational approximation x(27+x²)/(27+9x²),
	// hard-limited to ±1 outside [-3, 3]. Cheaper than tanh.
	SaturationPade
	// SaturationNone disables saturation, leaving a linear ladder.
	SaturationNone
)

func (s Saturation) String() string {
	switch s {
	case SaturationTanh:
		return "tanh"
	case SaturationPade:
		return "pade"
	case SaturationNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseSaturation maps "tanh", "pade" or "none" to a Saturation.
func ParseSaturation(name string) (Saturation, error) {
	switch name {
	case "tanh":
		return SaturationTanh, nil
	case "pade":
		return SaturationPade, nil
	case "none", "linear":
		return SaturationNone, nil
	default:
		return 0, fmt.Errorf("ladder: unknown saturation %q", name)
	}
}

func validSaturation(s Saturation) bool {
	return s >= SaturationTanh && s <= SaturationNone
}

func clipFunc[S ode.Scalar](s Saturation) func(S) S {
	switch s {
	case SaturationPade:
		return padeClip[S]
	case SaturationNone:
		return linearClip[S]
	default:
		return tanhClip[S]
	}
}

func tanhClip[S ode.Scalar](v S) S {
	return S(math.Tanh(float64(v)))
}

func padeClip[S ode.Scalar](v S) S {
	if v > 3 {
		return 1
	}

	if v < -3 {
		return -1
	}

	v2 := v * v

	return v * (27 + v2) / (27 + 9*v2)
}

func linearClip[S ode.Scalar](v S) S { return v }
