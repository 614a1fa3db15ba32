package ladder

import "github.com/cwbudde/algo-approx"

// PitchReferenceHz is the cutoff at 0 V on a 1 V/oct control input (C4).
const PitchReferenceHz = 261.626

// PitchToCutoffHz converts a 1 V/oct control voltage to a cutoff frequency:
// PitchReferenceHz * 2^volts.
func PitchToCutoffHz(volts float32) float32 {
	const ln2 = 0.69314718055994530942
	return PitchReferenceHz * approx.FastExp(volts*ln2)
}
