package mathutil

import "math"

// DBToLinear converts a level in decibels to a linear amplitude factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/dbAmplitudeFactor)
}

// LinearToDB converts a linear amplitude to decibels. Amplitudes at or
// below the floor map to FloorDB.
func LinearToDB(amplitude float64) float64 {
	if amplitude <= minAmplitude {
		return FloorDB
	}
	return dbAmplitudeFactor * math.Log10(amplitude)
}

// BalanceGains splits a balance setting in dB into left and right linear
// factors. Positive balance makes the right channel louder by attenuating
// the left; negative balance attenuates the right. The louder side is
// never boosted.
func BalanceGains(balanceDB float64) (left, right float64) {
	switch {
	case balanceDB > 0:
		return DBToLinear(-balanceDB), 1
	case balanceDB < 0:
		return 1, DBToLinear(balanceDB)
	default:
		return 1, 1
	}
}
