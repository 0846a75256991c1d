package audio

import "math"

// EnergyDB returns the RMS energy of samples in decibels relative to full
// scale. Empty or near-silent input reports -100 dB.
func EnergyDB(samples []float32) float64 {
	if len(samples) == 0 {
		return -100
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms < 1e-10 {
		return -100
	}
	return 20 * math.Log10(rms)
}

// IsSilence reports whether a chunk's energy falls below thresholdDB.
func IsSilence(samples []float32, thresholdDB float64) bool {
	return EnergyDB(samples) < thresholdDB
}
