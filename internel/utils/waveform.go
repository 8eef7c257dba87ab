package utils

import "math"

func chirp(out []float64, minFreq, maxFreq float64, length int, sampleRate float64) []float64 {

	c := (maxFreq - minFreq) / (float64(length) / sampleRate)
	f0 := minFreq

	for i := range length {
		t := float64(i) / sampleRate
		out = append(out, math.Sin(2*math.Pi*(c/2*t+f0)*t))
	}

	return out
}

// Chirp returns an up-sweep followed by a down-sweep between minFreq and
// maxFreq, length samples in total.
func Chirp(minFreq, maxFreq float64, length int, sampleRate float64) []float64 {

	out := make([]float64, 0, length)

	out = chirp(out, minFreq, maxFreq, length/2, sampleRate)
	out = chirp(out, maxFreq, minFreq, length-length/2, sampleRate)

	return out
}

// Sine returns length samples of a sine tone with the given amplitude.
func Sine(freq, amplitude float64, length int, sampleRate float64) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return out
}

// Quantize maps x in [-1, 1] to an integer sample of the given full scale,
// saturating outside the range.
func Quantize(x float64, full int64) int64 {
	v := math.Round(x * float64(full))
	if v > float64(full) {
		return full
	} else if v < -float64(full)-1 {
		return -full - 1
	}
	return int64(v)
}
