package audio

import "testing"

func TestEnergyDB(t *testing.T) {
	t.Parallel()

	if got := EnergyDB(nil); got != -100 {
		t.Errorf("empty input: got %v", got)
	}
	if got := EnergyDB(make([]float32, 1600)); got != -100 {
		t.Errorf("digital silence: got %v", got)
	}

	loud := make([]float32, 1600)
	for i := range loud {
		loud[i] = 0.5
	}
	if got := EnergyDB(loud); got < -7 || got > -5 {
		t.Errorf("expected ~-6 dB for 0.5 amplitude, got %v", got)
	}
}

func TestIsSilence(t *testing.T) {
	t.Parallel()

	quiet := make([]float32, 1600)
	for i := range quiet {
		quiet[i] = 0.0001
	}
	if !IsSilence(quiet, -60) {
		t.Error("expected quiet chunk below -60 dB")
	}

	loud := make([]float32, 1600)
	for i := range loud {
		loud[i] = 0.3
	}
	if IsSilence(loud, -60) {
		t.Error("expected loud chunk above -60 dB")
	}
}
