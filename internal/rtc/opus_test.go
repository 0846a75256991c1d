package rtc

import "testing"

func TestAppendPCM16Clamps(t *testing.T) {
	t.Parallel()

	got := appendPCM16(nil, []float32{0, 0.5, 1.5, -2})
	want := []int16{0, 16383, 32767, -32767}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestOpusEncoderBuffersPartialFrames(t *testing.T) {
	t.Parallel()

	enc, err := NewOpusEncoder(16000)
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}
	if got := enc.FrameDuration().Milliseconds(); got != 20 {
		t.Fatalf("frame duration %d ms", got)
	}

	// 30 ms of audio yields one 20 ms frame and holds 10 ms back.
	frames, err := enc.Encode(make([]float32, 480))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if len(frames[0]) == 0 || len(frames[0]) > maxOpusPacket {
		t.Errorf("frame size %d out of range", len(frames[0]))
	}

	// Another 10 ms completes the buffered frame.
	frames, err = enc.Encode(make([]float32, 160))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(frames) != 1 {
		t.Errorf("expected buffered samples to complete 1 frame, got %d", len(frames))
	}
}

func TestOpusEncoderRejectsUnsupportedRate(t *testing.T) {
	t.Parallel()

	if _, err := NewOpusEncoder(44100); err == nil {
		t.Error("expected error for 44.1 kHz")
	}
}
