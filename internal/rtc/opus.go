package rtc

import (
	"fmt"
	"time"

	"gopkg.in/hraban/opus.v2"
)

// opusFrameMillis is the packet duration peers receive. 20 ms matches what
// browser decoders and pion's sample path expect.
const opusFrameMillis = 20

// maxOpusPacket bounds one encoded frame (RFC 6716 ceiling).
const maxOpusPacket = 1275

// OpusEncoder packetizes mono float32 PCM into fixed 20 ms opus frames for
// the outbound audio track. Partial frames are buffered across calls, so
// callers can push capture chunks of any size. Not safe for concurrent use.
type OpusEncoder struct {
	enc       *opus.Encoder
	frameSize int
	pending   []int16
	packet    []byte
}

// NewOpusEncoder creates an encoder for sampleRate, which must be one of the
// rates opus accepts: 8, 12, 16, 24 or 48 kHz.
func NewOpusEncoder(sampleRate int) (*OpusEncoder, error) {
	enc, err := opus.NewEncoder(sampleRate, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("rtc: opus encoder at %d Hz: %w", sampleRate, err)
	}
	return &OpusEncoder{
		enc:       enc,
		frameSize: sampleRate * opusFrameMillis / 1000,
		packet:    make([]byte, maxOpusPacket),
	}, nil
}

// FrameDuration is the playback duration of every encoded frame.
func (e *OpusEncoder) FrameDuration() time.Duration {
	return opusFrameMillis * time.Millisecond
}

// Encode buffers samples and returns the complete frames now available.
// Returned frames are copies and stay valid across calls. A trailing partial
// frame is held until the next call fills it.
func (e *OpusEncoder) Encode(samples []float32) ([][]byte, error) {
	e.pending = appendPCM16(e.pending, samples)
	var frames [][]byte
	for len(e.pending) >= e.frameSize {
		n, err := e.enc.Encode(e.pending[:e.frameSize], e.packet)
		if err != nil {
			return frames, fmt.Errorf("rtc: opus encode: %w", err)
		}
		frames = append(frames, append([]byte(nil), e.packet[:n]...))
		e.pending = e.pending[e.frameSize:]
	}
	if len(e.pending) == 0 {
		e.pending = nil
	}
	return frames, nil
}

// appendPCM16 converts float32 samples in [-1, 1] to int16, clamping
// out-of-range values.
func appendPCM16(dst []int16, samples []float32) []int16 {
	for _, s := range samples {
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		dst = append(dst, int16(s*32767))
	}
	return dst
}
