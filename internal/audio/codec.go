// Package audio turns inbound capture frames into the normalized float32 PCM
// the recognition pipeline works in, and back into WAV for upload.
package audio

import "fmt"

// Codec identifies the encoding of inbound audio frames, declared by the
// client in its join metadata.
type Codec string

const (
	CodecPCM      Codec = "pcm"
	CodecG711Ulaw Codec = "g711_ulaw"
	CodecG711Alaw Codec = "g711_alaw"
)

// decoder pairs a codec's decode function with its fixed output rate. A rate
// of 0 defers to the rate the client declared, as raw PCM carries no rate of
// its own.
type decoder struct {
	fn   func([]byte) []float32
	rate int
}

// decoders lists every codec a client may declare. G.711 always expands at
// telephony rate regardless of the declared one.
var decoders = map[Codec]decoder{
	CodecPCM:      {fn: decodePCM, rate: 0},
	CodecG711Ulaw: {fn: decodeG711Ulaw, rate: 8000},
	CodecG711Alaw: {fn: decodeG711Alaw, rate: 8000},
}

// Decode converts one inbound frame to float32 samples normalized to [-1, 1]
// and reports the rate they are at.
func Decode(data []byte, codec Codec, sampleRate int) ([]float32, int, error) {
	dec, ok := decoders[codec]
	if !ok {
		return nil, 0, fmt.Errorf("audio: unsupported codec %q", codec)
	}
	rate := dec.rate
	if rate == 0 {
		rate = sampleRate
	}
	return dec.fn(data), rate, nil
}
