package provider

import (
	"context"
	"strconv"

	"github.com/polymeet/gateway/internal/pipeline"
)

// Demo serves deterministic payloads so the whole stack runs offline.
// Transcription always hears the same greeting, translation uses the demo
// table, and speech returns a recognizable placeholder the client treats as
// audio.
type Demo struct{}

func (Demo) Transcribe(context.Context, []byte) (pipeline.Transcription, error) {
	return pipeline.Transcription{
		Text:       "Hello everyone, how are you doing today?",
		Language:   "en",
		Confidence: 0.92,
	}, nil
}

func (Demo) Translate(_ context.Context, text, _, targetLanguage string) (string, error) {
	return pipeline.LocalTranslation(text, targetLanguage), nil
}

func (Demo) Speak(_ context.Context, text, _ string) ([]byte, string, error) {
	return []byte("mock-audio-data-" + strconv.Itoa(len(text))), "mp3", nil
}
