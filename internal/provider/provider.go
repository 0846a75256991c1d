// Package provider implements the speech endpoints the pipeline clients
// call: transcription, translation, and text-to-speech. An OpenAI-backed
// provider serves real results when a credential is configured; the demo
// provider returns the same deterministic payloads the offline demo runs on.
package provider

import (
	"context"

	"github.com/polymeet/gateway/internal/pipeline"
)

// Provider serves the three speech operations.
type Provider interface {
	Transcribe(ctx context.Context, wav []byte) (pipeline.Transcription, error)
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
	Speak(ctx context.Context, text, langCode string) (audio []byte, format string, err error)
}
