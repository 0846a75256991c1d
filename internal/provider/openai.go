package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/polymeet/gateway/internal/pipeline"
)

// voiceMap picks the upstream TTS voice per language code.
var voiceMap = map[string]string{
	"en": "alloy",
	"es": "nova",
	"fr": "shimmer",
	"de": "echo",
	"it": "fable",
	"pt": "onyx",
	"ja": "alloy",
	"ko": "nova",
	"zh": "shimmer",
}

// OpenAI serves the speech operations through the OpenAI API: whisper for
// transcription, a chat completion for translation, tts-1 for speech.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI builds a provider authenticated with apiKey.
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{client: openai.NewClient(option.WithAPIKey(apiKey))}
}

func (o *OpenAI) Transcribe(ctx context.Context, wav []byte) (pipeline.Transcription, error) {
	result, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModelWhisper1,
		File:  openai.File(bytes.NewReader(wav), "chunk.wav", "audio/wav"),
	})
	if err != nil {
		return pipeline.Transcription{}, fmt.Errorf("whisper transcription: %w", err)
	}
	return pipeline.Transcription{Text: result.Text, Language: "en", Confidence: 0.95}, nil
}

func (o *OpenAI) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	system := fmt.Sprintf(
		"You are a professional translator. Translate the following text from %s to %s. Return only the translation, no explanations.",
		sourceLanguage, targetLanguage,
	)
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT3_5Turbo,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(text),
		},
		MaxTokens:   openai.Int(1000),
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", fmt.Errorf("translation completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return text, nil
	}
	translated := resp.Choices[0].Message.Content
	if translated == "" {
		return text, nil
	}
	return translated, nil
}

func (o *OpenAI) Speak(ctx context.Context, text, langCode string) ([]byte, string, error) {
	voice, ok := voiceMap[langCode]
	if !ok {
		voice = "alloy"
	}
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelTTS1,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, "", fmt.Errorf("tts speech: %w", err)
	}
	defer resp.Body.Close()
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read tts audio: %w", err)
	}
	return audio, "mp3", nil
}
