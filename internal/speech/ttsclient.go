package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/polymeet/gateway/internal/pipeline"
)

// TTSClient posts text to a /tts endpoint and returns the decoded audio.
// Unlike the recognition and translation clients this one fails hard: a
// missed utterance is reported, never papered over with silence.
type TTSClient struct {
	url    string
	client *http.Client
}

// NewTTSClient creates a client for url with a pooled transport.
func NewTTSClient(url string, poolSize int) *TTSClient {
	return &TTSClient{url: url, client: pipeline.NewPooledHTTPClient(poolSize, 30*time.Second)}
}

type ttsRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type ttsResponse struct {
	AudioData string `json:"audioData"`
	Format    string `json:"format"`
}

// Synthesize posts text and the two-letter language code, returning mp3
// bytes decoded from the base64 payload.
func (c *TTSClient) Synthesize(ctx context.Context, text, langCode string) ([]byte, error) {
	payload, err := json.Marshal(ttsRequest{Text: text, Language: langCode})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/tts", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ttsResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode tts response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioData)
	if err != nil {
		return nil, fmt.Errorf("decode tts audio: %w", err)
	}
	return audio, nil
}
