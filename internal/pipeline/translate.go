package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/polymeet/gateway/internal/metrics"
)

// Translator converts text between languages. Implementations never fail the
// pipeline: when the provider is unreachable they degrade to a deterministic
// local translation.
type Translator interface {
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
}

// demoTranslations covers the scripted demo lines so offline runs still show
// real translations. Everything else gets the bracket-tagged passthrough.
var demoTranslations = map[string]string{
	"Hello everyone, how are you doing today?":              "Hola a todos, ¿cómo están hoy?",
	"I'm excited to be part of this international meeting.": "Estoy emocionado de ser parte de esta reunión internacional.",
	"Can everyone hear me clearly?":                         "¿Pueden todos escucharme claramente?",
	"Let's discuss our project timeline.":                   "Discutamos el cronograma de nuestro proyecto.",
	"What are your thoughts on this proposal?":              "¿Cuáles son sus pensamientos sobre esta propuesta?",
}

// TranslateClient posts to a /translate endpoint.
type TranslateClient struct {
	url    string
	client *http.Client
}

// NewTranslateClient creates a client for url with a pooled transport.
func NewTranslateClient(url string, poolSize int) *TranslateClient {
	return &TranslateClient{url: url, client: NewPooledHTTPClient(poolSize, 30*time.Second)}
}

type translateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate posts text for translation. An empty provider result preserves
// the input; transport or status failures produce the local fallback. The
// error return is always nil, kept for Translator test doubles.
func (c *TranslateClient) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	start := time.Now()

	payload, err := json.Marshal(translateRequest{
		Text:           text,
		SourceLanguage: sourceLanguage,
		TargetLanguage: targetLanguage,
	})
	if err != nil {
		return c.local(text, targetLanguage, err), nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/translate", bytes.NewReader(payload))
	if err != nil {
		return c.local(text, targetLanguage, err), nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return c.local(text, targetLanguage, err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return c.local(text, targetLanguage, fmt.Errorf("translate status %d: %s", resp.StatusCode, string(respBody))), nil
	}

	var result translateResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return c.local(text, targetLanguage, fmt.Errorf("decode translate response: %w", err)), nil
	}

	metrics.StageDuration.WithLabelValues("translate").Observe(time.Since(start).Seconds())
	if result.TranslatedText == "" {
		return text, nil
	}
	return result.TranslatedText, nil
}

// local is the offline translation: demo table hit, else tagged passthrough.
func (c *TranslateClient) local(text, targetLanguage string, cause error) string {
	metrics.StageFallbacks.WithLabelValues("translate").Inc()
	slog.Warn("translation fell back to local table", "error", cause)
	return LocalTranslation(text, targetLanguage)
}

// LocalTranslation returns the deterministic offline translation for text.
func LocalTranslation(text, targetLanguage string) string {
	if t, ok := demoTranslations[text]; ok {
		return t
	}
	return "[" + targetLanguage + "] " + text
}
