package provider

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/polymeet/gateway/internal/pipeline"
)

// maxUploadBytes caps transcription uploads; one second of 16 kHz PCM as
// WAV is well under this.
const maxUploadBytes = 10 << 20

// Handler exposes a Provider over HTTP. Upstream failures degrade to the
// demo provider's deterministic payloads, so callers always get a usable
// response.
type Handler struct {
	primary Provider
	demo    Demo
}

// NewHandler serves p, falling back to demo payloads on failure. A nil p
// serves demo payloads outright.
func NewHandler(p Provider) *Handler {
	if p == nil {
		p = Demo{}
	}
	return &Handler{primary: p}
}

// Register mounts the three endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /transcribe", h.handleTranscribe)
	mux.HandleFunc("POST /translate", h.handleTranslate)
	mux.HandleFunc("POST /tts", h.handleTTS)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No audio file provided"})
		return
	}
	defer file.Close()
	wav, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable audio file"})
		return
	}

	result, err := h.primary.Transcribe(r.Context(), wav)
	if err != nil {
		slog.Warn("transcription provider failed, serving demo payload", "error", err)
		result, _ = h.demo.Transcribe(r.Context(), wav)
	}
	writeJSON(w, http.StatusOK, result)
}

type translateParams struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

func (h *Handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var params translateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil ||
		params.Text == "" || params.SourceLanguage == "" || params.TargetLanguage == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required parameters"})
		return
	}

	translated, err := h.primary.Translate(r.Context(), params.Text, params.SourceLanguage, params.TargetLanguage)
	if err != nil {
		slog.Warn("translation provider failed, serving demo payload", "error", err)
		translated = pipeline.LocalTranslation(params.Text, params.TargetLanguage)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"translatedText": translated,
		"originalText":   params.Text,
		"sourceLanguage": params.SourceLanguage,
		"targetLanguage": params.TargetLanguage,
	})
}

type ttsParams struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (h *Handler) handleTTS(w http.ResponseWriter, r *http.Request) {
	var params ttsParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil ||
		params.Text == "" || params.Language == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required parameters"})
		return
	}

	audio, format, err := h.primary.Speak(r.Context(), params.Text, params.Language)
	if err != nil {
		slog.Warn("tts provider failed, serving demo payload", "error", err)
		audio, format, _ = h.demo.Speak(r.Context(), params.Text, params.Language)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"audioData": base64.StdEncoding.EncodeToString(audio),
		"format":    format,
	})
}
