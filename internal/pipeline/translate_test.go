package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranslateClientDecodesResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.TargetLanguage != "Spanish" {
			t.Errorf("unexpected target %q", req.TargetLanguage)
		}
		json.NewEncoder(w).Encode(translateResponse{TranslatedText: "buenos días"})
	}))
	defer srv.Close()

	c := NewTranslateClient(srv.URL, 2)
	got, err := c.Translate(context.Background(), "good morning", "English", "Spanish")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != "buenos días" {
		t.Errorf("got %q", got)
	}
}

func TestTranslateClientPreservesTextOnEmptyResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(translateResponse{})
	}))
	defer srv.Close()

	c := NewTranslateClient(srv.URL, 2)
	got, err := c.Translate(context.Background(), "good morning", "English", "Spanish")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != "good morning" {
		t.Errorf("expected original text preserved, got %q", got)
	}
}

func TestTranslateClientFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewTranslateClient(srv.URL, 2)

	tests := []struct {
		name   string
		text   string
		target string
		want   string
	}{
		{
			name:   "known demo line",
			text:   "Hello everyone, how are you doing today?",
			target: "Spanish",
			want:   "Hola a todos, ¿cómo están hoy?",
		},
		{
			name:   "unknown line gets tagged passthrough",
			text:   "something unscripted",
			target: "German",
			want:   "[German] something unscripted",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Translate(context.Background(), tt.text, "English", tt.target)
			if err != nil {
				t.Fatalf("fallback must not error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q want %q", got, tt.want)
			}
		})
	}
}
