package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polymeet/gateway/internal/pipeline"
	"github.com/polymeet/gateway/internal/session"
	"github.com/polymeet/gateway/internal/signal"
)

type fixedRecognizer struct{ text string }

func (f fixedRecognizer) Transcribe(context.Context, []float32, int) (pipeline.Transcription, error) {
	return pipeline.Transcription{Text: f.text, Language: "en", Confidence: 0.95}, nil
}

type passthroughTranslator struct{}

func (passthroughTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

func newTestServer(t *testing.T, registry *session.Registry) (*httptest.Server, *signal.Hub) {
	t.Helper()
	hub := signal.NewHub()
	h := NewHandler(HandlerConfig{
		Registry:      registry,
		Hub:           hub,
		STT:           fixedRecognizer{text: "hello"},
		Translator:    passthroughTranslator{},
		ChunkInterval: 20 * time.Millisecond,
		SpeakerHold:   50 * time.Millisecond,
	})
	mux := http.NewServeMux()
	mux.Handle("/ws/rooms/{roomID}", h)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, hub
}

func dialRoom(t *testing.T, srv *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rooms/" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	meta := `{"name":"Alice","language":"English","codec":"pcm","sample_rate":16000}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(meta)); err != nil {
		t.Fatalf("send metadata: %v", err)
	}
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestAbruptDisconnectClosesRoom(t *testing.T) {
	t.Parallel()

	registry := session.NewRegistry()
	srv, hub := newTestServer(t, registry)

	conn := dialRoom(t, srv, "r1")
	waitFor(t, "session start", func() bool {
		st, ok := registry.Lookup("r1")
		return ok && st.Connected() && len(st.Participants()) == 1
	})

	// Drop the socket without a leave message, like a closed browser tab.
	conn.Close()

	waitFor(t, "room teardown", func() bool {
		_, ok := registry.Lookup("r1")
		return !ok && hub.RoomSize("r1") == 0
	})
}

func TestRetainedRoomSurvivesLastLeave(t *testing.T) {
	t.Parallel()

	registry := session.NewRegistry()
	demo := registry.Retain("demo")
	demo.SetConnected(true)
	srv, hub := newTestServer(t, registry)

	conn := dialRoom(t, srv, "demo")
	waitFor(t, "client admitted", func() bool { return hub.RoomSize("demo") == 1 })

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"leave"}`)); err != nil {
		t.Fatalf("send leave: %v", err)
	}
	waitFor(t, "client gone", func() bool { return hub.RoomSize("demo") == 0 })

	// Give teardown time to finish before asserting it left the store alone.
	time.Sleep(100 * time.Millisecond)
	st, ok := registry.Lookup("demo")
	if !ok || st != demo {
		t.Fatal("retained room dropped from registry")
	}
	if !st.Connected() {
		t.Error("retained room marked disconnected")
	}
}

func TestSpeakerHighlightClearsAfterHold(t *testing.T) {
	t.Parallel()

	registry := session.NewRegistry()
	srv, _ := newTestServer(t, registry)
	conn := dialRoom(t, srv, "r2")

	// 20 ms of pcm16 at 16 kHz; the fixed recognizer turns it into text.
	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 640)); err != nil {
		t.Fatalf("send audio: %v", err)
	}

	var st *session.Store
	waitFor(t, "subtitle emitted", func() bool {
		s, ok := registry.Lookup("r2")
		if !ok {
			return false
		}
		st = s
		return len(s.Subtitles()) >= 1
	})
	pid := st.Subtitles()[0].ParticipantID

	waitFor(t, "highlight cleared", func() bool { return st.CurrentSpeaker() == "" })
	if p, ok := st.Participant(pid); ok && p.IsSpeaking {
		t.Error("roster entry still flagged as speaking")
	}
}
