package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"

	"github.com/polymeet/gateway/internal/audio"
	"github.com/polymeet/gateway/internal/capture"
	"github.com/polymeet/gateway/internal/pipeline"
	"github.com/polymeet/gateway/internal/rtc"
	"github.com/polymeet/gateway/internal/session"
	"github.com/polymeet/gateway/internal/signal"
	"github.com/polymeet/gateway/internal/speech"
	"github.com/polymeet/gateway/internal/transcript"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the shared collaborators for all room sessions.
type HandlerConfig struct {
	Registry   *session.Registry
	Hub        *signal.Hub
	STT        pipeline.Transcriber
	Translator pipeline.Translator
	TTS        speech.AudioSynthesizer
	Voices     speech.VoiceProvider
	RTCFactory rtc.ConnFactory

	// TranscriptStore is optional; when set each room session's subtitles
	// are persisted asynchronously.
	TranscriptStore *transcript.Store

	MaxConcurrent      int
	SilenceThresholdDB float64

	// SpeakerHold is how long the speaker highlight stays lit after a
	// subtitle. Zero selects the default.
	SpeakerHold time.Duration
	// ChunkInterval overrides the capture cadence, mainly for tests.
	ChunkInterval time.Duration
}

// defaultSpeakerHold keeps the highlight visible long enough to read the
// subtitle it belongs to.
const defaultSpeakerHold = 3 * time.Second

// Handler manages websocket room sessions with admission control.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}

	mu       sync.Mutex
	managers map[string]*rtc.Manager
	savers   map[string]*transcript.Saver
}

// NewHandler creates a room session handler with a concurrency limit.
func NewHandler(cfg HandlerConfig) *Handler {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 100
	}
	return &Handler{
		cfg:      cfg,
		sem:      make(chan struct{}, maxConc),
		managers: make(map[string]*rtc.Manager),
		savers:   make(map[string]*transcript.Saver),
	}
}

// joinMetadata is the first text frame sent by the client.
type joinMetadata struct {
	Name       string `json:"name"`
	Language   string `json:"language"`
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
}

// ServeHTTP upgrades the connection and runs the room session.
// Returns 503 at capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	roomID := r.PathValue("roomID")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.runSession(roomID, conn)
}

// roomManager returns the room's peer session manager, creating it lazily.
func (h *Handler) roomManager(roomID string, store *session.Store) *rtc.Manager {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.managers[roomID]
	if !ok {
		m = rtc.NewManager(h.cfg.RTCFactory, store, func(participantID string, cand webrtc.ICECandidateInit) {
			env, err := signal.NewEnvelope(signal.TypeCandidate, roomID, participantID, signal.CandidatePayload{
				Candidate:     cand.Candidate,
				SDPMid:        cand.SDPMid,
				SDPMLineIndex: cand.SDPMLineIndex,
			})
			if err != nil {
				return
			}
			h.cfg.Hub.SendTo(roomID, participantID, env)
		})
		h.managers[roomID] = m
	}
	return m
}

// roomSaver returns the room's transcript saver, creating it lazily. Nil
// when persistence is not configured.
func (h *Handler) roomSaver(roomID string) *transcript.Saver {
	if h.cfg.TranscriptStore == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.savers[roomID]
	if !ok {
		var err error
		s, err = transcript.NewSaver(h.cfg.TranscriptStore, roomID, 64)
		if err != nil {
			slog.Warn("transcript saver unavailable", "room_id", roomID, "error", err)
			return nil
		}
		h.savers[roomID] = s
	}
	return s
}

// closeRoom tears down per-room state once the last client leaves.
func (h *Handler) closeRoom(roomID string) {
	h.mu.Lock()
	m := h.managers[roomID]
	s := h.savers[roomID]
	delete(h.managers, roomID)
	delete(h.savers, roomID)
	h.mu.Unlock()
	if m != nil {
		m.Cleanup()
	}
	if s != nil {
		s.Close()
	}
	// Pinned rooms keep their store alive for the owner that retained
	// them; only the per-client plumbing above is released.
	if h.cfg.Registry.Pinned(roomID) {
		slog.Info("room clients gone, store retained", "room_id", roomID)
		return
	}
	if store, ok := h.cfg.Registry.Lookup(roomID); ok {
		store.SetConnected(false)
	}
	h.cfg.Registry.Drop(roomID)
	slog.Info("room closed", "room_id", roomID)
}

func (h *Handler) runSession(roomID string, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meta, err := readMetadata(conn)
	if err != nil {
		slog.Error("read join metadata", "error", err)
		return
	}
	codec := audio.Codec(meta.Codec)
	if codec == "" {
		codec = audio.CodecPCM
	}
	sampleRate := meta.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	// G.711 decodes at 8 kHz no matter what the client claims.
	if codec == audio.CodecG711Ulaw || codec == audio.CodecG711Alaw {
		sampleRate = 8000
	}
	language := meta.Language
	if language == "" {
		language = "English"
	}

	participantID := uuid.NewString()
	store := h.cfg.Registry.Room(roomID)
	participant := session.Participant{
		ID:           participantID,
		Name:         meta.Name,
		Language:     language,
		AudioEnabled: true,
		VideoEnabled: true,
	}

	h.cfg.Hub.Add(roomID, participantID, conn)
	if h.cfg.Hub.RoomSize(roomID) == 1 {
		store.SetConnected(true)
	}
	store.AddParticipant(participant)
	h.cfg.Hub.BroadcastRoster(roomID, store.Participants())

	mgr := h.roomManager(roomID, store)
	saver := h.roomSaver(roomID)

	speaker := speech.NewSynthesizer(h.cfg.Voices, h.cfg.TTS, &roomPlayer{hub: h.cfg.Hub, roomID: roomID})
	if err = speaker.Init(ctx); err != nil {
		slog.Warn("speech init failed", "error", err)
	}

	// The outbound track carries opus, so inbound PCM is re-encoded before
	// forwarding. Unsupported capture rates just disable forwarding; the
	// recognition path is unaffected.
	var opusEnc *rtc.OpusEncoder
	if enc, encErr := rtc.NewOpusEncoder(sampleRate); encErr != nil {
		slog.Warn("peer audio forwarding disabled", "participant_id", participantID, "error", encErr)
	} else {
		opusEnc = enc
	}

	speakerHold := h.cfg.SpeakerHold
	if speakerHold <= 0 {
		speakerHold = defaultSpeakerHold
	}
	// Each subtitle restarts the hold; a timer only clears the highlight if
	// no newer subtitle superseded it.
	var holdGen atomic.Uint64

	src := capture.NewPushSource(sampleRate)
	orch := pipeline.NewOrchestrator(pipeline.Config{
		Store:       store,
		Recognizer:  h.cfg.STT,
		Translator:  h.cfg.Translator,
		Speaker:     speaker,
		Participant: participant,
		OnSubtitle: func(sub session.Subtitle) {
			store.SetCurrentSpeaker(sub.ParticipantID)
			h.cfg.Hub.BroadcastSpeaker(roomID, sub.ParticipantID)
			h.cfg.Hub.BroadcastSubtitle(roomID, sub)
			if saver != nil {
				saver.Save(sub)
			}
			gen := holdGen.Add(1)
			time.AfterFunc(speakerHold, func() {
				if holdGen.Load() != gen {
					return
				}
				store.ClearCurrentSpeaker(sub.ParticipantID)
				h.cfg.Hub.BroadcastSpeaker(roomID, store.CurrentSpeaker())
			})
		},
		SilenceThresholdDB: h.cfg.SilenceThresholdDB,
		ChunkInterval:      h.cfg.ChunkInterval,
	}, src)
	if err = orch.Start(ctx); err != nil {
		slog.Error("pipeline start failed", "participant_id", participantID, "error", err)
		store.RemoveParticipant(participantID)
		h.cfg.Hub.Remove(roomID, participantID)
		if h.cfg.Hub.RoomSize(roomID) == 0 {
			h.closeRoom(roomID)
		} else {
			h.cfg.Hub.BroadcastRoster(roomID, store.Participants())
		}
		return
	}

	slog.Info("session started", "room_id", roomID, "participant_id", participantID,
		"name", meta.Name, "language", language, "codec", codec, "sample_rate", sampleRate)

	h.processMessages(roomID, participantID, conn, store, mgr, src, opusEnc, codec, sampleRate)

	orch.Stop()
	speaker.Stop()
	store.ClearCurrentSpeaker(participantID)
	store.RemoveParticipant(participantID)
	h.cfg.Hub.Remove(roomID, participantID)
	// A failed broadcast may have pruned this connection already, so room
	// closure is decided on the remaining population, not on which call
	// emptied the hub.
	if h.cfg.Hub.RoomSize(roomID) == 0 {
		h.closeRoom(roomID)
	} else {
		h.cfg.Hub.BroadcastSpeaker(roomID, store.CurrentSpeaker())
		h.cfg.Hub.BroadcastRoster(roomID, store.Participants())
	}
	slog.Info("session ended", "room_id", roomID, "participant_id", participantID)
}

// processMessages reads frames until the connection drops or the client
// leaves. Binary frames are audio; text frames are signaling.
func (h *Handler) processMessages(roomID, participantID string, conn *websocket.Conn,
	store *session.Store, mgr *rtc.Manager, src *capture.PushSource, opusEnc *rtc.OpusEncoder,
	codec audio.Codec, sampleRate int) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("connection closed", "participant_id", participantID, "error", err)
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			samples, _, decErr := audio.Decode(data, codec, sampleRate)
			if decErr != nil {
				slog.Warn("audio decode failed", "participant_id", participantID, "error", decErr)
				continue
			}
			src.Push(samples)
			if opusEnc != nil {
				frames, encErr := opusEnc.Encode(samples)
				if encErr != nil {
					slog.Warn("opus encode failed", "participant_id", participantID, "error", encErr)
				}
				for _, frame := range frames {
					mgr.WriteAudio(frame, opusEnc.FrameDuration())
				}
			}
		case websocket.TextMessage:
			if leave := h.handleSignal(roomID, participantID, data, store, mgr); leave {
				return
			}
		}
	}
}

// handleSignal dispatches one decoded signaling message. Returns true when
// the client asked to leave.
func (h *Handler) handleSignal(roomID, senderID string, raw []byte, store *session.Store, mgr *rtc.Manager) bool {
	msg, err := signal.Decode(raw)
	if err != nil {
		slog.Warn("bad signaling message", "participant_id", senderID, "error", err)
		return false
	}

	// Messages addressed to another participant relay as-is; the rest are
	// for the gateway's own peer connection.
	if msg.ParticipantID != "" && msg.ParticipantID != senderID {
		var env signal.Envelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr == nil {
			h.cfg.Hub.SendTo(roomID, msg.ParticipantID, env)
		}
		return false
	}

	switch msg.Type {
	case signal.TypeLeave:
		h.cfg.Hub.Relay(roomID, senderID, signal.Envelope{
			Type: signal.TypeLeave, RoomID: roomID, ParticipantID: senderID,
		})
		return true
	case signal.TypeOffer:
		answer, err := mgr.HandleOffer(senderID, webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer, SDP: msg.SDP.SDP,
		})
		if err != nil {
			slog.Error("offer handling failed", "participant_id", senderID, "error", err)
			return false
		}
		env, envErr := signal.NewEnvelope(signal.TypeAnswer, roomID, senderID, signal.SDPPayload{SDP: answer.SDP})
		if envErr == nil {
			h.cfg.Hub.SendTo(roomID, senderID, env)
		}
	case signal.TypeAnswer:
		if err := mgr.HandleAnswer(senderID, webrtc.SessionDescription{
			Type: webrtc.SDPTypeAnswer, SDP: msg.SDP.SDP,
		}); err != nil {
			slog.Error("answer handling failed", "participant_id", senderID, "error", err)
		}
	case signal.TypeCandidate:
		if err := mgr.HandleIceCandidate(senderID, webrtc.ICECandidateInit{
			Candidate:     msg.Candidate.Candidate,
			SDPMid:        msg.Candidate.SDPMid,
			SDPMLineIndex: msg.Candidate.SDPMLineIndex,
		}); err != nil {
			slog.Error("candidate handling failed", "participant_id", senderID, "error", err)
		}
	case signal.TypeSettings:
		store.SetSettings(session.Settings{
			PreferredLanguage:      msg.Settings.PreferredLanguage,
			SubtitlesEnabled:       msg.Settings.SubtitlesEnabled,
			SpeechEnabled:          msg.Settings.SpeechEnabled,
			PlayOriginalAudio:      msg.Settings.PlayOriginalAudio,
			AutoDownloadTranscript: msg.Settings.AutoDownloadTranscript,
			SpeechRate:             msg.Settings.SpeechRate,
			SpeechPitch:            msg.Settings.SpeechPitch,
		})
	case signal.TypeMute:
		store.SetParticipantAudioEnabled(senderID, msg.Mute.AudioEnabled)
		store.SetParticipantVideoEnabled(senderID, msg.Mute.VideoEnabled)
		mgr.SetLocalAudioEnabled(msg.Mute.AudioEnabled)
		h.cfg.Hub.BroadcastRoster(roomID, store.Participants())
	case signal.TypeJoin:
		// Roster entry already exists from the metadata frame; a repeat
		// join just refreshes name and language.
		store.AddParticipant(session.Participant{
			ID:           senderID,
			Name:         msg.Join.Name,
			Language:     msg.Join.Language,
			AudioEnabled: true,
			VideoEnabled: true,
		})
		h.cfg.Hub.BroadcastRoster(roomID, store.Participants())
	}
	return false
}

// roomPlayer broadcasts synthesized audio to every room client as binary
// frames. Playback is considered complete once the frames are written.
type roomPlayer struct {
	hub    *signal.Hub
	roomID string
}

func (p *roomPlayer) Play(ctx context.Context, audio []byte, rate, pitch float64) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.hub.BroadcastBinary(p.roomID, audio)
	return nil
}

func readMetadata(conn *websocket.Conn) (*joinMetadata, error) {
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	defer conn.SetReadDeadline(time.Time{})
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var meta joinMetadata
	if err = json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
