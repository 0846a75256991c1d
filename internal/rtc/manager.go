package rtc

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/polymeet/gateway/internal/metrics"
	"github.com/polymeet/gateway/internal/session"
)

// SignalingError wraps a failed signaling operation with enough context to
// log it against the right peer.
type SignalingError struct {
	Op            string
	ParticipantID string
	Err           error
}

func (e *SignalingError) Error() string {
	return fmt.Sprintf("rtc %s for %s: %v", e.Op, e.ParticipantID, e.Err)
}

func (e *SignalingError) Unwrap() error { return e.Err }

// Manager owns one connection record per remote participant and keeps the
// session store in step with connection state. Signaling for a participant
// without a record is a logged no-op: late candidates and answers race
// cleanup all the time and must not fail the room.
type Manager struct {
	factory     ConnFactory
	store       *session.Store
	onCandidate func(participantID string, cand webrtc.ICECandidateInit)

	mu      sync.Mutex
	conns   map[string]Conn
	cleaned bool
}

// NewManager builds a manager over factory. onCandidate forwards local ICE
// candidates to the signaling layer; it may be nil.
func NewManager(factory ConnFactory, store *session.Store, onCandidate func(string, webrtc.ICECandidateInit)) *Manager {
	return &Manager{
		factory:     factory,
		store:       store,
		onCandidate: onCandidate,
		conns:       make(map[string]Conn),
	}
}

// ensureConn returns the record for participantID, creating and wiring one
// when absent.
func (m *Manager) ensureConn(participantID string) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cleaned {
		return nil, &SignalingError{Op: "connect", ParticipantID: participantID, Err: fmt.Errorf("manager cleaned up")}
	}
	if c, ok := m.conns[participantID]; ok {
		return c, nil
	}
	c, err := m.factory(participantID)
	if err != nil {
		metrics.SignalingErrors.Inc()
		return nil, &SignalingError{Op: "connect", ParticipantID: participantID, Err: err}
	}
	c.OnICECandidate(func(cand webrtc.ICECandidateInit) {
		if m.onCandidate != nil {
			m.onCandidate(participantID, cand)
		}
	})
	c.OnTrack(func() {
		slog.Info("remote audio track arrived", "participant_id", participantID)
		m.store.SetParticipantAudioEnabled(participantID, true)
	})
	c.OnStateChange(func(state webrtc.PeerConnectionState) {
		slog.Info("peer connection state changed", "participant_id", participantID, "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateFailed:
			m.drop(participantID)
		}
	})
	m.conns[participantID] = c
	metrics.PeerConnections.Inc()
	return c, nil
}

// drop closes and forgets the record and removes the participant.
func (m *Manager) drop(participantID string) {
	m.mu.Lock()
	c, ok := m.conns[participantID]
	if ok {
		delete(m.conns, participantID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	c.Close()
	metrics.PeerConnections.Dec()
	m.store.RemoveParticipant(participantID)
	slog.Info("peer connection dropped", "participant_id", participantID)
}

func (m *Manager) lookup(participantID string) (Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[participantID]
	return c, ok
}

// CreateOffer creates (or reuses) the record for participantID and returns
// an offer with the local description already set.
func (m *Manager) CreateOffer(participantID string) (webrtc.SessionDescription, error) {
	c, err := m.ensureConn(participantID)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	offer, err := c.CreateOffer()
	if err != nil {
		metrics.SignalingErrors.Inc()
		return webrtc.SessionDescription{}, &SignalingError{Op: "offer", ParticipantID: participantID, Err: err}
	}
	return offer, nil
}

// HandleOffer applies a remote offer and returns the local answer.
func (m *Manager) HandleOffer(participantID string, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	c, err := m.ensureConn(participantID)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err = c.SetRemoteDescription(offer); err != nil {
		metrics.SignalingErrors.Inc()
		return webrtc.SessionDescription{}, &SignalingError{Op: "handle offer", ParticipantID: participantID, Err: err}
	}
	answer, err := c.CreateAnswer()
	if err != nil {
		metrics.SignalingErrors.Inc()
		return webrtc.SessionDescription{}, &SignalingError{Op: "answer", ParticipantID: participantID, Err: err}
	}
	return answer, nil
}

// HandleAnswer applies a remote answer. Answers for unknown participants are
// dropped with a log line.
func (m *Manager) HandleAnswer(participantID string, answer webrtc.SessionDescription) error {
	c, ok := m.lookup(participantID)
	if !ok {
		slog.Warn("answer for unknown participant dropped", "participant_id", participantID)
		return nil
	}
	if err := c.SetRemoteDescription(answer); err != nil {
		metrics.SignalingErrors.Inc()
		return &SignalingError{Op: "handle answer", ParticipantID: participantID, Err: err}
	}
	return nil
}

// HandleIceCandidate applies a remote candidate. Candidates racing ahead of
// their record are dropped with a log line, not buffered.
func (m *Manager) HandleIceCandidate(participantID string, cand webrtc.ICECandidateInit) error {
	c, ok := m.lookup(participantID)
	if !ok {
		slog.Warn("ice candidate for unknown participant dropped", "participant_id", participantID)
		return nil
	}
	if err := c.AddICECandidate(cand); err != nil {
		metrics.SignalingErrors.Inc()
		return &SignalingError{Op: "add candidate", ParticipantID: participantID, Err: err}
	}
	return nil
}

// SetLocalAudioEnabled gates outbound audio on every record without
// renegotiating.
func (m *Manager) SetLocalAudioEnabled(enabled bool) {
	m.mu.Lock()
	conns := make([]Conn, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()
	for _, c := range conns {
		c.SetAudioEnabled(enabled)
	}
}

// WriteAudio fans an audio sample out to every connected peer.
func (m *Manager) WriteAudio(data []byte, duration time.Duration) {
	m.mu.Lock()
	conns := make([]Conn, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()
	for _, c := range conns {
		if err := c.WriteAudio(data, duration); err != nil {
			slog.Warn("audio write failed", "error", err)
		}
	}
}

// Peers returns the participant IDs that currently hold records.
func (m *Manager) Peers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	return ids
}

// Cleanup closes every record. Idempotent.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	if m.cleaned {
		m.mu.Unlock()
		return
	}
	m.cleaned = true
	conns := m.conns
	m.conns = make(map[string]Conn)
	m.mu.Unlock()
	for id, c := range conns {
		c.Close()
		metrics.PeerConnections.Dec()
		slog.Info("peer connection closed", "participant_id", id)
	}
}
