package rtc

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
)

// Conn is the slice of a peer connection the session manager needs. Keeping
// it narrow lets tests drive state transitions without ICE or a network.
type Conn interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetRemoteDescription(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error
	OnICECandidate(func(webrtc.ICECandidateInit))
	OnTrack(func())
	OnStateChange(func(webrtc.PeerConnectionState))
	SetAudioEnabled(bool)
	WriteAudio(data []byte, duration time.Duration) error
	Close() error
}

// ConnFactory builds a Conn for a participant.
type ConnFactory func(participantID string) (Conn, error)

// NewPionFactory returns a factory producing real pion peer connections with
// the given STUN servers and one outbound opus audio track.
func NewPionFactory(stunURLs []string) ConnFactory {
	cfg := webrtc.Configuration{}
	if len(stunURLs) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: stunURLs}}
	}
	return func(participantID string) (Conn, error) {
		pc, err := webrtc.NewPeerConnection(cfg)
		if err != nil {
			return nil, fmt.Errorf("rtc: new peer connection: %w", err)
		}
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio", participantID,
		)
		if err != nil {
			pc.Close()
			return nil, fmt.Errorf("rtc: new audio track: %w", err)
		}
		if _, err = pc.AddTrack(track); err != nil {
			pc.Close()
			return nil, fmt.Errorf("rtc: add audio track: %w", err)
		}
		c := &pionConn{pc: pc, track: track}
		c.audioEnabled.Store(true)
		return c, nil
	}
}

type pionConn struct {
	pc           *webrtc.PeerConnection
	track        *webrtc.TrackLocalStaticSample
	audioEnabled atomic.Bool
}

func (c *pionConn) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err = c.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return offer, nil
}

func (c *pionConn) CreateAnswer() (webrtc.SessionDescription, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err = c.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return answer, nil
}

func (c *pionConn) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(desc)
}

func (c *pionConn) AddICECandidate(cand webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(cand)
}

func (c *pionConn) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		fn(cand.ToJSON())
	})
}

func (c *pionConn) OnTrack(fn func()) {
	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		fn()
	})
}

func (c *pionConn) OnStateChange(fn func(webrtc.PeerConnectionState)) {
	c.pc.OnConnectionStateChange(fn)
}

// SetAudioEnabled mutes outbound audio by gating writes; no renegotiation.
func (c *pionConn) SetAudioEnabled(enabled bool) {
	c.audioEnabled.Store(enabled)
}

func (c *pionConn) WriteAudio(data []byte, duration time.Duration) error {
	if !c.audioEnabled.Load() {
		return nil
	}
	return c.track.WriteSample(media.Sample{Data: data, Duration: duration})
}

func (c *pionConn) Close() error {
	return c.pc.Close()
}
