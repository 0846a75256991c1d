package signal

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates the signaling union.
type MessageType string

const (
	TypeJoin      MessageType = "join"
	TypeLeave     MessageType = "leave"
	TypeOffer     MessageType = "offer"
	TypeAnswer    MessageType = "answer"
	TypeCandidate MessageType = "ice-candidate"
	TypeSettings  MessageType = "settings"
	TypeMute      MessageType = "mute"
	TypeSubtitle  MessageType = "subtitle"
	TypeRoster    MessageType = "roster"
	TypeSpeaker   MessageType = "speaker"
)

// Envelope is the wire form of every signaling message. Data carries the
// type-specific payload.
type Envelope struct {
	Type          MessageType     `json:"type"`
	RoomID        string          `json:"roomId,omitempty"`
	ParticipantID string          `json:"participantId,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// JoinPayload announces a participant entering the room.
type JoinPayload struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// SDPPayload carries an offer or answer.
type SDPPayload struct {
	SDP string `json:"sdp"`
}

// CandidatePayload carries one ICE candidate.
type CandidatePayload struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// SettingsPayload replaces the sender's viewer settings.
type SettingsPayload struct {
	PreferredLanguage      string  `json:"preferredLanguage"`
	SubtitlesEnabled       bool    `json:"subtitlesEnabled"`
	SpeechEnabled          bool    `json:"speechEnabled"`
	PlayOriginalAudio      bool    `json:"playOriginalAudio"`
	AutoDownloadTranscript bool    `json:"autoDownloadTranscript"`
	SpeechRate             float64 `json:"speechRate"`
	SpeechPitch            float64 `json:"speechPitch"`
}

// MutePayload carries the sender's outbound media state.
type MutePayload struct {
	AudioEnabled bool `json:"audioEnabled"`
	VideoEnabled bool `json:"videoEnabled"`
}

// Message is a decoded envelope: exactly one payload field is set, matching
// Type.
type Message struct {
	Type          MessageType
	RoomID        string
	ParticipantID string
	Join          *JoinPayload
	SDP           *SDPPayload
	Candidate     *CandidatePayload
	Settings      *SettingsPayload
	Mute          *MutePayload
}

// Decode parses raw as an Envelope and its payload. Every member of the
// union is handled explicitly; an unlisted type is an error, never a silent
// drop.
func Decode(raw []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Message{}, fmt.Errorf("signal: decode envelope: %w", err)
	}
	msg := Message{Type: env.Type, RoomID: env.RoomID, ParticipantID: env.ParticipantID}

	switch env.Type {
	case TypeJoin:
		msg.Join = &JoinPayload{}
		if err := unmarshalPayload(env.Data, msg.Join); err != nil {
			return Message{}, err
		}
	case TypeLeave:
		// no payload
	case TypeOffer, TypeAnswer:
		msg.SDP = &SDPPayload{}
		if err := unmarshalPayload(env.Data, msg.SDP); err != nil {
			return Message{}, err
		}
	case TypeCandidate:
		msg.Candidate = &CandidatePayload{}
		if err := unmarshalPayload(env.Data, msg.Candidate); err != nil {
			return Message{}, err
		}
	case TypeSettings:
		msg.Settings = &SettingsPayload{}
		if err := unmarshalPayload(env.Data, msg.Settings); err != nil {
			return Message{}, err
		}
	case TypeMute:
		msg.Mute = &MutePayload{}
		if err := unmarshalPayload(env.Data, msg.Mute); err != nil {
			return Message{}, err
		}
	case TypeSubtitle, TypeRoster, TypeSpeaker:
		return Message{}, fmt.Errorf("signal: server-originated type %q from client", env.Type)
	default:
		return Message{}, fmt.Errorf("signal: unknown message type %q", env.Type)
	}
	return msg, nil
}

func unmarshalPayload(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("signal: missing payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("signal: decode payload: %w", err)
	}
	return nil
}

// NewEnvelope builds an envelope with a marshalled payload.
func NewEnvelope(t MessageType, roomID, participantID string, payload any) (Envelope, error) {
	env := Envelope{Type: t, RoomID: roomID, ParticipantID: participantID}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("signal: marshal payload: %w", err)
		}
		env.Data = data
	}
	return env, nil
}
