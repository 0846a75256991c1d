package session

import "time"

// Participant is one member of a room as the UI sees it: identity plus the
// flags the session core flips on its behalf.
type Participant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Language     string `json:"language"`
	AudioEnabled bool   `json:"audioEnabled"`
	VideoEnabled bool   `json:"videoEnabled"`
	IsSpeaking   bool   `json:"isSpeaking"`
	IsLocal      bool   `json:"isLocal"`
}

// Subtitle is one finished pipeline result. OriginalText is what the speaker
// said; TranslatedText is what the local viewer reads.
type Subtitle struct {
	ID             string    `json:"id"`
	ParticipantID  string    `json:"participantId"`
	Name           string    `json:"name"`
	OriginalText   string    `json:"originalText"`
	TranslatedText string    `json:"translatedText"`
	Language       string    `json:"language"`
	Timestamp      time.Time `json:"timestamp"`
}

// Settings holds the per-viewer preferences each pipeline stage reads fresh.
// SpeechEnabled plays the translated audio; PlayOriginalAudio additionally
// passes the speaker's own voice through.
type Settings struct {
	PreferredLanguage      string  `json:"preferredLanguage"`
	SubtitlesEnabled       bool    `json:"subtitlesEnabled"`
	SpeechEnabled          bool    `json:"speechEnabled"`
	PlayOriginalAudio      bool    `json:"playOriginalAudio"`
	AutoDownloadTranscript bool    `json:"autoDownloadTranscript"`
	SpeechRate             float64 `json:"speechRate"`
	SpeechPitch            float64 `json:"speechPitch"`
}

// DefaultSettings mirrors what a fresh client starts with: subtitles and
// translated speech on, original passthrough off.
func DefaultSettings() Settings {
	return Settings{
		PreferredLanguage:      "English",
		SubtitlesEnabled:       true,
		SpeechEnabled:          true,
		PlayOriginalAudio:      false,
		AutoDownloadTranscript: false,
		SpeechRate:             1.0,
		SpeechPitch:            1.0,
	}
}
