package speech

import (
	"context"
	"strings"
)

// Voice is one synthesis voice offered by a provider.
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// VoiceProvider enumerates available voices. Providers may return an empty
// list while still warming up; the synthesizer polls until voices appear.
type VoiceProvider interface {
	Voices(ctx context.Context) ([]Voice, error)
}

// StaticVoices is a VoiceProvider over a fixed list.
type StaticVoices []Voice

func (v StaticVoices) Voices(context.Context) ([]Voice, error) { return v, nil }

// languageLocales maps a human language name to locale codes in preference
// order. Unknown names fall back to the lowercased name itself.
var languageLocales = map[string][]string{
	"English":    {"en-US", "en-GB", "en"},
	"Spanish":    {"es-ES", "es-MX", "es"},
	"French":     {"fr-FR", "fr-CA", "fr"},
	"German":     {"de-DE", "de"},
	"Italian":    {"it-IT", "it"},
	"Portuguese": {"pt-BR", "pt-PT", "pt"},
	"Russian":    {"ru-RU", "ru"},
	"Japanese":   {"ja-JP", "ja"},
	"Korean":     {"ko-KR", "ko"},
	"Chinese":    {"zh-CN", "zh-TW", "zh"},
	"Arabic":     {"ar-SA", "ar-EG", "ar"},
	"Hindi":      {"hi-IN", "hi"},
	"Urdu":       {"ur-PK", "ur"},
	"Turkish":    {"tr-TR", "tr"},
	"Dutch":      {"nl-NL", "nl"},
	"Swedish":    {"sv-SE", "sv"},
	"Norwegian":  {"no-NO", "nb-NO", "no"},
	"Danish":     {"da-DK", "da"},
	"Finnish":    {"fi-FI", "fi"},
	"Polish":     {"pl-PL", "pl"},
}

// defaultLocale is used when no voice matched and the language name itself
// is unknown.
var defaultLocale = map[string]string{
	"English": "en-US", "Spanish": "es-ES", "French": "fr-FR",
	"German": "de-DE", "Italian": "it-IT", "Portuguese": "pt-BR",
	"Russian": "ru-RU", "Japanese": "ja-JP", "Korean": "ko-KR",
	"Chinese": "zh-CN", "Arabic": "ar-SA", "Hindi": "hi-IN",
	"Urdu": "ur-PK", "Turkish": "tr-TR", "Dutch": "nl-NL",
	"Swedish": "sv-SE", "Norwegian": "no-NO", "Danish": "da-DK",
	"Finnish": "fi-FI", "Polish": "pl-PL",
}

// LocaleFor returns the canonical locale code for a language name,
// defaulting to en-US.
func LocaleFor(language string) string {
	if code, ok := defaultLocale[language]; ok {
		return code
	}
	return "en-US"
}

// selectVoice picks the first voice whose locale prefix-matches one of the
// language's locale codes, case-insensitively, walking codes in preference
// order. With no match it settles for the first voice available.
func selectVoice(voices []Voice, language string) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	codes, ok := languageLocales[language]
	if !ok {
		codes = []string{strings.ToLower(language)}
	}
	for _, code := range codes {
		for _, v := range voices {
			if strings.HasPrefix(strings.ToLower(v.Lang), strings.ToLower(code)) {
				return v, true
			}
		}
	}
	return voices[0], true
}
