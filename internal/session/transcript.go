package session

import "strings"

// Transcript renders the retained subtitle history as plain text, one line
// per subtitle: "[HH:MM:SS] name: translatedText".
func (s *Store) Transcript() string {
	subs := s.Subtitles()
	var b strings.Builder
	for _, sub := range subs {
		b.WriteString("[")
		b.WriteString(sub.Timestamp.Format("15:04:05"))
		b.WriteString("] ")
		b.WriteString(sub.Name)
		b.WriteString(": ")
		b.WriteString(sub.TranslatedText)
		b.WriteString("\n")
	}
	return b.String()
}
