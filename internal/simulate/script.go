package simulate

import (
	"time"

	"github.com/polymeet/gateway/internal/session"
)

// Line is one scripted utterance: who says it, what it means in each
// language the demo supports, and how long the speaker stays highlighted.
type Line struct {
	ParticipantID string
	Name          string
	OriginalText  string
	Language      string
	Translations  map[string]string
	Duration      time.Duration
}

// TranslationFor returns the line in the viewer's preferred language,
// falling back to the original text.
func (l Line) TranslationFor(language string) string {
	if t, ok := l.Translations[language]; ok {
		return t
	}
	return l.OriginalText
}

// DefaultRoster is the demo meeting's cast.
func DefaultRoster() []session.Participant {
	return []session.Participant{
		{ID: "user-1", Name: "Alice Johnson", Language: "English", AudioEnabled: true, VideoEnabled: true},
		{ID: "user-2", Name: "Carlos Rodriguez", Language: "Spanish", AudioEnabled: true, VideoEnabled: true},
		{ID: "user-3", Name: "Yuki Tanaka", Language: "Japanese", AudioEnabled: true, VideoEnabled: true},
		{ID: "user-4", Name: "Ahmed Hassan", Language: "Arabic", AudioEnabled: true, VideoEnabled: true},
	}
}

// DefaultScript is the scripted conversation the simulator loops through.
func DefaultScript() []Line {
	return []Line{
		{
			ParticipantID: "user-1",
			Name:          "Alice Johnson",
			OriginalText:  "How are you doing today?",
			Language:      "English",
			Translations: map[string]string{
				"Spanish":  "¿Cómo estás hoy?",
				"Arabic":   "كيف حالك اليوم؟",
				"Japanese": "今日はいかがですか？",
				"French":   "Comment allez-vous aujourd'hui?",
				"German":   "Wie geht es dir heute?",
			},
			Duration: 3 * time.Second,
		},
		{
			ParticipantID: "user-2",
			Name:          "Carlos Rodriguez",
			OriginalText:  "Estoy muy bien, gracias por preguntar.",
			Language:      "Spanish",
			Translations: map[string]string{
				"English":  "I'm doing very well, thank you for asking.",
				"Arabic":   "أنا بخير جداً، شكراً لك على السؤال.",
				"Japanese": "とても元気です、聞いてくれてありがとう。",
				"French":   "Je vais très bien, merci de demander.",
				"German":   "Mir geht es sehr gut, danke der Nachfrage.",
			},
			Duration: 3500 * time.Millisecond,
		},
		{
			ParticipantID: "user-3",
			Name:          "Yuki Tanaka",
			OriginalText:  "今日は素晴らしい天気ですね。",
			Language:      "Japanese",
			Translations: map[string]string{
				"English": "The weather is wonderful today, isn't it?",
				"Spanish": "El clima está maravilloso hoy, ¿no es así?",
				"Arabic":  "الطقس رائع اليوم، أليس كذلك؟",
				"French":  "Le temps est magnifique aujourd'hui, n'est-ce pas?",
				"German":  "Das Wetter ist heute wunderbar, nicht wahr?",
			},
			Duration: 4 * time.Second,
		},
		{
			ParticipantID: "user-4",
			Name:          "Ahmed Hassan",
			OriginalText:  "نعم، إنه يوم جميل للاجتماع.",
			Language:      "Arabic",
			Translations: map[string]string{
				"English":  "Yes, it's a beautiful day for a meeting.",
				"Spanish":  "Sí, es un día hermoso para una reunión.",
				"Japanese": "はい、会議には美しい日ですね。",
				"French":   "Oui, c'est une belle journée pour une réunion.",
				"German":   "Ja, es ist ein schöner Tag für ein Meeting.",
			},
			Duration: 3200 * time.Millisecond,
		},
		{
			ParticipantID: "user-1",
			Name:          "Alice Johnson",
			OriginalText:  "Let's discuss our project goals for this quarter.",
			Language:      "English",
			Translations: map[string]string{
				"Spanish":  "Discutamos nuestros objetivos del proyecto para este trimestre.",
				"Arabic":   "دعونا نناقش أهداف مشروعنا لهذا الربع.",
				"Japanese": "今四半期のプロジェクト目標について話し合いましょう。",
				"French":   "Discutons de nos objectifs de projet pour ce trimestre.",
				"German":   "Lassen Sie uns unsere Projektziele für dieses Quartal besprechen.",
			},
			Duration: 4 * time.Second,
		},
		{
			ParticipantID: "user-2",
			Name:          "Carlos Rodriguez",
			OriginalText:  "Perfecto, tengo algunas ideas interesantes para compartir.",
			Language:      "Spanish",
			Translations: map[string]string{
				"English":  "Perfect, I have some interesting ideas to share.",
				"Arabic":   "ممتاز، لدي بعض الأفكار المثيرة للاهتمام لمشاركتها.",
				"Japanese": "完璧です、共有したい興味深いアイデアがあります。",
				"French":   "Parfait, j'ai quelques idées intéressantes à partager.",
				"German":   "Perfekt, ich habe einige interessante Ideen zu teilen.",
			},
			Duration: 3800 * time.Millisecond,
		},
	}
}
