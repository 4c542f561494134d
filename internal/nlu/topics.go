package nlu

import "voxchat/pkg/lang"

type Topic string

const (
	TopicNone     Topic = ""
	TopicGreeting Topic = "greeting"
	TopicFarewell Topic = "farewell"
	TopicHelp     Topic = "help"
	TopicAnalysis Topic = "analysis"
)

// topicRule binds a topic to its keywords, its canned reply and the follow
// up actions offered with it. Index 0 of every pair is English, index 1 French.
type topicRule struct {
	topic    Topic
	keywords []string
	reply    [2]string
	actions  [][2]string
}

// rules are matched in declaration order; the first hit wins.
var rules = []topicRule{
	{
		topic:    TopicGreeting,
		keywords: []string{"hello", "hi", "hey", "bonjour", "salut"},
		reply: [2]string{
			"Hello! I'm your AI assistant. How can I help you today?",
			"Bonjour! Je suis votre assistant IA. Comment puis-je vous aider aujourd'hui?",
		},
		actions: [][2]string{
			{"Start a new project", "Démarrer un nouveau projet"},
			{"View tutorials", "Voir les tutoriels"},
		},
	},
	{
		topic:    TopicFarewell,
		keywords: []string{"goodbye", "bye", "au revoir", "ciao"},
		reply: [2]string{
			"Goodbye! Feel free to return if you need more assistance.",
			"Au revoir! N'hésitez pas à revenir si vous avez besoin d'aide.",
		},
	},
	{
		topic:    TopicHelp,
		keywords: []string{"help", "aide", "assist", "support"},
		reply: [2]string{
			"I can help you with:\n- Data analysis\n- Model training\n- Performance optimization\n- Technical questions",
			"Je peux vous aider avec:\n- L'analyse de données\n- L'entraînement de modèles\n- L'optimisation des performances\n- Les questions techniques",
		},
		actions: [][2]string{
			{"Show documentation", "Afficher la documentation"},
			{"Contact support", "Contacter le support"},
		},
	},
	{
		topic:    TopicAnalysis,
		keywords: []string{"analyze", "examine", "study", "check"},
		reply: [2]string{
			"I'll take a look at that for you. Share the data you want analyzed and I'll summarize what stands out.",
			"Je vais examiner cela pour vous. Partagez les données à analyser et je résumerai les points importants.",
		},
		actions: [][2]string{
			{"Upload data", "Télécharger des données"},
			{"View reports", "Voir les rapports"},
		},
	},
}

var contextual = struct {
	reply   [2]string
	actions [][2]string
}{
	reply: [2]string{
		"I understand you're interested in {topic}. Could you provide more details about what you'd like to know?",
		"Je comprends que vous vous intéressez à {topic}. Pourriez-vous me donner plus de détails sur ce que vous souhaitez savoir?",
	},
	actions: [][2]string{
		{"Tell me more", "Dites-m'en plus"},
		{"Show examples", "Montrer des exemples"},
		{"Explain differently", "Expliquer différemment"},
	},
}

// fallbackTopic is substituted when the input has no word long enough.
const fallbackTopic = "this topic"

func pick(pair [2]string, locale lang.Locale) string {
	if locale == lang.English {
		return pair[0]
	}
	return pair[1]
}

func pickAll(pairs [][2]string, locale lang.Locale) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pick(p, locale))
	}
	return out
}
