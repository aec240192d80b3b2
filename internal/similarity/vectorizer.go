package similarity

import "strings"

// Vectorizer turns message text into a fixed-length feature vector. The
// lexical implementation below is a stand-in for a real embedding model; any
// backend producing a deterministic fixed-dimensionality vector can replace it
// without touching the scoring or threshold logic.
type Vectorizer interface {
	Vectorize(text string) []float64
}

// Weights control how strongly each feature family separates messages.
// Intent and negation dominate plain lexical overlap so that "can you..."
// and "do you like to..." land far apart even when their nouns match.
// These are heuristic defaults meant to be tuned, not settled constants.
type Weights struct {
	Intent   float64
	Negation float64
	Phrase   float64
	Topic    float64
}

// DefaultWeights returns the stock weight configuration
func DefaultWeights() Weights {
	return Weights{Intent: 2.0, Negation: 2.5, Phrase: 1.5, Topic: 1.0}
}

// intentMarkers maps each question-intent category to the token sequences
// that signal it. Order is fixed so the vector layout is deterministic.
var intentCategories = []string{
	"ability", "preference", "quantity", "comparison", "temporal",
	"locational", "causal", "method", "yesno",
}

var intentMarkers = map[string][]string{
	"ability":    {"can you", "could you", "are you able", "is it possible", "do you support"},
	"preference": {"do you like", "do you prefer", "would you rather", "favorite", "enjoy"},
	"quantity":   {"how much", "how many", "number of", "amount of"},
	"comparison": {"better than", "worse than", "versus", " vs ", "compared to", "difference between"},
	"temporal":   {"when ", "when?", "how long", "what time", "until", "deadline", "how soon"},
	"locational": {"where ", "where?", "location", "located", "which place"},
	"causal":     {"why ", "why?", "what caused", "reason for", "how come"},
	"method":     {"how do", "how to", "how can", "how does", "what way", "steps to"},
}

// yesNoLeads are question openers that expect a yes/no answer
var yesNoLeads = []string{
	"is", "are", "do", "does", "did", "will", "would", "can", "could",
	"should", "has", "have", "am", "was", "were",
}

var negationTokens = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "cannot": {}, "can't": {}, "cant": {},
	"don't": {}, "dont": {}, "doesn't": {}, "doesnt": {}, "won't": {}, "wont": {},
	"isn't": {}, "isnt": {}, "without": {}, "n't": {},
}

// pivotalPhrases are multi-word phrases whose presence materially changes
// what a message is asking for. Fixed order, one indicator feature each.
var pivotalPhrases = []string{
	"how much", "how many", "can you help", "do you have", "is there",
	"thank you", "set up", "sign up", "log in", "follow up",
	"as soon as possible", "no longer",
}

// topicVocabularies are fixed domain vocabularies; one overlap-count feature
// per topic. Order is fixed for vector layout stability.
var topicVocabularies = []struct {
	name  string
	words []string
}{
	{"docs", []string{"docs", "documentation", "guide", "readme", "tutorial", "manual", "reference", "api"}},
	{"billing", []string{"billing", "invoice", "payment", "price", "pricing", "charge", "refund", "subscription", "cost"}},
	{"account", []string{"account", "password", "login", "access", "permission", "token", "credentials", "email"}},
	{"incident", []string{"error", "bug", "broken", "crash", "fail", "failing", "down", "issue", "outage", "fix"}},
	{"scheduling", []string{"meeting", "schedule", "calendar", "call", "tomorrow", "today", "monday", "friday", "week"}},
	{"social", []string{"thanks", "thank", "hello", "hey", "hi", "welcome", "great", "awesome", "appreciate"}},
}

// LexicalVectorizer extracts a fixed-length feature vector from raw text
// using length statistics, stopword-filtered token counts, intent, negation
// and phrase indicators, and topic-vocabulary overlap.
type LexicalVectorizer struct {
	weights Weights
}

// NewLexicalVectorizer creates a vectorizer with the given weights
func NewLexicalVectorizer(weights Weights) *LexicalVectorizer {
	return &LexicalVectorizer{weights: weights}
}

// Dimensions returns the fixed length of produced vectors
func (v *LexicalVectorizer) Dimensions() int {
	return 3 + len(intentCategories) + 1 + len(pivotalPhrases) + len(topicVocabularies)
}

// Vectorize extracts the feature vector for text. The function is
// deterministic: identical text always yields an identical vector.
func (v *LexicalVectorizer) Vectorize(text string) []float64 {
	lower := strings.ToLower(strings.TrimSpace(text))
	tokens := tokenize(lower)
	content := contentTokens(lower)
	set := tokenSet(lower)

	vector := make([]float64, 0, v.Dimensions())

	// Coarse length statistics, damped so they never dominate
	vector = append(vector, float64(len(tokens))/10.0)
	vector = append(vector, float64(len(lower))/100.0)
	vector = append(vector, float64(len(content))/10.0)

	// Question-intent indicators
	for _, category := range intentCategories {
		indicator := 0.0
		if category == "yesno" {
			if isYesNoQuestion(lower, tokens) {
				indicator = 1.0
			}
		} else if containsAnyPhrase(lower, intentMarkers[category]) {
			indicator = 1.0
		}
		vector = append(vector, indicator*v.weights.Intent)
	}

	// Negation indicator
	negation := 0.0
	for token := range negationTokens {
		if _, ok := set[token]; ok {
			negation = 1.0
			break
		}
	}
	vector = append(vector, negation*v.weights.Negation)

	// Pivotal phrase indicators
	for _, phrase := range pivotalPhrases {
		indicator := 0.0
		if strings.Contains(lower, phrase) {
			indicator = 1.0
		}
		vector = append(vector, indicator*v.weights.Phrase)
	}

	// Topic vocabulary overlap counts
	for _, topic := range topicVocabularies {
		overlap := 0.0
		for _, word := range topic.words {
			if _, ok := set[word]; ok {
				overlap++
			}
		}
		vector = append(vector, overlap*v.weights.Topic)
	}

	return vector
}

func containsAnyPhrase(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func isYesNoQuestion(text string, tokens []string) bool {
	if len(tokens) == 0 || !strings.Contains(text, "?") {
		return false
	}
	for _, lead := range yesNoLeads {
		if tokens[0] == lead {
			return true
		}
	}
	return false
}
