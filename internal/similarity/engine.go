package similarity

import (
	"math"
	"sort"

	"replydesk/internal/models"
)

// Tier buckets a continuous confidence score for display purposes
type Tier string

const (
	TierLow      Tier = "low"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierVeryHigh Tier = "veryHigh"
)

// TierFor assigns the display tier for a confidence score
func TierFor(confidence float64) Tier {
	switch {
	case confidence >= 90:
		return TierVeryHigh
	case confidence >= 75:
		return TierHigh
	case confidence >= 50:
		return TierMedium
	default:
		return TierLow
	}
}

// Result pairs a candidate template message with its confidence against a target
type Result struct {
	Message    models.Message `json:"message"`    // The candidate template
	Confidence float64        `json:"confidence"` // Similarity score in [0,100]
	Tier       Tier           `json:"tier"`       // Display tier derived from the score
}

// Engine scores new messages against template messages. Two thresholds gate
// its output: the display threshold is a low "worth showing to a human" bar,
// the auto-response threshold a high "safe to auto-send" bar — false positives
// above the latter cause an irreversible outbound message.
type Engine struct {
	vectorizer            Vectorizer
	displayThreshold      float64
	autoResponseThreshold float64
}

// NewEngine creates a similarity engine with the given thresholds
func NewEngine(vectorizer Vectorizer, displayThreshold, autoResponseThreshold float64) *Engine {
	return &Engine{
		vectorizer:            vectorizer,
		displayThreshold:      displayThreshold,
		autoResponseThreshold: autoResponseThreshold,
	}
}

// Vectorize exposes the engine's vectorizer for feature-vector caching
func (e *Engine) Vectorize(text string) []float64 {
	return e.vectorizer.Vectorize(text)
}

// Confidence converts cosine similarity of two vectors to a [0,100] score.
// A zero-magnitude vector yields 0 rather than a division error.
func (e *Engine) Confidence(a, b []float64) float64 {
	score := cosineSimilarity(a, b) * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Score ranks candidates by similarity to the target message. Only candidates
// strictly above the display threshold survive; results are sorted by
// descending confidence. Cached feature vectors are used when present.
func (e *Engine) Score(target models.Message, candidates []models.Message) []Result {
	targetVector := target.FeatureVector
	if targetVector == nil {
		targetVector = e.vectorizer.Vectorize(target.Text)
	}

	results := make([]Result, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == target.ID {
			continue
		}
		candidateVector := candidate.FeatureVector
		if candidateVector == nil {
			candidateVector = e.vectorizer.Vectorize(candidate.Text)
		}

		confidence := e.Confidence(targetVector, candidateVector)
		if confidence <= e.displayThreshold {
			continue
		}
		results = append(results, Result{
			Message:    candidate,
			Confidence: confidence,
			Tier:       TierFor(confidence),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}

// AutoResponseCandidate returns the single highest-confidence template at or
// above the auto-response threshold, if any. Candidates must be template
// messages that already carry a reply.
func (e *Engine) AutoResponseCandidate(target models.Message, candidates []models.Message) (*Result, bool) {
	var best *Result
	for _, result := range e.Score(target, candidates) {
		if result.Confidence < e.autoResponseThreshold {
			continue
		}
		if !result.Message.IsTemplate || !result.Message.HasReply() {
			continue
		}
		if best == nil || result.Confidence > best.Confidence {
			r := result
			best = &r
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// cosineSimilarity calculates cosine similarity between two vectors
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
