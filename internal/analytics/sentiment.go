package analytics

import (
	"strings"
	"unicode"
)

// Polarity thresholds: scores inside (-0.1, 0.1] count as neutral.
const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

// polarityLexicon maps lowercase tokens to polarity weights in [-1, 1].
// Deliberately small and fixed so scoring stays deterministic across
// deployments.
var polarityLexicon = map[string]float64{
	"amazing": 0.7, "awesome": 0.8, "beautiful": 0.6, "best": 0.8,
	"brilliant": 0.7, "excellent": 0.8, "excited": 0.5, "fantastic": 0.7,
	"fun": 0.5, "glad": 0.5, "good": 0.5, "great": 0.6,
	"happy": 0.6, "impressive": 0.6, "incredible": 0.7, "love": 0.6,
	"loved": 0.6, "nice": 0.4, "perfect": 0.8, "proud": 0.5,
	"thanks": 0.4, "thank": 0.4, "win": 0.5, "wonderful": 0.7,
	"congrats": 0.6, "congratulations": 0.6, "enjoy": 0.5, "success": 0.5,

	"angry": -0.6, "awful": -0.8, "bad": -0.5, "broken": -0.4,
	"disappointed": -0.6, "disaster": -0.7, "fail": -0.6, "failed": -0.6,
	"hate": -0.7, "horrible": -0.8, "lost": -0.3, "mess": -0.4,
	"pathetic": -0.7, "poor": -0.4, "sad": -0.5, "scam": -0.8,
	"terrible": -0.8, "ugly": -0.5, "useless": -0.6, "waste": -0.5,
	"worst": -0.9, "wrong": -0.4, "annoying": -0.5, "boring": -0.4,
}

// negations flip the polarity of the token that follows them.
var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "isnt": {}, "wasnt": {},
	"dont": {}, "doesnt": {}, "didnt": {}, "cant": {}, "wont": {},
}

// Polarity scores text in [-1, 1] by averaging lexicon hits, honoring a
// single preceding negation word. Text with no scored tokens yields 0.
func Polarity(text string) float64 {
	tokens := tokenize(text)
	var sum float64
	var hits int
	negated := false
	for _, token := range tokens {
		if _, ok := negations[token]; ok {
			negated = true
			continue
		}
		weight, ok := polarityLexicon[token]
		if !ok {
			negated = false
			continue
		}
		if negated {
			weight = -weight
			negated = false
		}
		sum += weight
		hits++
	}
	if hits == 0 {
		return 0
	}
	score := sum / float64(hits)
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
