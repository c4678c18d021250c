// Package sentiment scores page text by summing per-word valences from the
// VADER lexicon and maps the total onto Positive/Neutral/Negative labels.
package sentiment

import (
	"math"
	"strings"
	"unicode"

	"github.com/jonreiter/govader"

	"github.com/JakeFAU/link-traffic-analyzer/internal/analysis"
)

// Label thresholds on the aggregate score.
const (
	PositiveThreshold = 2.0
	NegativeThreshold = -2.0
)

// Scorer implements analysis.SentimentScorer.
type Scorer struct {
	lexicon  map[string]float64
	negators map[string]struct{}
}

// New returns a Scorer backed by the VADER lexicon and its negation list.
func New() *Scorer {
	sia := govader.NewSentimentIntensityAnalyzer()
	return NewWithLexicon(sia.Lexicon, sia.Constants.NegateList)
}

// NewWithLexicon returns a Scorer over lexicon. A word directly preceded by
// one of negators contributes its valence with the sign flipped.
func NewWithLexicon(lexicon map[string]float64, negators []string) *Scorer {
	neg := make(map[string]struct{}, len(negators))
	for _, n := range negators {
		neg[n] = struct{}{}
	}
	return &Scorer{lexicon: lexicon, negators: neg}
}

// Analyze sums token valences. Comparative is the score per token. Both are
// rounded to two decimals.
func (s *Scorer) Analyze(text string) analysis.Sentiment {
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return analysis.NeutralSentiment()
	}
	var total float64
	for i, tok := range tokens {
		v, ok := s.lexicon[tok]
		if !ok {
			continue
		}
		if i > 0 {
			if _, negated := s.negators[tokens[i-1]]; negated {
				v = -v
			}
		}
		total += v
	}
	score := round2(total)
	return analysis.Sentiment{
		Score:       score,
		Label:       LabelFor(score),
		Comparative: round2(total / float64(len(tokens))),
	}
}

// LabelFor maps an aggregate score to a label.
func LabelFor(score float64) analysis.Label {
	switch {
	case score > PositiveThreshold:
		return analysis.LabelPositive
	case score < NegativeThreshold:
		return analysis.LabelNegative
	default:
		return analysis.LabelNeutral
	}
}

// Tokens lowercases text and splits it into words. Apostrophes and hyphens
// stay inside words so contractions like "don't" survive.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
