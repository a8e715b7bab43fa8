// matcher.go - Scoring free-text descriptions against category patterns
//
// A merchant-substring hit is stronger evidence than any amount of shared
// vocabulary, so the merchant component always outranks the keyword
// component, which in turn always outranks no evidence (exactly 0).

package pattern

import "strings"

const (
	// merchantBaseScore is the floor awarded for any merchant-substring
	// hit. It must stay above keywordScoreCap so an exact merchant
	// identity can never lose to incidental keyword overlap.
	merchantBaseScore = 0.6
	// merchantBonusMax scales with the pattern's accumulated confidence.
	merchantBonusMax = 0.3
	// keywordHitScore is added per matched keyword, up to keywordScoreCap.
	keywordHitScore = 0.1
	keywordScoreCap = 0.5

	// DefaultThreshold is the minimum score BestMatch requires.
	DefaultThreshold = 0.3
)

// MatchScore scores a description against one category pattern.
// The result is in [0,1] and exactly 0 when neither merchant nor keyword
// evidence exists.
func MatchScore(p *CategoryPattern, desc string) float64 {
	if p == nil {
		return 0
	}
	normalized := Normalize(desc)
	if normalized == "" {
		return 0
	}

	merchantScore := 0.0
	for merchant := range p.Merchants {
		if merchant != "" && strings.Contains(normalized, merchant) {
			merchantScore = merchantBaseScore + merchantBonusMax*p.Confidence
			break
		}
	}

	keywordScore := 0.0
	for _, tok := range Tokenize(normalized) {
		if p.hasKeyword(tok) {
			keywordScore += keywordHitScore
			if keywordScore >= keywordScoreCap {
				keywordScore = keywordScoreCap
				break
			}
		}
	}

	if merchantScore > keywordScore {
		return merchantScore
	}
	return keywordScore
}

// BestMatch returns the category with the highest score strictly above
// threshold. The false return means "defer to the caller's default
// category"; it is not an error.
func BestMatch(m *PatternModel, desc string, threshold float64) (string, bool) {
	if m == nil {
		return "", false
	}
	best := ""
	bestScore := 0.0
	for name, p := range m.Categories {
		score := MatchScore(p, desc)
		if score > bestScore || (score == bestScore && score > 0 && name < best) {
			best = name
			bestScore = score
		}
	}
	if bestScore <= threshold {
		return "", false
	}
	return best, true
}

// Confidence reports the match score of a description against one named
// category, 0 when the category is unknown.
func Confidence(m *PatternModel, desc, category string) float64 {
	if m == nil {
		return 0
	}
	return MatchScore(m.Categories[category], desc)
}
