// learn.go - Incremental learning from accepted categorizations

package pattern

import "time"

// maxKeywords bounds a pattern's keyword set so a long-lived model does
// not grow without limit.
const maxKeywords = 256

// Learn records that the user accepted category for desc and returns a
// NEW model snapshot. The input model is never mutated; callers swap
// their reference to the returned snapshot atomically.
func Learn(m *PatternModel, desc, category string) *PatternModel {
	if m == nil {
		m = NewModel()
	}
	if category == "" {
		return m
	}
	normalized := Normalize(desc)
	if normalized == "" {
		return m
	}

	next := m.Clone()
	p := next.Categories[category]
	if p == nil {
		p = &CategoryPattern{
			Category:  category,
			Merchants: map[string]int{},
		}
		next.Categories[category] = p
	}

	for _, kw := range Tokenize(normalized) {
		if len(p.Keywords) >= maxKeywords && !p.hasKeyword(kw) {
			continue
		}
		p.addKeyword(kw)
	}
	if merchant := MerchantCandidate(normalized); merchant != "" {
		p.Merchants[merchant]++
	}

	p.Count++
	p.Confidence = patternConfidence(p.Count)

	next.TotalExpenses++
	next.UpdatedAt = time.Now().UTC()
	return next
}

// patternConfidence maps an observation count to an aggregate confidence:
// additive smoothing that approaches but never reaches certainty.
func patternConfidence(count int) float64 {
	conf := float64(count) / (float64(count) + 3.0)
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}
