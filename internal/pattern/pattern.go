// pattern.go - Category pattern model
//
// A CategoryPattern accumulates the keyword and merchant evidence for one
// spending category. The PatternModel is versioned as a whole: learning
// produces a new snapshot instead of mutating fields, so concurrent
// readers never observe a half-updated model.

package pattern

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// CategoryPattern holds the accumulated evidence for one category.
// Mutated only by Learn (on a fresh copy), never by matching.
type CategoryPattern struct {
	Category   string         `json:"category" bson:"category"`
	Keywords   []string       `json:"keywords" bson:"keywords"` // normalized, sorted, unique
	Merchants  map[string]int `json:"merchants" bson:"merchants"` // normalized substring -> observed frequency
	Count      int            `json:"count" bson:"count"`         // total observations
	Confidence float64        `json:"confidence" bson:"confidence"`
}

// PatternModel is an immutable snapshot of all category patterns.
type PatternModel struct {
	Categories    map[string]*CategoryPattern `json:"categories" bson:"categories"`
	UpdatedAt     time.Time                   `json:"updated_at" bson:"updated_at"`
	TotalExpenses int                         `json:"total_expenses" bson:"total_expenses"`
}

// NewModel returns an empty snapshot.
func NewModel() *PatternModel {
	return &PatternModel{Categories: map[string]*CategoryPattern{}}
}

// Clone deep-copies the model so learning can build the next snapshot
// without touching the published one.
func (m *PatternModel) Clone() *PatternModel {
	out := &PatternModel{
		Categories:    make(map[string]*CategoryPattern, len(m.Categories)),
		UpdatedAt:     m.UpdatedAt,
		TotalExpenses: m.TotalExpenses,
	}
	for name, p := range m.Categories {
		cp := &CategoryPattern{
			Category:   p.Category,
			Keywords:   append([]string(nil), p.Keywords...),
			Merchants:  make(map[string]int, len(p.Merchants)),
			Count:      p.Count,
			Confidence: p.Confidence,
		}
		for k, v := range p.Merchants {
			cp.Merchants[k] = v
		}
		out.Categories[name] = cp
	}
	return out
}

// hasKeyword reports whether kw is in the sorted keyword set.
func (p *CategoryPattern) hasKeyword(kw string) bool {
	i := sort.SearchStrings(p.Keywords, kw)
	return i < len(p.Keywords) && p.Keywords[i] == kw
}

// addKeyword inserts kw keeping the set sorted and unique.
func (p *CategoryPattern) addKeyword(kw string) {
	i := sort.SearchStrings(p.Keywords, kw)
	if i < len(p.Keywords) && p.Keywords[i] == kw {
		return
	}
	p.Keywords = append(p.Keywords, "")
	copy(p.Keywords[i+1:], p.Keywords[i:])
	p.Keywords[i] = kw
}

// EncodeModel serializes a snapshot for the external pattern store.
// The round trip through DecodeModel is lossless.
func EncodeModel(m *PatternModel) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode pattern model: %w", err)
	}
	return data, nil
}

// DecodeModel restores a snapshot produced by EncodeModel.
func DecodeModel(data []byte) (*PatternModel, error) {
	var m PatternModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode pattern model: %w", err)
	}
	if m.Categories == nil {
		m.Categories = map[string]*CategoryPattern{}
	}
	for name, p := range m.Categories {
		if p.Merchants == nil {
			p.Merchants = map[string]int{}
		}
		if p.Category == "" {
			p.Category = name
		}
		sort.Strings(p.Keywords)
	}
	return &m, nil
}
