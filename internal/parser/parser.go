// parser.go - Deterministic line parser for recognized receipt text
//
// A line-oriented state machine extracting item codes, descriptions, unit
// prices, weight-based quantities, discounts and tax summary lines from
// noisy OCR output. Unparseable lines are noise and are skipped; the
// parser never fails on malformed input.

package parser

import (
	"regexp"
	"strings"

	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
)

// Result carries the parsed items plus the recognized footer total.
// StatedTotal is never emitted as an item; it only feeds the
// orchestrator's cross-validation step.
type Result struct {
	Items          []receipt.ScannedItem
	StatedTotal    float64
	HasStatedTotal bool
}

// Parser is a reusable deterministic receipt parser. Safe for concurrent
// use: all state lives in per-call values.
type Parser struct {
	reItemCode  *regexp.Regexp
	reTaxLabel  *regexp.Regexp
	reTotal     *regexp.Regexp
	reSubtotal  *regexp.Regexp
	reExclude   *regexp.Regexp
	reInline    *regexp.Regexp
	reNumericln *regexp.Regexp
	reQtyTimes  *regexp.Regexp
	reDigits    *regexp.Regexp
}

// NewParser compiles the line classification patterns once.
func NewParser() *Parser {
	return &Parser{
		// Short numeric/alphanumeric merchant code followed by a description.
		reItemCode: regexp.MustCompile(`^([0-9A-Z]{3,13})\s+(\p{L}.*)$`),
		// Percentage label of a tax/VAT summary line: "5%", "8 %", "7.5%".
		reTaxLabel: regexp.MustCompile(`(\d{1,2}(?:[.,]\d)?)\s*%`),
		// Footer total markers. Recognized but never emitted as an item.
		reTotal:    regexp.MustCompile(`(?i)\b(grand\s*total|total|amount\s*due|balance\s*due|sum)\b`),
		reSubtotal: regexp.MustCompile(`(?i)\bsub\s*-?\s*total\b`),
		// Footer noise that must never become an item even when it carries
		// an amount: payment, change, card and loyalty lines.
		reExclude: regexp.MustCompile(`(?i)\b(cash|change|card|visa|mastercard|amex|credit|debit|tender|member|points|loyalty|cashier|receipt|thank\s*you|tel|phone)\b`),
		// Restaurant-style inline item: description with a trailing amount.
		reInline: regexp.MustCompile(`^(\p{L}[\p{L}\p{N} .,'&/-]{2,}?)\s{1,}([-−]?[\d ,.]*\d[-−]?)$`),
		// A line carrying only numeric tokens and unit noise ("kg", "x", "@").
		reNumericln: regexp.MustCompile(`^[-−@xX×*kg/.,\d\s]+$`),
		// Explicit quantity notation: "2 x 35.90", "0.272 x 1.090".
		reQtyTimes: regexp.MustCompile(`^(\d+(?:[.,]\d{1,3})?)\s*[xX×*@]\s*([\d ,.]*\d)$`),
		reDigits:   regexp.MustCompile(`\d`),
	}
}

// pendingItem is the rolling window of the state machine: the item whose
// price lines are still arriving, plus its none-or-one pending discount.
type pendingItem struct {
	code      string
	desc      string
	unitPrice float64
	quantity  float64
	lineTotal float64
	discount  float64 // negative or zero
	confSum   float64
	confN     int
	budget    int // price/quantity lines still accepted
}

// Parse walks the flattened line sequence and extracts items. A zero-item
// result is legitimate - it means nothing on the receipt was parseable.
func (p *Parser) Parse(rec *receipt.RecognitionResult) Result {
	var res Result
	var pending *pendingItem
	var lastItemIdx = -1 // index into res.Items of the last ordinary item

	flush := func() {
		if pending == nil {
			return
		}
		item, ok := p.finishItem(pending)
		if ok {
			res.Items = append(res.Items, item)
			lastItemIdx = len(res.Items) - 1
		}
		pending = nil
	}

	for _, line := range rec.FlattenLines() {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}

		// Tax/fee summary: percentage label plus an amount. Never subject
		// to quantity logic.
		if taxItem, ok := p.parseTaxLine(text, line.Confidence); ok {
			flush()
			res.Items = append(res.Items, taxItem)
			continue
		}

		// Subtotal lines are noise; full totals are captured for the
		// orchestrator's validation and never emitted.
		if p.reSubtotal.MatchString(text) {
			flush()
			continue
		}
		if p.reTotal.MatchString(text) {
			flush()
			if amounts := extractAmounts(text); len(amounts) > 0 {
				res.StatedTotal = amounts[len(amounts)-1]
				res.HasStatedTotal = true
			}
			continue
		}

		// Item-code line opens a new pending item.
		if m := p.reItemCode.FindStringSubmatch(text); m != nil && p.reDigits.MatchString(m[1]) {
			flush()
			pending = &pendingItem{
				code:    m[1],
				desc:    strings.TrimSpace(m[2]),
				confSum: line.Confidence,
				confN:   1,
				budget:  3,
			}
			// Some layouts print the amount on the code line itself.
			if mm := p.reInline.FindStringSubmatch(pending.desc); mm != nil {
				if amount, ok := parseAmount(mm[2]); ok && amount > 0 {
					pending.desc = strings.TrimSpace(mm[1])
					pending.lineTotal = amount
				}
			}
			continue
		}

		// Numeric follow-up lines feed the pending item's price fields.
		if pending != nil && pending.budget > 0 && p.reNumericln.MatchString(text) {
			p.applyNumericLine(pending, text, line.Confidence)
			continue
		}

		// A bare negative amount is a discount for the nearest preceding
		// item; it never produces an output entry of its own.
		if v, isDiscount := p.parseDiscountLine(text); isDiscount {
			switch {
			case pending != nil && pending.discount == 0:
				pending.discount = v
			case lastItemIdx >= 0:
				res.Items[lastItemIdx].Amount = round2(res.Items[lastItemIdx].Amount + v)
			}
			continue
		}

		// Payment/footer noise, checked after discounts so "COUPON -30"
		// style lines still fold into their item.
		if p.reExclude.MatchString(text) {
			flush()
			continue
		}

		// Restaurant-style inline item: description with trailing amount.
		if m := p.reInline.FindStringSubmatch(text); m != nil {
			amount, ok := parseAmount(m[2])
			if !ok {
				continue
			}
			if amount < 0 {
				// Labelled discount line ("STAFF DISCOUNT -30").
				switch {
				case pending != nil && pending.discount == 0:
					pending.discount = amount
				case lastItemIdx >= 0:
					res.Items[lastItemIdx].Amount = round2(res.Items[lastItemIdx].Amount + amount)
				}
				continue
			}
			if amount == 0 || amount > 999999 {
				continue
			}
			flush()
			res.Items = append(res.Items, receipt.ScannedItem{
				Description: strings.TrimSpace(m[1]),
				Amount:      round2(amount),
				Confidence:  line.Confidence,
			})
			lastItemIdx = len(res.Items) - 1
			continue
		}

		// Anything else is noise. The pending item survives a single
		// stretch of noise; its price lines need not be contiguous.
	}
	flush()

	return res
}

// parseTaxLine recognizes "VAT 8%  123" style summary lines.
func (p *Parser) parseTaxLine(text string, conf float64) (receipt.ScannedItem, bool) {
	m := p.reTaxLabel.FindStringSubmatchIndex(text)
	if m == nil {
		return receipt.ScannedItem{}, false
	}
	// The amount must come from the line with the percent figure removed,
	// otherwise "8" in "8%" is mistaken for the amount.
	remainder := text[:m[0]] + text[m[1]:]
	amounts := extractAmounts(remainder)
	if len(amounts) == 0 {
		return receipt.ScannedItem{}, false
	}
	amount := amounts[len(amounts)-1]
	if amount <= 0 {
		return receipt.ScannedItem{}, false
	}
	return receipt.ScannedItem{
		Description: strings.TrimSpace(text),
		Amount:      round2(amount),
		IsTax:       true,
		Confidence:  conf,
	}, true
}

// parseDiscountLine recognizes a line that is nothing but a negative
// amount ("-30", "30-", "−1 200").
func (p *Parser) parseDiscountLine(text string) (float64, bool) {
	if !p.reNumericln.MatchString(text) {
		return 0, false
	}
	v, ok := parseAmount(text)
	if !ok || v >= 0 {
		return 0, false
	}
	return v, true
}

// applyNumericLine feeds one price/quantity line into the pending item.
func (p *Parser) applyNumericLine(it *pendingItem, text string, conf float64) {
	it.budget--
	it.confSum += conf
	it.confN++

	// "qty x unit" on one line fixes both fields at once.
	if m := p.reQtyTimes.FindStringSubmatch(text); m != nil {
		if qty, ok := parseAmount(m[1]); ok && qty > 0 && qty < 100 {
			if unit, ok := parseAmount(m[2]); ok && unit > 0 {
				it.quantity = qty
				it.unitPrice = unit
				return
			}
		}
	}

	for _, v := range extractAmounts(text) {
		switch {
		case v < 0:
			if it.discount == 0 {
				it.discount = v
			}
		case hasFraction(v) && v < 10 && it.quantity == 0:
			// Provisionally a weight quantity (0.272 kg); demoted to
			// the line price if no unit price ever follows.
			it.quantity = v
		case it.unitPrice == 0:
			it.unitPrice = v
		case it.lineTotal == 0:
			it.lineTotal = v
		}
	}
}

// finishItem resolves the authoritative amount for a completed item.
//
// With both a unit price and a fractional quantity the amount is
// recomputed locally as unit x quantity: the two short tokens are more
// reliable than a separately recognized total with thousand-separator
// noise. Without a quantity the recognized line total wins, then the
// bare unit price. A quantity that never got a unit price to pair with
// was a misread weight: the fractional value is the price itself.
func (p *Parser) finishItem(it *pendingItem) (receipt.ScannedItem, bool) {
	var amount float64
	switch {
	case it.quantity > 0 && it.unitPrice > 0:
		amount = it.unitPrice * it.quantity
	case it.lineTotal > 0:
		amount = it.lineTotal
	case it.quantity > 0:
		amount = it.quantity
	default:
		amount = it.unitPrice
	}
	amount += it.discount
	if amount <= 0 {
		return receipt.ScannedItem{}, false
	}

	conf := 0.0
	if it.confN > 0 {
		conf = it.confSum / float64(it.confN)
	}
	return receipt.ScannedItem{
		Code:        it.code,
		Description: it.desc,
		Amount:      round2(amount),
		Confidence:  conf,
	}, true
}
