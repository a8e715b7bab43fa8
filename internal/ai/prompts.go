// prompts.go - Fixed instruction prompts for the generative adapters

package ai

import "github.com/bosocmputer/expense_scan_gemini/internal/receipt"

const basePrompt = `You are a receipt line-item extractor for a personal expense ledger.

Extract every purchased line item from the receipt. Rules:
- "amount" is the FINAL price for the line AFTER any discount printed below it. Never emit a discount as its own item.
- For weight-priced items (a fractional quantity such as 0.272), amount = unit price x quantity.
- Tax/VAT summary lines (a percentage such as "5%" or "8%" with an amount) are separate entries with "is_tax": true.
- Ignore subtotal, total, payment, change, card and loyalty lines.
- "confidence" is your certainty for the entry, between 0 and 1.
- "total" is the grand total printed on the receipt, or 0 if unreadable.

Respond ONLY with JSON of this exact shape:
{"items":[{"code":"","description":"","amount":0,"is_tax":false,"confidence":0}],"total":0}`

// receiptTypeHints steer the model per layout family. Classification
// never blocks parsing; an unknown family just gets no hint.
var receiptTypeHints = map[receipt.Type]string{
	receipt.TypeSupermarket: "This is a supermarket receipt: expect item codes, weight-based pricing and per-item discount lines.",
	receipt.TypeRestaurant:  "This is a restaurant receipt: expect a short list of dishes without item codes, plus a possible service charge.",
	receipt.TypeConvenience: "This is a convenience-store receipt: expect a short coded item list.",
}

// GetTextParsePrompt builds the fixed prompt for the text adapter.
func GetTextParsePrompt(rtype receipt.Type) string {
	prompt := basePrompt
	if hint := receiptTypeHints[rtype]; hint != "" {
		prompt += "\n\n" + hint
	}
	return prompt + "\n\nRECEIPT TEXT:\n"
}

// GetVisionParsePrompt builds the fixed prompt for the image adapter.
func GetVisionParsePrompt(rtype receipt.Type) string {
	prompt := basePrompt
	if hint := receiptTypeHints[rtype]; hint != "" {
		prompt += "\n\n" + hint
	}
	return prompt + "\n\nThe receipt photo is attached."
}
