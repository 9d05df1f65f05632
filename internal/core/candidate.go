package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Candidate is an unvalidated record extracted from a receipt image or a
// dictated sentence. Every field is optional.
type Candidate struct {
	Description string           `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Date        string           `json:"date,omitempty"`
	Category    string           `json:"category,omitempty"`
	Subcategory string           `json:"subcategory,omitempty"`
}

type rawCandidate struct {
	Description string `json:"description"`
	Amount      any    `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// UnmarshalJSON accepts amounts as numbers or strings ("12,50", "€ 3.20").
// An amount that cannot be read is left nil rather than failing the decode.
func (c *Candidate) UnmarshalJSON(b []byte) error {
	var raw rawCandidate
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*c = Candidate{
		Description: strings.TrimSpace(raw.Description),
		Date:        strings.TrimSpace(raw.Date),
		Category:    strings.TrimSpace(raw.Category),
		Subcategory: strings.TrimSpace(raw.Subcategory),
	}
	if d, ok := ParseAmount(raw.Amount); ok {
		c.Amount = &d
	}
	return nil
}

// Accept validates the candidate. It is total: a candidate without an amount
// strictly greater than zero yields false, everything else is filled with
// defaults (description, today's date, default category).
func (c Candidate) Accept(today Date) (Draft, bool) {
	if c.Amount == nil || !c.Amount.IsPositive() {
		return Draft{}, false
	}
	amount := MoneyFromDecimal(*c.Amount)
	if !amount.Positive() {
		return Draft{}, false
	}
	d := Draft{
		Description: c.Description,
		Amount:      amount,
		Date:        Date(c.Date),
		Category:    c.Category,
		Subcategory: c.Subcategory,
	}
	if d.Description == "" {
		d.Description = DefaultImageDescription
	}
	if d.Date == "" {
		d.Date = today
	}
	return d.Normalize(), true
}

// AcceptAll filters candidates through Accept, preserving order, and
// reports how many were skipped.
func AcceptAll(cs []Candidate, today Date) (drafts []Draft, skipped int) {
	drafts = make([]Draft, 0, len(cs))
	for _, c := range cs {
		if d, ok := c.Accept(today); ok {
			drafts = append(drafts, d)
			continue
		}
		skipped++
	}
	return drafts, skipped
}

// Prefill converts a candidate into form defaults without requiring an amount,
// as the dictation flow lets the user complete missing fields.
func (c Candidate) Prefill(today Date) Draft {
	d := Draft{
		Description: c.Description,
		Date:        Date(c.Date),
		Category:    c.Category,
		Subcategory: c.Subcategory,
	}
	if c.Amount != nil {
		d.Amount = MoneyFromDecimal(*c.Amount)
	} else {
		d.Amount = Money{Invalid: true}
	}
	if d.Date == "" {
		d.Date = today
	}
	return d
}
