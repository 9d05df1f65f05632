package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultCategory is applied to expenses recorded without a category.
	DefaultCategory = "Altro"

	// DefaultImageDescription labels expenses extracted from a receipt with no description.
	DefaultImageDescription = "Spesa da immagine"

	// AllCategories selects every expense in category filters.
	AllCategories = "all"

	maxDescriptionLen = 200
	isoDateLayout     = "2006-01-02"
)

type (
	// Date is a calendar date kept exactly as recorded (ISO 8601, YYYY-MM-DD).
	// Values coming from receipt parsing may be malformed; they are kept
	// verbatim and only interpreted on read.
	Date string

	Money struct {
		Cents int64
		// Invalid marks amounts that were missing or non-numeric in stored data.
		Invalid bool
	}

	// Draft is an expense that has not been assigned an id yet.
	Draft struct {
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
		Date        Date   `json:"date"`
		Category    string `json:"category"`
		Subcategory string `json:"subcategory,omitempty"`
	}

	Expense struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Amount      Money  `json:"amount"`
		Date        Date   `json:"date"`
		Category    string `json:"category"`
		Subcategory string `json:"subcategory,omitempty"`
	}

	// QueuedImage is a receipt image waiting for analysis.
	QueuedImage struct {
		ID        string    `json:"id"`
		ImageData []byte    `json:"imageData"`
		MimeType  string    `json:"mimeType"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrNotFound           = errors.New("not found")
	ErrEmptyImage         = errors.New("empty image payload")
)

// NewID returns a fresh opaque identifier for expenses and queued images.
func NewID() string {
	return uuid.NewString()
}

// NewDate creates a Date from year, month, day
func NewDate(year, month, day int) Date {
	return DateOf(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
}

// DateOf formats t as a calendar date in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(isoDateLayout))
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(time.Now().In(loc))
}

// Time parses the date. Full timestamps written by older clients are accepted too.
func (d Date) Time() (time.Time, bool) {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{isoDateLayout, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (d Date) Valid() bool {
	_, ok := d.Time()
	return ok
}

func (d Date) Validate() error {
	if !d.Valid() {
		return ErrInvalidDate
	}
	return nil
}

// MonthStart returns the first day of the date's month.
func (d Date) MonthStart() (time.Time, bool) {
	t, ok := d.Time()
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
}

func (d Date) String() string {
	return string(d)
}

// Validate applies the checks the entry forms run before submitting.
// The ledger itself stores whatever it is given.
func (d Draft) Validate() error {
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if len(d.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return d.Amount.Validate()
}

// Normalize applies the default category and drops a subcategory that has no category.
func (d Draft) Normalize() Draft {
	d.Category = strings.TrimSpace(d.Category)
	d.Subcategory = strings.TrimSpace(d.Subcategory)
	if d.Category == "" {
		d.Category = DefaultCategory
		d.Subcategory = ""
	}
	return d
}

// WithID turns the draft into a stored expense.
func (d Draft) WithID(id string) Expense {
	return Expense{
		ID:          id,
		Description: d.Description,
		Amount:      d.Amount,
		Date:        d.Date,
		Category:    d.Category,
		Subcategory: d.Subcategory,
	}
}

// Draft returns the expense without its id.
func (e Expense) Draft() Draft {
	return Draft{
		Description: e.Description,
		Amount:      e.Amount,
		Date:        e.Date,
		Category:    e.Category,
		Subcategory: e.Subcategory,
	}
}

// CategoryOrDefault returns the expense category, falling back to DefaultCategory.
func (e Expense) CategoryOrDefault() string {
	if strings.TrimSpace(e.Category) == "" {
		return DefaultCategory
	}
	return e.Category
}

// Recategorize moves the expense to category. The subcategory only makes
// sense within its category, so it is cleared whenever the category changes.
func (e Expense) Recategorize(category string) Expense {
	if category != e.Category {
		e.Subcategory = ""
	}
	e.Category = category
	return e
}
