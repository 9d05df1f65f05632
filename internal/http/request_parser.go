// Package http serves the JSON API used by the presentation layer.
//
// This file decodes and validates request bodies into domain values.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"walleet/internal/core"
	"walleet/internal/taxonomy"
)

const maxJSONBody = 1 << 20

var errUnknownSubcategory = errors.New("subcategory does not belong to the category")

// badRequestError marks bodies that could not be decoded at all.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

// amountInput accepts both JSON numbers and strings ("12,50").
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountInput(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amountInput(n.String())
	return nil
}

type expenseRequest struct {
	Description string      `json:"description" validate:"max=200"`
	Amount      amountInput `json:"amount" validate:"required"`
	Date        string      `json:"date" validate:"required,isodate"`
	Category    string      `json:"category" validate:"max=100"`
	Subcategory string      `json:"subcategory" validate:"max=100"`
}

type batchRequest struct {
	Expenses []expenseRequest `json:"expenses" validate:"required,min=1,max=200,dive"`
}

type voiceRequest struct {
	Transcript string `json:"transcript" validate:"required,max=1000"`
}

type connectivityRequest struct {
	Online *bool `json:"online" validate:"required"`
}

type pinSetupRequest struct {
	PIN     string `json:"pin" validate:"required,len=4,numeric"`
	Confirm string `json:"confirm" validate:"required"`
}

type pinVerifyRequest struct {
	PIN string `json:"pin" validate:"required"`
}

type biometricsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return core.Date(fl.Field().String()).Valid()
	})
	return v
}

// decodeJSON reads a single JSON document into dst and validates it.
func decodeJSON(r *http.Request, v *validator.Validate, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return &badRequestError{msg: "request body too large"}
		}
		if errors.Is(err, io.EOF) {
			return &badRequestError{msg: "request body is empty"}
		}
		return &badRequestError{msg: "malformed JSON: " + err.Error()}
	}
	if dec.More() {
		return &badRequestError{msg: "request body must contain a single JSON object"}
	}
	return v.Struct(dst)
}

// toDraft converts a validated request, checking the subcategory against tax.
func (req expenseRequest) toDraft(tax *taxonomy.Taxonomy) (core.Draft, error) {
	cents, err := core.ParseDecimalToCents(string(req.Amount))
	if err != nil {
		return core.Draft{}, err
	}
	d := core.Draft{
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Date:        core.Date(strings.TrimSpace(req.Date)),
		Category:    sanitizeInput(req.Category),
		Subcategory: sanitizeInput(req.Subcategory),
	}.Normalize()

	if tax != nil && d.Subcategory != "" && !tax.ValidSubcategory(d.Category, d.Subcategory) {
		return core.Draft{}, fmt.Errorf("%w: %q is not under %q", errUnknownSubcategory, d.Subcategory, d.Category)
	}
	return d, d.Validate()
}

func validationMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "isodate":
			parts = append(parts, field+" must be a date in YYYY-MM-DD format")
		case "max", "len", "min":
			parts = append(parts, field+" must have "+fe.Tag()+" "+fe.Param())
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

// parseBoolParam reads a form or query flag, treating absent as false.
func parseBoolParam(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
