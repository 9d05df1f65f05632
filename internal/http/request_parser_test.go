package http

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"

	"walleet/internal/core"
	"walleet/internal/taxonomy"
)

func TestAmountInput_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want amountInput
	}{
		{`12.5`, "12.5"},
		{`"12,50"`, "12,50"},
		{`"  3.20 "`, "3.20"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var got amountInput
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}

	var bad amountInput
	if err := json.Unmarshal([]byte(`{"x":1}`), &bad); err == nil {
		t.Error("expected an error for an object amount")
	}
}

func TestDecodeJSON(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name       string
		body       string
		wantBadReq bool
		wantValErr bool
	}{
		{name: "valid", body: `{"description":"Pane","amount":"2,50","date":"2024-03-01"}`},
		{name: "empty body", body: ``, wantBadReq: true},
		{name: "malformed", body: `{"description":`, wantBadReq: true},
		{name: "unknown field", body: `{"amount":1,"date":"2024-03-01","price":3}`, wantBadReq: true},
		{name: "two documents", body: `{"amount":1,"date":"2024-03-01"}{}`, wantBadReq: true},
		{name: "missing amount", body: `{"date":"2024-03-01"}`, wantValErr: true},
		{name: "bad date", body: `{"amount":1,"date":"01/03/2024"}`, wantValErr: true},
		{name: "long description", body: `{"amount":1,"date":"2024-03-01","description":"` + strings.Repeat("x", 201) + `"}`, wantValErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/expenses", strings.NewReader(tt.body))
			var req expenseRequest
			err := decodeJSON(r, v, &req)

			var be *badRequestError
			var ve validator.ValidationErrors
			switch {
			case tt.wantBadReq:
				if !errors.As(err, &be) {
					t.Errorf("err = %v, want bad request", err)
				}
			case tt.wantValErr:
				if !errors.As(err, &ve) {
					t.Errorf("err = %v, want validation errors", err)
				}
			default:
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestValidationMessage_UsesJSONNames(t *testing.T) {
	v := newValidator()
	r := httptest.NewRequest("POST", "/api/expenses", strings.NewReader(`{"date":"2024-3-1"}`))
	err := decodeJSON(r, v, &expenseRequest{})

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want validation errors", err)
	}
	msg := validationMessage(ve)
	for _, want := range []string{"amount is required", "date must be a date in YYYY-MM-DD format"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q does not contain %q", msg, want)
		}
	}
}

func TestExpenseRequest_ToDraft(t *testing.T) {
	tax := taxonomy.New([]taxonomy.Category{{Name: "Cibo", Subcategories: []string{"Bar"}}})

	d, err := expenseRequest{Description: " Caffè\x00 ", Amount: "1,20", Date: "2024-03-01", Category: "Cibo", Subcategory: "Bar"}.toDraft(tax)
	if err != nil {
		t.Fatalf("toDraft: %v", err)
	}
	if d.Description != "Caffè" || d.Amount.Cents != 120 || d.Subcategory != "Bar" {
		t.Errorf("draft = %+v", d)
	}

	d, err = expenseRequest{Amount: "5", Date: "2024-03-01", Subcategory: "Bar"}.toDraft(tax)
	if err != nil {
		t.Fatalf("toDraft: %v", err)
	}
	if d.Category != core.DefaultCategory || d.Subcategory != "" {
		t.Errorf("missing category should fall back to the default without subcategory, got %+v", d)
	}

	if _, err := (expenseRequest{Amount: "5", Date: "2024-03-01", Category: "Cibo", Subcategory: "Cinema"}).toDraft(tax); !errors.Is(err, errUnknownSubcategory) {
		t.Errorf("err = %v, want errUnknownSubcategory", err)
	}
	if _, err := (expenseRequest{Amount: "5", Date: "2024-03-01", Category: "Viaggi", Subcategory: "Treno"}).toDraft(tax); err != nil {
		t.Errorf("unknown categories accept any subcategory, got %v", err)
	}
	if _, err := (expenseRequest{Amount: "0", Date: "2024-03-01"}).toDraft(tax); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x01b\tc  "); got != "ab\tc" {
		t.Errorf("sanitizeInput = %q", got)
	}
}

func TestParseBoolParam(t *testing.T) {
	for in, want := range map[string]bool{"true": true, "1": true, " true ": true, "": false, "no": false, "false": false} {
		if got := parseBoolParam(in); got != want {
			t.Errorf("parseBoolParam(%q) = %v, want %v", in, got, want)
		}
	}
}
