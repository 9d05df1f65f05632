package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date("2024-03-01T10:00:00Z"), true},
		{Date(""), false},
		{Date("not-a-date"), false},
		{Date("2024-13-01"), false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateMonthStart(t *testing.T) {
	ms, ok := Date("2024-03-17").MonthStart()
	if !ok {
		t.Fatalf("expected valid date")
	}
	if !ms.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected month start %v", ms)
	}
	if _, ok := Date("garbage").MonthStart(); ok {
		t.Fatalf("expected invalid date")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: 100, Invalid: true}).Validate(); err == nil {
		t.Fatalf("expected error for invalid amount")
	}
}

func TestDraftValidate(t *testing.T) {
	good := Draft{
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      Money{Cents: 100},
		Category:    "Cibo",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	// description and category are optional
	if err := (Draft{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}}).Validate(); err != nil {
		t.Fatalf("expected ok without description, got %v", err)
	}

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	bads := []Draft{
		{Date: Date(""), Amount: Money{Cents: 1}},
		{Date: Date("31/12/2024"), Amount: Money{Cents: 1}},
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 0}},
		{Date: NewDate(2025, 1, 1), Amount: Money{Invalid: true}},
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, Description: string(long)},
	}
	for i, d := range bads {
		if err := d.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDraftNormalize(t *testing.T) {
	d := Draft{Category: "  ", Subcategory: "Bar"}.Normalize()
	if d.Category != DefaultCategory || d.Subcategory != "" {
		t.Fatalf("unexpected normalization: %+v", d)
	}
	d = Draft{Category: "Cibo", Subcategory: " Bar "}.Normalize()
	if d.Category != "Cibo" || d.Subcategory != "Bar" {
		t.Fatalf("unexpected normalization: %+v", d)
	}
}

func TestExpenseRecategorize(t *testing.T) {
	e := Expense{ID: "1", Category: "Cibo", Subcategory: "Bar"}
	if got := e.Recategorize("Cibo"); got.Subcategory != "Bar" {
		t.Fatalf("same category should keep subcategory, got %+v", got)
	}
	if got := e.Recategorize("Casa"); got.Subcategory != "" || got.Category != "Casa" {
		t.Fatalf("category change should clear subcategory, got %+v", got)
	}
}

func TestExpenseJSONLayout(t *testing.T) {
	e := Expense{ID: "abc", Description: "Pizza", Amount: Money{Cents: 1250}, Date: "2024-03-01", Category: "Cibo"}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"abc","description":"Pizza","amount":12.5,"date":"2024-03-01","category":"Cibo"}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestExpenseJSONToleratesBadAmount(t *testing.T) {
	var xs []Expense
	in := `[{"id":"1","amount":null,"date":"2024-01-01","category":"A"},{"id":"2","amount":"abc"},{"id":"3","amount":"7,30"}]`
	if err := json.Unmarshal([]byte(in), &xs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !xs[0].Amount.Invalid || !xs[1].Amount.Invalid {
		t.Fatalf("expected invalid amounts, got %+v %+v", xs[0].Amount, xs[1].Amount)
	}
	if xs[2].Amount.Cents != 730 {
		t.Fatalf("expected 730 cents, got %d", xs[2].Amount.Cents)
	}
}
