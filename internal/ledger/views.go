package ledger

import (
	"cmp"
	"slices"
	"strings"

	"walleet/internal/core"
)

// FilterByCategory returns the expenses whose category equals category
// exactly, or all of them for core.AllCategories.
func FilterByCategory(xs []core.Expense, category string) []core.Expense {
	if category == core.AllCategories {
		return slices.Clone(xs)
	}
	out := make([]core.Expense, 0, len(xs))
	for _, e := range xs {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// SortedByDateDescending orders expenses newest first. Expenses whose date
// cannot be parsed go last; ties keep their input order.
func SortedByDateDescending(xs []core.Expense) []core.Expense {
	type keyed struct {
		e     core.Expense
		unix  int64
		valid bool
	}
	ks := make([]keyed, len(xs))
	for i, e := range xs {
		t, ok := e.Date.Time()
		ks[i] = keyed{e: e, unix: t.Unix(), valid: ok}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		switch {
		case a.valid && b.valid:
			return cmp.Compare(b.unix, a.unix)
		case a.valid:
			return -1
		case b.valid:
			return 1
		default:
			return 0
		}
	})
	out := make([]core.Expense, len(ks))
	for i, k := range ks {
		out[i] = k.e
	}
	return out
}

// AggregateByCategory sums numeric amounts per category, largest total
// first. Expenses without a category count towards core.DefaultCategory.
func AggregateByCategory(xs []core.Expense) []core.CategoryTotal {
	totals := make(map[string]core.Money)
	for _, e := range xs {
		if !e.Amount.Numeric() {
			continue
		}
		name := e.CategoryOrDefault()
		totals[name] = totals[name].Add(e.Amount)
	}
	out := make([]core.CategoryTotal, 0, len(totals))
	for name, total := range totals {
		out = append(out, core.CategoryTotal{Name: name, Total: total})
	}
	slices.SortFunc(out, func(a, b core.CategoryTotal) int {
		if c := cmp.Compare(b.Total.Cents, a.Total.Cents); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// AggregateByMonth sums numeric amounts per calendar month, newest month
// first. Expenses with unparseable dates are left out.
func AggregateByMonth(xs []core.Expense) []core.MonthTotal {
	type bucket struct {
		key   int64
		total core.MonthTotal
	}
	buckets := make(map[int64]*bucket)
	for _, e := range xs {
		if !e.Amount.Numeric() {
			continue
		}
		start, ok := e.Date.MonthStart()
		if !ok {
			continue
		}
		k := start.Unix()
		b, ok := buckets[k]
		if !ok {
			b = &bucket{key: k, total: core.MonthTotal{MonthStart: start}}
			buckets[k] = b
		}
		b.total.Total = b.total.Total.Add(e.Amount)
	}
	out := make([]core.MonthTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.total)
	}
	slices.SortFunc(out, func(a, b core.MonthTotal) int {
		return b.MonthStart.Compare(a.MonthStart)
	})
	return out
}

// TotalToday sums the expenses recorded on today. Dates are compared as
// strings, so timestamps recorded on the same day do not match.
func TotalToday(xs []core.Expense, today core.Date) core.Money {
	var total core.Money
	for _, e := range xs {
		if e.Date == today && e.Amount.Numeric() {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Total sums every numeric amount.
func Total(xs []core.Expense) core.Money {
	var total core.Money
	for _, e := range xs {
		if e.Amount.Numeric() {
			total = total.Add(e.Amount)
		}
	}
	return total
}

func Summarize(xs []core.Expense, today core.Date) core.Dashboard {
	return core.Dashboard{
		Total:      Total(xs),
		Today:      TotalToday(xs, today),
		ByCategory: AggregateByCategory(xs),
		ByMonth:    AggregateByMonth(xs),
	}
}
