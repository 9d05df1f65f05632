package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"walleet/internal/core"
	"walleet/internal/ledger"
	"walleet/internal/log"
)

type expenseList struct {
	Category string         `json:"category"`
	Expenses []core.Expense `json:"expenses"`
	Total    core.Money     `json:"total"`
}

// categoryParam returns the category filter, "all" when absent.
func categoryParam(r *http.Request) string {
	c := sanitizeInput(r.URL.Query().Get("category"))
	if c == "" {
		return core.AllCategories
	}
	return c
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	category := categoryParam(r)
	xs := s.deps.Ledger.View(category)
	NewJSONResponse().Body(expenseList{
		Category: category,
		Expenses: xs,
		Total:    ledger.Total(xs),
	}).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, ok := s.deps.Ledger.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, core.ErrNotFound)
		return
	}
	NewJSONResponse().Body(e).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := req.toDraft(s.deps.Taxonomy)
	if err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.deps.Capture.AddManual(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense added",
		log.FieldExpenseID, e.ID,
		log.FieldAmountCents, e.Amount.Cents,
		log.FieldCategory, e.Category)
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+e.ID).
		Body(e).Write(w)
}

// handleCreateBatch commits the expenses confirmed after a multi-item capture.
func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	drafts := make([]core.Draft, 0, len(req.Expenses))
	for _, item := range req.Expenses {
		d, err := item.toDraft(s.deps.Taxonomy)
		if err != nil {
			writeError(w, r, err)
			return
		}
		drafts = append(drafts, d)
	}

	added, err := s.deps.Capture.Confirm(r.Context(), drafts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense batch added", log.FieldCount, len(added))
	NewJSONResponse().Status(http.StatusCreated).
		Body(map[string]any{"expenses": added}).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.deps.Ledger.Get(id); !ok {
		writeError(w, r, core.ErrNotFound)
		return
	}

	var req expenseRequest
	if err := decodeJSON(r, s.validate, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := req.toDraft(s.deps.Taxonomy)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated := d.WithID(id)
	if err := s.deps.Ledger.Update(r.Context(), updated); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.deps.Ledger.Dashboard(categoryParam(r))).Write(w)
}

type categoryView struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
	InUse         bool     `json:"inUse"`
}

// handleCategories lists the configured taxonomy plus any category found in
// stored expenses that the taxonomy does not know.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	used := make(map[string]bool)
	for _, name := range s.deps.Ledger.Categories() {
		used[name] = true
	}

	var out []categoryView
	for _, c := range s.deps.Taxonomy.All() {
		out = append(out, categoryView{Name: c.Name, Subcategories: c.Subcategories, InUse: used[c.Name]})
		delete(used, c.Name)
	}
	for _, name := range s.deps.Ledger.Categories() {
		if used[name] {
			out = append(out, categoryView{Name: name, Subcategories: []string{}, InUse: true})
		}
	}
	NewJSONResponse().Body(map[string]any{"categories": out}).Write(w)
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	category := categoryParam(r)
	xs := ledger.FilterByCategory(s.deps.Ledger.List(), category)
	NewJSONResponse().Body(map[string]any{
		"category":   category,
		"byCategory": ledger.AggregateByCategory(xs),
		"byMonth":    ledger.AggregateByMonth(xs),
		"total":      ledger.Total(xs),
	}).Write(w)
}
