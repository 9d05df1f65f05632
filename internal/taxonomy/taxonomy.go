// Package taxonomy holds the suggested categories and their subcategories.
package taxonomy

import (
	"bufio"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"walleet/internal/core"
)

// SeedFile is read from the data directory when present. Each line is
// "Category: sub1, sub2"; blank lines and # comments are ignored.
const SeedFile = "categories.txt"

type Category struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

// Taxonomy is immutable after construction.
type Taxonomy struct {
	cats []Category
	idx  map[string]int
}

var defaults = []Category{
	{Name: "Alimentari", Subcategories: []string{"Supermercato", "Ristorante", "Bar"}},
	{Name: "Trasporti", Subcategories: []string{"Carburante", "Mezzi pubblici", "Parcheggio"}},
	{Name: "Casa", Subcategories: []string{"Affitto", "Bollette", "Manutenzione"}},
	{Name: "Salute", Subcategories: []string{"Farmacia", "Visite"}},
	{Name: "Svago", Subcategories: []string{"Cinema", "Viaggi", "Abbonamenti"}},
	{Name: "Shopping", Subcategories: []string{"Abbigliamento", "Elettronica"}},
}

func New(cats []Category) *Taxonomy {
	t := &Taxonomy{idx: make(map[string]int)}
	for _, c := range cats {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		if i, ok := t.idx[name]; ok {
			t.cats[i].Subcategories = dedupe(append(t.cats[i].Subcategories, c.Subcategories...))
			continue
		}
		t.idx[name] = len(t.cats)
		t.cats = append(t.cats, Category{Name: name, Subcategories: dedupe(c.Subcategories)})
	}
	if _, ok := t.idx[core.DefaultCategory]; !ok {
		t.idx[core.DefaultCategory] = len(t.cats)
		t.cats = append(t.cats, Category{Name: core.DefaultCategory, Subcategories: []string{}})
	}
	return t
}

func Default() *Taxonomy {
	return New(defaults)
}

// Load reads dir/categories.txt, falling back to the built-in list.
func Load(dir string) *Taxonomy {
	lines := readLines(filepath.Join(dir, SeedFile))
	if len(lines) == 0 {
		return Default()
	}
	cats := make([]Category, 0, len(lines))
	for _, line := range lines {
		name, subs, _ := strings.Cut(line, ":")
		c := Category{Name: name}
		if subs != "" {
			c.Subcategories = strings.Split(subs, ",")
		}
		cats = append(cats, c)
	}
	return New(cats)
}

// All returns every category in declaration order.
func (t *Taxonomy) All() []Category {
	out := make([]Category, len(t.cats))
	for i, c := range t.cats {
		out[i] = Category{Name: c.Name, Subcategories: slices.Clone(c.Subcategories)}
	}
	return out
}

func (t *Taxonomy) Names() []string {
	out := make([]string, len(t.cats))
	for i, c := range t.cats {
		out[i] = c.Name
	}
	return out
}

func (t *Taxonomy) Has(category string) bool {
	_, ok := t.idx[category]
	return ok
}

func (t *Taxonomy) Subcategories(category string) []string {
	if i, ok := t.idx[category]; ok {
		return slices.Clone(t.cats[i].Subcategories)
	}
	return nil
}

// ValidSubcategory reports whether sub may be used with category. Categories
// outside the taxonomy are free-form and accept any subcategory.
func (t *Taxonomy) ValidSubcategory(category, sub string) bool {
	if sub == "" {
		return true
	}
	i, ok := t.idx[category]
	if !ok {
		return true
	}
	return slices.Contains(t.cats[i].Subcategories, sub)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
