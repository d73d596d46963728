// Package domain defines the core disease record, catalog value types, and
// the persistence contracts used by pathodex.
package domain

import "strings"

// Disease is one immutable entry of the explorer catalog. Records are created
// by the CSV loader at startup and never mutated afterwards.
type Disease struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Symptoms   []string `json:"symptoms"`
	Treatments []string `json:"treatments"`
	Category   string   `json:"category"`
	Contagious bool     `json:"contagious"`
	Chronic    bool     `json:"chronic"`
}

// CategoryUncategorized is assigned when the source row carries no category.
const CategoryUncategorized = "Uncategorized"

// Clone returns a deep copy so callers can hand records across API boundaries
// without exposing shared slices.
func (d Disease) Clone() Disease {
	dup := d
	if len(d.Symptoms) > 0 {
		dup.Symptoms = append([]string(nil), d.Symptoms...)
	}
	if len(d.Treatments) > 0 {
		dup.Treatments = append([]string(nil), d.Treatments...)
	}
	return dup
}

// Matches reports whether the case-insensitive search term occurs in the
// disease name or any symptom. An empty term matches everything.
func (d Disease) Matches(term string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	if strings.Contains(strings.ToLower(d.Name), needle) {
		return true
	}
	for _, symptom := range d.Symptoms {
		if strings.Contains(strings.ToLower(symptom), needle) {
			return true
		}
	}
	return false
}

// Catalog is the ordered, read-only sequence of disease records for a process
// lifetime.
type Catalog []Disease

// Clone deep-copies the catalog.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return nil
	}
	out := make(Catalog, len(c))
	for i, d := range c {
		out[i] = d.Clone()
	}
	return out
}

// Categories returns the distinct category tags in first-seen order.
func (c Catalog) Categories() []string {
	seen := make(map[string]struct{}, len(c))
	var out []string
	for _, d := range c {
		if _, ok := seen[d.Category]; ok {
			continue
		}
		seen[d.Category] = struct{}{}
		out = append(out, d.Category)
	}
	return out
}
