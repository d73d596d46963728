// Package core implements the filter/aggregate engine and the service facade
// that exposes it to the HTTP adapters.
package core

import (
	"fmt"

	"pathodex/pkg/domain"
)

// DefaultMaxRows caps a view when the caller does not supply a limit.
const DefaultMaxRows = 100

// FilterState holds the active predicate selections for one request. The zero
// value applies no predicates. Contagious and Chronic are tri-state: nil means
// "All".
type FilterState struct {
	Search     string   `json:"search,omitempty"`
	Contagious *bool    `json:"contagious,omitempty"`
	Chronic    *bool    `json:"chronic,omitempty"`
	Categories []string `json:"categories,omitempty"`
	MaxRows    int      `json:"max_rows,omitempty"`
}

// IsZero reports whether no predicate or limit is active.
func (f FilterState) IsZero() bool {
	return f.Search == "" && f.Contagious == nil && f.Chronic == nil &&
		len(f.Categories) == 0 && f.MaxRows == 0
}

// Validate rejects selections the engine cannot evaluate.
func (f FilterState) Validate() error {
	if f.MaxRows < 0 {
		return fmt.Errorf("max rows must not be negative, got %d", f.MaxRows)
	}
	return nil
}

// ExportFilter converts the state into its persisted form.
func (f FilterState) ExportFilter() domain.ExportFilter {
	out := domain.ExportFilter{
		Search:  f.Search,
		MaxRows: f.MaxRows,
	}
	if f.Contagious != nil {
		v := *f.Contagious
		out.Contagious = &v
	}
	if f.Chronic != nil {
		v := *f.Chronic
		out.Chronic = &v
	}
	if len(f.Categories) > 0 {
		out.Categories = append([]string(nil), f.Categories...)
	}
	return out
}

// FilterStateFromExport rebuilds a FilterState from its persisted form.
func FilterStateFromExport(f domain.ExportFilter) FilterState {
	out := FilterState{Search: f.Search, MaxRows: f.MaxRows}
	if f.Contagious != nil {
		v := *f.Contagious
		out.Contagious = &v
	}
	if f.Chronic != nil {
		v := *f.Chronic
		out.Chronic = &v
	}
	if len(f.Categories) > 0 {
		out.Categories = append([]string(nil), f.Categories...)
	}
	return out
}

// View is the filtered subsequence of the catalog. It is derived state,
// recomputed per request and never persisted.
type View struct {
	Diseases domain.Catalog `json:"diseases"`
	// Total counts matches before the row limit was applied.
	Total     int  `json:"total"`
	Truncated bool `json:"truncated"`
}

// ApplyFilters returns the subsequence of catalog records satisfying every
// active predicate, preserving catalog order. It never mutates the catalog;
// a FilterState with no active predicates and no limit returns all records.
func ApplyFilters(catalog domain.Catalog, state FilterState) View {
	view := View{Diseases: domain.Catalog{}}
	limit := state.MaxRows
	for _, d := range catalog {
		if !matches(d, state) {
			continue
		}
		view.Total++
		if limit > 0 && len(view.Diseases) >= limit {
			view.Truncated = true
			continue
		}
		view.Diseases = append(view.Diseases, d.Clone())
	}
	return view
}

func matches(d domain.Disease, state FilterState) bool {
	if !d.Matches(state.Search) {
		return false
	}
	if state.Contagious != nil && d.Contagious != *state.Contagious {
		return false
	}
	if state.Chronic != nil && d.Chronic != *state.Chronic {
		return false
	}
	if len(state.Categories) > 0 {
		found := false
		for _, category := range state.Categories {
			if d.Category == category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Summary aggregates a view for the Insights surface. All counts refer to the
// rows present in the view.
type Summary struct {
	Total         int            `json:"total"`
	Contagious    int            `json:"contagious"`
	Chronic       int            `json:"chronic"`
	ContagiousPct float64        `json:"contagious_pct"`
	ChronicPct    float64        `json:"chronic_pct"`
	ByCategory    map[string]int `json:"by_category"`
	CrossTab      CrossTab       `json:"cross_tab"`
}

// CrossTab is the contagious-by-chronic contingency table with margins.
type CrossTab struct {
	ContagiousChronic       int `json:"contagious_chronic"`
	ContagiousNonChronic    int `json:"contagious_non_chronic"`
	NonContagiousChronic    int `json:"non_contagious_chronic"`
	NonContagiousNonChronic int `json:"non_contagious_non_chronic"`
	Total                   int `json:"total"`
}

// Summarize computes aggregate counts over a view. An empty view yields a
// zero-valued Summary rather than an error.
func Summarize(view View) Summary {
	summary := Summary{ByCategory: make(map[string]int)}
	for _, d := range view.Diseases {
		summary.Total++
		summary.ByCategory[d.Category]++
		if d.Contagious {
			summary.Contagious++
		}
		if d.Chronic {
			summary.Chronic++
		}
		switch {
		case d.Contagious && d.Chronic:
			summary.CrossTab.ContagiousChronic++
		case d.Contagious:
			summary.CrossTab.ContagiousNonChronic++
		case d.Chronic:
			summary.CrossTab.NonContagiousChronic++
		default:
			summary.CrossTab.NonContagiousNonChronic++
		}
	}
	summary.CrossTab.Total = summary.Total
	if summary.Total > 0 {
		summary.ContagiousPct = float64(summary.Contagious) / float64(summary.Total)
		summary.ChronicPct = float64(summary.Chronic) / float64(summary.Total)
	}
	return summary
}
