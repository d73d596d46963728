package explorer

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pathodex/internal/core"
)

// uiPage carries everything the server-rendered page needs. The page is
// deliberately plain: filter form, result table, insight counts. No external
// assets.
type uiPage struct {
	Tab        string
	Query      string
	Contagious string
	Chronic    string
	Categories []string
	Selected   map[string]bool
	Limit      int

	View    core.View
	Summary core.Summary

	DownloadURL string
}

var uiTemplate = template.Must(template.New("explorer").Funcs(template.FuncMap{
	"join": func(parts []string) string { return strings.Join(parts, ", ") },
	"pct":  func(ratio float64) float64 { return ratio * 100 },
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Disease Explorer</title></head>
<body>
<h1>Disease Explorer</h1>
<nav>
  <a href="/?tab=explorer">Explorer</a> |
  <a href="/?tab=insights">Insights</a>
</nav>
<form method="get" action="/">
  <input type="hidden" name="tab" value="{{.Tab}}">
  <label>Search <input type="text" name="q" value="{{.Query}}"></label>
  <label>Contagious
    <select name="contagious">
      <option value="all"{{if eq .Contagious "all"}} selected{{end}}>All</option>
      <option value="yes"{{if eq .Contagious "yes"}} selected{{end}}>Yes</option>
      <option value="no"{{if eq .Contagious "no"}} selected{{end}}>No</option>
    </select>
  </label>
  <label>Chronic
    <select name="chronic">
      <option value="all"{{if eq .Chronic "all"}} selected{{end}}>All</option>
      <option value="yes"{{if eq .Chronic "yes"}} selected{{end}}>Yes</option>
      <option value="no"{{if eq .Chronic "no"}} selected{{end}}>No</option>
    </select>
  </label>
  <label>Category
    <select name="category" multiple>
      {{range .Categories}}<option value="{{.}}"{{if index $.Selected .}} selected{{end}}>{{.}}</option>{{end}}
    </select>
  </label>
  <label>Max rows <input type="number" name="limit" value="{{.Limit}}" min="0"></label>
  <button type="submit">Apply</button>
</form>
{{if eq .Tab "insights"}}
  <h2>Dataset Insights</h2>
  <p>{{.Summary.Total}} disease(s) &middot; {{.Summary.Contagious}} contagious ({{printf "%.1f%%" (pct .Summary.ContagiousPct)}}) &middot; {{.Summary.Chronic}} chronic ({{printf "%.1f%%" (pct .Summary.ChronicPct)}})</p>
  <h3>By category</h3>
  <table border="1">
    <tr><th>Category</th><th>Count</th></tr>
    {{range $category, $count := .Summary.ByCategory}}<tr><td>{{$category}}</td><td>{{$count}}</td></tr>{{end}}
  </table>
  <h3>Contagious vs. Chronic</h3>
  <table border="1">
    <tr><th></th><th>Chronic</th><th>Non-chronic</th></tr>
    <tr><th>Contagious</th><td>{{.Summary.CrossTab.ContagiousChronic}}</td><td>{{.Summary.CrossTab.ContagiousNonChronic}}</td></tr>
    <tr><th>Non-contagious</th><td>{{.Summary.CrossTab.NonContagiousChronic}}</td><td>{{.Summary.CrossTab.NonContagiousNonChronic}}</td></tr>
    <tr><th>All</th><td colspan="2">{{.Summary.CrossTab.Total}}</td></tr>
  </table>
{{else}}
  <h2>{{.View.Total}} disease(s) matched{{if .View.Truncated}}, showing first {{len .View.Diseases}}{{end}}</h2>
  <p><a href="{{.DownloadURL}}">Download CSV</a></p>
  <table border="1">
    <tr><th>Code</th><th>Name</th><th>Symptoms</th><th>Treatments</th><th>Category</th><th>Contagious</th><th>Chronic</th></tr>
    {{range .View.Diseases}}
    <tr>
      <td><a href="/api/v1/diseases/{{.Code}}">{{.Code}}</a></td>
      <td>{{.Name}}</td>
      <td>{{join .Symptoms}}</td>
      <td>{{join .Treatments}}</td>
      <td>{{.Category}}</td>
      <td>{{if .Contagious}}Yes{{else}}No{{end}}</td>
      <td>{{if .Chronic}}Yes{{else}}No{{end}}</td>
    </tr>
    {{end}}
  </table>
  {{if eq .View.Total 0}}<p>No diseases match your filters. Try adjusting them.</p>{{end}}
{{end}}
</body>
</html>
`))

func (h *Handler) handleUI(w http.ResponseWriter, r *http.Request) {
	state, err := parseFilterState(r, core.DefaultMaxRows)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tab := r.URL.Query().Get("tab")
	if tab != "insights" {
		tab = "explorer"
	}

	page := uiPage{
		Tab:        tab,
		Query:      state.Search,
		Contagious: triStateValue(state.Contagious),
		Chronic:    triStateValue(state.Chronic),
		Categories: h.Service.Categories(),
		Selected:   make(map[string]bool, len(state.Categories)),
		Limit:      state.MaxRows,
	}
	for _, category := range state.Categories {
		page.Selected[category] = true
	}

	switch tab {
	case "insights":
		summary, err := h.Service.Summary(r.Context(), withoutLimit(state))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		page.Summary = summary
	default:
		view, err := h.Service.Filter(r.Context(), state)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		page.View = view
		page.DownloadURL = downloadURL(state)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := uiTemplate.Execute(w, page); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// withoutLimit strips the display row cap; insights always cover every match.
func withoutLimit(state core.FilterState) core.FilterState {
	state.MaxRows = 0
	return state
}

func triStateValue(v *bool) string {
	switch {
	case v == nil:
		return "all"
	case *v:
		return "yes"
	default:
		return "no"
	}
}

// downloadURL rebuilds the current filter as a CSV download link.
func downloadURL(state core.FilterState) string {
	values := url.Values{}
	values.Set("format", "csv")
	if state.Search != "" {
		values.Set("q", state.Search)
	}
	if state.Contagious != nil {
		values.Set("contagious", triStateValue(state.Contagious))
	}
	if state.Chronic != nil {
		values.Set("chronic", triStateValue(state.Chronic))
	}
	for _, category := range state.Categories {
		values.Add("category", category)
	}
	if state.MaxRows > 0 {
		values.Set("limit", strconv.Itoa(state.MaxRows))
	}
	return "/api/v1/diseases?" + values.Encode()
}
