package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestDiseaseMatches(t *testing.T) {
	d := Disease{Name: "Influenza", Symptoms: []string{"High Fever", "Dry Cough"}}

	cases := []struct {
		term string
		want bool
	}{
		{"", true},
		{"influ", true},
		{"INFLUENZA", true},
		{"fever", true},
		{"dry", true},
		{"insulin", false},
	}
	for _, tc := range cases {
		if got := d.Matches(tc.term); got != tc.want {
			t.Fatalf("Matches(%q) = %v, want %v", tc.term, got, tc.want)
		}
	}
}

func TestDiseaseCloneIsDeep(t *testing.T) {
	d := Disease{Code: "D001", Symptoms: []string{"Fever"}, Treatments: []string{"Rest"}}
	clone := d.Clone()
	clone.Symptoms[0] = "mutated"
	clone.Treatments[0] = "mutated"
	if d.Symptoms[0] != "Fever" || d.Treatments[0] != "Rest" {
		t.Fatalf("clone aliased the original: %+v", d)
	}
}

func TestCatalogCategoriesFirstSeenOrder(t *testing.T) {
	catalog := Catalog{
		{Code: "a", Category: "Respiratory"},
		{Code: "b", Category: "Metabolic"},
		{Code: "c", Category: "Respiratory"},
		{Code: "d", Category: "Neurological"},
	}
	got := catalog.Categories()
	want := []string{"Respiratory", "Metabolic", "Neurological"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Categories() = %v, want %v", got, want)
	}
}

func TestExportRecordCloneIsDeep(t *testing.T) {
	contagious := true
	completed := time.Now().UTC()
	rec := ExportRecord{
		ID:          "exp-1",
		Formats:     []Format{FormatCSV},
		Artifacts:   []ExportArtifact{{ID: "a1", Format: FormatCSV}},
		Filter:      ExportFilter{Contagious: &contagious, Categories: []string{"Respiratory"}},
		CompletedAt: &completed,
	}

	clone := rec.Clone()
	clone.Formats[0] = FormatHTML
	clone.Artifacts[0].ID = "mutated"
	*clone.Filter.Contagious = false
	clone.Filter.Categories[0] = "mutated"
	*clone.CompletedAt = completed.Add(time.Hour)

	if rec.Formats[0] != FormatCSV || rec.Artifacts[0].ID != "a1" {
		t.Fatalf("clone aliased slices: %+v", rec)
	}
	if !*rec.Filter.Contagious || rec.Filter.Categories[0] != "Respiratory" {
		t.Fatalf("clone aliased the filter: %+v", rec.Filter)
	}
	if !rec.CompletedAt.Equal(completed) {
		t.Fatalf("clone aliased the completion time")
	}
}
