package db

import (
	"reflect"
	"testing"
)

func versions(ms []Migration) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Version
	}
	return out
}

func TestSortMigrations(t *testing.T) {
	in := []Migration{
		{Version: "003", Name: "c"},
		{Version: "001", Name: "a"},
		{Version: "002", Name: "b"},
	}

	sorted, err := SortMigrations(in)
	if err != nil {
		t.Fatalf("SortMigrations() error: %v", err)
	}
	if got := versions(sorted); !reflect.DeepEqual(got, []string{"001", "002", "003"}) {
		t.Errorf("order = %v", got)
	}
	if in[0].Version != "003" {
		t.Error("SortMigrations must not reorder its input")
	}
}

func TestSortMigrations_Duplicate(t *testing.T) {
	_, err := SortMigrations([]Migration{{Version: "001"}, {Version: "001"}})
	if err == nil {
		t.Error("expected duplicate version error")
	}
}

func TestPending(t *testing.T) {
	ms := []Migration{{Version: "001"}, {Version: "002"}, {Version: "003"}}

	tests := []struct {
		name    string
		applied map[string]bool
		want    []string
	}{
		{"fresh database", map[string]bool{}, []string{"001", "002", "003"}},
		{"partially applied", map[string]bool{"001": true}, []string{"002", "003"}},
		{"gap", map[string]bool{"001": true, "003": true}, []string{"002"}},
		{"up to date", map[string]bool{"001": true, "002": true, "003": true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pending(ms, tt.applied)
			var gotVersions []string
			if got != nil {
				gotVersions = versions(got)
			}
			if !reflect.DeepEqual(gotVersions, tt.want) {
				t.Errorf("Pending() = %v, want %v", gotVersions, tt.want)
			}
		})
	}
}
