package ui

import (
	"reflect"
	"testing"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"order", "order", 0},
		{"café", "cafe", 1},
	}

	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSuggestNames(t *testing.T) {
	candidates := []string{"Order:#Northwind", "OrderDetail:#Northwind", "Region:#Northwind", "Orders"}

	got := SuggestNames("ordr", candidates)
	want := []string{"Order:#Northwind", "Orders"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SuggestNames = %v, want %v", got, want)
	}

	if got := SuggestNames("Regoin:#Other", candidates); !reflect.DeepEqual(got, []string{"Region:#Northwind"}) {
		t.Errorf("qualified target: got %v", got)
	}

	if got := SuggestNames("Shipper", candidates); len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}
