package classroom

import (
	"math"
	"testing"
)

func TestDeriveColorDeterministic(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "Physics 101", id: "42"},
		{name: "", id: "42"},
		{name: "Kiswahili", id: "f8b1e2d0-1a2b-4c3d-9e8f-7a6b5c4d3e2f"},
		{name: "數學", id: "7"},
	}
	for _, tt := range tests {
		first := DeriveColor(tt.name, tt.id)
		for i := 0; i < 10; i++ {
			if got := DeriveColor(tt.name, tt.id); got != first {
				t.Fatalf("DeriveColor(%q, %q) not stable: %q != %q", tt.name, tt.id, got, first)
			}
		}
		if !contains(palette, first) {
			t.Errorf("DeriveColor(%q, %q) = %q, not a palette entry", tt.name, tt.id, first)
		}
	}
}

func TestDeriveColorHashOverflow(t *testing.T) {
	// this seed hashes to exactly math.MinInt32, where naive negation wraps
	// back negative and would index out of range
	seed := "z6zi77t\U000f6169"

	var hash int32
	for _, r := range seed {
		hash = int32(r) + ((hash << 5) - hash)
	}
	if hash != math.MinInt32 {
		t.Fatalf("seed hash = %d; want math.MinInt32", hash)
	}

	got := DeriveColor(seed, "42")
	if !contains(palette, got) {
		t.Errorf("DeriveColor(%q, %q) = %q, not a palette entry", seed, "42", got)
	}
	if DeriveColor(seed, "42") != got {
		t.Errorf("DeriveColor(%q, %q) not stable", seed, "42")
	}
}

func TestDeriveColorEmptyNameFallsBackToID(t *testing.T) {
	if DeriveColor("", "42") != DeriveColor("", "42") {
		t.Error("fallback seed not stable")
	}
	// different ids may map to different entries; just ensure no panic on empty
	_ = DeriveColor("", "")
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
