package models

import (
	"testing"
	"time"
)

func TestIsValidShift(t *testing.T) {
	tests := []struct {
		name     string
		shift    Shift
		expected bool
	}{
		{"day", ShiftDay, true},
		{"night", ShiftNight, true},
		{"lowercase day", "day", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidShift(tt.shift); got != tt.expected {
				t.Errorf("IsValidShift(%q) = %v, want %v", tt.shift, got, tt.expected)
			}
		})
	}
}

func TestIsValidProblem4M(t *testing.T) {
	for _, p := range []Problem4M{Problem4MNone, Problem4MMan, Problem4MMachine, Problem4MMaterial, Problem4MMethod} {
		if !IsValidProblem4M(p) {
			t.Errorf("expected %q to be valid", p)
		}
	}
	if IsValidProblem4M("Money") {
		t.Errorf("expected Money to be rejected")
	}
}

func TestDateOnly(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)
	in := time.Date(2025, 3, 14, 23, 45, 0, 0, bangkok)

	got := DateOnly(in)

	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOnly(%v) = %v, want %v", in, got, want)
	}
}
