package model

import "testing"

func TestNormalizeColorFamily(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"RED", "Red"},
		{"  midnight blue ", "Midnight Blue"},
		{"rust-melange", "Rust-Melange"},
		{"", "Unknown"},
		{"   ", "Unknown"},
		{"Pearl Teal", "Pearl Teal"},
	}
	for _, tt := range tests {
		if got := NormalizeColorFamily(tt.in); got != tt.want {
			t.Errorf("NormalizeColorFamily(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlan_TotalAllocatedKg(t *testing.T) {
	p := &Plan{Allocations: []AllocationRecord{{AllocatedKg: 1000}, {AllocatedKg: 666.5}}}
	if got := p.TotalAllocatedKg(); got != 1666.5 {
		t.Errorf("TotalAllocatedKg() = %v, want 1666.5", got)
	}
}
