package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	available := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		override   string
		want       int
	}{
		{"CPU bound no limit", 1.0, 0, "", available},
		{"IO bound no limit", 2.0, 0, "", available * 2},
		{"limit caps result", 2.0, 1, "", 1},
		{"override respected", 1.0, 0, "3", 3},
		{"override capped by limit", 1.0, 2, "8", 2},
		{"invalid override ignored", 1.0, 0, "zero", available},
		{"negative override ignored", 1.0, 0, "-2", available},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SCAN_WORKERS", tt.override)
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountMinimumOne(t *testing.T) {
	t.Setenv("SCAN_WORKERS", "")
	if got := Count(0.0001, 0); got < 1 {
		t.Errorf("Count returned %d, want at least 1", got)
	}
}

func TestHelpers(t *testing.T) {
	t.Setenv("SCAN_WORKERS", "")
	if ForCPU(0) < 1 {
		t.Error("ForCPU returned less than 1")
	}
	if ForIO(0) < ForCPU(0) {
		t.Error("ForIO returned fewer workers than ForCPU")
	}
}
