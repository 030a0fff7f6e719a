package sound

import (
	"testing"
	"time"
)

func TestOverlap(t *testing.T) {
	fragments := []Fragment{
		{Start: 10 * time.Second, End: 20 * time.Second},
		{Start: 30 * time.Second, End: 32 * time.Second},
	}
	tests := []struct {
		name  string
		start time.Duration
		end   time.Duration
		want  float64
	}{
		{"full cover", 12 * time.Second, 18 * time.Second, 1.0},
		{"no cover", 0, 5 * time.Second, 0.0},
		{"half cover", 15 * time.Second, 25 * time.Second, 0.5},
		{"two fragments", 10 * time.Second, 34 * time.Second, 0.5},
		{"empty span", 5 * time.Second, 5 * time.Second, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlap(fragments, tt.start, tt.end)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("Overlap(%v, %v) = %v; want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}
