package placement_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor/modules/notes/domain/placement"
)

var rect = placement.Rect{X: 0, Y: 0, Width: 100, Height: 100}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		x, y float64
		want placement.Intent
	}{
		{"top-left", 10, 10, placement.Before},
		{"top-middle", 50, 10, placement.Before},
		{"top-right", 90, 10, placement.PrependChild},
		{"bottom-left", 10, 90, placement.After},
		{"bottom-middle", 50, 90, placement.After},
		{"bottom-right", 90, 90, placement.AppendChild},
		{"middle-left", 10, 50, placement.Before},
		{"middle-right", 90, 50, placement.AppendChild},
		{"center above midline", 50, 45, placement.Before},
		{"center below midline", 50, 55, placement.After},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, placement.Resolve(rect, tt.x, tt.y))
		})
	}
}

func TestResolve_Boundaries(t *testing.T) {
	t.Parallel()

	// Thresholds are half-open: a coordinate exactly on a boundary belongs
	// to the band it opens.
	tests := []struct {
		name string
		x, y float64
		want placement.Intent
	}{
		{"x exactly at 30% stays out of left band", 30, 50, placement.After},
		{"x exactly at 70% enters right band", 70, 50, placement.AppendChild},
		{"y exactly at 40% leaves top band", 50, 40, placement.Before},
		{"y exactly at 60% enters bottom band", 50, 60, placement.After},
		{"y exactly at 50% in center resolves below", 50, 50, placement.After},
		{"top-left corner", 0, 0, placement.Before},
		{"bottom-right corner", 100, 100, placement.AppendChild},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, placement.Resolve(rect, tt.x, tt.y))
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	for i := 0; i < 10; i++ {
		require.Equal(t, placement.Resolve(rect, 42, 77), placement.Resolve(rect, 42, 77))
	}
}

func TestResolve_OffsetRect(t *testing.T) {
	t.Parallel()

	offset := placement.Rect{X: 200, Y: 300, Width: 100, Height: 50}
	require.Equal(t, placement.PrependChild, placement.Resolve(offset, 290, 305))
	require.Equal(t, placement.After, placement.Resolve(offset, 250, 345))
}

func TestResolve_EveryPointResolves(t *testing.T) {
	t.Parallel()

	// The partition covers the whole rectangle with no gaps.
	for x := 0.0; x <= 100; x += 5 {
		for y := 0.0; y <= 100; y += 5 {
			require.True(t, placement.Resolve(rect, x, y).IsValid(), "x=%v y=%v", x, y)
		}
	}
}

func TestIntent_IsValid(t *testing.T) {
	t.Parallel()

	require.True(t, placement.Before.IsValid())
	require.False(t, placement.Intent("inside").IsValid())
}
