package rootshrink

import (
	"errors"
	"testing"

	"github.com/go-test/deep"
)

func testGeometry(sizeBytes int64, sd bool) *DiskGeometry {
	return &DiskGeometry{
		Device:        "/dev/sda",
		SizeBytes:     sizeBytes,
		SizeSectors:   sizeBytes / SectorSize,
		IsSDCard:      sd,
		RootPartition: "/dev/sda2",
	}
}

// checkLayoutInvariants verifies the properties every valid layout must hold:
// aligned starts, strictly increasing disjoint ranges, home ending at the
// disk's last sector, and the half-disk home floor.
func checkLayoutInvariants(t *testing.T, geom *DiskGeometry, layout *PartitionLayout) {
	t.Helper()
	ranges := []SectorRange{layout.Root}
	if layout.HasSwap() {
		ranges = append(ranges, layout.Swap)
	}
	if layout.HasVar() {
		ranges = append(ranges, layout.Var)
	}
	ranges = append(ranges, layout.Home)

	for i, r := range ranges {
		if r.End < r.Start {
			t.Errorf("range %d inverted: %+v", i, r)
		}
		if i == 0 {
			continue
		}
		if r.Start%Alignment != 0 {
			t.Errorf("range %d start %d not aligned to %d", i, r.Start, Alignment)
		}
		if r.Start <= ranges[i-1].End {
			t.Errorf("range %d start %d overlaps previous end %d", i, r.Start, ranges[i-1].End)
		}
	}
	if layout.Home.End != geom.SizeSectors-1 {
		t.Errorf("home end = %d, want last sector %d", layout.Home.End, geom.SizeSectors-1)
	}
	if layout.HomeSizeBytes < geom.SizeBytes/2 {
		t.Errorf("home size %d below half-disk floor %d", layout.HomeSizeBytes, geom.SizeBytes/2)
	}
}

func TestCalculateLayout(t *testing.T) {
	t.Run("minimum root, no swap, no var", func(t *testing.T) {
		geom := testGeometry(32*GB, false)
		layout, err := CalculateLayout(geom, 8192, 8*GB, 0, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkLayoutInvariants(t, geom, layout)
		want := &PartitionLayout{
			RootSizeBytes: 8 * GB,
			HomeSizeBytes: layout.Home.Bytes(),
			Root:          SectorRange{Start: 8192, End: 16785407},
			Home:          SectorRange{Start: 16785408, End: 67108863},
		}
		if diff := deep.Equal(layout, want); diff != nil {
			t.Error(diff)
		}
		if layout.HomeSizeBytes < 16*GB {
			t.Errorf("home size %d, want at least 16G", layout.HomeSizeBytes)
		}
		if layout.HasSwap() || layout.HasVar() {
			t.Error("unexpected swap or var range")
		}
	})

	t.Run("root, swap, var, home in order", func(t *testing.T) {
		geom := testGeometry(128*GB, false)
		layout, err := CalculateLayout(geom, 8192, 16*GB, 4*GB, 8*GB)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkLayoutInvariants(t, geom, layout)
		want := &PartitionLayout{
			RootSizeBytes: 16 * GB,
			SwapSizeBytes: 4 * GB,
			VarSizeBytes:  8 * GB,
			HomeSizeBytes: layout.Home.Bytes(),
			Root:          SectorRange{Start: 8192, End: 33562623},
			Swap:          SectorRange{Start: 33562624, End: 41951231},
			Var:           SectorRange{Start: 41951232, End: 58728447},
			Home:          SectorRange{Start: 58728448, End: 268435455},
		}
		if diff := deep.Equal(layout, want); diff != nil {
			t.Error(diff)
		}
	})

	t.Run("unaligned sizes round up to the boundary", func(t *testing.T) {
		geom := testGeometry(64*GB, false)
		layout, err := CalculateLayout(geom, 8192, 8*GB+3*KB, 1*GB+SectorSize, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkLayoutInvariants(t, geom, layout)
		if (layout.Root.End+1)%Alignment != 0 {
			t.Errorf("root end %d not on an alignment boundary", layout.Root.End)
		}
		if (layout.Swap.End+1)%Alignment != 0 {
			t.Errorf("swap end %d not on an alignment boundary", layout.Swap.End)
		}
	})

	t.Run("insufficient space for home", func(t *testing.T) {
		geom := testGeometry(32*GB, false)
		_, err := CalculateLayout(geom, 8192, 24*GB, 0, 0)
		var spaceErr *InsufficientSpaceError
		if !errors.As(err, &spaceErr) {
			t.Fatalf("error = %v, want InsufficientSpaceError", err)
		}
		if spaceErr.Required != 16*GB {
			t.Errorf("required = %d, want %d", spaceErr.Required, 16*GB)
		}
		if spaceErr.Shortfall <= 0 {
			t.Errorf("shortfall = %d, want positive", spaceErr.Shortfall)
		}
		if spaceErr.Shortfall != spaceErr.Required-spaceErr.Available {
			t.Errorf("shortfall %d != required %d - available %d",
				spaceErr.Shortfall, spaceErr.Required, spaceErr.Available)
		}
	})

	t.Run("planner honors sizes on SD cards", func(t *testing.T) {
		// SD gating belongs to the caller; the planner lays out whatever it
		// is given
		geom := testGeometry(128*GB, true)
		layout, err := CalculateLayout(geom, 8192, 16*GB, 4*GB, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !layout.HasSwap() {
			t.Error("swap range missing")
		}
	})
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		in   int64
		want int64
	}{
		{0, 0},
		{1, 2048},
		{2047, 2048},
		{2048, 2048},
		{2049, 4096},
		{16785408, 16785408},
	}
	for _, tt := range tests {
		if got := alignUp(tt.in); got != tt.want {
			t.Errorf("alignUp(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
