package rootshrink

// alignUp rounds a sector index up to the next multiple of the alignment
// boundary.
func alignUp(sector int64) int64 {
	return ((sector + Alignment - 1) / Alignment) * Alignment
}

// CalculateLayout computes aligned sector ranges for root, optional swap,
// optional var, and home. It is a pure function of the disk geometry, the
// requested byte sizes (0 meaning the partition is not wanted), and the
// existing root partition's start sector as recorded in the partition table.
//
// Home absorbs every sector from the last requested range up to the disk's
// final sector; if that leaves home with less than half the disk, the layout
// is rejected with InsufficientSpaceError. Gating of swap/var on SD media is
// the caller's concern: the planner honors whatever sizes it receives.
func CalculateLayout(geom *DiskGeometry, rootStart, rootSize, swapSize, varSize int64) (*PartitionLayout, error) {
	rootSectors := rootSize / SectorSize
	swapSectors := swapSize / SectorSize
	varSectors := varSize / SectorSize

	layout := &PartitionLayout{
		RootSizeBytes: rootSize,
		SwapSizeBytes: swapSize,
		VarSizeBytes:  varSize,
	}

	layout.Root = SectorRange{
		Start: rootStart,
		End:   alignUp(rootStart+rootSectors) - 1,
	}
	lastEnd := layout.Root.End

	if swapSize > 0 {
		start := alignUp(lastEnd + 1)
		layout.Swap = SectorRange{
			Start: start,
			End:   alignUp(start+swapSectors) - 1,
		}
		lastEnd = layout.Swap.End
	}

	if varSize > 0 {
		start := alignUp(lastEnd + 1)
		layout.Var = SectorRange{
			Start: start,
			End:   alignUp(start+varSectors) - 1,
		}
		lastEnd = layout.Var.End
	}

	layout.Home = SectorRange{
		Start: alignUp(lastEnd + 1),
		End:   geom.SizeSectors - 1,
	}
	layout.HomeSizeBytes = layout.Home.Bytes()

	// home must keep at least half the disk, or the split is not worth doing
	minHome := geom.SizeBytes / 2
	if layout.HomeSizeBytes < minHome {
		return nil, NewInsufficientSpaceError(minHome, layout.HomeSizeBytes)
	}

	return layout, nil
}
