package rootshrink

const (
	KB int64 = 1024
	MB       = 1024 * KB
	GB       = 1024 * MB
	TB       = 1024 * GB
)

const (
	// SectorSize is the fixed logical sector size; all partition boundaries
	// are expressed as indices of 512-byte sectors.
	SectorSize int64 = 512

	// Alignment is the sector granularity for every partition start and end:
	// 2048 sectors = 1 MiB at 512-byte sectors, matching flash erase-block
	// boundaries.
	Alignment int64 = 2048

	// MinRootSize and MaxRootSize bound the shrunk root filesystem. Root must
	// be large enough to hold the existing filesystem's footprint yet small
	// enough to leave majority space for /home.
	MinRootSize = 8 * GB
	MaxRootSize = 64 * GB
)

// DiskGeometry is an immutable snapshot of the target device, captured once
// before any destructive step.
type DiskGeometry struct {
	Device        string // absolute device path, e.g. /dev/mmcblk0
	SizeBytes     int64
	SizeSectors   int64
	IsSDCard      bool   // device path matches the SD-card naming pattern
	RootPartition string // existing root partition path, e.g. /dev/mmcblk0p2
}

// SectorRange is a closed range [Start, End] of 512-byte sectors.
type SectorRange struct {
	Start int64
	End   int64
}

// Sectors returns the number of sectors covered by the range.
func (r SectorRange) Sectors() int64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Bytes returns the byte size of the range.
func (r SectorRange) Bytes() int64 {
	return r.Sectors() * SectorSize
}

// PartitionLayout is the Planner's output: aligned sector ranges for root,
// optional swap, optional var, and home. Computed once, read-only thereafter.
type PartitionLayout struct {
	RootSizeBytes int64
	SwapSizeBytes int64 // 0 when no swap partition
	VarSizeBytes  int64 // 0 when no var partition
	HomeSizeBytes int64

	Root SectorRange
	Swap SectorRange // zero when no swap partition
	Var  SectorRange // zero when no var partition
	Home SectorRange
}

// HasSwap reports whether the layout includes a swap partition.
func (l *PartitionLayout) HasSwap() bool {
	return l.SwapSizeBytes > 0
}

// HasVar reports whether the layout includes a separate /var partition.
func (l *PartitionLayout) HasVar() bool {
	return l.VarSizeBytes > 0
}

// CreatedPartitions records the device paths of partitions as the pipeline
// confirms them. A path is recorded only after the partition exists and its
// formatting succeeded, so the later mount and fstab steps never consume a
// stale or unconfirmed device. The record is threaded explicitly through the
// orchestrator and is never rolled back.
type CreatedPartitions struct {
	Root string // known in advance, the resized root partition
	Swap string // set only if a swap partition was created and formatted
	Var  string // set only if a var partition was created and formatted
	Home string // set after the home partition was created and formatted
}
