package rootshrink

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Options configures a repartition run.
type Options struct {
	Device   string // raw device token, e.g. mmcblk0 or /dev/sda
	RootSize string // required, e.g. "16G"
	SwapSize string // optional
	VarSize  string // optional

	DryRun      bool
	Force       bool // allow swap/var partitions on SD cards
	ForceLive   bool // allow operating on the disk holding the live root
	InstallDeps bool // install missing collaborator tools

	// Geometry answers read-only partition-table questions; nil selects the
	// parted text-report backing.
	Geometry GeometrySource
	// Runner executes destructive commands; nil selects CommandRunner, or
	// NoopRunner under DryRun.
	Runner Runner
	// Confirm is consulted after the layout is printed and before the first
	// destructive step; nil proceeds without asking.
	Confirm func(*PartitionLayout) (bool, error)
}

// Run executes the full pipeline: inspect, plan, then the strictly
// sequential destructive steps. Every fatal error aborts immediately with no
// automatic rollback; each step logs its intent before acting and its
// outcome after, so an operator can resume or repair from the transcript.
func Run(opts Options) error {
	src := opts.Geometry
	if src == nil {
		src = PartedSource{}
	}
	runner := opts.Runner
	if runner == nil {
		if opts.DryRun {
			runner = NoopRunner{}
		} else {
			runner = CommandRunner{}
		}
	}

	device, err := NormalizeDevice(opts.Device)
	if err != nil {
		return err
	}

	// the live-root gate runs before anything else so that no later check can
	// mask an unsafe target
	if err := EnsureNotLiveRoot(device, opts.ForceLive); err != nil {
		return err
	}

	if err := CheckDependencies(runner, opts.InstallDeps); err != nil {
		return err
	}

	rootSize, err := ParseSize(opts.RootSize)
	if err != nil {
		return err
	}
	if err := ValidateRootSize(rootSize); err != nil {
		return err
	}
	var swapSize, varSize int64
	if opts.SwapSize != "" {
		if swapSize, err = ParseSize(opts.SwapSize); err != nil {
			return err
		}
	}
	if opts.VarSize != "" {
		if varSize, err = ParseSize(opts.VarSize); err != nil {
			return err
		}
	}

	geom, err := InspectDisk(device, src)
	if err != nil {
		return err
	}
	logrus.Infof("device %s: %s (%d bytes), sd-card=%v, root partition %s",
		geom.Device, FormatSize(geom.SizeBytes), geom.SizeBytes, geom.IsSDCard, geom.RootPartition)

	// swap and a separate /var wear out SD cards; require an explicit
	// override before planning them there
	if geom.IsSDCard && !opts.Force {
		if swapSize > 0 {
			return NewPolicyError("swap partition not permitted on SD card %s (use --force to override)", geom.Device)
		}
		if varSize > 0 {
			return NewPolicyError("separate /var partition not permitted on SD card %s (use --force to override)", geom.Device)
		}
	}
	if geom.IsSDCard && opts.Force && (swapSize > 0 || varSize > 0) {
		logrus.Warnf("operator override: creating swap/var partitions on SD card %s", geom.Device)
	}

	rootStart, err := src.PartitionStart(geom.Device, rootPartitionNumber)
	if err != nil {
		return err
	}
	layout, err := CalculateLayout(geom, rootStart, rootSize, swapSize, varSize)
	if err != nil {
		return err
	}
	logLayout(layout)

	if opts.DryRun {
		logrus.Info("dry run: no changes made")
		return nil
	}

	if opts.Confirm != nil {
		ok, err := opts.Confirm(layout)
		if err != nil {
			return err
		}
		if !ok {
			logrus.Info("aborted by operator, no changes made")
			return nil
		}
	}

	_, err = execute(runner, src, geom, layout)
	return err
}

// execute runs the destructive pipeline in its fixed order. CreatedPartitions
// is threaded forward explicitly and accumulates entries strictly in
// creation order; it is returned as-is on failure so the transcript and the
// record together describe how far the pipeline got.
func execute(runner Runner, src GeometrySource, geom *DiskGeometry, layout *PartitionLayout) (*CreatedPartitions, error) {
	created := &CreatedPartitions{Root: geom.RootPartition}

	// filesystem check: non-zero exit is logged and tolerated, e2fsck may
	// report benign fixes
	logrus.Infof("checking filesystem on %s", geom.RootPartition)
	if err := runner.Run("e2fsck", "-f", "-y", geom.RootPartition); err != nil {
		logrus.Warnf("e2fsck reported issues on %s, continuing: %v", geom.RootPartition, err)
	}

	// shrink the root filesystem; shrinking below actual usage is resize2fs's
	// own safety check
	blocks := layout.RootSizeBytes / 4096
	logrus.Infof("shrinking root filesystem on %s to %d 4K blocks", geom.RootPartition, blocks)
	if err := runner.Run("resize2fs", geom.RootPartition, fmt.Sprintf("%dK", blocks*4)); err != nil {
		return created, err
	}
	logrus.Info("root filesystem shrunk")

	// rewrite the root partition's table entry at the new end sector, keeping
	// the recorded start
	logrus.Infof("resizing root partition to end at sector %d", layout.Root.End)
	if err := runner.Run("parted", "-s", geom.Device, "rm", fmt.Sprintf("%d", rootPartitionNumber)); err != nil {
		return created, err
	}
	if err := runner.Run("parted", "-s", geom.Device, "mkpart", "primary", "ext4",
		fmt.Sprintf("%ds", layout.Root.Start), fmt.Sprintf("%ds", layout.Root.End)); err != nil {
		return created, err
	}
	rescanPartitions(runner, geom.Device)
	logrus.Info("root partition resized")

	if layout.HasSwap() {
		device, err := createAndFormat(runner, src, geom, swapKind, layout.Swap)
		if err != nil {
			return created, err
		}
		created.Swap = device
	}
	if layout.HasVar() {
		device, err := createAndFormat(runner, src, geom, varKind, layout.Var)
		if err != nil {
			return created, err
		}
		created.Var = device
	}
	device, err := createAndFormat(runner, src, geom, homeKind, layout.Home)
	if err != nil {
		return created, err
	}
	created.Home = device

	logrus.Info("creating mount points")
	if err := createMountPoints(created); err != nil {
		return created, err
	}
	if err := mountAll(runner, created); err != nil {
		return created, err
	}

	if created.Var != "" {
		if err := migrateSubtree(runner, "var", mountVarDir); err != nil {
			return created, err
		}
	}
	if err := migrateSubtree(runner, "home", mountHomeDir); err != nil {
		return created, err
	}

	if err := updateFstab(mountRootDir, created); err != nil {
		return created, err
	}

	unmountAll(runner, created)

	logrus.Info("repartition complete; reboot to verify the new layout")
	return created, nil
}

func logLayout(layout *PartitionLayout) {
	logrus.Info("planned layout:")
	logrus.Infof("  root (/, ext4): %s, sectors %d-%d",
		FormatSize(layout.RootSizeBytes), layout.Root.Start, layout.Root.End)
	if layout.HasSwap() {
		logrus.Infof("  swap: %s, sectors %d-%d",
			FormatSize(layout.SwapSizeBytes), layout.Swap.Start, layout.Swap.End)
	}
	if layout.HasVar() {
		logrus.Infof("  /var (btrfs): %s, sectors %d-%d",
			FormatSize(layout.VarSizeBytes), layout.Var.Start, layout.Var.End)
	}
	logrus.Infof("  /home (ext4): %s, sectors %d-%d",
		FormatSize(layout.HomeSizeBytes), layout.Home.Start, layout.Home.End)
}
