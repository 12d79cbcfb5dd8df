package rootshrink

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// deviceWaitTimeout bounds how long we wait for a freshly created
// partition's device node to appear after a kernel re-scan; overridden in
// tests.
var deviceWaitTimeout = 10 * time.Second

const devicePollInterval = 200 * time.Millisecond

// partedMkpart creates a partition-table entry covering the given sector
// range. fsType is the parted filesystem hint (linux-swap, btrfs, ext4).
func partedMkpart(runner Runner, device, fsType string, r SectorRange) error {
	return runner.Run("parted", "-s", device, "mkpart", "primary", fsType,
		fmt.Sprintf("%ds", r.Start), fmt.Sprintf("%ds", r.End))
}

// rescanPartitions asks the kernel to re-read the partition table. partprobe
// failures are warnings: the node may still appear, and the bounded wait is
// the authority on whether it did.
func rescanPartitions(runner Runner, device string) {
	if err := runner.Run("partprobe", device); err != nil {
		logrus.Warnf("partprobe on %s failed: %v", device, err)
	}
}

// waitForDevice blocks until the device node exists, watching its directory
// for changes and polling as a fallback, and fails with DeviceNotReadyError
// once the deadline passes.
func waitForDevice(path string, timeout time.Duration) error {
	if pathExists(path) {
		return nil
	}
	var events chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer func() { _ = watcher.Close() }()
		if err := watcher.Add(filepath.Dir(path)); err == nil {
			events = watcher.Events
		}
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(devicePollInterval)
	defer tick.Stop()
	for {
		if pathExists(path) {
			return nil
		}
		select {
		case <-deadline.C:
			return NewDeviceNotReadyError(path)
		case <-tick.C:
		case ev := <-events:
			if ev.Name != path {
				continue
			}
		}
	}
}

// partitionKind describes one of the partitions the pipeline can create.
type partitionKind struct {
	name       string // human name used in logs
	partedType string // parted filesystem hint
	formatTool string
	formatArgs []string // arguments preceding the device path
}

var (
	swapKind = partitionKind{name: "swap", partedType: "linux-swap", formatTool: "mkswap"}
	varKind  = partitionKind{name: "/var", partedType: "btrfs", formatTool: "mkfs.btrfs", formatArgs: []string{"-f"}}
	homeKind = partitionKind{name: "/home", partedType: "ext4", formatTool: "mkfs.ext4", formatArgs: []string{"-F"}}
)

// createAndFormat creates a partition of the given kind in the planned sector
// range, waits for its device node, and formats it. The returned device path
// is confirmed: it is only handed back after formatting succeeded.
func createAndFormat(runner Runner, src GeometrySource, geom *DiskGeometry, kind partitionKind, r SectorRange) (string, error) {
	number, err := src.NextPartitionNumber(geom.Device)
	if err != nil {
		return "", err
	}
	logrus.Infof("creating %s partition %d on %s, sectors %d-%d", kind.name, number, geom.Device, r.Start, r.End)
	if err := partedMkpart(runner, geom.Device, kind.partedType, r); err != nil {
		return "", err
	}
	rescanPartitions(runner, geom.Device)

	device := partitionDevice(geom.Device, number)
	if err := waitForDevice(device, deviceWaitTimeout); err != nil {
		return "", err
	}

	logrus.Infof("formatting %s with %s", device, kind.formatTool)
	args := append(append([]string{}, kind.formatArgs...), device)
	if err := runner.Run(kind.formatTool, args...); err != nil {
		return "", err
	}
	logrus.Infof("%s partition ready: %s", kind.name, device)
	return device, nil
}
