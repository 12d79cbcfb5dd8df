package rootshrink

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// procMountsPath is the live mount table; overridden in tests.
var procMountsPath = "/proc/mounts"

// pathExists reports whether a filesystem path exists; overridden in tests.
var pathExists = func(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// NormalizeDevice turns a raw device token into an absolute /dev path and
// verifies it exists.
func NormalizeDevice(token string) (string, error) {
	device := token
	if !strings.HasPrefix(device, "/dev/") {
		device = "/dev/" + device
	}
	if !pathExists(device) {
		return "", NewNotFoundError(device)
	}
	return device, nil
}

// isSDCard classifies a device as an SD card by a path-substring match. A
// naming-convention guess, not an ioctl-level probe.
func isSDCard(device string) bool {
	return strings.Contains(device, "mmcblk")
}

// partitionDevice returns the device node path for partition number on
// device, following the kernel naming convention: mmcblk/nvme devices take a
// "p" separator, plain disks do not.
func partitionDevice(device string, number int) string {
	if strings.Contains(device, "mmcblk") || strings.Contains(device, "nvme") {
		return fmt.Sprintf("%sp%d", device, number)
	}
	return fmt.Sprintf("%s%d", device, number)
}

// rootPartitionNumber is the partition holding the root filesystem on the
// images this tool targets.
const rootPartitionNumber = 2

// InspectDisk captures the immutable geometry snapshot for the target device:
// size from the geometry source, SD classification, and the existing root
// partition path.
func InspectDisk(token string, src GeometrySource) (*DiskGeometry, error) {
	device, err := NormalizeDevice(token)
	if err != nil {
		return nil, err
	}
	sizeBytes, err := src.DiskSizeBytes(device)
	if err != nil {
		return nil, err
	}
	rootPartition := partitionDevice(device, rootPartitionNumber)
	if !pathExists(rootPartition) {
		return nil, NewNotFoundError(rootPartition)
	}
	return &DiskGeometry{
		Device:        device,
		SizeBytes:     sizeBytes,
		SizeSectors:   sizeBytes / SectorSize,
		IsSDCard:      isSDCard(device),
		RootPartition: rootPartition,
	}, nil
}

// EnsureNotLiveRoot fails with UnsafeTargetError when the target device holds
// the currently mounted root filesystem. forceLive overrides the gate; the
// override is logged as an explicit operator acknowledgment, never a silent
// default.
func EnsureNotLiveRoot(device string, forceLive bool) error {
	return ensureNotLiveRoot(device, procMountsPath, forceLive)
}

func ensureNotLiveRoot(device, mountsPath string, forceLive bool) error {
	liveRoot, err := findLiveRootDevice(mountsPath)
	if err != nil {
		return err
	}
	if liveRoot == "" || !deviceHoldsPartition(device, liveRoot) {
		return nil
	}
	if forceLive {
		logrus.Warnf("operator override: %s holds the live root filesystem (%s), proceeding anyway", device, liveRoot)
		return nil
	}
	return NewUnsafeTargetError(device)
}

// deviceHoldsPartition reports whether partition is device itself or one of
// its partition nodes, respecting the kernel naming boundary: a device whose
// name ends in a digit (mmcblk1, nvme0n1) takes a "p" separator, so
// /dev/mmcblk10p2 is not a partition of /dev/mmcblk1.
func deviceHoldsPartition(device, partition string) bool {
	if partition == device {
		return true
	}
	if !strings.HasPrefix(partition, device) {
		return false
	}
	rest := partition[len(device):]
	last := device[len(device)-1]
	if last >= '0' && last <= '9' {
		return rest[0] == 'p'
	}
	return rest[0] >= '0' && rest[0] <= '9'
}

// findLiveRootDevice returns the source device of the "/" mount from a
// /proc/mounts style table, or "" if none is listed.
func findLiveRootDevice(mountsPath string) (string, error) {
	f, err := os.Open(mountsPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if fields[1] == "/" && strings.HasPrefix(fields[0], "/dev/") {
			return fields[0], nil
		}
	}
	return "", scanner.Err()
}
