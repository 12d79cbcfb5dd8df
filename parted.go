package rootshrink

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// GeometrySource answers read-only questions about a device's partition
// table. The parted text-report backing is the default; DiskfsSource reads
// the table directly, and tests substitute fakes.
type GeometrySource interface {
	// DiskSizeBytes returns the device's total size in bytes.
	DiskSizeBytes(device string) (int64, error)
	// PartitionStart returns the start sector of the numbered partition.
	PartitionStart(device string, number int) (int64, error)
	// NextPartitionNumber returns one past the highest existing partition
	// number on the device.
	NextPartitionNumber(device string) (int, error)
}

// PartedSource derives geometry by pattern-matching parted's free-text print
// reports. Coupled to the report's textual layout; ToolOutputError means the
// expected line was absent.
type PartedSource struct{}

var (
	diskSizePattern       = regexp.MustCompile(`Disk /[^:]+:\s*(\d+)B`)
	partitionLinePattern  = regexp.MustCompile(`^\s*(\d+)\s+(\d+)s`)
	partitionNumberPrefix = regexp.MustCompile(`^\s*(\d+)\s+`)
)

func (PartedSource) DiskSizeBytes(device string) (int64, error) {
	out, err := commandOutput("parted", "-s", device, "unit", "B", "print")
	if err != nil {
		return 0, NewToolExecutionError("parted", err)
	}
	m := diskSizePattern.FindStringSubmatch(out)
	if m == nil {
		return 0, NewToolOutputError("parted", "disk size line")
	}
	size, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, NewToolOutputError("parted", "numeric disk size")
	}
	return size, nil
}

func (PartedSource) PartitionStart(device string, number int) (int64, error) {
	out, err := commandOutput("parted", "-s", device, "unit", "s", "print")
	if err != nil {
		return 0, NewToolExecutionError("parted", err)
	}
	for _, line := range strings.Split(out, "\n") {
		m := partitionLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if m[1] != strconv.Itoa(number) {
			continue
		}
		start, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return 0, NewToolOutputError("parted", "numeric start sector")
		}
		return start, nil
	}
	return 0, NewToolOutputError("parted", fmt.Sprintf("start sector of partition %d", number))
}

func (PartedSource) NextPartitionNumber(device string) (int, error) {
	out, err := commandOutput("parted", "-s", device, "print")
	if err != nil {
		return 0, NewToolExecutionError("parted", err)
	}
	max := 0
	for _, line := range strings.Split(out, "\n") {
		m := partitionNumberPrefix.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}
