package rootshrink

import (
	"fmt"

	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/backend/file"
	"github.com/diskfs/go-diskfs/partition/gpt"
)

// DiskfsSource reads the partition table directly instead of parsing parted's
// report, eliminating the coupling to the report's textual layout. Only GPT
// tables are supported.
type DiskfsSource struct{}

func (s DiskfsSource) DiskSizeBytes(device string) (int64, error) {
	backend, err := file.OpenFromPath(device, true)
	if err != nil {
		return 0, err
	}
	d, err := diskfs.OpenBackend(backend)
	if err != nil {
		return 0, err
	}
	return d.Size, nil
}

func (s DiskfsSource) PartitionStart(device string, number int) (int64, error) {
	table, err := s.readTable(device)
	if err != nil {
		return 0, err
	}
	for _, p := range table.Partitions {
		if int(p.Index) != number || p.Type == gpt.Unused {
			continue
		}
		return p.GetStart() / SectorSize, nil
	}
	return 0, NewNotFoundError(fmt.Sprintf("partition %d on %s", number, device))
}

func (s DiskfsSource) NextPartitionNumber(device string) (int, error) {
	table, err := s.readTable(device)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, p := range table.Partitions {
		if p.Type == gpt.Unused {
			continue
		}
		if int(p.Index) > highest {
			highest = int(p.Index)
		}
	}
	return highest + 1, nil
}

func (s DiskfsSource) readTable(device string) (*gpt.Table, error) {
	backend, err := file.OpenFromPath(device, true)
	if err != nil {
		return nil, err
	}
	d, err := diskfs.OpenBackend(backend)
	if err != nil {
		return nil, err
	}
	tableRaw, err := d.GetPartitionTable()
	if err != nil {
		return nil, err
	}
	table, ok := tableRaw.(*gpt.Table)
	if !ok {
		return nil, fmt.Errorf("unsupported partition table type on %s, only GPT is supported", device)
	}
	return table, nil
}
