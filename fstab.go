package rootshrink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// fstabMarker trails every generated entry so an operator can tell them
// apart from hand-written lines.
const fstabMarker = "# added by rootshrink"

// lookupUUID resolves the stable filesystem identifier for a device, so that
// boot-time mounting does not depend on device enumeration order. The blkid
// output is validated as a real UUID before it is trusted.
func lookupUUID(device string) (string, error) {
	out, err := commandOutput("blkid", "-s", "UUID", "-o", "value", device)
	if err != nil {
		return "", NewToolExecutionError("blkid", err)
	}
	id := strings.TrimSpace(out)
	if id == "" {
		return "", NewToolOutputError("blkid", fmt.Sprintf("UUID for %s", device))
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", NewToolOutputError("blkid", fmt.Sprintf("well-formed UUID for %s (got %q)", device, id))
	}
	return id, nil
}

// fstabEntries builds the mount-table lines for every partition the pipeline
// actually created, skipping swap/var when those were not created.
func fstabEntries(created *CreatedPartitions) ([]string, error) {
	type entry struct {
		device     string
		mountpoint string
		fstype     string
		options    string
		dump       int
		pass       int
	}
	candidates := []entry{
		{created.Swap, "none", "swap", "sw", 0, 0},
		{created.Var, "/var", "btrfs", "defaults,noatime", 0, 2},
		{created.Home, "/home", "ext4", "defaults,noatime", 0, 2},
	}
	var lines []string
	for _, c := range candidates {
		if c.device == "" {
			continue
		}
		id, err := lookupUUID(c.device)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("UUID=%s  %s  %s  %s  %d  %d  %s",
			id, c.mountpoint, c.fstype, c.options, c.dump, c.pass, fstabMarker))
	}
	return lines, nil
}

// updateFstab appends entries for the created partitions to the mounted
// root's fstab. The new content is written to a sibling temp file and
// renamed over the original, so a crash mid-write cannot truncate the mount
// table.
func updateFstab(mountRoot string, created *CreatedPartitions) error {
	fstabPath := filepath.Join(mountRoot, "etc", "fstab")
	existing, err := os.ReadFile(fstabPath)
	if err != nil {
		return err
	}
	lines, err := fstabEntries(created)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	logrus.Infof("appending %d entries to %s", len(lines), fstabPath)

	var buf strings.Builder
	buf.Write(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		buf.WriteByte('\n')
	}
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return writeFileAtomic(fstabPath, []byte(buf.String()), 0o644)
}

// writeFileAtomic writes data to a temp file in the target's directory,
// syncs it, and renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
