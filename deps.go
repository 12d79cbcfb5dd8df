package rootshrink

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// dependency pairs an external command with the package that provides it.
type dependency struct {
	command string
	pkg     string
}

var requiredDependencies = []dependency{
	{"parted", "parted"},
	{"e2fsck", "e2fsprogs"},
	{"resize2fs", "e2fsprogs"},
	{"mkfs.ext4", "e2fsprogs"},
	{"mkfs.btrfs", "btrfs-progs"},
	{"mkswap", "util-linux"},
	{"rsync", "rsync"},
	{"blkid", "util-linux"},
}

// CheckDependencies verifies every collaborator tool is present. When
// installMissing is set, missing packages are installed through the runner
// with apt-get or yum; otherwise missing tools are a fatal error listing the
// packages to install.
func CheckDependencies(runner Runner, installMissing bool) error {
	var missing []string
	seen := map[string]bool{}
	for _, dep := range requiredDependencies {
		if commandExists(dep.command) {
			logrus.Debugf("found %s", dep.command)
			continue
		}
		logrus.Warnf("missing %s (package %s)", dep.command, dep.pkg)
		if !seen[dep.pkg] {
			seen[dep.pkg] = true
			missing = append(missing, dep.pkg)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if !installMissing {
		return fmt.Errorf("missing required tools; install packages: %s", strings.Join(missing, ", "))
	}
	return installPackages(runner, missing)
}

func installPackages(runner Runner, packages []string) error {
	switch {
	case commandExists("apt-get"):
		if err := runner.Run("apt-get", "update"); err != nil {
			return err
		}
		for _, pkg := range packages {
			if err := runner.Run("apt-get", "install", "-y", pkg); err != nil {
				return err
			}
		}
		return nil
	case commandExists("yum"):
		for _, pkg := range packages {
			if err := runner.Run("yum", "install", "-y", pkg); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("no supported package manager found (apt-get or yum)")
	}
}
