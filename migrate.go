package rootshrink

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Mount points for the new partitions while data is migrated. Fixed paths;
// overridden in tests.
var (
	mountRootDir = "/mnt/newroot"
	mountVarDir  = "/mnt/newvar"
	mountHomeDir = "/mnt/newhome"
)

// createMountPoints ensures the fixed mount-point directories exist.
// Pre-existing directories are not an error.
func createMountPoints(created *CreatedPartitions) error {
	dirs := []string{mountRootDir, mountHomeDir}
	if created.Var != "" {
		dirs = append(dirs, mountVarDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// mountAll mounts root, then var (if created), then home. A mount failure is
// fatal and leaves whatever mounted so far; there is no unmount-on-error.
func mountAll(runner Runner, created *CreatedPartitions) error {
	mounts := []struct {
		device string
		dir    string
	}{
		{created.Root, mountRootDir},
		{created.Var, mountVarDir},
		{created.Home, mountHomeDir},
	}
	for _, m := range mounts {
		if m.device == "" {
			continue
		}
		logrus.Infof("mounting %s on %s", m.device, m.dir)
		if err := runner.Run("mount", m.device, m.dir); err != nil {
			return err
		}
	}
	return nil
}

// unmountAll unmounts home, var, root, reverse of mount order. Individual
// failures are warnings: the pipeline still completes and the operator
// intervenes manually on a stuck mount point.
func unmountAll(runner Runner, created *CreatedPartitions) {
	dirs := []string{mountHomeDir}
	if created.Var != "" {
		dirs = append(dirs, mountVarDir)
	}
	dirs = append(dirs, mountRootDir)
	for _, dir := range dirs {
		logrus.Infof("unmounting %s", dir)
		if err := runner.Run("umount", dir); err != nil {
			logrus.Warnf("failed to unmount %s: %v", dir, err)
		}
	}
}

// migrateSubtree copies the named subtree (e.g. "var") from under the
// mounted root into the destination mount, preserving permissions, owners,
// hard links and xattrs and never crossing filesystem boundaries, then
// deletes the old copy. Deletion strictly follows a fully successful copy, so
// a failed copy never destroys the only copy of the data. A missing subtree
// is skipped, not an error.
func migrateSubtree(runner Runner, name, destDir string) error {
	src := filepath.Join(mountRootDir, name)
	if !pathExists(src) {
		logrus.Infof("no /%s subtree under %s, skipping migration", name, mountRootDir)
		return nil
	}
	logrus.Infof("migrating %s to %s", src, destDir)
	if err := runner.Run("rsync", "-aHAX", "--one-file-system", src+"/", destDir+"/"); err != nil {
		return err
	}
	logrus.Infof("copy of %s complete, removing old subtree", src)
	if err := runner.Run("rm", "-rf", src); err != nil {
		return err
	}
	return nil
}
