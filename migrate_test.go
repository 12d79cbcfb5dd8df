package rootshrink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-test/deep"
)

func TestCreateMountPoints(t *testing.T) {
	base := t.TempDir()
	stubMountDirs(t,
		filepath.Join(base, "newroot"),
		filepath.Join(base, "newvar"),
		filepath.Join(base, "newhome"))
	created := &CreatedPartitions{Root: "/dev/sda2", Var: "/dev/sda4", Home: "/dev/sda5"}

	if err := createMountPoints(created); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, dir := range []string{mountRootDir, mountVarDir, mountHomeDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("mount point %s missing after creation", dir)
		}
	}

	// re-running on existing directories must succeed
	if err := createMountPoints(created); err != nil {
		t.Fatalf("second run not idempotent: %v", err)
	}
}

func TestMountAndUnmountOrder(t *testing.T) {
	t.Run("with var", func(t *testing.T) {
		created := &CreatedPartitions{Root: "/dev/sda2", Var: "/dev/sda4", Home: "/dev/sda5"}
		runner := &fakeRunner{}
		if err := mountAll(runner, created); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []call{
			{Name: "mount", Args: []string{"/dev/sda2", mountRootDir}},
			{Name: "mount", Args: []string{"/dev/sda4", mountVarDir}},
			{Name: "mount", Args: []string{"/dev/sda5", mountHomeDir}},
		}
		if diff := deep.Equal(runner.calls, want); diff != nil {
			t.Error(diff)
		}

		runner = &fakeRunner{}
		unmountAll(runner, created)
		wantUnmount := []call{
			{Name: "umount", Args: []string{mountHomeDir}},
			{Name: "umount", Args: []string{mountVarDir}},
			{Name: "umount", Args: []string{mountRootDir}},
		}
		if diff := deep.Equal(runner.calls, wantUnmount); diff != nil {
			t.Error(diff)
		}
	})

	t.Run("without var", func(t *testing.T) {
		created := &CreatedPartitions{Root: "/dev/sda2", Home: "/dev/sda3"}
		runner := &fakeRunner{}
		if err := mountAll(runner, created); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runner.calls) != 2 {
			t.Errorf("got %d mounts, want 2", len(runner.calls))
		}
	})

	t.Run("unmount failure is not fatal", func(t *testing.T) {
		created := &CreatedPartitions{Root: "/dev/sda2", Home: "/dev/sda3"}
		runner := &fakeRunner{failOn: "umount"}
		// must not panic or abort; failures are warnings
		unmountAll(runner, created)
		if len(runner.calls) != 2 {
			t.Errorf("got %d unmount attempts, want 2 despite failures", len(runner.calls))
		}
	})
}

func TestMigrateSubtree(t *testing.T) {
	t.Run("copies then deletes", func(t *testing.T) {
		stubPathExists(t, func(string) bool { return true })
		runner := &fakeRunner{}
		if err := migrateSubtree(runner, "var", mountVarDir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []call{
			{Name: "rsync", Args: []string{"-aHAX", "--one-file-system", mountRootDir + "/var/", mountVarDir + "/"}},
			{Name: "rm", Args: []string{"-rf", mountRootDir + "/var"}},
		}
		if diff := deep.Equal(runner.calls, want); diff != nil {
			t.Error(diff)
		}
	})

	t.Run("copy failure leaves the old subtree", func(t *testing.T) {
		stubPathExists(t, func(string) bool { return true })
		runner := &fakeRunner{failOn: "rsync"}
		if err := migrateSubtree(runner, "var", mountVarDir); err == nil {
			t.Fatal("expected error from failed copy")
		}
		for _, c := range runner.calls {
			if c.Name == "rm" {
				t.Error("old subtree deleted after a failed copy")
			}
		}
	})

	t.Run("missing subtree is skipped", func(t *testing.T) {
		stubPathExists(t, func(string) bool { return false })
		runner := &fakeRunner{}
		if err := migrateSubtree(runner, "var", mountVarDir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runner.calls) != 0 {
			t.Errorf("got %d commands, want none for a missing subtree", len(runner.calls))
		}
	})
}
