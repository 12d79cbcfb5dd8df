package rootshrink

import (
	"errors"
	"fmt"
	"testing"
)

type call struct {
	Name string
	Args []string
}

// fakeRunner records every command and optionally fails a named one.
type fakeRunner struct {
	calls  []call
	failOn string
}

func (r *fakeRunner) Run(name string, args ...string) error {
	r.calls = append(r.calls, call{Name: name, Args: args})
	if r.failOn != "" && name == r.failOn {
		return NewToolExecutionError(name, errors.New("exit status 1"))
	}
	return nil
}

func (r *fakeRunner) commandNames() []string {
	var names []string
	for _, c := range r.calls {
		names = append(names, c.Name)
	}
	return names
}

// fakeGeometry serves canned geometry answers. nextNumber increments on
// every NextPartitionNumber call, mirroring a table gaining partitions.
type fakeGeometry struct {
	sizeBytes  int64
	starts     map[int]int64
	nextNumber int
}

func (g *fakeGeometry) DiskSizeBytes(device string) (int64, error) {
	return g.sizeBytes, nil
}

func (g *fakeGeometry) PartitionStart(device string, number int) (int64, error) {
	start, ok := g.starts[number]
	if !ok {
		return 0, NewNotFoundError(fmt.Sprintf("partition %d on %s", number, device))
	}
	return start, nil
}

func (g *fakeGeometry) NextPartitionNumber(device string) (int, error) {
	n := g.nextNumber
	g.nextNumber++
	return n, nil
}

func stubPathExists(t *testing.T, fn func(string) bool) {
	t.Helper()
	orig := pathExists
	pathExists = fn
	t.Cleanup(func() { pathExists = orig })
}

func stubCommandOutput(t *testing.T, fn func(name string, args ...string) (string, error)) {
	t.Helper()
	orig := commandOutput
	commandOutput = fn
	t.Cleanup(func() { commandOutput = orig })
}

func stubCommandExists(t *testing.T, fn func(string) bool) {
	t.Helper()
	orig := commandExists
	commandExists = fn
	t.Cleanup(func() { commandExists = orig })
}

func stubProcMounts(t *testing.T, path string) {
	t.Helper()
	orig := procMountsPath
	procMountsPath = path
	t.Cleanup(func() { procMountsPath = orig })
}

func stubMountDirs(t *testing.T, root, varDir, home string) {
	t.Helper()
	origRoot, origVar, origHome := mountRootDir, mountVarDir, mountHomeDir
	mountRootDir, mountVarDir, mountHomeDir = root, varDir, home
	t.Cleanup(func() {
		mountRootDir, mountVarDir, mountHomeDir = origRoot, origVar, origHome
	})
}
