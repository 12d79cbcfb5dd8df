package rootshrink

import (
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Runner executes destructive external commands. The orchestrator routes
// every disk-mutating invocation through a Runner so that a dry run can be
// guaranteed to make no destructive call.
type Runner interface {
	Run(name string, args ...string) error
}

// CommandRunner executes commands on the host, streaming their output to the
// process's stdout/stderr so the operator sees the collaborator tools'
// transcripts inline.
type CommandRunner struct{}

func (CommandRunner) Run(name string, args ...string) error {
	logrus.Infof("exec: %s %s", name, strings.Join(args, " "))
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return NewToolExecutionError(name, err)
	}
	return nil
}

// NoopRunner logs commands without executing them.
type NoopRunner struct{}

func (NoopRunner) Run(name string, args ...string) error {
	logrus.Infof("noop: %s %s", name, strings.Join(args, " "))
	return nil
}

// commandOutput captures a read-only query command's stdout; overridden in
// tests.
var commandOutput = func(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	return string(out), err
}

// commandExists reports whether a command resolves on PATH; overridden in
// tests.
var commandExists = func(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
