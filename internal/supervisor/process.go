package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// exitState is the raw termination record of a child.
type exitState struct {
	status unix.WaitStatus
	rusage unix.Rusage
}

type child interface {
	pid() int
	// poll reports whether the child has terminated, without blocking.
	poll() (bool, exitState, error)
	kill() error
	// reap blocks until a killed child has been collected.
	reap() (exitState, error)
	release()
}

type spawner interface {
	spawn(argv []string, stdin, stdout, stderr *os.File) (child, error)
}

type osSpawner struct{}

func (osSpawner) spawn(argv []string, stdin, stdout, stderr *os.File) (child, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &osChild{cmd: cmd}, nil
}

// osChild is reaped with wait4 directly; cmd.Wait is never called, so the
// standard streams must be *os.File values that exec passes through as is.
type osChild struct {
	cmd *exec.Cmd
}

func (c *osChild) pid() int {
	return c.cmd.Process.Pid
}

func (c *osChild) poll() (bool, exitState, error) {
	var st exitState
	for {
		wpid, err := unix.Wait4(c.pid(), &st.status, unix.WNOHANG, &st.rusage)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, st, fmt.Errorf("wait4 pid %d: %w", c.pid(), err)
		}
		return wpid != 0, st, nil
	}
}

func (c *osChild) kill() error {
	// the child leads its own process group
	err := unix.Kill(-c.pid(), unix.SIGKILL)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}

func (c *osChild) reap() (exitState, error) {
	var st exitState
	for {
		_, err := unix.Wait4(c.pid(), &st.status, 0, &st.rusage)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return st, err
	}
}

func (c *osChild) release() {
	_ = c.cmd.Process.Release()
}
