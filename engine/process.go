//go:build !windows

package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
)

// process wraps one running agent subprocess. The child is placed in its
// own process group so that termination reaches the whole tree: agent CLIs
// fork tool subprocesses (shells, formatters) that a plain Process.Kill
// would orphan.
type process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser

	mu     sync.Mutex
	stderr bytes.Buffer

	killedOnDeadline atomic.Bool
	done             chan struct{}
}

// startProcess spawns binary with args in dir. A non-nil stdin payload is
// written to the child's stdin and the pipe closed; otherwise stdin is
// empty. The context cancels the whole process group.
func startProcess(ctx context.Context, binary string, args []string, dir string, stdin []byte) (*process, error) {
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	p := &process{cmd: cmd, done: make(chan struct{})}
	cmd.Stderr = syncWriter{p}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	p.stdout = stdout

	var stdinPipe io.WriteCloser
	if stdin != nil {
		stdinPipe, err = cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	if stdinPipe != nil {
		go func() {
			_, _ = stdinPipe.Write(stdin)
			_ = stdinPipe.Close()
		}()
	}

	go func() {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				p.killedOnDeadline.Store(true)
			}
			p.killGroup()
		case <-p.done:
		}
	}()

	return p, nil
}

// wait reaps the child after stdout is drained. Returns the exit code, or
// -1 when the process was killed by a signal or failed to report a status.
func (p *process) wait() (int, error) {
	err := p.cmd.Wait()
	close(p.done)
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, err
		}
	}
	return -1, err
}

// killGroup sends SIGKILL to the child's process group. Idempotent: a group
// that already exited yields ESRCH, which is not an error here.
func (p *process) killGroup() {
	pid := p.cmd.Process.Pid
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

func (p *process) deadlineKilled() bool {
	return p.killedOnDeadline.Load()
}

func (p *process) stderrString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stderr.String()
}

// syncWriter serializes stderr writes; the child writes from its own
// process while stderrString may be called from the engine goroutine.
type syncWriter struct{ p *process }

func (w syncWriter) Write(b []byte) (int, error) {
	w.p.mu.Lock()
	defer w.p.mu.Unlock()
	return w.p.stderr.Write(b)
}
