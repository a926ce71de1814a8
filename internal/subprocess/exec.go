package subprocess

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wagiedev/subagent-go/internal/cli"
	"github.com/wagiedev/subagent-go/internal/config"
)

// outputDrainDelay bounds how long stdout and stderr are still read after the
// agent has exited. Descendants that inherited the pipes cannot keep a run
// open past it.
const outputDrainDelay = time.Second

// ExecSpawner starts agents as local child processes.
//
// Command.Path may be a bare agent name; it is then located in the system
// PATH and common installation directories (/usr/local/bin, /usr/bin,
// ~/.local/bin). Any other path is used as is and must exist.
//
// Each agent runs in its own process group on unix, and Terminate and Kill
// signal the whole group.
type ExecSpawner struct {
	// Logger receives discovery output. If nil, logging is disabled.
	Logger *slog.Logger
}

// Compile-time verification that ExecSpawner implements config.Spawner.
var _ config.Spawner = ExecSpawner{}

// Spawn starts cmd. The process is not tied to ctx; it is stopped through
// Terminate and Kill.
func (s ExecSpawner) Spawn(ctx context.Context, cmd config.Command) (config.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.resolve(ctx, cmd.Path)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G204: Subprocess launching with dynamic args is expected for agent invocation
	c := exec.Command(path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	setProcessGroup(c)

	// Plain os.Pipe pairs instead of StdoutPipe: Cmd.Wait would close
	// those as soon as the process exits, losing unread output.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)

		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	c.Stdout = stdoutW
	c.Stderr = stderrW

	err = c.Start()

	// The child holds its own copies of the write ends.
	closeAll(stdoutW, stderrW)

	if err != nil {
		closeAll(stdoutR, stderrR)

		return nil, fmt.Errorf("start process: %w", err)
	}

	p := &execProcess{
		cmd:    c,
		stdout: stdoutR,
		stderr: stderrR,
		done:   make(chan struct{}),
	}

	go p.wait()

	return p, nil
}

// resolve locates the executable for path.
func (s ExecSpawner) resolve(ctx context.Context, path string) (string, error) {
	cfg := &cli.Config{Logger: s.Logger}

	if filepath.Base(path) == path {
		cfg.AgentName = path
	} else {
		cfg.AgentPath = path
	}

	return cli.NewDiscoverer(cfg).Discover(ctx)
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout *os.File
	stderr *os.File

	done chan struct{}
	exit config.Exit
}

var _ config.Process = (*execProcess)(nil)

func (p *execProcess) Stdout() io.Reader { return p.stdout }

func (p *execProcess) Stderr() io.Reader { return p.stderr }

// Terminate sends SIGTERM to the agent's process group. On platforms without
// it the process is killed.
func (p *execProcess) Terminate() error {
	if p.exited() {
		return os.ErrProcessDone
	}

	err := signalGroup(p.cmd.Process, syscall.SIGTERM)
	if err == nil || stderrors.Is(err, os.ErrProcessDone) {
		return err
	}

	return p.Kill()
}

// Kill forcefully stops the agent's process group.
func (p *execProcess) Kill() error {
	if p.exited() {
		return os.ErrProcessDone
	}

	return signalGroup(p.cmd.Process, syscall.SIGKILL)
}

// exited reports whether the agent has been reaped. Its group is not
// signalled afterwards since the id may have been reused.
func (p *execProcess) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *execProcess) Wait() config.Exit {
	<-p.done

	closeAll(p.stdout, p.stderr)

	return p.exit
}

// wait reaps the agent, stops whatever it left behind in its group and
// bounds further reads of its output.
func (p *execProcess) wait() {
	p.exit = exitOf(p.cmd.Wait())

	_ = signalGroup(p.cmd.Process, syscall.SIGKILL)

	deadline := time.Now().Add(outputDrainDelay)
	for _, f := range []*os.File{p.stdout, p.stderr} {
		if err := f.SetReadDeadline(deadline); err != nil {
			time.AfterFunc(outputDrainDelay, func() { _ = f.Close() })
		}
	}

	close(p.done)
}

func exitOf(err error) config.Exit {
	if err == nil {
		return config.Exit{Code: 0}
	}

	exitErr, ok := stderrors.AsType[*exec.ExitError](err)
	if !ok {
		return config.Exit{Code: -1, Err: err}
	}

	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return config.Exit{Code: -1, Signal: signalName(status.Signal())}
	}

	return config.Exit{Code: exitErr.ExitCode()}
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
