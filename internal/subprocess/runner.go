package subprocess

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/wagiedev/subagent-go/internal/cancel"
	"github.com/wagiedev/subagent-go/internal/cli"
	"github.com/wagiedev/subagent-go/internal/config"
	"github.com/wagiedev/subagent-go/internal/errors"
	"github.com/wagiedev/subagent-go/internal/event"
	"github.com/wagiedev/subagent-go/internal/message"
	"github.com/wagiedev/subagent-go/internal/task"
)

const (
	// readChunkSize is the size of each stdout read.
	readChunkSize = 64 * 1024
	// maxStderrLineSize is the longest stderr line handed to the callback.
	maxStderrLineSize = 1024 * 1024 // 1MB
	// maxStderrBufferSize is the maximum size for the stderr buffer.
	// Stderr reading continues indefinitely (callback receives all lines),
	// but the buffer stops growing after this limit to prevent unbounded memory usage.
	maxStderrBufferSize = 10 * 1024 * 1024 // 10MB
)

// Runner executes task descriptors as agent processes.
// A Runner is safe for concurrent use; each Run owns its own process.
type Runner struct {
	log     *slog.Logger
	options *config.Options
	spawner config.Spawner
}

// NewRunner creates a runner. Processes are started by options.Spawner, or
// by an ExecSpawner when it is nil.
//
// The spawner receives options.AgentPath as the command path when set, and
// the agent name otherwise; locating the binary is up to the spawner.
func NewRunner(log *slog.Logger, options *config.Options) *Runner {
	log = log.With("component", "runner")

	spawner := options.Spawner
	if spawner == nil {
		spawner = ExecSpawner{Logger: log}
	}

	return &Runner{
		log:     log,
		options: options,
		spawner: spawner,
	}
}

// Run executes desc and returns its terminal state.
//
// notify, if non-nil, receives a snapshot after every state change,
// including the final transition. ctx is the cancellation signal: when it is
// cancelled the process is terminated and the state is marked aborted.
func (r *Runner) Run(ctx context.Context, desc task.Descriptor, notify task.NotifyFunc) *task.State {
	state := task.NewState(desc)
	interp := task.NewInterpreter(r.log, state, notify)
	log := r.log.With("task_id", state.ID, "model", desc.Model)

	path := r.options.AgentPath
	if path == "" {
		path = r.options.Agent()
	}

	cmd := config.Command{
		Path: path,
		Args: cli.BuildArgs(desc, r.options),
		Dir:  r.options.Cwd,
		Env:  cli.BuildEnvironment(r.options),
	}

	log.Debug("Spawning agent", "path", path, "args", cmd.Args)

	// Spawning must not short-circuit on a cancelled signal; an already
	// cancelled task still starts and is killed immediately.
	proc, err := r.spawner.Spawn(context.WithoutCancel(ctx), cmd)
	if err != nil {
		r.spawnFailed(log, interp, &errors.SpawnError{Path: path, Err: err})

		return state
	}

	binding := cancel.Bind(ctx, log, proc, r.options.Grace())

	var (
		stderr stderrCollector
		wg     sync.WaitGroup
	)

	stderr.callback = r.options.Stderr

	// Stderr must be drained before Wait; see os/exec.Cmd.StderrPipe.
	wg.Go(func() { stderr.collect(log, proc.Stderr()) })

	r.readEvents(log, proc.Stdout(), interp)
	wg.Wait()

	exit := proc.Wait()
	binding.Release()

	r.finish(log, interp, exit, binding.Aborted(), stderr.String())

	return state
}

// readEvents decodes stdout until EOF or a read error, applying each event
// as it arrives. Spawners bound reads once the process has exited.
func (r *Runner) readEvents(log *slog.Logger, stdout io.Reader, interp *task.Interpreter) {
	var (
		lines   LineBuffer
		decoded int
		dropped int
	)

	apply := func(line []byte) {
		if len(bytes.TrimSpace(line)) == 0 {
			return
		}

		ev, err := event.Decode(line)
		if err != nil {
			dropped++

			log.Debug("Dropping undecodable line", "error", err)

			return
		}

		decoded++

		interp.Apply(ev)
	}

	buf := make([]byte, readChunkSize)

	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			lines.Feed(buf[:n], apply)
		}

		if err != nil {
			if err != io.EOF {
				log.Debug("Stdout read error", "error", err)
			}

			break
		}
	}

	lines.Flush(apply)

	// Drain anything left so the process never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, stdout)

	log.Debug("Agent output finished", "events", decoded, "dropped_lines", dropped)
}

func (r *Runner) spawnFailed(log *slog.Logger, interp *task.Interpreter, err error) {
	state := interp.State()

	log.Error("Failed to start agent", "error", err)

	state.ErrorMessage = err.Error()
	state.Finish(task.StatusSpawnFailed, 1, "")
	interp.Notify()
}

// finish records the exit and resolves the error text. Precedence: abort,
// then an error the agent reported itself, then stderr, then the signal
// name, then the exit code.
func (r *Runner) finish(log *slog.Logger, interp *task.Interpreter, exit config.Exit, aborted bool, stderr string) {
	state := interp.State()

	status := task.StatusExited
	if exit.Signal != "" {
		status = task.StatusSignaled
	}

	state.Finish(status, exit.Code, exit.Signal)

	switch {
	case aborted:
		state.StopReason = message.StopReasonAborted
		state.ErrorMessage = errors.ErrAborted.Error()
	case state.ErrorMessage != "":
	case exit.Code == 0 && exit.Signal == "" && exit.Err == nil &&
		state.StopReason != message.StopReasonError:
	case stderr != "":
		state.ErrorMessage = stderr
	case exit.Err != nil:
		state.ErrorMessage = exit.Err.Error()
	case exit.Code == 0 && exit.Signal == "":
		state.ErrorMessage = "agent stopped with an error"
	default:
		state.ErrorMessage = (&errors.ProcessError{ExitCode: exit.Code, Signal: exit.Signal}).Error()
	}

	if task.Failed(state) {
		log.Warn("Agent finished unsuccessfully",
			"status", state.Status,
			"exit_code", state.ExitCode,
			"signal", state.Signal,
			"stop_reason", state.StopReason,
			"error", state.ErrorMessage,
		)
	} else {
		log.Info("Agent finished", "turns", state.Usage.Turns, "cost", state.Usage.Cost)
	}

	interp.Notify()
}

// stderrCollector buffers stderr for error reporting and streams it to an
// optional callback. It is written by one goroutine and read after that
// goroutine has finished.
type stderrCollector struct {
	buf      strings.Builder
	callback func(string)
}

func (c *stderrCollector) collect(log *slog.Logger, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStderrLineSize)

	for scanner.Scan() {
		line := scanner.Text()

		// Buffer stderr for error reporting (capped at maxStderrBufferSize)
		if c.buf.Len() < maxStderrBufferSize {
			if c.buf.Len() > 0 {
				c.buf.WriteString("\n")
			}

			c.buf.WriteString(line)
		}

		if c.callback != nil {
			c.callback(line)
		}
	}

	if err := scanner.Err(); err != nil {
		log.Debug("Stderr scanner error", "error", err)

		_, _ = io.Copy(io.Discard, r)
	}
}

// String returns the buffered stderr without runtime source-context noise.
func (c *stderrCollector) String() string {
	return cleanStderr(c.buf.String())
}

// cleanStderr strips source-context lines that JavaScript runtimes print
// around a thrown error ("1234 | <minified code>").
func cleanStderr(stderr string) string {
	if stderr == "" {
		return ""
	}

	var cleaned strings.Builder

	for line := range strings.SplitSeq(stderr, "\n") {
		if isSourceContextLine(strings.TrimSpace(line)) {
			continue
		}

		if cleaned.Len() > 0 {
			cleaned.WriteString("\n")
		}

		cleaned.WriteString(line)
	}

	return strings.TrimSpace(cleaned.String())
}

func isSourceContextLine(line string) bool {
	pipeIdx := strings.Index(line, "|")
	if pipeIdx < 1 {
		return false
	}

	prefix := strings.TrimSpace(line[:pipeIdx])
	if prefix == "" {
		return false
	}

	for _, ch := range prefix {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	return true
}
