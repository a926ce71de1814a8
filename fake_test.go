package subagent

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// script describes how a fake agent answers one task.
type script struct {
	reply  string
	input  int64
	output int64
	delay  time.Duration
	exit   int
	stderr string
	// hang keeps the agent running until it is terminated.
	hang bool
}

func (s script) stdout() string {
	if s.reply == "" && s.input == 0 && s.output == 0 {
		return ""
	}

	return fmt.Sprintf(
		`{"type":"message_end","message":{"role":"assistant","content":[{"type":"text","text":%q}],"usage":{"input":%d,"output":%d,"cost":{"total":0.001}},"stopReason":"stop"}}`+"\n",
		s.reply, s.input, s.output,
	)
}

// scriptedSpawner runs fake agents keyed by the task prompt.
type scriptedSpawner struct {
	scripts map[string]script

	active atomic.Int32
	peak   atomic.Int32

	mu       sync.Mutex
	commands []Command
}

func newScriptedSpawner(scripts map[string]script) *scriptedSpawner {
	return &scriptedSpawner{scripts: scripts}
}

func (s *scriptedSpawner) Spawn(_ context.Context, cmd Command) (Process, error) {
	prompt := cmd.Args[len(cmd.Args)-1]

	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	sc, ok := s.scripts[prompt]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no script for %q", prompt)
	}

	cur := s.active.Add(1)
	for {
		old := s.peak.Load()
		if cur <= old || s.peak.CompareAndSwap(old, cur) {
			break
		}
	}

	p := &scriptedProcess{
		spawner: s,
		stderr:  strings.NewReader(sc.stderr),
		exit:    Exit{Code: sc.exit},
	}

	pr, pw := io.Pipe()
	p.stdout = pr
	p.pw = pw

	go func() {
		if sc.delay > 0 {
			time.Sleep(sc.delay)
		}

		if out := sc.stdout(); out != "" {
			_, _ = pw.Write([]byte(out))
		}

		if !sc.hang {
			_ = pw.Close()
		}
	}()

	return p, nil
}

func (s *scriptedSpawner) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Command(nil), s.commands...)
}

type scriptedProcess struct {
	spawner *scriptedSpawner
	stdout  io.Reader
	stderr  io.Reader
	pw      *io.PipeWriter

	mu   sync.Mutex
	exit Exit
}

func (p *scriptedProcess) Stdout() io.Reader { return p.stdout }
func (p *scriptedProcess) Stderr() io.Reader { return p.stderr }

func (p *scriptedProcess) Terminate() error { return p.stop("SIGTERM") }
func (p *scriptedProcess) Kill() error      { return p.stop("SIGKILL") }

func (p *scriptedProcess) stop(signal string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exit.Signal == "" {
		p.exit = Exit{Code: -1, Signal: signal}
	}

	return p.pw.Close()
}

func (p *scriptedProcess) Wait() Exit {
	defer p.spawner.active.Add(-1)

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exit
}

// newTestOrchestrator builds an orchestrator running agents on spawner.
func newTestOrchestrator(t *testing.T, spawner Spawner, opts ...Option) *Orchestrator {
	t.Helper()

	base := []Option{
		WithSpawner(spawner),
		WithGracePeriod(200 * time.Millisecond),
	}

	return New(append(base, opts...)...)
}
