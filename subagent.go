package subagent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wagiedev/subagent-go/internal/config"
	"github.com/wagiedev/subagent-go/internal/errors"
	"github.com/wagiedev/subagent-go/internal/models"
	"github.com/wagiedev/subagent-go/internal/progress"
	"github.com/wagiedev/subagent-go/internal/scheduler"
	"github.com/wagiedev/subagent-go/internal/subprocess"
	"github.com/wagiedev/subagent-go/internal/task"
	"github.com/wagiedev/subagent-go/internal/usage"
)

// Orchestrator delegates tasks to agent processes and keeps the session's
// usage ledger. It is safe for concurrent use.
type Orchestrator struct {
	log      *slog.Logger
	options  *Options
	registry ModelRegistry
	runner   *subprocess.Runner
	ledger   *usage.Ledger
}

// New creates an orchestrator. It does not touch the ledger store; call
// Restore once at session start to load persisted usage.
func New(opts ...Option) *Orchestrator {
	options := applyOptions(opts)
	log := options.Logger.With("component", "orchestrator")

	registry := options.Registry
	if registry == nil {
		registry = models.Static(nil)
	}

	return &Orchestrator{
		log:      log,
		options:  options,
		registry: registry,
		runner:   subprocess.NewRunner(options.Logger, &options.Options),
		ledger: usage.NewLedger(&usage.Config{
			Logger:     options.Logger,
			Store:      options.LedgerStore,
			Registerer: options.MetricsRegisterer,
			OnFold:     options.OnUsage,
		}),
	}
}

// Restore loads persisted ledger entries into the session total. Only the
// first call reads the store.
func (o *Orchestrator) Restore(ctx context.Context) error {
	if err := o.ledger.Restore(ctx); err != nil {
		return fmt.Errorf("restore usage ledger: %w", err)
	}

	return nil
}

// SessionUsage returns the usage of every task folded this session,
// including restored entries.
func (o *Orchestrator) SessionUsage() Usage {
	return o.ledger.Total()
}

// Run executes req and returns every task's terminal state.
//
// The returned error is a *ValidationError when the request is malformed or
// names a model that is not enabled; nothing is spawned in that case. Agent
// failures are never returned as errors: they are recorded on the task
// states and reflected by Result.IsError.
//
// Cancelling ctx terminates every running agent. Each is sent a graceful
// termination request and killed once the grace period has elapsed.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*Result, error) {
	available, err := o.registry.EnabledModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled models: %w", err)
	}

	mode, descs, err := o.validate(req, available)
	if err != nil {
		o.log.Debug("Rejected request", "error", err)

		return nil, err
	}

	o.log.Info("Dispatching request", "mode", mode, "tasks", len(descs))

	tracker := o.newTracker(mode, len(descs))
	defer tracker.close()

	states := make([]*task.State, len(descs))

	switch mode {
	case ModeSingle:
		states[0] = o.runOne(ctx, descs[0], tracker.notify(0))
	default:
		scheduler.Run(ctx, len(descs), o.options.Concurrency(), func(ctx context.Context, i int) {
			states[i] = o.runOne(ctx, descs[i], tracker.notify(i))
		})
	}

	result := &Result{
		Mode:            mode,
		Results:         make([]TaskState, len(states)),
		AvailableModels: available,
	}

	for i, s := range states {
		result.Results[i] = s.Clone()
	}

	o.log.Info("Request finished",
		"mode", mode,
		"succeeded", result.Succeeded(),
		"total", len(result.Results),
		"usage", usage.Format(result.TotalUsage()),
	)

	return result, nil
}

// runOne runs a single descriptor and folds its usage into the ledger as
// soon as it is terminal.
func (o *Orchestrator) runOne(ctx context.Context, desc task.Descriptor, notify task.NotifyFunc) *task.State {
	state := o.runner.Run(ctx, desc, notify)
	o.ledger.Fold(context.WithoutCancel(ctx), state)

	return state
}

// validate checks the request shape and resolves every model to its
// registry spelling.
func (o *Orchestrator) validate(req *Request, available []string) (Mode, []task.Descriptor, error) {
	invalid := func(err error, detail string) error {
		return &errors.ValidationError{Err: err, Detail: detail, AvailableModels: available}
	}

	if req == nil {
		return "", nil, invalid(errors.ErrAmbiguousRequest, "")
	}

	hasSingle := req.Model != "" || req.Task != ""
	hasList := len(req.Tasks) > 0

	switch {
	case hasSingle == hasList:
		return "", nil, invalid(errors.ErrAmbiguousRequest, "")
	case hasSingle:
		if req.Model == "" || req.Task == "" {
			return "", nil, invalid(errors.ErrAmbiguousRequest, "single mode needs both model and task")
		}

		model, ok := models.Resolve(available, req.Model)
		if !ok {
			return "", nil, invalid(errors.ErrUnknownModel, fmt.Sprintf("%q", req.Model))
		}

		return ModeSingle, []task.Descriptor{{
			Model:   model,
			Task:    req.Task,
			Context: req.Context,
			Tools:   req.Tools,
		}}, nil
	}

	if len(req.Tasks) > config.MaxParallelTasks {
		return "", nil, invalid(errors.ErrTooManyTasks,
			fmt.Sprintf("got %d, max %d", len(req.Tasks), config.MaxParallelTasks))
	}

	descs := make([]task.Descriptor, len(req.Tasks))

	for i, t := range req.Tasks {
		if t.Model == "" || t.Task == "" {
			return "", nil, invalid(errors.ErrAmbiguousRequest,
				fmt.Sprintf("tasks[%d] needs both model and task", i))
		}

		model, ok := models.Resolve(available, t.Model)
		if !ok {
			return "", nil, invalid(errors.ErrUnknownModel, fmt.Sprintf("tasks[%d]: %q", i, t.Model))
		}

		descs[i] = task.Descriptor{
			Model:   model,
			Task:    t.Task,
			Context: t.Context,
			Tools:   t.Tools,
		}
	}

	return ModeParallel, descs, nil
}

// tracker turns per-task snapshots into coarse Progress updates.
type tracker struct {
	mode      Mode
	forwarder *progress.Forwarder[Progress]

	mu    sync.Mutex
	tasks []TaskState
}

func (o *Orchestrator) newTracker(mode Mode, n int) *tracker {
	t := &tracker{
		mode:  mode,
		tasks: make([]TaskState, n),
	}

	if o.options.Progress != nil {
		t.forwarder = progress.NewForwarder(o.options.Logger, o.options.Progress, o.options.ProgressBuffer)
	}

	return t
}

// notify returns the snapshot callback for the task at index.
func (t *tracker) notify(index int) task.NotifyFunc {
	if t.forwarder == nil {
		return nil
	}

	return func(s task.State) {
		t.mu.Lock()
		defer t.mu.Unlock()

		t.tasks[index] = s

		// Publish under the lock so snapshots are queued in the order
		// they were taken. Publish does not block.
		t.forwarder.Publish(t.snapshotLocked())
	}
}

func (t *tracker) snapshotLocked() Progress {
	p := Progress{
		Mode:  t.mode,
		Total: len(t.tasks),
		Tasks: make([]TaskState, len(t.tasks)),
	}

	copy(p.Tasks, t.tasks)

	for i := range t.tasks {
		switch {
		case t.tasks[i].Status == "":
		case t.tasks[i].Terminal():
			p.Done++
		default:
			p.Running++
		}
	}

	return p
}

// close delivers pending snapshots and waits for the sink.
func (t *tracker) close() {
	if t.forwarder != nil {
		t.forwarder.Close()
	}
}
