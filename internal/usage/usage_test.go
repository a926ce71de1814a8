package usage

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/subagent-go/internal/message"
	"github.com/wagiedev/subagent-go/internal/task"
)

func finishedState(model string, u message.Usage) *task.State {
	s := task.NewState(task.Descriptor{Model: model, Task: "t"})
	s.Usage = u
	s.Finish(task.StatusExited, 0, "")

	return s
}

func TestSum(t *testing.T) {
	a := finishedState("a/x", message.Usage{Input: 5, Output: 1, Cost: 0.5, Turns: 1})
	b := finishedState("b/y", message.Usage{Input: 10, CacheRead: 7, Cost: 0.25, Turns: 2})

	total := Sum([]task.State{a.Clone(), b.Clone()})

	assert.Equal(t, int64(15), total.Input)
	assert.Equal(t, int64(1), total.Output)
	assert.Equal(t, int64(7), total.CacheRead)
	assert.InDelta(t, 0.75, total.Cost, 1e-9)
	assert.Equal(t, 3, total.Turns)
	assert.True(t, Sum(nil).IsZero())
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   message.Usage
		want string
	}{
		{"zero", message.Usage{}, ""},
		{"single turn", message.Usage{Turns: 1, Input: 5, Output: 1}, "1 turn ↑5 ↓1"},
		{
			"full",
			message.Usage{Turns: 3, Input: 1200, Output: 300, CacheRead: 5000, CacheWrite: 1000, Cost: 0.0123},
			"3 turns ↑1.2k ↓300 R5k W1k $0.0123",
		},
		{"large", message.Usage{Input: 45_300, Output: 2_500_000}, "↑45k ↓2.5M"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestLedger_FoldOnce(t *testing.T) {
	ledger := NewLedger(nil)
	state := finishedState("a/x", message.Usage{Input: 5, Output: 1, Turns: 1})

	require.True(t, ledger.Fold(context.Background(), state))
	require.False(t, ledger.Fold(context.Background(), state))

	assert.Equal(t, message.Usage{Input: 5, Output: 1, Turns: 1}, ledger.Total())
}

func TestLedger_SkipsZeroUsage(t *testing.T) {
	ledger := NewLedger(nil)

	assert.False(t, ledger.Fold(context.Background(), finishedState("a/x", message.Usage{})))
	assert.False(t, ledger.Fold(context.Background(), nil))
	assert.True(t, ledger.Total().IsZero())
}

func TestLedger_ConcurrentFolds(t *testing.T) {
	ledger := NewLedger(nil)

	states := make([]*task.State, 50)
	for i := range states {
		states[i] = finishedState("a/x", message.Usage{Input: 1, Turns: 1})
	}

	var wg sync.WaitGroup

	for _, s := range states {
		for range 2 {
			wg.Go(func() { ledger.Fold(context.Background(), s) })
		}
	}

	wg.Wait()

	assert.Equal(t, int64(50), ledger.Total().Input)
	assert.Equal(t, 50, ledger.Total().Turns)
}

func TestLedger_OnFoldReportsRunningTotal(t *testing.T) {
	var totals []float64

	ledger := NewLedger(&Config{OnFold: func(total message.Usage) {
		totals = append(totals, total.Cost)
	}})

	ledger.Fold(context.Background(), finishedState("a/x", message.Usage{Cost: 0.5}))
	ledger.Fold(context.Background(), finishedState("a/x", message.Usage{Cost: 0.25}))

	require.Len(t, totals, 2)
	assert.InDelta(t, 0.5, totals[0], 1e-9)
	assert.InDelta(t, 0.75, totals[1], 1e-9)
}

func TestLedger_PersistAndRestore(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/state/ledger.jsonl")

	first := NewLedger(&Config{Store: store})
	state := finishedState("a/x", message.Usage{Input: 5, Output: 1, Cost: 0.01, Turns: 1})
	require.True(t, first.Fold(context.Background(), state))
	require.True(t, first.Fold(context.Background(), finishedState("b/y", message.Usage{Input: 2})))

	second := NewLedger(&Config{Store: store})
	require.NoError(t, second.Restore(context.Background()))
	require.NoError(t, second.Restore(context.Background()))

	assert.Equal(t, first.Total(), second.Total())

	// A task restored from the store is not counted again.
	assert.False(t, second.Fold(context.Background(), state))
	assert.Equal(t, first.Total(), second.Total())
}

func TestLedger_RestoreWithoutStore(t *testing.T) {
	require.NoError(t, NewLedger(nil).Restore(context.Background()))
}

// gatherCounters returns every counter in registry keyed by
// "name,label=value,...".
func gatherCounters(t *testing.T, registry *prometheus.Registry) map[string]float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	found := map[string]float64{}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := mf.GetName()
			for _, lp := range m.GetLabel() {
				labels += "," + lp.GetName() + "=" + lp.GetValue()
			}

			found[labels] = m.GetCounter().GetValue()
		}
	}

	return found
}

func TestLedger_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	ledger := NewLedger(&Config{Registerer: registry})

	failed := finishedState("a/x", message.Usage{Input: 3, Turns: 1})
	failed.ExitCode = 1

	ledger.Fold(context.Background(), finishedState("a/x", message.Usage{Input: 5, Turns: 1}))
	ledger.Fold(context.Background(), failed)

	found := gatherCounters(t, registry)

	assert.InDelta(t, 8, found["subagent_tokens_total,kind=input,model=a/x"], 1e-9)
	assert.InDelta(t, 1, found["subagent_tasks_total,model=a/x,outcome=succeeded"], 1e-9)
	assert.InDelta(t, 1, found["subagent_tasks_total,model=a/x,outcome=failed"], 1e-9)
	assert.InDelta(t, 2, found["subagent_turns_total,model=a/x"], 1e-9)
}

func TestLedger_MetricsSharedRegisterer(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := NewLedger(&Config{Registerer: registry})

	var second *Ledger

	require.NotPanics(t, func() {
		second = NewLedger(&Config{Registerer: registry})
	})

	first.Fold(context.Background(), finishedState("a/x", message.Usage{Input: 2, Turns: 1}))
	second.Fold(context.Background(), finishedState("a/x", message.Usage{Input: 3, Turns: 1}))

	found := gatherCounters(t, registry)
	assert.InDelta(t, 5, found["subagent_tokens_total,kind=input,model=a/x"], 1e-9)
	assert.InDelta(t, 2, found["subagent_tasks_total,model=a/x,outcome=succeeded"], 1e-9)
}

func TestLedger_MetricsConflictingRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "subagent_cost_total",
		Help: "unrelated",
	}))

	ledger := NewLedger(&Config{Registerer: registry})
	assert.Nil(t, ledger.metrics)

	assert.True(t, ledger.Fold(context.Background(), finishedState("a/x", message.Usage{Input: 1, Turns: 1})))
}

func TestFileStore_MissingFile(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "/nope/ledger.jsonl")

	entries, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStore_TruncatedLastLine(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/ledger.jsonl")

	require.NoError(t, store.Append(context.Background(), Entry{TaskID: "1", Model: "a/x", Usage: message.Usage{Input: 1}}))

	f, err := fs.OpenFile("/ledger.jsonl", os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte(`{"taskId":"2","model":"a/x","usa`))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].TaskID)
}

func TestFileStore_OSFilesystem(t *testing.T) {
	path := t.TempDir() + "/sub/ledger.jsonl"
	store := NewFileStore(nil, path)

	require.NoError(t, store.Append(context.Background(), Entry{TaskID: "1", Model: "a/x"}))
	require.NoError(t, store.Append(context.Background(), Entry{TaskID: "2", Model: "b/y"}))

	entries, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b/y", entries[1].Model)
	assert.Equal(t, path, store.Path())
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Entry{
		{Model: "a/x", Usage: message.Usage{Input: 1, Cost: 0.1}},
		{Model: "a/x", Usage: message.Usage{Input: 2, Cost: 0.2}},
		{Model: "b/y", Usage: message.Usage{Output: 4}},
	})

	assert.Equal(t, 3, s.Tasks)
	assert.Equal(t, int64(3), s.Total.Input)
	assert.Equal(t, int64(3), s.ByModel["a/x"].Input)
	assert.Equal(t, int64(4), s.ByModel["b/y"].Output)
}
