package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wagiedev/subagent-go"
)

// errTasksFailed is returned when the request ran but at least one task
// failed. The rendered result has already been printed.
var errTasksFailed = errors.New("one or more tasks failed")

type runOptions struct {
	model     string
	task      string
	context   string
	tools     []string
	tasksFile string
	json      bool
}

// taskFile is the document accepted by --tasks-file. Either a bare list of
// tasks or a mapping with a tasks key. JSON is accepted as YAML.
type taskFile struct {
	Tasks []taskEntry `yaml:"tasks"`
}

type taskEntry struct {
	Model   string   `yaml:"model"`
	Task    string   `yaml:"task"`
	Context any      `yaml:"context"`
	Tools   []string `yaml:"tools"`
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one task or a task list and print the result",
		Example: `  subagent run --model openai/gpt-5 --task "Summarize README.md" --tools read
  subagent run --tasks-file tasks.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := buildRequest(a.fs, &opts)
			if err != nil {
				return err
			}

			o := a.orchestrator(nil, subagent.WithProgress(a.logProgress()))

			if err := o.Restore(cmd.Context()); err != nil {
				a.log.Warn("Usage ledger not restored", "error", err)
			}

			result, err := o.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			if err := printResult(cmd.OutOrStdout(), result, opts.json); err != nil {
				return err
			}

			if result.IsError() {
				return errTasksFailed
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.model, "model", "", "model for a single task, as provider/id")
	flags.StringVar(&opts.task, "task", "", "instruction for a single task")
	flags.StringVar(&opts.context, "context", "", "context passed ahead of the task")
	flags.StringSliceVar(&opts.tools, "tools", nil, "tools the agent may use; all when omitted")
	flags.StringVar(&opts.tasksFile, "tasks-file", "", "YAML or JSON file with a task list")
	flags.BoolVar(&opts.json, "json", false, "print the result as JSON")

	cmd.MarkFlagsMutuallyExclusive("tasks-file", "task")
	cmd.MarkFlagsMutuallyExclusive("tasks-file", "model")

	return cmd
}

// buildRequest turns the flags into a request. Validation of the request
// itself is left to the orchestrator.
func buildRequest(fs afero.Fs, opts *runOptions) (*subagent.Request, error) {
	if opts.tasksFile == "" {
		req := &subagent.Request{Model: opts.model, Task: opts.task, Tools: opts.tools}
		if opts.context != "" {
			req.Context = opts.context
		}

		return req, nil
	}

	data, err := afero.ReadFile(fs, opts.tasksFile)
	if err != nil {
		return nil, fmt.Errorf("read tasks file: %w", err)
	}

	entries, err := parseTasks(data)
	if err != nil {
		return nil, fmt.Errorf("parse tasks file %s: %w", opts.tasksFile, err)
	}

	req := &subagent.Request{Tasks: make([]subagent.TaskRequest, 0, len(entries))}

	for _, e := range entries {
		tools := e.Tools
		if len(tools) == 0 {
			tools = opts.tools
		}

		req.Tasks = append(req.Tasks, subagent.TaskRequest{
			Model:   e.Model,
			Task:    e.Task,
			Context: e.Context,
			Tools:   tools,
		})
	}

	return req, nil
}

func parseTasks(data []byte) ([]taskEntry, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	if len(node.Content) == 0 {
		return nil, errors.New("empty document")
	}

	if node.Content[0].Kind == yaml.SequenceNode {
		var entries []taskEntry
		if err := node.Decode(&entries); err != nil {
			return nil, err
		}

		return entries, nil
	}

	var file taskFile
	if err := node.Decode(&file); err != nil {
		return nil, err
	}

	if file.Tasks == nil {
		return nil, errors.New("missing tasks")
	}

	return file.Tasks, nil
}

func printResult(w io.Writer, result *subagent.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(result)
	}

	text := subagent.RenderText(result)
	if total := result.TotalUsage(); result.Mode == subagent.ModeSingle && !total.IsZero() {
		text += "\n\n" + subagent.FormatUsage(total)
	}

	_, err := fmt.Fprintln(w, text)

	return err
}
