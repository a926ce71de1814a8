package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/wagiedev/subagent-go/internal/config"
	"github.com/wagiedev/subagent-go/internal/task"
)

// BuildArgs constructs the agent command arguments for one task.
//
// The agent runs non-interactively in JSON event mode without persisting a
// session. When desc.Tools is empty the agent keeps its full tool set.
func BuildArgs(desc task.Descriptor, options *config.Options) []string {
	args := []string{"--mode", "json", "-p", "--no-session"}

	if desc.Model != "" {
		args = append(args, "--model", desc.Model)
	}

	if len(desc.Tools) > 0 {
		args = append(args, "--tools", strings.Join(desc.Tools, ","))
	}

	// Extra args in a stable order
	for _, key := range slices.Sorted(maps.Keys(options.ExtraArgs)) {
		if value := options.ExtraArgs[key]; value == nil {
			args = append(args, "--"+key)
		} else {
			args = append(args, "--"+key, *value)
		}
	}

	return append(args, promptArg(ComposePrompt(desc)))
}

// promptArg keeps the prompt from being parsed as a flag.
func promptArg(prompt string) string {
	if strings.HasPrefix(prompt, "-") {
		return "Task: " + prompt
	}

	return prompt
}

// ComposePrompt renders the prompt fed to the agent: a <context> block when
// context is present, followed by the instruction.
func ComposePrompt(desc task.Descriptor) string {
	block := renderContext(desc.Context)
	if block == "" {
		return desc.Task
	}

	return fmt.Sprintf("<context>\n%s\n</context>\n\n%s", block, desc.Task)
}

func renderContext(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(c)
	case json.RawMessage:
		if len(c) == 0 || string(c) == "null" {
			return ""
		}

		var decoded any
		if err := json.Unmarshal(c, &decoded); err == nil {
			return renderContext(decoded)
		}

		return string(c)
	default:
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Sprint(c)
		}

		if string(data) == "null" {
			return ""
		}

		return string(data)
	}
}

// BuildEnvironment constructs the environment variables for an agent process.
func BuildEnvironment(options *config.Options) []string {
	// Start with current environment
	env := os.Environ()

	// Coloured output would corrupt the JSON stream
	env = append(env, "NO_COLOR=1", "FORCE_COLOR=0")

	// Add or override with user-provided environment variables
	for _, key := range slices.Sorted(maps.Keys(options.Env)) {
		env = append(env, fmt.Sprintf("%s=%s", key, options.Env[key]))
	}

	return env
}
