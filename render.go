package subagent

import (
	"fmt"
	"strings"

	"github.com/wagiedev/subagent-go/internal/task"
	"github.com/wagiedev/subagent-go/internal/usage"
)

// previewLength bounds the per-task output shown in a parallel summary.
const previewLength = 500

const noOutput = "(no output)"

// RenderText renders a result as the text a driving agent reads.
//
// A single task renders as its final output, followed by its error when it
// failed. A task list renders a tally line and one section per task.
func RenderText(r *Result) string {
	if r == nil || len(r.Results) == 0 {
		return noOutput
	}

	if r.Mode == ModeSingle {
		return renderSingle(&r.Results[0])
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Parallel: %d/%d succeeded", r.Succeeded(), len(r.Results))

	if total := usage.Format(r.TotalUsage()); total != "" {
		fmt.Fprintf(&b, " (%s)", total)
	}

	for i := range r.Results {
		s := &r.Results[i]

		indicator := "✓"
		if task.Failed(s) {
			indicator = "✗"
		}

		fmt.Fprintf(&b, "\n\n[%s] %s %s", s.Model, indicator, preview(s))
	}

	return b.String()
}

func renderSingle(s *TaskState) string {
	out := s.Output()
	if out == "" {
		out = noOutput
	}

	if !task.Failed(s) || s.ErrorMessage == "" {
		return out
	}

	return out + "\n\nError: " + s.ErrorMessage
}

func preview(s *TaskState) string {
	text := s.Output()

	if task.Failed(s) && s.ErrorMessage != "" {
		text = s.ErrorMessage
	}

	if text == "" {
		return noOutput
	}

	if r := []rune(text); len(r) > previewLength {
		return string(r[:previewLength]) + "..."
	}

	return text
}
