package task

import "github.com/wagiedev/subagent-go/internal/message"

// Failed reports whether a terminal state counts as a failure.
//
// This is the only definition of failure; per-task indicators, batch tallies
// and the batch error flag all call it.
func Failed(s *State) bool {
	return s.ExitCode != 0 ||
		s.StopReason == message.StopReasonError ||
		s.StopReason == message.StopReasonAborted
}

// Aborted reports whether the state was terminated by cancellation.
func Aborted(s *State) bool {
	return s.StopReason == message.StopReasonAborted
}
