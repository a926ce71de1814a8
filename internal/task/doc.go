// Package task holds the per-task state of a delegated agent run, the
// interpreter that folds decoded events into it, and the single predicate
// that classifies a terminal state as failed or successful.
package task
