// Package errors defines error types for subagent orchestration.
//
// Request validation problems, spawn failures and process failures each have
// their own type. All error types support unwrapping and can be checked using
// errors.Is, errors.As, and errors.AsType.
package errors
