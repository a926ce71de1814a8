// Package event decodes the newline-delimited JSON event stream written by a
// spawned agent.
//
// Decoding is a closed tagged variant over the event kinds the orchestrator
// understands: a completed message, a partial message update and the result
// of a nested delegation. Every other event kind decodes to Unknown and is
// meant to be skipped by the caller.
package event
