// Package mcp exposes tools over the Model Context Protocol.
//
// Server wraps the official SDK server and keeps its own index of the
// registered tools so they can also be invoked in-process, without a
// transport, by the CLI and by tests.
package mcp
