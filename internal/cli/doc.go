// Package cli provides agent binary discovery and command building for
// spawned agent processes.
//
// # Discovery
//
// The Discoverer interface locates the agent binary:
//
//	discoverer := cli.NewDiscoverer(&cli.Config{
//	    AgentPath: "",         // Optional explicit path
//	    AgentName: "pi",
//	    Logger:    slog.Default(),
//	})
//	path, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. Explicit path in Config.AgentPath (if provided)
//  2. System PATH
//  3. Common installation directories (/usr/local/bin, /usr/bin, ~/.local/bin)
//
// # Command Building
//
// The package builds the non-interactive command line, the composed prompt
// and the environment of an agent process:
//
//	args := cli.BuildArgs(descriptor, options)
//	env := cli.BuildEnvironment(options)
package cli
