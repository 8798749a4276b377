// Package version exposes build metadata injected via Go ldflags
// and a cobra subcommand printing it.
package version
