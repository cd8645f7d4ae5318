//go:build tools

// Package tools documents development tool dependencies.
// These tools are installed globally via `go install` and are not tracked in go.mod
// since they are development tools, not runtime dependencies.
package tools

// Development tools:
//
// Air - rebuilds the console on change. Run with DEV=true so templates and
// static assets are read from frontend/ instead of the embedded copy.
//   Install: go install github.com/air-verse/air@v1.63.0
//   Docs: https://github.com/air-verse/air
//
// mockgen - regenerates internal/mocks; pinned in the go:generate lines.
//   Run: go generate ./internal/mocks
