//go:build tools
// +build tools

// Package tools pins the code generators run by `go generate`.
//
// mockgen is never imported at runtime. Tracking it here keeps its version in
// go.mod so regenerating the mocks on a fresh checkout resolves the same binary.
package campus_chat

import (
	_ "go.uber.org/mock/mockgen"
)
