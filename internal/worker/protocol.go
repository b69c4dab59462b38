// Package worker implements the bounded pool of stateless workers that
// stream-copy or re-hash one file at a time, talking to the Supervisor
// through a tagged-union message protocol instead of untyped maps.
package worker

import (
	"github.com/syncopasoft/hashcopy/internal/manifest"
	"github.com/syncopasoft/hashcopy/internal/progress"
	"github.com/syncopasoft/hashcopy/internal/task"
)

// CommandKind tags a Supervisor→Worker message.
type CommandKind int

const (
	// CmdTask carries exactly one of Copy or Verify.
	CmdTask CommandKind = iota
	// CmdShutdown carries no payload; the worker exits cleanly on receipt.
	CmdShutdown
)

// Command is the Supervisor→Worker message. Only the fields valid for Kind
// are populated.
type Command struct {
	Kind   CommandKind
	Copy   *task.CopyTask
	Verify *task.VerifyTask
}

// EventKind tags a Worker→Supervisor message.
type EventKind int

const (
	// EvtReady carries Inbox: the worker announces itself once on spawn.
	EvtReady EventKind = iota
	// EvtProgress carries Progress.
	EvtProgress
	// EvtHash carries Hash (copy-run success).
	EvtHash
	// EvtVerified carries Verify* fields (verify-run re-hash result).
	EvtVerified
	// EvtError carries Source and Err.
	EvtError
	// EvtDone carries Inbox and Source: posted exactly once per task,
	// success or error.
	EvtDone
)

// Event is the Worker→Supervisor message. Only the fields documented for
// Kind are meaningful; this is the Go tagged union the design notes call
// for in place of the original's loosely-typed message maps.
type Event struct {
	Kind EventKind

	// EvtReady, EvtDone
	Inbox chan Command

	// EvtProgress
	Progress progress.Event

	// EvtHash
	Hash manifest.Line

	// EvtVerified
	VerifyPath     string
	ExpectedDigest string
	ActualDigest   string
	Match          bool

	// EvtError: Source is the task's source/path. EvtDone: Source is the
	// same identity, carried back so the Supervisor can build a FileDone
	// event without keeping its own inbox-to-task map.
	Source string
	Err    error
}
