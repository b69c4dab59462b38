package worker

import (
	"context"
	"strings"

	"github.com/syncopasoft/hashcopy/internal/manifest"
	"github.com/syncopasoft/hashcopy/internal/progress"
	"github.com/syncopasoft/hashcopy/internal/streamer"
)

// Run is the body of one worker's goroutine. It announces itself with
// EvtReady, then loops receiving Command values from its own inbox until
// it receives CmdShutdown or ctx is cancelled. Each CmdTask produces zero
// or more EvtProgress, zero or one EvtHash/EvtVerified, zero or one
// EvtError, and exactly one EvtDone, in that order.
func Run(ctx context.Context, results chan<- Event) {
	inbox := make(chan Command)
	select {
	case results <- Event{Kind: EvtReady, Inbox: inbox}:
	case <-ctx.Done():
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-inbox:
			switch cmd.Kind {
			case CmdShutdown:
				return
			case CmdTask:
				runTask(ctx, cmd, inbox, results)
			}
		}
	}
}

func runTask(ctx context.Context, cmd Command, inbox chan Command, results chan<- Event) {
	onProgress := func(e progress.Event) {
		select {
		case results <- Event{Kind: EvtProgress, Progress: e}:
		case <-ctx.Done():
		}
	}

	var identity string
	switch {
	case cmd.Copy != nil:
		identity = cmd.Copy.Source
		runCopy(ctx, cmd.Copy.Source, cmd.Copy.Dest, onProgress, results)
	case cmd.Verify != nil:
		identity = cmd.Verify.Path
		runVerify(ctx, cmd.Verify.Path, cmd.Verify.ExpectedHex, onProgress, results)
	}

	send(ctx, results, Event{Kind: EvtDone, Inbox: inbox, Source: identity})
}

func runCopy(ctx context.Context, source, dest string, onProgress func(progress.Event), results chan<- Event) {
	res, err := streamer.CopyFile(ctx, source, dest, onProgress)
	if err != nil {
		send(ctx, results, Event{Kind: EvtError, Source: source, Err: err})
		return
	}
	send(ctx, results, Event{Kind: EvtHash, Hash: manifest.Line{DigestHex: res.DigestHex, Path: dest}})
}

func runVerify(ctx context.Context, path, expectedHex string, onProgress func(progress.Event), results chan<- Event) {
	res, err := streamer.VerifyFile(ctx, path, onProgress)
	if err != nil {
		send(ctx, results, Event{Kind: EvtError, Source: path, Err: err})
		return
	}
	match := strings.EqualFold(res.DigestHex, expectedHex)
	send(ctx, results, Event{
		Kind:           EvtVerified,
		VerifyPath:     path,
		ExpectedDigest: expectedHex,
		ActualDigest:   res.DigestHex,
		Match:          match,
	})
}

// send delivers an event to the Supervisor unless the run has already been
// cancelled, in which case the message is dropped rather than blocking
// forever on a Supervisor that stopped draining the result channel.
func send(ctx context.Context, results chan<- Event, e Event) {
	select {
	case results <- e:
	case <-ctx.Done():
	}
}
