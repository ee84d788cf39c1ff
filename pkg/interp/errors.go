package interp

import (
	"fmt"
	"strings"
)

// frameLimit bounds how many bytes of a call-list frame's printed form
// are kept in a traceback line: the first 64 bytes of its printed
// form.
const frameLimit = 64

// ErrorHandlerFunc is the embedder's error hook. A handler that wants
// recoverable errors must itself escape (e.g. by panicking with its
// own sentinel, or by using a Go-level goroutine/channel protocol)
// rather than returning; one that returns gets the default behavior
// described below.
type ErrorHandlerFunc func(ctx *Context, message string, trace []string)

// MarkHandlerFunc lets an embedder enqueue external roots reachable
// from an Opaque-pointer cell during Mark. Its return value is
// ignored.
type MarkHandlerFunc func(ctx *Context, ptr Ref)

// FinalizeHandlerFunc runs exactly once, from sweep, for each
// Opaque-pointer cell the collector reclaims.
type FinalizeHandlerFunc func(ctx *Context, ptr Ref)

// Handlers is the three-slot capability record GetHandlers exposes:
// the whole set of ways a host can observe or extend this core's
// behavior without reaching into arena internals.
type Handlers struct {
	Error    ErrorHandlerFunc
	Mark     MarkHandlerFunc
	Finalize FinalizeHandlerFunc
}

// GetHandlers returns the mutable handler record for ctx.
func (ctx *Context) GetHandlers() *Handlers {
	return &ctx.handlers
}

// EvalError is what HandleError ultimately produces when no installed
// Error handler escapes first. It carries the message and a snapshot
// of the call-list traceback, each frame already truncated to
// frameLimit bytes, matching the user-visible error format.
type EvalError struct {
	Message string
	Frames  []string
}

func (e *EvalError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "error: %s\n", e.Message)
	for _, f := range e.Frames {
		fmt.Fprintf(&b, "=> %s\n", f)
	}
	return b.String()
}

// fatalSignal is the panic payload Evaluate's trampoline recovers. It
// is unexported so nothing outside this package can originate or catch
// it except through HandleError and Evaluate.
type fatalSignal struct {
	err *EvalError
}

// HandleError is this core's only escape hatch out of a
// partially-evaluated expression. It invokes the installed Error
// handler, if any; a handler that returns normally falls through to
// the default behavior of clearing the call-list and unwinding to the
// nearest Evaluate trampoline with a structured *EvalError. This is
// Go's idiomatic substitute for outright terminating the process: the
// process-ending print-and-exit happens at cmd/fe, the actual sink of
// the printed traceback, rather than being hardcoded into a library
// call.
func (ctx *Context) HandleError(message string) {
	trace := ctx.traceback()
	if ctx.Logger != nil {
		ctx.Logger.Debug().Str("message", message).Int("frames", len(trace)).Msg("eval error")
	}
	if ctx.handlers.Error != nil {
		ctx.handlers.Error(ctx, message, trace)
	}
	ctx.callList = nil
	panic(fatalSignal{err: &EvalError{Message: message, Frames: trace}})
}

// traceback renders each call-list frame's expression, most recent
// first, truncated to frameLimit bytes.
func (ctx *Context) traceback() []string {
	frames := make([]string, 0, len(ctx.callList))
	for i := len(ctx.callList) - 1; i >= 0; i-- {
		s := ctx.ToStringQuoted(ctx.callList[i].expr, false)
		if len(s) > frameLimit {
			s = s[:frameLimit]
		}
		frames = append(frames, s)
	}
	return frames
}
