package interp

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// DefaultGCStackSize is the root-stack capacity new contexts get unless
// a caller asks for a different one via OpenContextSize: a fixed-capacity
// array of 256 root slots, shared by every level of nested evaluation
// (each of which pushes several roots) and by any roots a caller leaves
// pushed.
const DefaultGCStackSize = 256

// MinCells is the smallest arena this package will open. It is only a
// floor: Bootstrap alone keeps five cells live per primitive (130 in
// all), so a Context that is bootstrapped needs a larger arena.
const MinCells = 16

// Context is the single owner of one arena: its cell pool, free list,
// GC root stack, symbol list, in-flight call list and the three
// embedder handler slots. Two Contexts never share cells; a
// single Context must not be driven from more than one goroutine at a
// time.
type Context struct {
	cells    []Cell
	freeHead Ref
	freeLen  int

	gcStack    []Ref
	gcStackCap int

	symbols Ref

	callList []callFrame

	handlers Handlers

	// output is where the `print` primitive writes. It
	// defaults to stdout, buffered, and can be redirected with
	// SetOutput — cmd/fe leaves it at the default, but tests point it
	// at an in-memory buffer to assert on printed output.
	output *bufio.Writer

	// nextByte is the reader's one-byte lookahead, shared across
	// successive Read calls on the same byte source so a read that
	// overshoots by one character (to find a token's end) can push it
	// back for the next call. Zero means no byte is pending; since a
	// NUL byte also signals EOF to a ByteSource, zero never needs to be
	// pushed back itself.
	nextByte byte

	// Logger receives structured diagnostics (GC cycles, allocation
	// retries, context lifecycle) that are separate from the
	// error-reporting path, which always writes literal text to the
	// error sink regardless of whether a Logger is installed.
	Logger *zerolog.Logger
}

// callFrame is a synthetic, non-arena call-list entry used only for
// tracebacks: it roots expr for the mark phase without ever being a
// cell the sweeper could reclaim.
type callFrame struct {
	expr Ref
}

// OpenContext initializes a new Context with room for exactly numCells
// cells and the default GC stack capacity. Rather than carving a
// context record and cell array out of a caller-supplied byte region
// (Go's heap already owns and GCs the backing storage), the caller
// states the arena's capacity directly in cells. The fixed-size,
// no-grow invariant still holds: allocation fails or triggers
// collection, it never silently grows the arena.
func OpenContext(numCells int) (*Context, error) {
	return OpenContextSize(numCells, DefaultGCStackSize)
}

// OpenContextSize is OpenContext with an explicit GC root-stack
// capacity, for callers who need deeper evaluation nesting than
// DefaultGCStackSize allows before "gc stack overflow".
func OpenContextSize(numCells, gcStackCap int) (*Context, error) {
	if numCells < MinCells {
		return nil, fmt.Errorf("arena too small: need at least %d cells, got %d", MinCells, numCells)
	}
	if gcStackCap <= 0 {
		return nil, fmt.Errorf("gc stack capacity must be positive, got %d", gcStackCap)
	}

	ctx := &Context{
		cells:      make([]Cell, numCells),
		gcStack:    make([]Ref, 0, gcStackCap),
		gcStackCap: gcStackCap,
		symbols:    NilRef,
		output:     bufio.NewWriter(os.Stdout),
	}
	ctx.initFreeList()
	return ctx, nil
}

// initFreeList marks every cell Free and chains them head-to-tail in
// array order, matching "Every cell is initialized to kind
// Free and chained into the free list in array order."
func (ctx *Context) initFreeList() {
	ctx.freeHead = NilRef
	for i := len(ctx.cells) - 1; i >= 0; i-- {
		ctx.cells[i] = Cell{kind: KindFree, cdr: ctx.freeHead}
		ctx.freeHead = Ref(i)
	}
	ctx.freeLen = len(ctx.cells)
}

// CloseContext clears the root stack and the symbol list, then runs one
// final sweep so every still-unreachable Opaque-pointer cell's
// finalize hook fires exactly once.
func (ctx *Context) CloseContext() {
	ctx.gcStack = ctx.gcStack[:0]
	ctx.symbols = NilRef
	ctx.callList = nil
	ctx.sweep()
	ctx.Flush()
	if ctx.Logger != nil {
		ctx.Logger.Debug().Int("cells", len(ctx.cells)).Msg("context closed")
	}
}

// SetOutput redirects where the `print` primitive writes. The default
// is a buffered stdout; cmd/fe leaves it at the default, tests point it
// at a bytes.Buffer.
func (ctx *Context) SetOutput(w io.Writer) {
	ctx.Flush()
	ctx.output = bufio.NewWriter(w)
}

// Flush drains any buffered `print` output. Callers that care about
// output ordering relative to other writers on the same stream (or
// that are about to exit the process) must call this explicitly;
// nothing in this package calls it automatically except CloseContext
// and SetOutput (which flushes the old writer before swapping).
func (ctx *Context) Flush() {
	if ctx.output != nil {
		_ = ctx.output.Flush()
	}
}

// alloc pops one cell off the free list, pushes it onto the GC root
// stack (so it survives whatever allocation the caller does next) and
// returns it. On exhaustion it runs mark-and-sweep once and retries;
// a second failure is fatal ("out of memory").
func (ctx *Context) alloc(kind Kind) (Ref, error) {
	ref, ok := ctx.popFree()
	if !ok {
		if ctx.Logger != nil {
			ctx.Logger.Debug().Msg("free list exhausted, running gc")
		}
		ctx.collect()
		ref, ok = ctx.popFree()
		if !ok {
			return NilRef, fmt.Errorf("out of memory")
		}
	}
	c := ctx.cellAt(ref)
	*c = Cell{kind: kind}
	if err := ctx.PushGC(ref); err != nil {
		return NilRef, err
	}
	return ref, nil
}

func (ctx *Context) popFree() (Ref, bool) {
	if ctx.freeHead == NilRef {
		return NilRef, false
	}
	ref := ctx.freeHead
	ctx.freeHead = ctx.cellAt(ref).cdr
	ctx.freeLen--
	return ref, true
}
