package interp

import "fmt"

// PushGC pushes a cell reference onto the root stack so it survives
// subsequent allocations until the enclosing scope restores past it.
// It is the idiom the evaluator repeats at every suspension point:
// save, push intermediate results, restore.
func (ctx *Context) PushGC(ref Ref) error {
	if len(ctx.gcStack) >= ctx.gcStackCap {
		return fmt.Errorf("gc stack overflow")
	}
	ctx.gcStack = append(ctx.gcStack, ref)
	return nil
}

// SaveGC returns the current root-stack depth, to be passed back to
// RestoreGC once the caller's transient roots are no longer needed.
func (ctx *Context) SaveGC() int {
	return len(ctx.gcStack)
}

// RestoreGC truncates the root stack back to index, discarding every
// root pushed since the matching SaveGC. index must not exceed the
// current depth.
func (ctx *Context) RestoreGC(index int) {
	if index < 0 || index > len(ctx.gcStack) {
		return
	}
	ctx.gcStack = ctx.gcStack[:index]
}

// collect runs one mark-and-sweep cycle: synchronous, invoked only from
// alloc on free-list exhaustion.
func (ctx *Context) collect() {
	before := ctx.freeLen
	ctx.mark()
	reclaimed := ctx.sweep()
	if ctx.Logger != nil {
		ctx.Logger.Debug().
			Int("free_before", before).
			Int("reclaimed", reclaimed).
			Int("free_after", ctx.freeLen).
			Msg("gc cycle")
	}
}

// Mark performs a depth-first reachability traversal from ref, setting
// the mark bit on every cell it visits; the collector's mark phase
// calls it for every root on the GC stack, the symbol list and the
// call list. It is also the externally callable primitive a
// Mark handler can use to enqueue an embedder-owned Opaque cell as a
// root from inside its own mark hook.
func (ctx *Context) Mark(ref Ref) {
	// Iterate on cdr, recurse only into car of Pair cells: this bounds
	// native recursion depth to the list's "width" of nested cars, not
	// its length.
	for {
		if ref == NilRef {
			return
		}
		c := ctx.cellAt(ref)
		if c.marked {
			return
		}
		c.marked = true

		switch c.kind {
		case KindPair:
			ctx.Mark(c.car)
			ref = c.cdr
			continue
		case KindSymbol, KindFunction, KindMacro, KindString:
			ref = c.cdr
			continue
		case KindPtr:
			if ctx.handlers.Mark != nil {
				ctx.handlers.Mark(ctx, ref)
			}
			return
		default:
			return
		}
	}
}

func (ctx *Context) mark() {
	for _, root := range ctx.gcStack {
		ctx.Mark(root)
	}
	ctx.Mark(ctx.symbols)
	for _, frame := range ctx.callList {
		ctx.Mark(frame.expr)
	}
}

// sweep linearly scans the arena, reclaiming every unmarked non-Free
// cell into the free list and clearing the mark bit on every surviving
// cell, firing the finalize hook for Opaque-pointer cells as it goes.
// It returns the number of cells reclaimed.
func (ctx *Context) sweep() int {
	reclaimed := 0
	for i := range ctx.cells {
		c := &ctx.cells[i]
		switch {
		case c.kind == KindFree:
			continue
		case !c.marked:
			if c.kind == KindPtr && ctx.handlers.Finalize != nil {
				ctx.handlers.Finalize(ctx, Ref(i))
			}
			*c = Cell{kind: KindFree, cdr: ctx.freeHead}
			ctx.freeHead = Ref(i)
			ctx.freeLen++
			reclaimed++
		default:
			c.marked = false
		}
	}
	return reclaimed
}
