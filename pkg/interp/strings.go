package interp

// BuildString is build-string(tail, byte): if tail is
// absent or its last chunk has no room for another byte, a new String
// cell is allocated and linked after the previous tail; the byte is
// then appended. At most one transient String cell sits on the root
// stack at a time — extending to a new chunk pops the predecessor
// first, since once linked it is only reachable transitively through
// whatever already roots the chain's head.
func (ctx *Context) BuildString(tail Ref, b byte) (Ref, error) {
	if tail != NilRef {
		c := ctx.cellAt(tail)
		if c.kind == KindString && int(c.byteLen) < StringChunkCapacity {
			c.bytes[c.byteLen] = b
			c.byteLen++
			return tail, nil
		}
		ctx.popGCIfTop(tail)
	}

	next, err := ctx.alloc(KindString)
	if err != nil {
		return NilRef, err
	}
	nc := ctx.cellAt(next)
	nc.cdr = NilRef
	nc.bytes[0] = b
	nc.byteLen = 1

	if tail != NilRef {
		ctx.cellAt(tail).cdr = next
	}
	return next, nil
}

// popGCIfTop removes ref from the root stack only if it is the
// top-most entry, which is always true for a tail BuildString just
// extended (alloc always pushes its result last).
func (ctx *Context) popGCIfTop(ref Ref) {
	n := len(ctx.gcStack)
	if n > 0 && ctx.gcStack[n-1] == ref {
		ctx.gcStack = ctx.gcStack[:n-1]
	}
}

// MakeString builds a whole byte slice into a String chain in one
// call, the bulk convenience constructor alongside the byte-at-a-time
// builder the reader uses directly.
func (ctx *Context) MakeString(data []byte) (Ref, error) {
	save := ctx.SaveGC()

	var head, tail Ref = NilRef, NilRef
	for _, b := range data {
		next, err := ctx.BuildString(tail, b)
		if err != nil {
			return NilRef, err
		}
		if head == NilRef {
			head = next
		}
		tail = next
	}
	if head == NilRef {
		empty, err := ctx.alloc(KindString)
		if err != nil {
			return NilRef, err
		}
		ctx.cellAt(empty).cdr = NilRef
		head = empty
	}

	ctx.RestoreGC(save)
	if err := ctx.PushGC(head); err != nil {
		return NilRef, err
	}
	return head, nil
}

// stringEquals reports whether the String chain at ref holds exactly
// target, byte for byte across chunk boundaries. Used by the symbol
// interner, which compares against a raw name slice rather than
// another String cell.
func (ctx *Context) stringEquals(ref Ref, target []byte) bool {
	i := 0
	for ref != NilRef {
		c := ctx.cellAt(ref)
		if c.kind != KindString {
			return false
		}
		for _, b := range c.bytes[:c.byteLen] {
			if i >= len(target) || target[i] != b {
				return false
			}
			i++
		}
		ref = c.cdr
	}
	return i == len(target)
}

// StringsEqual is the byte-wise chunk-chain compare `is`
// uses for two String values.
func (ctx *Context) StringsEqual(a, b Ref) bool {
	for {
		if a == NilRef && b == NilRef {
			return true
		}
		if a == NilRef || b == NilRef {
			return false
		}
		ca, cb := ctx.cellAt(a), ctx.cellAt(b)
		if ca.kind != KindString || cb.kind != KindString {
			return false
		}
		if ca.byteLen != cb.byteLen {
			return false
		}
		for i := 0; i < int(ca.byteLen); i++ {
			if ca.bytes[i] != cb.bytes[i] {
				return false
			}
		}
		a, b = ca.cdr, cb.cdr
	}
}

// StringBytesAll concatenates an entire String chain into one slice,
// for callers (the writer, native extension adapters) that want the
// whole value rather than one chunk at a time.
func (ctx *Context) StringBytesAll(ref Ref) []byte {
	var buf []byte
	for ref != NilRef {
		c := ctx.cellAt(ref)
		if c.kind != KindString {
			break
		}
		buf = append(buf, c.bytes[:c.byteLen]...)
		ref = c.cdr
	}
	return buf
}

// ToString renders ref as text into dst, returning the number of bytes
// written (capped at len(dst), excluding any notion of a terminator
// since Go slices are not NUL-bounded).
func (ctx *Context) ToString(ref Ref, dst []byte) int {
	s := ctx.ToStringQuoted(ref, false)
	return copy(dst, s)
}
