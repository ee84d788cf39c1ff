package interp

import "fmt"

// Ref is a reference to a cell: an index into a Context's arena, or
// NilRef for the single process-wide nil sentinel. Refs from different
// Contexts must never be mixed; there is no tag distinguishing them.
type Ref int32

// NilRef is the nil sentinel. It never indexes into any arena and is
// always considered reachable.
const NilRef Ref = -1

// StringChunkCapacity is the number of payload bytes packed into a
// single String cell, modeling "word-size-in-bytes - 1" for a
// conceptual 8-byte cell word.
const StringChunkCapacity = 7

// Cell is the arena's uniform two-word object. Only the fields that
// correspond to its Kind are meaningful; car/cdr alias the pair-style
// slots, and kind-specific payloads (num, bytes, native, ptr, opcode)
// stand in for the remaining machine word an 8-byte-word layout would
// otherwise pack into car/cdr.
type Cell struct {
	kind   Kind
	marked bool

	car Ref
	cdr Ref

	num float64

	bytes   [StringChunkCapacity]byte
	byteLen uint8

	opcode  Opcode
	native  NativeFunc
	ptr     any
	subKind int
}

// NativeFunc is a host callable registered under a symbol. args is the
// head of an already-evaluated argument list (a chain of Pair cells).
type NativeFunc func(ctx *Context, args Ref) (Ref, error)

// cellAt returns the cell for ref, which must be a live arena index.
// Callers only ever reach this after a kind check or on a ref known to
// be non-nil, so it does not itself check NilRef.
func (ctx *Context) cellAt(ref Ref) *Cell {
	return &ctx.cells[ref]
}

// GetKind returns the kind tag of a cell reference.
func (ctx *Context) GetKind(ref Ref) Kind {
	if ref == NilRef {
		return KindNil
	}
	return ctx.cellAt(ref).kind
}

// IsNil reports whether ref is the nil sentinel.
func IsNil(ref Ref) bool {
	return ref == NilRef
}

func (ctx *Context) typeError(expected Kind, got Ref) error {
	return fmt.Errorf("expected %s, got %s", expected, ctx.GetKind(got))
}

// Car returns the car slot of a Pair.
func (ctx *Context) Car(ref Ref) (Ref, error) {
	if ref == NilRef {
		return NilRef, nil
	}
	c := ctx.cellAt(ref)
	if c.kind != KindPair {
		return NilRef, ctx.typeError(KindPair, ref)
	}
	return c.car, nil
}

// Cdr returns the cdr slot of a Pair, a Symbol's binding pair, a
// Function/Macro's (env . params.body) pair, or any other cell whose
// kind stores its payload in cdr-position. Most callers know the kind
// already and call this after their own check; it is also used
// internally wherever "cdr" names the generic second slot (e.g. a
// Symbol's binding pair, a Function's captured env pair).
func (ctx *Context) Cdr(ref Ref) (Ref, error) {
	if ref == NilRef {
		return NilRef, nil
	}
	c := ctx.cellAt(ref)
	switch c.kind {
	case KindPair, KindSymbol, KindFunction, KindMacro:
		return c.cdr, nil
	default:
		return NilRef, ctx.typeError(KindPair, ref)
	}
}

// SafeCar is the "safe" accessor the evaluator uses for argument
// traversal: car of nil is nil.
func (ctx *Context) SafeCar(ref Ref) Ref {
	if ref == NilRef {
		return NilRef
	}
	c := ctx.cellAt(ref)
	if c.kind != KindPair {
		return NilRef
	}
	return c.car
}

// SafeCdr is the "safe" accessor the evaluator uses for argument
// traversal: cdr of nil is nil.
func (ctx *Context) SafeCdr(ref Ref) Ref {
	if ref == NilRef {
		return NilRef
	}
	c := ctx.cellAt(ref)
	if c.kind != KindPair {
		return NilRef
	}
	return c.cdr
}

// SetCar mutates the car slot of a Pair in place.
func (ctx *Context) SetCar(pair, value Ref) error {
	if pair == NilRef {
		return ctx.typeError(KindPair, pair)
	}
	c := ctx.cellAt(pair)
	if c.kind != KindPair {
		return ctx.typeError(KindPair, pair)
	}
	c.car = value
	return nil
}

// SetCdr mutates the cdr slot of a Pair, or any cell kind that stores
// its mutable payload in cdr-position (a global binding pair, most
// notably, via the pair Cdr(symbol) returns).
func (ctx *Context) SetCdr(pair, value Ref) error {
	if pair == NilRef {
		return ctx.typeError(KindPair, pair)
	}
	c := ctx.cellAt(pair)
	switch c.kind {
	case KindPair, KindSymbol, KindFunction, KindMacro:
		c.cdr = value
		return nil
	default:
		return ctx.typeError(KindPair, pair)
	}
}

// GetNumber returns the IEEE-754 value of a Number cell.
func (ctx *Context) GetNumber(ref Ref) (float64, error) {
	if ref == NilRef {
		return 0, ctx.typeError(KindNumber, ref)
	}
	c := ctx.cellAt(ref)
	if c.kind != KindNumber {
		return 0, ctx.typeError(KindNumber, ref)
	}
	return c.num, nil
}

// GetNative returns the host function a Native cell wraps.
func (ctx *Context) GetNative(ref Ref) (NativeFunc, error) {
	if ref == NilRef {
		return nil, ctx.typeError(KindNative, ref)
	}
	c := ctx.cellAt(ref)
	if c.kind != KindNative {
		return nil, ctx.typeError(KindNative, ref)
	}
	return c.native, nil
}

// GetPrimitiveOp returns the opcode a Primitive cell dispatches to.
func (ctx *Context) GetPrimitiveOp(ref Ref) (Opcode, error) {
	if ref == NilRef {
		return 0, ctx.typeError(KindPrimitive, ref)
	}
	c := ctx.cellAt(ref)
	if c.kind != KindPrimitive {
		return 0, ctx.typeError(KindPrimitive, ref)
	}
	return c.opcode, nil
}

// GetPtr returns the host pointer and embedder sub-kind an Opaque
// pointer cell carries.
func (ctx *Context) GetPtr(ref Ref) (any, int, error) {
	if ref == NilRef {
		return nil, 0, ctx.typeError(KindPtr, ref)
	}
	c := ctx.cellAt(ref)
	if c.kind != KindPtr {
		return nil, 0, ctx.typeError(KindPtr, ref)
	}
	return c.ptr, c.subKind, nil
}

// StringBytes returns the slice of up to StringChunkCapacity bytes held
// by a single String chunk cell. It does not follow the chain; see
// StringBytesAll for the whole value.
func (ctx *Context) StringBytes(ref Ref) ([]byte, error) {
	if ref == NilRef {
		return nil, ctx.typeError(KindString, ref)
	}
	c := ctx.cellAt(ref)
	if c.kind != KindString {
		return nil, ctx.typeError(KindString, ref)
	}
	return c.bytes[:c.byteLen], nil
}
