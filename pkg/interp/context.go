package interp

import "fmt"

// Cons allocates a new Pair cell with the given car and cdr, rooting
// both across the allocation (which may itself trigger a GC cycle)
// before settling on rooting only the result — the discipline every
// constructor in this package follows.
func (ctx *Context) Cons(car, cdr Ref) (Ref, error) {
	save := ctx.SaveGC()
	if car != NilRef {
		if err := ctx.PushGC(car); err != nil {
			return NilRef, err
		}
	}
	if cdr != NilRef {
		if err := ctx.PushGC(cdr); err != nil {
			return NilRef, err
		}
	}

	ref, err := ctx.alloc(KindPair)
	if err != nil {
		return NilRef, err
	}
	c := ctx.cellAt(ref)
	c.car = car
	c.cdr = cdr

	ctx.RestoreGC(save)
	if err := ctx.PushGC(ref); err != nil {
		return NilRef, err
	}
	return ref, nil
}

// MakeBool returns the symbol `t` for true, or the nil sentinel for
// false — this Lisp's only boolean representation.
func (ctx *Context) MakeBool(b bool) (Ref, error) {
	if !b {
		return NilRef, nil
	}
	return ctx.MakeSymbol([]byte("t"))
}

// MakeNumber allocates a Number cell holding n.
func (ctx *Context) MakeNumber(n float64) (Ref, error) {
	ref, err := ctx.alloc(KindNumber)
	if err != nil {
		return NilRef, err
	}
	ctx.cellAt(ref).num = n
	return ref, nil
}

// MakeNative wraps a host function as a Native callable cell.
func (ctx *Context) MakeNative(fn NativeFunc) (Ref, error) {
	ref, err := ctx.alloc(KindNative)
	if err != nil {
		return NilRef, err
	}
	ctx.cellAt(ref).native = fn
	return ref, nil
}

// MakePtr wraps an opaque host pointer, with an embedder-defined
// sub-kind for dispatch in Mark/Finalize handlers.
func (ctx *Context) MakePtr(ptr any, subKind int) (Ref, error) {
	ref, err := ctx.alloc(KindPtr)
	if err != nil {
		return NilRef, err
	}
	c := ctx.cellAt(ref)
	c.ptr = ptr
	c.subKind = subKind
	return ref, nil
}

// makePrimitive allocates a Primitive cell for the given opcode. It is
// unexported: primitives are a fixed, core-defined set bootstrapped
// into every context's global environment, never user-constructed.
func (ctx *Context) makePrimitive(op Opcode) (Ref, error) {
	ref, err := ctx.alloc(KindPrimitive)
	if err != nil {
		return NilRef, err
	}
	ctx.cellAt(ref).opcode = op
	return ref, nil
}

// MakeList conses items into a list, right to left, so that each Cons
// call protects the item it closes over and the previous (cdr) list
// automatically.
func (ctx *Context) MakeList(items []Ref) (Ref, error) {
	result := NilRef
	for i := len(items) - 1; i >= 0; i-- {
		next, err := ctx.Cons(items[i], result)
		if err != nil {
			return NilRef, err
		}
		result = next
	}
	return result, nil
}

// Set mutates a symbol's global binding slot directly, bypassing any
// lexical environment — the host-facing equivalent of the `=` special
// form when no environment is in play.
func (ctx *Context) Set(sym, value Ref) error {
	bindingPair, err := ctx.Cdr(sym)
	if err != nil {
		return err
	}
	return ctx.SetCdr(bindingPair, value)
}

// NextArg advances an argument cursor by one: if cursor is a Pair, its
// car is the next argument and its cdr is the advanced cursor; nil
// raises "too few arguments"; anything else (an improper tail) raises
// "dotted pair in argument list". Go has no way to advance a cursor
// through a bare return value, so both the value and the advanced
// cursor are returned.
func (ctx *Context) NextArg(cursor Ref) (value, rest Ref, err error) {
	if ctx.GetKind(cursor) == KindPair {
		car, _ := ctx.Car(cursor)
		cdr, _ := ctx.Cdr(cursor)
		return car, cdr, nil
	}
	if IsNil(cursor) {
		return NilRef, NilRef, fmt.Errorf("too few arguments")
	}
	return NilRef, NilRef, fmt.Errorf("dotted pair in argument list")
}
