package interp

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteSink receives one byte at a time from Write, the output-side
// mirror of the reader's byte source. state is opaque to this package
// and threaded straight through to the sink, letting a caller batch
// writes into a bufio.Writer, a network connection, or (as
// ToStringQuoted does) an in-memory buffer.
type ByteSink func(ctx *Context, state any, b byte) error

// Write dispatches on the kind of ref and streams its printed form to
// sink one byte at a time. quoteStrings controls whether String
// values are wrapped in double quotes with embedded quotes escaped
// (the `print` primitive always passes false; a dotted-pair cdr is
// always written with true, whatever the caller passed).
func (ctx *Context) Write(ref Ref, sink ByteSink, state any, quoteStrings bool) error {
	w := &writer{ctx: ctx, sink: sink, state: state}
	return w.write(ref, quoteStrings)
}

type writer struct {
	ctx   *Context
	sink  ByteSink
	state any
}

func (w *writer) emit(s string) error {
	for i := 0; i < len(s); i++ {
		if err := w.sink(w.ctx, w.state, s[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) write(ref Ref, quoteStrings bool) error {
	ctx := w.ctx
	switch ctx.GetKind(ref) {
	case KindNil:
		return w.emit("nil")

	case KindNumber:
		n, err := ctx.GetNumber(ref)
		if err != nil {
			return err
		}
		return w.emit(strconv.FormatFloat(n, 'g', 7, 64))

	case KindPair:
		if err := w.emit("("); err != nil {
			return err
		}
		car, err := ctx.Car(ref)
		if err != nil {
			return err
		}
		if err := w.write(car, quoteStrings); err != nil {
			return err
		}
		cur := ref
		for {
			cdr, err := ctx.Cdr(cur)
			if err != nil {
				return err
			}
			if ctx.GetKind(cdr) == KindPair {
				if err := w.emit(" "); err != nil {
					return err
				}
				nextCar, err := ctx.Car(cdr)
				if err != nil {
					return err
				}
				if err := w.write(nextCar, quoteStrings); err != nil {
					return err
				}
				cur = cdr
				continue
			}
			if !IsNil(cdr) {
				if err := w.emit(" . "); err != nil {
					return err
				}
				if err := w.write(cdr, true); err != nil {
					return err
				}
			}
			break
		}
		return w.emit(")")

	case KindSymbol:
		bindingPair, err := ctx.Cdr(ref)
		if err != nil {
			return err
		}
		nameRef, err := ctx.Car(bindingPair)
		if err != nil {
			return err
		}
		return w.emit(string(ctx.StringBytesAll(nameRef)))

	case KindString:
		data := ctx.StringBytesAll(ref)
		if !quoteStrings {
			return w.emit(string(data))
		}
		var b strings.Builder
		b.WriteByte('"')
		for _, c := range data {
			if c == '"' || c == '\\' {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		}
		b.WriteByte('"')
		return w.emit(b.String())

	default:
		return w.emit(fmt.Sprintf("[%s %d]", ctx.GetKind(ref), ref))
	}
}

// ToStringQuoted renders ref into a Go string without touching any
// caller-supplied sink, for callers (the error traceback, the cmd/fe
// REPL) that just want text.
func (ctx *Context) ToStringQuoted(ref Ref, quoteStrings bool) string {
	var b strings.Builder
	sink := func(_ *Context, _ any, c byte) error {
		b.WriteByte(c)
		return nil
	}
	// Write cannot itself fail against this sink.
	_ = ctx.Write(ref, sink, nil, quoteStrings)
	return b.String()
}
