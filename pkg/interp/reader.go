package interp

import (
	"fmt"
	"io"
	"strconv"
)

// ByteSource supplies one byte at a time to Read, the input-side mirror
// of the writer's ByteSink. It returns 0 at end of input; state is
// opaque to this package and threaded straight through, letting a
// caller read from a file, a network connection, or an in-memory
// buffer.
type ByteSource func(ctx *Context, state any) byte

// tokenLimit bounds a bare token (a symbol or number literal): past
// this many bytes, reading fails with "symbol too long" rather than
// growing without bound.
const tokenLimit = 64

// closeParenRef is an internal sentinel Read's list parser uses to
// recognize a ')' terminating the current list. It is never a valid
// arena index and must never escape this file: the public Read
// rejects it at top level as "stray ')'".
const closeParenRef Ref = -2

// eofRef is an internal sentinel distinct from NilRef: it signals "no
// bytes left to read" without being confused with a successfully
// parsed literal nil. The byte source's own EOF signal (a 0 byte) is
// ambiguous the same way a C NUL-terminated read would be, so this
// mirrors how the original draws the line between a NULL return (EOF)
// and the reader returning the actual nil object — two different
// values there, collapsed onto one Ref type here, so they need their
// own sentinel instead.
const eofRef Ref = -3

// reader holds the transient state of one Read call: the byte source
// and the context's single-byte lookahead buffer, mirroring the
// peek/advance style of a recursive-descent scanner.
type reader struct {
	ctx   *Context
	src   ByteSource
	state any
}

func (r *reader) peek() byte {
	if r.ctx.nextByte == 0 {
		r.ctx.nextByte = r.src(r.ctx, r.state)
	}
	return r.ctx.nextByte
}

func (r *reader) advance() byte {
	b := r.peek()
	r.ctx.nextByte = 0
	return b
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

func isDelimiterByte(b byte) bool {
	return b == 0 || isSpaceByte(b) || b == '(' || b == ')' || b == ';'
}

// skipAtmosphere consumes whitespace and ';'-to-end-of-line comments
// until it reaches a byte that starts a form (or EOF).
func (r *reader) skipAtmosphere() {
	for {
		b := r.peek()
		switch {
		case isSpaceByte(b):
			r.advance()
		case b == ';':
			for {
				c := r.advance()
				if c == 0 || c == '\n' {
					break
				}
			}
		default:
			return
		}
	}
}

// read parses one form and returns its cell reference, eofRef at EOF,
// or closeParenRef if the next form is an unconsumed ')'. Every
// allocation it makes is already rooted by the constructor that made
// it; callers that hold a partial result across a recursive read of
// their own must push it themselves.
func (r *reader) read() (Ref, error) {
	r.skipAtmosphere()
	b := r.peek()

	switch {
	case b == 0:
		return eofRef, nil

	case b == ')':
		r.advance()
		return closeParenRef, nil

	case b == '(':
		r.advance()
		return r.readList()

	case b == '\'':
		r.advance()
		form, err := r.read()
		if err != nil {
			return NilRef, err
		}
		if form == closeParenRef {
			return NilRef, fmt.Errorf("stray ')'")
		}
		if form == eofRef {
			return NilRef, fmt.Errorf("unclosed quote")
		}
		quoteSym, err := r.ctx.MakeSymbol([]byte("quote"))
		if err != nil {
			return NilRef, err
		}
		inner, err := r.ctx.Cons(form, NilRef)
		if err != nil {
			return NilRef, err
		}
		return r.ctx.Cons(quoteSym, inner)

	case b == '"':
		r.advance()
		return r.readString()

	default:
		return r.readAtom()
	}
}

// readList parses the forms following an already-consumed '(', up to
// and including its matching ')'. A form that is the symbol "." marks
// a dotted pair: exactly one more form follows, which becomes the
// final cdr, and the list must close immediately after. The GC stack
// is saved at list start and restored between elements: the only thing
// that must stay rooted across an element read is the list built so
// far, so each iteration pushes that and nothing else.
func (r *reader) readList() (Ref, error) {
	save := r.ctx.SaveGC()
	head, tail := NilRef, NilRef

	for {
		r.ctx.RestoreGC(save)
		if head != NilRef {
			if err := r.ctx.PushGC(head); err != nil {
				return NilRef, err
			}
		}

		r.skipAtmosphere()
		if r.peek() == 0 {
			return NilRef, fmt.Errorf("unclosed list")
		}

		form, err := r.read()
		if err != nil {
			return NilRef, err
		}
		if form == closeParenRef {
			return head, nil
		}

		if r.isDotSymbol(form) {
			if head == NilRef {
				return NilRef, fmt.Errorf("unexpected '.' in list")
			}
			dotted, err := r.read()
			if err != nil {
				return NilRef, err
			}
			if dotted == closeParenRef {
				return NilRef, fmt.Errorf("unexpected ')' after '.'")
			}
			r.skipAtmosphere()
			if r.peek() != ')' {
				return NilRef, fmt.Errorf("malformed dotted pair")
			}
			r.advance()
			if err := r.ctx.SetCdr(tail, dotted); err != nil {
				return NilRef, err
			}
			return head, nil
		}

		next, err := r.ctx.Cons(form, NilRef)
		if err != nil {
			return NilRef, err
		}

		if head == NilRef {
			head = next
		} else {
			if err := r.ctx.SetCdr(tail, next); err != nil {
				return NilRef, err
			}
		}
		tail = next
	}
}

func (r *reader) isDotSymbol(ref Ref) bool {
	if r.ctx.GetKind(ref) != KindSymbol {
		return false
	}
	bindingPair, err := r.ctx.Cdr(ref)
	if err != nil {
		return false
	}
	nameRef, err := r.ctx.Car(bindingPair)
	if err != nil {
		return false
	}
	return r.ctx.stringEquals(nameRef, []byte("."))
}

// readString parses bytes up to a closing '"' already past the opening
// quote. Backslash escapes \n, \r, \t map to LF, CR, TAB; any other
// escaped byte passes through literally.
func (r *reader) readString() (Ref, error) {
	save := r.ctx.SaveGC()
	tail := NilRef
	head := NilRef

	for {
		b := r.advance()
		if b == 0 {
			return NilRef, fmt.Errorf("unclosed string")
		}
		if b == '"' {
			break
		}
		if b == '\\' {
			e := r.advance()
			if e == 0 {
				return NilRef, fmt.Errorf("unclosed string")
			}
			switch e {
			case 'n':
				b = '\n'
			case 'r':
				b = '\r'
			case 't':
				b = '\t'
			default:
				b = e
			}
		}

		next, err := r.ctx.BuildString(tail, b)
		if err != nil {
			return NilRef, err
		}
		if head == NilRef {
			head = next
		}
		tail = next
	}

	if head == NilRef {
		empty, err := r.ctx.alloc(KindString)
		if err != nil {
			return NilRef, err
		}
		r.ctx.cellAt(empty).cdr = NilRef
		head = empty
	}

	r.ctx.RestoreGC(save)
	if err := r.ctx.PushGC(head); err != nil {
		return NilRef, err
	}
	return head, nil
}

// readAtom tokenizes a run of non-delimiter bytes into a buffer of at
// most tokenLimit-1 bytes ("symbol too long" at exactly tokenLimit),
// then classifies it: a valid number literal becomes a Number, the
// literal "nil" becomes the nil sentinel, anything else interns as a
// Symbol. The bound is checked before a byte is accepted, not after
// the token is known to be delimiter-terminated, so a token of exactly
// tokenLimit bytes is rejected rather than silently let through. The
// byte that overflows the buffer is consumed, not left pending for the
// next Read.
func (r *reader) readAtom() (Ref, error) {
	var buf [tokenLimit]byte
	n := 0
	for {
		b := r.peek()
		if isDelimiterByte(b) {
			break
		}
		if n >= tokenLimit-1 {
			r.advance()
			return NilRef, fmt.Errorf("symbol too long")
		}
		buf[n] = b
		n++
		r.advance()
	}
	tok := buf[:n]

	if f, ok := parseNumberToken(tok); ok {
		return r.ctx.MakeNumber(f)
	}
	if string(tok) == "nil" {
		return NilRef, nil
	}
	return r.ctx.MakeSymbol(tok)
}

// parseNumberToken reports whether tok is a valid numeric literal and,
// if so, its value. A bare "-" or "." is not a number and falls through
// to symbol interning, matching a strtod-style parse that requires at
// least one digit.
func parseNumberToken(tok []byte) (float64, bool) {
	hasDigit := false
	for _, c := range tok {
		if c >= '0' && c <= '9' {
			hasDigit = true
			break
		}
	}
	if !hasDigit {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(tok), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Read parses exactly one top-level form from src. It returns
// (NilRef, io.EOF) at end of input — distinct from successfully
// parsing the literal nil, which returns (NilRef, nil) — and an error,
// "stray ')'", if the very next form is an unmatched close paren.
func (ctx *Context) Read(src ByteSource, state any) (Ref, error) {
	r := &reader{ctx: ctx, src: src, state: state}
	ref, err := r.read()
	if err != nil {
		return NilRef, err
	}
	switch ref {
	case closeParenRef:
		return NilRef, fmt.Errorf("stray ')'")
	case eofRef:
		return NilRef, io.EOF
	default:
		return ref, nil
	}
}
