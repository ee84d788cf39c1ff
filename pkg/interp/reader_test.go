package interp

import (
	"io"
	"testing"
)

func readAll(t *testing.T, ctx *Context, src string) []Ref {
	t.Helper()
	pos := 0
	source := sliceSource([]byte(src), &pos)
	var forms []Ref
	for {
		form, err := ctx.Read(source, nil)
		if err == io.EOF {
			return forms
		}
		if err != nil {
			t.Fatalf("Read(%q): %v", src, err)
		}
		forms = append(forms, form)
	}
}

func TestReadNumberAndSymbol(t *testing.T) {
	ctx := newTestContext(t)
	forms := readAll(t, ctx, "42 foo")
	if len(forms) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(forms))
	}
	n, err := ctx.GetNumber(forms[0])
	if err != nil || n != 42 {
		t.Errorf("first form: expected number 42, got %v (err %v)", n, err)
	}
	if ctx.GetKind(forms[1]) != KindSymbol {
		t.Errorf("second form: expected symbol, got %s", ctx.GetKind(forms[1]))
	}
}

func TestReadListAndDottedPair(t *testing.T) {
	ctx := newTestContext(t)
	forms := readAll(t, ctx, "(1 2 3) (1 . 2)")
	if len(forms) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(forms))
	}

	if got := ctx.ToStringQuoted(forms[0], false); got != "(1 2 3)" {
		t.Errorf("proper list: expected %q, got %q", "(1 2 3)", got)
	}
	if got := ctx.ToStringQuoted(forms[1], false); got != "(1 . 2)" {
		t.Errorf("dotted pair: expected %q, got %q", "(1 . 2)", got)
	}
}

func TestReadQuote(t *testing.T) {
	ctx := newTestContext(t)
	forms := readAll(t, ctx, "'a")
	if len(forms) != 1 {
		t.Fatalf("expected 1 form, got %d", len(forms))
	}
	if got := ctx.ToStringQuoted(forms[0], false); got != "(quote a)" {
		t.Errorf("'a: expected %q, got %q", "(quote a)", got)
	}
}

func TestReadStringEscapesValue(t *testing.T) {
	ctx := newTestContext(t)
	forms := readAll(t, ctx, `"a\nb\tc"`)
	if len(forms) != 1 {
		t.Fatalf("expected 1 form, got %d", len(forms))
	}
	got := ctx.StringBytesAll(forms[0])
	want := "a\nb\tc"
	if string(got) != want {
		t.Errorf("string escapes: expected %q, got %q", want, string(got))
	}
}

func TestReadComment(t *testing.T) {
	ctx := newTestContext(t)
	forms := readAll(t, ctx, "; a comment\n42")
	if len(forms) != 1 {
		t.Fatalf("expected 1 form, got %d", len(forms))
	}
	n, err := ctx.GetNumber(forms[0])
	if err != nil || n != 42 {
		t.Errorf("expected number 42 after comment, got %v (err %v)", n, err)
	}
}

func TestReadNilLiteralIsNotEOF(t *testing.T) {
	ctx := newTestContext(t)
	pos := 0
	source := sliceSource([]byte("nil"), &pos)
	form, err := ctx.Read(source, nil)
	if err != nil {
		t.Fatalf("Read(\"nil\"): unexpected error %v", err)
	}
	if !IsNil(form) {
		t.Errorf("expected the nil literal to parse as NilRef, got kind %s", ctx.GetKind(form))
	}

	// The byte source is now exhausted: a second Read call must report
	// io.EOF, not another nil value silently.
	_, err = ctx.Read(source, nil)
	if err != io.EOF {
		t.Errorf("expected io.EOF after the nil literal was consumed, got %v", err)
	}
}

func TestReadStrayCloseParen(t *testing.T) {
	ctx := newTestContext(t)
	pos := 0
	_, err := ctx.Read(sliceSource([]byte(")"), &pos), nil)
	if err == nil {
		t.Fatalf("expected an error reading a stray ')'")
	}
}

func TestReadUnclosedList(t *testing.T) {
	ctx := newTestContext(t)
	pos := 0
	_, err := ctx.Read(sliceSource([]byte("(1 2"), &pos), nil)
	if err == nil {
		t.Fatalf("expected an error reading an unclosed list")
	}
}

func TestReadUnclosedString(t *testing.T) {
	ctx := newTestContext(t)
	pos := 0
	_, err := ctx.Read(sliceSource([]byte(`"abc`), &pos), nil)
	if err == nil {
		t.Fatalf("expected an error reading an unclosed string")
	}
}

func TestReadSymbolTooLong(t *testing.T) {
	ctx := newTestContext(t)
	long := make([]byte, tokenLimit+1)
	for i := range long {
		long[i] = 'a'
	}
	pos := 0
	_, err := ctx.Read(sliceSource(long, &pos), nil)
	if err == nil {
		t.Fatalf("expected a \"symbol too long\" error")
	}
}

// TestReadSymbolTokenLimitBoundary checks the exact boundary: a token
// of exactly tokenLimit bytes is rejected, one byte shorter succeeds.
func TestReadSymbolTokenLimitBoundary(t *testing.T) {
	ctx := newTestContext(t)

	exact := make([]byte, tokenLimit)
	for i := range exact {
		exact[i] = 'a'
	}
	pos := 0
	if _, err := ctx.Read(sliceSource(exact, &pos), nil); err == nil {
		t.Errorf("a %d-byte token: expected a \"symbol too long\" error", tokenLimit)
	}

	oneShort := make([]byte, tokenLimit-1)
	for i := range oneShort {
		oneShort[i] = 'a'
	}
	pos = 0
	form, err := ctx.Read(sliceSource(oneShort, &pos), nil)
	if err != nil {
		t.Fatalf("a %d-byte token: unexpected error %v", tokenLimit-1, err)
	}
	if ctx.GetKind(form) != KindSymbol {
		t.Errorf("a %d-byte token: expected a Symbol, got %s", tokenLimit-1, ctx.GetKind(form))
	}
}
