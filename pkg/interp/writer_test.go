package interp

import "testing"

func TestWriteNilAndNumber(t *testing.T) {
	ctx := newTestContext(t)
	if got := ctx.ToStringQuoted(NilRef, false); got != "nil" {
		t.Errorf("nil: expected %q, got %q", "nil", got)
	}
	n, _ := ctx.MakeNumber(3.5)
	if got := ctx.ToStringQuoted(n, false); got != "3.5" {
		t.Errorf("3.5: expected %q, got %q", "3.5", got)
	}
}

func TestWriteStringQuoting(t *testing.T) {
	ctx := newTestContext(t)
	s, _ := ctx.MakeString([]byte(`say "hi"`))
	if got := ctx.ToStringQuoted(s, false); got != `say "hi"` {
		t.Errorf("unquoted: expected %q, got %q", `say "hi"`, got)
	}
	if got := ctx.ToStringQuoted(s, true); got != `"say \"hi\""` {
		t.Errorf("quoted: expected %q, got %q", `"say \"hi\""`, got)
	}
}

func TestWriteSymbol(t *testing.T) {
	ctx := newTestContext(t)
	sym, _ := ctx.MakeSymbol([]byte("foo-bar"))
	if got := ctx.ToStringQuoted(sym, false); got != "foo-bar" {
		t.Errorf("symbol: expected %q, got %q", "foo-bar", got)
	}
}

func TestWriteProperAndDottedList(t *testing.T) {
	ctx := newTestContext(t)
	n1, _ := ctx.MakeNumber(1)
	n2, _ := ctx.MakeNumber(2)

	proper, _ := ctx.MakeList([]Ref{n1, n2})
	if got := ctx.ToStringQuoted(proper, false); got != "(1 2)" {
		t.Errorf("proper list: expected %q, got %q", "(1 2)", got)
	}

	dotted, _ := ctx.Cons(n1, n2)
	if got := ctx.ToStringQuoted(dotted, false); got != "(1 . 2)" {
		t.Errorf("dotted pair: expected %q, got %q", "(1 . 2)", got)
	}
}

// TestReaderWriterRoundTrip checks that writing a form read from text,
// then reading that text back, reproduces the same printed form —
// the observable round-trip contract for finite nested pairs, strings,
// symbols, numbers and nil.
func TestReaderWriterRoundTrip(t *testing.T) {
	ctx := newTestContext(t)
	cases := []string{
		"42",
		"foo",
		"nil",
		`"a string"`,
		"(1 2 3)",
		"(1 . 2)",
		"(quote a)",
		"((1 2) (3 4))",
	}
	for _, src := range cases {
		form := mustReadOne(t, ctx, src)
		printed := ctx.ToStringQuoted(form, true)

		reParsed := mustReadOne(t, ctx, printed)
		reprinted := ctx.ToStringQuoted(reParsed, true)
		if printed != reprinted {
			t.Errorf("round trip %q: first print %q, second print %q", src, printed, reprinted)
		}
	}
}
