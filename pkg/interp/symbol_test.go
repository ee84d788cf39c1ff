package interp

import "testing"

func TestMakeSymbolInterns(t *testing.T) {
	ctx := newTestContext(t)
	a, err := ctx.MakeSymbol([]byte("foo"))
	if err != nil {
		t.Fatalf("MakeSymbol: %v", err)
	}
	b, err := ctx.MakeSymbol([]byte("foo"))
	if err != nil {
		t.Fatalf("MakeSymbol: %v", err)
	}
	if a != b {
		t.Errorf("MakeSymbol(\"foo\") twice: expected the same Ref, got %v and %v", a, b)
	}

	c, err := ctx.MakeSymbol([]byte("bar"))
	if err != nil {
		t.Fatalf("MakeSymbol: %v", err)
	}
	if a == c {
		t.Errorf("MakeSymbol(\"foo\") and MakeSymbol(\"bar\") must not collide")
	}
}

func TestSetAndGetBoundGlobal(t *testing.T) {
	ctx := newTestContext(t)
	sym, err := ctx.MakeSymbol([]byte("x"))
	if err != nil {
		t.Fatalf("MakeSymbol: %v", err)
	}
	val, err := ctx.MakeNumber(7)
	if err != nil {
		t.Fatalf("MakeNumber: %v", err)
	}
	if err := ctx.Set(sym, val); err != nil {
		t.Fatalf("Set: %v", err)
	}

	binding, err := ctx.GetBound(sym, NilRef)
	if err != nil {
		t.Fatalf("GetBound: %v", err)
	}
	got, err := ctx.Cdr(binding)
	if err != nil {
		t.Fatalf("Cdr: %v", err)
	}
	if got != val {
		t.Errorf("GetBound fallback to global: expected %v, got %v", val, got)
	}
}

func TestGetBoundPrefersLexicalEnv(t *testing.T) {
	ctx := newTestContext(t)
	sym, err := ctx.MakeSymbol([]byte("x"))
	if err != nil {
		t.Fatalf("MakeSymbol: %v", err)
	}
	globalVal, err := ctx.MakeNumber(1)
	if err != nil {
		t.Fatalf("MakeNumber: %v", err)
	}
	if err := ctx.Set(sym, globalVal); err != nil {
		t.Fatalf("Set: %v", err)
	}

	localVal, err := ctx.MakeNumber(2)
	if err != nil {
		t.Fatalf("MakeNumber: %v", err)
	}
	entry, err := ctx.Cons(sym, localVal)
	if err != nil {
		t.Fatalf("Cons: %v", err)
	}
	env, err := ctx.Cons(entry, NilRef)
	if err != nil {
		t.Fatalf("Cons: %v", err)
	}

	binding, err := ctx.GetBound(sym, env)
	if err != nil {
		t.Fatalf("GetBound: %v", err)
	}
	if binding != entry {
		t.Errorf("GetBound: expected the lexical entry to shadow the global binding")
	}
}
