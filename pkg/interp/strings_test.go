package interp

import "testing"

func TestMakeStringAndStringBytesAll(t *testing.T) {
	ctx := newTestContext(t)
	s, err := ctx.MakeString([]byte("hello, world"))
	if err != nil {
		t.Fatalf("MakeString: %v", err)
	}
	got := ctx.StringBytesAll(s)
	if string(got) != "hello, world" {
		t.Errorf("MakeString round-trip: expected %q, got %q", "hello, world", string(got))
	}
}

func TestMakeStringSpansMultipleChunks(t *testing.T) {
	ctx := newTestContext(t)
	data := make([]byte, StringChunkCapacity*3+2)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	s, err := ctx.MakeString(data)
	if err != nil {
		t.Fatalf("MakeString: %v", err)
	}

	chunks := 0
	for ref := s; ref != NilRef; {
		chunks++
		c := ctx.cellAt(ref)
		ref = c.cdr
	}
	if chunks < 4 {
		t.Errorf("expected at least 4 chained chunks for %d bytes, got %d", len(data), chunks)
	}

	got := ctx.StringBytesAll(s)
	if string(got) != string(data) {
		t.Errorf("multi-chunk string round-trip mismatch")
	}
}

func TestStringsEqual(t *testing.T) {
	ctx := newTestContext(t)
	a, _ := ctx.MakeString([]byte("same"))
	b, _ := ctx.MakeString([]byte("same"))
	c, _ := ctx.MakeString([]byte("different"))

	if !ctx.StringsEqual(a, b) {
		t.Errorf("expected two identically-built strings to compare equal")
	}
	if ctx.StringsEqual(a, c) {
		t.Errorf("expected differently-valued strings to compare unequal")
	}
}

func TestEmptyString(t *testing.T) {
	ctx := newTestContext(t)
	s, err := ctx.MakeString(nil)
	if err != nil {
		t.Fatalf("MakeString(nil): %v", err)
	}
	got := ctx.StringBytesAll(s)
	if len(got) != 0 {
		t.Errorf("expected an empty string, got %q", string(got))
	}
}
