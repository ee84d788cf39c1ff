package ioext

import (
	"io"
	"testing"

	"github.com/noncombatant/fe/pkg/interp"
	"github.com/noncombatant/fe/pkg/vfs"
)

func newTestContext(t *testing.T) (*interp.Context, *vfs.VirtualDisk) {
	t.Helper()
	ctx, err := interp.OpenContext(4096)
	if err != nil {
		t.Fatalf("OpenContext: %v", err)
	}
	if err := ctx.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	disk := vfs.NewVirtualDisk()
	if err := Install(ctx, disk); err != nil {
		t.Fatalf("Install: %v", err)
	}
	return ctx, disk
}

func evalString(t *testing.T, ctx *interp.Context, src string) interp.Ref {
	t.Helper()
	pos := 0
	source := func(ctx *interp.Context, state any) byte {
		p := state.(*int)
		if *p >= len(src) {
			return 0
		}
		b := src[*p]
		*p++
		return b
	}
	env := interp.NilRef
	var result interp.Ref
	for {
		form, err := ctx.Read(source, &pos)
		if err == io.EOF {
			return result
		}
		if err != nil {
			t.Fatalf("Read(%q): %v", src, err)
		}
		result, err = ctx.EvalTopLevel(form, &env)
		if err != nil {
			t.Fatalf("EvalTopLevel(%q): %v", src, err)
		}
	}
}

func TestWriteThenReadFileRoundTrip(t *testing.T) {
	ctx, _ := newTestContext(t)
	ok := evalString(t, ctx, `(write-file "note.txt" "hello")`)
	if interp.IsNil(ok) {
		t.Fatalf("write-file: expected success")
	}

	got := evalString(t, ctx, `(read-file "note.txt")`)
	if ctx.GetKind(got) != interp.KindString {
		t.Fatalf("read-file: expected a string result, got %s", ctx.GetKind(got))
	}
	if string(ctx.StringBytesAll(got)) != "hello" {
		t.Errorf("read-file: expected %q, got %q", "hello", string(ctx.StringBytesAll(got)))
	}
}

func TestReadFileMissingReturnsNil(t *testing.T) {
	ctx, _ := newTestContext(t)
	got := evalString(t, ctx, `(read-file "missing.txt")`)
	if !interp.IsNil(got) {
		t.Errorf("read-file on a missing file: expected nil, got %s", ctx.GetKind(got))
	}
}

func TestOpenReportsExistence(t *testing.T) {
	ctx, _ := newTestContext(t)
	evalString(t, ctx, `(write-file "present.txt" "x")`)

	if interp.IsNil(evalString(t, ctx, `(open "present.txt" "r")`)) {
		t.Errorf("open on an existing file in read mode: expected non-nil")
	}
	if !interp.IsNil(evalString(t, ctx, `(open "absent.txt" "r")`)) {
		t.Errorf("open on a missing file in read mode: expected nil")
	}
	if interp.IsNil(evalString(t, ctx, `(open "new.txt" "w")`)) {
		t.Errorf("open in write mode: expected non-nil regardless of existence")
	}
}

func TestDeleteAndListFiles(t *testing.T) {
	ctx, _ := newTestContext(t)
	evalString(t, ctx, `(write-file "a.txt" "1")`)
	evalString(t, ctx, `(write-file "b.txt" "2")`)

	names := evalString(t, ctx, `(list-files)`)
	count := 0
	for ref := names; !interp.IsNil(ref); {
		car, err := ctx.Car(ref)
		if err != nil {
			t.Fatalf("Car: %v", err)
		}
		if ctx.GetKind(car) != interp.KindString {
			t.Errorf("list-files element: expected a string, got %s", ctx.GetKind(car))
		}
		count++
		ref, err = ctx.Cdr(ref)
		if err != nil {
			t.Fatalf("Cdr: %v", err)
		}
	}
	if count != 2 {
		t.Errorf("list-files: expected 2 entries, got %d", count)
	}

	deleted := evalString(t, ctx, `(delete-file "a.txt")`)
	if interp.IsNil(deleted) {
		t.Errorf("delete-file on an existing file: expected non-nil")
	}
	if !interp.IsNil(evalString(t, ctx, `(read-file "a.txt")`)) {
		t.Errorf("read-file after delete-file: expected nil")
	}
}

func TestWriteFileRejectsNonStringData(t *testing.T) {
	ctx, _ := newTestContext(t)
	pos := 0
	src := `(write-file "x.txt" 1)`
	source := func(ctx *interp.Context, state any) byte {
		p := state.(*int)
		if *p >= len(src) {
			return 0
		}
		b := src[*p]
		*p++
		return b
	}
	form, err := ctx.Read(source, &pos)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	env := interp.NilRef
	if _, err := ctx.EvalTopLevel(form, &env); err == nil {
		t.Errorf("write-file with a non-string data argument: expected an error")
	}
}
