// Package ioext registers file-style natives into an interp Context's
// global environment, backed by a quota-enforced in-memory store
// rather than raw host file descriptors — a sandboxing adapter of the
// same shape as the core's fixed-size arena: a script can exhaust its
// quota, but it can never reach outside it.
package ioext

import (
	"errors"

	"github.com/noncombatant/fe/pkg/interp"
	"github.com/noncombatant/fe/pkg/vfs"
)

// Install registers "open", "read-file", "write-file", "delete-file"
// and "list-files" against disk. Every Context sharing one disk shares
// one quota and one namespace; callers that want isolation between
// Contexts must use a separate VirtualDisk per Context.
func Install(ctx *interp.Context, disk *vfs.VirtualDisk) error {
	for _, entry := range []struct {
		name string
		fn   func(*vfs.VirtualDisk) interp.NativeFunc
	}{
		{"open", open},
		{"read-file", readFile},
		{"write-file", writeFile},
		{"delete-file", deleteFile},
		{"list-files", listFiles},
	} {
		if err := register(ctx, entry.name, entry.fn(disk)); err != nil {
			return err
		}
	}
	return nil
}

func register(ctx *interp.Context, name string, fn interp.NativeFunc) error {
	nativeRef, err := ctx.MakeNative(fn)
	if err != nil {
		return err
	}
	sym, err := ctx.MakeSymbol([]byte(name))
	if err != nil {
		return err
	}
	return ctx.Set(sym, nativeRef)
}

func argString(ctx *interp.Context, ref interp.Ref) (string, error) {
	if ctx.GetKind(ref) != interp.KindString {
		return "", errors.New("expected a string argument")
	}
	return string(ctx.StringBytesAll(ref)), nil
}

// open mirrors fex_io.c's FexOpen: (open pathname mode) reports
// whether pathname exists, as a capability check before read-file or
// write-file, rather than returning a stream handle — this dialect's
// natives are whole-value, not byte-at-a-time, so there is nothing for
// a handle to cursor over. In mode "w" or "a" it reports true without
// looking at the disk.
func open(disk *vfs.VirtualDisk) interp.NativeFunc {
	return func(ctx *interp.Context, args interp.Ref) (interp.Ref, error) {
		pathRef, rest, err := ctx.NextArg(args)
		if err != nil {
			return interp.NilRef, err
		}
		path, err := argString(ctx, pathRef)
		if err != nil {
			return interp.NilRef, err
		}
		modeRef, _, err := ctx.NextArg(rest)
		if err != nil {
			return interp.NilRef, err
		}
		mode, err := argString(ctx, modeRef)
		if err != nil {
			return interp.NilRef, err
		}

		if mode == "w" || mode == "a" {
			return ctx.MakeBool(true)
		}
		_, err = disk.Read(path)
		if err != nil {
			return ctx.MakeBool(false)
		}
		return ctx.MakeBool(true)
	}
}

func readFile(disk *vfs.VirtualDisk) interp.NativeFunc {
	return func(ctx *interp.Context, args interp.Ref) (interp.Ref, error) {
		pathRef, _, err := ctx.NextArg(args)
		if err != nil {
			return interp.NilRef, err
		}
		path, err := argString(ctx, pathRef)
		if err != nil {
			return interp.NilRef, err
		}
		data, err := disk.Read(path)
		if err != nil {
			return interp.NilRef, nil
		}
		return ctx.MakeString(data)
	}
}

func writeFile(disk *vfs.VirtualDisk) interp.NativeFunc {
	return func(ctx *interp.Context, args interp.Ref) (interp.Ref, error) {
		pathRef, rest, err := ctx.NextArg(args)
		if err != nil {
			return interp.NilRef, err
		}
		path, err := argString(ctx, pathRef)
		if err != nil {
			return interp.NilRef, err
		}
		dataRef, _, err := ctx.NextArg(rest)
		if err != nil {
			return interp.NilRef, err
		}
		if ctx.GetKind(dataRef) != interp.KindString {
			return interp.NilRef, errors.New("expected a string argument")
		}
		data := ctx.StringBytesAll(dataRef)
		if err := disk.Write(path, data); err != nil {
			return ctx.MakeBool(false)
		}
		return ctx.MakeBool(true)
	}
}

func deleteFile(disk *vfs.VirtualDisk) interp.NativeFunc {
	return func(ctx *interp.Context, args interp.Ref) (interp.Ref, error) {
		pathRef, _, err := ctx.NextArg(args)
		if err != nil {
			return interp.NilRef, err
		}
		path, err := argString(ctx, pathRef)
		if err != nil {
			return interp.NilRef, err
		}
		return ctx.MakeBool(disk.Delete(path) == nil)
	}
}

func listFiles(disk *vfs.VirtualDisk) interp.NativeFunc {
	return func(ctx *interp.Context, args interp.Ref) (interp.Ref, error) {
		names := disk.List()
		items := make([]interp.Ref, len(names))
		for i, name := range names {
			s, err := ctx.MakeString([]byte(name))
			if err != nil {
				return interp.NilRef, err
			}
			items[i] = s
		}
		return ctx.MakeList(items)
	}
}
