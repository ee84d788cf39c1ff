// Command fe is the command-line driver for the interpreter in
// pkg/interp: it opens one Context per input file, evaluates every
// top-level form, and reports errors the way the core's error
// trampoline produces them. With no file arguments it runs an
// interactive read-eval-print loop against stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/noncombatant/fe/pkg/ext/ioext"
	"github.com/noncombatant/fe/pkg/ext/mathext"
	"github.com/noncombatant/fe/pkg/interp"
	"github.com/noncombatant/fe/pkg/utils"
	"github.com/noncombatant/fe/pkg/vfs"
)

func main() {
	cells := flag.Int("cells", 65536, "arena size, in cells")
	gcStack := flag.Int("gc-stack", interp.DefaultGCStackSize, "GC root-stack capacity")
	storage := flag.String("storage", "", "host directory backing the io extension's virtual disk (default: in-memory only)")
	flag.Parse()

	files := flag.Args()

	disk := vfs.NewVirtualDisk()
	if *storage != "" {
		// Resolve relative to the current directory before LoadFrom/PersistTo
		// so the two calls agree on the same host directory even if the
		// process's working directory is somehow different between them.
		fullPath, _, err := utils.GetPathInfo(*storage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fe: failed to resolve storage path %q: %v\n", *storage, err)
			os.Exit(1)
		}
		*storage = fullPath
		if err := disk.LoadFrom(*storage); err != nil {
			fmt.Fprintf(os.Stderr, "fe: failed to load storage %q: %v\n", *storage, err)
			os.Exit(1)
		}
	}

	var exitErr error
	if len(files) == 0 {
		exitErr = repl(*cells, *gcStack, disk)
	} else {
		exitErr = runFiles(files, *cells, *gcStack, disk)
	}

	if *storage != "" {
		if err := disk.PersistTo(*storage); err != nil {
			fmt.Fprintf(os.Stderr, "fe: failed to persist storage %q: %v\n", *storage, err)
			if exitErr == nil {
				exitErr = err
			}
		}
	}

	if exitErr != nil {
		os.Exit(1)
	}
}

// runFiles evaluates each file in its own Context, concurrently: two
// Contexts never share cells, so nothing about running them on
// separate goroutines needs coordination beyond the shared virtual
// disk, which is already safe for concurrent access.
func runFiles(paths []string, cells, gcStack int, disk *vfs.VirtualDisk) error {
	var g errgroup.Group
	for _, path := range paths {
		path := path
		g.Go(func() error {
			return runFile(path, cells, gcStack, disk)
		})
	}
	return g.Wait()
}

func runFile(path string, cells, gcStack int, disk *vfs.VirtualDisk) error {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fe: %s: %v\n", path, err)
		return err
	}

	ctx, err := newContext(cells, gcStack, disk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fe: %s: %v\n", path, err)
		return err
	}
	defer ctx.CloseContext()

	cursor := &sourceCursor{data: source}
	var env interp.Ref = interp.NilRef
	for {
		form, err := ctx.Read(byteSliceSource, cursor)
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "fe: %s: %v\n", path, err)
			return err
		}

		if _, evalErr := ctx.EvalTopLevel(form, &env); evalErr != nil {
			fmt.Fprintf(os.Stderr, "fe: %s: %v", path, evalErr)
			return evalErr
		}
	}
	return nil
}

// sourceCursor is the state threaded through byteSliceSource: a whole
// file already in memory, read one byte at a time.
type sourceCursor struct {
	data []byte
	pos  int
}

func byteSliceSource(ctx *interp.Context, state any) byte {
	cur := state.(*sourceCursor)
	if cur.pos >= len(cur.data) {
		return 0
	}
	b := cur.data[cur.pos]
	cur.pos++
	return b
}

func newContext(cells, gcStack int, disk *vfs.VirtualDisk) (*interp.Context, error) {
	ctx, err := interp.OpenContextSize(cells, gcStack)
	if err != nil {
		return nil, err
	}
	if err := ctx.Bootstrap(); err != nil {
		return nil, err
	}
	if err := mathext.Install(ctx); err != nil {
		return nil, err
	}
	if err := ioext.Install(ctx, disk); err != nil {
		return nil, err
	}
	return ctx, nil
}

// repl runs an interactive read-eval-print loop against stdin,
// printing each result and recovering from a failed form instead of
// unwinding the whole process.
func repl(cells, gcStack int, disk *vfs.VirtualDisk) error {
	ctx, err := newContext(cells, gcStack, disk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fe: %v\n", err)
		return err
	}
	defer ctx.CloseContext()

	reader := bufio.NewReader(os.Stdin)
	var env interp.Ref = interp.NilRef
	sawError := false

	for {
		fmt.Print("fe > ")
		form, err := ctx.Read(stdinByteSource, reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			sawError = true
			continue
		}

		result, evalErr := ctx.EvalTopLevel(form, &env)
		if evalErr != nil {
			fmt.Fprintf(os.Stderr, "%v", evalErr)
			sawError = true
			continue
		}

		fmt.Println(ctx.ToStringQuoted(result, false))
	}

	if sawError {
		return fmt.Errorf("one or more forms failed")
	}
	return nil
}

func stdinByteSource(ctx *interp.Context, state any) byte {
	reader := state.(*bufio.Reader)
	b, err := reader.ReadByte()
	if err != nil {
		return 0
	}
	return b
}
