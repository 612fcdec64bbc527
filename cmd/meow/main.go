// Command meow is the CLI entry point: interpret a single entry file (text
// or binary bytecode) and run its @main to completion. Grounded on plaid.go
// for the overall cli.App shape, generalized from v1's `cli.App.Commands`
// (run/check subcommands over a language with its own parser) to a single
// default action over already-compiled bytecode, since this module has no
// source-level frontend of its own to "check". Uses
// github.com/urfave/cli/v2, the actively maintained successor to the
// teacher's v1 import.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/loader"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
	"github.com/MeowNBK/meow-vm-legacy/internal/vm"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "meow",
		Usage:     "run a compiled Meow bytecode program",
		UsageText: "meow [--binary] [--debug-disassembly] <entry_file> [script args...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "binary",
				Usage: "treat <entry_file> as the binary bytecode format regardless of its extension",
			},
			&cli.BoolFlag{
				Name:  "debug-disassembly",
				Usage: "dump disassembled bytecode for every prototype before running",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("meow: missing entry file", 1)
	}
	entryFile := c.Args().Get(0)
	scriptArgs := c.Args().Slice()[1:]

	data, err := os.ReadFile(entryFile)
	if err != nil {
		return cli.Exit(fmt.Sprintf("meow: entry file %q not found", entryFile), 1)
	}
	isBinary := c.Bool("binary") || filepath.Ext(entryFile) == ".meowb"

	if c.Bool("debug-disassembly") {
		if err := dumpDisassembly(entryFile, data, isBinary); err != nil {
			fmt.Fprintln(os.Stderr, "meow: debug-disassembly:", err)
		}
	}

	// The importer picks text vs. binary parsing from the file extension
	// alone, so a --binary entry file under a non-.meowb name is routed
	// through a same-directory temp copy carrying the right extension; the
	// interpreter otherwise never sees the distinction.
	runPath := entryFile
	if isBinary && filepath.Ext(entryFile) != ".meowb" {
		tmp, cleanup, err := binaryTempCopy(entryFile, data)
		if err != nil {
			return cli.Exit(fmt.Sprintf("meow: %v", err), 1)
		}
		defer cleanup()
		runPath = tmp
	}

	entryDir := filepath.Dir(entryFile)
	interp := vm.New(entryDir, scriptArgs)

	if err := interp.Run(runPath); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func binaryTempCopy(entryFile string, data []byte) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp(filepath.Dir(entryFile), "*.meowb")
	if err != nil {
		return "", nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	name := f.Name()
	f.Close()
	return name, func() { os.Remove(name) }, nil
}

// dumpDisassembly parses entryFile's bytes against a throwaway heap, never
// executed, purely to print every prototype's bytecode and constant pool
// before the real run begins — the same "print the compiled form, then
// execute" ordering plaid.go used for its own --debug-disassembly flag.
func dumpDisassembly(entryFile string, data []byte, isBinary bool) error {
	h := heap.New()

	var protos map[string]*value.FunctionProto
	var err error
	if isBinary {
		protos, err = loader.ParseBinary(h, bytes.NewReader(data))
	} else {
		protos, err = loader.ParseText(h, string(data), entryFile)
	}
	if err != nil {
		return err
	}

	fmt.Println("#######################")
	fmt.Println("##    Disassembly    ##")
	fmt.Println("#######################")
	fmt.Println()
	for name, proto := range protos {
		fmt.Printf("# %s\n", name)
		fmt.Print(loader.Disassemble(proto))
		if consts := loader.DisassembleConstants(proto); consts != "" {
			fmt.Println("  constants:")
			fmt.Print(consts)
		}
		fmt.Println()
	}
	return nil
}
