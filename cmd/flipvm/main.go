// Command flipvm is the unified CLI for the 16-bit register VM: it
// assembles hand-written `.flpasm` text, compiles the small `pkg/lang`
// source language, runs an encoded program image to completion, and
// drives an interactive single-step debugger. It merges the teacher's
// two flag-based binaries (cmd/asm, cmd/vm) into one cobra command tree,
// the way oisee-z80-optimizer's cmd/z80opt wires subcommands onto a
// single domain library.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "flipvm",
		Short: "Assembler, compiler, and runtime for the flipvm 16-bit register machine",
	}
	root.AddCommand(newAsmCmd(), newCompileCmd(), newRunCmd(), newDebugCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
