package main

import (
	"fmt"
	"os"

	"github.com/bassosimone/flipvm/pkg/lang"
	"github.com/spf13/cobra"
)

func newCompileCmd() *cobra.Command {
	var output string
	var printASM bool
	cmd := &cobra.Command{
		Use:   "compile <file.flp>",
		Short: "Run the pkg/lang front end and emit an assembled binary image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("flipvm: reading %s: %w", args[0], err)
			}
			prog, err := lang.Compile(string(src))
			if err != nil {
				return fmt.Errorf("flipvm: compiling %s: %w", args[0], err)
			}
			if printASM {
				for _, instr := range prog {
					fmt.Println(instr.String())
				}
				return nil
			}
			return writeImage(output, prog)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&printASM, "print-asm", false, "print the textual instruction listing instead of a binary image")
	return cmd
}
