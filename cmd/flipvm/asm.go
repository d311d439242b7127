package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/bassosimone/flipvm/pkg/asmpp"
	"github.com/bassosimone/flipvm/pkg/op"
	"github.com/spf13/cobra"
)

func newAsmCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "asm <file.flpasm>",
		Short: "Preprocess and assemble a textual program into a raw binary image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := assembleFile(args[0])
			if err != nil {
				return err
			}
			return writeImage(output, prog)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

// assembleFile preprocesses src's text through a bare asmpp.PreProcessor
// (no variables or macros registered — callers embedding asm as a
// library step may preregister their own before calling ResolveAll
// directly) and assembles every non-comment, non-blank resulting line.
func assembleFile(path string) ([]op.Instruction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("flipvm: reading %s: %w", path, err)
	}
	pp := asmpp.New()
	resolved, err := pp.ResolveAll(string(data))
	if err != nil {
		return nil, fmt.Errorf("flipvm: preprocessing %s: %w", path, err)
	}
	var prog []op.Instruction
	for lineNo, line := range strings.Split(resolved, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		instr, err := op.ParseInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("flipvm: %s:%d: %w", path, lineNo+1, err)
		}
		prog = append(prog, instr)
	}
	return prog, nil
}

// writeImage encodes prog as contiguous little-endian words, writing to
// path or, when path is empty, to stdout.
func writeImage(path string, prog []op.Instruction) error {
	buf := make([]byte, 0, len(prog)*2)
	for _, instr := range prog {
		w := instr.Encode()
		buf = append(buf, byte(w), byte(w>>8))
	}
	if path == "" {
		_, err := os.Stdout.Write(buf)
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}
