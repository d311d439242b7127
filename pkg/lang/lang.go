// Package lang implements the compiler front end: a small statically
// scoped, C-like expression/statement language that lowers to
// []op.Instruction. Compile is the only entry point a caller needs; the
// lexer, parser, resolver, and code generator are internal machinery.
package lang

import (
	"fmt"

	"github.com/bassosimone/flipvm/pkg/op"
)

// Compile lexes, parses, resolves, and generates code for src, a
// program of one or more `fn` declarations including a parameterless
// `main`. main's code comes first, at address 0, and each of main's
// return paths ends in System(Zero, Zero, SIGHALT). The other functions'
// code follows main's, so when there are any, the last instruction of
// the result is a function return, not the System instruction.
func Compile(src string) ([]op.Instruction, error) {
	lex := NewLexer(src)
	p, err := NewParser(lex)
	if err != nil {
		return nil, err
	}
	prog, err := p.ParseProgram()
	if err != nil {
		return nil, err
	}
	res, err := resolveProgram(prog)
	if err != nil {
		return nil, err
	}
	instrs, err := generate(prog, res)
	if err != nil {
		return nil, fmt.Errorf("lang: code generation: %w", err)
	}
	return instrs, nil
}
