// Package op contains the VM's instruction set: the Instruction sum type,
// its fixed 16-bit encoding, and the textual syntax used by the assembler.
//
// Instruction format
//
// Every instruction is 16 bits wide, in one of two macro formats
// disambiguated by the high bit:
//
//	Type A (bit 15 = 0): 0 RRR LLLL LLLL LLLL  -- Imm(reg, Literal12Bit)
//	Type B (bit 15 = 1): 1 RRR SSS AAAAA DDDD  -- opcode DDDD, sub-field
//	                     AAAAA, register fields RRR/SSS
//
// Type B's opcode nibble 0x0 is unassigned by the fifteen named opcodes
// (0x1..0xF), so it is reused to seat Invalid, a raw-word pass-through
// used by tests as a trap. Jump/JumpOffset share opcode 0xC and AddIf/
// SetAndSave/AddAndSave share opcode 0xB; each pair is told apart by a
// discriminant bit folded into the register/sub-field space that the
// narrower variant leaves unused. See encode.go for the exact bit
// allocation of every opcode.
package op

import (
	"fmt"

	"github.com/bassosimone/flipvm/pkg/register"
	"github.com/bassosimone/flipvm/pkg/word"
)

// Kind identifies an Instruction variant.
type Kind uint8

// The instruction kinds. Imm is Type A; everything else is Type B.
const (
	Imm Kind = iota
	Add
	Sub
	AddImm
	AddImmSigned
	ShiftLeft
	ShiftRightLogical
	ShiftRightArithmetic
	Load
	Store
	Test
	AddIf
	Jump
	JumpOffset
	SetAndSave
	AddAndSave
	Stack
	LoadStackOffset
	System
	Invalid
)

func (k Kind) String() string {
	switch k {
	case Imm:
		return "Imm"
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case AddImm:
		return "AddImm"
	case AddImmSigned:
		return "AddImmSigned"
	case ShiftLeft:
		return "ShiftLeft"
	case ShiftRightLogical:
		return "ShiftRightLogical"
	case ShiftRightArithmetic:
		return "ShiftRightArithmetic"
	case Load:
		return "Load"
	case Store:
		return "Store"
	case Test:
		return "Test"
	case AddIf:
		return "AddIf"
	case Jump:
		return "Jump"
	case JumpOffset:
		return "JumpOffset"
	case SetAndSave:
		return "SetAndSave"
	case AddAndSave:
		return "AddAndSave"
	case Stack:
		return "Stack"
	case LoadStackOffset:
		return "LoadStackOffset"
	case System:
		return "System"
	case Invalid:
		return "Invalid"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Instruction is the VM's tagged-union instruction value. Only the fields
// relevant to Kind are meaningful; Encode/Decode and String/ParseInstruction
// agree on which those are for each Kind.
type Instruction struct {
	Kind Kind

	// Reg1, Reg2, Reg3 are the positional register operands, named by
	// position rather than role because the same field plays dest in one
	// instruction and src in another (see the New* constructors below).
	Reg1, Reg2, Reg3 register.Register

	Lit7  word.Literal7Bit
	Lit10 word.Literal10Bit
	Lit12 word.Literal12Bit
	N     word.Nibble

	TestOp  TestOp
	StackOp StackOp

	// Raw holds the literal word for Invalid.
	Raw uint16
}

// NewImm builds D <- L12 (12-bit zero-extend).
func NewImm(dest register.Register, lit word.Literal12Bit) Instruction {
	return Instruction{Kind: Imm, Reg1: dest, Lit12: lit}
}

// NewAdd builds D <- S1 + S2 (wrapping 16-bit). D is the third operand.
func NewAdd(src1, src2, dest register.Register) Instruction {
	return Instruction{Kind: Add, Reg1: src1, Reg2: src2, Reg3: dest}
}

// NewSub builds D <- S1 - S2 (wrapping 16-bit). D is the third operand.
func NewSub(src1, src2, dest register.Register) Instruction {
	return Instruction{Kind: Sub, Reg1: src1, Reg2: src2, Reg3: dest}
}

// NewAddImm builds D <- D + zero_extend(L7).
func NewAddImm(dest register.Register, lit word.Literal7Bit) Instruction {
	return Instruction{Kind: AddImm, Reg1: dest, Lit7: lit}
}

// NewAddImmSigned builds D <- D + sign_magnitude_extend(L7).
func NewAddImmSigned(dest register.Register, lit word.Literal7Bit) Instruction {
	return Instruction{Kind: AddImmSigned, Reg1: dest, Lit7: lit}
}

// NewShiftLeft builds D <- S << n (logical). D is the second operand.
func NewShiftLeft(src, dest register.Register, n word.Nibble) Instruction {
	return Instruction{Kind: ShiftLeft, Reg1: src, Reg2: dest, N: n}
}

// NewShiftRightLogical builds D <- S >> n (unsigned). D is the second operand.
func NewShiftRightLogical(src, dest register.Register, n word.Nibble) Instruction {
	return Instruction{Kind: ShiftRightLogical, Reg1: src, Reg2: dest, N: n}
}

// NewShiftRightArithmetic builds D <- S >> n (sign-preserving). D is the second operand.
func NewShiftRightArithmetic(src, dest register.Register, n word.Nibble) Instruction {
	return Instruction{Kind: ShiftRightArithmetic, Reg1: src, Reg2: dest, N: n}
}

// NewLoad builds D <- M[addrLo | (addrHi << 16)].
func NewLoad(dest, addrLo, addrHi register.Register) Instruction {
	return Instruction{Kind: Load, Reg1: dest, Reg2: addrLo, Reg3: addrHi}
}

// NewStore builds M[addrLo | (addrHi << 16)] <- src.
func NewStore(src, addrLo, addrHi register.Register) Instruction {
	return Instruction{Kind: Store, Reg1: src, Reg2: addrLo, Reg3: addrHi}
}

// NewTest builds the Compare-flag predicate S1 <op> S2.
func NewTest(src1, src2 register.Register, op TestOp) Instruction {
	return Instruction{Kind: Test, Reg1: src1, Reg2: src2, TestOp: op}
}

// NewAddIf builds: if Compare, D <- S + (n << 1); else no-op.
func NewAddIf(dest, src register.Register, n word.Nibble) Instruction {
	return Instruction{Kind: AddIf, Reg1: dest, Reg2: src, N: n}
}

// NewJump builds PC <- L10 << 1 (absolute, byte-addressed).
func NewJump(lit word.Literal10Bit) Instruction {
	return Instruction{Kind: Jump, Lit10: lit}
}

// NewJumpOffset builds PC <- PC + L10 (relative byte delta).
func NewJumpOffset(lit word.Literal10Bit) Instruction {
	return Instruction{Kind: JumpOffset, Lit10: lit}
}

// NewSetAndSave builds link <- PC; D <- S (call-and-link to an address
// already held in a register).
func NewSetAndSave(dest, src, link register.Register) Instruction {
	return Instruction{Kind: SetAndSave, Reg1: dest, Reg2: src, Reg3: link}
}

// NewAddAndSave builds link <- PC; D <- D + S (relative call-and-link).
func NewAddAndSave(dest, src, link register.Register) Instruction {
	return Instruction{Kind: AddAndSave, Reg1: dest, Reg2: src, Reg3: link}
}

// NewStack builds an SP-relative stack operation on reg.
func NewStack(reg, sp register.Register, op StackOp) Instruction {
	return Instruction{Kind: Stack, Reg1: reg, Reg2: sp, StackOp: op}
}

// NewLoadStackOffset builds D <- M[base - (n << 1)].
func NewLoadStackOffset(dest, base register.Register, n word.Nibble) Instruction {
	return Instruction{Kind: LoadStackOffset, Reg1: dest, Reg2: base, N: n}
}

// NewSystem builds a signal dispatch to handler n. The handler receives
// the value of register arg1; arg2 is encoded but not passed.
func NewSystem(arg1, arg2 register.Register, n word.Nibble) Instruction {
	return Instruction{Kind: System, Reg1: arg1, Reg2: arg2, N: n}
}

// NewInvalid builds a trap instruction that encodes as the raw word code
// and decodes back to itself (for any word Decode would not otherwise
// produce from a valid opcode).
func NewInvalid(code uint16) Instruction {
	return Instruction{Kind: Invalid, Raw: code}
}
