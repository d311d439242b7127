// Package register contains the register and flag model shared by the
// instruction encoding (pkg/op) and the execution engine (pkg/machine).
package register

import "fmt"

// Register identifies one of the eight general/special registers by its
// 3-bit code.
type Register uint8

// The eight registers, encoded 0..7. Zero always reads as 0 and discards
// writes; SP/BP are ordinary registers the runtime never touches except
// through explicit stack instructions.
const (
	Zero Register = iota
	A
	B
	C
	M
	SP
	PC
	BP
)

// NumRegisters is the size of the register file.
const NumRegisters = 8

// field positions of a 16-bit instruction word a register code can occupy.
const (
	firstShift  = 12
	secondShift = 9
	thirdShift  = 0
	fieldMask   = 0x7
)

// FromU8 decodes a 3-bit register code, failing on any value above BP.
func FromU8(v uint8) (Register, bool) {
	if v > uint8(BP) {
		return Zero, false
	}
	return Register(v), true
}

// MaskFirst returns this register's code shifted into the first field
// (bits 12..14) of an instruction word.
func (r Register) MaskFirst() uint16 {
	return (uint16(r) & fieldMask) << firstShift
}

// MaskSecond returns this register's code shifted into the second field
// (bits 9..11) of an instruction word.
func (r Register) MaskSecond() uint16 {
	return (uint16(r) & fieldMask) << secondShift
}

// MaskThird returns this register's code in the third field (bits 0..2)
// of an instruction word.
func (r Register) MaskThird() uint16 {
	return (uint16(r) & fieldMask) << thirdShift
}

// FirstFromInstruction decodes the first-field register of ins.
func FirstFromInstruction(ins uint16) (Register, bool) {
	return FromU8(uint8((ins >> firstShift) & fieldMask))
}

// SecondFromInstruction decodes the second-field register of ins.
func SecondFromInstruction(ins uint16) (Register, bool) {
	return FromU8(uint8((ins >> secondShift) & fieldMask))
}

// ThirdFromInstruction decodes the third-field register of ins.
func ThirdFromInstruction(ins uint16) (Register, bool) {
	return FromU8(uint8((ins >> thirdShift) & fieldMask))
}

func (r Register) String() string {
	switch r {
	case Zero:
		return "Zero"
	case A:
		return "A"
	case B:
		return "B"
	case C:
		return "C"
	case M:
		return "M"
	case SP:
		return "SP"
	case PC:
		return "PC"
	case BP:
		return "BP"
	default:
		return fmt.Sprintf("Register(%d)", uint8(r))
	}
}

// Parse parses a register mnemonic such as "A" or "SP".
func Parse(s string) (Register, error) {
	switch s {
	case "Zero":
		return Zero, nil
	case "A":
		return A, nil
	case "B":
		return B, nil
	case "C":
		return C, nil
	case "M":
		return M, nil
	case "SP":
		return SP, nil
	case "PC":
		return PC, nil
	case "BP":
		return BP, nil
	default:
		return Zero, fmt.Errorf("register: unknown register %q", s)
	}
}

// Flag is a single-bit condition in the machine's 16-bit flag word.
type Flag uint16

const (
	// Compare is set by Test when its predicate holds.
	Compare Flag = 0x1
	// HasJumped records that the instruction that just ran wrote PC. It
	// is set by Jump and JumpOffset, and by AddIf, SetAndSave and
	// AddAndSave when their destination is PC; other instructions that
	// write PC (Imm, Add, Load, a Stack Pop, ...) leave it clear. Step
	// clears it before decoding and always applies the implicit PC += 2.
	HasJumped Flag = 0x2
)

func (f Flag) String() string {
	switch f {
	case Compare:
		return "Compare"
	case HasJumped:
		return "HasJumped"
	default:
		return fmt.Sprintf("Flag(0x%x)", uint16(f))
	}
}
