package op

import (
	"fmt"

	"github.com/bassosimone/flipvm/pkg/register"
	"github.com/bassosimone/flipvm/pkg/word"
)

// ErrEncoding is returned for an out-of-range literal or an unknown
// opcode/sub-op code encountered while decoding.
var ErrEncoding = fmt.Errorf("op: encoding error")

const (
	typeBBit = uint16(0x8000)

	opcodeMask  = uint16(0xF)
	subMask     = uint16(0x1F)
	subShift    = 4
	regAShift   = 12
	regBShift   = 9
	regFieldBit = uint16(0x7)
)

const (
	opInvalid              = 0x0
	opAdd                  = 0x1
	opSub                  = 0x2
	opAddImm               = 0x3
	opAddImmSigned         = 0x4
	opShiftLeft            = 0x5
	opShiftRightLogical    = 0x6
	opShiftRightArithmetic = 0x7
	opLoad                 = 0x8
	opStore                = 0x9
	opTest                 = 0xA
	opAddIfFamily          = 0xB
	opJumpFamily           = 0xC
	opStack                = 0xD
	opLoadStackOffset      = 0xE
	opSystem               = 0xF
)

func buildTypeB(regA, regB, sub, opcode uint16) uint16 {
	return typeBBit |
		(regA&regFieldBit)<<regAShift |
		(regB&regFieldBit)<<regBShift |
		(sub&subMask)<<subShift |
		(opcode & opcodeMask)
}

// Encode serializes i into its fixed 16-bit instruction word. Encode is
// total: every Instruction built through the New* constructors (and thus
// carrying only in-range literals) has a representable encoding.
func (i Instruction) Encode() uint16 {
	switch i.Kind {
	case Imm:
		return i.Reg1.MaskFirst() | uint16(i.Lit12.Value)
	case Add:
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), uint16(i.Reg3), opAdd)
	case Sub:
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), uint16(i.Reg3), opSub)
	case AddImm:
		payload := uint16(i.Lit7.Value)
		return buildTypeB(uint16(i.Reg1), payload>>5, payload&subMask, opAddImm)
	case AddImmSigned:
		payload := uint16(i.Lit7.Value)
		return buildTypeB(uint16(i.Reg1), payload>>5, payload&subMask, opAddImmSigned)
	case ShiftLeft:
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), uint16(i.N.Value), opShiftLeft)
	case ShiftRightLogical:
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), uint16(i.N.Value), opShiftRightLogical)
	case ShiftRightArithmetic:
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), uint16(i.N.Value), opShiftRightArithmetic)
	case Load:
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), uint16(i.Reg3), opLoad)
	case Store:
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), uint16(i.Reg3), opStore)
	case Test:
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), uint16(i.TestOp), opTest)
	case AddIf:
		sub := uint16(i.N.Value) // bit4 of sub (discriminant) stays 0
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), sub, opAddIfFamily)
	case SetAndSave:
		sub := uint16(0x10) | uint16(i.Reg3)
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), sub, opAddIfFamily)
	case AddAndSave:
		sub := uint16(0x18) | uint16(i.Reg3)
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), sub, opAddIfFamily)
	case Jump:
		lit := i.Lit10.Value
		regA := (lit >> 8) & 0x3
		regB := (lit >> 5) & 0x7
		sub := lit & subMask
		return buildTypeB(regA, regB, sub, opJumpFamily)
	case JumpOffset:
		lit := i.Lit10.Value
		regA := uint16(0x4) | ((lit >> 8) & 0x3)
		regB := (lit >> 5) & 0x7
		sub := lit & subMask
		return buildTypeB(regA, regB, sub, opJumpFamily)
	case Stack:
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), uint16(i.StackOp), opStack)
	case LoadStackOffset:
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), uint16(i.N.Value), opLoadStackOffset)
	case System:
		return buildTypeB(uint16(i.Reg1), uint16(i.Reg2), uint16(i.N.Value), opSystem)
	case Invalid:
		return i.Raw
	default:
		panic(fmt.Sprintf("op: unreachable kind %v", i.Kind))
	}
}

// Decode deserializes a 16-bit instruction word. Decode rejects a
// recognized opcode whose sub-op field (TestOp) is out of range; every
// other bit pattern, including the unassigned Type-B opcode 0x0, decodes
// successfully (the latter as Invalid).
func Decode(ins uint16) (Instruction, error) {
	if ins&typeBBit == 0 {
		reg, ok := register.FirstFromInstruction(ins)
		if !ok {
			return Instruction{}, fmt.Errorf("%w: bad register field in 0x%04x", ErrEncoding, ins)
		}
		lit, ok := word.NewLiteral12BitChecked(ins & 0xFFF)
		if !ok {
			return Instruction{}, fmt.Errorf("%w: literal12 out of range in 0x%04x", ErrEncoding, ins)
		}
		return NewImm(reg, lit), nil
	}

	opcode := ins & opcodeMask
	sub := (ins >> subShift) & subMask
	regA := (ins >> regAShift) & regFieldBit
	regB := (ins >> regBShift) & regFieldBit

	mustReg := func(code uint16) (register.Register, error) {
		reg, ok := register.FromU8(uint8(code))
		if !ok {
			return 0, fmt.Errorf("%w: register code 0x%x out of range", ErrEncoding, code)
		}
		return reg, nil
	}

	switch opcode {
	case opInvalid:
		return NewInvalid(ins), nil
	case opAdd, opSub, opLoad, opStore:
		r1, err := mustReg(regA)
		if err != nil {
			return Instruction{}, err
		}
		r2, err := mustReg(regB)
		if err != nil {
			return Instruction{}, err
		}
		r3, err := mustReg(sub & regFieldBit)
		if err != nil {
			return Instruction{}, err
		}
		switch opcode {
		case opAdd:
			return NewAdd(r1, r2, r3), nil
		case opSub:
			return NewSub(r1, r2, r3), nil
		case opLoad:
			return NewLoad(r1, r2, r3), nil
		default:
			return NewStore(r1, r2, r3), nil
		}
	case opAddImm, opAddImmSigned:
		r1, err := mustReg(regA)
		if err != nil {
			return Instruction{}, err
		}
		payload := (regB << 5) | sub
		lit, ok := word.NewLiteral7BitChecked(uint8(payload & 0x7F))
		if !ok {
			return Instruction{}, fmt.Errorf("%w: literal7 out of range", ErrEncoding)
		}
		if opcode == opAddImm {
			return NewAddImm(r1, lit), nil
		}
		return NewAddImmSigned(r1, lit), nil
	case opShiftLeft, opShiftRightLogical, opShiftRightArithmetic:
		r1, err := mustReg(regA)
		if err != nil {
			return Instruction{}, err
		}
		r2, err := mustReg(regB)
		if err != nil {
			return Instruction{}, err
		}
		n := word.NewNibble(uint8(sub & 0xF))
		switch opcode {
		case opShiftLeft:
			return NewShiftLeft(r1, r2, n), nil
		case opShiftRightLogical:
			return NewShiftRightLogical(r1, r2, n), nil
		default:
			return NewShiftRightArithmetic(r1, r2, n), nil
		}
	case opTest:
		r1, err := mustReg(regA)
		if err != nil {
			return Instruction{}, err
		}
		r2, err := mustReg(regB)
		if err != nil {
			return Instruction{}, err
		}
		t, err := testOpFromBits(sub & 0xF)
		if err != nil {
			return Instruction{}, err
		}
		return NewTest(r1, r2, t), nil
	case opAddIfFamily:
		r1, err := mustReg(regA)
		if err != nil {
			return Instruction{}, err
		}
		r2, err := mustReg(regB)
		if err != nil {
			return Instruction{}, err
		}
		if sub&0x10 == 0 {
			return NewAddIf(r1, r2, word.NewNibble(uint8(sub&0xF))), nil
		}
		link, err := mustReg(sub & regFieldBit)
		if err != nil {
			return Instruction{}, err
		}
		if sub&0x8 == 0 {
			return NewSetAndSave(r1, r2, link), nil
		}
		return NewAddAndSave(r1, r2, link), nil
	case opJumpFamily:
		lit, ok := word.NewLiteral10BitChecked(((regA & 0x3) << 8) | (regB << 5) | sub)
		if !ok {
			return Instruction{}, fmt.Errorf("%w: literal10 out of range", ErrEncoding)
		}
		if regA&0x4 == 0 {
			return NewJump(lit), nil
		}
		return NewJumpOffset(lit), nil
	case opStack:
		r1, err := mustReg(regA)
		if err != nil {
			return Instruction{}, err
		}
		r2, err := mustReg(regB)
		if err != nil {
			return Instruction{}, err
		}
		s, err := stackOpFromBits(sub & 0x7)
		if err != nil {
			return Instruction{}, err
		}
		return NewStack(r1, r2, s), nil
	case opLoadStackOffset:
		r1, err := mustReg(regA)
		if err != nil {
			return Instruction{}, err
		}
		r2, err := mustReg(regB)
		if err != nil {
			return Instruction{}, err
		}
		return NewLoadStackOffset(r1, r2, word.NewNibble(uint8(sub&0xF))), nil
	case opSystem:
		r1, err := mustReg(regA)
		if err != nil {
			return Instruction{}, err
		}
		r2, err := mustReg(regB)
		if err != nil {
			return Instruction{}, err
		}
		return NewSystem(r1, r2, word.NewNibble(uint8(sub&0xF))), nil
	default:
		return Instruction{}, fmt.Errorf("%w: unknown opcode 0x%x", ErrEncoding, opcode)
	}
}
