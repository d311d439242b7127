package op

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bassosimone/flipvm/pkg/register"
	"github.com/bassosimone/flipvm/pkg/word"
)

// String renders i in the assembler's textual syntax: mnemonic followed
// by space-separated operands. ParseInstruction is its inverse.
func (i Instruction) String() string {
	switch i.Kind {
	case Imm:
		return fmt.Sprintf("Imm %s %s", i.Reg1, i.Lit12)
	case Add:
		return fmt.Sprintf("Add %s %s %s", i.Reg1, i.Reg2, i.Reg3)
	case Sub:
		return fmt.Sprintf("Sub %s %s %s", i.Reg1, i.Reg2, i.Reg3)
	case AddImm:
		return fmt.Sprintf("AddImm %s %s", i.Reg1, i.Lit7)
	case AddImmSigned:
		return fmt.Sprintf("AddImmSigned %s %s", i.Reg1, i.Lit7)
	case ShiftLeft:
		return fmt.Sprintf("ShiftLeft %s %s %s", i.Reg1, i.Reg2, i.N)
	case ShiftRightLogical:
		return fmt.Sprintf("ShiftRightLogical %s %s %s", i.Reg1, i.Reg2, i.N)
	case ShiftRightArithmetic:
		return fmt.Sprintf("ShiftRightArithmetic %s %s %s", i.Reg1, i.Reg2, i.N)
	case Load:
		return fmt.Sprintf("Load %s %s %s", i.Reg1, i.Reg2, i.Reg3)
	case Store:
		return fmt.Sprintf("Store %s %s %s", i.Reg1, i.Reg2, i.Reg3)
	case Test:
		return fmt.Sprintf("Test %s %s %s", i.Reg1, i.Reg2, i.TestOp)
	case AddIf:
		return fmt.Sprintf("AddIf %s %s %s", i.Reg1, i.Reg2, i.N)
	case Jump:
		return fmt.Sprintf("Jump %s", i.Lit10)
	case JumpOffset:
		return fmt.Sprintf("JumpOffset %s", i.Lit10)
	case SetAndSave:
		return fmt.Sprintf("SetAndSave %s %s %s", i.Reg1, i.Reg2, i.Reg3)
	case AddAndSave:
		return fmt.Sprintf("AddAndSave %s %s %s", i.Reg1, i.Reg2, i.Reg3)
	case Stack:
		return fmt.Sprintf("Stack %s %s %s", i.Reg1, i.Reg2, i.StackOp)
	case LoadStackOffset:
		return fmt.Sprintf("LoadStackOffset %s %s %s", i.Reg1, i.Reg2, i.N)
	case System:
		return fmt.Sprintf("System %s %s %s", i.Reg1, i.Reg2, i.N)
	case Invalid:
		return fmt.Sprintf("Invalid 0x%04x", i.Raw)
	default:
		return fmt.Sprintf("<bad instruction kind %v>", i.Kind)
	}
}

func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return v, nil
}

func parseRegister(s string) (register.Register, error) {
	reg, err := register.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return reg, nil
}

func parseLiteral7(s string) (word.Literal7Bit, error) {
	v, err := parseUint(s, 8)
	if err != nil {
		return word.Literal7Bit{}, err
	}
	lit, ok := word.NewLiteral7BitChecked(uint8(v))
	if !ok {
		return word.Literal7Bit{}, fmt.Errorf("%w: %q does not fit in 7 bits", ErrEncoding, s)
	}
	return lit, nil
}

func parseLiteral10(s string) (word.Literal10Bit, error) {
	v, err := parseUint(s, 16)
	if err != nil {
		return word.Literal10Bit{}, err
	}
	lit, ok := word.NewLiteral10BitChecked(uint16(v))
	if !ok {
		return word.Literal10Bit{}, fmt.Errorf("%w: %q does not fit in 10 bits", ErrEncoding, s)
	}
	return lit, nil
}

func parseLiteral12(s string) (word.Literal12Bit, error) {
	v, err := parseUint(s, 16)
	if err != nil {
		return word.Literal12Bit{}, err
	}
	lit, ok := word.NewLiteral12BitChecked(uint16(v))
	if !ok {
		return word.Literal12Bit{}, fmt.Errorf("%w: %q does not fit in 12 bits", ErrEncoding, s)
	}
	return lit, nil
}

func parseNibble(s string) (word.Nibble, error) {
	v, err := parseUint(s, 8)
	if err != nil {
		return word.Nibble{}, err
	}
	n, ok := word.NewNibbleChecked(uint8(v))
	if !ok {
		return word.Nibble{}, fmt.Errorf("%w: %q does not fit in 4 bits", ErrEncoding, s)
	}
	return n, nil
}

// ParseInstruction parses the textual syntax produced by Instruction.String.
func ParseInstruction(s string) (Instruction, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Instruction{}, fmt.Errorf("%w: empty instruction", ErrEncoding)
	}
	mnemonic, args := fields[0], fields[1:]

	arity := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s wants %d operands, got %d", ErrEncoding, mnemonic, n, len(args))
		}
		return nil
	}
	threeRegs := func() (register.Register, register.Register, register.Register, error) {
		if err := arity(3); err != nil {
			return 0, 0, 0, err
		}
		r1, err := parseRegister(args[0])
		if err != nil {
			return 0, 0, 0, err
		}
		r2, err := parseRegister(args[1])
		if err != nil {
			return 0, 0, 0, err
		}
		r3, err := parseRegister(args[2])
		if err != nil {
			return 0, 0, 0, err
		}
		return r1, r2, r3, nil
	}

	switch mnemonic {
	case "Imm":
		if err := arity(2); err != nil {
			return Instruction{}, err
		}
		reg, err := parseRegister(args[0])
		if err != nil {
			return Instruction{}, err
		}
		lit, err := parseLiteral12(args[1])
		if err != nil {
			return Instruction{}, err
		}
		return NewImm(reg, lit), nil
	case "Add":
		r1, r2, r3, err := threeRegs()
		if err != nil {
			return Instruction{}, err
		}
		return NewAdd(r1, r2, r3), nil
	case "Sub":
		r1, r2, r3, err := threeRegs()
		if err != nil {
			return Instruction{}, err
		}
		return NewSub(r1, r2, r3), nil
	case "AddImm", "AddImmSigned":
		if err := arity(2); err != nil {
			return Instruction{}, err
		}
		reg, err := parseRegister(args[0])
		if err != nil {
			return Instruction{}, err
		}
		lit, err := parseLiteral7(args[1])
		if err != nil {
			return Instruction{}, err
		}
		if mnemonic == "AddImm" {
			return NewAddImm(reg, lit), nil
		}
		return NewAddImmSigned(reg, lit), nil
	case "ShiftLeft", "ShiftRightLogical", "ShiftRightArithmetic", "AddIf", "LoadStackOffset", "System":
		if err := arity(3); err != nil {
			return Instruction{}, err
		}
		r1, err := parseRegister(args[0])
		if err != nil {
			return Instruction{}, err
		}
		r2, err := parseRegister(args[1])
		if err != nil {
			return Instruction{}, err
		}
		n, err := parseNibble(args[2])
		if err != nil {
			return Instruction{}, err
		}
		switch mnemonic {
		case "ShiftLeft":
			return NewShiftLeft(r1, r2, n), nil
		case "ShiftRightLogical":
			return NewShiftRightLogical(r1, r2, n), nil
		case "ShiftRightArithmetic":
			return NewShiftRightArithmetic(r1, r2, n), nil
		case "AddIf":
			return NewAddIf(r1, r2, n), nil
		case "LoadStackOffset":
			return NewLoadStackOffset(r1, r2, n), nil
		default:
			return NewSystem(r1, r2, n), nil
		}
	case "Load":
		r1, r2, r3, err := threeRegs()
		if err != nil {
			return Instruction{}, err
		}
		return NewLoad(r1, r2, r3), nil
	case "Store":
		r1, r2, r3, err := threeRegs()
		if err != nil {
			return Instruction{}, err
		}
		return NewStore(r1, r2, r3), nil
	case "Test":
		if err := arity(3); err != nil {
			return Instruction{}, err
		}
		r1, err := parseRegister(args[0])
		if err != nil {
			return Instruction{}, err
		}
		r2, err := parseRegister(args[1])
		if err != nil {
			return Instruction{}, err
		}
		t, err := ParseTestOp(args[2])
		if err != nil {
			return Instruction{}, err
		}
		return NewTest(r1, r2, t), nil
	case "Jump", "JumpOffset":
		if err := arity(1); err != nil {
			return Instruction{}, err
		}
		lit, err := parseLiteral10(args[0])
		if err != nil {
			return Instruction{}, err
		}
		if mnemonic == "Jump" {
			return NewJump(lit), nil
		}
		return NewJumpOffset(lit), nil
	case "SetAndSave", "AddAndSave":
		r1, r2, r3, err := threeRegs()
		if err != nil {
			return Instruction{}, err
		}
		if mnemonic == "SetAndSave" {
			return NewSetAndSave(r1, r2, r3), nil
		}
		return NewAddAndSave(r1, r2, r3), nil
	case "Stack":
		if err := arity(3); err != nil {
			return Instruction{}, err
		}
		r1, err := parseRegister(args[0])
		if err != nil {
			return Instruction{}, err
		}
		r2, err := parseRegister(args[1])
		if err != nil {
			return Instruction{}, err
		}
		s, err := ParseStackOp(args[2])
		if err != nil {
			return Instruction{}, err
		}
		return NewStack(r1, r2, s), nil
	case "Invalid":
		if err := arity(1); err != nil {
			return Instruction{}, err
		}
		v, err := parseUint(args[0], 16)
		if err != nil {
			return Instruction{}, err
		}
		return NewInvalid(uint16(v)), nil
	default:
		return Instruction{}, fmt.Errorf("%w: unknown mnemonic %q", ErrEncoding, mnemonic)
	}
}
