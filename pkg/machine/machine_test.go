package machine_test

import (
	"testing"

	"github.com/bassosimone/flipvm/pkg/machine"
	"github.com/bassosimone/flipvm/pkg/op"
	"github.com/bassosimone/flipvm/pkg/register"
	"github.com/bassosimone/flipvm/pkg/word"
)

// SIGHALT is the halt convention used throughout these scenarios.
const SIGHALT = 0x01

func lit7(t *testing.T, v uint8) word.Literal7Bit {
	t.Helper()
	lit, ok := word.NewLiteral7BitChecked(v)
	if !ok {
		t.Fatalf("literal7 %d out of range", v)
	}
	return lit
}

func signed7(t *testing.T, v int8) word.Literal7Bit {
	t.Helper()
	lit, ok := word.FromSigned(v)
	if !ok {
		t.Fatalf("signed literal7 %d out of range", v)
	}
	return lit
}

func lit12(t *testing.T, v uint16) word.Literal12Bit {
	t.Helper()
	lit, ok := word.NewLiteral12BitChecked(v)
	if !ok {
		t.Fatalf("literal12 %d out of range", v)
	}
	return lit
}

func nibble(t *testing.T, v uint8) word.Nibble {
	t.Helper()
	n, ok := word.NewNibbleChecked(v)
	if !ok {
		t.Fatalf("nibble %d out of range", v)
	}
	return n
}

func sighalt(t *testing.T) word.Nibble {
	return nibble(t, SIGHALT)
}

// run loads program at address 0, sets SP per spec.md's scenario table,
// registers the halt handler, and runs to completion.
func run(t *testing.T, prog []op.Instruction) *machine.Machine {
	t.Helper()
	m := machine.New(1024 * 4)
	if err := m.LoadProgram(prog, 0); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	m.SetRegister(register.SP, 1024*3)
	m.DefineHandler(nibble(t, SIGHALT), func(m *machine.Machine, _ uint16) error {
		m.Halt()
		return nil
	})
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return m
}

func TestScenarioAdd(t *testing.T) {
	m := run(t, []op.Instruction{
		op.NewImm(register.A, lit12(t, 11)),
		op.NewImm(register.B, lit12(t, 15)),
		op.NewAdd(register.A, register.B, register.C),
		op.NewSystem(register.Zero, register.Zero, sighalt(t)),
	})
	if got := m.Register(register.C); got != 26 {
		t.Fatalf("C = %d, want 26", got)
	}
}

func TestScenarioSub(t *testing.T) {
	m := run(t, []op.Instruction{
		op.NewImm(register.A, lit12(t, 20)),
		op.NewImm(register.B, lit12(t, 15)),
		op.NewSub(register.A, register.B, register.C),
		op.NewSystem(register.Zero, register.Zero, sighalt(t)),
	})
	if got := m.Register(register.C); got != 5 {
		t.Fatalf("C = %d, want 5", got)
	}
}

func TestScenarioSubUnderflow(t *testing.T) {
	m := run(t, []op.Instruction{
		op.NewImm(register.A, lit12(t, 1)),
		op.NewImm(register.B, lit12(t, 57)),
		op.NewSub(register.A, register.B, register.C),
		op.NewSystem(register.Zero, register.Zero, sighalt(t)),
	})
	want := uint16(65535 - 55)
	if got := m.Register(register.C); got != want {
		t.Fatalf("C = %d, want %d", got, want)
	}
}

func TestScenarioAddImmSignedToZero(t *testing.T) {
	m := run(t, []op.Instruction{
		op.NewImm(register.C, lit12(t, 21)),
		op.NewAddImmSigned(register.C, signed7(t, -21)),
		op.NewSystem(register.Zero, register.Zero, sighalt(t)),
	})
	if got := m.Register(register.C); got != 0 {
		t.Fatalf("C = %d, want 0", got)
	}
}

func TestScenarioLoopControl(t *testing.T) {
	m := run(t, []op.Instruction{
		op.NewImm(register.A, lit12(t, 5)),
		// loop: (word offset 1, byte offset 2)
		op.NewTest(register.A, register.Zero, op.Neq),
		// AddIf skips over the single exit-jump word below, landing on
		// the loop body when Compare is set. The offset is measured from
		// this instruction's own address, so clearing the 2-byte Jump
		// that follows takes a nibble of 2, not 1.
		op.NewAddIf(register.PC, register.PC, nibble(t, 2)),
		op.NewImm(register.PC, lit12(t, 14)),
		op.NewAddImmSigned(register.A, signed7(t, -1)),
		op.NewAddImm(register.B, lit7(t, 1)),
		op.NewImm(register.PC, lit12(t, 2)),
		// end, byte offset 14
		op.NewSystem(register.Zero, register.Zero, sighalt(t)),
	})
	if got := m.Register(register.B); got != 5 {
		t.Fatalf("B = %d, want 5", got)
	}
}

func TestScenarioJumpOverInvalid(t *testing.T) {
	m := run(t, []op.Instruction{
		op.NewImm(register.PC, lit12(t, 10)),
		op.NewInvalid(0),
		op.NewInvalid(0),
		op.NewInvalid(0),
		op.NewInvalid(0),
		op.NewSystem(register.Zero, register.Zero, sighalt(t)),
	})
	if got := m.Register(register.PC); got != 12 {
		t.Fatalf("PC = %d, want 12", got)
	}
}

func TestAddIfUnit(t *testing.T) {
	// Universal property 5: AddIf(PC, PC, n) advances PC by exactly 2n
	// bytes when Compare is set.
	m := machine.New(1024)
	m.SetFlag(register.Compare, true)
	m.SetRegister(register.PC, 100)
	before := m.Register(register.PC)
	instr := op.NewAddIf(register.PC, register.PC, nibble(t, 5))
	prog := []op.Instruction{instr}
	if err := m.LoadProgram(prog, 100); err != nil {
		t.Fatal(err)
	}
	if err := m.Step(); err != nil {
		t.Fatal(err)
	}
	// AddIf reads its own PC-valued source operand PC-aware: the value is
	// the instruction's pre-fetch address, not the live register already
	// advanced by Step's implicit +2. So PC ends at before + 2n exactly,
	// with Step's own +2 entirely overwritten rather than added to.
	if got := m.Register(register.PC); got != before+2*5 {
		t.Fatalf("PC = %d, want %d", got, before+2*5)
	}
}

func TestZeroRegisterWritesDiscarded(t *testing.T) {
	m := machine.New(1024)
	m.SetRegister(register.Zero, 42)
	if got := m.Register(register.Zero); got != 0 {
		t.Fatalf("Zero = %d, want 0", got)
	}
}

func TestFlowJumpOffset(t *testing.T) {
	// JumpOffset measures from its own pre-fetch address (byte 6, after
	// the three leading NOPs), so an offset of 10 lands exactly on the
	// System word at byte 16, skipping the four Invalid traps in between;
	// PC reads 18 once that System word has been fetched.
	m := run(t, []op.Instruction{
		op.NewAdd(register.Zero, register.Zero, register.Zero),
		op.NewAdd(register.Zero, register.Zero, register.Zero),
		op.NewAdd(register.Zero, register.Zero, register.Zero),
		func() op.Instruction {
			lit, ok := word.NewLiteral10BitChecked(10)
			if !ok {
				t.Fatal("literal10 out of range")
			}
			return op.NewJumpOffset(lit)
		}(),
		op.NewInvalid(0),
		op.NewInvalid(0),
		op.NewInvalid(0),
		op.NewInvalid(0),
		op.NewSystem(register.Zero, register.Zero, sighalt(t)),
	})
	if got := m.Register(register.PC); got != 18 {
		t.Fatalf("PC = %d, want 18", got)
	}
}

func TestFlowJumpAndLinkSet(t *testing.T) {
	// SetAndSave's link capture is the instruction's own pre-fetch
	// address: the SetAndSave word sits at byte 2, so C receives 2, while
	// PC <- B(4) lands on the System word.
	m := run(t, []op.Instruction{
		op.NewImm(register.B, lit12(t, 4)),
		op.NewSetAndSave(register.PC, register.B, register.C),
		op.NewSystem(register.Zero, register.Zero, sighalt(t)),
	})
	if got := m.Register(register.C); got != 2 {
		t.Fatalf("C = %d, want 2", got)
	}
}

func TestFlowJumpAndLinkAdd(t *testing.T) {
	// AddAndSave: link <- selfPC(2); PC <- selfPC(2) + A(8) = 10, landing
	// on the System word past three Invalid traps.
	m := run(t, []op.Instruction{
		op.NewImm(register.A, lit12(t, 8)),
		op.NewAddAndSave(register.PC, register.A, register.B),
		op.NewInvalid(0),
		op.NewInvalid(0),
		op.NewInvalid(0),
		op.NewSystem(register.Zero, register.Zero, sighalt(t)),
	})
	if got := m.Register(register.B); got != 2 {
		t.Fatalf("B = %d, want 2", got)
	}
}

func TestStackPushPop(t *testing.T) {
	m := machine.New(1024)
	m.SetRegister(register.SP, 512)
	m.SetRegister(register.A, 0xBEEF)
	prog := []op.Instruction{
		op.NewStack(register.A, register.SP, op.Push),
		op.NewStack(register.B, register.SP, op.Pop),
		op.NewSystem(register.Zero, register.Zero, sighalt(t)),
	}
	if err := m.LoadProgram(prog, 0); err != nil {
		t.Fatal(err)
	}
	m.DefineHandler(sighalt(t), func(m *machine.Machine, _ uint16) error {
		m.Halt()
		return nil
	})
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if got := m.Register(register.B); got != 0xBEEF {
		t.Fatalf("B = 0x%x, want 0xbeef", got)
	}
	if got := m.Register(register.SP); got != 512 {
		t.Fatalf("SP = %d, want 512 (balanced push/pop)", got)
	}
}

func TestUnknownSignalFaults(t *testing.T) {
	m := machine.New(1024)
	prog := []op.Instruction{
		op.NewSystem(register.Zero, register.Zero, nibble(t, 0x2)),
	}
	if err := m.LoadProgram(prog, 0); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err == nil {
		t.Fatal("expected unknown-signal fault")
	}
}
