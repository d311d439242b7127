package machine

import (
	"fmt"

	"github.com/bassosimone/flipvm/pkg/op"
	"github.com/bassosimone/flipvm/pkg/register"
)

// execute runs the decoded instruction i. selfPC is the byte address the
// instruction was fetched from, i.e. the live PC register's value before
// Step's implicit +2 — the base every PC-relative op (AddIf, JumpOffset,
// SetAndSave, AddAndSave) measures against, since a register read of PC
// performed by the instruction itself logically happens before that
// advance has taken effect for the instruction's own purposes.
func (m *Machine) execute(i op.Instruction, selfPC uint16) error {
	switch i.Kind {
	case op.Imm:
		m.SetRegister(i.Reg1, uint16(i.Lit12.Value))
	case op.Add:
		m.SetRegister(i.Reg3, m.Register(i.Reg1)+m.Register(i.Reg2))
	case op.Sub:
		m.SetRegister(i.Reg3, m.Register(i.Reg1)-m.Register(i.Reg2))
	case op.AddImm:
		m.SetRegister(i.Reg1, m.Register(i.Reg1)+uint16(i.Lit7.Value))
	case op.AddImmSigned:
		m.SetRegister(i.Reg1, m.Register(i.Reg1)+signExtend7(i.Lit7.AsSigned()))
	case op.ShiftLeft:
		m.SetRegister(i.Reg2, m.Register(i.Reg1)<<i.N.Value)
	case op.ShiftRightLogical:
		m.SetRegister(i.Reg2, m.Register(i.Reg1)>>i.N.Value)
	case op.ShiftRightArithmetic:
		m.SetRegister(i.Reg2, uint16(int16(m.Register(i.Reg1))>>i.N.Value))
	case op.Load:
		return m.execLoad(i)
	case op.Store:
		return m.execStore(i)
	case op.Test:
		m.SetFlag(register.Compare, i.TestOp.Eval(m.Register(i.Reg1), m.Register(i.Reg2)))
	case op.AddIf:
		return m.execAddIf(i, selfPC)
	case op.Jump:
		m.jumpTo(uint16(i.Lit10.Value) << 1)
	case op.JumpOffset:
		m.jumpTo(selfPC + i.Lit10.Value)
	case op.SetAndSave:
		m.SetRegister(i.Reg3, selfPC)
		m.setPossiblyPC(i.Reg1, m.Register(i.Reg2))
	case op.AddAndSave:
		m.SetRegister(i.Reg3, selfPC)
		m.setPossiblyPC(i.Reg1, m.readPCAware(i.Reg1, selfPC)+m.Register(i.Reg2))
	case op.Stack:
		return m.execStack(i)
	case op.LoadStackOffset:
		return m.execLoadStackOffset(i)
	case op.System:
		return m.execSystem(i)
	case op.Invalid:
		// A no-op: Invalid only ever appears as a trap operand that
		// control flow jumps over, never one that is actually executed.
	default:
		return fmt.Errorf("machine: unreachable instruction kind %v", i.Kind)
	}
	return nil
}

// readPCAware reads reg, substituting selfPC when reg is PC itself: a
// PC-relative op reading its own program counter as an operand means the
// address it was fetched from, not the live register already advanced
// by Step's implicit +2.
func (m *Machine) readPCAware(reg register.Register, selfPC uint16) uint16 {
	if reg == register.PC {
		return selfPC
	}
	return m.Register(reg)
}

// setPossiblyPC sets dest to v, also marking HasJumped when dest is PC.
// AddIf, SetAndSave and AddAndSave write their destination through it;
// the other instructions write registers with SetRegister, which never
// sets HasJumped, even when the register is PC.
func (m *Machine) setPossiblyPC(dest register.Register, v uint16) {
	m.SetRegister(dest, v)
	if dest == register.PC {
		m.SetFlag(register.HasJumped, true)
	}
}

// jumpTo sets PC to target and marks HasJumped.
func (m *Machine) jumpTo(target uint16) {
	m.SetRegister(register.PC, target)
	m.SetFlag(register.HasJumped, true)
}

func signExtend7(n int8) uint16 {
	return uint16(int16(n))
}

func (m *Machine) execLoad(i op.Instruction) error {
	addr := uint32(m.Register(i.Reg2)) | uint32(m.Register(i.Reg3))<<16
	v, err := m.mem.Read16(addr)
	if err != nil {
		return err
	}
	m.SetRegister(i.Reg1, v)
	return nil
}

func (m *Machine) execStore(i op.Instruction) error {
	addr := uint32(m.Register(i.Reg2)) | uint32(m.Register(i.Reg3))<<16
	return m.mem.Write16(addr, m.Register(i.Reg1))
}

// execAddIf implements: if Compare, D <- S + (n << 1); else no-op. The
// shift by 1 makes the operand count instructions, not bytes. S is read
// PC-aware, since the common branch idiom AddIf(PC, PC, n) measures the
// offset from the branch instruction's own address.
func (m *Machine) execAddIf(i op.Instruction, selfPC uint16) error {
	if !m.TestFlag(register.Compare) {
		return nil
	}
	m.setPossiblyPC(i.Reg1, m.readPCAware(i.Reg2, selfPC)+(uint16(i.N.Value)<<1))
	return nil
}

func (m *Machine) execLoadStackOffset(i op.Instruction) error {
	addr := uint32(m.Register(i.Reg2) - (uint16(i.N.Value) << 1))
	v, err := m.mem.Read16(addr)
	if err != nil {
		return err
	}
	m.SetRegister(i.Reg1, v)
	return nil
}

func (m *Machine) execSystem(i op.Instruction) error {
	fn := m.handlers[i.N.Value]
	if fn == nil {
		return fmt.Errorf("%w: 0x%x", ErrUnknownSignal, i.N.Value)
	}
	return fn(m, m.Register(i.Reg1))
}
