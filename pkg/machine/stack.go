package machine

import (
	"github.com/bassosimone/flipvm/pkg/op"
	"github.com/bassosimone/flipvm/pkg/register"
)

// execStack implements the SP-relative stack operations. sp names the
// register holding the stack pointer (not necessarily register.SP: the
// encoding leaves that choice to the caller), which grows upward: the
// most recently pushed word lives at address sp-2.
func (m *Machine) execStack(i op.Instruction) error {
	reg, sp := i.Reg1, i.Reg2
	top := func() uint32 { return uint32(m.Register(sp) - 2) }

	switch i.StackOp {
	case op.Push:
		if err := m.mem.Write16(uint32(m.Register(sp)), m.Register(reg)); err != nil {
			return err
		}
		m.SetRegister(sp, m.Register(sp)+2)
		return nil
	case op.Pop:
		newSP := m.Register(sp) - 2
		v, err := m.mem.Read16(uint32(newSP))
		if err != nil {
			return err
		}
		m.SetRegister(sp, newSP)
		m.SetRegister(reg, v)
		return nil
	case op.Peek:
		v, err := m.mem.Read16(top())
		if err != nil {
			return err
		}
		m.SetRegister(reg, v)
		return nil
	case op.Dup:
		v, err := m.mem.Read16(top())
		if err != nil {
			return err
		}
		if err := m.mem.Write16(uint32(m.Register(sp)), v); err != nil {
			return err
		}
		m.SetRegister(sp, m.Register(sp)+2)
		return nil
	case op.Swap:
		addrTop, addrSecond := top(), top()-2
		a, err := m.mem.Read16(addrTop)
		if err != nil {
			return err
		}
		b, err := m.mem.Read16(addrSecond)
		if err != nil {
			return err
		}
		if err := m.mem.Write16(addrTop, b); err != nil {
			return err
		}
		return m.mem.Write16(addrSecond, a)
	case op.Rotate:
		addrTop, addrSecond, addrThird := top(), top()-2, top()-4
		t, err := m.mem.Read16(addrTop)
		if err != nil {
			return err
		}
		s, err := m.mem.Read16(addrSecond)
		if err != nil {
			return err
		}
		th, err := m.mem.Read16(addrThird)
		if err != nil {
			return err
		}
		// top becomes third: shift second and third up, drop old top in.
		if err := m.mem.Write16(addrTop, s); err != nil {
			return err
		}
		if err := m.mem.Write16(addrSecond, th); err != nil {
			return err
		}
		return m.mem.Write16(addrThird, t)
	case op.StackAdd:
		a, newSP1, err := m.pop(sp)
		if err != nil {
			return err
		}
		b, newSP2, err := m.popFrom(newSP1)
		if err != nil {
			return err
		}
		m.SetRegister(sp, newSP2)
		return m.push(sp, a+b)
	case op.StackSub:
		a, newSP1, err := m.pop(sp)
		if err != nil {
			return err
		}
		b, newSP2, err := m.popFrom(newSP1)
		if err != nil {
			return err
		}
		m.SetRegister(sp, newSP2)
		return m.push(sp, b-a)
	default:
		return nil
	}
}

// pop reads and removes the top word for stack pointer register sp,
// returning the value and the stack pointer's new value.
func (m *Machine) pop(sp register.Register) (uint16, uint16, error) {
	newSP := m.Register(sp) - 2
	v, err := m.mem.Read16(uint32(newSP))
	return v, newSP, err
}

// popFrom is like pop but starts from an SP value not yet committed to
// the register (used to chain two pops before writing SP back once).
func (m *Machine) popFrom(sp uint16) (uint16, uint16, error) {
	newSP := sp - 2
	v, err := m.mem.Read16(uint32(newSP))
	return v, newSP, err
}

// push writes v at the current top-of-stack for sp and advances it.
func (m *Machine) push(sp register.Register, v uint16) error {
	if err := m.mem.Write16(uint32(m.Register(sp)), v); err != nil {
		return err
	}
	m.SetRegister(sp, m.Register(sp)+2)
	return nil
}
