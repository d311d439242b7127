// Package machine contains the VM's execution engine: the register file,
// flag word, memory, halt flag, and host-signal dispatch table, along
// with the fetch-decode-execute cycle (Step/Run).
package machine

import (
	"fmt"
	"io"

	"github.com/bassosimone/flipvm/pkg/mem"
	"github.com/bassosimone/flipvm/pkg/op"
	"github.com/bassosimone/flipvm/pkg/register"
	"github.com/bassosimone/flipvm/pkg/word"
)

// ErrUnknownSignal is raised when System names a signal with no
// registered handler.
var ErrUnknownSignal = fmt.Errorf("machine: unknown signal")

// ErrBreakpoint is returned by Run when execution stops at a registered
// breakpoint instead of halting or faulting.
var ErrBreakpoint = fmt.Errorf("machine: breakpoint hit")

// HandlerFunc is a host signal handler. It receives the machine (which it
// may mutate freely, including setting halt) and the packed argument
// word described on Machine.DefineHandler.
type HandlerFunc func(m *Machine, arg uint16) error

// numSignals is the size of the dense handler table (a 4-bit signal
// code fits in 16 slots).
const numSignals = 16

// Machine is a VM instance: register file, flag word, memory map, halt
// flag, and handler table. It is not goroutine-safe; a single goroutine
// should drive Step/Run.
type Machine struct {
	registers [register.NumRegisters]uint16
	flags     uint16
	mem       *mem.Map
	halted    bool
	handlers  [numSignals]HandlerFunc

	trace       io.Writer
	breakpoints map[uint32]struct{}
}

// New creates a machine with a single mem.LinearMemory of memSize bytes
// mapped at address 0 — the convenience constructor used throughout the
// test suite.
func New(memSize int) *Machine {
	m := &Machine{mem: mem.NewMap()}
	if err := m.mem.Mount(0, uint32(memSize), mem.NewLinearMemory(uint32(memSize))); err != nil {
		panic(err) // memSize-sized mount into a fresh map cannot overlap
	}
	return m
}

// NewWithMap creates a machine over a caller-constructed memory map,
// letting the host mix LinearMemory with other devices (mem.ConsoleDevice,
// for instance) before running any code.
func NewWithMap(m *mem.Map) *Machine {
	return &Machine{mem: m}
}

// Memory returns the machine's memory map, for direct inspection (tests)
// or for mounting additional devices before Run.
func (m *Machine) Memory() *mem.Map {
	return m.mem
}

// SetRegister writes v to reg. Writes to register.Zero are discarded.
func (m *Machine) SetRegister(reg register.Register, v uint16) {
	if reg == register.Zero {
		return
	}
	m.registers[reg] = v
}

// Register reads reg's current value. register.Zero always reads 0.
func (m *Machine) Register(reg register.Register) uint16 {
	if reg == register.Zero {
		return 0
	}
	return m.registers[reg]
}

// TestFlag reports whether f is currently set.
func (m *Machine) TestFlag(f register.Flag) bool {
	return m.flags&uint16(f) != 0
}

// SetFlag sets or clears f.
func (m *Machine) SetFlag(f register.Flag, v bool) {
	if v {
		m.flags |= uint16(f)
	} else {
		m.flags &^= uint16(f)
	}
}

// IsHalted reports whether the machine has halted.
func (m *Machine) IsHalted() bool {
	return m.halted
}

// Halt sets the halt flag. Signal handlers call this to stop Run.
func (m *Machine) Halt() {
	m.halted = true
}

// Reset clears registers, flags, and the halt flag. The memory map and
// handler table are left untouched.
func (m *Machine) Reset() {
	m.registers = [register.NumRegisters]uint16{}
	m.flags = 0
	m.halted = false
}

// DefineHandler registers fn as the handler for signal sig, keyed by a
// 4-bit Nibble. The handler argument word is packed as
// Machine.Register(arg1Field) — see System's doc in pkg/op; sig's own
// Nibble carries no payload.
func (m *Machine) DefineHandler(sig word.Nibble, fn HandlerFunc) {
	m.handlers[sig.Value] = fn
}

// SetTrace makes Step log each decoded instruction to w before executing
// it, in the teacher's cmd/vm -v style.
func (m *Machine) SetTrace(w io.Writer) {
	m.trace = w
}

// AddBreakpoint arms a breakpoint at byte address pc: Run stops and
// returns ErrBreakpoint the next time PC reaches pc before fetch.
func (m *Machine) AddBreakpoint(pc uint32) {
	if m.breakpoints == nil {
		m.breakpoints = make(map[uint32]struct{})
	}
	m.breakpoints[pc] = struct{}{}
}

// RemoveBreakpoint disarms a breakpoint previously set with AddBreakpoint.
func (m *Machine) RemoveBreakpoint(pc uint32) {
	delete(m.breakpoints, pc)
}

func (m *Machine) atBreakpoint() bool {
	if len(m.breakpoints) == 0 {
		return false
	}
	_, ok := m.breakpoints[uint32(m.Register(register.PC))]
	return ok
}

// LoadProgram encodes prog and writes it word-by-word, little-endian, at
// byte offset at.
func (m *Machine) LoadProgram(prog []op.Instruction, at uint32) error {
	addr := at
	for _, instr := range prog {
		if err := m.mem.Write16(addr, instr.Encode()); err != nil {
			return fmt.Errorf("machine: loading program at 0x%x: %w", addr, err)
		}
		addr += 2
	}
	return nil
}

// Step performs exactly one fetch-decode-execute cycle:
//
//  1. read the word at PC
//  2. PC += 2
//  3. clear HasJumped
//  4. decode
//  5. execute
//
// Any jump executed in step 5 overwrites the PC already advanced in
// step 2 with an absolute target and sets HasJumped. Step never reads
// HasJumped: every Step performs step 2, and step 3 clears the flag.
func (m *Machine) Step() error {
	pc := m.Register(register.PC)
	word, err := m.mem.Read16(uint32(pc))
	if err != nil {
		return err
	}
	m.SetRegister(register.PC, pc+2)
	m.SetFlag(register.HasJumped, false)

	instr, err := op.Decode(word)
	if err != nil {
		return err
	}
	if m.trace != nil {
		fmt.Fprintf(m.trace, "machine: pc=0x%04x word=0x%04x %s\n", pc, word, instr)
	}
	return m.execute(instr, pc)
}

// Run steps the machine until it halts, faults, or hits a breakpoint.
func (m *Machine) Run() error {
	for !m.halted {
		if m.atBreakpoint() {
			return ErrBreakpoint
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}
