package main

import (
	"fmt"
	"os"

	"github.com/bassosimone/flipvm/pkg/machine"
	"github.com/bassosimone/flipvm/pkg/register"
	"github.com/bassosimone/flipvm/pkg/word"
)

// sighalt is the halt signal convention used throughout the test suite
// and the pkg/lang code generator's epilogue.
const sighalt = 0x01

// defaultMemSize and defaultStackBase follow the end-to-end scenario
// table's convention: a program loaded at 0 with SP parked 3072 bytes
// in, leaving the last kilobyte of a 4-kilobyte arena for the stack to
// grow into.
const (
	defaultMemSize   = 1024 * 4
	defaultStackBase = 1024 * 3
)

// newMachine builds a machine.Machine with the halt-on-SIGHALT
// convention wired in, loads image at byte offset 0, and seeds SP at
// defaultStackBase so Stack push/pop has room to grow.
func newMachine(image []byte) (*machine.Machine, error) {
	m := machine.New(defaultMemSize)
	for addr, b := range image {
		if err := m.Memory().WriteByte(uint32(addr), b); err != nil {
			return nil, fmt.Errorf("flipvm: loading image: %w", err)
		}
	}
	m.SetRegister(register.SP, defaultStackBase)
	sig, _ := word.NewNibbleChecked(sighalt)
	m.DefineHandler(sig, func(m *machine.Machine, _ uint16) error {
		m.Halt()
		return nil
	})
	return m, nil
}

func readImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("flipvm: reading %s: %w", path, err)
	}
	return data, nil
}
