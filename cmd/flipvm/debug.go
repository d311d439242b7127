package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bassosimone/flipvm/pkg/machine"
	"github.com/bassosimone/flipvm/pkg/register"
	"github.com/spf13/cobra"
)

func newDebugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug <image>",
		Short: "Interactively single-step a binary image, with toggleable breakpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := readImage(args[0])
			if err != nil {
				return err
			}
			m, err := newMachine(image)
			if err != nil {
				return err
			}
			return runDebugLoop(m)
		},
	}
	return cmd
}

// runDebugLoop implements an interactive single-step/breakpoint REPL,
// grounded on KTStephano-GVM's execProgramDebugMode: "n"/"next" steps
// once, "r"/"run" free-runs (via Machine.Run, which returns
// ErrBreakpoint at an armed address) until halt, fault, or breakpoint,
// and "b <addr>" toggles a breakpoint at a hex or decimal byte address.
func runDebugLoop(m *machine.Machine) error {
	fmt.Println("commands: n/next, r/run, b/break <addr>, quit")
	printState(m)

	reader := bufio.NewReader(os.Stdin)
	armed := make(map[uint32]struct{})

	for !m.IsHalted() {
		fmt.Print("-> ")
		raw, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line := strings.ToLower(strings.TrimSpace(raw))

		switch {
		case line == "n" || line == "next":
			if err := m.Step(); err != nil {
				return fmt.Errorf("flipvm: debug: %w", err)
			}
			printState(m)
		case line == "r" || line == "run":
			err := m.Run()
			if errors.Is(err, machine.ErrBreakpoint) {
				fmt.Println("breakpoint")
				printState(m)
				continue
			}
			if err != nil {
				return fmt.Errorf("flipvm: debug: %w", err)
			}
		case strings.HasPrefix(line, "b") || strings.HasPrefix(line, "break"):
			addr, err := parseBreakpointArg(line)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if _, ok := armed[addr]; ok {
				delete(armed, addr)
				m.RemoveBreakpoint(addr)
				fmt.Printf("removed breakpoint at 0x%04x\n", addr)
			} else {
				armed[addr] = struct{}{}
				m.AddBreakpoint(addr)
				fmt.Printf("set breakpoint at 0x%04x\n", addr)
			}
		case line == "quit" || line == "q":
			return nil
		default:
			fmt.Println("unknown command")
		}
	}
	fmt.Println("halted")
	printState(m)
	return nil
}

func parseBreakpointArg(line string) (uint32, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, errors.New("usage: b <addr>")
	}
	v, err := strconv.ParseUint(fields[1], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", fields[1], err)
	}
	return uint32(v), nil
}

func printState(m *machine.Machine) {
	fmt.Printf("pc=0x%04x a=%d b=%d c=%d m=%d sp=%d bp=%d compare=%v\n",
		m.Register(register.PC), m.Register(register.A), m.Register(register.B),
		m.Register(register.C), m.Register(register.M), m.Register(register.SP),
		m.Register(register.BP), m.TestFlag(register.Compare))
}
