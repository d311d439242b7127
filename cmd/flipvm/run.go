package main

import (
	"fmt"
	"os"

	"github.com/bassosimone/flipvm/pkg/register"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var trace bool
	cmd := &cobra.Command{
		Use:   "run <image>",
		Short: "Load a binary image and run it to completion",
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
			if trace {
				m.SetTrace(os.Stderr)
			}
			if err := m.Run(); err != nil {
				return fmt.Errorf("flipvm: run: %w", err)
			}
			fmt.Printf("halted: A=%d B=%d C=%d M=%d SP=%d BP=%d PC=0x%04x\n",
				m.Register(register.A), m.Register(register.B), m.Register(register.C),
				m.Register(register.M), m.Register(register.SP), m.Register(register.BP),
				m.Register(register.PC))
			return nil
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "log each decoded instruction to stderr before executing it")
	return cmd
}
