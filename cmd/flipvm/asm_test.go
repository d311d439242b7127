package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bassosimone/flipvm/pkg/register"
)

// TestAssembleFileRunsToHalt exercises the asm+run path end-to-end: a
// small .flpasm program assembled through assembleFile, encoded through
// writeImage, then loaded and run via newMachine, produces the same
// register state as building the equivalent []op.Instruction directly
// (the CLI round-trip property from SPEC_FULL.md §8).
func TestAssembleFileRunsToHalt(t *testing.T) {
	src := "Imm A 11\nImm B 15\nAdd A B C\nSystem Zero Zero 1\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.flpasm")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	prog, err := assembleFile(path)
	if err != nil {
		t.Fatalf("assembleFile: %v", err)
	}
	if len(prog) != 4 {
		t.Fatalf("len(prog) = %d, want 4", len(prog))
	}

	imgPath := filepath.Join(dir, "prog.bin")
	if err := writeImage(imgPath, prog); err != nil {
		t.Fatalf("writeImage: %v", err)
	}

	image, err := readImage(imgPath)
	if err != nil {
		t.Fatalf("readImage: %v", err)
	}
	m, err := newMachine(image)
	if err != nil {
		t.Fatalf("newMachine: %v", err)
	}
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.Register(register.C); got != 26 {
		t.Fatalf("C = %d, want 26", got)
	}
	if !m.IsHalted() {
		t.Fatal("machine did not halt")
	}
}

// TestAssembleFileSkipsComments checks that a `;`-prefixed line does not
// become an instruction: only the two instruction lines are assembled.
func TestAssembleFileSkipsComments(t *testing.T) {
	src := "; a comment line\nImm A 11\nSystem Zero Zero 1\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.flpasm")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	prog, err := assembleFile(path)
	if err != nil {
		t.Fatalf("assembleFile: %v", err)
	}
	if len(prog) != 2 {
		t.Fatalf("len(prog) = %d, want 2 (comment line must not become an instruction)", len(prog))
	}
}
