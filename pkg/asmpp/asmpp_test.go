package asmpp_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/bassosimone/flipvm/pkg/asmpp"
)

func TestCommentLinePassthrough(t *testing.T) {
	pp := asmpp.New()
	const line = "; this is a comment !undefined .undefined"
	got, err := pp.Resolve(line)
	if err != nil {
		t.Fatal(err)
	}
	if got != line {
		t.Fatalf("got %q, want unchanged %q", got, line)
	}
}

func TestVariableSubstitution(t *testing.T) {
	pp := asmpp.New()
	pp.DefineVariable("base", "0x1000")
	got, err := pp.Resolve("Imm A !base")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Imm A 0x1000" {
		t.Fatalf("got %q, want %q", got, "Imm A 0x1000")
	}
}

func TestUnknownVariableFails(t *testing.T) {
	pp := asmpp.New()
	if _, err := pp.Resolve("Imm A !missing"); !errors.Is(err, asmpp.ErrUnknownVariable) {
		t.Fatalf("want ErrUnknownVariable, got %v", err)
	}
}

func TestUnknownMacroFails(t *testing.T) {
	pp := asmpp.New()
	if _, err := pp.Resolve(".nope 1 2"); !errors.Is(err, asmpp.ErrUnknownMacro) {
		t.Fatalf("want ErrUnknownMacro, got %v", err)
	}
}

func TestMacroDispatch(t *testing.T) {
	pp := asmpp.New()
	pp.DefineMacro("double", func(pp *asmpp.PreProcessor, args []string) ([]string, error) {
		return append(args, args...), nil
	})
	got, err := pp.Resolve(".double A B")
	if err != nil {
		t.Fatal(err)
	}
	if got != "A B A B" {
		t.Fatalf("got %q, want %q", got, "A B A B")
	}
}

// TestMacroRecursion covers universal property 9: a macro that itself
// calls Resolve on its own expansion recurses correctly, including
// substituting variables in text the macro generated.
func TestMacroRecursion(t *testing.T) {
	pp := asmpp.New()
	pp.DefineVariable("answer", "42")
	pp.DefineMacro("constant", func(pp *asmpp.PreProcessor, args []string) ([]string, error) {
		if len(args) != 1 {
			return nil, errors.New("asmpp: .constant takes exactly one register")
		}
		resolved, err := pp.Resolve("Imm " + args[0] + " !answer")
		if err != nil {
			return nil, err
		}
		return []string{resolved}, nil
	})
	got, err := pp.Resolve(".constant A")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Imm A 42" {
		t.Fatalf("got %q, want %q", got, "Imm A 42")
	}
}

func TestResolveAllPreservesLineNumbers(t *testing.T) {
	pp := asmpp.New()
	pp.DefineVariable("x", "1")
	src := "Imm A !x\n; comment\nImm B !x"
	got, err := pp.ResolveAll(src)
	if err != nil {
		t.Fatal(err)
	}
	want := "Imm A 1\n; comment\nImm B 1"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestResolveAllReportsLineNumberOnError(t *testing.T) {
	pp := asmpp.New()
	src := "Imm A 1\nImm B !missing"
	_, err := pp.ResolveAll(src)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, asmpp.ErrUnknownVariable) {
		t.Fatalf("want ErrUnknownVariable, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("want the error to name line 2, got %v", err)
	}
}
