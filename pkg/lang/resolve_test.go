package lang

import (
	"errors"
	"testing"
)

func resolve(t *testing.T, src string) (*resolution, error) {
	t.Helper()
	p, err := NewParser(NewLexer(src))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	return resolveProgram(prog)
}

func TestResolveRequiresMain(t *testing.T) {
	_, err := resolve(t, "fn foo() {}")
	if err == nil {
		t.Fatal("expected an error when no main is declared")
	}
}

func TestResolveDuplicateFunctionFails(t *testing.T) {
	_, err := resolve(t, "fn main() {} fn main() {}")
	if !errors.Is(err, ErrRedeclared) {
		t.Fatalf("err = %v, want ErrRedeclared", err)
	}
}

func TestResolveUndeclaredIdentFails(t *testing.T) {
	_, err := resolve(t, "fn main() { let x = y; }")
	if !errors.Is(err, ErrUndeclared) {
		t.Fatalf("err = %v, want ErrUndeclared", err)
	}
}

func TestResolveDuplicateLetInSameScopeFails(t *testing.T) {
	_, err := resolve(t, "fn main() { let x = 1; let x = 2; }")
	if !errors.Is(err, ErrRedeclared) {
		t.Fatalf("err = %v, want ErrRedeclared", err)
	}
}

func TestResolveShadowingAcrossBlocksIsAllowed(t *testing.T) {
	_, err := resolve(t, "fn main() { let x = 1; if (1 < 2) { let x = 2; } }")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveCallToUndeclaredFunctionFails(t *testing.T) {
	_, err := resolve(t, "fn main() { let x = foo(); }")
	if !errors.Is(err, ErrUndeclared) {
		t.Fatalf("err = %v, want ErrUndeclared", err)
	}
}

func TestResolveTwoParameterFunctionFails(t *testing.T) {
	_, err := resolve(t, "fn add(x, y) { return x + y; } fn main() {}")
	if err == nil {
		t.Fatal("expected an error for a function declaring more than one parameter")
	}
}

func TestResolveTwoArgumentCallFails(t *testing.T) {
	_, err := resolve(t, "fn id(x) { return x; } fn main() { let a = id(1, 2); }")
	if err == nil {
		t.Fatal("expected an error for a call passing more than one argument")
	}
}

func TestResolveAssignUndeclaredFails(t *testing.T) {
	_, err := resolve(t, "fn main() { x = 1; }")
	if !errors.Is(err, ErrUndeclared) {
		t.Fatalf("err = %v, want ErrUndeclared", err)
	}
}

func TestResolveTooManyLocalsFails(t *testing.T) {
	var src string
	src = "fn main() {"
	for i := 0; i < maxSlots+1; i++ {
		src += "let v" + string(rune('a'+i)) + " = 1;"
	}
	src += "}"
	_, err := resolve(t, src)
	if err == nil {
		t.Fatal("expected an error when a function declares more locals than fit in the slot space")
	}
}

func TestResolveAssignsDistinctSlotsInDeclarationOrder(t *testing.T) {
	res, err := resolve(t, "fn main() { let a = 1; let b = 2; }")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.funcSlots["main"] != 2 {
		t.Fatalf("funcSlots[main] = %d, want 2", res.funcSlots["main"])
	}
}
