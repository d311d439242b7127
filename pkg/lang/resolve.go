package lang

import (
	"errors"
	"fmt"

	"github.com/bassosimone/flipvm/pkg/lang/ast"
)

// ErrUndeclared is returned when an identifier is referenced before any
// enclosing scope declares it.
var ErrUndeclared = errors.New("lang: undeclared identifier")

// ErrRedeclared is returned when a let binding or parameter shadows an
// existing name already declared in the very same scope.
var ErrRedeclared = errors.New("lang: identifier redeclared in the same scope")

// maxSlots bounds how many stack slots (params plus lets) a function may
// declare. Slot i lives at BP+i*2, computed through AddImm's 7-bit
// zero-extended immediate, which has ample headroom; 15 keeps frames
// small without forcing any real program to split functions artificially.
const maxSlots = 15

// scope is a parent-chained symbol table, one per function/block level:
// lookups walk outward to the enclosing scope when a name is missing
// locally.
type scope struct {
	parent *scope
	vars   map[string]int
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: make(map[string]int)}
}

func (s *scope) lookup(name string) (int, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if slot, ok := cur.vars[name]; ok {
			return slot, true
		}
	}
	return 0, false
}

func (s *scope) define(name string, slot int) bool {
	if _, ok := s.vars[name]; ok {
		return false
	}
	s.vars[name] = slot
	return true
}

// resolution is the name resolver's output, consumed by codegen: for
// every identifier occurrence and every function, the stack slot it
// resolves to.
type resolution struct {
	identSlot  map[*ast.Ident]int
	letSlot    map[*ast.LetStmt]int
	assignSlot map[*ast.AssignStmt]int
	funcSlots  map[string]int // total slot count (params + lets) per function
	funcs      map[string]*ast.FuncDecl
}

// resolveProgram walks every function body, building the slot
// assignment and checking every reference against the scope chain in
// effect at that point.
func resolveProgram(prog *ast.Program) (*resolution, error) {
	res := &resolution{
		identSlot:  make(map[*ast.Ident]int),
		letSlot:    make(map[*ast.LetStmt]int),
		assignSlot: make(map[*ast.AssignStmt]int),
		funcSlots:  make(map[string]int),
		funcs:      make(map[string]*ast.FuncDecl),
	}
	for _, fn := range prog.Funcs {
		if _, dup := res.funcs[fn.Name]; dup {
			return nil, fmt.Errorf("%w: function %s", ErrRedeclared, fn.Name)
		}
		res.funcs[fn.Name] = fn
	}
	if _, ok := res.funcs["main"]; !ok {
		return nil, fmt.Errorf("lang: program has no main function")
	}
	for _, fn := range prog.Funcs {
		if err := res.resolveFunc(fn); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (res *resolution) resolveFunc(fn *ast.FuncDecl) error {
	if len(fn.Params) > 1 {
		return fmt.Errorf("lang: function %s: at most one parameter is supported (single register-window call convention)", fn.Name)
	}
	top := newScope(nil)
	next := 0
	for _, param := range fn.Params {
		if !top.define(param, next) {
			return fmt.Errorf("%w: parameter %s in function %s", ErrRedeclared, param, fn.Name)
		}
		next++
	}
	if err := res.resolveBlock(fn.Body, top, &next); err != nil {
		return fmt.Errorf("lang: in function %s: %w", fn.Name, err)
	}
	if next > maxSlots {
		return fmt.Errorf("lang: function %s declares too many locals (max %d)", fn.Name, maxSlots)
	}
	res.funcSlots[fn.Name] = next
	return nil
}

func (res *resolution) resolveBlock(stmts []ast.Stmt, parent *scope, next *int) error {
	sc := newScope(parent)
	for _, stmt := range stmts {
		if err := res.resolveStmt(stmt, sc, next); err != nil {
			return err
		}
	}
	return nil
}

func (res *resolution) resolveStmt(stmt ast.Stmt, sc *scope, next *int) error {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		if err := res.resolveExpr(s.Value, sc); err != nil {
			return err
		}
		if !sc.define(s.Name, *next) {
			return fmt.Errorf("%w: %s", ErrRedeclared, s.Name)
		}
		res.letSlot[s] = *next
		*next++
	case *ast.AssignStmt:
		slot, ok := sc.lookup(s.Name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUndeclared, s.Name)
		}
		if err := res.resolveExpr(s.Value, sc); err != nil {
			return err
		}
		res.assignSlot[s] = slot
	case *ast.IfStmt:
		if err := res.resolveExpr(s.Cond, sc); err != nil {
			return err
		}
		if err := res.resolveBlock(s.Then, sc, next); err != nil {
			return err
		}
		if s.Else != nil {
			if err := res.resolveBlock(s.Else, sc, next); err != nil {
				return err
			}
		}
	case *ast.WhileStmt:
		if err := res.resolveExpr(s.Cond, sc); err != nil {
			return err
		}
		if err := res.resolveBlock(s.Body, sc, next); err != nil {
			return err
		}
	case *ast.ReturnStmt:
		if s.Value != nil {
			if err := res.resolveExpr(s.Value, sc); err != nil {
				return err
			}
		}
	case *ast.ExprStmt:
		if err := res.resolveExpr(s.X, sc); err != nil {
			return err
		}
	default:
		return fmt.Errorf("lang: unhandled statement type %T", stmt)
	}
	return nil
}

func (res *resolution) resolveExpr(expr ast.Expr, sc *scope) error {
	switch e := expr.(type) {
	case *ast.Ident:
		slot, ok := sc.lookup(e.Name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUndeclared, e.Name)
		}
		res.identSlot[e] = slot
	case *ast.IntLit:
		// nothing to resolve
	case *ast.BinaryExpr:
		if err := res.resolveExpr(e.X, sc); err != nil {
			return err
		}
		return res.resolveExpr(e.Y, sc)
	case *ast.UnaryExpr:
		return res.resolveExpr(e.X, sc)
	case *ast.CallExpr:
		if _, ok := res.funcs[e.Name]; !ok {
			return fmt.Errorf("%w: function %s", ErrUndeclared, e.Name)
		}
		if len(e.Args) > 1 {
			return fmt.Errorf("lang: call to %s: at most one argument is supported", e.Name)
		}
		for _, arg := range e.Args {
			if err := res.resolveExpr(arg, sc); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("lang: unhandled expression type %T", expr)
	}
	return nil
}
