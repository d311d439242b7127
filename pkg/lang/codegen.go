package lang

import (
	"fmt"

	"github.com/bassosimone/flipvm/pkg/lang/ast"
	"github.com/bassosimone/flipvm/pkg/op"
	"github.com/bassosimone/flipvm/pkg/register"
	"github.com/bassosimone/flipvm/pkg/word"
)

// SIGHALT is the signal main's return lowers to; the host registers a
// halt handler under it (as cmd/flipvm's newMachine does).
const SIGHALT = 0x01

// Register convention used throughout codegen, fixed by the 1-parameter
// limit resolveFunc enforces on an 8-register machine:
//
//	Zero - constant 0, also the flat address space's high half
//	A    - expression accumulator / function return value
//	B    - scratch right-hand operand, and the sole parameter register
//	C    - address-computation scratch for local stack slots
//	M    - saved return-link, callee-saved across nested calls
//	SP, PC, BP - frame control, as in pkg/machine
var (
	regA = register.A
	regB = register.B
	regC = register.C
	regM = register.M
)

var testOps = map[string]op.TestOp{
	"==": op.Eq,
	"!=": op.Neq,
	"<":  op.Lt,
	"<=": op.Lte,
	">":  op.Gt,
	">=": op.Gte,
}

// callFixup records an Imm placeholder (loading a callee's address into
// regA) to patch once every function's global word offset is known.
type callFixup struct {
	instrIdx int
	callee   string
}

// jumpFixup records a Jump placeholder to patch with an absolute word
// address once the owning function's global base offset is known.
type jumpFixup struct {
	instrIdx    int
	localTarget int
}

// funcUnit is one function's generated code, prior to global linking.
type funcUnit struct {
	name        string
	instrs      []op.Instruction
	callFixups  []callFixup
	jumpFixups  []jumpFixup
	slots       int
}

type funcGen struct {
	res   *resolution
	fn    *ast.FuncDecl
	unit  *funcUnit
}

func generate(prog *ast.Program, res *resolution) ([]op.Instruction, error) {
	units := make([]*funcUnit, 0, len(prog.Funcs))
	for _, fn := range prog.Funcs {
		g := &funcGen{
			res:  res,
			fn:   fn,
			unit: &funcUnit{name: fn.Name, slots: res.funcSlots[fn.Name]},
		}
		if err := g.generateFunc(); err != nil {
			return nil, err
		}
		units = append(units, g.unit)
	}

	// main must execute first: PC starts at 0.
	ordered := make([]*funcUnit, 0, len(units))
	for _, u := range units {
		if u.name == "main" {
			ordered = append([]*funcUnit{u}, ordered...)
		} else {
			ordered = append(ordered, u)
		}
	}

	base := make(map[string]int)
	cursor := 0
	for _, u := range ordered {
		base[u.name] = cursor
		cursor += len(u.instrs)
	}

	for _, u := range ordered {
		for _, jf := range u.jumpFixups {
			target := base[u.name] + jf.localTarget
			lit, ok := word.NewLiteral10BitChecked(uint16(target))
			if !ok {
				return nil, fmt.Errorf("lang: function %s: jump target %d exceeds the 10-bit word-address range", u.name, target)
			}
			u.instrs[jf.instrIdx] = op.NewJump(lit)
		}
		for _, cf := range u.callFixups {
			calleeBase, ok := base[cf.callee]
			if !ok {
				return nil, fmt.Errorf("lang: call to undefined function %s", cf.callee)
			}
			addr := uint16(calleeBase * 2)
			lit, ok := word.NewLiteral12BitChecked(addr)
			if !ok {
				return nil, fmt.Errorf("lang: function %s: call target address 0x%x exceeds the 12-bit range", cf.callee, addr)
			}
			u.instrs[cf.instrIdx] = op.NewImm(regA, lit)
		}
	}

	var out []op.Instruction
	for _, u := range ordered {
		out = append(out, u.instrs...)
	}
	return out, nil
}

func (g *funcGen) emit(i op.Instruction) int {
	g.unit.instrs = append(g.unit.instrs, i)
	return len(g.unit.instrs) - 1
}

func (g *funcGen) here() int { return len(g.unit.instrs) }

func (g *funcGen) generateFunc() error {
	g.emitPrologue()
	for _, stmt := range g.fn.Body {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}
	// A body that falls off the end without an explicit return still
	// needs the epilogue; a body ending in return already emitted one.
	if !endsInReturn(g.fn.Body) {
		return g.emitEpilogue(nil)
	}
	return nil
}

func endsInReturn(body []ast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	_, ok := body[len(body)-1].(*ast.ReturnStmt)
	return ok
}

// emitPrologue saves the caller's return link and frame pointer, opens
// a new frame at the current SP, reserves every local slot in one
// shot, and stores incoming parameters into their home slots.
func (g *funcGen) emitPrologue() {
	g.emit(op.NewStack(regM, register.SP, op.Push))
	g.emit(op.NewStack(register.BP, register.SP, op.Push))
	g.emit(op.NewAdd(register.SP, register.Zero, register.BP))
	if g.unit.slots > 0 {
		lit, ok := word.NewLiteral7BitChecked(uint8(g.unit.slots * 2))
		if !ok {
			panic("lang: internal error: slot reservation exceeds maxSlots invariant")
		}
		g.emit(op.NewAddImm(register.SP, lit))
	}
	for i := range g.fn.Params {
		g.storeSlot(i, regB)
	}
}

// emitEpilogue pops the frame back down to the caller, loads ret (or
// Imm 0) into regA as the return value, and either halts (main) or
// jumps back through the saved link (every other function).
func (g *funcGen) emitEpilogue(ret ast.Expr) error {
	if ret != nil {
		if err := g.genExpr(ret); err != nil {
			return err
		}
		g.emit(op.NewStack(regA, register.SP, op.Pop))
	} else {
		g.emit(op.NewImm(regA, mustLit12(0)))
	}
	if g.unit.slots > 0 {
		signed, ok := word.FromSigned(-int8(g.unit.slots * 2))
		if !ok {
			panic("lang: internal error: frame size exceeds maxSlots invariant")
		}
		g.emit(op.NewAddImmSigned(register.SP, signed))
	}
	g.emit(op.NewStack(register.BP, register.SP, op.Pop))
	g.emit(op.NewStack(regM, register.SP, op.Pop))
	if g.fn.Name == "main" {
		g.emit(op.NewSystem(register.Zero, register.Zero, mustNibble(SIGHALT)))
	} else {
		// regM holds the call site's own address (SetAndSave's link is
		// the instruction's self address, not the following one), so the
		// return jump must add one instruction width before using it.
		g.emit(op.NewAddImm(regM, mustLit7(2)))
		g.emit(op.NewSetAndSave(register.PC, regM, register.Zero))
	}
	return nil
}

// storeSlot spills src into local slot i's home address. Slots live
// above BP, at BP+i*2: the frame's two saved words (the caller's link
// in regM and its own BP) sit at BP-4 and BP-2, so locals must grow the
// other way to avoid overwriting them.
func (g *funcGen) storeSlot(slot int, src register.Register) {
	g.emit(op.NewAdd(register.BP, register.Zero, regC))
	lit, ok := word.NewLiteral7BitChecked(uint8(slot * 2))
	if !ok {
		panic("lang: internal error: slot offset exceeds maxSlots invariant")
	}
	g.emit(op.NewAddImm(regC, lit))
	g.emit(op.NewStore(src, regC, register.Zero))
}

// loadSlot reads local slot i into dest.
func (g *funcGen) loadSlot(slot int, dest register.Register) {
	g.emit(op.NewAdd(register.BP, register.Zero, regC))
	lit, ok := word.NewLiteral7BitChecked(uint8(slot * 2))
	if !ok {
		panic("lang: internal error: slot offset exceeds maxSlots invariant")
	}
	g.emit(op.NewAddImm(regC, lit))
	g.emit(op.NewLoad(dest, regC, register.Zero))
}

func (g *funcGen) genStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		if err := g.genExpr(s.Value); err != nil {
			return err
		}
		g.emit(op.NewStack(regA, register.SP, op.Pop))
		g.storeSlot(g.res.letSlot[s], regA)
	case *ast.AssignStmt:
		if err := g.genExpr(s.Value); err != nil {
			return err
		}
		g.emit(op.NewStack(regA, register.SP, op.Pop))
		g.storeSlot(g.res.assignSlot[s], regA)
	case *ast.IfStmt:
		return g.genIf(s)
	case *ast.WhileStmt:
		return g.genWhile(s)
	case *ast.ReturnStmt:
		return g.emitEpilogue(s.Value)
	case *ast.ExprStmt:
		return g.genExprDiscard(s.X)
	default:
		return fmt.Errorf("lang: unhandled statement type %T", stmt)
	}
	return nil
}

// genCond requires a comparison BinaryExpr (this front end has no
// boolean value type; conditions compile straight to Test) and leaves
// the Compare flag set accordingly.
func (g *funcGen) genCond(cond ast.Expr) error {
	bin, ok := cond.(*ast.BinaryExpr)
	if !ok {
		return fmt.Errorf("lang: condition must be a comparison expression")
	}
	testOp, ok := testOps[bin.Op]
	if !ok {
		return fmt.Errorf("lang: condition must be a comparison expression, found operator %q", bin.Op)
	}
	if err := g.genExpr(bin.X); err != nil {
		return err
	}
	if err := g.genExpr(bin.Y); err != nil {
		return err
	}
	g.emit(op.NewStack(regB, register.SP, op.Pop))
	g.emit(op.NewStack(regA, register.SP, op.Pop))
	g.emit(op.NewTest(regA, regB, testOp))
	return nil
}

func (g *funcGen) genIf(s *ast.IfStmt) error {
	if err := g.genCond(s.Cond); err != nil {
		return err
	}
	g.emit(op.NewAddIf(register.PC, register.PC, mustNibble(2)))
	jumpFalse := g.emit(op.NewJump(word.Literal10Bit{}))

	for _, stmt := range s.Then {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}

	if s.Else != nil {
		jumpEnd := g.emit(op.NewJump(word.Literal10Bit{}))
		g.patchJump(jumpFalse, g.here())
		for _, stmt := range s.Else {
			if err := g.genStmt(stmt); err != nil {
				return err
			}
		}
		g.patchJump(jumpEnd, g.here())
	} else {
		g.patchJump(jumpFalse, g.here())
	}
	return nil
}

func (g *funcGen) genWhile(s *ast.WhileStmt) error {
	loopStart := g.here()
	if err := g.genCond(s.Cond); err != nil {
		return err
	}
	g.emit(op.NewAddIf(register.PC, register.PC, mustNibble(2)))
	jumpExit := g.emit(op.NewJump(word.Literal10Bit{}))

	for _, stmt := range s.Body {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}
	jumpBack := g.emit(op.NewJump(word.Literal10Bit{}))
	g.patchJump(jumpBack, loopStart)
	g.patchJump(jumpExit, g.here())
	return nil
}

func (g *funcGen) patchJump(instrIdx, localTarget int) {
	g.unit.jumpFixups = append(g.unit.jumpFixups, jumpFixup{instrIdx: instrIdx, localTarget: localTarget})
}

// genExpr emits code that leaves the expression's value pushed on the
// data stack.
func (g *funcGen) genExpr(expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.IntLit:
		lit, ok := word.NewLiteral12BitChecked(e.Value)
		if !ok {
			return fmt.Errorf("lang: integer literal %d exceeds the 12-bit immediate range", e.Value)
		}
		g.emit(op.NewImm(regA, lit))
		g.emit(op.NewStack(regA, register.SP, op.Push))
	case *ast.Ident:
		slot, ok := g.res.identSlot[e]
		if !ok {
			return fmt.Errorf("lang: internal error: %s has no resolved slot", e.Name)
		}
		g.loadSlot(slot, regA)
		g.emit(op.NewStack(regA, register.SP, op.Push))
	case *ast.UnaryExpr:
		if e.Op != "-" {
			return fmt.Errorf("lang: unsupported unary operator %q", e.Op)
		}
		if err := g.genExpr(e.X); err != nil {
			return err
		}
		g.emit(op.NewStack(regA, register.SP, op.Pop))
		g.emit(op.NewSub(register.Zero, regA, regA))
		g.emit(op.NewStack(regA, register.SP, op.Push))
	case *ast.BinaryExpr:
		if _, isComparison := testOps[e.Op]; isComparison {
			return fmt.Errorf("lang: comparison operators are only valid directly as an if/while condition")
		}
		if err := g.genExpr(e.X); err != nil {
			return err
		}
		if err := g.genExpr(e.Y); err != nil {
			return err
		}
		g.emit(op.NewStack(regB, register.SP, op.Pop))
		g.emit(op.NewStack(regA, register.SP, op.Pop))
		switch e.Op {
		case "+":
			g.emit(op.NewAdd(regA, regB, regA))
		case "-":
			g.emit(op.NewSub(regA, regB, regA))
		default:
			return fmt.Errorf("lang: unsupported binary operator %q (the target machine has no multiply/divide opcode)", e.Op)
		}
		g.emit(op.NewStack(regA, register.SP, op.Push))
	case *ast.CallExpr:
		return g.genCall(e)
	default:
		return fmt.Errorf("lang: unhandled expression type %T", expr)
	}
	return nil
}

// genExprDiscard evaluates expr for its side effect only, dropping any
// pushed value.
func (g *funcGen) genExprDiscard(expr ast.Expr) error {
	if err := g.genExpr(expr); err != nil {
		return err
	}
	g.emit(op.NewStack(regA, register.SP, op.Pop))
	return nil
}

func (g *funcGen) genCall(call *ast.CallExpr) error {
	for _, arg := range call.Args {
		if err := g.genExpr(arg); err != nil {
			return err
		}
		g.emit(op.NewStack(regB, register.SP, op.Pop))
	}
	idx := g.emit(op.NewImm(regA, word.Literal12Bit{}))
	g.unit.callFixups = append(g.unit.callFixups, callFixup{instrIdx: idx, callee: call.Name})
	g.emit(op.NewSetAndSave(register.PC, regA, regM))
	g.emit(op.NewStack(regA, register.SP, op.Push))
	return nil
}

func mustNibble(v uint8) word.Nibble {
	n, ok := word.NewNibbleChecked(v)
	if !ok {
		panic(fmt.Sprintf("lang: internal error: nibble %d out of range", v))
	}
	return n
}

func mustLit12(v uint16) word.Literal12Bit {
	lit, ok := word.NewLiteral12BitChecked(v)
	if !ok {
		panic(fmt.Sprintf("lang: internal error: literal12 %d out of range", v))
	}
	return lit
}

func mustLit7(v uint8) word.Literal7Bit {
	lit, ok := word.NewLiteral7BitChecked(v)
	if !ok {
		panic(fmt.Sprintf("lang: internal error: literal7 %d out of range", v))
	}
	return lit
}
