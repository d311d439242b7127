// Package ast defines the syntax tree produced by pkg/lang's parser: a
// small C-like expression/statement language of function declarations,
// let/assign/if/while/return statements, and binary/unary/call/ident/
// int-literal expressions.
package ast

import (
	"fmt"
	"strings"
)

// Node is implemented by every AST node.
type Node interface {
	String() string
	node()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Ident is a variable or parameter reference.
type Ident struct {
	Name string
}

func (*Ident) node()     {}
func (*Ident) exprNode() {}
func (i *Ident) String() string { return i.Name }

// IntLit is an integer literal, already range-checked into the VM's
// 16-bit word width by the parser.
type IntLit struct {
	Value uint16
}

func (*IntLit) node()     {}
func (*IntLit) exprNode() {}
func (l *IntLit) String() string { return fmt.Sprintf("%d", l.Value) }

// BinaryExpr is `X Op Y`. Op is one of "+", "-", "==", "!=", "<", "<=",
// ">", ">=".
type BinaryExpr struct {
	Op   string
	X, Y Expr
}

func (*BinaryExpr) node()     {}
func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.X, b.Op, b.Y)
}

// UnaryExpr is `Op X`. Op is currently only "-".
type UnaryExpr struct {
	Op string
	X  Expr
}

func (*UnaryExpr) node()     {}
func (*UnaryExpr) exprNode() {}
func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s%s)", u.Op, u.X) }

// CallExpr is `Name(Args...)`.
type CallExpr struct {
	Name string
	Args []Expr
}

func (*CallExpr) node()     {}
func (*CallExpr) exprNode() {}
func (c *CallExpr) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(parts, ", "))
}

// LetStmt declares and initializes a new local: `let Name = Value;`.
type LetStmt struct {
	Name  string
	Value Expr
}

func (*LetStmt) node()     {}
func (*LetStmt) stmtNode() {}
func (s *LetStmt) String() string { return fmt.Sprintf("let %s = %s;", s.Name, s.Value) }

// AssignStmt assigns an existing local: `Name = Value;`.
type AssignStmt struct {
	Name  string
	Value Expr
}

func (*AssignStmt) node()     {}
func (*AssignStmt) stmtNode() {}
func (s *AssignStmt) String() string { return fmt.Sprintf("%s = %s;", s.Name, s.Value) }

// IfStmt is `if (Cond) { Then... } [else { Else... }]`. Cond must be a
// comparison BinaryExpr (see pkg/lang/codegen.go).
type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (*IfStmt) node()     {}
func (*IfStmt) stmtNode() {}
func (s *IfStmt) String() string { return fmt.Sprintf("if (%s) { ... }", s.Cond) }

// WhileStmt is `while (Cond) { Body... }`.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
}

func (*WhileStmt) node()     {}
func (*WhileStmt) stmtNode() {}
func (s *WhileStmt) String() string { return fmt.Sprintf("while (%s) { ... }", s.Cond) }

// ReturnStmt is `return [Value];`. Value is nil for a bare return.
type ReturnStmt struct {
	Value Expr
}

func (*ReturnStmt) node()     {}
func (*ReturnStmt) stmtNode() {}
func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return;"
	}
	return fmt.Sprintf("return %s;", s.Value)
}

// ExprStmt is an expression evaluated for its side effect, such as a
// bare call: `Name(...);`.
type ExprStmt struct {
	X Expr
}

func (*ExprStmt) node()     {}
func (*ExprStmt) stmtNode() {}
func (s *ExprStmt) String() string { return fmt.Sprintf("%s;", s.X) }

// FuncDecl is `fn Name(Params...) { Body... }`.
type FuncDecl struct {
	Name   string
	Params []string
	Body   []Stmt
}

func (*FuncDecl) node() {}
func (f *FuncDecl) String() string {
	return fmt.Sprintf("fn %s(%s) { ... }", f.Name, strings.Join(f.Params, ", "))
}

// Program is the parsed source: an ordered list of function
// declarations. Compile requires exactly one of them to be named "main".
type Program struct {
	Funcs []*FuncDecl
}

func (*Program) node() {}
func (p *Program) String() string {
	parts := make([]string, len(p.Funcs))
	for i, f := range p.Funcs {
		parts[i] = f.String()
	}
	return strings.Join(parts, "\n")
}
