package lang

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bassosimone/flipvm/pkg/lang/ast"
)

// ErrParse is the sentinel wrapped by every syntax error.
var ErrParse = errors.New("lang: syntax error")

// precedence levels, lowest to highest. Multiplication/division tokenize
// (for fidelity with the source language's full token set) but have no
// codegen support, since the target ISA has no multiply/divide opcode;
// parseExpr stops at the additive level and never has to look for them.
const (
	precLowest = iota
	precComparison
	precAdditive
)

var comparisonOps = map[TokenKind]string{
	TokEqual:        "==",
	TokNotEqual:     "!=",
	TokLess:         "<",
	TokLessEqual:    "<=",
	TokGreater:      ">",
	TokGreaterEqual: ">=",
}

var additiveOps = map[TokenKind]string{
	TokPlus:  "+",
	TokMinus: "-",
}

// Parser is a recursive-descent statement parser with a Pratt-style
// precedence-climbing expression parser underneath.
type Parser struct {
	lex  *Lexer
	cur  Token
	peek Token
}

// NewParser returns a Parser reading tokens from lex.
func NewParser(lex *Lexer) (*Parser, error) {
	p := &Parser{lex: lex}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	p.cur = p.peek
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

func (p *Parser) expect(kind TokenKind, what string) (Token, error) {
	if p.cur.Kind != kind {
		return Token{}, fmt.Errorf("%w: expected %s at offset %d, found %q", ErrParse, what, p.cur.Pos, p.cur.Lit)
	}
	tok := p.cur
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// ParseProgram parses a full source file into a Program of function
// declarations.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	var funcs []*ast.FuncDecl
	for p.cur.Kind != TokEOF {
		fn, err := p.parseFuncDecl()
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, fn)
	}
	return &ast.Program{Funcs: funcs}, nil
}

func (p *Parser) parseFuncDecl() (*ast.FuncDecl, error) {
	if _, err := p.expect(TokFn, "'fn'"); err != nil {
		return nil, err
	}
	name, err := p.expect(TokIdent, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return nil, err
	}
	var params []string
	for p.cur.Kind != TokRParen {
		if len(params) > 0 {
			if _, err := p.expect(TokComma, "','"); err != nil {
				return nil, err
			}
		}
		pname, err := p.expect(TokIdent, "parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, pname.Lit)
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDecl{Name: name.Lit, Params: params, Body: body}, nil
}

func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for p.cur.Kind != TokRBrace {
		if p.cur.Kind == TokEOF {
			return nil, fmt.Errorf("%w: unterminated block", ErrParse)
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(TokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur.Kind {
	case TokLet:
		return p.parseLetStmt()
	case TokIf:
		return p.parseIfStmt()
	case TokWhile:
		return p.parseWhileStmt()
	case TokReturn:
		return p.parseReturnStmt()
	case TokIdent:
		if p.peek.Kind == TokAssign {
			return p.parseAssignStmt()
		}
		return p.parseExprStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseLetStmt() (ast.Stmt, error) {
	if _, err := p.expect(TokLet, "'let'"); err != nil {
		return nil, err
	}
	name, err := p.expect(TokIdent, "variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokAssign, "'='"); err != nil {
		return nil, err
	}
	value, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemicolon, "';'"); err != nil {
		return nil, err
	}
	return &ast.LetStmt{Name: name.Lit, Value: value}, nil
}

func (p *Parser) parseAssignStmt() (ast.Stmt, error) {
	name, err := p.expect(TokIdent, "variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokAssign, "'='"); err != nil {
		return nil, err
	}
	value, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemicolon, "';'"); err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Name: name.Lit, Value: value}, nil
}

func (p *Parser) parseIfStmt() (ast.Stmt, error) {
	if _, err := p.expect(TokIf, "'if'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var elseBody []ast.Stmt
	if p.cur.Kind == TokElse {
		if err := p.advance(); err != nil {
			return nil, err
		}
		elseBody, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStmt{Cond: cond, Then: then, Else: elseBody}, nil
}

func (p *Parser) parseWhileStmt() (ast.Stmt, error) {
	if _, err := p.expect(TokWhile, "'while'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body}, nil
}

func (p *Parser) parseReturnStmt() (ast.Stmt, error) {
	if _, err := p.expect(TokReturn, "'return'"); err != nil {
		return nil, err
	}
	if p.cur.Kind == TokSemicolon {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{}, nil
	}
	value, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemicolon, "';'"); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Value: value}, nil
}

func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	x, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemicolon, "';'"); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{X: x}, nil
}

// parseExpr implements precedence climbing over two binary tiers
// (comparison, then additive) above a unary/primary base.
func (p *Parser) parseExpr(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if op, ok := comparisonOps[p.cur.Kind]; ok && precComparison >= minPrec {
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseExpr(precComparison + 1)
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: op, X: left, Y: right}
			continue
		}
		if op, ok := additiveOps[p.cur.Kind]; ok && precAdditive >= minPrec {
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseExpr(precAdditive + 1)
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: op, X: left, Y: right}
			continue
		}
		return left, nil
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.cur.Kind == TokMinus {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "-", X: x}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch p.cur.Kind {
	case TokInt:
		lit := p.cur.Lit
		if err := p.advance(); err != nil {
			return nil, err
		}
		v, err := strconv.ParseUint(lit, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: integer literal %q out of 16-bit range", ErrParse, lit)
		}
		return &ast.IntLit{Value: uint16(v)}, nil
	case TokIdent:
		name := p.cur.Lit
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Kind == TokLParen {
			return p.parseCallArgs(name)
		}
		return &ast.Ident{Name: name}, nil
	case TokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return nil, err
		}
		return x, nil
	}
	return nil, fmt.Errorf("%w: unexpected token %q at offset %d", ErrParse, p.cur.Lit, p.cur.Pos)
}

func (p *Parser) parseCallArgs(name string) (ast.Expr, error) {
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for p.cur.Kind != TokRParen {
		if len(args) > 0 {
			if _, err := p.expect(TokComma, "','"); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return nil, err
	}
	return &ast.CallExpr{Name: name, Args: args}, nil
}
