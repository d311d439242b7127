package lang

import (
	"errors"
	"testing"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	lex := NewLexer(src)
	var toks []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks
		}
	}
}

func TestLexKeywordsAndIdents(t *testing.T) {
	toks := lexAll(t, "let x if else while return fn foo")
	want := []TokenKind{TokLet, TokIdent, TokIf, TokElse, TokWhile, TokReturn, TokFn, TokIdent, TokEOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestLexTwoByteOperators(t *testing.T) {
	toks := lexAll(t, "== != <= >= < > = + - * /")
	want := []TokenKind{
		TokEqual, TokNotEqual, TokLessEqual, TokGreaterEqual,
		TokLess, TokGreater, TokAssign, TokPlus, TokMinus,
		TokAsterisk, TokSlash, TokEOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestLexIntLiteral(t *testing.T) {
	toks := lexAll(t, "42 0 65535")
	want := []string{"42", "0", "65535"}
	for i, lit := range want {
		if toks[i].Kind != TokInt || toks[i].Lit != lit {
			t.Fatalf("token %d = %+v, want Int %q", i, toks[i], lit)
		}
	}
}

func TestLexSkipsLineComments(t *testing.T) {
	toks := lexAll(t, "1 // this is ignored\n2")
	if len(toks) != 3 || toks[0].Lit != "1" || toks[1].Lit != "2" {
		t.Fatalf("got %+v", toks)
	}
}

func TestLexIllegalByte(t *testing.T) {
	lex := NewLexer("@")
	_, err := lex.Next()
	if !errors.Is(err, ErrLex) {
		t.Fatalf("err = %v, want ErrLex", err)
	}
}

func TestLexPositionsTrackOffsets(t *testing.T) {
	toks := lexAll(t, "ab cd")
	if toks[0].Pos != 0 || toks[1].Pos != 3 {
		t.Fatalf("positions = %d, %d, want 0, 3", toks[0].Pos, toks[1].Pos)
	}
}
