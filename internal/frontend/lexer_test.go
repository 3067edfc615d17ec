package frontend

import "testing"

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer(src)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		toks = append(toks, tok)
		if tok.Type == TokEOF {
			return toks
		}
	}
}

func TestLexKeywordsAndIdents(t *testing.T) {
	toks := lexAll(t, "fun native def if else while break return import x y_2")
	want := []TokenType{
		TokFun, TokNative, TokDef, TokIf, TokElse, TokWhile, TokBreak, TokReturn,
		TokImport, TokIdent, TokIdent, TokEOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Fatalf("token %d: got %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestLexOperators(t *testing.T) {
	toks := lexAll(t, "== != <= >= < > = => . , : + - * / %")
	want := []TokenType{
		TokEq, TokNeq, TokLte, TokGte, TokLt, TokGt, TokAssign, TokArrow,
		TokDot, TokComma, TokColon, TokPlus, TokMinus, TokStar, TokSlash, TokPercent, TokEOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Fatalf("token %d: got %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestLexNumbers(t *testing.T) {
	toks := lexAll(t, "42 3.14 0")
	if toks[0].Type != TokInt || toks[0].Text != "42" {
		t.Fatalf("token 0 = %+v", toks[0])
	}
	if toks[1].Type != TokFloat || toks[1].Text != "3.14" {
		t.Fatalf("token 1 = %+v", toks[1])
	}
	if toks[2].Type != TokInt || toks[2].Text != "0" {
		t.Fatalf("token 2 = %+v", toks[2])
	}
}

func TestLexStringWithEscapes(t *testing.T) {
	toks := lexAll(t, `"hi\n"`)
	if toks[0].Type != TokString || toks[0].Text != "hi\n" {
		t.Fatalf("token 0 = %+v", toks[0])
	}
}

func TestLexCharLiteral(t *testing.T) {
	toks := lexAll(t, "'a'")
	if toks[0].Type != TokChar || toks[0].Text != "a" {
		t.Fatalf("token 0 = %+v", toks[0])
	}
}

func TestLexLineComment(t *testing.T) {
	toks := lexAll(t, "1 // trailing comment\n2")
	if toks[0].Text != "1" || toks[1].Text != "2" {
		t.Fatalf("comment not skipped: %+v", toks)
	}
}

func TestLexUnterminatedStringErrors(t *testing.T) {
	l := NewLexer(`"oops`)
	if _, err := l.Next(); err == nil {
		t.Fatalf("expected error for unterminated string")
	}
}

func TestLexUnexpectedCharErrors(t *testing.T) {
	l := NewLexer("@")
	if _, err := l.Next(); err == nil {
		t.Fatalf("expected error for unexpected character")
	}
}
