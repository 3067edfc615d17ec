package frontend

import (
	"fmt"
	"strconv"
)

// Parser is a recursive-descent parser over the token stream produced by
// Lexer. It builds the Program AST declared in ast.go; name resolution
// and arity checking happen afterward in checker.go.
type Parser struct {
	lex  *Lexer
	tok  Token
	next Token
	err  error
}

func NewParser(src string) (*Parser, error) {
	p := &Parser{lex: NewLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	p.tok = p.next
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.next = t
	return nil
}

func (p *Parser) at(t TokenType) bool { return p.tok.Type == t }

func (p *Parser) expect(t TokenType, what string) (Token, error) {
	if p.tok.Type != t {
		return Token{}, fmt.Errorf("%d:%d: expected %s, got %q", p.tok.Pos.Line, p.tok.Pos.Column, what, p.tok.Text)
	}
	cur := p.tok
	return cur, p.advance()
}

// ParseProgram parses an entire source file.
func ParseProgram(src string) (*Program, error) {
	p, err := NewParser(src)
	if err != nil {
		return nil, err
	}
	return p.parseProgram()
}

func (p *Parser) parseProgram() (*Program, error) {
	// Prime the pipeline: NewParser only fills tok/next, not a third lookahead,
	// so the very first real token is already in p.tok.
	prog := &Program{}
	for p.at(TokImport) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		str, err := p.expect(TokString, "import path string")
		if err != nil {
			return nil, err
		}
		prog.Imports = append(prog.Imports, str.Text)
	}

	for !p.at(TokEOF) {
		decl, err := p.parseDecl()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, decl)
	}
	return prog, nil
}

func (p *Parser) parseDecl() (Decl, error) {
	switch {
	case p.at(TokNative):
		return p.parseNativeDecl()
	case p.at(TokFun):
		return p.parseFuncDecl()
	default:
		return nil, fmt.Errorf("%d:%d: expected declaration, got %q", p.tok.Pos.Line, p.tok.Pos.Column, p.tok.Text)
	}
}

func (p *Parser) parseParamList() ([]string, error) {
	if _, err := p.expect(TokLBracket, "'['"); err != nil {
		return nil, err
	}
	var params []string
	for !p.at(TokRBracket) {
		name, err := p.expect(TokIdent, "parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, name.Text)
		if p.at(TokComma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(TokRBracket, "']'"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseNativeDecl() (Decl, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil { // consume "native"
		return nil, err
	}
	if _, err := p.expect(TokFun, "'fun'"); err != nil {
		return nil, err
	}
	name, err := p.expect(TokIdent, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokColon, "':'"); err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	return NativeDecl{Pos: pos, Name: name.Text, Params: params}, nil
}

func (p *Parser) parseFuncDecl() (Decl, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil { // consume "fun"
		return nil, err
	}
	name, err := p.expect(TokIdent, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokColon, "':'"); err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokArrow, "'=>'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return FuncDecl{Pos: pos, Name: name.Text, Params: params, Body: body}, nil
}

func (p *Parser) parseBlock() ([]Stmt, error) {
	if _, err := p.expect(TokLBrace, "'{'"); err != nil {
		return nil, err
	}
	var stmts []Stmt
	for !p.at(TokRBrace) {
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

func (p *Parser) parseStmt() (Stmt, error) {
	switch {
	case p.at(TokDef):
		return p.parseDefStmt()
	case p.at(TokIf):
		return p.parseIfStmt()
	case p.at(TokWhile):
		return p.parseWhileStmt()
	case p.at(TokBreak):
		pos := p.tok.Pos
		return BreakStmt{Pos: pos}, p.advance()
	case p.at(TokReturn):
		return p.parseReturnStmt()
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *Parser) parseDefStmt() (Stmt, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil { // consume "def"
		return nil, err
	}
	name, err := p.expect(TokIdent, "variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokAssign, "'='"); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return DefStmt{Pos: pos, Name: name.Text, Value: value}, nil
}

func (p *Parser) parseIfStmt() (Stmt, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil { // consume "if"
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	thenBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := IfStmt{Pos: pos, Cond: cond, Then: thenBlock}
	if p.at(TokElse) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		elseBlock, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBlock
		stmt.HasElse = true
	}
	return stmt, nil
}

func (p *Parser) parseWhileStmt() (Stmt, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil { // consume "while"
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return WhileStmt{Pos: pos, Cond: cond, Body: body}, nil
}

func (p *Parser) parseReturnStmt() (Stmt, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil { // consume "return"
		return nil, err
	}
	if p.at(TokRBrace) {
		return ReturnStmt{Pos: pos}, nil
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ReturnStmt{Pos: pos, Value: value}, nil
}

func (p *Parser) parseExprOrAssignStmt() (Stmt, error) {
	pos := p.tok.Pos
	lhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(TokAssign) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return AssignStmt{Pos: pos, Lhs: lhs, Value: rhs}, nil
	}
	return ExprStmt{Pos: pos, Expr: lhs}, nil
}

// Expression grammar, tightest to loosest:
//   primary -> postfix (call, access) -> unary -> multiplicative ->
//   additive -> relational -> equality

func (p *Parser) parseExpr() (Expr, error) { return p.parseEquality() }

func (p *Parser) parseEquality() (Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.at(TokEq) || p.at(TokNeq) {
		op := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Pos: op.Pos, Op: op.Text, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseRelational() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.at(TokLt) || p.at(TokGt) || p.at(TokLte) || p.at(TokGte) {
		op := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Pos: op.Pos, Op: op.Text, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(TokPlus) || p.at(TokMinus) {
		op := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Pos: op.Pos, Op: op.Text, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(TokStar) || p.at(TokSlash) || p.at(TokPercent) {
		op := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Pos: op.Pos, Op: op.Text, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.at(TokMinus) {
		op := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Pos: op.Pos, Op: "-", Inner: inner}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at(TokDot):
			pos := p.tok.Pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			expr = BinaryExpr{Pos: pos, Op: ".", Left: expr, Right: right}
		case p.at(TokLParen):
			pos := p.tok.Pos
			if err := p.advance(); err != nil {
				return nil, err
			}
			var args []Expr
			for !p.at(TokRParen) {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.at(TokComma) {
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
			if _, err := p.expect(TokRParen, "')'"); err != nil {
				return nil, err
			}
			expr = CallExpr{Pos: pos, Callee: expr, Args: args}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.tok
	switch tok.Type {
	case TokInt:
		n, err := strconv.ParseInt(tok.Text, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%d:%d: invalid integer literal %q", tok.Pos.Line, tok.Pos.Column, tok.Text)
		}
		return IntLit{Pos: tok.Pos, Value: int32(n), Text: tok.Text}, p.advance()
	case TokFloat:
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, fmt.Errorf("%d:%d: invalid float literal %q", tok.Pos.Line, tok.Pos.Column, tok.Text)
		}
		return FloatLit{Pos: tok.Pos, Value: f, Text: tok.Text}, p.advance()
	case TokTrue:
		return BoolLit{Pos: tok.Pos, Value: true, Text: tok.Text}, p.advance()
	case TokFalse:
		return BoolLit{Pos: tok.Pos, Value: false, Text: tok.Text}, p.advance()
	case TokChar:
		return CharLit{Pos: tok.Pos, Value: tok.Text[0], Text: tok.Text}, p.advance()
	case TokString:
		return StringLit{Pos: tok.Pos, Value: tok.Text}, p.advance()
	case TokIdent:
		return Ident{Pos: tok.Pos, Name: tok.Text}, p.advance()
	case TokLBrace:
		return p.parseSeqLit(false, TokLBrace, TokRBrace)
	case TokLBracket:
		return p.parseSeqLit(true, TokLBracket, TokRBracket)
	case TokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, fmt.Errorf("%d:%d: expected expression, got %q", tok.Pos.Line, tok.Pos.Column, tok.Text)
	}
}

func (p *Parser) parseSeqLit(frozen bool, open, close TokenType) (Expr, error) {
	pos := p.tok.Pos
	if _, err := p.expect(open, "opening bracket"); err != nil {
		return nil, err
	}
	var items []Expr
	for !p.at(close) {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.at(TokComma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(close, "closing bracket"); err != nil {
		return nil, err
	}
	return SeqLit{Pos: pos, Items: items, Frozen: frozen}, nil
}
