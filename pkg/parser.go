package tutel

import "strings"

// Parser is a hand-written recursive-descent parser with single-token
// look-ahead over a Lexer, modelled on the teacher's Parser (peek/next/
// expect/consume over a Tokenizer) but built out to the full Tutel
// grammar (spec §4.3) instead of maqui's declaration-only subset, and
// returning eagerly on the first structural error instead of buffering a
// channel of parsed expressions.
type Parser struct {
	lexer *Lexer
	buf   *Token
}

// NewParser creates a Parser reading tokens from lexer.
func NewParser(lexer *Lexer) *Parser {
	return &Parser{lexer: lexer}
}

// Parse runs the full `program := function_def* ETX` production and
// returns the resulting Program, or the first structural error
// encountered — the parser never attempts recovery (spec §4.3).
func (p *Parser) Parse() (*Program, error) {
	prog := &Program{Functions: make(map[string]*Function)}

	for p.peek().Kind != TokenETX {
		fn, err := p.functionDef()
		if err != nil {
			return nil, err
		}

		if _, dup := prog.Functions[fn.Name]; dup {
			return nil, newParseError(FunctionRedefinition, "function_def", Token{Line: fn.Line},
				"function %q is already defined", fn.Name)
		}

		prog.Functions[fn.Name] = fn
		if prog.Entry == "" {
			prog.Entry = fn.Name
		}
	}
	if _, ok := prog.Functions["main"]; ok {
		prog.Entry = "main"
	}

	if tok := p.next(); tok.Kind != TokenETX {
		return nil, newParseError(MissingEtx, "program", tok, "expected end of input, found %s", tok.Kind)
	}

	return prog, nil
}

// ParseExpression parses a single standalone expression with nothing
// following it. Used by the debugger to compile a conditional
// breakpoint's expression text (spec §4.5) outside of any function body.
func ParseExpression(src string) (Expression, error) {
	p := NewParser(NewLexer(NewSource(strings.NewReader(src))))

	expr, err := p.expression()
	if err != nil {
		return nil, err
	}

	if tok := p.next(); tok.Kind != TokenETX {
		return nil, newParseError(MissingEtx, "expression", tok, "unexpected trailing token %s", tok.Kind)
	}

	return expr, nil
}

// --- token-stream plumbing, mirroring the teacher's Parser ---

func (p *Parser) peek() Token {
	if p.buf == nil {
		tok := p.fetch()
		p.buf = &tok
	}

	return *p.buf
}

func (p *Parser) next() Token {
	tok := p.peek()
	p.buf = nil

	return tok
}

// fetch pulls the next non-comment token off the lexer. Lexer errors are
// turned into an illegal-token marker the caller's expect/consume calls
// will reject with a normal ParseError rather than panicking.
func (p *Parser) fetch() Token {
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return Token{Kind: TokenIllegal, Line: tok.Line, Column: tok.Column}
		}

		if tok.isComment() {
			continue
		}

		return tok
	}
}

func (p *Parser) check(kind TokenType) bool {
	return p.peek().Kind == kind
}

func (p *Parser) consume(kind TokenType) bool {
	if p.check(kind) {
		p.next()
		return true
	}

	return false
}

func (p *Parser) expect(kind TokenType, production string, errKind ParseErrorKind, message string) (Token, error) {
	tok := p.next()
	if tok.Kind != kind {
		return tok, newParseError(errKind, production, tok, "%s", message)
	}

	return tok, nil
}

// --- declarations ---

func (p *Parser) functionDef() (*Function, error) {
	nameTok, err := p.expect(TokenIdentifier, "function_def", MissingLeftBracket, "expected function name")
	if err != nil {
		return nil, err
	}
	line := nameTok.Line

	if _, err := p.expect(TokenLeftParen, "function_def", MissingLeftBracket, "expected '(' after function name"); err != nil {
		return nil, err
	}

	var params []string
	if !p.check(TokenRightParen) {
		for {
			idTok, err := p.expect(TokenIdentifier, "params", MissingIdentifierAfterComma, "expected parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, idTok.Value.Text)

			if !p.consume(TokenComma) {
				break
			}
		}
	}

	if _, err := p.expect(TokenRightParen, "function_def", MissingRightBracket, "expected ')' after parameters"); err != nil {
		return nil, err
	}

	if !p.check(TokenLeftBrace) {
		return nil, newParseError(MissingFunctionBlock, "function_def", p.peek(), "expected function body")
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &Function{Name: nameTok.Value.Text, Params: params, Body: body, Line: line}, nil
}

func (p *Parser) block() (Block, error) {
	if _, err := p.expect(TokenLeftBrace, "block", MissingLeftBracket, "expected '{'"); err != nil {
		return nil, err
	}

	var stmts Block
	for !p.check(TokenRightBrace) && p.peek().Kind != TokenETX {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}

	if _, err := p.expect(TokenRightBrace, "block", MissingRightCurlyBracket, "expected '}'"); err != nil {
		return nil, err
	}

	return stmts, nil
}

// body handles the `body := block | statement` production used by
// if/elif/else/for/while, which accept either a braced block or a single
// statement.
func (p *Parser) body() (Block, error) {
	if p.check(TokenLeftBrace) {
		return p.block()
	}

	stmt, err := p.statement()
	if err != nil {
		return nil, err
	}

	return Block{stmt}, nil
}

// --- statements ---

func (p *Parser) statement() (Statement, error) {
	switch p.peek().Kind {
	case TokenIf:
		return p.ifStmt()
	case TokenFor:
		return p.forStmt()
	case TokenWhile:
		return p.whileStmt()
	default:
		return p.simpleStmt()
	}
}

func (p *Parser) simpleStmt() (Statement, error) {
	line := p.peek().Line

	if p.check(TokenReturn) {
		p.next()

		var values []Expression
		if !p.check(TokenSemicolon) {
			for {
				expr, err := p.expression()
				if err != nil {
					return nil, err
				}
				values = append(values, expr)

				if !p.consume(TokenComma) {
					break
				}
			}
		}

		if _, err := p.expect(TokenSemicolon, "return", MissingSemicolon, "expected ';' after return"); err != nil {
			return nil, err
		}

		return &Return{Values: values, Line: line}, nil
	}

	expr, err := p.expression()
	if err != nil {
		return nil, err
	}

	if op, ok := p.assignOp(); ok {
		// The grammar accepts any expression as an assignment target,
		// including a Call; whether it is actually assignable (spec's
		// "Assignable" glossary entry) is a semantic check the
		// interpreter makes (CannotAssign), not a syntactic one.
		rhs, err := p.expression()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(TokenSemicolon, "assignment", MissingSemicolon, "expected ';' after assignment"); err != nil {
			return nil, err
		}

		return &Assignment{Target: expr, Op: op, Value: rhs, Line: line}, nil
	}

	if _, err := p.expect(TokenSemicolon, "expression_statement", MissingSemicolon, "expected ';' after expression"); err != nil {
		return nil, err
	}

	return &ExprStatement{Expr: expr, Line: line}, nil
}

// assignOp consumes and returns an assignment operator token if present.
func (p *Parser) assignOp() (TokenType, bool) {
	switch p.peek().Kind {
	case TokenAssign, TokenPlusAssign, TokenMinusAssign, TokenStarAssign, TokenSlashAssign, TokenPercentAssign:
		return p.next().Kind, true
	default:
		return 0, false
	}
}

func (p *Parser) ifStmt() (Statement, error) {
	line := p.next().Line // 'if'

	cond, err := p.parenCondition("if")
	if err != nil {
		return nil, err
	}

	thenBody, err := p.body()
	if err != nil {
		return nil, err
	}

	stmt := &If{Cond: cond, Then: thenBody, Line: line}

	for p.check(TokenElif) {
		p.next()

		elifCond, err := p.parenCondition("elif")
		if err != nil {
			return nil, err
		}

		elifBody, err := p.body()
		if err != nil {
			return nil, err
		}

		stmt.Elifs = append(stmt.Elifs, ElifClause{Cond: elifCond, Body: elifBody})
	}

	if p.consume(TokenElse) {
		elseBody, err := p.body()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBody
	}

	return stmt, nil
}

func (p *Parser) parenCondition(production string) (Expression, error) {
	if _, err := p.expect(TokenLeftParen, production, MissingLeftBracket, "expected '(' before condition"); err != nil {
		return nil, err
	}

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if cond == nil {
		return nil, newParseError(MissingCondition, production, p.peek(), "expected condition")
	}

	if _, err := p.expect(TokenRightParen, production, MissingRightBracket, "expected ')' after condition"); err != nil {
		return nil, err
	}

	return cond, nil
}

func (p *Parser) forStmt() (Statement, error) {
	line := p.next().Line // 'for'

	if _, err := p.expect(TokenLeftParen, "for", MissingLeftBracket, "expected '(' after for"); err != nil {
		return nil, err
	}

	varTok, err := p.expect(TokenIdentifier, "for", MissingIterator, "expected loop variable")
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenIn, "for", MissingKeywordIn, "expected 'in'"); err != nil {
		return nil, err
	}

	iter, err := p.expression()
	if err != nil {
		return nil, err
	}
	if iter == nil {
		return nil, newParseError(MissingIterable, "for", p.peek(), "expected iterable expression")
	}

	if _, err := p.expect(TokenRightParen, "for", MissingRightBracket, "expected ')' after for-clause"); err != nil {
		return nil, err
	}

	body, err := p.body()
	if err != nil {
		return nil, err
	}

	return &For{Var: varTok.Value.Text, Iter: iter, Body: body, Line: line}, nil
}

func (p *Parser) whileStmt() (Statement, error) {
	line := p.next().Line // 'while'

	cond, err := p.parenCondition("while")
	if err != nil {
		return nil, err
	}

	body, err := p.body()
	if err != nil {
		return nil, err
	}

	return &While{Cond: cond, Body: body, Line: line}, nil
}

// --- expressions, lowest to highest precedence ---

func (p *Parser) expression() (Expression, error) {
	return p.orExpr()
}

func (p *Parser) orExpr() (Expression, error) {
	line := p.peek().Line
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}

	for p.check(TokenOr) {
		p.next()
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OpOr, Left: left, Right: right, Line: line}
	}

	return left, nil
}

func (p *Parser) andExpr() (Expression, error) {
	line := p.peek().Line
	left, err := p.notExpr()
	if err != nil {
		return nil, err
	}

	for p.check(TokenAnd) {
		p.next()
		right, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OpAnd, Left: left, Right: right, Line: line}
	}

	return left, nil
}

// notExpr implements `('not')* comp_chain`: any run of leading 'not'
// tokens, each toggling negation, wrapping a single comparison chain.
func (p *Parser) notExpr() (Expression, error) {
	line := p.peek().Line

	negations := 0
	for p.check(TokenNot) {
		p.next()
		negations++
	}

	operand, err := p.compChain()
	if err != nil {
		return nil, err
	}

	if negations%2 == 1 {
		return &Unary{Op: OpNot, Operand: operand, Line: line}, nil
	}

	return operand, nil
}

// compChain implements `sum (comp_op sum)?`: at most one comparison
// operator is accepted, so chains like `a < b < c` are rejected by the
// grammar (spec's explicit Open Question resolution: no chaining).
func (p *Parser) compChain() (Expression, error) {
	line := p.peek().Line
	left, err := p.sum()
	if err != nil {
		return nil, err
	}

	op, ok := p.compOp()
	if !ok {
		return left, nil
	}

	right, err := p.sum()
	if err != nil {
		return nil, err
	}

	return &Binary{Op: op, Left: left, Right: right, Line: line}, nil
}

func (p *Parser) compOp() (BinOp, bool) {
	switch p.peek().Kind {
	case TokenEqual:
		p.next()
		return OpEq, true
	case TokenNotEqual:
		p.next()
		return OpNeq, true
	case TokenLess:
		p.next()
		return OpLt, true
	case TokenLessEqual:
		p.next()
		return OpLte, true
	case TokenGreater:
		p.next()
		return OpGt, true
	case TokenGreaterEqual:
		p.next()
		return OpGte, true
	case TokenIn:
		p.next()
		return OpIn, true
	default:
		return 0, false
	}
}

func (p *Parser) sum() (Expression, error) {
	line := p.peek().Line
	left, err := p.mul()
	if err != nil {
		return nil, err
	}

	for p.check(TokenPlus) || p.check(TokenMinus) {
		op := OpAdd
		if p.peek().Kind == TokenMinus {
			op = OpSub
		}
		p.next()

		right, err := p.mul()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right, Line: line}
	}

	return left, nil
}

func (p *Parser) mul() (Expression, error) {
	line := p.peek().Line
	left, err := p.unary()
	if err != nil {
		return nil, err
	}

	for {
		var op BinOp
		switch p.peek().Kind {
		case TokenStar:
			op = OpMul
		case TokenSlash:
			op = OpDiv
		case TokenDoubleSlash:
			op = OpFloorDiv
		case TokenPercent:
			op = OpMod
		default:
			return left, nil
		}
		p.next()

		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right, Line: line}
	}
}

// unary implements `('+'|'-')* postfix`: an odd count of leading '-'
// inverts the operand; '+' is accepted but never changes sign. At least
// one postfix operand must follow any prefix run (spec's explicit Open
// Question resolution: no bare-prefix expressions).
func (p *Parser) unary() (Expression, error) {
	line := p.peek().Line

	negations := 0
	for p.check(TokenPlus) || p.check(TokenMinus) {
		if p.peek().Kind == TokenMinus {
			negations++
		}
		p.next()
	}

	operand, err := p.postfix()
	if err != nil {
		return nil, err
	}

	if negations%2 == 1 {
		return &Unary{Op: OpNeg, Operand: operand, Line: line}, nil
	}

	return operand, nil
}

// postfix implements `atom ( '.' IDENT | '(' args? ')' | '[' expr ']' )*`.
func (p *Parser) postfix() (Expression, error) {
	expr, err := p.atom()
	if err != nil {
		return nil, err
	}

	for {
		switch p.peek().Kind {
		case TokenDot:
			line := p.next().Line
			nameTok, err := p.expect(TokenIdentifier, "member", MissingIdentifierAfterDot, "expected identifier after '.'")
			if err != nil {
				return nil, err
			}
			expr = &Member{Object: expr, Name: nameTok.Value.Text, Line: line}

		case TokenLeftParen:
			line := p.next().Line
			var args []Expression
			if !p.check(TokenRightParen) {
				for {
					arg, err := p.expression()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)

					if !p.consume(TokenComma) {
						break
					}
				}
			}
			if _, err := p.expect(TokenRightParen, "call", MissingRightBracket, "expected ')' after arguments"); err != nil {
				return nil, err
			}
			expr = &Call{Callee: expr, Args: args, Line: line}

		case TokenLeftBracket:
			line := p.next().Line
			idx, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRightBracket, "index", MissingRightSquareBracket, "expected ']' after index"); err != nil {
				return nil, err
			}
			expr = &Index{Collection: expr, Idx: idx, Line: line}

		default:
			return expr, nil
		}
	}
}

func (p *Parser) atom() (Expression, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenIdentifier:
		p.next()
		return &Identifier{Name: tok.Value.Text, Line: tok.Line}, nil

	case TokenInteger:
		p.next()
		return &IntegerLit{Value: tok.Value.Int, Line: tok.Line}, nil

	case TokenText:
		p.next()
		return &StringLit{Value: tok.Value.Text, Line: tok.Line}, nil

	case TokenTrue:
		p.next()
		return &BooleanLit{Value: true, Line: tok.Line}, nil

	case TokenFalse:
		p.next()
		return &BooleanLit{Value: false, Line: tok.Line}, nil

	case TokenNull:
		p.next()
		return &NullLit{Line: tok.Line}, nil

	case TokenLeftParen:
		p.next()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRightParen, "parenthesised_expr", MissingRightBracket, "expected ')'"); err != nil {
			return nil, err
		}
		return expr, nil

	case TokenLeftBracket:
		return p.listLit()

	default:
		p.next() // consume the offending token so callers don't spin
		return nil, newParseError(ExprMissingRightSide, "atom", tok, "unexpected token %s", tok.Kind)
	}
}

func (p *Parser) listLit() (Expression, error) {
	line := p.next().Line // '['

	var elems []Expression
	if !p.check(TokenRightBracket) {
		for {
			expr, err := p.expression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, expr)

			if !p.consume(TokenComma) {
				break
			}
		}
	}

	if _, err := p.expect(TokenRightBracket, "list_literal", MissingRightSquareBracket, "expected ']'"); err != nil {
		return nil, err
	}

	return &ListLit{Elements: elems, Line: line}, nil
}
