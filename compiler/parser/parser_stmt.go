package parser

import (
	"strings"

	"github.com/shellkit/shellkit/compiler/lexer"
)

// parseStatement parses a single statement: a control-flow construct, a
// tool definition, an assignment, a directive, or a pipeline (optionally
// chained with && / ||).
func (p *Parser) parseStatement() StmtNode {
	p.skipNewlines()
	tok := p.peek()
	loc := TokenToLocation(tok)

	// `word=value` with a reserved word on the left is an assignment to a
	// reserved name; parseAssignmentStmt reports it as E107.
	if lexer.IsReserved(tok.Lexeme) && p.checkAt(1, lexer.TOKEN_EQUAL) && tok.End == p.peekAt(1).Start {
		return p.parseAssignmentStmt(ScopeGlobal)
	}

	switch tok.Type {
	case lexer.TOKEN_IF:
		return p.parseIfStmt()
	case lexer.TOKEN_FOR:
		return p.parseForStmt()
	case lexer.TOKEN_WHILE:
		return p.parseWhileStmt()
	case lexer.TOKEN_BREAK:
		return p.parseBreakStmt()
	case lexer.TOKEN_CONTINUE:
		return p.parseContinueStmt()
	case lexer.TOKEN_RETURN:
		return p.parseReturnStmt()
	case lexer.TOKEN_EXIT:
		return p.parseExitStmt()
	case lexer.TOKEN_TOOL, lexer.TOKEN_FUNCTION:
		return p.parseToolDefinitionStmt()
	case lexer.TOKEN_SOURCE:
		return p.parseSourceDirectiveStmt()
	case lexer.TOKEN_DOT:
		return p.parseDotSourceStmt()
	case lexer.TOKEN_SET:
		return p.parseSetStmt()
	case lexer.TOKEN_LOCAL:
		return p.parseLocalAssignmentStmt()
	}

	if tok.Type == lexer.TOKEN_IDENTIFIER && p.checkAt(1, lexer.TOKEN_EQUAL) {
		eqTok := p.peekAt(1)
		if tok.End == eqTok.Start {
			return p.parseAssignmentStmt(ScopeGlobal)
		}
	}

	return p.parseStatementChain(loc)
}

// parseStatementChain parses a pipeline and any trailing && / || chained
// pipelines, then consumes the terminating newline/semicolon.
func (p *Parser) parseStatementChain(loc SourceLocation) StmtNode {
	var left StmtNode = p.parsePipeline()

	for p.check(lexer.TOKEN_AMP_AMP) || p.check(lexer.TOKEN_PIPE_PIPE) {
		opTok := p.advance()
		p.skipNewlines()
		right := StmtNode(p.parsePipeline())
		left = NewLogicalChainStmt(left, opTok.Type, right, loc)
	}

	p.expectStatementEnd()
	return left
}

// parsePipeline parses a sequence of simple commands joined by `|`,
// optionally followed by a trailing `&` marking it to run in the
// background.
func (p *Parser) parsePipeline() *Pipeline {
	loc := TokenToLocation(p.peek())

	commands := []*SimpleCommand{p.parseSimpleCommand()}
	for p.match(lexer.TOKEN_PIPE) {
		p.skipNewlines()
		commands = append(commands, p.parseSimpleCommand())
	}

	background := p.match(lexer.TOKEN_AMP)

	return NewPipeline(commands, background, nil, loc)
}

// parseCondition parses the condition clause of an if/while statement:
// either a `[[ ... ]]` test expression or a general pipeline whose exit
// status is tested.
func (p *Parser) parseCondition() *Pipeline {
	if p.check(lexer.TOKEN_LBRACKET_LBRACKET) {
		loc := TokenToLocation(p.peek())
		test := p.parseBracketTest()
		cmd := NewSimpleCommand("[[", []ArgumentNode{NewPositionalArg(test, test.Location)}, nil, loc)
		return NewPipeline([]*SimpleCommand{cmd}, false, nil, loc)
	}
	if p.check(lexer.TOKEN_LBRACKET) {
		loc := TokenToLocation(p.peek())
		p.addError(ParseError{
			Message:  "'[ ... ]' is not a recognized test form; use '[[ ... ]]'",
			Code:     "E105",
			Location: loc,
		})
	}
	return p.parsePipeline()
}

// parseSimpleCommand parses a command name, its arguments, and any
// redirects attached directly to it.
func (p *Parser) parseSimpleCommand() *SimpleCommand {
	tok := p.peek()
	loc := TokenToLocation(tok)

	var name string
	switch {
	case tok.Type == lexer.TOKEN_IDENTIFIER:
		p.advance()
		name = p.extendBareword(tok) // dotted remote-tool names, e.g. server.tool
	case tok.Type == lexer.TOKEN_LBRACKET_LBRACKET:
		test := p.parseBracketTest()
		return NewSimpleCommand("[[", []ArgumentNode{NewPositionalArg(test, test.Location)}, nil, loc)
	case lexer.IsReserved(tok.Lexeme):
		p.addError(ParseError{
			Message:  "reserved word cannot be used as a command name",
			Code:     "E107",
			Location: loc,
		})
		p.advance()
		return NewSimpleCommand("", nil, nil, loc)
	default:
		p.addError(ParseError{
			Message:  "expected a command name, found " + tok.Type.String(),
			Code:     "E100",
			Location: loc,
		})
		p.advance()
		return NewSimpleCommand("", nil, nil, loc)
	}

	var args []ArgumentNode
	var redirects []*Redirect
	for !p.isAtEnd() && !p.commandBoundary() {
		if p.isRedirectStart() {
			redirects = append(redirects, p.parseRedirect())
			continue
		}
		args = append(args, p.parseArgument())
	}

	return NewSimpleCommand(name, args, redirects, loc)
}

// commandBoundary reports whether the current token ends a simple
// command's argument list.
func (p *Parser) commandBoundary() bool {
	switch p.peek().Type {
	case lexer.TOKEN_PIPE, lexer.TOKEN_PIPE_PIPE, lexer.TOKEN_AMP, lexer.TOKEN_AMP_AMP,
		lexer.TOKEN_SEMICOLON, lexer.TOKEN_NEWLINE, lexer.TOKEN_EOF,
		lexer.TOKEN_FI, lexer.TOKEN_DONE, lexer.TOKEN_THEN, lexer.TOKEN_ELSE, lexer.TOKEN_ELIF,
		lexer.TOKEN_RBRACE, lexer.TOKEN_RPAREN:
		return true
	}
	return false
}

// parseArgument parses one command argument: a flag, a `key=value` named
// argument (whitespace around `=` is an error), or a bare positional
// value.
func (p *Parser) parseArgument() ArgumentNode {
	tok := p.peek()
	loc := TokenToLocation(tok)

	if tok.Type == lexer.TOKEN_FLAG {
		p.advance()
		if idx := strings.Index(tok.Lexeme, "="); idx >= 0 {
			return NewFlagArg(tok.Lexeme[:idx], true, tok.Lexeme[idx+1:], loc)
		}
		return NewFlagArg(tok.Lexeme, false, "", loc)
	}

	if tok.Type == lexer.TOKEN_IDENTIFIER && p.checkAt(1, lexer.TOKEN_EQUAL) {
		eqTok := p.peekAt(1)
		valTok := p.peekAt(2)
		tight := tok.End == eqTok.Start && eqTok.End == valTok.Start
		if !tight {
			p.addError(ParseError{
				Message:  "named arguments may not contain whitespace around '='",
				Code:     "E110",
				Location: loc,
			})
		}
		p.advance() // identifier
		p.advance() // =
		value := p.parseValue()
		return NewNamedArg(tok.Lexeme, value, loc)
	}

	return NewPositionalArg(p.parseValue(), loc)
}

// isRedirectStart reports whether the current token begins a redirect.
// The lexer does not fuse the digit `2` onto a following `>` into a
// single token, so a stderr redirect is recognized here as the adjacent
// pair `2` `>` with no gap between them.
func (p *Parser) isRedirectStart() bool {
	switch p.peek().Type {
	case lexer.TOKEN_LESS, lexer.TOKEN_GREATER, lexer.TOKEN_GREATER_GREATER, lexer.TOKEN_REDIR_COMBINED:
		return true
	}
	tok := p.peek()
	if tok.Type == lexer.TOKEN_INT_LITERAL && tok.Lexeme == "2" &&
		p.checkAt(1, lexer.TOKEN_GREATER) && tok.End == p.peekAt(1).Start {
		return true
	}
	return false
}

// parseRedirect parses a single redirect operator and its target value.
func (p *Parser) parseRedirect() *Redirect {
	tok := p.peek()
	loc := TokenToLocation(tok)

	if tok.Type == lexer.TOKEN_INT_LITERAL && tok.Lexeme == "2" {
		p.advance() // 2
		p.advance() // >
		target := p.parseValue()
		return NewRedirect(RedirectStderrOverwrite, target, loc)
	}

	opTok := p.advance()
	var op RedirectOp
	switch opTok.Type {
	case lexer.TOKEN_LESS:
		op = RedirectStdinFrom
	case lexer.TOKEN_GREATER:
		op = RedirectStdoutOverwrite
	case lexer.TOKEN_GREATER_GREATER:
		op = RedirectStdoutAppend
	case lexer.TOKEN_REDIR_COMBINED:
		op = RedirectCombinedOverwrite
	}

	target := p.parseValue()
	return NewRedirect(op, target, loc)
}

// parseAssignmentStmt parses `NAME=value` at the given scope.
func (p *Parser) parseAssignmentStmt(scope AssignmentScope) *AssignmentStmt {
	tok := p.peek()
	loc := TokenToLocation(tok)

	if lexer.IsReserved(tok.Lexeme) {
		p.addError(ParseError{
			Message:  "reserved word cannot be used as a variable name",
			Code:     "E107",
			Location: loc,
		})
	}

	name := tok.Lexeme
	p.advance() // identifier
	p.advance() // =
	value := p.parseValue()

	stmt := NewAssignmentStmt(name, value, scope, loc)
	p.expectStatementEnd()
	return stmt
}

// parseLocalAssignmentStmt parses `local NAME=value`.
func (p *Parser) parseLocalAssignmentStmt() StmtNode {
	p.advance() // local

	if !p.check(lexer.TOKEN_IDENTIFIER) || !p.checkAt(1, lexer.TOKEN_EQUAL) {
		tok := p.peek()
		p.addError(ParseError{
			Message:  "expected 'NAME=value' after 'local'",
			Code:     "E101",
			Location: TokenToLocation(tok),
		})
		p.synchronize()
		return nil
	}

	return p.parseAssignmentStmt(ScopeLocal)
}

// parseIfStmt parses `if COND then BODY [elif COND then BODY]... [else BODY] fi`.
func (p *Parser) parseIfStmt() *IfStmt {
	loc := TokenToLocation(p.peek())
	p.advance() // if

	cond := p.parseCondition()
	p.skipNewlines()
	p.match(lexer.TOKEN_SEMICOLON)
	p.skipNewlines()
	p.consume(lexer.TOKEN_THEN, "E102", "expected 'then' after if condition")
	p.skipNewlinesAndComments()

	thenBody := p.parseBlockUntil(lexer.TOKEN_ELIF, lexer.TOKEN_ELSE, lexer.TOKEN_FI)

	var elifs []ElifBranch
	for p.check(lexer.TOKEN_ELIF) {
		p.advance()
		elifCond := p.parseCondition()
		p.skipNewlines()
		p.match(lexer.TOKEN_SEMICOLON)
		p.skipNewlines()
		p.consume(lexer.TOKEN_THEN, "E102", "expected 'then' after elif condition")
		p.skipNewlinesAndComments()
		body := p.parseBlockUntil(lexer.TOKEN_ELIF, lexer.TOKEN_ELSE, lexer.TOKEN_FI)
		elifs = append(elifs, ElifBranch{Condition: elifCond, Body: body})
	}

	var elseBody []StmtNode
	if p.match(lexer.TOKEN_ELSE) {
		p.skipNewlinesAndComments()
		elseBody = p.parseBlockUntil(lexer.TOKEN_FI)
	}

	p.consume(lexer.TOKEN_FI, "E112", "expected 'fi' to close 'if'")
	p.match(lexer.TOKEN_SEMICOLON)
	return NewIfStmt(cond, thenBody, elifs, elseBody, loc)
}

// parseForStmt parses `for VAR in SOURCE do BODY done`.
func (p *Parser) parseForStmt() *ForStmt {
	loc := TokenToLocation(p.peek())
	p.advance() // for

	nameTok, _ := p.consume(lexer.TOKEN_IDENTIFIER, "E101", "expected a loop variable name after 'for'")
	p.consume(lexer.TOKEN_IN, "E102", "expected 'in' after loop variable")
	source := p.parseValue()
	p.skipNewlines()
	p.match(lexer.TOKEN_SEMICOLON)
	p.skipNewlines()
	p.consume(lexer.TOKEN_DO, "E102", "expected 'do' to start loop body")
	p.skipNewlinesAndComments()

	body := p.parseBlockUntil(lexer.TOKEN_DONE)
	p.consume(lexer.TOKEN_DONE, "E112", "expected 'done' to close 'for'")
	p.match(lexer.TOKEN_SEMICOLON)

	return NewForStmt(nameTok.Lexeme, source, body, loc)
}

// parseWhileStmt parses `while COND do BODY done`.
func (p *Parser) parseWhileStmt() *WhileStmt {
	loc := TokenToLocation(p.peek())
	p.advance() // while

	cond := p.parseCondition()
	p.skipNewlines()
	p.match(lexer.TOKEN_SEMICOLON)
	p.skipNewlines()
	p.consume(lexer.TOKEN_DO, "E102", "expected 'do' to start loop body")
	p.skipNewlinesAndComments()

	body := p.parseBlockUntil(lexer.TOKEN_DONE)
	p.consume(lexer.TOKEN_DONE, "E112", "expected 'done' to close 'while'")
	p.match(lexer.TOKEN_SEMICOLON)

	return NewWhileStmt(cond, body, loc)
}

// parseBlockUntil parses statements until one of the given stop tokens is
// reached, recovering from any internal parse error so later statements
// in the block are still attempted.
func (p *Parser) parseBlockUntil(stop ...lexer.TokenType) []StmtNode {
	var body []StmtNode
	for !p.isAtEnd() && !p.checkAny(stop...) {
		stmt := p.parseStatement()
		if stmt != nil {
			body = append(body, stmt)
		}
		p.skipNewlinesAndComments()
		if p.panicMode {
			p.synchronize()
			p.skipNewlinesAndComments()
		}
	}
	return body
}

// checkAny reports whether the current token matches any of the given types.
func (p *Parser) checkAny(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			return true
		}
	}
	return false
}

// parseBreakStmt parses `break [N]`.
func (p *Parser) parseBreakStmt() *BreakStmt {
	loc := TokenToLocation(p.peek())
	p.advance() // break

	level := 1
	if p.check(lexer.TOKEN_INT_LITERAL) {
		level = int(p.advance().Literal.(int64))
	}

	stmt := NewBreakStmt(level, loc)
	p.expectStatementEnd()
	return stmt
}

// parseContinueStmt parses `continue [N]`.
func (p *Parser) parseContinueStmt() *ContinueStmt {
	loc := TokenToLocation(p.peek())
	p.advance() // continue

	level := 1
	if p.check(lexer.TOKEN_INT_LITERAL) {
		level = int(p.advance().Literal.(int64))
	}

	stmt := NewContinueStmt(level, loc)
	p.expectStatementEnd()
	return stmt
}

// parseReturnStmt parses `return [code]`.
func (p *Parser) parseReturnStmt() *ReturnStmt {
	loc := TokenToLocation(p.peek())
	p.advance() // return

	var code ValueNode
	if !p.terminatesStatement() {
		code = p.parseValue()
	}

	stmt := NewReturnStmt(code, loc)
	p.expectStatementEnd()
	return stmt
}

// parseExitStmt parses `exit [code]`.
func (p *Parser) parseExitStmt() *ExitStmt {
	loc := TokenToLocation(p.peek())
	p.advance() // exit

	var code ValueNode
	if !p.terminatesStatement() {
		code = p.parseValue()
	}

	stmt := NewExitStmt(code, loc)
	p.expectStatementEnd()
	return stmt
}

// parseSourceDirectiveStmt parses `source PATH`.
func (p *Parser) parseSourceDirectiveStmt() *SourceDirectiveStmt {
	loc := TokenToLocation(p.peek())
	p.advance() // source

	path := p.parseValue()
	stmt := NewSourceDirectiveStmt(path, loc)
	p.expectStatementEnd()
	return stmt
}

// parseDotSourceStmt parses the `.` alias for `source PATH`.
func (p *Parser) parseDotSourceStmt() *SourceDirectiveStmt {
	loc := TokenToLocation(p.peek())
	p.advance() // .

	path := p.parseValue()
	stmt := NewSourceDirectiveStmt(path, loc)
	p.expectStatementEnd()
	return stmt
}

// parseSetStmt parses `set -e` / `set +e`.
func (p *Parser) parseSetStmt() *SetStmt {
	loc := TokenToLocation(p.peek())
	p.advance() // set

	tok := p.peek()
	if tok.Type != lexer.TOKEN_FLAG {
		p.addError(ParseError{
			Message:  "expected a flag after 'set', e.g. '-e'",
			Code:     "E100",
			Location: TokenToLocation(tok),
		})
		p.synchronize()
		return nil
	}
	p.advance()

	enable := !strings.HasPrefix(tok.Lexeme, "+")
	flag := strings.TrimLeft(tok.Lexeme, "+-")

	stmt := NewSetStmt(flag, enable, loc)
	p.expectStatementEnd()
	return stmt
}

// parseToolDefinitionStmt parses `tool NAME { params... } do BODY done`.
func (p *Parser) parseToolDefinitionStmt() *ToolDefinitionStmt {
	loc := TokenToLocation(p.peek())
	p.advance() // tool | function

	nameTok, _ := p.consume(lexer.TOKEN_IDENTIFIER, "E101", "expected a tool name")

	var params []*ParamDef
	if p.match(lexer.TOKEN_LBRACE) {
		p.skipNewlines()
		seen := map[string]bool{}
		for !p.check(lexer.TOKEN_RBRACE) && !p.isAtEnd() {
			pd := p.parseParamDef()
			if pd.Name != "" {
				if seen[pd.Name] {
					p.addError(ParseError{
						Message:  "duplicate parameter name",
						Code:     "E108",
						Location: pd.Location,
					})
				}
				seen[pd.Name] = true
			}
			params = append(params, pd)
			p.skipNewlines()
			if !p.match(lexer.TOKEN_COMMA) {
				break
			}
			p.skipNewlines()
		}
		p.consume(lexer.TOKEN_RBRACE, "E104", "expected '}' to close parameter block")
	}

	p.skipNewlines()
	p.consume(lexer.TOKEN_DO, "E102", "expected 'do' to start tool body")
	p.skipNewlinesAndComments()

	body := p.parseBlockUntil(lexer.TOKEN_DONE)
	p.consume(lexer.TOKEN_DONE, "E112", "expected 'done' to close tool definition")
	p.match(lexer.TOKEN_SEMICOLON)

	return NewToolDefinitionStmt(nameTok.Lexeme, params, body, loc)
}

// parseParamDef parses one `name[: type][= default]` parameter entry. A
// non-identifier in name position means the `{ ... }` block following a
// tool name could not be read as a parameter block at all.
func (p *Parser) parseParamDef() *ParamDef {
	tok := p.peek()
	loc := TokenToLocation(tok)

	if tok.Type != lexer.TOKEN_IDENTIFIER {
		p.addError(ParseError{
			Message:  "expected a parameter name; '{ ... }' after a tool name must be a parameter block",
			Code:     "E111",
			Location: loc,
		})
		p.advance()
		return NewParamDef("", "", false, nil, loc)
	}
	p.advance()
	name := tok.Lexeme

	if lexer.IsReserved(name) {
		p.addError(ParseError{
			Message:  "reserved word cannot be used as a parameter name",
			Code:     "E107",
			Location: loc,
		})
	}

	typ := ""
	if p.match(lexer.TOKEN_COLON) {
		if typTok, ok := p.consume(lexer.TOKEN_IDENTIFIER, "E101", "expected a parameter type after ':'"); ok {
			typ = typTok.Lexeme
		}
	}

	hasDefault := false
	var def ValueNode
	if p.match(lexer.TOKEN_EQUAL) {
		hasDefault = true
		def = p.parseValue()
	}

	return NewParamDef(name, typ, hasDefault, def, loc)
}
