package parser

import (
	"fmt"

	"github.com/shellkit/shellkit/compiler/lexer"
)

// Parser transforms a shellkit token stream into an Abstract Syntax Tree
type Parser struct {
	tokens    []lexer.Token
	current   int
	errors    []ParseError
	panicMode bool
}

// New creates a new Parser from a token stream
func New(tokens []lexer.Token) *Parser {
	return &Parser{
		tokens:  tokens,
		current: 0,
		errors:  []ParseError{},
	}
}

// Parse parses the token stream and returns the AST and any errors
func (p *Parser) Parse() (*Program, []ParseError) {
	program := p.parseProgram()
	return program, p.errors
}

// parseProgram parses the top-level sequence of statements
func (p *Parser) parseProgram() *Program {
	startToken := p.peek()
	statements := []StmtNode{}

	p.skipNewlinesAndComments()
	for !p.isAtEnd() {
		stmt := p.parseStatement()
		if stmt != nil {
			statements = append(statements, stmt)
		}
		p.skipNewlinesAndComments()
	}

	return NewProgram(statements, TokenToLocation(startToken))
}

// Helper methods for token manipulation

// isAtEnd checks if we're at the end of the token stream
func (p *Parser) isAtEnd() bool {
	if p.current >= len(p.tokens) {
		return true
	}
	return p.tokens[p.current].Type == lexer.TOKEN_EOF
}

// peek returns the current token without consuming it
func (p *Parser) peek() lexer.Token {
	if p.current >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.current]
}

// peekAt returns the token `offset` positions ahead without consuming it
func (p *Parser) peekAt(offset int) lexer.Token {
	idx := p.current + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

// previous returns the previously consumed token
func (p *Parser) previous() lexer.Token {
	if p.current > 0 {
		return p.tokens[p.current-1]
	}
	return p.tokens[0]
}

// advance consumes and returns the current token
func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

// check checks if the current token is of the given type
func (p *Parser) check(tokenType lexer.TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == tokenType
}

// checkAt checks if the token `offset` ahead is of the given type
func (p *Parser) checkAt(offset int, tokenType lexer.TokenType) bool {
	return p.peekAt(offset).Type == tokenType
}

// match checks if the current token matches any of the given types.
// If it matches, consumes the token and returns true.
func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, tokenType := range types {
		if p.check(tokenType) {
			p.advance()
			return true
		}
	}
	return false
}

// consume consumes a token of the given type or records an error
func (p *Parser) consume(tokenType lexer.TokenType, code, message string) (lexer.Token, bool) {
	if p.check(tokenType) {
		return p.advance(), true
	}

	p.addError(ParseError{
		Message:  message,
		Code:     code,
		Location: TokenToLocation(p.peek()),
	})
	return lexer.Token{}, false
}

// skipNewlines skips any newline tokens
func (p *Parser) skipNewlines() {
	for p.match(lexer.TOKEN_NEWLINE) {
	}
}

// skipNewlinesAndComments skips newline and comment tokens
func (p *Parser) skipNewlinesAndComments() {
	for p.match(lexer.TOKEN_NEWLINE, lexer.TOKEN_COMMENT) {
	}
}

// terminatesStatement reports whether the current token ends a
// statement: a newline, a semicolon, or a block-closing keyword.
func (p *Parser) terminatesStatement() bool {
	switch p.peek().Type {
	case lexer.TOKEN_NEWLINE, lexer.TOKEN_SEMICOLON, lexer.TOKEN_EOF,
		lexer.TOKEN_FI, lexer.TOKEN_DONE, lexer.TOKEN_THEN, lexer.TOKEN_ELSE,
		lexer.TOKEN_ELIF, lexer.TOKEN_RBRACE:
		return true
	}
	return false
}

// expectStatementEnd consumes the newline(s)/semicolon that terminate a
// statement, tolerating EOF or a block-closing keyword immediately after.
func (p *Parser) expectStatementEnd() {
	if p.match(lexer.TOKEN_SEMICOLON) {
		p.skipNewlines()
		return
	}
	if p.isAtEnd() || !p.terminatesStatement() {
		p.addError(ParseError{
			Message:  fmt.Sprintf("expected end of statement, found %s", p.peek().Type),
			Code:     "E100",
			Location: TokenToLocation(p.peek()),
		})
		p.synchronize()
		return
	}
	p.skipNewlines()
}

// addError records a parse error and enters panic mode
func (p *Parser) addError(err ParseError) {
	p.errors = append(p.errors, err)
	p.panicMode = true
}

// synchronize implements panic-mode error recovery: skip tokens until a
// statement boundary is reached.
func (p *Parser) synchronize() {
	p.panicMode = false

	for !p.isAtEnd() {
		if p.previous().Type == lexer.TOKEN_SEMICOLON || p.previous().Type == lexer.TOKEN_NEWLINE {
			return
		}

		switch p.peek().Type {
		case lexer.TOKEN_IF, lexer.TOKEN_FOR, lexer.TOKEN_WHILE, lexer.TOKEN_TOOL,
			lexer.TOKEN_FUNCTION, lexer.TOKEN_RETURN, lexer.TOKEN_EXIT,
			lexer.TOKEN_BREAK, lexer.TOKEN_CONTINUE, lexer.TOKEN_SOURCE,
			lexer.TOKEN_SET, lexer.TOKEN_LOCAL, lexer.TOKEN_FI, lexer.TOKEN_DONE:
			return
		}

		p.advance()
	}
}
