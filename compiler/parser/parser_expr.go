package parser

import (
	"strconv"
	"strings"

	"github.com/shellkit/shellkit/compiler/lexer"
)

// parseValue parses a single value expression: a literal, a variable
// reference, an interpolated or raw string, a command substitution, or
// an array/object literal.
func (p *Parser) parseValue() ValueNode {
	tok := p.peek()
	loc := TokenToLocation(tok)

	switch tok.Type {
	case lexer.TOKEN_TRUE:
		p.advance()
		return NewBoolLiteral(true, loc)
	case lexer.TOKEN_FALSE:
		p.advance()
		return NewBoolLiteral(false, loc)
	case lexer.TOKEN_INT_LITERAL:
		p.advance()
		return NewIntLiteral(tok.Literal.(int64), loc)
	case lexer.TOKEN_FLOAT_LITERAL:
		p.advance()
		return NewFloatLiteral(tok.Literal.(float64), loc)
	case lexer.TOKEN_RAW_STRING_LITERAL:
		p.advance()
		return NewRawStringLiteral(tok.Literal.(string), loc)
	case lexer.TOKEN_STRING_LITERAL:
		p.advance()
		parts, _ := tok.Literal.([]lexer.InterpPart)
		return p.convertInterpParts(parts, loc)
	case lexer.TOKEN_VARIABLE:
		p.advance()
		raw, _ := tok.Literal.(string)
		return p.parseVarExprText(raw, loc)
	case lexer.TOKEN_DOLLAR_LPAREN:
		return p.parseCommandSubst()
	case lexer.TOKEN_LBRACKET:
		return p.parseArrayLiteral()
	case lexer.TOKEN_LBRACE:
		return p.parseObjectLiteral()
	case lexer.TOKEN_IDENTIFIER:
		p.advance()
		if tok.Lexeme == "null" {
			return NewNullLiteral(loc)
		}
		return NewRawStringLiteral(p.extendBareword(tok), loc)
	default:
		p.addError(ParseError{
			Message:  "expected a value, found " + tok.Type.String(),
			Code:     "E100",
			Location: loc,
		})
		p.advance()
		return NewNullLiteral(loc)
	}
}

// extendBareword glues a tight run of `.IDENT`/`.N` segments onto a bareword
// identifier, so that dotted words like file paths (out.log) and module-ish
// names (lib.sh) read as one value instead of splitting on the lexer's
// standalone DOT token.
func (p *Parser) extendBareword(first lexer.Token) string {
	text := first.Lexeme
	prevEnd := first.End

	for p.peek().Type == lexer.TOKEN_DOT && p.peek().Start == prevEnd {
		dotEnd := p.advance().End
		next := p.peek()
		if next.Start != dotEnd || (next.Type != lexer.TOKEN_IDENTIFIER && next.Type != lexer.TOKEN_INT_LITERAL) {
			text += "."
			break
		}
		p.advance()
		text += "." + next.Lexeme
		prevEnd = next.End
	}

	return text
}

// convertInterpParts converts the lexer's interpolated-string parts into
// an InterpStringExpr, parsing each variable part's raw expansion text
// into a VarRefExpr.
func (p *Parser) convertInterpParts(parts []lexer.InterpPart, loc SourceLocation) *InterpStringExpr {
	segments := make([]InterpSegment, 0, len(parts))
	for _, part := range parts {
		if part.IsVar {
			segments = append(segments, InterpSegment{Var: p.parseVarExprText(part.VarExpr, loc)})
		} else {
			segments = append(segments, InterpSegment{Literal: part.Literal})
		}
	}
	return NewInterpStringExpr(segments, loc)
}

// parseVarExprText parses the raw text captured by the lexer between `$`
// (or `${` ... `}`) into a structured variable reference: the `${#VAR}`
// length form, the `${VAR:-DEFAULT}` fallback form, and `.field`/`[N]`
// path chains on top of a bare name.
func (p *Parser) parseVarExprText(raw string, loc SourceLocation) *VarRefExpr {
	ref := &VarRefExpr{Location: loc}

	if strings.HasPrefix(raw, "#") {
		ref.LengthOf = true
		raw = raw[1:]
	}

	if idx := strings.Index(raw, ":-"); idx >= 0 {
		defaultText := raw[idx+2:]
		raw = raw[:idx]
		ref.Default = p.parseDefaultText(defaultText, loc)
	}

	name, path := splitVarPath(raw)
	ref.Name = name
	ref.Path = path
	return ref
}

// parseDefaultText parses the right-hand side of `${VAR:-DEFAULT}`: a
// nested variable reference if it starts with `$`, otherwise a raw
// string literal.
func (p *Parser) parseDefaultText(text string, loc SourceLocation) ValueNode {
	if strings.HasPrefix(text, "$") {
		return p.parseVarExprText(strings.TrimPrefix(text, "$"), loc)
	}
	return NewRawStringLiteral(text, loc)
}

// splitVarPath splits a variable's raw expansion text into its base name
// and a chain of `.field`/`[index]` path segments.
func splitVarPath(raw string) (string, []PathSegment) {
	name := raw
	var path []PathSegment

	i := 0
	for i < len(raw) {
		if raw[i] == '.' || raw[i] == '[' {
			name = raw[:i]
			break
		}
		i++
	}
	if i >= len(raw) {
		return raw, nil
	}

	rest := raw[i:]
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			j := 0
			for j < len(rest) && rest[j] != '.' && rest[j] != '[' {
				j++
			}
			path = append(path, PathSegment{Field: rest[:j]})
			rest = rest[j:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return name, path
			}
			idx, _ := strconv.Atoi(rest[1:end])
			path = append(path, PathSegment{Index: idx, IsIndex: true})
			rest = rest[end+1:]
		default:
			return name, path
		}
	}
	return name, path
}

// parseCommandSubst parses `$(PIPELINE)` into a CommandSubstExpr. A second
// `(` right after the opening `$(` is `$((...))` arithmetic expansion,
// which this version doesn't support; that's reported directly as E106
// rather than falling through to parsePipeline's generic "expected a
// command name" error.
func (p *Parser) parseCommandSubst() *CommandSubstExpr {
	loc := TokenToLocation(p.peek())
	p.advance() // consume $(

	if p.check(lexer.TOKEN_LPAREN) {
		p.addError(ParseError{
			Message:  "'$((...))' arithmetic expansion is not supported",
			Code:     "E106",
			Location: loc,
		})
		p.advance() // consume the second (
		for !p.isAtEnd() && !p.check(lexer.TOKEN_RPAREN) {
			p.advance()
		}
		p.consume(lexer.TOKEN_RPAREN, "E103", "expected ')' to close command substitution")
		p.consume(lexer.TOKEN_RPAREN, "E103", "expected ')' to close command substitution")
		return NewCommandSubstExpr(&Pipeline{}, loc)
	}

	body := p.parsePipeline()

	p.consume(lexer.TOKEN_RPAREN, "E103", "expected ')' to close command substitution")
	return NewCommandSubstExpr(body, loc)
}

// parseArrayLiteral parses `[v1, v2, ...]`.
func (p *Parser) parseArrayLiteral() *ArrayLiteralExpr {
	loc := TokenToLocation(p.peek())
	p.advance() // consume [
	p.skipNewlines()

	var elements []ValueNode
	for !p.check(lexer.TOKEN_RBRACKET) && !p.isAtEnd() {
		elements = append(elements, p.parseValue())
		p.skipNewlines()
		if !p.match(lexer.TOKEN_COMMA) {
			break
		}
		p.skipNewlines()
	}

	p.consume(lexer.TOKEN_RBRACKET, "E100", "expected ']' to close array literal")
	return NewArrayLiteralExpr(elements, loc)
}

// parseObjectLiteral parses `{key: value, ...}`.
func (p *Parser) parseObjectLiteral() *ObjectLiteralExpr {
	loc := TokenToLocation(p.peek())
	p.advance() // consume {
	p.skipNewlines()

	var pairs []ObjectPair
	for !p.check(lexer.TOKEN_RBRACE) && !p.isAtEnd() {
		keyTok := p.peek()
		var key string
		switch keyTok.Type {
		case lexer.TOKEN_IDENTIFIER:
			key = keyTok.Lexeme
			p.advance()
		case lexer.TOKEN_RAW_STRING_LITERAL:
			key, _ = keyTok.Literal.(string)
			p.advance()
		default:
			p.addError(ParseError{
				Message:  "expected an object key",
				Code:     "E101",
				Location: TokenToLocation(keyTok),
			})
			p.advance()
			continue
		}

		p.consume(lexer.TOKEN_COLON, "E104", "expected ':' after object key")
		p.skipNewlines()
		value := p.parseValue()
		pairs = append(pairs, ObjectPair{Key: key, Value: value})

		p.skipNewlines()
		if !p.match(lexer.TOKEN_COMMA) {
			break
		}
		p.skipNewlines()
	}

	p.consume(lexer.TOKEN_RBRACE, "E104", "expected '}' to close object literal")
	return NewObjectLiteralExpr(pairs, loc)
}

// isComparisonOperator reports whether a token type is one of the
// equality, pattern, or numeric comparison operators valid inside
// `[[ ... ]]`.
func isComparisonOperator(t lexer.TokenType) bool {
	switch t {
	case lexer.TOKEN_EQUAL_EQUAL, lexer.TOKEN_BANG_EQUAL,
		lexer.TOKEN_TILDE_EQUAL, lexer.TOKEN_BANG_TILDE,
		lexer.TOKEN_NUM_EQ, lexer.TOKEN_NUM_NE, lexer.TOKEN_NUM_LT,
		lexer.TOKEN_NUM_GT, lexer.TOKEN_NUM_LE, lexer.TOKEN_NUM_GE:
		return true
	}
	return false
}

// parseBracketTest parses `[[ LEFT OP RIGHT ]]` into a ComparisonExpr.
func (p *Parser) parseBracketTest() *ComparisonExpr {
	loc := TokenToLocation(p.peek())
	p.advance() // consume [[

	left := p.parseValue()

	opTok := p.peek()
	if !isComparisonOperator(opTok.Type) {
		p.addError(ParseError{
			Message:  "expected a comparison operator inside '[[ ]]'",
			Code:     "E100",
			Location: TokenToLocation(opTok),
		})
	} else {
		p.advance()
	}

	right := p.parseValue()

	p.consume(lexer.TOKEN_RBRACKET_RBRACKET, "E100", "expected ']]' to close test expression")
	return NewComparisonExpr(left, opTok.Type, right, loc)
}
