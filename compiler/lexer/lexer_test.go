package lexer

import "testing"

func TestKeywords(t *testing.T) {
	tests := []struct {
		input    string
		expected TokenType
	}{
		{"if", TOKEN_IF},
		{"then", TOKEN_THEN},
		{"elif", TOKEN_ELIF},
		{"else", TOKEN_ELSE},
		{"fi", TOKEN_FI},
		{"for", TOKEN_FOR},
		{"in", TOKEN_IN},
		{"do", TOKEN_DO},
		{"done", TOKEN_DONE},
		{"while", TOKEN_WHILE},
		{"break", TOKEN_BREAK},
		{"continue", TOKEN_CONTINUE},
		{"return", TOKEN_RETURN},
		{"exit", TOKEN_EXIT},
		{"set", TOKEN_SET},
		{"local", TOKEN_LOCAL},
		{"tool", TOKEN_TOOL},
		{"function", TOKEN_FUNCTION},
		{"source", TOKEN_SOURCE},
		{"true", TOKEN_TRUE},
		{"false", TOKEN_FALSE},
	}

	for _, tt := range tests {
		l := New(tt.input, "test.sh")
		tokens, errs := l.ScanTokens()
		if len(errs) != 0 {
			t.Fatalf("input %q: unexpected errors: %v", tt.input, errs)
		}
		if len(tokens) != 2 {
			t.Fatalf("input %q: expected 2 tokens (word + EOF), got %d", tt.input, len(tokens))
		}
		if tokens[0].Type != tt.expected {
			t.Errorf("input %q: expected %s, got %s", tt.input, tt.expected, tokens[0].Type)
		}
	}
}

func TestIdentifiersAllowHyphen(t *testing.T) {
	l := New("my-tool", "test.sh")
	tokens, errs := l.ScanTokens()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if tokens[0].Type != TOKEN_IDENTIFIER || tokens[0].Lexeme != "my-tool" {
		t.Errorf("expected identifier 'my-tool', got %v", tokens[0])
	}
}

func TestIntegerLiteral(t *testing.T) {
	l := New("42", "test.sh")
	tokens, errs := l.ScanTokens()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if tokens[0].Type != TOKEN_INT_LITERAL || tokens[0].Literal.(int64) != 42 {
		t.Errorf("expected int literal 42, got %v", tokens[0])
	}
}

func TestFloatLiteralRequiresBothSides(t *testing.T) {
	for _, input := range []string{".5", "5."} {
		l := New(input, "test.sh")
		_, errs := l.ScanTokens()
		if len(errs) == 0 {
			t.Errorf("input %q: expected a lex error, got none", input)
		}
	}
}

func TestFloatLiteral(t *testing.T) {
	l := New("3.14", "test.sh")
	tokens, errs := l.ScanTokens()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if tokens[0].Type != TOKEN_FLOAT_LITERAL || tokens[0].Literal.(float64) != 3.14 {
		t.Errorf("expected float literal 3.14, got %v", tokens[0])
	}
}

func TestInterpolatedString(t *testing.T) {
	l := New(`"Hello ${NAME}!"`, "test.sh")
	tokens, errs := l.ScanTokens()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	parts, ok := tokens[0].Literal.([]InterpPart)
	if !ok {
		t.Fatalf("expected []InterpPart literal, got %T", tokens[0].Literal)
	}
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts (literal, var, literal), got %d: %+v", len(parts), parts)
	}
	if parts[0].Literal != "Hello " || parts[1].VarExpr != "NAME" || parts[2].Literal != "!" {
		t.Errorf("unexpected parts: %+v", parts)
	}
}

func TestRawStringNoInterpolation(t *testing.T) {
	l := New(`'no ${interp} here'`, "test.sh")
	tokens, errs := l.ScanTokens()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if tokens[0].Type != TOKEN_RAW_STRING_LITERAL {
		t.Fatalf("expected raw string literal, got %s", tokens[0].Type)
	}
	if tokens[0].Literal.(string) != "no ${interp} here" {
		t.Errorf("expected literal text preserved verbatim, got %q", tokens[0].Literal)
	}
}

func TestBareVariableReference(t *testing.T) {
	l := New("$NAME", "test.sh")
	tokens, errs := l.ScanTokens()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if tokens[0].Type != TOKEN_VARIABLE || tokens[0].Literal.(string) != "NAME" {
		t.Errorf("expected variable NAME, got %v", tokens[0])
	}
}

func TestPositionalAndStatusVariables(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"$0", "0"},
		{"$9", "9"},
		{"$@", "@"},
		{"$#", "#"},
		{"$?", "?"},
		{"$?.ok", "?.ok"},
	}
	for _, tt := range tests {
		l := New(tt.input, "test.sh")
		tokens, errs := l.ScanTokens()
		if len(errs) != 0 {
			t.Fatalf("input %q: unexpected errors: %v", tt.input, errs)
		}
		if tokens[0].Type != TOKEN_VARIABLE || tokens[0].Literal.(string) != tt.expected {
			t.Errorf("input %q: expected variable %q, got %v", tt.input, tt.expected, tokens[0])
		}
	}
}

func TestBacktickIsLexError(t *testing.T) {
	l := New("echo `date`", "test.sh")
	_, errs := l.ScanTokens()
	if len(errs) == 0 {
		t.Fatal("expected a lex error for backtick substitution")
	}
}

func TestNumericComparisonOperators(t *testing.T) {
	tests := map[string]TokenType{
		"-eq": TOKEN_NUM_EQ,
		"-ne": TOKEN_NUM_NE,
		"-lt": TOKEN_NUM_LT,
		"-gt": TOKEN_NUM_GT,
		"-le": TOKEN_NUM_LE,
		"-ge": TOKEN_NUM_GE,
	}
	for input, expected := range tests {
		l := New(input, "test.sh")
		tokens, errs := l.ScanTokens()
		if len(errs) != 0 {
			t.Fatalf("input %q: unexpected errors: %v", input, errs)
		}
		if tokens[0].Type != expected {
			t.Errorf("input %q: expected %s, got %s", input, expected, tokens[0].Type)
		}
	}
}

func TestFlagArgument(t *testing.T) {
	l := New("--limit=8", "test.sh")
	tokens, errs := l.ScanTokens()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if tokens[0].Type != TOKEN_FLAG || tokens[0].Literal.(string) != "--limit=8" {
		t.Errorf("expected flag --limit=8, got %v", tokens[0])
	}
}

func TestDoubleBracketTest(t *testing.T) {
	l := New("[[ $x == 1 ]]", "test.sh")
	tokens, errs := l.ScanTokens()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if tokens[0].Type != TOKEN_LBRACKET_LBRACKET {
		t.Errorf("expected [[ open token, got %s", tokens[0].Type)
	}
}

func TestSingleBracketStillLexes(t *testing.T) {
	// The lexer does not reject `[ ... ]`; that is the parser's job.
	l := New("[ $x ]", "test.sh")
	tokens, errs := l.ScanTokens()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if tokens[0].Type != TOKEN_LBRACKET {
		t.Errorf("expected single LBRACKET, got %s", tokens[0].Type)
	}
}

func TestNewlineSuppressedInsideGroup(t *testing.T) {
	l := New("(\n echo hi\n)", "test.sh")
	tokens, _ := l.ScanTokens()
	for _, tok := range tokens {
		if tok.Type == TOKEN_NEWLINE {
			t.Errorf("did not expect a NEWLINE token inside parentheses, got %+v", tokens)
		}
	}
}

func TestNewlineSignificantAtTopLevel(t *testing.T) {
	l := New("echo hi\necho bye", "test.sh")
	tokens, errs := l.ScanTokens()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	found := false
	for _, tok := range tokens {
		if tok.Type == TOKEN_NEWLINE {
			found = true
		}
	}
	if !found {
		t.Error("expected a NEWLINE token between top-level statements")
	}
}

func TestCommandSubstitutionOpen(t *testing.T) {
	l := New("$(echo hi)", "test.sh")
	tokens, errs := l.ScanTokens()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if tokens[0].Type != TOKEN_DOLLAR_LPAREN {
		t.Errorf("expected $( open token, got %s", tokens[0].Type)
	}
}

func TestUnterminatedStringIsError(t *testing.T) {
	l := New(`"unterminated`, "test.sh")
	_, errs := l.ScanTokens()
	if len(errs) == 0 {
		t.Error("expected unterminated string to be a lex error")
	}
}

func TestTotalLexingNeverPanics(t *testing.T) {
	inputs := []string{
		"", " ", "\n\n\n", "$", "${", "\"", "'", "`", "-", "--", "2>", "&>",
		"[[", "]]", "$((1+1))", "echo \\u", string([]byte{0xff, 0xfe}),
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("input %q panicked: %v", in, r)
				}
			}()
			l := New(in, "test.sh")
			l.ScanTokens()
		}()
	}
}
