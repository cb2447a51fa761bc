package errors

import (
	"strings"
)

// suggestFix generates auto-fix suggestions based on error code
func suggestFix(err KernelError) *FixSuggestion {
	switch err.Code {
	case ErrSingleBracketTest:
		return suggestDoubleBracket(err)
	case ErrArithmeticUnsupported:
		return suggestArithmeticWorkaround(err)
	case ErrUnterminatedString:
		return suggestCloseString(err)
	case ErrUnterminatedRawStr:
		return suggestCloseRawString(err)
	case ErrBacktickRejected:
		return suggestCommandSubstitution(err)
	case ErrFloatMissingSide:
		return suggestFloatBothSides(err)
	case ErrReservedWordAsName:
		return suggestReservedWordRename(err)
	case ErrInvalidNamedArg:
		return suggestNamedArgNoSpace(err)
	case ErrExpectedParen:
		return suggestParen(err)
	case ErrExpectedBrace:
		return suggestBrace(err)
	case ErrUnmatchedBlock:
		return suggestClosingKeyword(err)
	case ErrUndefinedVariable:
		return suggestNearestName(err, "variable")
	case ErrUndefinedTool:
		return suggestNearestName(err, "tool")
	default:
		return nil
	}
}

// suggestDoubleBracket suggests replacing a single-bracket test with [[ ]]
func suggestDoubleBracket(err KernelError) *FixSuggestion {
	if len(err.Context.SourceLines) == 0 {
		return &FixSuggestion{
			Description: "Use '[[ ... ]]' for conditional tests",
			OldCode:     "[ $x == 1 ]",
			NewCode:     "[[ $x == 1 ]]",
			Confidence:  0.9,
		}
	}

	errorLine := err.Context.SourceLines[err.Context.Highlight.Line]
	newLine := strings.Replace(errorLine, "[ ", "[[ ", 1)
	newLine = strings.Replace(newLine, " ]", " ]]", 1)

	return &FixSuggestion{
		Description: "Use '[[ ... ]]' for conditional tests",
		OldCode:     strings.TrimSpace(errorLine),
		NewCode:     strings.TrimSpace(newLine),
		Confidence:  0.85,
	}
}

// suggestArithmeticWorkaround points at a tool-based alternative to $((expr))
func suggestArithmeticWorkaround(err KernelError) *FixSuggestion {
	return &FixSuggestion{
		Description: "Arithmetic expansion is not supported; compute the value with a tool call and capture it via command substitution",
		OldCode:     "$((a + b))",
		NewCode:     "$(add $a $b)",
		Confidence:  0.5,
	}
}

// suggestCloseString suggests closing an unterminated double-quoted string
func suggestCloseString(err KernelError) *FixSuggestion {
	if len(err.Context.SourceLines) == 0 {
		return nil
	}

	errorLine := err.Context.SourceLines[err.Context.Highlight.Line]

	return &FixSuggestion{
		Description: "Add the closing double quote",
		OldCode:     strings.TrimSpace(errorLine),
		NewCode:     strings.TrimSpace(errorLine) + `"`,
		Confidence:  0.9,
	}
}

// suggestCloseRawString suggests closing an unterminated single-quoted string
func suggestCloseRawString(err KernelError) *FixSuggestion {
	if len(err.Context.SourceLines) == 0 {
		return nil
	}

	errorLine := err.Context.SourceLines[err.Context.Highlight.Line]

	return &FixSuggestion{
		Description: "Add the closing single quote",
		OldCode:     strings.TrimSpace(errorLine),
		NewCode:     strings.TrimSpace(errorLine) + `'`,
		Confidence:  0.9,
	}
}

// suggestCommandSubstitution points at the supported form of substitution
func suggestCommandSubstitution(err KernelError) *FixSuggestion {
	return &FixSuggestion{
		Description: "Backtick substitution is not recognized; use '$(...)' instead",
		OldCode:     "`date`",
		NewCode:     "$(date)",
		Confidence:  0.95,
	}
}

// suggestFloatBothSides suggests adding the missing digits around '.'
func suggestFloatBothSides(err KernelError) *FixSuggestion {
	if len(err.Context.SourceLines) == 0 {
		return nil
	}
	errorLine := err.Context.SourceLines[err.Context.Highlight.Line]
	return &FixSuggestion{
		Description: "Float literals require digits on both sides of '.'",
		OldCode:     strings.TrimSpace(errorLine),
		NewCode:     "e.g. '0.5' instead of '.5', '5.0' instead of '5.'",
		Confidence:  0.75,
	}
}

// suggestReservedWordRename suggests picking a different identifier
func suggestReservedWordRename(err KernelError) *FixSuggestion {
	return &FixSuggestion{
		Description: "Reserved words cannot be used as a command or variable name; choose a different identifier",
		OldCode:     "",
		NewCode:     "",
		Confidence:  0.6,
	}
}

// suggestNamedArgNoSpace suggests removing whitespace around '=' in a named arg
func suggestNamedArgNoSpace(err KernelError) *FixSuggestion {
	if len(err.Context.SourceLines) == 0 {
		return &FixSuggestion{
			Description: "Named arguments must not have whitespace around '='",
			OldCode:     "limit = 8",
			NewCode:     "limit=8",
			Confidence:  0.8,
		}
	}
	errorLine := err.Context.SourceLines[err.Context.Highlight.Line]
	return &FixSuggestion{
		Description: "Named arguments must not have whitespace around '='",
		OldCode:     strings.TrimSpace(errorLine),
		NewCode:     strings.Join(strings.Fields(errorLine), " "),
		Confidence:  0.6,
	}
}

// suggestParen suggests checking parenthesis balance
func suggestParen(err KernelError) *FixSuggestion {
	return &FixSuggestion{
		Description: "Check parenthesis balance",
		OldCode:     "",
		NewCode:     "Ensure every '(' has a matching ')'",
		Confidence:  0.7,
	}
}

// suggestBrace suggests checking brace balance
func suggestBrace(err KernelError) *FixSuggestion {
	return &FixSuggestion{
		Description: "Check brace balance",
		OldCode:     "",
		NewCode:     "Ensure every '{' has a matching '}'",
		Confidence:  0.7,
	}
}

// suggestClosingKeyword suggests the missing closing keyword for a block
func suggestClosingKeyword(err KernelError) *FixSuggestion {
	msg := strings.ToLower(err.Message)
	closing := ""
	switch {
	case strings.Contains(msg, "if"):
		closing = "fi"
	case strings.Contains(msg, "for") || strings.Contains(msg, "while"):
		closing = "done"
	}
	if closing == "" {
		return nil
	}
	return &FixSuggestion{
		Description: "Add the missing '" + closing + "'",
		OldCode:     "",
		NewCode:     closing,
		Confidence:  0.75,
	}
}

// suggestNearestName returns a generic hint to check an undefined variable
// or tool name for a typo; it does not look up or propose a specific
// nearby name.
func suggestNearestName(err KernelError, kind string) *FixSuggestion {
	return &FixSuggestion{
		Description: "Check for a typo in the " + kind + " name",
		OldCode:     "",
		NewCode:     "",
		Confidence:  0.4,
	}
}
