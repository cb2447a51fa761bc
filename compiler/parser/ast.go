package parser

import "github.com/shellkit/shellkit/compiler/lexer"

// SourceLocation represents a location in source code
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// Program is the root node of the AST: a script is a flat list of
// top-level statements.
type Program struct {
	Statements []StmtNode
	Location   SourceLocation
}

// NewProgram creates a new Program node
func NewProgram(statements []StmtNode, loc SourceLocation) *Program {
	return &Program{Statements: statements, Location: loc}
}

// ValueNode is the interface for all value expressions: literals,
// variable references, interpolated strings, and command substitutions.
// Values appear as assignment right-hand sides, argument values, and
// redirect targets.
type ValueNode interface {
	valueNode()
	GetLocation() SourceLocation
}

// NullLiteral represents the literal `null`.
type NullLiteral struct {
	Location SourceLocation
}

func (v *NullLiteral) valueNode()                  {}
func (v *NullLiteral) GetLocation() SourceLocation { return v.Location }

// NewNullLiteral creates a new null literal
func NewNullLiteral(loc SourceLocation) *NullLiteral {
	return &NullLiteral{Location: loc}
}

// BoolLiteral represents `true` or `false`.
type BoolLiteral struct {
	Value    bool
	Location SourceLocation
}

func (v *BoolLiteral) valueNode()                  {}
func (v *BoolLiteral) GetLocation() SourceLocation { return v.Location }

// NewBoolLiteral creates a new boolean literal
func NewBoolLiteral(value bool, loc SourceLocation) *BoolLiteral {
	return &BoolLiteral{Value: value, Location: loc}
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	Value    int64
	Location SourceLocation
}

func (v *IntLiteral) valueNode()                  {}
func (v *IntLiteral) GetLocation() SourceLocation { return v.Location }

// NewIntLiteral creates a new integer literal
func NewIntLiteral(value int64, loc SourceLocation) *IntLiteral {
	return &IntLiteral{Value: value, Location: loc}
}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	Value    float64
	Location SourceLocation
}

func (v *FloatLiteral) valueNode()                  {}
func (v *FloatLiteral) GetLocation() SourceLocation { return v.Location }

// NewFloatLiteral creates a new float literal
func NewFloatLiteral(value float64, loc SourceLocation) *FloatLiteral {
	return &FloatLiteral{Value: value, Location: loc}
}

// RawStringLiteral represents a single-quoted string: no interpolation,
// no escape processing.
type RawStringLiteral struct {
	Value    string
	Location SourceLocation
}

func (v *RawStringLiteral) valueNode()                  {}
func (v *RawStringLiteral) GetLocation() SourceLocation { return v.Location }

// NewRawStringLiteral creates a new raw string literal
func NewRawStringLiteral(value string, loc SourceLocation) *RawStringLiteral {
	return &RawStringLiteral{Value: value, Location: loc}
}

// InterpStringExpr represents a double-quoted string: a sequence of
// literal text runs and variable expansions, concatenated at evaluation
// time.
type InterpStringExpr struct {
	Parts    []InterpSegment
	Location SourceLocation
}

// InterpSegment is one chunk of an interpolated string: either literal
// text (Var == nil) or a variable reference.
type InterpSegment struct {
	Literal string
	Var     *VarRefExpr
}

func (v *InterpStringExpr) valueNode()                  {}
func (v *InterpStringExpr) GetLocation() SourceLocation { return v.Location }

// NewInterpStringExpr creates a new interpolated string expression
func NewInterpStringExpr(parts []InterpSegment, loc SourceLocation) *InterpStringExpr {
	return &InterpStringExpr{Parts: parts, Location: loc}
}

// PathSegment is one `.field` or `[index]` step of a variable reference's
// path expression, e.g. the two segments of `${?.data[0]}`.
type PathSegment struct {
	Field string // set for a `.field` segment
	Index int    // set for a `[index]` segment
	IsIndex bool
}

// VarRefExpr represents a variable reference: $IDENT, ${IDENT}, $0-9,
// $@, $#, $?, or a `${...}` path expression built from any of those
// plus `.field`/`[index]` segments, an `${#VAR}` length form, or a
// `${VAR:-DEFAULT}` fallback.
type VarRefExpr struct {
	Name     string // bare name, positional digit, "@", "#", or "?"
	Path     []PathSegment
	LengthOf bool      // true for `${#VAR}`
	Default  ValueNode // non-nil for `${VAR:-DEFAULT}`
	Location SourceLocation
}

func (v *VarRefExpr) valueNode()                  {}
func (v *VarRefExpr) GetLocation() SourceLocation { return v.Location }

// NewVarRefExpr creates a new bare variable reference expression
func NewVarRefExpr(name string, loc SourceLocation) *VarRefExpr {
	return &VarRefExpr{Name: name, Location: loc}
}

// ArrayLiteralExpr represents an array literal `[a, b, c]`.
type ArrayLiteralExpr struct {
	Elements []ValueNode
	Location SourceLocation
}

func (v *ArrayLiteralExpr) valueNode()                  {}
func (v *ArrayLiteralExpr) GetLocation() SourceLocation { return v.Location }

// NewArrayLiteralExpr creates a new array literal expression
func NewArrayLiteralExpr(elements []ValueNode, loc SourceLocation) *ArrayLiteralExpr {
	return &ArrayLiteralExpr{Elements: elements, Location: loc}
}

// ObjectLiteralExpr represents an object literal `{key: value, ...}`.
type ObjectLiteralExpr struct {
	Pairs    []ObjectPair
	Location SourceLocation
}

// ObjectPair is one key/value pair of an object literal.
type ObjectPair struct {
	Key   string
	Value ValueNode
}

func (v *ObjectLiteralExpr) valueNode()                  {}
func (v *ObjectLiteralExpr) GetLocation() SourceLocation { return v.Location }

// NewObjectLiteralExpr creates a new object literal expression
func NewObjectLiteralExpr(pairs []ObjectPair, loc SourceLocation) *ObjectLiteralExpr {
	return &ObjectLiteralExpr{Pairs: pairs, Location: loc}
}

// CommandSubstExpr represents `$(...)`: the enclosed pipeline is run and
// its captured stdout, trimmed of a single trailing newline, becomes the
// value.
type CommandSubstExpr struct {
	Body     *Pipeline
	Location SourceLocation
}

func (v *CommandSubstExpr) valueNode()                  {}
func (v *CommandSubstExpr) GetLocation() SourceLocation { return v.Location }

// NewCommandSubstExpr creates a new command substitution expression
func NewCommandSubstExpr(body *Pipeline, loc SourceLocation) *CommandSubstExpr {
	return &CommandSubstExpr{Body: body, Location: loc}
}

// ComparisonExpr represents a `[[ ... ]]` test: a left/right value pair
// joined by a string, pattern, or numeric comparison operator.
type ComparisonExpr struct {
	Left     ValueNode
	Operator lexer.TokenType // ==, !=, =~, !~, or one of the -eq/-ne/... tokens
	Right    ValueNode
	Location SourceLocation
}

func (v *ComparisonExpr) valueNode()                  {}
func (v *ComparisonExpr) GetLocation() SourceLocation { return v.Location }

// NewComparisonExpr creates a new bracket-test comparison expression
func NewComparisonExpr(left ValueNode, op lexer.TokenType, right ValueNode, loc SourceLocation) *ComparisonExpr {
	return &ComparisonExpr{Left: left, Operator: op, Right: right, Location: loc}
}

// TokenToLocation converts a token to a SourceLocation
func TokenToLocation(token lexer.Token) SourceLocation {
	return SourceLocation{
		File:   token.File,
		Line:   token.Line,
		Column: token.Column,
	}
}
