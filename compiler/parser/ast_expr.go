package parser

import "github.com/shellkit/shellkit/compiler/lexer"

// StmtNode is the interface for all statement AST nodes.
type StmtNode interface {
	stmtNode()
	GetLocation() SourceLocation
}

// ArgumentNode is the interface for the three argument forms a simple
// command can take: a bare positional value, a `key=value` named
// argument, or a `-x`/`--name`/`--name=value` flag.
type ArgumentNode interface {
	argumentNode()
	GetLocation() SourceLocation
}

// PositionalArg is a bare argument value: `deploy prod`.
type PositionalArg struct {
	Value    ValueNode
	Location SourceLocation
}

func (a *PositionalArg) argumentNode()             {}
func (a *PositionalArg) GetLocation() SourceLocation { return a.Location }

// NewPositionalArg creates a new positional argument
func NewPositionalArg(value ValueNode, loc SourceLocation) *PositionalArg {
	return &PositionalArg{Value: value, Location: loc}
}

// NamedArg is a `key=value` argument. The parser accepts this form only
// when there is no whitespace around `=`; whitespace is a parse error.
type NamedArg struct {
	Key      string
	Value    ValueNode
	Location SourceLocation
}

func (a *NamedArg) argumentNode()             {}
func (a *NamedArg) GetLocation() SourceLocation { return a.Location }

// NewNamedArg creates a new named argument
func NewNamedArg(key string, value ValueNode, loc SourceLocation) *NamedArg {
	return &NamedArg{Key: key, Value: value, Location: loc}
}

// FlagArg is a `-x` or `--name`/`--name=value` flag argument.
type FlagArg struct {
	Name     string
	HasValue bool
	Value    string
	Location SourceLocation
}

func (a *FlagArg) argumentNode()             {}
func (a *FlagArg) GetLocation() SourceLocation { return a.Location }

// NewFlagArg creates a new flag argument
func NewFlagArg(name string, hasValue bool, value string, loc SourceLocation) *FlagArg {
	return &FlagArg{Name: name, HasValue: hasValue, Value: value, Location: loc}
}

// RedirectOp names the five redirect operators the grammar recognizes.
type RedirectOp int

const (
	RedirectStdoutOverwrite RedirectOp = iota // >
	RedirectStdoutAppend                      // >>
	RedirectStdinFrom                         // <
	RedirectStderrOverwrite                   // 2>
	RedirectCombinedOverwrite                 // &>
)

// Redirect represents one I/O redirection attached to a command.
type Redirect struct {
	Operator RedirectOp
	Target   ValueNode
	Location SourceLocation
}

// NewRedirect creates a new redirect
func NewRedirect(op RedirectOp, target ValueNode, loc SourceLocation) *Redirect {
	return &Redirect{Operator: op, Target: target, Location: loc}
}

// SimpleCommand is a single command invocation: a tool or builtin name,
// its arguments, and any redirects attached directly to it.
type SimpleCommand struct {
	Name      string
	Args      []ArgumentNode
	Redirects []*Redirect
	Location  SourceLocation
}

// NewSimpleCommand creates a new simple command
func NewSimpleCommand(name string, args []ArgumentNode, redirects []*Redirect, loc SourceLocation) *SimpleCommand {
	return &SimpleCommand{Name: name, Args: args, Redirects: redirects, Location: loc}
}

// Pipeline chains one or more simple commands with `|`, optionally run
// in the background with a trailing `&`. It is itself a statement: a
// bare command is a one-stage pipeline.
type Pipeline struct {
	Commands   []*SimpleCommand
	Background bool
	Redirects  []*Redirect // redirects attached to the pipeline as a whole
	Location   SourceLocation
}

func (s *Pipeline) stmtNode()                  {}
func (s *Pipeline) GetLocation() SourceLocation { return s.Location }

// NewPipeline creates a new pipeline statement
func NewPipeline(commands []*SimpleCommand, background bool, redirects []*Redirect, loc SourceLocation) *Pipeline {
	return &Pipeline{Commands: commands, Background: background, Redirects: redirects, Location: loc}
}

// AssignmentScope names whether an assignment writes to the current
// frame only (`local`) or to the root scope (bare/global).
type AssignmentScope int

const (
	ScopeGlobal AssignmentScope = iota
	ScopeLocal
)

// AssignmentStmt represents `NAME=value` or `local NAME=value`.
type AssignmentStmt struct {
	Name     string
	Value    ValueNode
	Scope    AssignmentScope
	Location SourceLocation
}

func (s *AssignmentStmt) stmtNode()                  {}
func (s *AssignmentStmt) GetLocation() SourceLocation { return s.Location }

// NewAssignmentStmt creates a new assignment statement
func NewAssignmentStmt(name string, value ValueNode, scope AssignmentScope, loc SourceLocation) *AssignmentStmt {
	return &AssignmentStmt{Name: name, Value: value, Scope: scope, Location: loc}
}

// ElifBranch is one `elif` arm of an IfStmt.
type ElifBranch struct {
	Condition *Pipeline
	Body      []StmtNode
}

// IfStmt represents `if ... then ... [elif ... then ...] [else ...] fi`.
type IfStmt struct {
	Condition *Pipeline
	ThenBody  []StmtNode
	Elifs     []ElifBranch
	ElseBody  []StmtNode
	Location  SourceLocation
}

func (s *IfStmt) stmtNode()                  {}
func (s *IfStmt) GetLocation() SourceLocation { return s.Location }

// NewIfStmt creates a new if statement
func NewIfStmt(cond *Pipeline, thenBody []StmtNode, elifs []ElifBranch, elseBody []StmtNode, loc SourceLocation) *IfStmt {
	return &IfStmt{Condition: cond, ThenBody: thenBody, Elifs: elifs, ElseBody: elseBody, Location: loc}
}

// ForStmt represents `for VAR in SOURCE; do ... done`.
type ForStmt struct {
	Var      string
	Source   ValueNode
	Body     []StmtNode
	Location SourceLocation
}

func (s *ForStmt) stmtNode()                  {}
func (s *ForStmt) GetLocation() SourceLocation { return s.Location }

// NewForStmt creates a new for statement
func NewForStmt(v string, source ValueNode, body []StmtNode, loc SourceLocation) *ForStmt {
	return &ForStmt{Var: v, Source: source, Body: body, Location: loc}
}

// WhileStmt represents `while ...; do ... done`.
type WhileStmt struct {
	Condition *Pipeline
	Body      []StmtNode
	Location  SourceLocation
}

func (s *WhileStmt) stmtNode()                  {}
func (s *WhileStmt) GetLocation() SourceLocation { return s.Location }

// NewWhileStmt creates a new while statement
func NewWhileStmt(cond *Pipeline, body []StmtNode, loc SourceLocation) *WhileStmt {
	return &WhileStmt{Condition: cond, Body: body, Location: loc}
}

// BreakStmt represents `break [N]`.
type BreakStmt struct {
	Level    int // defaults to 1
	Location SourceLocation
}

func (s *BreakStmt) stmtNode()                  {}
func (s *BreakStmt) GetLocation() SourceLocation { return s.Location }

// NewBreakStmt creates a new break statement
func NewBreakStmt(level int, loc SourceLocation) *BreakStmt {
	return &BreakStmt{Level: level, Location: loc}
}

// ContinueStmt represents `continue [N]`.
type ContinueStmt struct {
	Level    int // defaults to 1
	Location SourceLocation
}

func (s *ContinueStmt) stmtNode()                  {}
func (s *ContinueStmt) GetLocation() SourceLocation { return s.Location }

// NewContinueStmt creates a new continue statement
func NewContinueStmt(level int, loc SourceLocation) *ContinueStmt {
	return &ContinueStmt{Level: level, Location: loc}
}

// ReturnStmt represents `return [code]` inside a tool body.
type ReturnStmt struct {
	Code     ValueNode // nil means the last pipeline's exit status
	Location SourceLocation
}

func (s *ReturnStmt) stmtNode()                  {}
func (s *ReturnStmt) GetLocation() SourceLocation { return s.Location }

// NewReturnStmt creates a new return statement
func NewReturnStmt(code ValueNode, loc SourceLocation) *ReturnStmt {
	return &ReturnStmt{Code: code, Location: loc}
}

// ExitStmt represents `exit [code]` at the top level of a script.
type ExitStmt struct {
	Code     ValueNode // nil means 0
	Location SourceLocation
}

func (s *ExitStmt) stmtNode()                  {}
func (s *ExitStmt) GetLocation() SourceLocation { return s.Location }

// NewExitStmt creates a new exit statement
func NewExitStmt(code ValueNode, loc SourceLocation) *ExitStmt {
	return &ExitStmt{Code: code, Location: loc}
}

// ParamDef is one declared parameter of a tool definition.
type ParamDef struct {
	Name       string
	Type       string // "string", "int", "float", "bool", "array", "object"; "" means untyped
	HasDefault bool
	Default    ValueNode
	Location   SourceLocation
}

// NewParamDef creates a new parameter definition
func NewParamDef(name, typ string, hasDefault bool, def ValueNode, loc SourceLocation) *ParamDef {
	return &ParamDef{Name: name, Type: typ, HasDefault: hasDefault, Default: def, Location: loc}
}

// ToolDefinitionStmt represents `tool NAME { params... } do ... done`,
// registering a user-defined tool in the registry.
type ToolDefinitionStmt struct {
	Name     string
	Params   []*ParamDef
	Body     []StmtNode
	Location SourceLocation
}

func (s *ToolDefinitionStmt) stmtNode()                  {}
func (s *ToolDefinitionStmt) GetLocation() SourceLocation { return s.Location }

// NewToolDefinitionStmt creates a new tool definition statement
func NewToolDefinitionStmt(name string, params []*ParamDef, body []StmtNode, loc SourceLocation) *ToolDefinitionStmt {
	return &ToolDefinitionStmt{Name: name, Params: params, Body: body, Location: loc}
}

// SourceDirectiveStmt represents `source PATH` (or `. PATH`): the target
// script is parsed and executed in the current scope.
type SourceDirectiveStmt struct {
	Path     ValueNode
	Location SourceLocation
}

func (s *SourceDirectiveStmt) stmtNode()                  {}
func (s *SourceDirectiveStmt) GetLocation() SourceLocation { return s.Location }

// NewSourceDirectiveStmt creates a new source directive statement
func NewSourceDirectiveStmt(path ValueNode, loc SourceLocation) *SourceDirectiveStmt {
	return &SourceDirectiveStmt{Path: path, Location: loc}
}

// SetStmt represents `set -e` and related shell-option toggles.
type SetStmt struct {
	Flag     string // e.g. "e"
	Enable   bool   // true for `set -e`, false for `set +e`
	Location SourceLocation
}

func (s *SetStmt) stmtNode()                  {}
func (s *SetStmt) GetLocation() SourceLocation { return s.Location }

// NewSetStmt creates a new set statement
func NewSetStmt(flag string, enable bool, loc SourceLocation) *SetStmt {
	return &SetStmt{Flag: flag, Enable: enable, Location: loc}
}

// LogicalChainStmt represents `left && right` or `left || right`,
// short-circuiting on the left statement's exit status.
type LogicalChainStmt struct {
	Left     StmtNode
	Operator lexer.TokenType // TOKEN_AMP_AMP or TOKEN_PIPE_PIPE
	Right    StmtNode
	Location SourceLocation
}

func (s *LogicalChainStmt) stmtNode()                  {}
func (s *LogicalChainStmt) GetLocation() SourceLocation { return s.Location }

// NewLogicalChainStmt creates a new logical chain statement
func NewLogicalChainStmt(left StmtNode, op lexer.TokenType, right StmtNode, loc SourceLocation) *LogicalChainStmt {
	return &LogicalChainStmt{Left: left, Operator: op, Right: right, Location: loc}
}
