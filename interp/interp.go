package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/shellkit/shellkit/compiler/lexer"
	"github.com/shellkit/shellkit/compiler/parser"
	"github.com/shellkit/shellkit/pipeline"
	"github.com/shellkit/shellkit/vfs"
)

// control names a non-local transfer of control raised while executing a
// statement list.
type control int

const (
	controlNone control = iota
	controlBreak
	controlContinue
	controlReturn
	controlExit
)

// flow carries a break/continue/return/exit up through nested statement
// execution until something catches it: a loop catches break/continue,
// a tool body catches return, the top-level Run catches exit.
type flow struct {
	kind  control
	level int
	code  int
}

// Interpreter walks a parsed Program, expanding values and executing
// statements against a Scope and a ToolCaller.
type Interpreter struct {
	Scope   *Scope
	Caller  ToolRegistrar
	Jobs    *pipeline.Manager
	VFS     *vfs.Router
	ErrExit bool // `set -e`: a failing pipeline aborts the script

	Stdout io.Writer
	Stderr io.Writer

	log        *zap.SugaredLogger
	lastResult ExecResult
	scriptDir  string
	scriptName string
	posArgs    [][]Value
}

// SetScriptDir sets the directory `source`/`.` resolves relative paths
// against, normally the directory of the top-level script being run.
func (in *Interpreter) SetScriptDir(dir string) {
	in.scriptDir = dir
}

// SetArgs names the running script (`$0`) and binds its remaining
// command-line arguments as the top-level positional parameters
// (`$1`.."$9", `$@`, `$#`).
func (in *Interpreter) SetArgs(name string, args []Value) {
	in.scriptName = name
	if len(in.posArgs) == 0 {
		in.posArgs = [][]Value{args}
	} else {
		in.posArgs[0] = args
	}
}

// pushPositional enters a new positional-parameter frame, for a
// user-defined tool body's own $1.."$9"/$@/$#.
func (in *Interpreter) pushPositional(args []Value) {
	in.posArgs = append(in.posArgs, args)
}

func (in *Interpreter) popPositional() {
	if len(in.posArgs) > 0 {
		in.posArgs = in.posArgs[:len(in.posArgs)-1]
	}
}

// currentPositional returns the positional arguments visible to the
// innermost executing tool body, or the top-level script's args.
func (in *Interpreter) currentPositional() []Value {
	if len(in.posArgs) == 0 {
		return nil
	}
	return in.posArgs[len(in.posArgs)-1]
}

// LastResult returns the most recently completed top-level command's
// ExecResult, the same record `$?` and its field accessors expose.
func (in *Interpreter) LastResult() ExecResult {
	return in.lastResult
}

// lastResultValue renders the last command's ExecResult as a Value
// object, so `${?.ok}`, `${?.code}`, `${?.out}`, `${?.err}`, and
// `${?.data...}` resolve as documented field accesses.
func (in *Interpreter) lastResultValue() Value {
	return Object(map[string]Value{
		"ok":   Bool(in.lastResult.OK),
		"code": Int(int64(in.lastResult.Code)),
		"out":  String(in.lastResult.Out),
		"err":  String(in.lastResult.Err),
		"data": in.lastResult.Data,
	})
}

// New creates an interpreter with a fresh root scope.
func New(caller ToolRegistrar, log *zap.SugaredLogger) *Interpreter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Interpreter{
		Scope:   NewScope(),
		Caller:  caller,
		Jobs:    pipeline.NewManager(),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		log:     log,
		posArgs: [][]Value{nil},
	}
}

// Run executes every top-level statement of program and returns the
// final exit status: the code of an `exit` statement, or the last
// pipeline's status if the script runs to completion.
func (in *Interpreter) Run(ctx context.Context, program *parser.Program) (int, error) {
	f, err := in.execStmts(ctx, program.Statements)
	if err != nil {
		return 1, err
	}
	if f != nil && f.kind == controlExit {
		return f.code, nil
	}
	return in.lastResult.Code, nil
}

func (in *Interpreter) execStmts(ctx context.Context, stmts []parser.StmtNode) (*flow, error) {
	for _, stmt := range stmts {
		f, err := in.execStmt(ctx, stmt)
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}
		if in.ErrExit && !in.lastResult.OK {
			return &flow{kind: controlExit, code: in.lastResult.Code}, nil
		}
	}
	return nil, nil
}

func (in *Interpreter) execStmt(ctx context.Context, stmt parser.StmtNode) (*flow, error) {
	switch s := stmt.(type) {
	case *parser.Pipeline:
		return nil, in.execPipeline(ctx, s)
	case *parser.AssignmentStmt:
		return nil, in.execAssignment(ctx, s)
	case *parser.IfStmt:
		return in.execIf(ctx, s)
	case *parser.ForStmt:
		return in.execFor(ctx, s)
	case *parser.WhileStmt:
		return in.execWhile(ctx, s)
	case *parser.BreakStmt:
		return &flow{kind: controlBreak, level: levelOr1(s.Level)}, nil
	case *parser.ContinueStmt:
		return &flow{kind: controlContinue, level: levelOr1(s.Level)}, nil
	case *parser.ReturnStmt:
		code := in.lastResult.Code
		if s.Code != nil {
			v, err := in.Expand(ctx, s.Code)
			if err != nil {
				return nil, err
			}
			code = int(mustInt(v))
		}
		return &flow{kind: controlReturn, code: code}, nil
	case *parser.ExitStmt:
		code := 0
		if s.Code != nil {
			v, err := in.Expand(ctx, s.Code)
			if err != nil {
				return nil, err
			}
			code = int(mustInt(v))
		}
		return &flow{kind: controlExit, code: code}, nil
	case *parser.ToolDefinitionStmt:
		in.defineTool(s)
		return nil, nil
	case *parser.SourceDirectiveStmt:
		return nil, in.execSource(ctx, s)
	case *parser.SetStmt:
		if s.Flag == "e" {
			in.ErrExit = s.Enable
		}
		return nil, nil
	case *parser.LogicalChainStmt:
		return in.execLogicalChain(ctx, s)
	default:
		return nil, fmt.Errorf("interp: unhandled statement type %T", stmt)
	}
}

func levelOr1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func mustInt(v Value) int64 {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return int64(v.Float)
	default:
		f, _ := v.AsFloat()
		return int64(f)
	}
}

func (in *Interpreter) execAssignment(ctx context.Context, s *parser.AssignmentStmt) error {
	v, err := in.Expand(ctx, s.Value)
	if err != nil {
		return err
	}
	if s.Scope == parser.ScopeLocal {
		in.Scope.SetLocal(s.Name, v)
	} else {
		in.Scope.Set(s.Name, v)
	}
	return nil
}

func (in *Interpreter) execIf(ctx context.Context, s *parser.IfStmt) (*flow, error) {
	ok, err := in.evalCondition(ctx, s.Condition)
	if err != nil {
		return nil, err
	}
	if ok {
		return in.execStmts(ctx, s.ThenBody)
	}
	for _, elif := range s.Elifs {
		ok, err := in.evalCondition(ctx, elif.Condition)
		if err != nil {
			return nil, err
		}
		if ok {
			return in.execStmts(ctx, elif.Body)
		}
	}
	if s.ElseBody != nil {
		return in.execStmts(ctx, s.ElseBody)
	}
	return nil, nil
}

func (in *Interpreter) execFor(ctx context.Context, s *parser.ForStmt) (*flow, error) {
	source, err := in.Expand(ctx, s.Source)
	if err != nil {
		return nil, err
	}

	var items []Value
	if source.Kind == KindArray {
		items = source.Array
	} else {
		for _, word := range strings.Fields(source.String()) {
			items = append(items, String(word))
		}
	}

	in.Scope.Push()
	defer in.Scope.Pop()

	for _, item := range items {
		in.Scope.SetLocal(s.Var, item)
		f, err := in.execStmts(ctx, s.Body)
		if err != nil {
			return nil, err
		}
		if f != nil {
			switch f.kind {
			case controlBreak:
				if f.level > 1 {
					return &flow{kind: controlBreak, level: f.level - 1}, nil
				}
				return nil, nil
			case controlContinue:
				if f.level > 1 {
					return &flow{kind: controlContinue, level: f.level - 1}, nil
				}
				continue
			default:
				return f, nil
			}
		}
	}
	return nil, nil
}

func (in *Interpreter) execWhile(ctx context.Context, s *parser.WhileStmt) (*flow, error) {
	in.Scope.Push()
	defer in.Scope.Pop()

	for {
		ok, err := in.evalCondition(ctx, s.Condition)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}

		f, err := in.execStmts(ctx, s.Body)
		if err != nil {
			return nil, err
		}
		if f != nil {
			switch f.kind {
			case controlBreak:
				if f.level > 1 {
					return &flow{kind: controlBreak, level: f.level - 1}, nil
				}
				return nil, nil
			case controlContinue:
				if f.level > 1 {
					return &flow{kind: controlContinue, level: f.level - 1}, nil
				}
				continue
			default:
				return f, nil
			}
		}
	}
}

func (in *Interpreter) execLogicalChain(ctx context.Context, s *parser.LogicalChainStmt) (*flow, error) {
	f, err := in.execStmt(ctx, s.Left)
	if err != nil || f != nil {
		return f, err
	}

	leftOK := in.lastResult.OK
	switch s.Operator {
	case lexer.TOKEN_AMP_AMP:
		if !leftOK {
			return nil, nil
		}
	case lexer.TOKEN_PIPE_PIPE:
		if leftOK {
			return nil, nil
		}
	}
	return in.execStmt(ctx, s.Right)
}

// evalCondition evaluates a Pipeline used as a condition: the synthetic
// `[[ ]]` one-stage pipeline is evaluated as a comparison; anything else
// runs as a normal pipeline and succeeds when its exit status is 0.
func (in *Interpreter) evalCondition(ctx context.Context, p *parser.Pipeline) (bool, error) {
	if len(p.Commands) == 1 && p.Commands[0].Name == "[[" && len(p.Commands[0].Args) == 1 {
		if pos, ok := p.Commands[0].Args[0].(*parser.PositionalArg); ok {
			if cmp, ok := pos.Value.(*parser.ComparisonExpr); ok {
				return in.evalComparison(ctx, cmp)
			}
		}
	}
	if err := in.execPipeline(ctx, p); err != nil {
		return false, err
	}
	return in.lastResult.OK, nil
}

func (in *Interpreter) evalComparison(ctx context.Context, cmp *parser.ComparisonExpr) (bool, error) {
	left, err := in.Expand(ctx, cmp.Left)
	if err != nil {
		return false, err
	}
	right, err := in.Expand(ctx, cmp.Right)
	if err != nil {
		return false, err
	}

	switch cmp.Operator {
	case lexer.TOKEN_EQUAL_EQUAL:
		return left.Equal(right), nil
	case lexer.TOKEN_BANG_EQUAL:
		return !left.Equal(right), nil
	case lexer.TOKEN_TILDE_EQUAL:
		matched, err := regexp.MatchString(right.String(), left.String())
		return matched, err
	case lexer.TOKEN_BANG_TILDE:
		matched, err := regexp.MatchString(right.String(), left.String())
		return !matched, err
	case lexer.TOKEN_NUM_EQ, lexer.TOKEN_NUM_NE, lexer.TOKEN_NUM_LT,
		lexer.TOKEN_NUM_GT, lexer.TOKEN_NUM_LE, lexer.TOKEN_NUM_GE:
		lf, lok := left.AsFloat()
		rf, rok := right.AsFloat()
		if !lok || !rok {
			return false, fmt.Errorf("non-numeric operand in numeric comparison")
		}
		switch cmp.Operator {
		case lexer.TOKEN_NUM_EQ:
			return lf == rf, nil
		case lexer.TOKEN_NUM_NE:
			return lf != rf, nil
		case lexer.TOKEN_NUM_LT:
			return lf < rf, nil
		case lexer.TOKEN_NUM_GT:
			return lf > rf, nil
		case lexer.TOKEN_NUM_LE:
			return lf <= rf, nil
		case lexer.TOKEN_NUM_GE:
			return lf >= rf, nil
		}
	}
	return false, fmt.Errorf("unsupported comparison operator")
}
