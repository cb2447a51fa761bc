package interp

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/shellkit/shellkit/compiler/lexer"
	"github.com/shellkit/shellkit/compiler/parser"
)

// callerKey is the context key a user-defined tool's handler uses to
// recover which Interpreter actually dispatched the call. The registry
// is shared across the parent interpreter and every scatter worker's
// cloned sub-interpreter, so a tool body must run against the scope of
// whichever one is calling right now, not the scope of whichever one
// happened to define the tool — otherwise concurrent scatter workers
// would race on the defining interpreter's shared scope frame.
type callerKey struct{}

// withCaller attaches in to ctx as the interpreter a tool call dispatched
// through it should run its body against.
func withCaller(ctx context.Context, in *Interpreter) context.Context {
	return context.WithValue(ctx, callerKey{}, in)
}

// callerFrom recovers the interpreter attached by withCaller, falling
// back to defining when the call didn't come through runSimpleCommand
// (e.g. a direct unit-test invocation of a registered handler).
func callerFrom(ctx context.Context, defining *Interpreter) *Interpreter {
	if in, ok := ctx.Value(callerKey{}).(*Interpreter); ok {
		return in
	}
	return defining
}

// defineTool registers a `tool NAME { params... } do ... done` statement
// with the interpreter's registrar: calling the tool later pushes a new
// scope frame, binds its arguments by name (falling back to positional
// order, then declared defaults), runs its body, and converts a `return`
// into the call's exit status.
func (in *Interpreter) defineTool(s *parser.ToolDefinitionStmt) {
	params := make([]Param, len(s.Params))
	for i, p := range s.Params {
		param := Param{Name: p.Name, Type: p.Type, HasDefault: p.HasDefault}
		if p.HasDefault {
			if v, err := in.Expand(context.Background(), p.Default); err == nil {
				param.Default = v
			}
		}
		params[i] = param
	}

	body := s.Body
	fn := func(ctx context.Context, args CallArgs) ExecResult {
		// Dispatch against whichever interpreter is actually calling —
		// the top-level one, or a scatter worker's cloned sub-interpreter
		// — never the interpreter that happened to define the tool.
		caller := callerFrom(ctx, in)

		caller.Scope.Push()
		defer caller.Scope.Pop()

		caller.pushPositional(args.Positional)
		defer caller.popPositional()

		for i, p := range params {
			v, ok := args.Named[p.Name]
			if !ok && i < len(args.Positional) {
				v, ok = args.Positional[i], true
			}
			if !ok {
				if p.HasDefault {
					v = p.Default
				} else {
					v = Null
				}
			} else if !v.AssignableTo(p.Type) {
				return ExecResult{OK: false, Code: 1, Err: fmt.Sprintf(
					"parameter %q: cannot assign a %s to declared type %s", p.Name, v.Kind, p.Type)}
			}
			caller.Scope.SetLocal(p.Name, v)
		}

		f, err := caller.execStmts(ctx, body)
		if err != nil {
			return ExecResult{OK: false, Code: 1, Err: err.Error()}
		}

		// The tool's result is its last command's ExecResult; an explicit
		// `return N` overrides only the exit code, not captured stdout,
		// per the builtin return-value contract.
		result := caller.lastResult
		if f != nil && (f.kind == controlReturn || f.kind == controlExit) {
			result.Code = f.code
			result.OK = f.code == 0
		}
		return result
	}

	in.Caller.RegisterUser(s.Name, params, fn)
}

// execSource reads the target script through the VFS router and runs
// its statements in the current scope, the way `source`/`.` inline a
// file rather than calling it as a subprocess.
func (in *Interpreter) execSource(ctx context.Context, s *parser.SourceDirectiveStmt) error {
	pathVal, err := in.Expand(ctx, s.Path)
	if err != nil {
		return err
	}
	path := pathVal.String()
	if !filepath.IsAbs(path) && in.scriptDir != "" {
		path = filepath.Join(in.scriptDir, path)
	}

	if in.VFS == nil {
		return fmt.Errorf("source %s: no VFS router configured", path)
	}
	data, err := in.VFS.Read(path)
	if err != nil {
		return fmt.Errorf("source %s: %w", path, err)
	}

	tokens, lexErrs := lexer.New(string(data), path).ScanTokens()
	if len(lexErrs) > 0 {
		return fmt.Errorf("source %s: %s", path, lexErrs[0].Message)
	}

	program, parseErrs := parser.New(tokens).Parse()
	if len(parseErrs) > 0 {
		return fmt.Errorf("source %s: %s", path, parseErrs[0].Message)
	}

	_, err = in.execStmts(ctx, program.Statements)
	return err
}
