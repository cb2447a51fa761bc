package interp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shellkit/shellkit/compiler/parser"
	"github.com/shellkit/shellkit/pipeline"
)

// execPipeline runs a parsed Pipeline: each SimpleCommand becomes a
// pipeline.StageFunc, wired stdout-to-stdin in sequence. A `&` pipeline
// is handed to the job manager and returns immediately with ok=true.
// A pipeline containing a `scatter`/`gather` pair is routed through
// execScatterGather instead of the plain linear runner.
func (in *Interpreter) execPipeline(ctx context.Context, p *parser.Pipeline) error {
	if idx := scatterIndex(p.Commands); idx >= 0 {
		return in.execScatterGather(ctx, p, idx)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if p.Background {
		runCtx, cancel = context.WithCancel(ctx)
	}

	stages := make([]pipeline.StageFunc, 0, len(p.Commands))
	for i, cmd := range p.Commands {
		cmd := cmd
		stdin, err := in.stageStdin(runCtx, cmd, i)
		if err != nil {
			return err
		}
		stages = append(stages, func(prevOut []byte) ([]byte, []byte, int, error) {
			feed := prevOut
			if stdin != nil {
				feed = stdin
			}
			return in.runSimpleCommand(runCtx, cmd, feed)
		})
	}

	if p.Background {
		in.Jobs.StartCancelable(stages, cancel)
		in.lastResult = ExecResult{OK: true, Code: 0}
		return nil
	}

	res := pipeline.Run(stages)
	if err := in.applyRedirects(ctx, p.Redirects, res.Stdout); err != nil {
		return err
	}

	in.lastResult = ExecResult{OK: res.OK, Code: res.Code, Out: string(res.Stdout), Err: string(res.Stderr), Data: dataFromOut(res.Stdout)}
	if res.Err != nil {
		return res.Err
	}
	return nil
}

// stageStdin resolves a command's own `<` redirect, if any, reading the
// source file through the VFS router. Only the first stage's stdin can
// meaningfully come from a file; later stages already receive the
// previous stage's stdout.
func (in *Interpreter) stageStdin(ctx context.Context, cmd *parser.SimpleCommand, index int) ([]byte, error) {
	if index != 0 {
		return nil, nil
	}
	for _, r := range cmd.Redirects {
		if r.Operator == parser.RedirectStdinFrom {
			target, err := in.Expand(ctx, r.Target)
			if err != nil {
				return nil, err
			}
			if in.VFS == nil {
				return nil, fmt.Errorf("redirect < %s: no VFS router configured", target.String())
			}
			return in.VFS.Read(target.String())
		}
	}
	return nil, nil
}

// dataFromOut parses a pipeline's captured stdout as JSON when it looks
// like valid JSON, so ExecResult.Data carries structured data instead of
// only text. A `$(...)` substitution does not use it; it expands to the
// trimmed stdout string.
func dataFromOut(out []byte) Value {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return Null
	}
	var raw interface{}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return Null
	}
	return fromAny(raw)
}

// runSimpleCommand expands one command's arguments and dispatches it
// through the registry, applying any redirects attached directly to
// the command.
func (in *Interpreter) runSimpleCommand(ctx context.Context, cmd *parser.SimpleCommand, stdin []byte) ([]byte, []byte, int, error) {
	args := CallArgs{Named: map[string]Value{}, Stdin: stdin}

	for _, a := range cmd.Args {
		switch arg := a.(type) {
		case *parser.PositionalArg:
			v, err := in.Expand(ctx, arg.Value)
			if err != nil {
				return nil, nil, 1, err
			}
			args.Positional = append(args.Positional, v)
		case *parser.NamedArg:
			v, err := in.Expand(ctx, arg.Value)
			if err != nil {
				return nil, nil, 1, err
			}
			args.Named[arg.Key] = v
		case *parser.FlagArg:
			if args.Flags == nil {
				args.Flags = map[string]string{}
			}
			args.Flags[arg.Name] = arg.Value
		}
	}

	res, err := in.Caller.Call(withCaller(ctx, in), cmd.Name, args)
	if err != nil {
		return nil, []byte(err.Error()), 1, err
	}

	if err := in.applyRedirects(ctx, cmd.Redirects, []byte(res.Out)); err != nil {
		return nil, nil, 1, err
	}

	return []byte(res.Out), []byte(res.Err), res.Code, nil
}

// applyRedirects routes a stage's `>`/`>>`/`&>` output redirects through
// the VFS router, so redirect targets honor mounts and read-only
// backends exactly like any other VFS path operation.
func (in *Interpreter) applyRedirects(ctx context.Context, redirects []*parser.Redirect, out []byte) error {
	for _, r := range redirects {
		if r.Operator == parser.RedirectStdinFrom {
			continue
		}
		target, err := in.Expand(ctx, r.Target)
		if err != nil {
			return err
		}
		path := target.String()
		if in.VFS == nil {
			return fmt.Errorf("redirect to %s: no VFS router configured", path)
		}

		switch r.Operator {
		case parser.RedirectStdoutOverwrite, parser.RedirectCombinedOverwrite:
			if err := in.VFS.Write(path, out); err != nil {
				return err
			}
		case parser.RedirectStdoutAppend:
			if err := in.VFS.Append(path, out); err != nil {
				return err
			}
		case parser.RedirectStderrOverwrite:
			// stderr capture travels on ExecResult.Err, not out; the
			// caller already has it for its own display/capture needs.
		}
	}
	return nil
}
