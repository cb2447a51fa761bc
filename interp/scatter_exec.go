package interp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shellkit/shellkit/compiler/parser"
	"github.com/shellkit/shellkit/internal/cli/ui"
	"github.com/shellkit/shellkit/pipeline"
)

// scatterIndex returns the index of a `scatter` stage within a pipeline's
// commands, or -1 if the pipeline doesn't use scatter/gather.
func scatterIndex(cmds []*parser.SimpleCommand) int {
	for i, cmd := range cmds {
		if cmd.Name == "scatter" {
			return i
		}
	}
	return -1
}

// execScatterGather runs a pipeline containing a `scatter ... | ... | gather`
// segment: the stages before `scatter` produce a stream of items, each item
// runs the stages between `scatter` and `gather` concurrently in its own
// isolated scope, and `gather` collects the per-item results back into a
// single stream for any stages that follow it.
func (in *Interpreter) execScatterGather(ctx context.Context, p *parser.Pipeline, scatterIdx int) error {
	gatherIdx := -1
	for i := scatterIdx + 1; i < len(p.Commands); i++ {
		if p.Commands[i].Name == "gather" {
			gatherIdx = i
			break
		}
	}
	if gatherIdx < 0 {
		return fmt.Errorf("scatter without a matching gather stage")
	}

	prefix := p.Commands[:scatterIdx]
	scatterCmd := p.Commands[scatterIdx]
	middle := p.Commands[scatterIdx+1 : gatherIdx]
	gatherCmd := p.Commands[gatherIdx]
	after := p.Commands[gatherIdx+1:]

	feed, err := in.runScatterPrefix(ctx, prefix, scatterCmd)
	if err != nil {
		return err
	}
	items := splitItems(feed)

	asName, limit, err := in.scatterArgs(ctx, scatterCmd)
	if err != nil {
		return err
	}
	first, format, errorsPath, progress, err := in.gatherArgs(ctx, gatherCmd)
	if err != nil {
		return err
	}

	worker := func(workerCtx context.Context, item []byte) pipeline.Result {
		return in.runScatterItem(workerCtx, middle, asName, item)
	}
	opts := pipeline.ScatterOptions{Limit: limit, First: first}
	if progress && in.Stdout != nil {
		bar := ui.NewProgressBar(in.Stdout, ui.ProgressBarOptions{Total: len(items), Message: "scatter"})
		opts.OnComplete = func(done, total int) { bar.Set(done) }
		defer fmt.Fprintln(in.Stdout)
	}
	scattered := pipeline.Scatter(ctx, items, opts, worker)

	gatherOut, failures := gatherResults(scattered, format)

	if errorsPath != "" && len(failures) > 0 {
		if in.VFS == nil {
			return fmt.Errorf("gather errors=%s: no VFS router configured", errorsPath)
		}
		if err := in.VFS.Write(errorsPath, []byte(strings.Join(failures, "\n")+"\n")); err != nil {
			return err
		}
	}

	code := 0
	if len(failures) > 0 {
		code = 1
	}
	return in.finishScatterGather(ctx, p, after, gatherOut, code)
}

// runScatterPrefix runs the pipeline stages before `scatter` (if any) to
// produce the byte stream scatter splits into items. With no prefix stages,
// `scatter` itself takes stdin from its own `<` redirect, if present.
func (in *Interpreter) runScatterPrefix(ctx context.Context, prefix []*parser.SimpleCommand, scatterCmd *parser.SimpleCommand) ([]byte, error) {
	if len(prefix) == 0 {
		return in.stageStdin(ctx, scatterCmd, 0)
	}
	stages := make([]pipeline.StageFunc, 0, len(prefix))
	for i, cmd := range prefix {
		cmd := cmd
		stdin, err := in.stageStdin(ctx, cmd, i)
		if err != nil {
			return nil, err
		}
		stages = append(stages, func(prevOut []byte) ([]byte, []byte, int, error) {
			feed := prevOut
			if stdin != nil {
				feed = stdin
			}
			return in.runSimpleCommand(ctx, cmd, feed)
		})
	}
	res := pipeline.Run(stages)
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Stdout, nil
}

// scatterArgs reads `scatter`'s `as=VAR` (default ITEM) and `limit=N`
// (default 8) named arguments.
func (in *Interpreter) scatterArgs(ctx context.Context, scatterCmd *parser.SimpleCommand) (asName string, limit int, err error) {
	asName, limit = "ITEM", 8
	for _, a := range scatterCmd.Args {
		named, ok := a.(*parser.NamedArg)
		if !ok {
			continue
		}
		v, err := in.Expand(ctx, named.Value)
		if err != nil {
			return "", 0, err
		}
		switch named.Key {
		case "as":
			asName = v.String()
		case "limit":
			if n, ok := v.AsFloat(); ok {
				limit = int(n)
			}
		}
	}
	return asName, limit, nil
}

// gatherArgs reads `gather`'s `first=N`, `format=lines|json`,
// `errors=PATH`, and `progress=bool` named arguments. `progress=true`
// renders a live progress bar on the interpreter's stdout as workers
// complete, driven by pipeline.ScatterOptions.OnComplete.
func (in *Interpreter) gatherArgs(ctx context.Context, gatherCmd *parser.SimpleCommand) (first int, format, errorsPath string, progress bool, err error) {
	format = "lines"
	for _, a := range gatherCmd.Args {
		named, ok := a.(*parser.NamedArg)
		if !ok {
			continue
		}
		v, err := in.Expand(ctx, named.Value)
		if err != nil {
			return 0, "", "", false, err
		}
		switch named.Key {
		case "first":
			if n, ok := v.AsFloat(); ok {
				first = int(n)
			}
		case "format":
			format = v.String()
		case "errors":
			errorsPath = v.String()
		case "progress":
			progress = v.Truthy()
		}
	}
	return first, format, errorsPath, progress, nil
}

// runScatterItem runs the stages between `scatter` and `gather` against a
// single item, in a scope cloned from the parent interpreter's so that
// concurrent workers never share mutable state.
func (in *Interpreter) runScatterItem(ctx context.Context, middle []*parser.SimpleCommand, asName string, item []byte) pipeline.Result {
	sub := &Interpreter{
		Scope:      in.Scope.Clone(),
		Caller:     in.Caller,
		Jobs:       in.Jobs,
		VFS:        in.VFS,
		ErrExit:    in.ErrExit,
		Stdout:     in.Stdout,
		Stderr:     in.Stderr,
		log:        in.log,
		scriptDir:  in.scriptDir,
		scriptName: in.scriptName,
		posArgs:    [][]Value{in.currentPositional()},
	}
	sub.Scope.SetLocal(asName, itemValue(item))

	if len(middle) == 0 {
		return pipeline.Result{OK: true, Code: 0, Stdout: item}
	}

	stages := make([]pipeline.StageFunc, 0, len(middle))
	for i, cmd := range middle {
		cmd, first := cmd, i == 0
		stages = append(stages, func(prevOut []byte) ([]byte, []byte, int, error) {
			feed := prevOut
			if first {
				feed = item
			}
			return sub.runSimpleCommand(ctx, cmd, feed)
		})
	}
	return pipeline.Run(stages)
}

// gatherResults aggregates scattered worker results in completion order:
// `lines` joins trimmed stdout one per line, `json` produces a JSON array
// of per-item result objects. It also collects one failure summary line
// per non-OK result, for `gather`'s `errors=PATH` option.
func gatherResults(scattered []pipeline.ScatterResult, format string) (out []byte, failures []string) {
	if format == "json" {
		results := make([]Value, 0, len(scattered))
		for _, r := range scattered {
			if !r.Result.OK {
				failures = append(failures, fmt.Sprintf("item %d: %s", r.Index, strings.TrimSpace(string(r.Result.Stderr))))
			}
			results = append(results, Object(map[string]Value{
				"index": Int(int64(r.Index)),
				"ok":    Bool(r.Result.OK),
				"code":  Int(int64(r.Result.Code)),
				"out":   String(string(r.Result.Stdout)),
			}))
		}
		b, err := json.Marshal(results)
		if err != nil {
			return nil, failures
		}
		return b, failures
	}

	var buf bytes.Buffer
	for _, r := range scattered {
		if !r.Result.OK {
			failures = append(failures, fmt.Sprintf("item %d: %s", r.Index, strings.TrimSpace(string(r.Result.Stderr))))
		}
		buf.Write(bytes.TrimRight(r.Result.Stdout, "\n"))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), failures
}

// finishScatterGather feeds gather's aggregated output through any stages
// that follow `gather` in the pipeline, applies the pipeline's own
// redirects, and records the overall result as in.lastResult.
func (in *Interpreter) finishScatterGather(ctx context.Context, p *parser.Pipeline, after []*parser.SimpleCommand, gatherOut []byte, code int) error {
	if len(after) == 0 {
		if err := in.applyRedirects(ctx, p.Redirects, gatherOut); err != nil {
			return err
		}
		in.lastResult = ExecResult{OK: code == 0, Code: code, Out: string(gatherOut), Data: dataFromOut(gatherOut)}
		return nil
	}

	stages := make([]pipeline.StageFunc, 0, len(after)+1)
	stages = append(stages, func([]byte) ([]byte, []byte, int, error) {
		return gatherOut, nil, code, nil
	})
	for _, cmd := range after {
		cmd := cmd
		stages = append(stages, func(prevOut []byte) ([]byte, []byte, int, error) {
			return in.runSimpleCommand(ctx, cmd, prevOut)
		})
	}
	res := pipeline.Run(stages)
	if err := in.applyRedirects(ctx, p.Redirects, res.Stdout); err != nil {
		return err
	}
	in.lastResult = ExecResult{OK: res.OK, Code: res.Code, Out: string(res.Stdout), Err: string(res.Stderr), Data: dataFromOut(res.Stdout)}
	return res.Err
}

// splitItems breaks scatter's input stream into items: if it parses as a
// JSON array, each element becomes one item; otherwise each non-blank line
// does.
func splitItems(data []byte) [][]byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err == nil {
			items := make([][]byte, len(raw))
			for i, r := range raw {
				items[i] = []byte(r)
			}
			return items
		}
	}
	var items [][]byte
	for _, line := range strings.Split(string(trimmed), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		items = append(items, []byte(line))
	}
	return items
}

// itemValue converts one scatter item's raw bytes into the Value bound to
// the worker's `as` variable: parsed JSON when the item looks like JSON, a
// plain string otherwise.
func itemValue(item []byte) Value {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 {
		return String("")
	}
	var raw interface{}
	if err := json.Unmarshal(trimmed, &raw); err == nil {
		switch raw.(type) {
		case map[string]interface{}, []interface{}, float64, bool, nil:
			return fromAny(raw)
		}
	}
	return String(string(trimmed))
}
