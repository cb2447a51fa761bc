package interp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	kerrors "github.com/shellkit/shellkit/compiler/errors"
	"github.com/shellkit/shellkit/compiler/parser"
	"github.com/shellkit/shellkit/pipeline"
)

// Expand evaluates a parsed value expression against the current scope,
// producing a runtime Value: literals pass through, variable references
// resolve and apply their path/length/default, interpolated strings
// concatenate their segments, and command substitutions run their body
// pipeline and capture trimmed stdout.
func (in *Interpreter) Expand(ctx context.Context, node parser.ValueNode) (Value, error) {
	switch v := node.(type) {
	case *parser.NullLiteral:
		return Null, nil
	case *parser.BoolLiteral:
		return Bool(v.Value), nil
	case *parser.IntLiteral:
		return Int(v.Value), nil
	case *parser.FloatLiteral:
		return Float(v.Value), nil
	case *parser.RawStringLiteral:
		return String(v.Value), nil
	case *parser.InterpStringExpr:
		var b strings.Builder
		for _, seg := range v.Parts {
			if seg.Var != nil {
				val, err := in.resolveVarRef(ctx, seg.Var)
				if err != nil {
					return Null, err
				}
				b.WriteString(val.String())
			} else {
				b.WriteString(seg.Literal)
			}
		}
		return String(b.String()), nil
	case *parser.VarRefExpr:
		return in.resolveVarRef(ctx, v)
	case *parser.ArrayLiteralExpr:
		elems := make([]Value, 0, len(v.Elements))
		for _, e := range v.Elements {
			val, err := in.Expand(ctx, e)
			if err != nil {
				return Null, err
			}
			elems = append(elems, val)
		}
		return Array(elems), nil
	case *parser.ObjectLiteralExpr:
		obj := make(map[string]Value, len(v.Pairs))
		for _, p := range v.Pairs {
			val, err := in.Expand(ctx, p.Value)
			if err != nil {
				return Null, err
			}
			obj[p.Key] = val
		}
		return Object(obj), nil
	case *parser.CommandSubstExpr:
		return in.expandCommandSubst(ctx, v)
	default:
		return Null, nil
	}
}

func (in *Interpreter) expandCommandSubst(ctx context.Context, c *parser.CommandSubstExpr) (Value, error) {
	stages := make([]pipeline.StageFunc, 0, len(c.Body.Commands))
	for _, cmd := range c.Body.Commands {
		cmd := cmd
		stages = append(stages, func(stdin []byte) ([]byte, []byte, int, error) {
			return in.runSimpleCommand(ctx, cmd, stdin)
		})
	}
	res := pipeline.Run(stages)
	if res.Err != nil {
		return Null, res.Err
	}
	return String(strings.TrimSuffix(string(res.Stdout), "\n")), nil
}

// resolveVarRef looks up a variable reference, applies its `${#VAR}`
// length form or `.field`/`[index]` path chain, and falls back to its
// `${VAR:-DEFAULT}` default when the variable is unset or its string
// form is empty.
func (in *Interpreter) resolveVarRef(ctx context.Context, ref *parser.VarRefExpr) (Value, error) {
	var base Value
	var found bool

	switch {
	case ref.Name == "?":
		if len(ref.Path) == 0 && !ref.LengthOf {
			base, found = Int(int64(in.lastResult.Code)), true
		} else {
			base, found = in.lastResultValue(), true
		}
	case ref.Name == "@":
		base, found = Array(in.currentPositional()), true
	case ref.Name == "#":
		base, found = Int(int64(len(in.currentPositional()))), true
	case len(ref.Name) == 1 && ref.Name[0] >= '0' && ref.Name[0] <= '9':
		idx, _ := strconv.Atoi(ref.Name)
		if idx == 0 {
			base, found = String(in.scriptName), true
		} else {
			pos := in.currentPositional()
			if idx-1 < len(pos) {
				base, found = pos[idx-1], true
			} else {
				base, found = String(""), true
			}
		}
	default:
		base, found = in.Scope.Get(ref.Name)
	}

	if !found || (ref.Default != nil && base.String() == "") {
		if ref.Default != nil {
			return in.Expand(ctx, ref.Default)
		}
		loc := kerrors.SourceLocation{File: ref.Location.File, Line: ref.Location.Line, Column: ref.Location.Column}
		return Null, kerrors.New(kerrors.KindName, kerrors.ErrUndefinedVariable,
			fmt.Sprintf("undefined variable %q", ref.Name), loc, kerrors.Error)
	}

	if ref.LengthOf {
		return Int(int64(base.Len())), nil
	}

	for _, seg := range ref.Path {
		if seg.IsIndex {
			base = base.Index(seg.Index)
		} else {
			base = base.Field(seg.Field)
		}
	}
	return base, nil
}
