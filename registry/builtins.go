package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shellkit/shellkit/interp"
	"github.com/shellkit/shellkit/internal/cli/ui"
	"github.com/shellkit/shellkit/vfs"
)

// registerBuiltins installs the standard builtin tool set. `source` and
// `set` are handled as AST statements rather than builtins (they need to
// run in the interpreter's own scope/control-flow, not a sandboxed
// ExecResult call), so they have no entry here.
func registerBuiltins(r *Registry) {
	r.builtins["echo"] = &Entry{Name: "echo", Kind: KindBuiltin, Fn: builtinEcho}
	r.builtins["print"] = &Entry{Name: "print", Kind: KindBuiltin, Fn: builtinEcho}
	r.builtins["true"] = &Entry{Name: "true", Kind: KindBuiltin, Fn: builtinTrue}
	r.builtins["false"] = &Entry{Name: "false", Kind: KindBuiltin, Fn: builtinFalse}
	r.builtins["tools"] = &Entry{Name: "tools", Kind: KindBuiltin, Fn: r.builtinTools}
	r.builtins["sleep"] = &Entry{Name: "sleep", Kind: KindBuiltin, Fn: builtinSleep}
	r.builtins["cat"] = &Entry{Name: "cat", Kind: KindBuiltin, Fn: r.builtinCat}
	r.builtins["ls"] = &Entry{Name: "ls", Kind: KindBuiltin, Fn: r.builtinLs}
	r.builtins["cd"] = &Entry{Name: "cd", Kind: KindBuiltin, Fn: r.builtinCd}
	r.builtins["pwd"] = &Entry{Name: "pwd", Kind: KindBuiltin, Fn: r.builtinPwd}
	r.builtins["write"] = &Entry{Name: "write", Kind: KindBuiltin, Fn: r.builtinWrite}
	r.builtins["mkdir"] = &Entry{Name: "mkdir", Kind: KindBuiltin, Fn: r.builtinMkdir}
	r.builtins["rm"] = &Entry{Name: "rm", Kind: KindBuiltin, Fn: r.builtinRm}
	r.builtins["cp"] = &Entry{Name: "cp", Kind: KindBuiltin, Fn: r.builtinCp}
	r.builtins["mv"] = &Entry{Name: "mv", Kind: KindBuiltin, Fn: r.builtinMv}
	r.builtins["grep"] = &Entry{Name: "grep", Kind: KindBuiltin, Fn: builtinGrep}
	r.builtins["jq"] = &Entry{Name: "jq", Kind: KindBuiltin, Fn: builtinJq}
	r.builtins["help"] = &Entry{Name: "help", Kind: KindBuiltin, Fn: r.builtinHelp}
	r.builtins["jobs"] = &Entry{Name: "jobs", Kind: KindBuiltin, Fn: r.builtinJobs}
	r.builtins["wait"] = &Entry{Name: "wait", Kind: KindBuiltin, Fn: r.builtinWait}
	r.builtins["assert"] = &Entry{Name: "assert", Kind: KindBuiltin, Fn: builtinAssert}
	r.builtins["date"] = &Entry{Name: "date", Kind: KindBuiltin, Fn: builtinDate}
	r.builtins["vars"] = &Entry{Name: "vars", Kind: KindBuiltin, Fn: r.builtinVars}
	r.builtins["mounts"] = &Entry{Name: "mounts", Kind: KindBuiltin, Fn: r.builtinMounts}
	r.builtins["history"] = &Entry{Name: "history", Kind: KindBuiltin, Fn: r.builtinHistory}
	r.builtins["mount"] = &Entry{Name: "mount", Kind: KindBuiltin, Fn: r.builtinMount}
	r.builtins["unmount"] = &Entry{Name: "unmount", Kind: KindBuiltin, Fn: r.builtinUnmount}
	r.builtins["exec"] = &Entry{Name: "exec", Kind: KindBuiltin, Fn: r.builtinExec}
}

func argStrings(args interp.CallArgs) []string {
	out := make([]string, 0, len(args.Positional))
	for _, v := range args.Positional {
		out = append(out, v.String())
	}
	return out
}

func errResult(format string, a ...interface{}) interp.ExecResult {
	return interp.ExecResult{OK: false, Code: 1, Err: fmt.Sprintf(format, a...)}
}

func builtinEcho(_ context.Context, args interp.CallArgs) interp.ExecResult {
	line := strings.Join(argStrings(args), " ")
	return interp.ExecResult{OK: true, Code: 0, Out: line + "\n", Data: interp.String(line)}
}

func builtinTrue(_ context.Context, _ interp.CallArgs) interp.ExecResult {
	return interp.ExecResult{OK: true, Code: 0}
}

func builtinFalse(_ context.Context, _ interp.CallArgs) interp.ExecResult {
	return interp.ExecResult{OK: false, Code: 1}
}

// builtinTools returns the registered tool names as a structured array
// value, so it composes with $(tools) command substitution.
func (r *Registry) builtinTools(_ context.Context, _ interp.CallArgs) interp.ExecResult {
	names := r.Names()
	values := make([]interp.Value, len(names))
	for i, n := range names {
		values[i] = interp.String(n)
	}
	return interp.ExecResult{OK: true, Code: 0, Out: strings.Join(names, "\n") + "\n", Data: interp.Array(values)}
}

func builtinSleep(ctx context.Context, args interp.CallArgs) interp.ExecResult {
	if len(args.Positional) == 0 {
		return errResult("sleep: missing duration")
	}
	seconds, ok := args.Positional[0].AsFloat()
	if !ok {
		return errResult("sleep: invalid duration %q", args.Positional[0].String())
	}
	select {
	case <-ctx.Done():
		return interp.ExecResult{OK: false, Code: 130, Err: "sleep: cancelled"}
	case <-time.After(time.Duration(seconds * float64(time.Second))):
	}
	return interp.ExecResult{OK: true, Code: 0}
}

// resolvePath joins a possibly-relative argument against the registry's
// tracked working directory, the way `cd`/`ls`/`cat` expect paths to
// behave interactively.
func (r *Registry) resolvePath(p string) string {
	if p == "" {
		return r.Cwd()
	}
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Join(r.Cwd(), p)
}

func (r *Registry) builtinCat(_ context.Context, args interp.CallArgs) interp.ExecResult {
	mount := r.Mount()
	if len(args.Positional) == 0 {
		return interp.ExecResult{OK: true, Code: 0, Out: string(args.Stdin)}
	}
	if mount == nil {
		return errResult("cat: no mount router attached")
	}
	var b strings.Builder
	for _, v := range args.Positional {
		data, err := mount.Read(r.resolvePath(v.String()))
		if err != nil {
			return errResult("cat: %s: %v", v.String(), err)
		}
		b.Write(data)
	}
	return interp.ExecResult{OK: true, Code: 0, Out: b.String()}
}

func (r *Registry) builtinLs(_ context.Context, args interp.CallArgs) interp.ExecResult {
	mount := r.Mount()
	if mount == nil {
		return errResult("ls: no mount router attached")
	}
	target := r.Cwd()
	if len(args.Positional) > 0 {
		target = r.resolvePath(args.Positional[0].String())
	}
	entries, err := mount.List(target)
	if err != nil {
		return errResult("ls: %s: %v", target, err)
	}
	names := make([]interp.Value, len(entries))
	var b strings.Builder
	for i, e := range entries {
		name := e.Name
		if e.IsDir {
			name += "/"
		}
		names[i] = interp.Object(map[string]interp.Value{
			"name":  interp.String(e.Name),
			"size":  interp.Int(e.Size),
			"isDir": interp.Bool(e.IsDir),
		})
		b.WriteString(name)
		b.WriteString("\n")
	}
	return interp.ExecResult{OK: true, Code: 0, Out: b.String(), Data: interp.Array(names)}
}

func (r *Registry) builtinCd(_ context.Context, args interp.CallArgs) interp.ExecResult {
	mount := r.Mount()
	target := "/"
	if len(args.Positional) > 0 {
		target = r.resolvePath(args.Positional[0].String())
	}
	if mount != nil {
		if info, err := mount.Stat(target); err == nil && !info.IsDir {
			return errResult("cd: %s: not a directory", target)
		}
	}
	r.SetCwd(target)
	return interp.ExecResult{OK: true, Code: 0}
}

func (r *Registry) builtinPwd(_ context.Context, _ interp.CallArgs) interp.ExecResult {
	cwd := r.Cwd()
	return interp.ExecResult{OK: true, Code: 0, Out: cwd + "\n", Data: interp.String(cwd)}
}

func (r *Registry) builtinWrite(_ context.Context, args interp.CallArgs) interp.ExecResult {
	mount := r.Mount()
	if mount == nil {
		return errResult("write: no mount router attached")
	}
	if len(args.Positional) == 0 {
		return errResult("write: missing path")
	}
	target := r.resolvePath(args.Positional[0].String())
	data := []byte(strings.Join(argStringsFrom(args.Positional[1:]), " "))
	if len(args.Positional) == 1 {
		data = args.Stdin
	}
	var err error
	if args.Named["append"].Truthy() {
		err = mount.Append(target, data)
	} else {
		err = mount.Write(target, data)
	}
	if err != nil {
		return errResult("write: %s: %v", target, err)
	}
	return interp.ExecResult{OK: true, Code: 0}
}

func argStringsFrom(vals []interp.Value) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}

func (r *Registry) builtinMkdir(_ context.Context, args interp.CallArgs) interp.ExecResult {
	mount := r.Mount()
	if mount == nil {
		return errResult("mkdir: no mount router attached")
	}
	if len(args.Positional) == 0 {
		return errResult("mkdir: missing path")
	}
	target := r.resolvePath(args.Positional[0].String())
	if err := mount.Mkdir(target); err != nil {
		return errResult("mkdir: %s: %v", target, err)
	}
	return interp.ExecResult{OK: true, Code: 0}
}

func (r *Registry) builtinRm(_ context.Context, args interp.CallArgs) interp.ExecResult {
	mount := r.Mount()
	if mount == nil {
		return errResult("rm: no mount router attached")
	}
	if len(args.Positional) == 0 {
		return errResult("rm: missing path")
	}
	for _, v := range args.Positional {
		target := r.resolvePath(v.String())
		if err := mount.Remove(target); err != nil {
			return errResult("rm: %s: %v", target, err)
		}
	}
	return interp.ExecResult{OK: true, Code: 0}
}

func (r *Registry) builtinCp(_ context.Context, args interp.CallArgs) interp.ExecResult {
	mount := r.Mount()
	if mount == nil {
		return errResult("cp: no mount router attached")
	}
	if len(args.Positional) != 2 {
		return errResult("cp: usage: cp SRC DST")
	}
	src := r.resolvePath(args.Positional[0].String())
	dst := r.resolvePath(args.Positional[1].String())
	data, err := mount.Read(src)
	if err != nil {
		return errResult("cp: %s: %v", src, err)
	}
	if err := mount.Write(dst, data); err != nil {
		return errResult("cp: %s: %v", dst, err)
	}
	return interp.ExecResult{OK: true, Code: 0}
}

func (r *Registry) builtinMv(ctx context.Context, args interp.CallArgs) interp.ExecResult {
	res := r.builtinCp(ctx, args)
	if !res.OK {
		return res
	}
	src := r.resolvePath(args.Positional[0].String())
	if err := r.Mount().Remove(src); err != nil {
		return errResult("mv: %s: %v", src, err)
	}
	return interp.ExecResult{OK: true, Code: 0}
}

// builtinGrep filters stdin's lines by a regular expression, the way a
// pipeline stage narrows the previous stage's output before handing it
// to scatter or a terminal command.
func builtinGrep(_ context.Context, args interp.CallArgs) interp.ExecResult {
	if len(args.Positional) == 0 {
		return errResult("grep: missing pattern")
	}
	pattern := args.Positional[0].String()
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errResult("grep: %v", err)
	}
	invert := args.Named["invert"].Truthy()
	var b strings.Builder
	matched := 0
	for _, line := range strings.Split(string(args.Stdin), "\n") {
		if line == "" {
			continue
		}
		if re.MatchString(line) != invert {
			b.WriteString(line)
			b.WriteString("\n")
			matched++
		}
	}
	return interp.ExecResult{OK: matched > 0, Code: boolCode(matched > 0), Out: b.String()}
}

func boolCode(ok bool) int {
	if ok {
		return 0
	}
	return 1
}

// builtinJq extracts a dotted field path from stdin's JSON, mirroring
// `${VAR.field}` expansion but for stdin rather than a named variable.
func builtinJq(_ context.Context, args interp.CallArgs) interp.ExecResult {
	if len(args.Positional) == 0 {
		return errResult("jq: missing path expression")
	}
	v := interp.Value{}
	if err := v.UnmarshalJSON(args.Stdin); err != nil {
		return errResult("jq: invalid JSON on stdin: %v", err)
	}
	expr := strings.TrimPrefix(args.Positional[0].String(), ".")
	if expr != "" {
		for _, seg := range strings.Split(expr, ".") {
			if idx, err := strconv.Atoi(seg); err == nil {
				v = v.Index(idx)
			} else {
				v = v.Field(seg)
			}
		}
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return errResult("jq: %v", err)
	}
	return interp.ExecResult{OK: true, Code: 0, Out: string(out) + "\n", Data: v}
}

func (r *Registry) builtinHelp(_ context.Context, args interp.CallArgs) interp.ExecResult {
	if len(args.Positional) == 0 {
		names := r.Names()
		return interp.ExecResult{OK: true, Code: 0, Out: strings.Join(names, "\n") + "\n"}
	}
	name := args.Positional[0].String()
	entry, ok := r.Resolve(name)
	if !ok {
		suggestions := ui.FindSimilar(name, r.Names(), nil)
		return errResult("help: %s", (&NotFoundError{Name: name, Suggestions: suggestions}).Error())
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s (%s)\n", entry.Name, entry.Kind)
	if len(entry.Params) > 0 {
		table := ui.NewKeyValueTable(&b, true)
		for _, p := range entry.Params {
			table.AddRow(p.Name, p.Type)
		}
		table.Render()
	}
	return interp.ExecResult{OK: true, Code: 0, Out: b.String()}
}

func (r *Registry) builtinJobs(_ context.Context, _ interp.CallArgs) interp.ExecResult {
	jobs := r.Jobs()
	if jobs == nil {
		return interp.ExecResult{OK: true, Code: 0}
	}
	ids := jobs.List()
	values := make([]interp.Value, len(ids))
	for i, id := range ids {
		values[i] = interp.String(id)
	}
	return interp.ExecResult{OK: true, Code: 0, Out: strings.Join(ids, "\n") + "\n", Data: interp.Array(values)}
}

func (r *Registry) builtinWait(_ context.Context, args interp.CallArgs) interp.ExecResult {
	jobs := r.Jobs()
	if jobs == nil {
		return interp.ExecResult{OK: true, Code: 0}
	}
	if len(args.Positional) == 0 {
		results := jobs.WaitAll()
		ok := true
		for _, res := range results {
			ok = ok && res.OK
		}
		return interp.ExecResult{OK: ok, Code: boolCode(ok)}
	}
	id := strings.TrimPrefix(args.Positional[0].String(), "%")
	res, found := jobs.Wait(id)
	if !found {
		return errResult("wait: no such job: %s", id)
	}
	return interp.ExecResult{OK: res.OK, Code: res.Code, Out: string(res.Stdout), Err: string(res.Stderr)}
}

// builtinAssert fails the pipeline (code 1) when its condition argument
// is falsy, the way a script's `set -e` guard expects a hard stop on a
// broken invariant rather than silently continuing.
func builtinAssert(_ context.Context, args interp.CallArgs) interp.ExecResult {
	if len(args.Positional) == 0 {
		return errResult("assert: missing condition")
	}
	if !args.Positional[0].Truthy() {
		msg := "assertion failed"
		if len(args.Positional) > 1 {
			msg = args.Positional[1].String()
		}
		return errResult("assert: %s", msg)
	}
	return interp.ExecResult{OK: true, Code: 0}
}

func builtinDate(_ context.Context, args interp.CallArgs) interp.ExecResult {
	format := time.RFC3339
	if v, ok := args.Named["format"]; ok {
		format = v.String()
	}
	now := time.Now().UTC().Format(format)
	return interp.ExecResult{OK: true, Code: 0, Out: now + "\n", Data: interp.String(now)}
}

func (r *Registry) builtinVars(_ context.Context, _ interp.CallArgs) interp.ExecResult {
	sc := r.Scope()
	if sc == nil {
		return interp.ExecResult{OK: true, Code: 0}
	}
	root := sc.Root()
	obj := make(map[string]interp.Value, len(root))
	var b strings.Builder
	for k, v := range root {
		obj[k] = v
		fmt.Fprintf(&b, "%s=%s\n", k, v.String())
	}
	return interp.ExecResult{OK: true, Code: 0, Out: b.String(), Data: interp.Object(obj)}
}

func (r *Registry) builtinMounts(_ context.Context, _ interp.CallArgs) interp.ExecResult {
	mount := r.Mount()
	if mount == nil {
		return interp.ExecResult{OK: true, Code: 0}
	}
	names := mount.Mounts()
	values := make([]interp.Value, len(names))
	for i, n := range names {
		values[i] = interp.String(n)
	}
	return interp.ExecResult{OK: true, Code: 0, Out: strings.Join(names, "\n") + "\n", Data: interp.Array(values)}
}

func (r *Registry) builtinHistory(_ context.Context, _ interp.CallArgs) interp.ExecResult {
	entries := r.History()
	values := make([]interp.Value, len(entries))
	for i, e := range entries {
		values[i] = interp.String(e)
	}
	return interp.ExecResult{OK: true, Code: 0, Out: strings.Join(entries, "\n") + "\n", Data: interp.Array(values)}
}

// builtinMount adds a mount at runtime: `mount /scratch memory` or
// `mount /data local root=/srv/data readOnly=true`. Only in-process
// backends (memory, local) are supported from a script; `cache` mounts
// need a live Redis connection and are normally configured ahead of time
// via shellkit.yml instead.
func (r *Registry) builtinMount(_ context.Context, args interp.CallArgs) interp.ExecResult {
	mount := r.Mount()
	if mount == nil {
		return errResult("mount: no mount router attached")
	}
	if len(args.Positional) < 2 {
		return errResult("mount: usage: mount PREFIX BACKEND [root=PATH] [readOnly=BOOL]")
	}
	prefix := args.Positional[0].String()
	backend := args.Positional[1].String()
	readOnly := args.Named["readOnly"].Truthy()

	switch backend {
	case "memory":
		mount.Mount(prefix, vfs.NewMemoryBackend(readOnly))
	case "local":
		root := args.Named["root"].String()
		if root == "" {
			return errResult("mount: local backend requires root=PATH")
		}
		mount.Mount(prefix, vfs.NewLocalBackend(root, readOnly))
	default:
		return errResult("mount: unsupported backend %q (use memory or local at runtime)", backend)
	}
	return interp.ExecResult{OK: true, Code: 0}
}

func (r *Registry) builtinUnmount(_ context.Context, args interp.CallArgs) interp.ExecResult {
	mount := r.Mount()
	if mount == nil {
		return errResult("unmount: no mount router attached")
	}
	if len(args.Positional) == 0 {
		return errResult("unmount: missing prefix")
	}
	mount.Unmount(args.Positional[0].String())
	return interp.ExecResult{OK: true, Code: 0}
}

// builtinExec spawns a real external process, per §4.5's builtin set and
// §5's "external subprocesses inherit a sanitized environment built from
// the current scope; they do not share the scope directly". Only the
// session's own scope variables are exported (as name=value pairs, names
// unchanged, alongside the host's PATH), never the full host environment, so a
// script can't smuggle secrets out of the process that started the
// kernel.
func (r *Registry) builtinExec(ctx context.Context, args interp.CallArgs) interp.ExecResult {
	if len(args.Positional) == 0 {
		return errResult("exec: missing command")
	}
	name := args.Positional[0].String()
	argv := make([]string, 0, len(args.Positional)-1)
	for _, v := range args.Positional[1:] {
		argv = append(argv, v.String())
	}

	cmd := exec.CommandContext(ctx, name, argv...)
	cmd.Dir = r.Cwd()
	cmd.Env = r.sanitizedEnv()
	if len(args.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(args.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return interp.ExecResult{OK: true, Code: 0, Out: stdout.String(), Err: stderr.String()}
	}

	var notFound *exec.Error
	if errors.As(err, &notFound) {
		return interp.ExecResult{OK: false, Code: 127, Out: stdout.String(), Err: fmt.Sprintf("exec: %v", err)}
	}
	if errors.Is(err, os.ErrPermission) {
		return interp.ExecResult{OK: false, Code: 126, Out: stdout.String(), Err: fmt.Sprintf("exec: %v", err)}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return interp.ExecResult{OK: false, Code: exitErr.ExitCode(), Out: stdout.String(), Err: stderr.String()}
	}
	if ctx.Err() != nil {
		return interp.ExecResult{OK: false, Code: 130, Out: stdout.String(), Err: "exec: cancelled"}
	}
	return interp.ExecResult{OK: false, Code: 255, Out: stdout.String(), Err: fmt.Sprintf("exec: %v", err)}
}

// sanitizedEnv builds a subprocess environment from the kernel's own
// variable scope plus PATH, rather than forwarding the host process's
// full environment.
func (r *Registry) sanitizedEnv() []string {
	env := []string{}
	if path, ok := os.LookupEnv("PATH"); ok {
		env = append(env, "PATH="+path)
	}
	sc := r.Scope()
	if sc == nil {
		return env
	}
	for k, v := range sc.Root() {
		env = append(env, k+"="+v.String())
	}
	return env
}
