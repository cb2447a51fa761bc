// Package registry resolves a command name to a callable tool, in order:
// builtins, user-defined tools (from `tool`/`function` definitions),
// then dotted `server.tool` remote dispatch.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/shellkit/shellkit/interp"
	"github.com/shellkit/shellkit/internal/cli/ui"
	"github.com/shellkit/shellkit/pipeline"
	"github.com/shellkit/shellkit/vfs"
)

// Kind names where a registered entry came from.
type Kind string

const (
	KindBuiltin Kind = "builtin"
	KindUser    Kind = "user"
	KindRemote  Kind = "remote"
)

// Entry is one resolvable tool: its name, declared parameters, and the
// function that runs it.
type Entry struct {
	Name   string
	Kind   Kind
	Params []interp.Param
	Fn     func(ctx context.Context, args interp.CallArgs) interp.ExecResult
}

// Registry holds the builtin, user, and remote tool tables and resolves
// a dotted or bare name against them in that priority order.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]*Entry
	user     map[string]*Entry
	remotes  map[string]*RemoteServer // keyed by server name
	log      *zap.SugaredLogger

	scope   *interp.Scope
	jobs    *pipeline.Manager
	mount   *vfs.Router
	cwd     string
	history []string
}

// Attach wires a registry to the running kernel's live state: the scope
// `vars` introspects, the job manager `jobs`/`wait` inspect, and the mount
// router `mount`/`unmount`/`ls`/`cat`-style builtins operate on. Called
// once, after both the interpreter and registry exist, since each needs a
// reference to the other.
func (r *Registry) Attach(scope *interp.Scope, jobs *pipeline.Manager, mount *vfs.Router) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scope = scope
	r.jobs = jobs
	r.mount = mount
	r.cwd = "/"
}

// New creates a registry with the standard builtin set pre-registered.
func New(log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r := &Registry{
		builtins: make(map[string]*Entry),
		user:     make(map[string]*Entry),
		remotes:  make(map[string]*RemoteServer),
		log:      log,
	}
	registerBuiltins(r)
	return r
}

// RegisterUser installs a user-defined tool, e.g. from a `tool NAME { }
// do ... done` statement.
func (r *Registry) RegisterUser(name string, params []interp.Param, fn func(ctx context.Context, args interp.CallArgs) interp.ExecResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.user[name] = &Entry{Name: name, Kind: KindUser, Params: params, Fn: fn}
}

// RegisterServer registers a remote tool server for dotted `server.tool`
// dispatch. The server is not contacted here; it is connected lazily on
// the first call or listing that needs it.
func (r *Registry) RegisterServer(name string, srv *RemoteServer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remotes[name] = srv
}

// ServerNames returns the names of registered remote servers, for
// `listServers` introspection.
func (r *Registry) ServerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.remotes))
	for name := range r.remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnregisterServer drops a remote server, so its dotted tools stop
// resolving. Any call already in flight against it completes normally.
func (r *Registry) UnregisterServer(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.remotes, name)
}

// Resolve looks up a command name against builtins, then user tools,
// then (for dotted names) a registered remote server.
func (r *Registry) Resolve(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.builtins[name]; ok {
		return e, true
	}
	if e, ok := r.user[name]; ok {
		return e, true
	}
	if server, tool, ok := strings.Cut(name, "."); ok {
		if srv, ok := r.remotes[server]; ok {
			return srv.entry(tool), true
		}
	}
	return nil, false
}

// Names returns every resolvable name, for `tools` introspection and
// "did you mean" suggestions.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builtins)+len(r.user))
	for n := range r.builtins {
		names = append(names, n)
	}
	for n := range r.user {
		names = append(names, n)
	}
	for server, srv := range r.remotes {
		for _, tool := range srv.ToolNames() {
			names = append(names, server+"."+tool)
		}
	}
	sort.Strings(names)
	return names
}

// NotFoundError reports that name resolved to no builtin, user-defined,
// or registered remote tool, together with the closest-spelled names
// still registered, for a "did you mean" suggestion at the presentation
// layer (see ui.ToolNotFoundError).
type NotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("no such tool: %s", e.Name)
	}
	return fmt.Sprintf("no such tool: %s (did you mean: %s?)", e.Name, strings.Join(e.Suggestions, ", "))
}

// Call resolves name and invokes it, converting an unresolved name into
// a *NotFoundError the caller can render with ui.ToolNotFoundError.
func (r *Registry) Call(ctx context.Context, name string, args interp.CallArgs) (interp.ExecResult, error) {
	entry, ok := r.Resolve(name)
	if !ok {
		suggestions := ui.FindSimilar(name, r.Names(), nil)
		return interp.ExecResult{}, &NotFoundError{Name: name, Suggestions: suggestions}
	}
	r.recordHistory(name, args)
	return entry.Fn(ctx, args), nil
}

// recordHistory appends a rendering of name+args to the session's history
// ring buffer, capped at 500 entries so a long-running REPL session
// doesn't grow it unbounded.
func (r *Registry) recordHistory(name string, args interp.CallArgs) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.WriteString(name)
	for _, v := range args.Positional {
		b.WriteByte(' ')
		b.WriteString(v.String())
	}
	r.history = append(r.history, b.String())
	if len(r.history) > 500 {
		r.history = r.history[len(r.history)-500:]
	}
}

// History returns a copy of the recorded command history, oldest first.
func (r *Registry) History() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.history))
	copy(out, r.history)
	return out
}

// Cwd returns the registry's current working directory, as tracked by the
// `cd` builtin and consulted by `ls`/`pwd`.
func (r *Registry) Cwd() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cwd
}

// SetCwd updates the registry's current working directory.
func (r *Registry) SetCwd(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cwd = path
}

// Mount returns the attached mount router, or nil if Attach hasn't run.
func (r *Registry) Mount() *vfs.Router {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mount
}

// Jobs returns the attached job manager, or nil if Attach hasn't run.
func (r *Registry) Jobs() *pipeline.Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs
}

// Scope returns the attached root scope, or nil if Attach hasn't run.
func (r *Registry) Scope() *interp.Scope {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scope
}

// Server returns the registered remote server by name, for callers (such
// as a resource-backed VFS mount) that need the server itself rather than
// one of its dotted tool entries.
func (r *Registry) Server(name string) (*RemoteServer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	srv, ok := r.remotes[name]
	return srv, ok
}
