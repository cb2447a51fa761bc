package commands

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/shellkit/shellkit/interp"
	"github.com/shellkit/shellkit/internal/cli/config"
	"github.com/shellkit/shellkit/internal/cli/ui"
	"github.com/shellkit/shellkit/registry"
	"github.com/shellkit/shellkit/state"
	"github.com/shellkit/shellkit/vfs"
)

// session bundles the pieces a script needs to run: a tool registry
// wired with builtins, user tools, and remote servers; a mount router;
// a state store; and an interpreter sitting on top of them.
type session struct {
	cfg   *config.Config
	log   *zap.SugaredLogger
	reg   *registry.Registry
	mount *vfs.Router
	store state.Store
	interp *Interpreter
}

// Interpreter is an alias kept local to commands so callers don't need
// to import interp directly just to hold one.
type Interpreter = interp.Interpreter

func newLogger() *zap.SugaredLogger {
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		zapLogger = zap.NewNop()
	}
	return zapLogger.Sugar()
}

// newSession loads configuration, opens the state store, builds the
// mount router and tool registry, and returns a ready interpreter.
func newSession() (*session, error) {
	log := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := state.Open(config.GetStateDSN())
	if err != nil {
		return nil, err
	}

	reg := registry.New(log)
	for _, r := range cfg.Remotes {
		if r.Transport != "stdio" {
			log.Warnw("only stdio remotes are supported, skipping", "remote", r.Name, "transport", r.Transport)
			continue
		}
		fields := strings.Fields(r.Address)
		if len(fields) == 0 {
			continue
		}
		reg.RegisterServer(r.Name, registry.NewRemoteServer(r.Name, fields[0], fields[1:], nil))
	}

	mount := vfs.NewRouter()
	if len(cfg.Mounts) == 0 {
		mount.Mount("/", vfs.NewLocalBackend(".", false))
	}
	for _, m := range cfg.Mounts {
		switch m.Backend {
		case "local":
			mount.Mount(m.Prefix, vfs.NewLocalBackend(m.Root, m.ReadOnly))
		case "cache":
			cacheCfg := vfs.DefaultCacheConfig()
			cacheCfg.Prefix = strings.TrimPrefix(m.Prefix, "/") + ":"
			backend, err := vfs.NewCacheBackend(cacheCfg)
			if err != nil {
				log.Warnw("cache mount unavailable, skipping", "prefix", m.Prefix, "error", err)
				continue
			}
			mount.Mount(m.Prefix, backend)
		case "resource":
			srv, ok := reg.Server(m.Server)
			if !ok {
				log.Warnw("resource mount references unknown server, skipping", "prefix", m.Prefix, "server", m.Server)
				continue
			}
			mount.Mount(m.Prefix, vfs.NewResourceBackend(srv))
		case "memory", "":
			mount.Mount(m.Prefix, vfs.NewMemoryBackend(m.ReadOnly))
		default:
			log.Warnw("unsupported mount backend, skipping", "prefix", m.Prefix, "backend", m.Backend)
		}
	}

	it := interp.New(reg, log)
	it.VFS = mount
	reg.Attach(it.Scope, it.Jobs, mount)

	return &session{cfg: cfg, log: log, reg: reg, mount: mount, store: store, interp: it}, nil
}

func (s *session) Close() {
	if s.store != nil {
		s.store.Close()
	}
}

// restoreVars loads every persisted variable from the previous session
// into the interpreter's root scope.
func (s *session) restoreVars(ctx context.Context) error {
	saved, err := s.store.AllVars(ctx)
	if err != nil {
		return err
	}
	for name, raw := range saved {
		var v interp.Value
		if err := json.Unmarshal(raw, &v); err != nil {
			s.log.Warnw("skipping corrupt persisted variable", "name", name, "error", err)
			continue
		}
		s.interp.Scope.Set(name, v)
	}
	return nil
}

// persistVars writes the current root scope back to the state store, so
// the next invocation picks up where this one left off.
func (s *session) persistVars(ctx context.Context) error {
	for name, v := range s.interp.Scope.Root() {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if err := s.store.SetVar(ctx, name, raw); err != nil {
			return err
		}
	}
	return nil
}

// formatRunError renders a script-execution error the way the REPL and
// `run` want it shown to a terminal: a tool-not-found error gets the
// dedicated "did you mean" rendering with its fuzzy-matched
// suggestions, anything else falls back to the generic error box.
func formatRunError(err error, noColor bool) string {
	var notFound *registry.NotFoundError
	if errors.As(err, &notFound) {
		return ui.ToolNotFoundError(notFound.Name, notFound.Suggestions, noColor)
	}
	return ui.FormatError(ui.ErrorOptions{Problem: err.Error(), NoColor: noColor})
}
