// Package rpc exposes a session's interpreter, registry, mount router,
// and state store over stdio (JSON-RPC 2.0) and HTTP/WebSocket
// transports, the two modes `shellkit serve` supports.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/shellkit/shellkit/compiler/lexer"
	"github.com/shellkit/shellkit/compiler/parser"
	"github.com/shellkit/shellkit/interp"
	"github.com/shellkit/shellkit/registry"
	"github.com/shellkit/shellkit/state"
	"github.com/shellkit/shellkit/vfs"
)

// Kernel is the set of components a Dispatcher calls into. Both the
// stdio and HTTP transports share one Dispatcher per serving process.
type Kernel struct {
	Interp *interp.Interpreter
	Reg    *registry.Registry
	Mount  *vfs.Router
	Store  state.Store
	Log    *zap.SugaredLogger
}

// Dispatcher implements every RPC method a served session exposes.
// Method is a plain Go function so both transports can reuse it without
// depending on either wire protocol.
type Dispatcher struct {
	kernel *Kernel
}

func NewDispatcher(k *Kernel) *Dispatcher {
	return &Dispatcher{kernel: k}
}

// ErrUnknownMethod is returned for a method name the dispatcher doesn't
// recognize.
var ErrUnknownMethod = fmt.Errorf("rpc: unknown method")

// Dispatch routes method to its handler, decoding params as JSON and
// re-encoding the result.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case "ping":
		return map[string]string{"status": "ok"}, nil
	case "execute", "executeStreaming":
		// executeStreaming is the same call; both transports, including
		// the websocket, return only the final response.
		var p ExecuteParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return d.execute(ctx, p)
	case "listTools":
		return map[string]interface{}{"tools": d.kernel.Reg.Names()}, nil
	case "listServers":
		return map[string]interface{}{"servers": d.kernel.Reg.ServerNames()}, nil
	case "registerServer":
		var p RegisterServerParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return nil, d.registerServer(p)
	case "unregisterServer":
		var p RegisterServerParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		d.kernel.Reg.UnregisterServer(p.Name)
		return nil, nil
	case "listMounts":
		return map[string]interface{}{"mounts": d.kernel.Mount.Mounts()}, nil
	case "reset":
		return nil, d.reset(ctx)
	case "callTool":
		var p CallToolParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return d.callTool(ctx, p)
	case "listJobs":
		return map[string]interface{}{"jobs": d.kernel.Interp.Jobs.List()}, nil
	case "waitJob":
		var p WaitJobParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return d.waitJob(p)
	case "cancelJob":
		var p WaitJobParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if !d.kernel.Interp.Jobs.Cancel(p.ID) {
			return nil, fmt.Errorf("rpc: unknown job %s", p.ID)
		}
		return nil, nil
	case "listVars":
		return map[string]interface{}{"vars": d.kernel.Interp.Scope.Root()}, nil
	case "getVar":
		var p VarNameParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return d.getVar(ctx, p)
	case "setVar":
		var p SetVarParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return nil, d.setVar(ctx, p)
	case "mount":
		var p MountParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return nil, d.mount(p)
	case "unmount":
		var p UnmountParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		d.kernel.Mount.Unmount(p.Prefix)
		return nil, nil
	case "readBlob":
		var p BlobHashParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return d.readBlob(ctx, p)
	case "writeBlob":
		var p WriteBlobParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return d.writeBlob(ctx, p)
	case "deleteBlob":
		var p BlobHashParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return nil, d.kernel.Store.DeleteBlob(ctx, p.Hash)
	case "snapshot":
		return d.kernel.Store.Snapshot(ctx)
	case "restore":
		var p RestoreParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return nil, d.kernel.Store.Restore(ctx, p.Vars)
	case "shutdown":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

func unmarshalParams(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// ExecuteParams carries a script body to lex, parse, and run in the
// kernel's current interpreter scope.
type ExecuteParams struct {
	Script string `json:"script"`
}

type ExecuteResult struct {
	Code   int    `json:"code"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (d *Dispatcher) execute(ctx context.Context, p ExecuteParams) (ExecuteResult, error) {
	tokens, lexErrs := lexer.New(p.Script, "<rpc>").ScanTokens()
	if len(lexErrs) > 0 {
		return ExecuteResult{Code: 2, Error: lexErrs[0].Message}, nil
	}

	program, parseErrs := parser.New(tokens).Parse()
	if len(parseErrs) > 0 {
		return ExecuteResult{Code: 2, Error: parseErrs[0].Error()}, nil
	}

	code, err := d.kernel.Interp.Run(ctx, program)
	result := ExecuteResult{Code: code}
	if err != nil {
		result.Error = err.Error()
	}
	return result, nil
}

type CallToolParams struct {
	Name       string                   `json:"name"`
	Positional []interp.Value           `json:"positional,omitempty"`
	Named      map[string]interp.Value  `json:"named,omitempty"`
}

func (d *Dispatcher) callTool(ctx context.Context, p CallToolParams) (interp.ExecResult, error) {
	return d.kernel.Reg.Call(ctx, p.Name, interp.CallArgs{Positional: p.Positional, Named: p.Named})
}

type WaitJobParams struct {
	ID string `json:"id"`
}

func (d *Dispatcher) waitJob(p WaitJobParams) (interface{}, error) {
	result, ok := d.kernel.Interp.Jobs.Wait(p.ID)
	if !ok {
		return nil, fmt.Errorf("rpc: unknown job %s", p.ID)
	}
	return result, nil
}

type VarNameParams struct {
	Name string `json:"name"`
}

func (d *Dispatcher) getVar(ctx context.Context, p VarNameParams) (interface{}, error) {
	if v, ok := d.kernel.Interp.Scope.Get(p.Name); ok {
		return v, nil
	}
	raw, ok, err := d.kernel.Store.GetVar(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return interp.Null, nil
	}
	var v interp.Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

type SetVarParams struct {
	Name  string      `json:"name"`
	Value interp.Value `json:"value"`
}

func (d *Dispatcher) setVar(ctx context.Context, p SetVarParams) error {
	d.kernel.Interp.Scope.Set(p.Name, p.Value)
	raw, err := json.Marshal(p.Value)
	if err != nil {
		return err
	}
	return d.kernel.Store.SetVar(ctx, p.Name, raw)
}

type MountParams struct {
	Prefix   string `json:"prefix"`
	Backend  string `json:"backend"`
	Root     string `json:"root"`
	ReadOnly bool   `json:"readOnly"`
}

func (d *Dispatcher) mount(p MountParams) error {
	switch p.Backend {
	case "local":
		d.kernel.Mount.Mount(p.Prefix, vfs.NewLocalBackend(p.Root, p.ReadOnly))
	case "memory", "":
		d.kernel.Mount.Mount(p.Prefix, vfs.NewMemoryBackend(p.ReadOnly))
	default:
		return fmt.Errorf("rpc: unsupported mount backend %q", p.Backend)
	}
	return nil
}

type UnmountParams struct {
	Prefix string `json:"prefix"`
}

type BlobHashParams struct {
	Hash string `json:"hash"`
}

func (d *Dispatcher) readBlob(ctx context.Context, p BlobHashParams) (interface{}, error) {
	data, ok, err := d.kernel.Store.GetBlob(ctx, p.Hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("rpc: unknown blob %s", p.Hash)
	}
	return map[string]string{"data": string(data)}, nil
}

type WriteBlobParams struct {
	Data string `json:"data"`
}

func (d *Dispatcher) writeBlob(ctx context.Context, p WriteBlobParams) (interface{}, error) {
	hash, err := d.kernel.Store.PutBlob(ctx, []byte(p.Data))
	if err != nil {
		return nil, err
	}
	return map[string]string{"hash": hash}, nil
}

type RestoreParams struct {
	Vars map[string][]byte `json:"vars"`
}

// RegisterServerParams names a remote MCP server to connect over stdio:
// `registerServer` lazily connects and caches its tool schemas on first
// call against one of its tools.
type RegisterServerParams struct {
	Name    string            `json:"name"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

func (d *Dispatcher) registerServer(p RegisterServerParams) error {
	if p.Name == "" || p.Command == "" {
		return fmt.Errorf("rpc: registerServer requires name and command")
	}
	d.kernel.Reg.RegisterServer(p.Name, registry.NewRemoteServer(p.Name, p.Command, p.Args, p.Env))
	return nil
}

// reset clears the interpreter's root scope and the state store's
// persisted variables, returning the session to a blank slate without
// tearing down mounts or remote servers.
func (d *Dispatcher) reset(ctx context.Context) error {
	for name := range d.kernel.Interp.Scope.Root() {
		d.kernel.Interp.Scope.Set(name, interp.Null)
	}
	snapshot, err := d.kernel.Store.Snapshot(ctx)
	if err != nil {
		return err
	}
	cleared := make(map[string][]byte, len(snapshot))
	for name := range snapshot {
		cleared[name] = []byte("null")
	}
	return d.kernel.Store.Restore(ctx, cleared)
}
