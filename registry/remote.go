package registry

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shellkit/shellkit/interp"
)

// RemoteServer wraps one registered remote tool server: a stdio MCP
// client connected lazily on first dispatch, the way mcptoolset.Toolset
// defers connection until Tools() is first called.
type RemoteServer struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string

	mu        sync.Mutex
	client    *client.Client
	connected bool
	schemas   map[string]map[string]any
}

// NewRemoteServer registers a stdio-transport MCP server definition
// without connecting to it yet.
func NewRemoteServer(name, command string, args []string, env map[string]string) *RemoteServer {
	return &RemoteServer{Name: name, Command: command, Args: args, Env: env}
}

func (s *RemoteServer) envSlice() []string {
	out := make([]string, 0, len(s.Env))
	for k, v := range s.Env {
		out = append(out, k+"="+v)
	}
	return out
}

// connect lazily starts the MCP subprocess, performs the initialize
// handshake, and caches the ListTools result. Only the tool names are
// used; arguments are not validated against the cached schemas.
func (s *RemoteServer) connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return nil
	}

	c, err := client.NewStdioMCPClient(s.Command, s.envSlice(), s.Args...)
	if err != nil {
		return fmt.Errorf("remote server %s: %w", s.Name, err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("remote server %s: start: %w", s.Name, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "shellkit", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return fmt.Errorf("remote server %s: initialize: %w", s.Name, err)
	}

	listResp, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return fmt.Errorf("remote server %s: list tools: %w", s.Name, err)
	}

	schemas := make(map[string]map[string]any, len(listResp.Tools))
	for _, t := range listResp.Tools {
		schemas[t.Name] = map[string]any{"raw": t.InputSchema}
	}

	s.client = c
	s.connected = true
	s.schemas = schemas
	return nil
}

// ToolNames returns the cached remote tool names, connecting first if
// needed. A connection failure yields an empty list rather than an
// error, since this is used for best-effort name listing.
func (s *RemoteServer) ToolNames() []string {
	if err := s.connect(context.Background()); err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.schemas))
	for n := range s.schemas {
		names = append(names, n)
	}
	return names
}

// entry builds a registry Entry that dispatches tool to this server,
// connecting on first call.
func (s *RemoteServer) entry(tool string) *Entry {
	return &Entry{
		Name: s.Name + "." + tool,
		Kind: KindRemote,
		Fn: func(ctx context.Context, args interp.CallArgs) interp.ExecResult {
			if err := s.connect(ctx); err != nil {
				return interp.ExecResult{OK: false, Code: 1, Err: err.Error()}
			}

			s.mu.Lock()
			c := s.client
			s.mu.Unlock()

			callArgs := make(map[string]any, len(args.Named)+len(args.Positional))
			for k, v := range args.Named {
				callArgs[k] = valueToAny(v)
			}
			for i, v := range args.Positional {
				callArgs[fmt.Sprintf("arg%d", i)] = valueToAny(v)
			}

			req := mcp.CallToolRequest{}
			req.Params.Name = tool
			req.Params.Arguments = callArgs

			resp, err := c.CallTool(ctx, req)
			if err != nil {
				return interp.ExecResult{OK: false, Code: 1, Err: err.Error()}
			}

			var text string
			for _, content := range resp.Content {
				if tc, ok := content.(mcp.TextContent); ok {
					text += tc.Text
				}
			}

			if resp.IsError {
				return interp.ExecResult{OK: false, Code: 1, Err: text}
			}
			return interp.ExecResult{OK: true, Code: 0, Out: text, Data: interp.String(text)}
		},
	}
}

// ListResourceURIs lists the remote server's advertised resources,
// connecting first if needed. It satisfies vfs.ResourceClient, letting a
// resource-backed VFS mount list this server's namespace.
func (s *RemoteServer) ListResourceURIs(ctx context.Context) ([]string, error) {
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	c := s.client
	s.mu.Unlock()

	resp, err := c.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, fmt.Errorf("remote server %s: list resources: %w", s.Name, err)
	}
	uris := make([]string, 0, len(resp.Resources))
	for _, r := range resp.Resources {
		uris = append(uris, r.URI)
	}
	return uris, nil
}

// ReadResource reads one resource by URI, concatenating its text and
// decoded blob contents. It satisfies vfs.ResourceClient.
func (s *RemoteServer) ReadResource(ctx context.Context, uri string) ([]byte, error) {
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	c := s.client
	s.mu.Unlock()

	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	resp, err := c.ReadResource(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("remote server %s: read resource %s: %w", s.Name, uri, err)
	}

	var out []byte
	for _, content := range resp.Contents {
		switch c := content.(type) {
		case mcp.TextResourceContents:
			out = append(out, []byte(c.Text)...)
		case mcp.BlobResourceContents:
			if decoded, err := base64.StdEncoding.DecodeString(c.Blob); err == nil {
				out = append(out, decoded...)
			}
		}
	}
	return out, nil
}

func valueToAny(v interp.Value) any {
	switch v.Kind {
	case interp.KindBool:
		return v.Bool
	case interp.KindInt:
		return v.Int
	case interp.KindFloat:
		return v.Float
	case interp.KindString:
		return v.Str
	case interp.KindArray:
		out := make([]any, len(v.Array))
		for i, e := range v.Array {
			out[i] = valueToAny(e)
		}
		return out
	case interp.KindObject:
		out := make(map[string]any, len(v.Object))
		for k, e := range v.Object {
			out[k] = valueToAny(e)
		}
		return out
	default:
		return nil
	}
}
