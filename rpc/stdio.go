package rpc

import (
	"context"
	"os"

	"go.lsp.dev/jsonrpc2"
)

// stdrwc adapts stdin/stdout to io.ReadWriteCloser, the way a served
// session talks JSON-RPC 2.0 over its own process's standard streams.
type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdrwc) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

// ServeStdio frames a Dispatcher over stdin/stdout until ctx is
// cancelled.
func ServeStdio(ctx context.Context, d *Dispatcher) error {
	stream := jsonrpc2.NewStream(stdrwc{})
	conn := jsonrpc2.NewConn(stream)

	conn.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		d.kernel.Log.Infow("rpc request", "method", req.Method())

		result, err := d.Dispatch(ctx, req.Method(), req.Params())
		if err != nil {
			return reply(ctx, nil, &jsonrpc2.Error{Code: jsonrpc2.InvalidParams, Message: err.Error()})
		}
		return reply(ctx, result, nil)
	})

	<-ctx.Done()
	return conn.Close()
}
