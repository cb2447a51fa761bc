package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shellkit/shellkit/internal/cli/config"
	"github.com/shellkit/shellkit/internal/cli/ui"
	"github.com/shellkit/shellkit/rpc"
)

// serveShutdownGrace bounds how long an in-flight HTTP/WebSocket
// request gets to finish once a shutdown signal arrives.
const serveShutdownGrace = 5 * time.Second

// NewServeCommand creates the serve command: expose a session over
// JSON-RPC 2.0, either framed on stdin/stdout or as an HTTP/WebSocket
// server, so an external orchestrator can drive the kernel directly
// instead of going through a script file.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose a session over the RPC wire protocol",
		Long: `serve opens a session (mounts, state store, registry) and exposes it
over JSON-RPC 2.0, for an external process to drive scripts, call tools,
and inspect jobs/variables/mounts without spawning a script file itself.

By default serve frames JSON-RPC over stdin/stdout, the mode an MCP-style
parent process expects. --port switches to an HTTP server with a
POST /rpc endpoint and a GET /ws upgrade for a long-lived connection.

Examples:
  shellkit serve
  shellkit serve --port 7777`,
		RunE: runServe,
	}

	cmd.Flags().Int("port", 0, "Serve HTTP/WebSocket on this port instead of stdio")
	cmd.Flags().Bool("no-color", false, "Disable colored error output")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	noColor, _ := cmd.Flags().GetBool("no-color")
	port, _ := cmd.Flags().GetInt("port")

	sess, err := newSession()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.StateStoreError(err.Error(), "the session could not be opened", nil, noColor))
		return err
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := sess.restoreVars(ctx); err != nil {
		sess.log.Warnw("failed to restore session variables", "error", err)
	}
	defer func() {
		if err := sess.persistVars(context.Background()); err != nil {
			sess.log.Warnw("failed to persist session variables", "error", err)
		}
	}()

	kernel := &rpc.Kernel{Interp: sess.interp, Reg: sess.reg, Mount: sess.mount, Store: sess.store, Log: sess.log}
	dispatcher := rpc.NewDispatcher(kernel)

	if port == 0 {
		sess.log.Infow("serving over stdio")
		return rpc.ServeStdio(ctx, dispatcher)
	}

	auth := rpc.NewAuthService(config.GetAuthSecret())
	addr := fmt.Sprintf("%s:%d", sess.cfg.Server.Host, port)
	server := &http.Server{Addr: addr, Handler: rpc.NewHTTPHandler(dispatcher, auth)}

	errCh := make(chan error, 1)
	go func() {
		sess.log.Infow("serving over http", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serveShutdownGrace)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
