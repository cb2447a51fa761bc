package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shellkit/shellkit/compiler/lexer"
	"github.com/shellkit/shellkit/compiler/parser"
	"github.com/shellkit/shellkit/interp"
	"github.com/shellkit/shellkit/internal/cli/ui"
)

// NewRunCommand creates the run command: lex, parse, and execute a
// script file against a session, then exit with its final status code.
// Any arguments after the script path are bound as its positional
// parameters ($1.."$9", $@, $#).
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script> [args...]",
		Short: "Run a shellkit script",
		Long: `run lexes, parses, and executes a script file against a session.

Session variables persist across invocations in the configured state
store; tool definitions, mounts and history are not saved between
invocations. Ctrl+C cancels any
in-flight jobs and lets the script unwind instead of killing a process.
Arguments after the script path are bound as $1.."$9", $@, and $#.

Examples:
  shellkit run deploy.sh
  shellkit run --no-color pipeline.sh staging us-east-1`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRun,
	}

	cmd.Flags().Bool("no-color", false, "Disable colored error output")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	noColor, _ := cmd.Flags().GetBool("no-color")
	path := args[0]

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	lx := lexer.New(string(source), path)
	tokens, lexErrs := lx.ScanTokens()
	if len(lexErrs) > 0 {
		for _, e := range lexErrs {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.ParseFailureError(e.Message, nil, noColor))
		}
		return fmt.Errorf("%d lexing error(s) in %s", len(lexErrs), path)
	}

	p := parser.New(tokens)
	program, parseErrs := p.Parse()
	if len(parseErrs) > 0 {
		for _, e := range parseErrs {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.ParseFailureError(e.Error(), nil, noColor))
		}
		return fmt.Errorf("%d parse error(s) in %s", len(parseErrs), path)
	}

	sess, err := newSession()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.StateStoreError(err.Error(), "the session could not be opened", nil, noColor))
		return err
	}
	defer sess.Close()

	sess.interp.SetScriptDir(filepath.Dir(path))
	sess.interp.SetArgs(path, scriptArgs(args[1:]))
	sess.interp.Stdout = cmd.OutOrStdout()
	sess.interp.Stderr = cmd.ErrOrStderr()

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

	code, runErr := sess.interp.Run(ctx, program)

	if err := sess.persistVars(ctx); err != nil {
		sess.log.Warnw("failed to persist session variables", "error", err)
	}

	if runErr != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), formatRunError(runErr, noColor))
	}

	if code != 0 {
		return fmt.Errorf("script exited with status %d", code)
	}
	return nil
}

// scriptArgs converts the CLI's trailing string arguments into the
// Values bound as a script's positional parameters.
func scriptArgs(raw []string) []interp.Value {
	vals := make([]interp.Value, len(raw))
	for i, s := range raw {
		vals[i] = interp.String(s)
	}
	return vals
}
