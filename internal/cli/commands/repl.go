package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shellkit/shellkit/compiler/lexer"
	"github.com/shellkit/shellkit/compiler/parser"
	"github.com/shellkit/shellkit/internal/cli/ui"
)

// runRepl is the root command's bare-invocation entry point: a
// read-eval-print loop over stdin, one line at a time, against a
// session that persists its
// variables between lines the way `run` persists them between scripts.
func runRepl(cmd *cobra.Command, _ []string) error {
	sess, err := newSession()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.StateStoreError(err.Error(), "the session could not be opened", nil, false))
		return err
	}
	defer sess.Close()

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

	prompt := color.New(color.FgCyan).Sprint("shellkit> ")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprint(cmd.OutOrStdout(), prompt)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			fmt.Fprint(cmd.OutOrStdout(), prompt)
			continue
		}
		if strings.TrimSpace(line) == "exit" {
			break
		}

		if err := sess.evalLine(ctx, line, cmd); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), formatRunError(err, false))
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.OutOrStdout())
			return sess.persistVars(context.Background())
		default:
		}

		fmt.Fprint(cmd.OutOrStdout(), prompt)
	}
	fmt.Fprintln(cmd.OutOrStdout())

	return sess.persistVars(context.Background())
}

// evalLine lexes, parses, and runs one REPL line against the session's
// long-lived interpreter, so variables and tool definitions from earlier
// lines remain visible to later ones.
func (s *session) evalLine(ctx context.Context, line string, cmd *cobra.Command) error {
	tokens, lexErrs := lexer.New(line, "<repl>").ScanTokens()
	if len(lexErrs) > 0 {
		return fmt.Errorf(lexErrs[0].Message)
	}

	program, parseErrs := parser.New(tokens).Parse()
	if len(parseErrs) > 0 {
		return parseErrs[0]
	}

	_, err := s.interp.Run(ctx, program)
	return err
}
