package interp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shellkit/shellkit/compiler/lexer"
	"github.com/shellkit/shellkit/compiler/parser"
	"github.com/shellkit/shellkit/interp"
	"github.com/shellkit/shellkit/registry"
)

// runScript lexes, parses, and runs source against a fresh interpreter
// wired to a fresh registry, the same wiring newSession builds for a real
// CLI run.
func runScript(t *testing.T, source string) (*interp.Interpreter, int, error) {
	t.Helper()
	tokens, lexErrs := lexer.New(source, "<test>").ScanTokens()
	require.Empty(t, lexErrs)

	program, parseErrs := parser.New(tokens).Parse()
	require.Empty(t, parseErrs)

	reg := registry.New(nil)
	it := interp.New(reg, nil)
	reg.Attach(it.Scope, it.Jobs, nil)

	code, err := it.Run(context.Background(), program)
	return it, code, err
}

func TestAssignmentAndExpansion(t *testing.T) {
	it, code, err := runScript(t, `NAME="Alice"
echo "Hello ${NAME}"`)
	require.NoError(t, err)
	require.Equal(t, 0, code)

	v, ok := it.Scope.Get("NAME")
	require.True(t, ok)
	require.Equal(t, "Alice", v.String())
}

func TestLogicalChainFallback(t *testing.T) {
	_, code, err := runScript(t, `false && echo skipped || echo fallback`)
	require.NoError(t, err)
	require.Equal(t, 0, code)
}

func TestToolReturnPreservesCapturedStdout(t *testing.T) {
	// A tool's result is its last command's ExecResult; an explicit
	// `return` overrides only the exit code, never the captured stdout.
	it, code, err := runScript(t, `tool greet { } do
  echo "hi"
  return 0
done
greet`)
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Contains(t, it.LastResult().Out, "hi")
}

func TestUndefinedVariableIsAnError(t *testing.T) {
	_, _, err := runScript(t, `echo $UNSET_VAR`)
	require.Error(t, err)
}

func TestDefaultFormAvoidsUndefinedVariableError(t *testing.T) {
	_, code, err := runScript(t, `echo ${UNSET_VAR:-fallback}`)
	require.NoError(t, err)
	require.Equal(t, 0, code)
}

func TestDefaultFormAppliesToEmptyVariable(t *testing.T) {
	// spec §4.3: "${VAR:-DEFAULT}: if VAR is unset or empty, substitute
	// DEFAULT" — an explicitly empty string counts the same as unset.
	it, code, err := runScript(t, `X=""
echo ${X:-fallback}`)
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Equal(t, "fallback\n", it.LastResult().Out)
}
