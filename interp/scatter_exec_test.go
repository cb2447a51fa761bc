package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shellkit/shellkit/compiler/parser"
	"github.com/shellkit/shellkit/pipeline"
)

func TestScatterIndexFindsStage(t *testing.T) {
	cmds := []*parser.SimpleCommand{
		{Name: "ls"},
		{Name: "scatter"},
		{Name: "gather"},
	}
	require.Equal(t, 1, scatterIndex(cmds))
}

func TestScatterIndexAbsent(t *testing.T) {
	cmds := []*parser.SimpleCommand{{Name: "ls"}, {Name: "grep"}}
	require.Equal(t, -1, scatterIndex(cmds))
}

func TestSplitItemsParsesJSONArray(t *testing.T) {
	items := splitItems([]byte(`[{"a":1},{"a":2}]`))
	require.Len(t, items, 2)
	require.JSONEq(t, `{"a":1}`, string(items[0]))
}

func TestSplitItemsFallsBackToLines(t *testing.T) {
	items := splitItems([]byte("one\ntwo\n\nthree\n"))
	require.Len(t, items, 3)
	require.Equal(t, "one", string(items[0]))
}

func TestItemValueParsesJSONObject(t *testing.T) {
	v := itemValue([]byte(`{"name":"x"}`))
	require.Equal(t, KindObject, v.Kind)
	require.Equal(t, "x", v.Field("name").Str)
}

func TestItemValuePlainStringStaysString(t *testing.T) {
	v := itemValue([]byte("plaintext"))
	require.Equal(t, KindString, v.Kind)
	require.Equal(t, "plaintext", v.Str)
}

func TestItemValueNumericString(t *testing.T) {
	v := itemValue([]byte("42"))
	require.Equal(t, KindInt, v.Kind)
	require.Equal(t, int64(42), v.Int)
}

func TestGatherResultsLinesJoinsTrimmedStdout(t *testing.T) {
	scattered := []pipeline.ScatterResult{
		{Index: 0, Result: pipeline.Result{OK: true, Stdout: []byte("a\n")}},
		{Index: 1, Result: pipeline.Result{OK: true, Stdout: []byte("b\n")}},
	}
	out, failures := gatherResults(scattered, "lines")
	require.Empty(t, failures)
	require.Equal(t, "a\nb\n", string(out))
}

func TestGatherResultsCollectsFailures(t *testing.T) {
	scattered := []pipeline.ScatterResult{
		{Index: 0, Result: pipeline.Result{OK: true, Stdout: []byte("ok\n")}},
		{Index: 1, Result: pipeline.Result{OK: false, Code: 1, Stderr: []byte("boom")}},
	}
	_, failures := gatherResults(scattered, "lines")
	require.Len(t, failures, 1)
	require.Contains(t, failures[0], "item 1")
	require.Contains(t, failures[0], "boom")
}

func TestGatherResultsJSONFormat(t *testing.T) {
	scattered := []pipeline.ScatterResult{
		{Index: 0, Result: pipeline.Result{OK: true, Code: 0, Stdout: []byte("x")}},
	}
	out, _ := gatherResults(scattered, "json")
	require.Contains(t, string(out), `"index":0`)
}
