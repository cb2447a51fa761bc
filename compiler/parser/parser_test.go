package parser

import (
	"testing"

	"github.com/shellkit/shellkit/compiler/lexer"
)

func parse(t *testing.T, src string) (*Program, []ParseError) {
	t.Helper()
	l := lexer.New(src, "test.sh")
	tokens, lexErrs := l.ScanTokens()
	if len(lexErrs) != 0 {
		t.Fatalf("input %q: unexpected lex errors: %v", src, lexErrs)
	}
	return New(tokens).Parse()
}

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	prog, errs := parse(t, src)
	if len(errs) != 0 {
		t.Fatalf("input %q: unexpected parse errors: %v", src, errs)
	}
	return prog
}

func TestParseSimplePipeline(t *testing.T) {
	prog := mustParse(t, "echo hello | wc -l\n")
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	pipe, ok := prog.Statements[0].(*Pipeline)
	if !ok {
		t.Fatalf("expected *Pipeline, got %T", prog.Statements[0])
	}
	if len(pipe.Commands) != 2 {
		t.Fatalf("expected 2 pipeline stages, got %d", len(pipe.Commands))
	}
	if pipe.Commands[0].Name != "echo" || pipe.Commands[1].Name != "wc" {
		t.Errorf("unexpected command names: %q, %q", pipe.Commands[0].Name, pipe.Commands[1].Name)
	}
	flag, ok := pipe.Commands[1].Args[0].(*FlagArg)
	if !ok || flag.Name != "-l" {
		t.Errorf("expected flag arg -l, got %#v", pipe.Commands[1].Args[0])
	}
}

func TestParseBackgroundPipeline(t *testing.T) {
	prog := mustParse(t, "sleep 5 &\n")
	pipe := prog.Statements[0].(*Pipeline)
	if !pipe.Background {
		t.Error("expected pipeline to be marked background")
	}
}

func TestParseNamedArgument(t *testing.T) {
	prog := mustParse(t, "deploy env=prod\n")
	pipe := prog.Statements[0].(*Pipeline)
	named, ok := pipe.Commands[0].Args[0].(*NamedArg)
	if !ok {
		t.Fatalf("expected *NamedArg, got %T", pipe.Commands[0].Args[0])
	}
	if named.Key != "env" {
		t.Errorf("expected key 'env', got %q", named.Key)
	}
	raw, ok := named.Value.(*RawStringLiteral)
	if !ok || raw.Value != "prod" {
		t.Errorf("expected raw string 'prod', got %#v", named.Value)
	}
}

func TestParseNamedArgumentRejectsWhitespace(t *testing.T) {
	_, errs := parse(t, "deploy env = prod\n")
	if len(errs) == 0 {
		t.Fatal("expected a parse error for whitespace around '='")
	}
	if errs[0].Code != "E110" {
		t.Errorf("expected E110, got %s", errs[0].Code)
	}
}

func TestParseAssignment(t *testing.T) {
	prog := mustParse(t, "NAME=world\n")
	assign, ok := prog.Statements[0].(*AssignmentStmt)
	if !ok {
		t.Fatalf("expected *AssignmentStmt, got %T", prog.Statements[0])
	}
	if assign.Name != "NAME" || assign.Scope != ScopeGlobal {
		t.Errorf("unexpected assignment: %+v", assign)
	}
}

func TestParseLocalAssignment(t *testing.T) {
	prog := mustParse(t, "local x=1\n")
	assign, ok := prog.Statements[0].(*AssignmentStmt)
	if !ok {
		t.Fatalf("expected *AssignmentStmt, got %T", prog.Statements[0])
	}
	if assign.Scope != ScopeLocal {
		t.Errorf("expected ScopeLocal, got %v", assign.Scope)
	}
	if _, ok := assign.Value.(*IntLiteral); !ok {
		t.Errorf("expected int literal value, got %#v", assign.Value)
	}
}

func TestParseInterpolatedString(t *testing.T) {
	prog := mustParse(t, `echo "hello, ${NAME}!"` + "\n")
	pipe := prog.Statements[0].(*Pipeline)
	pos := pipe.Commands[0].Args[0].(*PositionalArg)
	interp, ok := pos.Value.(*InterpStringExpr)
	if !ok {
		t.Fatalf("expected *InterpStringExpr, got %T", pos.Value)
	}
	if len(interp.Parts) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(interp.Parts))
	}
	if interp.Parts[0].Literal != "hello, " {
		t.Errorf("unexpected first segment: %q", interp.Parts[0].Literal)
	}
	if interp.Parts[1].Var == nil || interp.Parts[1].Var.Name != "NAME" {
		t.Errorf("expected variable NAME, got %#v", interp.Parts[1].Var)
	}
	if interp.Parts[2].Literal != "!" {
		t.Errorf("unexpected trailing segment: %q", interp.Parts[2].Literal)
	}
}

func TestParseVarRefWithDefault(t *testing.T) {
	prog := mustParse(t, "echo ${ENV:-staging}\n")
	pipe := prog.Statements[0].(*Pipeline)
	pos := pipe.Commands[0].Args[0].(*PositionalArg)
	ref, ok := pos.Value.(*VarRefExpr)
	if !ok {
		t.Fatalf("expected *VarRefExpr, got %T", pos.Value)
	}
	if ref.Name != "ENV" {
		t.Errorf("expected name ENV, got %q", ref.Name)
	}
	def, ok := ref.Default.(*RawStringLiteral)
	if !ok || def.Value != "staging" {
		t.Errorf("expected default 'staging', got %#v", ref.Default)
	}
}

func TestParseVarRefPath(t *testing.T) {
	prog := mustParse(t, "echo ${?.data[0]}\n")
	pipe := prog.Statements[0].(*Pipeline)
	pos := pipe.Commands[0].Args[0].(*PositionalArg)
	ref, ok := pos.Value.(*VarRefExpr)
	if !ok {
		t.Fatalf("expected *VarRefExpr, got %T", pos.Value)
	}
	if ref.Name != "?" {
		t.Errorf("expected name '?', got %q", ref.Name)
	}
	if len(ref.Path) != 2 {
		t.Fatalf("expected 2 path segments, got %d", len(ref.Path))
	}
	if ref.Path[0].Field != "data" {
		t.Errorf("expected field 'data', got %q", ref.Path[0].Field)
	}
	if !ref.Path[1].IsIndex || ref.Path[1].Index != 0 {
		t.Errorf("expected index 0, got %+v", ref.Path[1])
	}
}

func TestParseVarRefLength(t *testing.T) {
	prog := mustParse(t, "echo ${#items}\n")
	pipe := prog.Statements[0].(*Pipeline)
	pos := pipe.Commands[0].Args[0].(*PositionalArg)
	ref := pos.Value.(*VarRefExpr)
	if !ref.LengthOf || ref.Name != "items" {
		t.Errorf("expected length-of 'items', got %+v", ref)
	}
}

func TestParseCommandSubstitution(t *testing.T) {
	prog := mustParse(t, "echo $(date)\n")
	pipe := prog.Statements[0].(*Pipeline)
	pos := pipe.Commands[0].Args[0].(*PositionalArg)
	subst, ok := pos.Value.(*CommandSubstExpr)
	if !ok {
		t.Fatalf("expected *CommandSubstExpr, got %T", pos.Value)
	}
	if len(subst.Body.Commands) != 1 || subst.Body.Commands[0].Name != "date" {
		t.Errorf("unexpected substitution body: %+v", subst.Body)
	}
}

func TestParseArithmeticExpansionRejected(t *testing.T) {
	_, errs := parse(t, "echo $((N))\n")
	if len(errs) == 0 {
		t.Fatal("expected an error for $((...)) arithmetic expansion")
	}
	if errs[0].Code != "E106" {
		t.Errorf("expected E106, got %s", errs[0].Code)
	}
}

func TestParseArrayAndObjectLiterals(t *testing.T) {
	prog := mustParse(t, "x=[1, 2, 3]\n")
	assign := prog.Statements[0].(*AssignmentStmt)
	arr, ok := assign.Value.(*ArrayLiteralExpr)
	if !ok || len(arr.Elements) != 3 {
		t.Fatalf("expected array literal with 3 elements, got %#v", assign.Value)
	}

	prog = mustParse(t, "y={a: 1, b: 2}\n")
	assign = prog.Statements[0].(*AssignmentStmt)
	obj, ok := assign.Value.(*ObjectLiteralExpr)
	if !ok || len(obj.Pairs) != 2 {
		t.Fatalf("expected object literal with 2 pairs, got %#v", assign.Value)
	}
	if obj.Pairs[0].Key != "a" {
		t.Errorf("expected key 'a', got %q", obj.Pairs[0].Key)
	}
}

func TestParseBracketTest(t *testing.T) {
	prog := mustParse(t, "if [[ $x == 1 ]] then echo yes fi\n")
	ifStmt, ok := prog.Statements[0].(*IfStmt)
	if !ok {
		t.Fatalf("expected *IfStmt, got %T", prog.Statements[0])
	}
	cmd := ifStmt.Condition.Commands[0]
	if cmd.Name != "[[" {
		t.Fatalf("expected synthetic '[[' command, got %q", cmd.Name)
	}
	cmp, ok := cmd.Args[0].(*PositionalArg).Value.(*ComparisonExpr)
	if !ok {
		t.Fatalf("expected *ComparisonExpr, got %T", cmd.Args[0].(*PositionalArg).Value)
	}
	if cmp.Operator != lexer.TOKEN_EQUAL_EQUAL {
		t.Errorf("expected ==, got %s", cmp.Operator)
	}
	if len(ifStmt.ThenBody) != 1 {
		t.Fatalf("expected 1 statement in then-body, got %d", len(ifStmt.ThenBody))
	}
}

func TestParseSingleBracketTestRejected(t *testing.T) {
	_, errs := parse(t, "if [ $x == 1 ] then echo yes fi\n")
	if len(errs) == 0 {
		t.Fatal("expected an error for single-bracket test")
	}
	if errs[0].Code != "E105" {
		t.Errorf("expected E105, got %s", errs[0].Code)
	}
}

func TestParseIfElifElse(t *testing.T) {
	src := `
if [[ $x == 1 ]] then
  echo one
elif [[ $x == 2 ]] then
  echo two
else
  echo other
fi
`
	prog := mustParse(t, src)
	ifStmt := prog.Statements[0].(*IfStmt)
	if len(ifStmt.Elifs) != 1 {
		t.Fatalf("expected 1 elif branch, got %d", len(ifStmt.Elifs))
	}
	if len(ifStmt.ElseBody) != 1 {
		t.Fatalf("expected 1 statement in else-body, got %d", len(ifStmt.ElseBody))
	}
}

func TestParseForLoop(t *testing.T) {
	src := `
for item in [a, b, c] do
  echo $item
done
`
	prog := mustParse(t, src)
	forStmt, ok := prog.Statements[0].(*ForStmt)
	if !ok {
		t.Fatalf("expected *ForStmt, got %T", prog.Statements[0])
	}
	if forStmt.Var != "item" {
		t.Errorf("expected loop var 'item', got %q", forStmt.Var)
	}
	if _, ok := forStmt.Source.(*ArrayLiteralExpr); !ok {
		t.Errorf("expected array literal source, got %#v", forStmt.Source)
	}
	if len(forStmt.Body) != 1 {
		t.Fatalf("expected 1 statement in body, got %d", len(forStmt.Body))
	}
}

func TestParseWhileLoopWithBreakContinue(t *testing.T) {
	src := `
while [[ $x == 1 ]] do
  break
  continue 2
done
`
	prog := mustParse(t, src)
	whileStmt, ok := prog.Statements[0].(*WhileStmt)
	if !ok {
		t.Fatalf("expected *WhileStmt, got %T", prog.Statements[0])
	}
	if len(whileStmt.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(whileStmt.Body))
	}
	brk, ok := whileStmt.Body[0].(*BreakStmt)
	if !ok || brk.Level != 1 {
		t.Errorf("expected break level 1, got %#v", whileStmt.Body[0])
	}
	cont, ok := whileStmt.Body[1].(*ContinueStmt)
	if !ok || cont.Level != 2 {
		t.Errorf("expected continue level 2, got %#v", whileStmt.Body[1])
	}
}

func TestParseToolDefinition(t *testing.T) {
	src := `
tool greet { name: string, loud: bool = false } do
  echo $name
  return 0
done
`
	prog := mustParse(t, src)
	tool, ok := prog.Statements[0].(*ToolDefinitionStmt)
	if !ok {
		t.Fatalf("expected *ToolDefinitionStmt, got %T", prog.Statements[0])
	}
	if tool.Name != "greet" {
		t.Errorf("expected name 'greet', got %q", tool.Name)
	}
	if len(tool.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(tool.Params))
	}
	if tool.Params[0].Name != "name" || tool.Params[0].Type != "string" {
		t.Errorf("unexpected first param: %+v", tool.Params[0])
	}
	if !tool.Params[1].HasDefault {
		t.Error("expected second param to have a default")
	}
	if len(tool.Body) != 2 {
		t.Fatalf("expected 2 body statements, got %d", len(tool.Body))
	}
}

func TestParseToolDefinitionDuplicateParam(t *testing.T) {
	_, errs := parse(t, "tool greet { name: string, name: int } do\n return 0\ndone\n")
	found := false
	for _, e := range errs {
		if e.Code == "E108" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E108 duplicate parameter error, got %v", errs)
	}
}

func TestParseReservedWordAsVariableName(t *testing.T) {
	_, errs := parse(t, "if=5\n")
	found := false
	for _, e := range errs {
		if e.Code == "E107" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E107 reserved word error, got %v", errs)
	}
}

func TestParseSourceDirective(t *testing.T) {
	prog := mustParse(t, "source 'lib.sh'\n")
	src, ok := prog.Statements[0].(*SourceDirectiveStmt)
	if !ok {
		t.Fatalf("expected *SourceDirectiveStmt, got %T", prog.Statements[0])
	}
	raw, ok := src.Path.(*RawStringLiteral)
	if !ok || raw.Value != "lib.sh" {
		t.Errorf("unexpected path: %#v", src.Path)
	}
}

func TestParseDotSourceAlias(t *testing.T) {
	prog := mustParse(t, ". 'lib.sh'\n")
	if _, ok := prog.Statements[0].(*SourceDirectiveStmt); !ok {
		t.Fatalf("expected *SourceDirectiveStmt, got %T", prog.Statements[0])
	}
}

func TestParseSetStmt(t *testing.T) {
	prog := mustParse(t, "set -e\n")
	setStmt, ok := prog.Statements[0].(*SetStmt)
	if !ok {
		t.Fatalf("expected *SetStmt, got %T", prog.Statements[0])
	}
	if setStmt.Flag != "e" || !setStmt.Enable {
		t.Errorf("expected enabled flag 'e', got %+v", setStmt)
	}
}

func TestParseLogicalChain(t *testing.T) {
	prog := mustParse(t, "build && deploy || rollback\n")
	chain, ok := prog.Statements[0].(*LogicalChainStmt)
	if !ok {
		t.Fatalf("expected *LogicalChainStmt, got %T", prog.Statements[0])
	}
	if chain.Operator != lexer.TOKEN_PIPE_PIPE {
		t.Errorf("expected outermost operator ||, got %s", chain.Operator)
	}
	inner, ok := chain.Left.(*LogicalChainStmt)
	if !ok {
		t.Fatalf("expected inner *LogicalChainStmt, got %T", chain.Left)
	}
	if inner.Operator != lexer.TOKEN_AMP_AMP {
		t.Errorf("expected inner operator &&, got %s", inner.Operator)
	}
}

func TestParseRedirects(t *testing.T) {
	prog := mustParse(t, "build > out.log 2> err.log\n")
	pipe := prog.Statements[0].(*Pipeline)
	cmd := pipe.Commands[0]
	if len(cmd.Redirects) != 2 {
		t.Fatalf("expected 2 redirects, got %d", len(cmd.Redirects))
	}
	if cmd.Redirects[0].Operator != RedirectStdoutOverwrite {
		t.Errorf("expected stdout-overwrite redirect, got %v", cmd.Redirects[0].Operator)
	}
	if cmd.Redirects[1].Operator != RedirectStderrOverwrite {
		t.Errorf("expected stderr-overwrite redirect, got %v", cmd.Redirects[1].Operator)
	}
}

func TestParseAppendAndCombinedRedirects(t *testing.T) {
	prog := mustParse(t, "build >> out.log\n")
	cmd := prog.Statements[0].(*Pipeline).Commands[0]
	if cmd.Redirects[0].Operator != RedirectStdoutAppend {
		t.Errorf("expected append redirect, got %v", cmd.Redirects[0].Operator)
	}

	prog = mustParse(t, "build &> combined.log\n")
	cmd = prog.Statements[0].(*Pipeline).Commands[0]
	if cmd.Redirects[0].Operator != RedirectCombinedOverwrite {
		t.Errorf("expected combined redirect, got %v", cmd.Redirects[0].Operator)
	}
}
