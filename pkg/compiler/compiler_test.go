package compiler

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bolide_go/pkg/ast"
	"bolide_go/pkg/runtime"
)

func sampleProgram() *ast.Program {
	return &ast.Program{Statements: []ast.Statement{
		ast.VarDecl{Name: "ch", Type: ast.ChannelType{Elem: ast.TypeInt},
			Value: ast.Call{Callee: ast.Ident{Name: "channel"}, Args: []ast.Expr{ast.IntLit{Value: 1}}}},
		ast.Send{Channel: "ch", Value: ast.IntLit{Value: 5}},
		ast.VarDecl{Name: "v", Type: ast.TypeInt, Value: ast.Recv{Channel: "ch"}},
		ast.ExprStmt{Expr: ast.Call{Callee: ast.Ident{Name: "print"}, Args: []ast.Expr{ast.Ident{Name: "v"}}}},
	}}
}

func TestCompileProducesIRAndExterns(t *testing.T) {
	c, err := Compile(sampleProgram())
	require.NoError(t, err)

	assert.Contains(t, c.IR, "define i64 @main()")
	assert.Contains(t, c.Externs, "bolide_channel_send")
	assert.Contains(t, c.Externs, "bolide_print_int")
	assert.True(t, sort.StringsAreSorted(c.Externs))
}

func TestLinkCheckResolvesAgainstRegistry(t *testing.T) {
	c, err := Compile(sampleProgram())
	require.NoError(t, err)
	assert.NoError(t, c.LinkCheck(), "every emitted extern must be a registered runtime symbol")
}

func TestLinkCheckReportsMissingSymbol(t *testing.T) {
	c := &Compiled{Externs: []string{"bolide_channel_send", "bolide_no_such_symbol"}}
	err := c.LinkCheck()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bolide_no_such_symbol")
	assert.NotContains(t, err.Error(), "bolide_channel_send,")
}

func TestManifestListsExterns(t *testing.T) {
	c, err := Compile(sampleProgram())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(c.Manifest()), "\n")
	assert.Equal(t, len(c.Externs), len(lines))
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "bolide_"), "manifest line %q", line)
		assert.True(t, runtime.HasSymbol(line), "manifest symbol %s must exist in the registry", line)
	}
}

func TestEmitAOTWritesArtifactAndManifest(t *testing.T) {
	c, err := Compile(sampleProgram())
	require.NoError(t, err)

	dir := t.TempDir()
	out := filepath.Join(dir, "prog.ll")
	require.NoError(t, c.EmitAOT(out))

	artifact, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(artifact), "@main")

	manifest, err := os.ReadFile(filepath.Join(dir, "prog.symbols"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "bolide_channel_send")
}

func TestCompileRejectsBadProgram(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		ast.FuncDef{
			Name:         "bad",
			ReturnType:   ast.TypeStr,
			LifetimeDeps: []string{"ghost"},
		},
	}}
	_, err := Compile(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis")
}

// The registry must cover the complete ABI surface generated code can
// reference, not just what one module happens to use.
func TestRuntimeSymbolTableCoversABI(t *testing.T) {
	names := RuntimeSymbols()
	require.NotEmpty(t, names)

	groups := []string{
		"bolide_alloc", "bolide_free",
		"bolide_object_alloc", "bolide_object_retain", "bolide_object_release", "bolide_object_clone",
		"bolide_bigint_from_i64", "bolide_bigint_from_str", "bolide_bigint_add", "bolide_bigint_div",
		"bolide_bigint_debug_stats", "bolide_bigint_reset_stats",
		"bolide_decimal_from_str", "bolide_decimal_round_dp", "bolide_decimal_abs",
		"bolide_string_new", "bolide_string_concat", "bolide_string_compare",
		"bolide_dynamic_from_i64", "bolide_dynamic_to_string_repr",
		"bolide_list_new", "bolide_list_get", "bolide_list_set", "bolide_list_len",
		"bolide_tuple_new", "bolide_tuple_debug_stats",
		"bolide_print_int", "bolide_print_dynamic", "bolide_println",
		"bolide_pool_create", "bolide_pool_destroy", "bolide_spawn", "bolide_future_await",
		"bolide_channel_create", "bolide_channel_create_buffered", "bolide_channel_send",
		"bolide_channel_recv", "bolide_channel_try_recv", "bolide_channel_close",
		"bolide_channel_is_closed", "bolide_channel_free", "bolide_channel_select",
		"bolide_ffi_load_library", "bolide_ffi_get_symbol", "bolide_ffi_cleanup",
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	for _, want := range groups {
		assert.True(t, set[want], "ABI symbol %s missing from registry", want)
	}
}
