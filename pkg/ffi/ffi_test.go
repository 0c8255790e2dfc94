package ffi

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bolide_go/pkg/runtime"
)

func TestLoadLibraryFailure(t *testing.T) {
	assert.Equal(t, int64(0), LoadLibrary("/no/such/library.so"))
	assert.False(t, IsLoaded("/no/such/library.so"))
}

func TestGetSymbolWithoutLoad(t *testing.T) {
	assert.Equal(t, uintptr(0), GetSymbol("/never/loaded.so", "anything"))
}

func findLibc() string {
	candidates := []string{
		"/lib/x86_64-linux-gnu/libc.so.6",
		"/lib64/libc.so.6",
		"/usr/lib/libc.so.6",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func TestLoadAndResolveLibc(t *testing.T) {
	libc := findLibc()
	if libc == "" {
		t.Skip("no libc found on this system")
	}

	require.Equal(t, int64(1), LoadLibrary(libc))
	assert.True(t, IsLoaded(libc))

	// Idempotent: a second load of the same path succeeds.
	assert.Equal(t, int64(1), LoadLibrary(libc))

	addr := GetSymbol(libc, "strlen")
	assert.NotEqual(t, uintptr(0), addr)

	assert.Equal(t, uintptr(0), GetSymbol(libc, "definitely_not_a_symbol_xyz"))

	Cleanup()
	assert.False(t, IsLoaded(libc))
}

func TestSymbolsRegistered(t *testing.T) {
	assert.True(t, runtime.HasSymbol("bolide_ffi_load_library"))
	assert.True(t, runtime.HasSymbol("bolide_ffi_get_symbol"))
	assert.True(t, runtime.HasSymbol("bolide_ffi_cleanup"))
}
