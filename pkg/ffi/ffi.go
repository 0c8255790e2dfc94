// Package ffi keeps the process-wide table of loaded dynamic libraries
// and resolves symbols out of them for compiled code. Failures never
// propagate as errors across the ABI: loads report 1/0, lookups report a
// null pointer, and diagnostics go to stderr.
package ffi

import (
	"sync"

	"github.com/ebitengine/purego"
	"github.com/sirupsen/logrus"

	"bolide_go/pkg/runtime"
)

var libs = struct {
	mu     sync.Mutex
	loaded map[string]uintptr
}{loaded: make(map[string]uintptr)}

// LoadLibrary opens a dynamic library and caches its handle under the
// given path. Idempotent: a second load of the same path succeeds without
// reopening. Returns 1 on success, 0 on failure.
func LoadLibrary(path string) int64 {
	libs.mu.Lock()
	defer libs.mu.Unlock()

	if _, ok := libs.loaded[path]; ok {
		return 1
	}
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		logrus.WithError(err).WithField("library", path).Error("ffi: failed to load library")
		return 0
	}
	libs.loaded[path] = handle
	return 1
}

// GetSymbol resolves a symbol from a previously loaded library. Returns 0
// when the library was never loaded or the symbol is absent.
func GetSymbol(libPath, symbol string) uintptr {
	libs.mu.Lock()
	handle, ok := libs.loaded[libPath]
	libs.mu.Unlock()

	if !ok {
		logrus.WithField("library", libPath).Error("ffi: library not loaded")
		return 0
	}
	addr, err := purego.Dlsym(handle, symbol)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"library": libPath,
			"symbol":  symbol,
		}).Error("ffi: symbol not found")
		return 0
	}
	return addr
}

// Cleanup closes every loaded library and empties the table.
func Cleanup() {
	libs.mu.Lock()
	defer libs.mu.Unlock()
	for path, handle := range libs.loaded {
		if err := purego.Dlclose(handle); err != nil {
			logrus.WithError(err).WithField("library", path).Warn("ffi: dlclose failed")
		}
	}
	libs.loaded = make(map[string]uintptr)
}

// IsLoaded reports whether a library path is in the table.
func IsLoaded(path string) bool {
	libs.mu.Lock()
	defer libs.mu.Unlock()
	_, ok := libs.loaded[path]
	return ok
}

func init() {
	runtime.RegisterSymbol("bolide_ffi_load_library", LoadLibrary)
	runtime.RegisterSymbol("bolide_ffi_get_symbol", GetSymbol)
	runtime.RegisterSymbol("bolide_ffi_cleanup", Cleanup)
}
