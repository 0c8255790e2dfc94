// Package jit drives in-process execution of compiled programs: it
// writes the emitted LLVM IR to a scratch directory, compiles it with
// clang against the runtime's native archive, and runs the result.
package jit

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// JIT compiles IR modules in a private temp directory.
type JIT struct {
	mu          sync.Mutex
	tempDir     string
	counter     int
	runtimeLib  string // path to the native runtime archive, when present
	clangExtras []string
}

var (
	globalJIT *JIT
	jitOnce   sync.Once
)

// Get returns the process JIT instance.
func Get() *JIT {
	jitOnce.Do(func() {
		dir, err := os.MkdirTemp("", "bolide_jit_")
		if err != nil {
			logrus.WithError(err).Warn("jit: no temp directory, JIT disabled")
			globalJIT = &JIT{}
			return
		}
		globalJIT = &JIT{tempDir: dir}
	})
	return globalJIT
}

// IsAvailable reports whether clang and a scratch directory are present.
func (j *JIT) IsAvailable() bool {
	_, err := exec.LookPath("clang")
	return err == nil && j.tempDir != ""
}

// SetRuntimeLib points the link step at a prebuilt native runtime
// archive.
func (j *JIT) SetRuntimeLib(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runtimeLib = path
}

// CompiledCode is one compiled artifact.
type CompiledCode struct {
	exePath string
}

// Compile writes the IR text and compiles it to an executable.
func (j *JIT) Compile(irText string) (*CompiledCode, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.tempDir == "" {
		return nil, errors.New("jit: no temp directory")
	}

	j.counter++
	base := fmt.Sprintf("bolide_jit_%d", j.counter)
	srcPath := filepath.Join(j.tempDir, base+".ll")
	exePath := filepath.Join(j.tempDir, base)

	if err := os.WriteFile(srcPath, []byte(irText), 0o644); err != nil {
		return nil, errors.Wrap(err, "jit: write IR")
	}

	args := []string{"-O2", "-o", exePath, srcPath}
	if j.runtimeLib != "" {
		args = append(args, j.runtimeLib)
	}
	args = append(args, j.clangExtras...)
	args = append(args, "-lpthread")

	cmd := exec.Command("clang", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errors.Wrapf(err, "jit: clang failed:\n%s", output)
	}
	logrus.WithField("exe", exePath).Debug("jit: compiled")
	return &CompiledCode{exePath: exePath}, nil
}

// Run executes the artifact and returns its standard output with trailing
// newlines trimmed.
func (cc *CompiledCode) Run() (string, error) {
	if cc.exePath == "" {
		return "", errors.New("jit: no executable")
	}
	out, err := exec.Command(cc.exePath).Output()
	if err != nil {
		return "", errors.Wrap(err, "jit: run")
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// Close removes the artifact.
func (cc *CompiledCode) Close() {
	if cc.exePath != "" {
		os.Remove(cc.exePath)
		os.Remove(cc.exePath + ".ll")
	}
}

// Cleanup removes the scratch directory.
func (j *JIT) Cleanup() {
	if j.tempDir != "" {
		os.RemoveAll(j.tempDir)
	}
}
