// Package compiler is the facade tying the AST to the back-end. It runs
// the static analysis, lowers the program to LLVM IR, and either hands
// the module to the JIT (resolving every external reference against the
// in-memory runtime symbol table first) or emits an ahead-of-time
// artifact plus the manifest of runtime symbols the linker must satisfy.
package compiler

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"bolide_go/pkg/analysis"
	"bolide_go/pkg/ast"
	"bolide_go/pkg/codegen"
	// The FFI table registers its ABI symbols at init; the facade needs
	// the complete registry for link checks and manifests.
	_ "bolide_go/pkg/ffi"
	"bolide_go/pkg/jit"
	"bolide_go/pkg/runtime"
)

// Compiled is a lowered program ready for either execution mode.
type Compiled struct {
	IR       string
	Externs  []string
	Registry *analysis.Registry
}

// Compile analyses and lowers a program.
func Compile(prog *ast.Program) (*Compiled, error) {
	reg, err := analysis.Analyze(prog)
	if err != nil {
		return nil, errors.Wrap(err, "analysis")
	}

	gen := codegen.New(reg)
	mod, err := gen.Generate(prog)
	if err != nil {
		return nil, errors.Wrap(err, "codegen")
	}

	externs := gen.ExternNames()
	sort.Strings(externs)
	return &Compiled{
		IR:       mod.String(),
		Externs:  externs,
		Registry: reg,
	}, nil
}

// LinkCheck verifies that every external reference in the module
// resolves in the in-memory runtime symbol table. A miss is a link
// error: fatal at JIT finalisation.
func (c *Compiled) LinkCheck() error {
	var missing []string
	for _, name := range c.Externs {
		if !runtime.HasSymbol(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("link: unresolved runtime symbols: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RunJIT finalises the module in-process: link-check against the runtime
// registry, compile, execute. Returns the program's output.
func (c *Compiled) RunJIT() (string, error) {
	if err := c.LinkCheck(); err != nil {
		return "", err
	}
	j := jit.Get()
	if !j.IsAvailable() {
		return "", errors.New("jit: clang not found")
	}
	code, err := j.Compile(c.IR)
	if err != nil {
		return "", err
	}
	defer code.Close()
	logrus.WithField("externs", len(c.Externs)).Debug("compiler: jit run")
	return code.Run()
}

// Manifest renders the AOT link manifest: one required external symbol
// per line.
func (c *Compiled) Manifest() string {
	var sb strings.Builder
	for _, name := range c.Externs {
		sb.WriteString(name)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// EmitAOT writes the object-input artifact (textual IR; assembling and
// linking are external) and the symbol manifest next to it.
func (c *Compiled) EmitAOT(outPath string) error {
	if err := os.WriteFile(outPath, []byte(c.IR), 0o644); err != nil {
		return errors.Wrap(err, "aot: write artifact")
	}
	manifestPath := manifestPathFor(outPath)
	if err := os.WriteFile(manifestPath, []byte(c.Manifest()), 0o644); err != nil {
		return errors.Wrap(err, "aot: write manifest")
	}
	logrus.WithFields(logrus.Fields{
		"artifact": outPath,
		"manifest": manifestPath,
	}).Info("compiler: aot artifact written")
	return nil
}

func manifestPathFor(outPath string) string {
	ext := filepath.Ext(outPath)
	base := strings.TrimSuffix(outPath, ext)
	return base + ".symbols"
}

// RuntimeSymbols exposes the full registry name set: the table an AOT
// link must satisfy even for symbols this module happens not to use.
func RuntimeSymbols() []string {
	return runtime.SymbolNames()
}
