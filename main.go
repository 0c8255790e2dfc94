// Bolide driver: compile and run entry points over the compiler facade.
// The concrete grammar lives in an external front-end that registers
// itself as ParseSource; the driver only moves programs through the
// facade.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"bolide_go/pkg/ast"
	"bolide_go/pkg/compiler"
	"bolide_go/pkg/ffi"
)

// ParseSource is installed by the front-end package that owns the
// grammar. The core treats parsing as an external collaborator.
var ParseSource func(source string) (*ast.Program, error)

var (
	compileMode = flag.Bool("c", false, "Emit an AOT artifact and symbol manifest instead of running")
	outputFile  = flag.String("o", "a.out.ll", "Output path for -c")
	printIR     = flag.Bool("emit-ir", false, "Print the lowered IR to stdout")
	listSymbols = flag.Bool("symbols", false, "Print the runtime symbol table and exit")
	verbose     = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Bolide - compile and run Bolide programs\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [file.bl]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	defer ffi.Cleanup()

	if *listSymbols {
		for _, name := range compiler.RuntimeSymbols() {
			fmt.Println(name)
		}
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	if ParseSource == nil {
		fmt.Fprintln(os.Stderr, "Error: no front-end linked (ParseSource is unset)")
		os.Exit(1)
	}
	prog, err := ParseSource(string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse error: %v\n", err)
		os.Exit(1)
	}

	compiled, err := compiler.Compile(prog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error: %v\n", err)
		os.Exit(1)
	}

	if *printIR {
		fmt.Print(compiled.IR)
	}

	if *compileMode {
		if err := compiled.EmitAOT(*outputFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	out, err := compiled.RunJIT()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if out != "" {
		fmt.Println(out)
	}
}
