package runtime

import (
	"fmt"
	"io"
	"os"
)

// Output is where the print primitives write. Tests redirect it.
var Output io.Writer = os.Stdout

// PrintInt prints an integer followed by a newline.
func PrintInt(v int64) { fmt.Fprintln(Output, v) }

// PrintIntInline prints an integer with no newline.
func PrintIntInline(v int64) { fmt.Fprint(Output, v) }

// PrintFloat prints a float followed by a newline.
func PrintFloat(v float64) { fmt.Fprintln(Output, formatFloat(v)) }

// PrintFloatInline prints a float with no newline.
func PrintFloatInline(v float64) { fmt.Fprint(Output, formatFloat(v)) }

func formatFloat(v float64) string { return fmt.Sprintf("%g", v) }

// PrintBool prints true or false followed by a newline.
func PrintBool(v bool) { fmt.Fprintln(Output, v) }

// PrintBoolInline prints true or false with no newline.
func PrintBoolInline(v bool) { fmt.Fprint(Output, v) }

// PrintBigInt prints a BigInt followed by a newline.
func PrintBigInt(b *BigInt) { fmt.Fprintln(Output, b.String()) }

// PrintBigIntInline prints a BigInt with no newline.
func PrintBigIntInline(b *BigInt) { fmt.Fprint(Output, b.String()) }

// PrintDecimal prints a Decimal followed by a newline.
func PrintDecimal(d *Decimal) { fmt.Fprintln(Output, d.String()) }

// PrintDecimalInline prints a Decimal with no newline.
func PrintDecimalInline(d *Decimal) { fmt.Fprint(Output, d.String()) }

// PrintString prints a string object followed by a newline.
func PrintString(s *String) { fmt.Fprintln(Output, s.String()) }

// PrintStringInline prints a string object with no newline.
func PrintStringInline(s *String) { fmt.Fprint(Output, s.String()) }

// PrintDynamic prints a dynamic box followed by a newline.
func PrintDynamic(d *Dynamic) { fmt.Fprintln(Output, DynamicRepr(d)) }

// PrintDynamicInline prints a dynamic box with no newline.
func PrintDynamicInline(d *Dynamic) { fmt.Fprint(Output, DynamicRepr(d)) }

// PrintTuple prints a tuple followed by a newline.
func PrintTuple(t *Tuple) { fmt.Fprintln(Output, t.String()) }

// PrintTupleInline prints a tuple with no newline.
func PrintTupleInline(t *Tuple) { fmt.Fprint(Output, t.String()) }

// Println prints a bare newline.
func Println() { fmt.Fprintln(Output) }
