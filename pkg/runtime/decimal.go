package runtime

import "github.com/shopspring/decimal"

// Decimal is an immutable fixed-point decimal. Like BigInt, arithmetic
// produces fresh objects with strong=1 and division by zero yields nil.
type Decimal struct {
	hdr    Header
	handle Slot
	inner  decimal.Decimal
	dead   bool
}

func newDecimal(v decimal.Decimal) *Decimal {
	d := &Decimal{hdr: newHeader(TagDecimal), inner: v}
	d.handle = registerHandle(d)
	return d
}

// DecimalFromI64 creates a Decimal from a 64-bit integer.
func DecimalFromI64(v int64) *Decimal {
	return newDecimal(decimal.NewFromInt(v))
}

// DecimalFromF64 creates a Decimal from a float64.
func DecimalFromF64(v float64) *Decimal {
	return newDecimal(decimal.NewFromFloat(v))
}

// DecimalFromString parses a decimal literal. Returns nil on malformed
// input.
func DecimalFromString(s string) *Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return newDecimal(v)
}

// DecimalRetain increments the strong count. Null-safe.
func DecimalRetain(d *Decimal) *Decimal {
	if d != nil {
		d.hdr.retain()
	}
	return d
}

// DecimalRelease decrements the strong count, destroying the payload on
// the 1->0 transition. Null-safe.
func DecimalRelease(d *Decimal) {
	if d == nil {
		return
	}
	if d.hdr.release() {
		d.inner = decimal.Decimal{}
		d.dead = true
		if d.hdr.weakRelease() {
			dropHandle(d.handle)
		}
	}
}

// DecimalClone deep-copies, yielding a distinct object with strong=1.
func DecimalClone(d *Decimal) *Decimal {
	if d == nil || d.dead {
		return nil
	}
	return newDecimal(d.inner)
}

// DecimalRefCount returns the strong count, 0 for nil.
func DecimalRefCount(d *Decimal) uint32 {
	if d == nil {
		return 0
	}
	return d.hdr.RefCount()
}

// Handle returns the slot value naming this object.
func (d *Decimal) Handle() Slot { return d.handle }

// DecimalToI64 truncates toward zero.
func DecimalToI64(d *Decimal) int64 {
	if d == nil || d.dead {
		return 0
	}
	return d.inner.IntPart()
}

// DecimalToF64 converts to float64.
func DecimalToF64(d *Decimal) float64 {
	if d == nil || d.dead {
		return 0
	}
	f, _ := d.inner.Float64()
	return f
}

// DecimalIsZero reports whether the value is zero.
func DecimalIsZero(d *Decimal) bool {
	return d != nil && !d.dead && d.inner.IsZero()
}

// DecimalIsPositive reports a strictly positive value.
func DecimalIsPositive(d *Decimal) bool {
	return d != nil && !d.dead && d.inner.IsPositive()
}

// DecimalIsNegative reports a strictly negative value.
func DecimalIsNegative(d *Decimal) bool {
	return d != nil && !d.dead && d.inner.IsNegative()
}

func (d *Decimal) String() string {
	if d == nil || d.dead {
		return "<nil decimal>"
	}
	return d.inner.String()
}

func decimalLive(d *Decimal) bool { return d != nil && !d.dead }

// DecimalAdd returns a+b as a new object, or nil on a nil operand.
func DecimalAdd(a, b *Decimal) *Decimal {
	if !decimalLive(a) || !decimalLive(b) {
		return nil
	}
	return newDecimal(a.inner.Add(b.inner))
}

// DecimalSub returns a-b.
func DecimalSub(a, b *Decimal) *Decimal {
	if !decimalLive(a) || !decimalLive(b) {
		return nil
	}
	return newDecimal(a.inner.Sub(b.inner))
}

// DecimalMul returns a*b.
func DecimalMul(a, b *Decimal) *Decimal {
	if !decimalLive(a) || !decimalLive(b) {
		return nil
	}
	return newDecimal(a.inner.Mul(b.inner))
}

// DecimalDiv returns a/b, or nil when b is zero.
func DecimalDiv(a, b *Decimal) *Decimal {
	if !decimalLive(a) || !decimalLive(b) || b.inner.IsZero() {
		return nil
	}
	return newDecimal(a.inner.Div(b.inner))
}

// DecimalRem returns a mod b, or nil when b is zero.
func DecimalRem(a, b *Decimal) *Decimal {
	if !decimalLive(a) || !decimalLive(b) || b.inner.IsZero() {
		return nil
	}
	return newDecimal(a.inner.Mod(b.inner))
}

// DecimalNeg returns -a.
func DecimalNeg(a *Decimal) *Decimal {
	if !decimalLive(a) {
		return nil
	}
	return newDecimal(a.inner.Neg())
}

// DecimalAbs returns |a|.
func DecimalAbs(a *Decimal) *Decimal {
	if !decimalLive(a) {
		return nil
	}
	return newDecimal(a.inner.Abs())
}

// DecimalFloor rounds toward negative infinity.
func DecimalFloor(a *Decimal) *Decimal {
	if !decimalLive(a) {
		return nil
	}
	return newDecimal(a.inner.Floor())
}

// DecimalCeil rounds toward positive infinity.
func DecimalCeil(a *Decimal) *Decimal {
	if !decimalLive(a) {
		return nil
	}
	return newDecimal(a.inner.Ceil())
}

// DecimalRound rounds half away from zero to an integer.
func DecimalRound(a *Decimal) *Decimal {
	if !decimalLive(a) {
		return nil
	}
	return newDecimal(a.inner.Round(0))
}

// DecimalRoundDP rounds half away from zero to dp decimal places.
func DecimalRoundDP(a *Decimal, dp int32) *Decimal {
	if !decimalLive(a) {
		return nil
	}
	return newDecimal(a.inner.Round(dp))
}

func decimalCmp(a, b *Decimal) (int, bool) {
	if !decimalLive(a) || !decimalLive(b) {
		return 0, false
	}
	return a.inner.Cmp(b.inner), true
}

func DecimalEq(a, b *Decimal) int64 {
	c, ok := decimalCmp(a, b)
	return boolToI64(ok && c == 0)
}

func DecimalNe(a, b *Decimal) int64 {
	c, ok := decimalCmp(a, b)
	return boolToI64(ok && c != 0)
}

func DecimalLt(a, b *Decimal) int64 {
	c, ok := decimalCmp(a, b)
	return boolToI64(ok && c < 0)
}

func DecimalLe(a, b *Decimal) int64 {
	c, ok := decimalCmp(a, b)
	return boolToI64(ok && c <= 0)
}

func DecimalGt(a, b *Decimal) int64 {
	c, ok := decimalCmp(a, b)
	return boolToI64(ok && c > 0)
}

func DecimalGe(a, b *Decimal) int64 {
	c, ok := decimalCmp(a, b)
	return boolToI64(ok && c >= 0)
}
