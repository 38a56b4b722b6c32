// Package order implements the rational sort key that positions a note among
// its siblings. Keys support dense insertion (bisection between neighbors)
// and collapse back to plain integers on normalization.
package order

import (
	"fmt"
	"math"
)

// Key is an exact rational number num/den with den > 0, kept in lowest terms.
// The zero value is 0.
type Key struct {
	num int64
	den int64
}

// Zero is the key of the first element of a normalized sibling group.
var Zero = Key{num: 0, den: 1}

func FromInt(n int64) Key {
	return Key{num: n, den: 1}
}

// FromFloat64 reconstructs a key from its storage representation. Keys
// produced by this package have power-of-two denominators, so the float64
// round-trip is exact. Values from other sources are truncated at a
// denominator of 2^52.
func FromFloat64(f float64) Key {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Zero
	}
	den := int64(1)
	for f != math.Trunc(f) && den < 1<<52 {
		f *= 2
		den *= 2
	}
	return newKey(int64(f), den)
}

func newKey(num, den int64) Key {
	if den < 0 {
		num, den = -num, -den
	}
	if den == 0 {
		den = 1
	}
	if g := gcd(num, den); g > 1 {
		num /= g
		den /= g
	}
	return Key{num: num, den: den}
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Float64 converts the key for the storage boundary.
func (k Key) Float64() float64 {
	return float64(k.num) / float64(k.denom())
}

func (k Key) denom() int64 {
	if k.den == 0 {
		return 1
	}
	return k.den
}

// Cmp returns -1, 0 or 1 as k is less than, equal to or greater than other.
func (k Key) Cmp(other Key) int {
	lhs := k.num * other.denom()
	rhs := other.num * k.denom()
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

func (k Key) Less(other Key) bool {
	return k.Cmp(other) < 0
}

func (k Key) Equal(other Key) bool {
	return k.Cmp(other) == 0
}

// IsInt reports whether the key is a whole number.
func (k Key) IsInt() bool {
	return k.denom() == 1
}

// Int returns the key rounded toward negative infinity.
func (k Key) Int() int64 {
	d := k.denom()
	q := k.num / d
	if k.num%d != 0 && k.num < 0 {
		q--
	}
	return q
}

func (k Key) String() string {
	if k.IsInt() {
		return fmt.Sprintf("%d", k.num)
	}
	return fmt.Sprintf("%d/%d", k.num, k.denom())
}

// Between bisects the gap between two neighboring keys: (a+b)/2. Callers
// must renormalize the group after the structural mutation, which bounds
// consecutive bisections to one and keeps denominators small.
func Between(a, b Key) Key {
	num := a.num*b.denom() + b.num*a.denom()
	den := 2 * a.denom() * b.denom()
	return newKey(num, den)
}

// After returns the tail key following max: floor(max)+1.
func After(max Key) Key {
	return FromInt(max.Int() + 1)
}

// Before returns the head key preceding min: ceil(min)-1.
func Before(min Key) Key {
	ceil := min.Int()
	if !min.IsInt() {
		ceil++
	}
	return FromInt(ceil - 1)
}
