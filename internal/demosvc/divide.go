// Package demosvc is a small instrumented service used as the end-to-end
// test bed for covmark: every interesting branch records a mark, and the
// package's tests assert branch reachability through the public check
// surface. It doubles as the reference for how to instrument real code.
package demosvc

import "github.com/covmark/covmark"

// Marks instrumented into the arithmetic path. Grep a name to jump between
// the branch and the test that exercises it.
const (
	MarkDivideByZero = "save_divide_zero"
	MarkDivideOK     = "divide_ok"
)

// SafeDivide divides dividend by divisor, returning 0 instead of panicking
// on a zero divisor.
func SafeDivide(dividend, divisor uint32) uint32 {
	if divisor == 0 {
		covmark.Hit(MarkDivideByZero)
		return 0
	}
	covmark.Hit(MarkDivideOK)
	return dividend / divisor
}
