// Package mathext registers a set of math natives into an interp
// Context's global environment: the floating-point operations the
// core itself has no opinion on, each a thin adapter around the
// standard math package.
package mathext

import (
	"math"

	"github.com/noncombatant/fe/pkg/interp"
)

// Install registers every math native under its Lisp name and binds
// the constants pi and e. It is idempotent only in the sense that
// MakeSymbol interning is idempotent; calling it twice on the same
// Context rebinds the same names to freshly allocated Native cells.
func Install(ctx *interp.Context) error {
	for _, entry := range natives {
		if err := register(ctx, entry.name, entry.fn); err != nil {
			return err
		}
	}

	if err := bindNumber(ctx, "pi", math.Pi); err != nil {
		return err
	}
	return bindNumber(ctx, "e", math.E)
}

var natives = []struct {
	name string
	fn   interp.NativeFunc
}{
	{"abs", unary(math.Abs)},
	{"ceiling", unary(math.Ceil)},
	{"cube-root", unary(math.Cbrt)},
	{"floor", unary(math.Floor)},
	{"hypotenuse", binary(math.Hypot)},
	{"is-finite", predicate(func(x float64) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) })},
	{"is-infinite", predicate(func(x float64) bool { return math.IsInf(x, 0) })},
	{"is-nan", predicate(math.IsNaN)},
	{"is-normal", predicate(isNormal)},
	{"lg", unary(math.Log2)},
	{"log", unary(math.Log)},
	{"max", binary(math.Max)},
	{"min", binary(math.Min)},
	{"%", binary(math.Mod)},
	{"nearby-int", unary(math.RoundToEven)},
	{"pow", binary(math.Pow)},
	{"remainder", binary(math.Remainder)},
	{"round", unary(math.Round)},
	{"round-to-int", unary(math.Round)},
	{"square-root", unary(math.Sqrt)},
	{"truncate", unary(math.Trunc)},
}

// smallestNormalFloat64 is the smallest positive double that is not
// subnormal, DBL_MIN in C terms.
const smallestNormalFloat64 = 2.2250738585072014e-308

// isNormal reports whether x is neither zero, subnormal, infinite, nor
// NaN — Go's math package has no single predicate for this, unlike C's
// isnormal(), so it is assembled from the pieces that do exist.
func isNormal(x float64) bool {
	if x == 0 || math.IsInf(x, 0) || math.IsNaN(x) {
		return false
	}
	return math.Abs(x) >= smallestNormalFloat64
}

func unary(f func(float64) float64) interp.NativeFunc {
	return func(ctx *interp.Context, args interp.Ref) (interp.Ref, error) {
		x, _, err := ctx.NextArg(args)
		if err != nil {
			return interp.NilRef, err
		}
		n, err := ctx.GetNumber(x)
		if err != nil {
			return interp.NilRef, err
		}
		return ctx.MakeNumber(f(n))
	}
}

func binary(f func(a, b float64) float64) interp.NativeFunc {
	return func(ctx *interp.Context, args interp.Ref) (interp.Ref, error) {
		xRef, rest, err := ctx.NextArg(args)
		if err != nil {
			return interp.NilRef, err
		}
		yRef, _, err := ctx.NextArg(rest)
		if err != nil {
			return interp.NilRef, err
		}
		x, err := ctx.GetNumber(xRef)
		if err != nil {
			return interp.NilRef, err
		}
		y, err := ctx.GetNumber(yRef)
		if err != nil {
			return interp.NilRef, err
		}
		return ctx.MakeNumber(f(x, y))
	}
}

func predicate(f func(float64) bool) interp.NativeFunc {
	return func(ctx *interp.Context, args interp.Ref) (interp.Ref, error) {
		xRef, _, err := ctx.NextArg(args)
		if err != nil {
			return interp.NilRef, err
		}
		n, err := ctx.GetNumber(xRef)
		if err != nil {
			return interp.NilRef, err
		}
		return ctx.MakeBool(f(n))
	}
}

func register(ctx *interp.Context, name string, fn interp.NativeFunc) error {
	nativeRef, err := ctx.MakeNative(fn)
	if err != nil {
		return err
	}
	sym, err := ctx.MakeSymbol([]byte(name))
	if err != nil {
		return err
	}
	return ctx.Set(sym, nativeRef)
}

func bindNumber(ctx *interp.Context, name string, value float64) error {
	numRef, err := ctx.MakeNumber(value)
	if err != nil {
		return err
	}
	sym, err := ctx.MakeSymbol([]byte(name))
	if err != nil {
		return err
	}
	return ctx.Set(sym, numRef)
}
