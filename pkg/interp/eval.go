package interp

import "fmt"

// must converts a (Ref, error) pair into the long-jump error contract
// evaluation uses: type errors, arity errors and allocation failures
// all terminate the current Evaluate call via HandleError rather than
// bubbling up as a Go error. Accessor methods like Car/Cdr/GetNumber
// stay idiomatic (they return plain errors for callers outside the
// evaluator); must is the seam where the evaluator adopts the
// fatal-error contract instead.
func (ctx *Context) must(ref Ref, err error) Ref {
	if err != nil {
		ctx.HandleError(err.Error())
	}
	return ref
}

// must0 is must without a value to thread through, for calls made only
// for their side effect (SetCdr, SetCar).
func (ctx *Context) must0(err error) {
	if err != nil {
		ctx.HandleError(err.Error())
	}
}

// pushGCOrFatal is PushGC with the same must-succeed contract: a root
// stack overflow mid-evaluation is exactly as fatal as a type error.
func (ctx *Context) pushGCOrFatal(ref Ref) {
	if err := ctx.PushGC(ref); err != nil {
		ctx.HandleError(err.Error())
	}
}

// checkKind returns ref unchanged if its kind matches want, else
// raises a fatal type error naming both kinds.
func (ctx *Context) checkKind(ref Ref, want Kind) Ref {
	if ctx.GetKind(ref) != want {
		ctx.HandleError(fmt.Sprintf("expected %s, got %s", want, ctx.GetKind(ref)))
	}
	return ref
}

// nextArg is NextArg with the fatal-on-error contract the evaluator
// uses everywhere it walks an argument cursor.
func (ctx *Context) nextArg(cursor Ref) (value, rest Ref) {
	v, r, err := ctx.NextArg(cursor)
	if err != nil {
		ctx.HandleError(err.Error())
	}
	return v, r
}

// toNumber checks that ref is a Number, then reads its payload.
func (ctx *Context) toNumber(ref Ref) float64 {
	ctx.checkKind(ref, KindNumber)
	n, _ := ctx.GetNumber(ref)
	return n
}

// equalValues is the `is` predicate: reference identity short
// circuits; otherwise the kinds must match, and Number compares by
// near-equality while String compares byte for byte. Every other kind
// (including two distinct Pairs) compares unequal — `is` never walks
// pair structure.
func (ctx *Context) equalValues(a, b Ref) bool {
	if a == b {
		return true
	}
	ka, kb := ctx.GetKind(a), ctx.GetKind(b)
	if ka != kb {
		return false
	}
	switch ka {
	case KindNumber:
		na, _ := ctx.GetNumber(a)
		nb, _ := ctx.GetNumber(b)
		return numbersNearlyEqual(na, nb)
	case KindString:
		return ctx.StringsEqual(a, b)
	default:
		return false
	}
}

// evaluateList evaluates every form in a raw argument cursor, left to
// right, into a freshly consed list — the argument-evaluation helper
// behind `list`, every Native call, and every Function call.
func (ctx *Context) evaluateList(args, env Ref) Ref {
	head := NilRef
	tail := NilRef
	cursor := args
	for !IsNil(cursor) {
		var v Ref
		v, cursor = ctx.nextArg(cursor)
		cell := ctx.must(ctx.Cons(ctx.eval(v, env, nil), NilRef))
		if head == NilRef {
			head = cell
		} else {
			ctx.must0(ctx.SetCdr(tail, cell))
		}
		tail = cell
	}
	return head
}

// doList evaluates every form in body sequentially in env, threading
// env through each form's own newenv slot so that a `let` anywhere in
// the list extends the environment seen by the forms after it (and
// only those: the caller's own env variable is never touched, since
// env here is a local copy). Between forms the root stack is rewound
// and re-seeded with exactly the remaining list and the current
// environment.
func (ctx *Context) doList(body, env Ref) Ref {
	result := NilRef
	save := ctx.SaveGC()
	cursor := body
	for !IsNil(cursor) {
		ctx.RestoreGC(save)
		ctx.pushGCOrFatal(cursor)
		ctx.pushGCOrFatal(env)
		var form Ref
		form, cursor = ctx.nextArg(cursor)
		result = ctx.eval(form, env, &env)
	}
	return result
}

// argsToEnv prepends one (symbol . value) pair per parameter to env,
// using the safe accessors so a call with fewer arguments than
// parameters binds the rest to nil rather than erroring. A non-Pair
// tail of params (a "rest" parameter symbol) binds to the whole
// remaining args cursor as-is, terminating the walk.
func (ctx *Context) argsToEnv(params, args, env Ref) Ref {
	for !IsNil(params) {
		if ctx.GetKind(params) != KindPair {
			pair := ctx.must(ctx.Cons(params, args))
			env = ctx.must(ctx.Cons(pair, env))
			break
		}
		pair := ctx.must(ctx.Cons(ctx.SafeCar(params), ctx.SafeCar(args)))
		env = ctx.must(ctx.Cons(pair, env))
		params = ctx.SafeCdr(params)
		args = ctx.SafeCdr(args)
	}
	return env
}

// allocClosure builds a Function or Macro cell whose cdr is
// (environment-at-capture . (parameters . body)), the shared layout
// for both callable kinds.
func (ctx *Context) allocClosure(kind Kind, env, paramsAndBody Ref) (Ref, error) {
	captured, err := ctx.Cons(env, paramsAndBody)
	if err != nil {
		return NilRef, err
	}
	ref, err := ctx.alloc(kind)
	if err != nil {
		return NilRef, err
	}
	ctx.cellAt(ref).cdr = captured
	return ref, nil
}

// closureParts unpacks a Function or Macro's cdr into its
// environment-at-capture, parameter list and body list.
func (ctx *Context) closureParts(fn Ref) (capturedEnv, params, body Ref) {
	captured := ctx.must(ctx.Cdr(fn))
	capturedEnv = ctx.must(ctx.Car(captured))
	paramsBody := ctx.must(ctx.Cdr(captured))
	params = ctx.must(ctx.Car(paramsBody))
	body = ctx.must(ctx.Cdr(paramsBody))
	return capturedEnv, params, body
}

// eval evaluates expr in env. newenv, when non-nil, is the enclosing
// do-list's environment slot, and is written to only by a direct
// `let` call at this exact position — every other branch ignores it.
//
// Symbols and anything that is not a Pair are evaluated with no
// call-list or GC bookkeeping at all: only a Pair call site needs a
// traceback frame or a root-stack save point.
func (ctx *Context) eval(expr, env Ref, newenv *Ref) Ref {
	switch ctx.GetKind(expr) {
	case KindSymbol:
		return ctx.must(ctx.Cdr(ctx.must(ctx.GetBound(expr, env))))
	case KindPair:
		// fall through to the general call path below.
	default:
		return expr
	}

	ctx.callList = append(ctx.callList, callFrame{expr: expr})
	gcSave := ctx.SaveGC()

	fn := ctx.eval(ctx.SafeCar(expr), env, nil)
	argCursor := ctx.SafeCdr(expr)

	// evalArg consumes the next raw argument off argCursor and
	// evaluates it in env — shorthand every primitive below reaches for
	// instead of repeating the cursor-advance-then-eval pair.
	evalArg := func() Ref {
		var v Ref
		v, argCursor = ctx.nextArg(argCursor)
		return ctx.eval(v, env, nil)
	}

	result := NilRef

	switch ctx.GetKind(fn) {
	case KindPrimitive:
		op, err := ctx.GetPrimitiveOp(fn)
		if err != nil {
			ctx.HandleError(err.Error())
		}
		switch op {
		case OpQuote:
			result, argCursor = ctx.nextArg(argCursor)

		case OpLet:
			var sym Ref
			sym, argCursor = ctx.nextArg(argCursor)
			ctx.checkKind(sym, KindSymbol)
			// The value expression is always evaluated; the binding is
			// installed only when this `let` is being threaded by an
			// enclosing do-list (newenv != nil). A `let` anywhere else,
			// as a subexpression of another call, discards the value and
			// binds nothing.
			value := evalArg()
			if newenv != nil {
				pair := ctx.must(ctx.Cons(sym, value))
				*newenv = ctx.must(ctx.Cons(pair, env))
			}

		case OpSet:
			var sym Ref
			sym, argCursor = ctx.nextArg(argCursor)
			ctx.checkKind(sym, KindSymbol)
			binding := ctx.must(ctx.GetBound(sym, env))
			ctx.must0(ctx.SetCdr(binding, evalArg()))

		case OpIf:
			for !IsNil(argCursor) {
				cond := evalArg()
				if !IsNil(cond) {
					if IsNil(argCursor) {
						result = cond
					} else {
						result = evalArg()
					}
					break
				}
				if IsNil(argCursor) {
					break
				}
				argCursor = ctx.SafeCdr(argCursor)
			}

		case OpFn, OpMac:
			kind := KindFunction
			if op == OpMac {
				kind = KindMacro
			}
			result = ctx.must(ctx.allocClosure(kind, env, argCursor))

		case OpWhile:
			var cond Ref
			cond, argCursor = ctx.nextArg(argCursor)
			body := argCursor
			n := ctx.SaveGC()
			for !IsNil(ctx.eval(cond, env, nil)) {
				ctx.doList(body, env)
				ctx.RestoreGC(n)
			}

		case OpAnd:
			result = NilRef
			for !IsNil(argCursor) {
				result = evalArg()
				if IsNil(result) {
					break
				}
			}

		case OpOr:
			result = NilRef
			for !IsNil(argCursor) {
				result = evalArg()
				if !IsNil(result) {
					break
				}
			}

		case OpDo:
			result = ctx.doList(argCursor, env)

		case OpCons:
			a := evalArg()
			result = ctx.must(ctx.Cons(a, evalArg()))

		case OpCar:
			v := evalArg()
			if v != NilRef {
				ctx.checkKind(v, KindPair)
			}
			result = ctx.SafeCar(v)

		case OpCdr:
			v := evalArg()
			if v != NilRef {
				ctx.checkKind(v, KindPair)
			}
			result = ctx.SafeCdr(v)

		case OpSetCar:
			pair := ctx.checkKind(evalArg(), KindPair)
			ctx.must0(ctx.SetCar(pair, evalArg()))

		case OpSetCdr:
			pair := ctx.checkKind(evalArg(), KindPair)
			ctx.must0(ctx.SetCdr(pair, evalArg()))

		case OpList:
			result = ctx.evaluateList(argCursor, env)

		case OpNot:
			result = ctx.must(ctx.MakeBool(IsNil(evalArg())))

		case OpIs:
			a := evalArg()
			result = ctx.must(ctx.MakeBool(ctx.equalValues(a, evalArg())))

		case OpAtom:
			result = ctx.must(ctx.MakeBool(ctx.GetKind(evalArg()) != KindPair))

		case OpPrint:
			for !IsNil(argCursor) {
				v := evalArg()
				if err := ctx.Write(v, ctx.printSink, nil, false); err != nil {
					ctx.HandleError(err.Error())
				}
				if !IsNil(argCursor) {
					ctx.printByte(' ')
				}
			}
			ctx.printByte('\n')

		case OpLess:
			a := ctx.toNumber(evalArg())
			b := ctx.toNumber(evalArg())
			result = ctx.must(ctx.MakeBool(a < b))

		case OpLessEqual:
			a := ctx.toNumber(evalArg())
			b := ctx.toNumber(evalArg())
			result = ctx.must(ctx.MakeBool(a <= b))

		case OpAdd:
			result = ctx.arithFold(&argCursor, env, func(acc, v float64) float64 { return acc + v })
		case OpSub:
			result = ctx.arithFold(&argCursor, env, func(acc, v float64) float64 { return acc - v })
		case OpMul:
			result = ctx.arithFold(&argCursor, env, func(acc, v float64) float64 { return acc * v })
		case OpDiv:
			result = ctx.arithFold(&argCursor, env, func(acc, v float64) float64 { return acc / v })
		}

	case KindNative:
		native, err := ctx.GetNative(fn)
		if err != nil {
			ctx.HandleError(err.Error())
		}
		args := ctx.evaluateList(argCursor, env)
		r, err := native(ctx, args)
		if err != nil {
			ctx.HandleError(err.Error())
		}
		result = r

	case KindFunction:
		args := ctx.evaluateList(argCursor, env)
		capturedEnv, params, body := ctx.closureParts(fn)
		result = ctx.doList(body, ctx.argsToEnv(params, args, capturedEnv))

	case KindMacro:
		capturedEnv, params, body := ctx.closureParts(fn)
		expansion := ctx.doList(body, ctx.argsToEnv(params, argCursor, capturedEnv))
		*ctx.cellAt(expr) = *ctx.cellAt(expansion)
		ctx.callList = ctx.callList[:len(ctx.callList)-1]
		ctx.RestoreGC(gcSave)
		return ctx.eval(expr, env, nil)

	default:
		ctx.HandleError("tried to call non-callable value")
	}

	ctx.callList = ctx.callList[:len(ctx.callList)-1]
	ctx.RestoreGC(gcSave)
	ctx.pushGCOrFatal(result)
	return result
}

// arithFold evaluates the first argument as a Number, then folds every
// remaining argument into it left to right with op, finally wrapping
// the accumulator back into a Number cell.
func (ctx *Context) arithFold(argCursor *Ref, env Ref, op func(acc, v float64) float64) Ref {
	var first Ref
	first, *argCursor = ctx.nextArg(*argCursor)
	acc := ctx.toNumber(ctx.eval(first, env, nil))
	for !IsNil(*argCursor) {
		var next Ref
		next, *argCursor = ctx.nextArg(*argCursor)
		acc = op(acc, ctx.toNumber(ctx.eval(next, env, nil)))
	}
	return ctx.must(ctx.MakeNumber(acc))
}

// printSink is the ByteSink the `print` primitive writes through;
// printByte lets it emit the separating space and trailing newline the
// same way. Both write to ctx.output, which SetOutput can redirect.
func (ctx *Context) printSink(_ *Context, _ any, b byte) error {
	return ctx.output.WriteByte(b)
}

func (ctx *Context) printByte(b byte) {
	_ = ctx.output.WriteByte(b)
}

// Evaluate is the public entry point: evaluate expr in the empty
// top-level environment. Any fatal error
// raised anywhere during evaluation — a type error, an arity error, an
// out-of-memory or GC-stack-overflow condition — is recovered here and
// returned as a *EvalError instead of propagating as a panic, the
// trampoline every other public entry point (EvalTopLevel, and any
// future REPL driver) shares.
func (ctx *Context) Evaluate(expr Ref) (result Ref, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(fatalSignal)
			if !ok {
				panic(r)
			}
			result, err = NilRef, sig.err
		}
	}()
	return ctx.eval(expr, NilRef, nil), nil
}

// EvalTopLevel evaluates expr in the environment pointed to by env,
// threading any top-level `let` bindings it produces back into *env
// for the forms that follow — the "implicit do" behavior a sequence of
// forms read from one source gets. Pass a fresh NilRef for the first
// call in a source.
func (ctx *Context) EvalTopLevel(expr Ref, env *Ref) (result Ref, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(fatalSignal)
			if !ok {
				panic(r)
			}
			result, err = NilRef, sig.err
		}
	}()
	return ctx.eval(expr, *env, env), nil
}
