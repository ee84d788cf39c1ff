package interp

// MakeSymbol interns name: if a Symbol cell with that exact byte name
// already exists on the symbol list, it is returned; otherwise a new
// Symbol cell is allocated, its binding pair is (name-string, nil),
// and the symbol is pushed onto the head of the symbol list. Symbol
// identity implies name equality: callers may compare two Refs
// returned by MakeSymbol with == to test for the same name.
func (ctx *Context) MakeSymbol(name []byte) (Ref, error) {
	for list := ctx.symbols; list != NilRef; {
		entry := ctx.cellAt(list)
		sym := entry.car
		bindingPair, err := ctx.Cdr(sym)
		if err != nil {
			return NilRef, err
		}
		nameRef, err := ctx.Car(bindingPair)
		if err != nil {
			return NilRef, err
		}
		if ctx.stringEquals(nameRef, name) {
			return sym, nil
		}
		list = entry.cdr
	}

	save := ctx.SaveGC()

	nameRef, err := ctx.MakeString(name)
	if err != nil {
		return NilRef, err
	}

	bindingPair, err := ctx.Cons(nameRef, NilRef)
	if err != nil {
		return NilRef, err
	}

	symRef, err := ctx.alloc(KindSymbol)
	if err != nil {
		return NilRef, err
	}
	ctx.cellAt(symRef).cdr = bindingPair

	entry, err := ctx.Cons(symRef, ctx.symbols)
	if err != nil {
		return NilRef, err
	}
	ctx.symbols = entry

	ctx.RestoreGC(save)
	if err := ctx.PushGC(symRef); err != nil {
		return NilRef, err
	}
	return symRef, nil
}

// GetBound walks env — a chain of pairs (pair(symbol, value), rest) —
// looking for an entry whose car is sym. If found, that entry pair is
// returned so the caller may Cdr it for the value or SetCdr it to
// mutate the binding in place. If env is exhausted, the symbol's own
// global binding pair is returned instead, so `set` on an unbound
// symbol always targets the global slot.
func (ctx *Context) GetBound(sym, env Ref) (Ref, error) {
	for env != NilRef {
		entry, err := ctx.Car(env)
		if err != nil {
			return NilRef, err
		}
		entrySym, err := ctx.Car(entry)
		if err != nil {
			return NilRef, err
		}
		if entrySym == sym {
			return entry, nil
		}
		env, err = ctx.Cdr(env)
		if err != nil {
			return NilRef, err
		}
	}
	return ctx.Cdr(sym)
}
