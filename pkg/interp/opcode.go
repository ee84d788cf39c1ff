package interp

// Opcode identifies a Primitive cell's built-in operation: the core's
// fixed set of special forms and list/arithmetic primitives. Every
// opcode is bound to a global symbol once, by Bootstrap, which the
// caller runs after opening a Context.
type Opcode int

const (
	OpQuote Opcode = iota
	OpLet
	OpSet
	OpIf
	OpFn
	OpMac
	OpWhile
	OpAnd
	OpOr
	OpDo
	OpCons
	OpCar
	OpCdr
	OpSetCar
	OpSetCdr
	OpList
	OpNot
	OpIs
	OpAtom
	OpPrint
	OpLess
	OpLessEqual
	OpAdd
	OpSub
	OpMul
	OpDiv
)

// opcodeNames binds every opcode to the source symbol that invokes it.
var opcodeNames = map[Opcode]string{
	OpQuote:     "quote",
	OpLet:       "let",
	OpSet:       "=",
	OpIf:        "if",
	OpFn:        "fn",
	OpMac:       "mac",
	OpWhile:     "while",
	OpAnd:       "and",
	OpOr:        "or",
	OpDo:        "do",
	OpCons:      "cons",
	OpCar:       "car",
	OpCdr:       "cdr",
	OpSetCar:    "setcar",
	OpSetCdr:    "setcdr",
	OpList:      "list",
	OpNot:       "not",
	OpIs:        "is",
	OpAtom:      "atom",
	OpPrint:     "print",
	OpLess:      "<",
	OpLessEqual: "<=",
	OpAdd:       "+",
	OpSub:       "-",
	OpMul:       "*",
	OpDiv:       "/",
}

// Bootstrap interns every primitive's name symbol and binds its global
// slot to a Primitive cell carrying the matching opcode. A fresh
// Context must call this once before evaluating anything.
func (ctx *Context) Bootstrap() error {
	for op, name := range opcodeNames {
		sym, err := ctx.MakeSymbol([]byte(name))
		if err != nil {
			return err
		}
		prim, err := ctx.makePrimitive(op)
		if err != nil {
			return err
		}
		if err := ctx.Set(sym, prim); err != nil {
			return err
		}
	}
	return nil
}
