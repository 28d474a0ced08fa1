package tutel

import (
	"fmt"
	"strings"
)

// evalExpr evaluates expr to a Value, dispatching on its concrete AST node
// (spec §4.4 "Evaluation rules").
func (i *Interpreter) evalExpr(expr Expression) (Value, error) {
	switch e := expr.(type) {
	case *Binary:
		return i.evalBinary(e)
	case *Unary:
		return i.evalUnary(e)
	case *Call:
		return i.evalCall(e)
	case *Member:
		return i.evalMember(e)
	case *Index:
		return i.evalIndex(e)
	case *Identifier:
		return i.evalIdentifier(e)
	case *IntegerLit:
		return Integer(e.Value), nil
	case *StringLit:
		return String(e.Value), nil
	case *BooleanLit:
		return Boolean(e.Value), nil
	case *NullLit:
		return Null{}, nil
	case *ListLit:
		elems := make([]Value, len(e.Elements))
		for idx, el := range e.Elements {
			v, err := i.evalExpr(el)
			if err != nil {
				return nil, err
			}
			elems[idx] = v
		}
		return NewList(elems), nil
	default:
		return nil, i.err(UnknownError, Position{}, "unknown expression type %T", expr)
	}
}

func (i *Interpreter) evalIdentifier(id *Identifier) (Value, error) {
	if frame := i.callStack.top(); frame != nil {
		if v, ok := frame.Locals[id.Name]; ok {
			return v, nil
		}
	}
	if v, ok := i.globals[id.Name]; ok {
		return v, nil
	}
	return nil, i.err(NotDefined, Position{Line: id.Line}, "%q is not defined", id.Name)
}

// evalBinary evaluates a binary expression, short-circuiting `or`/`and`
// before either operand of everything else is forced (spec §4.4).
func (i *Interpreter) evalBinary(b *Binary) (Value, error) {
	if b.Op == OpOr {
		left, err := i.evalExpr(b.Left)
		if err != nil {
			return nil, err
		}
		if left.Truthy() {
			return left, nil
		}
		return i.evalExpr(b.Right)
	}
	if b.Op == OpAnd {
		left, err := i.evalExpr(b.Left)
		if err != nil {
			return nil, err
		}
		if !left.Truthy() {
			return left, nil
		}
		return i.evalExpr(b.Right)
	}

	left, err := i.evalExpr(b.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.evalExpr(b.Right)
	if err != nil {
		return nil, err
	}

	return i.applyBinOp(b.Op, left, right, Position{Line: b.Line})
}

// applyBinOp implements every non-short-circuiting binary operator on
// already-evaluated operands; execAssignment reuses it to combine the
// current value with the right-hand side of a compound assignment.
func (i *Interpreter) applyBinOp(op BinOp, left, right Value, pos Position) (Value, error) {
	switch op {
	case OpEq:
		return Boolean(valuesEqual(left, right)), nil
	case OpNeq:
		return Boolean(!valuesEqual(left, right)), nil
	case OpIn:
		return i.evalIn(left, right, pos)
	}

	switch l := left.(type) {
	case Integer:
		r, ok := right.(Integer)
		if !ok {
			return nil, i.err(UnsupportedOperand, pos, "unsupported operand types for %s: integer and %s", binOpSymbol(op), right.Kind())
		}
		return i.evalIntegerBinary(op, l, r, pos)
	case String:
		if op == OpAdd {
			r, ok := right.(String)
			if !ok {
				return nil, i.err(UnsupportedOperand, pos, "unsupported operand types for +: string and %s", right.Kind())
			}
			return l + r, nil
		}
		if isComparison(op) {
			r, ok := right.(String)
			if !ok {
				return nil, i.err(UnsupportedOperand, pos, "unsupported operand types for comparison: string and %s", right.Kind())
			}
			return compareStrings(op, string(l), string(r)), nil
		}
		return nil, i.err(UnsupportedOperand, pos, "unsupported operand types for %s: string and %s", binOpSymbol(op), right.Kind())
	case *List:
		if op == OpAdd {
			r, ok := right.(*List)
			if !ok {
				return nil, i.err(UnsupportedOperand, pos, "unsupported operand types for +: list and %s", right.Kind())
			}
			elems := make([]Value, 0, len(l.Elements)+len(r.Elements))
			elems = append(elems, l.Elements...)
			elems = append(elems, r.Elements...)
			return NewList(elems), nil
		}
		return nil, i.err(UnsupportedOperand, pos, "unsupported operand types for %s: list and %s", binOpSymbol(op), right.Kind())
	default:
		return nil, i.err(UnsupportedOperand, pos, "unsupported operand types for %s: %s and %s", binOpSymbol(op), left.Kind(), right.Kind())
	}
}

// evalIntegerBinary implements arithmetic and ordering between two
// Integers. `/` truncates toward zero; `//` floors toward negative
// infinity; both raise OutOfRange on a zero divisor, since the taxonomy
// has no dedicated division-by-zero kind (spec §7).
func (i *Interpreter) evalIntegerBinary(op BinOp, l, r Integer, pos Position) (Value, error) {
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		if r == 0 {
			return nil, i.err(OutOfRange, pos, "division by zero")
		}
		return Integer(int64(l) / int64(r)), nil
	case OpFloorDiv:
		if r == 0 {
			return nil, i.err(OutOfRange, pos, "division by zero")
		}
		return Integer(floorDiv(int64(l), int64(r))), nil
	case OpMod:
		if r == 0 {
			return nil, i.err(OutOfRange, pos, "modulo by zero")
		}
		return Integer(floorMod(int64(l), int64(r))), nil
	case OpLt:
		return Boolean(l < r), nil
	case OpLte:
		return Boolean(l <= r), nil
	case OpGt:
		return Boolean(l > r), nil
	case OpGte:
		return Boolean(l >= r), nil
	default:
		return nil, i.err(UnknownError, pos, "unknown binary operator")
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && (a < 0) != (b < 0) {
		m += b
	}
	return m
}

func (i *Interpreter) evalIn(needle, haystack Value, pos Position) (Value, error) {
	switch h := haystack.(type) {
	case *List:
		for _, e := range h.Elements {
			if valuesEqual(needle, e) {
				return Boolean(true), nil
			}
		}
		return Boolean(false), nil
	case String:
		n, ok := needle.(String)
		if !ok {
			return nil, i.err(TypeError, pos, "'in' requires a string operand when searching a string")
		}
		return Boolean(strings.Contains(string(h), string(n))), nil
	default:
		return nil, i.err(TypeError, pos, "%s is not a container for 'in'", haystack.Kind())
	}
}

func compareStrings(op BinOp, l, r string) Value {
	switch op {
	case OpLt:
		return Boolean(l < r)
	case OpLte:
		return Boolean(l <= r)
	case OpGt:
		return Boolean(l > r)
	case OpGte:
		return Boolean(l >= r)
	default:
		return Boolean(false)
	}
}

func isComparison(op BinOp) bool {
	switch op {
	case OpLt, OpLte, OpGt, OpGte:
		return true
	default:
		return false
	}
}

func binOpSymbol(op BinOp) string {
	switch op {
	case OpOr:
		return "or"
	case OpAnd:
		return "and"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpIn:
		return "in"
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpFloorDiv:
		return "//"
	case OpMod:
		return "%"
	default:
		return "?"
	}
}

func (i *Interpreter) evalUnary(u *Unary) (Value, error) {
	v, err := i.evalExpr(u.Operand)
	if err != nil {
		return nil, err
	}

	pos := Position{Line: u.Line}
	switch u.Op {
	case OpNeg:
		n, ok := v.(Integer)
		if !ok {
			return nil, i.err(BadOperandForUnary, pos, "bad operand type for unary -: %s", v.Kind())
		}
		return -n, nil
	case OpNot:
		return Boolean(!v.Truthy()), nil
	default:
		return nil, i.err(UnknownError, pos, "unknown unary operator")
	}
}

func (i *Interpreter) evalIndex(x *Index) (Value, error) {
	coll, err := i.evalExpr(x.Collection)
	if err != nil {
		return nil, err
	}
	idxVal, err := i.evalExpr(x.Idx)
	if err != nil {
		return nil, err
	}

	pos := Position{Line: x.Line}
	idx, ok := idxVal.(Integer)
	if !ok {
		return nil, i.err(TypeError, pos, "index must be an integer, got %s", idxVal.Kind())
	}

	switch c := coll.(type) {
	case *List:
		k, ok := normalizeIndex(int64(idx), int64(len(c.Elements)))
		if !ok {
			return nil, i.err(OutOfRange, pos, "list index out of range")
		}
		return c.Elements[k], nil
	case String:
		runes := []rune(string(c))
		k, ok := normalizeIndex(int64(idx), int64(len(runes)))
		if !ok {
			return nil, i.err(OutOfRange, pos, "string index out of range")
		}
		return String(string(runes[k])), nil
	default:
		return nil, i.err(TypeError, pos, "%s is not subscriptable", coll.Kind())
	}
}

// normalizeIndex folds a negative index (Python-style, counting from the
// end) into [0, n) and reports whether the result is in range.
func normalizeIndex(idx, n int64) (int64, bool) {
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

// evalMember resolves a dot-access into either a data attribute or a
// bound method value (spec §6's Turtle surface, plus List.append).
func (i *Interpreter) evalMember(m *Member) (Value, error) {
	obj, err := i.evalExpr(m.Object)
	if err != nil {
		return nil, err
	}

	switch v := obj.(type) {
	case *TurtleHandle:
		return i.turtleMember(v, m)
	case *List:
		return i.listMember(v, m)
	default:
		return nil, i.err(AttributeError, Position{Line: m.Line}, "%s has no attribute %q", v.Kind(), m.Name)
	}
}

func (i *Interpreter) bindMethod(name string, min, max int, fn BuiltinFunc) *BuiltinCallable {
	return &BuiltinCallable{Name: name, MinArgs: min, MaxArgs: max, Fn: fn}
}

func (i *Interpreter) turtleMember(t *TurtleHandle, m *Member) (Value, error) {
	pos := Position{Line: m.Line}

	switch m.Name {
	case "color":
		return t.Color, nil
	case "position":
		return t.Position, nil
	case "orientation":
		return Integer(t.Orientation), nil
	case "set_color":
		return i.bindMethod(m.Name, 3, 3, func(ii *Interpreter, args []Value) (Value, error) {
			r, ok1 := args[0].(Integer)
			g, ok2 := args[1].(Integer)
			b, ok3 := args[2].(Integer)
			if !ok1 || !ok2 || !ok3 {
				return nil, ii.err(TypeError, pos, "set_color() expects three integers")
			}
			c := NewColor(int64(r), int64(g), int64(b))
			if ii.runtime.Host.SetColor(t.Id, c) {
				t.Color = c
			}
			return Null{}, nil
		}), nil
	case "set_position":
		return i.bindMethod(m.Name, 2, 2, func(ii *Interpreter, args []Value) (Value, error) {
			x, ok1 := args[0].(Integer)
			y, ok2 := args[1].(Integer)
			if !ok1 || !ok2 {
				return nil, ii.err(TypeError, pos, "set_position() expects two integers")
			}
			p := Position{X: int64(x), Y: int64(y)}
			if ii.runtime.Host.SetPosition(t.Id, p) {
				t.Position = p
			}
			return Null{}, nil
		}), nil
	case "set_orientation":
		return i.bindMethod(m.Name, 1, 1, func(ii *Interpreter, args []Value) (Value, error) {
			n, ok := args[0].(Integer)
			if !ok {
				return nil, ii.err(TypeError, pos, "set_orientation() expects an integer")
			}
			o := normalizeOrientation(int64(n))
			if ii.runtime.Host.SetOrientation(t.Id, o) {
				t.Orientation = o
			}
			return Null{}, nil
		}), nil
	case "turn_left":
		return i.bindMethod(m.Name, 1, 1, func(ii *Interpreter, args []Value) (Value, error) {
			n, ok := args[0].(Integer)
			if !ok {
				return nil, ii.err(TypeError, pos, "turn_left() expects an integer")
			}
			o := normalizeOrientation(t.Orientation - int64(n))
			if ii.runtime.Host.SetOrientation(t.Id, o) {
				t.Orientation = o
			}
			return Null{}, nil
		}), nil
	case "turn_right":
		return i.bindMethod(m.Name, 1, 1, func(ii *Interpreter, args []Value) (Value, error) {
			n, ok := args[0].(Integer)
			if !ok {
				return nil, ii.err(TypeError, pos, "turn_right() expects an integer")
			}
			o := normalizeOrientation(t.Orientation + int64(n))
			if ii.runtime.Host.SetOrientation(t.Id, o) {
				t.Orientation = o
			}
			return Null{}, nil
		}), nil
	case "forward":
		return i.bindMethod(m.Name, 1, 1, func(ii *Interpreter, args []Value) (Value, error) {
			n, ok := args[0].(Integer)
			if !ok {
				return nil, ii.err(TypeError, pos, "forward() expects an integer")
			}
			newPos := t.Forward(int64(n))
			if ii.runtime.Host.GoForward(t.Id, newPos) {
				t.Position = newPos
			}
			return Null{}, nil
		}), nil
	default:
		return nil, i.err(AttributeError, pos, "turtle has no attribute %q", m.Name)
	}
}

func (i *Interpreter) listMember(l *List, m *Member) (Value, error) {
	switch m.Name {
	case "append":
		return i.bindMethod(m.Name, 1, 1, func(ii *Interpreter, args []Value) (Value, error) {
			l.Elements = append(l.Elements, args[0])
			return Null{}, nil
		}), nil
	default:
		return nil, i.err(AttributeError, Position{Line: m.Line}, "list has no attribute %q", m.Name)
	}
}

// evalCall resolves and invokes a callee, which may be a user function, a
// built-in, or a bound method produced by evalMember.
func (i *Interpreter) evalCall(c *Call) (Value, error) {
	callee, err := i.evalExpr(c.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]Value, len(c.Args))
	for idx, a := range c.Args {
		v, err := i.evalExpr(a)
		if err != nil {
			return nil, err
		}
		args[idx] = v
	}

	pos := Position{Line: c.Line}

	switch fn := callee.(type) {
	case *BuiltinCallable:
		if len(args) < fn.MinArgs || (fn.MaxArgs >= 0 && len(args) > fn.MaxArgs) {
			return nil, i.raiseArity(fn.Name, fn.MinArgs, fn.MaxArgs, len(args), pos)
		}
		return fn.Fn(i, args)
	case *FunctionValue:
		return i.callFunction(fn.Fn, args, pos)
	default:
		return nil, i.err(TypeError, pos, "%s is not callable", callee.Kind())
	}
}

func (i *Interpreter) raiseArity(name string, min, max, got int, pos Position) error {
	return i.raiseRuntime(&RuntimeError{
		Kind:    MismatchedArgsCount,
		Pos:     pos,
		Message: fmt.Sprintf("%s() expects a different number of arguments", name),
		MinArgs: min,
		MaxArgs: max,
		Got:     got,
	})
}

// execAssignment assigns a.Value (combined with the current target value
// first, for compound operators) to a.Target. `+=` with a list on both
// sides extends the target list in place; every other compound assignment
// computes a new value with applyBinOp and rebinds the target to it.
func (i *Interpreter) execAssignment(a *Assignment) error {
	value, err := i.evalExpr(a.Value)
	if err != nil {
		return err
	}

	pos := Position{Line: a.Line}

	if a.Op != TokenAssign {
		plainOp, ok := assignOperators[a.Op]
		if !ok {
			return i.err(UnknownError, pos, "unknown assignment operator")
		}
		current, err := i.evalExpr(a.Target)
		if err != nil {
			return err
		}
		if cur, ok := current.(*List); ok && a.Op == TokenPlusAssign {
			if rhs, ok := value.(*List); ok {
				cur.Elements = append(cur.Elements, rhs.Elements...)
				return nil
			}
		}
		value, err = i.applyBinOp(tokenToBinOp(plainOp), current, value, pos)
		if err != nil {
			return err
		}
	}

	return i.assignTo(a.Target, value, pos)
}

func tokenToBinOp(t TokenType) BinOp {
	switch t {
	case TokenPlus:
		return OpAdd
	case TokenMinus:
		return OpSub
	case TokenStar:
		return OpMul
	case TokenSlash:
		return OpDiv
	case TokenPercent:
		return OpMod
	default:
		return OpAdd
	}
}

// assignTo writes value into target, which must be an Identifier, Member,
// or Index; a Call target is syntactically accepted by the grammar but
// always rejected here with CannotAssign (spec's Assignable glossary
// entry).
func (i *Interpreter) assignTo(target Expression, value Value, pos Position) error {
	switch t := target.(type) {
	case *Identifier:
		if i.builtin[t.Name] {
			return i.err(BuiltinFunctionShadow, pos, "%q shadows a built-in", t.Name)
		}
		if frame := i.callStack.top(); frame != nil {
			frame.Locals[t.Name] = value
			return nil
		}
		i.globals[t.Name] = value
		return nil

	case *Member:
		obj, err := i.evalExpr(t.Object)
		if err != nil {
			return err
		}
		turtle, ok := obj.(*TurtleHandle)
		if !ok {
			return i.err(CannotAssign, pos, "cannot assign to attribute of %s", obj.Kind())
		}
		switch t.Name {
		case "color":
			c, ok := value.(Color)
			if !ok {
				return i.err(TypeError, pos, "color must be a Color value")
			}
			if i.runtime.Host.SetColor(turtle.Id, c) {
				turtle.Color = c
			}
			return nil
		case "position":
			p, ok := value.(Position)
			if !ok {
				return i.err(TypeError, pos, "position must be a Position value")
			}
			if i.runtime.Host.SetPosition(turtle.Id, p) {
				turtle.Position = p
			}
			return nil
		case "orientation":
			n, ok := value.(Integer)
			if !ok {
				return i.err(TypeError, pos, "orientation must be an integer")
			}
			o := normalizeOrientation(int64(n))
			if i.runtime.Host.SetOrientation(turtle.Id, o) {
				turtle.Orientation = o
			}
			return nil
		default:
			return i.err(CannotAssign, pos, "cannot assign to attribute %q", t.Name)
		}

	case *Index:
		coll, err := i.evalExpr(t.Collection)
		if err != nil {
			return err
		}
		idxVal, err := i.evalExpr(t.Idx)
		if err != nil {
			return err
		}
		list, ok := coll.(*List)
		if !ok {
			return i.err(CannotAssign, pos, "cannot assign to index of %s", coll.Kind())
		}
		idx, ok := idxVal.(Integer)
		if !ok {
			return i.err(TypeError, pos, "index must be an integer, got %s", idxVal.Kind())
		}
		k, ok := normalizeIndex(int64(idx), int64(len(list.Elements)))
		if !ok {
			return i.err(OutOfRange, pos, "list index out of range")
		}
		list.Elements[k] = value
		return nil

	default:
		return i.err(CannotAssign, pos, "cannot assign to this expression")
	}
}
