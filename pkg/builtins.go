package tutel

import (
	"fmt"
	"strconv"
	"time"
)

// registerBuiltins populates globals with the fixed catalogue of
// host-provided operations (spec §4.4/§6): print, sleep, range, len, int,
// str, hex, Turtle, Color, Position. Building it as a plain map literal
// (rather than a reflection-driven registry) mirrors the teacher's
// `defineBuiltins`/`defineBuiltinFunc` pattern of one named entry per
// built-in.
func registerBuiltins() map[string]Value {
	builtins := map[string]Value{
		"print": &BuiltinCallable{Name: "print", MinArgs: 0, MaxArgs: -1, Fn: builtinPrint},
		"sleep": &BuiltinCallable{Name: "sleep", MinArgs: 1, MaxArgs: 1, Fn: builtinSleep},
		"range": &BuiltinCallable{Name: "range", MinArgs: 1, MaxArgs: 3, Fn: builtinRange},
		"len":   &BuiltinCallable{Name: "len", MinArgs: 1, MaxArgs: 1, Fn: builtinLen},
		"int":   &BuiltinCallable{Name: "int", MinArgs: 1, MaxArgs: 1, Fn: builtinInt},
		"str":   &BuiltinCallable{Name: "str", MinArgs: 1, MaxArgs: 1, Fn: builtinStr},
		"hex":   &BuiltinCallable{Name: "hex", MinArgs: 1, MaxArgs: 1, Fn: builtinHex},

		"Turtle":   &BuiltinCallable{Name: "Turtle", MinArgs: 0, MaxArgs: 0, Fn: builtinTurtle},
		"Color":    &BuiltinCallable{Name: "Color", MinArgs: 3, MaxArgs: 3, Fn: builtinColor},
		"Position": &BuiltinCallable{Name: "Position", MinArgs: 2, MaxArgs: 2, Fn: builtinPosition},
	}

	return builtins
}

func builtinPrint(i *Interpreter, args []Value) (Value, error) {
	for idx, a := range args {
		if idx > 0 {
			fmt.Fprint(i.runtime.Output, " ")
		}
		fmt.Fprint(i.runtime.Output, a.String())
	}
	fmt.Fprintln(i.runtime.Output)

	return Null{}, nil
}

func builtinSleep(i *Interpreter, args []Value) (Value, error) {
	n, ok := args[0].(Integer)
	if !ok {
		return nil, i.err(TypeError, i.currentPos(), "sleep() expects an integer number of seconds")
	}

	if n > 0 {
		time.Sleep(time.Duration(n) * time.Second)
	}

	return Null{}, nil
}

func builtinRange(i *Interpreter, args []Value) (Value, error) {
	var start, stop, step int64 = 0, 0, 1

	ints := make([]int64, 0, len(args))
	for _, a := range args {
		n, ok := a.(Integer)
		if !ok {
			return nil, i.err(TypeError, i.currentPos(), "range() arguments must be integers")
		}
		ints = append(ints, int64(n))
	}

	switch len(ints) {
	case 1:
		stop = ints[0]
	case 2:
		start, stop = ints[0], ints[1]
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
	}

	if step == 0 {
		return nil, i.err(OutOfRange, i.currentPos(), "range() step must not be zero")
	}

	var elems []Value
	if step > 0 {
		for v := start; v < stop; v += step {
			elems = append(elems, Integer(v))
		}
	} else {
		for v := start; v > stop; v += step {
			elems = append(elems, Integer(v))
		}
	}

	return NewList(elems), nil
}

func builtinLen(i *Interpreter, args []Value) (Value, error) {
	switch v := args[0].(type) {
	case *List:
		return Integer(len(v.Elements)), nil
	case String:
		return Integer(len([]rune(string(v)))), nil
	default:
		return nil, i.err(TypeError, i.currentPos(), "len() is not defined for %s", v.Kind())
	}
}

func builtinInt(i *Interpreter, args []Value) (Value, error) {
	switch v := args[0].(type) {
	case Integer:
		return v, nil
	case Boolean:
		if v {
			return Integer(1), nil
		}
		return Integer(0), nil
	case String:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return nil, i.err(TypeError, i.currentPos(), "cannot convert %q to int", string(v))
		}
		return Integer(n), nil
	default:
		return nil, i.err(TypeError, i.currentPos(), "int() is not defined for %s", v.Kind())
	}
}

func builtinStr(i *Interpreter, args []Value) (Value, error) {
	return String(args[0].String()), nil
}

func builtinHex(i *Interpreter, args []Value) (Value, error) {
	n, ok := args[0].(Integer)
	if !ok {
		return nil, i.err(TypeError, i.currentPos(), "hex() expects an integer")
	}

	sign := ""
	v := int64(n)
	if v < 0 {
		sign = "-"
		v = -v
	}

	return String(fmt.Sprintf("%s0x%x", sign, v)), nil
}

func builtinTurtle(i *Interpreter, args []Value) (Value, error) {
	t := &TurtleHandle{
		Id:    i.runtime.nextTurtleId(),
		Color: NewColor(0, 0, 0),
	}

	i.runtime.Host.AddTurtle(t)

	return t, nil
}

func builtinColor(i *Interpreter, args []Value) (Value, error) {
	r, ok1 := args[0].(Integer)
	g, ok2 := args[1].(Integer)
	b, ok3 := args[2].(Integer)
	if !ok1 || !ok2 || !ok3 {
		return nil, i.err(TypeError, i.currentPos(), "Color() expects three integers")
	}

	return NewColor(int64(r), int64(g), int64(b)), nil
}

func builtinPosition(i *Interpreter, args []Value) (Value, error) {
	x, ok1 := args[0].(Integer)
	y, ok2 := args[1].(Integer)
	if !ok1 || !ok2 {
		return nil, i.err(TypeError, i.currentPos(), "Position() expects two integers")
	}

	return Position{X: int64(x), Y: int64(y)}, nil
}
