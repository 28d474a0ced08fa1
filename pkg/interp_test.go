package tutel

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSource(t *testing.T, src string) (string, error) {
	t.Helper()

	prog, err := parse(t, src)
	require.NoError(t, err)

	var out bytes.Buffer
	interp := NewInterpreter(NullGuiHost{}, &out)
	err = interp.Execute(prog, "")
	return out.String(), err
}

func TestInterpreterPrintsOutput(t *testing.T) {
	out, err := runSource(t, `
func main() {
  print("hello", 1, true);
}
`)
	require.NoError(t, err)
	assert.Equal(t, "hello 1 true\n", out)
}

func TestInterpreterArithmeticAndDivision(t *testing.T) {
	out, err := runSource(t, `
func main() {
  print(7 / 2);
  print(-7 / 2);
  print(7 // 2);
  print(-7 // 2);
  print(-7 % 2);
}
`)
	require.NoError(t, err)
	assert.Equal(t, "3\n-3\n3\n-4\n1\n", out)
}

func TestInterpreterDivisionByZeroIsOutOfRange(t *testing.T) {
	_, err := runSource(t, `
func main() {
  x = 1 / 0;
}
`)
	require.Error(t, err)
	rte, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, OutOfRange, rte.Kind)
}

func TestInterpreterRecursionAndReturn(t *testing.T) {
	out, err := runSource(t, `
func fact(n) {
  if (n <= 1) {
    return 1;
  }
  return n * fact(n - 1);
}

func main() {
  print(fact(5));
}
`)
	require.NoError(t, err)
	assert.Equal(t, "120\n", out)
}

func TestInterpreterRecursionDepthExceeded(t *testing.T) {
	_, err := runSource(t, `
func loop(n) {
  return loop(n + 1);
}

func main() {
  loop(0);
}
`)
	require.Error(t, err)
	rte, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, Recursion, rte.Kind)
}

func TestInterpreterForOverListAndString(t *testing.T) {
	out, err := runSource(t, `
func main() {
  total = 0;
  for (x in [1, 2, 3]) {
    total += x;
  }
  print(total);

  for (c in "ab") {
    print(c);
  }
}
`)
	require.NoError(t, err)
	assert.Equal(t, "6\na\nb\n", out)
}

func TestInterpreterWhileAndCompoundAssignment(t *testing.T) {
	out, err := runSource(t, `
func main() {
  n = 3;
  acc = 1;
  while (n > 0) {
    acc *= n;
    n -= 1;
  }
  print(acc);
}
`)
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)
}

func TestInterpreterNegativeIndexing(t *testing.T) {
	out, err := runSource(t, `
func main() {
  xs = [1, 2, 3];
  print(xs[-1]);
  print("abc"[-1]);
}
`)
	require.NoError(t, err)
	assert.Equal(t, "3\nc\n", out)
}

func TestInterpreterOutOfRangeIndex(t *testing.T) {
	_, err := runSource(t, `
func main() {
  xs = [1];
  print(xs[5]);
}
`)
	require.Error(t, err)
	rte, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, OutOfRange, rte.Kind)
}

func TestInterpreterUndefinedVariable(t *testing.T) {
	_, err := runSource(t, `
func main() {
  print(never_defined);
}
`)
	require.Error(t, err)
	rte, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, NotDefined, rte.Kind)
}

func TestInterpreterBuiltinShadowingRejected(t *testing.T) {
	_, err := runSource(t, `
func print(x) {
  return x;
}

func main() {}
`)
	require.Error(t, err)
	rte, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, BuiltinFunctionShadow, rte.Kind)
}

func TestInterpreterListAppendAndMutationByReference(t *testing.T) {
	out, err := runSource(t, `
func grow(xs) {
  xs.append(4);
}

func main() {
  ys = [1, 2, 3];
  grow(ys);
  print(ys);
}
`)
	require.NoError(t, err)
	assert.Equal(t, "[1, 2, 3, 4]\n", out)
}

func TestInterpreterTurtleBuiltins(t *testing.T) {
	out, err := runSource(t, `
func main() {
  t = Turtle();
  t.set_position(0, 0);
  t.set_orientation(0);
  t.forward(10);
  print(t.position);
  print(t.orientation);
}
`)
	require.NoError(t, err)
	assert.Equal(t, "Position(0, 10)\n0\n", out)
}

func TestInterpreterTurtleOrientationWraps(t *testing.T) {
	out, err := runSource(t, `
func main() {
  t = Turtle();
  t.turn_left(450);
  print(t.orientation);
}
`)
	require.NoError(t, err)
	assert.Equal(t, "270\n", out)
}

func TestInterpreterMultiReturnProducesList(t *testing.T) {
	out, err := runSource(t, `
func pair() {
  return 1, 2;
}

func main() {
  print(pair());
}
`)
	require.NoError(t, err)
	assert.Equal(t, "[1, 2]\n", out)
}

func TestInterpreterTraceback(t *testing.T) {
	_, err := runSource(t, `
func inner() {
  return 1 / 0;
}

func outer() {
  return inner();
}

func main() {
  outer();
}
`)
	require.Error(t, err)
	rte, ok := err.(*RuntimeError)
	require.True(t, ok)

	trace := rte.Traceback()
	assert.True(t, strings.HasPrefix(trace, "Traceback (most recent call last):\n"))
	assert.Contains(t, trace, "Function inner,")
	assert.Contains(t, trace, "Function outer,")
	assert.Contains(t, trace, "Function main,")
}

func TestInterpreterStopHaltsExecution(t *testing.T) {
	prog, err := parse(t, `
func main() {
  while (true) {
    x = 1;
    y = 2;
  }
}
`)
	require.NoError(t, err)

	interp := NewInterpreter(NullGuiHost{}, &bytes.Buffer{})

	stopped := make(chan struct{})
	calls := 0
	interp.SetDebugCallback(func(i *Interpreter) error {
		calls++
		if calls == 3 {
			interp.Stop()
		}
		return nil
	})

	go func() {
		_ = interp.Execute(prog, "")
		close(stopped)
	}()

	<-stopped
	assert.Equal(t, 0, interp.CallStack().depth())
}

func TestInterpreterCallStackEmptyAfterEveryTerminalPath(t *testing.T) {
	prog, err := parse(t, `
func main() {
  x = 1 / 0;
}
`)
	require.NoError(t, err)

	interp := NewInterpreter(NullGuiHost{}, &bytes.Buffer{})
	_ = interp.Execute(prog, "")
	assert.Equal(t, 0, interp.CallStack().depth())
}
