package debugger

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tutel "go.tutel.dev/pkg"
)

func nopLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func waitForEvent(t *testing.T, d *Debugger) Response {
	t.Helper()
	select {
	case ev := <-d.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debugger event")
		return Response{}
	}
}

// TestDebuggerBreakpointScenario exercises spec §8's scenario 6: load a
// 3-line main, set a breakpoint at line 2, run, observe `started` then
// `breakpoint` at line 2 with exactly one frame named main, inspect the
// stack, continue, and observe `end`.
func TestDebuggerBreakpointScenario(t *testing.T) {
	d := New(tutel.NullGuiHost{}, nopLogger())

	source := "func main() {\n" +
		"  x = 1;\n" +
		"  print(x);\n" +
		"}\n"

	_, err := d.LoadFile("main.tu", source)
	require.NoError(t, err)

	setResp := d.Dispatch(&Request{Command: "break", Args: []RequestArg{
		{IsString: true, Text: "main.tu"},
		{Int: 2},
	}})
	assert.Equal(t, "breakpoint_set", setResp.Type)

	runResp := d.Dispatch(&Request{Command: "run"})
	assert.Equal(t, "started", runResp.Type)

	stopEv := waitForEvent(t, d)
	assert.Equal(t, "breakpoint", stopEv.Type)

	stackResp := d.Dispatch(&Request{Command: "stack"})
	require.Equal(t, "stack_trace", stackResp.Type)

	frames, ok := stackResp.Body["frames"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, frames, 1)
	assert.Equal(t, "main", frames[0]["function"])
	assert.Equal(t, uint32(2), frames[0]["lineno"])

	contResp := d.Dispatch(&Request{Command: "continue"})
	assert.Equal(t, "resumed", contResp.Type)

	endEv := waitForEvent(t, d)
	assert.Equal(t, "end", endEv.Type)
}

// TestDebuggerStepInto breaks at line 2, steps to line 3, then lets the
// program run to completion.
func TestDebuggerStepInto(t *testing.T) {
	d := New(tutel.NullGuiHost{}, nopLogger())

	source := "func main() {\n" +
		"  x = 1;\n" +
		"  y = 2;\n" +
		"}\n"
	_, err := d.LoadFile("main.tu", source)
	require.NoError(t, err)

	setResp := d.Dispatch(&Request{Command: "break", Args: []RequestArg{
		{IsString: true, Text: "main.tu"}, {Int: 2},
	}})
	require.Equal(t, "breakpoint_set", setResp.Type)

	runResp := d.Dispatch(&Request{Command: "run"})
	assert.Equal(t, "started", runResp.Type)

	first := waitForEvent(t, d)
	require.Equal(t, "breakpoint", first.Type)

	d.Dispatch(&Request{Command: "step_into"})
	second := waitForEvent(t, d)
	require.Equal(t, "step_into", second.Type)

	frames, ok := second.Body["frames"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, frames, 1)
	assert.Equal(t, uint32(3), frames[0]["lineno"])

	d.Dispatch(&Request{Command: "continue"})
	endEv := waitForEvent(t, d)
	assert.Equal(t, "end", endEv.Type)
}

func TestDebuggerBreakpointClearedWhenLineInvalidAfterReload(t *testing.T) {
	d := New(tutel.NullGuiHost{}, nopLogger())

	_, err := d.LoadFile("main.tu", "func main() {\n  x = 1;\n  y = 2;\n}\n")
	require.NoError(t, err)

	resp := d.Dispatch(&Request{Command: "break", Args: []RequestArg{
		{IsString: true, Text: "main.tu"}, {Int: 3},
	}})
	require.Equal(t, "breakpoint_set", resp.Type)

	_, err = d.LoadFile("main.tu", "func main() {\n  x = 1;\n}\n")
	require.NoError(t, err)

	listResp := d.Dispatch(&Request{Command: "break", Args: []RequestArg{
		{IsString: true, Text: "main.tu"},
	}})
	lines, ok := listResp.Body["lines"].([]uint32)
	require.True(t, ok)
	assert.Empty(t, lines, "breakpoint on a line that no longer exists must be dropped")
}

func TestDebuggerRunWithoutFileLoadedIsBadRequest(t *testing.T) {
	d := New(tutel.NullGuiHost{}, nopLogger())
	resp := d.Dispatch(&Request{Command: "run"})
	assert.Equal(t, "bad_request", resp.Type)
}

func TestDebuggerUnknownCommandIsBadRequest(t *testing.T) {
	d := New(tutel.NullGuiHost{}, nopLogger())
	resp := d.Dispatch(&Request{Command: "not_a_command"})
	assert.Equal(t, "bad_request", resp.Type)
}

// TestDebuggerStopAfterRunDoesNotSkipNextBreakpoint guards against a
// stale resume token: a stop() issued while the worker is not parked in
// breakWith (here, after it has already finished) must not let the very next
// run's first breakpoint sail through unattended.
func TestDebuggerStopAfterRunDoesNotSkipNextBreakpoint(t *testing.T) {
	d := New(tutel.NullGuiHost{}, nopLogger())

	_, err := d.LoadFile("main.tu", "func main() {\n  x = 1;\n}\n")
	require.NoError(t, err)

	runResp := d.Dispatch(&Request{Command: "run"})
	require.Equal(t, "started", runResp.Type)
	endEv := waitForEvent(t, d)
	require.Equal(t, "end", endEv.Type)

	// The worker already finished, never parked in breakWith; stop()
	// still buffers a resume token that must not survive into the next run.
	stopResp := d.Dispatch(&Request{Command: "stop"})
	assert.Equal(t, "resumed", stopResp.Type)

	source := "func main() {\n" +
		"  x = 1;\n" +
		"  y = 2;\n" +
		"}\n"
	_, err = d.LoadFile("main.tu", source)
	require.NoError(t, err)

	setResp := d.Dispatch(&Request{Command: "break", Args: []RequestArg{
		{IsString: true, Text: "main.tu"}, {Int: 2},
	}})
	require.Equal(t, "breakpoint_set", setResp.Type)

	runResp = d.Dispatch(&Request{Command: "run"})
	require.Equal(t, "started", runResp.Type)

	stopEv := waitForEvent(t, d)
	require.Equal(t, "breakpoint", stopEv.Type, "stale resume token must not skip the first breakpoint of a new run")

	d.Dispatch(&Request{Command: "continue"})
	endEv = waitForEvent(t, d)
	assert.Equal(t, "end", endEv.Type)
}

func TestDebuggerConditionalBreakpointOnlyBreaksWhenTruthy(t *testing.T) {
	d := New(tutel.NullGuiHost{}, nopLogger())

	source := "func main() {\n" +
		"  for (i in [1, 2, 3]) {\n" +
		"    print(i);\n" +
		"    y = i;\n" +
		"  }\n" +
		"}\n"
	_, err := d.LoadFile("main.tu", source)
	require.NoError(t, err)

	resp := d.Dispatch(&Request{Command: "break_expr", Args: []RequestArg{
		{IsString: true, Text: "main.tu"},
		{Int: 3},
		{IsString: true, Text: "i == 2"},
	}})
	require.Equal(t, "breakpoint_set", resp.Type)

	runResp := d.Dispatch(&Request{Command: "run"})
	require.Equal(t, "started", runResp.Type)

	stopEv := waitForEvent(t, d)
	require.Equal(t, "breakpoint", stopEv.Type)

	d.Dispatch(&Request{Command: "continue"})
	endEv := waitForEvent(t, d)
	assert.Equal(t, "end", endEv.Type)
}
