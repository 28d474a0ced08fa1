package debugger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tutel "go.tutel.dev/pkg"
)

func loadedDebugger(t *testing.T, source string) *Debugger {
	t.Helper()
	d := New(tutel.NullGuiHost{}, nopLogger())
	_, err := d.LoadFile("main.tu", source)
	require.NoError(t, err)
	return d
}

func TestCmdFrameOutOfRange(t *testing.T) {
	d := loadedDebugger(t, "func main() {\n  x = 1;\n}\n")
	resp := d.Dispatch(&Request{Command: "frame", Args: []RequestArg{{Int: 5}}})
	assert.Equal(t, "bad_request", resp.Type)
}

func TestCmdBreakOnInvalidLineIsBadRequest(t *testing.T) {
	d := loadedDebugger(t, "func main() {\n  x = 1;\n}\n")
	resp := d.Dispatch(&Request{Command: "break", Args: []RequestArg{
		{IsString: true, Text: "main.tu"}, {Int: 1000},
	}})
	assert.Equal(t, "bad_request", resp.Type)
}

func TestCmdClearSingleLine(t *testing.T) {
	d := loadedDebugger(t, "func main() {\n  x = 1;\n  y = 2;\n}\n")

	d.Dispatch(&Request{Command: "break", Args: []RequestArg{{IsString: true, Text: "main.tu"}, {Int: 2}}})
	d.Dispatch(&Request{Command: "break", Args: []RequestArg{{IsString: true, Text: "main.tu"}, {Int: 3}}})

	resp := d.Dispatch(&Request{Command: "clear", Args: []RequestArg{{IsString: true, Text: "main.tu"}, {Int: 2}}})
	assert.Equal(t, "breakpoint_removed", resp.Type)

	listResp := d.Dispatch(&Request{Command: "break", Args: []RequestArg{{IsString: true, Text: "main.tu"}}})
	lines := listResp.Body["lines"].([]uint32)
	assert.Equal(t, []uint32{3}, lines)
}

func TestCmdClearAllBreakpoints(t *testing.T) {
	d := loadedDebugger(t, "func main() {\n  x = 1;\n  y = 2;\n}\n")

	d.Dispatch(&Request{Command: "break", Args: []RequestArg{{IsString: true, Text: "main.tu"}, {Int: 2}}})
	d.Dispatch(&Request{Command: "break", Args: []RequestArg{{IsString: true, Text: "main.tu"}, {Int: 3}}})

	resp := d.Dispatch(&Request{Command: "clear"})
	assert.Equal(t, "all_breakpoints_removed", resp.Type)

	listResp := d.Dispatch(&Request{Command: "break", Args: []RequestArg{{IsString: true, Text: "main.tu"}}})
	assert.Empty(t, listResp.Body["lines"].([]uint32))
}

func TestCmdGetBpLines(t *testing.T) {
	d := loadedDebugger(t, "func main() {\n  # a comment\n  x = 1;\n\n  y = 2;\n}\n")

	resp := d.Dispatch(&Request{Command: "get_bp_lines"})
	require.Equal(t, "breakpoints", resp.Type)

	lines := resp.Body["lines"].([]uint32)
	assert.Equal(t, []uint32{1, 3, 5, 6}, lines)
}

func TestCmdHelpListsCommands(t *testing.T) {
	d := New(tutel.NullGuiHost{}, nopLogger())
	resp := d.Dispatch(&Request{Command: "help"})
	require.Equal(t, "help", resp.Type)
	assert.Contains(t, resp.Body["text"], "break_expr")
}

func TestCmdFileReportsMissingFile(t *testing.T) {
	d := New(tutel.NullGuiHost{}, nopLogger())
	resp := d.Dispatch(&Request{Command: "file", Args: []RequestArg{
		{IsString: true, Text: "/nonexistent/path/does/not/exist.tu"},
	}})
	assert.Equal(t, "bad_request", resp.Type)
}

func TestCmdBreakExprWithInvalidExpressionIsBadRequest(t *testing.T) {
	d := loadedDebugger(t, "func main() {\n  x = 1;\n}\n")
	resp := d.Dispatch(&Request{Command: "break_expr", Args: []RequestArg{
		{IsString: true, Text: "main.tu"}, {Int: 2}, {IsString: true, Text: "x ==="},
	}})
	assert.Equal(t, "bad_request", resp.Type)
}
