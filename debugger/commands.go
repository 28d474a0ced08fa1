package debugger

import (
	"fmt"
	"os"
	"sort"

	tutel "go.tutel.dev/pkg"
)

// Dispatch executes req and returns the Response to send back to the
// caller (spec §4.5's command catalogue, arg shapes from §6).
func (d *Debugger) Dispatch(req *Request) Response {
	switch req.Command {
	case "file":
		return d.cmdFile(req)
	case "run":
		return d.cmdRun(true)
	case "run_no_debug":
		return d.cmdRun(false)
	case "restart":
		return d.cmdRestart()
	case "stop":
		return d.cmdStop()
	case "exit":
		return d.cmdExit()
	case "continue":
		return d.cmdContinue()
	case "step_into":
		return d.cmdStepInto()
	case "step_over":
		return d.cmdStepOver()
	case "pause":
		return d.cmdPause()
	case "stack":
		return d.cmdStack()
	case "frame":
		return d.cmdFrame(req)
	case "break":
		return d.cmdBreak(req)
	case "break_expr":
		return d.cmdBreakExpr(req)
	case "clear":
		return d.cmdClear(req)
	case "get_bp_lines":
		return d.cmdGetBpLines()
	case "help":
		return d.cmdHelp()
	default:
		return badRequest("unknown command %q", req.Command)
	}
}

func badRequest(format string, args ...interface{}) Response {
	return newResponse("bad_request", map[string]interface{}{"error": fmt.Sprintf(format, args...)})
}

func (d *Debugger) cmdFile(req *Request) Response {
	if len(req.Args) < 1 {
		return badRequest("file requires a path argument")
	}
	path := req.Args[0].String()

	data, err := os.ReadFile(path)
	if err != nil {
		return badRequest("%s", err)
	}

	resp, err := d.LoadFile(path, string(data))
	if err != nil {
		return badRequest("%s", err)
	}
	return *resp
}

func (d *Debugger) cmdRun(withHook bool) Response {
	resp, err := d.Run("", withHook)
	if err != nil {
		return badRequest("%s", err)
	}
	return *resp
}

func (d *Debugger) cmdRestart() Response {
	d.mu.Lock()
	done := d.workerDone
	entry := d.lastEntry
	d.mu.Unlock()

	if done != nil {
		d.doStop()
		<-done
	}

	resp, err := d.Run(entry, true)
	if err != nil {
		return badRequest("%s", err)
	}
	return *resp
}

func (d *Debugger) cmdStop() Response {
	d.doStop()
	return newResponse("resumed", nil)
}

func (d *Debugger) cmdExit() Response {
	d.doStop()
	d.emit(newResponse("exit", nil))
	return newResponse("resumed", nil)
}

func (d *Debugger) cmdContinue() Response {
	d.release()
	return newResponse("resumed", nil)
}

func (d *Debugger) cmdStepInto() Response {
	d.mu.Lock()
	d.stepInto = true
	d.mu.Unlock()

	d.release()
	return newResponse("resumed", nil)
}

func (d *Debugger) cmdStepOver() Response {
	d.mu.Lock()
	d.stepOver = true
	if frame := d.interp.CallStack().FrameFromTop(0); frame != nil {
		d.watchedFrameIndex = frame.Index
	}
	d.mu.Unlock()

	d.release()
	return newResponse("resumed", nil)
}

func (d *Debugger) cmdPause() Response {
	d.mu.Lock()
	d.pause = true
	d.mu.Unlock()
	return newResponse("resumed", nil)
}

func (d *Debugger) cmdStack() Response {
	return newResponse("stack_trace", map[string]interface{}{
		"frames": frameList(d.interp.CallStack().Frames()),
	})
}

func (d *Debugger) cmdFrame(req *Request) Response {
	idx := 0
	if len(req.Args) > 0 {
		idx = int(req.Args[0].Int)
	}

	frame := d.interp.CallStack().FrameFromTop(idx)
	if frame == nil {
		return badRequest("no such frame %d", idx)
	}

	return newResponse("frame", map[string]interface{}{
		"function": frame.FunctionName,
		"lineno":   frame.CurrentLine,
		"index":    frame.Index,
	})
}

func (d *Debugger) cmdBreak(req *Request) Response {
	switch len(req.Args) {
	case 1:
		return d.listBreakpoints()
	case 2:
		return d.setBreakpoint(uint32(req.Args[1].Int), nil)
	default:
		return badRequest("break expects (file) or (file, line)")
	}
}

func (d *Debugger) cmdBreakExpr(req *Request) Response {
	if len(req.Args) != 3 {
		return badRequest("break_expr expects (file, line, expr)")
	}

	cond, err := tutel.ParseExpression(req.Args[2].String())
	if err != nil {
		return badRequest("%s", err)
	}

	return d.setBreakpoint(uint32(req.Args[1].Int), cond)
}

func (d *Debugger) setBreakpoint(line uint32, cond tutel.Expression) Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.bpPossibleLines[line] {
		return badRequest("line %d has no statement", line)
	}

	d.breakpoints[line] = cond
	return newResponse("breakpoint_set", map[string]interface{}{"line": line})
}

func (d *Debugger) listBreakpoints() Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	return newResponse("breakpoints", map[string]interface{}{"lines": sortedLines(d.breakpoints)})
}

func (d *Debugger) cmdClear(req *Request) Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(req.Args) >= 2 {
		line := uint32(req.Args[1].Int)
		delete(d.breakpoints, line)
		return newResponse("breakpoint_removed", map[string]interface{}{"line": line})
	}

	d.breakpoints = make(map[uint32]tutel.Expression)
	return newResponse("all_breakpoints_removed", nil)
}

func (d *Debugger) cmdGetBpLines() Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	lines := make([]uint32, 0, len(d.bpPossibleLines))
	for line := range d.bpPossibleLines {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })

	return newResponse("breakpoints", map[string]interface{}{"lines": lines})
}

const helpText = "commands: file(path) run run_no_debug restart stop exit " +
	"continue step_into step_over pause stack frame(i) break(file[,line]) " +
	"break_expr(file,line,expr) clear(file[,line]) get_bp_lines help"

func (d *Debugger) cmdHelp() Response {
	return newResponse("help", map[string]interface{}{"text": helpText})
}

func sortedLines(breakpoints map[uint32]tutel.Expression) []uint32 {
	lines := make([]uint32, 0, len(breakpoints))
	for line := range breakpoints {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })
	return lines
}
