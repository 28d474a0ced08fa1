// Package debugger orchestrates interpreter execution on a worker
// goroutine while a request handler services commands from a pluggable
// transport (spec §4.5/§4.6).
package debugger

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	tutel "go.tutel.dev/pkg"
)

var errNoFileLoaded = errors.New("no file loaded")

// Debugger drives one Tutel interpreter: it owns the loaded program, the
// breakpoint table, the current step mode, and the gate the worker blocks
// on while stopped (spec §4.5's State).
type Debugger struct {
	mu sync.Mutex

	interp *tutel.Interpreter
	logger zerolog.Logger

	filename        string
	program         *tutel.Program
	bpPossibleLines map[uint32]bool
	breakpoints     map[uint32]tutel.Expression // nil value = unconditional

	stepInto          bool
	stepOver          bool
	pause             bool
	watchedFrameIndex int

	running    bool
	sessionID  string
	lastEntry  string
	workerDone chan struct{}

	resume chan struct{}
	events chan Response
}

// New creates a Debugger driving a fresh Interpreter against host.
func New(host tutel.GuiHost, logger zerolog.Logger) *Debugger {
	return &Debugger{
		interp:      tutel.NewInterpreter(host, &nopWriter{}),
		logger:      logger,
		breakpoints: make(map[uint32]tutel.Expression),
		resume:      make(chan struct{}, 1),
		events:      make(chan Response, 64),
	}
}

// Events returns the channel of asynchronous stop/lifecycle events a
// transport should forward to its peer (spec §4.5's "events emitted").
func (d *Debugger) Events() <-chan Response {
	return d.events
}

func (d *Debugger) emit(ev Response) {
	select {
	case d.events <- ev:
	default:
		d.logger.Warn().Str("type", ev.Type).Msg("event dropped: consumer not draining")
	}
}

// LoadFile parses source as a full Tutel program, recomputes
// bp_possible_lines, and discards any breakpoint whose line is no longer
// valid (spec §4.5's `file(path)` command).
func (d *Debugger) LoadFile(filename, source string) (*Response, error) {
	lexer := tutel.NewLexer(tutel.NewSource(strings.NewReader(source)))
	program, err := tutel.NewParser(lexer).Parse()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.filename = filename
	d.program = program
	d.bpPossibleLines = computeBpPossibleLines(source)

	for line := range d.breakpoints {
		if !d.bpPossibleLines[line] {
			delete(d.breakpoints, line)
		}
	}

	resp := newResponse("file_set", map[string]interface{}{"filename": filename})
	return &resp, nil
}

// computeBpPossibleLines walks the raw source text line by line, marking
// every line that is neither blank nor comment-only as a line a statement
// could begin on (spec §4.5: computed from source text, not the AST).
func computeBpPossibleLines(source string) map[uint32]bool {
	possible := make(map[uint32]bool)
	for idx, raw := range strings.Split(source, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		possible[uint32(idx+1)] = true
	}
	return possible
}

// Run starts entry on the worker goroutine, with the full line hook when
// withHook is true or a no-op hook for `run_no_debug`.
func (d *Debugger) Run(entry string, withHook bool) (*Response, error) {
	d.mu.Lock()
	program := d.program
	if program == nil {
		d.mu.Unlock()
		return nil, errNoFileLoaded
	}
	if entry == "" {
		entry = program.Entry
	}

	d.running = true
	d.sessionID = uuid.NewString()
	d.lastEntry = entry
	d.stepInto, d.stepOver, d.pause = false, false, false
	done := make(chan struct{})
	d.workerDone = done

	// Drop any stale resume token left behind by a doStop() issued while
	// the worker wasn't parked in breakWith, so the first pause of this
	// run can't be skipped by a token meant for a previous one.
	select {
	case <-d.resume:
	default:
	}

	d.mu.Unlock()

	if withHook {
		d.interp.SetDebugCallback(d.lineHook)
	} else {
		d.interp.SetDebugCallback(nil)
	}

	go d.worker(program, entry, done)

	resp := newResponse("started", map[string]interface{}{
		"session_id": d.sessionID,
		"filename":   d.filename,
		"entry":      entry,
	})
	return &resp, nil
}

func (d *Debugger) worker(program *tutel.Program, entry string, done chan struct{}) {
	defer close(done)

	err := d.interp.Execute(program, entry)

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	if err != nil {
		d.logger.Info().Err(err).Msg("execution ended with error")
		d.emit(newResponse("post_mortem", map[string]interface{}{"error": err.Error()}))
	}
	d.emit(newResponse("end", nil))
}

// lineHook implements the line-hook algorithm of spec §4.5, called by the
// interpreter before every statement that starts a new source line.
func (d *Debugger) lineHook(i *tutel.Interpreter) error {
	frame := i.CallStack().FrameFromTop(0)
	if frame == nil {
		return nil
	}
	line := frame.CurrentLine

	d.mu.Lock()

	if d.pause {
		d.pause = false
		d.mu.Unlock()
		return d.breakWith("pause", i)
	}

	if d.stepInto && d.bpPossibleLines[line] {
		d.stepInto = false
		d.mu.Unlock()
		return d.breakWith("step_into", i)
	}

	if d.stepOver {
		overWatched := frame.Index == d.watchedFrameIndex
		returnedFromWatched := false
		if last, ok := i.CallStack().LastPoppedIndex(); ok {
			returnedFromWatched = last == d.watchedFrameIndex
		}
		if overWatched || returnedFromWatched {
			d.stepOver = false
			d.mu.Unlock()
			return d.breakWith("step_over", i)
		}
	}

	cond, hasBp := d.breakpoints[line]
	d.mu.Unlock()

	if !hasBp {
		return nil
	}
	if cond == nil {
		return d.breakWith("breakpoint", i)
	}

	truthy, err := i.EvalCondition(cond)
	if err != nil {
		return err
	}
	if truthy {
		return d.breakWith("breakpoint", i)
	}
	return nil
}

// breakWith emits the stop event and blocks the worker until a resuming
// command releases it; the interpreter's own line hook notices a cleared
// `running` flag on the next call and raises Stop.
func (d *Debugger) breakWith(kind string, i *tutel.Interpreter) error {
	d.emit(newResponse(kind, d.stackBody(i)))
	<-d.resume
	return nil
}

func (d *Debugger) release() {
	select {
	case d.resume <- struct{}{}:
	default:
	}
}

func (d *Debugger) doStop() {
	d.interp.Stop()
	d.release()
}

func (d *Debugger) stackBody(i *tutel.Interpreter) map[string]interface{} {
	return map[string]interface{}{
		"session_id": d.sessionID,
		"frames":     frameList(i.CallStack().Frames()),
	}
}

func frameList(frames []*tutel.StackFrame) []map[string]interface{} {
	out := make([]map[string]interface{}, len(frames))
	for idx, f := range frames {
		out[idx] = map[string]interface{}{
			"function": f.FunctionName,
			"lineno":   f.CurrentLine,
			"index":    f.Index,
		}
	}
	return out
}

// nopWriter discards every write: `print` output of a program run under
// the debugger is dropped, and no event carries it.
type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }
