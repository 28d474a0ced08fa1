package debugger

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// StdioTransport speaks the line-oriented protocol of spec §4.6 over a pair
// of byte streams: one text request per input line (command name, then its
// arguments), parsed by ParseRequest, and one JSON envelope per output line. A single writer mutex keeps replies and
// asynchronous events from interleaving mid-line.
type StdioTransport struct {
	in  io.Reader
	out io.Writer

	writeMu sync.Mutex
	done    chan struct{}
	err     error
}

// NewStdioTransport builds a StdioTransport over the given streams.
func NewStdioTransport(in io.Reader, out io.Writer) *StdioTransport {
	return &StdioTransport{in: in, out: out, done: make(chan struct{})}
}

func (t *StdioTransport) Start(handle func(*Request) Response) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	go func() {
		defer close(t.done)

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}

			req, err := ParseRequest(line)
			if err != nil {
				t.writeEnvelope(badRequest("%s", err))
				continue
			}

			t.writeEnvelope(handle(req))
		}

		if err := scanner.Err(); err != nil {
			t.err = errors.Wrap(err, "stdio transport read")
		}
	}()

	return nil
}

func (t *StdioTransport) writeEnvelope(resp Response) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	enc := json.NewEncoder(t.out)
	return enc.Encode(resp)
}

func (t *StdioTransport) Emit(ev Response) error {
	return t.writeEnvelope(ev)
}

func (t *StdioTransport) Stop() error {
	return nil
}

func (t *StdioTransport) Join() error {
	<-t.done
	return t.err
}
