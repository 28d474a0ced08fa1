package debugger

import (
	"bufio"
	"encoding/json"
	"net"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// SocketTransport accepts a single TCP peer and speaks the same envelope
// protocol as StdioTransport, but ACK-gated: after every envelope it sends,
// it blocks until the peer writes back the literal line "ACK" before
// sending the next one, so a slow debugger UI can't be flooded with stop
// events while it is still rendering the previous one. Send and receive run
// as two errgroup goroutines per connection.
type SocketTransport struct {
	addr     string
	listener net.Listener

	outbox chan Response
	ackCh  chan struct{}
	group  *errgroup.Group
	done   chan struct{}
}

// NewSocketTransport builds a SocketTransport listening on addr (host:port).
func NewSocketTransport(addr string) *SocketTransport {
	return &SocketTransport{
		addr:   addr,
		outbox: make(chan Response, 64),
		ackCh:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (t *SocketTransport) Start(handle func(*Request) Response) error {
	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return errors.Wrap(err, "socket transport listen")
	}
	t.listener = ln

	group := &errgroup.Group{}
	t.group = group

	group.Go(func() error {
		defer close(t.done)

		conn, err := ln.Accept()
		if err != nil {
			return errors.Wrap(err, "socket transport accept")
		}
		defer conn.Close()

		connClosed := make(chan struct{})
		connGroup := &errgroup.Group{}

		connGroup.Go(func() error {
			defer close(connClosed)
			return t.recvPump(conn, handle)
		})
		connGroup.Go(func() error {
			return t.sendPump(conn, connClosed)
		})

		return connGroup.Wait()
	})

	return nil
}

func (t *SocketTransport) recvPump(conn net.Conn, handle func(*Request) Response) error {
	scanner := bufio.NewScanner(conn)

	for scanner.Scan() {
		line := scanner.Text()
		switch line {
		case "":
			continue
		case "ACK":
			select {
			case t.ackCh <- struct{}{}:
			default:
			}
		default:
			req, err := ParseRequest(line)
			if err != nil {
				t.outbox <- badRequest("%s", err)
				continue
			}
			t.outbox <- handle(req)
		}
	}

	return scanner.Err()
}

func (t *SocketTransport) sendPump(conn net.Conn, connClosed <-chan struct{}) error {
	enc := json.NewEncoder(conn)

	for {
		select {
		case resp := <-t.outbox:
			if err := enc.Encode(resp); err != nil {
				return errors.Wrap(err, "socket transport write")
			}
			select {
			case <-t.ackCh:
			case <-connClosed:
				return nil
			}
		case <-connClosed:
			return nil
		}
	}
}

func (t *SocketTransport) Emit(ev Response) error {
	select {
	case t.outbox <- ev:
		return nil
	case <-t.done:
		return errors.New("socket transport closed")
	}
}

func (t *SocketTransport) Stop() error {
	if t.listener != nil {
		return t.listener.Close()
	}
	return nil
}

func (t *SocketTransport) Join() error {
	<-t.done
	if t.group == nil {
		return nil
	}
	return t.group.Wait()
}
