package debugger

// Transport carries debugger requests in and Response envelopes out over
// some concrete wire (spec §4.6: stdio or socket). handle is called
// synchronously for every request the transport receives, and its result is
// sent back (the socket transport queues it for its send pump) before the
// next request is read.
type Transport interface {
	Start(handle func(*Request) Response) error
	Emit(ev Response) error
	Stop() error
	Join() error
}
