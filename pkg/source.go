package tutel

import (
	"bufio"
	"io"
)

// ETX is the end-of-text sentinel returned once the source stream is exhausted.
const ETX rune = '\x03'

// Source wraps a character stream and tracks the (line, column) of the
// character that would be returned next. Any of "\n", "\r", "\r\n" is
// collapsed into a single line break. Source should never be reused once
// exhausted and is not safe for concurrent use.
type Source struct {
	reader *bufio.Reader

	line   uint32
	column uint32

	// sawCR records that the previous rune consumed was '\r', so a
	// following '\n' is folded into the same line break instead of
	// counting as a second one.
	sawCR bool

	// peeked holds a rune fetched ahead of advance, so peek is idempotent.
	peeked    rune
	hasPeeked bool
	exhausted bool
}

// NewSource creates a Source reading from r, with line and column both
// starting at 1.
func NewSource(r io.Reader) *Source {
	return &Source{
		reader: bufio.NewReader(r),
		line:   1,
		column: 1,
	}
}

// Line returns the line of the character that CurrentChar would return.
func (s *Source) Line() uint32 {
	return s.line
}

// Column returns the column of the character that CurrentChar would return.
func (s *Source) Column() uint32 {
	return s.column
}

// CurrentChar returns the character at the current position without
// consuming it. Calling it repeatedly returns the same rune until Advance
// is called.
func (s *Source) CurrentChar() rune {
	return s.PeekNext()
}

// PeekNext returns the next rune in the stream without advancing the
// position. It is lazily populated and safe to call multiple times.
func (s *Source) PeekNext() rune {
	if s.hasPeeked {
		return s.peeked
	}

	s.peeked = s.fetch()
	s.hasPeeked = true

	return s.peeked
}

// Advance consumes and returns the current character, moving the position
// forward. Once the stream is exhausted it keeps returning ETX.
func (s *Source) Advance() rune {
	r := s.PeekNext()
	s.hasPeeked = false

	switch {
	case r == ETX:
		// stays put, nothing to advance over
	case r == '\n':
		if s.sawCR {
			// part of a "\r\n" pair already accounted for by the '\r'
			s.sawCR = false
		} else {
			s.line++
			s.column = 1
		}
	case r == '\r':
		s.sawCR = true
		s.line++
		s.column = 1
	default:
		s.sawCR = false
		s.column++
	}

	return r
}

// fetch reads one raw rune off the underlying reader, returning ETX at
// end-of-stream or on any read error (the stream is considered exhausted
// from that point on).
func (s *Source) fetch() rune {
	if s.exhausted {
		return ETX
	}

	r, _, err := s.reader.ReadRune()
	if err != nil {
		s.exhausted = true
		return ETX
	}

	return r
}
