package tutel

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Position locates a point in the original source text.
type Position struct {
	Line   uint32
	Column uint32
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// LexErrorKind enumerates the lexer's structured error taxonomy (spec §7).
type LexErrorKind int

const (
	UnknownToken LexErrorKind = iota
	IdentifierTooLong
	CommentTooLong
	TextConstTooLong
	UnterminatedString
	LeadingZerosInInteger
	IntegerTooLarge
	UnknownEscaping
)

func (k LexErrorKind) String() string {
	switch k {
	case UnknownToken:
		return "UnknownToken"
	case IdentifierTooLong:
		return "IdentifierTooLong"
	case CommentTooLong:
		return "CommentTooLong"
	case TextConstTooLong:
		return "TextConstTooLong"
	case UnterminatedString:
		return "UnterminatedString"
	case LeadingZerosInInteger:
		return "LeadingZerosInInteger"
	case IntegerTooLarge:
		return "IntegerTooLarge"
	case UnknownEscaping:
		return "UnknownEscaping"
	default:
		return "LexError(?)"
	}
}

// LexError is raised by the lexer; it always carries the offending
// position and a human-readable message.
type LexError struct {
	Kind    LexErrorKind
	Pos     Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("Lexical error: %s at %s", e.Message, e.Pos)
}

func newLexError(kind LexErrorKind, pos Position, format string, args ...interface{}) *LexError {
	return &LexError{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// ParseErrorKind enumerates the parser's structured error taxonomy (spec §7).
type ParseErrorKind int

const (
	MissingLeftBracket ParseErrorKind = iota
	MissingRightBracket
	MissingRightCurlyBracket
	MissingRightSquareBracket
	MissingSemicolon
	MissingRightSideOfAssignment
	MissingCondition
	MissingBody
	MissingIterator
	MissingIterable
	MissingKeywordIn
	MissingIdentifierAfterComma
	MissingExpressionAfterComma
	MissingIdentifierAfterDot
	ExprMissingRightSide
	MissingFunctionBlock
	FunctionRedefinition
	MissingEtx
)

func (k ParseErrorKind) String() string {
	switch k {
	case MissingLeftBracket:
		return "MissingLeftBracket"
	case MissingRightBracket:
		return "MissingRightBracket"
	case MissingRightCurlyBracket:
		return "MissingRightCurlyBracket"
	case MissingRightSquareBracket:
		return "MissingRightSquareBracket"
	case MissingSemicolon:
		return "MissingSemicolon"
	case MissingRightSideOfAssignment:
		return "MissingRightSideOfAssignment"
	case MissingCondition:
		return "MissingCondition"
	case MissingBody:
		return "MissingBody"
	case MissingIterator:
		return "MissingIterator"
	case MissingIterable:
		return "MissingIterable"
	case MissingKeywordIn:
		return "MissingKeywordIn"
	case MissingIdentifierAfterComma:
		return "MissingIdentifierAfterComma"
	case MissingExpressionAfterComma:
		return "MissingExpressionAfterComma"
	case MissingIdentifierAfterDot:
		return "MissingIdentifierAfterDot"
	case ExprMissingRightSide:
		return "ExprMissingRightSide"
	case MissingFunctionBlock:
		return "MissingFunctionBlock"
	case FunctionRedefinition:
		return "FunctionRedefinition"
	case MissingEtx:
		return "MissingEtx"
	default:
		return "ParseError(?)"
	}
}

// ParseError is raised by the parser; it names the production that failed
// and the offending token.
type ParseError struct {
	Kind       ParseErrorKind
	Production string
	Tok        Token
	Message    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Syntax error: %s at %d:%d", e.Message, e.Tok.Line, e.Tok.Column)
}

func newParseError(kind ParseErrorKind, production string, tok Token, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Kind:       kind,
		Production: production,
		Tok:        tok,
		Message:    fmt.Sprintf(format, args...),
	}
}

// RuntimeErrorKind enumerates the interpreter's structured error taxonomy
// (spec §7).
type RuntimeErrorKind int

const (
	NothingToRun RuntimeErrorKind = iota
	Recursion
	NotDefined
	NotIterable
	CannotAssign
	UnsupportedOperand
	BadOperandForUnary
	AttributeError
	MismatchedArgsCount
	OutOfRange
	BuiltinFunctionShadow
	TypeError
	UnknownError
	StopError
)

func (k RuntimeErrorKind) String() string {
	switch k {
	case NothingToRun:
		return "NothingToRun"
	case Recursion:
		return "Recursion"
	case NotDefined:
		return "NotDefined"
	case NotIterable:
		return "NotIterable"
	case CannotAssign:
		return "CannotAssign"
	case UnsupportedOperand:
		return "UnsupportedOperand"
	case BadOperandForUnary:
		return "BadOperandForUnary"
	case AttributeError:
		return "Attribute"
	case MismatchedArgsCount:
		return "MismatchedArgsCount"
	case OutOfRange:
		return "OutOfRange"
	case BuiltinFunctionShadow:
		return "BuiltinFunctionShadow"
	case TypeError:
		return "Type"
	case UnknownError:
		return "Unknown"
	case StopError:
		return "Stop"
	default:
		return "RuntimeError(?)"
	}
}

// RuntimeError is raised by the interpreter. MinArgs/MaxArgs/Got are only
// populated for MismatchedArgsCount; Trace is filled in by the interpreter
// at the moment the error escapes the call stack.
type RuntimeError struct {
	Kind    RuntimeErrorKind
	Pos     Position
	Message string

	MinArgs int
	MaxArgs int
	Got     int

	Trace []TraceEntry
}

// TraceEntry is one activation recorded for a RuntimeError's traceback,
// outermost frame first.
type TraceEntry struct {
	FunctionName string
	Line         uint32
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("Execution error: %s at %s", e.Message, e.Pos)
}

func newRuntimeError(kind RuntimeErrorKind, pos Position, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Traceback renders the error's call stack the way the debugger presents a
// post_mortem event: "Traceback (most recent call last):" followed by one
// indented "Function <name>, line <line>" per frame, outermost first.
func (e *RuntimeError) Traceback() string {
	var b strings.Builder
	b.WriteString("Traceback (most recent call last):\n")
	for _, frame := range e.Trace {
		fmt.Fprintf(&b, "  Function %s, line %d\n", frame.FunctionName, frame.Line)
	}
	return b.String()
}

// Wrap attaches additional context to err using github.com/pkg/errors,
// preserving the original error (and its Cause chain) for callers that
// need to recover the structured Lex/Parse/RuntimeError via errors.As.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, context)
}

// Cause unwraps an error wrapped with Wrap back to its root cause.
func Cause(err error) error {
	return errors.Cause(err)
}
