package trace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Reasons a trace line can be rejected.
var (
	ErrMissingOperation = errors.New("missing operation")
	ErrMissingAddress   = errors.New("missing address")
	ErrMissingSize      = errors.New("missing size")
	ErrBadAddress       = errors.New("address is not hexadecimal")
	ErrAddressOverflow  = errors.New("address does not fit in 64 bits")
	ErrBadSize          = errors.New("size is not a decimal number")
	ErrMissingNewline   = errors.New("line is not terminated by a newline")
	ErrLineTooLong      = errors.New("line is too long")
)

// A ParseError reports a malformed trace line.
type ParseError struct {
	// Line is the 1-based line number, or 0 if the line was parsed on its own.
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("trace line %d: %v: %q", e.Line, e.Err, e.Text)
	}

	return fmt.Sprintf("trace line: %v: %q", e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine parses one trace line. A trailing line terminator is allowed.
// Leading blanks before the operation are skipped.
func ParseLine(line string) (Record, error) {
	text := strings.TrimRight(line, "\r\n")

	fail := func(err error) (Record, error) {
		return Record{}, &ParseError{Text: text, Err: err}
	}

	rest := strings.TrimLeft(text, " \t")
	if rest == "" {
		return fail(ErrMissingOperation)
	}

	opEnd := strings.IndexAny(rest, " \t")
	if opEnd < 0 {
		return fail(ErrMissingAddress)
	}

	op := opFromToken(rest[:opEnd])

	addrText, sizeText, found := strings.Cut(rest[opEnd:], ",")
	addrText = strings.TrimSpace(addrText)

	if addrText == "" {
		return fail(ErrMissingAddress)
	}

	if !found {
		return fail(ErrMissingSize)
	}

	addr, err := parseAddress(addrText)
	if err != nil {
		return fail(err)
	}

	sizeText = strings.TrimSpace(sizeText)
	if sizeText == "" {
		return fail(ErrMissingSize)
	}

	size, err := strconv.ParseUint(sizeText, 10, 64)
	if err != nil {
		return fail(ErrBadSize)
	}

	return Record{Op: op, Address: addr, Size: size}, nil
}

func parseAddress(text string) (uint64, error) {
	addr, err := strconv.ParseUint(text, 16, 64)
	if err == nil {
		return addr, nil
	}

	if errors.Is(err, strconv.ErrRange) {
		return 0, ErrAddressOverflow
	}

	return 0, ErrBadAddress
}

// Interpret parses a trace line and expands it into elementary accesses.
func Interpret(line string) ([]Access, error) {
	rec, err := ParseLine(line)
	if err != nil {
		return nil, err
	}

	return rec.Accesses(), nil
}
