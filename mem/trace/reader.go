package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// A Reader reads trace records one line at a time.
type Reader struct {
	r    *bufio.Reader
	line int

	strictNewline bool
	maxLineLength int
}

// A ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithStrictNewline rejects a last line that is not terminated by a newline.
func WithStrictNewline(strict bool) ReaderOption {
	return func(r *Reader) {
		r.strictNewline = strict
	}
}

// WithMaxLineLength rejects lines longer than n bytes, not counting the line
// terminator. Zero means no limit.
func WithMaxLineLength(n int) ReaderOption {
	return func(r *Reader) {
		r.maxLineLength = n
	}
}

// NewReader creates a Reader that reads from r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r: bufio.NewReader(r),
	}

	for _, opt := range opts {
		opt(reader)
	}

	return reader
}

// Line returns the number of lines read so far.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next record. It returns io.EOF after the last record.
// Malformed lines are reported as *ParseError.
func (r *Reader) Next() (Record, error) {
	text, terminated, err := r.readLine()
	if err != nil {
		if errors.Is(err, ErrLineTooLong) {
			return Record{}, &ParseError{Line: r.line, Text: text, Err: err}
		}

		return Record{}, err
	}

	if !terminated && r.strictNewline {
		return Record{}, &ParseError{
			Line: r.line,
			Text: text,
			Err:  ErrMissingNewline,
		}
	}

	rec, err := ParseLine(text)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Line = r.line
		}

		return Record{}, err
	}

	return rec, nil
}

func (r *Reader) readLine() (text string, terminated bool, err error) {
	var buf []byte

	for {
		chunk, err := r.r.ReadSlice('\n')
		buf = append(buf, chunk...)

		switch {
		case err == nil:
			r.line++
			content := trimTerminator(buf)

			if r.tooLong(content) {
				return truncate(content), true, ErrLineTooLong
			}

			return string(content), true, nil
		case errors.Is(err, bufio.ErrBufferFull):
			if r.tooLong(buf) {
				r.line++
				return truncate(buf), false, ErrLineTooLong
			}
		case errors.Is(err, io.EOF):
			if len(buf) == 0 {
				return "", false, io.EOF
			}

			r.line++
			content := trimTerminator(buf)

			if r.tooLong(content) {
				return truncate(content), false, ErrLineTooLong
			}

			return string(content), false, nil
		default:
			return "", false, fmt.Errorf("reading trace: %w", err)
		}
	}
}

func (r *Reader) tooLong(content []byte) bool {
	return r.maxLineLength > 0 && len(content) > r.maxLineLength
}

func trimTerminator(buf []byte) []byte {
	n := len(buf)
	if n > 0 && buf[n-1] == '\n' {
		n--
	}

	if n > 0 && buf[n-1] == '\r' {
		n--
	}

	return buf[:n]
}

// truncate keeps error messages about oversized lines short.
func truncate(content []byte) string {
	const keep = 64
	if len(content) > keep {
		return string(content[:keep]) + "..."
	}

	return string(content)
}
