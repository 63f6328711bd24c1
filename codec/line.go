package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// MaxLineLength is the default upper bound for the length of a control frame,
// excluding its terminator.
const MaxLineLength = 128

// ErrLineTooLong is returned when a control frame does not end within the
// maximum line length.
type ErrLineTooLong struct {
	error
	Max int
}

// NewErrLineTooLong creates a new error which is returned when a line exceeds
// the maximum length.
func NewErrLineTooLong(max int) error {
	return ErrLineTooLong{
		error: fmt.Errorf("line exceeds max length=%d", max),
		Max:   max,
	}
}

// WriteLine writes the line followed by a newline terminator, in a single
// write.
func WriteLine(w io.Writer, line string) error {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}
	return nil
}

// ReadLine reads a line and returns it without its "\n" or "\r\n" terminator.
// If the reader reaches EOF after some bytes have been read, the unterminated
// line is returned without an error; a peer may close its side of the
// connection immediately after its last line. Reading stops with an
// ErrLineTooLong as soon as more than max bytes have been read without finding
// a terminator, so a misbehaving peer cannot grow the line without bound.
func ReadLine(r *bufio.Reader, max int) (string, error) {
	line := make([]byte, 0, 16)
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return strings.TrimSuffix(string(line), "\r"), nil
			}
			return "", err
		}
		if b == '\n' {
			return strings.TrimSuffix(string(line), "\r"), nil
		}
		if len(line) >= max {
			return "", NewErrLineTooLong(max)
		}
		line = append(line, b)
	}
}

// ErrUnexpectedLine is returned by ReadLineOneOf when the bytes read so far
// cannot become any of the expected lines.
type ErrUnexpectedLine struct {
	error
	Got string
}

// NewErrUnexpectedLine creates a new error which is returned when a line is
// not one of the expected lines.
func NewErrUnexpectedLine(got string) error {
	return ErrUnexpectedLine{
		error: fmt.Errorf("unexpected line %q", got),
		Got:   got,
	}
}

// ReadLineOneOf is like ReadLine, but only accepts one of the given lines. It
// fails with an ErrUnexpectedLine as soon as the bytes read so far are not the
// prefix of any of them, without waiting for a terminator. The error carries
// the rest of the line if it has already been buffered.
func ReadLineOneOf(r *bufio.Reader, max int, lines ...string) (string, error) {
	line := make([]byte, 0, 16)
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return oneOf(string(line), lines)
			}
			return "", err
		}
		if b == '\n' {
			return oneOf(string(line), lines)
		}
		if len(line) >= max {
			return "", NewErrLineTooLong(max)
		}
		line = append(line, b)
		if !prefixOfAny(line, lines) {
			return "", NewErrUnexpectedLine(string(line) + bufferedLine(r, max-len(line)))
		}
	}
}

func oneOf(line string, lines []string) (string, error) {
	line = strings.TrimSuffix(line, "\r")
	for _, expected := range lines {
		if line == expected {
			return line, nil
		}
	}
	return "", NewErrUnexpectedLine(line)
}

// prefixOfAny allows for the "\r" of a "\r\n" terminator.
func prefixOfAny(prefix []byte, lines []string) bool {
	for _, line := range lines {
		if strings.HasPrefix(line+"\r", string(prefix)) {
			return true
		}
	}
	return false
}

// bufferedLine returns the already buffered bytes up to the end of the line,
// without blocking.
func bufferedLine(r *bufio.Reader, max int) string {
	n := r.Buffered()
	if n > max {
		n = max
	}
	if n <= 0 {
		return ""
	}
	buffered, err := r.Peek(n)
	if err != nil {
		return ""
	}
	if i := bytes.IndexByte(buffered, '\n'); i >= 0 {
		buffered = buffered[:i]
	}
	return strings.TrimSuffix(string(buffered), "\r")
}
