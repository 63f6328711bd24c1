// Package codec defines how bytes are framed on the wire during a transfer.
// Control frames are short newline-terminated lines, and payloads are prefixed
// with their length so that the end of a payload never has to be guessed from
// the size of a read.
package codec

import (
	"io"
)

// An Encoder writes buf to w, possibly wrapped in framing, and reports how
// many bytes of w were used.
type Encoder func(w io.Writer, buf []byte) (int, error)

// A Decoder fills buf from r, removing any framing, and reports how many bytes
// of buf were filled.
type Decoder func(r io.Reader, buf []byte) (int, error)
