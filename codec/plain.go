package codec

import (
	"io"
)

// PlainEncoder is the Encoder that adds no framing at all.
func PlainEncoder(w io.Writer, buf []byte) (int, error) {
	return w.Write(buf)
}

// PlainDecoder is the Decoder that expects no framing. It only returns once buf
// is full, so the caller must already know the size of the data.
func PlainDecoder(r io.Reader, buf []byte) (int, error) {
	return io.ReadFull(r, buf)
}
