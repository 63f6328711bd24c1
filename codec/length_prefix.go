package codec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// LengthPrefixSize is the number of bytes used by the big-endian length prefix.
const LengthPrefixSize = 4

// ErrTooLarge is returned when a length prefix announces more bytes than the
// reader is willing to accept.
type ErrTooLarge struct {
	error
	Size uint32
	Max  uint32
}

// NewErrTooLarge creates a new error which is returned when a length prefix is
// larger than allowed.
func NewErrTooLarge(size, max uint32) error {
	return ErrTooLarge{
		error: fmt.Errorf("data length=%d exceeds max=%d", size, max),
		Size:  size,
		Max:   max,
	}
}

// LengthPrefixEncoder returns an Encoder that writes the length of the buffer
// as a big-endian uint32 using the prefix Encoder, and then writes the buffer
// itself using the body Encoder.
func LengthPrefixEncoder(prefixEnc Encoder, bodyEnc Encoder) Encoder {
	return func(w io.Writer, buf []byte) (int, error) {
		if uint64(len(buf)) > uint64(^uint32(0)) {
			return 0, fmt.Errorf("encoding data length: %v", NewErrTooLarge(^uint32(0), ^uint32(0)))
		}
		prefixBytes := [LengthPrefixSize]byte{}
		binary.BigEndian.PutUint32(prefixBytes[:], uint32(len(buf)))
		if _, err := prefixEnc(w, prefixBytes[:]); err != nil {
			return 0, fmt.Errorf("encoding data length: %w", err)
		}
		n, err := bodyEnc(w, buf)
		if err != nil {
			return n, fmt.Errorf("encoding data: %w", err)
		}
		return n, nil
	}
}

// LengthPrefixDecoder returns a Decoder that reads a big-endian uint32 length
// prefix using the prefix Decoder, and then decodes exactly that many bytes
// into the front of the buffer using the body Decoder. The buffer must be large
// enough to hold the data.
func LengthPrefixDecoder(prefixDec Decoder, bodyDec Decoder) Decoder {
	return func(r io.Reader, buf []byte) (int, error) {
		prefix, err := decodePrefix(r, prefixDec)
		if err != nil {
			return 0, err
		}
		if uint64(len(buf)) < uint64(prefix) {
			return 0, fmt.Errorf("decoding data length: %w", NewErrTooLarge(prefix, uint32(len(buf))))
		}
		n, err := bodyDec(r, buf[:prefix])
		if err != nil {
			return n, fmt.Errorf("decoding data: %w", err)
		}
		return n, nil
	}
}

// ReadLengthPrefixed reads a big-endian uint32 length prefix, and then reads
// exactly that many bytes into a newly allocated slice. Prefixes larger than
// max are rejected before anything is allocated.
func ReadLengthPrefixed(r io.Reader, bodyDec Decoder, max uint32) ([]byte, error) {
	prefix, err := decodePrefix(r, PlainDecoder)
	if err != nil {
		return nil, err
	}
	if prefix > max {
		return nil, fmt.Errorf("decoding data length: %w", NewErrTooLarge(prefix, max))
	}
	buf := make([]byte, prefix)
	if _, err := bodyDec(r, buf); err != nil {
		return nil, fmt.Errorf("decoding data: %w", err)
	}
	return buf, nil
}

func decodePrefix(r io.Reader, prefixDec Decoder) (uint32, error) {
	prefixBytes := [LengthPrefixSize]byte{}
	if _, err := prefixDec(r, prefixBytes[:]); err != nil {
		return 0, fmt.Errorf("decoding data length: %w", err)
	}
	return binary.BigEndian.Uint32(prefixBytes[:]), nil
}
