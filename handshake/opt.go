package handshake

import (
	"time"

	"github.com/renproject/p2pass/codec"
	"go.uber.org/zap"
)

var (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxPayloadSize = uint32(64 * 1024 * 1024) // 64 MB
	DefaultMaxLineLength  = codec.MaxLineLength
	DefaultRequireText    = true
)

// Options for both sides of a handshake. The initiator and responder must agree
// on the Digest.
type Options struct {
	Logger *zap.Logger
	// Timeout bounds the entire handshake, including the orderly close. A
	// zero Timeout means that only the context deadline applies.
	Timeout        time.Duration
	MaxPayloadSize uint32
	MaxLineLength  int
	// RequireText makes the responder reject payloads that are not valid
	// utf-8.
	RequireText bool
	Digest      DigestFunc
	// Confirm is used by the initiator to decide between GOODBYE and ERR.
	Confirm ConfirmFunc
}

func DefaultOptions() Options {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return Options{
		Logger:         logger,
		Timeout:        DefaultTimeout,
		MaxPayloadSize: DefaultMaxPayloadSize,
		MaxLineLength:  DefaultMaxLineLength,
		RequireText:    DefaultRequireText,
		Digest:         SHA256,
		Confirm:        VerifyDigest,
	}
}

func (opts Options) WithLogger(logger *zap.Logger) Options {
	opts.Logger = logger
	return opts
}

func (opts Options) WithTimeout(timeout time.Duration) Options {
	opts.Timeout = timeout
	return opts
}

func (opts Options) WithMaxPayloadSize(size uint32) Options {
	opts.MaxPayloadSize = size
	return opts
}

func (opts Options) WithMaxLineLength(length int) Options {
	opts.MaxLineLength = length
	return opts
}

func (opts Options) WithRequireText(requireText bool) Options {
	opts.RequireText = requireText
	return opts
}

func (opts Options) WithDigest(digest DigestFunc) Options {
	opts.Digest = digest
	return opts
}

func (opts Options) WithConfirm(confirm ConfirmFunc) Options {
	opts.Confirm = confirm
	return opts
}

// withDefaults fills in zero values so that a partially constructed Options
// is still usable.
func (opts Options) withDefaults() Options {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxPayloadSize == 0 {
		opts.MaxPayloadSize = DefaultMaxPayloadSize
	}
	if opts.MaxLineLength <= 0 {
		opts.MaxLineLength = DefaultMaxLineLength
	}
	if opts.Digest == nil {
		opts.Digest = SHA256
	}
	if opts.Confirm == nil {
		opts.Confirm = VerifyDigest
	}
	return opts
}
