package transfer

import (
	"time"

	"github.com/renproject/p2pass/handshake"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	DefaultServerHost     = "0.0.0.0"
	DefaultServerPort     = uint16(18514)
	DefaultServerMaxConns = 128

	DefaultConnRateLimit      = rate.Limit(10)
	DefaultConnRateLimitBurst = 20
	DefaultRateLimitCapacity  = 65535

	DefaultClientDialTimeout = 10 * time.Second
)

type ServerOptions struct {
	Logger *zap.Logger
	Host   string
	Port   uint16
	// MaxConns is the number of connections that can be served concurrently.
	// A negative MaxConns disables the limit, and zero means the default.
	MaxConns int
	// RateLimit is the number of connections per second allowed from one IP
	// address. Zero disables rate limiting. A zero RateLimitBurst means the
	// default burst.
	RateLimit         rate.Limit
	RateLimitBurst    int
	RateLimitCapacity int
	Handshake         handshake.Options
}

func DefaultServerOptions() ServerOptions {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return ServerOptions{
		Logger:            logger,
		Host:              DefaultServerHost,
		Port:              DefaultServerPort,
		MaxConns:          DefaultServerMaxConns,
		RateLimit:         DefaultConnRateLimit,
		RateLimitBurst:    DefaultConnRateLimitBurst,
		RateLimitCapacity: DefaultRateLimitCapacity,
		Handshake:         handshake.DefaultOptions().WithLogger(logger),
	}
}

// WithLogger sets the logger that will be used by the server, and by the
// handshakes that it accepts.
func (opts ServerOptions) WithLogger(logger *zap.Logger) ServerOptions {
	opts.Logger = logger
	opts.Handshake = opts.Handshake.WithLogger(logger)
	return opts
}

// WithHost sets the host address that will be used for listening.
func (opts ServerOptions) WithHost(host string) ServerOptions {
	opts.Host = host
	return opts
}

// WithPort sets the port that will be used for listening.
func (opts ServerOptions) WithPort(port uint16) ServerOptions {
	opts.Port = port
	return opts
}

func (opts ServerOptions) WithMaxConns(maxConns int) ServerOptions {
	opts.MaxConns = maxConns
	return opts
}

// WithRateLimit sets the number of connections per second, and the burst, that
// a single IP address is allowed.
func (opts ServerOptions) WithRateLimit(limit rate.Limit, burst int) ServerOptions {
	opts.RateLimit = limit
	opts.RateLimitBurst = burst
	return opts
}

func (opts ServerOptions) WithHandshakeOptions(handshakeOpts handshake.Options) ServerOptions {
	opts.Handshake = handshakeOpts
	return opts
}

type ClientOptions struct {
	Logger *zap.Logger
	// DialTimeout bounds connecting to the responder. The handshake itself is
	// bounded by the Handshake timeout.
	DialTimeout time.Duration
	Handshake   handshake.Options
}

func DefaultClientOptions() ClientOptions {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return ClientOptions{
		Logger:      logger,
		DialTimeout: DefaultClientDialTimeout,
		Handshake:   handshake.DefaultOptions().WithLogger(logger),
	}
}

// WithLogger sets the logger that will be used by the client, and by the
// handshakes that it initiates.
func (opts ClientOptions) WithLogger(logger *zap.Logger) ClientOptions {
	opts.Logger = logger
	opts.Handshake = opts.Handshake.WithLogger(logger)
	return opts
}

func (opts ClientOptions) WithDialTimeout(timeout time.Duration) ClientOptions {
	opts.DialTimeout = timeout
	return opts
}

func (opts ClientOptions) WithHandshakeOptions(handshakeOpts handshake.Options) ClientOptions {
	opts.Handshake = handshakeOpts
	return opts
}
