// Package config loads the YAML configuration of the p2pass command, and
// converts it into the options used by the transfer package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/renproject/p2pass/handshake"
	"github.com/renproject/p2pass/transfer"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Config holds the p2pass configuration.
type Config struct {
	Host           string        `yaml:"host"`
	Port           uint16        `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	MaxPayloadSize uint32        `yaml:"max_payload_size"`
	MaxConns       int           `yaml:"max_conns"`
	RateLimit      float64       `yaml:"rate_limit"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	// VerifyDigest makes the sender compare the acknowledged digest with its
	// own before saying GOODBYE.
	VerifyDigest bool   `yaml:"verify_digest"`
	RequireText  bool   `yaml:"require_text"`
	Digest       string `yaml:"digest"`
	LogLevel     string `yaml:"log_level"`
}

// Default returns the configuration that is used when no file exists.
func Default() *Config {
	return &Config{
		Host:           transfer.DefaultServerHost,
		Port:           transfer.DefaultServerPort,
		Timeout:        handshake.DefaultTimeout,
		DialTimeout:    transfer.DefaultClientDialTimeout,
		MaxPayloadSize: handshake.DefaultMaxPayloadSize,
		MaxConns:       transfer.DefaultServerMaxConns,
		RateLimit:      float64(transfer.DefaultConnRateLimit),
		RateLimitBurst: transfer.DefaultConnRateLimitBurst,
		VerifyDigest:   true,
		RequireText:    handshake.DefaultRequireText,
		Digest:         "sha256",
		LogLevel:       "info",
	}
}

// DefaultPath returns the default config file path: ~/.p2pass/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".p2pass", "config.yaml")
	}
	return filepath.Join(home, ".p2pass", "config.yaml")
}

// Load reads the configuration from the given YAML file path. Fields that are
// missing from the file keep their default values. If the file does not exist,
// it returns the default Config with no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %v: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %v: %w", path, err)
	}
	return cfg, nil
}

// Validate returns an error when a field holds a value that cannot be used.
func (cfg *Config) Validate() error {
	if cfg.Timeout < 0 {
		return fmt.Errorf("negative timeout=%v", cfg.Timeout)
	}
	if cfg.DialTimeout < 0 {
		return fmt.Errorf("negative dial_timeout=%v", cfg.DialTimeout)
	}
	if cfg.MaxPayloadSize == 0 {
		return fmt.Errorf("zero max_payload_size")
	}
	if cfg.MaxConns == 0 {
		return fmt.Errorf("zero max_conns: use a negative value to disable the limit")
	}
	if cfg.RateLimit < 0 || cfg.RateLimitBurst < 0 {
		return fmt.Errorf("negative rate_limit=%v or rate_limit_burst=%v", cfg.RateLimit, cfg.RateLimitBurst)
	}
	if cfg.RateLimit > 0 && cfg.RateLimitBurst == 0 {
		return fmt.Errorf("zero rate_limit_burst with rate_limit=%v: use rate_limit 0 to disable rate limiting", cfg.RateLimit)
	}
	if _, err := handshake.DigestFuncByName(cfg.Digest); err != nil {
		return err
	}
	if _, err := zap.ParseAtomicLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("parsing log_level: %w", err)
	}
	return nil
}

// Logger builds a logger that writes to stderr at the configured level.
func (cfg *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = level
	loggerConfig.Encoding = "console"
	loggerConfig.DisableStacktrace = true
	return loggerConfig.Build()
}

// HandshakeOptions converts the configuration into handshake options.
func (cfg *Config) HandshakeOptions(logger *zap.Logger) (handshake.Options, error) {
	digest, err := handshake.DigestFuncByName(cfg.Digest)
	if err != nil {
		return handshake.Options{}, err
	}
	confirm := handshake.VerifyDigest
	if !cfg.VerifyDigest {
		confirm = handshake.AcceptAnyDigest
	}
	return handshake.DefaultOptions().
		WithLogger(logger).
		WithTimeout(cfg.Timeout).
		WithMaxPayloadSize(cfg.MaxPayloadSize).
		WithRequireText(cfg.RequireText).
		WithDigest(digest).
		WithConfirm(confirm), nil
}

// ServerOptions converts the configuration into options for a
// transfer.Server.
func (cfg *Config) ServerOptions(logger *zap.Logger) (transfer.ServerOptions, error) {
	handshakeOpts, err := cfg.HandshakeOptions(logger)
	if err != nil {
		return transfer.ServerOptions{}, err
	}
	return transfer.DefaultServerOptions().
		WithLogger(logger).
		WithHost(cfg.Host).
		WithPort(cfg.Port).
		WithMaxConns(cfg.MaxConns).
		WithRateLimit(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst).
		WithHandshakeOptions(handshakeOpts), nil
}

// ClientOptions converts the configuration into options for a
// transfer.Client.
func (cfg *Config) ClientOptions(logger *zap.Logger) (transfer.ClientOptions, error) {
	handshakeOpts, err := cfg.HandshakeOptions(logger)
	if err != nil {
		return transfer.ClientOptions{}, err
	}
	return transfer.DefaultClientOptions().
		WithLogger(logger).
		WithDialTimeout(cfg.DialTimeout).
		WithHandshakeOptions(handshakeOpts), nil
}
