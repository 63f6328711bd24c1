// Package peerid converts between the network address of a peer and an opaque,
// reversible token that can be shared out-of-band (pasted, spoken, or encoded
// into a QR code). Nothing is registered anywhere: the token is the address.
//
//	addr := peerid.NewAddress(netip.MustParseAddr("127.0.0.1"), 8080)
//	token := peerid.Encode(addr) // "MTI3LjAuMC4xOjgwODA="
//	same, err := peerid.Decode(token)
package peerid

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"unicode/utf8"
)

// An Address is the IP address and port at which a peer can be reached.
// Addresses are values and must not be mutated once constructed.
type Address struct {
	IP   netip.Addr
	Port uint16
}

// NewAddress returns an Address for the given IP and port.
func NewAddress(ip netip.Addr, port uint16) Address {
	return Address{IP: ip, Port: port}
}

// ParseAddress parses a dialable "host:port" string, where host is a literal
// IP address. IPv6 hosts must be bracketed.
func ParseAddress(s string) (Address, error) {
	addrPort, err := netip.ParseAddrPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("parsing address %q: %v", s, err)
	}
	return Address{IP: addrPort.Addr(), Port: addrPort.Port()}, nil
}

// FromNetAddr converts a TCP or UDP address into an Address.
func FromNetAddr(addr net.Addr) (Address, error) {
	switch addr := addr.(type) {
	case *net.TCPAddr:
		return fromAddrPort(addr.AddrPort())
	case *net.UDPAddr:
		return fromAddrPort(addr.AddrPort())
	default:
		return ParseAddress(addr.String())
	}
}

func fromAddrPort(addrPort netip.AddrPort) (Address, error) {
	if !addrPort.IsValid() {
		return Address{}, fmt.Errorf("invalid address %v", addrPort)
	}
	return Address{IP: addrPort.Addr().Unmap(), Port: addrPort.Port()}, nil
}

// IsValid returns true when the IP of the Address has been set.
func (addr Address) IsValid() bool {
	return addr.IP.IsValid()
}

// Equal compares two Addresses. Returns true if they are the same, otherwise
// returns false.
func (addr Address) Equal(other Address) bool {
	return addr.IP == other.IP && addr.Port == other.Port
}

// String returns the Address in a form that can be passed to a dialer.
func (addr Address) String() string {
	return netip.AddrPortFrom(addr.IP, addr.Port).String()
}

// Token returns the token for this Address using the standard codec.
func (addr Address) Token() string {
	return Encode(addr)
}

// plain is the text that gets transformed into a token. The IP is never
// bracketed, even for IPv6.
func (addr Address) plain() string {
	return addr.IP.String() + ":" + strconv.FormatUint(uint64(addr.Port), 10)
}

// A Codec transforms Addresses to and from tokens using a binary-to-text
// encoding.
type Codec struct {
	enc *base64.Encoding
}

var (
	// StdCodec uses standard, padded base64. It is the default codec.
	StdCodec = NewCodec(base64.StdEncoding)
	// URLCodec uses unpadded URL-safe base64, for tokens that end up in URLs
	// or file names.
	URLCodec = NewCodec(base64.RawURLEncoding)
)

// NewCodec returns a Codec that uses the given base64 encoding. Decoding is
// always strict.
func NewCodec(enc *base64.Encoding) Codec {
	return Codec{enc: enc.Strict()}
}

// Encode an Address into a token. Encoding is deterministic.
func (codec Codec) Encode(addr Address) string {
	return codec.enc.EncodeToString([]byte(addr.plain()))
}

// Decode a token into an Address. A malformed token always results in an
// ErrMalformedToken.
func (codec Codec) Decode(token string) (Address, error) {
	raw, err := codec.enc.DecodeString(token)
	if err != nil {
		return Address{}, NewErrMalformedToken(token, fmt.Sprintf("decoding base64: %v", err))
	}
	if !utf8.Valid(raw) {
		return Address{}, NewErrMalformedToken(token, "decoded text is not utf-8")
	}
	text := string(raw)

	// IPv6 hosts contain colons but ports never do.
	sep := strings.LastIndexByte(text, ':')
	if sep < 0 {
		return Address{}, NewErrMalformedToken(token, "missing host/port separator")
	}
	host, port := text[:sep], text[sep+1:]
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		return Address{}, NewErrMalformedToken(token, fmt.Sprintf("parsing host %q: %v", host, err))
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return Address{}, NewErrMalformedToken(token, fmt.Sprintf("parsing port %q: %v", port, err))
	}
	return Address{IP: ip, Port: uint16(portNum)}, nil
}

// Encode an Address into a token using the StdCodec.
func Encode(addr Address) string {
	return StdCodec.Encode(addr)
}

// Decode a token into an Address using the StdCodec.
func Decode(token string) (Address, error) {
	return StdCodec.Decode(token)
}
