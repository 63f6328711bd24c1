package peerid

import "fmt"

// ErrMalformedToken is returned when a token cannot be decoded into an
// Address.
type ErrMalformedToken struct {
	error
	Token  string
	Reason string
}

// NewErrMalformedToken creates a new error which is returned when a token is
// not a valid encoding of an Address.
func NewErrMalformedToken(token, reason string) error {
	return ErrMalformedToken{
		error:  fmt.Errorf("malformed token=%q: %v", token, reason),
		Token:  token,
		Reason: reason,
	}
}
