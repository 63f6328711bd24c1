package handshake

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/renproject/id"
	"golang.org/x/crypto/blake2b"
)

// A Digest is the 32 byte hash of a payload. It is computed by the responder
// and echoed back to the initiator as proof of receipt.
type Digest id.Hash

// String returns the lowercase hex encoding of the Digest. This is the form
// used on the wire.
func (digest Digest) String() string {
	return hex.EncodeToString(digest[:])
}

// A DigestFunc hashes a payload. Both sides of a handshake must use the same
// DigestFunc for the integrity acknowledgement to verify.
type DigestFunc func([]byte) Digest

// SHA256 hashes payloads with SHA-256. It is the default DigestFunc.
func SHA256(payload []byte) Digest {
	return Digest(id.NewHash(payload))
}

// Keccak256 hashes payloads with Keccak-256.
func Keccak256(payload []byte) Digest {
	digest := Digest{}
	copy(digest[:], crypto.Keccak256(payload))
	return digest
}

// Blake2b256 hashes payloads with BLAKE2b-256.
func Blake2b256(payload []byte) Digest {
	return Digest(blake2b.Sum256(payload))
}

// DigestFuncByName returns the DigestFunc with the given name. Names are
// case-insensitive; supported names are "sha256", "keccak256", and
// "blake2b256".
func DigestFuncByName(name string) (DigestFunc, error) {
	switch strings.ToLower(name) {
	case "", "sha256", "sha-256":
		return SHA256, nil
	case "keccak256", "keccak-256":
		return Keccak256, nil
	case "blake2b256", "blake2b-256", "blake2b":
		return Blake2b256, nil
	default:
		return nil, fmt.Errorf("unsupported digest=%q", name)
	}
}

// A ConfirmFunc decides whether the initiator accepts the integrity
// acknowledgement of the responder. The local Digest is computed over the
// payload that was sent; the remote digest is the text that followed the
// "ACK-" prefix. Returning a non-nil error rejects the transfer.
type ConfirmFunc func(local Digest, remote string) error

// VerifyDigest accepts the acknowledgement only if the remote digest matches
// the local Digest. It is the default ConfirmFunc.
func VerifyDigest(local Digest, remote string) error {
	if !strings.EqualFold(local.String(), remote) {
		return NewErrDigestMismatch(local.String(), remote)
	}
	return nil
}

// AcceptAnyDigest accepts every acknowledgement without looking at the remote
// digest.
func AcceptAnyDigest(Digest, string) error {
	return nil
}
