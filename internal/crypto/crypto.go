// Package crypto implements the session transport-crypto subsystem described
// in spec section 4.1: algorithm negotiation, per-session symmetric
// encryption/decryption of secrets crossing the bus, and nothing else. It has
// no knowledge of D-Bus, sessions paths, or peers — callers in internal/service
// bind a Session to a path and an owner.
package crypto

import "fmt"

// Session is a transport-crypto context bound to one OpenSession call. Its
// Kind dispatch lives entirely behind this interface so new algorithms (e.g.
// a future dh-ietf2048-* variant) can be added without touching callers.
type Session interface {
	// Algorithm returns the negotiated algorithm name.
	Algorithm() string

	// Encrypt wraps plaintext for transport, returning the parameters
	// (e.g. an IV) separately from the ciphertext, per spec 4.1.
	Encrypt(plaintext []byte) (parameters, ciphertext []byte, err error)

	// Decrypt reverses Encrypt. Malformed parameters/ciphertext are
	// reported as errors, never panics.
	Decrypt(parameters, ciphertext []byte) (plaintext []byte, err error)
}

// NewSession negotiates a session for algorithm, returning the crypto
// context and the "output" value to hand back to the peer (the server's DH
// public value, or an empty byte string for "plain"). An unrecognized
// algorithm is reported as an error; the caller translates that into
// NotSupported at the dispatch boundary.
func NewSession(algorithm string, peerInput []byte) (Session, []byte, error) {
	switch algorithm {
	case AlgorithmPlain:
		return newPlainSession()
	case AlgorithmDH:
		return newDHSession(peerInput)
	default:
		return nil, nil, fmt.Errorf("unsupported algorithm: %s", algorithm)
	}
}

// SupportedAlgorithms lists the algorithm names NewSession accepts.
func SupportedAlgorithms() []string {
	return []string{AlgorithmPlain, AlgorithmDH}
}
