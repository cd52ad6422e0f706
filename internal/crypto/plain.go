package crypto

// AlgorithmPlain is the unauthenticated, unencrypted transport: Encrypt and
// Decrypt are both identity operations.
const AlgorithmPlain = "plain"

type plainSession struct{}

func newPlainSession() (Session, []byte, error) {
	return plainSession{}, []byte{}, nil
}

func (plainSession) Algorithm() string { return AlgorithmPlain }

func (plainSession) Encrypt(plaintext []byte) ([]byte, []byte, error) {
	return []byte{}, plaintext, nil
}

func (plainSession) Decrypt(_, ciphertext []byte) ([]byte, error) {
	return ciphertext, nil
}
