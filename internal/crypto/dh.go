package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"golang.org/x/crypto/hkdf"
)

// AlgorithmDH is the authenticated Diffie-Hellman transport: RFC 2409 MODP
// group 2 key exchange, HKDF-SHA-256 key derivation, AES-128-CBC+PKCS7
// framing of the secret payload.
const AlgorithmDH = "dh-ietf1024-sha256-aes128-cbc-pkcs7"

// groupSize is the encoded width of a MODP-1024 public value: 1024 bits.
const groupSize = 128

// RFC 2409 "Second Oakley Group": 1024-bit MODP, generator 2.
var (
	dhPrime = func() *big.Int {
		p, ok := new(big.Int).SetString(
			"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1"+
				"29024E088A67CC74020BBEA63B139B22514A08798E3404DD"+
				"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245"+
				"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED"+
				"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE65381"+
				"FFFFFFFFFFFFFFFF", 16)
		if !ok {
			panic("crypto: malformed MODP-1024 prime literal")
		}
		return p
	}()
	dhGenerator = big.NewInt(2)
)

type dhSession struct {
	aesKey []byte
}

// newDHSession performs one round of the key exchange described in spec
// 4.1: it reads the peer's 128-byte big-endian public value, generates a
// private exponent, derives the shared secret, and returns our own public
// value padded to 128 bytes. The exchange always completes in this single
// call — there is no "not yet done" state to represent.
func newDHSession(peerPublic []byte) (Session, []byte, error) {
	if len(peerPublic) != groupSize {
		return nil, nil, fmt.Errorf("dh: peer public value must be %d bytes, got %d", groupSize, len(peerPublic))
	}

	theirPublic := new(big.Int).SetBytes(peerPublic)
	one := big.NewInt(1)
	pMinusOne := new(big.Int).Sub(dhPrime, one)
	if theirPublic.Cmp(one) <= 0 || theirPublic.Cmp(pMinusOne) >= 0 {
		return nil, nil, fmt.Errorf("dh: peer public value out of range")
	}

	private, err := rand.Int(rand.Reader, dhPrime)
	if err != nil {
		return nil, nil, fmt.Errorf("dh: generate private exponent: %w", err)
	}
	ourPublic := new(big.Int).Exp(dhGenerator, private, dhPrime)
	shared := new(big.Int).Exp(theirPublic, private, dhPrime)

	aesKey := make([]byte, 16)
	if _, err := hkdf.New(sha256.New, groupBytes(shared), nil, nil).Read(aesKey); err != nil {
		return nil, nil, fmt.Errorf("dh: HKDF-SHA-256 derive: %w", err)
	}

	return &dhSession{aesKey: aesKey}, groupBytes(ourPublic), nil
}

// groupBytes renders n as exactly groupSize bytes, big-endian, left-padded
// with zeros — the fixed-width encoding spec 8 requires for DH public values.
func groupBytes(n *big.Int) []byte {
	raw := n.Bytes()
	out := make([]byte, groupSize)
	copy(out[groupSize-len(raw):], raw)
	return out
}

func (s *dhSession) Algorithm() string { return AlgorithmDH }

// Encrypt pads plaintext with PKCS7, draws a fresh random IV, and encrypts
// under AES-128-CBC. The IV is returned as the parameters value, never
// reused across calls.
func (s *dhSession) Encrypt(plaintext []byte) (parameters, ciphertext []byte, err error) {
	block, err := aes.NewCipher(s.aesKey)
	if err != nil {
		return nil, nil, err
	}

	padLen := aes.BlockSize - (len(plaintext) % aes.BlockSize)
	padded := make([]byte, len(plaintext)+padLen)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, err
	}

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return iv, out, nil
}

// Decrypt reverses Encrypt: CBC-decrypt under parameters as the IV, then
// strip and validate PKCS7 padding. Wrong IV length or malformed padding is
// reported as an error; the Store is never consulted from here.
func (s *dhSession) Decrypt(parameters, ciphertext []byte) (plaintext []byte, err error) {
	if len(parameters) != aes.BlockSize {
		return nil, fmt.Errorf("dh: invalid IV length %d", len(parameters))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("dh: invalid ciphertext length %d", len(ciphertext))
	}

	block, err := aes.NewCipher(s.aesKey)
	if err != nil {
		return nil, err
	}

	decrypted := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, parameters).CryptBlocks(decrypted, ciphertext)

	padLen := int(decrypted[len(decrypted)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(decrypted) {
		return nil, fmt.Errorf("dh: invalid PKCS7 padding")
	}
	for _, b := range decrypted[len(decrypted)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("dh: invalid PKCS7 padding")
		}
	}

	return decrypted[:len(decrypted)-padLen], nil
}
