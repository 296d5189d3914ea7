package protocol

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// Every Broadlink device ships with the same factory key and IV. They are
// only good for the discovery/authentication phase; Authenticate swaps the
// key for a per-session one while the IV stays fixed for the lifetime of
// the protocol.
var (
	initialKey = [16]byte{
		0x09, 0x76, 0x28, 0x34, 0x3f, 0xe9, 0x9e, 0x23,
		0x76, 0x5c, 0x15, 0x13, 0xac, 0xcf, 0x8b, 0x02,
	}
	initialVector = [16]byte{
		0x56, 0x2e, 0x17, 0x99, 0x6d, 0x09, 0x3d, 0x28,
		0xdd, 0xb3, 0xba, 0x69, 0x5a, 0x2e, 0x6f, 0x58,
	}
)

// CryptoError reports a failure to encrypt or decrypt a payload.
type CryptoError struct {
	Message string
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto error: %s", e.Message)
}

// EncryptionContext holds the AES-128 key/IV pair used to encrypt command
// payloads. One context belongs to exactly one device; contexts are never
// shared or mutated, a fresh one is created when a session key is derived.
type EncryptionContext struct {
	key [16]byte
	iv  [16]byte
}

// DefaultContext returns the pre-authentication context built from the
// factory key and IV.
func DefaultContext() *EncryptionContext {
	return &EncryptionContext{key: initialKey, iv: initialVector}
}

// SessionContext returns a context using the handshake-derived session key.
// The IV remains the protocol IV; the device never issues a new one.
func SessionContext(key [16]byte) *EncryptionContext {
	return &EncryptionContext{key: key, iv: initialVector}
}

// Key returns a copy of the context's key.
func (c *EncryptionContext) Key() [16]byte { return c.key }

// IV returns a copy of the context's IV.
func (c *EncryptionContext) IV() [16]byte { return c.iv }

// Encrypt applies AES-128-CBC to the payload, zero-padding it up to the
// cipher block size first. The input slice is not modified.
func (c *EncryptionContext) Encrypt(payload []byte) []byte {
	padded := make([]byte, pad(len(payload), aes.BlockSize))
	copy(padded, payload)

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		// Key length is fixed at 16 bytes, NewCipher cannot fail.
		panic(err)
	}

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, c.iv[:]).CryptBlocks(out, padded)
	return out
}

// Decrypt reverses Encrypt. Zero padding is left in place: every message
// codec in this package carries an explicit length and slices fixed
// offsets, so stripping trailing zeros here would only corrupt payloads
// that legitimately end in zero bytes.
func (c *EncryptionContext) Decrypt(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &CryptoError{Message: "empty ciphertext"}
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, &CryptoError{
			Message: fmt.Sprintf("ciphertext length %d is not a multiple of the block size", len(data)),
		}
	}

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		panic(err)
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, c.iv[:]).CryptBlocks(out, data)
	return out, nil
}

// pad rounds n up to the next multiple of blockSize.
func pad(n, blockSize int) int {
	if n%blockSize == 0 {
		return n
	}
	return n + blockSize - n%blockSize
}
