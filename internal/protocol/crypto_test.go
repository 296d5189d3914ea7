package protocol

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "short payload padded to one block", payload: []byte{0x01, 0x02, 0x03}},
		{name: "exact block", payload: bytesOf(0xAB, 16)},
		{name: "multi block with remainder", payload: bytesOf(0x42, 37)},
		{name: "payload ending in zeros survives", payload: []byte{0x01, 0x00, 0x00}},
	}

	ctx := DefaultContext()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted := ctx.Encrypt(tt.payload)
			if len(encrypted)%16 != 0 {
				t.Fatalf("ciphertext length %d is not block aligned", len(encrypted))
			}
			decrypted, err := ctx.Decrypt(encrypted)
			if err != nil {
				t.Fatalf("Decrypt() error: %v", err)
			}
			if !bytes.Equal(decrypted[:len(tt.payload)], tt.payload) {
				t.Errorf("round trip = % 02x, want % 02x", decrypted[:len(tt.payload)], tt.payload)
			}
			for _, b := range decrypted[len(tt.payload):] {
				if b != 0 {
					t.Errorf("padding region contains non-zero byte: % 02x", decrypted)
					break
				}
			}
		})
	}
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	ctx := DefaultContext()

	if _, err := ctx.Decrypt(nil); err == nil {
		t.Error("Decrypt(nil) should fail")
	}
	if _, err := ctx.Decrypt(make([]byte, 15)); err == nil {
		t.Error("Decrypt of a partial block should fail")
	}
	if _, err := ctx.Decrypt(make([]byte, 17)); err == nil {
		t.Error("Decrypt of unaligned input should fail")
	}
}

func TestSessionContextDiffersFromDefault(t *testing.T) {
	var key [16]byte
	for i := range key {
		key[i] = byte(i + 1)
	}

	def := DefaultContext()
	session := SessionContext(key)

	if session.Key() == def.Key() {
		t.Error("session context should carry its own key")
	}
	if session.IV() != def.IV() {
		t.Error("session context must keep the protocol IV")
	}

	payload := []byte("learned code bytes")
	if bytes.Equal(def.Encrypt(payload), session.Encrypt(payload)) {
		t.Error("different keys must produce different ciphertexts")
	}
}
