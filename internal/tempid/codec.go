// Package tempid decodes the rotating temporary IDs that devices broadcast.
//
// A temp ID is base64(nonce || AES-256-GCM(validFrom | validTo | uid)) where
// validFrom and validTo are big endian uint32 epoch seconds.
package tempid

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// KeySize is the length of an AES-256 key.
const KeySize = 32

const headerSize = 8

// ErrDecrypt is returned when a blob cannot be opened with a given key.
var ErrDecrypt = errors.New("tempid: decrypt failed")

// TempID is the decoded content of a broadcast message.
type TempID struct {
	UID       string
	ValidFrom int64
	ValidTo   int64
}

// Codec opens and seals temp IDs.
type Codec struct{}

// Decrypt opens blob with key.
func (Codec) Decrypt(blob string, key []byte) (TempID, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return TempID{}, fmt.Errorf("%w: decode base64: %v", ErrDecrypt, err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return TempID{}, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(data) < gcm.NonceSize()+gcm.Overhead() {
		return TempID{}, fmt.Errorf("%w: payload too short", ErrDecrypt)
	}
	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return TempID{}, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(plain) <= headerSize {
		return TempID{}, fmt.Errorf("%w: plaintext too short", ErrDecrypt)
	}
	return TempID{
		ValidFrom: int64(binary.BigEndian.Uint32(plain[0:4])),
		ValidTo:   int64(binary.BigEndian.Uint32(plain[4:8])),
		UID:       string(plain[headerSize:]),
	}, nil
}

// Encrypt seals id with key, reading the nonce from random.
func (Codec) Encrypt(id TempID, key []byte, random io.Reader) (string, error) {
	if id.UID == "" {
		return "", errors.New("tempid: uid is required")
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	plain := make([]byte, headerSize, headerSize+len(id.UID))
	binary.BigEndian.PutUint32(plain[0:4], uint32(id.ValidFrom))
	binary.BigEndian.PutUint32(plain[4:8], uint32(id.ValidTo))
	plain = append(plain, id.UID...)

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(random, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, plain, nil)), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
