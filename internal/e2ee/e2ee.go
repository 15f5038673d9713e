// Package e2ee defines the payload-confidentiality scheme applied by
// clients before a message leaves the device. The server stores and
// forwards ciphertext opaquely and never computes a conversation
// secret; the package lives here so the reference client and the tests
// agree on the exact scheme.
//
// The secret is deterministic per conversation and is derived
// independently by both sides without a key exchange. There is no
// forward secrecy and no rotation; anyone who knows both participant
// IDs can derive a direct secret. That trade-off is inherited from the
// product's threat model and documented rather than strengthened.
package e2ee

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"sort"
	"strings"
)

// DecryptFailedPlaceholder is what clients render when a ciphertext
// does not open under the conversation secret. A wrong secret is a
// normal occurrence, not a fault.
const DecryptFailedPlaceholder = "[Decryption failed]"

// Conversation identifies whose secret protects a payload. It is an
// explicit tagged union; conversation type is never inferred from
// payload shape.
type Conversation interface {
	secretMaterial() string
}

// Direct is an unordered private conversation between two identities.
type Direct struct {
	A, B string
}

func (d Direct) secretMaterial() string {
	ids := []string{d.A, d.B}
	sort.Strings(ids)
	return strings.Join(ids, "")
}

// Group is a conversation among all members of a group.
type Group struct {
	ID string
}

func (g Group) secretMaterial() string {
	return g.ID
}

// Key derives the AES-256 key for a conversation.
func Key(conv Conversation) []byte {
	sum := sha256.Sum256([]byte(conv.secretMaterial()))
	return sum[:]
}

// Encrypt seals the plaintext under the conversation secret with
// AES-GCM and a fresh random nonce, returning base64 "nonce||sealed".
func Encrypt(plaintext string, conv Conversation) (string, error) {
	block, err := aes.NewCipher(Key(conv))
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aesgcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. A wrong secret or a
// malformed ciphertext yields ok=false; Decrypt never panics.
func Decrypt(ciphertext string, conv Conversation) (plaintext string, ok bool) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", false
	}

	block, err := aes.NewCipher(Key(conv))
	if err != nil {
		return "", false
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", false
	}
	if len(raw) < aesgcm.NonceSize() {
		return "", false
	}

	nonce, sealed := raw[:aesgcm.NonceSize()], raw[aesgcm.NonceSize():]
	opened, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", false
	}
	return string(opened), true
}

// DecryptOrPlaceholder is the client-facing convenience: failed
// decryption degrades to a fixed placeholder instead of an error.
func DecryptOrPlaceholder(ciphertext string, conv Conversation) string {
	if plaintext, ok := Decrypt(ciphertext, conv); ok {
		return plaintext
	}
	return DecryptFailedPlaceholder
}
