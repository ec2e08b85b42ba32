// This is free and unencumbered software released into the public domain.
//
// Anyone is free to copy, modify, publish, use, compile, sell, or
// distribute this software, either in source code form or as a compiled
// binary, for any purpose, commercial or non-commercial, and by any
// means.
//
// In jurisdictions that recognize copyright laws, the author or authors
// of this software dedicate any and all copyright interest in the
// software to the public domain. We make this dedication for the benefit
// of the public at large and to the detriment of our heirs and
// successors. We intend this dedication to be an overt act of
// relinquishment in perpetuity of all present and future rights to this
// software under copyright law.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.
//
// For more information, please refer to <https://unlicense.org>

package logcrypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
)

// ErrNoSecretKey is returned by Sign when the keypair was opened
// read-only (public key only).
var ErrNoSecretKey = errors.New("logcrypto: no secret key available")

// KeyPair holds a log's Ed25519 identity. SecretKey is nil for a
// read-only (verify-only) keypair.
type KeyPair struct {
	PublicKey ed25519.PublicKey
	SecretKey ed25519.PrivateKey
}

// GenerateKeyPair creates a new random writable keypair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{PublicKey: pub, SecretKey: priv}, nil
}

// ReadOnly returns a KeyPair carrying only a public key, suitable
// for verification without append rights.
func ReadOnly(pub ed25519.PublicKey) *KeyPair {
	return &KeyPair{PublicKey: pub}
}

// CanSign reports whether the keypair holds a secret half.
func (k *KeyPair) CanSign() bool {
	return k != nil && len(k.SecretKey) == ed25519.PrivateKeySize
}

// Sign produces a detached signature over the 32-byte tree hash.
func Sign(kp *KeyPair, treeHash Hash) ([]byte, error) {
	if !kp.CanSign() {
		return nil, ErrNoSecretKey
	}
	return ed25519.Sign(kp.SecretKey, treeHash[:]), nil
}

// Verify checks a detached signature over a tree hash against a
// public key.
func Verify(pub ed25519.PublicKey, treeHash Hash, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, treeHash[:], signature)
}
