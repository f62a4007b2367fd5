package keys

import (
	"crypto/subtle"
	"errors"
	"runtime"
)

// SecureWipe overwrites data in place with zeros using a constant-time XOR
// (x XOR x = 0) so the compiler cannot elide the write, then pins the
// slice alive past the wipe with runtime.KeepAlive.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("keys: cannot wipe nil data")
	}
	subtle.XORBytes(data, data, data)
	runtime.KeepAlive(data)
	return nil
}

// ZeroBytes wipes data, discarding the (never-failing for non-nil input)
// error from SecureWipe.
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}

// Wipe securely erases the private half of a KeyPair. The public half is
// not secret and is left untouched.
func (kp *KeyPair) Wipe() {
	if kp == nil {
		return
	}
	ZeroBytes(kp.Private[:])
}
