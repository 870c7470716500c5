package crypto

import "runtime"

// Wipe zeroes b. Session keys and box private keys are wiped as soon as
// the handshake or the transport is done with them.
//
//go:noinline
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}

// WipeKey zeroes a fixed-size key. A nil key is ignored.
func WipeKey(k *[KeySize]byte) {
	if k != nil {
		Wipe(k[:])
	}
}
