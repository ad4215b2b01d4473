package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest - фиксированный 256 битный хеш (совместим с source.File.Hash)
type Digest [32]byte

// DigestOf hashes raw bytes.
func DigestOf(b []byte) Digest {
	return Digest(sha256.Sum256(b))
}

// Combine строит составной хеш: H( first || rest... ).
// Порядок аргументов должен быть детерминированным.
func Combine(first Digest, rest ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(first[:])
	for _, d := range rest {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// IsZero reports whether the digest was never set.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Hex returns the full hex form.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, for logs.
func (d Digest) Short() string {
	return d.Hex()[:12]
}
