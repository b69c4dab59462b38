// Package hasher wraps crypto/sha1 behind the chunked accumulator contract
// the streamer needs: update, finalize, reset, with no I/O of its own.
package hasher

import (
	"crypto/sha1"
	"encoding/hex"
	"hash"
)

// SHA1 is a chunked SHA-1 accumulator. The zero value is not usable; use New.
type SHA1 struct {
	h hash.Hash
}

// New returns a ready-to-use accumulator.
func New() *SHA1 {
	return &SHA1{h: sha1.New()}
}

// Update feeds bytes into the running digest. A zero-length chunk is a
// no-op; sha1.Hash.Write never returns an error, so Update does not either.
func (s *SHA1) Update(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.h.Write(chunk)
}

// Finalize returns the 40-character lowercase hex digest of everything
// written so far. It does not reset the accumulator.
func (s *SHA1) Finalize() string {
	return hex.EncodeToString(s.h.Sum(nil))
}

// Reset returns the accumulator to its initial state so it can be reused.
func (s *SHA1) Reset() {
	s.h.Reset()
}
