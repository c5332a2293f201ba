// Package cache memoizes entailment scores.
//
// A Store holds opaque bytes by key. ScoreCache sits between the verifier
// and a scorer, keying each (premise, hypothesis) pair by the model
// identity so scores from different models never mix.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Store defines the interface for a byte cache layer
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string) error
	Clear() error
	Len() int
}

// PairKey generates a cache key for one pair under a model namespace.
// Fields are length-prefixed so no two distinct inputs share a key.
func PairKey(namespace, premise, hypothesis string) string {
	h := sha256.New()
	for _, field := range []string{namespace, premise, hypothesis} {
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(field)))
		h.Write(size[:])
		h.Write([]byte(field))
	}
	return "claimgate:v1:" + hex.EncodeToString(h.Sum(nil))
}
