package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	HashSize = sha256.Size
)

/*
	Hashing is used for chain linkage (a block's prevBlockHash is the hash of the canonical bytes of its parent)
	and for identifying transactions. Every participant computes it independently so it must be a pure function
	of the input bytes.
*/

// Hash() executes the global hashing algorithm on input bytes
func Hash(msg []byte) []byte {
	h := sha256.Sum256(msg)
	return h[:]
}

// HashString() returns the hex version of a hash
func HashString(msg []byte) string { return hex.EncodeToString(Hash(msg)) }

// MerkleRoot() folds the hashes of the items pairwise up to a single root.
// An odd node at any level is paired with itself. An empty list has an empty root.
func MerkleRoot(items [][]byte) []byte {
	if len(items) == 0 {
		return []byte{}
	}
	level := make([][]byte, len(items))
	for i, item := range items {
		level[i] = Hash(item)
	}
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left, right := level[i], level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, Hash(concat(left, right)))
		}
		level = next
	}
	return level[0]
}

// concat() concatenates two byte slices
func concat(a, b []byte) []byte {
	out := make([]byte, len(a)+len(b))
	copy(out, a)
	copy(out[len(a):], b)
	return out
}
