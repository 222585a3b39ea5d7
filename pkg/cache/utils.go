package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateKeyWithParams joins a prefix and parameters into a colon-separated
// key.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range params {
		fmt.Fprintf(&b, ":%v", p)
	}
	return b.String()
}

// HashKey shortens a key to its SHA-256 hex digest. Report keys embed
// arbitrary parameters, so the digest keeps them bounded and safe for any
// backend.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Fingerprint hashes a dated count series into a stable identity. Two
// inputs share a fingerprint iff they contain the same dates with the
// same counts in the same order.
func Fingerprint(dates []time.Time, counts []int) string {
	hasher := sha256.New()
	var buf [8]byte
	for i := range dates {
		binary.BigEndian.PutUint64(buf[:], uint64(dates[i].Unix()))
		hasher.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(counts[i]))
		hasher.Write(buf[:])
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
