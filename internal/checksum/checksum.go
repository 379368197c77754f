package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Record returns the digest of one journal line with surrounding whitespace
// removed, so a record read from a CRLF file and the same record posted to
// the API hash alike.
func Record(line []byte) string {
	return Sum(bytes.TrimSpace(line))
}
