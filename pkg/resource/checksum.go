package resource

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// Checksum is the lower-case hex sha256 of a blob's content.
type Checksum string

// ComputeChecksum hashes everything readable from r.
func ComputeChecksum(r io.Reader) (Checksum, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return Checksum(hex.EncodeToString(h.Sum(nil))), nil
}

// ChecksumBytes hashes an in-memory buffer.
func ChecksumBytes(data []byte) Checksum {
	sum, _ := ComputeChecksum(bytes.NewReader(data))
	return sum
}

// IsZero reports whether no checksum is set.
func (c Checksum) IsZero() bool {
	return c == ""
}

func (c Checksum) String() string {
	return string(c)
}

// HashingReader passes reads through while hashing the bytes that were read.
type HashingReader struct {
	r io.Reader
	h hash.Hash
}

// NewHashingReader wraps r.
func NewHashingReader(r io.Reader) *HashingReader {
	return &HashingReader{r: r, h: sha256.New()}
}

func (hr *HashingReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	if n > 0 {
		hr.h.Write(p[:n])
	}
	return n, err
}

// Checksum returns the checksum of everything read so far.
func (hr *HashingReader) Checksum() Checksum {
	return Checksum(hex.EncodeToString(hr.h.Sum(nil)))
}
