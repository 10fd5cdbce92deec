package hash

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

const bufferSize = 32 * 1024 // 32KB buffer for streaming

// Digest is the BLAKE3 sum of a file's full content. It is comparable and
// used directly as a map key by the grouping engine.
type Digest [32]byte

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 8 bytes hex-encoded, for log lines.
func (d Digest) Short() string {
	return hex.EncodeToString(d[:8])
}

// ParseDigest decodes a 64-character hex string.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("failed to decode digest: %w", err)
	}
	if len(decoded) != len(d) {
		return d, fmt.Errorf("digest is %d bytes, want %d", len(decoded), len(d))
	}
	copy(d[:], decoded)
	return d, nil
}

// HashFile computes the BLAKE3 digest of a file using streaming for large files
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return HashReader(file)
}

// HashReader computes the BLAKE3 digest of everything read from r.
func HashReader(r io.Reader) (Digest, error) {
	h := blake3.New()
	buf := make([]byte, bufferSize)

	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return Digest{}, fmt.Errorf("failed to read file: %w", err)
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// XXHashFunc is a custom hash function adapter for go-merkletree
// It converts []byte input to xxHash []byte output
func XXHashFunc(data []byte) ([]byte, error) {
	sum := xxhash.Sum64(data)

	// Convert uint64 to []byte in big-endian format
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, sum)
	return buf, nil
}
