// Package fingerprint computes content identities for media blobs.
// A fingerprint is the BLAKE2b-512 hash of the raw byte content, rendered as
// 128 lowercase hex characters. Identical bytes always produce an identical
// fingerprint regardless of filename, timestamps, or path.
package fingerprint

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"

	"github.com/prn-tf/mediavault/internal/domain"
)

// bufferSize is the chunk size used when hashing files, so arbitrarily large
// inputs are processed with constant working memory.
const bufferSize = 8 * 1024 * 1024 // 8 MiB

// Reader computes the fingerprint of everything readable from r and returns
// it together with the number of bytes consumed.
func Reader(r io.Reader) (string, int64, error) {
	h, err := blake2b.New512(nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to initialize blake2b: %w", err)
	}

	buf := make([]byte, bufferSize)
	size, err := io.CopyBuffer(h, r, buf)
	if err != nil {
		return "", 0, fmt.Errorf("%w: reading content: %v", domain.ErrIO, err)
	}

	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// File computes the fingerprint of the file at path.
// A missing file surfaces as domain.ErrFileNotFound, an unreadable one as
// domain.ErrPermissionDenied, and any other I/O fault as domain.ErrIO.
func File(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, mapOpenError(path, err)
	}
	defer f.Close()

	return Reader(f)
}

// Bytes computes the fingerprint of an in-memory byte slice.
func Bytes(data []byte) string {
	sum := blake2b.Sum512(data)
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the fingerprint of the file at path and compares it to
// expected in constant time.
func Verify(path, expected string) (bool, error) {
	actual, _, err := File(path)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1, nil
}

// mapOpenError translates an os.Open failure into the domain error taxonomy.
func mapOpenError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return domain.NewDomainError(domain.ErrFileNotFound, "cannot open source file", path)
	case os.IsPermission(err):
		return domain.NewDomainError(domain.ErrPermissionDenied, "cannot read source file", path)
	default:
		return fmt.Errorf("%w: opening %s: %v", domain.ErrIO, path, err)
	}
}
