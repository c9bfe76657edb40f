package fingerprint

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/mediavault/internal/domain"
)

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestFile_Deterministic(t *testing.T) {
	path := writeTempFile(t, "a.bin", []byte("Content A"))

	fp1, size1, err := File(path)
	require.NoError(t, err)

	fp2, size2, err := File(path)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Equal(t, size1, size2)
	assert.Equal(t, int64(len("Content A")), size1)
}

func TestFile_FixedHexWidth(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"empty", nil},
		{"small", []byte("x")},
		{"larger", bytes.Repeat([]byte("mediavault"), 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, "f.bin", tt.content)

			fp, _, err := File(path)
			require.NoError(t, err)

			assert.Len(t, fp, domain.FingerprintHexLen)
			assert.True(t, domain.ValidFingerprint(fp), "fingerprint must be lowercase hex")
		})
	}
}

func TestFile_DistinctContent(t *testing.T) {
	pathA := writeTempFile(t, "a.bin", []byte("Content A"))
	pathB := writeTempFile(t, "b.bin", []byte("Content B"))

	fpA, _, err := File(pathA)
	require.NoError(t, err)
	fpB, _, err := File(pathB)
	require.NoError(t, err)

	assert.NotEqual(t, fpA, fpB)
}

func TestFile_IndependentOfName(t *testing.T) {
	pathA := writeTempFile(t, "first.jpg", []byte("same bytes"))
	pathB := writeTempFile(t, "second.png", []byte("same bytes"))

	fpA, _, err := File(pathA)
	require.NoError(t, err)
	fpB, _, err := File(pathB)
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
}

func TestFile_NotFound(t *testing.T) {
	_, _, err := File(filepath.Join(t.TempDir(), "missing.bin"))
	assert.True(t, errors.Is(err, domain.ErrFileNotFound))
}

func TestReader_MatchesBytes(t *testing.T) {
	data := []byte("stream me")

	fromReader, size, err := Reader(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, Bytes(data), fromReader)
	assert.Equal(t, int64(len(data)), size)
}

func TestVerify(t *testing.T) {
	path := writeTempFile(t, "v.bin", []byte("verify me"))

	fp, _, err := File(path)
	require.NoError(t, err)

	ok, err := Verify(path, fp)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(path, Bytes([]byte("something else")))
	require.NoError(t, err)
	assert.False(t, ok)
}
