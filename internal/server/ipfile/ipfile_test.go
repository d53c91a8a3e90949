package ipfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadValidAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myip.txt")
	require.NoError(t, os.WriteFile(path, []byte("203.0.113.5\n"), 0644))

	ip, err := NewReader(path).Read()
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.5", ip)
}

func TestReadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myip.txt")

	_, err := NewReader(path).Read()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadInvalidContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myip.txt")
	require.NoError(t, os.WriteFile(path, []byte("not-an-ip"), 0644))

	content, err := NewReader(path).Read()
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "not-an-ip", content)
}

func TestReadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "myip.txt")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := NewReader(path).Read()
	assert.ErrorIs(t, err, ErrInvalid)
}
