package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "walletcheckin/pkg/errors"
)

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallets.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDropsMalformedLinesInOrder(t *testing.T) {
	path := writeList(t, "0xaaa\n0xbbb\n\nnot-an-address\n0xccc\r\n  0xddd  \n0xeee\n")

	addrs, stats, err := LoadWithStats(path, DefaultPrefix)
	require.NoError(t, err)

	assert.Equal(t, []string{"0xaaa", "0xbbb", "0xccc", "0xddd", "0xeee"}, addrs)
	assert.Equal(t, Stats{Lines: 7, Valid: 5, Blank: 1, Invalid: 1}, stats)
}

func TestLoadLogsAndReturnsAddresses(t *testing.T) {
	path := writeList(t, "0x1\n0x2\n")

	addrs, err := Load(path, DefaultPrefix)
	require.NoError(t, err)
	assert.Len(t, addrs, 2)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"), DefaultPrefix)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeConfiguration))
}

func TestLoadNoValidAddresses(t *testing.T) {
	path := writeList(t, "\n\nhello\nworld\n")

	_, err := Load(path, DefaultPrefix)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeConfiguration))
	assert.Contains(t, err.Error(), "no valid addresses")
}

func TestValid(t *testing.T) {
	tests := []struct {
		line   string
		prefix string
		want   bool
	}{
		{"0xabc", "0x", true},
		{"  0xabc ", "0x", true},
		{"0x", "0x", false},
		{"abc", "0x", false},
		{"", "0x", false},
		{"   ", "", false},
		{"anything", "", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Valid(tt.line, tt.prefix), "Valid(%q, %q)", tt.line, tt.prefix)
	}
}
