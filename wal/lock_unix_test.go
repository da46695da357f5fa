//go:build unix

package wal

import (
	"testing"

	"github.com/ColdToo/Cold2Sync/code"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAL_DirectoryLock(t *testing.T) {
	dir := t.TempDir()
	w := openWAL(t, dir, testConfig(dir))

	_, err := Open(dir, testConfig(dir))
	assert.ErrorIs(t, err, code.ErrWalLocked)

	require.NoError(t, w.Close())
	w = openWAL(t, dir, testConfig(dir))
	require.NoError(t, w.Close())
}
