package iooperator

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOperator(t *testing.T, name string) IoOperator {
	t.Helper()
	op, err := NewFileIoOperator(filepath.Join(t.TempDir(), name))
	require.NoError(t, err)
	return op
}

func writeSomeData(t *testing.T, op IoOperator) []int64 {
	tests := [][]byte{
		[]byte(""),
		[]byte("1"),
		[]byte("cold2sync"),
	}

	var offsets []int64
	var offset int64
	for _, tt := range tests {
		offsets = append(offsets, offset)
		n, err := op.Write(tt, offset)
		assert.Nil(t, err)
		offset += int64(n)
	}
	return offsets
}

func TestFileIoOperator_Write(t *testing.T) {
	op := newTestOperator(t, "00000001.SEG")
	defer op.Close()

	tests := []struct {
		name    string
		b       []byte
		offset  int64
		want    int
		wantErr bool
	}{
		{"nil-byte", nil, 0, 0, false},
		{"one-byte", []byte("0"), 0, 1, false},
		{"many-bytes", []byte("cold2sync"), 0, 9, false},
		{"big-value", []byte(fmt.Sprintf("%01048576d", 123)), 0, 1048576, false},
		{"negative-offset", []byte("cold2sync"), -1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := op.Write(tt.b, tt.offset)
			if (err != nil) != tt.wantErr {
				t.Errorf("Write() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("Write() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileIoOperator_Read(t *testing.T) {
	op := newTestOperator(t, "00000002.SEG")
	defer op.Close()
	offsets := writeSomeData(t, op)

	buf := make([]byte, 9)
	n, err := op.Read(buf, offsets[2])
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, []byte("cold2sync"), buf)

	one := make([]byte, 1)
	_, err = op.Read(one, offsets[1])
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), one)

	_, err = op.Read(make([]byte, 100), 1024)
	assert.Error(t, err)
}

func TestFileIoOperator_SizeAndTruncate(t *testing.T) {
	op := newTestOperator(t, "00000003.SEG")
	defer op.Close()
	writeSomeData(t, op)

	size, err := op.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 10, size)

	require.NoError(t, op.Truncate(4))
	size, err = op.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 4, size)
}

func TestFileIoOperator_Sync(t *testing.T) {
	op := newTestOperator(t, "00000004.SEG")
	defer op.Close()
	writeSomeData(t, op)
	assert.NoError(t, op.Sync())
}

func TestFileIoOperator_Delete(t *testing.T) {
	op := newTestOperator(t, "00000005.SEG")
	writeSomeData(t, op)
	name := op.Name()

	require.NoError(t, op.Delete())
	_, err := os.Stat(name)
	assert.True(t, os.IsNotExist(err))
}
