package storage_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rudransh-shrivastava/rider-share/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskWriteRaw(t *testing.T) {
	d := storage.NewDisk(t.TempDir())

	err := d.Write(context.Background(), "received_file", []byte("hello"), storage.EncodingRaw)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(d.Root(), "received_file"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestDiskWriteBase64(t *testing.T) {
	d := storage.NewDisk(t.TempDir())

	err := d.Write(context.Background(), "nested/out", []byte("aGVsbG8="), storage.EncodingBase64)
	require.NoError(t, err)

	data, err := d.Read("nested/out")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestDiskWriteOverwrites(t *testing.T) {
	d := storage.NewDisk(t.TempDir())
	ctx := context.Background()

	require.NoError(t, d.Write(ctx, "received_file", []byte("first"), storage.EncodingRaw))
	require.NoError(t, d.Write(ctx, "received_file", []byte("second"), storage.EncodingRaw))

	data, err := d.Read("received_file")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(d.Root())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestDiskWriteRejectsEscapingPath(t *testing.T) {
	d := storage.NewDisk(t.TempDir())

	err := d.Write(context.Background(), "../../etc/passwd", []byte("x"), storage.EncodingRaw)
	assert.ErrorIs(t, err, storage.ErrInvalidPath)

	err = d.Write(context.Background(), "/abs", []byte("x"), storage.EncodingRaw)
	assert.ErrorIs(t, err, storage.ErrInvalidPath)
}

func TestDiskWriteErrors(t *testing.T) {
	d := storage.NewDisk(t.TempDir())

	err := d.Write(context.Background(), "f", []byte("x"), storage.Encoding("gzip"))
	assert.ErrorIs(t, err, storage.ErrUnknownEncoding)

	err = d.Write(context.Background(), "f", []byte("!!!"), storage.EncodingBase64)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = d.Write(ctx, "f", []byte("x"), storage.EncodingRaw)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHashFile(t *testing.T) {
	sum, err := storage.HashFile(bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)
}
