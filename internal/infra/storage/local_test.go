package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

func TestLocal_PutGetRoundTrip(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocal(root)
	require.NoError(t, err)

	ref, err := s.Put(context.Background(), "p1/scan-1", pngHeader, "image/png")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "p1", "scan-1"))

	data, contentType, err := s.Get(context.Background(), ref)
	require.NoError(t, err, "Get accepts the ref Put returned")
	assert.Equal(t, pngHeader, data)
	assert.Equal(t, "image/png", contentType)
}

func TestLocal_NestedKeysCreateDirectories(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocal(root)
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "clinic-7/p1/scan-1", []byte("x"), "")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "clinic-7", "p1", "scan-1"))
	assert.NoError(t, err)
}

func TestLocal_GetMissingKey(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Get(context.Background(), "p1/ghost")
	assert.Error(t, err)
}

func TestLocal_RejectsTraversal(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../outside", []byte("x"), "")
	assert.Error(t, err)
	_, _, err = s.Get(context.Background(), "")
	assert.Error(t, err)
}

func TestLocal_CheckReportsMissingRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocal(root)
	require.NoError(t, err)
	assert.NoError(t, s.Check(context.Background()))

	require.NoError(t, os.RemoveAll(root))
	assert.Error(t, s.Check(context.Background()))
}
