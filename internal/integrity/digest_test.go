package integrity_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fileguard-project/fileguard/internal/integrity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_Deterministic(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		sub := filepath.Join(dir, "d", string(rune('a'+i)))
		require.NoError(t, os.MkdirAll(sub, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "f.txt"), []byte{byte(i)}, 0644))
	}

	hash1, err := integrity.Digest(dir)
	require.NoError(t, err)
	hash2, err := integrity.Digest(dir)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2, "hash must be deterministic despite concurrent walking")
	assert.Len(t, string(hash1), 64)
}

func TestDigest_DetectsContentChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	os.WriteFile(file, []byte("original"), 0644)

	hash1, _ := integrity.Digest(dir)
	os.WriteFile(file, []byte("modified"), 0644)
	hash2, _ := integrity.Digest(dir)

	assert.NotEqual(t, hash1, hash2)
}

func TestDigest_DetectsAddedEmptyDir(t *testing.T) {
	dir := t.TempDir()
	hash1, _ := integrity.Digest(dir)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "empty"), 0755))
	hash2, _ := integrity.Digest(dir)
	assert.NotEqual(t, hash1, hash2)
}

func TestDigest_DetectsPermissionChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	os.WriteFile(file, []byte("content"), 0644)

	hash1, _ := integrity.Digest(dir)
	require.NoError(t, os.Chmod(file, 0600))
	hash2, _ := integrity.Digest(dir)
	assert.NotEqual(t, hash1, hash2)
}

func TestDigest_IgnoresModTime(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("content"), 0644))

	hash1, _ := integrity.Digest(file)
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(file, later, later))
	hash2, _ := integrity.Digest(file)
	assert.Equal(t, hash1, hash2)
}

func TestDigest_SameTreeDifferentLocation(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	for _, root := range []string{a, b} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "x"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "x", "y"), []byte("same"), 0644))
		require.NoError(t, os.Symlink("x/y", filepath.Join(root, "link")))
	}

	ha, err := integrity.Digest(a)
	require.NoError(t, err)
	hb, err := integrity.Digest(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestDigest_FileVersusDirDiffer(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "f")
	dir := filepath.Join(base, "d")
	require.NoError(t, os.WriteFile(file, nil, 0755))
	require.NoError(t, os.Mkdir(dir, 0755))

	hf, _ := integrity.Digest(file)
	hd, _ := integrity.Digest(dir)
	assert.NotEqual(t, hf, hd)
}

func TestDigest_Missing(t *testing.T) {
	_, err := integrity.Digest(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
