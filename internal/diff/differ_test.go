package diff

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fileguard-project/fileguard/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(changes []*model.Change) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Path)
	}
	return out
}

func TestCompare_NoChanges(t *testing.T) {
	before := t.TempDir()
	after := t.TempDir()
	for _, root := range []string{before, after} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("hello world"), 0644))
	}

	report, err := Compare(before, after)
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.Contains(t, report.FormatHuman(), "no changes")
}

func TestCompare_DirectoryChanges(t *testing.T) {
	before := t.TempDir()
	after := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(before, "keep.txt"), []byte("same"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(after, "keep.txt"), []byte("same"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(before, "gone.txt"), []byte("bye"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(before, "edit.txt"), []byte("v1"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(after, "edit.txt"), []byte("version 2"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(after, "new", "empty"), 0755))

	report, err := Compare(before, after)
	require.NoError(t, err)

	assert.False(t, report.Deleted)
	assert.Equal(t, []string{"new", "new/empty"}, paths(report.Added))
	assert.Equal(t, []string{"gone.txt"}, paths(report.Removed))
	require.Len(t, report.Modified, 1)
	assert.Equal(t, "edit.txt", report.Modified[0].Path)
	assert.Equal(t, int64(2), report.Modified[0].OldSize)
	assert.Equal(t, int64(9), report.Modified[0].Size)

	human := report.FormatHuman()
	assert.Contains(t, human, "+ new/empty")
	assert.Contains(t, human, "- gone.txt")
	assert.Contains(t, human, "~ edit.txt (2 -> 9 bytes)")
}

func TestCompare_FileRoot(t *testing.T) {
	dir := t.TempDir()
	before := filepath.Join(dir, "staged")
	after := filepath.Join(dir, "live")
	require.NoError(t, os.WriteFile(before, []byte{0, 1, 2}, 0644))
	require.NoError(t, os.WriteFile(after, []byte{0, 1, 3}, 0644))

	report, err := Compare(before, after)
	require.NoError(t, err)
	require.Len(t, report.Modified, 1)
	assert.Equal(t, ".", report.Modified[0].Path)
	assert.Equal(t, model.KindFile, report.Modified[0].Kind)
}

func TestCompare_Deleted(t *testing.T) {
	before := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(before, "a"), nil, 0644))

	report, err := Compare(before, filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.True(t, report.Deleted)
	assert.Equal(t, []string{".", "a"}, paths(report.Removed))
	assert.Contains(t, report.FormatHuman(), "(deleted)")
}

func TestCompare_KindChange(t *testing.T) {
	dir := t.TempDir()
	before := filepath.Join(dir, "staged")
	after := filepath.Join(dir, "live")
	require.NoError(t, os.WriteFile(before, []byte("x"), 0644))
	require.NoError(t, os.Mkdir(after, 0755))

	report, err := Compare(before, after)
	require.NoError(t, err)
	require.Len(t, report.Modified, 1)
	assert.Equal(t, model.KindDir, report.Modified[0].Kind)
}

func TestCompare_StagedMissing(t *testing.T) {
	_, err := Compare(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	assert.Error(t, err)
}
