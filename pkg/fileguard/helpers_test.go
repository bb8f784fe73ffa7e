package fileguard_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fileguard-project/fileguard/pkg/fileguard"
	"github.com/fileguard-project/fileguard/pkg/model"
)

func newManager(t *testing.T, opts fileguard.Options) *fileguard.Manager {
	t.Helper()
	if opts.StagingDir == "" {
		opts.StagingDir = t.TempDir()
	}
	if opts.Engine == "" {
		opts.Engine = model.EngineCopy
	}
	return fileguard.NewManager(opts)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func assertNoStaging(t *testing.T, m *fileguard.Manager, base string) {
	t.Helper()
	require.Empty(t, m.StagingDir())
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Empty(t, entries, "staging area must be removed")
}

// stagedArea extracts the staging area from a restore error's
// "staged copy kept at <area>/<id>" note.
func stagedArea(t *testing.T, err error) string {
	t.Helper()
	const marker = "staged copy kept at "
	msg := err.Error()
	i := strings.Index(msg, marker)
	require.GreaterOrEqual(t, i, 0, "no staged location in %q", msg)
	rest := msg[i+len(marker):]
	end := strings.IndexByte(rest, ')')
	require.Greater(t, end, 0)
	return filepath.Dir(rest[:end])
}
