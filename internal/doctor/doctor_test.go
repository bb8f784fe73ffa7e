package doctor_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileguard-project/fileguard/internal/doctor"
	"github.com/fileguard-project/fileguard/internal/engine"
	"github.com/fileguard-project/fileguard/internal/store"
	"github.com/fileguard-project/fileguard/pkg/fsutil"
	"github.com/fileguard-project/fileguard/pkg/model"
)

// orphan leaves a verified staging area for file owned by a dead process.
func orphan(t *testing.T, base, file string) (string, *store.StagedCopy) {
	t.Helper()
	s := store.New(store.Options{BaseDir: base, Engine: engine.NewCopyEngine(), Verify: true})
	sc, err := s.Capture(file)
	require.NoError(t, err)

	host, err := os.Hostname()
	require.NoError(t, err)
	data, err := json.Marshal(model.OwnerRecord{PID: 1 << 30, Hostname: host, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.StagingDir(), model.OwnerFile), data, 0600))
	return s.StagingDir(), sc
}

func categories(r *doctor.Result) []string {
	var out []string
	for _, f := range r.Findings {
		out = append(out, f.Category)
	}
	return out
}

func TestDoctor_Check_Healthy(t *testing.T) {
	doc := doctor.NewDoctor(t.TempDir(), model.EngineCopy)
	result, err := doc.Check(true)
	require.NoError(t, err)
	assert.True(t, result.Healthy)
	assert.Empty(t, result.Findings)
	assert.Equal(t, model.EngineCopy, result.Engine)
}

func TestDoctor_Check_MissingBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "later")
	result, err := doctor.NewDoctor(base, model.EngineAuto).Check(false)
	require.NoError(t, err)
	assert.True(t, result.Healthy)
	assert.Equal(t, []string{"staging"}, categories(result))
}

func TestDoctor_Check_BaseIsFile(t *testing.T) {
	base := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(base, nil, 0644))

	result, err := doctor.NewDoctor(base, model.EngineAuto).Check(false)
	require.NoError(t, err)
	assert.False(t, result.Healthy)
	assert.Equal(t, "critical", result.Findings[0].Severity)
}

func TestDoctor_Check_Orphan(t *testing.T) {
	base := t.TempDir()
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	area, _ := orphan(t, base, file)
	require.NoError(t, os.WriteFile(filepath.Join(dir, fsutil.TempPrefix+"restore-leftover"), nil, 0644))

	result, err := doctor.NewDoctor(base, model.EngineCopy).Check(false)
	require.NoError(t, err)
	assert.True(t, result.Healthy, "orphans are warnings")
	assert.Contains(t, categories(result), "orphan")
	assert.Contains(t, categories(result), "tmp")
	assert.Equal(t, area, result.Findings[0].Path)
}

func TestDoctor_Check_StrictDetectsCorruptStagedCopy(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, sc := orphan(t, base, file)
	require.NoError(t, os.WriteFile(sc.Location(), []byte("tampered"), 0644))

	result, err := doctor.NewDoctor(base, model.EngineCopy).Check(false)
	require.NoError(t, err)
	assert.True(t, result.Healthy)

	result, err = doctor.NewDoctor(base, model.EngineCopy).Check(true)
	require.NoError(t, err)
	assert.False(t, result.Healthy)
	assert.Contains(t, categories(result), "integrity")
}
