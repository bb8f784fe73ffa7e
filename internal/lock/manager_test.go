package lock_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileguard-project/fileguard/internal/lock"
	"github.com/fileguard-project/fileguard/pkg/errclass"
)

func TestManager_Acquire(t *testing.T) {
	area := t.TempDir()
	mgr := lock.NewManager(time.Minute)

	rec, err := mgr.Acquire(area)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.HolderNonce)
	assert.Equal(t, int64(1), rec.FencingToken)
	assert.FileExists(t, filepath.Join(area, lock.FileName))

	status, err := mgr.Status(area)
	require.NoError(t, err)
	assert.Equal(t, rec.HolderNonce, status.HolderNonce)
}

func TestManager_AcquireConflict(t *testing.T) {
	area := t.TempDir()
	_, err := lock.NewManager(time.Minute).Acquire(area)
	require.NoError(t, err)

	_, err = lock.NewManager(time.Minute).Acquire(area)
	assert.True(t, errors.Is(err, errclass.ErrLockConflict))
}

func TestManager_StealExpired(t *testing.T) {
	area := t.TempDir()
	first, err := lock.NewManager(10 * time.Millisecond).Acquire(area)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	second, err := lock.NewManager(time.Minute).Acquire(area)
	require.NoError(t, err)
	assert.NotEqual(t, first.HolderNonce, second.HolderNonce)
	assert.Equal(t, first.FencingToken+1, second.FencingToken)
}

func TestManager_Release(t *testing.T) {
	area := t.TempDir()
	mgr := lock.NewManager(time.Minute)
	rec, err := mgr.Acquire(area)
	require.NoError(t, err)

	err = mgr.Release(area, "wrong")
	assert.True(t, errors.Is(err, errclass.ErrLockNotHeld))

	require.NoError(t, mgr.Release(area, rec.HolderNonce))
	assert.NoFileExists(t, filepath.Join(area, lock.FileName))
	assert.NoError(t, mgr.Release(area, rec.HolderNonce))

	status, err := mgr.Status(area)
	require.NoError(t, err)
	assert.Nil(t, status)
}
