package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileguard-project/fileguard/pkg/metrics"
	"github.com/fileguard-project/fileguard/pkg/model"
)

func TestRegistry_RecordsCounters(t *testing.T) {
	r := metrics.NewRegistry()

	r.RecordCapture(model.KindFile, true, time.Millisecond)
	r.RecordCapture(model.KindDir, true, time.Millisecond)
	r.RecordCapture("", false, time.Millisecond)
	r.RecordRestore(model.KindFile, true, time.Millisecond)
	r.SetStaged(2)
	r.StagingAreaCreated()

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["fileguard_captures_total"])
	assert.True(t, names["fileguard_restores_total"])
	assert.True(t, names["fileguard_staged_copies"])
	assert.True(t, names["fileguard_staging_areas_created_total"])

	count, err := testutil.GatherAndCount(r.Gatherer(), "fileguard_captures_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "three distinct label sets")
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *metrics.Registry
	r.RecordCapture(model.KindFile, true, time.Second)
	r.RecordRestore(model.KindFile, false, time.Second)
	r.SetStaged(1)
	r.StagingAreaCreated()

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}
