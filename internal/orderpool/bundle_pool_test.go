package orderpool

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tips-network/tips/internal/tipstypes"
)

func TestBundlePool_ReplaceSameUUID(t *testing.T) {
	pool := NewBundlePool()
	id := tipstypes.BundleId(uuid.New())

	b1 := &tipstypes.Bundle{ID: id, BlockNumber: 0}
	b2 := &tipstypes.Bundle{ID: id, BlockNumber: 5}

	pool.Add(b1)
	pool.Add(b2)

	require.Equal(t, 1, pool.Len())
	snap := pool.Snapshot(5, 0)
	require.Len(t, snap, 1)
	require.Equal(t, uint64(5), snap[0].BlockNumber)
}

func TestBundlePool_SnapshotFiltersByBlockAndWindow(t *testing.T) {
	pool := NewBundlePool()

	anyBlock := &tipstypes.Bundle{ID: tipstypes.BundleId(uuid.New()), BlockNumber: 0}
	specificBlock := &tipstypes.Bundle{ID: tipstypes.BundleId(uuid.New()), BlockNumber: 10}
	min, max := uint64(100), uint64(200)
	windowed := &tipstypes.Bundle{ID: tipstypes.BundleId(uuid.New()), BlockNumber: 0, MinTimestamp: &min, MaxTimestamp: &max}

	pool.Add(anyBlock)
	pool.Add(specificBlock)
	pool.Add(windowed)

	snap := pool.Snapshot(10, 150)
	require.Len(t, snap, 3)

	snap = pool.Snapshot(11, 150)
	require.Len(t, snap, 2) // specificBlock excluded

	snap = pool.Snapshot(10, 500)
	require.Len(t, snap, 2) // windowed excluded, outside [min,max]
}
