package simulator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tips-network/tips/internal/tipstypes"
)

// ObjectResultStore implements tipstypes.ResultDatastore over a generic
// tipstypes.ObjectStore, keyed by bundle id. Unlike BundleDatastore
// (explicitly SQL-shaped and out of scope, spec.md §1), a
// SimulationResult's durability requirement is just "written before the
// Kafka fan-out" (spec.md §4.I step 7); the same conditional-PUT object
// store internal/audit already drives satisfies that, so this ships a
// real implementation rather than leaving the interface unimplemented.
type ObjectResultStore struct {
	store  tipstypes.ObjectStore
	prefix string
}

// NewObjectResultStore constructs an ObjectResultStore whose keys are
// prefix + "results/" + bundle id (an empty prefix gives results/<id>).
func NewObjectResultStore(store tipstypes.ObjectStore, prefix string) *ObjectResultStore {
	return &ObjectResultStore{store: store, prefix: prefix}
}

// InsertSimulationResult writes result as a JSON blob keyed by bundle id.
func (s *ObjectResultStore) InsertSimulationResult(ctx context.Context, result *tipstypes.SimulationResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%sresults/%s", s.prefix, result.BundleID.String())
	return s.store.Put(ctx, key, body)
}
