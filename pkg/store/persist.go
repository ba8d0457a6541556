package store

import (
	"encoding/json"
	"fmt"

	"github.com/pgraft/pgraft/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var clusterViewBucket = []byte("cluster_view")
var clusterViewKey = []byte("current")

// Persister snapshots the ClusterView to a local BoltDB file so a restarted
// node has a last-known-good membership picture before Raft replay catches
// it up. It is a cache, not a source of truth: Raft's own log store remains
// authoritative.
type Persister struct {
	db *bolt.DB
}

// OpenPersister opens (creating if absent) the BoltDB file at path.
func OpenPersister(path string) (*Persister, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening store db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(clusterViewBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing store db buckets: %w", err)
	}
	return &Persister{db: db}, nil
}

// Close releases the underlying BoltDB file handle.
func (p *Persister) Close() error {
	return p.db.Close()
}

// SaveClusterView persists the given view, overwriting any prior snapshot.
func (p *Persister) SaveClusterView(view types.ClusterView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshaling cluster view: %w", err)
	}
	return p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(clusterViewBucket).Put(clusterViewKey, data)
	})
}

// LoadClusterView returns the last persisted view, or ok=false if none
// exists yet (first boot).
func (p *Persister) LoadClusterView() (types.ClusterView, bool, error) {
	var view types.ClusterView
	var found bool

	err := p.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(clusterViewBucket).Get(clusterViewKey)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &view)
	})
	if err != nil {
		return types.ClusterView{}, false, fmt.Errorf("loading cluster view: %w", err)
	}
	return view, found, nil
}
