package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cuemby/forgecore/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketJobs         = []byte("jobs")
	bucketArtifacts    = []byte("artifacts")
	bucketQuotas       = []byte("quotas")
	bucketQuotaUsage   = []byte("quota_usage")
	bucketRegionStates = []byte("region_states")
	bucketIdleNodes    = []byte("idle_nodes")
)

// BoltStore implements Store using BoltDB, one bucket per entity kind
// with the entity's id as key and its JSON encoding as value.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) a BoltDB file under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "forgecore.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketJobs,
			bucketArtifacts,
			bucketQuotas,
			bucketQuotaUsage,
			bucketRegionStates,
			bucketIdleNodes,
		}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func putJSON(tx *bolt.Tx, bucket []byte, key string, v interface{}) error {
	b := tx.Bucket(bucket)
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

// Jobs

func (s *BoltStore) SaveJob(job *types.Job) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketJobs, job.JobID, job)
	})
}

func (s *BoltStore) GetJob(jobID string) (*types.Job, error) {
	var job types.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketJobs).Get([]byte(jobID))
		if data == nil {
			return fmt.Errorf("job not found: %s", jobID)
		}
		return json.Unmarshal(data, &job)
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *BoltStore) ListJobs() ([]*types.Job, error) {
	var jobs []*types.Job
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketJobs).ForEach(func(k, v []byte) error {
			var job types.Job
			if err := json.Unmarshal(v, &job); err != nil {
				return err
			}
			jobs = append(jobs, &job)
			return nil
		})
	})
	return jobs, err
}

func (s *BoltStore) DeleteJob(jobID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketJobs).Delete([]byte(jobID))
	})
}

// Artifacts

func (s *BoltStore) SaveArtifactMetadata(meta *types.ArtifactMetadata) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketArtifacts, meta.ArtifactID, meta)
	})
}

func (s *BoltStore) GetArtifactMetadata(artifactID string) (*types.ArtifactMetadata, error) {
	var meta types.ArtifactMetadata
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketArtifacts).Get([]byte(artifactID))
		if data == nil {
			return fmt.Errorf("artifact not found: %s", artifactID)
		}
		return json.Unmarshal(data, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *BoltStore) ListArtifactMetadata() ([]*types.ArtifactMetadata, error) {
	var out []*types.ArtifactMetadata
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketArtifacts).ForEach(func(k, v []byte) error {
			var meta types.ArtifactMetadata
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			out = append(out, &meta)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) DeleteArtifactMetadata(artifactID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketArtifacts).Delete([]byte(artifactID))
	})
}

// Quotas

func (s *BoltStore) SaveQuota(def *types.QuotaDefinition) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketQuotas, def.EntityID, def)
	})
}

func (s *BoltStore) GetQuota(entityID string) (*types.QuotaDefinition, error) {
	var def types.QuotaDefinition
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketQuotas).Get([]byte(entityID))
		if data == nil {
			return fmt.Errorf("quota not found: %s", entityID)
		}
		return json.Unmarshal(data, &def)
	})
	if err != nil {
		return nil, err
	}
	return &def, nil
}

func (s *BoltStore) ListQuotas() ([]*types.QuotaDefinition, error) {
	var out []*types.QuotaDefinition
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQuotas).ForEach(func(k, v []byte) error {
			var def types.QuotaDefinition
			if err := json.Unmarshal(v, &def); err != nil {
				return err
			}
			out = append(out, &def)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) DeleteQuota(entityID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQuotas).Delete([]byte(entityID))
	})
}

func (s *BoltStore) SaveQuotaUsage(snapshot *types.QuotaUsageSnapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketQuotaUsage, snapshot.EntityID, snapshot)
	})
}

func (s *BoltStore) GetQuotaUsage(entityID string) (*types.QuotaUsageSnapshot, error) {
	var snap types.QuotaUsageSnapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketQuotaUsage).Get([]byte(entityID))
		if data == nil {
			return fmt.Errorf("quota usage not found: %s", entityID)
		}
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *BoltStore) ListQuotaUsage() ([]*types.QuotaUsageSnapshot, error) {
	var out []*types.QuotaUsageSnapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQuotaUsage).ForEach(func(k, v []byte) error {
			var snap types.QuotaUsageSnapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			out = append(out, &snap)
			return nil
		})
	})
	return out, err
}

// Region failover state

func (s *BoltStore) SaveRegionState(state *types.RegionFailoverState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketRegionStates, state.Config.RegionID, state)
	})
}

func (s *BoltStore) GetRegionState(regionID string) (*types.RegionFailoverState, error) {
	var state types.RegionFailoverState
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRegionStates).Get([]byte(regionID))
		if data == nil {
			return fmt.Errorf("region state not found: %s", regionID)
		}
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *BoltStore) ListRegionStates() ([]*types.RegionFailoverState, error) {
	var out []*types.RegionFailoverState
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRegionStates).ForEach(func(k, v []byte) error {
			var state types.RegionFailoverState
			if err := json.Unmarshal(v, &state); err != nil {
				return err
			}
			out = append(out, &state)
			return nil
		})
	})
	return out, err
}

// Idle node entries

func (s *BoltStore) SaveIdleNode(entry *types.IdleNodeEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx, bucketIdleNodes, entry.NodeID, entry)
	})
}

func (s *BoltStore) GetIdleNode(nodeID string) (*types.IdleNodeEntry, error) {
	var entry types.IdleNodeEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketIdleNodes).Get([]byte(nodeID))
		if data == nil {
			return fmt.Errorf("idle node not found: %s", nodeID)
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *BoltStore) ListIdleNodes() ([]*types.IdleNodeEntry, error) {
	var out []*types.IdleNodeEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIdleNodes).ForEach(func(k, v []byte) error {
			var entry types.IdleNodeEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			out = append(out, &entry)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) DeleteIdleNode(nodeID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIdleNodes).Delete([]byte(nodeID))
	})
}
