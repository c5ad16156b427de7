// Package journal persists every solution the miner finds in a bbolt file
package journal

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketSolutions = []byte("solutions")

// Solution is one solved nonce with the block it was submitted in
type Solution struct {
	Worker            int
	FoundAt           time.Time
	Nonce             string
	MiningHash        string
	BlockHash         string
	Difficulty        int
	RealDifficulty    int
	Pooled            bool
	MeetsReal         bool
	Transactions      int
	RemovalSignatures []string
}

// Journal is safe for use by all workers; bbolt serializes writers
type Journal struct {
	db *bbolt.DB
}

// Open opens (or creates) the journal at path
func Open(path string) (*Journal, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSolutions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// key sorts by discovery time, then nonce
func key(s Solution) []byte {
	return []byte(fmt.Sprintf("%020d-%s", s.FoundAt.UnixNano(), s.Nonce))
}

// Record stores s
func (j *Journal) Record(s Solution) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encode solution: %w", err)
	}
	return j.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSolutions).Put(key(s), buf.Bytes())
	})
}

// Count returns the number of recorded solutions
func (j *Journal) Count() (int, error) {
	n := 0
	err := j.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketSolutions).Stats().KeyN
		return nil
	})
	return n, err
}

// List returns all solutions, oldest first
func (j *Journal) List() ([]Solution, error) {
	var out []Solution
	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSolutions).ForEach(func(k, v []byte) error {
			var s Solution
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&s); err != nil {
				return fmt.Errorf("decode solution %s: %w", k, err)
			}
			out = append(out, s)
			return nil
		})
	})
	return out, err
}
