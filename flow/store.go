// Copyright 2022 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package flow

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/sirupsen/logrus"
)

var runsBucket = []byte("runs")

// ResultStore persists the results of a run in a bolt database. Each run is
// a bucket keyed by test path.
type ResultStore struct {
	db  *bolt.DB
	run []byte

	mu  sync.Mutex
	err error
}

// OpenResultStore opens or creates the database at path and starts a new
// run named runID.
func OpenResultStore(path, runID string) (*ResultStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		runs, err := tx.CreateBucketIfNotExists(runsBucket)
		if err != nil {
			return err
		}
		_, err = runs.CreateBucketIfNotExists([]byte(runID))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &ResultStore{db: db, run: []byte(runID)}, nil
}

// Report implements the Reporter interface. Write errors are logged and the
// first one is kept, see Err.
func (s *ResultStore) Report(res Result) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		v, err := json.Marshal(res)
		if err != nil {
			return err
		}
		return tx.Bucket(runsBucket).Bucket(s.run).Put([]byte(res.Path), v)
	})
	if err != nil {
		logrus.WithField("system", "results").WithError(err).Error("unable to store test result")
		s.mu.Lock()
		if s.err == nil {
			s.err = err
		}
		s.mu.Unlock()
	}
}

// Err returns the first error that happened while storing results.
func (s *ResultStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Runs returns the identifiers of the stored runs.
func (s *ResultStore) Runs() ([]string, error) {
	var runs []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(k, _ []byte) error {
			runs = append(runs, string(k))
			return nil
		})
	})
	return runs, err
}

// Results returns the stored results of a run sorted by path.
func (s *ResultStore) Results(runID string) ([]Result, error) {
	var results []Result
	err := s.db.View(func(tx *bolt.Tx) error {
		run := tx.Bucket(runsBucket).Bucket([]byte(runID))
		if run == nil {
			return nil
		}
		return run.ForEach(func(_, v []byte) error {
			var res Result
			if err := json.Unmarshal(v, &res); err != nil {
				return err
			}
			results = append(results, res)
			return nil
		})
	})
	return results, err
}

// Close closes the underlying database.
func (s *ResultStore) Close() error {
	return s.db.Close()
}
