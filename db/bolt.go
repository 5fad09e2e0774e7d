package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("kv_cache")

// BoltStore is a key-value store backed by a single bbolt bucket.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens or creates the bbolt database file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	wrapMsg := "unable to open the bolt database"

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, wrapMsg)
	}

	return &BoltStore{db: db}, nil
}

// Get obtains the value stored for a key.
func (s *BoltStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(cacheBucket).Get([]byte(key))
		if v != nil {
			// Values are only valid for the life of the transaction.
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to look up the cached value for `%s`", key)
	}
	return value, value != nil, nil
}

// Put stores a value for a key, replacing any existing value.
func (s *BoltStore) Put(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(key), value)
	})
	return errors.Wrapf(err, "unable to store the cached value for `%s`", key)
}

// Delete removes a key from the store.
func (s *BoltStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Delete([]byte(key))
	})
	return errors.Wrapf(err, "unable to delete the cached value for `%s`", key)
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
