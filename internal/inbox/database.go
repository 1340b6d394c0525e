package inbox

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const messagesBucket = "messages"

// DB is the persistence sink for messages. SaveMessage is an upsert keyed
// by message id; the last write wins.
type DB interface {
	// SaveMessage inserts or replaces a message
	SaveMessage(msg *Message) error

	// GetMessage retrieves a message by ID
	GetMessage(id string) (*Message, error)

	// ListMessages returns all messages
	ListMessages() ([]*Message, error)

	// DeleteMessage removes a message
	DeleteMessage(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(messagesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveMessage stores the whole message document under its id
func (b *BoltDB) SaveMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(messagesBucket)).Put([]byte(msg.ID), data)
	})
}

// GetMessage returns ErrMessageNotFound for an unknown id
func (b *BoltDB) GetMessage(id string) (*Message, error) {
	var msg *Message
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(messagesBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
		}
		return json.Unmarshal(data, &msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns every message in key order
func (b *BoltDB) ListMessages() ([]*Message, error) {
	messages := make([]*Message, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(messagesBucket)).ForEach(func(k, v []byte) error {
			var msg Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return fmt.Errorf("unmarshaling message %s: %w", k, err)
			}
			messages = append(messages, &msg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// DeleteMessage removes a message; deleting an unknown id is not an error
func (b *BoltDB) DeleteMessage(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(messagesBucket)).Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
