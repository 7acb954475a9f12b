package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"lawchat-terminal/internal/models"
)

type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dbPath string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	return open(opts)
}

// NewMemoryStore opens a store that lives only as long as the process
func NewMemoryStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return open(opts)
}

func open(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func metadataKey(id string) []byte {
	return []byte(fmt.Sprintf("metadata:conv:%s", id))
}

func messagePrefix(id string) []byte {
	return []byte(fmt.Sprintf("conv:%s:msg:", id))
}

// Zero padded so key order is message order
func messageKey(id string, index int) []byte {
	return []byte(fmt.Sprintf("conv:%s:msg:%06d", id, index))
}

func (s *BadgerStore) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	if conv == nil || conv.ID == "" {
		return errors.New("conversation id is required")
	}

	meta := *conv
	meta.Messages = nil
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, messagePrefix(conv.ID)); err != nil {
			return err
		}
		if err := txn.Set(metadataKey(conv.ID), data); err != nil {
			return err
		}
		for i, msg := range conv.Messages {
			raw, err := json.Marshal(msg)
			if err != nil {
				return fmt.Errorf("failed to marshal message: %w", err)
			}
			if err := txn.Set(messageKey(conv.ID, i), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metadataKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		}); err != nil {
			return err
		}

		prefix := messagePrefix(id)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var msg models.Message
				if err := json.Unmarshal(val, &msg); err != nil {
					return err
				}
				conv.Messages = append(conv.Messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve conversation: %w", err)
	}

	return &conv, nil
}

func (s *BadgerStore) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var convs []models.Conversation
	prefix := []byte("metadata:conv:")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var conv models.Conversation
				if err := json.Unmarshal(val, &conv); err != nil {
					return err
				}
				convs = append(convs, conv)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	return convs, nil
}

func (s *BadgerStore) DeleteConversation(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(metadataKey(id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to delete conversation metadata: %w", err)
		}
		return deletePrefix(txn, messagePrefix(id))
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("failed to delete message: %w", err)
		}
	}
	return nil
}
