package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"parley/internal/models"

	"go.etcd.io/bbolt"
)

var (
	bucketUsers = []byte("users")
	bucketChats = []byte("chats")
	bucketMeta  = []byte("meta")

	keyLastTimestamp = []byte("lastTimestamp")
)

type BboltStorage struct {
	db  *bbolt.DB
	now func() time.Time
}

type Option func(*BboltStorage)

// WithClock overrides the source of message and account timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *BboltStorage) {
		s.now = now
	}
}

func NewBboltStorage(path string, opts ...Option) (*BboltStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketChats, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	s := &BboltStorage{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *BboltStorage) Close() error {
	return s.db.Close()
}

func putRecord(b *bbolt.Bucket, rec Storeable) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return b.Put(rec.Key(), data)
}

// getRecord loads the value stored under key into rec. It reports false when
// the key is absent.
func getRecord(b *bbolt.Bucket, key []byte, rec Storeable) (bool, error) {
	data := b.Get(key)
	if data == nil {
		return false, nil
	}
	if err := rec.UnmarshalBinary(data); err != nil {
		return false, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return true, nil
}

// GetUser looks a user up by username. It returns models.ErrNotFound for unknown names.
func (s *BboltStorage) GetUser(username string) (models.User, error) {
	var user models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		var dbUser DBUser
		found, err := getRecord(tx.Bucket(bucketUsers), []byte(username), &dbUser)
		if err != nil {
			return fmt.Errorf("failed to load user %q: %w", username, err)
		}
		if !found {
			return models.ErrNotFound
		}
		user = models.User{Username: dbUser.UserName, CreatedAt: dbUser.CreatedAt}
		return nil
	})
	return user, err
}

// AddUser inserts a new user. The existence check and the insert share one
// transaction, so concurrent callers cannot both succeed for the same name.
func (s *BboltStorage) AddUser(username string) (models.User, error) {
	if username == "" {
		return models.User{}, errors.New("username is empty")
	}

	dbUser := &DBUser{
		UserName:  username,
		CreatedAt: s.now().UnixMilli(),
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		if b.Get(dbUser.Key()) != nil {
			return models.ErrUserExists
		}
		return putRecord(b, dbUser)
	})
	if err != nil {
		return models.User{}, err
	}

	return models.User{Username: dbUser.UserName, CreatedAt: dbUser.CreatedAt}, nil
}

// ListUsers returns all users ordered by username.
func (s *BboltStorage) ListUsers() ([]models.User, error) {
	var users []models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			var dbUser DBUser
			if err := dbUser.UnmarshalBinary(v); err != nil {
				return err
			}
			users = append(users, models.User{Username: dbUser.UserName, CreatedAt: dbUser.CreatedAt})
			return nil
		})
	})
	return users, err
}

// AddMessage appends a message to the chats collection and returns the stored record.
// Timestamps never go backwards even if the wall clock does.
func (s *BboltStorage) AddMessage(from, to, text string) (models.ChatMessage, error) {
	if from == "" || to == "" {
		return models.ChatMessage{}, errors.New("message missing sender or recipient")
	}

	var stored models.ChatMessage
	err := s.db.Update(func(tx *bbolt.Tx) error {
		chats := tx.Bucket(bucketChats)
		seq, err := chats.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}

		meta := tx.Bucket(bucketMeta)
		ts := s.now().UnixMilli()
		if last := meta.Get(keyLastTimestamp); last != nil {
			if prev := int64(binary.BigEndian.Uint64(last)); ts < prev {
				ts = prev
			}
		}
		tsBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(tsBytes, uint64(ts))
		if err := meta.Put(keyLastTimestamp, tsBytes); err != nil {
			return err
		}

		conversation, err := chats.CreateBucketIfNotExists(conversationKey(from, to))
		if err != nil {
			return fmt.Errorf("failed to create conversation bucket: %w", err)
		}

		dbMessage := &DBChatMessage{
			Seq:       seq,
			From:      from,
			To:        to,
			Message:   text,
			Timestamp: ts,
		}
		if err := putRecord(conversation, dbMessage); err != nil {
			return fmt.Errorf("failed to put message: %w", err)
		}

		stored = toChatMessage(dbMessage)
		return nil
	})
	return stored, err
}

// ListMessages returns every message sent from one user to another in insertion order.
func (s *BboltStorage) ListMessages(from, to string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := s.db.View(func(tx *bbolt.Tx) error {
		conversation := tx.Bucket(bucketChats).Bucket(conversationKey(from, to))
		if conversation == nil {
			return nil // No messages for this direction
		}
		return conversation.ForEach(func(k, v []byte) error {
			var dbMsg DBChatMessage
			if err := dbMsg.UnmarshalBinary(v); err != nil {
				return err
			}
			messages = append(messages, toChatMessage(&dbMsg))
			return nil
		})
	})
	return messages, err
}

func toChatMessage(m *DBChatMessage) models.ChatMessage {
	return models.ChatMessage{
		Seq:       m.Seq,
		From:      m.From,
		To:        m.To,
		Message:   m.Message,
		Timestamp: m.Timestamp,
	}
}
