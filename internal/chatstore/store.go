package chatstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound covers both genuinely missing sessions and sessions owned by
// a different key. Collapsing the two avoids leaking session existence.
var ErrNotFound = errors.New("session not found")

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Session{}, &Message{}); err != nil {
		return nil, fmt.Errorf("migrate chat tables: %w", err)
	}
	return &Store{db: db}, nil
}

// CreateSession creates a session owned by apiKeyID. An empty name defaults
// to a timestamp-derived label.
func (s *Store) CreateSession(ctx context.Context, apiKeyID uint64, name string) (*Session, error) {
	now := time.Now().UTC()
	if name == "" {
		name = "Session " + now.Format(time.RFC3339)
	}
	sess := Session{
		ID:        uuid.NewString(),
		APIKeyID:  apiKeyID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &sess, nil
}

// GetSession looks up a session scoped to its owner.
func (s *Store) GetSession(ctx context.Context, id string, apiKeyID uint64) (*Session, error) {
	var sess Session
	err := s.db.WithContext(ctx).
		Where("id = ? AND api_key_id = ?", id, apiKeyID).
		First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// ListSessions returns the owner's sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context, apiKeyID uint64) ([]Session, error) {
	var sessions []Session
	err := s.db.WithContext(ctx).
		Where("api_key_id = ?", apiKeyID).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession removes an owned session and all of its messages in one
// transaction. Returns false when the session does not exist for this owner.
func (s *Store) DeleteSession(ctx context.Context, id string, apiKeyID uint64) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND api_key_id = ?", id, apiKeyID).Delete(&Session{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Where("session_id = ?", id).Delete(&Message{}).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return deleted, nil
}

// AddMessage appends a message and bumps the parent session's updated_at to
// the message timestamp as one atomic unit of work.
func (s *Store) AddMessage(ctx context.Context, sessionID, role, content string) (*Message, error) {
	msg := Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&Session{}).
			Where("id = ?", sessionID).
			Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}
	return &msg, nil
}

// GetMessages returns all messages of a session in creation order.
func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var msgs []Message
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
