package keystore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no record matches a presented credential.
var ErrNotFound = errors.New("api key not found")

// BootstrapLabel marks the super admin created automatically at first start.
const BootstrapLabel = "bootstrap"

type Store struct {
	db *gorm.DB
	mu sync.Mutex // serializes bootstrap check-then-create
}

func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&APIKey{}); err != nil {
		return nil, fmt.Errorf("migrate api_keys: %w", err)
	}
	return &Store{db: db}, nil
}

func hashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func newPlaintextKey() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// CreateKey generates a random credential, persists its digest, and returns
// the plaintext. This is the only time the plaintext exists server-side.
func (s *Store) CreateKey(ctx context.Context, role Role, label string) (*CreatedKey, error) {
	plaintext := newPlaintextKey()
	rec := APIKey{
		KeyHash: hashKey(plaintext),
		Role:    role,
		Label:   label,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return &CreatedKey{
		APIKey:    plaintext,
		Role:      rec.Role,
		Label:     rec.Label,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// VerifyKey resolves a plaintext credential to its stored record via digest
// lookup. Unknown credentials return ErrNotFound.
func (s *Store) VerifyKey(ctx context.Context, plaintext string) (*APIKey, error) {
	var rec APIKey
	err := s.db.WithContext(ctx).
		Where("key_hash = ?", hashKey(plaintext)).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Store) HasAnyKey(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&APIKey{}).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// BootstrapSuperAdmin creates a super_admin key when none exists and returns
// its plaintext for out-of-band operator retrieval. When one already exists
// it returns "". The check and insert run as one critical section so that
// concurrent starts cannot create two bootstrap keys.
func (s *Store) BootstrapSuperAdmin(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	err := s.db.WithContext(ctx).Model(&APIKey{}).
		Where("role = ?", RoleSuperAdmin).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	if count > 0 {
		return "", nil
	}

	created, err := s.CreateKey(ctx, RoleSuperAdmin, BootstrapLabel)
	if err != nil {
		return "", err
	}
	return created.APIKey, nil
}

// ListKeys returns all records newest first. Digests are excluded from JSON
// and plaintexts were never stored.
func (s *Store) ListKeys(ctx context.Context) ([]APIKey, error) {
	var keys []APIKey
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}
