package keystore

import "time"

// APIKey stores only the SHA-256 digest of a credential; the plaintext is
// returned exactly once at creation and never persisted.
type APIKey struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	KeyHash   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	Role      Role      `gorm:"type:varchar(16);index;not null" json:"role"`
	Label     string    `gorm:"type:varchar(128)" json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

func (APIKey) TableName() string { return "api_keys" }

// CreatedKey carries the one-time plaintext back to the caller.
type CreatedKey struct {
	APIKey    string    `json:"api_key"`
	Role      Role      `json:"role"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}
