package chatstore

import "time"

// Session is an owned conversation thread. Ownership is scoped to the API
// key that created it; lookups from other keys behave as if the session
// does not exist.
type Session struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	APIKeyID  uint64    `gorm:"index;not null" json:"-"`
	Name      string    `gorm:"type:varchar(128)" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Session) TableName() string { return "chat_sessions" }

type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(36);index;not null" json:"session_id"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
