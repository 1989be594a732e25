package model

import "time"

// SessionEntry is an opaque per-session value (cart snapshot, verified QR code)
// kept by the postgres session store.
type SessionEntry struct {
	Key       string    `gorm:"primaryKey;column:session_key;size:191" json:"key"`
	Value     []byte    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

func (SessionEntry) TableName() string {
	return "session_entries"
}
