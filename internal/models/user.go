package models

import "time"

// User represents a Telegram user known to the vault.
// A row is created on the first inbound message from an identity and is
// never deleted; LastSeenAt advances on every observed interaction.
type User struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	TelegramUserID int64     `gorm:"uniqueIndex;not null"`
	FirstSeenAt    time.Time `gorm:"not null"`
	LastSeenAt     time.Time `gorm:"not null"`
}
