package models

import "time"

// ProcessedUpdate records that a Telegram update has already produced its
// side effects. The row is written in the same transaction as the command
// it guards, so a failed command leaves no marker behind and a retried
// delivery is executed again. Response keeps the rendered reply so a
// duplicate delivery can answer without re-running the command.
type ProcessedUpdate struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	UpdateID       int64     `gorm:"uniqueIndex;not null"`
	TelegramUserID int64     `gorm:"index"`
	Command        string    `gorm:"size:16"`
	Response       string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null"`
}
