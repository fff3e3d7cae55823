package models

import "time"

// Item kinds.
const (
	KindURL  = "url"
	KindNote = "note"
)

// Item is a saved note or URL addressed by its short code.
// Deletion is soft: DeletedAt is set and the row is retained so admin
// tooling can still audit it. Short codes are never recycled, so the
// unique index covers deleted rows too.
type Item struct {
	ID          uint       `gorm:"primaryKey;autoIncrement"`
	OwnerUserID uint       `gorm:"index;not null"`
	Owner       *User      `gorm:"foreignKey:OwnerUserID"`
	ShortCode   string     `gorm:"uniqueIndex;size:32;not null"`
	Kind        string     `gorm:"size:8;not null"`
	Content     string     `gorm:"type:text;not null"`
	CreatedAt   time.Time  `gorm:"not null"`
	DeletedAt   *time.Time `gorm:"index"`
}

// IsDeleted reports whether the item has been soft deleted.
func (i *Item) IsDeleted() bool {
	return i.DeletedAt != nil
}
