// Package models holds the gorm models backing warbler.
package models

import (
	"fmt"
	"time"
)

const (
	DefaultImageURL       = "/static/images/default-pic.png"
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"

	// MaxMessageLength is measured in runes.
	MaxMessageLength = 140
)

type User struct {
	ID             uint   `gorm:"primaryKey"`
	Username       string `gorm:"uniqueIndex;not null"`
	Email          string `gorm:"uniqueIndex;not null"`
	Password       string `gorm:"not null"` // bcrypt hash
	ImageURL       string `gorm:"not null;default:/static/images/default-pic.png"`
	HeaderImageURL string `gorm:"not null;default:/static/images/warbler-hero.jpg"`
	Bio            string `gorm:"type:text"`
	Location       string
}

func (u *User) String() string {
	return fmt.Sprintf("<User #%d: %s, %s>", u.ID, u.Username, u.Email)
}

type Message struct {
	ID        uint      `gorm:"primaryKey"`
	Text      string    `gorm:"size:140;not null"`
	Timestamp time.Time `gorm:"not null;index"`
	UserID    uint      `gorm:"not null;index"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Follow is a directed edge: FollowerID follows FollowedID.
// The composite primary key makes duplicate edges impossible.
type Follow struct {
	FollowerID uint `gorm:"primaryKey;autoIncrement:false"`
	FollowedID uint `gorm:"primaryKey;autoIncrement:false;index"`
	Follower   User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE"`
	Followed   User `gorm:"foreignKey:FollowedID;constraint:OnDelete:CASCADE"`
}

type Like struct {
	UserID    uint    `gorm:"primaryKey;autoIncrement:false"`
	MessageID uint    `gorm:"primaryKey;autoIncrement:false;index"`
	User      User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Message   Message `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

// All lists every model in migration order.
func All() []any {
	return []any{&User{}, &Message{}, &Follow{}, &Like{}}
}
