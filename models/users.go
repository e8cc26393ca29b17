package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Nickname      string         `gorm:"size:60;uniqueIndex" json:"nickname"`
	FirstName     string         `gorm:"size:255" json:"first_name"`
	LastName      string         `gorm:"size:255" json:"last_name"`
	PasswordHash  string         `gorm:"size:255" json:"-"`
	FollowerCount int64          `gorm:"not null;default:0" json:"follower_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// All - модели для AutoMigrate
func All() []interface{} {
	return []interface{}{&User{}, &Follow{}, &Block{}, &Topic{}, &TopicFollow{}, &Post{}, &PostTopic{}, &HiddenPost{}}
}
