package models

import (
	"time"

	"gorm.io/gorm"
)

type PostStatus string

const (
	PostStatusPublished PostStatus = "published"
	PostStatusDraft     PostStatus = "draft"
)

// Post - пост пользователя. Удаление мягкое (DeletedAt)
type Post struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID  int64          `gorm:"not null;index:idx_post_author_created,priority:1" json:"author_id"`
	Content   string         `gorm:"type:text" json:"content"`
	Status    PostStatus     `gorm:"size:20;not null;default:published;index" json:"status"`
	CreatedAt time.Time      `gorm:"index;index:idx_post_author_created,priority:2" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Post) TableName() string {
	return "posts"
}

// PostTopic - привязка поста к теме
type PostTopic struct {
	PostID  int64 `gorm:"primaryKey" json:"post_id"`
	TopicID int64 `gorm:"primaryKey;index" json:"topic_id"`
}

func (PostTopic) TableName() string {
	return "post_topics"
}

// HiddenPost - пост, скрытый пользователем из своей ленты
type HiddenPost struct {
	UserID    int64     `gorm:"primaryKey" json:"user_id"`
	PostID    int64     `gorm:"primaryKey;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (HiddenPost) TableName() string {
	return "hidden_posts"
}
