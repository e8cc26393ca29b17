package models

import "time"

// Follow - направленная подписка: FollowerID читает ленту AuthorID
type Follow struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FollowerID int64     `gorm:"not null;uniqueIndex:idx_follow_pair;index:idx_follow_follower" json:"follower_id"`
	AuthorID   int64     `gorm:"not null;uniqueIndex:idx_follow_pair;index:idx_follow_author" json:"author_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Follow) TableName() string {
	return "follows"
}

type BlockKind string

const (
	BlockKindBlock BlockKind = "block"
	BlockKindMute  BlockKind = "mute"
)

// Block - блокировка или скрытие автора. Посты TargetID не попадают в ленту UserID
type Block struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_block_pair" json:"user_id"`
	TargetID  int64     `gorm:"not null;uniqueIndex:idx_block_pair" json:"target_id"`
	Kind      BlockKind `gorm:"size:10;not null;default:block" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

func (Block) TableName() string {
	return "blocks"
}

// Topic - тема, на которую можно подписаться помимо авторов
type Topic struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:60;uniqueIndex" json:"name"`
}

func (Topic) TableName() string {
	return "topics"
}

type TopicFollow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_topic_follow_pair" json:"user_id"`
	TopicID   int64     `gorm:"not null;uniqueIndex:idx_topic_follow_pair;index" json:"topic_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (TopicFollow) TableName() string {
	return "topic_follows"
}
