package services

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrPostNotFound  = errors.New("post not found")
	ErrNotPostAuthor = errors.New("post belongs to another user")
	ErrEmptyContent  = errors.New("post content is empty")
	ErrSelfFollow    = errors.New("cannot follow yourself")
	ErrSelfBlock     = errors.New("cannot block yourself")
	ErrTopicNotFound = errors.New("topic not found")
	ErrInvalidKind   = errors.New("invalid block kind")
	ErrNicknameTaken = errors.New("nickname already taken")
)
