package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"socialfeed/db"
	"socialfeed/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

type UserService struct {
	orm    *gorm.DB
	tasks  TaskSubmitter
	logger *logrus.Entry
}

func NewUserService(orm *gorm.DB, tasks TaskSubmitter, logger *logrus.Entry) *UserService {
	return &UserService{
		orm:    orm,
		tasks:  tasks,
		logger: logger.WithField("component", "user_service"),
	}
}

// NewUser - данные для регистрации. Password необязателен
type NewUser struct {
	Nickname  string
	FirstName string
	LastName  string
	Password  string
}

// hashPassword: соль и argon2id-хеш в hex через "$"
func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// CheckPassword сверяет пароль с сохраненным хешем
func CheckPassword(stored, password string) bool {
	saltHex, hashHex, ok := strings.Cut(stored, "$")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(hash) == hashHex
}

func (us *UserService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	nickname := strings.TrimSpace(in.Nickname)
	if nickname == "" {
		return nil, fmt.Errorf("nickname is empty")
	}

	var taken int64
	err := db.GetWriteDB(ctx, us.orm).Model(&models.User{}).Unscoped().Where("nickname = ?", nickname).Count(&taken).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check nickname: %w", err)
	}
	if taken > 0 {
		return nil, ErrNicknameTaken
	}

	user := &models.User{Nickname: nickname, FirstName: in.FirstName, LastName: in.LastName}
	if in.Password != "" {
		if user.PasswordHash, err = hashPassword(in.Password); err != nil {
			return nil, err
		}
	}
	if err := db.GetWriteDB(ctx, us.orm).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// DeleteAccount мягко удаляет пользователя и сбрасывает его ленту
func (us *UserService) DeleteAccount(ctx context.Context, userID int64) error {
	res := db.GetWriteDB(ctx, us.orm).Where("id = ?", userID).Delete(&models.User{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	us.logger.WithField("user_id", userID).Info("account deleted")
	us.tasks.Submit(ctx, NewClearTask(userID))
	return nil
}
