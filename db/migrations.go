package db

import (
	"fmt"
	"socialfeed/models"

	"gorm.io/gorm"
)

// Migrate создает таблицы и индекс для выборки ленты по (author_id, created_at)
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	// индекс для запроса ленты из БД: живые опубликованные посты по времени
	createIndexSQL := `
		CREATE INDEX IF NOT EXISTS idx_posts_live_created_at
		ON posts (created_at DESC, id DESC)
		WHERE deleted_at IS NULL;
	`
	if err := database.Exec(createIndexSQL).Error; err != nil {
		return fmt.Errorf("failed to create index idx_posts_live_created_at: %w", err)
	}
	return nil
}
