package db

import (
	"context"
	"fmt"
	"time"

	"socialfeed/config"
	"socialfeed/logs"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

var ORM *gorm.DB

// nowUTC - время для autoCreateTime/autoUpdateTime. SQLite сравнивает
// created_at как текст, поэтому все записи и курсоры должны быть в UTC.
func nowUTC() time.Time {
	return time.Now().UTC()
}

func dsnFromConfig(dbConf config.DBConfig) string {
	port := dbConf.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, port, dbConf.User, dbConf.Password, dbConf.DBName,
	)
}

// ConnectDB подключается к мастеру и репликам PostgreSQL и выполняет миграции
func ConnectDB(conf *config.ConfigSchema) (*gorm.DB, error) {
	if ORM != nil {
		logs.Log.Debug("ORM is already initialized")
		return ORM, nil
	}
	if conf == nil {
		return nil, fmt.Errorf("config is not loaded")
	}
	if conf.Databases.Master.Host == "" {
		return nil, fmt.Errorf("master database configuration is missing")
	}

	replicaDSNs := make([]gorm.Dialector, 0, len(conf.Databases.Replicas))
	for _, r := range conf.Databases.Replicas {
		replicaDSNs = append(replicaDSNs, postgres.Open(dsnFromConfig(r)))
	}

	database, err := gorm.Open(postgres.Open(dsnFromConfig(conf.Databases.Master)), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: nowUTC,
	})
	if err != nil {
		return nil, err
	}

	if len(replicaDSNs) > 0 {
		err = database.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicaDSNs,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to register replicas: %w", err)
		}
	}

	if err := Migrate(database); err != nil {
		return nil, err
	}

	ORM = database
	return database, nil
}

// OpenSQLite открывает SQLite (локальный запуск и тесты). path ":memory:" - в памяти
func OpenSQLite(path string) (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: nowUTC,
	})
	if err != nil {
		return nil, err
	}
	// :memory: живет в пределах одного соединения
	if sqlDB, err := database.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := Migrate(database); err != nil {
		return nil, err
	}
	return database, nil
}

// GetReadOnlyDB возвращает подключение для чтения (слейвы)
func GetReadOnlyDB(ctx context.Context, orm *gorm.DB) *gorm.DB {
	return orm.WithContext(ctx).Clauses(dbresolver.Read)
}

// GetWriteDB возвращает подключение для записи (мастер)
func GetWriteDB(ctx context.Context, orm *gorm.DB) *gorm.DB {
	return orm.WithContext(ctx).Clauses(dbresolver.Write)
}
