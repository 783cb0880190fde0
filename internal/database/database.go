package database

import (
	"log"
	"os"

	"holophrame-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB initializes the database connection and runs migrations
func InitDB() {
	var err error

	dsn := os.Getenv("DB_PATH")
	if dsn == "" {
		dsn = "holophrame.db"
	}

	// Using glebarez/sqlite which is a pure Go implementation (no CGO required)
	DB, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	// Auto-migrate the schema (it will create tables if they don't exist)
	err = DB.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Message{},
		&models.Notification{},
		&models.UserRelation{},
		&models.Bookmark{},
	)

	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}
