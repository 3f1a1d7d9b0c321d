package db

import (
	"log"
	"time"

	"cinesocial/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open 连接 postgres，重复键错误统一翻译为 gorm.ErrDuplicatedKey
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=cinesocial port=5432 sslmode=disable TimeZone=UTC"
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Init 连接数据库，按需迁移并写入初始影片
func Init(dsn string, autoMigrate bool) *gorm.DB {
	var err error
	DB, err = Open(dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	if autoMigrate {
		if err := Migrate(DB); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		log.Println("Database migration completed")
	}

	seedMovies(DB)
	return DB
}

func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.Movie{},
		&models.Comment{},
		&models.Reaction{},
		&models.Notification{},
	)
}

func seedMovies(conn *gorm.DB) {
	// 检查是否已有影片数据
	var count int64
	conn.Model(&models.Movie{}).Count(&count)
	if count > 0 {
		log.Println("Movies already seeded, skipping")
		return
	}

	for _, movie := range SeedMovies() {
		if err := conn.Create(&movie).Error; err != nil {
			log.Printf("Failed to create movie %s: %v", movie.Title, err)
		}
	}
	log.Println("Initial movies created successfully")
}
