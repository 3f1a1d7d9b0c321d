package models

import (
	"time"

	"github.com/google/uuid"
)

// Movie 影片目录中的条目，评论串挂载在影片上
type Movie struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Year      int       `json:"year"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
