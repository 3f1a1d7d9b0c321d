package models

import (
	"time"

	"github.com/google/uuid"
)

// CommentableType 评论挂载的内容类型
type CommentableType string

const (
	CommentableMovie CommentableType = "Movie"
)

// CommentState 评论生命周期状态
type CommentState int

const (
	CommentActive CommentState = iota
	CommentEdited
	CommentDeleted
)

func (s CommentState) String() string {
	switch s {
	case CommentEdited:
		return "edited"
	case CommentDeleted:
		return "deleted"
	default:
		return "active"
	}
}

type Comment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User            User            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Content         string          `gorm:"type:text;not null" json:"content"`
	CommentableType CommentableType `gorm:"type:varchar(20);not null;index:idx_commentable" json:"commentable_type"`
	CommentableID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_commentable" json:"commentable_id"`
	ParentID        *uuid.UUID      `gorm:"type:uuid;index" json:"parent_id"` // nil for root comments
	Parent          *Comment        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Depth           int             `gorm:"not null;default:0" json:"depth"`
	IsEdited        bool            `gorm:"not null;default:false" json:"is_edited"`
	EditedAt        *time.Time      `json:"edited_at"`
	IsDeleted       bool            `gorm:"not null;default:false" json:"is_deleted"` // 软删除，保留楼层结构
	DeletedAt       *time.Time      `json:"deleted_at"`
	Reactions       []Reaction      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// State 根据标记位推导评论状态
func (c *Comment) State() CommentState {
	switch {
	case c.IsDeleted:
		return CommentDeleted
	case c.IsEdited:
		return CommentEdited
	default:
		return CommentActive
	}
}

// IsRoot reports whether the comment starts a thread.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}
