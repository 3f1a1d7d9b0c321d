package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReactionType 投票方向，沿用 Vote 的 1 / -1 编码
type ReactionType int16

const (
	ReactionUpvote   ReactionType = 1
	ReactionDownvote ReactionType = -1
)

func (t ReactionType) Valid() bool {
	return t == ReactionUpvote || t == ReactionDownvote
}

func (t ReactionType) String() string {
	switch t {
	case ReactionUpvote:
		return "Upvote"
	case ReactionDownvote:
		return "Downvote"
	default:
		return fmt.Sprintf("ReactionType(%d)", int16(t))
	}
}

// ParseReactionType accepts "Upvote"/"Downvote" in any case, or the numeric encoding.
func ParseReactionType(s string) (ReactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upvote", "up", "1":
		return ReactionUpvote, nil
	case "downvote", "down", "-1":
		return ReactionDownvote, nil
	}
	return 0, fmt.Errorf("invalid reaction type %q", s)
}

func (t ReactionType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid reaction type %d", int16(t))
	}
	return []byte(t.String()), nil
}

func (t *ReactionType) UnmarshalText(b []byte) error {
	v, err := ParseReactionType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t ReactionType) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *ReactionType) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*t = ReactionType(v)
	case int32:
		*t = ReactionType(v)
	case int16:
		*t = ReactionType(v)
	case []byte:
		return t.UnmarshalText(v)
	case string:
		return t.UnmarshalText([]byte(v))
	case nil:
		*t = 0
	default:
		return fmt.Errorf("cannot scan %T into ReactionType", src)
	}
	return nil
}

type Reaction struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_user_comment" json:"user_id"`
	CommentID uuid.UUID    `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_comment" json:"comment_id"`
	Value     ReactionType `gorm:"type:smallint;not null" json:"value"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
