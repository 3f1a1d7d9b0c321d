package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SortBy 根评论排序方式，回复始终按时间正序
type SortBy int

const (
	SortNewest SortBy = iota + 1
	SortOldest
	SortMostUpvoted
	SortMostReplies
)

func (s SortBy) String() string {
	switch s {
	case SortOldest:
		return "Oldest"
	case SortMostUpvoted:
		return "MostUpvoted"
	case SortMostReplies:
		return "MostReplies"
	default:
		return "Newest"
	}
}

func (s SortBy) Valid() bool {
	return s >= SortNewest && s <= SortMostReplies
}

// ParseSortBy 支持名称（不区分大小写）与数字编码 1..4，空值为 Newest
func ParseSortBy(v string) (SortBy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "newest", "1":
		return SortNewest, nil
	case "oldest", "2":
		return SortOldest, nil
	case "mostupvoted", "most_upvoted", "3":
		return SortMostUpvoted, nil
	case "mostreplies", "most_replies", "4":
		return SortMostReplies, nil
	}
	return 0, ErrInvalidSort
}

// RankedComment 排序所需的最小字段集合
type RankedComment struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	Upvotes    int
	ReplyCount int
}

// Less 定义根评论的全序：主键之后按创建时间正序、id 正序打破平局
func (s SortBy) Less(a, b RankedComment) bool {
	switch s {
	case SortOldest:
		// 与 tie-break 相同
	case SortMostUpvoted:
		if a.Upvotes != b.Upvotes {
			return a.Upvotes > b.Upvotes
		}
	case SortMostReplies:
		if a.ReplyCount != b.ReplyCount {
			return a.ReplyCount > b.ReplyCount
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return uuidLess(a.ID, b.ID)
	}
	return chronoLess(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
}

// chronoLess 时间正序，再按 id 正序
func chronoLess(at time.Time, aid uuid.UUID, bt time.Time, bid uuid.UUID) bool {
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return uuidLess(aid, bid)
}

// uuidLess 按字节序比较，与 postgres uuid 排序一致
func uuidLess(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// OrderClause 供 SQL 存储使用的 ORDER BY 片段，列名以 comments 表为准
func (s SortBy) OrderClause() string {
	const tie = "comments.created_at ASC, comments.id ASC"
	switch s {
	case SortOldest:
		return tie
	case SortMostUpvoted:
		return "(SELECT COUNT(*) FROM reactions r WHERE r.comment_id = comments.id AND r.value = 1) DESC, " + tie
	case SortMostReplies:
		return "(SELECT COUNT(*) FROM comments c2 WHERE c2.parent_id = comments.id) DESC, " + tie
	default:
		return "comments.created_at DESC, comments.id ASC"
	}
}
