package services

import (
	"html/template"
	"time"

	"cinesocial/internal/utils"

	"github.com/google/uuid"
)

const DeletedPlaceholder = "[deleted]"

// ThreadedCommentView 对外输出的嵌套评论结构
type ThreadedCommentView struct {
	ID            uuid.UUID             `json:"id"`
	AuthorID      uuid.UUID             `json:"author_id"`
	AuthorName    string                `json:"author_name"`
	Content       string                `json:"content"`
	ContentHTML   template.HTML         `json:"content_html"`
	ParentID      *uuid.UUID            `json:"parent_id,omitempty"`
	Depth         int                   `json:"depth"`
	IsEdited      bool                  `json:"is_edited"`
	IsDeleted     bool                  `json:"is_deleted"`
	CreatedAt     time.Time             `json:"created_at"`
	EditedAt      *time.Time            `json:"edited_at,omitempty"`
	ReactionStats ReactionStats         `json:"reaction_stats"`
	ReplyCount    int                   `json:"reply_count"`
	Replies       []ThreadedCommentView `json:"replies"`
}

// ThreadPresenter 纯转换：森林 + 统计 + 回复数 + 作者名 → 视图
type ThreadPresenter struct {
	render func(string) template.HTML
}

func NewThreadPresenter() *ThreadPresenter {
	return &ThreadPresenter{render: utils.RenderComment}
}

func (p *ThreadPresenter) Present(forest []CommentNode, stats map[uuid.UUID]ReactionStats, replies map[uuid.UUID]int, names map[uuid.UUID]string) []ThreadedCommentView {
	out := make([]ThreadedCommentView, 0, len(forest))
	for i := range forest {
		out = append(out, p.present(&forest[i], stats, replies, names))
	}
	return out
}

func (p *ThreadPresenter) present(n *CommentNode, stats map[uuid.UUID]ReactionStats, replies map[uuid.UUID]int, names map[uuid.UUID]string) ThreadedCommentView {
	c := &n.Comment
	v := ThreadedCommentView{
		ID:            c.ID,
		AuthorID:      c.UserID,
		AuthorName:    names[c.UserID],
		ParentID:      cloneID(c.ParentID),
		Depth:         c.Depth,
		IsEdited:      c.IsEdited,
		IsDeleted:     c.IsDeleted,
		CreatedAt:     c.CreatedAt,
		EditedAt:      cloneTime(c.EditedAt),
		ReactionStats: stats[c.ID],
		ReplyCount:    replies[c.ID],
		Replies:       make([]ThreadedCommentView, 0, len(n.Children)),
	}
	if c.IsDeleted {
		v.Content = DeletedPlaceholder
	} else {
		v.Content = c.Content
		v.ContentHTML = p.render(c.Content)
	}
	for i := range n.Children {
		v.Replies = append(v.Replies, p.present(&n.Children[i], stats, replies, names))
	}
	return v
}

// PresentOne 单条新建评论的视图
func (p *ThreadPresenter) PresentOne(n CommentNode, authorName string) ThreadedCommentView {
	return p.present(&n, nil, nil, map[uuid.UUID]string{n.Comment.UserID: authorName})
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
