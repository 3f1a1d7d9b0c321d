package services

import (
	"context"
	"sort"

	"cinesocial/internal/logging"
	"cinesocial/internal/metrics"
	"cinesocial/internal/models"

	"github.com/google/uuid"
)

const DefaultReplyCap = 100

// CommentNode 组装后的评论树节点
type CommentNode struct {
	Comment  models.Comment
	Children []CommentNode
}

// Expansion 一次展开的统计信息
type Expansion struct {
	Levels    int
	Loaded    int
	Truncated bool
}

// ThreadAssembler 按层批量加载回复并重建评论树
type ThreadAssembler struct {
	comments CommentStore
	replyCap int
}

func NewThreadAssembler(comments CommentStore, replyCap int) *ThreadAssembler {
	if replyCap <= 0 {
		replyCap = DefaultReplyCap
	}
	return &ThreadAssembler{comments: comments, replyCap: replyCap}
}

// Assemble 每层一次存储调用，回复总数不超过 replyCap；任一层失败则整体失败
func (t *ThreadAssembler) Assemble(ctx context.Context, roots []models.Comment) ([]CommentNode, Expansion, error) {
	var stats Expansion
	if len(roots) == 0 {
		return []CommentNode{}, stats, nil
	}

	seen := make(map[uuid.UUID]bool, len(roots))
	frontier := make([]uuid.UUID, 0, len(roots))
	for _, r := range roots {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		frontier = append(frontier, r.ID)
	}

	// arena：按 id 保存所有回复，父子关系只记录 id
	arena := make(map[uuid.UUID]models.Comment)
	byParent := make(map[uuid.UUID][]uuid.UUID)

	for len(frontier) > 0 {
		budget := t.replyCap - stats.Loaded
		// 取满上限后不再探测下一层，直接视为截断
		if budget <= 0 {
			stats.Truncated = true
			break
		}
		if err := checkContext(ctx); err != nil {
			return nil, stats, err
		}

		level, err := t.comments.FindChildrenOfAny(ctx, frontier, budget)
		if err != nil {
			return nil, stats, storageError(err)
		}
		stats.Levels++
		if len(level) == 0 {
			break
		}
		if len(level) > budget {
			level = level[:budget]
		}

		next := make([]uuid.UUID, 0, len(level))
		for _, c := range level {
			if c.ParentID == nil || seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			arena[c.ID] = c
			byParent[*c.ParentID] = append(byParent[*c.ParentID], c.ID)
			next = append(next, c.ID)
		}
		stats.Loaded += len(level)
		frontier = next
	}
	for _, ids := range byParent {
		sort.Slice(ids, func(i, j int) bool {
			a, b := arena[ids[i]], arena[ids[j]]
			return chronoLess(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
		})
	}

	forest := make([]CommentNode, 0, len(roots))
	attached := make(map[uuid.UUID]bool, len(roots))
	for _, r := range roots {
		if attached[r.ID] {
			continue
		}
		attached[r.ID] = true
		forest = append(forest, buildNode(r, arena, byParent, attached))
	}

	metrics.ThreadExpansionLevels.Observe(float64(stats.Levels))
	if stats.Truncated {
		metrics.ThreadRepliesTruncated.Inc()
	}
	logging.Debug().
		Int("roots", len(roots)).
		Int("levels", stats.Levels).
		Int("replies", stats.Loaded).
		Bool("truncated", stats.Truncated).
		Msg("thread expanded")

	return forest, stats, nil
}

func buildNode(c models.Comment, arena map[uuid.UUID]models.Comment, byParent map[uuid.UUID][]uuid.UUID, attached map[uuid.UUID]bool) CommentNode {
	node := CommentNode{Comment: c, Children: []CommentNode{}}
	for _, id := range byParent[c.ID] {
		if attached[id] {
			continue
		}
		attached[id] = true
		node.Children = append(node.Children, buildNode(arena[id], arena, byParent, attached))
	}
	return node
}

// Walk 先序遍历森林
func Walk(forest []CommentNode, fn func(*CommentNode)) {
	for i := range forest {
		fn(&forest[i])
		Walk(forest[i].Children, fn)
	}
}
