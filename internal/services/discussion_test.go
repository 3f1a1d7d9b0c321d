package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"cinesocial/internal/models"
	"cinesocial/internal/services"

	"github.com/google/uuid"
)

func TestAddCommentAndReply(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()

	c1, err := f.svc.AddComment(ctx, services.AsUser(f.alice), f.movie, "Great movie!", nil)
	if err != nil {
		t.Fatal(err)
	}
	if c1.Depth != 0 || c1.AuthorName != "alice" || c1.ReactionStats != (services.ReactionStats{}) {
		t.Errorf("unexpected root view %+v", c1)
	}
	c2, err := f.svc.AddComment(ctx, services.AsUser(f.bob), f.movie, "Agreed", &c1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c2.Depth != 1 {
		t.Errorf("reply depth = %d, want 1", c2.Depth)
	}

	page, err := f.svc.ListThreads(ctx, services.Anonymous, f.movie, 1, 20, services.SortNewest)
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalCount != 1 || len(page.Items) != 1 {
		t.Fatalf("want one root, got total=%d items=%d", page.TotalCount, len(page.Items))
	}
	root := page.Items[0]
	if root.ReplyCount != 1 || len(root.Replies) != 1 || root.Replies[0].ID != c2.ID {
		t.Errorf("root reply_count=%d replies=%d", root.ReplyCount, len(root.Replies))
	}
	if !strings.Contains(string(root.ContentHTML), "Great movie!") {
		t.Errorf("content_html = %q", root.ContentHTML)
	}

	// bob replied to alice, alice gets a notification
	list, total, _ := f.store.ListNotifications(ctx, f.alice, 0, 10)
	if total != 1 || list[0].Type != models.NotificationTypeReplyComment || *list[0].CommentID != c2.ID {
		t.Errorf("reply notification missing: %+v", list)
	}
}

func TestAddCommentRejections(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()
	root, _ := f.svc.AddComment(ctx, services.AsUser(f.alice), f.other, "elsewhere", nil)

	tests := []struct {
		name    string
		who     services.Identity
		a       services.Attachment
		content string
		parent  *uuid.UUID
		kind    services.ErrorKind
		code    string
	}{
		{"anonymous", services.Anonymous, f.movie, "hi", nil, services.KindUnauthorized, "Auth.Unauthorized"},
		{"nil identity", nil, f.movie, "hi", nil, services.KindUnauthorized, "Auth.Unauthorized"},
		{"blank", services.AsUser(f.alice), f.movie, "   \n", nil, services.KindValidation, "Comment.InvalidContent"},
		{"too long", services.AsUser(f.alice), f.movie, strings.Repeat("a", 10001), nil, services.KindValidation, "Comment.InvalidContent"},
		{"unknown movie", services.AsUser(f.alice), services.MovieAttachment(uuid.New()), "hi", nil, services.KindNotFound, "Comment.MovieNotFound"},
		{"cross attachment parent", services.AsUser(f.bob), f.movie, "hi", &root.ID, services.KindNotFound, "Comment.ParentNotFound"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddComment(ctx, tt.who, tt.a, tt.content, tt.parent)
			var se *services.Error
			if !errors.As(err, &se) {
				t.Fatalf("expected *services.Error, got %v", err)
			}
			if se.Kind != tt.kind || se.Code != tt.code {
				t.Errorf("got %s/%s, want %s/%s", se.Kind, se.Code, tt.kind, tt.code)
			}
		})
	}

	// 10000 multi-byte characters is still within the limit
	if _, err := f.svc.AddComment(ctx, services.AsUser(f.alice), f.movie, strings.Repeat("好", 10000), nil); err != nil {
		t.Errorf("10000 runes should be accepted: %v", err)
	}
}

func TestMaxDepthChain(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()
	me := services.AsUser(f.alice)

	root, err := f.svc.AddComment(ctx, me, f.movie, "level 0", nil)
	if err != nil {
		t.Fatal(err)
	}
	parent := root.ID
	for i := 1; i <= 10; i++ {
		v, err := f.svc.AddComment(ctx, me, f.movie, "nested", &parent)
		if err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
		if v.Depth != i {
			t.Fatalf("reply %d depth = %d", i, v.Depth)
		}
		parent = v.ID
	}
	_, err = f.svc.AddComment(ctx, me, f.movie, "one too many", &parent)
	if !errors.Is(err, services.ErrMaxDepthExceeded) {
		t.Fatalf("11th reply: got %v, want MaxDepthExceeded", err)
	}

	// every node reaches the root within MaxDepth hops
	page, err := f.svc.ListThreads(ctx, services.Anonymous, f.movie, 1, 10, services.SortNewest)
	if err != nil {
		t.Fatal(err)
	}
	for _, item := range page.Items {
		checkDepths(t, item, 0)
	}
	steps := 0
	cur := parent
	for {
		c, err := f.store.FindCommentByID(ctx, cur)
		if err != nil {
			t.Fatal(err)
		}
		if c.ParentID == nil {
			break
		}
		cur = *c.ParentID
		steps++
		if steps > services.DefaultMaxDepth {
			t.Fatal("parent chain longer than max depth")
		}
	}
	if steps != 10 {
		t.Errorf("steps to root = %d, want 10", steps)
	}
}

func checkDepths(t *testing.T, v services.ThreadedCommentView, want int) {
	t.Helper()
	if v.Depth != want {
		t.Errorf("comment %s depth = %d, want %d", v.ID, v.Depth, want)
	}
	if (v.ParentID == nil) != (v.Depth == 0) {
		t.Errorf("comment %s: depth 0 iff no parent", v.ID)
	}
	for _, r := range v.Replies {
		checkDepths(t, r, want+1)
	}
}

func TestListThreadsPagination(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()

	var roots []models.Comment
	for i := 0; i < 45; i++ {
		r := seedRoot(t, f.store, f.movie, f.alice, base.Add(time.Duration(i)*time.Minute))
		roots = append(roots, r)
		seedReply(t, f.store, r, f.bob, base.Add(time.Hour+time.Duration(i)*time.Minute))
	}

	page, err := f.svc.ListThreads(ctx, services.Anonymous, f.movie, 2, 20, services.SortOldest)
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalCount != 45 {
		t.Errorf("total = %d, replies must not be counted", page.TotalCount)
	}
	if len(page.Items) != 20 {
		t.Fatalf("items = %d", len(page.Items))
	}
	for i, item := range page.Items {
		if item.ID != roots[20+i].ID {
			t.Fatalf("item %d = %s, want root #%d", i, item.ID, 21+i)
		}
	}
	if page.TotalPages != 3 || !page.HasNextPage || !page.HasPreviousPage {
		t.Errorf("page meta = %+v", page)
	}

	last, _ := f.svc.ListThreads(ctx, services.Anonymous, f.movie, 3, 20, services.SortOldest)
	if len(last.Items) != 5 || last.HasNextPage {
		t.Errorf("last page items=%d next=%v", len(last.Items), last.HasNextPage)
	}
}

func TestListThreadsStableOrder(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()
	// identical timestamps force the id tie-break
	for i := 0; i < 10; i++ {
		seedRoot(t, f.store, f.movie, f.alice, base)
	}
	for _, s := range []services.SortBy{services.SortNewest, services.SortOldest, services.SortMostUpvoted, services.SortMostReplies} {
		a, err := f.svc.ListThreads(ctx, services.Anonymous, f.movie, 1, 10, s)
		if err != nil {
			t.Fatal(err)
		}
		b, _ := f.svc.ListThreads(ctx, services.Anonymous, f.movie, 1, 10, s)
		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		if string(ja) != string(jb) {
			t.Errorf("%s: consecutive listings differ", s)
		}
	}
}

func TestListThreadsSorts(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()
	old := seedRoot(t, f.store, f.movie, f.alice, base)
	mid := seedRoot(t, f.store, f.movie, f.alice, base.Add(time.Minute))
	recent := seedRoot(t, f.store, f.movie, f.alice, base.Add(2*time.Minute))
	seedReply(t, f.store, mid, f.bob, base.Add(time.Hour))
	seedReply(t, f.store, mid, f.bob, base.Add(time.Hour))
	if _, err := f.svc.SetReaction(ctx, services.AsUser(f.bob), recent.ID, models.ReactionUpvote); err != nil {
		t.Fatal(err)
	}

	first := func(s services.SortBy) uuid.UUID {
		p, err := f.svc.ListThreads(ctx, services.Anonymous, f.movie, 1, 10, s)
		if err != nil {
			t.Fatal(err)
		}
		return p.Items[0].ID
	}
	if first(services.SortNewest) != recent.ID {
		t.Error("newest")
	}
	if first(services.SortOldest) != old.ID {
		t.Error("oldest")
	}
	if first(services.SortMostUpvoted) != recent.ID {
		t.Error("most upvoted")
	}
	if first(services.SortMostReplies) != mid.ID {
		t.Error("most replies")
	}
}

func TestListThreadsValidation(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()
	cases := []struct {
		page, size int
		sort       services.SortBy
		want       *services.Error
	}{
		{0, 20, services.SortNewest, services.ErrInvalidPagination},
		{1, 0, services.SortNewest, services.ErrInvalidPagination},
		{1, 101, services.SortNewest, services.ErrInvalidPagination},
		{1, 20, services.SortBy(9), services.ErrInvalidSort},
	}
	for _, c := range cases {
		if _, err := f.svc.ListThreads(ctx, services.Anonymous, f.movie, c.page, c.size, c.sort); err != c.want {
			t.Errorf("page=%d size=%d sort=%d: got %v, want %v", c.page, c.size, c.sort, err, c.want)
		}
	}
	if _, err := f.svc.ListThreads(ctx, services.Anonymous, services.MovieAttachment(uuid.New()), 1, 20, services.SortNewest); err != services.ErrMovieNotFound {
		t.Errorf("unknown movie: %v", err)
	}
	if _, err := f.svc.ListThreads(ctx, services.Anonymous, f.movie, 1, 100, services.SortNewest); err != nil {
		t.Errorf("page size 100 is allowed: %v", err)
	}
}

func TestEditAndDelete(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()
	alice, bob := services.AsUser(f.alice), services.AsUser(f.bob)

	root, _ := f.svc.AddComment(ctx, alice, f.movie, "first take", nil)
	reply, _ := f.svc.AddComment(ctx, bob, f.movie, "reply", &root.ID)

	if err := f.svc.EditComment(ctx, bob, root.ID, "hijack"); err != services.ErrNotOwner {
		t.Errorf("non-author edit: %v", err)
	}
	if err := f.svc.EditComment(ctx, services.Anonymous, root.ID, "x"); !services.IsKind(err, services.KindUnauthorized) {
		t.Errorf("anonymous edit: %v", err)
	}
	if err := f.svc.EditComment(ctx, alice, root.ID, ""); err != services.ErrInvalidContent {
		t.Errorf("empty edit: %v", err)
	}
	if err := f.svc.EditComment(ctx, alice, root.ID, "second take"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteComment(ctx, bob, root.ID); err != services.ErrNotOwner {
		t.Errorf("non-author delete: %v", err)
	}
	if err := f.svc.DeleteComment(ctx, alice, root.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteComment(ctx, alice, root.ID); err != services.ErrCommentNotFound {
		t.Errorf("second delete: %v", err)
	}
	if err := f.svc.EditComment(ctx, alice, root.ID, "too late"); err != services.ErrCommentNotFound {
		t.Errorf("edit after delete: %v", err)
	}
	if _, err := f.svc.AddComment(ctx, bob, f.movie, "late reply", &root.ID); err != services.ErrParentDeleted {
		t.Errorf("reply to deleted: %v", err)
	}
	if _, err := f.svc.SetReaction(ctx, bob, root.ID, models.ReactionUpvote); err != services.ErrReactionNotFound {
		t.Errorf("react to deleted: %v", err)
	}

	page, _ := f.svc.ListThreads(ctx, services.Anonymous, f.movie, 1, 20, services.SortNewest)
	v := page.Items[0]
	if !v.IsDeleted || v.Content != services.DeletedPlaceholder || v.ContentHTML != "" {
		t.Errorf("deleted root should render as placeholder: %+v", v)
	}
	if !v.IsEdited || v.EditedAt == nil {
		t.Error("edited flag and time must survive deletion")
	}
	if v.AuthorName != "alice" || len(v.Replies) != 1 || v.Replies[0].ID != reply.ID {
		t.Error("placeholder keeps author and replies")
	}
}

func TestReactionsThroughService(t *testing.T) {
	f := newCachedFixture(t)
	ctx := context.Background()
	c, _ := f.svc.AddComment(ctx, services.AsUser(f.alice), f.movie, "vote on me", nil)

	if _, err := f.svc.SetReaction(ctx, services.Anonymous, c.ID, models.ReactionUpvote); !services.IsKind(err, services.KindUnauthorized) {
		t.Errorf("anonymous reaction: %v", err)
	}
	if err := f.svc.RemoveReaction(ctx, services.AsUser(f.bob), c.ID); err != nil {
		t.Errorf("remove without reaction: %v", err)
	}

	// warm the cache before voting
	if _, err := f.svc.ListThreads(ctx, services.AsUser(f.bob), f.movie, 1, 20, services.SortNewest); err != nil {
		t.Fatal(err)
	}
	res, err := f.svc.SetReaction(ctx, services.AsUser(f.bob), c.ID, models.ReactionUpvote)
	if err != nil || !res.IsNew {
		t.Fatalf("upvote: %+v %v", res, err)
	}
	res, _ = f.svc.SetReaction(ctx, services.AsUser(f.bob), c.ID, models.ReactionDownvote)
	if res.IsNew {
		t.Error("flip should not be new")
	}

	bobView, _ := f.svc.ListThreads(ctx, services.AsUser(f.bob), f.movie, 1, 20, services.SortNewest)
	got := bobView.Items[0].ReactionStats
	if got.Upvotes != 0 || got.Downvotes != 1 || got.Score != -1 || got.CallerReaction == nil || *got.CallerReaction != models.ReactionDownvote {
		t.Errorf("bob sees %+v", got)
	}
	aliceView, _ := f.svc.ListThreads(ctx, services.AsUser(f.alice), f.movie, 1, 20, services.SortNewest)
	if aliceView.Items[0].ReactionStats.CallerReaction != nil {
		t.Error("another caller's polarity leaked through the cache")
	}

	if err := f.svc.RemoveReaction(ctx, services.AsUser(f.bob), c.ID); err != nil {
		t.Fatal(err)
	}
	after, _ := f.svc.ListThreads(ctx, services.AsUser(f.bob), f.movie, 1, 20, services.SortNewest)
	if after.Items[0].ReactionStats != (services.ReactionStats{}) {
		t.Errorf("stats after removal = %+v", after.Items[0].ReactionStats)
	}
}

func TestThreadCacheInvalidation(t *testing.T) {
	f := newCachedFixture(t)
	ctx := context.Background()
	alice := services.AsUser(f.alice)

	first, _ := f.svc.AddComment(ctx, alice, f.movie, "one", nil)
	p1, _ := f.svc.ListThreads(ctx, alice, f.movie, 1, 20, services.SortNewest)
	if p1.TotalCount != 1 {
		t.Fatalf("total = %d", p1.TotalCount)
	}

	if _, err := f.svc.AddComment(ctx, alice, f.movie, "two", nil); err != nil {
		t.Fatal(err)
	}
	p2, _ := f.svc.ListThreads(ctx, alice, f.movie, 1, 20, services.SortNewest)
	if p2.TotalCount != 2 {
		t.Errorf("new comment hidden by stale cache, total = %d", p2.TotalCount)
	}

	if err := f.svc.EditComment(ctx, alice, first.ID, "one, revised"); err != nil {
		t.Fatal(err)
	}
	p3, _ := f.svc.ListThreads(ctx, alice, f.movie, 1, 20, services.SortNewest)
	for _, item := range p3.Items {
		if item.ID == first.ID && item.Content != "one, revised" {
			t.Errorf("edit hidden by stale cache: %q", item.Content)
		}
	}
}

func TestCancelledRequests(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.ListThreads(ctx, services.Anonymous, f.movie, 1, 20, services.SortNewest)
	if !services.IsKind(err, services.KindCancelled) {
		t.Errorf("list: %v", err)
	}
	_, err = f.svc.AddComment(ctx, services.AsUser(f.alice), f.movie, "hi", nil)
	if !services.IsKind(err, services.KindCancelled) {
		t.Errorf("add: %v", err)
	}

	expired, cancel2 := context.WithTimeout(context.Background(), -time.Second)
	defer cancel2()
	if _, err := f.svc.ListThreads(expired, services.Anonymous, f.movie, 1, 20, services.SortNewest); !services.IsKind(err, services.KindCancelled) {
		t.Errorf("deadline: %v", err)
	}
}

func TestSelfReplyDoesNotNotify(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()
	me := services.AsUser(f.alice)
	root, _ := f.svc.AddComment(ctx, me, f.movie, "talking to myself", nil)
	_, _ = f.svc.AddComment(ctx, me, f.movie, "yes", &root.ID)
	if _, total, _ := f.store.ListNotifications(ctx, f.alice, 0, 10); total != 0 {
		t.Errorf("self reply created %d notifications", total)
	}
}

func TestReplyChainReusingParentVariable(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()
	me := services.AsUser(f.alice)

	root, err := f.svc.AddComment(ctx, me, f.movie, "root", nil)
	if err != nil {
		t.Fatal(err)
	}
	parent := root.ID
	r1, err := f.svc.AddComment(ctx, me, f.movie, "first", &parent)
	if err != nil {
		t.Fatal(err)
	}
	parent = r1.ID
	r2, err := f.svc.AddComment(ctx, me, f.movie, "second", &parent)
	if err != nil {
		t.Fatal(err)
	}
	parent = uuid.New()

	if r1.ParentID == nil || *r1.ParentID != root.ID {
		t.Errorf("returned view parent changed: %v", r1.ParentID)
	}
	stored, err := f.store.FindCommentByID(ctx, r1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *stored.ParentID != root.ID {
		t.Fatalf("r1 parent = %s, want root %s", *stored.ParentID, root.ID)
	}

	page, err := f.svc.ListThreads(ctx, services.Anonymous, f.movie, 1, 20, services.SortNewest)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("roots = %d, want 1", len(page.Items))
	}
	got := page.Items[0]
	if got.ReplyCount != 1 || len(got.Replies) != 1 || got.Replies[0].ID != r1.ID {
		t.Fatalf("root replies = %d/%d", got.ReplyCount, len(got.Replies))
	}
	if len(got.Replies[0].Replies) != 1 || got.Replies[0].Replies[0].ID != r2.ID {
		t.Error("r2 should hang under r1")
	}
}

func TestContentStoredAsSubmitted(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()
	me := services.AsUser(f.alice)

	v, err := f.svc.AddComment(ctx, me, f.movie, "  indented\n", nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Content != "  indented\n" {
		t.Errorf("content = %q", v.Content)
	}
	if err := f.svc.EditComment(ctx, me, v.ID, "\tstill here "); err != nil {
		t.Fatal(err)
	}
	c, _ := f.store.FindCommentByID(ctx, v.ID)
	if c.Content != "\tstill here " {
		t.Errorf("edited content = %q", c.Content)
	}
	if err := f.svc.EditComment(ctx, me, v.ID, " \n\t "); err != services.ErrInvalidContent {
		t.Errorf("blank edit: %v", err)
	}
}

func TestRetractOnDeletedComment(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()
	c, _ := f.svc.AddComment(ctx, services.AsUser(f.alice), f.movie, "soon gone", nil)
	if _, err := f.svc.SetReaction(ctx, services.AsUser(f.bob), c.ID, models.ReactionUpvote); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteComment(ctx, services.AsUser(f.alice), c.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.SetReaction(ctx, services.AsUser(f.bob), c.ID, models.ReactionDownvote); err != services.ErrReactionNotFound {
		t.Errorf("new vote on deleted comment: %v", err)
	}
	if err := f.svc.RemoveReaction(ctx, services.AsUser(f.bob), c.ID); err != nil {
		t.Fatalf("retract on deleted comment: %v", err)
	}
	if n := f.store.ReactionRows(f.bob, c.ID); n != 0 {
		t.Errorf("rows = %d after retract", n)
	}
}

func TestCommentInAttachment(t *testing.T) {
	f := newFixture(t, services.Options{})
	ctx := context.Background()
	c, _ := f.svc.AddComment(ctx, services.AsUser(f.alice), f.movie, "here", nil)

	if err := f.svc.CommentInAttachment(ctx, f.movie, c.ID); err != nil {
		t.Errorf("own movie: %v", err)
	}
	if err := f.svc.CommentInAttachment(ctx, f.other, c.ID); err != services.ErrCommentNotFound {
		t.Errorf("other movie: %v", err)
	}
	if err := f.svc.CommentInAttachment(ctx, f.movie, uuid.New()); err != services.ErrCommentNotFound {
		t.Errorf("missing comment: %v", err)
	}
}
