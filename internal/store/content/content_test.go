package content

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/princekumarofficial/winsome-service/internal/store"
	"github.com/princekumarofficial/winsome-service/internal/store/backup"
)

// fakeGraph is a canned follow graph standing in for the social store.
type fakeGraph struct {
	following map[string][]string
}

func (g *fakeGraph) Exists(username string) bool {
	_, ok := g.following[username]
	return ok
}

func (g *fakeGraph) Following(username string) ([]string, error) {
	followed, ok := g.following[username]
	if !ok {
		return nil, store.ErrNoSuchUser
	}
	return followed, nil
}

// graph: bob and carol follow alice, dave follows bob, eve follows nobody.
func testGraph() *fakeGraph {
	return &fakeGraph{following: map[string][]string{
		"alice": {},
		"bob":   {"alice"},
		"carol": {"alice"},
		"dave":  {"bob"},
		"eve":   {},
	}}
}

func newTestStore(t *testing.T, graph SocialGraph) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(
		backup.NewFile(filepath.Join(dir, "posts.json")),
		backup.NewFile(filepath.Join(dir, "engagement.json")),
		graph,
	)
	require.NoError(t, err)
	return s, dir
}

func reopen(t *testing.T, dir string, graph SocialGraph) *Store {
	t.Helper()
	s, err := Open(
		backup.NewFile(filepath.Join(dir, "posts.json")),
		backup.NewFile(filepath.Join(dir, "engagement.json")),
		graph,
	)
	require.NoError(t, err)
	return s
}

func TestCreatePostValidation(t *testing.T) {
	s, _ := newTestStore(t, testGraph())

	_, err := s.CreatePost("alice", "", "contents")
	require.ErrorIs(t, err, store.ErrInvalidPost)

	_, err = s.CreatePost("alice", strings.Repeat("x", 21), "contents")
	require.ErrorIs(t, err, store.ErrInvalidPost)

	_, err = s.CreatePost("alice", "title", "")
	require.ErrorIs(t, err, store.ErrInvalidPost)

	_, err = s.CreatePost("alice", "title", strings.Repeat("x", 501))
	require.ErrorIs(t, err, store.ErrInvalidPost)

	_, err = s.CreatePost("nobody", "title", "contents")
	require.ErrorIs(t, err, store.ErrNoSuchUser)

	id, err := s.CreatePost("alice", strings.Repeat("x", 20), strings.Repeat("y", 500))
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
}

func TestPostIDsAreMonotonic(t *testing.T) {
	s, _ := newTestStore(t, testGraph())

	first, err := s.CreatePost("alice", "one", "contents")
	require.NoError(t, err)
	second, err := s.CreatePost("alice", "two", "contents")
	require.NoError(t, err)
	require.Equal(t, first+1, second)

	// A deleted id is never reassigned.
	deleted, err := s.DeletePost("alice", second)
	require.NoError(t, err)
	require.True(t, deleted)

	third, err := s.CreatePost("alice", "three", "contents")
	require.NoError(t, err)
	require.Equal(t, second+1, third)
}

func TestFeedAndBlog(t *testing.T) {
	s, _ := newTestStore(t, testGraph())

	id, err := s.CreatePost("alice", "hi", "world")
	require.NoError(t, err)

	blog := s.Blog("alice")
	require.Len(t, blog, 1)
	require.Equal(t, id, blog[0].ID)

	feed, err := s.Feed("bob")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, "alice", feed[0].Author)

	// dave follows only bob, so alice's post is not in his feed.
	feed, err = s.Feed("dave")
	require.NoError(t, err)
	require.Empty(t, feed)

	_, err = s.Feed("nobody")
	require.ErrorIs(t, err, store.ErrNoSuchUser)
}

func TestVoteRules(t *testing.T) {
	s, _ := newTestStore(t, testGraph())
	id, err := s.CreatePost("alice", "hi", "world")
	require.NoError(t, err)

	// The author can never vote on their own post.
	err = s.Vote("alice", id, true)
	require.ErrorIs(t, err, store.ErrInvalidVote)

	// The post must be in the voter's feed.
	err = s.Vote("eve", id, true)
	require.ErrorIs(t, err, store.ErrInvalidVote)

	require.NoError(t, s.Vote("bob", id, true))

	// At most one vote per user, in either direction.
	err = s.Vote("bob", id, true)
	require.ErrorIs(t, err, store.ErrInvalidVote)
	err = s.Vote("bob", id, false)
	require.ErrorIs(t, err, store.ErrInvalidVote)

	err = s.Vote("bob", 999, true)
	require.ErrorIs(t, err, store.ErrNoSuchPost)

	detail, err := s.GetPost(id)
	require.NoError(t, err)
	require.Equal(t, 1, detail.Upvotes)
	require.Equal(t, 0, detail.Downvotes)
}

func TestCommentRules(t *testing.T) {
	s, _ := newTestStore(t, testGraph())
	id, err := s.CreatePost("alice", "hi", "world")
	require.NoError(t, err)

	err = s.Comment("alice", id, "nice")
	require.ErrorIs(t, err, store.ErrInvalidComment)

	err = s.Comment("bob", id, "")
	require.ErrorIs(t, err, store.ErrInvalidComment)

	err = s.Comment("eve", id, "nice")
	require.ErrorIs(t, err, store.ErrInvalidComment)

	require.NoError(t, s.Comment("bob", id, "first"))
	require.NoError(t, s.Comment("bob", id, "second"))

	detail, err := s.GetPost(id)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 2)
	require.Equal(t, "first", detail.Comments[0].Contents)
	require.Equal(t, "bob", detail.Comments[0].Author)
}

func TestRewin(t *testing.T) {
	s, _ := newTestStore(t, testGraph())
	id, err := s.CreatePost("alice", "hi", "world")
	require.NoError(t, err)

	// Not in dave's feed yet: he follows only bob.
	created, err := s.Rewin("dave", id)
	require.NoError(t, err)
	require.False(t, created)

	// The author cannot rewin their own post.
	created, err = s.Rewin("alice", id)
	require.NoError(t, err)
	require.False(t, created)

	created, err = s.Rewin("bob", id)
	require.NoError(t, err)
	require.True(t, created)

	// Repeat rewin is a no-op.
	created, err = s.Rewin("bob", id)
	require.NoError(t, err)
	require.False(t, created)

	// The rewin puts the post on bob's blog and therefore in dave's feed.
	blog := s.Blog("bob")
	require.Len(t, blog, 1)
	require.Equal(t, "alice", blog[0].Author)

	feed, err := s.Feed("dave")
	require.NoError(t, err)
	require.Len(t, feed, 1)

	// Which makes dave vote-eligible.
	require.NoError(t, s.Vote("dave", id, true))
}

func TestMixedCaseUsernamesShareOneIdentity(t *testing.T) {
	s, _ := newTestStore(t, testGraph())

	// A post authored under a mixed-case spelling lands on the canonical
	// blog and in every follower's feed.
	id, err := s.CreatePost("Alice", "hi", "world")
	require.NoError(t, err)

	feed, err := s.Feed("bob")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, "alice", feed[0].Author)

	require.Len(t, s.Blog("ALICE"), 1)

	// One vote per user, regardless of spelling.
	require.NoError(t, s.Vote("Bob", id, true))
	err = s.Vote("bob", id, true)
	require.ErrorIs(t, err, store.ErrInvalidVote)

	// The author never engages their own post under any spelling.
	err = s.Vote("aLiCe", id, true)
	require.ErrorIs(t, err, store.ErrInvalidVote)
	err = s.Comment("ALICE", id, "mine")
	require.ErrorIs(t, err, store.ErrInvalidComment)
}

func TestDeletePost(t *testing.T) {
	s, _ := newTestStore(t, testGraph())
	id, err := s.CreatePost("alice", "hi", "world")
	require.NoError(t, err)

	_, err = s.Rewin("bob", id)
	require.NoError(t, err)

	// Only the author may delete.
	deleted, err := s.DeletePost("bob", id)
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = s.DeletePost("alice", id)
	require.NoError(t, err)
	require.True(t, deleted)

	require.Empty(t, s.Blog("alice"))
	require.Empty(t, s.Blog("bob"))

	feed, err := s.Feed("bob")
	require.NoError(t, err)
	require.Empty(t, feed)

	_, err = s.GetPost(id)
	require.ErrorIs(t, err, store.ErrNoSuchPost)
	err = s.Vote("bob", id, true)
	require.ErrorIs(t, err, store.ErrNoSuchPost)
	err = s.Comment("bob", id, "late")
	require.ErrorIs(t, err, store.ErrNoSuchPost)

	_, err = s.DeletePost("alice", id)
	require.ErrorIs(t, err, store.ErrNoSuchPost)
}

func TestCollectCycleGainsScenario(t *testing.T) {
	s, _ := newTestStore(t, testGraph())
	id, err := s.CreatePost("alice", "hi", "world")
	require.NoError(t, err)

	require.NoError(t, s.Vote("bob", id, true))

	gains := s.CollectCycleGains()
	require.Len(t, gains, 1)
	require.Equal(t, id, gains[0].PostID)
	require.Equal(t, "alice", gains[0].Author)
	require.InDelta(t, math.Log(2), gains[0].Gain, 1e-9)
	require.Equal(t, []string{"bob"}, gains[0].Curators)

	// Counters were reset: the next cycle sees no engagement, and the
	// cycle count keeps growing.
	gains = s.CollectCycleGains()
	require.Len(t, gains, 1)
	require.Zero(t, gains[0].Gain)
	require.Empty(t, gains[0].Curators)
}

func TestCycleCountDampensGain(t *testing.T) {
	s, _ := newTestStore(t, testGraph())
	id, err := s.CreatePost("alice", "hi", "world")
	require.NoError(t, err)

	// Three empty cycles age the post without any engagement.
	for i := 0; i < 3; i++ {
		gains := s.CollectCycleGains()
		require.Zero(t, gains[0].Gain)
	}

	require.NoError(t, s.Vote("bob", id, true))

	gains := s.CollectCycleGains()
	require.InDelta(t, math.Log(2)/4, gains[0].Gain, 1e-9)
}

func TestDownvotesClampAndEarnNothing(t *testing.T) {
	s, _ := newTestStore(t, testGraph())
	id, err := s.CreatePost("alice", "hi", "world")
	require.NoError(t, err)

	require.NoError(t, s.Vote("bob", id, false))
	require.NoError(t, s.Vote("carol", id, false))

	// A negative delta is clamped to zero, not turned into a penalty,
	// and downvoters are never curators.
	gains := s.CollectCycleGains()
	require.Zero(t, gains[0].Gain)
	require.Empty(t, gains[0].Curators)
}

func TestCommentScoreDiminishingReturns(t *testing.T) {
	s, _ := newTestStore(t, testGraph())
	id, err := s.CreatePost("alice", "hi", "world")
	require.NoError(t, err)

	require.NoError(t, s.Comment("bob", id, "one"))
	require.NoError(t, s.Comment("bob", id, "two"))
	require.NoError(t, s.Comment("carol", id, "three"))

	// commentScore = 2/(1+e^-(2-1)) + 2/(1+e^-(1-1))
	expectedScore := 2/(1+math.Exp(-1)) + 1
	expectedGain := math.Log(expectedScore + 1)

	gains := s.CollectCycleGains()
	require.InDelta(t, expectedGain, gains[0].Gain, 1e-9)
	require.Equal(t, []string{"bob", "carol"}, gains[0].Curators)
}

func TestPersistenceRoundTrip(t *testing.T) {
	graph := testGraph()
	s, dir := newTestStore(t, graph)

	id, err := s.CreatePost("alice", "hi", "world")
	require.NoError(t, err)
	require.NoError(t, s.Vote("bob", id, true))
	require.NoError(t, s.Comment("carol", id, "nice"))
	_, err = s.Rewin("bob", id)
	require.NoError(t, err)

	require.NoError(t, s.Flush())

	loaded := reopen(t, dir, graph)

	detail, err := loaded.GetPost(id)
	require.NoError(t, err)
	require.Equal(t, "hi", detail.Title)
	require.Equal(t, "world", detail.Contents)
	require.Equal(t, 1, detail.Upvotes)
	require.Equal(t, []string{"bob"}, detail.RewonBy)
	require.Len(t, detail.Comments, 1)

	// The author index covers rewinners after a reload.
	require.Len(t, loaded.Blog("bob"), 1)

	// bob's vote survived the restart: voting again is rejected.
	err = loaded.Vote("bob", id, true)
	require.ErrorIs(t, err, store.ErrInvalidVote)

	// New ids continue after the highest persisted one.
	next, err := loaded.CreatePost("alice", "again", "more")
	require.NoError(t, err)
	require.Equal(t, id+1, next)
}

func TestDeletionSurvivesRestart(t *testing.T) {
	graph := testGraph()
	s, dir := newTestStore(t, graph)

	id, err := s.CreatePost("alice", "hi", "world")
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	deleted, err := s.DeletePost("alice", id)
	require.NoError(t, err)
	require.True(t, deleted)
	require.NoError(t, s.Flush())

	loaded := reopen(t, dir, graph)
	_, err = loaded.GetPost(id)
	require.ErrorIs(t, err, store.ErrNoSuchPost)
	require.Empty(t, loaded.Blog("alice"))
}

func TestDeleteBeforeFirstFlushLeavesNoTrace(t *testing.T) {
	graph := testGraph()
	s, dir := newTestStore(t, graph)

	id, err := s.CreatePost("alice", "hi", "world")
	require.NoError(t, err)
	deleted, err := s.DeletePost("alice", id)
	require.NoError(t, err)
	require.True(t, deleted)

	require.NoError(t, s.Flush())

	var records []postRecord
	require.NoError(t, s.postsFile.Load(&records))
	require.Empty(t, records)

	loaded := reopen(t, dir, graph)
	_, err = loaded.GetPost(id)
	require.ErrorIs(t, err, store.ErrNoSuchPost)
}
