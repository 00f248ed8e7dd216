// Package content owns the post table, the author index and per-post
// engagement state. The store lock guards the post table and indexes; each
// post carries its own mutex serializing vote/comment/gain-collection, which
// read-modify-write several fields together. Feed authorization consults the
// social store through the SocialGraph interface; the social lock is always
// taken and released before the content lock, never held across it.
// Usernames are normalized on entry, so authors, voters and rewinners are
// keyed by the same canonical form the social store uses.
package content

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/princekumarofficial/winsome-service/internal/store"
	"github.com/princekumarofficial/winsome-service/internal/store/backup"
	"github.com/princekumarofficial/winsome-service/internal/types"
)

const (
	MaxTitleLen    = 20
	MaxContentsLen = 500
)

// SocialGraph is the slice of the social store the content store needs to
// resolve feed membership.
type SocialGraph interface {
	Exists(username string) bool
	Following(username string) ([]string, error)
}

// post is owned exclusively by the store. Immutable fields (id, author,
// title, contents) are safe to read at any time; rewonBy is mutated only
// under the store write lock; everything below the mutex is guarded by it
// together with a store read lock.
type post struct {
	id       int64
	author   string
	title    string
	contents string

	rewonBy map[string]struct{}

	mu          sync.Mutex
	upvotedBy   map[string]struct{}
	downvotedBy map[string]struct{}
	comments    []types.Comment

	// Engagement accumulated since the last reward cycle. Reset on every
	// CollectCycleGains call; never persisted.
	voteDelta     int
	commentCounts map[string]int
	curators      map[string]struct{}
	cycles        int
}

// CycleGain is one post's score for a reward cycle.
type CycleGain struct {
	PostID   int64
	Author   string
	Gain     float64
	Curators []string
}

// Store is the content half of the server state.
type Store struct {
	mu sync.RWMutex

	posts    map[int64]*post
	byAuthor map[string]map[int64]struct{} // author and rewinners -> post ids
	nextID   int64                         // owned by this instance, not a package global

	social SocialGraph

	// Flush bookkeeping, guarded by dirtyMu because votes and comments
	// mark posts dirty while holding only the store read lock.
	dirtyMu         sync.Mutex
	pendingPosts    map[int64]struct{} // created since the last flush
	dirtyEngagement map[int64]struct{} // engagement changed since the last flush
	pendingDeleted  map[int64]struct{} // deleted since the last flush

	postsFile      *backup.File
	engagementFile *backup.File
}

// Open rehydrates the store from the backup files.
func Open(postsFile, engagementFile *backup.File, social SocialGraph) (*Store, error) {
	s := &Store{
		posts:           make(map[int64]*post),
		byAuthor:        make(map[string]map[int64]struct{}),
		social:          social,
		pendingPosts:    make(map[int64]struct{}),
		dirtyEngagement: make(map[int64]struct{}),
		pendingDeleted:  make(map[int64]struct{}),
		postsFile:       postsFile,
		engagementFile:  engagementFile,
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load content store: %w", err)
	}
	return s, nil
}

// CreatePost validates and stores a new post, returning its id. Ids are
// monotonically increasing and never reused, even after deletion.
func (s *Store) CreatePost(author, title, contents string) (int64, error) {
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLen ||
		contents == "" || utf8.RuneCountInString(contents) > MaxContentsLen {
		return 0, store.ErrInvalidPost
	}
	author = store.Normalize(author)
	if !s.social.Exists(author) {
		return 0, store.ErrNoSuchUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.posts[id] = &post{
		id:            id,
		author:        author,
		title:         title,
		contents:      contents,
		rewonBy:       make(map[string]struct{}),
		upvotedBy:     make(map[string]struct{}),
		downvotedBy:   make(map[string]struct{}),
		commentCounts: make(map[string]int),
		curators:      make(map[string]struct{}),
	}
	s.index(author, id)

	s.dirtyMu.Lock()
	s.pendingPosts[id] = struct{}{}
	s.dirtyMu.Unlock()

	return id, nil
}

// Blog returns the posts authored or rewon by username, sorted by id.
func (s *Store) Blog(username string) []types.PostSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.summaries(s.byAuthor[store.Normalize(username)])
}

// Feed returns the union of the blogs of every user username follows.
func (s *Store) Feed(username string) ([]types.PostSummary, error) {
	username = store.Normalize(username)
	if !s.social.Exists(username) {
		return nil, store.ErrNoSuchUser
	}
	following, err := s.social.Following(username)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[int64]struct{})
	for _, followed := range following {
		for id := range s.byAuthor[followed] {
			ids[id] = struct{}{}
		}
	}
	return s.summaries(ids), nil
}

// GetPost returns the full detail of a single post.
func (s *Store) GetPost(id int64) (types.PostDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return types.PostDetail{}, store.ErrNoSuchPost
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	comments := make([]types.Comment, len(p.comments))
	copy(comments, p.comments)
	return types.PostDetail{
		ID:        p.id,
		Author:    p.author,
		Title:     p.title,
		Contents:  p.contents,
		Upvotes:   len(p.upvotedBy),
		Downvotes: len(p.downvotedBy),
		RewonBy:   sortedKeys(p.rewonBy),
		Comments:  comments,
	}, nil
}

// DeletePost removes the post from the table and every index. Returns true
// only if username is the author. The write lock excludes every in-flight
// vote/comment/gain collection, so no mutation can land on a removed post.
func (s *Store) DeletePost(username string, id int64) (bool, error) {
	username = store.Normalize(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return false, store.ErrNoSuchPost
	}
	if p.author != username {
		return false, nil
	}

	delete(s.posts, id)
	delete(s.byAuthor[p.author], id)
	for rewinner := range p.rewonBy {
		delete(s.byAuthor[rewinner], id)
	}

	s.dirtyMu.Lock()
	delete(s.dirtyEngagement, id)
	if _, pending := s.pendingPosts[id]; pending {
		// Never reached disk: drop it entirely instead of writing a tombstone.
		delete(s.pendingPosts, id)
	} else {
		s.pendingDeleted[id] = struct{}{}
	}
	s.dirtyMu.Unlock()

	return true, nil
}

// Rewin re-shares a post under username's blog. Legal only while the post
// appears in username's feed; returns false for a repeat rewin, the user's
// own post, or a post outside the feed.
func (s *Store) Rewin(username string, id int64) (bool, error) {
	username = store.Normalize(username)
	followed, err := s.followingSet(username)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return false, store.ErrNoSuchPost
	}
	if p.author == username {
		return false, nil
	}
	if _, ok := p.rewonBy[username]; ok {
		return false, nil
	}
	if !inFeed(p, followed) {
		return false, nil
	}

	p.rewonBy[username] = struct{}{}
	s.index(username, id)
	s.markDirty(id)
	return true, nil
}

// Vote casts username's single vote on a post in their feed. Upvoters become
// curators for the current reward cycle; downvoters engage without endorsing
// and earn nothing.
func (s *Store) Vote(username string, id int64, upvote bool) error {
	username = store.Normalize(username)
	followed, err := s.followingSet(username)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return store.ErrNoSuchPost
	}
	if p.author == username || !inFeed(p, followed) {
		return store.ErrInvalidVote
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, voted := p.upvotedBy[username]; voted {
		return store.ErrInvalidVote
	}
	if _, voted := p.downvotedBy[username]; voted {
		return store.ErrInvalidVote
	}
	if upvote {
		p.upvotedBy[username] = struct{}{}
		p.voteDelta++
		p.curators[username] = struct{}{}
	} else {
		p.downvotedBy[username] = struct{}{}
		p.voteDelta--
	}
	s.markDirty(id)
	return nil
}

// Comment appends a comment to a post in username's feed.
func (s *Store) Comment(username string, id int64, contents string) error {
	if contents == "" {
		return store.ErrInvalidComment
	}
	username = store.Normalize(username)
	followed, err := s.followingSet(username)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return store.ErrNoSuchPost
	}
	if p.author == username || !inFeed(p, followed) {
		return store.ErrInvalidComment
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.comments = append(p.comments, types.Comment{Author: username, Contents: contents})
	p.commentCounts[username]++
	p.curators[username] = struct{}{}
	s.markDirty(id)
	return nil
}

// CollectCycleGains scores every post for the current reward cycle and
// resets its per-cycle engagement counters. The cycle counter grows even
// through inactive cycles, so a post's earning potential decays as it ages.
// A negative vote delta is clamped to zero, capping the vote term at ln(1)
// rather than penalizing the gain.
func (s *Store) CollectCycleGains() []CycleGain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := lo.Keys(s.posts)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	gains := make([]CycleGain, 0, len(ids))
	for _, id := range ids {
		p := s.posts[id]

		p.mu.Lock()
		p.cycles++

		commentScore := 0.0
		for _, count := range p.commentCounts {
			commentScore += 2 / (1 + math.Exp(-(float64(count) - 1)))
		}
		voteDelta := p.voteDelta
		if voteDelta < 0 {
			voteDelta = 0
		}
		gain := (math.Log(float64(voteDelta)+1) + math.Log(commentScore+1)) / float64(p.cycles)
		curators := sortedKeys(p.curators)

		p.voteDelta = 0
		p.commentCounts = make(map[string]int)
		p.curators = make(map[string]struct{})
		p.mu.Unlock()

		gains = append(gains, CycleGain{
			PostID:   id,
			Author:   p.author,
			Gain:     gain,
			Curators: curators,
		})
	}
	return gains
}

func (s *Store) followingSet(username string) (map[string]struct{}, error) {
	following, err := s.social.Following(username)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(following))
	for _, followed := range following {
		set[followed] = struct{}{}
	}
	return set, nil
}

// inFeed reports whether p is in the feed of a user following the given
// set: authored or rewon by someone they follow.
func inFeed(p *post, followed map[string]struct{}) bool {
	if _, ok := followed[p.author]; ok {
		return true
	}
	for rewinner := range p.rewonBy {
		if _, ok := followed[rewinner]; ok {
			return true
		}
	}
	return false
}

func (s *Store) index(username string, id int64) {
	if s.byAuthor[username] == nil {
		s.byAuthor[username] = make(map[int64]struct{})
	}
	s.byAuthor[username][id] = struct{}{}
}

func (s *Store) markDirty(id int64) {
	s.dirtyMu.Lock()
	s.dirtyEngagement[id] = struct{}{}
	s.dirtyMu.Unlock()
}

func (s *Store) summaries(ids map[int64]struct{}) []types.PostSummary {
	out := make([]types.PostSummary, 0, len(ids))
	for id := range ids {
		if p, ok := s.posts[id]; ok {
			out = append(out, types.PostSummary{ID: p.id, Author: p.author, Title: p.title})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := lo.Keys(set)
	sort.Strings(keys)
	return keys
}
