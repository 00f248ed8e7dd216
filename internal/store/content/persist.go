package content

import (
	"fmt"
	"sort"

	"github.com/princekumarofficial/winsome-service/internal/types"
)

// Backup record shapes. The immutable half of a post is append-once; the
// engagement half is re-appended whenever votes, comments or rewins change,
// and the last occurrence per id wins at load time. A deletion is recorded
// as an engagement tombstone, since post ids are never reused.

type postRecord struct {
	ID       int64  `json:"id"`
	Author   string `json:"author"`
	Title    string `json:"title"`
	Contents string `json:"contents"`
}

type engagementRecord struct {
	ID          int64           `json:"id"`
	UpvotedBy   []string        `json:"upvotedBy"`
	DownvotedBy []string        `json:"downvotedBy"`
	RewonBy     []string        `json:"rewonBy"`
	Comments    []types.Comment `json:"comments"`
	Deleted     bool            `json:"deleted,omitempty"`
}

// Name identifies the store in backup worker logs.
func (s *Store) Name() string {
	return "content"
}

// Flush snapshots and clears the pending sets, then appends to disk. The
// write lock excludes every engagement writer while the snapshot is built;
// disk I/O happens after it is released. Appends are atomic file swaps, so
// a failed flush writes nothing and the snapshot is simply re-queued.
func (s *Store) Flush() error {
	s.mu.Lock()
	s.dirtyMu.Lock()

	newIDs := sortedIDs(s.pendingPosts)
	newPosts := make([]any, 0, len(newIDs))
	for _, id := range newIDs {
		p := s.posts[id]
		newPosts = append(newPosts, postRecord{
			ID:       p.id,
			Author:   p.author,
			Title:    p.title,
			Contents: p.contents,
		})
	}
	s.pendingPosts = make(map[int64]struct{})

	dirtyIDs := sortedIDs(s.dirtyEngagement)
	engagement := make([]any, 0, len(dirtyIDs)+len(s.pendingDeleted))
	for _, id := range dirtyIDs {
		p, ok := s.posts[id]
		if !ok {
			continue
		}
		engagement = append(engagement, engagementRecord{
			ID:          p.id,
			UpvotedBy:   sortedKeys(p.upvotedBy),
			DownvotedBy: sortedKeys(p.downvotedBy),
			RewonBy:     sortedKeys(p.rewonBy),
			Comments:    append([]types.Comment{}, p.comments...),
		})
	}
	s.dirtyEngagement = make(map[int64]struct{})

	deletedIDs := sortedIDs(s.pendingDeleted)
	for _, id := range deletedIDs {
		engagement = append(engagement, engagementRecord{ID: id, Deleted: true})
	}
	s.pendingDeleted = make(map[int64]struct{})

	s.dirtyMu.Unlock()
	s.mu.Unlock()

	if err := s.postsFile.Append(newPosts); err != nil {
		s.requeue(newIDs, dirtyIDs, deletedIDs)
		return fmt.Errorf("failed to flush posts: %w", err)
	}
	if err := s.engagementFile.Append(engagement); err != nil {
		s.requeue(nil, dirtyIDs, deletedIDs)
		return fmt.Errorf("failed to flush engagement: %w", err)
	}
	return nil
}

func (s *Store) requeue(pendingPosts, dirtyEngagement, pendingDeleted []int64) {
	s.dirtyMu.Lock()
	defer s.dirtyMu.Unlock()
	for _, id := range pendingPosts {
		s.pendingPosts[id] = struct{}{}
	}
	for _, id := range dirtyEngagement {
		s.dirtyEngagement[id] = struct{}{}
	}
	for _, id := range pendingDeleted {
		s.pendingDeleted[id] = struct{}{}
	}
}

// load rehydrates the post table and author index from the two backup
// files. Engagement records are applied in file order so the newest version
// of a post's engagement wins; a tombstone drops the post for good.
func (s *Store) load() error {
	var postRecords []postRecord
	if err := s.postsFile.Load(&postRecords); err != nil {
		return err
	}
	for _, rec := range postRecords {
		s.posts[rec.ID] = &post{
			id:            rec.ID,
			author:        rec.Author,
			title:         rec.Title,
			contents:      rec.Contents,
			rewonBy:       make(map[string]struct{}),
			upvotedBy:     make(map[string]struct{}),
			downvotedBy:   make(map[string]struct{}),
			commentCounts: make(map[string]int),
			curators:      make(map[string]struct{}),
		}
		if rec.ID > s.nextID {
			s.nextID = rec.ID
		}
	}

	var engagementRecords []engagementRecord
	if err := s.engagementFile.Load(&engagementRecords); err != nil {
		return err
	}
	for _, rec := range engagementRecords {
		if rec.Deleted {
			delete(s.posts, rec.ID)
			continue
		}
		p, ok := s.posts[rec.ID]
		if !ok {
			continue
		}
		p.upvotedBy = toSet(rec.UpvotedBy)
		p.downvotedBy = toSet(rec.DownvotedBy)
		p.rewonBy = toSet(rec.RewonBy)
		p.comments = append([]types.Comment{}, rec.Comments...)
	}

	for id, p := range s.posts {
		s.index(p.author, id)
		for rewinner := range p.rewonBy {
			s.index(rewinner, id)
		}
	}
	return nil
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
