package social

import (
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// Backup record shapes. Users are append-once; following records are
// re-appended whenever a follow set changes and the last occurrence per
// username wins at load time.

type tagRecord struct {
	Name string `json:"name"`
}

type userRecord struct {
	Username       string      `json:"username"`
	PasswordDigest string      `json:"passwordDigest"`
	Salt           string      `json:"salt"`
	Tags           []tagRecord `json:"tags"`
}

type followingRecord struct {
	Username  string   `json:"username"`
	Following []string `json:"following"`
}

// Name identifies the store in backup worker logs.
func (s *Store) Name() string {
	return "social"
}

// Flush snapshots and clears the pending sets under the store lock, then
// appends the snapshot to disk without holding it, so producers are never
// blocked on I/O. Appends go through an atomic file swap: a failed flush
// writes nothing, so re-queueing the snapshot cannot duplicate records.
func (s *Store) Flush() error {
	s.mu.Lock()
	newNames := sortedKeys(s.pendingUsers)
	newUsers := make([]any, 0, len(newNames))
	for _, name := range newNames {
		u := s.users[name]
		newUsers = append(newUsers, userRecord{
			Username:       u.username,
			PasswordDigest: base64.StdEncoding.EncodeToString(u.passwordDigest),
			Salt:           base64.StdEncoding.EncodeToString(u.salt),
			Tags: lo.Map(u.tags, func(t string, _ int) tagRecord {
				return tagRecord{Name: t}
			}),
		})
	}
	s.pendingUsers = make(map[string]struct{})

	dirtyNames := sortedKeys(s.dirtyFollowing)
	followRecords := make([]any, 0, len(dirtyNames))
	for _, name := range dirtyNames {
		followRecords = append(followRecords, followingRecord{
			Username:  name,
			Following: sortedKeys(s.users[name].following),
		})
	}
	s.dirtyFollowing = make(map[string]struct{})
	s.mu.Unlock()

	if err := s.usersFile.Append(newUsers); err != nil {
		s.requeue(newNames, dirtyNames)
		return fmt.Errorf("failed to flush users: %w", err)
	}
	if err := s.followingFile.Append(followRecords); err != nil {
		s.requeue(nil, dirtyNames)
		return fmt.Errorf("failed to flush follow graph: %w", err)
	}
	return nil
}

func (s *Store) requeue(pendingUsers, dirtyFollowing []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range pendingUsers {
		s.pendingUsers[name] = struct{}{}
	}
	for _, name := range dirtyFollowing {
		s.dirtyFollowing[name] = struct{}{}
	}
}

// load rehydrates the user table, tag index and follow graph from the two
// backup files.
func (s *Store) load() error {
	var userRecords []userRecord
	if err := s.usersFile.Load(&userRecords); err != nil {
		return err
	}
	for _, rec := range userRecords {
		digest, err := base64.StdEncoding.DecodeString(rec.PasswordDigest)
		if err != nil {
			return fmt.Errorf("bad password digest for %q: %w", rec.Username, err)
		}
		salt, err := base64.StdEncoding.DecodeString(rec.Salt)
		if err != nil {
			return fmt.Errorf("bad salt for %q: %w", rec.Username, err)
		}
		tags := lo.Map(rec.Tags, func(t tagRecord, _ int) string { return t.Name })
		sort.Strings(tags)
		s.users[rec.Username] = &user{
			username:       rec.Username,
			passwordDigest: digest,
			salt:           salt,
			tags:           tags,
			following:      make(map[string]struct{}),
		}
	}

	var followRecords []followingRecord
	if err := s.followingFile.Load(&followRecords); err != nil {
		return err
	}
	// Records are applied in file order so the newest version of a follow
	// set overwrites older ones.
	for _, rec := range followRecords {
		u, ok := s.users[rec.Username]
		if !ok {
			continue
		}
		u.following = make(map[string]struct{}, len(rec.Following))
		for _, followed := range rec.Following {
			if _, ok := s.users[followed]; ok {
				u.following[followed] = struct{}{}
			}
		}
	}

	for name := range s.users {
		s.followers[name] = make(map[string]struct{})
	}
	for name, u := range s.users {
		for _, tag := range u.tags {
			if s.tagIndex[tag] == nil {
				s.tagIndex[tag] = make(map[string]struct{})
			}
			s.tagIndex[tag][name] = struct{}{}
		}
		for followed := range u.following {
			s.followers[followed][name] = struct{}{}
		}
	}
	return nil
}
