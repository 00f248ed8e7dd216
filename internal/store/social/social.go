// Package social owns the user table, the tag interest index, the follow
// graph and per-user wallets. Every multi-map update (registration touches
// the user table and the tag index, follow touches both sides of the graph)
// runs under the single store lock, so readers never observe a half-applied
// mutation.
package social

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/princekumarofficial/winsome-service/internal/store"
	"github.com/princekumarofficial/winsome-service/internal/store/backup"
	"github.com/princekumarofficial/winsome-service/internal/types"
	"github.com/princekumarofficial/winsome-service/internal/utils/password"
)

// MaxTags is the maximum number of interest tags a user may register with.
const MaxTags = 5

// FollowNotifier receives follow-graph changes after they are committed.
// Callbacks run outside the store lock.
type FollowNotifier interface {
	OnFollow(follower, followed string)
	OnUnfollow(follower, followed string)
}

// user is owned exclusively by the store; it never leaves the package.
type user struct {
	username       string
	passwordDigest []byte
	salt           []byte
	tags           []string
	following      map[string]struct{}
	connectionID   string
	balance        float64
	transactions   []types.Transaction
}

// Store is the social half of the server state. All maps are guarded by mu.
type Store struct {
	mu sync.RWMutex

	users        map[string]*user
	pendingUsers map[string]struct{} // registered since the last flush

	// dirtyFollowing holds usernames whose follow set changed since the
	// last flush; their record is re-appended and the latest occurrence
	// wins at load time.
	dirtyFollowing map[string]struct{}

	tagIndex  map[string]map[string]struct{} // tag -> interested usernames
	followers map[string]map[string]struct{} // username -> follower set

	usersFile     *backup.File
	followingFile *backup.File

	notifier FollowNotifier
}

// Open rehydrates the store from the backup files under dir, creating them
// on first run.
func Open(usersFile, followingFile *backup.File) (*Store, error) {
	s := &Store{
		users:          make(map[string]*user),
		pendingUsers:   make(map[string]struct{}),
		dirtyFollowing: make(map[string]struct{}),
		tagIndex:       make(map[string]map[string]struct{}),
		followers:      make(map[string]map[string]struct{}),
		usersFile:      usersFile,
		followingFile:  followingFile,
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load social store: %w", err)
	}
	return s, nil
}

// SetNotifier installs the follow-graph change listener. Must be called
// before the store is shared across goroutines.
func (s *Store) SetNotifier(n FollowNotifier) {
	s.notifier = n
}

// Register creates a new user. The password digest must already be computed
// by the caller as hash(password, salt).
func (s *Store) Register(username string, digest, salt []byte, tags []string) error {
	name := store.Normalize(username)
	if name == "" {
		return store.ErrUsernameInvalid
	}
	if bytes.Equal(digest, password.Hash("", salt)) {
		return store.ErrPasswordInvalid
	}
	if len(tags) > MaxTags {
		return store.ErrTooManyTags
	}

	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := store.Normalize(tag)
		if t == "" {
			return store.ErrTagInvalid
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		normalized = append(normalized, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Taken-check covers persisted and pending users alike: both live in
	// the same table, only the flush bookkeeping differs.
	if _, ok := s.users[name]; ok {
		return store.ErrUsernameTaken
	}

	s.users[name] = &user{
		username:       name,
		passwordDigest: digest,
		salt:           salt,
		tags:           normalized,
		following:      make(map[string]struct{}),
	}
	s.pendingUsers[name] = struct{}{}
	s.followers[name] = make(map[string]struct{})
	for _, t := range normalized {
		if s.tagIndex[t] == nil {
			s.tagIndex[t] = make(map[string]struct{})
		}
		s.tagIndex[t][name] = struct{}{}
	}
	return nil
}

// BeginLogin returns the salt for the user so the client can compute the
// password digest. No credentials are checked here.
func (s *Store) BeginLogin(username string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[store.Normalize(username)]
	if !ok {
		return nil, store.ErrNoSuchUser
	}
	return u.salt, nil
}

// Login binds connectionID to the user's session slot and returns the
// canonical username, so callers issue session credentials for the stored
// identity rather than whatever spelling the client sent. A user has at
// most one concurrent session.
func (s *Store) Login(username, connectionID string, digest []byte) (string, error) {
	name := store.Normalize(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[name]
	if !ok {
		return "", store.ErrNoSuchUser
	}
	if u.connectionID != "" {
		return "", store.ErrAlreadyLoggedIn
	}
	if !bytes.Equal(u.passwordDigest, digest) {
		return "", store.ErrWrongCredentials
	}
	u.connectionID = connectionID
	return name, nil
}

// Logout releases the session slot; the connection id must match the one
// bound at login.
func (s *Store) Logout(username, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[store.Normalize(username)]
	if !ok {
		return store.ErrNoSuchUser
	}
	if u.connectionID == "" || u.connectionID != connectionID {
		return store.ErrNotLoggedIn
	}
	u.connectionID = ""
	return nil
}

// UsersWithSharedInterest returns every other registered user sharing at
// least one tag with username.
func (s *Store) UsersWithSharedInterest(username string) ([]string, error) {
	name := store.Normalize(username)

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[name]
	if !ok {
		return nil, store.ErrNoSuchUser
	}

	shared := make(map[string]struct{})
	for _, tag := range u.tags {
		for other := range s.tagIndex[tag] {
			if other != name {
				shared[other] = struct{}{}
			}
		}
	}
	return sortedKeys(shared), nil
}

// TagsOf returns the interest tags a user registered with.
func (s *Store) TagsOf(username string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[store.Normalize(username)]
	if !ok {
		return nil, store.ErrNoSuchUser
	}
	tags := make([]string, len(u.tags))
	copy(tags, u.tags)
	return tags, nil
}

// Follow adds an edge from follower to followed. Returns true if the edge
// is new, false if it already existed.
func (s *Store) Follow(follower, followed string) (bool, error) {
	fr, fd := store.Normalize(follower), store.Normalize(followed)
	if fr == fd {
		return false, store.ErrSameUser
	}

	s.mu.Lock()
	uf, ok := s.users[fr]
	if !ok {
		s.mu.Unlock()
		return false, store.ErrNoSuchUser
	}
	if _, ok := s.users[fd]; !ok {
		s.mu.Unlock()
		return false, store.ErrNoSuchUser
	}
	if _, ok := uf.following[fd]; ok {
		s.mu.Unlock()
		return false, nil
	}
	uf.following[fd] = struct{}{}
	s.followers[fd][fr] = struct{}{}
	s.dirtyFollowing[fr] = struct{}{}
	notifier := s.notifier
	s.mu.Unlock()

	if notifier != nil {
		notifier.OnFollow(fr, fd)
	}
	return true, nil
}

// Unfollow removes the edge from follower to followed. Returns true if the
// edge existed.
func (s *Store) Unfollow(follower, followed string) (bool, error) {
	fr, fd := store.Normalize(follower), store.Normalize(followed)
	if fr == fd {
		return false, store.ErrSameUser
	}

	s.mu.Lock()
	uf, ok := s.users[fr]
	if !ok {
		s.mu.Unlock()
		return false, store.ErrNoSuchUser
	}
	if _, ok := s.users[fd]; !ok {
		s.mu.Unlock()
		return false, store.ErrNoSuchUser
	}
	if _, ok := uf.following[fd]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(uf.following, fd)
	delete(s.followers[fd], fr)
	s.dirtyFollowing[fr] = struct{}{}
	notifier := s.notifier
	s.mu.Unlock()

	if notifier != nil {
		notifier.OnUnfollow(fr, fd)
	}
	return true, nil
}

// Following returns the users username follows, sorted.
func (s *Store) Following(username string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[store.Normalize(username)]
	if !ok {
		return nil, store.ErrNoSuchUser
	}
	return sortedKeys(u.following), nil
}

// Followers returns the users following username, sorted.
func (s *Store) Followers(username string) ([]string, error) {
	name := store.Normalize(username)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[name]; !ok {
		return nil, store.ErrNoSuchUser
	}
	return sortedKeys(s.followers[name]), nil
}

// Exists reports whether username is registered.
func (s *Store) Exists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[store.Normalize(username)]
	return ok
}

// CreditWallet appends a transaction and increases the balance. Amounts
// must be positive; the transaction list is append-only.
func (s *Store) CreditWallet(username string, amount float64) error {
	if amount <= 0 {
		return store.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[store.Normalize(username)]
	if !ok {
		return store.ErrNoSuchUser
	}
	u.balance += amount
	u.transactions = append(u.transactions, types.Transaction{
		Amount:    amount,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

// WalletOf returns the balance and full transaction history for username.
func (s *Store) WalletOf(username string) (types.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[store.Normalize(username)]
	if !ok {
		return types.Wallet{}, store.ErrNoSuchUser
	}
	txs := make([]types.Transaction, len(u.transactions))
	copy(txs, u.transactions)
	return types.Wallet{Balance: u.balance, Transactions: txs}, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := lo.Keys(set)
	sort.Strings(keys)
	return keys
}
