// Package store defines the error taxonomy and the username normalization
// rule shared by the social and content stores. Validation, lookup and
// state-conflict errors are returned to the caller with no side effects;
// they are never fatal to the process.
package store

import "errors"

var (
	// validation errors
	ErrUsernameInvalid = errors.New("username invalid")
	ErrPasswordInvalid = errors.New("password invalid")
	ErrTagInvalid      = errors.New("tag invalid")
	ErrTooManyTags     = errors.New("too many tags")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidPost     = errors.New("invalid post")
	ErrInvalidVote     = errors.New("invalid vote")
	ErrInvalidComment  = errors.New("invalid comment")

	// lookup errors
	ErrNoSuchUser = errors.New("no such user")
	ErrNoSuchPost = errors.New("no such post")

	// state-conflict errors
	ErrUsernameTaken    = errors.New("username already taken")
	ErrAlreadyLoggedIn  = errors.New("already logged in")
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrSameUser         = errors.New("same user")
)

// Normalize lower-cases its argument and strips everything that is not an
// ASCII letter or digit. Usernames and tags share the same rule, and every
// store keys its tables by the normalized form, so different spellings of
// one name always resolve to the same identity.
func Normalize(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b = append(b, c)
		case c >= 'A' && c <= 'Z':
			b = append(b, c+'a'-'A')
		}
	}
	return string(b)
}
