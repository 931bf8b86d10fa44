/*
errors.go - Error taxonomy for the forum core

ERROR CATEGORIES:
  1. NotFound - user, token, topic, or like target absent
  2. Conflict - duplicate like, unlike without like, name collisions
  3. InvalidArgument - unknown action verb, bad amount, empty content

  Insufficient balance is deliberately NOT here: Spend reports it as a
  present user with no minted token.

USAGE:
  if forum.IsConflict(err) {
      // 409
  }
*/
package forum

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrTokenNotFound  = errors.New("credit token not found")
	ErrTopicNotFound  = errors.New("topic not found")
	ErrTargetNotFound = errors.New("like target not found")

	// ErrAlreadyLiked is returned by a like on a (target, user) pair that is
	// already liked.
	ErrAlreadyLiked = errors.New("already liked")

	// ErrNotLiked is returned by an unlike with no prior like.
	ErrNotLiked = errors.New("not liked, cannot unlike")

	ErrAlreadyFavorited = errors.New("already favorited")
	ErrNotFavorited     = errors.New("not favorited, cannot unfavorite")

	// ErrDuplicateTokenName is returned by a store when a token insert hits
	// the unique name constraint. The ledger retries with a fresh name.
	ErrDuplicateTokenName = errors.New("duplicate credit token name")

	// ErrNameSpaceExhausted is returned when no free token name was found
	// within the attempt budget.
	ErrNameSpaceExhausted = errors.New("could not generate a unique token name")

	ErrTokenBanned = errors.New("credit token is banned")

	ErrInvalidAction = errors.New("invalid action")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrEmptyContent  = errors.New("content must not be empty")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ActionError reports an unrecognized action verb.
type ActionError struct {
	Action  string
	Allowed []string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("invalid action %q (allowed: %v)", e.Action, e.Allowed)
}

func (e *ActionError) Unwrap() error { return ErrInvalidAction }

// NameExhaustedError carries how many names were tried before giving up.
type NameExhaustedError struct {
	Attempts int
}

func (e *NameExhaustedError) Error() string {
	return fmt.Sprintf("could not generate a unique token name after %d attempts", e.Attempts)
}

func (e *NameExhaustedError) Unwrap() error { return ErrNameSpaceExhausted }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrTopicNotFound) ||
		errors.Is(err, ErrTargetNotFound)
}

// IsConflict returns true if the error is a state conflict the caller caused.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyLiked) ||
		errors.Is(err, ErrNotLiked) ||
		errors.Is(err, ErrAlreadyFavorited) ||
		errors.Is(err, ErrNotFavorited) ||
		errors.Is(err, ErrDuplicateTokenName) ||
		errors.Is(err, ErrNameSpaceExhausted) ||
		errors.Is(err, ErrTokenBanned)
}

// IsInvalidArgument returns true if the request itself was malformed.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidAction) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrEmptyContent)
}
