/*
store.go - Persistence interfaces for the forum core

PURPOSE:
  Defines the boundary between the services and the record store. The
  services never talk to a database directly; they receive a Store (inside
  a transaction) and call these methods.

KEY INTERFACES:
  UserStore:     accounts and credit balances
  TokenStore:    minted credit tokens
  ContentStore:  topics, replies, denormalized like counters
  LikeStore:     like records
  FavoriteStore: favorite records
  TxStore:       Store + atomic commit scope

LOOKUP CONVENTION:
  Get* methods return (nil, nil) when the record does not exist. Services
  translate that into the domain NotFound errors.

CONFLICT CONVENTION:
  InsertToken returns ErrDuplicateTokenName on a name collision, and
  InsertLike / InsertFavorite return ErrAlreadyLiked / ErrAlreadyFavorited on
  a composite-key collision. Implementations must report these without
  poisoning the surrounding transaction so the caller can retry or bail out.

IMPLEMENTATIONS:
  - forum/store/memory.go: in-memory, for tests
  - store/sqlite/sqlite.go: SQLite (default)
  - store/postgres/postgres.go: PostgreSQL via gorm
*/
package forum

import (
	"context"

	"github.com/google/uuid"
)

// =============================================================================
// STORE - Record store, split by concern
// =============================================================================

type UserStore interface {
	GetUser(ctx context.Context, id UserID) (*User, error)

	// GetUserForUpdate is GetUser plus a row lock held until the surrounding
	// transaction ends. Stores with a single writer may treat it as GetUser.
	GetUserForUpdate(ctx context.Context, id UserID) (*User, error)

	SaveUser(ctx context.Context, u User) error
	SetCreditBalance(ctx context.Context, id UserID, balance int64) error
}

type TokenStore interface {
	TokenNameExists(ctx context.Context, name string) (bool, error)
	InsertToken(ctx context.Context, t CreditToken) error
	GetToken(ctx context.Context, name string) (*CreditToken, error)
	ListTokens(ctx context.Context, owner UserID) ([]CreditToken, error)

	// DeactivateTokens clears the active flag on every token of owner in a
	// single predicate update.
	DeactivateTokens(ctx context.Context, owner UserID) error
	SetTokenActive(ctx context.Context, name string, active bool) error
}

type ContentStore interface {
	// CreateTopic assigns the next sequence number and returns the stored topic.
	CreateTopic(ctx context.Context, t Topic) (Topic, error)
	GetTopic(ctx context.Context, seq int64) (*Topic, error)
	ListTopics(ctx context.Context, category string, skip, limit int) ([]Topic, error)

	CreateReply(ctx context.Context, r Reply) error
	GetReply(ctx context.Context, id uuid.UUID) (*Reply, error)
	ListReplies(ctx context.Context, topicSeq int64, skip, limit int) ([]Reply, error)

	// AdjustLikeCount adds delta to the target's counter, clamping at zero,
	// and returns the new value.
	AdjustLikeCount(ctx context.Context, target Target, delta int64) (int64, error)
	SetLikeCount(ctx context.Context, target Target, n int64) error
}

type LikeStore interface {
	LikeExists(ctx context.Context, targetID string, userID UserID) (bool, error)
	InsertLike(ctx context.Context, rec LikeRecord) error
	DeleteLike(ctx context.Context, targetID string, userID UserID) error
	CountLikes(ctx context.Context, targetID string) (int64, error)
	// LikeTargetIDs returns every distinct target ID that has a record.
	LikeTargetIDs(ctx context.Context) ([]string, error)
}

type FavoriteStore interface {
	FavoriteExists(ctx context.Context, topicSeq int64, userID UserID) (bool, error)
	InsertFavorite(ctx context.Context, f Favorite) error
	DeleteFavorite(ctx context.Context, topicSeq int64, userID UserID) error
	ListFavorites(ctx context.Context, userID UserID) ([]Favorite, error)
}

// Store is the full record store.
type Store interface {
	UserStore
	TokenStore
	ContentStore
	LikeStore
	FavoriteStore
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with an atomic commit scope.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
