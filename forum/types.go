/*
Package forum provides the core of the cookie-credit forum backend.

PURPOSE:
  Holds the domain records (users, credit tokens, topics, replies, likes,
  favorites) and the two services that mutate them under real invariants:
  the CreditLedger (spend a credit, mint a token) and the ReactionResolver
  (like/unlike a polymorphic target with a denormalized counter).

KEY CONCEPTS IN THIS FILE (types.go):
  - User: account with an optional cookie-credit balance
  - CreditToken: a minted, uniquely named "cookie"
  - Topic / Reply: the two content kinds a like can target
  - Target: the resolved form of an opaque client target ID
  - LikeRecord / Favorite: per-user reaction records

INVARIANTS:
  1. CreditBalance never goes negative
  2. A token exists iff a spend succeeded
  3. likeCount == count(LikeRecord for that target), floored at 0
  4. At most one LikeRecord per (target, user)
  5. At most one active token per user

SEE ALSO:
  - credit.go: CreditLedger
  - reaction.go: ReactionResolver
  - store.go: persistence interfaces
*/
package forum

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// UserID is the string form of a user's UUID.
type UserID string

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.NewString()) }

// =============================================================================
// ACCOUNTS & CREDIT TOKENS
// =============================================================================

// User is an account. CreditBalance is nil when it was never set; such a user
// cannot spend.
type User struct {
	ID            UserID
	Email         string
	FullName      string
	CreditBalance *int64
	CreatedAt     time.Time
}

// Balance returns the spendable balance, treating an unset balance as zero.
func (u User) Balance() int64 {
	if u.CreditBalance == nil {
		return 0
	}
	return *u.CreditBalance
}

// CanSpend reports whether the user holds at least one credit.
func (u User) CanSpend() bool { return u.Balance() > 0 }

// CreditToken is a minted cookie. Name is unique across all tokens.
type CreditToken struct {
	Name     string
	IssuedAt time.Time
	Banned   bool
	Active   bool
	OwnerID  UserID
}

// =============================================================================
// CONTENT
// =============================================================================

// Topic is top-level content, addressed by its sequence number.
type Topic struct {
	Seq       int64
	AuthorID  UserID
	Content   string
	Category  string
	ImageURLs []string
	LikeCount int64
	CreatedAt time.Time
}

// Reply belongs to a topic and is addressed by a random UUID.
type Reply struct {
	ID        uuid.UUID
	TopicSeq  int64
	AuthorID  UserID
	Content   string
	QuoteOf   string // optional quoted text
	ImageURLs []string
	LikeCount int64
	CreatedAt time.Time
}

// =============================================================================
// TARGET - resolved like target
// =============================================================================

type TargetKind string

const (
	TargetReply TargetKind = "reply"
	TargetTopic TargetKind = "topic"
)

// Target is a resolved like target. Exactly one of ReplyID / TopicSeq is
// meaningful, selected by Kind.
type Target struct {
	Kind     TargetKind
	ReplyID  uuid.UUID
	TopicSeq int64
}

func ReplyTarget(id uuid.UUID) Target { return Target{Kind: TargetReply, ReplyID: id} }
func TopicTarget(seq int64) Target    { return Target{Kind: TargetTopic, TopicSeq: seq} }

func (t Target) String() string {
	switch t.Kind {
	case TargetReply:
		return "reply:" + t.ReplyID.String()
	case TargetTopic:
		return "topic:" + strconv.FormatInt(t.TopicSeq, 10)
	default:
		return "unknown"
	}
}

// =============================================================================
// REACTIONS
// =============================================================================

// LikeRecord is the source of truth for "user liked target". TargetID is the
// client's original string, not the resolved key.
type LikeRecord struct {
	TargetID  string
	UserID    UserID
	CreatedAt time.Time
}

// Favorite marks a topic as saved by a user.
type Favorite struct {
	TopicSeq  int64
	UserID    UserID
	CreatedAt time.Time
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Clock supplies timestamps for issued tokens and created records.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
