/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the forum domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Operation results wrapping a message

TYPES:
  Cookies:   CookieDTO, BalanceDTO, SpendResponse
  Likes:     LikeRequest, LikeResponse, LikeStatusDTO
  Favorites: FavoriteRequest, FavoriteResponse, FavoriteDTO
  Content:   TopicDTO, ReplyDTO, CreateTopicRequest, CreateReplyRequest
  Admin:     CreateUserRequest, GrantRequest, UserDTO, ReconcileResponse

VALIDATION:
  Validation is done in handlers and the forum package, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - forum/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/warp/cookieboard/forum"
)

// =============================================================================
// USERS AND COOKIES
// =============================================================================

// UserDTO represents an account in API responses.
type UserDTO struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	CreditBalance *int64    `json:"credit_balance"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateUserRequest is the body for creating an account.
type CreateUserRequest struct {
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	CreditBalance *int64 `json:"credit_balance,omitempty"`
}

// GrantRequest adds credits to an account.
type GrantRequest struct {
	Amount int64 `json:"amount"`
}

// CookieDTO is a minted credit token.
type CookieDTO struct {
	Name     string    `json:"name"`
	IssuedAt time.Time `json:"issued_at"`
	Banned   bool      `json:"banned"`
	Active   bool      `json:"active"`
}

// BalanceDTO reports a user's remaining credits.
type BalanceDTO struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// SpendResponse is returned by POST /api/me/cookies.
// Cookie is nil when the balance was insufficient.
type SpendResponse struct {
	Message string     `json:"message"`
	Cookie  *CookieDTO `json:"cookie,omitempty"`
	Balance int64      `json:"balance"`
}

// =============================================================================
// LIKES
// =============================================================================

// LikeRequest toggles a like on a reply UUID or topic sequence number.
type LikeRequest struct {
	TargetID string `json:"target_id"`
	Action   string `json:"action"`
}

// LikeResponse reports the outcome of a like toggle.
type LikeResponse struct {
	Message    string `json:"message"`
	TargetID   string `json:"target_id"`
	TargetKind string `json:"target_kind"`
	Liked      bool   `json:"liked"`
	LikeCount  int64  `json:"like_count"`
}

// LikeStatusDTO tells whether the caller has liked a target.
type LikeStatusDTO struct {
	TargetID string `json:"target_id"`
	Liked    bool   `json:"liked"`
}

// ReconcileResponse reports a recomputed counter.
type ReconcileResponse struct {
	TargetID  string `json:"target_id"`
	LikeCount int64  `json:"like_count"`
}

// =============================================================================
// FAVORITES
// =============================================================================

// FavoriteRequest saves or removes a topic.
type FavoriteRequest struct {
	CardNumber int64  `json:"card_number"`
	Action     string `json:"action"`
}

// FavoriteResponse reports the outcome of a favorite toggle.
type FavoriteResponse struct {
	Message    string `json:"message"`
	CardNumber int64  `json:"card_number"`
	Favorited  bool   `json:"favorited"`
}

// FavoriteDTO is one saved topic.
type FavoriteDTO struct {
	CardNumber int64     `json:"card_number"`
	CreatedAt  time.Time `json:"created_at"`
}

// =============================================================================
// CONTENT
// =============================================================================

// TopicDTO is a top-level post.
type TopicDTO struct {
	Seq       int64     `json:"seq"`
	AuthorID  string    `json:"author_id"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	ImageURLs []string  `json:"image_urls"`
	LikeCount int64     `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ReplyDTO is a reply under a topic.
type ReplyDTO struct {
	ID        string    `json:"id"`
	TopicSeq  int64     `json:"topic_seq"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	QuoteOf   string    `json:"quote_of,omitempty"`
	ImageURLs []string  `json:"image_urls"`
	LikeCount int64     `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTopicRequest is the body for posting a topic.
type CreateTopicRequest struct {
	Category  string   `json:"category"`
	Content   string   `json:"content"`
	ImageURLs []string `json:"image_urls"`
}

// CreateReplyRequest is the body for replying to a topic.
type CreateReplyRequest struct {
	Content   string   `json:"content"`
	QuoteOf   string   `json:"quote_of"`
	ImageURLs []string `json:"image_urls"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toUserDTO(u forum.User) UserDTO {
	return UserDTO{
		ID:            string(u.ID),
		Email:         u.Email,
		FullName:      u.FullName,
		CreditBalance: u.CreditBalance,
		CreatedAt:     u.CreatedAt,
	}
}

func toCookieDTO(t forum.CreditToken) CookieDTO {
	return CookieDTO{
		Name:     t.Name,
		IssuedAt: t.IssuedAt,
		Banned:   t.Banned,
		Active:   t.Active,
	}
}

func toTopicDTO(t forum.Topic) TopicDTO {
	images := t.ImageURLs
	if images == nil {
		images = []string{}
	}
	return TopicDTO{
		Seq:       t.Seq,
		AuthorID:  string(t.AuthorID),
		Category:  t.Category,
		Content:   t.Content,
		ImageURLs: images,
		LikeCount: t.LikeCount,
		CreatedAt: t.CreatedAt,
	}
}

func toReplyDTO(r forum.Reply) ReplyDTO {
	images := r.ImageURLs
	if images == nil {
		images = []string{}
	}
	return ReplyDTO{
		ID:        r.ID.String(),
		TopicSeq:  r.TopicSeq,
		AuthorID:  string(r.AuthorID),
		Content:   r.Content,
		QuoteOf:   r.QuoteOf,
		ImageURLs: images,
		LikeCount: r.LikeCount,
		CreatedAt: r.CreatedAt,
	}
}
