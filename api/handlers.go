/*
handlers.go - HTTP API handlers for the cookie board

PURPOSE:
  Exposes the forum package via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the ledger, reaction resolver,
  favorites, and board.

ENDPOINTS:
  Cookies (caller's own):
    GET    /api/me/cookies                 List minted cookies
    GET    /api/me/cookies/balance         Remaining credits
    POST   /api/me/cookies                 Spend one credit, mint a cookie
    POST   /api/me/cookies/{name}/activate Make a cookie the active one

  Likes:
    POST   /api/likes                      {target_id, action}
    GET    /api/likes/{targetID}           Caller's like status

  Favorites:
    POST   /api/favorites                  {card_number, action}
    GET    /api/me/favorites               Caller's saved topics

  Content:
    GET    /api/topics?category=&skip=     Page of topics, newest first
    POST   /api/topics                     Post a topic
    GET    /api/topics/{seq}               One topic
    GET    /api/topics/{seq}/replies?skip= Page of replies, oldest first
    POST   /api/topics/{seq}/replies       Reply to a topic

  Admin:
    POST   /api/admin/users                Create account
    POST   /api/admin/users/{id}/grant     Add credits
    POST   /api/admin/likes/{targetID}/reconcile Recount a like counter
    GET    /api/admin/scenarios            List demo scenarios
    POST   /api/admin/scenarios/load       Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with a status picked by error kind:
  - 400: forum.IsInvalidArgument, malformed input
  - 404: forum.IsNotFound
  - 409: forum.IsConflict
  - 500: anything else

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Bearer token middleware
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/warp/cookieboard/forum"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger    *forum.CreditLedger
	Reactions *forum.ReactionResolver
	Favorites *forum.Favorites
	Board     *forum.Board
}

// NewHandler wires every service onto one store.
func NewHandler(store forum.TxStore) *Handler {
	return &Handler{
		Ledger:    forum.NewCreditLedger(store),
		Reactions: forum.NewReactionResolver(store),
		Favorites: forum.NewFavorites(store),
		Board:     forum.NewBoard(store),
	}
}

// caller returns the authenticated user. Routes using it sit behind Authenticate.
func caller(r *http.Request) forum.UserID {
	p, _ := PrincipalFrom(r.Context())
	return p.UserID
}

// =============================================================================
// COOKIE HANDLERS
// =============================================================================

// ListCookies returns the caller's minted cookies.
func (h *Handler) ListCookies(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.Ledger.Tokens(r.Context(), caller(r))
	if err != nil {
		writeDomainError(w, "Failed to list cookies", err)
		return
	}

	dtos := make([]CookieDTO, 0, len(tokens))
	for _, t := range tokens {
		dtos = append(dtos, toCookieDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCookieBalance returns the caller's remaining credits.
func (h *Handler) GetCookieBalance(w http.ResponseWriter, r *http.Request) {
	userID := caller(r)
	balance, err := h.Ledger.Balance(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{UserID: string(userID), Balance: balance})
}

// SpendCookie spends one credit and mints a cookie.
// An empty balance is a 200 with no cookie, not an error.
func (h *Handler) SpendCookie(w http.ResponseWriter, r *http.Request) {
	userID := caller(r)
	user, token, err := h.Ledger.Spend(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "Failed to add cookie", err)
		return
	}

	if token == nil {
		writeJSON(w, http.StatusOK, SpendResponse{
			Message: "insufficient cookie credits",
			Balance: user.Balance(),
		})
		return
	}

	log.Printf("user %s minted cookie %s, %d credits left", userID, token.Name, user.Balance())
	dto := toCookieDTO(*token)
	writeJSON(w, http.StatusCreated, SpendResponse{
		Message: fmt.Sprintf("cookie %q added, %d credits left", token.Name, user.Balance()),
		Cookie:  &dto,
		Balance: user.Balance(),
	})
}

// ActivateCookie makes one of the caller's cookies the active one.
func (h *Handler) ActivateCookie(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	userID := caller(r)

	// Someone else's cookie is reported as missing.
	token, err := h.Ledger.Token(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Cookie not found", err)
		return
	}
	if token.OwnerID != userID {
		writeError(w, http.StatusNotFound, "Cookie not found", forum.ErrTokenNotFound)
		return
	}

	activated, err := h.Ledger.SetTokenActive(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to activate cookie", err)
		return
	}

	log.Printf("user %s activated cookie %s", userID, name)
	writeJSON(w, http.StatusOK, toCookieDTO(*activated))
}

// =============================================================================
// LIKE HANDLERS
// =============================================================================

// ToggleLike likes or unlikes a topic or reply.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	var req LikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Reactions.Toggle(r.Context(), caller(r), req.TargetID, req.Action)
	if err != nil {
		writeDomainError(w, "Failed to update like", err)
		return
	}

	writeJSON(w, http.StatusOK, LikeResponse{
		Message:    result.Message,
		TargetID:   req.TargetID,
		TargetKind: string(result.Target.Kind),
		Liked:      result.Liked,
		LikeCount:  result.LikeCount,
	})
}

// GetLikeStatus reports whether the caller has liked targetID.
func (h *Handler) GetLikeStatus(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "targetID")
	liked, err := h.Reactions.GetLikeStatus(r.Context(), caller(r), targetID)
	if err != nil {
		writeDomainError(w, "Failed to get like status", err)
		return
	}
	writeJSON(w, http.StatusOK, LikeStatusDTO{TargetID: targetID, Liked: liked})
}

// ReconcileLikes recounts a target's likes from its records.
func (h *Handler) ReconcileLikes(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "targetID")
	n, err := h.Reactions.Reconcile(r.Context(), targetID)
	if err != nil {
		writeDomainError(w, "Failed to reconcile likes", err)
		return
	}
	writeJSON(w, http.StatusOK, ReconcileResponse{TargetID: targetID, LikeCount: n})
}

// =============================================================================
// FAVORITE HANDLERS
// =============================================================================

// ToggleFavorite saves or removes a topic from the caller's favorites.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	saved, err := h.Favorites.Toggle(r.Context(), caller(r), req.CardNumber, req.Action)
	if err != nil {
		writeDomainError(w, "Failed to update favorite", err)
		return
	}

	message := "unfavorited"
	if saved {
		message = "favorited"
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{Message: message, CardNumber: req.CardNumber, Favorited: saved})
}

// ListFavorites returns the caller's saved topics.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := h.Favorites.List(r.Context(), caller(r))
	if err != nil {
		writeDomainError(w, "Failed to list favorites", err)
		return
	}

	dtos := make([]FavoriteDTO, 0, len(favs))
	for _, f := range favs {
		dtos = append(dtos, FavoriteDTO{CardNumber: f.TopicSeq, CreatedAt: f.CreatedAt})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CONTENT HANDLERS
// =============================================================================

// ListTopics returns one page of topics, optionally filtered by category.
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	skip, ok := parseSkip(w, r)
	if !ok {
		return
	}

	topics, err := h.Board.Topics(r.Context(), r.URL.Query().Get("category"), skip)
	if err != nil {
		writeDomainError(w, "Failed to list topics", err)
		return
	}

	dtos := make([]TopicDTO, 0, len(topics))
	for _, t := range topics {
		dtos = append(dtos, toTopicDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTopic posts a new topic as the caller.
func (h *Handler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var req CreateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	topic, err := h.Board.PostTopic(r.Context(), caller(r), req.Category, req.Content, req.ImageURLs)
	if err != nil {
		writeDomainError(w, "Failed to create topic", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTopicDTO(topic))
}

// GetTopic returns a single topic.
func (h *Handler) GetTopic(w http.ResponseWriter, r *http.Request) {
	seq, ok := parseSeq(w, r)
	if !ok {
		return
	}

	topic, err := h.Board.Topic(r.Context(), seq)
	if err != nil {
		writeDomainError(w, "Topic not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toTopicDTO(*topic))
}

// ListReplies returns one page of a topic's replies.
func (h *Handler) ListReplies(w http.ResponseWriter, r *http.Request) {
	seq, ok := parseSeq(w, r)
	if !ok {
		return
	}
	skip, ok := parseSkip(w, r)
	if !ok {
		return
	}

	replies, err := h.Board.Replies(r.Context(), seq, skip)
	if err != nil {
		writeDomainError(w, "Failed to list replies", err)
		return
	}

	dtos := make([]ReplyDTO, 0, len(replies))
	for _, rep := range replies {
		dtos = append(dtos, toReplyDTO(rep))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateReply replies to a topic as the caller.
func (h *Handler) CreateReply(w http.ResponseWriter, r *http.Request) {
	seq, ok := parseSeq(w, r)
	if !ok {
		return
	}

	var req CreateReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	reply, err := h.Board.PostReply(r.Context(), caller(r), seq, req.Content, req.QuoteOf, req.ImageURLs)
	if err != nil {
		writeDomainError(w, "Failed to create reply", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReplyDTO(reply))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// CreateUser registers an account.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.Ledger.CreateUser(r.Context(), req.Email, req.FullName, req.CreditBalance)
	if err != nil {
		writeDomainError(w, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(*user))
}

// GrantCredits adds credits to an account.
func (h *Handler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.Ledger.Grant(r.Context(), forum.UserID(chi.URLParam(r, "id")), req.Amount)
	if err != nil {
		writeDomainError(w, "Failed to grant credits", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseSeq(w http.ResponseWriter, r *http.Request) (int64, bool) {
	seq, err := strconv.ParseInt(chi.URLParam(r, "seq"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid topic number", err)
		return 0, false
	}
	return seq, true
}

func parseSkip(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("skip")
	if raw == "" {
		return 0, true
	}
	skip, err := strconv.Atoi(raw)
	if err != nil || skip < 0 {
		writeError(w, http.StatusBadRequest, "Invalid skip", err)
		return 0, false
	}
	return skip, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error kind.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case forum.IsInvalidArgument(err):
		return http.StatusBadRequest
	case forum.IsNotFound(err):
		return http.StatusNotFound
	case forum.IsConflict(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
