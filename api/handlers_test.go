/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Authentication and admin gating
- Cookie spend, insufficient balance, exclusive activation
- Like toggle status mapping (200, 400, 404, 409)
- Favorites, topics, replies, reconcile
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cookieboard/forum"
	"github.com/warp/cookieboard/forum/store"
)

type testServer struct {
	t      *testing.T
	router http.Handler
	auth   *Authenticator
	mem    *store.Memory
	h      *Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	h := NewHandler(mem)
	auth := NewAuthenticator("test-secret")
	return &testServer{
		t:      t,
		router: NewRouter(h, RouterOptions{Auth: auth, AllowedOrigins: []string{"*"}}),
		auth:   auth,
		mem:    mem,
		h:      h,
	}
}

func (s *testServer) user(balance int64) forum.UserID {
	s.t.Helper()
	u, err := s.h.Ledger.CreateUser(context.Background(), "u@example.com", "U", &balance)
	require.NoError(s.t, err)
	return u.ID
}

func (s *testServer) token(id forum.UserID, admin bool) string {
	s.t.Helper()
	tok, err := s.auth.Issue(id, admin, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// AUTH
// =============================================================================

func TestAuth_RejectsMissingAndBadTokens(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do("GET", "/api/me/cookies", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do("GET", "/api/me/cookies", "garbage", nil).Code)

	other := NewAuthenticator("other-secret")
	forged, err := other.Issue(forum.NewUserID(), true, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do("GET", "/api/me/cookies", forged, nil).Code)

	expired, err := s.auth.Issue(forum.NewUserID(), false, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do("GET", "/api/me/cookies", expired, nil).Code)

	assert.Equal(t, http.StatusOK, s.do("GET", "/healthz", "", nil).Code)
}

func TestAuth_AdminRoutesNeedAdminClaim(t *testing.T) {
	s := newTestServer(t)
	id := s.user(0)

	rec := s.do("POST", "/api/admin/users", s.token(id, false), CreateUserRequest{Email: "x@example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do("POST", "/api/admin/users", s.token(id, true), CreateUserRequest{Email: "x@example.com"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

// =============================================================================
// COOKIES
// =============================================================================

func TestSpendCookie_MintsUntilInsufficient(t *testing.T) {
	// GIVEN: A user with 1 credit
	// WHEN: Spending twice
	// THEN: First call mints a 7-char cookie, second returns 200 with no cookie

	s := newTestServer(t)
	id := s.user(1)
	tok := s.token(id, false)

	rec := s.do("POST", "/api/me/cookies", tok, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[SpendResponse](t, rec)
	require.NotNil(t, first.Cookie)
	assert.Len(t, first.Cookie.Name, 7)
	assert.Equal(t, int64(0), first.Balance)

	rec = s.do("POST", "/api/me/cookies", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[SpendResponse](t, rec)
	assert.Nil(t, second.Cookie)
	assert.Contains(t, second.Message, "insufficient")

	rec = s.do("GET", "/api/me/cookies", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]CookieDTO](t, rec), 1)
}

func TestSpendCookie_UnknownUserIs404(t *testing.T) {
	s := newTestServer(t)

	rec := s.do("POST", "/api/me/cookies", s.token(forum.NewUserID(), false), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivateCookie_ExclusiveAndOwnerOnly(t *testing.T) {
	s := newTestServer(t)
	id := s.user(2)
	tok := s.token(id, false)

	var names []string
	for i := 0; i < 2; i++ {
		rec := s.do("POST", "/api/me/cookies", tok, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		names = append(names, decode[SpendResponse](t, rec).Cookie.Name)
	}

	for _, name := range names {
		rec := s.do("POST", "/api/me/cookies/"+name+"/activate", tok, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[CookieDTO](t, rec).Active)
	}

	cookies := decode[[]CookieDTO](t, s.do("GET", "/api/me/cookies", tok, nil))
	active := 0
	for _, c := range cookies {
		if c.Active {
			active++
			assert.Equal(t, names[1], c.Name)
		}
	}
	assert.Equal(t, 1, active)

	stranger := s.token(s.user(0), false)
	rec := s.do("POST", "/api/me/cookies/"+names[0]+"/activate", stranger, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGrantCredits(t *testing.T) {
	s := newTestServer(t)
	id := s.user(0)
	admin := s.token(s.user(0), true)

	rec := s.do("POST", "/api/admin/users/"+string(id)+"/grant", admin, GrantRequest{Amount: 3})
	require.Equal(t, http.StatusOK, rec.Code)

	balance := decode[BalanceDTO](t, s.do("GET", "/api/me/cookies/balance", s.token(id, false), nil))
	assert.Equal(t, int64(3), balance.Balance)

	rec = s.do("POST", "/api/admin/users/"+string(id)+"/grant", admin, GrantRequest{Amount: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// LIKES
// =============================================================================

func TestToggleLike_StatusCodes(t *testing.T) {
	s := newTestServer(t)
	id := s.user(0)
	tok := s.token(id, false)

	rec := s.do("POST", "/api/topics", tok, CreateTopicRequest{Category: "general", Content: "hi"})
	require.Equal(t, http.StatusCreated, rec.Code)
	topic := decode[TopicDTO](t, rec)
	assert.Equal(t, int64(1), topic.Seq)

	rec = s.do("POST", "/api/likes", tok, LikeRequest{TargetID: "1", Action: "like"})
	require.Equal(t, http.StatusOK, rec.Code)
	liked := decode[LikeResponse](t, rec)
	assert.Equal(t, "topic", liked.TargetKind)
	assert.Equal(t, int64(1), liked.LikeCount)

	assert.Equal(t, http.StatusConflict, s.do("POST", "/api/likes", tok, LikeRequest{TargetID: "1", Action: "like"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do("POST", "/api/likes", tok, LikeRequest{TargetID: "999", Action: "like"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/api/likes", tok, LikeRequest{TargetID: "1", Action: "love"}).Code)

	status := decode[LikeStatusDTO](t, s.do("GET", "/api/likes/1", tok, nil))
	assert.True(t, status.Liked)

	rec = s.do("POST", "/api/likes", tok, LikeRequest{TargetID: "1", Action: "unlike"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), decode[LikeResponse](t, rec).LikeCount)

	assert.Equal(t, http.StatusConflict, s.do("POST", "/api/likes", tok, LikeRequest{TargetID: "1", Action: "unlike"}).Code)
}

func TestToggleLike_Reply(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(s.user(0), false)

	s.do("POST", "/api/topics", tok, CreateTopicRequest{Content: "hi"})
	rec := s.do("POST", "/api/topics/1/replies", tok, CreateReplyRequest{Content: "re", ImageURLs: []string{"p.png"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	reply := decode[ReplyDTO](t, rec)

	rec = s.do("POST", "/api/likes", tok, LikeRequest{TargetID: reply.ID, Action: "like"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reply", decode[LikeResponse](t, rec).TargetKind)

	replies := decode[[]ReplyDTO](t, s.do("GET", "/api/topics/1/replies", tok, nil))
	require.Len(t, replies, 1)
	assert.Equal(t, int64(1), replies[0].LikeCount)
	assert.Equal(t, []string{"p.png"}, replies[0].ImageURLs)
}

func TestReconcileLikes(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(s.user(0), false)
	admin := s.token(s.user(0), true)

	s.do("POST", "/api/topics", tok, CreateTopicRequest{Content: "hi"})
	s.do("POST", "/api/likes", tok, LikeRequest{TargetID: "1", Action: "like"})
	require.NoError(t, s.mem.SetLikeCount(context.Background(), forum.TopicTarget(1), 40))

	rec := s.do("POST", "/api/admin/likes/1/reconcile", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[ReconcileResponse](t, rec).LikeCount)

	topic := decode[TopicDTO](t, s.do("GET", "/api/topics/1", tok, nil))
	assert.Equal(t, int64(1), topic.LikeCount)
}

// =============================================================================
// FAVORITES AND CONTENT
// =============================================================================

func TestToggleFavorite(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(s.user(0), false)
	s.do("POST", "/api/topics", tok, CreateTopicRequest{Content: "hi"})

	rec := s.do("POST", "/api/favorites", tok, FavoriteRequest{CardNumber: 1, Action: "favorite"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[FavoriteResponse](t, rec).Favorited)

	assert.Equal(t, http.StatusConflict, s.do("POST", "/api/favorites", tok, FavoriteRequest{CardNumber: 1, Action: "favorite"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do("POST", "/api/favorites", tok, FavoriteRequest{CardNumber: 9, Action: "favorite"}).Code)

	favs := decode[[]FavoriteDTO](t, s.do("GET", "/api/me/favorites", tok, nil))
	require.Len(t, favs, 1)
	assert.Equal(t, int64(1), favs[0].CardNumber)
}

func TestListTopics_Paging(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(s.user(0), false)
	for i := 0; i < 6; i++ {
		s.do("POST", "/api/topics", tok, CreateTopicRequest{Category: "art", Content: "c"})
	}

	first := decode[[]TopicDTO](t, s.do("GET", "/api/topics?category=art", tok, nil))
	assert.Len(t, first, forum.PageSize)
	assert.Equal(t, int64(6), first[0].Seq)

	second := decode[[]TopicDTO](t, s.do("GET", "/api/topics?category=art&skip=5", tok, nil))
	assert.Len(t, second, 1)

	assert.Equal(t, http.StatusBadRequest, s.do("GET", "/api/topics?skip=-1", tok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("GET", "/api/topics/abc", tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do("GET", "/api/topics/77", tok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/api/topics", tok, CreateTopicRequest{Content: " "}).Code)
}
