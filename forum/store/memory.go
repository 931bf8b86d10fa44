// Package store provides an in-memory forum.TxStore.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/cookieboard/forum"
)

var errActiveTokenExists = errors.New("owner already has an active token")

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	data *data
}

type likeKey struct {
	TargetID string
	UserID   forum.UserID
}

type favoriteKey struct {
	TopicSeq int64
	UserID   forum.UserID
}

// data holds the records and implements forum.Store without locking. Memory
// guards it; WithTx hands it to fn directly while holding the write lock.
type data struct {
	users     map[forum.UserID]forum.User
	tokens    map[string]forum.CreditToken
	topics    map[int64]forum.Topic
	nextSeq   int64
	replies   map[uuid.UUID]forum.Reply
	likes     map[likeKey]forum.LikeRecord
	favorites map[favoriteKey]forum.Favorite
}

func newData() *data {
	return &data{
		users:     make(map[forum.UserID]forum.User),
		tokens:    make(map[string]forum.CreditToken),
		topics:    make(map[int64]forum.Topic),
		replies:   make(map[uuid.UUID]forum.Reply),
		likes:     make(map[likeKey]forum.LikeRecord),
		favorites: make(map[favoriteKey]forum.Favorite),
	}
}

func NewMemory() *Memory {
	return &Memory{data: newData()}
}

var _ forum.TxStore = (*Memory)(nil)

// WithTx executes fn within a transaction.
// Simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(forum.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(m.data); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.users {
		c.users[k] = cloneUser(v)
	}
	for k, v := range d.tokens {
		c.tokens[k] = v
	}
	for k, v := range d.topics {
		c.topics[k] = v
	}
	c.nextSeq = d.nextSeq
	for k, v := range d.replies {
		c.replies[k] = v
	}
	for k, v := range d.likes {
		c.likes[k] = v
	}
	for k, v := range d.favorites {
		c.favorites[k] = v
	}
	return c
}

func cloneUser(u forum.User) forum.User {
	if u.CreditBalance != nil {
		b := *u.CreditBalance
		u.CreditBalance = &b
	}
	return u
}

// =============================================================================
// LOCKED ACCESSORS (forum.Store on Memory)
// =============================================================================

func (m *Memory) read(fn func(d *data) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.data)
}

func (m *Memory) write(fn func(d *data) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.data)
}

func (m *Memory) GetUser(ctx context.Context, id forum.UserID) (u *forum.User, err error) {
	err = m.read(func(d *data) error { u, err = d.GetUser(ctx, id); return err })
	return u, err
}

func (m *Memory) GetUserForUpdate(ctx context.Context, id forum.UserID) (*forum.User, error) {
	return m.GetUser(ctx, id)
}

func (m *Memory) SaveUser(ctx context.Context, u forum.User) error {
	return m.write(func(d *data) error { return d.SaveUser(ctx, u) })
}

func (m *Memory) SetCreditBalance(ctx context.Context, id forum.UserID, balance int64) error {
	return m.write(func(d *data) error { return d.SetCreditBalance(ctx, id, balance) })
}

func (m *Memory) TokenNameExists(ctx context.Context, name string) (ok bool, err error) {
	err = m.read(func(d *data) error { ok, err = d.TokenNameExists(ctx, name); return err })
	return ok, err
}

func (m *Memory) InsertToken(ctx context.Context, t forum.CreditToken) error {
	return m.write(func(d *data) error { return d.InsertToken(ctx, t) })
}

func (m *Memory) GetToken(ctx context.Context, name string) (t *forum.CreditToken, err error) {
	err = m.read(func(d *data) error { t, err = d.GetToken(ctx, name); return err })
	return t, err
}

func (m *Memory) ListTokens(ctx context.Context, owner forum.UserID) (ts []forum.CreditToken, err error) {
	err = m.read(func(d *data) error { ts, err = d.ListTokens(ctx, owner); return err })
	return ts, err
}

func (m *Memory) DeactivateTokens(ctx context.Context, owner forum.UserID) error {
	return m.write(func(d *data) error { return d.DeactivateTokens(ctx, owner) })
}

func (m *Memory) SetTokenActive(ctx context.Context, name string, active bool) error {
	return m.write(func(d *data) error { return d.SetTokenActive(ctx, name, active) })
}

func (m *Memory) CreateTopic(ctx context.Context, t forum.Topic) (out forum.Topic, err error) {
	err = m.write(func(d *data) error { out, err = d.CreateTopic(ctx, t); return err })
	return out, err
}

func (m *Memory) GetTopic(ctx context.Context, seq int64) (t *forum.Topic, err error) {
	err = m.read(func(d *data) error { t, err = d.GetTopic(ctx, seq); return err })
	return t, err
}

func (m *Memory) ListTopics(ctx context.Context, category string, skip, limit int) (ts []forum.Topic, err error) {
	err = m.read(func(d *data) error { ts, err = d.ListTopics(ctx, category, skip, limit); return err })
	return ts, err
}

func (m *Memory) CreateReply(ctx context.Context, r forum.Reply) error {
	return m.write(func(d *data) error { return d.CreateReply(ctx, r) })
}

func (m *Memory) GetReply(ctx context.Context, id uuid.UUID) (r *forum.Reply, err error) {
	err = m.read(func(d *data) error { r, err = d.GetReply(ctx, id); return err })
	return r, err
}

func (m *Memory) ListReplies(ctx context.Context, topicSeq int64, skip, limit int) (rs []forum.Reply, err error) {
	err = m.read(func(d *data) error { rs, err = d.ListReplies(ctx, topicSeq, skip, limit); return err })
	return rs, err
}

func (m *Memory) AdjustLikeCount(ctx context.Context, target forum.Target, delta int64) (n int64, err error) {
	err = m.write(func(d *data) error { n, err = d.AdjustLikeCount(ctx, target, delta); return err })
	return n, err
}

func (m *Memory) SetLikeCount(ctx context.Context, target forum.Target, n int64) error {
	return m.write(func(d *data) error { return d.SetLikeCount(ctx, target, n) })
}

func (m *Memory) LikeExists(ctx context.Context, targetID string, userID forum.UserID) (ok bool, err error) {
	err = m.read(func(d *data) error { ok, err = d.LikeExists(ctx, targetID, userID); return err })
	return ok, err
}

func (m *Memory) InsertLike(ctx context.Context, rec forum.LikeRecord) error {
	return m.write(func(d *data) error { return d.InsertLike(ctx, rec) })
}

func (m *Memory) DeleteLike(ctx context.Context, targetID string, userID forum.UserID) error {
	return m.write(func(d *data) error { return d.DeleteLike(ctx, targetID, userID) })
}

func (m *Memory) CountLikes(ctx context.Context, targetID string) (n int64, err error) {
	err = m.read(func(d *data) error { n, err = d.CountLikes(ctx, targetID); return err })
	return n, err
}

func (m *Memory) LikeTargetIDs(ctx context.Context) (ids []string, err error) {
	err = m.read(func(d *data) error { ids, err = d.LikeTargetIDs(ctx); return err })
	return ids, err
}

func (m *Memory) FavoriteExists(ctx context.Context, topicSeq int64, userID forum.UserID) (ok bool, err error) {
	err = m.read(func(d *data) error { ok, err = d.FavoriteExists(ctx, topicSeq, userID); return err })
	return ok, err
}

func (m *Memory) InsertFavorite(ctx context.Context, f forum.Favorite) error {
	return m.write(func(d *data) error { return d.InsertFavorite(ctx, f) })
}

func (m *Memory) DeleteFavorite(ctx context.Context, topicSeq int64, userID forum.UserID) error {
	return m.write(func(d *data) error { return d.DeleteFavorite(ctx, topicSeq, userID) })
}

func (m *Memory) ListFavorites(ctx context.Context, userID forum.UserID) (fs []forum.Favorite, err error) {
	err = m.read(func(d *data) error { fs, err = d.ListFavorites(ctx, userID); return err })
	return fs, err
}

// =============================================================================
// UNLOCKED RECORD ACCESS (forum.Store on data)
// =============================================================================

func (d *data) GetUser(_ context.Context, id forum.UserID) (*forum.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, nil
	}
	u = cloneUser(u)
	return &u, nil
}

func (d *data) GetUserForUpdate(ctx context.Context, id forum.UserID) (*forum.User, error) {
	return d.GetUser(ctx, id)
}

func (d *data) SaveUser(_ context.Context, u forum.User) error {
	d.users[u.ID] = cloneUser(u)
	return nil
}

func (d *data) SetCreditBalance(_ context.Context, id forum.UserID, balance int64) error {
	u, ok := d.users[id]
	if !ok {
		return forum.ErrUserNotFound
	}
	u.CreditBalance = &balance
	d.users[id] = u
	return nil
}

func (d *data) TokenNameExists(_ context.Context, name string) (bool, error) {
	_, ok := d.tokens[name]
	return ok, nil
}

func (d *data) InsertToken(_ context.Context, t forum.CreditToken) error {
	if _, ok := d.tokens[t.Name]; ok {
		return forum.ErrDuplicateTokenName
	}
	d.tokens[t.Name] = t
	return nil
}

func (d *data) GetToken(_ context.Context, name string) (*forum.CreditToken, error) {
	t, ok := d.tokens[name]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (d *data) ListTokens(_ context.Context, owner forum.UserID) ([]forum.CreditToken, error) {
	var result []forum.CreditToken
	for _, t := range d.tokens {
		if t.OwnerID == owner {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].IssuedAt.Equal(result[j].IssuedAt) {
			return result[i].Name < result[j].Name
		}
		return result[i].IssuedAt.Before(result[j].IssuedAt)
	})
	return result, nil
}

func (d *data) DeactivateTokens(_ context.Context, owner forum.UserID) error {
	for name, t := range d.tokens {
		if t.OwnerID == owner && t.Active {
			t.Active = false
			d.tokens[name] = t
		}
	}
	return nil
}

func (d *data) SetTokenActive(_ context.Context, name string, active bool) error {
	t, ok := d.tokens[name]
	if !ok {
		return forum.ErrTokenNotFound
	}
	if active {
		for other, o := range d.tokens {
			if other != name && o.OwnerID == t.OwnerID && o.Active {
				return errActiveTokenExists
			}
		}
	}
	t.Active = active
	d.tokens[name] = t
	return nil
}

func (d *data) CreateTopic(_ context.Context, t forum.Topic) (forum.Topic, error) {
	d.nextSeq++
	t.Seq = d.nextSeq
	d.topics[t.Seq] = t
	return t, nil
}

func (d *data) GetTopic(_ context.Context, seq int64) (*forum.Topic, error) {
	t, ok := d.topics[seq]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (d *data) ListTopics(_ context.Context, category string, skip, limit int) ([]forum.Topic, error) {
	var all []forum.Topic
	for _, t := range d.topics {
		if category == "" || t.Category == category {
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Seq > all[j].Seq })
	return page(all, skip, limit), nil
}

func (d *data) CreateReply(_ context.Context, r forum.Reply) error {
	if _, ok := d.topics[r.TopicSeq]; !ok {
		return forum.ErrTopicNotFound
	}
	d.replies[r.ID] = r
	return nil
}

func (d *data) GetReply(_ context.Context, id uuid.UUID) (*forum.Reply, error) {
	r, ok := d.replies[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (d *data) ListReplies(_ context.Context, topicSeq int64, skip, limit int) ([]forum.Reply, error) {
	var all []forum.Reply
	for _, r := range d.replies {
		if r.TopicSeq == topicSeq {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return page(all, skip, limit), nil
}

func (d *data) AdjustLikeCount(ctx context.Context, target forum.Target, delta int64) (int64, error) {
	switch target.Kind {
	case forum.TargetReply:
		r, ok := d.replies[target.ReplyID]
		if !ok {
			return 0, forum.ErrTargetNotFound
		}
		r.LikeCount = max(r.LikeCount+delta, 0)
		d.replies[r.ID] = r
		return r.LikeCount, nil
	case forum.TargetTopic:
		t, ok := d.topics[target.TopicSeq]
		if !ok {
			return 0, forum.ErrTargetNotFound
		}
		t.LikeCount = max(t.LikeCount+delta, 0)
		d.topics[t.Seq] = t
		return t.LikeCount, nil
	}
	return 0, forum.ErrTargetNotFound
}

func (d *data) SetLikeCount(ctx context.Context, target forum.Target, n int64) error {
	current, err := d.likeCount(target)
	if err != nil {
		return err
	}
	_, err = d.AdjustLikeCount(ctx, target, n-current)
	return err
}

func (d *data) likeCount(target forum.Target) (int64, error) {
	switch target.Kind {
	case forum.TargetReply:
		if r, ok := d.replies[target.ReplyID]; ok {
			return r.LikeCount, nil
		}
	case forum.TargetTopic:
		if t, ok := d.topics[target.TopicSeq]; ok {
			return t.LikeCount, nil
		}
	}
	return 0, forum.ErrTargetNotFound
}

func (d *data) LikeExists(_ context.Context, targetID string, userID forum.UserID) (bool, error) {
	_, ok := d.likes[likeKey{TargetID: targetID, UserID: userID}]
	return ok, nil
}

func (d *data) InsertLike(_ context.Context, rec forum.LikeRecord) error {
	k := likeKey{TargetID: rec.TargetID, UserID: rec.UserID}
	if _, ok := d.likes[k]; ok {
		return forum.ErrAlreadyLiked
	}
	d.likes[k] = rec
	return nil
}

func (d *data) DeleteLike(_ context.Context, targetID string, userID forum.UserID) error {
	k := likeKey{TargetID: targetID, UserID: userID}
	if _, ok := d.likes[k]; !ok {
		return forum.ErrNotLiked
	}
	delete(d.likes, k)
	return nil
}

func (d *data) CountLikes(_ context.Context, targetID string) (int64, error) {
	var n int64
	for k := range d.likes {
		if k.TargetID == targetID {
			n++
		}
	}
	return n, nil
}

func (d *data) LikeTargetIDs(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for k := range d.likes {
		if !seen[k.TargetID] {
			seen[k.TargetID] = true
			ids = append(ids, k.TargetID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *data) FavoriteExists(_ context.Context, topicSeq int64, userID forum.UserID) (bool, error) {
	_, ok := d.favorites[favoriteKey{TopicSeq: topicSeq, UserID: userID}]
	return ok, nil
}

func (d *data) InsertFavorite(_ context.Context, f forum.Favorite) error {
	k := favoriteKey{TopicSeq: f.TopicSeq, UserID: f.UserID}
	if _, ok := d.favorites[k]; ok {
		return forum.ErrAlreadyFavorited
	}
	d.favorites[k] = f
	return nil
}

func (d *data) DeleteFavorite(_ context.Context, topicSeq int64, userID forum.UserID) error {
	k := favoriteKey{TopicSeq: topicSeq, UserID: userID}
	if _, ok := d.favorites[k]; !ok {
		return forum.ErrNotFavorited
	}
	delete(d.favorites, k)
	return nil
}

func (d *data) ListFavorites(_ context.Context, userID forum.UserID) ([]forum.Favorite, error) {
	var result []forum.Favorite
	for _, f := range d.favorites {
		if f.UserID == userID {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TopicSeq < result[j].TopicSeq })
	return result, nil
}

func page[T any](all []T, skip, limit int) []T {
	if skip >= len(all) {
		return nil
	}
	end := len(all)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return all[skip:end]
}
