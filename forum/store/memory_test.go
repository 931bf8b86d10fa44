package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cookieboard/forum"
	"github.com/warp/cookieboard/forum/store"
)

func TestMemory_WithTx_RollsBackOnError(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	one := int64(1)
	user := forum.User{ID: forum.NewUserID(), CreditBalance: &one}
	require.NoError(t, mem.SaveUser(ctx, user))

	boom := errors.New("boom")
	err := mem.WithTx(ctx, func(s forum.Store) error {
		require.NoError(t, s.SetCreditBalance(ctx, user.ID, 0))
		require.NoError(t, s.InsertToken(ctx, forum.CreditToken{Name: "abc1234", OwnerID: user.ID}))
		_, err := s.CreateTopic(ctx, forum.Topic{Content: "x"})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := mem.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Balance())

	exists, err := mem.TokenNameExists(ctx, "abc1234")
	require.NoError(t, err)
	assert.False(t, exists)

	topic, err := mem.CreateTopic(ctx, forum.Topic{Content: "y"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), topic.Seq, "sequence is rolled back too")
}

func TestMemory_WithTx_Commits(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	err := mem.WithTx(ctx, func(s forum.Store) error {
		_, err := s.CreateTopic(ctx, forum.Topic{Content: "x"})
		return err
	})
	require.NoError(t, err)

	topic, err := mem.GetTopic(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, topic)
}

func TestMemory_ReturnedUserIsACopy(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	five := int64(5)
	user := forum.User{ID: forum.NewUserID(), CreditBalance: &five}
	require.NoError(t, mem.SaveUser(ctx, user))

	got, err := mem.GetUser(ctx, user.ID)
	require.NoError(t, err)
	*got.CreditBalance = 0

	again, err := mem.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), again.Balance())
}

func TestMemory_Conflicts(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	owner := forum.NewUserID()

	require.NoError(t, mem.InsertToken(ctx, forum.CreditToken{Name: "dup0000", OwnerID: owner}))
	assert.ErrorIs(t, mem.InsertToken(ctx, forum.CreditToken{Name: "dup0000", OwnerID: owner}), forum.ErrDuplicateTokenName)

	rec := forum.LikeRecord{TargetID: "1", UserID: owner}
	require.NoError(t, mem.InsertLike(ctx, rec))
	assert.ErrorIs(t, mem.InsertLike(ctx, rec), forum.ErrAlreadyLiked)

	require.NoError(t, mem.InsertToken(ctx, forum.CreditToken{Name: "second0", OwnerID: owner}))
	require.NoError(t, mem.SetTokenActive(ctx, "dup0000", true))
	assert.Error(t, mem.SetTokenActive(ctx, "second0", true), "only one active token per owner")
}
