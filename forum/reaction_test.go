package forum_test

import (
	"context"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cookieboard/forum"
	"github.com/warp/cookieboard/forum/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestResolver(t *testing.T) (*forum.ReactionResolver, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	resolver := forum.NewReactionResolver(mem)
	resolver.Clock = func() time.Time { return fixedNow }
	return resolver, mem
}

func seedTopic(t *testing.T, s forum.Store) forum.Topic {
	t.Helper()
	topic, err := s.CreateTopic(context.Background(), forum.Topic{Content: "hello", Category: "general", CreatedAt: fixedNow})
	require.NoError(t, err)
	return topic
}

func seedTopics(t *testing.T, s forum.Store, n int) forum.Topic {
	t.Helper()
	var last forum.Topic
	for i := 0; i < n; i++ {
		last = seedTopic(t, s)
	}
	return last
}

func seedReply(t *testing.T, s forum.Store, topicSeq int64) forum.Reply {
	t.Helper()
	reply := forum.Reply{ID: uuid.New(), TopicSeq: topicSeq, Content: "re", CreatedAt: fixedNow}
	require.NoError(t, s.CreateReply(context.Background(), reply))
	return reply
}

func topicLikes(t *testing.T, s forum.Store, seq int64) int64 {
	t.Helper()
	topic, err := s.GetTopic(context.Background(), seq)
	require.NoError(t, err)
	require.NotNil(t, topic)
	return topic.LikeCount
}

func replyLikes(t *testing.T, s forum.Store, id uuid.UUID) int64 {
	t.Helper()
	reply, err := s.GetReply(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, reply)
	return reply.LikeCount
}

// =============================================================================
// RESOLUTION
// =============================================================================

func TestToggle_IntegerTarget_ResolvesToTopic(t *testing.T) {
	// GIVEN: Topic 42 exists and no reply has ID "42"
	// WHEN: A user likes "42"
	// THEN: Topic 42 goes from 0 to 1 like and the status reads true

	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	topic := seedTopics(t, mem, 42)
	require.Equal(t, int64(42), topic.Seq)
	user := forum.NewUserID()

	result, err := resolver.Toggle(ctx, user, "42", "like")
	require.NoError(t, err)

	assert.Equal(t, forum.TopicTarget(42), result.Target)
	assert.True(t, result.Liked)
	assert.Equal(t, int64(1), result.LikeCount)
	assert.Equal(t, int64(1), topicLikes(t, mem, 42))

	liked, err := resolver.GetLikeStatus(ctx, user, "42")
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestToggle_UUIDTarget_ResolvesToReply(t *testing.T) {
	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	topic := seedTopic(t, mem)
	reply := seedReply(t, mem, topic.Seq)

	result, err := resolver.Toggle(ctx, forum.NewUserID(), reply.ID.String(), "like")
	require.NoError(t, err)

	assert.Equal(t, forum.ReplyTarget(reply.ID), result.Target)
	assert.Equal(t, int64(1), replyLikes(t, mem, reply.ID))
	assert.Equal(t, int64(0), topicLikes(t, mem, topic.Seq), "topic counter untouched")
}

func TestToggle_AmbiguousTarget_ReplyWinsOverTopic(t *testing.T) {
	// GIVEN: "000...042" parses both as a UUID and as the integer 42,
	//        and both a reply and topic 42 exist under those keys
	// WHEN: Liking it
	// THEN: The reply is chosen and topic 42 is untouched

	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	const ambiguous = "00000000000000000000000000000042"
	topic := seedTopics(t, mem, 42)
	reply := forum.Reply{ID: uuid.MustParse(ambiguous), TopicSeq: 1, Content: "re", CreatedAt: fixedNow}
	require.NoError(t, mem.CreateReply(ctx, reply))

	target, err := forum.Resolve(ctx, mem, ambiguous)
	require.NoError(t, err)
	assert.Equal(t, forum.ReplyTarget(reply.ID), target)

	result, err := resolver.Toggle(ctx, forum.NewUserID(), ambiguous, "like")
	require.NoError(t, err)
	assert.Equal(t, forum.TargetReply, result.Target.Kind)
	assert.Equal(t, int64(1), replyLikes(t, mem, reply.ID))
	assert.Equal(t, int64(0), topicLikes(t, mem, topic.Seq))
}

func TestToggle_AmbiguousTarget_FallsBackToTopic(t *testing.T) {
	// GIVEN: The same ambiguous string but no reply with that UUID
	// THEN: Topic 42 is liked, and the record stays keyed by the original string

	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	const ambiguous = "00000000000000000000000000000042"
	seedTopics(t, mem, 42)
	user := forum.NewUserID()

	result, err := resolver.Toggle(ctx, user, ambiguous, "like")
	require.NoError(t, err)
	assert.Equal(t, forum.TopicTarget(42), result.Target)

	liked, err := resolver.GetLikeStatus(ctx, user, ambiguous)
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = resolver.GetLikeStatus(ctx, user, "42")
	require.NoError(t, err)
	assert.False(t, liked, "status uses the target ID verbatim")
}

func TestToggle_UnknownTarget_NotFoundWithoutMutation(t *testing.T) {
	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	seedTopic(t, mem)
	user := forum.NewUserID()

	for _, id := range []string{"999", uuid.NewString(), "not-an-id", ""} {
		_, err := resolver.Toggle(ctx, user, id, "like")
		assert.ErrorIs(t, err, forum.ErrTargetNotFound, "target %q", id)
		assert.True(t, forum.IsNotFound(err))

		liked, err := resolver.GetLikeStatus(ctx, user, id)
		require.NoError(t, err)
		assert.False(t, liked, "no like record may be written for %q", id)
	}
}

// =============================================================================
// STATE MODEL
// =============================================================================

func TestToggle_DoubleLike_Conflict(t *testing.T) {
	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	topic := seedTopic(t, mem)
	target := strconv.FormatInt(topic.Seq, 10)
	user := forum.NewUserID()

	_, err := resolver.Toggle(ctx, user, target, "like")
	require.NoError(t, err)

	_, err = resolver.Toggle(ctx, user, target, "like")
	assert.ErrorIs(t, err, forum.ErrAlreadyLiked)
	assert.True(t, forum.IsConflict(err))
	assert.Equal(t, int64(1), topicLikes(t, mem, topic.Seq))
}

func TestToggle_UnlikeWithoutLike_Conflict(t *testing.T) {
	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	topic := seedTopic(t, mem)

	_, err := resolver.Toggle(ctx, forum.NewUserID(), "1", "unlike")

	assert.ErrorIs(t, err, forum.ErrNotLiked)
	assert.Equal(t, int64(0), topicLikes(t, mem, topic.Seq))
}

func TestToggle_LikeThenUnlike_RoundTrip(t *testing.T) {
	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	seedTopic(t, mem)
	user := forum.NewUserID()

	_, err := resolver.Toggle(ctx, user, "1", "like")
	require.NoError(t, err)

	result, err := resolver.Toggle(ctx, user, "1", "unlike")
	require.NoError(t, err)
	assert.False(t, result.Liked)
	assert.Equal(t, int64(0), result.LikeCount)
	assert.Equal(t, "unliked", result.Message)

	liked, err := resolver.GetLikeStatus(ctx, user, "1")
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestToggle_InvalidAction(t *testing.T) {
	resolver, mem := newTestResolver(t)
	seedTopic(t, mem)

	_, err := resolver.Toggle(context.Background(), forum.NewUserID(), "1", "love")

	assert.ErrorIs(t, err, forum.ErrInvalidAction)
	assert.True(t, forum.IsInvalidArgument(err))
	var actionErr *forum.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "love", actionErr.Action)
}

func TestToggle_UnlikeClampsDriftedCounterAtZero(t *testing.T) {
	// GIVEN: A like record whose counter drifted back to 0
	// WHEN: Unliking
	// THEN: The record goes away and the counter stays at 0

	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	topic := seedTopic(t, mem)
	user := forum.NewUserID()

	_, err := resolver.Toggle(ctx, user, "1", "like")
	require.NoError(t, err)
	require.NoError(t, mem.SetLikeCount(ctx, forum.TopicTarget(topic.Seq), 0))

	result, err := resolver.Toggle(ctx, user, "1", "unlike")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.LikeCount)
	assert.Equal(t, int64(0), topicLikes(t, mem, topic.Seq))
}

func TestToggle_RandomSequence_CounterMatchesRecords(t *testing.T) {
	// Property: after any sequence of like/unlike calls, likeCount equals the
	// number of like records and never goes negative.

	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	topic := seedTopic(t, mem)
	reply := seedReply(t, mem, topic.Seq)

	users := []forum.UserID{forum.NewUserID(), forum.NewUserID(), forum.NewUserID(), forum.NewUserID()}
	targets := []string{"1", reply.ID.String()}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 300; i++ {
		user := users[rng.Intn(len(users))]
		target := targets[rng.Intn(len(targets))]
		action := "like"
		if rng.Intn(2) == 0 {
			action = "unlike"
		}
		_, err := resolver.Toggle(ctx, user, target, action)
		if err != nil {
			require.True(t, forum.IsConflict(err), "unexpected error: %v", err)
		}

		for _, id := range targets {
			records, err := mem.CountLikes(ctx, id)
			require.NoError(t, err)
			var count int64
			if id == "1" {
				count = topicLikes(t, mem, topic.Seq)
			} else {
				count = replyLikes(t, mem, reply.ID)
			}
			require.GreaterOrEqual(t, count, int64(0))
			require.Equal(t, records, count, "step %d target %s", i, id)
		}
	}
}

func TestReconcile_RepairsDrift(t *testing.T) {
	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	topic := seedTopic(t, mem)

	for i := 0; i < 3; i++ {
		_, err := resolver.Toggle(ctx, forum.NewUserID(), "1", "like")
		require.NoError(t, err)
	}
	require.NoError(t, mem.SetLikeCount(ctx, forum.TopicTarget(topic.Seq), 17))

	n, err := resolver.Reconcile(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(3), topicLikes(t, mem, topic.Seq))
}

func TestReconcile_CountsEveryAliasOfATarget(t *testing.T) {
	// GIVEN: Topic 42 liked once as "42" and once as "042"
	// WHEN: Reconciling through either spelling
	// THEN: Both records count toward the same topic

	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	seedTopics(t, mem, 42)

	_, err := resolver.Toggle(ctx, forum.NewUserID(), "42", "like")
	require.NoError(t, err)
	_, err = resolver.Toggle(ctx, forum.NewUserID(), "042", "like")
	require.NoError(t, err)
	require.NoError(t, mem.SetLikeCount(ctx, forum.TopicTarget(42), 0))

	n, err := resolver.Reconcile(ctx, "042")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(2), topicLikes(t, mem, 42))
}

func TestReconcileAll_RepairsOnlyDriftedCounters(t *testing.T) {
	resolver, mem := newTestResolver(t)
	ctx := context.Background()
	seedTopics(t, mem, 3)
	reply := seedReply(t, mem, 2)

	_, err := resolver.Toggle(ctx, forum.NewUserID(), "1", "like")
	require.NoError(t, err)
	_, err = resolver.Toggle(ctx, forum.NewUserID(), reply.ID.String(), "like")
	require.NoError(t, err)

	require.NoError(t, mem.SetLikeCount(ctx, forum.TopicTarget(3), 8))
	require.NoError(t, mem.SetLikeCount(ctx, forum.ReplyTarget(reply.ID), 0))

	report, err := resolver.ReconcileAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Checked, "three topics and one reply")
	assert.Equal(t, 2, report.Fixed)
	assert.Equal(t, int64(1), topicLikes(t, mem, 1))
	assert.Equal(t, int64(0), topicLikes(t, mem, 3))
	assert.Equal(t, int64(1), replyLikes(t, mem, reply.ID))
}

// listHookStore runs onList after each ListTopics page is read, which lets a
// test commit writes while ReconcileAll is between pages and recounts.
type listHookStore struct {
	*store.Memory
	onList func(skip int)
}

func (h *listHookStore) ListTopics(ctx context.Context, category string, skip, limit int) ([]forum.Topic, error) {
	topics, err := h.Memory.ListTopics(ctx, category, skip, limit)
	if h.onList != nil {
		h.onList(skip)
	}
	return topics, err
}

func TestReconcileAll_KeepsLikesCommittedDuringTheSweep(t *testing.T) {
	// GIVEN: Topic 1 liked as "1", and topic 2 with no likes
	// WHEN: "01" on topic 1 and "2" on topic 2 are liked after the sweep lists topics
	// THEN: Both counters include the new likes

	mem := store.NewMemory()
	ctx := context.Background()
	seedTopics(t, mem, 2)
	live := forum.NewReactionResolver(mem)
	_, err := live.Toggle(ctx, forum.NewUserID(), "1", "like")
	require.NoError(t, err)

	hooked := &listHookStore{Memory: mem}
	hooked.onList = func(skip int) {
		if skip != 0 {
			return
		}
		_, err := live.Toggle(ctx, forum.NewUserID(), "01", "like")
		require.NoError(t, err)
		_, err = live.Toggle(ctx, forum.NewUserID(), "2", "like")
		require.NoError(t, err)
	}

	report, err := forum.NewReactionResolver(hooked).ReconcileAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 0, report.Fixed)
	assert.Equal(t, int64(2), topicLikes(t, mem, 1))
	assert.Equal(t, int64(1), topicLikes(t, mem, 2))
}

func TestReconcileAll_TopicPostedMidSweep_ChecksEachTopicOnce(t *testing.T) {
	// GIVEN: More topics than fit on one sweep page
	// WHEN: A new topic is posted after the first page is read
	// THEN: No older topic is checked twice

	mem := store.NewMemory()
	ctx := context.Background()
	seedTopics(t, mem, 101)

	hooked := &listHookStore{Memory: mem}
	hooked.onList = func(skip int) {
		if skip == 0 {
			seedTopic(t, mem)
		}
	}

	report, err := forum.NewReactionResolver(hooked).ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 101, report.Checked)
	assert.Equal(t, 0, report.Fixed)
}
