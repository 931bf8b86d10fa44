package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cookieboard/forum"
	"github.com/warp/cookieboard/forum/store"
)

func TestReconciliationScheduler_SweepsOnStart(t *testing.T) {
	// GIVEN: A topic whose counter drifted to 5 with no like records
	// WHEN: The scheduler starts
	// THEN: The first sweep resets it to 0

	mem := store.NewMemory()
	ctx := context.Background()
	topic, err := mem.CreateTopic(ctx, forum.Topic{Content: "t"})
	require.NoError(t, err)
	require.NoError(t, mem.SetLikeCount(ctx, forum.TopicTarget(topic.Seq), 5))

	rs := NewReconciliationScheduler(forum.NewReactionResolver(mem), time.Hour)
	rs.Start()
	t.Cleanup(rs.Stop)

	assert.Eventually(t, func() bool {
		got, err := mem.GetTopic(ctx, topic.Seq)
		return err == nil && got.LikeCount == 0
	}, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return rs.LastReport().Fixed == 1
	}, time.Second, 10*time.Millisecond)
}

func TestReconciliationScheduler_ZeroIntervalDisabled(t *testing.T) {
	rs := NewReconciliationScheduler(forum.NewReactionResolver(store.NewMemory()), 0)

	assert.False(t, rs.Enabled)
	rs.Start()
	rs.Stop()
}
