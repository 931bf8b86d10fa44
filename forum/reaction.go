/*
reaction.go - Like/unlike toggle with polymorphic target resolution

PURPOSE:
  Toggles a user's like on a Topic or a Reply and keeps the target's
  denormalized likeCount in step with the set of LikeRecords.

TARGET RESOLUTION:
  Clients send one opaque string. Both readings are tried:
    1. UUID    -> Reply with that primary key
    2. integer -> Topic with that sequence number
  A Reply match wins over a Topic match. Neither -> ErrTargetNotFound.
  The LikeRecord is always keyed by the original string, whichever kind
  resolved.

STATE MODEL (per target, user):
  NotLiked --like--> Liked --unlike--> NotLiked
  like from Liked and unlike from NotLiked are rejected with a conflict.

COUNTER:
  like adds 1, unlike subtracts 1 clamped at 0. Record write and counter
  write commit together.
*/
package forum

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type LikeAction string

const (
	ActionLike   LikeAction = "like"
	ActionUnlike LikeAction = "unlike"
)

// ParseLikeAction validates an action verb.
func ParseLikeAction(s string) (LikeAction, error) {
	switch LikeAction(s) {
	case ActionLike, ActionUnlike:
		return LikeAction(s), nil
	}
	return "", &ActionError{Action: s, Allowed: []string{string(ActionLike), string(ActionUnlike)}}
}

// ToggleResult is what a successful Toggle reports back.
type ToggleResult struct {
	Message   string
	Target    Target
	Liked     bool
	LikeCount int64
}

// =============================================================================
// REACTION RESOLVER
// =============================================================================

type ReactionResolver struct {
	Store TxStore
	Clock Clock
}

func NewReactionResolver(store TxStore) *ReactionResolver {
	return &ReactionResolver{Store: store, Clock: systemClock}
}

// Resolve maps a client target ID onto a Reply or Topic.
func Resolve(ctx context.Context, s Store, targetID string) (Target, error) {
	var (
		reply *Reply
		topic *Topic
	)
	if id, err := uuid.Parse(targetID); err == nil {
		r, err := s.GetReply(ctx, id)
		if err != nil {
			return Target{}, err
		}
		reply = r
	}
	if seq, err := strconv.ParseInt(targetID, 10, 64); err == nil {
		t, err := s.GetTopic(ctx, seq)
		if err != nil {
			return Target{}, err
		}
		topic = t
	}

	switch {
	case reply != nil:
		return ReplyTarget(reply.ID), nil
	case topic != nil:
		return TopicTarget(topic.Seq), nil
	default:
		return Target{}, ErrTargetNotFound
	}
}

// Toggle applies action for (userID, targetID).
func (r *ReactionResolver) Toggle(ctx context.Context, userID UserID, targetID string, action string) (ToggleResult, error) {
	verb, err := ParseLikeAction(action)
	if err != nil {
		return ToggleResult{}, err
	}

	var result ToggleResult
	err = r.Store.WithTx(ctx, func(s Store) error {
		target, err := Resolve(ctx, s, targetID)
		if err != nil {
			return err
		}

		liked, err := s.LikeExists(ctx, targetID, userID)
		if err != nil {
			return err
		}

		var delta int64
		switch verb {
		case ActionLike:
			if liked {
				return ErrAlreadyLiked
			}
			rec := LikeRecord{TargetID: targetID, UserID: userID, CreatedAt: r.now()}
			if err := s.InsertLike(ctx, rec); err != nil {
				return err
			}
			delta = 1
			result.Message = "liked"
		case ActionUnlike:
			if !liked {
				return ErrNotLiked
			}
			if err := s.DeleteLike(ctx, targetID, userID); err != nil {
				return err
			}
			delta = -1
			result.Message = "unliked"
		}

		count, err := s.AdjustLikeCount(ctx, target, delta)
		if err != nil {
			return err
		}
		result.Target = target
		result.Liked = verb == ActionLike
		result.LikeCount = count
		return nil
	})
	if err != nil {
		return ToggleResult{}, err
	}
	return result, nil
}

// GetLikeStatus reports whether userID has liked targetID. targetID is used
// verbatim; no resolution happens.
func (r *ReactionResolver) GetLikeStatus(ctx context.Context, userID UserID, targetID string) (bool, error) {
	return r.Store.LikeExists(ctx, targetID, userID)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// sweepPage is how many topics or replies ReconcileAll reads at once.
const sweepPage = 100

// ReconcileReport summarizes a ReconcileAll sweep.
type ReconcileReport struct {
	Checked int
	Fixed   int
}

// aliasesOf picks the recorded target IDs that Resolve would map onto
// target. "42" and "042" both belong to topic 42. A string that parses as a
// UUID never parses as an int64, so the two kinds cannot overlap.
func aliasesOf(ids []string, target Target) []string {
	var keys []string
	for _, id := range ids {
		switch target.Kind {
		case TargetReply:
			if u, err := uuid.Parse(id); err == nil && u == target.ReplyID {
				keys = append(keys, id)
			}
		case TargetTopic:
			if seq, err := strconv.ParseInt(id, 10, 64); err == nil && seq == target.TopicSeq {
				keys = append(keys, id)
			}
		}
	}
	return keys
}

// recount sets target's likeCount to the number of records under any of its
// aliases. Call it inside the transaction that should see the records.
func recount(ctx context.Context, s Store, target Target) (int64, error) {
	ids, err := s.LikeTargetIDs(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, key := range aliasesOf(ids, target) {
		c, err := s.CountLikes(ctx, key)
		if err != nil {
			return 0, err
		}
		n += c
	}
	return n, s.SetLikeCount(ctx, target, n)
}

// storedCount reads the counter as it is now. ok is false when the target is gone.
func storedCount(ctx context.Context, s Store, target Target) (n int64, ok bool, err error) {
	switch target.Kind {
	case TargetReply:
		r, err := s.GetReply(ctx, target.ReplyID)
		if err != nil || r == nil {
			return 0, false, err
		}
		return r.LikeCount, true, nil
	case TargetTopic:
		t, err := s.GetTopic(ctx, target.TopicSeq)
		if err != nil || t == nil {
			return 0, false, err
		}
		return t.LikeCount, true, nil
	}
	return 0, false, nil
}

// Reconcile recomputes the likeCount of whatever targetID resolves to from
// the like records of every ID that resolves to the same target.
func (r *ReactionResolver) Reconcile(ctx context.Context, targetID string) (int64, error) {
	var count int64
	err := r.Store.WithTx(ctx, func(s Store) error {
		target, err := Resolve(ctx, s, targetID)
		if err != nil {
			return err
		}
		count, err = recount(ctx, s, target)
		return err
	})
	return count, err
}

// ReconcileAll walks every topic and reply and repairs drifted counters.
// Each target is read and recounted in its own transaction, so likes that
// commit while the sweep runs are counted.
func (r *ReactionResolver) ReconcileAll(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	check := func(target Target) error {
		var before, after int64
		var found bool
		err := r.Store.WithTx(ctx, func(s Store) error {
			var err error
			before, found, err = storedCount(ctx, s, target)
			if err != nil || !found {
				return err
			}
			after, err = recount(ctx, s, target)
			return err
		})
		if err != nil {
			return fmt.Errorf("reconcile %s: %w", target, err)
		}
		if !found {
			return nil
		}
		report.Checked++
		if after != before {
			report.Fixed++
		}
		return nil
	}

	// Topics are listed newest first. A topic posted mid-sweep pushes older
	// ones onto the next page, so anything at or above the last seen seq is
	// skipped.
	lastSeq := int64(-1)
	for skip := 0; ; skip += sweepPage {
		topics, err := r.Store.ListTopics(ctx, "", skip, sweepPage)
		if err != nil {
			return report, err
		}
		for _, t := range topics {
			if lastSeq >= 0 && t.Seq >= lastSeq {
				continue
			}
			lastSeq = t.Seq
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := check(TopicTarget(t.Seq)); err != nil {
				return report, err
			}
			if err := r.reconcileReplies(ctx, t.Seq, check); err != nil {
				return report, err
			}
		}
		if len(topics) < sweepPage {
			return report, nil
		}
	}
}

func (r *ReactionResolver) reconcileReplies(ctx context.Context, topicSeq int64, check func(Target) error) error {
	for skip := 0; ; skip += sweepPage {
		replies, err := r.Store.ListReplies(ctx, topicSeq, skip, sweepPage)
		if err != nil {
			return err
		}
		for _, rep := range replies {
			if err := check(ReplyTarget(rep.ID)); err != nil {
				return err
			}
		}
		if len(replies) < sweepPage {
			return nil
		}
	}
}

func (r *ReactionResolver) now() time.Time {
	if r.Clock == nil {
		return systemClock()
	}
	return r.Clock()
}
