package forum

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PageSize is how many topics or replies one page holds.
const PageSize = 5

// Board posts and pages through topics and replies.
type Board struct {
	Store TxStore
	Clock Clock
}

func NewBoard(store TxStore) *Board {
	return &Board{Store: store, Clock: systemClock}
}

// PostTopic stores a new topic and returns it with its sequence number.
func (b *Board) PostTopic(ctx context.Context, author UserID, category, content string, images []string) (Topic, error) {
	if strings.TrimSpace(content) == "" {
		return Topic{}, ErrEmptyContent
	}
	return b.Store.CreateTopic(ctx, Topic{
		AuthorID:  author,
		Content:   content,
		Category:  category,
		ImageURLs: images,
		CreatedAt: b.now(),
	})
}

// PostReply stores a reply under an existing topic.
func (b *Board) PostReply(ctx context.Context, author UserID, topicSeq int64, content, quoteOf string, images []string) (Reply, error) {
	if strings.TrimSpace(content) == "" {
		return Reply{}, ErrEmptyContent
	}
	reply := Reply{
		ID:        uuid.New(),
		TopicSeq:  topicSeq,
		AuthorID:  author,
		Content:   content,
		QuoteOf:   quoteOf,
		ImageURLs: images,
		CreatedAt: b.now(),
	}
	err := b.Store.WithTx(ctx, func(s Store) error {
		t, err := s.GetTopic(ctx, topicSeq)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTopicNotFound
		}
		return s.CreateReply(ctx, reply)
	})
	if err != nil {
		return Reply{}, err
	}
	return reply, nil
}

func (b *Board) Topic(ctx context.Context, seq int64) (*Topic, error) {
	t, err := b.Store.GetTopic(ctx, seq)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTopicNotFound
	}
	return t, nil
}

// Topics returns one page of topics, newest first. An empty category means all.
func (b *Board) Topics(ctx context.Context, category string, skip int) ([]Topic, error) {
	if skip < 0 {
		skip = 0
	}
	return b.Store.ListTopics(ctx, category, skip, PageSize)
}

// Replies returns one page of a topic's replies, oldest first.
func (b *Board) Replies(ctx context.Context, topicSeq int64, skip int) ([]Reply, error) {
	if _, err := b.Topic(ctx, topicSeq); err != nil {
		return nil, err
	}
	if skip < 0 {
		skip = 0
	}
	return b.Store.ListReplies(ctx, topicSeq, skip, PageSize)
}

func (b *Board) now() time.Time {
	if b.Clock == nil {
		return systemClock()
	}
	return b.Clock()
}
