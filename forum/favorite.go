package forum

import (
	"context"
	"time"
)

type FavoriteAction string

const (
	ActionFavorite   FavoriteAction = "favorite"
	ActionUnfavorite FavoriteAction = "unfavorite"
)

// Favorites saves topics per user. Same two-state toggle as likes, keyed by
// topic sequence number, with no counter on the topic.
type Favorites struct {
	Store TxStore
	Clock Clock
}

func NewFavorites(store TxStore) *Favorites {
	return &Favorites{Store: store, Clock: systemClock}
}

// Toggle applies action and returns the resulting favorite state.
func (f *Favorites) Toggle(ctx context.Context, userID UserID, topicSeq int64, action string) (bool, error) {
	verb := FavoriteAction(action)
	if verb != ActionFavorite && verb != ActionUnfavorite {
		return false, &ActionError{Action: action, Allowed: []string{string(ActionFavorite), string(ActionUnfavorite)}}
	}

	err := f.Store.WithTx(ctx, func(s Store) error {
		topic, err := s.GetTopic(ctx, topicSeq)
		if err != nil {
			return err
		}
		if topic == nil {
			return ErrTopicNotFound
		}

		saved, err := s.FavoriteExists(ctx, topicSeq, userID)
		if err != nil {
			return err
		}
		if verb == ActionFavorite {
			if saved {
				return ErrAlreadyFavorited
			}
			return s.InsertFavorite(ctx, Favorite{TopicSeq: topicSeq, UserID: userID, CreatedAt: f.now()})
		}
		if !saved {
			return ErrNotFavorited
		}
		return s.DeleteFavorite(ctx, topicSeq, userID)
	})
	if err != nil {
		return false, err
	}
	return verb == ActionFavorite, nil
}

func (f *Favorites) IsFavorite(ctx context.Context, userID UserID, topicSeq int64) (bool, error) {
	return f.Store.FavoriteExists(ctx, topicSeq, userID)
}

func (f *Favorites) List(ctx context.Context, userID UserID) ([]Favorite, error) {
	return f.Store.ListFavorites(ctx, userID)
}

func (f *Favorites) now() time.Time {
	if f.Clock == nil {
		return systemClock()
	}
	return f.Clock()
}
