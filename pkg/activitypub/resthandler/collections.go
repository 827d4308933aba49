/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resthandler

import (
	"errors"
	"fmt"
	"net/http"

	store "github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
)

type collectionStore interface {
	store.FollowerStore
	store.ReactionStore
	store.ActivityStore
}

// Collection implements a GET handler for one of an actor's collections
// (followers, following, outbox, liked), rendered as a paged
// OrderedCollection.
type Collection struct {
	*handler

	store collectionStore
	items func(handle string) ([]*vocab.ObjectProperty, error)
	iri   func(handle string) string
}

func newCollection(endpoint string, cfg *config.Config, s collectionStore,
	iri func(handle string) string,
	items func(handle string) ([]*vocab.ObjectProperty, error)) *Collection {
	c := &Collection{store: s, items: items, iri: iri}

	c.handler = newHandler(endpoint, http.MethodGet, cfg, c.handleGet)

	return c
}

// NewFollowers returns the handler for an actor's followers collection. Only
// accepted followers are exposed.
func NewFollowers(cfg *config.Config, s collectionStore) *Collection {
	return newCollection("/@{handle}/followers", cfg, s, cfg.FollowersURI,
		func(handle string) ([]*vocab.ObjectProperty, error) {
			followers, err := s.GetFollowers(handle)
			if err != nil {
				return nil, fmt.Errorf("get followers for [%s]: %w", handle, err)
			}

			var uris []string

			for _, f := range followers {
				if f.Status == store.StatusAccepted {
					uris = append(uris, f.ActorURI)
				}
			}

			return iriItems(uris), nil
		})
}

// NewFollowing returns the handler for an actor's following collection.
func NewFollowing(cfg *config.Config, s collectionStore) *Collection {
	return newCollection("/@{handle}/following", cfg, s, cfg.FollowingURI,
		func(handle string) ([]*vocab.ObjectProperty, error) {
			following, err := s.GetFollowing(handle)
			if err != nil {
				return nil, fmt.Errorf("get following for [%s]: %w", handle, err)
			}

			var uris []string

			for _, f := range following {
				if f.Status == store.StatusAccepted {
					uris = append(uris, f.ActorURI)
				}
			}

			return iriItems(uris), nil
		})
}

// NewLiked returns the handler for an actor's liked collection.
func NewLiked(cfg *config.Config, s collectionStore) *Collection {
	return newCollection("/@{handle}/liked", cfg, s, cfg.LikedURI,
		func(handle string) ([]*vocab.ObjectProperty, error) {
			likes, err := s.GetOutgoingLikes(handle)
			if err != nil {
				return nil, fmt.Errorf("get likes for [%s]: %w", handle, err)
			}

			var uris []string

			for _, l := range likes {
				uris = append(uris, l.ObjectURI)
			}

			return iriItems(uris), nil
		})
}

// NewInboxCollection returns the GET handler for an actor's inbox
// collection, containing the activities received by that actor.
func NewInboxCollection(cfg *config.Config, s collectionStore) *Collection {
	return newCollection("/@{handle}/inbox", cfg, s, cfg.InboxURI,
		func(handle string) ([]*vocab.ObjectProperty, error) {
			actorIRI := vocab.MustParseURL(cfg.ActorURI(handle))

			it, err := s.QueryActivities(store.Inbox, store.NewCriteria())
			if err != nil {
				return nil, fmt.Errorf("query inbox: %w", err)
			}

			defer it.Close()

			var items []*vocab.ObjectProperty

			for {
				activity, err := it.Next()
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						break
					}

					return nil, fmt.Errorf("query inbox: %w", err)
				}

				if activity.To().Contains(actorIRI) || activity.CC().Contains(actorIRI) {
					items = append(items, vocab.NewObjectProperty(vocab.WithActivity(activity)))
				}
			}

			reverse(items)

			return items, nil
		})
}

// NewFeatured returns the handler for an actor's featured (pinned) collection.
// Pinning is not tracked by the store, so the collection is always empty.
func NewFeatured(cfg *config.Config, s collectionStore) *Collection {
	return newCollection("/@{handle}/featured", cfg, s, cfg.FeaturedURI,
		func(string) ([]*vocab.ObjectProperty, error) {
			return nil, nil
		})
}

// NewOutbox returns the handler for an actor's outbox collection, containing
// the activities published by that actor.
func NewOutbox(cfg *config.Config, s collectionStore) *Collection {
	return newCollection("/@{handle}/outbox", cfg, s, cfg.OutboxURI,
		func(handle string) ([]*vocab.ObjectProperty, error) {
			it, err := s.QueryActivities(store.Outbox, store.NewCriteria())
			if err != nil {
				return nil, fmt.Errorf("query outbox: %w", err)
			}

			defer it.Close()

			var items []*vocab.ObjectProperty

			for {
				activity, err := it.Next()
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						break
					}

					return nil, fmt.Errorf("query outbox: %w", err)
				}

				if actor := activity.Actor(); actor != nil &&
					cfg.ExtractHandleFromURI(actor.String()) == handle {
					items = append(items, vocab.NewObjectProperty(vocab.WithActivity(activity)))
				}
			}

			reverse(items)

			return items, nil
		})
}

// reverse orders the items newest first, since the store appends in
// insertion order.
func reverse(items []*vocab.ObjectProperty) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func (c *Collection) handleGet(w http.ResponseWriter, req *http.Request) {
	handle := getHandle(req)

	items, err := c.items(handle)
	if err != nil {
		c.writeError(w, err)

		return
	}

	response, err := c.collectionResponse(req, c.iri(handle), items)
	if err != nil {
		c.writeError(w, err)

		return
	}

	c.writeDocument(w, response)
}
