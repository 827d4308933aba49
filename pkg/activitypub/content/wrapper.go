/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package content

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
)

// WrapInCreate wraps the given content in a 'Create' activity. The activity
// carries the same addressing as the object.
func (c *Converter) WrapInCreate(cnt *Content) (*vocab.ActivityType, error) {
	obj, err := c.Convert(cnt)
	if err != nil {
		return nil, err
	}

	to, cc := c.Addressing(cnt)

	return vocab.NewCreateActivity(obj,
		vocab.WithID(vocab.MustParseURL(c.ActivityID(vocab.TypeCreate, cnt.Slug, time.Now()))),
		vocab.WithActor(vocab.MustParseURL(c.ActorURI(cnt.AuthorHandle))),
		vocab.WithTo(to...),
		vocab.WithCC(cc...),
		vocab.WithPublishedTime(cnt.PublishedAt),
	), nil
}

// WrapInUpdate wraps the given content in an 'Update' activity.
func (c *Converter) WrapInUpdate(cnt *Content) (*vocab.ActivityType, error) {
	obj, err := c.Convert(cnt)
	if err != nil {
		return nil, err
	}

	to, cc := c.Addressing(cnt)

	published := cnt.UpdatedAt
	if published == nil {
		published = cnt.PublishedAt
	}

	return vocab.NewUpdateActivity(obj,
		vocab.WithID(vocab.MustParseURL(c.ActivityID(vocab.TypeUpdate, cnt.Slug, time.Now()))),
		vocab.WithActor(vocab.MustParseURL(c.ActorURI(cnt.AuthorHandle))),
		vocab.WithTo(to...),
		vocab.WithCC(cc...),
		vocab.WithPublishedTime(published),
	), nil
}

// WrapInDelete wraps a 'Tombstone' for the given content in a 'Delete'
// activity. Delete activities are always addressed to the public collection
// so that every server holding a copy is told to remove it.
func (c *Converter) WrapInDelete(cnt *Content, deleted time.Time) (*vocab.ActivityType, error) {
	tombstone, err := vocab.NewObjectWithDocument(
		vocab.Document{
			"formerType": string(ASType(cnt.Type)),
			"deleted":    deleted.Format(time.RFC3339),
		},
		vocab.WithID(vocab.MustParseURL(c.ObjectID(cnt))),
		vocab.WithType(vocab.TypeTombstone),
	)
	if err != nil {
		return nil, fmt.Errorf("build tombstone for [%s]: %w", cnt.Slug, err)
	}

	return vocab.NewDeleteActivity(vocab.NewObjectProperty(vocab.WithObject(tombstone)),
		vocab.WithID(vocab.MustParseURL(c.ActivityID(vocab.TypeDelete, cnt.Slug, time.Now()))),
		vocab.WithActor(vocab.MustParseURL(c.ActorURI(cnt.AuthorHandle))),
		vocab.WithTo(vocab.MustParseURL(vocab.PublicIRI)),
		vocab.WithCC(vocab.MustParseURL(c.FollowersURI(cnt.AuthorHandle))),
		vocab.WithPublishedTime(&deleted),
	), nil
}

// NewActivityID returns an ID for activities that are not derived from a
// piece of content.
func (c *Converter) NewActivityID(activityType vocab.Type) *url.URL {
	return vocab.MustParseURL(fmt.Sprintf("%s/ap/activities/%s/%s",
		c.cfg.SiteBaseURL, strings.ToLower(string(activityType)), uuid.NewString()))
}

// NewFollow returns a 'Follow' activity from actor to target.
func (c *Converter) NewFollow(actorIRI, targetIRI *url.URL) *vocab.ActivityType {
	return vocab.NewFollowActivity(vocab.NewObjectProperty(vocab.WithIRI(targetIRI)),
		vocab.WithID(c.NewActivityID(vocab.TypeFollow)),
		vocab.WithActor(actorIRI),
		vocab.WithTo(targetIRI),
	)
}

// NewAccept returns an 'Accept' of the given activity, addressed to the
// activity's actor.
func (c *Converter) NewAccept(actorIRI *url.URL, activity *vocab.ActivityType) *vocab.ActivityType {
	return vocab.NewAcceptActivity(vocab.NewObjectProperty(vocab.WithActivity(activity)),
		vocab.WithID(c.NewActivityID(vocab.TypeAccept)),
		vocab.WithActor(actorIRI),
		vocab.WithTo(activity.Actor()),
	)
}

// NewReject returns a 'Reject' of the given activity, addressed to the
// activity's actor.
func (c *Converter) NewReject(actorIRI *url.URL, activity *vocab.ActivityType) *vocab.ActivityType {
	return vocab.NewRejectActivity(vocab.NewObjectProperty(vocab.WithActivity(activity)),
		vocab.WithID(c.NewActivityID(vocab.TypeReject)),
		vocab.WithActor(actorIRI),
		vocab.WithTo(activity.Actor()),
	)
}

// NewLike returns a public 'Like' of the given object by the given local
// actor, cc'd to the actor's followers.
func (c *Converter) NewLike(handle string, objectIRI *url.URL) *vocab.ActivityType {
	return vocab.NewLikeActivity(vocab.NewObjectProperty(vocab.WithIRI(objectIRI)),
		vocab.WithID(c.NewActivityID(vocab.TypeLike)),
		vocab.WithActor(vocab.MustParseURL(c.ActorURI(handle))),
		vocab.WithTo(vocab.MustParseURL(vocab.PublicIRI)),
		vocab.WithCC(vocab.MustParseURL(c.FollowersURI(handle))),
	)
}

// NewAnnounce returns a public 'Announce' of the given object by the given
// local actor, cc'd to the actor's followers.
func (c *Converter) NewAnnounce(handle string, objectIRI *url.URL) *vocab.ActivityType {
	return vocab.NewAnnounceActivity(vocab.NewObjectProperty(vocab.WithIRI(objectIRI)),
		vocab.WithID(c.NewActivityID(vocab.TypeAnnounce)),
		vocab.WithActor(vocab.MustParseURL(c.ActorURI(handle))),
		vocab.WithTo(vocab.MustParseURL(vocab.PublicIRI)),
		vocab.WithCC(vocab.MustParseURL(c.FollowersURI(handle))),
	)
}

// NewUndo returns an 'Undo' of the given activity by its own actor. The undo
// carries the original activity's addressing.
func (c *Converter) NewUndo(activity *vocab.ActivityType) *vocab.ActivityType {
	return vocab.NewUndoActivity(vocab.NewObjectProperty(vocab.WithActivity(activity)),
		vocab.WithID(c.NewActivityID(vocab.TypeUndo)),
		vocab.WithActor(activity.Actor()),
		vocab.WithTo(activity.To()...),
		vocab.WithCC(activity.CC()...),
	)
}
