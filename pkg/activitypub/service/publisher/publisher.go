/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package publisher bridges local content changes into federation: it decides
// whether a piece of content federates at all, wraps it in the appropriate
// activity, computes the remote delivery targets and enqueues the result on
// the outbox.
package publisher

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/fedipress/fedipress/internal/pkg/log"
	"github.com/fedipress/fedipress/pkg/activitypub/content"
	service "github.com/fedipress/fedipress/pkg/activitypub/service/spi"
	store "github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/text"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
)

var logger = log.New("activitypub_publisher")

type publisherStore interface {
	store.FollowerStore
	store.ReactionStore
}

// Publisher enqueues activities for local content changes.
type Publisher struct {
	cfg       *config.Config
	converter *content.Converter
	outbox    service.Outbox
	store     publisherStore
}

// New returns a new publisher.
func New(cfg *config.Config, converter *content.Converter, outbox service.Outbox, s publisherStore) *Publisher {
	return &Publisher{
		cfg:       cfg,
		converter: converter,
		outbox:    outbox,
		store:     s,
	}
}

// ShouldFederate returns true if the given content is eligible for outbound
// delivery. Draft content (no publish date) is held back, except for profile
// documents which have no publish date by nature.
func (p *Publisher) ShouldFederate(cnt *content.Content) bool {
	if !p.cfg.FederationEnabled {
		return false
	}

	if cnt.Frontmatter.NoFederate {
		return false
	}

	visibility := cnt.Visibility
	if visibility == "" {
		visibility = p.cfg.DefaultVisibility
	}

	if visibility == content.VisibilityPrivate || visibility == content.VisibilityDirect {
		return false
	}

	if cnt.PublishedAt == nil && cnt.Type != "profile" {
		return false
	}

	return true
}

// PublishCreate wraps the given content in a 'Create' activity and enqueues
// it for delivery. An empty task ID is returned when nothing federates.
func (p *Publisher) PublishCreate(cnt *content.Content) (string, error) {
	if !p.ShouldFederate(cnt) {
		return "", nil
	}

	activity, err := p.converter.WrapInCreate(cnt)
	if err != nil {
		return "", fmt.Errorf("wrap content [%s] in Create: %w", cnt.Slug, err)
	}

	return p.deliver(activity, cnt)
}

// PublishUpdate wraps the given content in an 'Update' activity and enqueues
// it for delivery.
func (p *Publisher) PublishUpdate(cnt *content.Content) (string, error) {
	if !p.ShouldFederate(cnt) {
		return "", nil
	}

	activity, err := p.converter.WrapInUpdate(cnt)
	if err != nil {
		return "", fmt.Errorf("wrap content [%s] in Update: %w", cnt.Slug, err)
	}

	return p.deliver(activity, cnt)
}

// PublishDelete enqueues a 'Delete' activity carrying a Tombstone of the
// given content. The federation gate is not applied: content that was ever
// delivered must also be retracted.
func (p *Publisher) PublishDelete(cnt *content.Content) (string, error) {
	if !p.cfg.FederationEnabled {
		return "", nil
	}

	activity, err := p.converter.WrapInDelete(cnt, time.Now())
	if err != nil {
		return "", fmt.Errorf("wrap content [%s] in Delete: %w", cnt.Slug, err)
	}

	return p.deliver(activity, cnt)
}

// Like sends a 'Like' of the given object on behalf of the local actor and
// records it so that it can later be undone.
func (p *Publisher) Like(handle string, objectIRI, authorIRI *url.URL) (string, error) {
	if !p.cfg.FederationEnabled {
		return "", nil
	}

	activity := p.converter.NewLike(handle, objectIRI)

	if err := p.store.AddOutgoingLike(handle, &store.OutgoingLike{
		ObjectURI:  objectIRI.String(),
		ActivityID: activity.ID().String(),
		At:         time.Now(),
	}); err != nil {
		return "", fmt.Errorf("store outgoing like: %w", err)
	}

	return p.outbox.Deliver(activity, p.reactionTargets(handle, authorIRI), handle)
}

// UndoLike sends an 'Undo' of a previously sent Like of the given object.
func (p *Publisher) UndoLike(handle string, objectIRI, authorIRI *url.URL) (string, error) {
	if !p.cfg.FederationEnabled {
		return "", nil
	}

	original, err := p.outgoingLike(handle, objectIRI)
	if err != nil {
		return "", err
	}

	if err := p.store.DeleteOutgoingLike(handle, objectIRI.String()); err != nil &&
		!errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("delete outgoing like: %w", err)
	}

	return p.outbox.Deliver(p.converter.NewUndo(original), p.reactionTargets(handle, authorIRI), handle)
}

// Announce sends an 'Announce' (boost) of the given object on behalf of the
// local actor, targeting the actor's followers and the remote author.
func (p *Publisher) Announce(handle string, objectIRI, authorIRI *url.URL) (string, error) {
	if !p.cfg.FederationEnabled {
		return "", nil
	}

	activity := p.converter.NewAnnounce(handle, objectIRI)

	if err := p.store.AddOutgoingAnnounce(handle, &store.OutgoingAnnounce{
		ObjectURI:  objectIRI.String(),
		ActivityID: activity.ID().String(),
		At:         time.Now(),
	}); err != nil {
		return "", fmt.Errorf("store outgoing announce: %w", err)
	}

	return p.outbox.Deliver(activity, p.reactionTargets(handle, authorIRI), handle)
}

// UndoAnnounce sends an 'Undo' of a previously sent Announce of the given
// object.
func (p *Publisher) UndoAnnounce(handle string, objectIRI, authorIRI *url.URL) (string, error) {
	if !p.cfg.FederationEnabled {
		return "", nil
	}

	original, err := p.outgoingAnnounce(handle, objectIRI)
	if err != nil {
		return "", err
	}

	if err := p.store.DeleteOutgoingAnnounce(handle, objectIRI.String()); err != nil &&
		!errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("delete outgoing announce: %w", err)
	}

	return p.outbox.Deliver(p.converter.NewUndo(original), p.reactionTargets(handle, authorIRI), handle)
}

// Follow sends a 'Follow' of the given remote actor on behalf of the local
// actor and records a pending following row.
func (p *Publisher) Follow(handle string, remoteActorIRI *url.URL) (string, error) {
	if !p.cfg.FederationEnabled {
		return "", nil
	}

	activity := p.converter.NewFollow(vocab.MustParseURL(p.converter.ActorURI(handle)), remoteActorIRI)

	if err := p.store.UpsertFollowing(handle, &store.Following{
		ActorURI:   remoteActorIRI.String(),
		Domain:     remoteActorIRI.Host,
		ActivityID: activity.ID().String(),
		FollowedAt: time.Now(),
		Status:     store.StatusPending,
	}); err != nil {
		return "", fmt.Errorf("store following: %w", err)
	}

	return p.outbox.Deliver(activity, []string{remoteActorIRI.String()}, handle)
}

// UndoFollow sends an 'Undo' of a previously sent Follow of the given remote
// actor and removes the following row.
func (p *Publisher) UndoFollow(handle string, remoteActorIRI *url.URL) (string, error) {
	if !p.cfg.FederationEnabled {
		return "", nil
	}

	record, err := p.following(handle, remoteActorIRI.String())
	if err != nil {
		return "", err
	}

	original := vocab.NewFollowActivity(vocab.NewObjectProperty(vocab.WithIRI(remoteActorIRI)),
		vocab.WithID(vocab.MustParseURL(record.ActivityID)),
		vocab.WithActor(vocab.MustParseURL(p.converter.ActorURI(handle))),
		vocab.WithTo(remoteActorIRI),
	)

	if err := p.store.DeleteFollowing(handle, remoteActorIRI.String()); err != nil &&
		!errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("delete following: %w", err)
	}

	return p.outbox.Deliver(p.converter.NewUndo(original), []string{remoteActorIRI.String()}, handle)
}

// AcceptFollowRequest flips a pending follower's status to accepted and sends
// an 'Accept' of the original Follow back to the remote actor.
func (p *Publisher) AcceptFollowRequest(handle, actorURI string) (string, error) {
	return p.respondToFollowRequest(handle, actorURI, store.StatusAccepted)
}

// RejectFollowRequest flips a pending follower's status to rejected and sends
// a 'Reject' of the original Follow back to the remote actor. The row is kept
// so that repeat follows from the same actor remain rejected.
func (p *Publisher) RejectFollowRequest(handle, actorURI string) (string, error) {
	return p.respondToFollowRequest(handle, actorURI, store.StatusRejected)
}

func (p *Publisher) respondToFollowRequest(handle, actorURI string, status store.FollowStatus) (string, error) {
	record, err := p.follower(handle, actorURI)
	if err != nil {
		return "", err
	}

	record.Status = status

	if err := p.store.UpsertFollower(handle, record); err != nil {
		return "", fmt.Errorf("update follower status: %w", err)
	}

	actorIRI := vocab.MustParseURL(p.cfg.ActorURI(handle))

	follow := vocab.NewFollowActivity(vocab.NewObjectProperty(vocab.WithIRI(actorIRI)),
		vocab.WithID(vocab.MustParseURL(record.ActivityID)),
		vocab.WithActor(vocab.MustParseURL(record.ActorURI)),
		vocab.WithTo(actorIRI),
	)

	var response *vocab.ActivityType

	if status == store.StatusAccepted {
		response = p.converter.NewAccept(actorIRI, follow)
	} else {
		response = p.converter.NewReject(actorIRI, follow)
	}

	return p.outbox.Deliver(response, []string{record.ActorURI}, handle)
}

// IsFollowing returns true if the local actor follows the given remote actor
// with accepted status.
func (p *Publisher) IsFollowing(handle, remoteActorURI string) (bool, error) {
	following, err := p.store.GetFollowing(handle)
	if err != nil {
		return false, fmt.Errorf("load following for [%s]: %w", handle, err)
	}

	for _, f := range following {
		if f.ActorURI == remoteActorURI && f.Status == store.StatusAccepted {
			return true, nil
		}
	}

	return false, nil
}

// GetFollowerURIs returns the actor URIs of the local actor's followers with
// the given status, for delivery fan-out.
func (p *Publisher) GetFollowerURIs(handle string, status store.FollowStatus) ([]string, error) {
	followers, err := p.store.GetFollowers(handle)
	if err != nil {
		return nil, fmt.Errorf("load followers for [%s]: %w", handle, err)
	}

	var uris []string

	for _, f := range followers {
		if f.Status == status {
			uris = append(uris, f.ActorURI)
		}
	}

	return uris, nil
}

func (p *Publisher) follower(handle, actorURI string) (*store.Follower, error) {
	followers, err := p.store.GetFollowers(handle)
	if err != nil {
		return nil, fmt.Errorf("load followers for [%s]: %w", handle, err)
	}

	for _, f := range followers {
		if f.ActorURI == actorURI {
			return f, nil
		}
	}

	return nil, store.ErrNotFound
}

func (p *Publisher) following(handle, actorURI string) (*store.Following, error) {
	following, err := p.store.GetFollowing(handle)
	if err != nil {
		return nil, fmt.Errorf("load following for [%s]: %w", handle, err)
	}

	for _, f := range following {
		if f.ActorURI == actorURI {
			return f, nil
		}
	}

	return nil, store.ErrNotFound
}

func (p *Publisher) outgoingLike(handle string, objectIRI *url.URL) (*vocab.ActivityType, error) {
	records, err := p.store.GetOutgoingLikes(handle)
	if err != nil {
		return nil, fmt.Errorf("load outgoing likes: %w", err)
	}

	for _, r := range records {
		if r.ObjectURI == objectIRI.String() {
			return vocab.NewLikeActivity(vocab.NewObjectProperty(vocab.WithIRI(objectIRI)),
				vocab.WithID(vocab.MustParseURL(r.ActivityID)),
				vocab.WithActor(vocab.MustParseURL(p.converter.ActorURI(handle))),
				vocab.WithTo(vocab.MustParseURL(vocab.PublicIRI)),
				vocab.WithCC(vocab.MustParseURL(p.converter.FollowersURI(handle))),
			), nil
		}
	}

	return nil, store.ErrNotFound
}

func (p *Publisher) outgoingAnnounce(handle string, objectIRI *url.URL) (*vocab.ActivityType, error) {
	records, err := p.store.GetOutgoingAnnounces(handle)
	if err != nil {
		return nil, fmt.Errorf("load outgoing announces: %w", err)
	}

	for _, r := range records {
		if r.ObjectURI == objectIRI.String() {
			return vocab.NewAnnounceActivity(vocab.NewObjectProperty(vocab.WithIRI(objectIRI)),
				vocab.WithID(vocab.MustParseURL(r.ActivityID)),
				vocab.WithActor(vocab.MustParseURL(p.converter.ActorURI(handle))),
				vocab.WithTo(vocab.MustParseURL(vocab.PublicIRI)),
				vocab.WithCC(vocab.MustParseURL(p.converter.FollowersURI(handle))),
			), nil
		}
	}

	return nil, store.ErrNotFound
}

func (p *Publisher) deliver(activity *vocab.ActivityType, cnt *content.Content) (string, error) {
	targets := p.deliveryTargets(cnt)
	if len(targets) == 0 {
		logger.Debug("No remote delivery targets for content", log.WithHandle(cnt.AuthorHandle))

		return "", nil
	}

	return p.outbox.Deliver(activity, targets, cnt.AuthorHandle)
}

// deliveryTargets returns the accepted followers of the author plus any
// mentioned remote actors, filtered to remote hosts. Local fan-out is a no-op
// since local actors read the store directly.
func (p *Publisher) deliveryTargets(cnt *content.Content) []string {
	seen := make(map[string]struct{})

	var targets []string

	add := func(uri string) {
		if uri == "" || p.cfg.IsLocalURI(uri) {
			return
		}

		if _, ok := seen[uri]; ok {
			return
		}

		seen[uri] = struct{}{}

		targets = append(targets, uri)
	}

	followers, err := p.store.GetFollowers(cnt.AuthorHandle)
	if err != nil {
		logger.Error("Error loading followers", log.WithHandle(cnt.AuthorHandle), log.WithError(err))
	}

	for _, f := range followers {
		if f.Status == store.StatusAccepted {
			add(f.ActorURI)
		}
	}

	for _, m := range text.ParseMentions(cnt.Content) {
		if m.IsRemote() {
			add(p.converter.MentionURI(m))
		}
	}

	return targets
}

// reactionTargets returns the accepted followers of the local actor plus the
// remote author of the object being reacted to.
func (p *Publisher) reactionTargets(handle string, authorIRI *url.URL) []string {
	seen := make(map[string]struct{})

	var targets []string

	followers, err := p.store.GetFollowers(handle)
	if err != nil {
		logger.Error("Error loading followers", log.WithHandle(handle), log.WithError(err))
	}

	for _, f := range followers {
		if f.Status != store.StatusAccepted || p.cfg.IsLocalURI(f.ActorURI) {
			continue
		}

		if _, ok := seen[f.ActorURI]; !ok {
			seen[f.ActorURI] = struct{}{}

			targets = append(targets, f.ActorURI)
		}
	}

	if authorIRI != nil && !p.cfg.IsLocalURI(authorIRI.String()) {
		if _, ok := seen[authorIRI.String()]; !ok {
			targets = append(targets, authorIRI.String())
		}
	}

	return targets
}
