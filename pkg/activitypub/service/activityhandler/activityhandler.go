/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package activityhandler applies inbound activities to the local state:
// the follower graph, the like/announce records, the remote-content mirror
// and per-actor notifications. Accept and Reject responses to Follow
// requests are enqueued on the outbox.
package activityhandler

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fedipress/fedipress/internal/pkg/log"
	"github.com/fedipress/fedipress/pkg/activitypub/content"
	service "github.com/fedipress/fedipress/pkg/activitypub/service/spi"
	store "github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/text"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
	fperrors "github.com/fedipress/fedipress/pkg/errors"
)

var logger = log.New("activitypub_handler")

const excerptLength = 200

type actorResolver interface {
	GetActor(actorIRI *url.URL) (*vocab.ActorType, error)
}

type handlerStore interface {
	store.FollowerStore
	store.ReactionStore
	store.NotificationStore
	store.RemoteContentStore
}

// Handler dispatches inbound activities by type.
type Handler struct {
	cfg       *config.Config
	store     handlerStore
	outbox    service.Outbox
	converter *content.Converter
	resolver  actorResolver
}

// New returns a new activity handler.
func New(cfg *config.Config, s handlerStore, outbox service.Outbox,
	converter *content.Converter, resolver actorResolver) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     s,
		outbox:    outbox,
		converter: converter,
		resolver:  resolver,
	}
}

// HandleActivity routes the given activity, addressed to the local actor with
// the given handle, to the handler for its type. Unrecognized types are
// logged and ignored so that new federation features don't break ingestion.
func (h *Handler) HandleActivity(handle string, activity *vocab.ActivityType) error {
	typeProp := activity.Type()

	switch {
	case typeProp.Is(vocab.TypeFollow):
		return h.handleFollow(handle, activity)
	case typeProp.Is(vocab.TypeAccept):
		return h.handleAccept(handle, activity)
	case typeProp.Is(vocab.TypeReject):
		return h.handleReject(handle, activity)
	case typeProp.Is(vocab.TypeUndo):
		return h.handleUndo(handle, activity)
	case typeProp.Is(vocab.TypeLike):
		return h.handleLike(handle, activity)
	case typeProp.Is(vocab.TypeAnnounce):
		return h.handleAnnounce(handle, activity)
	case typeProp.Is(vocab.TypeCreate):
		return h.handleCreate(handle, activity)
	case typeProp.Is(vocab.TypeUpdate):
		return h.handleUpdate(handle, activity)
	case typeProp.Is(vocab.TypeDelete):
		return h.handleDelete(handle, activity)
	default:
		logger.Info("Ignoring activity of unsupported type",
			log.WithActivityID(activity.ID()), log.WithActivityType(typeProp.String()))

		return nil
	}
}

func (h *Handler) handleFollow(handle string, activity *vocab.ActivityType) error {
	actorIRI := activity.Actor()

	// A rejected follower stays rejected until the block is cleared; repeat
	// follows from the same actor are dropped without a notification.
	if existing := h.getFollower(handle, actorIRI.String()); existing != nil &&
		existing.Status == store.StatusRejected {
		logger.Info("Ignoring follow from rejected actor", log.WithHandle(handle),
			log.WithActorIRI(actorIRI))

		return nil
	}

	follower := &store.Follower{
		ActorURI:   actorIRI.String(),
		Domain:     actorIRI.Host,
		ActivityID: activity.ID().String(),
		FollowedAt: time.Now(),
		Status:     store.StatusPending,
	}

	// Profile details are best-effort; the follow stands even if the remote
	// actor document can't be fetched right now.
	if actor, err := h.resolver.GetActor(actorIRI); err == nil {
		follower.Handle = actor.PreferredUsername()
		follower.DisplayName = actor.Name()

		if icon := actor.Icon(); icon != nil {
			follower.AvatarURL = icon.URL
		}

		if inbox := actor.Inbox(); inbox != nil {
			follower.InboxURI = inbox.String()
		}
	} else {
		logger.Warn("Error resolving follower profile", log.WithActorIRI(actorIRI), log.WithError(err))
	}

	if h.cfg.AutoApproveFollows {
		follower.Status = store.StatusAccepted
	}

	if err := h.store.UpsertFollower(handle, follower); err != nil {
		logger.Error("Error storing follower", log.WithHandle(handle),
			log.WithActorIRI(actorIRI), log.WithError(err))

		return nil
	}

	h.notify(handle, &store.Notification{
		Type:        store.NotificationFollow,
		ActorURI:    follower.ActorURI,
		ActorHandle: follower.Handle,
	})

	if h.cfg.AutoApproveFollows {
		accept := h.converter.NewAccept(vocab.MustParseURL(h.cfg.ActorURI(handle)), activity)

		if _, err := h.outbox.Deliver(accept, []string{follower.ActorURI}, handle); err != nil {
			logger.Error("Error delivering Accept", log.WithHandle(handle),
				log.WithActorIRI(actorIRI), log.WithError(err))
		}
	}

	return nil
}

func (h *Handler) handleAccept(handle string, activity *vocab.ActivityType) error {
	if err := h.validateFollowResponse(handle, activity); err != nil {
		return err
	}

	actorURI := activity.Actor().String()

	following := h.getFollowing(handle, actorURI)
	if following == nil {
		following = &store.Following{
			ActorURI:   actorURI,
			Domain:     activity.Actor().Host,
			FollowedAt: time.Now(),
		}
	}

	following.Status = store.StatusAccepted

	if err := h.store.UpsertFollowing(handle, following); err != nil {
		logger.Error("Error storing following record", log.WithHandle(handle),
			log.WithActorIRI(activity.Actor()), log.WithError(err))

		return nil
	}

	h.notify(handle, &store.Notification{
		Type:        store.NotificationFollowAccepted,
		ActorURI:    actorURI,
		ActorHandle: following.Handle,
	})

	return nil
}

func (h *Handler) handleReject(handle string, activity *vocab.ActivityType) error {
	if err := h.validateFollowResponse(handle, activity); err != nil {
		return err
	}

	actorURI := activity.Actor().String()

	if err := h.store.DeleteFollowing(handle, actorURI); err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Error("Error deleting following record", log.WithHandle(handle),
			log.WithActorIRI(activity.Actor()), log.WithError(err))

		return nil
	}

	h.notify(handle, &store.Notification{
		Type:     store.NotificationFollowRejected,
		ActorURI: actorURI,
	})

	return nil
}

// validateFollowResponse ensures that the object of an Accept/Reject is a
// Follow from the local actor to the responding remote actor.
func (h *Handler) validateFollowResponse(handle string, activity *vocab.ActivityType) error {
	follow := activity.Object().Activity()
	if follow == nil {
		// Some implementations reference the Follow by IRI only. There's
		// nothing to cross-check in that case.
		if activity.Object().IRI() != nil {
			return nil
		}

		return fperrors.NewBadRequestf("no object specified on '%s' activity [%s]",
			activity.Type(), activity.ID())
	}

	if !follow.Type().Is(vocab.TypeFollow) {
		return fperrors.NewBadRequestf("object of '%s' activity [%s] is not a Follow",
			activity.Type(), activity.ID())
	}

	if target := follow.Object().IRI(); target != nil && target.String() != activity.Actor().String() {
		return fperrors.NewBadRequestf("'%s' activity [%s] does not respond to a Follow of its own actor",
			activity.Type(), activity.ID())
	}

	if followActor := follow.Actor(); followActor != nil &&
		h.cfg.ExtractHandleFromURI(followActor.String()) != handle {
		return fperrors.NewBadRequestf("'%s' activity [%s] responds to a Follow that was not sent by [%s]",
			activity.Type(), activity.ID(), handle)
	}

	return nil
}

func (h *Handler) handleUndo(handle string, activity *vocab.ActivityType) error {
	original := activity.Object().Activity()
	if original == nil {
		logger.Info("Ignoring Undo without an embedded activity", log.WithActivityID(activity.ID()))

		return nil
	}

	// Only the actor of the original activity may undo it.
	if original.Actor() != nil && original.Actor().String() != activity.Actor().String() {
		return fperrors.NewBadRequestf("not handling Undo activity [%s] since the original activity "+
			"was not posted by actor [%s]", activity.ID(), activity.Actor())
	}

	var err error

	switch {
	case original.Type().Is(vocab.TypeFollow):
		err = h.store.DeleteFollower(handle, activity.Actor().String())
	case original.Type().Is(vocab.TypeLike):
		err = h.store.DeleteLike(original.ID().String())
	case original.Type().Is(vocab.TypeAnnounce):
		err = h.store.DeleteAnnounce(original.ID().String())
	default:
		logger.Info("Ignoring Undo of unsupported activity type",
			log.WithActivityID(activity.ID()), log.WithActivityType(original.Type().String()))

		return nil
	}

	// Undo is idempotent.
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Error("Error undoing activity", log.WithActivityID(activity.ID()), log.WithError(err))
	}

	return nil
}

func (h *Handler) handleLike(handle string, activity *vocab.ActivityType) error {
	objectIRI := activity.Object().IRI()
	if objectIRI == nil {
		return fperrors.NewBadRequestf("object of Like activity [%s] is not an IRI", activity.ID())
	}

	like := &store.LikeRecord{
		ID:          activity.ID().String(),
		ActorURI:    activity.Actor().String(),
		ActorHandle: h.remoteHandle(activity.Actor()),
		ObjectID:    objectIRI.String(),
		At:          time.Now(),
	}

	if err := h.store.PutLike(like); err != nil {
		logger.Error("Error storing like", log.WithActivityID(activity.ID()), log.WithError(err))

		return nil
	}

	h.notify(handle, &store.Notification{
		Type:        store.NotificationLike,
		ActorURI:    like.ActorURI,
		ActorHandle: like.ActorHandle,
		ObjectID:    like.ObjectID,
	})

	return nil
}

func (h *Handler) handleAnnounce(handle string, activity *vocab.ActivityType) error {
	objectIRI := activity.Object().IRI()
	if objectIRI == nil {
		return fperrors.NewBadRequestf("object of Announce activity [%s] is not an IRI", activity.ID())
	}

	announce := &store.AnnounceRecord{
		ID:          activity.ID().String(),
		ActorURI:    activity.Actor().String(),
		ActorHandle: h.remoteHandle(activity.Actor()),
		ObjectID:    objectIRI.String(),
		At:          time.Now(),
	}

	if err := h.store.PutAnnounce(announce); err != nil {
		logger.Error("Error storing announce", log.WithActivityID(activity.ID()), log.WithError(err))

		return nil
	}

	h.notify(handle, &store.Notification{
		Type:        store.NotificationAnnounce,
		ActorURI:    announce.ActorURI,
		ActorHandle: announce.ActorHandle,
		ObjectID:    announce.ObjectID,
	})

	return nil
}

func (h *Handler) handleCreate(handle string, activity *vocab.ActivityType) error {
	obj := activity.Object().Object()
	if obj == nil {
		logger.Info("Ignoring Create without an embedded object", log.WithActivityID(activity.ID()))

		return nil
	}

	objDoc, err := vocab.MarshalToDoc(obj)
	if err != nil {
		return fperrors.NewBadRequest(fmt.Errorf("marshal object of Create activity [%s]: %w", activity.ID(), err))
	}

	record := &store.RemoteContent{
		ID:          uuid.NewString(),
		ActivityID:  activity.ID().String(),
		ObjectID:    obj.ID().String(),
		ObjectType:  obj.Type().String(),
		ActorURI:    activity.Actor().String(),
		ActorHandle: h.remoteHandle(activity.Actor()),
		Object:      objDoc,
		ReceivedAt:  time.Now(),
		Published:   obj.Published(),
	}

	if err := h.store.PutRemoteContent(handle, record); err != nil {
		logger.Error("Error storing remote content", log.WithActivityID(activity.ID()), log.WithError(err))

		return nil
	}

	if h.mentionsActor(handle, obj) {
		h.notify(handle, &store.Notification{
			Type:        store.NotificationMention,
			ActorURI:    record.ActorURI,
			ActorHandle: record.ActorHandle,
			ObjectID:    record.ObjectID,
			Excerpt:     excerpt(obj.Content()),
		})
	}

	if inReplyTo := obj.InReplyTo(); inReplyTo != nil && inReplyTo.URL() != nil &&
		h.cfg.IsLocalURI(inReplyTo.String()) {
		h.notify(handle, &store.Notification{
			Type:        store.NotificationReply,
			ActorURI:    record.ActorURI,
			ActorHandle: record.ActorHandle,
			ObjectID:    record.ObjectID,
			Excerpt:     excerpt(obj.Content()),
		})
	}

	return nil
}

func (h *Handler) handleUpdate(handle string, activity *vocab.ActivityType) error {
	obj := activity.Object().Object()
	if obj == nil {
		logger.Info("Ignoring Update without an embedded object", log.WithActivityID(activity.ID()))

		return nil
	}

	record, err := h.store.GetRemoteContentByObjectID(handle, obj.ID().String())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// An Update for content we never mirrored is a no-op.
			return nil
		}

		logger.Error("Error loading remote content", log.WithActivityID(activity.ID()), log.WithError(err))

		return nil
	}

	objDoc, err := vocab.MarshalToDoc(obj)
	if err != nil {
		return fperrors.NewBadRequest(fmt.Errorf("marshal object of Update activity [%s]: %w", activity.ID(), err))
	}

	now := time.Now()

	record.Object = objDoc
	record.UpdatedAt = &now
	record.UpdateActivityID = activity.ID().String()

	if err := h.store.PutRemoteContent(handle, record); err != nil {
		logger.Error("Error storing remote content", log.WithActivityID(activity.ID()), log.WithError(err))
	}

	return nil
}

func (h *Handler) handleDelete(handle string, activity *vocab.ActivityType) error {
	objectIRI := activity.Object().IRI()
	if objectIRI == nil {
		if obj := activity.Object().Object(); obj != nil && obj.ID() != nil {
			objectIRI = obj.ID().URL()
		}
	}

	if objectIRI == nil {
		return fperrors.NewBadRequestf("no object ID on Delete activity [%s]", activity.ID())
	}

	record, err := h.store.GetRemoteContentByObjectID(handle, objectIRI.String())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}

		logger.Error("Error loading remote content", log.WithActivityID(activity.ID()), log.WithError(err))

		return nil
	}

	now := time.Now()

	// The record is preserved as a tombstone rather than erased, so that a
	// subsequent redelivery of the same object is recognizable.
	tombstone, err := vocab.MarshalToDoc(vocab.NewTombstone(objectIRI, vocab.Type(record.ObjectType), &now))
	if err != nil {
		return fmt.Errorf("marshal tombstone for object [%s]: %w", objectIRI, err)
	}

	record.Object = tombstone
	record.Deleted = true
	record.DeletedAt = &now

	if err := h.store.PutRemoteContent(handle, record); err != nil {
		logger.Error("Error storing tombstone", log.WithActivityID(activity.ID()), log.WithError(err))
	}

	return nil
}

// mentionsActor returns true if the object carries a Mention tag pointing at
// the local actor, or mentions the handle in its text content.
func (h *Handler) mentionsActor(handle string, obj *vocab.ObjectType) bool {
	actorURIs := map[string]struct{}{
		h.cfg.ActorURI(handle):       {},
		h.converter.ActorURI(handle): {},
	}

	for _, tag := range obj.Tag() {
		link := tag.Link()
		if link == nil || !link.Type().Is(vocab.TypeMention) || link.HRef() == nil {
			continue
		}

		if _, ok := actorURIs[link.HRef().String()]; ok {
			return true
		}
	}

	for _, m := range text.ParseMentions(obj.Content()) {
		if m.Handle == handle && (!m.IsRemote() || m.Domain == h.cfg.InstanceDomain()) {
			return true
		}
	}

	return false
}

func (h *Handler) notify(handle string, notification *store.Notification) {
	notification.ID = uuid.NewString()
	notification.At = time.Now()

	if err := h.store.AddNotification(handle, notification); err != nil {
		logger.Error("Error storing notification", log.WithHandle(handle), log.WithError(err))
	}
}

func (h *Handler) getFollower(handle, actorURI string) *store.Follower {
	followers, err := h.store.GetFollowers(handle)
	if err != nil {
		logger.Warn("Error loading follower records", log.WithHandle(handle), log.WithError(err))

		return nil
	}

	for _, f := range followers {
		if f.ActorURI == actorURI {
			return f
		}
	}

	return nil
}

func (h *Handler) getFollowing(handle, actorURI string) *store.Following {
	followings, err := h.store.GetFollowing(handle)
	if err != nil {
		logger.Warn("Error loading following records", log.WithHandle(handle), log.WithError(err))

		return nil
	}

	for _, f := range followings {
		if f.ActorURI == actorURI {
			return f
		}
	}

	return nil
}

func (h *Handler) remoteHandle(actorIRI *url.URL) string {
	actor, err := h.resolver.GetActor(actorIRI)
	if err != nil {
		return ""
	}

	return actor.PreferredUsername()
}

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// excerpt returns the text content truncated for use in a notification.
func excerpt(content string) string {
	stripped := strings.TrimSpace(htmlTagRegex.ReplaceAllString(content, ""))

	runes := []rune(stripped)
	if len(runes) <= excerptLength {
		return stripped
	}

	return string(runes[:excerptLength])
}
