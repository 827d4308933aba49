/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package activityhandler

import (
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedipress/fedipress/pkg/activitypub/content"
	"github.com/fedipress/fedipress/pkg/activitypub/store/memstore"
	store "github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
	"github.com/fedipress/fedipress/pkg/config"
	fperrors "github.com/fedipress/fedipress/pkg/errors"
	"github.com/fedipress/fedipress/pkg/lifecycle"
)

const (
	localActor  = "https://example.com/@alice"
	remoteActor = "https://remote.example/users/bob"
)

type mockOutbox struct {
	mutex      sync.Mutex
	activities []*vocab.ActivityType
	recipients [][]string
}

func (m *mockOutbox) Start()                 {}
func (m *mockOutbox) Stop()                  {}
func (m *mockOutbox) State() lifecycle.State { return lifecycle.StateStarted }

func (m *mockOutbox) Deliver(activity *vocab.ActivityType, recipients []string, _ string) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.activities = append(m.activities, activity)
	m.recipients = append(m.recipients, recipients)

	return "task1", nil
}

func (m *mockOutbox) delivered() []*vocab.ActivityType {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]*vocab.ActivityType(nil), m.activities...)
}

type mockResolver struct {
	err error
}

func (m *mockResolver) GetActor(actorIRI *url.URL) (*vocab.ActorType, error) {
	if m.err != nil {
		return nil, m.err
	}

	return vocab.NewPerson(actorIRI,
		vocab.WithPreferredUsername("bob"),
		vocab.WithInbox(vocab.MustParseURL(actorIRI.String()+"/inbox")),
	), nil
}

func newTestHandler(t *testing.T, autoApprove bool) (*Handler, *memstore.Store, *mockOutbox) {
	t.Helper()

	cfg, err := config.New("https://example.com")
	require.NoError(t, err)

	cfg.AutoApproveFollows = autoApprove

	s := memstore.New("test")
	outbox := &mockOutbox{}

	return New(cfg, s, outbox, content.NewConverter(cfg), &mockResolver{}), s, outbox
}

func newFollow(id string) *vocab.ActivityType {
	return vocab.NewFollowActivity(
		vocab.NewObjectProperty(vocab.WithIRI(vocab.MustParseURL(localActor))),
		vocab.WithID(vocab.MustParseURL(id)),
		vocab.WithActor(vocab.MustParseURL(remoteActor)),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)
}

func TestHandler_Follow(t *testing.T) {
	h, s, outbox := newTestHandler(t, false)

	require.NoError(t, h.HandleActivity("alice", newFollow("https://remote.example/activities/follow-1")))

	followers, err := s.GetFollowers("alice")
	require.NoError(t, err)
	require.Len(t, followers, 1)
	require.Equal(t, remoteActor, followers[0].ActorURI)
	require.Equal(t, store.StatusPending, followers[0].Status)
	require.Equal(t, "bob", followers[0].Handle)
	require.Equal(t, remoteActor+"/inbox", followers[0].InboxURI)

	notifications, err := s.GetNotifications("alice")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, store.NotificationFollow, notifications[0].Type)

	// No Accept is sent without auto-approve.
	require.Empty(t, outbox.delivered())
}

func TestHandler_FollowAfterReject(t *testing.T) {
	h, s, outbox := newTestHandler(t, true)

	require.NoError(t, s.UpsertFollower("alice", &store.Follower{
		ActorURI:   remoteActor,
		ActivityID: "https://remote.example/activities/follow-1",
		FollowedAt: time.Now(),
		Status:     store.StatusRejected,
	}))

	require.NoError(t, h.HandleActivity("alice", newFollow("https://remote.example/activities/follow-2")))

	// The rejection stands: the row is untouched, no notification is raised
	// and no Accept is sent even with auto-approve on.
	followers, err := s.GetFollowers("alice")
	require.NoError(t, err)
	require.Len(t, followers, 1)
	require.Equal(t, store.StatusRejected, followers[0].Status)
	require.Equal(t, "https://remote.example/activities/follow-1", followers[0].ActivityID)

	notifications, err := s.GetNotifications("alice")
	require.NoError(t, err)
	require.Empty(t, notifications)

	require.Empty(t, outbox.delivered())
}

func TestHandler_FollowAutoApprove(t *testing.T) {
	h, s, outbox := newTestHandler(t, true)

	require.NoError(t, h.HandleActivity("alice", newFollow("https://remote.example/activities/follow-1")))

	followers, err := s.GetFollowers("alice")
	require.NoError(t, err)
	require.Len(t, followers, 1)
	require.Equal(t, store.StatusAccepted, followers[0].Status)

	delivered := outbox.delivered()
	require.Len(t, delivered, 1)
	require.True(t, delivered[0].Type().Is(vocab.TypeAccept))
	require.Equal(t, [][]string{{remoteActor}}, outbox.recipients)

	// The Accept embeds the original Follow.
	follow := delivered[0].Object().Activity()
	require.NotNil(t, follow)
	require.True(t, follow.Type().Is(vocab.TypeFollow))
}

func TestHandler_AcceptAndReject(t *testing.T) {
	h, s, _ := newTestHandler(t, false)

	require.NoError(t, s.UpsertFollowing("alice", &store.Following{
		ActorURI:   remoteActor,
		FollowedAt: time.Now(),
		Status:     store.StatusPending,
	}))

	follow := vocab.NewFollowActivity(
		vocab.NewObjectProperty(vocab.WithIRI(vocab.MustParseURL(remoteActor))),
		vocab.WithID(vocab.MustParseURL("https://example.com/ap/activities/follow/1")),
		vocab.WithActor(vocab.MustParseURL(localActor)),
	)

	accept := vocab.NewAcceptActivity(vocab.NewObjectProperty(vocab.WithActivity(follow)),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/accept-1")),
		vocab.WithActor(vocab.MustParseURL(remoteActor)),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)

	require.NoError(t, h.HandleActivity("alice", accept))

	following, err := s.GetFollowing("alice")
	require.NoError(t, err)
	require.Len(t, following, 1)
	require.Equal(t, store.StatusAccepted, following[0].Status)

	notifications, err := s.GetNotifications("alice")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, store.NotificationFollowAccepted, notifications[0].Type)

	reject := vocab.NewRejectActivity(vocab.NewObjectProperty(vocab.WithActivity(follow)),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/reject-1")),
		vocab.WithActor(vocab.MustParseURL(remoteActor)),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)

	require.NoError(t, h.HandleActivity("alice", reject))

	following, err = s.GetFollowing("alice")
	require.NoError(t, err)
	require.Empty(t, following)
}

func TestHandler_AcceptWrongTarget(t *testing.T) {
	h, _, _ := newTestHandler(t, false)

	// The embedded Follow targets a different actor than the Accept's actor.
	follow := vocab.NewFollowActivity(
		vocab.NewObjectProperty(vocab.WithIRI(vocab.MustParseURL("https://other.example/users/carol"))),
		vocab.WithID(vocab.MustParseURL("https://example.com/ap/activities/follow/1")),
		vocab.WithActor(vocab.MustParseURL(localActor)),
	)

	accept := vocab.NewAcceptActivity(vocab.NewObjectProperty(vocab.WithActivity(follow)),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/accept-1")),
		vocab.WithActor(vocab.MustParseURL(remoteActor)),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)

	err := h.HandleActivity("alice", accept)
	require.Error(t, err)
	require.True(t, fperrors.IsKind(err, fperrors.KindBadRequest))
}

func TestHandler_LikeAndUndo(t *testing.T) {
	h, s, _ := newTestHandler(t, false)

	like := vocab.NewLikeActivity(
		vocab.NewObjectProperty(vocab.WithIRI(vocab.MustParseURL("https://example.com/ap/content/blog/post-1"))),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/like-1")),
		vocab.WithActor(vocab.MustParseURL(remoteActor)),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)

	require.NoError(t, h.HandleActivity("alice", like))

	likes, err := s.QueryLikes("https://example.com/ap/content/blog/post-1")
	require.NoError(t, err)
	require.Len(t, likes, 1)
	require.Equal(t, remoteActor, likes[0].ActorURI)

	notifications, err := s.GetNotifications("alice")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, store.NotificationLike, notifications[0].Type)

	undo := vocab.NewUndoActivity(vocab.NewObjectProperty(vocab.WithActivity(like)),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/undo-1")),
		vocab.WithActor(vocab.MustParseURL(remoteActor)),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)

	require.NoError(t, h.HandleActivity("alice", undo))

	likes, err = s.QueryLikes("https://example.com/ap/content/blog/post-1")
	require.NoError(t, err)
	require.Empty(t, likes)

	// Undo is idempotent.
	require.NoError(t, h.HandleActivity("alice", undo))
}

func TestHandler_UndoWrongActor(t *testing.T) {
	h, _, _ := newTestHandler(t, false)

	like := vocab.NewLikeActivity(
		vocab.NewObjectProperty(vocab.WithIRI(vocab.MustParseURL("https://example.com/ap/content/blog/post-1"))),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/like-1")),
		vocab.WithActor(vocab.MustParseURL(remoteActor)),
	)

	undo := vocab.NewUndoActivity(vocab.NewObjectProperty(vocab.WithActivity(like)),
		vocab.WithID(vocab.MustParseURL("https://other.example/activities/undo-1")),
		vocab.WithActor(vocab.MustParseURL("https://other.example/users/mallory")),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)

	err := h.HandleActivity("alice", undo)
	require.Error(t, err)
	require.True(t, fperrors.IsKind(err, fperrors.KindBadRequest))
}

func TestHandler_UndoFollow(t *testing.T) {
	h, s, _ := newTestHandler(t, true)

	follow := newFollow("https://remote.example/activities/follow-1")

	require.NoError(t, h.HandleActivity("alice", follow))

	followers, err := s.GetFollowers("alice")
	require.NoError(t, err)
	require.Len(t, followers, 1)

	undo := vocab.NewUndoActivity(vocab.NewObjectProperty(vocab.WithActivity(follow)),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/undo-1")),
		vocab.WithActor(vocab.MustParseURL(remoteActor)),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)

	require.NoError(t, h.HandleActivity("alice", undo))

	followers, err = s.GetFollowers("alice")
	require.NoError(t, err)
	require.Empty(t, followers)
}

func TestHandler_CreateUpdateDelete(t *testing.T) {
	h, s, _ := newTestHandler(t, false)

	note := vocab.NewObject(
		vocab.WithID(vocab.MustParseURL("https://remote.example/notes/1")),
		vocab.WithType(vocab.TypeNote),
		vocab.WithContent("<p>Hello @alice, how are you?</p>"),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)

	create := vocab.NewCreateActivity(vocab.NewObjectProperty(vocab.WithObject(note)),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/create-1")),
		vocab.WithActor(vocab.MustParseURL(remoteActor)),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)

	require.NoError(t, h.HandleActivity("alice", create))

	record, err := s.GetRemoteContentByObjectID("alice", "https://remote.example/notes/1")
	require.NoError(t, err)
	require.Equal(t, "Note", record.ObjectType)
	require.Equal(t, remoteActor, record.ActorURI)
	require.False(t, record.Deleted)

	// The mention of @alice produces a notification with an excerpt.
	notifications, err := s.GetNotifications("alice")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, store.NotificationMention, notifications[0].Type)
	require.Equal(t, "Hello @alice, how are you?", notifications[0].Excerpt)

	updated := vocab.NewObject(
		vocab.WithID(vocab.MustParseURL("https://remote.example/notes/1")),
		vocab.WithType(vocab.TypeNote),
		vocab.WithContent("<p>Edited</p>"),
	)

	update := vocab.NewUpdateActivity(vocab.NewObjectProperty(vocab.WithObject(updated)),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/update-1")),
		vocab.WithActor(vocab.MustParseURL(remoteActor)),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)

	require.NoError(t, h.HandleActivity("alice", update))

	record, err = s.GetRemoteContentByObjectID("alice", "https://remote.example/notes/1")
	require.NoError(t, err)
	require.NotNil(t, record.UpdatedAt)
	require.Equal(t, "https://remote.example/activities/update-1", record.UpdateActivityID)

	del := vocab.NewDeleteActivity(
		vocab.NewObjectProperty(vocab.WithIRI(vocab.MustParseURL("https://remote.example/notes/1"))),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/delete-1")),
		vocab.WithActor(vocab.MustParseURL(remoteActor)),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)

	require.NoError(t, h.HandleActivity("alice", del))

	record, err = s.GetRemoteContentByObjectID("alice", "https://remote.example/notes/1")
	require.NoError(t, err)
	require.True(t, record.Deleted)
	require.NotNil(t, record.DeletedAt)

	tombstone := &vocab.TombstoneType{}
	require.NoError(t, vocab.UnmarshalFromDoc(record.Object, tombstone))
	require.True(t, tombstone.FormerType().Is(vocab.TypeNote))
}

func TestHandler_UpdateUnknownObjectIsNoOp(t *testing.T) {
	h, _, _ := newTestHandler(t, false)

	obj := vocab.NewObject(
		vocab.WithID(vocab.MustParseURL("https://remote.example/notes/unknown")),
		vocab.WithType(vocab.TypeNote),
	)

	update := vocab.NewUpdateActivity(vocab.NewObjectProperty(vocab.WithObject(obj)),
		vocab.WithID(vocab.MustParseURL("https://remote.example/activities/update-1")),
		vocab.WithActor(vocab.MustParseURL(remoteActor)),
		vocab.WithTo(vocab.MustParseURL(localActor)),
	)

	require.NoError(t, h.HandleActivity("alice", update))
}

func TestHandler_UnsupportedTypeIgnored(t *testing.T) {
	h, _, _ := newTestHandler(t, false)

	activity := &vocab.ActivityType{}
	require.NoError(t, activity.UnmarshalJSON([]byte(`{
		"id": "https://remote.example/activities/block-1",
		"type": "Block",
		"actor": "https://remote.example/users/bob",
		"object": "https://example.com/@alice"
	}`)))

	require.NoError(t, h.HandleActivity("alice", activity))
}

func TestExcerpt(t *testing.T) {
	require.Equal(t, "Hello", excerpt("<p>Hello</p>"))

	long := make([]byte, 0, 300)
	for i := 0; i < 300; i++ {
		long = append(long, 'a')
	}

	require.Len(t, excerpt(string(long)), excerptLength)
}
