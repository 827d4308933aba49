/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package memstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
)

func TestActorStore(t *testing.T) {
	s := New("test")

	_, err := s.GetActor("alice")
	require.ErrorIs(t, err, spi.ErrNotFound)

	require.NoError(t, s.PutActor(&spi.StoredActor{
		Handle:       "alice",
		PublicKeyID:  "https://example.com/@alice#main-key",
		PublicKeyPem: "pub",
	}))

	actor, err := s.GetActor("alice")
	require.NoError(t, err)
	require.Equal(t, "alice", actor.Handle)

	handles, err := s.GetActorHandles()
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, handles)

	require.NoError(t, s.PutGroup(&spi.StoredGroup{Handle: "golang"}))

	group, err := s.GetGroup("golang")
	require.NoError(t, err)
	require.Equal(t, "golang", group.Handle)
}

func TestActivityStore(t *testing.T) {
	s := New("test")

	followIRI := vocab.MustParseURL("https://remote.example.org/activities/follow-1")

	follow := vocab.NewFollowActivity(
		vocab.NewObjectProperty(vocab.WithIRI(vocab.MustParseURL("https://example.com/@alice"))),
		vocab.WithID(followIRI),
		vocab.WithActor(vocab.MustParseURL("https://remote.example.org/users/bob")),
	)

	require.NoError(t, s.AddActivity(spi.Inbox, follow))

	// Second add with the same ID is a no-op.
	require.NoError(t, s.AddActivity(spi.Inbox, follow))

	a, err := s.GetActivity(spi.Inbox, followIRI)
	require.NoError(t, err)
	require.True(t, a.Type().Is(vocab.TypeFollow))

	_, err = s.GetActivity(spi.Outbox, followIRI)
	require.ErrorIs(t, err, spi.ErrNotFound)

	it, err := s.QueryActivities(spi.Inbox, spi.NewCriteria(spi.WithType(vocab.TypeFollow)))
	require.NoError(t, err)

	defer it.Close()

	require.Equal(t, 1, it.TotalItems())

	next, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, followIRI.String(), next.ID().String())

	_, err = it.Next()
	require.ErrorIs(t, err, spi.ErrNotFound)
}

func TestFollowerStore(t *testing.T) {
	s := New("test")

	require.NoError(t, s.UpsertFollower("alice", &spi.Follower{
		ActorURI: "https://remote.example.org/users/bob",
		Status:   spi.StatusPending,
	}))

	// Upsert by actor URI replaces the record.
	require.NoError(t, s.UpsertFollower("alice", &spi.Follower{
		ActorURI: "https://remote.example.org/users/bob",
		Status:   spi.StatusAccepted,
	}))

	followers, err := s.GetFollowers("alice")
	require.NoError(t, err)
	require.Len(t, followers, 1)
	require.Equal(t, spi.StatusAccepted, followers[0].Status)

	require.NoError(t, s.DeleteFollower("alice", "https://remote.example.org/users/bob"))
	require.ErrorIs(t, s.DeleteFollower("alice", "https://remote.example.org/users/bob"), spi.ErrNotFound)

	require.NoError(t, s.UpsertFollowing("alice", &spi.Following{
		ActorURI: "https://remote.example.org/users/carol",
		Status:   spi.StatusPending,
	}))

	following, err := s.GetFollowing("alice")
	require.NoError(t, err)
	require.Len(t, following, 1)

	require.NoError(t, s.DeleteFollowing("alice", "https://remote.example.org/users/carol"))
	require.ErrorIs(t, s.DeleteFollowing("alice", "https://remote.example.org/users/carol"), spi.ErrNotFound)
}

func TestReactionStore(t *testing.T) {
	s := New("test")

	require.NoError(t, s.PutLike(&spi.LikeRecord{
		ID:       "https://remote.example.org/activities/like-1",
		ActorURI: "https://remote.example.org/users/bob",
		ObjectID: "https://example.com/@alice/notes/n1",
	}))

	likes, err := s.QueryLikes("https://example.com/@alice/notes/n1")
	require.NoError(t, err)
	require.Len(t, likes, 1)

	require.NoError(t, s.DeleteLike("https://remote.example.org/activities/like-1"))
	require.ErrorIs(t, s.DeleteLike("https://remote.example.org/activities/like-1"), spi.ErrNotFound)

	likes, err = s.QueryLikes("https://example.com/@alice/notes/n1")
	require.NoError(t, err)
	require.Empty(t, likes)

	require.NoError(t, s.PutAnnounce(&spi.AnnounceRecord{
		ID:       "https://remote.example.org/activities/announce-1",
		ObjectID: "https://example.com/@alice/notes/n1",
	}))

	announces, err := s.QueryAnnounces("https://example.com/@alice/notes/n1")
	require.NoError(t, err)
	require.Len(t, announces, 1)

	require.NoError(t, s.AddOutgoingLike("alice", &spi.OutgoingLike{
		ObjectURI:  "https://remote.example.org/notes/42",
		ActivityID: "https://example.com/ap/activities/like/42-1",
	}))

	// Duplicate object URI is a no-op.
	require.NoError(t, s.AddOutgoingLike("alice", &spi.OutgoingLike{
		ObjectURI: "https://remote.example.org/notes/42",
	}))

	outgoing, err := s.GetOutgoingLikes("alice")
	require.NoError(t, err)
	require.Len(t, outgoing, 1)

	require.NoError(t, s.DeleteOutgoingLike("alice", "https://remote.example.org/notes/42"))
	require.ErrorIs(t, s.DeleteOutgoingLike("alice", "https://remote.example.org/notes/42"), spi.ErrNotFound)
}

func TestNotificationStore(t *testing.T) {
	s := New("test")

	for i := 0; i < spi.MaxNotifications+10; i++ {
		require.NoError(t, s.AddNotification("alice", &spi.Notification{
			ID:   vocab.MustParseURL("https://example.com/notifications/1").String(),
			Type: spi.NotificationLike,
			At:   time.Now(),
		}))
	}

	notifications, err := s.GetNotifications("alice")
	require.NoError(t, err)
	require.Len(t, notifications, spi.MaxNotifications)
}

func TestRemoteContentStore(t *testing.T) {
	s := New("test")

	require.NoError(t, s.PutRemoteContent("alice", &spi.RemoteContent{
		ID:       "rc-1",
		ObjectID: "https://remote.example.org/notes/42",
	}))

	rc, err := s.GetRemoteContentByObjectID("alice", "https://remote.example.org/notes/42")
	require.NoError(t, err)
	require.Equal(t, "rc-1", rc.ID)

	// Put with the same ID replaces the record.
	require.NoError(t, s.PutRemoteContent("alice", &spi.RemoteContent{
		ID:       "rc-1",
		ObjectID: "https://remote.example.org/notes/42",
		Deleted:  true,
	}))

	all, err := s.GetRemoteContent("alice")
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].Deleted)

	_, err = s.GetRemoteContentByObjectID("alice", "https://remote.example.org/notes/unknown")
	require.ErrorIs(t, err, spi.ErrNotFound)
}

func TestDeliveryStore(t *testing.T) {
	s := New("test")

	require.NoError(t, s.PutDeliveryTask(&spi.DeliveryTask{
		ID:     "task-1",
		Status: spi.TaskPending,
	}))

	task, err := s.GetDeliveryTask("task-1")
	require.NoError(t, err)
	require.Equal(t, spi.TaskPending, task.Status)

	tasks, err := s.QueryDeliveryTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	require.NoError(t, s.DeleteDeliveryTask("task-1"))
	require.ErrorIs(t, s.DeleteDeliveryTask("task-1"), spi.ErrNotFound)
}

func TestKeyStore(t *testing.T) {
	s := New("test")

	require.NoError(t, s.PutCachedKey(&spi.CachedKey{
		KeyID:        "https://remote.example.org/users/bob#main-key",
		PublicKeyPem: "pem",
		CachedAt:     time.Now(),
		TTL:          time.Hour,
	}))

	key, err := s.GetCachedKey("https://remote.example.org/users/bob#main-key")
	require.NoError(t, err)
	require.False(t, key.Expired())

	ids, err := s.GetCachedKeyIDs()
	require.NoError(t, err)
	require.Len(t, ids, 1)

	require.NoError(t, s.DeleteCachedKey("https://remote.example.org/users/bob#main-key"))

	_, err = s.GetCachedKey("https://remote.example.org/users/bob#main-key")
	require.ErrorIs(t, err, spi.ErrNotFound)
}
