/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package memstore implements an in-memory ActivityPub store, suitable for
// tests and single-process deployments that don't require durability.
package memstore

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/fedipress/fedipress/internal/pkg/log"
	"github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
)

var logger = log.New("activitypub_memstore")

// Store implements an in-memory ActivityPub store.
type Store struct {
	serviceName string

	mutex             sync.RWMutex
	actors            map[string]*spi.StoredActor
	groups            map[string]*spi.StoredGroup
	activityStores    map[spi.ActivityStoreType]*activityStore
	followers         map[string][]*spi.Follower
	following         map[string][]*spi.Following
	likes             map[string]*spi.LikeRecord
	announces         map[string]*spi.AnnounceRecord
	outgoingLikes     map[string][]*spi.OutgoingLike
	outgoingAnnounces map[string][]*spi.OutgoingAnnounce
	notifications     map[string][]*spi.Notification
	remoteContent     map[string][]*spi.RemoteContent
	deliveryTasks     map[string]*spi.DeliveryTask
	cachedKeys        map[string]*spi.CachedKey
}

// New returns a new in-memory ActivityPub store.
func New(serviceName string) *Store {
	return &Store{
		serviceName: serviceName,
		actors:      make(map[string]*spi.StoredActor),
		groups:      make(map[string]*spi.StoredGroup),
		activityStores: map[spi.ActivityStoreType]*activityStore{
			spi.Inbox:  newActivityStore(),
			spi.Outbox: newActivityStore(),
		},
		followers:         make(map[string][]*spi.Follower),
		following:         make(map[string][]*spi.Following),
		likes:             make(map[string]*spi.LikeRecord),
		announces:         make(map[string]*spi.AnnounceRecord),
		outgoingLikes:     make(map[string][]*spi.OutgoingLike),
		outgoingAnnounces: make(map[string][]*spi.OutgoingAnnounce),
		notifications:     make(map[string][]*spi.Notification),
		remoteContent:     make(map[string][]*spi.RemoteContent),
		deliveryTasks:     make(map[string]*spi.DeliveryTask),
		cachedKeys:        make(map[string]*spi.CachedKey),
	}
}

// PutActor stores the given local actor.
func (s *Store) PutActor(actor *spi.StoredActor) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	logger.Debug("Storing actor", log.WithServiceName(s.serviceName), log.WithHandle(actor.Handle))

	s.actors[actor.Handle] = actor

	return nil
}

// GetActor returns the local actor for the given handle.
func (s *Store) GetActor(handle string) (*spi.StoredActor, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	a, ok := s.actors[handle]
	if !ok {
		return nil, spi.ErrNotFound
	}

	return a, nil
}

// GetActorHandles returns the handles of all local actors.
func (s *Store) GetActorHandles() ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	handles := make([]string, 0, len(s.actors))

	for handle := range s.actors {
		handles = append(handles, handle)
	}

	return handles, nil
}

// PutGroup stores the given local group.
func (s *Store) PutGroup(group *spi.StoredGroup) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.groups[group.Handle] = group

	return nil
}

// GetGroup returns the local group for the given handle.
func (s *Store) GetGroup(handle string) (*spi.StoredGroup, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	g, ok := s.groups[handle]
	if !ok {
		return nil, spi.ErrNotFound
	}

	return g, nil
}

// AddActivity adds the given activity to the specified activity store.
func (s *Store) AddActivity(storeType spi.ActivityStoreType, activity *vocab.ActivityType) error {
	logger.Debug("Storing activity", log.WithServiceName(s.serviceName),
		log.WithActivityType(activity.Type().String()), log.WithActivityID(activity.ID()))

	return s.activityStores[storeType].add(activity)
}

// GetActivity returns the activity for the given IRI from the given activity store.
func (s *Store) GetActivity(storeType spi.ActivityStoreType, activityIRI *url.URL) (*vocab.ActivityType, error) {
	return s.activityStores[storeType].get(activityIRI.String())
}

// QueryActivities queries the given activity store using the provided criteria.
func (s *Store) QueryActivities(storeType spi.ActivityStoreType, query *spi.Criteria) (spi.ActivityIterator, error) {
	return s.activityStores[storeType].query(query), nil
}

// UpsertFollower adds or replaces the follower of the given local actor.
func (s *Store) UpsertFollower(handle string, follower *spi.Follower) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.followers[handle] = upsertFollower(s.followers[handle], follower)

	return nil
}

// DeleteFollower removes the follower with the given actor URI.
func (s *Store) DeleteFollower(handle, actorURI string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	followers := s.followers[handle]

	for i, f := range followers {
		if f.ActorURI == actorURI {
			s.followers[handle] = append(followers[:i], followers[i+1:]...)

			return nil
		}
	}

	return spi.ErrNotFound
}

// GetFollowers returns the followers of the given local actor.
func (s *Store) GetFollowers(handle string) ([]*spi.Follower, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return append([]*spi.Follower(nil), s.followers[handle]...), nil
}

// UpsertFollowing adds or replaces a following record of the given local actor.
func (s *Store) UpsertFollowing(handle string, following *spi.Following) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.following[handle] = upsertFollowing(s.following[handle], following)

	return nil
}

// DeleteFollowing removes the following record with the given actor URI.
func (s *Store) DeleteFollowing(handle, actorURI string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	following := s.following[handle]

	for i, f := range following {
		if f.ActorURI == actorURI {
			s.following[handle] = append(following[:i], following[i+1:]...)

			return nil
		}
	}

	return spi.ErrNotFound
}

// GetFollowing returns the actors that the given local actor follows.
func (s *Store) GetFollowing(handle string) ([]*spi.Following, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return append([]*spi.Following(nil), s.following[handle]...), nil
}

// PutLike stores the given like record.
func (s *Store) PutLike(like *spi.LikeRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.likes[like.ID] = like

	return nil
}

// DeleteLike removes the like record with the given activity ID.
func (s *Store) DeleteLike(activityID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.likes[activityID]; !ok {
		return spi.ErrNotFound
	}

	delete(s.likes, activityID)

	return nil
}

// QueryLikes returns the like records for the given object ID.
func (s *Store) QueryLikes(objectID string) ([]*spi.LikeRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var results []*spi.LikeRecord

	for _, like := range s.likes {
		if like.ObjectID == objectID {
			results = append(results, like)
		}
	}

	return results, nil
}

// PutAnnounce stores the given announce record.
func (s *Store) PutAnnounce(announce *spi.AnnounceRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.announces[announce.ID] = announce

	return nil
}

// DeleteAnnounce removes the announce record with the given activity ID.
func (s *Store) DeleteAnnounce(activityID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.announces[activityID]; !ok {
		return spi.ErrNotFound
	}

	delete(s.announces, activityID)

	return nil
}

// QueryAnnounces returns the announce records for the given object ID.
func (s *Store) QueryAnnounces(objectID string) ([]*spi.AnnounceRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var results []*spi.AnnounceRecord

	for _, announce := range s.announces {
		if announce.ObjectID == objectID {
			results = append(results, announce)
		}
	}

	return results, nil
}

// AddOutgoingLike records a Like sent by the given local actor.
func (s *Store) AddOutgoingLike(handle string, like *spi.OutgoingLike) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, l := range s.outgoingLikes[handle] {
		if l.ObjectURI == like.ObjectURI {
			return nil
		}
	}

	s.outgoingLikes[handle] = append(s.outgoingLikes[handle], like)

	return nil
}

// DeleteOutgoingLike removes the outgoing like for the given object URI.
func (s *Store) DeleteOutgoingLike(handle, objectURI string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	likes := s.outgoingLikes[handle]

	for i, l := range likes {
		if l.ObjectURI == objectURI {
			s.outgoingLikes[handle] = append(likes[:i], likes[i+1:]...)

			return nil
		}
	}

	return spi.ErrNotFound
}

// GetOutgoingLikes returns the likes sent by the given local actor.
func (s *Store) GetOutgoingLikes(handle string) ([]*spi.OutgoingLike, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return append([]*spi.OutgoingLike(nil), s.outgoingLikes[handle]...), nil
}

// AddOutgoingAnnounce records an Announce sent by the given local actor.
func (s *Store) AddOutgoingAnnounce(handle string, announce *spi.OutgoingAnnounce) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, a := range s.outgoingAnnounces[handle] {
		if a.ObjectURI == announce.ObjectURI {
			return nil
		}
	}

	s.outgoingAnnounces[handle] = append(s.outgoingAnnounces[handle], announce)

	return nil
}

// DeleteOutgoingAnnounce removes the outgoing announce for the given object URI.
func (s *Store) DeleteOutgoingAnnounce(handle, objectURI string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	announces := s.outgoingAnnounces[handle]

	for i, a := range announces {
		if a.ObjectURI == objectURI {
			s.outgoingAnnounces[handle] = append(announces[:i], announces[i+1:]...)

			return nil
		}
	}

	return spi.ErrNotFound
}

// GetOutgoingAnnounces returns the announces sent by the given local actor.
func (s *Store) GetOutgoingAnnounces(handle string) ([]*spi.OutgoingAnnounce, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return append([]*spi.OutgoingAnnounce(nil), s.outgoingAnnounces[handle]...), nil
}

// AddNotification prepends the given notification to the actor's list.
func (s *Store) AddNotification(handle string, notification *spi.Notification) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	notifications := append([]*spi.Notification{notification}, s.notifications[handle]...)

	if len(notifications) > spi.MaxNotifications {
		notifications = notifications[:spi.MaxNotifications]
	}

	s.notifications[handle] = notifications

	return nil
}

// GetNotifications returns the actor's notifications, newest first.
func (s *Store) GetNotifications(handle string) ([]*spi.Notification, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return append([]*spi.Notification(nil), s.notifications[handle]...), nil
}

// PutRemoteContent stores the given remote-content record.
func (s *Store) PutRemoteContent(handle string, content *spi.RemoteContent) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	records := s.remoteContent[handle]

	for i, r := range records {
		if r.ID == content.ID {
			records[i] = content

			return nil
		}
	}

	s.remoteContent[handle] = append(records, content)

	return nil
}

// GetRemoteContentByObjectID returns the remote-content record with the given object ID.
func (s *Store) GetRemoteContentByObjectID(handle, objectID string) (*spi.RemoteContent, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, r := range s.remoteContent[handle] {
		if r.ObjectID == objectID {
			return r, nil
		}
	}

	return nil, spi.ErrNotFound
}

// GetRemoteContent returns all remote-content records of the local actor.
func (s *Store) GetRemoteContent(handle string) ([]*spi.RemoteContent, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return append([]*spi.RemoteContent(nil), s.remoteContent[handle]...), nil
}

// PutDeliveryTask stores the given delivery task.
func (s *Store) PutDeliveryTask(task *spi.DeliveryTask) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.deliveryTasks[task.ID] = task

	return nil
}

// GetDeliveryTask returns the task with the given ID.
func (s *Store) GetDeliveryTask(taskID string) (*spi.DeliveryTask, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, ok := s.deliveryTasks[taskID]
	if !ok {
		return nil, spi.ErrNotFound
	}

	return t, nil
}

// DeleteDeliveryTask removes the task with the given ID.
func (s *Store) DeleteDeliveryTask(taskID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.deliveryTasks[taskID]; !ok {
		return spi.ErrNotFound
	}

	delete(s.deliveryTasks, taskID)

	return nil
}

// QueryDeliveryTasks returns all delivery tasks.
func (s *Store) QueryDeliveryTasks() ([]*spi.DeliveryTask, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tasks := make([]*spi.DeliveryTask, 0, len(s.deliveryTasks))

	for _, t := range s.deliveryTasks {
		tasks = append(tasks, t)
	}

	return tasks, nil
}

// PutCachedKey stores the given cached public key.
func (s *Store) PutCachedKey(key *spi.CachedKey) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cachedKeys[key.KeyID] = key

	return nil
}

// GetCachedKey returns the cached public key with the given key ID.
func (s *Store) GetCachedKey(keyID string) (*spi.CachedKey, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	k, ok := s.cachedKeys[keyID]
	if !ok {
		return nil, spi.ErrNotFound
	}

	return k, nil
}

// DeleteCachedKey removes the cached public key with the given key ID.
func (s *Store) DeleteCachedKey(keyID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.cachedKeys, keyID)

	return nil
}

// GetCachedKeyIDs returns the IDs of all cached public keys.
func (s *Store) GetCachedKeyIDs() ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids := make([]string, 0, len(s.cachedKeys))

	for id := range s.cachedKeys {
		ids = append(ids, id)
	}

	return ids, nil
}

func upsertFollower(followers []*spi.Follower, follower *spi.Follower) []*spi.Follower {
	for i, f := range followers {
		if f.ActorURI == follower.ActorURI {
			followers[i] = follower

			return followers
		}
	}

	return append(followers, follower)
}

func upsertFollowing(following []*spi.Following, record *spi.Following) []*spi.Following {
	for i, f := range following {
		if f.ActorURI == record.ActorURI {
			following[i] = record

			return following
		}
	}

	return append(following, record)
}

type activityStore struct {
	mutex        sync.RWMutex
	activities   []*vocab.ActivityType
	activityByID map[string]*vocab.ActivityType
}

func newActivityStore() *activityStore {
	return &activityStore{
		activityByID: make(map[string]*vocab.ActivityType),
	}
}

func (s *activityStore) add(activity *vocab.ActivityType) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := activity.ID().String()
	if id == "" {
		return fmt.Errorf("activity has no ID")
	}

	if _, ok := s.activityByID[id]; ok {
		return nil
	}

	s.activities = append(s.activities, activity)
	s.activityByID[id] = activity

	return nil
}

func (s *activityStore) get(activityID string) (*vocab.ActivityType, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	a, ok := s.activityByID[activityID]
	if !ok {
		return nil, spi.ErrNotFound
	}

	return a, nil
}

func (s *activityStore) query(query *spi.Criteria) spi.ActivityIterator {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var results []*vocab.ActivityType

	for _, a := range s.activities {
		if query == nil || len(query.Types) == 0 || a.Type().IsAny(query.Types...) {
			results = append(results, a)
		}
	}

	return newActivityIterator(results)
}
