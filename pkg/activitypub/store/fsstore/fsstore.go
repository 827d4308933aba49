/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fsstore implements a durable ActivityPub store backed by
// file-per-record JSON documents rooted at the configured ActivityPub
// directory. Concurrent mutations of the same record are serialized by a
// mutex keyed on the record's relative path.
package fsstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fedipress/fedipress/internal/pkg/log"
	"github.com/fedipress/fedipress/pkg/activitypub/store/spi"
	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
)

var logger = log.New("activitypub_fsstore")

const (
	dirActors            = "actors"
	dirGroups            = "groups"
	dirFollowers         = "followers"
	dirFollowing         = "following"
	dirLikes             = "likes"
	dirAnnounces         = "announces"
	dirOutgoingLikes     = "outgoing-likes"
	dirOutgoingAnnounces = "outgoing-announces"
	dirNotifications     = "notifications"
	dirRemoteContent     = "remote-content"
	dirDeliveryQueue     = "delivery-queue"
	dirInbox             = "inbox"
	dirOutbox            = "outbox"
	dirCachedKeys        = "remote-actors/public-keys"

	dirPerm  = 0o755
	filePerm = 0o600
)

// Store implements a file-backed ActivityPub store.
type Store struct {
	root  string
	locks *keyedMutex
}

// New returns a new file-backed ActivityPub store rooted at the given
// directory. The directory tree is created if it does not exist.
func New(root string) (*Store, error) {
	for _, dir := range []string{
		dirActors, dirGroups, dirFollowers, dirFollowing, dirLikes, dirAnnounces,
		dirOutgoingLikes, dirOutgoingAnnounces, dirNotifications, dirRemoteContent,
		dirDeliveryQueue, dirInbox, dirOutbox, dirCachedKeys,
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), dirPerm); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &Store{
		root:  root,
		locks: newKeyedMutex(),
	}, nil
}

// PutActor stores the given local actor.
func (s *Store) PutActor(actor *spi.StoredActor) error {
	return s.writeRecord(dirActors, actor.Handle, actor)
}

// GetActor returns the local actor for the given handle.
func (s *Store) GetActor(handle string) (*spi.StoredActor, error) {
	actor := &spi.StoredActor{}

	if err := s.readRecord(dirActors, handle, actor); err != nil {
		return nil, err
	}

	return actor, nil
}

// GetActorHandles returns the handles of all local actors.
func (s *Store) GetActorHandles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, dirActors))
	if err != nil {
		return nil, fmt.Errorf("read actors directory: %w", err)
	}

	var handles []string

	for _, e := range entries {
		if name, ok := recordName(e); ok {
			handles = append(handles, name)
		}
	}

	sort.Strings(handles)

	return handles, nil
}

// PutGroup stores the given local group.
func (s *Store) PutGroup(group *spi.StoredGroup) error {
	return s.writeRecord(dirGroups, group.Handle, group)
}

// GetGroup returns the local group for the given handle.
func (s *Store) GetGroup(handle string) (*spi.StoredGroup, error) {
	group := &spi.StoredGroup{}

	if err := s.readRecord(dirGroups, handle, group); err != nil {
		return nil, err
	}

	return group, nil
}

// AddActivity adds the given activity to the specified activity store.
// Adding an activity with an ID that is already stored is a no-op.
func (s *Store) AddActivity(storeType spi.ActivityStoreType, activity *vocab.ActivityType) error {
	id := activity.ID().String()
	if id == "" {
		return fmt.Errorf("activity has no ID")
	}

	dir := activityDir(storeType)
	name := hashKey(id)

	unlock := s.locks.lock(dir + "/" + name)
	defer unlock()

	if _, err := os.Stat(s.path(dir, name)); err == nil {
		return nil
	}

	return s.writeRecordLocked(dir, name, activity)
}

// GetActivity returns the activity for the given IRI from the given activity store.
func (s *Store) GetActivity(storeType spi.ActivityStoreType, activityIRI *url.URL) (*vocab.ActivityType, error) {
	activity := &vocab.ActivityType{}

	if err := s.readRecord(activityDir(storeType), hashKey(activityIRI.String()), activity); err != nil {
		return nil, err
	}

	return activity, nil
}

// QueryActivities queries the given activity store using the provided
// criteria. Results are ordered by file modification time.
func (s *Store) QueryActivities(storeType spi.ActivityStoreType, query *spi.Criteria) (spi.ActivityIterator, error) {
	dir := activityDir(storeType)

	entries, err := os.ReadDir(filepath.Join(s.root, dir))
	if err != nil {
		return nil, fmt.Errorf("read %s directory: %w", dir, err)
	}

	sortByModTime(entries)

	var results []*vocab.ActivityType

	for _, e := range entries {
		name, ok := recordName(e)
		if !ok {
			continue
		}

		activity := &vocab.ActivityType{}

		if err := s.readRecord(dir, name, activity); err != nil {
			logger.Warn("Skipping unreadable activity record", log.WithStorePath(e.Name()), log.WithError(err))

			continue
		}

		if query == nil || len(query.Types) == 0 || activity.Type().IsAny(query.Types...) {
			results = append(results, activity)
		}
	}

	return newActivityIterator(results), nil
}

// UpsertFollower adds or replaces the follower of the given local actor.
func (s *Store) UpsertFollower(handle string, follower *spi.Follower) error {
	return updateList(s, dirFollowers, handle, func(followers []*spi.Follower) ([]*spi.Follower, error) {
		for i, f := range followers {
			if f.ActorURI == follower.ActorURI {
				followers[i] = follower

				return followers, nil
			}
		}

		return append(followers, follower), nil
	})
}

// DeleteFollower removes the follower with the given actor URI.
func (s *Store) DeleteFollower(handle, actorURI string) error {
	return updateList(s, dirFollowers, handle, func(followers []*spi.Follower) ([]*spi.Follower, error) {
		for i, f := range followers {
			if f.ActorURI == actorURI {
				return append(followers[:i], followers[i+1:]...), nil
			}
		}

		return nil, spi.ErrNotFound
	})
}

// GetFollowers returns the followers of the given local actor.
func (s *Store) GetFollowers(handle string) ([]*spi.Follower, error) {
	return readList[*spi.Follower](s, dirFollowers, handle)
}

// UpsertFollowing adds or replaces a following record of the given local actor.
func (s *Store) UpsertFollowing(handle string, following *spi.Following) error {
	return updateList(s, dirFollowing, handle, func(records []*spi.Following) ([]*spi.Following, error) {
		for i, f := range records {
			if f.ActorURI == following.ActorURI {
				records[i] = following

				return records, nil
			}
		}

		return append(records, following), nil
	})
}

// DeleteFollowing removes the following record with the given actor URI.
func (s *Store) DeleteFollowing(handle, actorURI string) error {
	return updateList(s, dirFollowing, handle, func(records []*spi.Following) ([]*spi.Following, error) {
		for i, f := range records {
			if f.ActorURI == actorURI {
				return append(records[:i], records[i+1:]...), nil
			}
		}

		return nil, spi.ErrNotFound
	})
}

// GetFollowing returns the actors that the given local actor follows.
func (s *Store) GetFollowing(handle string) ([]*spi.Following, error) {
	return readList[*spi.Following](s, dirFollowing, handle)
}

// PutLike stores the given like record.
func (s *Store) PutLike(like *spi.LikeRecord) error {
	return s.writeRecord(dirLikes, hashKey(like.ID), like)
}

// DeleteLike removes the like record with the given activity ID.
func (s *Store) DeleteLike(activityID string) error {
	return s.deleteRecord(dirLikes, hashKey(activityID))
}

// QueryLikes returns the like records for the given object ID.
func (s *Store) QueryLikes(objectID string) ([]*spi.LikeRecord, error) {
	return queryRecords(s, dirLikes, func(like *spi.LikeRecord) bool {
		return like.ObjectID == objectID
	})
}

// PutAnnounce stores the given announce record.
func (s *Store) PutAnnounce(announce *spi.AnnounceRecord) error {
	return s.writeRecord(dirAnnounces, hashKey(announce.ID), announce)
}

// DeleteAnnounce removes the announce record with the given activity ID.
func (s *Store) DeleteAnnounce(activityID string) error {
	return s.deleteRecord(dirAnnounces, hashKey(activityID))
}

// QueryAnnounces returns the announce records for the given object ID.
func (s *Store) QueryAnnounces(objectID string) ([]*spi.AnnounceRecord, error) {
	return queryRecords(s, dirAnnounces, func(announce *spi.AnnounceRecord) bool {
		return announce.ObjectID == objectID
	})
}

// AddOutgoingLike records a Like sent by the given local actor.
func (s *Store) AddOutgoingLike(handle string, like *spi.OutgoingLike) error {
	return updateList(s, dirOutgoingLikes, handle, func(likes []*spi.OutgoingLike) ([]*spi.OutgoingLike, error) {
		for _, l := range likes {
			if l.ObjectURI == like.ObjectURI {
				return likes, nil
			}
		}

		return append(likes, like), nil
	})
}

// DeleteOutgoingLike removes the outgoing like for the given object URI.
func (s *Store) DeleteOutgoingLike(handle, objectURI string) error {
	return updateList(s, dirOutgoingLikes, handle, func(likes []*spi.OutgoingLike) ([]*spi.OutgoingLike, error) {
		for i, l := range likes {
			if l.ObjectURI == objectURI {
				return append(likes[:i], likes[i+1:]...), nil
			}
		}

		return nil, spi.ErrNotFound
	})
}

// GetOutgoingLikes returns the likes sent by the given local actor.
func (s *Store) GetOutgoingLikes(handle string) ([]*spi.OutgoingLike, error) {
	return readList[*spi.OutgoingLike](s, dirOutgoingLikes, handle)
}

// AddOutgoingAnnounce records an Announce sent by the given local actor.
func (s *Store) AddOutgoingAnnounce(handle string, announce *spi.OutgoingAnnounce) error {
	return updateList(s, dirOutgoingAnnounces, handle,
		func(announces []*spi.OutgoingAnnounce) ([]*spi.OutgoingAnnounce, error) {
			for _, a := range announces {
				if a.ObjectURI == announce.ObjectURI {
					return announces, nil
				}
			}

			return append(announces, announce), nil
		})
}

// DeleteOutgoingAnnounce removes the outgoing announce for the given object URI.
func (s *Store) DeleteOutgoingAnnounce(handle, objectURI string) error {
	return updateList(s, dirOutgoingAnnounces, handle,
		func(announces []*spi.OutgoingAnnounce) ([]*spi.OutgoingAnnounce, error) {
			for i, a := range announces {
				if a.ObjectURI == objectURI {
					return append(announces[:i], announces[i+1:]...), nil
				}
			}

			return nil, spi.ErrNotFound
		})
}

// GetOutgoingAnnounces returns the announces sent by the given local actor.
func (s *Store) GetOutgoingAnnounces(handle string) ([]*spi.OutgoingAnnounce, error) {
	return readList[*spi.OutgoingAnnounce](s, dirOutgoingAnnounces, handle)
}

// AddNotification prepends the given notification to the actor's list,
// dropping the oldest entries past the cap.
func (s *Store) AddNotification(handle string, notification *spi.Notification) error {
	return updateList(s, dirNotifications, handle,
		func(notifications []*spi.Notification) ([]*spi.Notification, error) {
			notifications = append([]*spi.Notification{notification}, notifications...)

			if len(notifications) > spi.MaxNotifications {
				notifications = notifications[:spi.MaxNotifications]
			}

			return notifications, nil
		})
}

// GetNotifications returns the actor's notifications, newest first.
func (s *Store) GetNotifications(handle string) ([]*spi.Notification, error) {
	return readList[*spi.Notification](s, dirNotifications, handle)
}

// PutRemoteContent stores the given remote-content record under the local
// actor's mirror directory.
func (s *Store) PutRemoteContent(handle string, content *spi.RemoteContent) error {
	dir := filepath.Join(dirRemoteContent, handle)

	if err := os.MkdirAll(filepath.Join(s.root, dir), dirPerm); err != nil {
		return fmt.Errorf("create remote-content directory: %w", err)
	}

	return s.writeRecord(dir, hashKey(content.ID), content)
}

// GetRemoteContentByObjectID returns the remote-content record with the given object ID.
func (s *Store) GetRemoteContentByObjectID(handle, objectID string) (*spi.RemoteContent, error) {
	records, err := s.GetRemoteContent(handle)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		if r.ObjectID == objectID {
			return r, nil
		}
	}

	return nil, spi.ErrNotFound
}

// GetRemoteContent returns all remote-content records of the local actor.
func (s *Store) GetRemoteContent(handle string) ([]*spi.RemoteContent, error) {
	dir := filepath.Join(dirRemoteContent, handle)

	if _, err := os.Stat(filepath.Join(s.root, dir)); os.IsNotExist(err) {
		return nil, nil
	}

	return queryRecords(s, dir, func(*spi.RemoteContent) bool { return true })
}

// PutDeliveryTask stores the given delivery task.
func (s *Store) PutDeliveryTask(task *spi.DeliveryTask) error {
	return s.writeRecord(dirDeliveryQueue, task.ID, task)
}

// GetDeliveryTask returns the task with the given ID.
func (s *Store) GetDeliveryTask(taskID string) (*spi.DeliveryTask, error) {
	task := &spi.DeliveryTask{}

	if err := s.readRecord(dirDeliveryQueue, taskID, task); err != nil {
		return nil, err
	}

	return task, nil
}

// DeleteDeliveryTask removes the task with the given ID.
func (s *Store) DeleteDeliveryTask(taskID string) error {
	return s.deleteRecord(dirDeliveryQueue, taskID)
}

// QueryDeliveryTasks returns all delivery tasks.
func (s *Store) QueryDeliveryTasks() ([]*spi.DeliveryTask, error) {
	return queryRecords(s, dirDeliveryQueue, func(*spi.DeliveryTask) bool { return true })
}

// PutCachedKey stores the given cached public key.
func (s *Store) PutCachedKey(key *spi.CachedKey) error {
	return s.writeRecord(dirCachedKeys, hashKey(key.KeyID), key)
}

// GetCachedKey returns the cached public key with the given key ID.
func (s *Store) GetCachedKey(keyID string) (*spi.CachedKey, error) {
	key := &spi.CachedKey{}

	if err := s.readRecord(dirCachedKeys, hashKey(keyID), key); err != nil {
		return nil, err
	}

	return key, nil
}

// DeleteCachedKey removes the cached public key with the given key ID.
func (s *Store) DeleteCachedKey(keyID string) error {
	err := s.deleteRecord(dirCachedKeys, hashKey(keyID))
	if err != nil && err != spi.ErrNotFound {
		return err
	}

	return nil
}

// GetCachedKeyIDs returns the IDs of all cached public keys.
func (s *Store) GetCachedKeyIDs() ([]string, error) {
	keys, err := queryRecords(s, dirCachedKeys, func(*spi.CachedKey) bool { return true })
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(keys))

	for i, k := range keys {
		ids[i] = k.KeyID
	}

	return ids, nil
}

func (s *Store) path(dir, name string) string {
	return filepath.Join(s.root, dir, name+".json")
}

func (s *Store) writeRecord(dir, name string, record interface{}) error {
	unlock := s.locks.lock(dir + "/" + name)
	defer unlock()

	return s.writeRecordLocked(dir, name, record)
}

// writeRecordLocked writes to a temporary file and renames it into place so
// that a reader never observes a partially written record.
func (s *Store) writeRecordLocked(dir, name string, record interface{}) error {
	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	target := s.path(dir, name)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, b, filePerm); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename record: %w", err)
	}

	return nil
}

func (s *Store) readRecord(dir, name string, record interface{}) error {
	unlock := s.locks.lock(dir + "/" + name)
	defer unlock()

	return s.readRecordLocked(dir, name, record)
}

func (s *Store) readRecordLocked(dir, name string, record interface{}) error {
	b, err := os.ReadFile(s.path(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return spi.ErrNotFound
		}

		return fmt.Errorf("read record: %w", err)
	}

	if err := json.Unmarshal(b, record); err != nil {
		// A corrupt record is treated as missing. The file is left in
		// place for inspection.
		logger.Warn("Treating unparseable record as missing",
			log.WithStorePath(s.path(dir, name)), log.WithError(err))

		return spi.ErrNotFound
	}

	return nil
}

func (s *Store) deleteRecord(dir, name string) error {
	unlock := s.locks.lock(dir + "/" + name)
	defer unlock()

	err := os.Remove(s.path(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return spi.ErrNotFound
		}

		return fmt.Errorf("delete record: %w", err)
	}

	return nil
}

func updateList[T any](s *Store, dir, handle string, update func([]T) ([]T, error)) error {
	unlock := s.locks.lock(dir + "/" + handle)
	defer unlock()

	var list []T

	err := s.readRecordLocked(dir, handle, &list)
	if err != nil && err != spi.ErrNotFound {
		return err
	}

	updated, err := update(list)
	if err != nil {
		return err
	}

	return s.writeRecordLocked(dir, handle, updated)
}

func readList[T any](s *Store, dir, handle string) ([]T, error) {
	var list []T

	err := s.readRecord(dir, handle, &list)
	if err != nil && err != spi.ErrNotFound {
		return nil, err
	}

	return list, nil
}

func queryRecords[T any](s *Store, dir string, filter func(T) bool) ([]T, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, dir))
	if err != nil {
		return nil, fmt.Errorf("read %s directory: %w", dir, err)
	}

	sortByModTime(entries)

	var results []T

	for _, e := range entries {
		name, ok := recordName(e)
		if !ok {
			continue
		}

		var record T

		if err := s.readRecord(dir, name, &record); err != nil {
			logger.Warn("Skipping unreadable record", log.WithStorePath(e.Name()), log.WithError(err))

			continue
		}

		if filter(record) {
			results = append(results, record)
		}
	}

	return results, nil
}

func activityDir(storeType spi.ActivityStoreType) string {
	if storeType == spi.Inbox {
		return dirInbox
	}

	return dirOutbox
}

func recordName(e os.DirEntry) (string, bool) {
	if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
		return "", false
	}

	return e.Name()[:len(e.Name())-len(".json")], true
}

func sortByModTime(entries []os.DirEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		fi, err1 := entries[i].Info()
		fj, err2 := entries[j].Info()

		if err1 != nil || err2 != nil {
			return entries[i].Name() < entries[j].Name()
		}

		return fi.ModTime().Before(fj.ModTime())
	})
}

func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))

	return hex.EncodeToString(h[:])
}

type keyedMutex struct {
	mutex sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		locks: make(map[string]*entry),
	}
}

// lock acquires the mutex for the given key and returns the unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mutex.Lock()

	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}

	e.refs++

	k.mutex.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mutex.Lock()

		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}

		k.mutex.Unlock()
	}
}
