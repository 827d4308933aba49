/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package spi defines the ActivityPub storage service provider interface and
// the records it persists.
package spi

import (
	"fmt"
	"net/url"
	"time"

	"github.com/fedipress/fedipress/pkg/activitypub/vocab"
)

// ErrNotFound is returned from various store functions when a requested
// record is not found in the store.
var ErrNotFound = fmt.Errorf("not found in ActivityPub store")

// ActivityStoreType indicates the type of activities store, i.e. inbox, outbox.
type ActivityStoreType string

const (
	// Inbox indicates that the activity store is the inbox.
	Inbox ActivityStoreType = "INBOX"
	// Outbox indicates that the activity store is the outbox.
	Outbox ActivityStoreType = "OUTBOX"
)

// FollowStatus is the status of a follower or following record.
type FollowStatus string

const (
	// StatusPending indicates that the follow request has not yet been approved.
	StatusPending FollowStatus = "pending"
	// StatusAccepted indicates that the follow request was approved.
	StatusAccepted FollowStatus = "accepted"
	// StatusRejected indicates that the follow request was rejected.
	StatusRejected FollowStatus = "rejected"
	// StatusBlocked indicates that the remote actor was blocked.
	StatusBlocked FollowStatus = "blocked"
)

// Follower is a remote actor that follows a local actor.
type Follower struct {
	ActorURI    string       `json:"actorUri"`
	Handle      string       `json:"handle,omitempty"`
	Domain      string       `json:"domain,omitempty"`
	DisplayName string       `json:"displayName,omitempty"`
	AvatarURL   string       `json:"avatarUrl,omitempty"`
	InboxURI    string       `json:"inboxUri,omitempty"`
	ActivityID  string       `json:"activityId,omitempty"`
	FollowedAt  time.Time    `json:"followedAt"`
	Status      FollowStatus `json:"status"`
}

// Following is a remote actor that a local actor follows.
type Following struct {
	ActorURI   string       `json:"actorUri"`
	Handle     string       `json:"handle,omitempty"`
	Domain     string       `json:"domain,omitempty"`
	ActivityID string       `json:"activityId,omitempty"`
	FollowedAt time.Time    `json:"followedAt"`
	Status     FollowStatus `json:"status"`
}

// LikeRecord records a Like received for a local object. It is keyed by the
// ID of the Like activity.
type LikeRecord struct {
	ID          string    `json:"id"`
	ActorURI    string    `json:"actorUri"`
	ActorHandle string    `json:"actorHandle,omitempty"`
	ObjectID    string    `json:"objectId"`
	At          time.Time `json:"at"`
}

// AnnounceRecord records an Announce received for a local object. It is keyed
// by the ID of the Announce activity.
type AnnounceRecord struct {
	ID          string    `json:"id"`
	ActorURI    string    `json:"actorUri"`
	ActorHandle string    `json:"actorHandle,omitempty"`
	ObjectID    string    `json:"objectId"`
	At          time.Time `json:"at"`
}

// OutgoingLike records a Like sent by a local actor.
type OutgoingLike struct {
	ObjectURI  string    `json:"objectUri"`
	ActivityID string    `json:"activityId"`
	At         time.Time `json:"at"`
}

// OutgoingAnnounce records an Announce sent by a local actor.
type OutgoingAnnounce struct {
	ObjectURI  string    `json:"objectUri"`
	ActivityID string    `json:"activityId"`
	At         time.Time `json:"at"`
}

// NotificationType is the type of a notification.
type NotificationType string

const (
	// NotificationFollow indicates that a remote actor followed a local actor.
	NotificationFollow NotificationType = "follow"
	// NotificationFollowAccepted indicates that a remote actor accepted a follow request.
	NotificationFollowAccepted NotificationType = "follow_accepted"
	// NotificationFollowRejected indicates that a remote actor rejected a follow request.
	NotificationFollowRejected NotificationType = "follow_rejected"
	// NotificationLike indicates that a remote actor liked a local object.
	NotificationLike NotificationType = "like"
	// NotificationAnnounce indicates that a remote actor announced a local object.
	NotificationAnnounce NotificationType = "announce"
	// NotificationMention indicates that a local actor was mentioned in remote content.
	NotificationMention NotificationType = "mention"
	// NotificationReply indicates that remote content replied to a local object.
	NotificationReply NotificationType = "reply"
)

// MaxNotifications is the maximum number of notifications retained per actor.
// Older notifications are dropped.
const MaxNotifications = 100

// Notification is a per-actor notification derived from an inbound activity.
type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	ActorURI    string           `json:"actorUri"`
	ActorHandle string           `json:"actorHandle,omitempty"`
	ObjectID    string           `json:"objectId,omitempty"`
	Excerpt     string           `json:"excerpt,omitempty"`
	At          time.Time        `json:"at"`
	Read        bool             `json:"read"`
}

// RemoteContent mirrors a remote object delivered to a local actor's inbox.
type RemoteContent struct {
	ID               string         `json:"id"`
	ActivityID       string         `json:"activityId"`
	ObjectID         string         `json:"objectId"`
	ObjectType       string         `json:"objectType"`
	ActorURI         string         `json:"actorUri"`
	ActorHandle      string         `json:"actorHandle,omitempty"`
	Object           vocab.Document `json:"object"`
	ReceivedAt       time.Time      `json:"receivedAt"`
	Published        *time.Time     `json:"published,omitempty"`
	UpdatedAt        *time.Time     `json:"updatedAt,omitempty"`
	UpdateActivityID string         `json:"updateActivityId,omitempty"`
	Deleted          bool           `json:"deleted"`
	DeletedAt        *time.Time     `json:"deletedAt,omitempty"`
}

// TaskStatus is the status of a delivery task.
type TaskStatus string

const (
	// TaskPending indicates that the task is awaiting delivery.
	TaskPending TaskStatus = "pending"
	// TaskDelivering indicates that the task is owned by a drain pass.
	TaskDelivering TaskStatus = "delivering"
	// TaskDelivered indicates that the task was delivered to all recipients.
	TaskDelivered TaskStatus = "delivered"
	// TaskFailed indicates that the task exhausted its retries.
	TaskFailed TaskStatus = "failed"
)

// Recipient holds the per-recipient delivery state of a task.
type Recipient struct {
	URI         string     `json:"uri"`
	Delivered   bool       `json:"delivered"`
	LastError   string     `json:"lastError,omitempty"`
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`
}

// DeliveryTask is a durable outbound delivery work item.
type DeliveryTask struct {
	ID           string         `json:"id"`
	Activity     vocab.Document `json:"activity"`
	Recipients   []*Recipient   `json:"recipients"`
	RetryCount   int            `json:"retryCount"`
	NextRetryAt  time.Time      `json:"nextRetryAt"`
	Status       TaskStatus     `json:"status"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	SenderHandle string         `json:"senderHandle,omitempty"`
}

// CachedKey is a cached remote actor public key.
type CachedKey struct {
	KeyID        string        `json:"keyId"`
	PublicKeyPem string        `json:"publicKeyPem"`
	CachedAt     time.Time     `json:"cachedAt"`
	TTL          time.Duration `json:"ttl"`
}

// Expired returns true if the cached key has passed its TTL.
func (k *CachedKey) Expired() bool {
	return time.Since(k.CachedAt) > k.TTL
}

// StoredActor is the private counterpart of a local actor. The private key
// never leaves the instance.
type StoredActor struct {
	Handle        string            `json:"handle"`
	ActorType     string            `json:"actorType,omitempty"`
	DisplayName   string            `json:"displayName,omitempty"`
	Bio           string            `json:"bio,omitempty"`
	AvatarURL     string            `json:"avatarUrl,omitempty"`
	BannerURL     string            `json:"bannerUrl,omitempty"`
	SocialLinks   map[string]string `json:"socialLinks,omitempty"`
	Discoverable  bool              `json:"discoverable"`
	PublicKeyID   string            `json:"publicKeyId"`
	PublicKeyPem  string            `json:"publicKeyPem"`
	PrivateKeyPem string            `json:"privateKeyPem"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// StoredGroup is the private counterpart of a local group actor.
type StoredGroup struct {
	Handle                  string    `json:"handle"`
	DisplayName             string    `json:"displayName,omitempty"`
	Summary                 string    `json:"summary,omitempty"`
	IconURL                 string    `json:"iconUrl,omitempty"`
	Sensitive               bool      `json:"sensitive"`
	PostingRestrictedToMods bool      `json:"postingRestrictedToMods"`
	Moderators              []string  `json:"moderators,omitempty"`
	PublicKeyID             string    `json:"publicKeyId"`
	PublicKeyPem            string    `json:"publicKeyPem"`
	PrivateKeyPem           string    `json:"privateKeyPem"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

// Store defines the functions of an ActivityPub store.
type Store interface {
	ActorStore
	ActivityStore
	FollowerStore
	ReactionStore
	NotificationStore
	RemoteContentStore
	DeliveryStore
	KeyStore
}

// ActorStore persists local actors and groups.
type ActorStore interface {
	// PutActor stores the given local actor.
	PutActor(actor *StoredActor) error
	// GetActor returns the local actor for the given handle. Returns
	// ErrNotFound if the actor is not in the store.
	GetActor(handle string) (*StoredActor, error)
	// GetActorHandles returns the handles of all local actors.
	GetActorHandles() ([]string, error)
	// PutGroup stores the given local group.
	PutGroup(group *StoredGroup) error
	// GetGroup returns the local group for the given handle. Returns
	// ErrNotFound if the group is not in the store.
	GetGroup(handle string) (*StoredGroup, error)
}

// ActivityStore persists inbox and outbox activities.
type ActivityStore interface {
	// AddActivity adds the given activity to the specified activity store.
	AddActivity(storeType ActivityStoreType, activity *vocab.ActivityType) error
	// GetActivity returns the activity for the given ID from the given
	// activity store or ErrNotFound if it wasn't found.
	GetActivity(storeType ActivityStoreType, activityIRI *url.URL) (*vocab.ActivityType, error)
	// QueryActivities queries the given activity store and returns a results
	// iterator ordered by insertion.
	QueryActivities(storeType ActivityStoreType, query *Criteria) (ActivityIterator, error)
}

// FollowerStore persists the follower graph of local actors.
type FollowerStore interface {
	// UpsertFollower adds or replaces the follower of the given local actor,
	// keyed by the follower's actor URI.
	UpsertFollower(handle string, follower *Follower) error
	// DeleteFollower removes the follower with the given actor URI.
	// Returns ErrNotFound if no such follower exists.
	DeleteFollower(handle, actorURI string) error
	// GetFollowers returns the followers of the given local actor.
	GetFollowers(handle string) ([]*Follower, error)
	// UpsertFollowing adds or replaces a following record of the given local
	// actor, keyed by the remote actor URI.
	UpsertFollowing(handle string, following *Following) error
	// DeleteFollowing removes the following record with the given actor URI.
	// Returns ErrNotFound if no such record exists.
	DeleteFollowing(handle, actorURI string) error
	// GetFollowing returns the actors that the given local actor follows.
	GetFollowing(handle string) ([]*Following, error)
}

// ReactionStore persists likes and announces, both received and sent.
type ReactionStore interface {
	// PutLike stores the given like record, deduped by activity ID.
	PutLike(like *LikeRecord) error
	// DeleteLike removes the like record with the given activity ID.
	DeleteLike(activityID string) error
	// QueryLikes returns the like records for the given object ID.
	QueryLikes(objectID string) ([]*LikeRecord, error)
	// PutAnnounce stores the given announce record, deduped by activity ID.
	PutAnnounce(announce *AnnounceRecord) error
	// DeleteAnnounce removes the announce record with the given activity ID.
	DeleteAnnounce(activityID string) error
	// QueryAnnounces returns the announce records for the given object ID.
	QueryAnnounces(objectID string) ([]*AnnounceRecord, error)
	// AddOutgoingLike records a Like sent by the given local actor.
	AddOutgoingLike(handle string, like *OutgoingLike) error
	// DeleteOutgoingLike removes the outgoing like for the given object URI.
	DeleteOutgoingLike(handle, objectURI string) error
	// GetOutgoingLikes returns the likes sent by the given local actor.
	GetOutgoingLikes(handle string) ([]*OutgoingLike, error)
	// AddOutgoingAnnounce records an Announce sent by the given local actor.
	AddOutgoingAnnounce(handle string, announce *OutgoingAnnounce) error
	// DeleteOutgoingAnnounce removes the outgoing announce for the given object URI.
	DeleteOutgoingAnnounce(handle, objectURI string) error
	// GetOutgoingAnnounces returns the announces sent by the given local actor.
	GetOutgoingAnnounces(handle string) ([]*OutgoingAnnounce, error)
}

// NotificationStore persists per-actor notifications.
type NotificationStore interface {
	// AddNotification prepends the given notification to the actor's list.
	// The list is capped at MaxNotifications.
	AddNotification(handle string, notification *Notification) error
	// GetNotifications returns the actor's notifications, newest first.
	GetNotifications(handle string) ([]*Notification, error)
}

// RemoteContentStore persists the per-actor mirror of remote content.
type RemoteContentStore interface {
	// PutRemoteContent stores the given remote-content record under the
	// local actor's mirror.
	PutRemoteContent(handle string, content *RemoteContent) error
	// GetRemoteContentByObjectID returns the remote-content record with the
	// given object ID, or ErrNotFound.
	GetRemoteContentByObjectID(handle, objectID string) (*RemoteContent, error)
	// GetRemoteContent returns all remote-content records of the local actor.
	GetRemoteContent(handle string) ([]*RemoteContent, error)
}

// DeliveryStore persists the outbound delivery queue.
type DeliveryStore interface {
	// PutDeliveryTask stores the given delivery task.
	PutDeliveryTask(task *DeliveryTask) error
	// GetDeliveryTask returns the task with the given ID or ErrNotFound.
	GetDeliveryTask(taskID string) (*DeliveryTask, error)
	// DeleteDeliveryTask removes the task with the given ID.
	DeleteDeliveryTask(taskID string) error
	// QueryDeliveryTasks returns all delivery tasks.
	QueryDeliveryTasks() ([]*DeliveryTask, error)
}

// KeyStore persists cached remote actor public keys.
type KeyStore interface {
	// PutCachedKey stores the given cached public key.
	PutCachedKey(key *CachedKey) error
	// GetCachedKey returns the cached public key with the given key ID or
	// ErrNotFound.
	GetCachedKey(keyID string) (*CachedKey, error)
	// DeleteCachedKey removes the cached public key with the given key ID.
	DeleteCachedKey(keyID string) error
	// GetCachedKeyIDs returns the IDs of all cached public keys.
	GetCachedKeyIDs() ([]string, error)
}

// Criteria holds the search criteria for an activity query.
type Criteria struct {
	Types []vocab.Type
}

// CriteriaOpt sets a Criteria option.
type CriteriaOpt func(q *Criteria)

// NewCriteria returns new Criteria which may be used to perform a query.
func NewCriteria(opts ...CriteriaOpt) *Criteria {
	q := &Criteria{}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// WithType sets the object Type on the criteria.
func WithType(t ...vocab.Type) CriteriaOpt {
	return func(query *Criteria) {
		query.Types = append(query.Types, t...)
	}
}

// ActivityIterator defines the query results iterator for activity queries.
type ActivityIterator interface {
	// Next returns the next activity or an ErrNotFound error if there are no
	// more items.
	Next() (*vocab.ActivityType, error)
	// TotalItems returns the total number of matching items.
	TotalItems() int
	// Close closes the iterator.
	Close()
}
