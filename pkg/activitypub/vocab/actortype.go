/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vocab

import (
	"net/url"
)

// ActorType defines an 'actor', e.g. a Person or a Group.
type ActorType struct {
	*ObjectType

	actor *actorType
}

type actorType struct {
	PreferredUsername         string               `json:"preferredUsername,omitempty"`
	Inbox                     *URLProperty         `json:"inbox,omitempty"`
	Outbox                    *URLProperty         `json:"outbox,omitempty"`
	Followers                 *URLProperty         `json:"followers,omitempty"`
	Following                 *URLProperty         `json:"following,omitempty"`
	Liked                     *URLProperty         `json:"liked,omitempty"`
	Featured                  *URLProperty         `json:"featured,omitempty"`
	PublicKey                 *PublicKeyType       `json:"publicKey,omitempty"`
	Icon                      *ImageType           `json:"icon,omitempty"`
	Image                     *ImageType           `json:"image,omitempty"`
	Endpoints                 *EndpointsType       `json:"endpoints,omitempty"`
	ManuallyApprovesFollowers bool                 `json:"manuallyApprovesFollowers"`
	Discoverable              bool                 `json:"discoverable"`
	Attachment                []*PropertyValueType `json:"attachment,omitempty"`
}

// NewActor returns a new actor with the given actor type (Person, Group,
// Service or Application).
func NewActor(typ Type, id *url.URL, opts ...Opt) *ActorType {
	options := NewOptions(opts...)

	return &ActorType{
		ObjectType: NewObject(
			WithContext(getContexts(options, ContextActivityStreams, ContextSecurity)...),
			WithID(id),
			WithType(typ),
			WithName(options.Name),
			WithSummary(options.Summary),
			WithURL(options.URL...),
			WithPublishedTime(options.Published),
		),
		actor: &actorType{
			PreferredUsername:         options.PreferredUsername,
			Inbox:                     NewURLProperty(options.Inbox),
			Outbox:                    NewURLProperty(options.Outbox),
			Followers:                 NewURLProperty(options.Followers),
			Following:                 NewURLProperty(options.Following),
			Liked:                     NewURLProperty(options.Liked),
			Featured:                  NewURLProperty(options.Featured),
			PublicKey:                 options.PublicKey,
			Icon:                      options.Icon,
			Image:                     options.Image,
			Endpoints:                 options.Endpoints,
			ManuallyApprovesFollowers: options.ManuallyApprovesFollowers,
			Discoverable:              options.Discoverable,
			Attachment:                options.PropertyValues,
		},
	}
}

// NewPerson returns a new 'Person' actor.
func NewPerson(id *url.URL, opts ...Opt) *ActorType {
	return NewActor(TypePerson, id, opts...)
}

// NewGroup returns a new 'Group' actor.
func NewGroup(id *url.URL, opts ...Opt) *ActorType {
	return NewActor(TypeGroup, id, opts...)
}

// NewServiceActor returns a new 'Service' actor.
func NewServiceActor(id *url.URL, opts ...Opt) *ActorType {
	return NewActor(TypeService, id, opts...)
}

// PreferredUsername returns the actor's preferred username.
func (t *ActorType) PreferredUsername() string {
	return t.actor.PreferredUsername
}

// Inbox returns the URL of the actor's inbox.
func (t *ActorType) Inbox() *url.URL {
	if t.actor.Inbox == nil {
		return nil
	}

	return t.actor.Inbox.URL()
}

// Outbox returns the URL of the actor's outbox.
func (t *ActorType) Outbox() *url.URL {
	if t.actor.Outbox == nil {
		return nil
	}

	return t.actor.Outbox.URL()
}

// Followers returns the URL of the actor's followers collection.
func (t *ActorType) Followers() *url.URL {
	if t.actor.Followers == nil {
		return nil
	}

	return t.actor.Followers.URL()
}

// Following returns the URL of the actor's following collection.
func (t *ActorType) Following() *url.URL {
	if t.actor.Following == nil {
		return nil
	}

	return t.actor.Following.URL()
}

// Liked returns the URL of the actor's liked collection.
func (t *ActorType) Liked() *url.URL {
	if t.actor.Liked == nil {
		return nil
	}

	return t.actor.Liked.URL()
}

// Featured returns the URL of the actor's featured collection.
func (t *ActorType) Featured() *url.URL {
	if t.actor.Featured == nil {
		return nil
	}

	return t.actor.Featured.URL()
}

// PublicKey returns the actor's public key.
func (t *ActorType) PublicKey() *PublicKeyType {
	return t.actor.PublicKey
}

// Icon returns the actor's avatar.
func (t *ActorType) Icon() *ImageType {
	return t.actor.Icon
}

// Image returns the actor's header image.
func (t *ActorType) Image() *ImageType {
	return t.actor.Image
}

// Endpoints returns the actor's endpoints.
func (t *ActorType) Endpoints() *EndpointsType {
	return t.actor.Endpoints
}

// ManuallyApprovesFollowers returns true if Follow requests to this actor
// require manual approval.
func (t *ActorType) ManuallyApprovesFollowers() bool {
	return t.actor.ManuallyApprovesFollowers
}

// Discoverable returns true if the actor may be surfaced in discovery.
func (t *ActorType) Discoverable() bool {
	return t.actor.Discoverable
}

// Attachment returns the actor's PropertyValue attachments.
func (t *ActorType) Attachment() []*PropertyValueType {
	return t.actor.Attachment
}

// MarshalJSON marshals the actor.
func (t *ActorType) MarshalJSON() ([]byte, error) {
	return MarshalJSON(t.ObjectType, t.actor)
}

// UnmarshalJSON unmarshals the actor.
func (t *ActorType) UnmarshalJSON(bytes []byte) error {
	t.ObjectType = NewObject()
	t.actor = &actorType{}

	return UnmarshalJSON(bytes, t.ObjectType, t.actor)
}

// PublicKeyType defines an actor's public key in PEM format.
type PublicKeyType struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// NewPublicKey returns a new public key.
func NewPublicKey(id, owner, publicKeyPem string) *PublicKeyType {
	return &PublicKeyType{
		ID:           id,
		Owner:        owner,
		PublicKeyPem: publicKeyPem,
	}
}

// ImageType defines an 'Image' attachment, e.g. an actor's avatar.
type ImageType struct {
	Type      Type   `json:"type"`
	MediaType string `json:"mediaType,omitempty"`
	URL       string `json:"url"`
}

// NewImage returns a new image with the given URL.
func NewImage(mediaType, u string) *ImageType {
	return &ImageType{
		Type:      TypeImage,
		MediaType: mediaType,
		URL:       u,
	}
}

// EndpointsType defines an actor's 'endpoints' property.
type EndpointsType struct {
	SharedInbox string `json:"sharedInbox,omitempty"`
}

// PropertyValueType defines a 'PropertyValue' attachment on an actor's
// profile, e.g. a verified link.
type PropertyValueType struct {
	Type  Type   `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewPropertyValue returns a new 'PropertyValue' attachment.
func NewPropertyValue(name, value string) *PropertyValueType {
	return &PropertyValueType{
		Type:  TypePropertyValue,
		Name:  name,
		Value: value,
	}
}
