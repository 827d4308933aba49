/*
Copyright FediPress Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vocab

import (
	"net/url"
	"time"
)

// Options holds all of the options for building an ActivityPub object.
type Options struct {
	Context      []Context
	ID           *url.URL
	To           []*url.URL
	CC           []*url.URL
	Published    *time.Time
	Updated      *time.Time
	Types        []Type
	Actor        *url.URL
	AttributedTo *url.URL
	InReplyTo    *url.URL
	Name         string
	Summary      string
	Content      string
	MediaType    string
	URL          []*url.URL
	Tags         []*TagProperty
	Attachment   []*ObjectProperty
	Target       *ObjectProperty
	Result       *ObjectProperty

	ObjectPropertyOptions
	ActorOptions
	CollectionOptions
}

// CollectionOptions holds the options for building a collection or a
// collection page.
type CollectionOptions struct {
	Current    *url.URL
	First      *url.URL
	Last       *url.URL
	Next       *url.URL
	Prev       *url.URL
	PartOf     *url.URL
	TotalItems int
}

// WithCurrent sets the 'current' property on the collection.
func WithCurrent(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.Current = iri
	}
}

// WithFirst sets the 'first' property on the collection.
func WithFirst(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.First = iri
	}
}

// WithLast sets the 'last' property on the collection.
func WithLast(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.Last = iri
	}
}

// WithNext sets the 'next' property on the collection page.
func WithNext(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.Next = iri
	}
}

// WithPrev sets the 'prev' property on the collection page.
func WithPrev(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.Prev = iri
	}
}

// WithPartOf sets the 'partOf' property on the collection page.
func WithPartOf(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.PartOf = iri
	}
}

// WithTotalItems sets the 'totalItems' property on the collection.
func WithTotalItems(totalItems int) Opt {
	return func(opts *Options) {
		opts.TotalItems = totalItems
	}
}

// ActorOptions holds the options for building an actor.
type ActorOptions struct {
	PreferredUsername         string
	Inbox                     *url.URL
	Outbox                    *url.URL
	Followers                 *url.URL
	Following                 *url.URL
	Liked                     *url.URL
	Featured                  *url.URL
	PublicKey                 *PublicKeyType
	Icon                      *ImageType
	Image                     *ImageType
	Endpoints                 *EndpointsType
	ManuallyApprovesFollowers bool
	Discoverable              bool
	PropertyValues            []*PropertyValueType
}

// WithPreferredUsername sets the 'preferredUsername' property on the actor.
func WithPreferredUsername(name string) Opt {
	return func(opts *Options) {
		opts.PreferredUsername = name
	}
}

// WithInbox sets the 'inbox' property on the actor.
func WithInbox(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.Inbox = iri
	}
}

// WithOutbox sets the 'outbox' property on the actor.
func WithOutbox(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.Outbox = iri
	}
}

// WithFollowers sets the 'followers' property on the actor.
func WithFollowers(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.Followers = iri
	}
}

// WithFollowing sets the 'following' property on the actor.
func WithFollowing(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.Following = iri
	}
}

// WithLiked sets the 'liked' property on the actor.
func WithLiked(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.Liked = iri
	}
}

// WithFeatured sets the 'featured' property on the actor.
func WithFeatured(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.Featured = iri
	}
}

// WithPublicKey sets the 'publicKey' property on the actor.
func WithPublicKey(publicKey *PublicKeyType) Opt {
	return func(opts *Options) {
		opts.PublicKey = publicKey
	}
}

// WithIcon sets the 'icon' property on the actor.
func WithIcon(icon *ImageType) Opt {
	return func(opts *Options) {
		opts.Icon = icon
	}
}

// WithImage sets the 'image' property on the actor.
func WithImage(image *ImageType) Opt {
	return func(opts *Options) {
		opts.Image = image
	}
}

// WithEndpoints sets the 'endpoints' property on the actor.
func WithEndpoints(endpoints *EndpointsType) Opt {
	return func(opts *Options) {
		opts.Endpoints = endpoints
	}
}

// WithManuallyApprovesFollowers sets the 'manuallyApprovesFollowers' property on the actor.
func WithManuallyApprovesFollowers(value bool) Opt {
	return func(opts *Options) {
		opts.ManuallyApprovesFollowers = value
	}
}

// WithDiscoverable sets the 'discoverable' property on the actor.
func WithDiscoverable(value bool) Opt {
	return func(opts *Options) {
		opts.Discoverable = value
	}
}

// WithPropertyValue adds a 'PropertyValue' attachment to the actor.
func WithPropertyValue(pv ...*PropertyValueType) Opt {
	return func(opts *Options) {
		opts.PropertyValues = append(opts.PropertyValues, pv...)
	}
}

// Opt is an option for an object, activity, etc.
type Opt func(opts *Options)

// NewOptions returns an Options struct which is populated with the provided options.
func NewOptions(opts ...Opt) *Options {
	options := &Options{}

	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithContext sets the '@context' property on the object.
func WithContext(context ...Context) Opt {
	return func(opts *Options) {
		opts.Context = context
	}
}

// WithID sets the 'id' property on the object.
func WithID(id *url.URL) Opt {
	return func(opts *Options) {
		opts.ID = id
	}
}

// WithTo sets the 'to' property on the object.
func WithTo(to ...*url.URL) Opt {
	return func(opts *Options) {
		opts.To = append(opts.To, to...)
	}
}

// WithCC sets the 'cc' property on the object.
func WithCC(cc ...*url.URL) Opt {
	return func(opts *Options) {
		opts.CC = append(opts.CC, cc...)
	}
}

// WithType sets the 'type' property on the object.
func WithType(t ...Type) Opt {
	return func(opts *Options) {
		opts.Types = t
	}
}

// WithPublishedTime sets the 'published' property on the object.
func WithPublishedTime(t *time.Time) Opt {
	return func(opts *Options) {
		opts.Published = t
	}
}

// WithUpdatedTime sets the 'updated' property on the object.
func WithUpdatedTime(t *time.Time) Opt {
	return func(opts *Options) {
		opts.Updated = t
	}
}

// WithActor sets the 'actor' property on the activity.
func WithActor(actor *url.URL) Opt {
	return func(opts *Options) {
		opts.Actor = actor
	}
}

// WithAttributedTo sets the 'attributedTo' property on the object.
func WithAttributedTo(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.AttributedTo = iri
	}
}

// WithInReplyTo sets the 'inReplyTo' property on the object.
func WithInReplyTo(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.InReplyTo = iri
	}
}

// WithName sets the 'name' property on the object.
func WithName(name string) Opt {
	return func(opts *Options) {
		opts.Name = name
	}
}

// WithSummary sets the 'summary' property on the object.
func WithSummary(summary string) Opt {
	return func(opts *Options) {
		opts.Summary = summary
	}
}

// WithContent sets the 'content' property on the object.
func WithContent(content string) Opt {
	return func(opts *Options) {
		opts.Content = content
	}
}

// WithMediaType sets the 'mediaType' property on the object.
func WithMediaType(mediaType string) Opt {
	return func(opts *Options) {
		opts.MediaType = mediaType
	}
}

// WithURL sets the 'url' property on the object.
func WithURL(u ...*url.URL) Opt {
	return func(opts *Options) {
		opts.URL = append(opts.URL, u...)
	}
}

// WithTag sets the 'tag' property on the object.
func WithTag(tags ...*TagProperty) Opt {
	return func(opts *Options) {
		opts.Tags = append(opts.Tags, tags...)
	}
}

// WithAttachment sets the 'attachment' property on the object.
func WithAttachment(attachment ...*ObjectProperty) Opt {
	return func(opts *Options) {
		opts.Attachment = append(opts.Attachment, attachment...)
	}
}

// WithTarget sets the 'target' property on the activity.
func WithTarget(target *ObjectProperty) Opt {
	return func(opts *Options) {
		opts.Target = target
	}
}

// WithResult sets the 'result' property on the activity.
func WithResult(result *ObjectProperty) Opt {
	return func(opts *Options) {
		opts.Result = result
	}
}

// ObjectPropertyOptions holds options for an 'object' property.
type ObjectPropertyOptions struct {
	Iri           *url.URL
	Object        *ObjectType
	Link          *LinkType
	Activity      *ActivityType
	EmbeddedActor *ActorType
}

// WithIRI sets the 'object' property to an IRI.
func WithIRI(iri *url.URL) Opt {
	return func(opts *Options) {
		opts.Iri = iri
	}
}

// WithObject sets the 'object' property to an embedded object.
func WithObject(obj *ObjectType) Opt {
	return func(opts *Options) {
		opts.Object = obj
	}
}

// WithLink sets the 'link' property to a Link.
func WithLink(link *LinkType) Opt {
	return func(opts *Options) {
		opts.Link = link
	}
}

// WithActivity sets the 'object' property to an embedded activity.
func WithActivity(activity *ActivityType) Opt {
	return func(opts *Options) {
		opts.Activity = activity
	}
}

// WithEmbeddedActor sets the 'object' property to an embedded actor.
func WithEmbeddedActor(actor *ActorType) Opt {
	return func(opts *Options) {
		opts.EmbeddedActor = actor
	}
}
